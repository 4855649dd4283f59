package normalize

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var bomUTF8 = []byte{0xEF, 0xBB, 0xBF}

// decode converts raw file bytes to UTF-8. Bank exports arrive either as
// UTF-8 (with or without BOM) or as Latin-1; anything that is not valid
// UTF-8 is decoded as Latin-1, which cannot fail since every byte maps
// to a code point.
func decode(data []byte) ([]byte, string, error) {
	if bytes.HasPrefix(data, bomUTF8) {
		return data[len(bomUTF8):], "utf-8-bom", nil
	}
	if utf8.Valid(data) {
		return data, "utf-8", nil
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return nil, "", fmt.Errorf("latin-1 decode: %w", err)
	}
	return decoded, "latin-1", nil
}
