package normalize

import (
	"encoding/json"
	"hash/fnv"
	"strings"

	"kuvert/internal/core"
)

// canonical serializes a row's non-reserved fields as JSON. encoding/json
// marshals map keys in sorted order, which pins the byte layout: the
// same field set and values always produce the same bytes, independent
// of map iteration order or the order columns appeared in the file.
func canonical(row core.RawRow) []byte {
	content := make(map[string]string, len(row))
	for k, v := range row {
		if strings.HasPrefix(k, core.ReservedPrefix) {
			continue
		}
		content[k] = v
	}
	// Marshal of map[string]string cannot fail.
	b, _ := json.Marshal(content)
	return b
}

// Hash computes the row's identity: FNV-1a 32-bit over the canonical
// serialization, excluding reserved fields such as the origin filename.
//
// This identity is what keeps the persisted override maps (category,
// type, envelope, link) valid across re-imports, so the canonical byte
// layout must never change. Collisions in the 32-bit space are an
// accepted limitation.
func Hash(row core.RawRow) uint32 {
	h := fnv.New32a()
	h.Write(canonical(row))
	return h.Sum32()
}
