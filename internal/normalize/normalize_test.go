package normalize

import (
	"testing"

	"kuvert/internal/core"
	"kuvert/internal/schema"
)

const englishCSV = `Date,Text,Amount,To,From
01-01-2024,Groceries,-250,123,456
02-01-2024,Salary,20000,456,789
`

func TestParse(t *testing.T) {
	rows, warnings, err := Parse("jan.csv", []byte(englishCSV))
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", warnings)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0]["Text"] != "Groceries" || rows[0]["Amount"] != "-250" {
		t.Fatalf("unexpected first row: %v", rows[0])
	}
	if rows[0].File() != "jan.csv" {
		t.Fatalf("expected origin jan.csv, got %q", rows[0].File())
	}
}

func TestParseSemicolonDelimiter(t *testing.T) {
	content := "Dato;Tekst;Beløb;Til;Fra\n01-01-2024;Husleje;-8.500,00;123;456\n"
	rows, warnings, err := Parse("dk.csv", []byte(content))
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", warnings)
	}
	if len(rows) != 1 || rows[0]["Beløb"] != "-8.500,00" {
		t.Fatalf("unexpected rows: %v", rows)
	}
}

func TestParseLatin1(t *testing.T) {
	// "Beløb" with ø as the Latin-1 byte 0xF8.
	content := append([]byte("Dato,Tekst,Bel"), 0xF8)
	content = append(content, []byte("b\n01-01-2024,Kaffe,-35\n")...)
	rows, _, err := Parse("latin.csv", content)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if _, ok := rows[0]["Beløb"]; !ok {
		t.Fatalf("expected decoded Beløb column, got %v", rows[0])
	}
}

func TestParseSkipsBlankLinesAndPadsShortRows(t *testing.T) {
	content := "Date,Text,Amount\n\n01-01-2024,Coffee\n"
	rows, warnings, err := Parse("f.csv", []byte(content))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0]["Amount"] != "" {
		t.Fatalf("expected padded empty Amount, got %q", rows[0]["Amount"])
	}
	if len(warnings) != 1 {
		t.Fatalf("expected a padding warning, got %v", warnings)
	}
}

func TestParseEmptyFile(t *testing.T) {
	if _, _, err := Parse("empty.csv", nil); err == nil {
		t.Fatal("expected error for empty file")
	}
}

func TestHashIdempotent(t *testing.T) {
	rows1, _, err := Parse("a.csv", []byte(englishCSV))
	if err != nil {
		t.Fatal(err)
	}
	rows2, _, err := Parse("b.csv", []byte(englishCSV))
	if err != nil {
		t.Fatal(err)
	}
	for i := range rows1 {
		if Hash(rows1[i]) != Hash(rows1[i]) {
			t.Fatal("hash not stable across calls")
		}
		// Same content from a different file must hash identically.
		if Hash(rows1[i]) != Hash(rows2[i]) {
			t.Fatal("hash depends on origin filename")
		}
	}
}

func TestHashIgnoresInsertionOrder(t *testing.T) {
	a := core.RawRow{"Date": "01-01-2024", "Amount": "-250", "Text": "Groceries"}
	b := core.RawRow{"Text": "Groceries", "Date": "01-01-2024", "Amount": "-250"}
	if Hash(a) != Hash(b) {
		t.Fatal("hash depends on field insertion order")
	}
}

func TestHashDistinguishesContent(t *testing.T) {
	a := core.RawRow{"Date": "01-01-2024", "Amount": "-250"}
	b := core.RawRow{"Date": "01-01-2024", "Amount": "-251"}
	if Hash(a) == Hash(b) {
		t.Fatal("distinct content must not collide in this test fixture")
	}
}

func TestDeduplicate(t *testing.T) {
	a1 := core.RawRow{"Date": "01-01-2024", "Amount": "-250", core.FileField: "a.csv"}
	a2 := core.RawRow{"Date": "01-01-2024", "Amount": "-250", core.FileField: "b.csv"}
	b := core.RawRow{"Date": "02-01-2024", "Amount": "-100", core.FileField: "b.csv"}

	got := Deduplicate([]core.RawRow{a1, a2, b})
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	// First occurrence wins, order preserved.
	if got[0].File() != "a.csv" || got[1]["Date"] != "02-01-2024" {
		t.Fatalf("unexpected order: %v", got)
	}
}

func TestProject(t *testing.T) {
	mapping := core.ColumnMapping{From: "From", To: "To", Posting: "Text", Amount: "Amount", Date: "Date"}
	row := core.RawRow{"Date": "01-01-2024", "Text": "Groceries", "Amount": "-250", "To": "123", "From": "456"}

	m, ok := Project(row, mapping)
	if !ok {
		t.Fatal("expected projection to succeed")
	}
	if m.Text != "Groceries" || m.From != "456" || m.To != "123" {
		t.Fatalf("unexpected mapped row: %+v", m)
	}
	if m.Amount.String() != "-250" {
		t.Fatalf("unexpected amount: %s", m.Amount)
	}
	if m.ID != Hash(row) {
		t.Fatal("mapped row id must equal the content hash")
	}
}

func TestProjectBadAmount(t *testing.T) {
	mapping := core.ColumnMapping{From: "From", To: "To", Posting: "Text", Amount: "Amount", Date: "Date"}
	row := core.RawRow{"Date": "01-01-2024", "Text": "x", "Amount": "n/a", "To": "1", "From": "2"}
	if _, ok := Project(row, mapping); ok {
		t.Fatal("expected projection to fail on bad amount")
	}
}

func TestProjectAll(t *testing.T) {
	english := core.RawRow{"Date": "01-01-2024", "Text": "A", "Amount": "-10", "To": "1", "From": "2"}
	danish := core.RawRow{"Dato": "01-01-2024", "Tekst": "B", "Beløb": "-20", "Til": "1", "Fra": "2"}
	bad := core.RawRow{"Date": "01-01-2024", "Text": "C", "Amount": "??", "To": "1", "From": "2"}

	mappings := map[core.SchemaKey]core.ColumnMapping{
		schema.KeyOf(english): {From: "From", To: "To", Posting: "Text", Amount: "Amount", Date: "Date"},
	}
	mapped, warnings := ProjectAll([]core.RawRow{english, danish, bad}, schema.KeyOf, mappings)
	if len(mapped) != 1 || mapped[0].Text != "A" {
		t.Fatalf("expected only the mapped english row, got %v", mapped)
	}
	// The unmapped danish row is silent; the bad amount warns.
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %v", warnings)
	}
}

func TestApplyExclusions(t *testing.T) {
	mapping := core.ColumnMapping{From: "From", To: "To", Posting: "Text", Amount: "Amount", Date: "Date"}
	rows := []core.RawRow{
		{"Date": "01-01-2024", "Text": "Internal Transfer savings", "Amount": "-100", "To": "1", "From": "acc-1"},
		{"Date": "02-01-2024", "Text": "Groceries", "Amount": "-50", "To": "1", "From": "acc-1"},
		{"Date": "03-01-2024", "Text": "internal transfer", "Amount": "-70", "To": "1", "From": "acc-2"},
	}
	var mapped []core.MappedRow
	for _, r := range rows {
		m, ok := Project(r, mapping)
		if !ok {
			t.Fatal("projection failed")
		}
		mapped = append(mapped, m)
	}

	rules := []core.ExclusionRule{{Account: "acc-1", Substrings: []string{"INTERNAL TRANSFER"}}}
	got := ApplyExclusions(mapped, rules)
	if len(got) != 2 {
		t.Fatalf("expected 2 rows after exclusion, got %d", len(got))
	}
	// No rule for acc-2, so its matching text passes through.
	if got[0].Text != "Groceries" || got[1].From != "acc-2" {
		t.Fatalf("unexpected rows: %v", got)
	}
}
