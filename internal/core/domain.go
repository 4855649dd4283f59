package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	TypeIncome   TransactionType = "income"
	TypeExpense  TransactionType = "expense"
	TypeTransfer TransactionType = "transfer"
	TypeRefund   TransactionType = "refund"
	TypeUnknown  TransactionType = "unknown"
)

const (
	LinkRefund   LinkType = "refund"
	LinkTransfer LinkType = "transfer"
	LinkUnknown  LinkType = "unknown"
)

// ReservedPrefix marks row fields added by the importer itself. Reserved
// fields never take part in schema keys, dedup keys, or row hashes.
const ReservedPrefix = "__"

// FileField is the reserved field carrying a row's origin filename.
const FileField = "__file"

// UnassignedCategory is the sentinel for transactions without a category.
const UnassignedCategory = "Unassigned"

type (
	// TransactionType classifies a transaction for aggregation purposes.
	TransactionType string

	// LinkType qualifies an explicit link between two transactions.
	LinkType string

	// RawRow is one CSV line keyed by column name, plus reserved fields.
	RawRow map[string]string

	// SchemaKey identifies a CSV column layout. Files sharing a header
	// row share a key, so their column mapping is reused automatically.
	SchemaKey string

	// Envelope is a budgeting period key in MM-YYYY form.
	Envelope string

	// ColumnMapping names the actual columns backing the five canonical
	// fields for one schema.
	ColumnMapping struct {
		From    string `json:"from"`
		To      string `json:"to"`
		Posting string `json:"posting"`
		Amount  string `json:"amount"`
		Date    string `json:"date"`
	}

	// MappedRow is a RawRow projected through its schema's column mapping.
	MappedRow struct {
		ID     uint32
		Date   string
		Text   string
		From   string
		To     string
		Amount decimal.Decimal
		Row    RawRow
	}

	// Link is one side of a symmetric relationship between transactions.
	Link struct {
		ID   uint32   `json:"id"`
		Type LinkType `json:"type"`
	}

	// Transaction is the canonical entity derived from a MappedRow plus
	// the persisted override maps. It is a projection, never a source of
	// truth: re-deriving from the same inputs yields the same value.
	Transaction struct {
		ID         uint32          `json:"id"`
		Date       string          `json:"date"`
		Text       string          `json:"text"`
		From       string          `json:"from"`
		To         string          `json:"to"`
		FromLabel  string          `json:"fromLabel"`
		ToLabel    string          `json:"toLabel"`
		Amount     decimal.Decimal `json:"amount"`
		Type       TransactionType `json:"type"`
		IsTransfer bool            `json:"isTransfer"`
		Category   string          `json:"category"`
		Envelope   Envelope        `json:"envelope"`

		Linked        []Link   `json:"linked,omitempty"`
		GuessedLinked []uint32 `json:"guessedLinked,omitempty"`

		// AmountAfterRefund is Amount netted against refund-linked
		// counterparts. Equals Amount when no refund link exists.
		AmountAfterRefund decimal.Decimal `json:"amountAfterRefund"`
	}

	// BudgetPost is a named monthly budget target.
	BudgetPost struct {
		Title  string          `json:"title"`
		Amount decimal.Decimal `json:"amount"`
	}

	// CSVFile is a persisted bank export, stored verbatim.
	CSVFile struct {
		Name    string `json:"name"`
		Content string `json:"content"`
	}

	// ExclusionRule drops rows of one account whose text contains any of
	// the listed substrings (case-insensitive).
	ExclusionRule struct {
		Account    string   `json:"account"`
		Substrings []string `json:"substrings"`
	}
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidEnvelope   = errors.New("invalid envelope")
	ErrInvalidLinkType   = errors.New("invalid link type")
	ErrInvalidType       = errors.New("invalid transaction type")
	ErrEmptyTitle        = errors.New("empty budget post title")
	ErrIncompleteMapping = errors.New("incomplete column mapping")
	ErrUnknownColumn     = errors.New("mapping references unknown column")
)

// ParseTransactionType validates a user-supplied type string.
func ParseTransactionType(s string) (TransactionType, error) {
	switch t := TransactionType(strings.TrimSpace(s)); t {
	case TypeIncome, TypeExpense, TypeTransfer, TypeRefund, TypeUnknown:
		return t, nil
	default:
		return "", ErrInvalidType
	}
}

// ParseLinkType validates a user-supplied link type, defaulting empty
// input to LinkUnknown.
func ParseLinkType(s string) (LinkType, error) {
	switch t := LinkType(strings.TrimSpace(s)); t {
	case LinkRefund, LinkTransfer, LinkUnknown:
		return t, nil
	case "":
		return LinkUnknown, nil
	default:
		return "", ErrInvalidLinkType
	}
}

func (p BudgetPost) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return ErrEmptyTitle
	}
	return nil
}

// File returns the row's origin filename, if any.
func (r RawRow) File() string {
	return r[FileField]
}

// Columns returns the row's column names excluding reserved fields,
// in unspecified order.
func (r RawRow) Columns() []string {
	cols := make([]string, 0, len(r))
	for k := range r {
		if strings.HasPrefix(k, ReservedPrefix) {
			continue
		}
		cols = append(cols, k)
	}
	return cols
}

// CategoryOrUnassigned maps an absent or empty category to the
// Unassigned sentinel.
func CategoryOrUnassigned(category string) string {
	if strings.TrimSpace(category) == "" {
		return UnassignedCategory
	}
	return category
}
