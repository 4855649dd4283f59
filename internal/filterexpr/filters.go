package filterexpr

import (
	"kuvert/internal/core"
)

// CompileAll parses a stored filter list. Broken expressions are
// reported per filter and skipped; the rest keep working. One bad filter
// never disables filtering as a whole, and never touches the stored
// list.
func CompileAll(sources []string) ([]*Filter, []error) {
	var (
		filters []*Filter
		errs    []error
	)
	for _, src := range sources {
		f, err := Parse(src)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		filters = append(filters, f)
	}
	return filters, errs
}

// Excluded reports whether any filter matches the row. A filter whose
// evaluation fails on this row is ignored for this row, consistent with
// the per-filter isolation policy.
func Excluded(filters []*Filter, m core.MappedRow) bool {
	if len(filters) == 0 {
		return false
	}
	env := EnvOf(m)
	for _, f := range filters {
		match, err := f.Match(env)
		if err != nil {
			continue
		}
		if match {
			return true
		}
	}
	return false
}
