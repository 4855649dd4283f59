package classify

import (
	"time"
)

// dateLayouts are the candidate layouts tried by the per-batch format
// detection, in preference order. Day-first layouts come first since
// most European bank exports use them.
var dateLayouts = []string{
	"02-01-2006",
	"2006-01-02",
	"02.01.2006",
	"02/01/2006",
	"01/02/2006",
	"2006/01/02",
}

// detectSampleSize caps how many rows the detection heuristic inspects.
const detectSampleSize = 64

// DateParses reports whether any candidate layout parses the string.
func DateParses(date string) bool {
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, date); err == nil {
			return true
		}
	}
	return false
}

// DetectDateLayout picks the layout that parses the most sampled date
// strings. Earlier candidates win ties. An empty or fully unparseable
// sample falls back to the first candidate.
func DetectDateLayout(dates []string) string {
	if len(dates) > detectSampleSize {
		dates = dates[:detectSampleSize]
	}
	best, bestHits := dateLayouts[0], 0
	for _, layout := range dateLayouts {
		hits := 0
		for _, d := range dates {
			if d == "" {
				continue
			}
			if _, err := time.Parse(layout, d); err == nil {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = layout, hits
		}
	}
	return best
}
