package classify

import (
	"strings"

	"kuvert/internal/core"
)

// guessLinks fills GuessedLinked with candidate counterparts: another
// transaction with the exact opposite amount whose text looks similar or
// which moves money along the same account pair. Guesses are suggestions
// only; promotion into Linked is always an explicit user action
// performed through the link map.
func guessLinks(txs []core.Transaction) {
	// Bucket by absolute amount so only plausible counterparts compare.
	buckets := make(map[string][]int, len(txs))
	for i, tx := range txs {
		if tx.Amount.IsZero() {
			continue
		}
		buckets[tx.Amount.Abs().String()] = append(buckets[tx.Amount.Abs().String()], i)
	}

	for _, bucket := range buckets {
		for _, i := range bucket {
			for _, j := range bucket {
				if i == j {
					continue
				}
				a, b := &txs[i], &txs[j]
				if !a.Amount.Equal(b.Amount.Neg()) {
					continue
				}
				if alreadyLinked(a, b.ID) {
					continue
				}
				if textSimilar(a.Text, b.Text) || sharedCounterAccount(a, b) {
					a.GuessedLinked = append(a.GuessedLinked, b.ID)
				}
			}
		}
	}
}

func alreadyLinked(tx *core.Transaction, id uint32) bool {
	for _, l := range tx.Linked {
		if l.ID == id {
			return true
		}
	}
	return false
}

// sharedCounterAccount reports whether the two transactions move money
// between the same pair of accounts, in either direction.
func sharedCounterAccount(a, b *core.Transaction) bool {
	if a.From == "" && a.To == "" {
		return false
	}
	return (a.From == b.To && a.To == b.From) || (a.From == b.From && a.To == b.To)
}

// textSimilar is a word-overlap heuristic: half of the shorter text's
// words must appear in the longer one. Good enough to pair "REFUND ACME
// STORE" with "ACME STORE", bad matches cost nothing since guesses are
// never authoritative.
func textSimilar(a, b string) bool {
	wa, wb := words(a), words(b)
	if len(wa) == 0 || len(wb) == 0 {
		return false
	}
	if len(wb) < len(wa) {
		wa, wb = wb, wa
	}
	longer := make(map[string]struct{}, len(wb))
	for _, w := range wb {
		longer[w] = struct{}{}
	}
	hits := 0
	for _, w := range wa {
		if _, ok := longer[w]; ok {
			hits++
		}
	}
	return hits*2 >= len(wa)
}

func words(s string) []string {
	return strings.Fields(strings.ToLower(s))
}
