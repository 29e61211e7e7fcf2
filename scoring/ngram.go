package scoring

import "strings"

// gramSep joins n-gram members into a map key.
const gramSep = "\x1f"

// NGrams returns every contiguous window of length n, or nil when there are
// fewer than n tokens.
func NGrams(tokens []string, n int) [][]string {
	if n <= 0 || len(tokens) < n {
		return nil
	}
	grams := make([][]string, 0, len(tokens)-n+1)
	for i := 0; i+n <= len(tokens); i++ {
		grams = append(grams, tokens[i:i+n])
	}
	return grams
}

// NGramPrecision counts hypothesis n-grams that match the reference. Each
// reference n-gram can be matched once: repeating a rare reference phrase in
// the hypothesis earns no extra credit.
func NGramPrecision(hypothesis, reference []string, n int) int {
	remaining := make(map[string]int)
	for _, g := range NGrams(reference, n) {
		remaining[strings.Join(g, gramSep)]++
	}

	matches := 0
	for _, g := range NGrams(hypothesis, n) {
		key := strings.Join(g, gramSep)
		if remaining[key] > 0 {
			remaining[key]--
			matches++
		}
	}
	return matches
}

// Precision is the matched and total hypothesis n-gram counts for one order.
// Total is len(hypothesis) - (Order - 1) and goes to zero or below when the
// hypothesis is shorter than the order.
type Precision struct {
	Order int
	Match int
	Total int
}

// Value returns Match/Total, or 0 when Total <= 0.
func (p Precision) Value() float64 {
	if p.Total <= 0 {
		return 0
	}
	return float64(p.Match) / float64(p.Total)
}

// NGramPrecisions returns the precision for orders 1..maxN, in order.
func NGramPrecisions(maxN int, hypothesis, reference []string) []Precision {
	out := make([]Precision, 0, maxN)
	for order := 1; order <= maxN; order++ {
		out = append(out, Precision{
			Order: order,
			Match: NGramPrecision(hypothesis, reference, order),
			Total: len(hypothesis) - (order - 1),
		})
	}
	return out
}
