// Package tokens provides the cost estimator used to rank providers.
// The estimate only needs to be proportional to request size, so a
// bytes/4 heuristic is deliberate: no tokenizer dependency, O(n), and
// stable across vendors.
package tokens

// Estimate approximates the token count of text. Empty input estimates
// to 0; any non-empty input estimates to at least 1.
func Estimate(text string) int {
	if len(text) == 0 {
		return 0
	}
	n := (len(text) + 3) / 4
	if n < 1 {
		n = 1
	}
	return n
}

// EstimateCost converts an estimated token count into a price using a
// per-1000-token rate.
func EstimateCost(tokenCount int, costPer1K float64) float64 {
	return float64(tokenCount) / 1000.0 * costPer1K
}
