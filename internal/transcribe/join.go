package transcribe

import "strings"

// Join concatenates segment texts in index order with single spaces.
// Empty and whitespace-only results are skipped so a silent segment does
// not leave a doubled separator.
func Join(results []string) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		if t := strings.TrimSpace(r); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// JoinVerbatim concatenates segment texts with a space between every pair,
// empty results included. Kept for comparison with the legacy service output.
func JoinVerbatim(results []string) string {
	return strings.Join(results, " ")
}
