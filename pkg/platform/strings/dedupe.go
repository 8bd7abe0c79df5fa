// Package strings holds list helpers used when reading configuration and
// token claims.
package strings

import (
	"strings"
)

// DedupeAndTrim trims each element and drops blanks and repeats, keeping the
// first occurrence order.
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; !ok {
			seen[trimmed] = struct{}{}
			result = append(result, trimmed)
		}
	}
	return result
}

// SplitList splits a comma-separated value such as a broker list or a role
// set. A blank input yields nil.
func SplitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return DedupeAndTrim(strings.Split(raw, ","))
}
