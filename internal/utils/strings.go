// Package utils holds small helpers shared by HTTP handlers and jobs.
package utils

import "strings"

// ParseCSV splits a comma-separated list such as a ?funds= query value and
// returns the trimmed, non-empty items in order. Returns nil when nothing remains.
func ParseCSV(s string) []string {
	var result []string
	for _, v := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
