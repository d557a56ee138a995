// Package utils provides small helpers shared across layers, currently
// query-parameter parsing for paginated listings such as a slide's
// conversation turns.
package utils

import "strconv"

// AtoiDefault converts a string to an int using strconv.Atoi. If the string
// is empty or not an integer it returns the provided default, so handlers
// can parse "page" and "page_size" without per-parameter error plumbing.
//
// Example:
//
//	page := utils.AtoiDefault(c.Query("page"), 1)
//	size := utils.AtoiDefault(c.Query("page_size"), 20)
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}
