// Package services – curriculum position parsing.
package services

import (
	"fmt"
	"strconv"
	"strings"
)

// Position is a 1-based curriculum coordinate addressing one slide.
type Position struct {
	Stage     int
	Module    int
	Submodule int
	Slide     int
}

// ParsePosition parses "stage.module.submodule.slide" (e.g. "1.2.1.3").
// All four components are required and must be >= 1.
func ParsePosition(s string) (Position, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != 4 {
		return Position{}, fmt.Errorf("%w: %q, want stage.module.submodule.slide", ErrBadPosition, s)
	}
	vals := make([]int, 4)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 {
			return Position{}, fmt.Errorf("%w: %q, component %d must be a positive integer", ErrBadPosition, s, i+1)
		}
		vals[i] = n
	}
	return Position{Stage: vals[0], Module: vals[1], Submodule: vals[2], Slide: vals[3]}, nil
}

// Key returns the canonical path key stored on slides.
func (p Position) Key() string {
	return fmt.Sprintf("%d.%d.%d.%d", p.Stage, p.Module, p.Submodule, p.Slide)
}

// String implements fmt.Stringer.
func (p Position) String() string { return p.Key() }
