package utils

import (
	"strings"

	"golang.org/x/text/cases"
)

// Fold case-folds text for case-insensitive comparisons
func Fold(s string) string {
	return cases.Fold().String(s)
}

// ContainsFold reports whether substr is within s, ignoring case
func ContainsFold(s, substr string) bool {
	return strings.Contains(Fold(s), Fold(substr))
}
