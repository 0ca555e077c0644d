package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrCorruptDocument marks a stored configuration document that exists on
// disk but cannot be deserialized. Callers must report it distinctly from an
// absent document so operators investigate instead of assuming "never
// configured".
var ErrCorruptDocument = errors.New("configuration document is not valid JSON")

// ErrUnknownSubsystem is returned for IDs outside the fixed subsystem set.
var ErrUnknownSubsystem = errors.New("unknown subsystem")

// ErrInvalidCategory is returned for category names that cannot form a safe
// file name (empty, path separators, "..").
var ErrInvalidCategory = errors.New("invalid configuration category name")

// PartialRestoreError reports a best-effort restore in which one or more
// bundle entries failed to save. Every other entry was still committed.
type PartialRestoreError struct {
	Failed map[string]error
}

func (e *PartialRestoreError) Error() string {
	categories := make([]string, 0, len(e.Failed))
	for category := range e.Failed {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	return fmt.Sprintf("restore failed for %d of the bundle entries: %s",
		len(e.Failed), strings.Join(categories, ", "))
}

// FailedCategories returns the categories that could not be restored, sorted.
func (e *PartialRestoreError) FailedCategories() []string {
	categories := make([]string, 0, len(e.Failed))
	for category := range e.Failed {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	return categories
}
