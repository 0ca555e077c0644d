package registry

import (
	"log/slog"

	"github.com/yourorg/hrstage/internal/domain"
	"github.com/yourorg/hrstage/internal/featureflags"
)

// Entry describes one admin panel subsystem as resolved at startup.
type Entry struct {
	ID                 domain.SubsystemID `json:"id"`
	DisplayName        string             `json:"displayName"`
	Enabled            bool               `json:"enabled"`
	ExpectedCategories []string           `json:"expectedCategories"`
}

// Registry is the fixed set of admin subsystems, resolved once at startup
// from the subsystem table and feature flags. Availability is a single
// deterministic discovery step, not repeated speculative probing: a panel
// disabled here stays disabled for the process lifetime.
type Registry struct {
	entries []Entry
	byID    map[domain.SubsystemID]Entry
}

// New resolves the registry. Subsystems default to enabled; FLAG_<NAME>=off
// removes a panel from the suite.
func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	r := &Registry{byID: map[domain.SubsystemID]Entry{}}
	for _, id := range domain.AllSubsystems() {
		entry := Entry{
			ID:                 id,
			DisplayName:        id.DisplayName(),
			Enabled:            featureflags.Enabled(string(id), true),
			ExpectedCategories: id.ExpectedCategories(),
		}
		if !entry.Enabled {
			logger.Info("subsystem disabled by feature flag", slog.String("subsystem", string(id)))
		}
		r.entries = append(r.entries, entry)
		r.byID[id] = entry
	}
	return r
}

// Entries returns every subsystem in stable order, disabled ones included.
func (r *Registry) Entries() []Entry {
	return r.entries
}

// Lookup returns the entry for a subsystem ID.
func (r *Registry) Lookup(id domain.SubsystemID) (Entry, bool) {
	entry, ok := r.byID[id]
	return entry, ok
}

// Available reports whether the ID names a known, enabled subsystem.
func (r *Registry) Available(id domain.SubsystemID) bool {
	entry, ok := r.byID[id]
	return ok && entry.Enabled
}

// DefaultWageTypes is the wage-type seed offered when payroll has no
// wage_types document yet, so admin screens can prefill the mapping table.
// Codes follow the PA0008/PA0014 extract conventions.
func DefaultWageTypes() map[string]any {
	return map[string]any{
		"1000": map[string]any{"name": "Basic Pay", "category": "regular", "taxable": true},
		"1010": map[string]any{"name": "Overtime Pay", "category": "overtime", "taxable": true},
		"1020": map[string]any{"name": "Holiday Pay", "category": "premium", "taxable": true},
		"2000": map[string]any{"name": "Health Insurance", "category": "benefit", "taxable": false},
		"2010": map[string]any{"name": "Retirement Contribution", "category": "benefit", "taxable": false},
		"3000": map[string]any{"name": "Federal Tax", "category": "deduction", "taxable": false},
		"3010": map[string]any{"name": "State Tax", "category": "deduction", "taxable": false},
		"3020": map[string]any{"name": "Social Security", "category": "deduction", "taxable": false},
		"4000": map[string]any{"name": "Bonus", "category": "bonus", "taxable": true},
		"9000": map[string]any{"name": "Other Pay", "category": "other", "taxable": true},
	}
}
