package service

import (
	"context"
	"log/slog"
	"sort"

	"github.com/yourorg/hrstage/internal/domain"
	"github.com/yourorg/hrstage/internal/registry"
)

// CategoryStatus reports whether one expected category is configured.
type CategoryStatus struct {
	Name       string `json:"name"`
	Configured bool   `json:"configured"`
}

// StatusReport is the configuration dashboard for one subsystem.
type StatusReport struct {
	Subsystem       domain.SubsystemID `json:"subsystem"`
	DisplayName     string             `json:"displayName"`
	Categories      []CategoryStatus   `json:"categories"`
	ExtraCategories []string           `json:"extraCategories"`
	ConfiguredCount int                `json:"configuredCount"`
	ExpectedCount   int                `json:"expectedCount"`
	Verdict         string             `json:"verdict"`
	Defaults        map[string]any     `json:"defaults,omitempty"`
}

// StatusService derives configuration status reports from the config store.
type StatusService struct {
	store  domain.ConfigStore
	logger *slog.Logger
}

// NewStatusService creates a new status service
func NewStatusService(store domain.ConfigStore, logger *slog.Logger) *StatusService {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatusService{store: store, logger: logger}
}

// Report builds the status report for a subsystem. The verdict is complete
// when every expected category is configured, partial when some are, and
// unconfigured when none are (the subsystem runs on defaults).
func (s *StatusService) Report(ctx context.Context, subsystem domain.SubsystemID) (*StatusReport, error) {
	stored, err := s.store.ListCategories(ctx, subsystem)
	if err != nil {
		return nil, err
	}

	storedSet := map[string]bool{}
	for _, category := range stored {
		storedSet[category] = true
	}

	report := &StatusReport{
		Subsystem:   subsystem,
		DisplayName: subsystem.DisplayName(),
	}

	expected := subsystem.ExpectedCategories()
	report.ExpectedCount = len(expected)
	expectedSet := map[string]bool{}
	for _, category := range expected {
		expectedSet[category] = true
		configured := storedSet[category]
		if configured {
			report.ConfiguredCount++
		}
		report.Categories = append(report.Categories, CategoryStatus{Name: category, Configured: configured})
	}

	for _, category := range stored {
		if !expectedSet[category] {
			report.ExtraCategories = append(report.ExtraCategories, category)
		}
	}
	sort.Strings(report.ExtraCategories)

	switch {
	case report.ConfiguredCount == report.ExpectedCount && report.ExpectedCount > 0:
		report.Verdict = "complete"
	case report.ConfiguredCount > 0:
		report.Verdict = "partial"
	default:
		report.Verdict = "unconfigured"
	}

	// Offer the wage-type seed so admin screens can prefill the mapping
	// table before payroll is first configured.
	if subsystem == domain.SubsystemPayroll && !storedSet["wage_types"] {
		report.Defaults = map[string]any{"wage_types": registry.DefaultWageTypes()}
	}

	return report, nil
}
