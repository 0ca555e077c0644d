package service

import (
	"context"
	"testing"

	"github.com/yourorg/hrstage/internal/domain"
	"github.com/yourorg/hrstage/internal/repository"
)

func newStatusFixture(t *testing.T) (*StatusService, *repository.ConfigRepository) {
	t.Helper()
	repo := repository.NewConfigRepository(t.TempDir(), 0, nil)
	return NewStatusService(repo, nil), repo
}

func TestReportUnconfigured(t *testing.T) {
	s, _ := newStatusFixture(t)

	report, err := s.Report(context.Background(), domain.SubsystemFoundation)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if report.Verdict != "unconfigured" {
		t.Fatalf("expected unconfigured, got %q", report.Verdict)
	}
	if report.ConfiguredCount != 0 {
		t.Fatalf("expected 0 configured, got %d", report.ConfiguredCount)
	}
	if len(report.Categories) != report.ExpectedCount {
		t.Fatalf("expected one row per expected category")
	}
}

func TestReportPartialAndComplete(t *testing.T) {
	s, repo := newStatusFixture(t)
	ctx := context.Background()

	expected := domain.SubsystemFoundation.ExpectedCategories()
	repo.Save(ctx, domain.SubsystemFoundation, expected[0], map[string]any{"x": 1})

	report, err := s.Report(ctx, domain.SubsystemFoundation)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if report.Verdict != "partial" {
		t.Fatalf("expected partial, got %q", report.Verdict)
	}

	for _, category := range expected[1:] {
		repo.Save(ctx, domain.SubsystemFoundation, category, map[string]any{"x": 1})
	}
	report, err = s.Report(ctx, domain.SubsystemFoundation)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if report.Verdict != "complete" {
		t.Fatalf("expected complete, got %q", report.Verdict)
	}
	if report.ConfiguredCount != report.ExpectedCount {
		t.Fatalf("counts should match when complete")
	}
}

func TestReportExtraCategories(t *testing.T) {
	s, repo := newStatusFixture(t)
	ctx := context.Background()

	repo.Save(ctx, domain.SubsystemEmployee, "custom_mapping", map[string]any{"x": 1})

	report, err := s.Report(ctx, domain.SubsystemEmployee)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if len(report.ExtraCategories) != 1 || report.ExtraCategories[0] != "custom_mapping" {
		t.Fatalf("expected custom_mapping as extra, got %v", report.ExtraCategories)
	}
}

func TestReportPayrollWageTypeSeed(t *testing.T) {
	s, repo := newStatusFixture(t)
	ctx := context.Background()

	report, err := s.Report(ctx, domain.SubsystemPayroll)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if report.Defaults == nil || report.Defaults["wage_types"] == nil {
		t.Fatalf("unconfigured payroll should offer the wage-type seed")
	}

	repo.Save(ctx, domain.SubsystemPayroll, "wage_types", map[string]any{"1000": "custom"})
	report, err = s.Report(ctx, domain.SubsystemPayroll)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if report.Defaults != nil {
		t.Fatalf("configured wage_types must suppress the seed")
	}
}
