package repository

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/yourorg/hrstage/internal/domain"
)

func newTestRepo(t *testing.T) (*ConfigRepository, string) {
	t.Helper()
	dir := t.TempDir()
	return NewConfigRepository(dir, 0, nil), dir
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	repo, dir := newTestRepo(t)
	ctx := context.Background()

	doc := map[string]any{
		"pay_frequency": "monthly",
		"currency":      "EUR",
	}
	if err := repo.Save(ctx, domain.SubsystemPayroll, "processing_settings", doc); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, found, err := repo.Load(ctx, domain.SubsystemPayroll, "processing_settings")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !found {
		t.Fatalf("document should be found after save")
	}
	if !reflect.DeepEqual(got, map[string]any{"pay_frequency": "monthly", "currency": "EUR"}) {
		t.Fatalf("unexpected document: %#v", got)
	}

	// Files land at <dataDir>/<subsystem>_configs/<category>_config.json
	path := filepath.Join(dir, "payroll_configs", "processing_settings_config.json")
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected file at %s: %v", path, err)
	}
	// Stored with two-space indentation
	if string(raw[:4]) != "{\n  " {
		t.Fatalf("expected indented JSON, got %q", string(raw[:4]))
	}
}

func TestLoadAbsentCategory(t *testing.T) {
	repo, _ := newTestRepo(t)

	doc, found, err := repo.Load(context.Background(), domain.SubsystemEmployee, "defaults")
	if err != nil {
		t.Fatalf("absent category must not error: %v", err)
	}
	if found || doc != nil {
		t.Fatalf("absent category must read as not found, got found=%v doc=%#v", found, doc)
	}
}

func TestLoadCorruptDocument(t *testing.T) {
	repo, dir := newTestRepo(t)

	subDir := filepath.Join(dir, "foundation_configs")
	if err := os.MkdirAll(subDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(subDir, "hierarchy_rules_config.json"), []byte("{broken"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, _, err := repo.Load(context.Background(), domain.SubsystemFoundation, "hierarchy_rules")
	if !errors.Is(err, domain.ErrCorruptDocument) {
		t.Fatalf("expected ErrCorruptDocument, got %v", err)
	}
}

func TestSaveReplacesWholeDocument(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	repo.Save(ctx, domain.SubsystemEmployee, "defaults", map[string]any{"a": "1", "b": "2"})
	repo.Save(ctx, domain.SubsystemEmployee, "defaults", map[string]any{"c": "3"})

	got, _, err := repo.Load(ctx, domain.SubsystemEmployee, "defaults")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(got, map[string]any{"c": "3"}) {
		t.Fatalf("save must replace, not merge: %#v", got)
	}
}

func TestListCategories(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	// Never-written subsystem lists as empty, not an error
	categories, err := repo.ListCategories(ctx, domain.SubsystemPayroll)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(categories) != 0 {
		t.Fatalf("expected no categories, got %v", categories)
	}

	repo.Save(ctx, domain.SubsystemPayroll, "wage_types", map[string]any{})
	repo.Save(ctx, domain.SubsystemPayroll, "calculation_rules", map[string]any{})

	categories, err = repo.ListCategories(ctx, domain.SubsystemPayroll)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !reflect.DeepEqual(categories, []string{"calculation_rules", "wage_types"}) {
		t.Fatalf("expected sorted categories, got %v", categories)
	}
}

func TestInvalidCategoryNames(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	for _, name := range []string{"", "a/b", `a\b`, "../escape", " padded "} {
		err := repo.Save(ctx, domain.SubsystemEmployee, name, map[string]any{})
		if !errors.Is(err, domain.ErrInvalidCategory) {
			t.Fatalf("category %q: expected ErrInvalidCategory, got %v", name, err)
		}
	}
}

func TestUnknownSubsystemRejected(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	if err := repo.Save(ctx, domain.SubsystemID("timekeeping"), "defaults", map[string]any{}); !errors.Is(err, domain.ErrUnknownSubsystem) {
		t.Fatalf("expected ErrUnknownSubsystem, got %v", err)
	}
	if _, err := repo.ListCategories(ctx, domain.SubsystemID("")); !errors.Is(err, domain.ErrUnknownSubsystem) {
		t.Fatalf("expected ErrUnknownSubsystem, got %v", err)
	}
}

func TestDeleteAll(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	repo.Save(ctx, domain.SubsystemFoundation, "hierarchy_rules", map[string]any{"x": true})
	repo.Save(ctx, domain.SubsystemFoundation, "validation_rules", map[string]any{"y": true})
	// Another subsystem's data must survive
	repo.Save(ctx, domain.SubsystemPayroll, "wage_types", map[string]any{"z": true})

	if err := repo.DeleteAll(ctx, domain.SubsystemFoundation); err != nil {
		t.Fatalf("delete all: %v", err)
	}

	categories, _ := repo.ListCategories(ctx, domain.SubsystemFoundation)
	if len(categories) != 0 {
		t.Fatalf("foundation configs should be gone, got %v", categories)
	}
	if _, found, _ := repo.Load(ctx, domain.SubsystemPayroll, "wage_types"); !found {
		t.Fatalf("payroll configs must be untouched")
	}

	// Deleting an already-empty subsystem is fine
	if err := repo.DeleteAll(ctx, domain.SubsystemFoundation); err != nil {
		t.Fatalf("repeat delete all: %v", err)
	}
}

func TestBackupBundleShape(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	repo.Save(ctx, domain.SubsystemPayroll, "wage_types", map[string]any{"1000": "base"})
	repo.Save(ctx, domain.SubsystemPayroll, "tax_settings", map[string]any{"rate": "0.2"})

	bundle, err := repo.Backup(ctx, domain.SubsystemPayroll)
	if err != nil {
		t.Fatalf("backup: %v", err)
	}

	if ts, ok := bundle[domain.BundleTimestampKey].(string); !ok || ts == "" {
		t.Fatalf("bundle must carry a timestamp, got %#v", bundle[domain.BundleTimestampKey])
	}
	if system, ok := bundle.System(); !ok || system != domain.SubsystemPayroll {
		t.Fatalf("bundle must carry its source subsystem, got %v", system)
	}
	if len(bundle.Categories()) != 2 {
		t.Fatalf("expected 2 categories in bundle, got %v", bundle.Categories())
	}

	// The bundle itself round-trips as plain JSON
	raw, err := json.Marshal(bundle)
	if err != nil {
		t.Fatalf("bundle marshal: %v", err)
	}
	var decoded domain.Bundle
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("bundle unmarshal: %v", err)
	}
}

func TestRestoreSkipsReservedKeys(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	bundle := domain.Bundle{
		domain.BundleTimestampKey: "2026-08-29T10:00:00Z",
		domain.BundleSystemKey:    "payroll",
		"wage_types":              map[string]any{"1000": "base"},
		"empty_entry":             nil,
	}
	if err := repo.Restore(ctx, domain.SubsystemPayroll, bundle); err != nil {
		t.Fatalf("restore: %v", err)
	}

	categories, _ := repo.ListCategories(ctx, domain.SubsystemPayroll)
	if !reflect.DeepEqual(categories, []string{"wage_types"}) {
		t.Fatalf("reserved and nil entries must not become categories, got %v", categories)
	}
}

func TestRestoreCrossSubsystemAllowed(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	bundle := domain.Bundle{
		domain.BundleSystemKey: "employee",
		"defaults":             map[string]any{"company_code": "1000"},
	}
	// Mismatched source is a warning, never a failure
	if err := repo.Restore(ctx, domain.SubsystemPayroll, bundle); err != nil {
		t.Fatalf("cross-subsystem restore should succeed: %v", err)
	}
	if _, found, _ := repo.Load(ctx, domain.SubsystemPayroll, "defaults"); !found {
		t.Fatalf("restored entry missing")
	}
}

func TestRestorePartialFailure(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	bundle := domain.Bundle{
		"good_one": map[string]any{"a": "1"},
		"bad/name": map[string]any{"b": "2"},
		"good_two": map[string]any{"c": "3"},
		"also/bad": map[string]any{"d": "4"},
	}

	err := repo.Restore(ctx, domain.SubsystemEmployee, bundle)
	var partial *domain.PartialRestoreError
	if !errors.As(err, &partial) {
		t.Fatalf("expected PartialRestoreError, got %v", err)
	}
	if !reflect.DeepEqual(partial.FailedCategories(), []string{"also/bad", "bad/name"}) {
		t.Fatalf("unexpected failed categories: %v", partial.FailedCategories())
	}

	// The good entries still committed
	categories, _ := repo.ListCategories(ctx, domain.SubsystemEmployee)
	if !reflect.DeepEqual(categories, []string{"good_one", "good_two"}) {
		t.Fatalf("good entries should commit despite failures, got %v", categories)
	}
}

func TestBackupRestoreCycle(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	original := map[string]any{"grades": []any{"A", "B"}}
	repo.Save(ctx, domain.SubsystemFoundation, "validation_rules", original)

	bundle, err := repo.Backup(ctx, domain.SubsystemFoundation)
	if err != nil {
		t.Fatalf("backup: %v", err)
	}
	if err := repo.DeleteAll(ctx, domain.SubsystemFoundation); err != nil {
		t.Fatalf("delete all: %v", err)
	}
	if err := repo.Restore(ctx, domain.SubsystemFoundation, bundle); err != nil {
		t.Fatalf("restore: %v", err)
	}

	got, found, err := repo.Load(ctx, domain.SubsystemFoundation, "validation_rules")
	if err != nil || !found {
		t.Fatalf("load after restore: found=%v err=%v", found, err)
	}
	if !reflect.DeepEqual(got, original) {
		t.Fatalf("restored document differs: %#v", got)
	}
}
