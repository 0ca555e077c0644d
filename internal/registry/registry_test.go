package registry

import (
	"testing"

	"github.com/yourorg/hrstage/internal/domain"
)

func TestAllSubsystemsEnabledByDefault(t *testing.T) {
	r := New(nil)

	entries := r.Entries()
	if len(entries) != len(domain.AllSubsystems()) {
		t.Fatalf("expected %d entries, got %d", len(domain.AllSubsystems()), len(entries))
	}
	for _, entry := range entries {
		if !entry.Enabled {
			t.Fatalf("subsystem %s should default to enabled", entry.ID)
		}
		if entry.DisplayName == "" || len(entry.ExpectedCategories) == 0 {
			t.Fatalf("subsystem %s entry incomplete: %+v", entry.ID, entry)
		}
	}
}

func TestFeatureFlagDisablesSubsystem(t *testing.T) {
	t.Setenv("FLAG_PAYROLL", "off")
	r := New(nil)

	if r.Available(domain.SubsystemPayroll) {
		t.Fatalf("payroll should be unavailable when flagged off")
	}
	if !r.Available(domain.SubsystemEmployee) {
		t.Fatalf("other subsystems must stay available")
	}

	// Disabled panels still appear in the listing, marked disabled
	entry, ok := r.Lookup(domain.SubsystemPayroll)
	if !ok || entry.Enabled {
		t.Fatalf("disabled subsystem should still be listed: ok=%v entry=%+v", ok, entry)
	}
}

func TestAvailableRejectsUnknownID(t *testing.T) {
	r := New(nil)
	if r.Available(domain.SubsystemID("timekeeping")) {
		t.Fatalf("unknown subsystem must not be available")
	}
}

func TestDefaultWageTypesShape(t *testing.T) {
	seed := DefaultWageTypes()
	if len(seed) != 10 {
		t.Fatalf("expected 10 seed wage types, got %d", len(seed))
	}
	base, ok := seed["1000"].(map[string]any)
	if !ok || base["name"] != "Basic Pay" || base["taxable"] != true {
		t.Fatalf("unexpected 1000 entry: %#v", seed["1000"])
	}
}
