package test

import (
	"net/http"
	"testing"
)

func TestHealthEndpoint(t *testing.T) {
	server := NewTestServer(t, nil)

	resp, result := server.DoJSON(t, "GET", "/healthz", nil)
	AssertStatusCode(t, resp, http.StatusOK)
	if result["status"] != "ok" {
		t.Errorf("expected ok, got %v", result["status"])
	}
}

func TestReadinessEndpoint(t *testing.T) {
	server := NewTestServer(t, nil)

	resp, result := server.DoJSON(t, "GET", "/readyz", nil)
	AssertStatusCode(t, resp, http.StatusOK)
	if result["status"] != "ready" {
		t.Errorf("expected ready, got %v", result)
	}
}

func TestSubsystemListing(t *testing.T) {
	server := NewTestServer(t, nil)

	resp, result := server.DoJSON(t, "GET", "/api/subsystems", nil)
	AssertStatusCode(t, resp, http.StatusOK)

	subsystems, _ := result["subsystems"].([]interface{})
	if len(subsystems) != 3 {
		t.Fatalf("expected 3 subsystems, got %v", result)
	}
}

func TestProtectedRouteDemandsLogin(t *testing.T) {
	server := NewTestServer(t, nil)

	resp, result := server.DoJSON(t, "GET", "/api/subsystems/payroll/config", nil)
	AssertStatusCode(t, resp, http.StatusUnauthorized)

	// The prompt names where to authenticate instead of just failing
	if result["loginUrl"] != "/api/subsystems/payroll/login" {
		t.Errorf("expected login url in prompt, got %v", result)
	}
	if result["displayName"] != "Payroll Data Management" {
		t.Errorf("expected display name in prompt, got %v", result)
	}
}

func TestLoginFlow(t *testing.T) {
	server := NewTestServer(t, map[string]string{"PAYROLL_ADMIN_PASSWORD": "pay-pw"})

	// Wrong password is an inline 401, not a lockout
	resp, result := server.DoJSON(t, "POST", "/api/subsystems/payroll/login", map[string]string{"password": "nope"})
	AssertStatusCode(t, resp, http.StatusUnauthorized)
	if result["error"] != "invalid password" {
		t.Errorf("expected invalid password message, got %v", result)
	}

	resp, _ = server.DoJSON(t, "POST", "/api/subsystems/payroll/login", map[string]string{"password": "pay-pw"})
	AssertStatusCode(t, resp, http.StatusOK)
	if got := resp.Header.Get("X-Admin-Subsystem"); got != "payroll" {
		t.Errorf("expected admin marker header, got %q", got)
	}

	// The gate now admits protected operations for payroll only
	resp, _ = server.DoJSON(t, "GET", "/api/subsystems/payroll/config", nil)
	AssertStatusCode(t, resp, http.StatusOK)
	resp, _ = server.DoJSON(t, "GET", "/api/subsystems/employee/config", nil)
	AssertStatusCode(t, resp, http.StatusUnauthorized)
}

func TestDefaultPasswordWhenUnconfigured(t *testing.T) {
	server := NewTestServer(t, nil)
	server.Login(t, "employee", "admin123")
}

func TestMasterPasswordFallback(t *testing.T) {
	server := NewTestServer(t, map[string]string{
		"MASTER_ADMIN_PASSWORD":  "master-pw",
		"PAYROLL_ADMIN_PASSWORD": "pay-pw",
	})

	// Foundation has no specific password, so the master one applies
	server.Login(t, "foundation", "master-pw")

	// Payroll's own password shadows the master one
	resp, _ := server.DoJSON(t, "POST", "/api/subsystems/payroll/login", map[string]string{"password": "master-pw"})
	AssertStatusCode(t, resp, http.StatusUnauthorized)
	server.Login(t, "payroll", "pay-pw")
}

func TestUnknownSubsystemIs404(t *testing.T) {
	server := NewTestServer(t, nil)

	resp, _ := server.DoJSON(t, "POST", "/api/subsystems/timekeeping/login", map[string]string{"password": "admin123"})
	AssertStatusCode(t, resp, http.StatusNotFound)
}

func TestConfigSaveAndReload(t *testing.T) {
	server := NewTestServer(t, nil)
	server.Login(t, "payroll", "admin123")

	doc := map[string]any{"pay_frequency": "monthly", "retro_limit": float64(3)}
	resp, _ := server.DoJSON(t, "PUT", "/api/subsystems/payroll/config/processing_settings", doc)
	AssertStatusCode(t, resp, http.StatusOK)

	resp, result := server.DoJSON(t, "GET", "/api/subsystems/payroll/config/processing_settings", nil)
	AssertStatusCode(t, resp, http.StatusOK)
	config, _ := result["config"].(map[string]any)
	if config["pay_frequency"] != "monthly" {
		t.Fatalf("unexpected document: %v", result)
	}

	// Absent category is a distinct 404 with its own code
	resp, result = server.DoJSON(t, "GET", "/api/subsystems/payroll/config/never_saved", nil)
	AssertStatusCode(t, resp, http.StatusNotFound)
	if result["code"] != "not_configured" {
		t.Errorf("expected not_configured code, got %v", result)
	}
}

func TestStatusReport(t *testing.T) {
	server := NewTestServer(t, nil)
	server.Login(t, "payroll", "admin123")

	resp, result := server.DoJSON(t, "GET", "/api/subsystems/payroll/status", nil)
	AssertStatusCode(t, resp, http.StatusOK)
	if result["verdict"] != "unconfigured" {
		t.Errorf("expected unconfigured verdict, got %v", result["verdict"])
	}
	defaults, _ := result["defaults"].(map[string]any)
	if defaults["wage_types"] == nil {
		t.Errorf("expected wage-type seed for unconfigured payroll")
	}

	server.DoJSON(t, "PUT", "/api/subsystems/payroll/config/wage_types", map[string]any{"1000": "base"})
	resp, result = server.DoJSON(t, "GET", "/api/subsystems/payroll/status", nil)
	AssertStatusCode(t, resp, http.StatusOK)
	if result["verdict"] != "partial" {
		t.Errorf("expected partial verdict, got %v", result["verdict"])
	}
}

func TestBackupRestoreRoundTrip(t *testing.T) {
	server := NewTestServer(t, nil)
	server.Login(t, "foundation", "admin123")

	server.DoJSON(t, "PUT", "/api/subsystems/foundation/config/hierarchy_rules", map[string]any{"levels": float64(4)})

	resp, bundle := server.DoJSON(t, "POST", "/api/subsystems/foundation/backup", nil)
	AssertStatusCode(t, resp, http.StatusOK)
	if bundle["backup_timestamp"] == nil || bundle["system"] != "foundation" {
		t.Fatalf("bundle missing reserved keys: %v", bundle)
	}
	if bundle["hierarchy_rules"] == nil {
		t.Fatalf("bundle missing saved category: %v", bundle)
	}

	// Wipe through the two-step reset, then restore from the bundle
	resp, result := server.DoJSON(t, "POST", "/api/subsystems/foundation/reset", nil)
	AssertStatusCode(t, resp, http.StatusOK)
	token, _ := result["confirmToken"].(string)
	if token == "" || result["confirmRequired"] != true {
		t.Fatalf("expected confirmation step, got %v", result)
	}

	resp, _ = server.DoJSON(t, "POST", "/api/subsystems/foundation/reset", map[string]string{"confirmToken": token})
	AssertStatusCode(t, resp, http.StatusOK)

	resp, result = server.DoJSON(t, "GET", "/api/subsystems/foundation/config", nil)
	categories, _ := result["categories"].([]interface{})
	if len(categories) != 0 {
		t.Fatalf("expected empty config after reset, got %v", categories)
	}

	resp, result = server.DoJSON(t, "POST", "/api/subsystems/foundation/restore", bundle)
	AssertStatusCode(t, resp, http.StatusOK)

	resp, result = server.DoJSON(t, "GET", "/api/subsystems/foundation/config/hierarchy_rules", nil)
	AssertStatusCode(t, resp, http.StatusOK)
	config, _ := result["config"].(map[string]any)
	if config["levels"] != float64(4) {
		t.Fatalf("restored document differs: %v", result)
	}
}

func TestResetRejectsStaleToken(t *testing.T) {
	server := NewTestServer(t, nil)
	server.Login(t, "employee", "admin123")

	resp, _ := server.DoJSON(t, "POST", "/api/subsystems/employee/reset", map[string]string{"confirmToken": "made-up"})
	AssertStatusCode(t, resp, http.StatusConflict)

	// A consumed token cannot be replayed
	_, result := server.DoJSON(t, "POST", "/api/subsystems/employee/reset", nil)
	token, _ := result["confirmToken"].(string)
	resp, _ = server.DoJSON(t, "POST", "/api/subsystems/employee/reset", map[string]string{"confirmToken": token})
	AssertStatusCode(t, resp, http.StatusOK)
	resp, _ = server.DoJSON(t, "POST", "/api/subsystems/employee/reset", map[string]string{"confirmToken": token})
	AssertStatusCode(t, resp, http.StatusConflict)
}

func TestPartialRestoreReportsFailures(t *testing.T) {
	server := NewTestServer(t, nil)
	server.Login(t, "employee", "admin123")

	bundle := map[string]any{
		"defaults":  map[string]any{"company_code": "1000"},
		"bad..name": map[string]any{"x": 1},
	}
	resp, result := server.DoJSON(t, "POST", "/api/subsystems/employee/restore", bundle)
	AssertStatusCode(t, resp, http.StatusMultiStatus)

	failed, _ := result["failedCategories"].([]interface{})
	if len(failed) != 1 || failed[0] != "bad..name" {
		t.Fatalf("expected bad..name to fail, got %v", result)
	}

	// The valid entry still committed
	resp, _ = server.DoJSON(t, "GET", "/api/subsystems/employee/config/defaults", nil)
	AssertStatusCode(t, resp, http.StatusOK)
}

func TestSessionsEndpointAndLogoutAll(t *testing.T) {
	server := NewTestServer(t, nil)
	server.Login(t, "payroll", "admin123")
	server.Login(t, "employee", "admin123")

	resp, result := server.DoJSON(t, "GET", "/api/sessions", nil)
	AssertStatusCode(t, resp, http.StatusOK)
	active, _ := result["active"].(map[string]any)
	if active["payroll"] != true || active["employee"] != true || active["foundation"] != false {
		t.Fatalf("unexpected session state: %v", active)
	}

	resp, result = server.DoJSON(t, "POST", "/api/sessions/logout-all", nil)
	AssertStatusCode(t, resp, http.StatusOK)
	active, _ = result["active"].(map[string]any)
	for subsystem, flag := range active {
		if flag == true {
			t.Fatalf("subsystem %s still active after logout-all", subsystem)
		}
	}
}

func TestLogoutAndSessionResetAlias(t *testing.T) {
	server := NewTestServer(t, nil)
	server.Login(t, "foundation", "admin123")

	resp, _ := server.DoJSON(t, "POST", "/api/subsystems/foundation/logout", nil)
	AssertStatusCode(t, resp, http.StatusOK)
	resp, _ = server.DoJSON(t, "GET", "/api/subsystems/foundation/config", nil)
	AssertStatusCode(t, resp, http.StatusUnauthorized)

	// The session reset affordance behaves like logout and is idempotent
	server.Login(t, "foundation", "admin123")
	resp, _ = server.DoJSON(t, "POST", "/api/subsystems/foundation/session/reset", nil)
	AssertStatusCode(t, resp, http.StatusOK)
	resp, _ = server.DoJSON(t, "POST", "/api/subsystems/foundation/session/reset", nil)
	AssertStatusCode(t, resp, http.StatusOK)
}
