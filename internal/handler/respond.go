package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/yourorg/hrstage/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeLoginPrompt is the API form of the credential prompt: the protected
// operation was skipped, and the client is told where to authenticate.
func writeLoginPrompt(w http.ResponseWriter, subsystem domain.SubsystemID) {
	writeJSON(w, http.StatusUnauthorized, map[string]any{
		"error":       "authentication required",
		"subsystem":   subsystem,
		"displayName": subsystem.DisplayName(),
		"loginUrl":    fmt.Sprintf("/api/subsystems/%s/login", subsystem),
	})
}

// markAdminResponse exposes the logout affordance on responses produced
// behind the gate.
func markAdminResponse(w http.ResponseWriter, subsystem domain.SubsystemID) {
	w.Header().Set("X-Admin-Subsystem", string(subsystem))
	w.Header().Set("X-Logout-Url", fmt.Sprintf("/api/subsystems/%s/logout", subsystem))
}
