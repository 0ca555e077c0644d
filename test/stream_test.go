package test

import (
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type sessionFrame struct {
	SessionID string          `json:"sessionId"`
	Active    map[string]bool `json:"active"`
}

func TestSessionStream(t *testing.T) {
	server := NewTestServer(t, nil)

	// Establish the session cookie first, then dial with it so the stream
	// watches the same session the HTTP client authenticates.
	server.DoJSON(t, "GET", "/api/sessions", nil)

	base, err := url.Parse(server.URL())
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	header := http.Header{}
	for _, cookie := range server.Client.Jar.Cookies(base) {
		header.Add("Cookie", cookie.String())
	}

	wsURL := "ws" + strings.TrimPrefix(server.URL(), "http") + "/ws/sessions"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Initial snapshot: nothing active yet
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var snapshot sessionFrame
	if err := conn.ReadJSON(&snapshot); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if snapshot.Active["payroll"] {
		t.Fatalf("fresh session should have no active subsystems: %v", snapshot.Active)
	}

	server.Login(t, "payroll", "admin123")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var update sessionFrame
	if err := conn.ReadJSON(&update); err != nil {
		t.Fatalf("read update: %v", err)
	}
	if update.SessionID != snapshot.SessionID {
		t.Fatalf("update is for another session: %q vs %q", update.SessionID, snapshot.SessionID)
	}
	if !update.Active["payroll"] {
		t.Fatalf("expected payroll active in update: %v", update.Active)
	}
}
