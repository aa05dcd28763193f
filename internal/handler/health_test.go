package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestHealthz(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := NewHealthHandler(newTestService(testConfig()), "test")
	if err := h.Healthz(c); err != nil {
		t.Fatalf("Healthz() error = %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %q, want %q", body["status"], "ok")
	}
}

func TestStatus(t *testing.T) {
	tests := []struct {
		name             string
		allowed          []string
		wantCount        int
		wantUnrestricted bool
	}{
		{"restricted", []string{"example.com", "*.example.org"}, 2, false},
		{"unrestricted", nil, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/proxy/status", http.NoBody)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			h := NewHealthHandler(newTestService(testConfig(tt.allowed...)), "1.2.3")
			if err := h.Status(c); err != nil {
				t.Fatalf("Status() error = %v", err)
			}

			if rec.Code != http.StatusOK {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
			}

			var body statusResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if body.Status != "ok" {
				t.Errorf("body.status = %q, want %q", body.Status, "ok")
			}
			if body.Version != "1.2.3" {
				t.Errorf("body.version = %q, want %q", body.Version, "1.2.3")
			}
			if body.AllowedDomains != tt.wantCount {
				t.Errorf("body.allowed_domains = %d, want %d", body.AllowedDomains, tt.wantCount)
			}
			if body.Unrestricted != tt.wantUnrestricted {
				t.Errorf("body.unrestricted = %v, want %v", body.Unrestricted, tt.wantUnrestricted)
			}
		})
	}
}
