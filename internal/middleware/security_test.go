package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestSecurityHeaders_AddsHeaders(t *testing.T) {
	e := echo.New()
	e.Use(SecurityHeaders())
	e.GET("/test", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if v := rec.Header().Get("X-Content-Type-Options"); v != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want %q", v, "nosniff")
	}
	if v := rec.Header().Get("X-Frame-Options"); v != "DENY" {
		t.Errorf("X-Frame-Options = %q, want %q", v, "DENY")
	}
}

func TestSecurityHeaders_StreamedResponse(t *testing.T) {
	e := echo.New()
	e.Use(SecurityHeaders())
	e.GET("/stream", func(c echo.Context) error {
		c.Response().WriteHeader(http.StatusOK)
		_, err := io.Copy(c.Response(), strings.NewReader("chunk"))
		return err
	})

	req := httptest.NewRequest(http.MethodGet, "/stream", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if v := rec.Header().Get("X-Content-Type-Options"); v != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want %q on streamed response", v, "nosniff")
	}
}

func TestSecurityHeaders_StripsHopByHop(t *testing.T) {
	e := echo.New()
	e.Use(SecurityHeaders())

	var got http.Header
	e.GET("/test", func(c echo.Context) error {
		got = c.Request().Header.Clone()
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Keep-Alive", "timeout=5")
	req.Header.Set("Proxy-Authorization", "Basic abc")
	req.Header.Set("Authorization", "Bearer keep")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if v := got.Get("Connection"); v != "" {
		t.Errorf("Connection header should be stripped, got %q", v)
	}
	if v := got.Get("Keep-Alive"); v != "" {
		t.Errorf("Keep-Alive header should be stripped, got %q", v)
	}
	if v := got.Get("Proxy-Authorization"); v != "" {
		t.Errorf("Proxy-Authorization header should be stripped, got %q", v)
	}
	if v := got.Get("Authorization"); v != "Bearer keep" {
		t.Errorf("Authorization = %q, want it kept", v)
	}
}
