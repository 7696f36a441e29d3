package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

var wantSecurityHeaders = map[string]string{
	"X-Content-Type-Options":    "nosniff",
	"X-Frame-Options":           "DENY",
	"Content-Security-Policy":   "default-src 'none'; frame-ancestors 'none'",
	"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
	"Referrer-Policy":           "no-referrer",
	"Cache-Control":             "no-store",
}

func TestSecurityHeaders(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		target   string
		handler  echo.HandlerFunc
		wantCode int
	}{
		{"resident list", http.MethodGet, "/api/v1/residents", func(c echo.Context) error {
			return c.JSON(http.StatusOK, []string{})
		}, 0},
		{"finance export", http.MethodGet, "/api/v1/finance/rows.xlsx", func(c echo.Context) error {
			return c.Blob(http.StatusOK, "application/octet-stream", []byte("x"))
		}, 0},
		{"report not found", http.MethodGet, "/api/v1/incident-reports/9", func(c echo.Context) error {
			return echo.NewHTTPError(http.StatusNotFound, "incident report not found")
		}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := echo.New().NewContext(httptest.NewRequest(tt.method, tt.target, nil), rec)

			err := SecurityHeaders()(tt.handler)(c)
			if tt.wantCode == 0 && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantCode != 0 {
				he, ok := err.(*echo.HTTPError)
				if !ok || he.Code != tt.wantCode {
					t.Fatalf("expected %d passed through, got %v", tt.wantCode, err)
				}
			}
			for header, want := range wantSecurityHeaders {
				if got := rec.Header().Get(header); got != want {
					t.Errorf("%s: got %q, want %q", header, got, want)
				}
			}
		})
	}
}
