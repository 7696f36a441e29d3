package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/carehub/carehub/internal/config"
	"github.com/carehub/carehub/internal/domain/cashcount"
	"github.com/carehub/carehub/internal/platform/appctx"
	"github.com/carehub/carehub/internal/platform/db"
)

func fakeBackend(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/health":
			_, _ = w.Write([]byte(`{}`))
		case "/group-homes/10":
			_, _ = w.Write([]byte(`{"id":10,"name":"Maple House","active":true}`))
		case "/group-homes/10/cash-counts/latest":
			_, _ = w.Write([]byte(`[{"resident_id":1,"firstName":"Jane","lastName":"Doe","latest_count":null}]`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	cfg := &config.Config{
		Env:                      "development",
		BackendURL:               fakeBackend(t).URL,
		BackendTimeout:           2 * time.Second,
		SessionTTL:               time.Hour,
		RateLimitRPS:             100,
		RateLimitBurst:           100,
		IncidentTransitionPolicy: config.PolicyPermissive,
	}
	logger := zerolog.Nop()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("open stores: %v", err)
	}
	e, err := newServer(cfg, st, appctx.NewMemoryKV(), logger)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return e
}

func serve(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	e := newTestServer(t)
	if rec := serve(e, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if rec := serve(e, http.MethodGet, "/health/ready", ""); rec.Code != http.StatusOK {
		t.Errorf("expected ready 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestServer_RequiresGroupHomeSelection(t *testing.T) {
	e := newTestServer(t)
	rec := serve(e, http.MethodGet, "/api/v1/incident-reports", "")
	if rec.Code != http.StatusPreconditionRequired {
		t.Errorf("expected 428, got %d", rec.Code)
	}
}

func TestServer_SelectHomeThenFinanceRows(t *testing.T) {
	e := newTestServer(t)

	rec := serve(e, http.MethodPut, "/api/v1/session/group-home", `{"group_home_id":10}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("select home: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = serve(e, http.MethodGet, "/api/v1/finance/rows", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("finance rows: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var rows []cashcount.FinanceRow
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 2 || rows[0].Status != cashcount.StatusMissingCount {
		t.Errorf("expected missing row followed by resident row, got %+v", rows)
	}
}

func TestServer_SelectUnknownHome(t *testing.T) {
	e := newTestServer(t)
	rec := serve(e, http.MethodPut, "/api/v1/session/group-home", `{"group_home_id":99}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestNewServer_RejectsUnknownPolicy(t *testing.T) {
	cfg := &config.Config{Env: "development", SessionTTL: time.Hour, IncidentTransitionPolicy: "strict"}
	if _, err := newServer(cfg, &stores{}, appctx.NewMemoryKV(), zerolog.Nop()); err == nil {
		t.Fatal("expected error for unknown policy")
	}
}

func TestPrintStatus(t *testing.T) {
	at := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	var buf bytes.Buffer
	printStatus(&buf, []db.MigrationStatus{
		{Version: 1, Name: "001_group_homes.sql", Applied: true, AppliedAt: &at},
		{Version: 2, Name: "002_cash_counts.sql"},
	})
	out := buf.String()
	if !strings.Contains(out, "applied") || !strings.Contains(out, "2024-03-01 09:30:00") {
		t.Errorf("missing applied row:\n%s", out)
	}
	if !strings.Contains(out, "pending") {
		t.Errorf("missing pending row:\n%s", out)
	}
}
