package cashcount

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/carehub/carehub/internal/platform/appctx"
	"github.com/carehub/carehub/internal/platform/auth"
	"github.com/carehub/carehub/internal/platform/validate"
)

func newTestHandler() (*Handler, *mockRepo, *echo.Echo) {
	svc, repo := newTestService(0)
	h := NewHandler(svc, zerolog.Nop())
	h.now = func() time.Time { return testNow }
	e := echo.New()
	e.Validator = validate.New()
	return h, repo, e
}

func sessionRequest(method, body string, staffID, homeID int64) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, "/", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, "/", nil)
	}
	ctx := auth.WithPrincipal(req.Context(), auth.Principal{StaffID: staffID, Roles: []string{auth.RoleStaff}})
	ctx = appctx.With(ctx, appctx.AppContext{User: appctx.User{ID: staffID}, GroupHomeID: homeID})
	return req.WithContext(ctx)
}

func TestHandler_CreateCount(t *testing.T) {
	h, repo, e := newTestHandler()
	rec := httptest.NewRecorder()
	c := e.NewContext(sessionRequest(http.MethodPost, `{"resident_id":1,"balance":"45.00"}`, 42, 10), rec)

	if err := h.CreateCount(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var got CashCount
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.BalanceCents != 4500 || got.DiffCents != -500 || !got.IsMismatch {
		t.Errorf("unexpected count %+v", got)
	}
	if len(repo.counts) != 1 {
		t.Errorf("expected one stored count, got %d", len(repo.counts))
	}
}

func TestHandler_CreateCount_RequiresBalance(t *testing.T) {
	h, _, e := newTestHandler()
	c := e.NewContext(sessionRequest(http.MethodPost, `{"resident_id":1}`, 42, 10), httptest.NewRecorder())
	err := h.CreateCount(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestHandler_CreateCount_NegativeBalance(t *testing.T) {
	for _, body := range []string{`{"resident_id":1,"balance_cents":-300}`, `{"resident_id":1,"balance":"-3"}`} {
		h, repo, e := newTestHandler()
		err := h.CreateCount(e.NewContext(sessionRequest(http.MethodPost, body, 42, 10), httptest.NewRecorder()))
		he, ok := err.(*echo.HTTPError)
		if !ok || he.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %v", body, err)
		}
		if len(repo.counts) != 0 {
			t.Errorf("%s: nothing should be stored", body)
		}
	}
}

func TestHandler_CreateCount_OtherHomeResident(t *testing.T) {
	h, _, e := newTestHandler()
	c := e.NewContext(sessionRequest(http.MethodPost, `{"resident_id":3,"balance_cents":100}`, 42, 10), httptest.NewRecorder())
	err := h.CreateCount(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %v", err)
	}
}

func TestHandler_GetCount_NotFound(t *testing.T) {
	h, _, e := newTestHandler()
	c := e.NewContext(sessionRequest(http.MethodGet, "", 42, 10), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("999")
	err := h.GetCount(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestHandler_ListCounts(t *testing.T) {
	h, _, e := newTestHandler()
	_, _ = h.svc.RecordCount(context.Background(), 10, 42, RecordInput{ResidentID: 1, BalanceCents: 5000}, testNow)
	_, _ = h.svc.RecordCount(context.Background(), 10, 42, RecordInput{ResidentID: 2, BalanceCents: 0}, testNow)

	req := sessionRequest(http.MethodGet, "", 42, 10)
	req.URL.RawQuery = "resident_id=2"
	rec := httptest.NewRecorder()
	if err := h.ListCounts(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body struct {
		Data  []CashCount `json:"data"`
		Total int         `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Total != 1 || len(body.Data) != 1 || body.Data[0].ResidentID != 2 {
		t.Errorf("unexpected page %+v", body)
	}
}

func TestHandler_ListCounts_BadDate(t *testing.T) {
	h, _, e := newTestHandler()
	req := sessionRequest(http.MethodGet, "", 42, 10)
	req.URL.RawQuery = "from=yesterday"
	err := h.ListCounts(e.NewContext(req, httptest.NewRecorder()))
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestHandler_GetFinanceRows(t *testing.T) {
	h, repo, e := newTestHandler()
	repo.latest[10] = []Entry{counted(1, 9, edmonton(2024, 2, 29, 9, 0), 2500, 0, false)}

	rec := httptest.NewRecorder()
	if err := h.GetFinanceRows(e.NewContext(sessionRequest(http.MethodGet, "", 42, 10), rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var rows []FinanceRow
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 2 || rows[0].Status != StatusMissingCount {
		t.Errorf("unexpected rows %+v", rows)
	}
}

func TestHandler_DeriveFinanceRows(t *testing.T) {
	h, _, e := newTestHandler()
	body := `[{"resident_id":5,"firstName":"Ana","lastName":"Cruz","latest_count":{"balance_cents":1000,"diff_cents":-500,"is_mismatch":true,"staff_id":42,"counted_at":"2024-03-01T16:00:00Z"}}]`
	rec := httptest.NewRecorder()
	if err := h.DeriveFinanceRows(e.NewContext(sessionRequest(http.MethodPost, body, 42, 10), rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var rows []FinanceRow
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 1 || rows[0].Status != StatusMismatch || !strings.Contains(rows[0].Message, "-$5.00") {
		t.Errorf("unexpected rows %+v", rows)
	}
}

func TestHandler_DeriveFinanceRows_Malformed(t *testing.T) {
	h, _, e := newTestHandler()
	rec := httptest.NewRecorder()
	if err := h.DeriveFinanceRows(e.NewContext(sessionRequest(http.MethodPost, `{"oops":true}`, 42, 10), rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("expected empty array, got %s", rec.Body.String())
	}
}

func TestHandler_DeriveFinanceRows_TooLarge(t *testing.T) {
	h, _, e := newTestHandler()
	const elem = `{"resident_id":1},`
	body := "[" + strings.Repeat(elem, maxRawRows/len(elem)+1) + `{"resident_id":1}]`

	err := h.DeriveFinanceRows(e.NewContext(sessionRequest(http.MethodPost, body, 42, 10), httptest.NewRecorder()))
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %v", err)
	}
}

func TestHandler_ExportFinanceRows(t *testing.T) {
	h, repo, e := newTestHandler()
	repo.latest[10] = []Entry{counted(1, 42, edmonton(2024, 3, 1, 9, 0), 2500, 0, false)}

	rec := httptest.NewRecorder()
	if err := h.ExportFinanceRows(e.NewContext(sessionRequest(http.MethodGet, "", 42, 10), rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); ct != xlsxMIME {
		t.Errorf("unexpected content type %q", ct)
	}
	if cd := rec.Header().Get(echo.HeaderContentDisposition); !strings.Contains(cd, "finance-10-2024-03-01.xlsx") {
		t.Errorf("unexpected disposition %q", cd)
	}
	if rec.Body.Len() == 0 {
		t.Error("expected workbook bytes")
	}
}
