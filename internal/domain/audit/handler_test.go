package audit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/medassist/medassist/internal/platform/auth"
	"github.com/medassist/medassist/internal/platform/hipaa"
)

type mockAuditRepo struct {
	events     []*hipaa.AuditEntry
	lastParams SearchParams
	err        error
}

func (m *mockAuditRepo) Append(_ context.Context, e hipaa.AuditEntry) error {
	m.events = append(m.events, &e)
	return nil
}

func (m *mockAuditRepo) GetByID(_ context.Context, id uuid.UUID) (*hipaa.AuditEntry, error) {
	for _, e := range m.events {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, ErrEventNotFound
}

func (m *mockAuditRepo) Search(_ context.Context, params SearchParams, limit, offset int) ([]*hipaa.AuditEntry, int, error) {
	m.lastParams = params
	if m.err != nil {
		return nil, 0, m.err
	}
	return m.events, len(m.events), nil
}

func newAuditContext(target string, roles ...string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{Subject: "ops", Roles: roles}))
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestHandler_ListAuditEvents(t *testing.T) {
	repo := &mockAuditRepo{}
	repo.Append(context.Background(), hipaa.AuditEntry{ID: uuid.New(), Action: hipaa.ActionReportAnalysis, Timestamp: time.Now()})
	h := NewHandler(NewService(repo))

	user := uuid.New()
	c, rec := newAuditContext("/audit-events?action=REPORT_ANALYSIS&user_id="+user.String()+"&limit=5", "admin")
	if err := h.ListAuditEvents(c); err != nil {
		t.Fatalf("list: %v", err)
	}
	if repo.lastParams.Action != hipaa.ActionReportAnalysis || repo.lastParams.UserID == nil || *repo.lastParams.UserID != user {
		t.Errorf("filters not passed through: %+v", repo.lastParams)
	}

	var body struct {
		Data  []hipaa.AuditEntry `json:"data"`
		Total int                `json:"total"`
		Limit int                `json:"limit"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Total != 1 || len(body.Data) != 1 || body.Limit != 5 {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestHandler_ListAuditEvents_Errors(t *testing.T) {
	h := NewHandler(NewService(&mockAuditRepo{}))
	c, _ := newAuditContext("/audit-events?user_id=not-a-uuid", "admin")
	if he, ok := h.ListAuditEvents(c).(*echo.HTTPError); !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad user_id")
	}

	h = NewHandler(NewService(&mockAuditRepo{err: errors.New("db down")}))
	c, _ = newAuditContext("/audit-events", "admin")
	if he, ok := h.ListAuditEvents(c).(*echo.HTTPError); !ok || he.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 when the store fails")
	}
}

func TestHandler_EmptyListIsArray(t *testing.T) {
	h := NewHandler(NewService(&mockAuditRepo{}))
	c, rec := newAuditContext("/audit-events", "admin")
	h.ListAuditEvents(c)

	var body map[string]json.RawMessage
	json.Unmarshal(rec.Body.Bytes(), &body)
	if string(body["data"]) != "[]" {
		t.Errorf("expected empty array, got %s", body["data"])
	}
}

func TestHandler_GetAuditEvent(t *testing.T) {
	repo := &mockAuditRepo{}
	id := uuid.New()
	repo.Append(context.Background(), hipaa.AuditEntry{ID: id, Action: hipaa.ActionReportRead})
	h := NewHandler(NewService(repo))

	e := echo.New()
	tests := []struct {
		param string
		want  int
	}{
		{id.String(), http.StatusOK},
		{uuid.NewString(), http.StatusNotFound},
		{"junk", http.StatusBadRequest},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		c.SetParamNames("id")
		c.SetParamValues(tt.param)

		err := h.GetAuditEvent(c)
		code := rec.Code
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
		}
		if code != tt.want {
			t.Errorf("id %s: got %d, want %d", tt.param, code, tt.want)
		}
	}
}

func TestRoutes_RequireAdmin(t *testing.T) {
	e := echo.New()
	h := NewHandler(NewService(&mockAuditRepo{}))
	h.RegisterRoutes(e.Group("/api/v1"))

	for roles, want := range map[string]int{"admin": http.StatusOK, "patient": http.StatusForbidden} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/audit-events", nil)
		req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{Subject: "x", Roles: []string{roles}}))
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Errorf("role %s: got %d, want %d", roles, rec.Code, want)
		}
	}
}
