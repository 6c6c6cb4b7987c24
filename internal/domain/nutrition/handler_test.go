package nutrition

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/medassist/medassist/internal/domain/identity"
	"github.com/rs/zerolog"
)

func jsonContext(method, target, body string, owner uuid.UUID) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if owner != uuid.Nil {
		req = req.WithContext(identity.WithUser(req.Context(), &identity.User{ID: owner}))
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func httpStatus(t *testing.T, err error) int {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T (%v)", err, err)
	}
	return he.Code
}

func newTestHandler(t *testing.T) (*Handler, *fixture) {
	f := newFixture(t)
	return NewHandler(f.svc, identity.NewService(nil, zerolog.Nop())), f
}

func TestHandler_LogMeal(t *testing.T) {
	h, f := newTestHandler(t)

	c, rec := jsonContext(http.MethodPost, "/nutrition/meals", `{"name":"oatmeal","calories":150,"protein":5}`, f.owner)
	if err := h.LogMeal(c); err != nil {
		t.Fatalf("log meal: %v", err)
	}
	var m MealLog
	json.Unmarshal(rec.Body.Bytes(), &m)
	if m.ID == uuid.Nil || m.Name != "oatmeal" || m.Calories != 150 {
		t.Errorf("unexpected body %s", rec.Body.String())
	}

	c, _ = jsonContext(http.MethodPost, "/nutrition/meals", `{"calories":150}`, f.owner)
	if code := httpStatus(t, h.LogMeal(c)); code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", code)
	}
}

func TestHandler_LogWater(t *testing.T) {
	h, f := newTestHandler(t)

	c, rec := jsonContext(http.MethodPost, "/nutrition/water", `{"amount_ml":250}`, f.owner)
	if err := h.LogWater(c); err != nil {
		t.Fatalf("log water: %v", err)
	}
	var out map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &out)
	if out["message"] != "Water logged" || out["current_total"] != float64(250) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}

	c, _ = jsonContext(http.MethodPost, "/nutrition/water", `{"amount_ml":0}`, f.owner)
	if code := httpStatus(t, h.LogWater(c)); code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", code)
	}
}

func TestHandler_SummaryAndHistory(t *testing.T) {
	h, f := newTestHandler(t)

	c, rec := jsonContext(http.MethodGet, "/nutrition/summary", "", f.owner)
	if err := h.Summary(c); err != nil {
		t.Fatalf("summary: %v", err)
	}
	var out map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &out)
	if out["goal_calories"] != float64(2000) || out["total_water_ml"] != float64(0) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}

	c, rec = jsonContext(http.MethodGet, "/nutrition/hydration/history", "", f.owner)
	if err := h.HydrationHistory(c); err != nil {
		t.Fatalf("hydration history: %v", err)
	}
	var days []DayAmount
	json.Unmarshal(rec.Body.Bytes(), &days)
	if len(days) != 7 || days[6].Label != TodayLabel {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestHandler_Estimate(t *testing.T) {
	h, _ := newTestHandler(t)

	c, rec := jsonContext(http.MethodPost, "/nutrition/estimate", `{"query":"Greek yogurt"}`, uuid.Nil)
	if err := h.Estimate(c); err != nil {
		t.Fatalf("estimate: %v", err)
	}
	var est Estimate
	json.Unmarshal(rec.Body.Bytes(), &est)
	if est.Calories != 59 || est.Protein != 10 {
		t.Errorf("unexpected estimate %+v", est)
	}
}

func TestHandler_RoutesRequireUser(t *testing.T) {
	h, _ := newTestHandler(t)
	e := echo.New()
	h.RegisterRoutes(e.Group(""))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nutrition/summary", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/nutrition/estimate", strings.NewReader(`{"query":"apple"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("estimate should be public, got %d", rec.Code)
	}
}
