package scheduling

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/ehr/dashboard/internal/platform/dispatch"
)

func TestHandler_CancelAppointment(t *testing.T) {
	svc, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()
	created := svc.Create(context.Background(), Appointment{PatientID: "p1", Date: "2024-01-15", Time: "09:00"})

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"reason":"conflict"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(created.Data.ID)

	if err := h.CancelAppointment(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var env dispatch.Envelope[Appointment]
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Data.Status != StatusCancelled || !strings.Contains(env.Data.Notes, "conflict") {
		t.Errorf("unexpected appointment %+v", env.Data)
	}
}

func TestHandler_CancelAppointment_NotFound(t *testing.T) {
	svc, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("mock-1-abc")

	if err := h.CancelAppointment(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHandler_ListAppointments_ByProvider(t *testing.T) {
	svc, src := newTestService()
	h := NewHandler(svc)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments?provider_id=PR001&date=2024-01-15", nil)
	rec := httptest.NewRecorder()

	if err := h.ListAppointments(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if src.LastParams.Get("practitioner") != "PR001" || src.LastParams.Get("date") != "2024-01-15" {
		t.Errorf("unexpected params %v", src.LastParams)
	}
}
