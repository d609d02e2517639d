package identity

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/ehr/dashboard/internal/platform/dispatch"
	"github.com/ehr/dashboard/internal/platform/fhir/fhirtest"
)

func newTestHandler() (*Handler, *echo.Echo, *fhirtest.Source) {
	svc, src := newTestService(upstreamPatient("u1", "John", "Smith"))
	return NewHandler(svc), echo.New(), src
}

func TestHandler_CreatePatient(t *testing.T) {
	h, e, _ := newTestHandler()

	body := `{"firstName":"Jane","lastName":"Doe","dateOfBirth":"1990-01-01","gender":"female"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/patients", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.CreatePatient(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}

	var env dispatch.Envelope[Patient]
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !env.Success || env.Data.ID == "" || env.Data.FirstName != "Jane" {
		t.Errorf("unexpected envelope %+v", env)
	}
	if !strings.Contains(rec.Body.String(), `"allergies":[]`) {
		t.Errorf("expected empty allergies list in body, got %s", rec.Body.String())
	}
}

func TestHandler_CreatePatient_BadBody(t *testing.T) {
	h, e, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/patients", strings.NewReader(`{"firstName":`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	if err := h.CreatePatient(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandler_GetPatient_NotFound(t *testing.T) {
	h, e, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("missing")

	if err := h.GetPatient(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHandler_ListPatients_Search(t *testing.T) {
	h, e, src := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients?q=Smith&mode=name", nil)
	rec := httptest.NewRecorder()

	if err := h.ListPatients(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if src.LastParams.Get("name") != "Smith" {
		t.Errorf("expected name search, got %v", src.LastParams)
	}
}

func TestHandler_ListPatients_UpstreamDown(t *testing.T) {
	h, e, src := newTestHandler()
	src.Err = fhirtest.Unavailable("Patient")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients?page=2&limit=5", nil)
	rec := httptest.NewRecorder()

	if err := h.ListPatients(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", rec.Code)
	}
	var env dispatch.ListEnvelope[Patient]
	json.Unmarshal(rec.Body.Bytes(), &env)
	if env.Success || env.ErrorKind != dispatch.KindUpstreamUnavailable || env.Data == nil {
		t.Errorf("unexpected envelope %+v", env)
	}
}
