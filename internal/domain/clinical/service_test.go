package clinical

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/ehr/dashboard/internal/domain/identity"
	"github.com/ehr/dashboard/internal/platform/dispatch"
	"github.com/ehr/dashboard/internal/platform/fhir"
	"github.com/ehr/dashboard/internal/platform/fhir/fhirtest"
	"github.com/ehr/dashboard/internal/platform/mockstore"
	"github.com/ehr/dashboard/pkg/fhirmodels"
)

func newTestService(policy dispatch.Policy, resources ...fhir.TypedResource) (*Service, *fhirtest.Source) {
	src := fhirtest.NewSource(resources...)
	reg := mockstore.NewRegistry(zerolog.Nop())
	patients := identity.NewService(reg, src, policy, zerolog.Nop())
	svc := NewService(reg, src, patients, policy, zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC) }
	return svc, src
}

func janeDoe() *fhir.Patient {
	return &fhir.Patient{
		ResourceType: "Patient",
		ID:           "p1",
		Name:         []fhir.HumanName{{Given: []string{"Jane"}, Family: "Doe"}},
	}
}

func TestService_NoteLifecycle(t *testing.T) {
	svc, src := newTestService(dispatch.DefaultPolicy(), janeDoe())
	ctx := context.Background()

	created := svc.CreateNote(ctx, ClinicalNote{PatientID: "p1", ChiefComplaint: "Cough"})
	if !created.Success {
		t.Fatalf("create failed: %s", created.Error)
	}
	n := created.Data
	if n.PatientName != "Jane Doe" || n.Type != DefaultNoteType || n.Date != "2024-03-01" {
		t.Errorf("unexpected defaults %+v", n)
	}
	if !strings.Contains(created.Message, "demonstration mode") {
		t.Errorf("expected mock message, got %q", created.Message)
	}

	list := svc.NotesByPatient(ctx, "p1")
	if !list.Success || len(list.Data) != 1 || list.Data[0].ID != n.ID {
		t.Fatalf("expected the session note, got %+v", list)
	}
	if src.LastParams.Get("status") != fhirmodels.DocumentStatusCurrent || src.LastParams.Get("_include") != "DocumentReference:patient" {
		t.Errorf("unexpected search params %v", src.LastParams)
	}
	if other := svc.NotesByPatient(ctx, "p2"); len(other.Data) != 0 {
		t.Errorf("expected no notes for another patient, got %d", len(other.Data))
	}

	updated := svc.UpdateNote(ctx, n.ID, ClinicalNotePatch{Plan: lo.ToPtr("Fluids")})
	if !updated.Success || updated.Data.Plan != "Fluids" || updated.Data.ChiefComplaint != "Cough" {
		t.Errorf("unexpected update %+v", updated)
	}

	if del := svc.DeleteNote(ctx, n.ID); !del.Success || del.Data != n.ID {
		t.Errorf("unexpected delete %+v", del)
	}
	if got := svc.GetNote(ctx, n.ID); got.ErrorKind != dispatch.KindNotFound {
		t.Errorf("expected not_found after delete, got %+v", got)
	}
}

func TestService_NotesByPatient_RequiresPatient(t *testing.T) {
	svc, src := newTestService(dispatch.DefaultPolicy())
	env := svc.NotesByPatient(context.Background(), "")
	if env.Success || env.ErrorKind != dispatch.KindInvalidInput {
		t.Errorf("expected invalid_input, got %+v", env)
	}
	if len(src.Calls) != 0 {
		t.Errorf("expected no upstream calls, got %v", src.Calls)
	}
}

func TestService_VitalsSplitFromLabs(t *testing.T) {
	vitals := VitalSignsPatch{PatientID: lo.ToPtr("p1"), Date: lo.ToPtr("2024-01-15"), HeartRate: fhir.Float(70)}.ToFHIR()
	vitals.ID = "obs-v"
	lab := LabResultPatch{PatientID: lo.ToPtr("p1"), TestName: lo.ToPtr("CBC"), Status: lo.ToPtr(LabCompleted)}.ToFHIR()
	lab.ID = "obs-l"
	svc, src := newTestService(dispatch.DefaultPolicy(), vitals, lab)
	ctx := context.Background()

	v := svc.VitalsByPatient(ctx, "p1")
	if len(v.Data) != 1 || v.Data[0].ID != "obs-v" {
		t.Errorf("expected only the vitals panel, got %+v", v.Data)
	}
	if src.LastParams.Get("category") != fhirmodels.ObsCategoryVitalSigns || src.LastParams.Get("status") != fhirmodels.ObsStatusFinal {
		t.Errorf("unexpected vitals params %v", src.LastParams)
	}

	l := svc.LabsByPatient(ctx, "p1")
	if len(l.Data) != 1 || l.Data[0].ID != "obs-l" {
		t.Errorf("expected only the lab, got %+v", l.Data)
	}
	if src.LastParams.Get("category") != fhirmodels.ObsCategoryLaboratory || src.LastParams.Has("status") {
		t.Errorf("unexpected lab params %v", src.LastParams)
	}
}

func TestService_VitalsBMI(t *testing.T) {
	svc, _ := newTestService(dispatch.DefaultPolicy())
	ctx := context.Background()

	created := svc.CreateVitals(ctx, VitalSigns{PatientID: "p1", Weight: fhir.Float(70), Height: fhir.Float(175)})
	if !created.Success {
		t.Fatalf("create failed: %s", created.Error)
	}
	if created.Data.BMI == nil || *created.Data.BMI != 22.9 {
		t.Fatalf("expected BMI 22.9, got %v", created.Data.BMI)
	}

	updated := svc.UpdateVitals(ctx, created.Data.ID, VitalSignsPatch{Weight: fhir.Float(80)})
	if !updated.Success {
		t.Fatalf("update failed: %s", updated.Error)
	}
	if updated.Data.BMI == nil || *updated.Data.BMI != 26.1 {
		t.Errorf("expected BMI recomputed to 26.1, got %v", updated.Data.BMI)
	}
}

func TestService_LabStatus(t *testing.T) {
	svc, _ := newTestService(dispatch.DefaultPolicy())
	ctx := context.Background()

	created := svc.CreateLab(ctx, LabResult{PatientID: "p1", TestName: "Lipid Panel"})
	if !created.Success {
		t.Fatalf("create failed: %s", created.Error)
	}
	if created.Data.Status != LabPending || created.Data.Category != DefaultLabCategory || created.Data.Results == nil {
		t.Errorf("unexpected defaults %+v", created.Data)
	}

	done := svc.UpdateLabStatus(ctx, created.Data.ID, LabCompleted)
	if !done.Success || done.Data.Status != LabCompleted || done.Data.ResultDate != "2024-03-01" {
		t.Errorf("unexpected status update %+v", done)
	}

	bad := svc.UpdateLabStatus(ctx, created.Data.ID, "lost")
	if bad.Success || bad.ErrorKind != dispatch.KindInvalidInput {
		t.Errorf("expected invalid_input, got %+v", bad)
	}
}

func TestService_DiscontinueMedication(t *testing.T) {
	svc, _ := newTestService(dispatch.DefaultPolicy())
	ctx := context.Background()

	created := svc.CreateMedication(ctx, Medication{PatientID: "p1", MedicationName: "Metformin", Frequency: "2"})
	if !created.Success {
		t.Fatalf("create failed: %s", created.Error)
	}
	if created.Data.Status != MedicationActive || created.Data.StartDate != "2024-03-01" {
		t.Errorf("unexpected defaults %+v", created.Data)
	}

	env := svc.DiscontinueMedication(ctx, created.Data.ID)
	if !env.Success || env.Data.Status != MedicationDiscontinued || env.Data.EndDate != "2024-03-01" {
		t.Errorf("unexpected discontinue %+v", env)
	}
	if env.Data.MedicationName != "Metformin" {
		t.Errorf("expected other fields to survive, got %+v", env.Data)
	}
}

func TestService_UpstreamWrites(t *testing.T) {
	svc, src := newTestService(dispatch.Policy{MockCRUD: false}, janeDoe())
	ctx := context.Background()

	created := svc.CreateMedication(ctx, Medication{PatientID: "p1", MedicationName: "Metformin", Frequency: "2", Dosage: "500mg"})
	if !created.Success {
		t.Fatalf("create failed: %s", created.Error)
	}
	if created.Data.ID != "srv-1" || !strings.Contains(created.Message, "FHIR server") {
		t.Errorf("unexpected upstream create %+v", created)
	}

	env := svc.DiscontinueMedication(ctx, "srv-1")
	if !env.Success || env.Data.Status != MedicationDiscontinued {
		t.Fatalf("unexpected discontinue %+v", env)
	}
	if env.Data.Dosage != "500mg" || env.Data.MedicationName != "Metformin" {
		t.Errorf("expected stored fields to survive the merge, got %+v", env.Data)
	}
	if !lo.Contains(src.Calls, "update MedicationRequest/srv-1") {
		t.Errorf("expected an upstream update, got %v", src.Calls)
	}
}

func TestService_UpstreamUnavailable(t *testing.T) {
	svc, src := newTestService(dispatch.DefaultPolicy())
	src.Err = fhirtest.Unavailable("MedicationRequest")

	env := svc.MedicationsByPatient(context.Background(), "p1")
	if env.Success || env.ErrorKind != dispatch.KindUpstreamUnavailable || env.Data == nil {
		t.Errorf("expected upstream_unavailable with empty data, got %+v", env)
	}
}

func TestHandler_UpdateLabStatus(t *testing.T) {
	svc, _ := newTestService(dispatch.DefaultPolicy())
	h := NewHandler(svc)
	e := echo.New()
	created := svc.CreateLab(context.Background(), LabResult{PatientID: "p1", TestName: "CBC"})

	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"status":"reviewed"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(created.Data.ID)

	if err := h.UpdateLabStatus(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"reviewed"`) {
		t.Errorf("unexpected response %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandler_ListVitals_MissingPatient(t *testing.T) {
	svc, _ := newTestService(dispatch.DefaultPolicy())
	h := NewHandler(svc)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("")

	if err := h.ListVitals(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}
