package dispatch

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/ehr/dashboard/internal/platform/fhir"
	"github.com/ehr/dashboard/internal/platform/mockstore"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, KindNone},
		{"store not found", &mockstore.NotFoundError{Collection: "patients", ID: "x"}, KindNotFound},
		{"wrapped store not found", fmt.Errorf("update: %w", mockstore.ErrNotFound), KindNotFound},
		{"upstream 404", &fhir.UpstreamError{Op: "read", ResourceType: "Patient", StatusCode: 404}, KindNotFound},
		{"upstream 503", &fhir.UpstreamError{Op: "search", ResourceType: "Patient", StatusCode: 503}, KindUpstreamUnavailable},
		{"invalid input", fmt.Errorf("%w: patient id is required", ErrInvalidInput), KindInvalidInput},
		{"missing resourceType", fhir.ErrMissingResourceType, KindInvalidInput},
		{"unsupported", &fhir.UnsupportedResourceError{ResourceType: "Encounter"}, KindInvalidInput},
		{"other", errors.New("boom"), KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEnvelope_OKAndFail(t *testing.T) {
	ok := OK("value", "done")
	if !ok.Success || ok.Data != "value" || ok.Message != "done" || ok.Err() != nil {
		t.Errorf("unexpected ok envelope %+v", ok)
	}

	failed := Fail[*string](&mockstore.NotFoundError{Collection: "patients", ID: "p1"})
	if failed.Success || failed.Data != nil {
		t.Errorf("unexpected failed envelope %+v", failed)
	}
	if failed.ErrorKind != KindNotFound {
		t.Errorf("expected not_found kind, got %q", failed.ErrorKind)
	}
	if !errors.Is(failed.Err(), mockstore.ErrNotFound) {
		t.Error("expected rebuilt error to match ErrNotFound")
	}
}

func TestListEnvelope_NeverNilData(t *testing.T) {
	l := List[int](nil, 0, "")
	if l.Data == nil || !l.Success {
		t.Errorf("unexpected list envelope %+v", l)
	}

	f := ListFail[int](&fhir.UpstreamError{Op: "search", ResourceType: "Appointment"})
	if f.Data == nil || len(f.Data) != 0 || f.Success {
		t.Errorf("unexpected failed list envelope %+v", f)
	}
	if f.ErrorKind != KindUpstreamUnavailable {
		t.Errorf("expected upstream_unavailable, got %q", f.ErrorKind)
	}

	data, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"data":[]`) {
		t.Errorf("expected empty data array in JSON, got %s", data)
	}
}

func TestPolicy(t *testing.T) {
	p := DefaultPolicy()
	for _, op := range []Operation{OpCreate, OpUpdate, OpDelete} {
		if !p.ShouldUseMockCRUD(op) {
			t.Errorf("default policy should route %s to the mock store", op)
		}
	}
	if (Policy{MockCRUD: false}).ShouldUseMockCRUD(OpCreate) {
		t.Error("disabled policy should route to the upstream")
	}
}

func TestMockMessage(t *testing.T) {
	got := MockMessage(OpCreate, "patient")
	want := "Successfully created patient using demonstration mode. In a production environment, this would be saved to the FHIR server."
	if got != want {
		t.Errorf("MockMessage() = %q", got)
	}
	if !strings.HasPrefix(MockMessage(OpDelete, "appointment"), "Successfully deleted appointment") {
		t.Error("unexpected delete message")
	}
	if !strings.HasPrefix(MockMessage(OpCancel, "appointment"), "Successfully cancelled appointment") {
		t.Error("unexpected cancel message")
	}
}
