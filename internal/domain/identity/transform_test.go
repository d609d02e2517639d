package identity

import (
	"reflect"
	"testing"

	"github.com/ehr/dashboard/internal/platform/fhir"
)

func str(s string) *string { return &s }

func TestPatientFromFHIR_Full(t *testing.T) {
	r := &fhir.Patient{
		ResourceType: "Patient",
		ID:           "p1",
		Name:         []fhir.HumanName{{Family: "Doe", Given: []string{"Jane", "Q"}}},
		Gender:       "female",
		BirthDate:    "1990-01-01",
		Telecom: []fhir.ContactPoint{
			{System: "email", Value: "jane@example.com"},
			{System: "phone", Value: "555-1234"},
		},
		Address: []fhir.Address{{Line: []string{"1 Main St", ""}, City: "Springfield", State: "IL", PostalCode: "62701"}},
		Contact: []fhir.PatientContact{{
			Name:    &fhir.HumanName{Family: "Doe", Given: []string{"John"}},
			Telecom: []fhir.ContactPoint{{System: "phone", Value: "555-9999"}},
		}},
	}

	p := PatientFromFHIR(r)
	want := Patient{
		ID:               "p1",
		FirstName:        "Jane",
		LastName:         "Doe",
		DateOfBirth:      "1990-01-01",
		Gender:           "female",
		Phone:            "555-1234",
		Email:            "jane@example.com",
		Address:          "1 Main St, Springfield, IL, 62701",
		EmergencyContact: "John Doe",
		EmergencyPhone:   "555-9999",
		Allergies:        []string{},
		Conditions:       []string{},
		Medications:      []string{},
	}
	if !reflect.DeepEqual(p, want) {
		t.Errorf("got %+v\nwant %+v", p, want)
	}
}

func TestPatientFromFHIR_Defaults(t *testing.T) {
	p := PatientFromFHIR(&fhir.Patient{ResourceType: "Patient", ID: "bare"})

	if p.ID != "bare" || p.FirstName != "" || p.LastName != "" {
		t.Errorf("unexpected identity fields %+v", p)
	}
	if p.Gender != GenderUnknown {
		t.Errorf("expected gender %q, got %q", GenderUnknown, p.Gender)
	}
	if p.Allergies == nil || p.Conditions == nil || p.Medications == nil {
		t.Error("expected empty lists, got nil")
	}
	if p.Phone != "" || p.Email != "" || p.Address != "" || p.EmergencyContact != "" {
		t.Errorf("expected empty contact fields, got %+v", p)
	}
}

func TestPatientFromFHIR_ContactWithoutName(t *testing.T) {
	p := PatientFromFHIR(&fhir.Patient{
		ResourceType: "Patient",
		Contact:      []fhir.PatientContact{{Telecom: []fhir.ContactPoint{{System: "phone", Value: "1"}}}},
	})
	if p.EmergencyContact != "" || p.EmergencyPhone != "1" {
		t.Errorf("unexpected emergency contact %+v", p)
	}
}

func TestPatientPatch_ToFHIR_OmitsUnsetFields(t *testing.T) {
	r := PatientPatch{Phone: str("555-1234")}.ToFHIR()

	if r.Name != nil || r.Gender != "" || r.BirthDate != "" || r.Address != nil || r.Contact != nil {
		t.Errorf("expected only telecom, got %+v", r)
	}
	if r.Active != nil {
		t.Error("expected active to be left out without a name")
	}
	if len(r.Telecom) != 1 || r.Telecom[0] != (fhir.ContactPoint{System: "phone", Value: "555-1234", Use: "mobile"}) {
		t.Errorf("unexpected telecom %+v", r.Telecom)
	}
}

func TestPatientPatch_ToFHIR_Full(t *testing.T) {
	r := PatientPatch{
		FirstName:        str("Jane"),
		LastName:         str("Doe"),
		Gender:           str("female"),
		DateOfBirth:      str("1990-01-01"),
		Email:            str("jane@example.com"),
		Address:          str("1 Main St"),
		EmergencyContact: str("Mary Ann Smith"),
		EmergencyPhone:   str("555-0000"),
	}.ToFHIR()

	if r.ResourceType != "Patient" {
		t.Errorf("expected resourceType Patient, got %q", r.ResourceType)
	}
	if len(r.Name) != 1 || r.Name[0].Use != "usual" || r.Name[0].Family != "Doe" || r.Name[0].Given[0] != "Jane" {
		t.Errorf("unexpected name %+v", r.Name)
	}
	if r.Active == nil || !*r.Active {
		t.Error("expected active true")
	}
	if len(r.Address) != 1 || r.Address[0].Use != "home" || r.Address[0].Line[0] != "1 Main St" {
		t.Errorf("unexpected address %+v", r.Address)
	}
	c := r.Contact[0]
	if c.Name.Family != "Smith" || c.Name.Given[0] != "Mary Ann" {
		t.Errorf("unexpected contact name %+v", c.Name)
	}
	if c.Relationship[0].Coding[0].Code != "EP" {
		t.Errorf("unexpected relationship %+v", c.Relationship)
	}
	if c.Telecom[0].Use != "home" || c.Telecom[0].Value != "555-0000" {
		t.Errorf("unexpected contact telecom %+v", c.Telecom)
	}
}

func TestPatient_RoundTrip(t *testing.T) {
	patch := PatientPatch{
		FirstName:        str("Jane"),
		LastName:         str("Doe"),
		Gender:           str("female"),
		DateOfBirth:      str("1990-01-01"),
		Phone:            str("555-1234"),
		Email:            str("jane@example.com"),
		Address:          str("1 Main St"),
		EmergencyContact: str("Mary Ann Smith"),
		EmergencyPhone:   str("555-0000"),
	}

	got := PatientFromFHIR(patch.ToFHIR())

	checks := map[string][2]string{
		"firstName":        {*patch.FirstName, got.FirstName},
		"lastName":         {*patch.LastName, got.LastName},
		"gender":           {*patch.Gender, got.Gender},
		"dateOfBirth":      {*patch.DateOfBirth, got.DateOfBirth},
		"phone":            {*patch.Phone, got.Phone},
		"email":            {*patch.Email, got.Email},
		"address":          {*patch.Address, got.Address},
		"emergencyContact": {*patch.EmergencyContact, got.EmergencyContact},
		"emergencyPhone":   {*patch.EmergencyPhone, got.EmergencyPhone},
	}
	for field, pair := range checks {
		if pair[0] != pair[1] {
			t.Errorf("%s: sent %q, got back %q", field, pair[0], pair[1])
		}
	}
}

func TestProviderFromFHIR(t *testing.T) {
	inactive := false
	tests := []struct {
		name          string
		in            *fhir.Practitioner
		wantName      string
		wantSpecialty string
		wantActive    bool
	}{
		{
			name: "full",
			in: &fhir.Practitioner{
				ID:            "pr1",
				Name:          []fhir.HumanName{{Family: "House", Given: []string{"Gregory"}}},
				Qualification: []fhir.PractitionerQualification{{Code: &fhir.CodeableConcept{Text: "Diagnostics"}}},
			},
			wantName:      "Gregory House",
			wantSpecialty: "Diagnostics",
			wantActive:    true,
		},
		{
			name: "coding display",
			in: &fhir.Practitioner{
				ID:            "pr2",
				Name:          []fhir.HumanName{{Family: "Grey"}},
				Qualification: []fhir.PractitionerQualification{{Code: fhir.Coded("x", "MD", "Doctor of Medicine")}},
			},
			wantName:      "Grey",
			wantSpecialty: "Doctor of Medicine",
			wantActive:    true,
		},
		{
			name:          "empty",
			in:            &fhir.Practitioner{ID: "pr3", Active: &inactive},
			wantName:      fhir.UnknownProvider,
			wantSpecialty: DefaultQualification,
			wantActive:    false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ProviderFromFHIR(tt.in)
			if p.Name != tt.wantName {
				t.Errorf("name: got %q, want %q", p.Name, tt.wantName)
			}
			if p.Specialty != tt.wantSpecialty || p.Qualification != tt.wantSpecialty {
				t.Errorf("specialty: got %q/%q, want %q", p.Specialty, p.Qualification, tt.wantSpecialty)
			}
			if p.Active != tt.wantActive {
				t.Errorf("active: got %v, want %v", p.Active, tt.wantActive)
			}
			if p.Department != DefaultDepartment {
				t.Errorf("department: got %q", p.Department)
			}
			if len(p.Slots("monday")) == 0 {
				t.Error("expected default weekly template")
			}
		})
	}
}

func TestWeekday(t *testing.T) {
	if got := Weekday("2024-01-15"); got != "monday" {
		t.Errorf("expected monday, got %q", got)
	}
	if got := Weekday("not-a-date"); got != "" {
		t.Errorf("expected empty weekday, got %q", got)
	}
}
