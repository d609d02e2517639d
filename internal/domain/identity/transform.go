package identity

import (
	"strings"

	"github.com/samber/lo"

	"github.com/ehr/dashboard/internal/platform/fhir"
	"github.com/ehr/dashboard/pkg/fhirmodels"
)

// PatientFromFHIR maps an upstream Patient. Every field gets a default, so
// a resource with no name, telecom or address still yields a usable record.
func PatientFromFHIR(r *fhir.Patient) Patient {
	p := Patient{ID: r.ID, DateOfBirth: r.BirthDate, Gender: r.Gender}
	if n := fhir.FirstName(r.Name); n != nil {
		p.LastName = n.Family
		if len(n.Given) > 0 {
			p.FirstName = n.Given[0]
		}
	}
	p.Phone = fhir.TelecomValue(r.Telecom, "phone")
	p.Email = fhir.TelecomValue(r.Telecom, "email")
	if len(r.Address) > 0 {
		p.Address = fhir.JoinAddressParts(&r.Address[0])
	}
	if len(r.Contact) > 0 {
		c := r.Contact[0]
		p.EmergencyContact = fhir.ComposeName(c.Name, "")
		p.EmergencyPhone = fhir.TelecomValue(c.Telecom, "phone")
	}
	return withDefaults(p)
}

// withDefaults replaces nil lists so they serialize as [].
func withDefaults(p Patient) Patient {
	if p.Allergies == nil {
		p.Allergies = []string{}
	}
	if p.Conditions == nil {
		p.Conditions = []string{}
	}
	if p.Medications == nil {
		p.Medications = []string{}
	}
	if p.Gender == "" {
		p.Gender = GenderUnknown
	}
	return p
}

// ToFHIR builds the Patient resource for the fields set in the patch.
// Fields that have no counterpart on the resource are dropped.
func (pp PatientPatch) ToFHIR() *fhir.Patient {
	r := &fhir.Patient{ResourceType: "Patient"}

	if pp.FirstName != nil || pp.LastName != nil {
		name := fhir.HumanName{Use: "usual"}
		if pp.FirstName != nil {
			name.Given = []string{*pp.FirstName}
		}
		if pp.LastName != nil {
			name.Family = *pp.LastName
		}
		r.Name = []fhir.HumanName{name}
		r.Active = lo.ToPtr(true)
	}
	if pp.Gender != nil {
		r.Gender = *pp.Gender
	}
	if pp.DateOfBirth != nil {
		r.BirthDate = *pp.DateOfBirth
	}
	if pp.Phone != nil {
		r.Telecom = append(r.Telecom, fhir.ContactPoint{System: "phone", Value: *pp.Phone, Use: "mobile"})
	}
	if pp.Email != nil {
		r.Telecom = append(r.Telecom, fhir.ContactPoint{System: "email", Value: *pp.Email, Use: "home"})
	}
	if pp.Address != nil {
		r.Address = []fhir.Address{{Use: "home", Line: []string{*pp.Address}}}
	}
	if pp.EmergencyContact != nil || pp.EmergencyPhone != nil {
		contact := fhir.PatientContact{
			Relationship: []fhir.CodeableConcept{*fhir.Coded(fhirmodels.SystemContactRole, "EP", "Emergency contact person")},
		}
		if pp.EmergencyContact != nil {
			contact.Name = splitName(*pp.EmergencyContact)
		}
		if pp.EmergencyPhone != nil {
			contact.Telecom = []fhir.ContactPoint{{System: "phone", Value: *pp.EmergencyPhone, Use: "home"}}
		}
		r.Contact = []fhir.PatientContact{contact}
	}
	return r
}

// splitName turns a free-text name into a HumanName: the last word is the
// family name and the words before it form a single given entry.
func splitName(full string) *fhir.HumanName {
	words := strings.Fields(full)
	if len(words) == 0 {
		return nil
	}
	n := &fhir.HumanName{Family: words[len(words)-1]}
	if len(words) > 1 {
		n.Given = []string{strings.Join(words[:len(words)-1], " ")}
	}
	return n
}

// ProviderFromFHIR maps an upstream Practitioner. The weekly template comes
// from DefaultWeek.
func ProviderFromFHIR(r *fhir.Practitioner) Provider {
	p := Provider{
		ID:           r.ID,
		Name:         fhir.ComposeName(fhir.FirstName(r.Name), fhir.UnknownProvider),
		Department:   DefaultDepartment,
		Email:        fhir.TelecomValue(r.Telecom, "email"),
		Phone:        fhir.TelecomValue(r.Telecom, "phone"),
		Active:       r.Active == nil || *r.Active,
		Availability: copyWeek(DefaultWeek),
	}
	if n := fhir.FirstName(r.Name); n != nil {
		p.LastName = n.Family
		if len(n.Given) > 0 {
			p.FirstName = n.Given[0]
		}
	}
	p.Qualification = DefaultQualification
	if len(r.Qualification) > 0 {
		if q := fhir.ExtractDisplayText(r.Qualification[0].Code); q != "" {
			p.Qualification = q
		}
	}
	p.Specialty = p.Qualification
	return p
}
