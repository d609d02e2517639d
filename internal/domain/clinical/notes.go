package clinical

import (
	"encoding/base64"
	"encoding/json"

	"github.com/samber/lo"

	"github.com/ehr/dashboard/internal/platform/fhir"
	"github.com/ehr/dashboard/pkg/fhirmodels"
)

// noteSections is the attachment body of a clinical note document.
type noteSections struct {
	ChiefComplaint          string `json:"chiefComplaint,omitempty"`
	HistoryOfPresentIllness string `json:"historyOfPresentIllness,omitempty"`
	PhysicalExam            string `json:"physicalExam,omitempty"`
	Assessment              string `json:"assessment,omitempty"`
	Plan                    string `json:"plan,omitempty"`
	FollowUp                string `json:"followUp,omitempty"`
}

// subject resolves a patient reference to its id and display name. names
// holds included Patient resources and may be nil.
func subject(ref *fhir.Reference, names map[string]string) (string, string) {
	id := fhir.ReferenceID(ref)
	switch {
	case ref != nil && ref.Display != "":
		return id, ref.Display
	case names[id] != "":
		return id, names[id]
	}
	return id, fhir.UnknownPatient
}

func performer(refs []fhir.Reference) (string, string) {
	if len(refs) == 0 {
		return "", fhir.UnknownProvider
	}
	return fhir.ReferenceID(&refs[0]), lo.Ternary(refs[0].Display != "", refs[0].Display, fhir.UnknownProvider)
}

// NoteFromFHIR maps a DocumentReference. The narrative sections are read
// back from the attachment when it carries them.
func NoteFromFHIR(r *fhir.DocumentReference, names map[string]string) ClinicalNote {
	n := ClinicalNote{
		ID:             r.ID,
		Date:           fhir.DatePart(r.Date),
		Type:           noteType(r.Type),
		ChiefComplaint: r.Description,
	}
	n.PatientID, n.PatientName = subject(r.Subject, names)
	n.ProviderID, n.ProviderName = performer(r.Author)

	if len(r.Content) == 0 || r.Content[0].Attachment == nil {
		return n
	}
	att := r.Content[0].Attachment
	n.Assessment = att.Title

	var sections noteSections
	if raw, err := base64.StdEncoding.DecodeString(att.Data); err == nil && json.Unmarshal(raw, &sections) == nil {
		if sections.ChiefComplaint != "" {
			n.ChiefComplaint = sections.ChiefComplaint
		}
		if sections.Assessment != "" {
			n.Assessment = sections.Assessment
		}
		n.HistoryOfPresentIllness = sections.HistoryOfPresentIllness
		n.PhysicalExam = sections.PhysicalExam
		n.Plan = sections.Plan
		n.FollowUp = sections.FollowUp
	}
	return n
}

// noteType prefers the type's text, then its first coding's display. The
// LOINC code alone does not name a note type.
func noteType(cc *fhir.CodeableConcept) string {
	if cc == nil {
		return DefaultNoteType
	}
	if cc.Text != "" {
		return cc.Text
	}
	if len(cc.Coding) > 0 && cc.Coding[0].Display != "" {
		return cc.Coding[0].Display
	}
	return DefaultNoteType
}

// ToFHIR builds the DocumentReference for the fields set in the patch. Any
// narrative section in the patch rewrites the attachment.
func (np ClinicalNotePatch) ToFHIR() *fhir.DocumentReference {
	r := &fhir.DocumentReference{
		ResourceType: "DocumentReference",
		Status:       fhirmodels.DocumentStatusCurrent,
		Category: []fhir.CodeableConcept{
			*fhir.Coded(fhirmodels.SystemDocumentCategory, fhirmodels.DocumentCategoryClinic, "Clinical Note"),
		},
	}
	if np.Type != nil {
		r.Type = fhir.Coded(fhirmodels.SystemLOINC, fhirmodels.LOINCProgressNote, *np.Type)
	}
	if np.PatientID != nil {
		r.Subject = &fhir.Reference{Reference: fhir.FormatReference("Patient", *np.PatientID), Display: lo.FromPtr(np.PatientName)}
	}
	if np.ProviderID != nil {
		r.Author = []fhir.Reference{{Reference: fhir.FormatReference("Practitioner", *np.ProviderID), Display: lo.FromPtr(np.ProviderName)}}
	}
	if np.Date != nil && *np.Date != "" {
		r.Date = *np.Date + "T00:00:00Z"
	}
	if np.ChiefComplaint != nil {
		r.Description = *np.ChiefComplaint
	}

	sections := noteSections{
		ChiefComplaint:          lo.FromPtr(np.ChiefComplaint),
		HistoryOfPresentIllness: lo.FromPtr(np.HistoryOfPresentIllness),
		PhysicalExam:            lo.FromPtr(np.PhysicalExam),
		Assessment:              lo.FromPtr(np.Assessment),
		Plan:                    lo.FromPtr(np.Plan),
		FollowUp:                lo.FromPtr(np.FollowUp),
	}
	if sections != (noteSections{}) {
		data, _ := json.Marshal(sections)
		r.Content = []fhir.DocumentContent{{Attachment: &fhir.Attachment{
			ContentType: "application/json",
			Title:       sections.Assessment,
			Data:        base64.StdEncoding.EncodeToString(data),
		}}}
	}
	return r
}
