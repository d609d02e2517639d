package clinical

import (
	"strconv"

	"github.com/samber/lo"

	"github.com/ehr/dashboard/internal/platform/fhir"
	"github.com/ehr/dashboard/pkg/fhirmodels"
)

// MapMedicationStatus maps a MedicationRequest status. A missing or unknown
// status reads as active.
func MapMedicationStatus(status string) string {
	switch status {
	case fhirmodels.MedRequestStopped, fhirmodels.MedRequestCancelled:
		return MedicationDiscontinued
	case fhirmodels.MedRequestCompleted:
		return MedicationCompleted
	}
	return MedicationActive
}

// ToMedRequestStatus is the inverse of MapMedicationStatus.
func ToMedRequestStatus(status string) string {
	switch status {
	case MedicationDiscontinued:
		return fhirmodels.MedRequestStopped
	case MedicationCompleted:
		return fhirmodels.MedRequestCompleted
	}
	return fhirmodels.MedRequestActive
}

// MedicationFromFHIR maps a MedicationRequest.
func MedicationFromFHIR(r *fhir.MedicationRequest, names map[string]string) Medication {
	m := Medication{
		ID:             r.ID,
		MedicationName: fhir.ExtractDisplayText(r.MedicationCodeableConcept),
		StartDate:      fhir.DatePart(r.AuthoredOn),
		PrescribedBy:   fhir.UnknownProvider,
		Indication:     fhir.FirstDisplayText(r.ReasonCode),
		Status:         MapMedicationStatus(r.Status),
		Notes:          fhir.FirstNote(r.Note),
	}
	m.PatientID, m.PatientName = subject(r.Subject, names)
	if r.Requester != nil && r.Requester.Display != "" {
		m.PrescribedBy = r.Requester.Display
	}

	if len(r.DosageInstruction) == 0 {
		return m
	}
	d := r.DosageInstruction[0]
	m.Dosage = d.Text
	m.Route = fhir.ExtractDisplayText(d.Route)
	if t := d.Timing; t != nil {
		switch {
		case t.Repeat != nil && t.Repeat.Frequency > 0:
			m.Frequency = strconv.Itoa(t.Repeat.Frequency)
		case t.Code != nil:
			m.Frequency = fhir.ExtractDisplayText(t.Code)
		}
		if t.Repeat != nil && t.Repeat.BoundsPeriod != nil {
			m.EndDate = fhir.DatePart(t.Repeat.BoundsPeriod.End)
		}
	}
	return m
}

// ToFHIR builds a MedicationRequest for the fields set in the patch. A
// numeric frequency becomes a daily repeat count; free text goes to the
// timing code.
func (mp MedicationPatch) ToFHIR() *fhir.MedicationRequest {
	r := &fhir.MedicationRequest{ResourceType: "MedicationRequest", Intent: "order"}
	if mp.Status != nil {
		r.Status = ToMedRequestStatus(*mp.Status)
	}
	if mp.MedicationName != nil {
		r.MedicationCodeableConcept = &fhir.CodeableConcept{
			Coding: []fhir.Coding{{System: fhirmodels.SystemRxNorm, Display: *mp.MedicationName}},
		}
	}
	if mp.PatientID != nil {
		r.Subject = &fhir.Reference{Reference: fhir.FormatReference("Patient", *mp.PatientID), Display: lo.FromPtr(mp.PatientName)}
	}
	if mp.StartDate != nil && *mp.StartDate != "" {
		r.AuthoredOn = *mp.StartDate + "T00:00:00Z"
	}
	if mp.PrescribedBy != nil {
		r.Requester = &fhir.Reference{Display: *mp.PrescribedBy}
	}
	if mp.Indication != nil {
		r.ReasonCode = []fhir.CodeableConcept{*fhir.Text(*mp.Indication)}
	}
	if mp.Notes != nil && *mp.Notes != "" {
		r.Note = []fhir.Annotation{{Text: *mp.Notes}}
	}

	if mp.Dosage == nil && mp.Route == nil && mp.Frequency == nil && mp.EndDate == nil {
		return r
	}
	d := fhir.Dosage{Text: lo.FromPtr(mp.Dosage)}
	if mp.Route != nil && *mp.Route != "" {
		d.Route = &fhir.CodeableConcept{Coding: []fhir.Coding{{Display: *mp.Route}}}
	}
	var timing fhir.Timing
	if f := lo.FromPtr(mp.Frequency); f != "" {
		if n, err := strconv.Atoi(f); err == nil && n > 0 {
			timing.Repeat = &fhir.TimingRepeat{Frequency: n, Period: 1, PeriodUnit: "d"}
		} else {
			timing.Code = fhir.Text(f)
		}
	}
	if end := lo.FromPtr(mp.EndDate); end != "" {
		if timing.Repeat == nil {
			timing.Repeat = &fhir.TimingRepeat{}
		}
		timing.Repeat.BoundsPeriod = &fhir.Period{End: end}
	}
	if timing.Repeat != nil || timing.Code != nil {
		d.Timing = &timing
	}
	r.DosageInstruction = []fhir.Dosage{d}
	return r
}
