package scheduling

import (
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/ehr/dashboard/internal/platform/fhir"
	"github.com/ehr/dashboard/pkg/fhirmodels"
)

const startLayout = "2006-01-02T15:04:05"

// MapFHIRStatus maps an upstream appointment status. Unknown values map to
// scheduled.
func MapFHIRStatus(status string) string {
	switch status {
	case fhirmodels.AppointmentBooked, fhirmodels.AppointmentPending:
		return StatusScheduled
	case fhirmodels.AppointmentArrived, fhirmodels.AppointmentCheckedIn:
		return StatusConfirmed
	case fhirmodels.AppointmentFulfilled:
		return StatusCompleted
	case fhirmodels.AppointmentCancelled:
		return StatusCancelled
	case fhirmodels.AppointmentNoShow:
		return StatusNoShow
	}
	return StatusScheduled
}

// ToFHIRStatus maps a dashboard status for writes. confirmed is sent as
// booked, so it reads back as scheduled.
func ToFHIRStatus(status string) string {
	switch status {
	case StatusConfirmed:
		return fhirmodels.AppointmentBooked
	case StatusCompleted:
		return fhirmodels.AppointmentFulfilled
	case StatusCancelled:
		return fhirmodels.AppointmentCancelled
	case StatusNoShow:
		return fhirmodels.AppointmentNoShow
	}
	return fhirmodels.AppointmentBooked
}

// AppointmentFromFHIR maps an upstream Appointment. names resolves patient
// ids to display names from included Patient resources and may be nil.
func AppointmentFromFHIR(r *fhir.Appointment, names map[string]string) Appointment {
	a := Appointment{
		ID:           r.ID,
		PatientName:  fhir.UnknownPatient,
		ProviderName: fhir.UnknownProvider,
		Date:         fhir.DatePart(r.Start),
		Time:         fhir.TimePart(r.Start),
		Duration:     duration(r),
		Status:       MapFHIRStatus(r.Status),
		Reason:       fhir.FirstDisplayText(r.ReasonCode),
		Notes:        r.Description,
	}

	if p, ok := findParticipant(r.Participant, "Patient", fhirmodels.ParticipantPatientCode, fhirmodels.ParticipantPrimary); ok {
		a.PatientID = fhir.ReferenceID(p.Actor)
		switch {
		case p.Actor.Display != "":
			a.PatientName = p.Actor.Display
		case names[a.PatientID] != "":
			a.PatientName = names[a.PatientID]
		}
	}
	if p, ok := findParticipant(r.Participant, "Practitioner", fhirmodels.ParticipantPractitionerCode, fhirmodels.ParticipantPrimaryCare); ok {
		a.ProviderID = fhir.ReferenceID(p.Actor)
		if p.Actor.Display != "" {
			a.ProviderName = p.Actor.Display
		}
	}
	if p, ok := findParticipant(r.Participant, "Location", fhirmodels.ParticipantLocation); ok {
		a.Location = lo.Ternary(p.Actor.Display != "", p.Actor.Display, fhir.ReferenceID(p.Actor))
	}

	a.Type = fhir.ExtractDisplayText(r.AppointmentType)
	if a.Type == "" {
		a.Type = fhir.FirstDisplayText(r.ServiceType)
	}
	if a.Type == "" {
		a.Type = DefaultType
	}
	return a
}

// findParticipant returns the first participant whose actor references
// resourceType, then the first whose type carries one of codes.
func findParticipant(ps []fhir.AppointmentParticipant, resourceType string, codes ...string) (fhir.AppointmentParticipant, bool) {
	withActor := lo.Filter(ps, func(p fhir.AppointmentParticipant, _ int) bool { return p.Actor != nil })
	if p, ok := lo.Find(withActor, func(p fhir.AppointmentParticipant) bool {
		return p.Actor.Type == resourceType || strings.Contains(p.Actor.Reference, resourceType+"/")
	}); ok {
		return p, true
	}
	return lo.Find(withActor, func(p fhir.AppointmentParticipant) bool {
		return fhir.HasCode(p.Type, codes...)
	})
}

func duration(r *fhir.Appointment) int {
	start, okStart := fhir.ParseDateTime(r.Start)
	end, okEnd := fhir.ParseDateTime(r.End)
	if okStart && okEnd && end.After(start) {
		return int(end.Sub(start).Minutes())
	}
	if r.MinutesDuration > 0 {
		return r.MinutesDuration
	}
	return DefaultDuration
}

// ToFHIR builds the Appointment resource for the fields set in the patch.
// start and end are only written when both date and time are present.
func (ap AppointmentPatch) ToFHIR() *fhir.Appointment {
	r := &fhir.Appointment{ResourceType: "Appointment"}

	if ap.Status != nil {
		r.Status = ToFHIRStatus(*ap.Status)
	}
	if ap.Type != nil {
		r.AppointmentType = fhir.Coded(fhirmodels.SystemAppointmentType, "ROUTINE", *ap.Type)
	}
	if ap.Reason != nil {
		r.ReasonCode = []fhir.CodeableConcept{*fhir.Text(*ap.Reason)}
	}
	if ap.Notes != nil {
		r.Description = *ap.Notes
	}
	if ap.Date != nil && ap.Time != nil {
		mins := DefaultDuration
		if ap.Duration != nil && *ap.Duration > 0 {
			mins = *ap.Duration
		}
		if start, err := time.Parse(startLayout, *ap.Date+"T"+*ap.Time+":00"); err == nil {
			r.Start = start.Format(startLayout)
			r.End = start.Add(time.Duration(mins) * time.Minute).Format(startLayout)
		}
	}
	if ap.Duration != nil && *ap.Duration > 0 {
		r.MinutesDuration = *ap.Duration
	}

	if ap.PatientID != nil {
		r.Participant = append(r.Participant, participant(
			fhirmodels.ParticipantPrimary, "primary performer",
			fhir.Reference{Reference: fhir.FormatReference("Patient", *ap.PatientID), Display: lo.FromPtr(ap.PatientName)},
		))
	}
	if ap.ProviderID != nil {
		r.Participant = append(r.Participant, participant(
			fhirmodels.ParticipantPrimaryCare, "primary care provider",
			fhir.Reference{Reference: fhir.FormatReference("Practitioner", *ap.ProviderID), Display: lo.FromPtr(ap.ProviderName)},
		))
	}
	if ap.Location != nil && *ap.Location != "" {
		r.Participant = append(r.Participant, participant(
			fhirmodels.ParticipantLocation, "location",
			fhir.Reference{Type: "Location", Display: *ap.Location},
		))
	}
	return r
}

func participant(code, display string, actor fhir.Reference) fhir.AppointmentParticipant {
	return fhir.AppointmentParticipant{
		Type:     []fhir.CodeableConcept{*fhir.Coded(fhirmodels.SystemParticipationType, code, display)},
		Actor:    &actor,
		Required: "required",
		Status:   "accepted",
	}
}
