package clinical

import (
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/ehr/dashboard/internal/platform/fhir"
	"github.com/ehr/dashboard/pkg/fhirmodels"
)

// MapLabStatus maps an Observation status to a lab result status.
func MapLabStatus(status string) string {
	switch status {
	case fhirmodels.ObsStatusFinal:
		return LabCompleted
	case fhirmodels.ObsStatusAmended, fhirmodels.ObsStatusCorrected:
		return LabReviewed
	}
	return LabPending
}

// ToObservationStatus is the inverse of MapLabStatus.
func ToObservationStatus(status string) string {
	switch status {
	case LabCompleted:
		return fhirmodels.ObsStatusFinal
	case LabReviewed:
		return fhirmodels.ObsStatusAmended
	}
	return fhirmodels.ObsStatusPreliminary
}

// ValidLabStatus reports whether status is one a lab result can take.
func ValidLabStatus(status string) bool {
	return lo.Contains([]string{LabPending, LabCompleted, LabReviewed}, status)
}

func interpretation(ccs []fhir.CodeableConcept) string {
	switch {
	case fhir.HasCode(ccs, fhirmodels.InterpretationCriticalAbnorm, "HH", "LL"):
		return ValueCritical
	case fhir.HasCode(ccs, fhirmodels.InterpretationAbnormal, "H", "L"):
		return ValueAbnormal
	}
	return ValueNormal
}

func interpretationCode(status string) *fhir.CodeableConcept {
	switch status {
	case ValueCritical:
		return fhir.Coded(fhirmodels.SystemInterpretation, fhirmodels.InterpretationCriticalAbnorm, "Critical abnormal")
	case ValueAbnormal:
		return fhir.Coded(fhirmodels.SystemInterpretation, fhirmodels.InterpretationAbnormal, "Abnormal")
	}
	return fhir.Coded(fhirmodels.SystemInterpretation, fhirmodels.InterpretationNormal, "Normal")
}

// LabFromFHIR maps a laboratory Observation. Each component is one result
// value; an observation without components yields a single value named
// after the test.
func LabFromFHIR(r *fhir.Observation, names map[string]string) LabResult {
	l := LabResult{
		ID:         r.ID,
		OrderDate:  fhir.DatePart(r.EffectiveDateTime),
		ResultDate: fhir.DatePart(r.Issued),
		TestName:   fhir.ExtractDisplayText(r.Code),
		Category:   DefaultLabCategory,
		Status:     MapLabStatus(r.Status),
		Notes:      fhir.FirstNote(r.Note),
	}
	l.PatientID, l.PatientName = subject(r.Subject, names)
	l.ProviderID, l.ProviderName = performer(r.Performer)

	if cc, ok := lo.Find(r.Category, func(cc fhir.CodeableConcept) bool {
		return !fhir.HasCode([]fhir.CodeableConcept{cc}, fhirmodels.ObsCategoryLaboratory)
	}); ok {
		if text := fhir.ExtractDisplayText(&cc); text != "" {
			l.Category = text
		}
	}

	l.Results = lo.Map(r.Component, func(c fhir.ObservationComponent, _ int) LabValue {
		return labValue(fhir.ExtractDisplayText(c.Code), c.ValueQuantity, c.ValueString, c.ReferenceRange, c.Interpretation)
	})
	if len(l.Results) == 0 && (r.ValueQuantity != nil || r.ValueString != "") {
		l.Results = []LabValue{labValue(l.TestName, r.ValueQuantity, r.ValueString, r.ReferenceRange, r.Interpretation)}
	}
	if l.Results == nil {
		l.Results = []LabValue{}
	}
	return l
}

func labValue(name string, q *fhir.Quantity, s string, ranges []fhir.ObservationReferenceRange, interp []fhir.CodeableConcept) LabValue {
	v := LabValue{Name: name, Value: s, Status: interpretation(interp)}
	if q != nil && q.Value != nil {
		v.Value = strconv.FormatFloat(*q.Value, 'f', -1, 64)
		v.Unit = q.Unit
	}
	if len(ranges) > 0 {
		v.ReferenceRange = ranges[0].Text
	}
	return v
}

// ToFHIR builds a laboratory Observation for the fields set in the patch.
// Numeric values are sent as quantities, anything else as strings.
func (lp LabResultPatch) ToFHIR() *fhir.Observation {
	r := &fhir.Observation{ResourceType: "Observation"}
	if lp.Status != nil {
		r.Status = ToObservationStatus(*lp.Status)
	}
	if lp.Category != nil || lp.TestName != nil {
		r.Category = []fhir.CodeableConcept{
			*fhir.Coded(fhirmodels.SystemObservationCategory, fhirmodels.ObsCategoryLaboratory, "Laboratory"),
		}
		if c := lo.FromPtr(lp.Category); c != "" && c != DefaultLabCategory {
			r.Category = append(r.Category, *fhir.Text(c))
		}
	}
	if lp.TestName != nil {
		r.Code = fhir.Coded(fhirmodels.SystemLOINC, fhirmodels.LOINCLabReport, *lp.TestName)
	}
	if lp.PatientID != nil {
		r.Subject = &fhir.Reference{Reference: fhir.FormatReference("Patient", *lp.PatientID), Display: lo.FromPtr(lp.PatientName)}
	}
	if lp.ProviderID != nil {
		r.Performer = []fhir.Reference{{Reference: fhir.FormatReference("Practitioner", *lp.ProviderID), Display: lo.FromPtr(lp.ProviderName)}}
	}
	if lp.OrderDate != nil && *lp.OrderDate != "" {
		r.EffectiveDateTime = *lp.OrderDate
	}
	if lp.ResultDate != nil && *lp.ResultDate != "" {
		r.Issued = *lp.ResultDate
	}
	if lp.Notes != nil && *lp.Notes != "" {
		r.Note = []fhir.Annotation{{Text: *lp.Notes}}
	}
	if lp.Results != nil {
		r.Component = lo.Map(*lp.Results, func(v LabValue, _ int) fhir.ObservationComponent {
			c := fhir.ObservationComponent{
				Code:           fhir.Text(v.Name),
				Interpretation: []fhir.CodeableConcept{*interpretationCode(v.Status)},
			}
			if f, err := strconv.ParseFloat(strings.TrimSpace(v.Value), 64); err == nil {
				c.ValueQuantity = &fhir.Quantity{Value: fhir.Float(f), Unit: v.Unit}
			} else {
				c.ValueString = v.Value
			}
			if v.ReferenceRange != "" {
				c.ReferenceRange = []fhir.ObservationReferenceRange{{Text: v.ReferenceRange}}
			}
			return c
		})
	}
	return r
}
