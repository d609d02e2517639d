package clinical

import (
	"math"

	"github.com/samber/lo"

	"github.com/ehr/dashboard/internal/platform/fhir"
	"github.com/ehr/dashboard/pkg/fhirmodels"
)

// vitalSign binds one LOINC-coded measurement to its entity field.
type vitalSign struct {
	code    string
	display string
	unit    string
	field   func(*VitalSignsPatch) **float64
}

var vitalSigns = []vitalSign{
	{fhirmodels.LOINCBodyTemperature, "Body temperature", "[degF]", func(p *VitalSignsPatch) **float64 { return &p.Temperature }},
	{fhirmodels.LOINCSystolicBP, "Systolic blood pressure", "mm[Hg]", func(p *VitalSignsPatch) **float64 { return &p.BloodPressureSystolic }},
	{fhirmodels.LOINCDiastolicBP, "Diastolic blood pressure", "mm[Hg]", func(p *VitalSignsPatch) **float64 { return &p.BloodPressureDiastolic }},
	{fhirmodels.LOINCHeartRate, "Heart rate", "/min", func(p *VitalSignsPatch) **float64 { return &p.HeartRate }},
	{fhirmodels.LOINCRespiratoryRate, "Respiratory rate", "/min", func(p *VitalSignsPatch) **float64 { return &p.RespiratoryRate }},
	{fhirmodels.LOINCOxygenSaturation, "Oxygen saturation", "%", func(p *VitalSignsPatch) **float64 { return &p.OxygenSaturation }},
	{fhirmodels.LOINCBodyWeight, "Body weight", "kg", func(p *VitalSignsPatch) **float64 { return &p.Weight }},
	{fhirmodels.LOINCBodyHeight, "Body height", "cm", func(p *VitalSignsPatch) **float64 { return &p.Height }},
	{fhirmodels.LOINCBMI, "Body mass index", "kg/m2", func(p *VitalSignsPatch) **float64 { return &p.BMI }},
	{fhirmodels.LOINCPainSeverity, "Pain severity", "{score}", func(p *VitalSignsPatch) **float64 { return &p.Pain }},
}

// ComputeBMI returns weight(kg) / height(m)², rounded to one decimal, or
// false when either input is missing or not positive.
func ComputeBMI(weightKg, heightCm *float64) (float64, bool) {
	if weightKg == nil || heightCm == nil || *weightKg <= 0 || *heightCm <= 0 {
		return 0, false
	}
	m := *heightCm / 100
	return math.Round(*weightKg/(m*m)*10) / 10, true
}

// VitalsFromFHIR maps a vital-signs Observation. Both the panel form, with
// one component per measurement, and a single-measurement observation are
// read. Measurements that are absent stay zero.
func VitalsFromFHIR(r *fhir.Observation, names map[string]string) VitalSigns {
	var p VitalSignsPatch
	set := func(cc *fhir.CodeableConcept, q *fhir.Quantity) {
		if cc == nil || q == nil || q.Value == nil {
			return
		}
		for _, vs := range vitalSigns {
			if fhir.HasCode([]fhir.CodeableConcept{*cc}, vs.code) {
				*vs.field(&p) = fhir.Float(*q.Value)
				return
			}
		}
	}
	set(r.Code, r.ValueQuantity)
	for _, c := range r.Component {
		set(c.Code, c.ValueQuantity)
	}

	v := VitalSigns{
		ID:                     r.ID,
		Date:                   fhir.DatePart(r.EffectiveDateTime),
		Time:                   fhir.TimePart(r.EffectiveDateTime),
		Temperature:            lo.FromPtr(p.Temperature),
		BloodPressureSystolic:  lo.FromPtr(p.BloodPressureSystolic),
		BloodPressureDiastolic: lo.FromPtr(p.BloodPressureDiastolic),
		HeartRate:              lo.FromPtr(p.HeartRate),
		RespiratoryRate:        lo.FromPtr(p.RespiratoryRate),
		OxygenSaturation:       lo.FromPtr(p.OxygenSaturation),
		Weight:                 p.Weight,
		Height:                 p.Height,
		BMI:                    p.BMI,
		Pain:                   p.Pain,
		Notes:                  fhir.FirstNote(r.Note),
	}
	v.PatientID, v.PatientName = subject(r.Subject, names)
	return withBMI(v)
}

// withBMI fills BMI from weight and height when it was not recorded.
func withBMI(v VitalSigns) VitalSigns {
	if v.BMI != nil {
		return v
	}
	if bmi, ok := ComputeBMI(v.Weight, v.Height); ok {
		v.BMI = &bmi
	}
	return v
}

// ToFHIR builds a vital-signs panel Observation with one component per
// measurement set in the patch.
func (vp VitalSignsPatch) ToFHIR() *fhir.Observation {
	r := &fhir.Observation{
		ResourceType: "Observation",
		Status:       fhirmodels.ObsStatusFinal,
		Category: []fhir.CodeableConcept{
			*fhir.Coded(fhirmodels.SystemObservationCategory, fhirmodels.ObsCategoryVitalSigns, "Vital Signs"),
		},
		Code: fhir.Coded(fhirmodels.SystemLOINC, fhirmodels.LOINCVitalSignsPanel, "Vital signs panel"),
	}
	if vp.PatientID != nil {
		r.Subject = &fhir.Reference{Reference: fhir.FormatReference("Patient", *vp.PatientID), Display: lo.FromPtr(vp.PatientName)}
	}
	if vp.Date != nil && *vp.Date != "" {
		r.EffectiveDateTime = *vp.Date
		if vp.Time != nil && *vp.Time != "" {
			r.EffectiveDateTime += "T" + *vp.Time + ":00"
		}
	}
	if vp.Notes != nil && *vp.Notes != "" {
		r.Note = []fhir.Annotation{{Text: *vp.Notes}}
	}

	for _, vs := range vitalSigns {
		val := *vs.field(&vp)
		if val == nil {
			continue
		}
		r.Component = append(r.Component, fhir.ObservationComponent{
			Code:          fhir.Coded(fhirmodels.SystemLOINC, vs.code, vs.display),
			ValueQuantity: &fhir.Quantity{Value: fhir.Float(*val), Unit: vs.unit, System: fhirmodels.SystemUCUM, Code: vs.unit},
		})
	}
	return r
}
