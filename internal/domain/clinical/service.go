package clinical

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/ehr/dashboard/internal/platform/dispatch"
	"github.com/ehr/dashboard/internal/platform/fhir"
	"github.com/ehr/dashboard/internal/platform/mockstore"
	"github.com/ehr/dashboard/pkg/fhirmodels"
)

// PatientDirectory resolves patient display names for new records.
type PatientDirectory interface {
	PatientName(ctx context.Context, id string) string
}

func isVitalSigns(o *fhir.Observation) bool {
	return fhir.HasCode(o.Category, fhirmodels.ObsCategoryVitalSigns)
}

var NoteCodec = dispatch.Codec[ClinicalNote, ClinicalNotePatch]{
	ResourceType: "DocumentReference",
	FromBundle: func(b *fhir.Bundle) []ClinicalNote {
		names := b.PatientNames()
		return lo.Map(fhir.ResourcesOf[*fhir.DocumentReference](b), func(r *fhir.DocumentReference, _ int) ClinicalNote {
			return NoteFromFHIR(r, names)
		})
	},
	FromResource: func(r fhir.TypedResource) (ClinicalNote, bool) {
		d, ok := r.(*fhir.DocumentReference)
		if !ok {
			return ClinicalNote{}, false
		}
		return NoteFromFHIR(d, nil), true
	},
	ToResource: func(p ClinicalNotePatch) fhir.TypedResource { return p.ToFHIR() },
}

// VitalsCodec reads only vital-signs observations out of a searchset.
var VitalsCodec = dispatch.Codec[VitalSigns, VitalSignsPatch]{
	ResourceType: "Observation",
	FromBundle: func(b *fhir.Bundle) []VitalSigns {
		names := b.PatientNames()
		return lo.FilterMap(fhir.ResourcesOf[*fhir.Observation](b), func(r *fhir.Observation, _ int) (VitalSigns, bool) {
			if !isVitalSigns(r) {
				return VitalSigns{}, false
			}
			return VitalsFromFHIR(r, names), true
		})
	},
	FromResource: func(r fhir.TypedResource) (VitalSigns, bool) {
		o, ok := r.(*fhir.Observation)
		if !ok {
			return VitalSigns{}, false
		}
		return VitalsFromFHIR(o, nil), true
	},
	ToResource: func(p VitalSignsPatch) fhir.TypedResource { return p.ToFHIR() },
}

// LabCodec reads every observation in a searchset that is not a vital-signs
// panel.
var LabCodec = dispatch.Codec[LabResult, LabResultPatch]{
	ResourceType: "Observation",
	FromBundle: func(b *fhir.Bundle) []LabResult {
		names := b.PatientNames()
		return lo.FilterMap(fhir.ResourcesOf[*fhir.Observation](b), func(r *fhir.Observation, _ int) (LabResult, bool) {
			if isVitalSigns(r) {
				return LabResult{}, false
			}
			return LabFromFHIR(r, names), true
		})
	},
	FromResource: func(r fhir.TypedResource) (LabResult, bool) {
		o, ok := r.(*fhir.Observation)
		if !ok {
			return LabResult{}, false
		}
		return LabFromFHIR(o, nil), true
	},
	ToResource: func(p LabResultPatch) fhir.TypedResource { return p.ToFHIR() },
}

var MedicationCodec = dispatch.Codec[Medication, MedicationPatch]{
	ResourceType: "MedicationRequest",
	FromBundle: func(b *fhir.Bundle) []Medication {
		names := b.PatientNames()
		return lo.Map(fhir.ResourcesOf[*fhir.MedicationRequest](b), func(r *fhir.MedicationRequest, _ int) Medication {
			return MedicationFromFHIR(r, names)
		})
	},
	FromResource: func(r fhir.TypedResource) (Medication, bool) {
		m, ok := r.(*fhir.MedicationRequest)
		if !ok {
			return Medication{}, false
		}
		return MedicationFromFHIR(m, nil), true
	},
	ToResource: func(p MedicationPatch) fhir.TypedResource { return p.ToFHIR() },
}

// Service serves a patient's clinical record: notes, vital signs, lab
// results and medications.
type Service struct {
	notes       *dispatch.Facade[ClinicalNote, ClinicalNotePatch]
	vitals      *dispatch.Facade[VitalSigns, VitalSignsPatch]
	labs        *dispatch.Facade[LabResult, LabResultPatch]
	medications *dispatch.Facade[Medication, MedicationPatch]
	patients    PatientDirectory
	logger      zerolog.Logger
	now         func() time.Time
}

// NewService wires the clinical facades. patients may be nil, in which case
// new records keep the patient name they were given.
func NewService(reg *mockstore.Registry, upstream fhir.Source, patients PatientDirectory, policy dispatch.Policy, logger zerolog.Logger) *Service {
	return &Service{
		notes: &dispatch.Facade[ClinicalNote, ClinicalNotePatch]{
			Label:    "clinical note",
			Codec:    NoteCodec,
			Store:    mockstore.NewCollection(reg, "clinicalNotes", func(n *ClinicalNote) *string { return &n.ID }),
			Upstream: upstream,
			Policy:   policy,
			Logger:   logger,
		},
		vitals: &dispatch.Facade[VitalSigns, VitalSignsPatch]{
			Label:    "vital signs",
			Codec:    VitalsCodec,
			Store:    mockstore.NewCollection(reg, "vitalSigns", func(v *VitalSigns) *string { return &v.ID }),
			Upstream: upstream,
			Policy:   policy,
			Logger:   logger,
		},
		labs: &dispatch.Facade[LabResult, LabResultPatch]{
			Label:    "lab result",
			Codec:    LabCodec,
			Store:    mockstore.NewCollection(reg, "labResults", func(l *LabResult) *string { return &l.ID }),
			Upstream: upstream,
			Policy:   policy,
			Logger:   logger,
		},
		medications: &dispatch.Facade[Medication, MedicationPatch]{
			Label:    "medication",
			Codec:    MedicationCodec,
			Store:    mockstore.NewCollection(reg, "medications", func(m *Medication) *string { return &m.ID }),
			Upstream: upstream,
			Policy:   policy,
			Logger:   logger,
		},
		patients: patients,
		logger:   logger,
		now:      time.Now,
	}
}

func requirePatient[T any](patientID string) (dispatch.ListEnvelope[T], bool) {
	if patientID == "" {
		return dispatch.ListFail[T](fmt.Errorf("%w: patient id is required", dispatch.ErrInvalidInput)), false
	}
	return dispatch.ListEnvelope[T]{}, true
}

// patientName fills a missing display name from the patient directory.
func (s *Service) patientName(ctx context.Context, patientID, name string) string {
	if name != "" || patientID == "" || s.patients == nil {
		return name
	}
	return s.patients.PatientName(ctx, patientID)
}

func (s *Service) today() string {
	return s.now().Format("2006-01-02")
}

// -- Clinical notes --

func (s *Service) NotesByPatient(ctx context.Context, patientID string) dispatch.ListEnvelope[ClinicalNote] {
	if env, ok := requirePatient[ClinicalNote](patientID); !ok {
		return env
	}
	params := fhir.BuildPatientScopedParams("DocumentReference", patientID, "", fhirmodels.DocumentStatusCurrent)
	return s.notes.Search(ctx, params, func(n ClinicalNote) bool { return n.PatientID == patientID })
}

func (s *Service) GetNote(ctx context.Context, id string) dispatch.Envelope[*ClinicalNote] {
	return s.notes.Get(ctx, id)
}

// CreateNote stores a note. Missing type and date default to a progress
// note written today.
func (s *Service) CreateNote(ctx context.Context, n ClinicalNote) dispatch.Envelope[ClinicalNote] {
	if n.Type == "" {
		n.Type = DefaultNoteType
	}
	if n.Date == "" {
		n.Date = s.today()
	}
	n.PatientName = s.patientName(ctx, n.PatientID, n.PatientName)
	return s.notes.Create(ctx, n)
}

// UpdateNote merges patch. The narrative sections share one attachment, so
// a patch touching any of them resends all of them.
func (s *Service) UpdateNote(ctx context.Context, id string, patch ClinicalNotePatch) dispatch.Envelope[ClinicalNote] {
	touched := lo.Compact([]*string{patch.ChiefComplaint, patch.HistoryOfPresentIllness, patch.PhysicalExam, patch.Assessment, patch.Plan, patch.FollowUp})
	if len(touched) > 0 {
		merged := s.notes.Apply(ctx, id, patch)
		if !merged.Success {
			return merged
		}
		full, err := dispatch.PatchOf[ClinicalNotePatch](merged.Data)
		if err != nil {
			return dispatch.Fail[ClinicalNote](err)
		}
		patch = full
	}
	return s.notes.Update(ctx, id, patch)
}

func (s *Service) DeleteNote(ctx context.Context, id string) dispatch.Envelope[string] {
	return s.notes.Delete(ctx, id)
}

// -- Vital signs --

func (s *Service) VitalsByPatient(ctx context.Context, patientID string) dispatch.ListEnvelope[VitalSigns] {
	if env, ok := requirePatient[VitalSigns](patientID); !ok {
		return env
	}
	params := fhir.BuildPatientScopedParams("Observation", patientID, fhirmodels.ObsCategoryVitalSigns, fhirmodels.ObsStatusFinal)
	return s.vitals.Search(ctx, params, func(v VitalSigns) bool { return v.PatientID == patientID })
}

func (s *Service) GetVitals(ctx context.Context, id string) dispatch.Envelope[*VitalSigns] {
	return s.vitals.Get(ctx, id)
}

// CreateVitals records a set of measurements, deriving BMI from weight and
// height when it was not given.
func (s *Service) CreateVitals(ctx context.Context, v VitalSigns) dispatch.Envelope[VitalSigns] {
	if v.Date == "" {
		v.Date = s.today()
	}
	v.PatientName = s.patientName(ctx, v.PatientID, v.PatientName)
	return s.vitals.Create(ctx, withBMI(v))
}

// UpdateVitals merges patch. A changed weight or height recomputes BMI
// unless the patch sets it. The measurements are components of one panel,
// so a patch touching any of them resends the whole panel.
func (s *Service) UpdateVitals(ctx context.Context, id string, patch VitalSignsPatch) dispatch.Envelope[VitalSigns] {
	touched := lo.CountBy(vitalSigns, func(vs vitalSign) bool { return *vs.field(&patch) != nil })
	if touched == 0 {
		return s.vitals.Update(ctx, id, patch)
	}
	merged := s.vitals.Apply(ctx, id, patch)
	if !merged.Success {
		return merged
	}
	v := merged.Data
	if patch.BMI == nil && (patch.Weight != nil || patch.Height != nil) {
		v.BMI = nil
		v = withBMI(v)
	}
	full, err := dispatch.PatchOf[VitalSignsPatch](v)
	if err != nil {
		return dispatch.Fail[VitalSigns](err)
	}
	return s.vitals.Update(ctx, id, full)
}

func (s *Service) DeleteVitals(ctx context.Context, id string) dispatch.Envelope[string] {
	return s.vitals.Delete(ctx, id)
}

// -- Lab results --

// LabsByPatient returns every laboratory result for a patient, pending ones
// included.
func (s *Service) LabsByPatient(ctx context.Context, patientID string) dispatch.ListEnvelope[LabResult] {
	if env, ok := requirePatient[LabResult](patientID); !ok {
		return env
	}
	params := fhir.BuildPatientScopedParams("Observation", patientID, fhirmodels.ObsCategoryLaboratory, "")
	return s.labs.Search(ctx, params, func(l LabResult) bool { return l.PatientID == patientID })
}

func (s *Service) GetLab(ctx context.Context, id string) dispatch.Envelope[*LabResult] {
	return s.labs.Get(ctx, id)
}

// CreateLab orders a lab. Missing status and category default to pending
// and Laboratory.
func (s *Service) CreateLab(ctx context.Context, l LabResult) dispatch.Envelope[LabResult] {
	if l.Status == "" {
		l.Status = LabPending
	}
	if !ValidLabStatus(l.Status) {
		return dispatch.Fail[LabResult](fmt.Errorf("%w: unknown lab status %q", dispatch.ErrInvalidInput, l.Status))
	}
	if l.Category == "" {
		l.Category = DefaultLabCategory
	}
	if l.OrderDate == "" {
		l.OrderDate = s.today()
	}
	if l.Results == nil {
		l.Results = []LabValue{}
	}
	l.PatientName = s.patientName(ctx, l.PatientID, l.PatientName)
	return s.labs.Create(ctx, l)
}

func (s *Service) UpdateLab(ctx context.Context, id string, patch LabResultPatch) dispatch.Envelope[LabResult] {
	if patch.Status != nil && !ValidLabStatus(*patch.Status) {
		return dispatch.Fail[LabResult](fmt.Errorf("%w: unknown lab status %q", dispatch.ErrInvalidInput, *patch.Status))
	}
	return s.labs.Update(ctx, id, patch)
}

// UpdateLabStatus moves a result through pending, completed and reviewed.
// Completing a result stamps today's result date.
func (s *Service) UpdateLabStatus(ctx context.Context, id, status string) dispatch.Envelope[LabResult] {
	patch := LabResultPatch{Status: &status}
	if status == LabCompleted {
		patch.ResultDate = lo.ToPtr(s.today())
	}
	return s.UpdateLab(ctx, id, patch)
}

func (s *Service) DeleteLab(ctx context.Context, id string) dispatch.Envelope[string] {
	return s.labs.Delete(ctx, id)
}

// -- Medications --

// MedicationsByPatient returns a patient's prescriptions, discontinued ones
// included.
func (s *Service) MedicationsByPatient(ctx context.Context, patientID string) dispatch.ListEnvelope[Medication] {
	if env, ok := requirePatient[Medication](patientID); !ok {
		return env
	}
	params := fhir.BuildPatientScopedParams("MedicationRequest", patientID, "", "")
	return s.medications.Search(ctx, params, func(m Medication) bool { return m.PatientID == patientID })
}

func (s *Service) GetMedication(ctx context.Context, id string) dispatch.Envelope[*Medication] {
	return s.medications.Get(ctx, id)
}

// CreateMedication prescribes a medication, active from today unless a
// start date is given.
func (s *Service) CreateMedication(ctx context.Context, m Medication) dispatch.Envelope[Medication] {
	if m.Status == "" {
		m.Status = MedicationActive
	}
	if m.StartDate == "" {
		m.StartDate = s.today()
	}
	if m.PrescribedBy == "" {
		m.PrescribedBy = fhir.UnknownProvider
	}
	m.PatientName = s.patientName(ctx, m.PatientID, m.PatientName)
	return s.medications.Create(ctx, m)
}

func (s *Service) UpdateMedication(ctx context.Context, id string, patch MedicationPatch) dispatch.Envelope[Medication] {
	return s.medications.Update(ctx, id, patch)
}

// DiscontinueMedication stops a prescription as of today. The end date
// lives inside the dosage, so the whole dosage is resent with it.
func (s *Service) DiscontinueMedication(ctx context.Context, id string) dispatch.Envelope[Medication] {
	merged := s.medications.Apply(ctx, id, MedicationPatch{
		Status:  lo.ToPtr(MedicationDiscontinued),
		EndDate: lo.ToPtr(s.today()),
	})
	if !merged.Success {
		return merged
	}
	full, err := dispatch.PatchOf[MedicationPatch](merged.Data)
	if err != nil {
		return dispatch.Fail[Medication](err)
	}
	return s.medications.Update(ctx, id, full)
}

func (s *Service) DeleteMedication(ctx context.Context, id string) dispatch.Envelope[string] {
	return s.medications.Delete(ctx, id)
}
