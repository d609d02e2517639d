package identity

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/ehr/dashboard/internal/platform/dispatch"
	"github.com/ehr/dashboard/internal/platform/fhir"
	"github.com/ehr/dashboard/internal/platform/mockstore"
)

// ErrNoProviders is returned by Current when no provider is available.
var ErrNoProviders = errors.New("no providers available")

// PatientCodec maps Patient entities to and from the upstream resource.
var PatientCodec = dispatch.Codec[Patient, PatientPatch]{
	ResourceType: "Patient",
	FromBundle: func(b *fhir.Bundle) []Patient {
		return lo.Map(fhir.ResourcesOf[*fhir.Patient](b), func(r *fhir.Patient, _ int) Patient {
			return PatientFromFHIR(r)
		})
	},
	FromResource: func(r fhir.TypedResource) (Patient, bool) {
		p, ok := r.(*fhir.Patient)
		if !ok {
			return Patient{}, false
		}
		return PatientFromFHIR(p), true
	},
	ToResource: func(pp PatientPatch) fhir.TypedResource { return pp.ToFHIR() },
}

// Service serves patients and providers.
type Service struct {
	patients *dispatch.Facade[Patient, PatientPatch]
	upstream fhir.Source
	logger   zerolog.Logger
}

func NewService(reg *mockstore.Registry, upstream fhir.Source, policy dispatch.Policy, logger zerolog.Logger) *Service {
	return &Service{
		patients: &dispatch.Facade[Patient, PatientPatch]{
			Label:    "patient",
			Codec:    PatientCodec,
			Store:    mockstore.NewCollection(reg, "patients", func(p *Patient) *string { return &p.ID }),
			Upstream: upstream,
			Policy:   policy,
			Logger:   logger,
		},
		upstream: upstream,
		logger:   logger,
	}
}

// -- Patients --

// SearchPatients looks patients up by name or id. A blank term lists the
// first page instead.
func (s *Service) SearchPatients(ctx context.Context, term string, mode fhir.SearchMode) dispatch.ListEnvelope[Patient] {
	params := fhir.BuildSearchParams(term, mode)
	if len(params) == 0 {
		return s.ListPatients(ctx, 1, fhir.DefaultSearchCount)
	}
	return s.patients.Search(ctx, params, patientMatcher(strings.TrimSpace(term), mode))
}

// ListPatients returns one page sorted by family name. page is 1-based.
// Session patients are appended to the first page only.
func (s *Service) ListPatients(ctx context.Context, page, limit int) dispatch.ListEnvelope[Patient] {
	if page < 1 {
		page = 1
	}
	keep := dispatch.NoAppend[Patient]
	if page == 1 {
		keep = nil
	}
	return s.patients.Search(ctx, fhir.BuildListParams(page, limit), keep)
}

func (s *Service) GetPatient(ctx context.Context, id string) dispatch.Envelope[*Patient] {
	return s.patients.Get(ctx, id)
}

// CreatePatient stores p. Lists left nil are stored as empty lists.
func (s *Service) CreatePatient(ctx context.Context, p Patient) dispatch.Envelope[Patient] {
	return s.patients.Create(ctx, withDefaults(p))
}

func (s *Service) UpdatePatient(ctx context.Context, id string, patch PatientPatch) dispatch.Envelope[Patient] {
	return s.patients.Update(ctx, id, patch)
}

func (s *Service) DeletePatient(ctx context.Context, id string) dispatch.Envelope[string] {
	return s.patients.Delete(ctx, id)
}

// PatientName resolves the display name of a patient, for denormalized
// copies on other records. Unknown ids yield fhir.UnknownPatient.
func (s *Service) PatientName(ctx context.Context, id string) string {
	env := s.patients.Get(ctx, id)
	if !env.Success || env.Data == nil {
		return fhir.UnknownPatient
	}
	if name := env.Data.FullName(); name != "" {
		return name
	}
	return fhir.UnknownPatient
}

func patientMatcher(term string, mode fhir.SearchMode) func(Patient) bool {
	if mode == fhir.SearchByID {
		return func(p Patient) bool { return p.ID == term }
	}
	needle := strings.ToLower(term)
	return func(p Patient) bool {
		return strings.Contains(strings.ToLower(p.FullName()), needle)
	}
}

// -- Providers --

// ListProviders returns the active upstream practitioners followed by the
// built-in demo providers.
func (s *Service) ListProviders(ctx context.Context) dispatch.ListEnvelope[Provider] {
	params := url.Values{}
	params.Set("active", "true")
	params.Set("_format", "json")

	bundle, err := s.upstream.Search(ctx, "Practitioner", params)
	if err != nil {
		s.logger.Error().Err(err).Str("resource_type", "Practitioner").Msg("upstream search failed")
		return dispatch.ListFail[Provider](err)
	}
	providers := lo.Map(fhir.ResourcesOf[*fhir.Practitioner](bundle), func(r *fhir.Practitioner, _ int) Provider {
		return ProviderFromFHIR(r)
	})
	for _, p := range DemoProviders {
		demo, _ := demoProvider(p.ID)
		providers = append(providers, demo)
	}
	return dispatch.List(providers, len(providers), "")
}

// GetProvider returns a demo provider or reads the practitioner upstream.
func (s *Service) GetProvider(ctx context.Context, id string) dispatch.Envelope[*Provider] {
	if id == "" {
		return dispatch.Fail[*Provider](fmt.Errorf("%w: provider id is required", dispatch.ErrInvalidInput))
	}
	if p, ok := demoProvider(id); ok {
		return dispatch.OK(&p, "")
	}
	res, err := s.upstream.Read(ctx, "Practitioner", id)
	if err != nil {
		if !errors.Is(err, fhir.ErrResourceNotFound) {
			s.logger.Error().Err(err).Str("resource_type", "Practitioner").Str("id", id).Msg("upstream read failed")
		}
		return dispatch.Fail[*Provider](err)
	}
	pr, ok := res.(*fhir.Practitioner)
	if !ok {
		return dispatch.Fail[*Provider](&fhir.UpstreamError{Op: "read", ResourceType: "Practitioner", Message: "unexpected resource " + res.ResourceName()})
	}
	p := ProviderFromFHIR(pr)
	return dispatch.OK(&p, "")
}

// CurrentProvider returns the provider the dashboard acts as: the first one
// listed.
func (s *Service) CurrentProvider(ctx context.Context) dispatch.Envelope[*Provider] {
	list := s.ListProviders(ctx)
	if !list.Success {
		return dispatch.Envelope[*Provider]{Error: list.Error, ErrorKind: list.ErrorKind}
	}
	if len(list.Data) == 0 {
		return dispatch.Fail[*Provider](fmt.Errorf("%w: %w", mockstore.ErrNotFound, ErrNoProviders))
	}
	p := list.Data[0]
	return dispatch.OK(&p, "")
}
