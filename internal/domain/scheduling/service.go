package scheduling

import (
	"context"
	"fmt"
	"net/url"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/ehr/dashboard/internal/domain/identity"
	"github.com/ehr/dashboard/internal/platform/dispatch"
	"github.com/ehr/dashboard/internal/platform/fhir"
	"github.com/ehr/dashboard/internal/platform/mockstore"
)

// ProviderDirectory looks providers up for availability checks.
type ProviderDirectory interface {
	ListProviders(ctx context.Context) dispatch.ListEnvelope[identity.Provider]
	GetProvider(ctx context.Context, id string) dispatch.Envelope[*identity.Provider]
}

var AppointmentCodec = dispatch.Codec[Appointment, AppointmentPatch]{
	ResourceType: "Appointment",
	FromBundle: func(b *fhir.Bundle) []Appointment {
		names := b.PatientNames()
		return lo.Map(fhir.ResourcesOf[*fhir.Appointment](b), func(r *fhir.Appointment, _ int) Appointment {
			return AppointmentFromFHIR(r, names)
		})
	},
	FromResource: func(r fhir.TypedResource) (Appointment, bool) {
		a, ok := r.(*fhir.Appointment)
		if !ok {
			return Appointment{}, false
		}
		return AppointmentFromFHIR(a, nil), true
	},
	ToResource: func(ap AppointmentPatch) fhir.TypedResource { return ap.ToFHIR() },
}

type Service struct {
	appointments *dispatch.Facade[Appointment, AppointmentPatch]
	providers    ProviderDirectory
	logger       zerolog.Logger
}

func NewService(reg *mockstore.Registry, upstream fhir.Source, providers ProviderDirectory, policy dispatch.Policy, logger zerolog.Logger) *Service {
	return &Service{
		appointments: &dispatch.Facade[Appointment, AppointmentPatch]{
			Label:    "appointment",
			Codec:    AppointmentCodec,
			Store:    mockstore.NewCollection(reg, "appointments", func(a *Appointment) *string { return &a.ID }),
			Upstream: upstream,
			Policy:   policy,
			Logger:   logger,
		},
		providers: providers,
		logger:    logger,
	}
}

// GetByDateRange returns appointments whose date falls within [start, end].
// Dates are ISO strings; either bound may be empty.
func (s *Service) GetByDateRange(ctx context.Context, start, end string) dispatch.ListEnvelope[Appointment] {
	params := fhir.BuildDateRangeParams(start, end)
	params.Set("_include", "Appointment:patient")
	return s.appointments.Search(ctx, params, func(a Appointment) bool {
		return (start == "" || a.Date >= start) && (end == "" || a.Date <= end)
	})
}

func (s *Service) GetByPatient(ctx context.Context, patientID string) dispatch.ListEnvelope[Appointment] {
	if patientID == "" {
		return dispatch.ListFail[Appointment](fmt.Errorf("%w: patient id is required", dispatch.ErrInvalidInput))
	}
	params := url.Values{}
	params.Set("patient", patientID)
	params.Set("_include", "Appointment:patient")
	params.Set("_sort", "date")
	params.Set("_format", "json")
	return s.appointments.Search(ctx, params, func(a Appointment) bool { return a.PatientID == patientID })
}

// GetByProvider returns a provider's appointments, limited to one day when
// date is set.
func (s *Service) GetByProvider(ctx context.Context, providerID, date string) dispatch.ListEnvelope[Appointment] {
	if providerID == "" {
		return dispatch.ListFail[Appointment](fmt.Errorf("%w: provider id is required", dispatch.ErrInvalidInput))
	}
	params := url.Values{}
	params.Set("practitioner", providerID)
	if date != "" {
		params.Set("date", date)
	}
	params.Set("_include", "Appointment:patient")
	params.Set("_format", "json")
	return s.appointments.Search(ctx, params, func(a Appointment) bool {
		return a.ProviderID == providerID && (date == "" || a.Date == date)
	})
}

func (s *Service) Get(ctx context.Context, id string) dispatch.Envelope[*Appointment] {
	return s.appointments.Get(ctx, id)
}

// Create books an appointment. Missing status, duration and type get their
// defaults.
func (s *Service) Create(ctx context.Context, a Appointment) dispatch.Envelope[Appointment] {
	if a.Status == "" {
		a.Status = StatusScheduled
	}
	if a.Duration <= 0 {
		a.Duration = DefaultDuration
	}
	if a.Type == "" {
		a.Type = DefaultType
	}
	return s.appointments.Create(ctx, a)
}

func (s *Service) Update(ctx context.Context, id string, patch AppointmentPatch) dispatch.Envelope[Appointment] {
	return s.appointments.Update(ctx, id, patch)
}

func (s *Service) Delete(ctx context.Context, id string) dispatch.Envelope[string] {
	return s.appointments.Delete(ctx, id)
}

// Cancel sets the status to cancelled. A reason is appended to the notes.
func (s *Service) Cancel(ctx context.Context, id, reason string) dispatch.Envelope[Appointment] {
	patch := AppointmentPatch{Status: lo.ToPtr(StatusCancelled)}
	if reason != "" {
		current := s.appointments.Get(ctx, id)
		if !current.Success {
			return dispatch.Envelope[Appointment]{Error: current.Error, ErrorKind: current.ErrorKind}
		}
		notes := "Cancellation reason: " + reason
		if current.Data.Notes != "" {
			notes = current.Data.Notes + "\n" + notes
		}
		patch.Notes = &notes
	}
	return s.appointments.UpdateAs(ctx, dispatch.OpCancel, id, patch)
}

// Providers lists the providers appointments can be booked with.
func (s *Service) Providers(ctx context.Context) dispatch.ListEnvelope[identity.Provider] {
	return s.providers.ListProviders(ctx)
}

// ProviderAvailability lays the provider's weekday template over the day's
// bookings. Cancelled appointments free their slot.
func (s *Service) ProviderAvailability(ctx context.Context, providerID, date string) dispatch.Envelope[Availability] {
	weekday := identity.Weekday(date)
	if weekday == "" {
		return dispatch.Fail[Availability](fmt.Errorf("%w: date must be YYYY-MM-DD, got %q", dispatch.ErrInvalidInput, date))
	}
	provider := s.providers.GetProvider(ctx, providerID)
	if !provider.Success {
		return dispatch.Envelope[Availability]{Error: provider.Error, ErrorKind: provider.ErrorKind}
	}
	day := s.GetByProvider(ctx, providerID, date)
	if !day.Success {
		return dispatch.Envelope[Availability]{Error: day.Error, ErrorKind: day.ErrorKind}
	}

	booked := lo.FilterMap(day.Data, func(a Appointment, _ int) (string, bool) {
		return a.Time, a.Status != StatusCancelled
	})
	slots := lo.Map(provider.Data.Slots(weekday), func(t string, _ int) Slot {
		return Slot{Time: t, IsAvailable: !lo.Contains(booked, t)}
	})
	open := lo.CountBy(slots, func(sl Slot) bool { return sl.IsAvailable })

	return dispatch.OK(Availability{
		ProviderID:   providerID,
		ProviderName: provider.Data.Name,
		Date:         date,
		DisplayDate:  fhir.FormatDate(date),
		Weekday:      weekday,
		Available:    open > 0 && len(booked) < MaxDailyAppointments,
		Booked:       len(booked),
		Slots:        slots,
	}, "")
}
