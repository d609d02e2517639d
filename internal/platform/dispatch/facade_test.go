package dispatch

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ehr/dashboard/internal/platform/fhir"
	"github.com/ehr/dashboard/internal/platform/fhir/fhirtest"
	"github.com/ehr/dashboard/internal/platform/mockstore"
)

type person struct {
	ID     string `json:"id"`
	Family string `json:"family"`
	Gender string `json:"gender"`
}

type personPatch struct {
	Family *string `json:"family,omitempty"`
	Gender *string `json:"gender,omitempty"`
}

func personFromResource(r fhir.TypedResource) (person, bool) {
	p, ok := r.(*fhir.Patient)
	if !ok {
		return person{}, false
	}
	out := person{ID: p.ID, Gender: p.Gender}
	if len(p.Name) > 0 {
		out.Family = p.Name[0].Family
	}
	return out, true
}

var personCodec = Codec[person, personPatch]{
	ResourceType: "Patient",
	FromBundle: func(b *fhir.Bundle) []person {
		var out []person
		for _, p := range fhir.ResourcesOf[*fhir.Patient](b) {
			rec, _ := personFromResource(p)
			out = append(out, rec)
		}
		return out
	},
	FromResource: personFromResource,
	ToResource: func(p personPatch) fhir.TypedResource {
		out := &fhir.Patient{ResourceType: "Patient"}
		if p.Gender != nil {
			out.Gender = *p.Gender
		}
		if p.Family != nil {
			out.Name = []fhir.HumanName{{Family: *p.Family}}
		}
		return out
	},
}

func upstreamPatient(id, family string) *fhir.Patient {
	return &fhir.Patient{ResourceType: "Patient", ID: id, Gender: "female", Name: []fhir.HumanName{{Family: family}}}
}

func newFacade(src fhir.Source, policy Policy) *Facade[person, personPatch] {
	reg := mockstore.NewRegistry(zerolog.Nop())
	return &Facade[person, personPatch]{
		Label:    "patient",
		Codec:    personCodec,
		Store:    mockstore.NewCollection(reg, "patients", func(p *person) *string { return &p.ID }),
		Upstream: src,
		Policy:   policy,
		Logger:   zerolog.Nop(),
	}
}

func TestFacade_SearchOverlaysSessionRecords(t *testing.T) {
	src := fhirtest.NewSource(upstreamPatient("u1", "Smith"), upstreamPatient("u2", "Jones"))
	f := newFacade(src, DefaultPolicy())
	ctx := context.Background()

	if env := f.Update(ctx, "u1", personPatch{Family: strPtr("Smythe")}); !env.Success {
		t.Fatalf("update: %s", env.Error)
	}
	created := f.Create(ctx, person{Family: "New"})
	if !created.Success {
		t.Fatalf("create: %s", created.Error)
	}

	got := f.Search(ctx, url.Values{}, nil)
	if !got.Success {
		t.Fatalf("search failed: %s", got.Error)
	}
	if len(got.Data) != 3 || got.Total != 3 {
		t.Fatalf("expected 3 records, got %d (total %d)", len(got.Data), got.Total)
	}
	if got.Data[0].ID != "u1" || got.Data[0].Family != "Smythe" {
		t.Errorf("expected session copy to replace upstream u1, got %+v", got.Data[0])
	}
	if got.Data[2].ID != created.Data.ID {
		t.Errorf("expected created record appended, got %+v", got.Data[2])
	}
}

func TestFacade_SearchUpstreamFailure(t *testing.T) {
	src := fhirtest.NewSource()
	src.Err = fhirtest.Unavailable("Patient")
	f := newFacade(src, DefaultPolicy())

	got := f.Search(context.Background(), url.Values{}, nil)
	if got.Success {
		t.Fatal("expected failure envelope")
	}
	if got.Data == nil || len(got.Data) != 0 {
		t.Errorf("expected empty data, got %v", got.Data)
	}
	if got.ErrorKind != KindUpstreamUnavailable || got.Error == "" {
		t.Errorf("unexpected kind %q / error %q", got.ErrorKind, got.Error)
	}
}

func TestFacade_GetFallsBackToStore(t *testing.T) {
	src := fhirtest.NewSource(upstreamPatient("u1", "Smith"))
	f := newFacade(src, DefaultPolicy())
	ctx := context.Background()

	env := f.Get(ctx, "u1")
	if !env.Success || env.Data == nil || env.Data.Family != "Smith" {
		t.Fatalf("unexpected upstream read %+v", env)
	}

	created := f.Create(ctx, person{Family: "Local"})
	src.Err = fhirtest.Unavailable("Patient")
	env = f.Get(ctx, created.Data.ID)
	if !env.Success || env.Data.Family != "Local" {
		t.Errorf("expected session record while upstream is down, got %+v", env)
	}

	env = f.Get(ctx, mockstore.NewID())
	if env.Success || env.ErrorKind != KindNotFound || env.Data != nil {
		t.Errorf("expected not_found for unknown mock id, got %+v", env)
	}
}

func TestFacade_MockWritesCarryMessage(t *testing.T) {
	src := fhirtest.NewSource()
	f := newFacade(src, DefaultPolicy())
	ctx := context.Background()

	created := f.Create(ctx, person{Family: "Doe"})
	if created.Message != MockMessage(OpCreate, "patient") {
		t.Errorf("unexpected create message %q", created.Message)
	}
	updated := f.Update(ctx, created.Data.ID, personPatch{Gender: strPtr("female")})
	if updated.Message != MockMessage(OpUpdate, "patient") || updated.Data.Family != "Doe" {
		t.Errorf("unexpected update envelope %+v", updated)
	}
	deleted := f.Delete(ctx, created.Data.ID)
	if !deleted.Success || deleted.Data != created.Data.ID {
		t.Errorf("unexpected delete envelope %+v", deleted)
	}
	if len(src.Calls) != 0 {
		t.Errorf("mock writes must not reach the upstream, got calls %v", src.Calls)
	}
}

func TestFacade_NotFoundKinds(t *testing.T) {
	f := newFacade(fhirtest.NewSource(), DefaultPolicy())
	ctx := context.Background()

	up := f.Update(ctx, "nonexistent-id", personPatch{Family: strPtr("x")})
	if up.Success || up.ErrorKind != KindNotFound {
		t.Errorf("expected not_found on update, got %+v", up)
	}
	if !errors.Is(up.Err(), mockstore.ErrNotFound) {
		t.Error("expected update failure to match ErrNotFound")
	}
	del := f.Delete(ctx, "nonexistent-id")
	if del.Success || del.ErrorKind != KindNotFound {
		t.Errorf("expected not_found on delete, got %+v", del)
	}
	if empty := f.Delete(ctx, ""); empty.ErrorKind != KindInvalidInput {
		t.Errorf("expected invalid_input for empty id, got %+v", empty)
	}
}

func TestFacade_UpstreamWrites(t *testing.T) {
	src := fhirtest.NewSource(upstreamPatient("u1", "Smith"))
	f := newFacade(src, Policy{MockCRUD: false})
	ctx := context.Background()

	created := f.Create(ctx, person{Family: "Doe", Gender: "female"})
	if !created.Success || created.Data.ID != "srv-1" {
		t.Fatalf("unexpected upstream create %+v", created)
	}
	if created.Message != UpstreamMessage(OpCreate, "patient") {
		t.Errorf("unexpected message %q", created.Message)
	}

	updated := f.Update(ctx, "u1", personPatch{Gender: strPtr("other")})
	if !updated.Success || updated.Data.Gender != "other" || updated.Data.Family != "Smith" {
		t.Errorf("unexpected upstream update %+v", updated)
	}

	if del := f.Delete(ctx, "u1"); !del.Success {
		t.Errorf("unexpected delete failure %+v", del)
	}
	if f.Store.Len() != 0 {
		t.Error("upstream writes must not touch the mock store")
	}
}

func TestFacade_ApplyDoesNotWrite(t *testing.T) {
	src := fhirtest.NewSource(upstreamPatient("u1", "Smith"))
	f := newFacade(src, DefaultPolicy())
	ctx := context.Background()

	family := "Brown"
	env := f.Apply(ctx, "u1", personPatch{Family: &family})
	if !env.Success {
		t.Fatalf("apply failed: %s", env.Error)
	}
	if env.Data.Family != "Brown" || env.Data.Gender != "female" {
		t.Errorf("unexpected merged record %+v", env.Data)
	}
	if f.Store.Len() != 0 {
		t.Errorf("expected apply to leave the store untouched, got %d records", f.Store.Len())
	}

	if missing := f.Apply(ctx, "nope", personPatch{}); missing.Success || missing.ErrorKind != KindNotFound {
		t.Errorf("expected not_found, got %+v", missing)
	}
}

func TestFacade_DeleteOfSeededRecordSticks(t *testing.T) {
	src := fhirtest.NewSource(upstreamPatient("u1", "Smith"), upstreamPatient("u2", "Jones"))
	f := newFacade(src, DefaultPolicy())
	ctx := context.Background()

	if env := f.Update(ctx, "u1", personPatch{Family: strPtr("Changed")}); !env.Success {
		t.Fatalf("update failed: %s", env.Error)
	}
	if env := f.Delete(ctx, "u1"); !env.Success {
		t.Fatalf("delete failed: %s", env.Error)
	}

	if got := f.Get(ctx, "u1"); got.Success || got.ErrorKind != KindNotFound {
		t.Errorf("expected not_found after delete, got %+v", got)
	}
	list := f.Search(ctx, url.Values{}, nil)
	if len(list.Data) != 1 || list.Data[0].ID != "u2" || list.Total != 1 {
		t.Errorf("expected only u2 to remain listed, got %+v", list)
	}
	if again := f.Update(ctx, "u1", personPatch{Family: strPtr("Back")}); again.ErrorKind != KindNotFound {
		t.Errorf("expected a deleted record not to be reseeded, got %+v", again)
	}
	if again := f.Delete(ctx, "u1"); again.ErrorKind != KindNotFound {
		t.Errorf("expected a second delete to be not_found, got %+v", again)
	}
}

func TestFacade_SeedFailureKinds(t *testing.T) {
	src := fhirtest.NewSource(upstreamPatient("u1", "Smith"))
	f := newFacade(src, DefaultPolicy())
	ctx := context.Background()

	src.Err = fhirtest.Unavailable("Patient")
	down := f.Update(ctx, "u1", personPatch{Gender: strPtr("male")})
	if down.Success || down.ErrorKind != KindUpstreamUnavailable {
		t.Errorf("expected upstream_unavailable while the upstream is down, got %+v", down)
	}

	src.Err = nil
	missing := f.Update(ctx, "u9", personPatch{Gender: strPtr("male")})
	if missing.Success || missing.ErrorKind != KindNotFound {
		t.Errorf("expected not_found for an id the upstream lacks, got %+v", missing)
	}
}

// stallingSource blocks the first Read after it completes until release is
// closed.
type stallingSource struct {
	*fhirtest.Source
	once    sync.Once
	stalled chan struct{}
	release chan struct{}
}

func (s *stallingSource) Read(ctx context.Context, resourceType, id string) (fhir.TypedResource, error) {
	first := false
	s.once.Do(func() { first = true })
	res, err := s.Source.Read(ctx, resourceType, id)
	if first {
		close(s.stalled)
		<-s.release
	}
	return res, err
}

func TestFacade_LateSeedKeepsConcurrentUpdate(t *testing.T) {
	src := &stallingSource{
		Source:  fhirtest.NewSource(upstreamPatient("u1", "Smith")),
		stalled: make(chan struct{}),
		release: make(chan struct{}),
	}
	f := newFacade(src, DefaultPolicy())
	ctx := context.Background()

	done := make(chan Envelope[person], 1)
	go func() {
		done <- f.Update(ctx, "u1", personPatch{Gender: strPtr("male")})
	}()
	<-src.stalled

	if env := f.Update(ctx, "u1", personPatch{Family: strPtr("Jones")}); !env.Success {
		t.Fatalf("second update failed: %s", env.Error)
	}
	close(src.release)
	if env := <-done; !env.Success {
		t.Fatalf("first update failed: %s", env.Error)
	}

	got, ok := f.Store.GetByID("u1")
	if !ok || got.Family != "Jones" || got.Gender != "male" {
		t.Errorf("expected both updates to survive, got %+v", got)
	}
}

func TestMergeResource_KeepsUnmodelledFields(t *testing.T) {
	base := &fhir.Patient{
		ResourceType: "Patient",
		ID:           "u1",
		BirthDate:    "1980-02-03",
		Name:         []fhir.HumanName{{Family: "Smith"}},
	}
	partial := &fhir.Patient{ResourceType: "Patient", Gender: "male"}

	merged, err := MergeResource(base, partial, "u1")
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	p := merged.(*fhir.Patient)
	if p.ID != "u1" || p.BirthDate != "1980-02-03" || p.Gender != "male" || p.Name[0].Family != "Smith" {
		t.Errorf("unexpected merged resource %+v", p)
	}
}

func TestPatchOf(t *testing.T) {
	p, err := PatchOf[personPatch](person{ID: "x", Family: "Doe"})
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	if p.Family == nil || *p.Family != "Doe" {
		t.Errorf("expected family set, got %+v", p)
	}
	if p.Gender == nil || *p.Gender != "" {
		t.Errorf("expected gender present but empty, got %+v", p.Gender)
	}
}

func strPtr(s string) *string { return &s }

func TestPatchOf_RejectsMismatchedFields(t *testing.T) {
	type numbered struct {
		Family int `json:"family"`
	}
	if _, err := PatchOf[personPatch](numbered{Family: 7}); err == nil {
		t.Error("expected an error for a field of the wrong type")
	}
}
