package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/ehr/dashboard/internal/platform/fhir"
	"github.com/ehr/dashboard/internal/platform/mockstore"
)

// Codec converts between an entity type T, its patch type P and its FHIR
// resource.
type Codec[T, P any] struct {
	ResourceType string
	// FromBundle maps a searchset. It gets the whole bundle so included
	// resources can fill denormalized display fields.
	FromBundle func(*fhir.Bundle) []T
	// FromResource maps a single read. ok is false for a resource of the
	// wrong variant.
	FromResource func(fhir.TypedResource) (T, bool)
	// ToResource builds the resource for the fields set in a patch. Fields
	// left nil in the patch are left out of the resource.
	ToResource func(P) fhir.TypedResource
}

// Facade is the read/write front for one entity type. Reads go to the
// upstream and are overlaid with session records; writes go to the mock
// store or the upstream depending on Policy.
type Facade[T, P any] struct {
	Label    string
	Codec    Codec[T, P]
	Store    *mockstore.Collection[T]
	Upstream fhir.Source
	Policy   Policy
	Logger   zerolog.Logger
}

// Search queries the upstream and overlays session records. keep selects
// the session records that belong to this query and may be nil.
func (f *Facade[T, P]) Search(ctx context.Context, params url.Values, keep func(T) bool) ListEnvelope[T] {
	bundle, err := f.Upstream.Search(ctx, f.Codec.ResourceType, params)
	if err != nil {
		f.Logger.Error().Err(err).Str("resource_type", f.Codec.ResourceType).Msg("upstream search failed")
		return ListFail[T](err)
	}

	upstream := f.Codec.FromBundle(bundle)
	items := f.Overlay(upstream, keep)
	total := bundle.TotalOr(len(upstream)) + len(items) - len(upstream)
	if total < len(items) {
		total = len(items)
	}
	return List(items, total, "")
}

// Overlay replaces upstream records that have a session copy, drops the ones
// deleted this session and appends session records matching keep that the
// upstream did not return. A nil keep appends every session record;
// NoAppend appends none.
func (f *Facade[T, P]) Overlay(upstream []T, keep func(T) bool) []T {
	matches := func(rec T) bool { return keep == nil || keep(rec) }

	seen := make(map[string]bool, len(upstream))
	out := make([]T, 0, len(upstream))
	for _, rec := range upstream {
		id := f.Store.IDOf(rec)
		seen[id] = true
		if f.Store.Deleted(id) {
			continue
		}
		if stored, ok := f.Store.GetByID(id); ok {
			out = append(out, stored)
			continue
		}
		out = append(out, rec)
	}
	for _, rec := range f.Store.Filter(matches) {
		if !seen[f.Store.IDOf(rec)] {
			out = append(out, rec)
		}
	}
	return out
}

// NoAppend is a keep func for reads that only want session copies of the
// records the upstream returned, such as pages after the first.
func NoAppend[T any](T) bool { return false }

// Get returns the session copy of id when there is one, otherwise reads the
// upstream. Upstream records deleted this session are not found.
func (f *Facade[T, P]) Get(ctx context.Context, id string) Envelope[*T] {
	if id == "" {
		return Fail[*T](fmt.Errorf("%w: %s id is required", ErrInvalidInput, f.Label))
	}
	if rec, ok := f.Store.GetByID(id); ok {
		return OK(&rec, "")
	}
	if mockstore.IsMockID(id) || f.Store.Deleted(id) {
		return Fail[*T](&mockstore.NotFoundError{Collection: f.Store.Name(), ID: id})
	}

	rec, err := f.readUpstream(ctx, id)
	if err != nil {
		return Fail[*T](err)
	}
	return OK(&rec, "")
}

// Create stores rec and returns the stored record with its id.
func (f *Facade[T, P]) Create(ctx context.Context, rec T) Envelope[T] {
	if f.Policy.ShouldUseMockCRUD(OpCreate) {
		stored, err := f.Store.Create(rec)
		if err != nil {
			return Fail[T](err)
		}
		return OK(stored, MockMessage(OpCreate, f.Label))
	}

	patch, err := PatchOf[P](rec)
	if err != nil {
		return Fail[T](err)
	}
	created, err := f.Upstream.Create(ctx, f.Codec.ToResource(patch))
	if err != nil {
		f.Logger.Error().Err(err).Str("resource_type", f.Codec.ResourceType).Msg("upstream create failed")
		return Fail[T](err)
	}
	out, ok := f.Codec.FromResource(created)
	if !ok {
		return Fail[T](fmt.Errorf("upstream create returned %s", created.ResourceName()))
	}
	return OK(out, UpstreamMessage(OpCreate, f.Label))
}

// Update shallow-merges patch into the record with the given id. In mock
// mode a record that only exists upstream is copied into the store first.
// Upstream updates merge the patch into the stored resource so fields the
// entity does not model survive the round trip.
func (f *Facade[T, P]) Update(ctx context.Context, id string, patch P) Envelope[T] {
	return f.UpdateAs(ctx, OpUpdate, id, patch)
}

// UpdateAs is Update reported as op, for writes such as cancel that are
// updates underneath.
func (f *Facade[T, P]) UpdateAs(ctx context.Context, op Operation, id string, patch P) Envelope[T] {
	if id == "" {
		return Fail[T](fmt.Errorf("%w: %s id is required", ErrInvalidInput, f.Label))
	}

	if f.Policy.ShouldUseMockCRUD(op) {
		updated, err := f.Store.Update(id, patch)
		if errors.Is(err, mockstore.ErrNotFound) && !mockstore.IsMockID(id) && !f.Store.Deleted(id) {
			if seedErr := f.seed(ctx, id); seedErr != nil {
				if !errors.Is(seedErr, fhir.ErrResourceNotFound) {
					return Fail[T](seedErr)
				}
				return Fail[T](err)
			}
			updated, err = f.Store.Update(id, patch)
		}
		if err != nil {
			return Fail[T](err)
		}
		return OK(updated, MockMessage(op, f.Label))
	}

	current, err := f.Upstream.Read(ctx, f.Codec.ResourceType, id)
	if err != nil {
		return Fail[T](err)
	}
	merged, err := MergeResource(current, f.Codec.ToResource(patch), id)
	if err != nil {
		return Fail[T](fmt.Errorf("%w: %v", ErrInvalidInput, err))
	}
	saved, err := f.Upstream.Update(ctx, merged)
	if err != nil {
		f.Logger.Error().Err(err).Str("resource_type", f.Codec.ResourceType).Str("id", id).Msg("upstream update failed")
		return Fail[T](err)
	}
	out, ok := f.Codec.FromResource(saved)
	if !ok {
		return Fail[T](fmt.Errorf("upstream update returned %s", saved.ResourceName()))
	}
	return OK(out, UpstreamMessage(op, f.Label))
}

// Apply returns the record with the given id with patch applied, without
// writing it. Services use it to resend every field that shares a FHIR
// element with a patched one.
func (f *Facade[T, P]) Apply(ctx context.Context, id string, patch P) Envelope[T] {
	current := f.Get(ctx, id)
	if !current.Success {
		return Envelope[T]{Error: current.Error, ErrorKind: current.ErrorKind}
	}
	merged := *current.Data
	data, err := json.Marshal(patch)
	if err != nil {
		return Fail[T](err)
	}
	if err := json.Unmarshal(data, &merged); err != nil {
		return Fail[T](fmt.Errorf("%w: %v", ErrInvalidInput, err))
	}
	return OK(merged, "")
}

// Delete removes the record with the given id and returns that id.
func (f *Facade[T, P]) Delete(ctx context.Context, id string) Envelope[string] {
	if id == "" {
		return Fail[string](fmt.Errorf("%w: %s id is required", ErrInvalidInput, f.Label))
	}

	if f.Policy.ShouldUseMockCRUD(OpDelete) {
		if err := f.Store.Delete(id); err != nil {
			return Fail[string](err)
		}
		return OK(id, MockMessage(OpDelete, f.Label))
	}

	if err := f.Upstream.Delete(ctx, f.Codec.ResourceType, id); err != nil {
		f.Logger.Error().Err(err).Str("resource_type", f.Codec.ResourceType).Str("id", id).Msg("upstream delete failed")
		return Fail[string](err)
	}
	return OK(id, UpstreamMessage(OpDelete, f.Label))
}

func (f *Facade[T, P]) readUpstream(ctx context.Context, id string) (T, error) {
	var zero T
	res, err := f.Upstream.Read(ctx, f.Codec.ResourceType, id)
	if err != nil {
		if !errors.Is(err, fhir.ErrResourceNotFound) {
			f.Logger.Error().Err(err).Str("resource_type", f.Codec.ResourceType).Str("id", id).Msg("upstream read failed")
		}
		return zero, err
	}
	rec, ok := f.Codec.FromResource(res)
	if !ok {
		return zero, &fhir.UpstreamError{
			Op:           "read",
			ResourceType: f.Codec.ResourceType,
			Message:      "unexpected resource " + res.ResourceName(),
		}
	}
	return rec, nil
}

func (f *Facade[T, P]) seed(ctx context.Context, id string) error {
	rec, err := f.readUpstream(ctx, id)
	if err != nil {
		return err
	}
	_, _, err = f.Store.PutIfAbsent(rec)
	return err
}

// MergeResource overlays the top-level fields of partial onto base and pins
// the id.
func MergeResource(base, partial fhir.TypedResource, id string) (fhir.TypedResource, error) {
	merged, err := mockstore.Merge(map[string]json.RawMessage{}, base)
	if err != nil {
		return nil, err
	}
	if partial != nil {
		if merged, err = mockstore.Merge(merged, partial); err != nil {
			return nil, err
		}
	}
	idJSON, _ := json.Marshal(id)
	merged["id"] = idJSON
	data, err := json.Marshal(merged)
	if err != nil {
		return nil, err
	}
	return fhir.DecodeResource(data)
}

// PatchOf converts a value into patch type P through its JSON form. A full
// entity becomes a patch with every field set.
func PatchOf[P any](v any) (P, error) {
	var p P
	data, err := json.Marshal(v)
	if err != nil {
		return p, fmt.Errorf("dispatch: encode %T: %w", v, err)
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("dispatch: decode %T as %T: %w", v, p, err)
	}
	return p, nil
}
