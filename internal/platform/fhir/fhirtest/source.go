// Package fhirtest provides an in-memory fhir.Source for tests.
package fhirtest

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/ehr/dashboard/internal/platform/fhir"
)

// Source is an in-memory fhir.Source. Search returns every stored resource
// of the requested type that Match accepts; resources in Include are appended
// to every search result.
type Source struct {
	// Err, when set, is returned by every call.
	Err error
	// Match filters search results. nil matches everything.
	Match func(resourceType string, params url.Values, r fhir.TypedResource) bool
	// Include is appended to every searchset, like _include results.
	Include []fhir.TypedResource

	mu         sync.Mutex
	resources  map[string][]fhir.TypedResource
	LastParams url.Values
	Calls      []string
	nextID     int
}

// NewSource returns a Source holding resources.
func NewSource(resources ...fhir.TypedResource) *Source {
	s := &Source{resources: map[string][]fhir.TypedResource{}}
	for _, r := range resources {
		s.Add(r)
	}
	return s
}

// Add stores r.
func (s *Source) Add(r fhir.TypedResource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resources == nil {
		s.resources = map[string][]fhir.TypedResource{}
	}
	s.resources[r.ResourceName()] = append(s.resources[r.ResourceName()], r)
}

func (s *Source) record(call string) {
	s.Calls = append(s.Calls, call)
}

func (s *Source) Search(_ context.Context, resourceType string, params url.Values) (*fhir.Bundle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("search " + resourceType)
	s.LastParams = params
	if s.Err != nil {
		return nil, s.Err
	}

	var matched []fhir.TypedResource
	for _, r := range s.resources[resourceType] {
		if s.Match == nil || s.Match(resourceType, params, r) {
			matched = append(matched, r)
		}
	}
	total := len(matched)
	return fhir.NewSearchBundle(append(matched, s.Include...), total), nil
}

func (s *Source) Read(_ context.Context, resourceType, id string) (fhir.TypedResource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("read " + resourceType + "/" + id)
	if s.Err != nil {
		return nil, s.Err
	}
	for _, r := range s.resources[resourceType] {
		if r.LogicalID() == id {
			return r, nil
		}
	}
	return nil, &fhir.UpstreamError{Op: "read", ResourceType: resourceType, StatusCode: 404}
}

func (s *Source) Create(_ context.Context, r fhir.TypedResource) (fhir.TypedResource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("create " + r.ResourceName())
	if s.Err != nil {
		return nil, s.Err
	}
	s.nextID++
	created, err := withID(r, fmt.Sprintf("srv-%d", s.nextID))
	if err != nil {
		return nil, err
	}
	s.resources[r.ResourceName()] = append(s.resources[r.ResourceName()], created)
	return created, nil
}

func (s *Source) Update(_ context.Context, r fhir.TypedResource) (fhir.TypedResource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("update " + r.ResourceName() + "/" + r.LogicalID())
	if s.Err != nil {
		return nil, s.Err
	}
	list := s.resources[r.ResourceName()]
	for i, existing := range list {
		if existing.LogicalID() == r.LogicalID() {
			list[i] = r
			return r, nil
		}
	}
	return nil, &fhir.UpstreamError{Op: "update", ResourceType: r.ResourceName(), StatusCode: 404}
}

func (s *Source) Delete(_ context.Context, resourceType, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("delete " + resourceType + "/" + id)
	if s.Err != nil {
		return s.Err
	}
	list := s.resources[resourceType]
	for i, existing := range list {
		if existing.LogicalID() == id {
			s.resources[resourceType] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return &fhir.UpstreamError{Op: "delete", ResourceType: resourceType, StatusCode: 404}
}

// Unavailable is an error that classifies as an unreachable upstream.
func Unavailable(resourceType string) error {
	return &fhir.UpstreamError{Op: "search", ResourceType: resourceType, Message: "connection refused"}
}

func withID(r fhir.TypedResource, id string) (fhir.TypedResource, error) {
	switch v := r.(type) {
	case *fhir.Patient:
		c := *v
		c.ID = id
		return &c, nil
	case *fhir.Practitioner:
		c := *v
		c.ID = id
		return &c, nil
	case *fhir.Appointment:
		c := *v
		c.ID = id
		return &c, nil
	case *fhir.DocumentReference:
		c := *v
		c.ID = id
		return &c, nil
	case *fhir.Observation:
		c := *v
		c.ID = id
		return &c, nil
	case *fhir.MedicationRequest:
		c := *v
		c.ID = id
		return &c, nil
	case *fhir.Coverage:
		c := *v
		c.ID = id
		return &c, nil
	case *fhir.Account:
		c := *v
		c.ID = id
		return &c, nil
	case *fhir.ChargeItem:
		c := *v
		c.ID = id
		return &c, nil
	}
	return nil, &fhir.UnsupportedResourceError{ResourceType: r.ResourceName()}
}
