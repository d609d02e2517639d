// Package mockstore holds session records for entity types the upstream FHIR
// server cannot persist. Each entity type gets its own Collection; a Registry
// owns the collections of one process (or one test) and can reset them all.
package mockstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// ErrNotFound is matched by every NotFoundError.
var ErrNotFound = errors.New("mockstore: record not found")

// NotFoundError reports an update or delete against an id the collection
// does not hold.
type NotFoundError struct {
	Collection string
	ID         string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Collection, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// IDField returns a pointer to the id field of a record.
type IDField[T any] func(*T) *string

// Collection is an ordered, id-keyed set of records of one entity type. Reads
// hand out deep copies so callers cannot mutate stored state.
type Collection[T any] struct {
	name   string
	idOf   IDField[T]
	logger zerolog.Logger

	mu      sync.RWMutex
	records map[string]T
	order   []string
	// deleted holds upstream ids removed during the session. The upstream
	// still returns them, so reads must hide them.
	deleted map[string]struct{}
}

// NewCollection creates a collection and registers it with reg so ClearAll
// reaches it.
func NewCollection[T any](reg *Registry, name string, idOf IDField[T]) *Collection[T] {
	c := &Collection[T]{
		name:    name,
		idOf:    idOf,
		logger:  reg.logger.With().Str("collection", name).Logger(),
		records: make(map[string]T),
		deleted: make(map[string]struct{}),
	}
	reg.register(c)
	return c
}

// Name returns the collection name used in errors and logs.
func (c *Collection[T]) Name() string { return c.name }

// IDOf returns the id of rec.
func (c *Collection[T]) IDOf(rec T) string { return *c.idOf(&rec) }

// Create stores a copy of rec under a fresh id and returns the stored copy.
// rec itself is left untouched.
func (c *Collection[T]) Create(rec T) (T, error) {
	stored, err := clone(rec)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("mockstore: create %s: %w", c.name, err)
	}

	c.mu.Lock()
	id := NewID()
	for c.has(id) {
		id = NewID()
	}
	*c.idOf(&stored) = id
	c.records[id] = stored
	c.order = append(c.order, id)
	c.mu.Unlock()

	c.logger.Info().Str("id", id).Msg("mock record created")
	return clone(stored)
}

// PutIfAbsent stores rec under its own id unless the collection already
// holds that id or the id was deleted this session. It returns the record
// held after the call and whether rec was inserted. It is used to seed the
// collection with a record fetched from the upstream, so a late seed never
// overwrites a record another request has already changed.
func (c *Collection[T]) PutIfAbsent(rec T) (T, bool, error) {
	var zero T
	stored, err := clone(rec)
	if err != nil {
		return zero, false, fmt.Errorf("mockstore: put %s: %w", c.name, err)
	}
	id := *c.idOf(&stored)
	if id == "" {
		return zero, false, fmt.Errorf("mockstore: put %s: record has no id", c.name)
	}

	c.mu.Lock()
	if _, gone := c.deleted[id]; gone {
		c.mu.Unlock()
		return zero, false, &NotFoundError{Collection: c.name, ID: id}
	}
	if existing, ok := c.records[id]; ok {
		c.mu.Unlock()
		out, err := clone(existing)
		return out, false, err
	}
	c.records[id] = stored
	c.order = append(c.order, id)
	c.mu.Unlock()

	c.logger.Debug().Str("id", id).Msg("mock record seeded")
	out, err := clone(stored)
	return out, true, err
}

// Update shallow-merges patch into the record with the given id. Top-level
// fields present in patch's JSON form overwrite the stored ones; all other
// fields are kept. The id cannot be changed through a patch.
func (c *Collection[T]) Update(id string, patch any) (T, error) {
	var zero T

	c.mu.Lock()
	current, ok := c.records[id]
	if !ok {
		c.mu.Unlock()
		return zero, &NotFoundError{Collection: c.name, ID: id}
	}
	merged, err := Merge(current, patch)
	if err != nil {
		c.mu.Unlock()
		return zero, fmt.Errorf("mockstore: update %s %s: %w", c.name, id, err)
	}
	*c.idOf(&merged) = id
	c.records[id] = merged
	c.mu.Unlock()

	c.logger.Info().Str("id", id).Msg("mock record updated")
	return clone(merged)
}

// Delete removes the record with the given id. Ids not minted by NewID came
// from the upstream and stay marked as deleted until the next reset.
func (c *Collection[T]) Delete(id string) error {
	c.mu.Lock()
	if !c.has(id) {
		c.mu.Unlock()
		return &NotFoundError{Collection: c.name, ID: id}
	}
	delete(c.records, id)
	if !IsMockID(id) {
		c.deleted[id] = struct{}{}
	}
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.mu.Unlock()

	c.logger.Info().Str("id", id).Msg("mock record deleted")
	return nil
}

// GetByID returns a copy of the record with the given id.
func (c *Collection[T]) GetByID(id string) (T, bool) {
	c.mu.RLock()
	rec, ok := c.records[id]
	c.mu.RUnlock()
	if !ok {
		var zero T
		return zero, false
	}
	out, err := clone(rec)
	if err != nil {
		var zero T
		return zero, false
	}
	return out, true
}

// GetAll returns copies of every record in insertion order.
func (c *Collection[T]) GetAll() []T {
	return c.Filter(nil)
}

// Filter returns copies of the records matching keep, in insertion order. A
// nil keep matches everything.
func (c *Collection[T]) Filter(keep func(T) bool) []T {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]T, 0, len(c.order))
	for _, id := range c.order {
		rec := c.records[id]
		if keep != nil && !keep(rec) {
			continue
		}
		cp, err := clone(rec)
		if err != nil {
			continue
		}
		out = append(out, cp)
	}
	return out
}

// Deleted reports whether the upstream id was deleted this session.
func (c *Collection[T]) Deleted(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.deleted[id]
	return ok
}

// Len returns the number of stored records.
func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

func (c *Collection[T]) has(id string) bool {
	_, ok := c.records[id]
	return ok
}

func (c *Collection[T]) reset() {
	c.mu.Lock()
	c.records = make(map[string]T)
	c.order = nil
	c.deleted = make(map[string]struct{})
	c.mu.Unlock()
}

type resettable interface {
	Name() string
	reset()
}

// Registry owns the collections created against it.
type Registry struct {
	logger zerolog.Logger

	mu          sync.Mutex
	collections []resettable
}

// NewRegistry creates an empty registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{logger: logger.With().Str("component", "mockstore").Logger()}
}

func (r *Registry) register(c resettable) {
	r.mu.Lock()
	r.collections = append(r.collections, c)
	r.mu.Unlock()
}

// Collections returns the names of the registered collections.
func (r *Registry) Collections() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.collections))
	for _, c := range r.collections {
		names = append(names, c.Name())
	}
	return names
}

// ClearAll empties every registered collection. Meant for test isolation and
// the development reset endpoint.
func (r *Registry) ClearAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.collections {
		c.reset()
	}
	r.logger.Info().Int("collections", len(r.collections)).Msg("mock store cleared")
}

func clone[T any](v T) (T, error) {
	var out T
	data, err := json.Marshal(v)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, err
	}
	return out, nil
}
