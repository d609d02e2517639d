package mockstore

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

type widget struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Color string   `json:"color"`
	Tags  []string `json:"tags"`
	Count int      `json:"count"`
}

type widgetPatch struct {
	Name  *string   `json:"name,omitempty"`
	Color *string   `json:"color,omitempty"`
	Tags  *[]string `json:"tags,omitempty"`
	Count *int      `json:"count,omitempty"`
}

func str(s string) *string { return &s }

func newWidgets() (*Registry, *Collection[widget]) {
	reg := NewRegistry(zerolog.Nop())
	return reg, NewCollection(reg, "widgets", func(w *widget) *string { return &w.ID })
}

func TestCollection_CreateAssignsID(t *testing.T) {
	_, c := newWidgets()
	in := widget{Name: "gear", Tags: []string{"a"}}

	out, err := c.Create(in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if out.ID == "" || !IsMockID(out.ID) {
		t.Errorf("expected mock id, got %q", out.ID)
	}
	if in.ID != "" {
		t.Error("caller's record must not be mutated")
	}
	if out.Name != "gear" || len(out.Tags) != 1 {
		t.Errorf("unexpected stored record %+v", out)
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 record, got %d", c.Len())
	}
}

func TestCollection_IDUniqueness(t *testing.T) {
	_, c := newWidgets()
	seen := make(map[string]bool, 1000)
	for i := 0; i < 1000; i++ {
		w, err := c.Create(widget{Name: "w"})
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		if seen[w.ID] {
			t.Fatalf("duplicate id %s at iteration %d", w.ID, i)
		}
		seen[w.ID] = true
	}
}

func TestCollection_UpdateMergesShallow(t *testing.T) {
	_, c := newWidgets()
	w, _ := c.Create(widget{Name: "gear", Color: "red", Tags: []string{"x"}, Count: 2})

	got, err := c.Update(w.ID, widgetPatch{Name: str("cog")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Name != "cog" {
		t.Errorf("expected name cog, got %q", got.Name)
	}
	if got.Color != "red" || got.Count != 2 || len(got.Tags) != 1 {
		t.Errorf("fields absent from the patch changed: %+v", got)
	}

	empty := []string{}
	got, err = c.Update(w.ID, widgetPatch{Tags: &empty})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(got.Tags) != 0 {
		t.Errorf("expected tags cleared, got %v", got.Tags)
	}
}

func TestCollection_UpdateKeepsID(t *testing.T) {
	_, c := newWidgets()
	w, _ := c.Create(widget{Name: "gear"})

	got, err := c.Update(w.ID, map[string]any{"id": "other", "color": "blue"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.ID != w.ID {
		t.Errorf("expected id %s to survive, got %s", w.ID, got.ID)
	}
	if got.Color != "blue" {
		t.Errorf("expected color blue, got %q", got.Color)
	}
}

func TestCollection_NotFound(t *testing.T) {
	_, c := newWidgets()

	_, err := c.Update("nonexistent-id", widgetPatch{Name: str("x")})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("update: expected ErrNotFound, got %v", err)
	}
	var nf *NotFoundError
	if !errors.As(err, &nf) || nf.Collection != "widgets" || nf.ID != "nonexistent-id" {
		t.Errorf("expected NotFoundError details, got %v", err)
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("unexpected message %q", err.Error())
	}

	if err := c.Delete("nonexistent-id"); !errors.Is(err, ErrNotFound) {
		t.Errorf("delete: expected ErrNotFound, got %v", err)
	}
}

func TestCollection_DeleteThenGet(t *testing.T) {
	_, c := newWidgets()
	a, _ := c.Create(widget{Name: "a"})
	b, _ := c.Create(widget{Name: "b"})

	if err := c.Delete(a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := c.GetByID(a.ID); ok {
		t.Error("expected deleted record to be absent")
	}
	if err := c.Delete(a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
	all := c.GetAll()
	if len(all) != 1 || all[0].ID != b.ID {
		t.Errorf("expected only b to remain, got %+v", all)
	}
}

func TestCollection_ReadsReturnCopies(t *testing.T) {
	_, c := newWidgets()
	w, _ := c.Create(widget{Name: "gear", Tags: []string{"a"}})

	got, _ := c.GetByID(w.ID)
	got.Name = "mutated"
	got.Tags[0] = "mutated"

	all := c.GetAll()
	all[0].Tags[0] = "mutated"

	again, _ := c.GetByID(w.ID)
	if again.Name != "gear" || again.Tags[0] != "a" {
		t.Errorf("store state leaked through a returned copy: %+v", again)
	}
}

func TestCollection_FilterKeepsOrder(t *testing.T) {
	_, c := newWidgets()
	for _, color := range []string{"red", "blue", "red", "green", "red"} {
		_, _ = c.Create(widget{Color: color})
	}
	reds := c.Filter(func(w widget) bool { return w.Color == "red" })
	if len(reds) != 3 {
		t.Fatalf("expected 3 red widgets, got %d", len(reds))
	}
	all := c.GetAll()
	if reds[0].ID != all[0].ID || reds[2].ID != all[4].ID {
		t.Error("expected filter to keep insertion order")
	}
}

func TestCollection_PutIfAbsent(t *testing.T) {
	_, c := newWidgets()
	if _, _, err := c.PutIfAbsent(widget{Name: "no id"}); err == nil {
		t.Error("expected error for record without id")
	}
	if _, inserted, err := c.PutIfAbsent(widget{ID: "up-1", Name: "upstream"}); err != nil || !inserted {
		t.Fatalf("put: inserted=%v err=%v", inserted, err)
	}
	if _, err := c.Update("up-1", widgetPatch{Name: str("edited")}); err != nil {
		t.Fatalf("update: %v", err)
	}

	held, inserted, err := c.PutIfAbsent(widget{ID: "up-1", Name: "upstream"})
	if err != nil || inserted {
		t.Fatalf("expected a second seed to be refused, inserted=%v err=%v", inserted, err)
	}
	if held.Name != "edited" || c.Len() != 1 {
		t.Errorf("expected the edited record to survive, got %+v (%d records)", held, c.Len())
	}
}

func TestCollection_DeleteMarksUpstreamIDs(t *testing.T) {
	reg, c := newWidgets()
	_, _, _ = c.PutIfAbsent(widget{ID: "up-1", Name: "upstream"})
	local, _ := c.Create(widget{Name: "local"})

	if err := c.Delete("up-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := c.Delete(local.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !c.Deleted("up-1") {
		t.Error("expected the upstream id to be marked deleted")
	}
	if c.Deleted(local.ID) {
		t.Error("expected mock ids not to be marked")
	}
	if _, _, err := c.PutIfAbsent(widget{ID: "up-1", Name: "upstream"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected a deleted id to refuse seeding, got %v", err)
	}

	reg.ClearAll()
	if c.Deleted("up-1") {
		t.Error("expected ClearAll to forget deletions")
	}
}

func TestRegistry_ClearAll(t *testing.T) {
	reg, widgets := newWidgets()
	others := NewCollection(reg, "others", func(w *widget) *string { return &w.ID })
	_, _ = widgets.Create(widget{Name: "a"})
	_, _ = others.Create(widget{Name: "b"})

	reg.ClearAll()

	if widgets.Len() != 0 || others.Len() != 0 {
		t.Errorf("expected empty collections, got %d and %d", widgets.Len(), others.Len())
	}
	if names := reg.Collections(); len(names) != 2 {
		t.Errorf("expected 2 registered collections, got %v", names)
	}
	if _, err := widgets.Create(widget{Name: "c"}); err != nil {
		t.Errorf("create after clear: %v", err)
	}
}

func TestCollection_ConcurrentCreate(t *testing.T) {
	_, c := newWidgets()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Create(widget{Name: "w"})
		}()
	}
	wg.Wait()
	if c.Len() != 50 {
		t.Errorf("expected 50 records, got %d", c.Len())
	}
}
