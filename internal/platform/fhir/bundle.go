package fhir

import (
	"encoding/json"
	"time"

	"github.com/samber/lo"
)

// Bundle represents a FHIR Bundle resource.
type Bundle struct {
	ResourceType string        `json:"resourceType"`
	ID           string        `json:"id,omitempty"`
	Type         string        `json:"type"`
	Total        *int          `json:"total,omitempty"`
	Link         []BundleLink  `json:"link,omitempty"`
	Entry        []BundleEntry `json:"entry,omitempty"`
	Timestamp    *time.Time    `json:"timestamp,omitempty"`
}

type BundleLink struct {
	Relation string `json:"relation"`
	URL      string `json:"url"`
}

type BundleEntry struct {
	FullURL  string          `json:"fullUrl,omitempty"`
	Resource json.RawMessage `json:"resource,omitempty"`
	Search   *BundleSearch   `json:"search,omitempty"`
}

type BundleSearch struct {
	Mode  string   `json:"mode,omitempty"`
	Score *float64 `json:"score,omitempty"`
}

// NewSearchBundle creates a searchset Bundle from a list of typed resources.
func NewSearchBundle(resources []TypedResource, total int) *Bundle {
	now := time.Now().UTC()
	entries := make([]BundleEntry, 0, len(resources))
	for _, r := range resources {
		raw, err := json.Marshal(r)
		if err != nil {
			continue
		}
		entries = append(entries, BundleEntry{
			FullURL:  FormatReference(r.ResourceName(), r.LogicalID()),
			Resource: raw,
			Search:   &BundleSearch{Mode: "match"},
		})
	}
	return &Bundle{
		ResourceType: "Bundle",
		Type:         "searchset",
		Total:        &total,
		Timestamp:    &now,
		Entry:        entries,
	}
}

// TotalOr returns the bundle total, or fallback when the server omitted it.
func (b *Bundle) TotalOr(fallback int) int {
	if b == nil || b.Total == nil {
		return fallback
	}
	return *b.Total
}

// Resources decodes every entry. Entries without a resource, with an
// unsupported type (OperationOutcome, included Organizations, ...) or with a
// malformed body are skipped.
func (b *Bundle) Resources() []TypedResource {
	if b == nil {
		return nil
	}
	out := make([]TypedResource, 0, len(b.Entry))
	for _, e := range b.Entry {
		if len(e.Resource) == 0 {
			continue
		}
		r, err := DecodeResource(e.Resource)
		if err != nil {
			continue
		}
		out = append(out, r)
	}
	return out
}

// ResourcesOf returns the bundle's resources of variant T, in entry order.
func ResourcesOf[T TypedResource](b *Bundle) []T {
	return lo.FilterMap(b.Resources(), func(r TypedResource, _ int) (T, bool) {
		t, ok := r.(T)
		return t, ok
	})
}

// PatientNames indexes included Patient resources by id to their display name.
func (b *Bundle) PatientNames() map[string]string {
	names := map[string]string{}
	for _, p := range ResourcesOf[*Patient](b) {
		names[p.ID] = ComposeName(FirstName(p.Name), UnknownPatient)
	}
	return names
}

// FirstPatientName returns the display name of the first included Patient, or
// UnknownPatient when the bundle has none.
func (b *Bundle) FirstPatientName() string {
	patients := ResourcesOf[*Patient](b)
	if len(patients) == 0 {
		return UnknownPatient
	}
	return ComposeName(FirstName(patients[0].Name), UnknownPatient)
}
