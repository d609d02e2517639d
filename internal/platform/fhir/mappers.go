package fhir

import (
	"strings"
	"time"

	"github.com/samber/lo"
)

// Sentinel display names used when a participant carries no usable name.
const (
	UnknownPatient  = "Unknown Patient"
	UnknownProvider = "Unknown Provider"
)

// DisplayDateLayout is the layout FormatDate renders (en-US short date).
const DisplayDateLayout = "1/2/2006"

// dateTimeLayouts are tried in order when parsing FHIR date and dateTime values.
var dateTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ExtractDisplayText returns the text of a CodeableConcept, falling back to the
// first coding's display and then its code. The order is fixed.
func ExtractDisplayText(cc *CodeableConcept) string {
	if cc == nil {
		return ""
	}
	if cc.Text != "" {
		return cc.Text
	}
	if len(cc.Coding) == 0 {
		return ""
	}
	if cc.Coding[0].Display != "" {
		return cc.Coding[0].Display
	}
	return cc.Coding[0].Code
}

// FirstDisplayText is ExtractDisplayText over the first element of a list.
func FirstDisplayText(ccs []CodeableConcept) string {
	if len(ccs) == 0 {
		return ""
	}
	return ExtractDisplayText(&ccs[0])
}

// ParseDateTime parses a FHIR date or dateTime. The offset of the input is
// kept so callers can read the wall-clock values the upstream sent.
func ParseDateTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatDate renders an ISO date or dateTime for display. Missing or
// unparseable input is returned unchanged.
func FormatDate(iso string) string {
	t, ok := ParseDateTime(iso)
	if !ok {
		return iso
	}
	return t.Format(DisplayDateLayout)
}

// DatePart returns the YYYY-MM-DD portion of a FHIR date or dateTime string.
func DatePart(s string) string {
	if s == "" {
		return ""
	}
	if t, ok := ParseDateTime(s); ok {
		return t.Format("2006-01-02")
	}
	date, _, _ := strings.Cut(s, "T")
	return date
}

// TimePart returns HH:MM of a FHIR dateTime, or "" for a bare date.
func TimePart(s string) string {
	if !strings.Contains(s, "T") {
		return ""
	}
	if t, ok := ParseDateTime(s); ok {
		return t.Format("15:04")
	}
	_, clock, _ := strings.Cut(s, "T")
	if len(clock) >= 5 {
		return clock[:5]
	}
	return clock
}

// JoinAddressParts joins the address lines, city, state, postal code and
// country with ", ", skipping empty segments.
func JoinAddressParts(a *Address) string {
	if a == nil {
		return ""
	}
	parts := append(append([]string{}, a.Line...), a.City, a.State, a.PostalCode, a.Country)
	parts = lo.Map(parts, func(p string, _ int) string { return strings.TrimSpace(p) })
	return strings.Join(lo.Compact(parts), ", ")
}

// ComposeName renders "given[0] family", or fallback when both are absent.
func ComposeName(n *HumanName, fallback string) string {
	if n == nil {
		return fallback
	}
	given := ""
	if len(n.Given) > 0 {
		given = n.Given[0]
	}
	name := strings.TrimSpace(given + " " + n.Family)
	if name == "" {
		return fallback
	}
	return name
}

// FirstName returns the first HumanName of a list, or nil.
func FirstName(names []HumanName) *HumanName {
	if len(names) == 0 {
		return nil
	}
	return &names[0]
}

// TelecomValue returns the value of the first contact point with the given system.
func TelecomValue(telecom []ContactPoint, system string) string {
	cp, ok := lo.Find(telecom, func(c ContactPoint) bool { return c.System == system })
	if !ok {
		return ""
	}
	return cp.Value
}

// FormatReference builds "Type/id".
func FormatReference(resourceType, id string) string {
	return resourceType + "/" + id
}

// ReferenceID extracts the id from a "Type/id" reference. Absolute URLs and
// history suffixes ("Type/id/_history/n") are handled.
func ReferenceID(ref *Reference) string {
	if ref == nil || ref.Reference == "" {
		return ""
	}
	s := ref.Reference
	if i := strings.Index(s, "/_history/"); i >= 0 {
		s = s[:i]
	}
	if i := strings.LastIndex(s, "/"); i >= 0 {
		return s[i+1:]
	}
	return s
}

// ReferenceIDOf extracts the id only when the reference targets resourceType.
func ReferenceIDOf(ref *Reference, resourceType string) string {
	if ref == nil || !strings.Contains(ref.Reference, resourceType+"/") {
		return ""
	}
	return ReferenceID(ref)
}

// FirstNote returns the text of the first annotation.
func FirstNote(notes []Annotation) string {
	if len(notes) == 0 {
		return ""
	}
	return notes[0].Text
}

// HasCode reports whether any coding of any concept carries one of codes.
func HasCode(ccs []CodeableConcept, codes ...string) bool {
	for _, cc := range ccs {
		for _, c := range cc.Coding {
			if lo.Contains(codes, c.Code) {
				return true
			}
		}
	}
	return false
}

// ExtensionByURL returns the first extension whose URL contains fragment.
func ExtensionByURL(exts []Extension, fragment string) (Extension, bool) {
	return lo.Find(exts, func(e Extension) bool { return strings.Contains(e.URL, fragment) })
}

// Text wraps s into a CodeableConcept with only text set.
func Text(s string) *CodeableConcept {
	return &CodeableConcept{Text: s}
}

// Coded builds a single-coding CodeableConcept.
func Coded(system, code, display string) *CodeableConcept {
	return &CodeableConcept{Coding: []Coding{{System: system, Code: code, Display: display}}}
}
