package identity

import (
	"strings"
	"time"
)

// Default provider attributes used when the upstream Practitioner has none.
const (
	DefaultQualification = "General Practitioner"
	DefaultDepartment    = "Primary Care"
)

// DefaultWeek is the weekly slot template for providers without one of
// their own.
var DefaultWeek = map[string][]string{
	"monday":    {"09:00", "09:30", "10:00", "10:30", "11:00", "14:00", "14:30", "15:00"},
	"tuesday":   {"09:00", "09:30", "10:00", "10:30", "11:00", "14:00", "14:30", "15:00"},
	"wednesday": {"09:00", "09:30", "10:00", "10:30", "11:00", "14:00", "14:30", "15:00"},
	"thursday":  {"09:00", "09:30", "10:00", "10:30", "11:00", "14:00", "14:30", "15:00"},
	"friday":    {"09:00", "09:30", "10:00", "10:30", "11:00"},
}

// DemoProviders are the scheduling desk's built-in providers. They are
// listed alongside the upstream practitioners.
var DemoProviders = []Provider{
	{
		ID:        "PR001",
		Name:      "Dr. Smith",
		Specialty: "Family Medicine",
		Active:    true,
		Availability: map[string][]string{
			"monday":    {"09:00", "09:30", "10:00", "10:30", "14:00", "14:30", "15:00"},
			"tuesday":   {"09:00", "09:30", "10:00", "10:30", "11:00", "14:00", "14:30"},
			"wednesday": {"09:00", "09:30", "10:00", "14:00", "14:30", "15:00", "15:30"},
			"thursday":  {"09:00", "09:30", "10:00", "10:30", "11:00", "14:00", "14:30"},
			"friday":    {"09:00", "09:30", "10:00", "10:30", "11:00"},
		},
	},
	{
		ID:        "PR002",
		Name:      "Dr. Wilson",
		Specialty: "Internal Medicine",
		Active:    true,
		Availability: map[string][]string{
			"monday":    {"10:00", "10:30", "11:00", "14:00", "14:30", "15:00", "15:30"},
			"tuesday":   {"09:00", "09:30", "10:00", "14:00", "14:30", "15:00"},
			"wednesday": {"10:00", "10:30", "11:00", "11:30", "14:00", "14:30"},
			"thursday":  {"09:00", "09:30", "10:00", "10:30", "14:00", "14:30", "15:00"},
			"friday":    {"10:00", "10:30", "11:00", "11:30", "14:00"},
		},
	},
}

// Weekday returns the lowercase English weekday of an ISO date, or "" when
// the date does not parse.
func Weekday(isoDate string) string {
	t, err := time.Parse("2006-01-02", isoDate)
	if err != nil {
		return ""
	}
	return strings.ToLower(t.Weekday().String())
}

func copyWeek(week map[string][]string) map[string][]string {
	out := make(map[string][]string, len(week))
	for day, slots := range week {
		out[day] = append([]string(nil), slots...)
	}
	return out
}

func demoProvider(id string) (Provider, bool) {
	for _, p := range DemoProviders {
		if p.ID == id {
			p.Availability = copyWeek(p.Availability)
			return p, true
		}
	}
	return Provider{}, false
}
