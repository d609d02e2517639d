package scheduling

// Appointment statuses as the dashboard shows them.
const (
	StatusScheduled = "scheduled"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusNoShow    = "no-show"
)

// DefaultDuration is used when an appointment has no usable end time.
const DefaultDuration = 30

// DefaultType is the appointment type used when the upstream names none.
const DefaultType = "General"

// MaxDailyAppointments is the number of bookings after which a provider is
// reported as unavailable for the day.
const MaxDailyAppointments = 8

type Appointment struct {
	ID           string `json:"id"`
	PatientID    string `json:"patientId"`
	PatientName  string `json:"patientName"`
	ProviderID   string `json:"providerId"`
	ProviderName string `json:"providerName"`
	Date         string `json:"date"`
	Time         string `json:"time"`
	Duration     int    `json:"duration"`
	Type         string `json:"type"`
	Status       string `json:"status"`
	Reason       string `json:"reason"`
	Notes        string `json:"notes,omitempty"`
	Location     string `json:"location,omitempty"`
}

// IsTerminal reports whether the appointment can no longer change.
func (a Appointment) IsTerminal() bool {
	return IsTerminalStatus(a.Status)
}

// IsTerminalStatus reports whether status is cancelled, completed or no-show.
func IsTerminalStatus(status string) bool {
	switch status {
	case StatusCancelled, StatusCompleted, StatusNoShow:
		return true
	}
	return false
}

type AppointmentPatch struct {
	PatientID    *string `json:"patientId,omitempty"`
	PatientName  *string `json:"patientName,omitempty"`
	ProviderID   *string `json:"providerId,omitempty"`
	ProviderName *string `json:"providerName,omitempty"`
	Date         *string `json:"date,omitempty"`
	Time         *string `json:"time,omitempty"`
	Duration     *int    `json:"duration,omitempty"`
	Type         *string `json:"type,omitempty"`
	Status       *string `json:"status,omitempty"`
	Reason       *string `json:"reason,omitempty"`
	Notes        *string `json:"notes,omitempty"`
	Location     *string `json:"location,omitempty"`
}

// Slot is one template slot on a provider's day.
type Slot struct {
	Time        string `json:"time"`
	IsAvailable bool   `json:"isAvailable"`
}

// Availability summarizes a provider's day.
type Availability struct {
	ProviderID   string `json:"providerId"`
	ProviderName string `json:"providerName"`
	Date         string `json:"date"`
	DisplayDate  string `json:"displayDate"`
	Weekday      string `json:"weekday"`
	Available    bool   `json:"available"`
	Booked       int    `json:"booked"`
	Slots        []Slot `json:"slots"`
}
