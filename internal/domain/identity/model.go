package identity

// Gender values accepted on a Patient.
const (
	GenderMale    = "male"
	GenderFemale  = "female"
	GenderOther   = "other"
	GenderUnknown = "unknown"
)

// Patient is the dashboard's view of a person receiving care. Allergies,
// Conditions and Medications are informational lists kept with the session
// record; they have no counterpart on the upstream Patient resource.
type Patient struct {
	ID                string   `json:"id"`
	FirstName         string   `json:"firstName"`
	LastName          string   `json:"lastName"`
	DateOfBirth       string   `json:"dateOfBirth"`
	Gender            string   `json:"gender"`
	Phone             string   `json:"phone"`
	Email             string   `json:"email"`
	Address           string   `json:"address"`
	EmergencyContact  string   `json:"emergencyContact"`
	EmergencyPhone    string   `json:"emergencyPhone"`
	Allergies         []string `json:"allergies"`
	Conditions        []string `json:"conditions"`
	Medications       []string `json:"medications"`
	LastVisit         string   `json:"lastVisit"`
	NextAppointment   string   `json:"nextAppointment,omitempty"`
	InsuranceProvider string   `json:"insuranceProvider"`
	InsuranceID       string   `json:"insuranceId"`
}

// FullName renders "first last".
func (p Patient) FullName() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// PatientPatch carries the fields of a partial write. Nil fields are left
// untouched.
type PatientPatch struct {
	FirstName         *string   `json:"firstName,omitempty"`
	LastName          *string   `json:"lastName,omitempty"`
	DateOfBirth       *string   `json:"dateOfBirth,omitempty"`
	Gender            *string   `json:"gender,omitempty"`
	Phone             *string   `json:"phone,omitempty"`
	Email             *string   `json:"email,omitempty"`
	Address           *string   `json:"address,omitempty"`
	EmergencyContact  *string   `json:"emergencyContact,omitempty"`
	EmergencyPhone    *string   `json:"emergencyPhone,omitempty"`
	Allergies         *[]string `json:"allergies,omitempty"`
	Conditions        *[]string `json:"conditions,omitempty"`
	Medications       *[]string `json:"medications,omitempty"`
	LastVisit         *string   `json:"lastVisit,omitempty"`
	NextAppointment   *string   `json:"nextAppointment,omitempty"`
	InsuranceProvider *string   `json:"insuranceProvider,omitempty"`
	InsuranceID       *string   `json:"insuranceId,omitempty"`
}

// Provider is a practitioner who can be booked. Availability maps a
// lowercase English weekday to its ordered "HH:MM" slots.
type Provider struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	FirstName     string              `json:"firstName,omitempty"`
	LastName      string              `json:"lastName,omitempty"`
	Specialty     string              `json:"specialty"`
	Qualification string              `json:"qualification,omitempty"`
	Department    string              `json:"department,omitempty"`
	Email         string              `json:"email,omitempty"`
	Phone         string              `json:"phone,omitempty"`
	Active        bool                `json:"active"`
	Availability  map[string][]string `json:"availability"`
}

// Slots returns the provider's template slots for weekday.
func (p Provider) Slots(weekday string) []string {
	return p.Availability[weekday]
}
