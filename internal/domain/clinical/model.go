package clinical

// -- Clinical notes --

// DefaultNoteType is used when a document carries no type.
const DefaultNoteType = "Progress Note"

type ClinicalNote struct {
	ID                      string `json:"id"`
	PatientID               string `json:"patientId"`
	PatientName             string `json:"patientName"`
	ProviderID              string `json:"providerId"`
	ProviderName            string `json:"providerName"`
	Date                    string `json:"date"`
	Type                    string `json:"type"`
	ChiefComplaint          string `json:"chiefComplaint"`
	HistoryOfPresentIllness string `json:"historyOfPresentIllness"`
	PhysicalExam            string `json:"physicalExam"`
	Assessment              string `json:"assessment"`
	Plan                    string `json:"plan"`
	FollowUp                string `json:"followUp,omitempty"`
}

type ClinicalNotePatch struct {
	PatientID               *string `json:"patientId,omitempty"`
	PatientName             *string `json:"patientName,omitempty"`
	ProviderID              *string `json:"providerId,omitempty"`
	ProviderName            *string `json:"providerName,omitempty"`
	Date                    *string `json:"date,omitempty"`
	Type                    *string `json:"type,omitempty"`
	ChiefComplaint          *string `json:"chiefComplaint,omitempty"`
	HistoryOfPresentIllness *string `json:"historyOfPresentIllness,omitempty"`
	PhysicalExam            *string `json:"physicalExam,omitempty"`
	Assessment              *string `json:"assessment,omitempty"`
	Plan                    *string `json:"plan,omitempty"`
	FollowUp                *string `json:"followUp,omitempty"`
}

// -- Vital signs --

// VitalSigns is one set of measurements. Weight is in kg and height in cm;
// BMI is derived from them when not recorded.
type VitalSigns struct {
	ID                     string   `json:"id"`
	PatientID              string   `json:"patientId"`
	PatientName            string   `json:"patientName"`
	Date                   string   `json:"date"`
	Time                   string   `json:"time"`
	Temperature            float64  `json:"temperature"`
	BloodPressureSystolic  float64  `json:"bloodPressureSystolic"`
	BloodPressureDiastolic float64  `json:"bloodPressureDiastolic"`
	HeartRate              float64  `json:"heartRate"`
	RespiratoryRate        float64  `json:"respiratoryRate"`
	OxygenSaturation       float64  `json:"oxygenSaturation"`
	Weight                 *float64 `json:"weight,omitempty"`
	Height                 *float64 `json:"height,omitempty"`
	BMI                    *float64 `json:"bmi,omitempty"`
	Pain                   *float64 `json:"pain,omitempty"`
	Notes                  string   `json:"notes,omitempty"`
}

type VitalSignsPatch struct {
	PatientID              *string  `json:"patientId,omitempty"`
	PatientName            *string  `json:"patientName,omitempty"`
	Date                   *string  `json:"date,omitempty"`
	Time                   *string  `json:"time,omitempty"`
	Temperature            *float64 `json:"temperature,omitempty"`
	BloodPressureSystolic  *float64 `json:"bloodPressureSystolic,omitempty"`
	BloodPressureDiastolic *float64 `json:"bloodPressureDiastolic,omitempty"`
	HeartRate              *float64 `json:"heartRate,omitempty"`
	RespiratoryRate        *float64 `json:"respiratoryRate,omitempty"`
	OxygenSaturation       *float64 `json:"oxygenSaturation,omitempty"`
	Weight                 *float64 `json:"weight,omitempty"`
	Height                 *float64 `json:"height,omitempty"`
	BMI                    *float64 `json:"bmi,omitempty"`
	Pain                   *float64 `json:"pain,omitempty"`
	Notes                  *string  `json:"notes,omitempty"`
}

// -- Lab results --

// Lab result statuses.
const (
	LabPending   = "pending"
	LabCompleted = "completed"
	LabReviewed  = "reviewed"
)

// Per-value flags.
const (
	ValueNormal   = "normal"
	ValueAbnormal = "abnormal"
	ValueCritical = "critical"
)

// DefaultLabCategory is used when an observation names no category besides
// laboratory.
const DefaultLabCategory = "Laboratory"

type LabValue struct {
	Name           string `json:"name"`
	Value          string `json:"value"`
	Unit           string `json:"unit"`
	ReferenceRange string `json:"referenceRange"`
	Status         string `json:"status"`
}

type LabResult struct {
	ID           string     `json:"id"`
	PatientID    string     `json:"patientId"`
	PatientName  string     `json:"patientName"`
	OrderDate    string     `json:"orderDate"`
	ResultDate   string     `json:"resultDate"`
	TestName     string     `json:"testName"`
	Category     string     `json:"category"`
	Results      []LabValue `json:"results"`
	ProviderID   string     `json:"providerId"`
	ProviderName string     `json:"providerName"`
	Status       string     `json:"status"`
	Notes        string     `json:"notes,omitempty"`
}

type LabResultPatch struct {
	PatientID    *string     `json:"patientId,omitempty"`
	PatientName  *string     `json:"patientName,omitempty"`
	OrderDate    *string     `json:"orderDate,omitempty"`
	ResultDate   *string     `json:"resultDate,omitempty"`
	TestName     *string     `json:"testName,omitempty"`
	Category     *string     `json:"category,omitempty"`
	Results      *[]LabValue `json:"results,omitempty"`
	ProviderID   *string     `json:"providerId,omitempty"`
	ProviderName *string     `json:"providerName,omitempty"`
	Status       *string     `json:"status,omitempty"`
	Notes        *string     `json:"notes,omitempty"`
}

// -- Medications --

// Medication statuses.
const (
	MedicationActive       = "active"
	MedicationDiscontinued = "discontinued"
	MedicationCompleted    = "completed"
)

type Medication struct {
	ID             string `json:"id"`
	PatientID      string `json:"patientId"`
	PatientName    string `json:"patientName"`
	MedicationName string `json:"medicationName"`
	Dosage         string `json:"dosage"`
	Frequency      string `json:"frequency"`
	Route          string `json:"route"`
	StartDate      string `json:"startDate"`
	EndDate        string `json:"endDate,omitempty"`
	PrescribedBy   string `json:"prescribedBy"`
	Indication     string `json:"indication"`
	Status         string `json:"status"`
	Notes          string `json:"notes,omitempty"`
}

type MedicationPatch struct {
	PatientID      *string `json:"patientId,omitempty"`
	PatientName    *string `json:"patientName,omitempty"`
	MedicationName *string `json:"medicationName,omitempty"`
	Dosage         *string `json:"dosage,omitempty"`
	Frequency      *string `json:"frequency,omitempty"`
	Route          *string `json:"route,omitempty"`
	StartDate      *string `json:"startDate,omitempty"`
	EndDate        *string `json:"endDate,omitempty"`
	PrescribedBy   *string `json:"prescribedBy,omitempty"`
	Indication     *string `json:"indication,omitempty"`
	Status         *string `json:"status,omitempty"`
	Notes          *string `json:"notes,omitempty"`
}
