package billing

// -- Insurance eligibility --

// Eligibility statuses.
const (
	EligibilityActive   = "active"
	EligibilityInactive = "inactive"
	EligibilityPending  = "pending"
	EligibilityExpired  = "expired"
)

// Plan figures used when a coverage does not carry its own.
const (
	DefaultCopay         = 25.0
	DefaultDeductible    = 1000.0
	DefaultDeductibleMet = 0.0
)

type Benefit struct {
	Service     string   `json:"service"`
	Covered     bool     `json:"covered"`
	Copay       *float64 `json:"copay,omitempty"`
	Coinsurance *float64 `json:"coinsurance,omitempty"`
	Notes       string   `json:"notes,omitempty"`
}

// DefaultBenefits is the benefit schedule shown for a coverage that lists
// none.
func DefaultBenefits() []Benefit {
	num := func(v float64) *float64 { return &v }
	return []Benefit{
		{Service: "Office Visit", Covered: true, Copay: num(25)},
		{Service: "Specialist Visit", Covered: true, Copay: num(50)},
		{Service: "Lab Work", Covered: true, Coinsurance: num(20)},
		{Service: "Imaging", Covered: true, Coinsurance: num(20)},
	}
}

type InsuranceEligibility struct {
	ID                string    `json:"id"`
	PatientID         string    `json:"patientId"`
	PatientName       string    `json:"patientName"`
	InsuranceProvider string    `json:"insuranceProvider"`
	PolicyNumber      string    `json:"policyNumber"`
	GroupNumber       string    `json:"groupNumber,omitempty"`
	EligibilityStatus string    `json:"eligibilityStatus"`
	EffectiveDate     string    `json:"effectiveDate"`
	ExpirationDate    string    `json:"expirationDate,omitempty"`
	Copay             float64   `json:"copay"`
	Deductible        float64   `json:"deductible"`
	DeductibleMet     float64   `json:"deductibleMet"`
	Benefits          []Benefit `json:"benefits"`
	LastChecked       string    `json:"lastChecked"`
}

type InsuranceEligibilityPatch struct {
	PatientID         *string    `json:"patientId,omitempty"`
	PatientName       *string    `json:"patientName,omitempty"`
	InsuranceProvider *string    `json:"insuranceProvider,omitempty"`
	PolicyNumber      *string    `json:"policyNumber,omitempty"`
	GroupNumber       *string    `json:"groupNumber,omitempty"`
	EligibilityStatus *string    `json:"eligibilityStatus,omitempty"`
	EffectiveDate     *string    `json:"effectiveDate,omitempty"`
	ExpirationDate    *string    `json:"expirationDate,omitempty"`
	Copay             *float64   `json:"copay,omitempty"`
	Deductible        *float64   `json:"deductible,omitempty"`
	DeductibleMet     *float64   `json:"deductibleMet,omitempty"`
	Benefits          *[]Benefit `json:"benefits,omitempty"`
	LastChecked       *string    `json:"lastChecked,omitempty"`
}

// -- Patient balances --

// Transaction types.
const (
	TransactionCharge     = "charge"
	TransactionPayment    = "payment"
	TransactionAdjustment = "adjustment"
)

// Transaction statuses.
const (
	TransactionPending   = "pending"
	TransactionProcessed = "processed"
	TransactionDenied    = "denied"
)

// InsuranceShare is the part of a balance estimated to be covered by
// insurance; the patient owes the rest.
const InsuranceShare = 0.8

type Payment struct {
	Amount float64 `json:"amount"`
	Date   string  `json:"date"`
	Method string  `json:"method"`
}

type Transaction struct {
	ID          string  `json:"id"`
	Date        string  `json:"date"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Type        string  `json:"type"`
	Status      string  `json:"status"`
}

type PatientBalance struct {
	ID               string        `json:"id"`
	PatientID        string        `json:"patientId"`
	PatientName      string        `json:"patientName"`
	TotalBalance     float64       `json:"totalBalance"`
	InsuranceBalance float64       `json:"insuranceBalance"`
	PatientBalance   float64       `json:"patientBalance"`
	LastPayment      *Payment      `json:"lastPayment,omitempty"`
	Transactions     []Transaction `json:"transactions"`
}

type PatientBalancePatch struct {
	PatientID        *string        `json:"patientId,omitempty"`
	PatientName      *string        `json:"patientName,omitempty"`
	TotalBalance     *float64       `json:"totalBalance,omitempty"`
	InsuranceBalance *float64       `json:"insuranceBalance,omitempty"`
	PatientBalance   *float64       `json:"patientBalance,omitempty"`
	LastPayment      *Payment       `json:"lastPayment,omitempty"`
	Transactions     *[]Transaction `json:"transactions,omitempty"`
}

// -- Billing codes --

// Billing code statuses.
const (
	CodeActive   = "active"
	CodeInactive = "inactive"
)

// DefaultCodeCategory is used when a charge item names no category.
const DefaultCodeCategory = "General"

type BillingCode struct {
	ID            string  `json:"id"`
	Code          string  `json:"code"`
	Description   string  `json:"description"`
	Category      string  `json:"category"`
	Fee           float64 `json:"fee"`
	InsuranceRate float64 `json:"insuranceRate"`
	LastUpdated   string  `json:"lastUpdated"`
	Status        string  `json:"status"`
}

type BillingCodePatch struct {
	Code          *string  `json:"code,omitempty"`
	Description   *string  `json:"description,omitempty"`
	Category      *string  `json:"category,omitempty"`
	Fee           *float64 `json:"fee,omitempty"`
	InsuranceRate *float64 `json:"insuranceRate,omitempty"`
	LastUpdated   *string  `json:"lastUpdated,omitempty"`
	Status        *string  `json:"status,omitempty"`
}
