package billing

import (
	"math"

	"github.com/samber/lo"

	"github.com/ehr/dashboard/internal/platform/fhir"
	"github.com/ehr/dashboard/pkg/fhirmodels"
)

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// SplitBalance estimates the insurance and patient shares of a total.
func SplitBalance(total float64) (insurance, patient float64) {
	insurance = roundCents(total * InsuranceShare)
	return insurance, roundCents(total - insurance)
}

// BalanceFromFHIR maps an Account. The total comes from the balance
// extension; the shares are estimated from it. Transactions are not carried
// on the account.
func BalanceFromFHIR(r *fhir.Account, names map[string]string) PatientBalance {
	b := PatientBalance{ID: r.ID, Transactions: []Transaction{}}
	var subject *fhir.Reference
	if len(r.Subject) > 0 {
		subject = &r.Subject[0]
	}
	b.PatientID, b.PatientName = patientRef(subject, names)

	if ext, ok := fhir.ExtensionByURL(r.Extension, "balance"); ok {
		switch {
		case ext.ValueDecimal != nil:
			b.TotalBalance = *ext.ValueDecimal
		case ext.ValueMoney != nil && ext.ValueMoney.Value != nil:
			b.TotalBalance = *ext.ValueMoney.Value
		}
	}
	b.InsuranceBalance, b.PatientBalance = SplitBalance(b.TotalBalance)
	return b
}

// ToFHIR builds an Account for the fields set in the patch.
func (bp PatientBalancePatch) ToFHIR() *fhir.Account {
	r := &fhir.Account{ResourceType: "Account", Status: "active"}
	if bp.PatientID != nil {
		r.Subject = []fhir.Reference{{Reference: fhir.FormatReference("Patient", *bp.PatientID), Display: lo.FromPtr(bp.PatientName)}}
	}
	if bp.PatientName != nil && *bp.PatientName != "" {
		r.Name = *bp.PatientName
	}
	if bp.TotalBalance != nil {
		r.Extension = []fhir.Extension{{URL: fhirmodels.ExtensionAccountBalance, ValueDecimal: fhir.Float(*bp.TotalBalance)}}
	}
	return r
}

// apply adds a transaction to the balance. Charges and adjustments add
// their amount; payments subtract it. Denied transactions are recorded
// without moving the total.
func (b PatientBalance) apply(tx Transaction) PatientBalance {
	if tx.Status != TransactionDenied {
		delta := tx.Amount
		if tx.Type == TransactionPayment {
			delta = -math.Abs(tx.Amount)
		}
		b.TotalBalance = roundCents(b.TotalBalance + delta)
		b.InsuranceBalance, b.PatientBalance = SplitBalance(b.TotalBalance)
	}
	b.Transactions = append(append([]Transaction{}, b.Transactions...), tx)
	return b
}
