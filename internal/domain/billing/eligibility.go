package billing

import (
	"github.com/samber/lo"

	"github.com/ehr/dashboard/internal/platform/fhir"
	"github.com/ehr/dashboard/pkg/fhirmodels"
)

// Cost-to-beneficiary type codes carrying the plan's headline figures.
const (
	costCopay      = "copay"
	costDeductible = "deductible"
	classGroup     = "group"
)

func patientRef(ref *fhir.Reference, names map[string]string) (string, string) {
	id := fhir.ReferenceID(ref)
	switch {
	case ref != nil && ref.Display != "":
		return id, ref.Display
	case names[id] != "":
		return id, names[id]
	}
	return id, fhir.UnknownPatient
}

// EligibilityStatus maps a Coverage status as of a date. An active coverage
// whose period ended before asOf is expired.
func EligibilityStatus(status, periodEnd, asOf string) string {
	switch status {
	case fhirmodels.CoverageActive:
		if end := fhir.DatePart(periodEnd); end != "" && asOf != "" && end < asOf {
			return EligibilityExpired
		}
		return EligibilityActive
	case fhirmodels.CoverageDraft:
		return EligibilityPending
	}
	return EligibilityInactive
}

func coverageStatus(status string) string {
	switch status {
	case EligibilityActive, EligibilityExpired:
		return fhirmodels.CoverageActive
	case EligibilityPending:
		return fhirmodels.CoverageDraft
	}
	return fhirmodels.CoverageCancelled
}

func money(m *fhir.Money) (float64, bool) {
	if m == nil || m.Value == nil {
		return 0, false
	}
	return *m.Value, true
}

// EligibilityFromFHIR maps a Coverage. Copay, deductible and benefits fall
// back to the standard plan figures when the coverage does not carry them;
// lastChecked is asOf.
func EligibilityFromFHIR(r *fhir.Coverage, names map[string]string, asOf string) InsuranceEligibility {
	e := InsuranceEligibility{
		ID:                r.ID,
		InsuranceProvider: fhir.UnknownProvider,
		PolicyNumber:      r.SubscriberID,
		EligibilityStatus: EligibilityStatus(r.Status, lo.FromPtr(r.Period).End, asOf),
		EffectiveDate:     fhir.DatePart(lo.FromPtr(r.Period).Start),
		ExpirationDate:    fhir.DatePart(lo.FromPtr(r.Period).End),
		Copay:             DefaultCopay,
		Deductible:        DefaultDeductible,
		DeductibleMet:     DefaultDeductibleMet,
		LastChecked:       asOf,
	}
	e.PatientID, e.PatientName = patientRef(r.Beneficiary, names)
	if len(r.Payor) > 0 && r.Payor[0].Display != "" {
		e.InsuranceProvider = r.Payor[0].Display
	}
	if group, ok := lo.Find(r.Class, func(c fhir.CoverageClass) bool {
		return c.Type != nil && fhir.HasCode([]fhir.CodeableConcept{*c.Type}, classGroup)
	}); ok {
		e.GroupNumber = group.Value
	}
	if ext, ok := fhir.ExtensionByURL(r.Extension, fhirmodels.ExtensionDeductibleMet); ok {
		if v, ok := money(ext.ValueMoney); ok {
			e.DeductibleMet = v
		} else if ext.ValueDecimal != nil {
			e.DeductibleMet = *ext.ValueDecimal
		}
	}

	for _, cost := range r.CostToBeneficiary {
		if cost.Type == nil {
			continue
		}
		types := []fhir.CodeableConcept{*cost.Type}
		switch {
		case fhir.HasCode(types, costCopay):
			if v, ok := money(cost.ValueMoney); ok {
				e.Copay = v
			}
		case fhir.HasCode(types, costDeductible):
			if v, ok := money(cost.ValueMoney); ok {
				e.Deductible = v
			}
		default:
			e.Benefits = append(e.Benefits, benefitFromCost(cost))
		}
	}
	if len(e.Benefits) == 0 {
		e.Benefits = DefaultBenefits()
	}
	return e
}

// benefitFromCost reads a per-service cost line. A percentage quantity is
// coinsurance; a money value is a copay.
func benefitFromCost(cost fhir.CoverageCost) Benefit {
	b := Benefit{Service: fhir.ExtractDisplayText(cost.Type), Covered: true}
	if v, ok := money(cost.ValueMoney); ok {
		b.Copay = &v
	}
	if q := cost.ValueQuantity; q != nil && q.Value != nil {
		b.Coinsurance = fhir.Float(*q.Value)
	}
	return b
}

// ToFHIR builds a Coverage for the fields set in the patch. Benefits are
// written as cost-to-beneficiary lines after the copay and deductible.
func (ep InsuranceEligibilityPatch) ToFHIR() *fhir.Coverage {
	r := &fhir.Coverage{ResourceType: "Coverage"}
	if ep.EligibilityStatus != nil {
		r.Status = coverageStatus(*ep.EligibilityStatus)
	}
	if ep.PolicyNumber != nil {
		r.SubscriberID = *ep.PolicyNumber
	}
	if ep.PatientID != nil {
		r.Beneficiary = &fhir.Reference{Reference: fhir.FormatReference("Patient", *ep.PatientID), Display: lo.FromPtr(ep.PatientName)}
	}
	if ep.InsuranceProvider != nil {
		r.Payor = []fhir.Reference{{Display: *ep.InsuranceProvider}}
	}
	if ep.EffectiveDate != nil || ep.ExpirationDate != nil {
		r.Period = &fhir.Period{Start: lo.FromPtr(ep.EffectiveDate), End: lo.FromPtr(ep.ExpirationDate)}
	}
	if g := lo.FromPtr(ep.GroupNumber); g != "" {
		r.Class = []fhir.CoverageClass{{
			Type:  fhir.Coded(fhirmodels.SystemCoverageClass, classGroup, "Group"),
			Value: g,
		}}
	}
	if ep.DeductibleMet != nil {
		r.Extension = []fhir.Extension{{URL: fhirmodels.ExtensionDeductibleMet, ValueMoney: usd(*ep.DeductibleMet)}}
	}

	if ep.Copay != nil {
		r.CostToBeneficiary = append(r.CostToBeneficiary, fhir.CoverageCost{
			Type:       fhir.Coded(fhirmodels.SystemCoverageCopayType, costCopay, "Copay Amount"),
			ValueMoney: usd(*ep.Copay),
		})
	}
	if ep.Deductible != nil {
		r.CostToBeneficiary = append(r.CostToBeneficiary, fhir.CoverageCost{
			Type:       fhir.Coded(fhirmodels.SystemCoverageCopayType, costDeductible, "Deductible"),
			ValueMoney: usd(*ep.Deductible),
		})
	}
	if ep.Benefits != nil {
		for _, b := range *ep.Benefits {
			if !b.Covered {
				continue
			}
			cost := fhir.CoverageCost{Type: fhir.Text(b.Service)}
			if b.Copay != nil {
				cost.ValueMoney = usd(*b.Copay)
			}
			if b.Coinsurance != nil {
				cost.ValueQuantity = &fhir.Quantity{Value: fhir.Float(*b.Coinsurance), Unit: "%", System: fhirmodels.SystemUCUM, Code: "%"}
			}
			r.CostToBeneficiary = append(r.CostToBeneficiary, cost)
		}
	}
	return r
}

func usd(v float64) *fhir.Money {
	return &fhir.Money{Value: fhir.Float(v), Currency: "USD"}
}
