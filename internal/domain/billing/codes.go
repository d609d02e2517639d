package billing

import (
	"github.com/ehr/dashboard/internal/platform/fhir"
	"github.com/ehr/dashboard/pkg/fhirmodels"
)

// InsuranceRate is the insurer's expected payment on a fee.
func InsuranceRate(fee float64) float64 {
	return roundCents(fee * InsuranceShare)
}

// CodeFromFHIR maps a ChargeItem. Category and last-updated come from
// extensions, defaulting to General and asOf.
func CodeFromFHIR(r *fhir.ChargeItem, asOf string) BillingCode {
	c := BillingCode{
		ID:          r.ID,
		Category:    DefaultCodeCategory,
		LastUpdated: asOf,
		Status:      CodeInactive,
	}
	if r.Code != nil && len(r.Code.Coding) > 0 {
		c.Code = r.Code.Coding[0].Code
		c.Description = r.Code.Coding[0].Display
	}
	if c.Description == "" {
		c.Description = fhir.ExtractDisplayText(r.Code)
	}
	if v, ok := money(r.PriceOverride); ok {
		c.Fee = v
		c.InsuranceRate = InsuranceRate(v)
	}
	if r.Status == fhirmodels.ChargeItemBillable {
		c.Status = CodeActive
	}
	if ext, ok := fhir.ExtensionByURL(r.Extension, fhirmodels.ExtensionBillingCategory); ok && ext.ValueString != "" {
		c.Category = ext.ValueString
	}
	if ext, ok := fhir.ExtensionByURL(r.Extension, fhirmodels.ExtensionBillingLastUpdate); ok && ext.ValueString != "" {
		c.LastUpdated = fhir.DatePart(ext.ValueString)
	}
	return c
}

// ToFHIR builds a ChargeItem for the fields set in the patch. The insurance
// rate is derived from the fee and is not sent.
func (cp BillingCodePatch) ToFHIR() *fhir.ChargeItem {
	r := &fhir.ChargeItem{ResourceType: "ChargeItem"}
	if cp.Status != nil {
		r.Status = fhirmodels.ChargeItemNotBillable
		if *cp.Status == CodeActive {
			r.Status = fhirmodels.ChargeItemBillable
		}
	}
	if cp.Code != nil || cp.Description != nil {
		coding := fhir.Coding{}
		if cp.Code != nil {
			coding.Code = *cp.Code
		}
		if cp.Description != nil {
			coding.Display = *cp.Description
		}
		r.Code = &fhir.CodeableConcept{Coding: []fhir.Coding{coding}}
	}
	if cp.Fee != nil {
		r.PriceOverride = usd(*cp.Fee)
	}
	if cp.Category != nil && *cp.Category != "" {
		r.Extension = append(r.Extension, fhir.Extension{URL: fhirmodels.ExtensionBillingCategory, ValueString: *cp.Category})
	}
	if cp.LastUpdated != nil && *cp.LastUpdated != "" {
		r.Extension = append(r.Extension, fhir.Extension{URL: fhirmodels.ExtensionBillingLastUpdate, ValueString: *cp.LastUpdated})
	}
	return r
}
