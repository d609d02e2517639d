package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/ehr/dashboard/internal/platform/dispatch"
	"github.com/ehr/dashboard/internal/platform/fhir"
	"github.com/ehr/dashboard/internal/platform/mockstore"
)

// PatientDirectory resolves patient display names for new records.
type PatientDirectory interface {
	PatientName(ctx context.Context, id string) string
}

func eligibilityCodec(today func() string) dispatch.Codec[InsuranceEligibility, InsuranceEligibilityPatch] {
	return dispatch.Codec[InsuranceEligibility, InsuranceEligibilityPatch]{
		ResourceType: "Coverage",
		FromBundle: func(b *fhir.Bundle) []InsuranceEligibility {
			names, asOf := b.PatientNames(), today()
			return lo.Map(fhir.ResourcesOf[*fhir.Coverage](b), func(r *fhir.Coverage, _ int) InsuranceEligibility {
				return EligibilityFromFHIR(r, names, asOf)
			})
		},
		FromResource: func(r fhir.TypedResource) (InsuranceEligibility, bool) {
			c, ok := r.(*fhir.Coverage)
			if !ok {
				return InsuranceEligibility{}, false
			}
			return EligibilityFromFHIR(c, nil, today()), true
		},
		ToResource: func(p InsuranceEligibilityPatch) fhir.TypedResource { return p.ToFHIR() },
	}
}

var BalanceCodec = dispatch.Codec[PatientBalance, PatientBalancePatch]{
	ResourceType: "Account",
	FromBundle: func(b *fhir.Bundle) []PatientBalance {
		names := b.PatientNames()
		return lo.Map(fhir.ResourcesOf[*fhir.Account](b), func(r *fhir.Account, _ int) PatientBalance {
			return BalanceFromFHIR(r, names)
		})
	},
	FromResource: func(r fhir.TypedResource) (PatientBalance, bool) {
		a, ok := r.(*fhir.Account)
		if !ok {
			return PatientBalance{}, false
		}
		return BalanceFromFHIR(a, nil), true
	},
	ToResource: func(p PatientBalancePatch) fhir.TypedResource { return p.ToFHIR() },
}

func codeCodec(today func() string) dispatch.Codec[BillingCode, BillingCodePatch] {
	return dispatch.Codec[BillingCode, BillingCodePatch]{
		ResourceType: "ChargeItem",
		FromBundle: func(b *fhir.Bundle) []BillingCode {
			asOf := today()
			return lo.Map(fhir.ResourcesOf[*fhir.ChargeItem](b), func(r *fhir.ChargeItem, _ int) BillingCode {
				return CodeFromFHIR(r, asOf)
			})
		},
		FromResource: func(r fhir.TypedResource) (BillingCode, bool) {
			c, ok := r.(*fhir.ChargeItem)
			if !ok {
				return BillingCode{}, false
			}
			return CodeFromFHIR(c, today()), true
		},
		ToResource: func(p BillingCodePatch) fhir.TypedResource { return p.ToFHIR() },
	}
}

// Service serves insurance eligibility, patient balances and the billing
// code catalogue.
type Service struct {
	eligibility *dispatch.Facade[InsuranceEligibility, InsuranceEligibilityPatch]
	balances    *dispatch.Facade[PatientBalance, PatientBalancePatch]
	codes       *dispatch.Facade[BillingCode, BillingCodePatch]
	patients    PatientDirectory
	logger      zerolog.Logger
	now         func() time.Time
}

// NewService wires the billing facades. patients may be nil.
func NewService(reg *mockstore.Registry, upstream fhir.Source, patients PatientDirectory, policy dispatch.Policy, logger zerolog.Logger) *Service {
	s := &Service{patients: patients, logger: logger, now: time.Now}
	s.eligibility = &dispatch.Facade[InsuranceEligibility, InsuranceEligibilityPatch]{
		Label:    "insurance eligibility",
		Codec:    eligibilityCodec(s.today),
		Store:    mockstore.NewCollection(reg, "insuranceEligibility", func(e *InsuranceEligibility) *string { return &e.ID }),
		Upstream: upstream,
		Policy:   policy,
		Logger:   logger,
	}
	s.balances = &dispatch.Facade[PatientBalance, PatientBalancePatch]{
		Label:    "patient balance",
		Codec:    BalanceCodec,
		Store:    mockstore.NewCollection(reg, "patientBalances", func(b *PatientBalance) *string { return &b.ID }),
		Upstream: upstream,
		Policy:   policy,
		Logger:   logger,
	}
	s.codes = &dispatch.Facade[BillingCode, BillingCodePatch]{
		Label:    "billing code",
		Codec:    codeCodec(s.today),
		Store:    mockstore.NewCollection(reg, "billingCodes", func(c *BillingCode) *string { return &c.ID }),
		Upstream: upstream,
		Policy:   policy,
		Logger:   logger,
	}
	return s
}

func (s *Service) today() string {
	return s.now().Format("2006-01-02")
}

func (s *Service) patientName(ctx context.Context, patientID, name string) string {
	if name != "" || patientID == "" || s.patients == nil {
		return name
	}
	return s.patients.PatientName(ctx, patientID)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{dispatch.ErrInvalidInput}, args...)...)
}

// -- Insurance eligibility --

func (s *Service) EligibilityByPatient(ctx context.Context, patientID string) dispatch.ListEnvelope[InsuranceEligibility] {
	if patientID == "" {
		return dispatch.ListFail[InsuranceEligibility](invalid("patient id is required"))
	}
	params := fhir.BuildPatientScopedParams("Coverage", patientID, "", "")
	return s.eligibility.Search(ctx, params, func(e InsuranceEligibility) bool { return e.PatientID == patientID })
}

func (s *Service) GetEligibility(ctx context.Context, id string) dispatch.Envelope[*InsuranceEligibility] {
	return s.eligibility.Get(ctx, id)
}

// CreateEligibility records a coverage. Plan figures and benefits left
// empty get the standard plan; the check is stamped today.
func (s *Service) CreateEligibility(ctx context.Context, e InsuranceEligibility) dispatch.Envelope[InsuranceEligibility] {
	if e.PatientID == "" {
		return dispatch.Fail[InsuranceEligibility](invalid("patient id is required"))
	}
	if e.EligibilityStatus == "" {
		e.EligibilityStatus = EligibilityPending
	}
	if e.InsuranceProvider == "" {
		e.InsuranceProvider = fhir.UnknownProvider
	}
	if e.Copay == 0 {
		e.Copay = DefaultCopay
	}
	if e.Deductible == 0 {
		e.Deductible = DefaultDeductible
	}
	if len(e.Benefits) == 0 {
		e.Benefits = DefaultBenefits()
	}
	e.LastChecked = s.today()
	e.PatientName = s.patientName(ctx, e.PatientID, e.PatientName)
	return s.eligibility.Create(ctx, e)
}

// UpdateEligibility merges patch and restamps lastChecked.
func (s *Service) UpdateEligibility(ctx context.Context, id string, patch InsuranceEligibilityPatch) dispatch.Envelope[InsuranceEligibility] {
	patch.LastChecked = lo.ToPtr(s.today())
	if patch.Copay != nil || patch.Deductible != nil || patch.Benefits != nil {
		// copay, deductible and benefits share costToBeneficiary.
		merged := s.eligibility.Apply(ctx, id, patch)
		if !merged.Success {
			return merged
		}
		full, err := dispatch.PatchOf[InsuranceEligibilityPatch](merged.Data)
		if err != nil {
			return dispatch.Fail[InsuranceEligibility](err)
		}
		patch = full
	}
	return s.eligibility.Update(ctx, id, patch)
}

// -- Patient balances --

func (s *Service) BalancesByPatient(ctx context.Context, patientID string) dispatch.ListEnvelope[PatientBalance] {
	if patientID == "" {
		return dispatch.ListFail[PatientBalance](invalid("patient id is required"))
	}
	params := fhir.BuildPatientScopedParams("Account", patientID, "", "")
	return s.balances.Search(ctx, params, func(b PatientBalance) bool { return b.PatientID == patientID })
}

// AllBalances lists one page of accounts. Session balances are appended to
// the first page only.
func (s *Service) AllBalances(ctx context.Context, page, limit int) dispatch.ListEnvelope[PatientBalance] {
	params := fhir.BuildListParams(page, limit)
	params.Del("_sort")
	keep := dispatch.NoAppend[PatientBalance]
	if page <= 1 {
		keep = nil
	}
	return s.balances.Search(ctx, params, keep)
}

// AddTransaction posts a transaction to the patient's balance, opening one
// when the patient has none.
func (s *Service) AddTransaction(ctx context.Context, patientID string, tx Transaction) dispatch.Envelope[PatientBalance] {
	if patientID == "" {
		return dispatch.Fail[PatientBalance](invalid("patient id is required"))
	}
	if tx.Type == "" {
		tx.Type = TransactionCharge
	}
	if !lo.Contains([]string{TransactionCharge, TransactionPayment, TransactionAdjustment}, tx.Type) {
		return dispatch.Fail[PatientBalance](invalid("unknown transaction type %q", tx.Type))
	}
	if tx.Status == "" {
		tx.Status = TransactionPending
	}
	if !lo.Contains([]string{TransactionPending, TransactionProcessed, TransactionDenied}, tx.Status) {
		return dispatch.Fail[PatientBalance](invalid("unknown transaction status %q", tx.Status))
	}
	if tx.ID == "" {
		tx.ID = mockstore.NewID()
	}
	if tx.Date == "" {
		tx.Date = s.today()
	}
	return s.post(ctx, patientID, tx, nil)
}

// ProcessPayment records a processed payment against the patient's balance
// and makes it the last payment.
func (s *Service) ProcessPayment(ctx context.Context, patientID string, p Payment) dispatch.Envelope[PatientBalance] {
	if patientID == "" {
		return dispatch.Fail[PatientBalance](invalid("patient id is required"))
	}
	if p.Amount <= 0 {
		return dispatch.Fail[PatientBalance](invalid("payment amount must be positive, got %v", p.Amount))
	}
	if p.Date == "" {
		p.Date = s.today()
	}
	if p.Method == "" {
		p.Method = "cash"
	}
	tx := Transaction{
		ID:          mockstore.NewID(),
		Date:        p.Date,
		Description: "Payment - " + p.Method,
		Amount:      p.Amount,
		Type:        TransactionPayment,
		Status:      TransactionProcessed,
	}
	return s.post(ctx, patientID, tx, &p)
}

func (s *Service) post(ctx context.Context, patientID string, tx Transaction, payment *Payment) dispatch.Envelope[PatientBalance] {
	existing := s.BalancesByPatient(ctx, patientID)
	if !existing.Success {
		return dispatch.Envelope[PatientBalance]{Error: existing.Error, ErrorKind: existing.ErrorKind}
	}

	if len(existing.Data) == 0 {
		b := PatientBalance{
			PatientID:    patientID,
			PatientName:  s.patientName(ctx, patientID, ""),
			Transactions: []Transaction{},
		}.apply(tx)
		b.LastPayment = payment
		return s.balances.Create(ctx, b)
	}

	b := existing.Data[0].apply(tx)
	patch := PatientBalancePatch{
		TotalBalance:     &b.TotalBalance,
		InsuranceBalance: &b.InsuranceBalance,
		PatientBalance:   &b.PatientBalance,
		Transactions:     &b.Transactions,
		LastPayment:      payment,
	}
	return s.balances.Update(ctx, b.ID, patch)
}

// -- Billing codes --

func (s *Service) AllCodes(ctx context.Context) dispatch.ListEnvelope[BillingCode] {
	params := fhir.BuildListParams(1, fhir.DefaultSearchCount)
	params.Del("_sort")
	return s.codes.Search(ctx, params, nil)
}

// CodesByCategory filters the catalogue by category, ignoring case. The
// upstream has no category search, so the filter runs here.
func (s *Service) CodesByCategory(ctx context.Context, category string) dispatch.ListEnvelope[BillingCode] {
	return filterCodes(s.AllCodes(ctx), func(c BillingCode) bool {
		return strings.EqualFold(c.Category, category)
	})
}

// SearchCodes matches term against code and description, ignoring case. A
// blank term returns the whole catalogue.
func (s *Service) SearchCodes(ctx context.Context, term string) dispatch.ListEnvelope[BillingCode] {
	needle := strings.ToLower(strings.TrimSpace(term))
	return filterCodes(s.AllCodes(ctx), func(c BillingCode) bool {
		return strings.Contains(strings.ToLower(c.Code), needle) ||
			strings.Contains(strings.ToLower(c.Description), needle)
	})
}

func filterCodes(env dispatch.ListEnvelope[BillingCode], keep func(BillingCode) bool) dispatch.ListEnvelope[BillingCode] {
	if !env.Success {
		return env
	}
	items := lo.Filter(env.Data, func(c BillingCode, _ int) bool { return keep(c) })
	return dispatch.List(items, len(items), env.Message)
}

func (s *Service) GetCode(ctx context.Context, id string) dispatch.Envelope[*BillingCode] {
	return s.codes.Get(ctx, id)
}

// CreateCode adds a code to the catalogue. The insurance rate is derived
// from the fee.
func (s *Service) CreateCode(ctx context.Context, c BillingCode) dispatch.Envelope[BillingCode] {
	if strings.TrimSpace(c.Code) == "" {
		return dispatch.Fail[BillingCode](invalid("billing code is required"))
	}
	if c.Fee < 0 {
		return dispatch.Fail[BillingCode](invalid("fee must not be negative"))
	}
	if c.Category == "" {
		c.Category = DefaultCodeCategory
	}
	if c.Status == "" {
		c.Status = CodeActive
	}
	c.InsuranceRate = InsuranceRate(c.Fee)
	c.LastUpdated = s.today()
	return s.codes.Create(ctx, c)
}

// UpdateCode merges patch, rederiving the insurance rate when the fee
// changes.
func (s *Service) UpdateCode(ctx context.Context, id string, patch BillingCodePatch) dispatch.Envelope[BillingCode] {
	if patch.Fee != nil && *patch.Fee < 0 {
		return dispatch.Fail[BillingCode](invalid("fee must not be negative"))
	}
	patch.LastUpdated = lo.ToPtr(s.today())
	merged := s.codes.Apply(ctx, id, patch)
	if !merged.Success {
		return merged
	}
	c := merged.Data
	c.InsuranceRate = InsuranceRate(c.Fee)
	// category and last-updated share the extension list, so resend all.
	full, err := dispatch.PatchOf[BillingCodePatch](c)
	if err != nil {
		return dispatch.Fail[BillingCode](err)
	}
	return s.codes.Update(ctx, id, full)
}

func (s *Service) DeleteCode(ctx context.Context, id string) dispatch.Envelope[string] {
	return s.codes.Delete(ctx, id)
}
