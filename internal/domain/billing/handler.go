package billing

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ehr/dashboard/internal/platform/dispatch"
	"github.com/ehr/dashboard/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/patients/:id/eligibility", h.ListEligibility)
	api.POST("/eligibility", h.CreateEligibility)
	api.GET("/eligibility/:id", h.GetEligibility)
	api.PUT("/eligibility/:id", h.UpdateEligibility)
	api.PATCH("/eligibility/:id", h.UpdateEligibility)

	api.GET("/patients/:id/balances", h.ListPatientBalances)
	api.GET("/balances", h.ListBalances)
	api.POST("/patients/:id/transactions", h.AddTransaction)
	api.POST("/patients/:id/payments", h.ProcessPayment)

	api.GET("/billing-codes", h.ListCodes)
	api.POST("/billing-codes", h.CreateCode)
	api.GET("/billing-codes/:id", h.GetCode)
	api.PUT("/billing-codes/:id", h.UpdateCode)
	api.PATCH("/billing-codes/:id", h.UpdateCode)
	api.DELETE("/billing-codes/:id", h.DeleteCode)
}

func (h *Handler) ListEligibility(c echo.Context) error {
	return dispatch.RespondList(c, h.svc.EligibilityByPatient(c.Request().Context(), c.Param("id")))
}

func (h *Handler) GetEligibility(c echo.Context) error {
	return dispatch.Respond(c, http.StatusOK, h.svc.GetEligibility(c.Request().Context(), c.Param("id")))
}

func (h *Handler) CreateEligibility(c echo.Context) error {
	var e InsuranceEligibility
	if err := c.Bind(&e); err != nil {
		return dispatch.BadRequest(c, err)
	}
	e.ID = ""
	return dispatch.Respond(c, http.StatusCreated, h.svc.CreateEligibility(c.Request().Context(), e))
}

func (h *Handler) UpdateEligibility(c echo.Context) error {
	var patch InsuranceEligibilityPatch
	if err := c.Bind(&patch); err != nil {
		return dispatch.BadRequest(c, err)
	}
	return dispatch.Respond(c, http.StatusOK, h.svc.UpdateEligibility(c.Request().Context(), c.Param("id"), patch))
}

func (h *Handler) ListPatientBalances(c echo.Context) error {
	return dispatch.RespondList(c, h.svc.BalancesByPatient(c.Request().Context(), c.Param("id")))
}

func (h *Handler) ListBalances(c echo.Context) error {
	pg := pagination.FromContext(c)
	return dispatch.RespondList(c, h.svc.AllBalances(c.Request().Context(), pg.Page(), pg.Limit))
}

func (h *Handler) AddTransaction(c echo.Context) error {
	var tx Transaction
	if err := c.Bind(&tx); err != nil {
		return dispatch.BadRequest(c, err)
	}
	return dispatch.Respond(c, http.StatusCreated, h.svc.AddTransaction(c.Request().Context(), c.Param("id"), tx))
}

func (h *Handler) ProcessPayment(c echo.Context) error {
	var p Payment
	if err := c.Bind(&p); err != nil {
		return dispatch.BadRequest(c, err)
	}
	return dispatch.Respond(c, http.StatusCreated, h.svc.ProcessPayment(c.Request().Context(), c.Param("id"), p))
}

// ListCodes filters by category when given, else searches by q.
func (h *Handler) ListCodes(c echo.Context) error {
	ctx := c.Request().Context()
	if category := c.QueryParam("category"); category != "" {
		return dispatch.RespondList(c, h.svc.CodesByCategory(ctx, category))
	}
	if q := c.QueryParam("q"); q != "" {
		return dispatch.RespondList(c, h.svc.SearchCodes(ctx, q))
	}
	return dispatch.RespondList(c, h.svc.AllCodes(ctx))
}

func (h *Handler) GetCode(c echo.Context) error {
	return dispatch.Respond(c, http.StatusOK, h.svc.GetCode(c.Request().Context(), c.Param("id")))
}

func (h *Handler) CreateCode(c echo.Context) error {
	var code BillingCode
	if err := c.Bind(&code); err != nil {
		return dispatch.BadRequest(c, err)
	}
	code.ID = ""
	return dispatch.Respond(c, http.StatusCreated, h.svc.CreateCode(c.Request().Context(), code))
}

func (h *Handler) UpdateCode(c echo.Context) error {
	var patch BillingCodePatch
	if err := c.Bind(&patch); err != nil {
		return dispatch.BadRequest(c, err)
	}
	return dispatch.Respond(c, http.StatusOK, h.svc.UpdateCode(c.Request().Context(), c.Param("id"), patch))
}

func (h *Handler) DeleteCode(c echo.Context) error {
	return dispatch.Respond(c, http.StatusOK, h.svc.DeleteCode(c.Request().Context(), c.Param("id")))
}
