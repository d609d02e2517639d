package identity

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ehr/dashboard/internal/platform/dispatch"
	"github.com/ehr/dashboard/internal/platform/fhir"
	"github.com/ehr/dashboard/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/patients", h.ListPatients)
	api.GET("/patients/:id", h.GetPatient)
	api.POST("/patients", h.CreatePatient)
	api.PUT("/patients/:id", h.UpdatePatient)
	api.PATCH("/patients/:id", h.UpdatePatient)
	api.DELETE("/patients/:id", h.DeletePatient)

	api.GET("/providers", h.ListProviders)
	api.GET("/providers/current", h.CurrentProvider)
	api.GET("/providers/:id", h.GetProvider)
}

// ListPatients searches when q is given and lists a page otherwise.
func (h *Handler) ListPatients(c echo.Context) error {
	ctx := c.Request().Context()
	if q := c.QueryParam("q"); q != "" {
		mode := fhir.ParseSearchMode(c.QueryParam("mode"))
		return dispatch.RespondList(c, h.svc.SearchPatients(ctx, q, mode))
	}
	pg := pagination.FromContext(c)
	return dispatch.RespondList(c, h.svc.ListPatients(ctx, pg.Page(), pg.Limit))
}

func (h *Handler) GetPatient(c echo.Context) error {
	return dispatch.Respond(c, http.StatusOK, h.svc.GetPatient(c.Request().Context(), c.Param("id")))
}

func (h *Handler) CreatePatient(c echo.Context) error {
	var p Patient
	if err := c.Bind(&p); err != nil {
		return dispatch.BadRequest(c, err)
	}
	p.ID = ""
	return dispatch.Respond(c, http.StatusCreated, h.svc.CreatePatient(c.Request().Context(), p))
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	var patch PatientPatch
	if err := c.Bind(&patch); err != nil {
		return dispatch.BadRequest(c, err)
	}
	return dispatch.Respond(c, http.StatusOK, h.svc.UpdatePatient(c.Request().Context(), c.Param("id"), patch))
}

func (h *Handler) DeletePatient(c echo.Context) error {
	return dispatch.Respond(c, http.StatusOK, h.svc.DeletePatient(c.Request().Context(), c.Param("id")))
}

func (h *Handler) ListProviders(c echo.Context) error {
	return dispatch.RespondList(c, h.svc.ListProviders(c.Request().Context()))
}

func (h *Handler) GetProvider(c echo.Context) error {
	return dispatch.Respond(c, http.StatusOK, h.svc.GetProvider(c.Request().Context(), c.Param("id")))
}

func (h *Handler) CurrentProvider(c echo.Context) error {
	return dispatch.Respond(c, http.StatusOK, h.svc.CurrentProvider(c.Request().Context()))
}
