package scheduling

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ehr/dashboard/internal/platform/dispatch"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/appointments", h.ListAppointments)
	api.GET("/appointments/:id", h.GetAppointment)
	api.POST("/appointments", h.CreateAppointment)
	api.PUT("/appointments/:id", h.UpdateAppointment)
	api.PATCH("/appointments/:id", h.UpdateAppointment)
	api.DELETE("/appointments/:id", h.DeleteAppointment)
	api.POST("/appointments/:id/cancel", h.CancelAppointment)

	api.GET("/providers/:id/availability", h.ProviderAvailability)
}

// ListAppointments filters by patient_id, by provider_id (with an optional
// date) or by the start/end date range, in that order of precedence.
func (h *Handler) ListAppointments(c echo.Context) error {
	ctx := c.Request().Context()
	switch {
	case c.QueryParam("patient_id") != "":
		return dispatch.RespondList(c, h.svc.GetByPatient(ctx, c.QueryParam("patient_id")))
	case c.QueryParam("provider_id") != "":
		return dispatch.RespondList(c, h.svc.GetByProvider(ctx, c.QueryParam("provider_id"), c.QueryParam("date")))
	}
	return dispatch.RespondList(c, h.svc.GetByDateRange(ctx, c.QueryParam("start"), c.QueryParam("end")))
}

func (h *Handler) GetAppointment(c echo.Context) error {
	return dispatch.Respond(c, http.StatusOK, h.svc.Get(c.Request().Context(), c.Param("id")))
}

func (h *Handler) CreateAppointment(c echo.Context) error {
	var a Appointment
	if err := c.Bind(&a); err != nil {
		return dispatch.BadRequest(c, err)
	}
	a.ID = ""
	return dispatch.Respond(c, http.StatusCreated, h.svc.Create(c.Request().Context(), a))
}

func (h *Handler) UpdateAppointment(c echo.Context) error {
	var patch AppointmentPatch
	if err := c.Bind(&patch); err != nil {
		return dispatch.BadRequest(c, err)
	}
	return dispatch.Respond(c, http.StatusOK, h.svc.Update(c.Request().Context(), c.Param("id"), patch))
}

func (h *Handler) DeleteAppointment(c echo.Context) error {
	return dispatch.Respond(c, http.StatusOK, h.svc.Delete(c.Request().Context(), c.Param("id")))
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) CancelAppointment(c echo.Context) error {
	var req cancelRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return dispatch.BadRequest(c, err)
		}
	}
	return dispatch.Respond(c, http.StatusOK, h.svc.Cancel(c.Request().Context(), c.Param("id"), req.Reason))
}

func (h *Handler) ProviderAvailability(c echo.Context) error {
	return dispatch.Respond(c, http.StatusOK, h.svc.ProviderAvailability(c.Request().Context(), c.Param("id"), c.QueryParam("date")))
}
