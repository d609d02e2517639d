package clinical

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
	api.GET("/patients/:id/notes", h.ListNotes)
	api.POST("/notes", h.CreateNote)
	api.GET("/notes/:id", h.GetNote)
	api.PUT("/notes/:id", h.UpdateNote)
	api.PATCH("/notes/:id", h.UpdateNote)
	api.DELETE("/notes/:id", h.DeleteNote)

	api.GET("/patients/:id/vitals", h.ListVitals)
	api.POST("/vitals", h.CreateVitals)
	api.GET("/vitals/:id", h.GetVitals)
	api.PUT("/vitals/:id", h.UpdateVitals)
	api.PATCH("/vitals/:id", h.UpdateVitals)
	api.DELETE("/vitals/:id", h.DeleteVitals)

	api.GET("/patients/:id/labs", h.ListLabs)
	api.POST("/labs", h.CreateLab)
	api.GET("/labs/:id", h.GetLab)
	api.PUT("/labs/:id", h.UpdateLab)
	api.PATCH("/labs/:id", h.UpdateLab)
	api.PUT("/labs/:id/status", h.UpdateLabStatus)
	api.DELETE("/labs/:id", h.DeleteLab)

	api.GET("/patients/:id/medications", h.ListMedications)
	api.POST("/medications", h.CreateMedication)
	api.GET("/medications/:id", h.GetMedication)
	api.PUT("/medications/:id", h.UpdateMedication)
	api.PATCH("/medications/:id", h.UpdateMedication)
	api.POST("/medications/:id/discontinue", h.DiscontinueMedication)
	api.DELETE("/medications/:id", h.DeleteMedication)
}

// -- Notes --

func (h *Handler) ListNotes(c echo.Context) error {
	return dispatch.RespondList(c, h.svc.NotesByPatient(c.Request().Context(), c.Param("id")))
}

func (h *Handler) GetNote(c echo.Context) error {
	return dispatch.Respond(c, http.StatusOK, h.svc.GetNote(c.Request().Context(), c.Param("id")))
}

func (h *Handler) CreateNote(c echo.Context) error {
	var n ClinicalNote
	if err := c.Bind(&n); err != nil {
		return dispatch.BadRequest(c, err)
	}
	n.ID = ""
	return dispatch.Respond(c, http.StatusCreated, h.svc.CreateNote(c.Request().Context(), n))
}

func (h *Handler) UpdateNote(c echo.Context) error {
	var patch ClinicalNotePatch
	if err := c.Bind(&patch); err != nil {
		return dispatch.BadRequest(c, err)
	}
	return dispatch.Respond(c, http.StatusOK, h.svc.UpdateNote(c.Request().Context(), c.Param("id"), patch))
}

func (h *Handler) DeleteNote(c echo.Context) error {
	return dispatch.Respond(c, http.StatusOK, h.svc.DeleteNote(c.Request().Context(), c.Param("id")))
}

// -- Vitals --

func (h *Handler) ListVitals(c echo.Context) error {
	return dispatch.RespondList(c, h.svc.VitalsByPatient(c.Request().Context(), c.Param("id")))
}

func (h *Handler) GetVitals(c echo.Context) error {
	return dispatch.Respond(c, http.StatusOK, h.svc.GetVitals(c.Request().Context(), c.Param("id")))
}

func (h *Handler) CreateVitals(c echo.Context) error {
	var v VitalSigns
	if err := c.Bind(&v); err != nil {
		return dispatch.BadRequest(c, err)
	}
	v.ID = ""
	return dispatch.Respond(c, http.StatusCreated, h.svc.CreateVitals(c.Request().Context(), v))
}

func (h *Handler) UpdateVitals(c echo.Context) error {
	var patch VitalSignsPatch
	if err := c.Bind(&patch); err != nil {
		return dispatch.BadRequest(c, err)
	}
	return dispatch.Respond(c, http.StatusOK, h.svc.UpdateVitals(c.Request().Context(), c.Param("id"), patch))
}

func (h *Handler) DeleteVitals(c echo.Context) error {
	return dispatch.Respond(c, http.StatusOK, h.svc.DeleteVitals(c.Request().Context(), c.Param("id")))
}

// -- Labs --

func (h *Handler) ListLabs(c echo.Context) error {
	return dispatch.RespondList(c, h.svc.LabsByPatient(c.Request().Context(), c.Param("id")))
}

func (h *Handler) GetLab(c echo.Context) error {
	return dispatch.Respond(c, http.StatusOK, h.svc.GetLab(c.Request().Context(), c.Param("id")))
}

func (h *Handler) CreateLab(c echo.Context) error {
	var l LabResult
	if err := c.Bind(&l); err != nil {
		return dispatch.BadRequest(c, err)
	}
	l.ID = ""
	return dispatch.Respond(c, http.StatusCreated, h.svc.CreateLab(c.Request().Context(), l))
}

func (h *Handler) UpdateLab(c echo.Context) error {
	var patch LabResultPatch
	if err := c.Bind(&patch); err != nil {
		return dispatch.BadRequest(c, err)
	}
	return dispatch.Respond(c, http.StatusOK, h.svc.UpdateLab(c.Request().Context(), c.Param("id"), patch))
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) UpdateLabStatus(c echo.Context) error {
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return dispatch.BadRequest(c, err)
	}
	return dispatch.Respond(c, http.StatusOK, h.svc.UpdateLabStatus(c.Request().Context(), c.Param("id"), req.Status))
}

func (h *Handler) DeleteLab(c echo.Context) error {
	return dispatch.Respond(c, http.StatusOK, h.svc.DeleteLab(c.Request().Context(), c.Param("id")))
}

// -- Medications --

func (h *Handler) ListMedications(c echo.Context) error {
	return dispatch.RespondList(c, h.svc.MedicationsByPatient(c.Request().Context(), c.Param("id")))
}

func (h *Handler) GetMedication(c echo.Context) error {
	return dispatch.Respond(c, http.StatusOK, h.svc.GetMedication(c.Request().Context(), c.Param("id")))
}

func (h *Handler) CreateMedication(c echo.Context) error {
	var m Medication
	if err := c.Bind(&m); err != nil {
		return dispatch.BadRequest(c, err)
	}
	m.ID = ""
	return dispatch.Respond(c, http.StatusCreated, h.svc.CreateMedication(c.Request().Context(), m))
}

func (h *Handler) UpdateMedication(c echo.Context) error {
	var patch MedicationPatch
	if err := c.Bind(&patch); err != nil {
		return dispatch.BadRequest(c, err)
	}
	return dispatch.Respond(c, http.StatusOK, h.svc.UpdateMedication(c.Request().Context(), c.Param("id"), patch))
}

func (h *Handler) DiscontinueMedication(c echo.Context) error {
	return dispatch.Respond(c, http.StatusOK, h.svc.DiscontinueMedication(c.Request().Context(), c.Param("id")))
}

func (h *Handler) DeleteMedication(c echo.Context) error {
	return dispatch.Respond(c, http.StatusOK, h.svc.DeleteMedication(c.Request().Context(), c.Param("id")))
}
