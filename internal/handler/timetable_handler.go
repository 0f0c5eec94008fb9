package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/unisched/presentation-api/internal/service"
	appErrors "github.com/unisched/presentation-api/pkg/errors"
	"github.com/unisched/presentation-api/pkg/response"
)

// TimetableHandler exposes weekly timetable endpoints.
type TimetableHandler struct {
	timetables   *service.TimetableService
	displacement *service.DisplacementService
}

// NewTimetableHandler constructs a timetable handler.
func NewTimetableHandler(timetables *service.TimetableService, displacement *service.DisplacementService) *TimetableHandler {
	return &TimetableHandler{timetables: timetables, displacement: displacement}
}

// Create godoc
// @Summary Register a group's weekly timetable
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body service.CreateTimetableRequest true "Timetable payload"
// @Success 201 {object} response.Envelope
// @Router /timetables [post]
func (h *TimetableHandler) Create(c *gin.Context) {
	var req service.CreateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	t, err := h.timetables.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, t)
}

// List godoc
// @Summary List timetables
// @Tags Timetables
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timetables [get]
func (h *TimetableHandler) List(c *gin.Context) {
	timetables, err := h.timetables.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, timetables, nil)
}

// Get godoc
// @Summary Get a timetable
// @Tags Timetables
// @Produce json
// @Param id path string true "Timetable ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id} [get]
func (h *TimetableHandler) Get(c *gin.Context) {
	t, err := h.timetables.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, t, nil)
}

// GetForGroup godoc
// @Summary Get a group's timetable
// @Tags Timetables
// @Produce json
// @Param id path string true "Group ID"
// @Success 200 {object} response.Envelope
// @Router /groups/{id}/timetable [get]
func (h *TimetableHandler) GetForGroup(c *gin.Context) {
	t, err := h.timetables.GetForGroup(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, t, nil)
}

type updateSlotsPayload struct {
	Slots []service.LectureSlotInput `json:"slots" binding:"required"`
}

// UpdateSlots godoc
// @Summary Replace a timetable's slots
// @Tags Timetables
// @Accept json
// @Produce json
// @Param id path string true "Timetable ID"
// @Param payload body updateSlotsPayload true "New slot set"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id}/slots [put]
func (h *TimetableHandler) UpdateSlots(c *gin.Context) {
	var payload updateSlotsPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	t, err := h.timetables.UpdateSlots(c.Request.Context(), c.Param("id"), payload.Slots)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, t, nil)
}

// Delete godoc
// @Summary Delete a timetable
// @Tags Timetables
// @Param id path string true "Timetable ID"
// @Success 204
// @Router /timetables/{id} [delete]
func (h *TimetableHandler) Delete(c *gin.Context) {
	if err := h.timetables.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// FreeTime godoc
// @Summary List a group's free hour blocks on a weekday
// @Tags Timetables
// @Produce json
// @Param id path string true "Group ID"
// @Param day query string true "Weekday name"
// @Success 200 {object} response.Envelope
// @Router /groups/{id}/free-time [get]
func (h *TimetableHandler) FreeTime(c *gin.Context) {
	free, err := h.timetables.FreeTimeForDay(c.Request.Context(), c.Param("id"), c.Query("day"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, free, nil)
}

// Displacements godoc
// @Summary List a lecturer's displacement history
// @Tags Timetables
// @Produce json
// @Param id path string true "Lecturer ID"
// @Success 200 {object} response.Envelope
// @Router /lecturers/{id}/displacements [get]
func (h *TimetableHandler) Displacements(c *gin.Context) {
	records, err := h.displacement.ListForLecturer(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}
