package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/unisched/presentation-api/internal/models"
	"github.com/unisched/presentation-api/internal/service"
	appErrors "github.com/unisched/presentation-api/pkg/errors"
	"github.com/unisched/presentation-api/pkg/response"
)

// PresentationHandler exposes booking endpoints.
type PresentationHandler struct {
	service *service.PresentationService
}

// NewPresentationHandler constructs a presentation handler.
func NewPresentationHandler(svc *service.PresentationService) *PresentationHandler {
	return &PresentationHandler{service: svc}
}

// Create godoc
// @Summary Book a presentation
// @Description Books a presentation if every resource is free. Date and start time are optional; missing values resolve to the least-loaded date and the earliest free run.
// @Tags Presentations
// @Accept json
// @Produce json
// @Param payload body service.CreatePresentationRequest true "Booking payload"
// @Success 201 {object} response.Envelope
// @Success 200 {object} response.Envelope "Slot occupied; body carries the conflict reason"
// @Router /presentations [post]
func (h *PresentationHandler) Create(c *gin.Context) {
	var req service.CreatePresentationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !result.Scheduled {
		response.JSON(c, http.StatusOK, result, nil)
		return
	}
	response.Created(c, result)
}

// Reschedule godoc
// @Summary Move a presentation to a new slot
// @Description Re-checks the target slot against the presentation's current participants before applying the move.
// @Tags Presentations
// @Accept json
// @Produce json
// @Param id path string true "Presentation ID"
// @Param payload body service.ReschedulePresentationRequest true "Target slot"
// @Success 200 {object} response.Envelope
// @Router /presentations/{id} [put]
func (h *PresentationHandler) Reschedule(c *gin.Context) {
	var req service.ReschedulePresentationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.service.Reschedule(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// List godoc
// @Summary List presentations
// @Tags Presentations
// @Produce json
// @Param date query string false "Filter by date (YYYY-MM-DD)"
// @Param department query string false "Filter by department"
// @Param venue_id query string false "Filter by venue"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /presentations [get]
func (h *PresentationHandler) List(c *gin.Context) {
	var filter models.PresentationFilter
	filter.Date = c.Query("date")
	filter.Department = c.Query("department")
	filter.VenueID = c.Query("venue_id")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	presentations, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, presentations, pagination)
}

// Get godoc
// @Summary Get presentation detail
// @Tags Presentations
// @Produce json
// @Param id path string true "Presentation ID"
// @Success 200 {object} response.Envelope
// @Router /presentations/{id} [get]
func (h *PresentationHandler) Get(c *gin.Context) {
	p, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, p, nil)
}

// Delete godoc
// @Summary Cancel a presentation
// @Tags Presentations
// @Param id path string true "Presentation ID"
// @Success 204
// @Router /presentations/{id} [delete]
func (h *PresentationHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListForExaminer godoc
// @Summary List an examiner's presentations
// @Tags Presentations
// @Produce json
// @Param id path string true "Examiner ID"
// @Success 200 {object} response.Envelope
// @Router /examiners/{id}/presentations [get]
func (h *PresentationHandler) ListForExaminer(c *gin.Context) {
	presentations, err := h.service.ListForExaminer(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, presentations, nil)
}

// ListForStudent godoc
// @Summary List a student's presentations
// @Tags Presentations
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/presentations [get]
func (h *PresentationHandler) ListForStudent(c *gin.Context) {
	presentations, err := h.service.ListForStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, presentations, nil)
}
