package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/unisched/presentation-api/internal/service"
	appErrors "github.com/unisched/presentation-api/pkg/errors"
	"github.com/unisched/presentation-api/pkg/response"
)

// AvailabilityHandler exposes conflict checks and free-window lookups.
type AvailabilityHandler struct {
	service *service.AvailabilityService
}

// NewAvailabilityHandler constructs an availability handler.
func NewAvailabilityHandler(svc *service.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{service: svc}
}

type availabilityResponse struct {
	Available bool               `json:"available"`
	Conflicts []service.Conflict `json:"conflicts,omitempty"`
}

// Check godoc
// @Summary Check slot availability
// @Description Tests whether a venue, examiner set, and student set are jointly free for a date and time range.
// @Tags Availability
// @Accept json
// @Produce json
// @Param payload body service.AvailabilityRequest true "Candidate slot"
// @Success 200 {object} response.Envelope
// @Router /availability/check [post]
func (h *AvailabilityHandler) Check(c *gin.Context) {
	var req service.AvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	ok, conflicts, err := h.service.Check(c.Request.Context(), nil, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, availabilityResponse{Available: ok, Conflicts: conflicts}, nil)
}

// FreeWindows godoc
// @Summary List a day's free windows
// @Tags Availability
// @Produce json
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param venue_id query string false "Restrict to one venue"
// @Param granularity query int false "Window size in minutes (default 60)"
// @Success 200 {object} response.Envelope
// @Router /availability/free-windows [get]
func (h *AvailabilityHandler) FreeWindows(c *gin.Context) {
	granularity := 60
	if raw := c.Query("granularity"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			granularity = v
		}
	}
	windows, err := h.service.FreeWindows(c.Request.Context(), c.Query("date"), c.Query("venue_id"), granularity)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, windows, nil)
}
