package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/unisched/presentation-api/internal/service"
	appErrors "github.com/unisched/presentation-api/pkg/errors"
	"github.com/unisched/presentation-api/pkg/response"
)

// SuggestionHandler exposes slot-search endpoints.
type SuggestionHandler struct {
	service *service.SuggestionService
}

// NewSuggestionHandler constructs a suggestion handler.
func NewSuggestionHandler(svc *service.SuggestionService) *SuggestionHandler {
	return &SuggestionHandler{service: svc}
}

// BestDate godoc
// @Summary Suggest the least-loaded date
// @Description With examiner_ids, load is the examiners' lecture count per weekday; without, the number of bookings per date.
// @Tags Suggestions
// @Produce json
// @Param examiner_ids query string false "Comma-separated examiner ids"
// @Param offset_days query int false "Days from today the scan starts (default 1)"
// @Param horizon_days query int false "Number of dates scanned (default 14)"
// @Success 200 {object} response.Envelope
// @Router /suggestions/best-date [get]
func (h *SuggestionHandler) BestDate(c *gin.Context) {
	var examinerIDs []string
	if raw := c.Query("examiner_ids"); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				examinerIDs = append(examinerIDs, id)
			}
		}
	}
	offset, err := queryInt(c, "offset_days", 1)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "offset_days must be a non-negative integer"))
		return
	}
	horizon, err := queryInt(c, "horizon_days", 0)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "horizon_days must be a non-negative integer"))
		return
	}
	date, err := h.service.SelectBestDate(c.Request.Context(), offset, horizon, examinerIDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"date": date}, nil)
}

func queryInt(c *gin.Context, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, appErrors.ErrValidation
	}
	return v, nil
}

// SuggestSlot godoc
// @Summary Suggest an open slot
// @Description Picks the least-loaded date for the students' department examiners, then the first workable time, venue, and examiner pairing on that date.
// @Tags Suggestions
// @Accept json
// @Produce json
// @Param payload body service.SuggestionRequest true "Slot requirements"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope "No open slot within the horizon"
// @Router /suggestions/slot [post]
func (h *SuggestionHandler) SuggestSlot(c *gin.Context) {
	var req service.SuggestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	suggestion, err := h.service.SuggestSlot(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, suggestion, nil)
}

// SuggestForReschedule godoc
// @Summary Suggest a replacement slot for a booking
// @Tags Suggestions
// @Produce json
// @Param id path string true "Presentation ID"
// @Success 200 {object} response.Envelope
// @Router /presentations/{id}/reschedule-suggestion [get]
func (h *SuggestionHandler) SuggestForReschedule(c *gin.Context) {
	suggestion, err := h.service.SuggestForReschedule(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, suggestion, nil)
}
