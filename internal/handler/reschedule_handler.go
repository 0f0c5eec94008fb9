package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/unisched/presentation-api/internal/models"
	"github.com/unisched/presentation-api/internal/service"
	appErrors "github.com/unisched/presentation-api/pkg/errors"
	"github.com/unisched/presentation-api/pkg/response"
)

// RescheduleHandler exposes the reschedule request workflow.
type RescheduleHandler struct {
	service *service.RescheduleService
}

// NewRescheduleHandler constructs a reschedule handler.
func NewRescheduleHandler(svc *service.RescheduleService) *RescheduleHandler {
	return &RescheduleHandler{service: svc}
}

// Submit godoc
// @Summary File a reschedule request
// @Tags Reschedules
// @Accept json
// @Produce json
// @Param payload body service.SubmitRescheduleRequest true "Request payload"
// @Success 201 {object} response.Envelope
// @Router /reschedule-requests [post]
func (h *RescheduleHandler) Submit(c *gin.Context) {
	var req service.SubmitRescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	request, err := h.service.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// List godoc
// @Summary List reschedule requests
// @Tags Reschedules
// @Produce json
// @Param status query string false "Filter by status (Pending, Approved, Rejected)"
// @Success 200 {object} response.Envelope
// @Router /reschedule-requests [get]
func (h *RescheduleHandler) List(c *gin.Context) {
	requests, err := h.service.List(c.Request.Context(), c.Query("status"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}

// ListForRequester godoc
// @Summary List a user's reschedule requests
// @Tags Reschedules
// @Produce json
// @Param id path string true "Requester ID"
// @Success 200 {object} response.Envelope
// @Router /users/{id}/reschedule-requests [get]
func (h *RescheduleHandler) ListForRequester(c *gin.Context) {
	requests, err := h.service.ListForRequester(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}

type resolvePayload struct {
	Action string `json:"action" binding:"required"`
}

// Resolve godoc
// @Summary Approve or reject a pending request
// @Description An approval whose requested slot has been taken since submission flips to a rejection; the body reports the conflicts.
// @Tags Reschedules
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body resolvePayload true "Action: Approve or Reject"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope "Request already resolved"
// @Router /reschedule-requests/{id}/resolve [post]
func (h *RescheduleHandler) Resolve(c *gin.Context) {
	var payload resolvePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.service.Resolve(c.Request.Context(), c.Param("id"), payload.Action)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Delete godoc
// @Summary Delete a reschedule request
// @Tags Reschedules
// @Param id path string true "Request ID"
// @Success 204
// @Router /reschedule-requests/{id} [delete]
func (h *RescheduleHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DeleteApprovedForRequester godoc
// @Summary Delete a user's approved requests
// @Tags Reschedules
// @Produce json
// @Param id path string true "Requester ID"
// @Success 200 {object} response.Envelope
// @Router /users/{id}/reschedule-requests/approved [delete]
func (h *RescheduleHandler) DeleteApprovedForRequester(c *gin.Context) {
	h.deleteResolved(c, models.RequestStatusApproved)
}

// DeleteRejectedForRequester godoc
// @Summary Delete a user's rejected requests
// @Tags Reschedules
// @Produce json
// @Param id path string true "Requester ID"
// @Success 200 {object} response.Envelope
// @Router /users/{id}/reschedule-requests/rejected [delete]
func (h *RescheduleHandler) DeleteRejectedForRequester(c *gin.Context) {
	h.deleteResolved(c, models.RequestStatusRejected)
}

func (h *RescheduleHandler) deleteResolved(c *gin.Context, status string) {
	removed, err := h.service.DeleteResolvedForRequester(c.Request.Context(), c.Param("id"), status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"removed": removed}, nil)
}

// PurgeRejected godoc
// @Summary Purge old rejected requests
// @Tags Reschedules
// @Produce json
// @Param older_than query string false "Age cutoff as a duration (default 48h)"
// @Success 200 {object} response.Envelope
// @Router /reschedule-requests/purge [post]
func (h *RescheduleHandler) PurgeRejected(c *gin.Context) {
	age := 48 * time.Hour
	if raw := c.Query("older_than"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "older_than must be a duration such as 48h"))
			return
		}
		age = parsed
	}
	removed, err := h.service.PurgeRejectedOlderThan(c.Request.Context(), age)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"removed": removed}, nil)
}
