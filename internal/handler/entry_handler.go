package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ndalu/portaria-api/internal/models"
	"github.com/ndalu/portaria-api/internal/service"
	appErrors "github.com/ndalu/portaria-api/pkg/errors"
	"github.com/ndalu/portaria-api/pkg/response"
)

// EntryHandler exposes the gate decision endpoints.
type EntryHandler struct {
	service *service.EntryService
}

// NewEntryHandler creates a new handler.
func NewEntryHandler(svc *service.EntryService) *EntryHandler {
	return &EntryHandler{service: svc}
}

type denyPayload struct {
	Reason string `json:"reason"`
}

// Admit godoc
// @Summary Admit student at the gate
// @Tags Entries
// @Produce json
// @Security BearerAuth
// @Param studentId path string true "Student ID"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /entry/{studentId}/admit [post]
func (h *EntryHandler) Admit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	decision, err := h.service.Record(c.Request.Context(), c.Param("studentId"), claims.UserID, service.RecordRequest{
		Status:    models.EntryAdmitted,
		IP:        c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, decision)
}

// Deny godoc
// @Summary Deny student at the gate
// @Tags Entries
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param studentId path string true "Student ID"
// @Param payload body denyPayload true "Denial reason"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /entry/{studentId}/deny [post]
func (h *EntryHandler) Deny(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var payload denyPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid denial payload"))
		return
	}
	decision, err := h.service.Record(c.Request.Context(), c.Param("studentId"), claims.UserID, service.RecordRequest{
		Status:       models.EntryDenied,
		DenialReason: &payload.Reason,
		IP:           c.ClientIP(),
		UserAgent:    c.GetHeader("User-Agent"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, decision)
}

// Feed godoc
// @Summary Today's gate feed
// @Tags Entries
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page" default(1)
// @Success 200 {object} response.Envelope
// @Router /entries/feed [get]
func (h *EntryHandler) Feed(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	feed, err := h.service.TodayFeed(c.Request.Context(), page)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, feed, nil)
}

// Summary godoc
// @Summary Decision log summary
// @Tags Entries
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /entries/summary [get]
func (h *EntryHandler) Summary(c *gin.Context) {
	summary, err := h.service.Summary(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Export godoc
// @Summary Export today's gate log
// @Tags Entries
// @Produce json
// @Security BearerAuth
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {object} response.Envelope
// @Router /entries/export [get]
func (h *EntryHandler) Export(c *gin.Context) {
	result, err := h.service.ExportToday(c.Request.Context(), c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
