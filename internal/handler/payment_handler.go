package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ndalu/portaria-api/internal/service"
	appErrors "github.com/ndalu/portaria-api/pkg/errors"
	"github.com/ndalu/portaria-api/pkg/response"
)

// PaymentHandler exposes the tuition ledger endpoints.
type PaymentHandler struct {
	service *service.PaymentService
}

// NewPaymentHandler creates a new handler.
func NewPaymentHandler(svc *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{service: svc}
}

// Pay godoc
// @Summary Settle tuition months
// @Tags Payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param studentId path string true "Student ID"
// @Param payload body service.PayRequest true "Months to settle"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /payments/{studentId} [post]
func (h *PaymentHandler) Pay(c *gin.Context) {
	var req service.PayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payment payload"))
		return
	}
	result, err := h.service.Pay(c.Request.Context(), c.Param("studentId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Cancel godoc
// @Summary Cancel tuition months
// @Tags Payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param studentId path string true "Student ID"
// @Param payload body service.CancelRequest true "Months to cancel"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /payments/{studentId} [delete]
func (h *PaymentHandler) Cancel(c *gin.Context) {
	var req service.CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid cancel payload"))
		return
	}
	removed, err := h.service.Cancel(c.Request.Context(), c.Param("studentId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"cancelled": removed}, nil)
}

// Statement godoc
// @Summary Tuition statement
// @Description Twelve-month breakdown for a school year
// @Tags Payments
// @Produce json
// @Security BearerAuth
// @Param studentId path string true "Student ID"
// @Param school_year query string false "School year, defaults to current"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /payments/{studentId} [get]
func (h *PaymentHandler) Statement(c *gin.Context) {
	statement, err := h.service.Statement(c.Request.Context(), c.Param("studentId"), c.Query("school_year"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, statement, nil)
}

// Export godoc
// @Summary Export tuition statement
// @Tags Payments
// @Produce json
// @Security BearerAuth
// @Param studentId path string true "Student ID"
// @Param format query string false "csv or pdf" default(csv)
// @Param school_year query string false "School year, defaults to current"
// @Success 200 {object} response.Envelope
// @Router /payments/{studentId}/export [get]
func (h *PaymentHandler) Export(c *gin.Context) {
	result, err := h.service.ExportStatement(c.Request.Context(), c.Param("studentId"), c.Query("school_year"), c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
