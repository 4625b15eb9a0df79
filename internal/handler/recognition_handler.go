package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ndalu/portaria-api/internal/service"
	"github.com/ndalu/portaria-api/pkg/response"
)

// RecognitionHandler exposes the gate checkpoint lookup.
type RecognitionHandler struct {
	service *service.RecognitionService
}

// NewRecognitionHandler creates a new handler.
func NewRecognitionHandler(svc *service.RecognitionService) *RecognitionHandler {
	return &RecognitionHandler{service: svc}
}

// Lookup godoc
// @Summary Gate checkpoint lookup
// @Description Identity, cohort rank and tuition verdict for one student
// @Tags Recognition
// @Produce json
// @Security BearerAuth
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /recognition/{studentId} [get]
func (h *RecognitionHandler) Lookup(c *gin.Context) {
	result, err := h.service.Lookup(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
