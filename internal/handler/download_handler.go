package handler

import (
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/ndalu/portaria-api/internal/service"
	"github.com/ndalu/portaria-api/pkg/response"
)

// DownloadHandler streams export files referenced by signed tokens.
type DownloadHandler struct {
	exports *service.ExportService
}

// NewDownloadHandler creates a new handler.
func NewDownloadHandler(exports *service.ExportService) *DownloadHandler {
	return &DownloadHandler{exports: exports}
}

// Download godoc
// @Summary Download export file
// @Description Streams the file referenced by a signed token
// @Tags Downloads
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /downloads/{token} [get]
func (h *DownloadHandler) Download(c *gin.Context) {
	path, err := h.exports.Open(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.FileAttachment(path, filepath.Base(path))
}
