package http

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"chatdocs/src/core/rag"
)

const maxUploadBytes = 32 << 20 // 32 MiB

// UploadFile godoc
// @Summary Upload a PDF for later ingestion
// @Tags files
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "PDF file"
// @Success 200 {object} map[string]string
// @Failure 400 {object} ErrorResponse
// @Router /files [post]
func (h *Handler) UploadFile(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		sendError(c, http.StatusBadRequest, rag.NewValidationError("no file uploaded"))
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		sendError(c, http.StatusBadRequest, rag.NewValidationError("only PDF files are allowed"))
		return
	}
	if header.Size > maxUploadBytes {
		sendError(c, http.StatusBadRequest, rag.NewValidationError("file exceeds the %d byte upload limit", maxUploadBytes))
		return
	}

	fileBytes, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	id := fmt.Sprintf("%s.pdf", uuid.New().String())
	err = h.minioService.PutObject(c.Request.Context(), h.uploadBucket, id, fileBytes, "application/pdf")
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	sendJSON(c, http.StatusOK, gin.H{
		"id":       id,
		"filename": header.Filename,
	})
}
