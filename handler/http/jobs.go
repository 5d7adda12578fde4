package http

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"chatdocs/src/core/rag"
)

// GetJob godoc
// @Summary Get a background job's status
// @Tags jobs
// @Produce json
// @Param id path int true "Job ID"
// @Success 200 {object} job.Job
// @Failure 404 {object} ErrorResponse
// @Router /jobs/{id} [get]
func (h *Handler) GetJob(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		sendError(c, http.StatusBadRequest, rag.NewValidationError("invalid job id"))
		return
	}

	j, err := h.jobRepo.Get(c.Request.Context(), id)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	if j == nil {
		sendError(c, http.StatusNotFound, fmt.Errorf("job %d not found", id))
		return
	}

	sendJSON(c, http.StatusOK, j)
}
