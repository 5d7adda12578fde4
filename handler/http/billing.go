package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// BillingPortal godoc
// @Summary Redirect to the external billing portal
// @Tags billing
// @Success 307
// @Failure 404 {object} ErrorResponse
// @Router /billing/portal [get]
func (h *Handler) BillingPortal(c *gin.Context) {
	if h.billingURL == "" {
		sendError(c, http.StatusNotFound, fmt.Errorf("billing portal is not configured"))
		return
	}

	c.Redirect(http.StatusTemporaryRedirect, h.billingURL)
}
