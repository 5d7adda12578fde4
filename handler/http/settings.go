package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"chatdocs/src/storage/postgres/userctrl"
)

// GetSettings godoc
// @Summary Get a user's bot settings
// @Tags users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} userctrl.User
// @Failure 404 {object} ErrorResponse
// @Router /users/{id}/settings [get]
func (h *Handler) GetSettings(c *gin.Context) {
	userID := c.Param("id")

	user, err := h.userService.GetByID(c.Request.Context(), userID)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}
	if user == nil {
		sendError(c, http.StatusNotFound, fmt.Errorf("user %s not found", userID))
		return
	}

	sendJSON(c, http.StatusOK, user)
}

// UpdateSettings godoc
// @Summary Update a user's bot settings
// @Tags users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param body body userctrl.Settings true "Fields to update"
// @Success 200 {object} userctrl.User
// @Failure 400 {object} ErrorResponse
// @Router /users/{id}/settings [patch]
func (h *Handler) UpdateSettings(c *gin.Context) {
	userID := c.Param("id")

	var settings userctrl.Settings
	if err := c.ShouldBindJSON(&settings); err != nil {
		sendError(c, http.StatusBadRequest, err)
		return
	}

	user, err := h.userService.UpdateSettings(c.Request.Context(), userID, settings)
	if err != nil {
		sendError(c, http.StatusInternalServerError, err)
		return
	}

	sendJSON(c, http.StatusOK, user)
}
