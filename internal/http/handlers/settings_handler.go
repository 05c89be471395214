// Chatbot settings HTTP handlers.
//
//   - GET  /admin/settings  (current document)
//   - PUT  /admin/settings  (replace document)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rsh-ai/assistant-backend/internal/settings"
)

// GetSettings godoc
// @ID          getSettings
// @Summary     Get the chatbot settings document
// @Tags        Settings
// @Produce     json
//
// @Success     200  {object} settings.Document
// @Router      /admin/settings [get]
func (h *Handlers) GetSettings(c *gin.Context) {
	ok(c, http.StatusOK, h.settings.Get())
}

// UpdateSettings godoc
// @ID          updateSettings
// @Summary     Replace the chatbot settings document
// @Description Validates and persists the full settings document atomically. Partial updates are not supported; send the whole document.
// @Tags        Settings
// @Accept      json
// @Produce     json
//
// @Param       body  body  settings.Document true "New settings"
//
// @Success     200  {object} settings.Document
// @Failure     400  {object} handlers.ErrorResponse "Invalid document"
// @Failure     500  {object} handlers.ErrorResponse "Persist failed"
// @Router      /admin/settings [put]
func (h *Handlers) UpdateSettings(c *gin.Context) {
	var doc settings.Document
	if err := c.ShouldBindJSON(&doc); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	if err := h.settings.Update(doc); err != nil {
		if err := doc.Validate(); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not persist settings")
		return
	}
	ok(c, http.StatusOK, h.settings.Get())
}
