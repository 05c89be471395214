// Bot gate HTTP handlers.
//
// Customer-service staff use these endpoints to take over a conversation:
//   - GET  /admin/bots                 (all gate records)
//   - GET  /admin/bots/{identity}      (one record, default-enabled)
//   - POST /admin/bots/{identity}      (enable/disable)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rsh-ai/assistant-backend/internal/botgate"
)

// BotStatusResponse is one gate record as returned by the admin API.
type BotStatusResponse struct {
	Identity        string `json:"identity" example:"628123456789"`
	Enabled         bool   `json:"enabled" example:"false"`
	UnansweredCount int    `json:"unanswered_count" example:"3"`
}

// SetBotStatusRequest toggles the gate for one identity.
type SetBotStatusRequest struct {
	Enabled *bool `json:"enabled" binding:"required" example:"false"`
}

func toStatusResponse(s botgate.State) BotStatusResponse {
	return BotStatusResponse{
		Identity:        s.Identity,
		Enabled:         s.Enabled,
		UnansweredCount: s.UnansweredCount,
	}
}

// ListBotStatuses godoc
// @ID          listBotStatuses
// @Summary     List all bot gate records
// @Description Returns every identity whose gate has been touched, with unanswered counts, sorted by identity. Identities never toggled are enabled and absent.
// @Tags        BotGate
// @Produce     json
//
// @Success     200  {array} handlers.BotStatusResponse
// @Router      /admin/bots [get]
func (h *Handlers) ListBotStatuses(c *gin.Context) {
	states := h.gate.Snapshot()
	out := make([]BotStatusResponse, 0, len(states))
	for _, s := range states {
		out = append(out, toStatusResponse(s))
	}
	ok(c, http.StatusOK, out)
}

// GetBotStatus godoc
// @ID          getBotStatus
// @Summary     Get the gate record for one identity
// @Description Returns the gate state for the identity. Untouched identities report enabled with a zero counter.
// @Tags        BotGate
// @Produce     json
//
// @Param       identity  path  string  true "Sender identity (any surface form)" example(628123456789)
//
// @Success     200  {object} handlers.BotStatusResponse
// @Router      /admin/bots/{identity} [get]
func (h *Handlers) GetBotStatus(c *gin.Context) {
	raw := c.Param("identity")
	ok(c, http.StatusOK, BotStatusResponse{
		Identity:        pathIdentity(c),
		Enabled:         h.gate.IsEnabled(raw),
		UnansweredCount: h.gate.UnansweredCount(raw),
	})
}

// SetBotStatus godoc
// @ID          setBotStatus
// @Summary     Enable or disable the bot for one identity
// @Description Toggles whether the assistant answers this sender. Disabling hands the conversation to staff; re-enabling keeps the unanswered counter until a staff reply resets it.
// @Tags        BotGate
// @Accept      json
// @Produce     json
//
// @Param       identity  path  string  true "Sender identity (any surface form)" example(628123456789)
// @Param       body      body  handlers.SetBotStatusRequest true "New gate state"
//
// @Success     200  {object} handlers.BotStatusResponse
// @Failure     400  {object} handlers.ErrorResponse "Invalid payload"
// @Router      /admin/bots/{identity} [post]
func (h *Handlers) SetBotStatus(c *gin.Context) {
	var req SetBotStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "enabled (true or false) is required")
		return
	}

	raw := c.Param("identity")
	h.gate.SetEnabled(c.Request.Context(), raw, *req.Enabled)

	ok(c, http.StatusOK, BotStatusResponse{
		Identity:        pathIdentity(c),
		Enabled:         h.gate.IsEnabled(raw),
		UnansweredCount: h.gate.UnansweredCount(raw),
	})
}
