// Feedback HTTP handlers.
//
// This file exposes the REST endpoint for rating assistant replies:
//   - POST /logs/{id}/feedback  (create feedback)
//
// Handlers in this file are transport-thin: they validate input, delegate to
// application services, and translate service errors into HTTP results.
// Feedback values are constrained to {-1, +1} to represent negative/positive
// reactions respectively.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rsh-ai/assistant-backend/internal/services"
)

// LeaveFeedbackRequest is the JSON payload for rating a logged reply.
//
// Value must be one of:
//   - +1 : positive feedback
//   - -1 : negative feedback
//
// The binding tag enforces the domain constraint at the transport layer.
type LeaveFeedbackRequest struct {
	// Identity is the sender rating the reply, in any surface form.
	Identity string `json:"identity" binding:"required" example:"628123456789"`
	// Value is the feedback signal: +1 (positive) or -1 (negative).
	Value int `json:"value" binding:"required,oneof=-1 1" example:"1"`
	// Note is an optional remark explaining the rating.
	Note string `json:"note,omitempty" binding:"max=512" example:"jawaban kurang lengkap"`
}

// LeaveFeedback godoc
// @ID          leaveFeedback
// @Summary     Rate an assistant reply
// @Description Records positive (+1) or negative (-1) feedback for a logged assistant reply. One rating per reply per sender.
// @Tags        Feedback
// @Accept      json
// @Produce     json
//
// @Param       id    path  string  true  "Chat log row ID (UUID)" format(uuid) example(fa4dfbe0-c3bf-47bd-b32f-d7de221cf43b)
// @Param       body  body  handlers.LeaveFeedbackRequest true "Feedback payload"
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Invalid payload"
// @Failure     403  {object} handlers.ErrorResponse "Not allowed to rate this row"
// @Failure     404  {object} handlers.ErrorResponse "Reply not found"
// @Failure     409  {object} handlers.ErrorResponse "Feedback already exists"
// @Failure     500  {object} handlers.ErrorResponse "Internal server error"
// @Router      /logs/{id}/feedback [post]
func (h *Handlers) LeaveFeedback(c *gin.Context) {
	var req LeaveFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "identity and value (-1 or 1) are required")
		return
	}

	chatLogID := c.Param("id")
	if err := h.fbSvc.Leave(c.Request.Context(), req.Identity, chatLogID, req.Value, req.Note); err != nil {
		switch err {
		case services.ErrReplyNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "reply not found")
		case services.ErrInvalidFeedback:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "value must be -1 or 1")
		case services.ErrIdentityRequired:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "identity is required")
		case services.ErrForbiddenFeedback:
			fail(c, http.StatusForbidden, ErrCodeForbidden, "cannot leave feedback on this message")
		case services.ErrDuplicateFeedback:
			fail(c, http.StatusConflict, ErrCodeConflict, "feedback already exists")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}

	noContent(c)
}
