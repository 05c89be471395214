// Inbound message HTTP handlers.
//
// This file exposes the endpoint the WhatsApp bridge calls for every inbound
// end-user message:
//   - POST /ask
//
// Handlers are transport-thin: they validate input, delegate to application
// services, and translate service errors into HTTP results. The heavy lifting
// (bot gate, thread resolution, assistant run) lives in services.AskService.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rsh-ai/assistant-backend/internal/botgate"
	"github.com/rsh-ai/assistant-backend/internal/services"
	"github.com/rsh-ai/assistant-backend/internal/settings"
)

//
// Service contracts (context-aware)
//

// AskService resolves inbound end-user messages to replies.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type AskService interface {
	// Ask runs the full gate → thread → run flow for one inbound message.
	Ask(ctx context.Context, req services.AskRequest) (*services.AskResponse, error)
	// AdminReply records a manual staff reply and resets the unanswered counter.
	AdminReply(ctx context.Context, rawIdentity, text string) error
}

// FeedbackService captures end-user feedback on logged assistant replies.
type FeedbackService interface {
	// Leave submits a feedback value (-1 or 1) for chatLogID by rawIdentity,
	// with an optional free-text note.
	Leave(ctx context.Context, rawIdentity, chatLogID string, value int, note string) error
}

// Analyzer schedules the background insight extraction for answered messages.
// Optional; nil disables extraction.
type Analyzer interface {
	AnalyzeAsync(ctx context.Context, rawIdentity, text string)
}

// Eraser removes thread bindings across all identity namespaces.
type Eraser interface {
	DeleteAllNamespaces(rawIdentity string) error
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for the bridge-facing API and the admin
// dashboard. It depends on abstract service interfaces where practical to keep
// transport concerns separate from business logic.
type Handlers struct {
	askSvc    AskService
	fbSvc     FeedbackService
	gate      *botgate.Gate
	analytics Analyzer
	threads   Eraser
	settings  *settings.Store

	deps AdminDeps
}

// New constructs a Handlers instance bound to the given services.
func New(askSvc AskService, fbSvc FeedbackService, gate *botgate.Gate, threads Eraser, st *settings.Store, analytics Analyzer, deps AdminDeps) *Handlers {
	return &Handlers{
		askSvc:    askSvc,
		fbSvc:     fbSvc,
		gate:      gate,
		analytics: analytics,
		threads:   threads,
		settings:  st,
		deps:      deps,
	}
}

// AskRequest is the JSON payload of POST /ask. The bridge historically sends
// either {identity, text} or {sender, message}; both spellings are accepted.
type AskRequest struct {
	Identity    string `json:"identity" example:"628123456789@s.whatsapp.net"`
	Sender      string `json:"sender,omitempty" example:"628123456789"`
	Text        string `json:"text" example:"Halo, jam berapa buka?"`
	Message     string `json:"message,omitempty"`
	DisplayName string `json:"display_name,omitempty" example:"Budi"`
	RequestID   string `json:"request_id,omitempty" example:"wa-3EB0C8D47A1F"`
	Timestamp   int64  `json:"timestamp,omitempty"`
}

// Ask godoc
// @ID          ask
// @Summary     Answer one inbound WhatsApp message
// @Description Runs the inbound message through the bot gate, the per-identity thread, and the assistant, returning the resolved reply. When the bot is disabled for the sender, reply is null and unanswered_count carries the backlog.
// @Tags        Ask
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string  false "Dedupe key; request_id in the body works too"
// @Param       body             body    handlers.AskRequest true "Inbound message"
//
// @Success     200  {object} services.AskResponse
// @Failure     400  {object} handlers.ErrorResponse "Invalid payload"
// @Failure     500  {object} handlers.ErrorResponse "Answer pipeline failed"
// @Router      /ask [post]
func (h *Handlers) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	identity := req.Identity
	if identity == "" {
		identity = req.Sender
	}
	text := req.Text
	if text == "" {
		text = req.Message
	}

	resp, err := h.askSvc.Ask(c.Request.Context(), services.AskRequest{
		Identity:    identity,
		Text:        text,
		DisplayName: req.DisplayName,
		RequestID:   req.RequestID,
		Timestamp:   req.Timestamp,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrIdentityRequired):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "identity is required")
		case errors.Is(err, services.ErrEmptyMessage):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message text is required")
		case errors.Is(err, services.ErrTooLong):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message too long")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeAnswerFailed, "could not answer message")
		}
		return
	}

	// Answered messages feed the background insight extraction.
	if h.analytics != nil && resp.Reply != nil {
		h.analytics.AnalyzeAsync(c.Request.Context(), resp.Identity, text)
	}

	ok(c, http.StatusOK, resp)
}
