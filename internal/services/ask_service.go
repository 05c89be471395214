// Package services – AskService
//
// This file implements AskService, the application-level component behind the
// inbound WhatsApp message flow. It validates input, consults the bot gate,
// resolves the identity's remote thread, hands the message to the run
// orchestrator, and records both sides of the exchange in the chat log.
//
// When the gate is disabled for an identity the assistant is never invoked:
// the inbound message is logged together with the updated unanswered counter
// and the response carries a null reply.
//
// Observability: public methods are OpenTelemetry-instrumented; spans include
// the (bare) identity and gate decision.
package services

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/rsh-ai/assistant-backend/internal/botgate"
	"github.com/rsh-ai/assistant-backend/internal/domain"
	"github.com/rsh-ai/assistant-backend/internal/identity"
	"github.com/rsh-ai/assistant-backend/internal/repo"
	"github.com/rsh-ai/assistant-backend/internal/runs"
)

// ThreadProvider resolves an identity to its remote thread handle.
type ThreadProvider interface {
	GetOrCreate(ctx context.Context, rawIdentity string) (string, error)
}

// Responder turns a user message on a thread into a resolved reply.
type Responder interface {
	Respond(ctx context.Context, identity, threadID, text string) runs.Result
}

// Broadcaster pushes dashboard events. Optional; nil disables pushes.
type Broadcaster interface {
	Broadcast(event string, payload any)
}

// AskRequest is one inbound end-user message.
type AskRequest struct {
	Identity    string `json:"identity" binding:"required"`
	Text        string `json:"text" binding:"required"`
	DisplayName string `json:"display_name,omitempty"`
	RequestID   string `json:"request_id,omitempty"`
	Timestamp   int64  `json:"timestamp,omitempty"`
}

// AskResponse is the resolved outcome. Reply is null exactly when the bot
// gate is disabled for the identity; otherwise it is always usable text.
type AskResponse struct {
	Reply           *string `json:"reply"`
	Identity        string  `json:"identity"`
	BotDisabled     bool    `json:"bot_disabled"`
	UnansweredCount *int    `json:"unanswered_count,omitempty"`
	RequestID       string  `json:"request_id,omitempty"`
	Timestamp       int64   `json:"timestamp"`
}

// AskService coordinates the gate, thread registry, and run orchestrator.
type AskService struct {
	DB      *gorm.DB
	Gate    *botgate.Gate
	Threads ThreadProvider
	Runner  Responder

	// Optional guards / collaborators
	MaxMessageRunes int
	Push            Broadcaster
	Log             zerolog.Logger
}

// Ask resolves one inbound message end to end.
func (s *AskService) Ask(ctx context.Context, req AskRequest) (*AskResponse, error) {
	tr := otel.Tracer("services/AskService")
	ctx, span := tr.Start(ctx, "Ask",
		trace.WithAttributes(attribute.String("identity", identity.Bare(req.Identity))),
	)
	defer span.End()

	if strings.TrimSpace(req.Identity) == "" {
		return nil, ErrIdentityRequired
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if s.MaxMessageRunes > 0 && utf8.RuneCountInString(text) > s.MaxMessageRunes {
		return nil, ErrTooLong
	}

	bare := identity.Bare(req.Identity)
	resp := &AskResponse{
		Identity:  bare,
		RequestID: req.RequestID,
		Timestamp: time.Now().Unix(),
	}

	// Gate check comes before any remote work.
	if !s.Gate.IsEnabled(req.Identity) {
		_, count := s.Gate.OnInbound(ctx, req.Identity)
		span.SetAttributes(attribute.Bool("bot_disabled", true), attribute.Int("unanswered", count))

		s.logExchange(ctx, &domain.ChatLog{
			Identity: bare, DisplayName: req.DisplayName,
			Role: "user", Content: text, RequestID: req.RequestID,
		})
		s.Log.Info().Str("identity", bare).Int("unanswered", count).
			Msg("bot disabled, message recorded unanswered")
		s.broadcast("unanswered", map[string]any{"identity": bare, "count": count})

		resp.BotDisabled = true
		resp.UnansweredCount = &count
		return resp, nil
	}

	threadID, err := s.Threads.GetOrCreate(ctx, req.Identity)
	if err != nil {
		return nil, err
	}

	s.logExchange(ctx, &domain.ChatLog{
		Identity: bare, DisplayName: req.DisplayName,
		Role: "user", Content: text, ThreadID: threadID, RequestID: req.RequestID,
	})

	result := s.Runner.Respond(ctx, req.Identity, threadID, text)

	s.logExchange(ctx, &domain.ChatLog{
		Identity: bare, DisplayName: req.DisplayName,
		Role: "assistant", Content: result.Reply, ThreadID: result.ThreadID, RequestID: req.RequestID,
	})
	s.broadcast("message", map[string]any{
		"identity": bare,
		"reply":    result.Reply,
	})

	resp.Reply = &result.Reply
	return resp, nil
}

// AdminReply records a manual customer-service message for identity and
// resets the unanswered counter. The assistant is not involved.
func (s *AskService) AdminReply(ctx context.Context, rawIdentity, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}
	if strings.TrimSpace(rawIdentity) == "" {
		return ErrIdentityRequired
	}

	bare := identity.Bare(rawIdentity)
	if _, err := repo.CreateChatLog(ctx, s.DB, &domain.ChatLog{
		Identity: bare, Role: "admin", Content: text,
	}); err != nil {
		return err
	}
	s.Gate.OnAdminReply(ctx, rawIdentity)
	s.broadcast("admin_reply", map[string]any{"identity": bare})
	return nil
}

// logExchange writes one chat log row. Log persistence is best effort: a
// storage hiccup must not turn a resolved reply into a user-facing failure.
func (s *AskService) logExchange(ctx context.Context, row *domain.ChatLog) {
	if s.DB == nil {
		return
	}
	if _, err := repo.CreateChatLog(ctx, s.DB, row); err != nil {
		s.Log.Error().Err(err).Str("identity", row.Identity).Str("role", row.Role).
			Msg("chat log write failed")
	}
}

func (s *AskService) broadcast(event string, payload any) {
	if s.Push != nil {
		s.Push.Broadcast(event, payload)
	}
}
