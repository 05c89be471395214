// Package services – FeedbackService
//
// This file implements the FeedbackService, which governs how end users leave
// feedback (-1 or +1) on assistant replies. It enforces business rules
// (reply existence, identity match, assistant-only restriction, uniqueness)
// and persists feedback atomically in the database. Service-level errors
// (e.g. ErrInvalidFeedback, ErrReplyNotFound, ErrForbiddenFeedback,
// ErrDuplicateFeedback) are returned for predictable cases so handlers can
// map them to HTTP results consistently.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rsh-ai/assistant-backend/internal/domain"
	"github.com/rsh-ai/assistant-backend/internal/identity"
	"github.com/rsh-ai/assistant-backend/internal/repo"
)

// FeedbackService implements the use-cases around reply feedback.
// It validates the operation (identity match, reply role, uniqueness) and
// persists the feedback using the provided GORM handle. The service is
// context-aware and opens its own transaction per call.
type FeedbackService struct {
	// DB is the database handle used for all feedback operations.
	// The handle may be a plain *gorm.DB or a transaction-bound handle.
	DB *gorm.DB
}

// Leave records a feedback value for chatLogID on behalf of rawIdentity.
// note is an optional free-text remark stored alongside the rating.
//
// Semantics and validation:
//   - value must be exactly -1 (negative) or 1 (positive); otherwise ErrInvalidFeedback.
//   - chatLogID must exist; otherwise ErrReplyNotFound.
//   - The log row must belong to the same (bare) identity; otherwise
//     ErrForbiddenFeedback.
//   - Feedback is allowed only on assistant replies; user and admin rows are
//     rejected with ErrForbiddenFeedback.
//   - An identity may leave at most one feedback per reply; attempting to do
//     so again yields ErrDuplicateFeedback.
//
// Concurrency & atomicity:
//   - The operation runs inside a transaction to ensure the existence/identity
//     checks and the insert are atomic.
func (s *FeedbackService) Leave(ctx context.Context, rawIdentity, chatLogID string, value int, note string) error {
	if value != -1 && value != 1 {
		return ErrInvalidFeedback
	}
	bare := identity.Bare(rawIdentity)
	if bare == "" {
		return ErrIdentityRequired
	}
	note = strings.TrimSpace(note)

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1) Load the reply and verify it exists.
		row, err := repo.GetChatLog(ctx, tx, chatLogID)
		if err != nil {
			if isNotFound(err) {
				return ErrReplyNotFound
			}
			return err
		}

		// 2) The reply must belong to this identity.
		if row.Identity != bare {
			return ErrForbiddenFeedback
		}

		// 3) Only assistant replies can be rated.
		if row.Role != "assistant" {
			return ErrForbiddenFeedback
		}

		// 4) Insert feedback with (chat_log_id, identity) uniqueness semantics.
		fb := &domain.Feedback{
			ID:        uuid.NewString(),
			ChatLogID: chatLogID,
			Identity:  bare,
			Value:     value,
			Note:      note,
			CreatedAt: time.Now().UTC(),
		}
		if err := tx.Create(fb).Error; err != nil {
			// Map duplicate key to a stable service error.
			if errors.Is(err, gorm.ErrDuplicatedKey) || isDuplicate(err) {
				return ErrDuplicateFeedback
			}
			return err
		}
		return nil
	})
}

// isNotFound treats repo-level not found sentinels as "not found" in a
// driver-agnostic way. It also checks gorm.ErrRecordNotFound for safety.
func isNotFound(err error) bool {
	if errors.Is(err, repo.ErrNotFound) {
		return true
	}
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// isDuplicate attempts to detect unique-constraint violations across drivers
// that may not map to gorm.ErrDuplicatedKey.
func isDuplicate(err error) bool {
	// SQLite typically: "UNIQUE constraint failed"
	// Postgres typically: "duplicate key value violates unique constraint"
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}
