// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the ChatLog
// model: the per-identity conversation history shown on the admin dashboard.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a log row is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rsh-ai/assistant-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateChatLog inserts one conversation row for identity. The row ID is a
// randomly generated UUID (string), and CreatedAt is set to UTC.
//
// On success, it returns the persisted row. On failure, it returns a DB error.
func CreateChatLog(ctx context.Context, db *gorm.DB, log *domain.ChatLog) (*domain.ChatLog, error) {
	row := *log
	row.ID = uuid.NewString()
	row.CreatedAt = time.Now().UTC()
	if err := db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// GetChatLog fetches a single log row by its ID. If the record does not
// exist, it returns ErrNotFound.
func GetChatLog(ctx context.Context, db *gorm.DB, id string) (*domain.ChatLog, error) {
	var row domain.ChatLog
	if err := db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// CountChatLogs returns the total number of log rows for identity.
func CountChatLogs(ctx context.Context, db *gorm.DB, identity string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.ChatLog{}).
		Where("identity = ?", identity).
		Count(&total).Error
	return total, err
}

// ListChatLogsPage returns a paginated slice of log rows for identity,
// ordered by creation time descending. Use CountChatLogs to obtain the total
// for pagination metadata.
//
// The caller is responsible for computing offset and limit (e.g., (page-1)*pageSize).
func ListChatLogsPage(ctx context.Context, db *gorm.DB, identity string, offset, limit int) ([]domain.ChatLog, error) {
	var out []domain.ChatLog
	err := db.WithContext(ctx).
		Where("identity = ?", identity).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ConversationSummary is one row of the dashboard's conversation list.
type ConversationSummary struct {
	Identity    string    `json:"identity"`
	DisplayName string    `json:"display_name"`
	Messages    int64     `json:"messages"`
	LastAt      time.Time `json:"last_at"`
}

// ListConversations returns one summary row per identity, newest activity
// first. DisplayName is the most recently seen non-empty profile name.
func ListConversations(ctx context.Context, db *gorm.DB, offset, limit int) ([]ConversationSummary, error) {
	var out []ConversationSummary
	err := db.WithContext(ctx).
		Model(&domain.ChatLog{}).
		Select("identity, MAX(display_name) AS display_name, COUNT(*) AS messages, MAX(created_at) AS last_at").
		Group("identity").
		Order("last_at desc").
		Offset(offset).
		Limit(limit).
		Scan(&out).Error
	return out, err
}

// CountConversations returns the number of distinct identities with at least
// one log row.
func CountConversations(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.ChatLog{}).
		Distinct("identity").
		Count(&total).Error
	return total, err
}

// SearchChatLogs returns log rows whose content or display name contains q,
// newest first, together with the total match count. Matching is a plain
// case-insensitive substring scan; good enough for a dashboard search box.
func SearchChatLogs(ctx context.Context, db *gorm.DB, q string, offset, limit int) ([]domain.ChatLog, int64, error) {
	pattern := "%" + q + "%"

	var total int64
	if err := db.WithContext(ctx).
		Model(&domain.ChatLog{}).
		Where("content LIKE ? OR display_name LIKE ?", pattern, pattern).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []domain.ChatLog
	err := db.WithContext(ctx).
		Where("content LIKE ? OR display_name LIKE ?", pattern, pattern).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, total, err
}

// EraseIdentity hard-deletes every log row, feedback row, and insight for
// identity. Used for user-data erasure requests; soft deletion is not enough
// there.
func EraseIdentity(ctx context.Context, db *gorm.DB, identity string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().
			Where("chat_log_id IN (?)", tx.Unscoped().Model(&domain.ChatLog{}).Select("id").Where("identity = ?", identity)).
			Delete(&domain.Feedback{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("identity = ?", identity).Delete(&domain.ChatLog{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("identity = ?", identity).Delete(&domain.UserInsight{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Where("identity = ?", identity).Delete(&domain.BotStatus{}).Error
	})
}
