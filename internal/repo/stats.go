// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// primarily for conditional responses (e.g., ETag generation) and the
// dashboard overview. Each function is context-aware and safe to call from
// services or handlers.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/rsh-ai/assistant-backend/internal/domain"
)

// ChatLogStats returns aggregate metadata for an identity's conversation: the
// total number of rows and the maximum UpdatedAt timestamp among those rows.
//
// When the identity has no rows, the returned count is 0 and maxUpdatedAt is
// nil.
//
// Return values:
//   - count:        total log rows for identity
//   - maxUpdatedAt: pointer to the greatest UpdatedAt, or nil if no rows
//   - err:          database error, if any
func ChatLogStats(ctx context.Context, db *gorm.DB, identity string) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.ChatLog{}).Where("identity = ?", identity)

	// Count
	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}

// OverviewStats is the dashboard's headline numbers. Overview fills the
// database-backed totals; DisabledBots and UnansweredTotal come from live gate
// state (the bot_status table is only written when persistence is on), so the
// stats handler fills them from a gate snapshot.
type OverviewStats struct {
	Conversations      int64 `json:"conversations"`
	ConversationsToday int64 `json:"conversations_today"`
	Messages           int64 `json:"messages"`
	MessagesToday      int64 `json:"messages_today"`
	Insights           int64 `json:"insights"`
	DisabledBots       int64 `json:"disabled_bots"`
	UnansweredTotal    int64 `json:"unanswered_total"`
}

// Overview computes the database-backed headline numbers. "Today" starts at
// local midnight.
func Overview(ctx context.Context, db *gorm.DB) (OverviewStats, error) {
	var out OverviewStats
	var err error

	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	if out.Conversations, err = CountConversations(ctx, db); err != nil {
		return out, err
	}
	if err = db.WithContext(ctx).Model(&domain.ChatLog{}).Count(&out.Messages).Error; err != nil {
		return out, err
	}
	if err = db.WithContext(ctx).Model(&domain.ChatLog{}).
		Where("created_at >= ?", midnight).
		Count(&out.MessagesToday).Error; err != nil {
		return out, err
	}
	if err = db.WithContext(ctx).Model(&domain.ChatLog{}).
		Where("created_at >= ?", midnight).
		Distinct("identity").
		Count(&out.ConversationsToday).Error; err != nil {
		return out, err
	}
	out.Insights, err = CountInsights(ctx, db)
	return out, err
}
