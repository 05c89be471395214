// Package repo – analytics insights.
//
// Repository functions for the UserInsight model, written by the analytics
// pipeline and read by the dashboard.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rsh-ai/assistant-backend/internal/domain"
)

// CreateInsight inserts one analytics extraction for identity.
func CreateInsight(ctx context.Context, db *gorm.DB, insight *domain.UserInsight) (*domain.UserInsight, error) {
	row := *insight
	row.ID = uuid.NewString()
	row.CreatedAt = time.Now().UTC()
	if err := db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// LatestInsight returns the most recent insight for identity, or ErrNotFound.
func LatestInsight(ctx context.Context, db *gorm.DB, identity string) (*domain.UserInsight, error) {
	var row domain.UserInsight
	err := db.WithContext(ctx).
		Where("identity = ?", identity).
		Order("created_at desc").
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// ListInsightsPage returns a paginated slice of insights across all
// identities, newest first.
func ListInsightsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.UserInsight, error) {
	var out []domain.UserInsight
	err := db.WithContext(ctx).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountInsights returns the total number of stored insights.
func CountInsights(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.UserInsight{}).Count(&total).Error
	return total, err
}
