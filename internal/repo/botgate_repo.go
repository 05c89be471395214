// Package repo – bot gate persistence.
//
// BotStatusStore adapts the bot_status table to the botgate.Persister
// contract, so the gate can survive process restarts when the operator asks
// for it. Rows are upserted by identity; there is no history.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/rsh-ai/assistant-backend/internal/botgate"
	"github.com/rsh-ai/assistant-backend/internal/domain"
)

// BotStatusStore persists bot gate state in the application database.
type BotStatusStore struct {
	db *gorm.DB
}

// NewBotStatusStore wraps db as a botgate.Persister.
func NewBotStatusStore(db *gorm.DB) *BotStatusStore {
	return &BotStatusStore{db: db}
}

// Save implements botgate.Persister by upserting the row for s.Identity.
func (s *BotStatusStore) Save(ctx context.Context, state botgate.State) error {
	row := domain.BotStatus{
		Identity:        state.Identity,
		Enabled:         state.Enabled,
		UnansweredCount: state.UnansweredCount,
		UpdatedAt:       time.Now().UTC(),
	}
	return s.db.WithContext(ctx).Save(&row).Error
}

// LoadAll implements botgate.Persister.
func (s *BotStatusStore) LoadAll(ctx context.Context) ([]botgate.State, error) {
	var rows []domain.BotStatus
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]botgate.State, 0, len(rows))
	for _, r := range rows {
		out = append(out, botgate.State{
			Identity:        r.Identity,
			Enabled:         r.Enabled,
			UnansweredCount: r.UnansweredCount,
		})
	}
	return out, nil
}
