// Package domain defines the persistence models for chat logs, feedback,
// bot gate state, and analytics insights. These types are mapped with GORM
// and form the data layer behind the admin dashboard.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// ChatLog records one message of a WhatsApp conversation as seen by the
// backend: the user's inbound text, the assistant's resolved reply, or a
// manual reply sent by customer-service staff.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Identity: bare end-user identity (phone-derived); indexed for retrieval.
//   - DisplayName: sender's profile name at the time of the message.
//   - Role: "user", "assistant", or "admin" (enforced by DB constraint).
//   - Content: full text of the message, citation markers already stripped.
//   - ThreadID: remote thread the exchange ran on (empty for admin replies).
//   - RequestID: client-supplied dedupe key, when one was present.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker (cleared fully on erasure requests).
type ChatLog struct {
	ID          string         `json:"id"           gorm:"type:char(36);primaryKey"`
	Identity    string         `json:"identity"     gorm:"type:varchar(64);not null;index:idx_identity_logs,priority:1"`
	DisplayName string         `json:"display_name" gorm:"type:varchar(128)"`
	Role        string         `json:"role"         gorm:"type:varchar(16);not null;check:role IN ('user','assistant','admin')"`
	Content     string         `json:"content"      gorm:"type:text;not null"`
	ThreadID    string         `json:"thread_id"    gorm:"type:varchar(64);index"`
	RequestID   string         `json:"request_id"   gorm:"type:varchar(64)"`
	CreatedAt   time.Time      `json:"created_at"   gorm:"index:idx_identity_logs,priority:2"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-"            gorm:"index"`
}

// TableName returns the database table name for ChatLog.
func (ChatLog) TableName() string { return "chat_logs" }

// Feedback represents a rating on a specific assistant reply. One feedback
// entry per reply and identity (enforced by unique index).
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - ChatLogID: foreign key to the rated reply (unique per identity).
//   - Identity: identity of the feedback author (unique per reply).
//   - Value: +1 (positive) or -1 (negative).
//   - Note: optional free-text remark accompanying the rating.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker.
//   - ChatLog: FK association, ensures cascade delete/update.
type Feedback struct {
	ID        string         `json:"id"          gorm:"type:char(36);primaryKey"`
	ChatLogID string         `json:"chat_log_id" gorm:"type:char(36);not null;index;uniqueIndex:ux_feedback_log_identity"`
	Identity  string         `json:"identity"    gorm:"type:varchar(64);not null;index;uniqueIndex:ux_feedback_log_identity"`
	Value     int            `json:"value"       gorm:"not null;check:value IN (-1,1)"`
	Note      string         `json:"note,omitempty" gorm:"type:varchar(512)"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"           gorm:"index"`

	// ChatLog is the rated assistant reply. Feedback is cascade-deleted
	// if the underlying log row is removed.
	ChatLog ChatLog `json:"-" gorm:"foreignKey:ChatLogID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Feedback.
func (Feedback) TableName() string { return "feedback" }

// BotStatus is the durable form of the bot gate record, written only when
// gate persistence is enabled. Identity is the natural key.
type BotStatus struct {
	Identity        string    `json:"identity"         gorm:"type:varchar(64);primaryKey"`
	Enabled         bool      `json:"enabled"          gorm:"not null;default:true"`
	UnansweredCount int       `json:"unanswered_count" gorm:"not null;default:0"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName returns the database table name for BotStatus.
func (BotStatus) TableName() string { return "bot_status" }

// UserInsight is one analytics extraction over a user's conversation history,
// produced by the analytics pipeline on its own thread namespace.
//
// Summary, Sentiment, Topics, and Urgency are parsed from the extractor's
// JSON reply; Raw keeps the reply verbatim for re-parsing when the extraction
// schema evolves.
type UserInsight struct {
	ID        string         `json:"id"        gorm:"type:char(36);primaryKey"`
	Identity  string         `json:"identity"  gorm:"type:varchar(64);not null;index"`
	Summary   string         `json:"summary"   gorm:"type:text"`
	Sentiment string         `json:"sentiment" gorm:"type:varchar(32)"`
	Topics    string         `json:"topics"    gorm:"type:varchar(255)"`
	Urgency   string         `json:"urgency"   gorm:"type:varchar(32)"`
	Raw       string         `json:"-"         gorm:"type:text"`
	CreatedAt time.Time      `json:"created_at" gorm:"index"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for UserInsight.
func (UserInsight) TableName() string { return "user_insights" }
