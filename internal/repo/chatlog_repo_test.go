package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rsh-ai/assistant-backend/internal/domain"
)

func newChatLogDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:chatlogrepo?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	t.Cleanup(func() {
		db.Exec("DELETE FROM feedback")
		db.Exec("DELETE FROM chat_logs")
		db.Exec("DELETE FROM user_insights")
		db.Exec("DELETE FROM bot_status")
	})
	return db
}

func seedLog(t *testing.T, db *gorm.DB, identity, role, content string, at time.Time) *domain.ChatLog {
	t.Helper()
	row, err := CreateChatLog(context.Background(), db, &domain.ChatLog{
		Identity: identity,
		Role:     role,
		Content:  content,
	})
	if err != nil {
		t.Fatalf("seed log: %v", err)
	}
	if !at.IsZero() {
		db.Model(&domain.ChatLog{}).Where("id = ?", row.ID).Update("created_at", at)
	}
	return row
}

func TestCreateAndGetChatLog(t *testing.T) {
	db := newChatLogDB(t)

	row, err := CreateChatLog(context.Background(), db, &domain.ChatLog{
		Identity:    "628123",
		DisplayName: "Budi",
		Role:        "assistant",
		Content:     "halo",
		ThreadID:    "thread_a",
		RequestID:   "req-1",
	})
	if err != nil {
		t.Fatalf("CreateChatLog: %v", err)
	}
	if row.ID == "" || row.CreatedAt.IsZero() {
		t.Fatalf("row not fully populated: %+v", row)
	}

	got, err := GetChatLog(context.Background(), db, row.ID)
	if err != nil {
		t.Fatalf("GetChatLog: %v", err)
	}
	if got.Identity != "628123" || got.ThreadID != "thread_a" || got.RequestID != "req-1" {
		t.Fatalf("readback mismatch: %+v", got)
	}

	if _, err := GetChatLog(context.Background(), db, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListChatLogsPage_OrderAndPaging(t *testing.T) {
	db := newChatLogDB(t)
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		seedLog(t, db, "628123", "user", "m", base.Add(time.Duration(i)*time.Minute))
	}
	seedLog(t, db, "628999", "user", "other", base)

	total, err := CountChatLogs(context.Background(), db, "628123")
	if err != nil || total != 5 {
		t.Fatalf("CountChatLogs = %d, %v", total, err)
	}

	page, err := ListChatLogsPage(context.Background(), db, "628123", 0, 2)
	if err != nil {
		t.Fatalf("ListChatLogsPage: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("page size = %d", len(page))
	}
	if !page[0].CreatedAt.After(page[1].CreatedAt) {
		t.Fatalf("expected newest first: %v then %v", page[0].CreatedAt, page[1].CreatedAt)
	}

	rest, err := ListChatLogsPage(context.Background(), db, "628123", 4, 10)
	if err != nil || len(rest) != 1 {
		t.Fatalf("offset page = %d rows, %v", len(rest), err)
	}
}

func TestListConversations_SummarizesPerIdentity(t *testing.T) {
	db := newChatLogDB(t)
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	seedLog(t, db, "628123", "user", "a", base)
	seedLog(t, db, "628123", "assistant", "b", base.Add(time.Minute))
	seedLog(t, db, "628999", "user", "c", base.Add(2*time.Minute))

	total, err := CountConversations(context.Background(), db)
	if err != nil || total != 2 {
		t.Fatalf("CountConversations = %d, %v", total, err)
	}

	rows, err := ListConversations(context.Background(), db, 0, 10)
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %+v", rows)
	}
	if rows[0].Identity != "628999" {
		t.Fatalf("expected most recent conversation first, got %q", rows[0].Identity)
	}
	for _, r := range rows {
		if r.Identity == "628123" && r.Messages != 2 {
			t.Fatalf("628123 messages = %d, want 2", r.Messages)
		}
	}
}

func TestSearchChatLogs(t *testing.T) {
	db := newChatLogDB(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	seedLog(t, db, "628111", "user", "kapan jadwal dokter anak?", base)
	seedLog(t, db, "628111", "user", "jadwal poli gigi?", base.Add(time.Minute))
	seedLog(t, db, "628222", "user", "parkir dimana?", base)
	if _, err := CreateChatLog(ctx, db, &domain.ChatLog{
		Identity: "628333", DisplayName: "Jadwalia", Role: "user", Content: "halo",
	}); err != nil {
		t.Fatalf("seed named log: %v", err)
	}

	hits, total, err := SearchChatLogs(ctx, db, "jadwal", 0, 10)
	if err != nil {
		t.Fatalf("SearchChatLogs: %v", err)
	}
	// Content and display name both match.
	if total != 3 || len(hits) != 3 {
		t.Fatalf("total = %d, hits = %d, want 3", total, len(hits))
	}

	// Pagination keeps the count while trimming the page.
	hits, total, err = SearchChatLogs(ctx, db, "jadwal", 0, 1)
	if err != nil || total != 3 || len(hits) != 1 {
		t.Fatalf("paged: total = %d, hits = %d, err = %v", total, len(hits), err)
	}

	hits, total, err = SearchChatLogs(ctx, db, "tidak ada", 0, 10)
	if err != nil || total != 0 || len(hits) != 0 {
		t.Fatalf("no-match: total = %d, hits = %d, err = %v", total, len(hits), err)
	}
}

func TestEraseIdentity_RemovesAllTraces(t *testing.T) {
	db := newChatLogDB(t)
	ctx := context.Background()

	reply := seedLog(t, db, "628123", "assistant", "jawaban", time.Time{})
	seedLog(t, db, "628123", "user", "tanya", time.Time{})
	seedLog(t, db, "628999", "user", "lain", time.Time{})

	if err := CreateFeedback(ctx, db, reply.ID, "628123", 1, ""); err != nil {
		t.Fatalf("seed feedback: %v", err)
	}
	if _, err := CreateInsight(ctx, db, &domain.UserInsight{Identity: "628123", Summary: "s"}); err != nil {
		t.Fatalf("seed insight: %v", err)
	}
	if err := db.Create(&domain.BotStatus{Identity: "628123", Enabled: false}).Error; err != nil {
		t.Fatalf("seed status: %v", err)
	}

	if err := EraseIdentity(ctx, db, "628123"); err != nil {
		t.Fatalf("EraseIdentity: %v", err)
	}

	var cnt int64
	db.Unscoped().Model(&domain.ChatLog{}).Where("identity = ?", "628123").Count(&cnt)
	if cnt != 0 {
		t.Fatalf("chat logs remain: %d", cnt)
	}
	db.Unscoped().Model(&domain.Feedback{}).Where("identity = ?", "628123").Count(&cnt)
	if cnt != 0 {
		t.Fatalf("feedback remains: %d", cnt)
	}
	db.Unscoped().Model(&domain.UserInsight{}).Where("identity = ?", "628123").Count(&cnt)
	if cnt != 0 {
		t.Fatalf("insights remain: %d", cnt)
	}
	db.Unscoped().Model(&domain.BotStatus{}).Where("identity = ?", "628123").Count(&cnt)
	if cnt != 0 {
		t.Fatalf("bot status remains: %d", cnt)
	}

	// Other identities untouched.
	db.Model(&domain.ChatLog{}).Where("identity = ?", "628999").Count(&cnt)
	if cnt != 1 {
		t.Fatalf("unrelated identity lost rows: %d", cnt)
	}
}
