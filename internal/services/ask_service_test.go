package services

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/rsh-ai/assistant-backend/internal/botgate"
	"github.com/rsh-ai/assistant-backend/internal/domain"
	"github.com/rsh-ai/assistant-backend/internal/runs"
)

// --- fakes --------------------------------------------------------------

type fakeThreads struct {
	threadID string
	err      error
	calls    []string
}

func (f *fakeThreads) GetOrCreate(_ context.Context, rawIdentity string) (string, error) {
	f.calls = append(f.calls, rawIdentity)
	return f.threadID, f.err
}

type fakeRunner struct {
	result runs.Result
	calls  int
	gotID  string
	gotTxt string
}

func (f *fakeRunner) Respond(_ context.Context, id, threadID, text string) runs.Result {
	f.calls++
	f.gotID = id
	f.gotTxt = text
	if f.result.ThreadID == "" {
		f.result.ThreadID = threadID
	}
	return f.result
}

type fakePush struct {
	events []string
}

func (f *fakePush) Broadcast(event string, _ any) {
	f.events = append(f.events, event)
}

func newAskService(db *gorm.DB, threads *fakeThreads, runner *fakeRunner, push Broadcaster) *AskService {
	return &AskService{
		DB:      db,
		Gate:    botgate.New(zerolog.Nop()),
		Threads: threads,
		Runner:  runner,
		Push:    push,
		Log:     zerolog.Nop(),
	}
}

func countLogs(t *testing.T, db *gorm.DB, identity, role string) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&domain.ChatLog{}).
		Where("identity = ? AND role = ?", identity, role).Count(&n).Error; err != nil {
		t.Fatalf("count logs: %v", err)
	}
	return n
}

// --- tests --------------------------------------------------------------

func TestAsk_Validation(t *testing.T) {
	svc := newAskService(nil, &fakeThreads{}, &fakeRunner{}, nil)

	if _, err := svc.Ask(context.Background(), AskRequest{Text: "hi"}); !errors.Is(err, ErrIdentityRequired) {
		t.Fatalf("expected ErrIdentityRequired, got %v", err)
	}
	if _, err := svc.Ask(context.Background(), AskRequest{Identity: "628123", Text: "  "}); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}

	svc.MaxMessageRunes = 3
	if _, err := svc.Ask(context.Background(), AskRequest{Identity: "628123", Text: "halo dunia"}); !errors.Is(err, ErrTooLong) {
		t.Fatalf("expected ErrTooLong, got %v", err)
	}
}

func TestAsk_EnabledFlow_LogsBothSides(t *testing.T) {
	db := newTestDB(t)
	threads := &fakeThreads{threadID: "thread_abc"}
	runner := &fakeRunner{result: runs.Result{Reply: "Halo!", Completed: true}}
	push := &fakePush{}
	svc := newAskService(db, threads, runner, push)

	resp, err := svc.Ask(context.Background(), AskRequest{
		Identity: "628123@s.whatsapp.net", Text: "  halo  ", RequestID: "req-1",
	})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if resp.Reply == nil || *resp.Reply != "Halo!" {
		t.Fatalf("reply = %v", resp.Reply)
	}
	if resp.BotDisabled || resp.UnansweredCount != nil {
		t.Fatalf("unexpected gate fields: %+v", resp)
	}
	if resp.Identity != "628123" {
		t.Fatalf("identity = %q, want bare form", resp.Identity)
	}

	// Thread was resolved with the raw surface form; the runner saw trimmed text.
	if len(threads.calls) != 1 || threads.calls[0] != "628123@s.whatsapp.net" {
		t.Fatalf("thread calls = %v", threads.calls)
	}
	if runner.calls != 1 || runner.gotTxt != "halo" {
		t.Fatalf("runner calls=%d text=%q", runner.calls, runner.gotTxt)
	}

	if n := countLogs(t, db, "628123", "user"); n != 1 {
		t.Fatalf("user rows = %d", n)
	}
	if n := countLogs(t, db, "628123", "assistant"); n != 1 {
		t.Fatalf("assistant rows = %d", n)
	}
	if len(push.events) != 1 || push.events[0] != "message" {
		t.Fatalf("events = %v", push.events)
	}
}

func TestAsk_GateDisabled_NullReplyAndCounter(t *testing.T) {
	db := newTestDB(t)
	threads := &fakeThreads{threadID: "thread_abc"}
	runner := &fakeRunner{result: runs.Result{Reply: "should not be used"}}
	push := &fakePush{}
	svc := newAskService(db, threads, runner, push)

	svc.Gate.SetEnabled(context.Background(), "628123", false)

	resp, err := svc.Ask(context.Background(), AskRequest{Identity: "628123", Text: "halo"})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if resp.Reply != nil {
		t.Fatalf("reply should be null when the gate is off, got %q", *resp.Reply)
	}
	if !resp.BotDisabled || resp.UnansweredCount == nil || *resp.UnansweredCount != 1 {
		t.Fatalf("gate fields = %+v", resp)
	}

	// No remote work happens for a gated identity.
	if len(threads.calls) != 0 || runner.calls != 0 {
		t.Fatalf("remote work happened: threads=%v runner=%d", threads.calls, runner.calls)
	}

	// Only the inbound side is recorded.
	if n := countLogs(t, db, "628123", "user"); n != 1 {
		t.Fatalf("user rows = %d", n)
	}
	if n := countLogs(t, db, "628123", "assistant"); n != 0 {
		t.Fatalf("assistant rows = %d", n)
	}
	if len(push.events) != 1 || push.events[0] != "unanswered" {
		t.Fatalf("events = %v", push.events)
	}

	// A second message keeps counting.
	resp, err = svc.Ask(context.Background(), AskRequest{Identity: "628123@s.whatsapp.net", Text: "masih ada?"})
	if err != nil {
		t.Fatalf("Ask #2: %v", err)
	}
	if resp.UnansweredCount == nil || *resp.UnansweredCount != 2 {
		t.Fatalf("count = %v, want 2", resp.UnansweredCount)
	}
}

func TestAsk_ThreadResolutionFailurePropagates(t *testing.T) {
	db := newTestDB(t)
	boom := errors.New("registry unavailable")
	svc := newAskService(db, &fakeThreads{err: boom}, &fakeRunner{}, nil)

	_, err := svc.Ask(context.Background(), AskRequest{Identity: "628123", Text: "halo"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected registry error, got %v", err)
	}
}

func TestAsk_FallbackReplyIsStillAReply(t *testing.T) {
	db := newTestDB(t)
	runner := &fakeRunner{result: runs.Result{Reply: runs.DefaultFallbackReply, Completed: false}}
	svc := newAskService(db, &fakeThreads{threadID: "t1"}, runner, nil)

	resp, err := svc.Ask(context.Background(), AskRequest{Identity: "628123", Text: "halo"})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if resp.Reply == nil || *resp.Reply != runs.DefaultFallbackReply {
		t.Fatalf("reply = %v", resp.Reply)
	}
	if n := countLogs(t, db, "628123", "assistant"); n != 1 {
		t.Fatalf("assistant rows = %d", n)
	}
}

func TestAdminReply_ResetsCounterAndLogs(t *testing.T) {
	db := newTestDB(t)
	push := &fakePush{}
	svc := newAskService(db, &fakeThreads{}, &fakeRunner{}, push)

	ctx := context.Background()
	svc.Gate.SetEnabled(ctx, "628123", false)
	svc.Gate.OnInbound(ctx, "628123")
	svc.Gate.OnInbound(ctx, "628123")
	if got := svc.Gate.UnansweredCount("628123"); got != 2 {
		t.Fatalf("precondition count = %d", got)
	}

	if err := svc.AdminReply(ctx, "628123@s.whatsapp.net", "Halo, ada yang bisa dibantu?"); err != nil {
		t.Fatalf("AdminReply: %v", err)
	}
	if got := svc.Gate.UnansweredCount("628123"); got != 0 {
		t.Fatalf("count after admin reply = %d", got)
	}
	if n := countLogs(t, db, "628123", "admin"); n != 1 {
		t.Fatalf("admin rows = %d", n)
	}
	if len(push.events) != 1 || push.events[0] != "admin_reply" {
		t.Fatalf("events = %v", push.events)
	}

	if err := svc.AdminReply(ctx, "628123", "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
}
