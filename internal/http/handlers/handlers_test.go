package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/rsh-ai/assistant-backend/internal/botgate"
	"github.com/rsh-ai/assistant-backend/internal/repo"
	"github.com/rsh-ai/assistant-backend/internal/services"
	"github.com/rsh-ai/assistant-backend/internal/settings"
)

// Shared fixtures for the handler tests. Handlers are transport-thin, so the
// fakes only record what they were asked and return canned results; repo-backed
// read endpoints run against a real in-memory SQLite database instead.

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type fakeAskService struct {
	resp     *services.AskResponse
	err      error
	adminErr error

	gotReq    services.AskRequest
	adminID   string
	adminText string
}

func (f *fakeAskService) Ask(_ context.Context, req services.AskRequest) (*services.AskResponse, error) {
	f.gotReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func (f *fakeAskService) AdminReply(_ context.Context, rawIdentity, text string) error {
	f.adminID = rawIdentity
	f.adminText = text
	return f.adminErr
}

type fakeFeedbackService struct {
	err error

	gotIdentity string
	gotLogID    string
	gotValue    int
	gotNote     string
}

func (f *fakeFeedbackService) Leave(_ context.Context, rawIdentity, chatLogID string, value int, note string) error {
	f.gotIdentity = rawIdentity
	f.gotLogID = chatLogID
	f.gotValue = value
	f.gotNote = note
	return f.err
}

type fakeEraser struct {
	err   error
	calls []string
}

func (f *fakeEraser) DeleteAllNamespaces(rawIdentity string) error {
	f.calls = append(f.calls, rawIdentity)
	return f.err
}

type fakeAnalyzer struct {
	identities []string
	texts      []string
}

func (f *fakeAnalyzer) AnalyzeAsync(_ context.Context, rawIdentity, text string) {
	f.identities = append(f.identities, rawIdentity)
	f.texts = append(f.texts, text)
}

// fixture bundles one Handlers instance with all its collaborators so tests
// can inspect what the handlers did to each of them.
type fixture struct {
	h       *Handlers
	db      *gorm.DB
	ask     *fakeAskService
	fb      *fakeFeedbackService
	eraser  *fakeEraser
	analyze *fakeAnalyzer
	gate    *botgate.Gate
	store   *settings.Store
	router  *gin.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := newTestDB(t)
	ask := &fakeAskService{}
	fb := &fakeFeedbackService{}
	eraser := &fakeEraser{}
	analyze := &fakeAnalyzer{}
	gate := botgate.New(zerolog.Nop())

	store, err := settings.Open(filepath.Join(t.TempDir(), "settings.json"), zerolog.Nop())
	if err != nil {
		t.Fatalf("open settings: %v", err)
	}

	h := New(ask, fb, gate, eraser, store, analyze, AdminDeps{DB: db})

	r := gin.New()
	r.POST("/ask", h.Ask)
	r.POST("/logs/:id/feedback", h.LeaveFeedback)
	r.GET("/admin/conversations", h.ListConversations)
	r.GET("/admin/conversations/:identity/messages", h.ListMessages)
	r.POST("/admin/conversations/:identity/reply", h.AdminReply)
	r.GET("/admin/search", h.SearchMessages)
	r.GET("/admin/stats", h.Stats)
	r.GET("/admin/bots", h.ListBotStatuses)
	r.GET("/admin/bots/:identity", h.GetBotStatus)
	r.POST("/admin/bots/:identity", h.SetBotStatus)
	r.GET("/admin/insights", h.ListInsights)
	r.GET("/admin/insights/:identity", h.GetInsight)
	r.GET("/admin/settings", h.GetSettings)
	r.PUT("/admin/settings", h.UpdateSettings)
	r.DELETE("/admin/users/:identity", h.EraseUser)

	return &fixture{
		h: h, db: db, ask: ask, fb: fb, eraser: eraser,
		analyze: analyze, gate: gate, store: store, router: r,
	}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body == nil {
		rd = bytes.NewReader(nil)
	} else if raw, ok := body.(string); ok {
		rd = bytes.NewReader([]byte(raw))
	} else {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func wantStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", w.Code, want, w.Body.String())
	}
}

func wantErrCode(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	wantStatus(t, w, status)
	resp := decode[ErrorResponse](t, w)
	if resp.Code != code {
		t.Fatalf("error code = %q, want %q", resp.Code, code)
	}
}
