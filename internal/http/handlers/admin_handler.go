// Admin dashboard HTTP handlers.
//
// This file exposes the REST endpoints the customer-service dashboard uses:
//   - GET    /admin/conversations                       (list, paginated)
//   - GET    /admin/conversations/{identity}/messages   (history, paginated, ETag support)
//   - GET    /admin/search                              (text search across logs)
//   - GET    /admin/stats                               (aggregate counters)
//   - POST   /admin/conversations/{identity}/reply      (manual staff reply)
//   - DELETE /admin/users/{identity}                    (user-data erasure)
package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/rsh-ai/assistant-backend/internal/domain"
	"github.com/rsh-ai/assistant-backend/internal/http/middleware"
	"github.com/rsh-ai/assistant-backend/internal/identity"
	"github.com/rsh-ai/assistant-backend/internal/repo"
	"github.com/rsh-ai/assistant-backend/internal/services"
	"github.com/rsh-ai/assistant-backend/internal/utils"
)

// AdminDeps carries the direct dependencies of the admin read endpoints.
// Read-side queries go straight to the repo layer; there is no business logic
// to put behind a service.
type AdminDeps struct {
	DB *gorm.DB
}

//
// DTOs
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ConversationsResponse wraps a page of conversation summaries.
type ConversationsResponse struct {
	Conversations []repo.ConversationSummary `json:"conversations"`
	Pagination    Pagination                 `json:"pagination"`
}

// MessagesResponse wraps a page of chat log rows for one identity.
type MessagesResponse struct {
	Identity   string           `json:"identity"`
	Messages   []domain.ChatLog `json:"messages"`
	Pagination Pagination       `json:"pagination"`
}

// SearchResponse wraps a page of search hits.
type SearchResponse struct {
	Query      string           `json:"query"`
	Hits       []domain.ChatLog `json:"hits"`
	Pagination Pagination       `json:"pagination"`
}

// AdminReplyRequest is the JSON payload for a manual staff reply.
type AdminReplyRequest struct {
	Text string `json:"text" binding:"required" example:"Halo, ada yang bisa kami bantu?"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// paging builds the pagination block from page inputs and a total.
func paging(page, pageSize int, total int64) Pagination {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// pathIdentity returns the bare form of the :identity path parameter.
func pathIdentity(c *gin.Context) string {
	return identity.Bare(c.Param("identity"))
}

//
// Handlers
//

// ListConversations godoc
// @ID          listConversations
// @Summary     List conversations (paginated)
// @Description Returns one summary row per sender identity, newest activity first.
// @Tags        Admin
// @Produce     json
//
// @Param       page       query  int  false "Page number"    minimum(1) default(1)
// @Param       page_size  query  int  false "Items per page" minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ConversationsResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /admin/conversations [get]
func (h *Handlers) ListConversations(c *gin.Context) {
	ctx := c.Request.Context()
	page, pageSize := clampPagination(c)

	total, err := repo.CountConversations(ctx, h.deps.DB)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	items, err := repo.ListConversations(ctx, h.deps.DB, (page-1)*pageSize, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	ok(c, http.StatusOK, ConversationsResponse{
		Conversations: items,
		Pagination:    paging(page, pageSize, total),
	})
}

// ListMessages godoc
// @ID          listMessages
// @Summary     List one conversation's messages (paginated)
// @Description Returns a page of chat log rows for the identity, newest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Admin
// @Produce     json
//
// @Param       identity       path    string  true  "Sender identity (any surface form)" example(628123456789)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       page           query   int     false "Page number"    minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page" minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.MessagesResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /admin/conversations/{identity}/messages [get]
func (h *Handlers) ListMessages(c *gin.Context) {
	ctx := c.Request.Context()
	id := pathIdentity(c)
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	if count, maxTS, err := repo.ChatLogStats(ctx, h.deps.DB, id); err == nil {
		var ts int64
		if maxTS != nil {
			ts = maxTS.Unix()
		}
		etag := fmt.Sprintf(`W/"logs:%s:%d:%d"`, id, count, ts)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	total, err := repo.CountChatLogs(ctx, h.deps.DB, id)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	items, err := repo.ListChatLogsPage(ctx, h.deps.DB, id, (page-1)*pageSize, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	ok(c, http.StatusOK, MessagesResponse{
		Identity:   id,
		Messages:   items,
		Pagination: paging(page, pageSize, total),
	})
}

// SearchMessages godoc
// @ID          searchMessages
// @Summary     Search chat logs
// @Description Case-insensitive substring search across message content and display names, newest first.
// @Tags        Admin
// @Produce     json
//
// @Param       q          query  string  true  "Search text" example(jadwal)
// @Param       page       query  int     false "Page number"    minimum(1) default(1)
// @Param       page_size  query  int     false "Items per page" minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.SearchResponse
// @Failure     400  {object} handlers.ErrorResponse "Missing query"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /admin/search [get]
func (h *Handlers) SearchMessages(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "q is required")
		return
	}
	page, pageSize := clampPagination(c)

	hits, total, err := repo.SearchChatLogs(c.Request.Context(), h.deps.DB, q, (page-1)*pageSize, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	ok(c, http.StatusOK, SearchResponse{
		Query:      q,
		Hits:       hits,
		Pagination: paging(page, pageSize, total),
	})
}

// Stats godoc
// @ID          adminStats
// @Summary     Dashboard overview counters
// @Description Returns conversation, message, and insight totals, today's activity, and live disabled-sender and unanswered-backlog counts.
// @Tags        Admin
// @Produce     json
//
// @Success     200  {object} repo.OverviewStats
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /admin/stats [get]
func (h *Handlers) Stats(c *gin.Context) {
	stats, err := repo.Overview(c.Request.Context(), h.deps.DB)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	// Gate state is authoritative in memory; the bot_status table only sees
	// writes when persistence is on.
	for _, s := range h.gate.Snapshot() {
		if !s.Enabled {
			stats.DisabledBots++
		}
		stats.UnansweredTotal += int64(s.UnansweredCount)
	}

	ok(c, http.StatusOK, stats)
}

// AdminReply godoc
// @ID          adminReply
// @Summary     Record a manual staff reply
// @Description Logs a staff-authored message for the identity and resets the unanswered counter. The assistant is not involved.
// @Tags        Admin
// @Accept      json
// @Produce     json
//
// @Param       identity  path  string  true "Sender identity (any surface form)" example(628123456789)
// @Param       body      body  handlers.AdminReplyRequest true "Reply payload"
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Invalid payload"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /admin/conversations/{identity}/reply [post]
func (h *Handlers) AdminReply(c *gin.Context) {
	var req AdminReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "text is required")
		return
	}

	if err := h.askSvc.AdminReply(c.Request.Context(), c.Param("identity"), req.Text); err != nil {
		switch err {
		case services.ErrEmptyMessage, services.ErrIdentityRequired:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	noContent(c)
}

// EraseUser godoc
// @ID          eraseUser
// @Summary     Erase all data for one sender
// @Description Deletes thread bindings across every identity namespace plus chat logs, feedback, insights, and gate state. Irreversible.
// @Tags        Admin
// @Produce     json
//
// @Param       identity  path  string  true "Sender identity (any surface form)" example(628123456789)
//
// @Success     204  {string} string "No Content"
// @Failure     500  {object} handlers.ErrorResponse "Erasure failed"
// @Router      /admin/users/{identity} [delete]
func (h *Handlers) EraseUser(c *gin.Context) {
	raw := c.Param("identity")
	id := identity.Bare(raw)

	if err := h.threads.DeleteAllNamespaces(raw); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeEraseFailed, "could not remove thread bindings")
		return
	}
	if err := repo.EraseIdentity(c.Request.Context(), h.deps.DB, id); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeEraseFailed, "could not remove stored data")
		return
	}
	h.gate.Forget(raw)

	middleware.LoggerFrom(c).Info().Str("identity", id).Msg("user data erased")
	noContent(c)
}
