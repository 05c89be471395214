// Analytics insight HTTP handlers.
//
//   - GET /admin/insights             (all extractions, paginated)
//   - GET /admin/insights/{identity}  (latest extraction for one sender)
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rsh-ai/assistant-backend/internal/domain"
	"github.com/rsh-ai/assistant-backend/internal/repo"
)

// InsightsResponse wraps a page of insight rows.
type InsightsResponse struct {
	Insights   []domain.UserInsight `json:"insights"`
	Pagination Pagination           `json:"pagination"`
}

// ListInsights godoc
// @ID          listInsights
// @Summary     List extracted user insights (paginated)
// @Description Returns insight rows produced by the analytics pipeline, newest first.
// @Tags        Analytics
// @Produce     json
//
// @Param       page       query  int  false "Page number"    minimum(1) default(1)
// @Param       page_size  query  int  false "Items per page" minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.InsightsResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /admin/insights [get]
func (h *Handlers) ListInsights(c *gin.Context) {
	ctx := c.Request.Context()
	page, pageSize := clampPagination(c)

	total, err := repo.CountInsights(ctx, h.deps.DB)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	items, err := repo.ListInsightsPage(ctx, h.deps.DB, (page-1)*pageSize, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	ok(c, http.StatusOK, InsightsResponse{
		Insights:   items,
		Pagination: paging(page, pageSize, total),
	})
}

// GetInsight godoc
// @ID          getInsight
// @Summary     Get the latest insight for one sender
// @Tags        Analytics
// @Produce     json
//
// @Param       identity  path  string  true "Sender identity (any surface form)" example(628123456789)
//
// @Success     200  {object} domain.UserInsight
// @Failure     404  {object} handlers.ErrorResponse "No insight for this identity"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /admin/insights/{identity} [get]
func (h *Handlers) GetInsight(c *gin.Context) {
	row, err := repo.LatestInsight(c.Request.Context(), h.deps.DB, pathIdentity(c))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "no insight for this identity")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, row)
}
