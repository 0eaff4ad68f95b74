package apihandlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// StatsHandler returns the dashboard numbers: tagged posts, tag usage and
// the monthly published series.
func (h *APIHandler) StatsHandler(c *gin.Context) {
	months, err := intQuery(c, "months", 0)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	limit, err := intQuery(c, "limit", 0)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	tagged, err := h.App.Stats.TaggedPostCount(ctx)
	if err != nil {
		serviceError(c, "StatsHandler", err)
		return
	}
	usage, err := h.App.Stats.TagUsage(ctx, limit)
	if err != nil {
		serviceError(c, "StatsHandler", err)
		return
	}
	monthly, err := h.App.Stats.MonthlyPosts(ctx, months)
	if err != nil {
		serviceError(c, "StatsHandler", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"tagged_posts": tagged,
		"tag_usage":    usage,
		"monthly":      monthly,
	}})
}

// CostsHandler lists AI usage logs with the running totals.
func (h *APIHandler) CostsHandler(c *gin.Context) {
	limit, err := intQuery(c, "limit", 20)
	if err != nil || limit <= 0 {
		BadRequest(c, fmt.Sprintf("invalid limit: %s", c.Query("limit")))
		return
	}
	offset, err := intQuery(c, "offset", 0)
	if err != nil || offset < 0 {
		BadRequest(c, fmt.Sprintf("invalid offset: %s", c.Query("offset")))
		return
	}

	ctx := c.Request.Context()
	logs, err := h.App.Costs.ListUsage(ctx, limit, offset)
	if err != nil {
		serviceError(c, "CostsHandler", err)
		return
	}
	summary, err := h.App.Costs.GetSummary(ctx)
	if err != nil {
		serviceError(c, "CostsHandler", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": logs, "summary": summary})
}

func intQuery(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", key, raw)
	}
	return n, nil
}
