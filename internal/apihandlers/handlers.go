package apihandlers

import (
	"fmt"
	"net/http"
	"strconv"

	"autotag/internal/app"
	"autotag/internal/settings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// maxBulkIDs bounds one bulk request.
const maxBulkIDs = 500

type APIHandler struct {
	App *app.App
}

// BulkRequest is the body of the bulk tag and categorize endpoints.
type BulkRequest struct {
	IDs []int64 `json:"ids"`
}

// HealthHandler reports whether the store is reachable.
func (h *APIHandler) HealthHandler(c *gin.Context) {
	if err := h.App.Store.Ping(c.Request.Context()); err != nil {
		log.Warnf("Health check failed: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// PostTermsHandler returns the tags and categories attached to a post.
func (h *APIHandler) PostTermsHandler(c *gin.Context) {
	id, err := parsePostIDFromRequest(c)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	terms, err := h.App.Terms.GetPostTerms(c.Request.Context(), id)
	if err != nil {
		serviceError(c, "PostTermsHandler", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": terms})
}

// TagPostHandler generates and applies tags for a single post.
func (h *APIHandler) TagPostHandler(c *gin.Context) {
	id, err := parsePostIDFromRequest(c)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	st, ok := h.loadSettings(c)
	if !ok {
		return
	}

	tags, err := h.App.Tagging.GenerateTags(c.Request.Context(), st, id)
	if err != nil {
		serviceError(c, "TagPostHandler", err)
		return
	}
	if len(tags) == 0 {
		c.JSON(http.StatusOK, gin.H{"data": gin.H{"updated": false, "message": "No tags could be generated for this post."}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"updated": true,
		"tags":    tags,
		"message": "Tags generated successfully!",
	}})
}

// msgCategorizationDisabled answers the categorize actions while
// auto_category_enabled is off.
const msgCategorizationDisabled = "Automatic categorization is disabled."

// CategorizePostHandler matches and applies categories for a single post.
func (h *APIHandler) CategorizePostHandler(c *gin.Context) {
	id, err := parsePostIDFromRequest(c)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	st, ok := h.loadCategorizeSettings(c)
	if !ok {
		return
	}

	ids, err := h.App.Categorizing.NewPass().GenerateCategories(c.Request.Context(), st, id)
	if err != nil {
		serviceError(c, "CategorizePostHandler", err)
		return
	}
	if ids == nil {
		ids = []int64{}
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"updated": len(ids) > 0, "category_ids": ids}})
}

func (h *APIHandler) BulkTagPostsHandler(c *gin.Context) {
	ids, ok := parseBulkRequest(c)
	if !ok {
		return
	}
	st, ok := h.loadSettings(c)
	if !ok {
		return
	}

	processed, err := h.App.Tagging.TagPosts(c.Request.Context(), st, ids)
	if err != nil {
		serviceError(c, "BulkTagPostsHandler", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"processed": processed, "requested": len(ids)}})
}

func (h *APIHandler) BulkCategorizePostsHandler(c *gin.Context) {
	ids, ok := parseBulkRequest(c)
	if !ok {
		return
	}
	st, ok := h.loadCategorizeSettings(c)
	if !ok {
		return
	}

	processed, err := h.App.Categorizing.CategorizePosts(c.Request.Context(), st, ids)
	if err != nil {
		serviceError(c, "BulkCategorizePostsHandler", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"processed": processed, "requested": len(ids)}})
}

// PostSavedHandler is called by the host after a post is saved. It runs
// categorization when sync-on-save is enabled.
func (h *APIHandler) PostSavedHandler(c *gin.Context) {
	id, err := parsePostIDFromRequest(c)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	st, ok := h.loadSettings(c)
	if !ok {
		return
	}

	updated, err := h.App.Categorizing.SyncOnSave(c.Request.Context(), st, id)
	if err != nil {
		serviceError(c, "PostSavedHandler", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"updated": updated}})
}

func (h *APIHandler) loadSettings(c *gin.Context) (settings.Settings, bool) {
	st, err := h.App.Settings.Load(c.Request.Context())
	if err != nil {
		serviceError(c, "loadSettings", err)
		return settings.Settings{}, false
	}
	return st, true
}

// loadCategorizeSettings is loadSettings for the categorize actions, which
// answer 409 while automatic categorization is off.
func (h *APIHandler) loadCategorizeSettings(c *gin.Context) (settings.Settings, bool) {
	st, ok := h.loadSettings(c)
	if !ok {
		return st, false
	}
	if !st.AutoCategoryEnabled {
		Conflict(c, msgCategorizationDisabled)
		return st, false
	}
	return st, true
}

// parsePostIDFromRequest extracts and validates the post ID from the URL.
func parsePostIDFromRequest(c *gin.Context) (int64, error) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid post ID format: %s", idStr)
	}
	return id, nil
}

func parseBulkRequest(c *gin.Context) ([]int64, bool) {
	var req BulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return nil, false
	}
	if len(req.IDs) == 0 {
		BadRequest(c, "ids must not be empty")
		return nil, false
	}
	if len(req.IDs) > maxBulkIDs {
		BadRequest(c, fmt.Sprintf("at most %d ids per request", maxBulkIDs))
		return nil, false
	}
	for _, id := range req.IDs {
		if id <= 0 {
			BadRequest(c, fmt.Sprintf("invalid post ID: %d", id))
			return nil, false
		}
	}
	return req.IDs, true
}
