package models

import (
	"time"
)

// Post types and statuses as stored by the host CMS.
const (
	PostTypePost = "post"

	PostStatusPublish = "publish"
	PostStatusDraft   = "draft"
	PostStatusFuture  = "future"
)

// Taxonomy names used by the host CMS.
const (
	TaxonomyTag      = "post_tag"
	TaxonomyCategory = "category"

	// UncategorizedSlug is the slug of the host's default category bucket.
	UncategorizedSlug = "uncategorized"
)

// Post is a content item owned by the host CMS.
type Post struct {
	ID          int64     `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Body        string    `db:"body" json:"body"` // raw HTML as stored by the editor
	Status      string    `db:"status" json:"status"`
	Type        string    `db:"type" json:"type"`
	PublishedAt time.Time `db:"published_at" json:"published_at"`
}

// Term is a tag or category in the host taxonomy store.
type Term struct {
	ID       int64  `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	Slug     string `db:"slug" json:"slug"`
	Taxonomy string `db:"taxonomy" json:"taxonomy"`
	Count    int    `db:"count" json:"count"`
}

// AIUsageLog represents a record of AI API usage for cost tracking.
type AIUsageLog struct {
	ID           int64     `db:"id" json:"id"`
	Timestamp    time.Time `db:"timestamp" json:"timestamp"`
	ProviderName string    `db:"provider_name" json:"provider_name"`
	ServiceType  string    `db:"service_type" json:"service_type"` // e.g. "tag_optimization"
	ModelName    string    `db:"model_name" json:"model_name"`
	InputTokens  int       `db:"input_tokens" json:"input_tokens"`
	OutputTokens int       `db:"output_tokens" json:"output_tokens"`
	Cost         float64   `db:"cost" json:"cost"`
	PostID       *int64    `db:"post_id" json:"post_id,omitempty"` // nullable
}

// TagCount is a tag name with the number of posts it is attached to.
type TagCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// MonthCount is a per-month counter keyed "YYYY-MM".
type MonthCount struct {
	Key   string
	Count int
}

// TagUsageStats summarizes tag usage across the site.
type TagUsageStats struct {
	TopTags                  []TagCount `json:"top_tags"`
	TotalAssignments         int        `json:"total_assignments"`
	UnusedTags               int        `json:"unused_tags"`
	AverageTagsPerTaggedPost float64    `json:"average_tags_per_tagged_post"`
}

// MonthlyPostStats is one bucket of the published/tagged series.
type MonthlyPostStats struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Year     int    `json:"year"`
	Total    int    `json:"total"`
	Tagged   int    `json:"tagged"`
	Untagged int    `json:"untagged"`
}
