package store

import (
	"context"
	"time"

	"autotag/internal/models"

	"github.com/hibiken/asynq"
)

// --- Job Client ---

// JobClient enqueues and removes background tasks.
type JobClient interface {
	Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	DeleteTask(ctx context.Context, queue, taskID string) error
	Close() error
}

// --- Post Store ---

// PostStore reads posts and replaces their taxonomy assignments.
type PostStore interface {
	GetPost(ctx context.Context, id int64) (*models.Post, error)
	// ListRecentPublished returns published posts of type post, most recent
	// first.
	ListRecentPublished(ctx context.Context, limit int) ([]*models.Post, error)
	GetPostTerms(ctx context.Context, postID int64, taxonomy string) ([]*models.Term, error)
	// SetPostTags attaches tags by name, creating missing tags. When replace
	// is true the post's existing tags are removed first.
	SetPostTags(ctx context.Context, postID int64, names []string, replace bool) error
	// SetPostCategories attaches existing categories by id. When replace is
	// true the post's existing categories are removed first.
	SetPostCategories(ctx context.Context, postID int64, termIDs []int64, replace bool) error

	Ping(ctx context.Context) error
}

// --- Taxonomy Store ---

type TaxonomyStore interface {
	// ListCategories returns every category ordered by name.
	ListCategories(ctx context.Context) ([]*models.Term, error)
	GetTerm(ctx context.Context, id int64) (*models.Term, error)
}

// --- Option Store ---

// OptionStore is the host's key/value settings table.
type OptionStore interface {
	// GetOption returns ErrNotFound when the option does not exist.
	GetOption(ctx context.Context, name string) ([]byte, error)
	SetOption(ctx context.Context, name string, value []byte) error
	DeleteOption(ctx context.Context, name string) error
}

// --- Stats Store ---

type StatsStore interface {
	CountTaggedPosts(ctx context.Context) (int, error)
	// TopTags returns the most used tags, highest count first.
	TopTags(ctx context.Context, limit int) ([]models.TagCount, error)
	// TagTotals returns the sum of tag counts, the number of tags attached
	// to no post, and the number of published posts with at least one tag.
	TagTotals(ctx context.Context) (assignments, unused, taggedPosts int, err error)
	// MonthlyPublished returns published and tagged-published post counts
	// per "YYYY-MM" bucket for posts published at or after since.
	MonthlyPublished(ctx context.Context, since time.Time) (total, tagged []models.MonthCount, err error)
}

// --- Cost Tracking Store ---

type CostTrackingStore interface {
	RecordUsage(ctx context.Context, log *models.AIUsageLog) error
	ListUsage(ctx context.Context, limit, offset int) ([]*models.AIUsageLog, error)
	GetUsageSummary(ctx context.Context) (totalCost float64, totalInputTokens, totalOutputTokens int64, err error)
}

// Store is everything a backend provides.
type Store interface {
	PostStore
	TaxonomyStore
	OptionStore
	StatsStore
	CostTrackingStore
	Close()
}
