// Package testsupport provides an in-memory host store and fixtures for
// tests.
package testsupport

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"autotag/internal/models"
	"autotag/internal/store"
	"autotag/internal/util"
)

// MemStore is an in-memory store.Store. It keeps term counts current the
// way the WordPress backend does.
type MemStore struct {
	mu       sync.Mutex
	posts    map[int64]*models.Post
	terms    map[int64]*models.Term
	rels     map[int64][]int64 // post id -> term ids in attach order
	options  map[string][]byte
	usage    []*models.AIUsageLog
	nextTerm int64
	failures map[string]error
	calls    map[string]int
}

var _ store.Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{
		posts:    make(map[int64]*models.Post),
		terms:    make(map[int64]*models.Term),
		rels:     make(map[int64][]int64),
		options:  make(map[string][]byte),
		failures: make(map[string]error),
		calls:    make(map[string]int),
		nextTerm: 100,
	}
}

// FailOn makes every later call to method return err. A nil err clears it.
func (m *MemStore) FailOn(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, method)
		return
	}
	m.failures[method] = err
}

// Calls returns how many times method was called.
func (m *MemStore) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

func (m *MemStore) enter(method string) error {
	m.mu.Lock()
	m.calls[method]++
	return m.failures[method]
}

// AddPost stores a published post of type post unless the caller set
// another status or type.
func (m *MemStore) AddPost(p models.Post) *models.Post {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.Status == "" {
		p.Status = models.PostStatusPublish
	}
	if p.Type == "" {
		p.Type = models.PostTypePost
	}
	cp := p
	m.posts[p.ID] = &cp
	return &cp
}

// AddTerm creates a term and returns it.
func (m *MemStore) AddTerm(name, slug, taxonomy string) *models.Term {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addTermLocked(name, slug, taxonomy)
}

func (m *MemStore) addTermLocked(name, slug, taxonomy string) *models.Term {
	m.nextTerm++
	if slug == "" {
		slug = util.Slugify(name)
	}
	t := &models.Term{ID: m.nextTerm, Name: name, Slug: slug, Taxonomy: taxonomy}
	m.terms[t.ID] = t
	return t
}

// Attach links existing terms to a post.
func (m *MemStore) Attach(postID int64, termIDs ...int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range termIDs {
		m.attachLocked(postID, id)
	}
	m.recountLocked()
}

func (m *MemStore) attachLocked(postID, termID int64) {
	for _, id := range m.rels[postID] {
		if id == termID {
			return
		}
	}
	m.rels[postID] = append(m.rels[postID], termID)
}

func (m *MemStore) detachTaxonomyLocked(postID int64, taxonomy string) {
	kept := m.rels[postID][:0]
	for _, id := range m.rels[postID] {
		if m.terms[id].Taxonomy != taxonomy {
			kept = append(kept, id)
		}
	}
	m.rels[postID] = kept
}

func (m *MemStore) recountLocked() {
	for _, t := range m.terms {
		t.Count = 0
	}
	for _, ids := range m.rels {
		for _, id := range ids {
			m.terms[id].Count++
		}
	}
}

// TermNames returns the names of the post's terms in the taxonomy.
func (m *MemStore) TermNames(postID int64, taxonomy string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var names []string
	for _, id := range m.rels[postID] {
		if t := m.terms[id]; t.Taxonomy == taxonomy {
			names = append(names, t.Name)
		}
	}
	return names
}

// RecordedUsage returns the AI usage logs written so far.
func (m *MemStore) RecordedUsage() []*models.AIUsageLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.AIUsageLog(nil), m.usage...)
}

func (m *MemStore) GetPost(ctx context.Context, id int64) (*models.Post, error) {
	if err := m.enter("GetPost"); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MemStore) ListRecentPublished(ctx context.Context, limit int) ([]*models.Post, error) {
	if err := m.enter("ListRecentPublished"); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	defer m.mu.Unlock()

	var out []*models.Post
	for _, p := range m.posts {
		if p.Status == models.PostStatusPublish && p.Type == models.PostTypePost {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PublishedAt.Equal(out[j].PublishedAt) {
			return out[i].PublishedAt.After(out[j].PublishedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemStore) GetPostTerms(ctx context.Context, postID int64, taxonomy string) ([]*models.Term, error) {
	if err := m.enter("GetPostTerms"); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	defer m.mu.Unlock()

	var out []*models.Term
	for _, id := range m.rels[postID] {
		if t := m.terms[id]; t.Taxonomy == taxonomy {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MemStore) SetPostTags(ctx context.Context, postID int64, names []string, replace bool) error {
	if err := m.enter("SetPostTags"); err != nil {
		m.mu.Unlock()
		return err
	}
	defer m.mu.Unlock()

	if _, ok := m.posts[postID]; !ok {
		return store.ErrNotFound
	}
	if replace {
		m.detachTaxonomyLocked(postID, models.TaxonomyTag)
	}
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		t := m.findTagLocked(name)
		if t == nil {
			t = m.addTermLocked(name, "", models.TaxonomyTag)
		}
		m.attachLocked(postID, t.ID)
	}
	m.recountLocked()
	return nil
}

func (m *MemStore) findTagLocked(name string) *models.Term {
	slug := util.Slugify(name)
	var match *models.Term
	for _, t := range m.terms {
		if t.Taxonomy != models.TaxonomyTag {
			continue
		}
		if strings.EqualFold(t.Name, name) || t.Slug == slug {
			if match == nil || t.ID < match.ID {
				match = t
			}
		}
	}
	return match
}

func (m *MemStore) SetPostCategories(ctx context.Context, postID int64, termIDs []int64, replace bool) error {
	if err := m.enter("SetPostCategories"); err != nil {
		m.mu.Unlock()
		return err
	}
	defer m.mu.Unlock()

	if _, ok := m.posts[postID]; !ok {
		return store.ErrNotFound
	}
	for _, id := range termIDs {
		if t, ok := m.terms[id]; !ok || t.Taxonomy != models.TaxonomyCategory {
			return store.ErrUnknownTerm
		}
	}
	if replace {
		m.detachTaxonomyLocked(postID, models.TaxonomyCategory)
	}
	for _, id := range termIDs {
		m.attachLocked(postID, id)
	}
	m.recountLocked()
	return nil
}

func (m *MemStore) Ping(ctx context.Context) error {
	err := m.enter("Ping")
	m.mu.Unlock()
	return err
}

func (m *MemStore) ListCategories(ctx context.Context) ([]*models.Term, error) {
	if err := m.enter("ListCategories"); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	defer m.mu.Unlock()

	var out []*models.Term
	for _, t := range m.terms {
		if t.Taxonomy == models.TaxonomyCategory {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemStore) GetTerm(ctx context.Context, id int64) (*models.Term, error) {
	if err := m.enter("GetTerm"); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	defer m.mu.Unlock()
	t, ok := m.terms[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *MemStore) GetOption(ctx context.Context, name string) ([]byte, error) {
	if err := m.enter("GetOption"); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	defer m.mu.Unlock()
	v, ok := m.options[name]
	if !ok {
		return nil, store.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemStore) SetOption(ctx context.Context, name string, value []byte) error {
	if err := m.enter("SetOption"); err != nil {
		m.mu.Unlock()
		return err
	}
	defer m.mu.Unlock()
	m.options[name] = append([]byte(nil), value...)
	return nil
}

func (m *MemStore) DeleteOption(ctx context.Context, name string) error {
	if err := m.enter("DeleteOption"); err != nil {
		m.mu.Unlock()
		return err
	}
	defer m.mu.Unlock()
	delete(m.options, name)
	return nil
}

func (m *MemStore) taggedLocked(postID int64) bool {
	for _, id := range m.rels[postID] {
		if m.terms[id].Taxonomy == models.TaxonomyTag {
			return true
		}
	}
	return false
}

func (m *MemStore) CountTaggedPosts(ctx context.Context) (int, error) {
	if err := m.enter("CountTaggedPosts"); err != nil {
		m.mu.Unlock()
		return 0, err
	}
	defer m.mu.Unlock()
	n := 0
	for id, p := range m.posts {
		if p.Status == models.PostStatusPublish && p.Type == models.PostTypePost && m.taggedLocked(id) {
			n++
		}
	}
	return n, nil
}

func (m *MemStore) TopTags(ctx context.Context, limit int) ([]models.TagCount, error) {
	if err := m.enter("TopTags"); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	defer m.mu.Unlock()

	var out []models.TagCount
	for _, t := range m.terms {
		if t.Taxonomy == models.TaxonomyTag && t.Count > 0 {
			out = append(out, models.TagCount{Name: t.Name, Count: t.Count})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemStore) TagTotals(ctx context.Context) (assignments, unused, taggedPosts int, err error) {
	if err := m.enter("TagTotals"); err != nil {
		m.mu.Unlock()
		return 0, 0, 0, err
	}
	defer m.mu.Unlock()

	for _, t := range m.terms {
		if t.Taxonomy != models.TaxonomyTag {
			continue
		}
		assignments += t.Count
		if t.Count == 0 {
			unused++
		}
	}
	for id, p := range m.posts {
		if p.Status == models.PostStatusPublish && p.Type == models.PostTypePost && m.taggedLocked(id) {
			taggedPosts++
		}
	}
	return assignments, unused, taggedPosts, nil
}

func (m *MemStore) MonthlyPublished(ctx context.Context, since time.Time) (total, tagged []models.MonthCount, err error) {
	if err := m.enter("MonthlyPublished"); err != nil {
		m.mu.Unlock()
		return nil, nil, err
	}
	defer m.mu.Unlock()

	tally := store.NewMonthTally(since.Location())
	for id, p := range m.posts {
		if p.Status != models.PostStatusPublish || p.Type != models.PostTypePost || p.PublishedAt.Before(since) {
			continue
		}
		tally.Add(p.PublishedAt, m.taggedLocked(id))
	}
	total, tagged = tally.Counts()
	return total, tagged, nil
}

func (m *MemStore) RecordUsage(ctx context.Context, log *models.AIUsageLog) error {
	if err := m.enter("RecordUsage"); err != nil {
		m.mu.Unlock()
		return err
	}
	defer m.mu.Unlock()
	cp := *log
	cp.ID = int64(len(m.usage) + 1)
	m.usage = append(m.usage, &cp)
	log.ID = cp.ID
	return nil
}

func (m *MemStore) ListUsage(ctx context.Context, limit, offset int) ([]*models.AIUsageLog, error) {
	if err := m.enter("ListUsage"); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	defer m.mu.Unlock()

	var out []*models.AIUsageLog
	for i := len(m.usage) - 1; i >= 0; i-- {
		out = append(out, m.usage[i])
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemStore) GetUsageSummary(ctx context.Context) (float64, int64, int64, error) {
	if err := m.enter("GetUsageSummary"); err != nil {
		m.mu.Unlock()
		return 0, 0, 0, err
	}
	defer m.mu.Unlock()

	var cost float64
	var in, out int64
	for _, u := range m.usage {
		cost += u.Cost
		in += int64(u.InputTokens)
		out += int64(u.OutputTokens)
	}
	return cost, in, out, nil
}

func (m *MemStore) Close() {}
