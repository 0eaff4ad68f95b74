package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"autotag/internal/models"
	"autotag/internal/services"
	"autotag/internal/settings"
	"autotag/internal/testsupport"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 6, 15, 3, 0, 0, 0, time.UTC)

type staticSettings struct {
	st  settings.Settings
	err error
}

func (s *staticSettings) Load(ctx context.Context) (settings.Settings, error) {
	return s.st, s.err
}

type panicSettings struct{}

func (panicSettings) Load(ctx context.Context) (settings.Settings, error) {
	panic("boom")
}

// memTrigger records trigger changes in memory.
type memTrigger struct {
	reg     *Registration
	ops     []string
	failSet error
}

func (m *memTrigger) Next(ctx context.Context) (*Registration, error) {
	return m.reg, nil
}

func (m *memTrigger) Schedule(ctx context.Context, start time.Time, frequency string) error {
	m.ops = append(m.ops, "schedule")
	if m.failSet != nil {
		return m.failSet
	}
	m.reg = &Registration{TaskID: TaskID(start), NextRun: start, Frequency: frequency}
	return nil
}

func (m *memTrigger) Unschedule(ctx context.Context) error {
	m.ops = append(m.ops, "unschedule")
	m.reg = nil
	return nil
}

func newScheduler(ms *testsupport.MemStore, st settings.Settings, trig Trigger) (*Scheduler, *staticSettings) {
	src := &staticSettings{st: st}
	s := New(Deps{
		Settings:     src,
		Posts:        ms,
		Options:      ms,
		Tagging:      services.NewTaggingService(ms, nil),
		Categorizing: services.NewCategorizationService(ms, ms),
		Trigger:      trig,
		Location:     time.UTC,
	})
	s.now = func() time.Time { return now }
	return s, src
}

func TestResolveStart(t *testing.T) {
	plus2 := time.FixedZone("UTC+2", 2*3600)

	testCases := []struct {
		name string
		freq string
		at   string
		now  time.Time
		loc  *time.Location
		want time.Time
	}{
		{
			name: "Daily time already passed rolls to tomorrow",
			freq: settings.FrequencyDaily, at: "02:00",
			now:  time.Date(2024, 6, 15, 3, 0, 0, 0, time.UTC),
			want: time.Date(2024, 6, 16, 2, 0, 0, 0, time.UTC),
		},
		{
			name: "Daily time later today",
			freq: settings.FrequencyDaily, at: "02:00",
			now:  time.Date(2024, 6, 15, 1, 0, 0, 0, time.UTC),
			want: time.Date(2024, 6, 15, 2, 0, 0, 0, time.UTC),
		},
		{
			name: "Daily time equal to now rolls to tomorrow",
			freq: settings.FrequencyDaily, at: "02:00",
			now:  time.Date(2024, 6, 15, 2, 0, 0, 0, time.UTC),
			want: time.Date(2024, 6, 16, 2, 0, 0, 0, time.UTC),
		},
		{
			name: "Daily uses site time zone",
			freq: settings.FrequencyDaily, at: "03:00",
			now:  time.Date(2024, 6, 15, 1, 30, 0, 0, time.UTC),
			loc:  plus2,
			want: time.Date(2024, 6, 16, 1, 0, 0, 0, time.UTC),
		},
		{
			name: "Daily malformed time uses default",
			freq: settings.FrequencyDaily, at: "bogus",
			now:  time.Date(2024, 6, 15, 1, 0, 0, 0, time.UTC),
			want: time.Date(2024, 6, 15, 2, 0, 0, 0, time.UTC),
		},
		{
			name: "Hourly starts in a minute",
			freq: settings.FrequencyHourly, at: "02:00",
			now:  time.Date(2024, 6, 15, 3, 0, 0, 0, time.UTC),
			want: time.Date(2024, 6, 15, 3, 1, 0, 0, time.UTC),
		},
		{
			name: "Twice daily starts in a minute",
			freq: settings.FrequencyTwiceDaily, at: "23:00",
			now:  time.Date(2024, 6, 15, 3, 0, 0, 0, time.UTC),
			want: time.Date(2024, 6, 15, 3, 1, 0, 0, time.UTC),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			st := settings.Defaults()
			st.ScheduleFrequency = tc.freq
			st.ScheduleTime = tc.at
			got := ResolveStart(st, tc.now, tc.loc)
			assert.True(t, tc.want.Equal(got), "want %s got %s", tc.want, got)
		})
	}
}

func TestInterval(t *testing.T) {
	assert.Equal(t, time.Hour, Interval(settings.FrequencyHourly))
	assert.Equal(t, 12*time.Hour, Interval(settings.FrequencyTwiceDaily))
	assert.Equal(t, 24*time.Hour, Interval(settings.FrequencyDaily))
	assert.Equal(t, 24*time.Hour, Interval("weekly"))
}

func TestMaybeSchedule(t *testing.T) {
	st := settings.Defaults()
	trig := &memTrigger{}
	s, src := newScheduler(testsupport.NewMemStore(), st, trig)

	require.NoError(t, s.MaybeSchedule(context.Background()))
	assert.Equal(t, []string{"unschedule"}, trig.ops, "disabled clears")

	src.st.ScheduleEnabled = true
	trig.ops = nil
	require.NoError(t, s.MaybeSchedule(context.Background()))
	assert.Equal(t, []string{"schedule"}, trig.ops)
	require.NotNil(t, trig.reg)
	assert.True(t, time.Date(2024, 6, 16, 2, 0, 0, 0, time.UTC).Equal(trig.reg.NextRun))

	trig.ops = nil
	require.NoError(t, s.MaybeSchedule(context.Background()))
	assert.Empty(t, trig.ops, "armed trigger is kept")
}

func TestMaybeSchedule_OverdueRegistration(t *testing.T) {
	st := settings.Defaults()
	st.ScheduleEnabled = true

	testCases := []struct {
		name    string
		nextRun time.Time
		wantOps []string
	}{
		{
			name:    "Lost occurrence days ago is replaced",
			nextRun: time.Date(2024, 6, 10, 2, 0, 0, 0, time.UTC),
			wantOps: []string{"unschedule", "schedule"},
		},
		{
			name:    "Occurrence due moments ago is kept",
			nextRun: now.Add(-time.Minute),
			wantOps: nil,
		},
		{
			name:    "Future occurrence is kept",
			nextRun: now.Add(time.Hour),
			wantOps: nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			trig := &memTrigger{reg: &Registration{TaskID: TaskID(tc.nextRun), NextRun: tc.nextRun, Frequency: settings.FrequencyDaily}}
			s, _ := newScheduler(testsupport.NewMemStore(), st, trig)

			require.NoError(t, s.MaybeSchedule(context.Background()))
			assert.Equal(t, tc.wantOps, trig.ops)
			require.NotNil(t, trig.reg)
			assert.False(t, trig.reg.NextRun.Before(now.Add(-staleGrace)))
		})
	}
}

func TestHandleSettingsUpdate(t *testing.T) {
	old := settings.Defaults()
	old.ScheduleEnabled = true

	trig := &memTrigger{reg: &Registration{TaskID: "old"}}
	s, _ := newScheduler(testsupport.NewMemStore(), old, trig)

	next := old
	next.ScheduleFrequency = settings.FrequencyHourly
	require.NoError(t, s.HandleSettingsUpdate(context.Background(), old, next))
	assert.Equal(t, []string{"unschedule", "schedule"}, trig.ops)
	assert.True(t, now.Add(time.Minute).Equal(trig.reg.NextRun))
	assert.Equal(t, settings.FrequencyHourly, trig.reg.Frequency)

	trig.ops = nil
	disabled := next
	disabled.ScheduleEnabled = false
	require.NoError(t, s.HandleSettingsUpdate(context.Background(), next, disabled))
	assert.Equal(t, []string{"unschedule"}, trig.ops)
	assert.Nil(t, trig.reg)
}

func TestHandleSettingsUpdate_ScheduleError(t *testing.T) {
	st := settings.Defaults()
	st.ScheduleEnabled = true
	trig := &memTrigger{failSet: errors.New("queue unavailable")}
	s, _ := newScheduler(testsupport.NewMemStore(), st, trig)

	err := s.HandleSettingsUpdate(context.Background(), settings.Defaults(), st)
	assert.ErrorContains(t, err, "queue unavailable")
}

func TestRearm(t *testing.T) {
	st := settings.Defaults()
	st.ScheduleEnabled = true
	fired := time.Date(2024, 6, 13, 2, 0, 0, 0, time.UTC)

	t.Run("Advances past now", func(t *testing.T) {
		trig := &memTrigger{reg: &Registration{TaskID: TaskID(fired), NextRun: fired, Frequency: settings.FrequencyDaily}}
		s, _ := newScheduler(testsupport.NewMemStore(), st, trig)

		require.NoError(t, s.Rearm(context.Background(), TaskID(fired)))
		assert.True(t, time.Date(2024, 6, 16, 2, 0, 0, 0, time.UTC).Equal(trig.reg.NextRun), "got %s", trig.reg.NextRun)
	})

	t.Run("Stale task is ignored", func(t *testing.T) {
		trig := &memTrigger{reg: &Registration{TaskID: "other", NextRun: fired}}
		s, _ := newScheduler(testsupport.NewMemStore(), st, trig)

		require.NoError(t, s.Rearm(context.Background(), TaskID(fired)))
		assert.Empty(t, trig.ops)
		assert.Equal(t, "other", trig.reg.TaskID)
	})

	t.Run("Disabled clears", func(t *testing.T) {
		trig := &memTrigger{reg: &Registration{TaskID: TaskID(fired), NextRun: fired}}
		s, _ := newScheduler(testsupport.NewMemStore(), settings.Defaults(), trig)

		require.NoError(t, s.Rearm(context.Background(), TaskID(fired)))
		assert.Equal(t, []string{"unschedule"}, trig.ops)
	})
}

func runSettings(batch int) settings.Settings {
	st := settings.Defaults()
	st.AutoTagEnabled = true
	st.ScheduleBatchSize = batch
	return st
}

func addPosts(ms *testsupport.MemStore, n int) {
	for i := 1; i <= n; i++ {
		ms.AddPost(models.Post{
			ID:          int64(i),
			Title:       "Gardening post",
			Body:        "Tomatoes and peppers",
			PublishedAt: now.Add(time.Duration(i) * time.Hour * -24),
		})
	}
}

func lastRun(t *testing.T, ms *testsupport.MemStore) string {
	t.Helper()
	raw, err := ms.GetOption(context.Background(), settings.LastRunOptionName)
	if err != nil {
		return ""
	}
	return string(raw)
}

func TestRunScheduledTasks_BatchLimits(t *testing.T) {
	ms := testsupport.NewMemStore()
	addPosts(ms, 7)
	s, _ := newScheduler(ms, runSettings(2), &memTrigger{})

	res, err := s.RunScheduledTasks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSuccess, res.Status)
	assert.Equal(t, 2, res.Processed)
	assert.NotEmpty(t, ms.TermNames(1, models.TaxonomyTag), "newest first")
	assert.NotEmpty(t, ms.TermNames(2, models.TaxonomyTag))
	assert.Empty(t, ms.TermNames(3, models.TaxonomyTag))
	assert.Equal(t, strconv.FormatInt(now.Unix(), 10), lastRun(t, ms))

	res, err = s.RunScheduledTasks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Processed)
	assert.NotEmpty(t, ms.TermNames(4, models.TaxonomyTag))
	assert.Empty(t, ms.TermNames(5, models.TaxonomyTag))
}

func TestRunScheduledTasks_SecondRunFindsNothing(t *testing.T) {
	ms := testsupport.NewMemStore()
	addPosts(ms, 3)
	s, _ := newScheduler(ms, runSettings(5), &memTrigger{})

	var notified []int
	s.OnAfterRun(func(ctx context.Context, res RunResult) { notified = append(notified, res.Processed) })

	res, err := s.RunScheduledTasks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Processed)

	res, err = s.RunScheduledTasks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Processed)
	assert.Equal(t, []int{3, 0}, notified)
}

func TestRunScheduledTasks_CandidateWindow(t *testing.T) {
	ms := testsupport.NewMemStore()
	addPosts(ms, 5)
	// Posts 1..3 are already tagged; the window of batch*3 = 3 holds nothing new.
	tag := ms.AddTerm("Done", "", models.TaxonomyTag)
	ms.Attach(1, tag.ID)
	ms.Attach(2, tag.ID)
	ms.Attach(3, tag.ID)
	s, _ := newScheduler(ms, runSettings(1), &memTrigger{})

	res, err := s.RunScheduledTasks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Processed)
	assert.Empty(t, ms.TermNames(4, models.TaxonomyTag))
}

func TestRunScheduledTasks_DisabledIsNoop(t *testing.T) {
	ms := testsupport.NewMemStore()
	addPosts(ms, 2)
	s, _ := newScheduler(ms, settings.Defaults(), &memTrigger{})
	called := false
	s.OnAfterRun(func(ctx context.Context, res RunResult) { called = true })

	res, err := s.RunScheduledTasks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSkipped, res.Status)
	assert.Zero(t, ms.Calls("ListRecentPublished"))
	assert.Empty(t, lastRun(t, ms))
	assert.False(t, called)
}

func TestRunScheduledTasks_NoPostsStillRecordsRun(t *testing.T) {
	ms := testsupport.NewMemStore()
	s, _ := newScheduler(ms, runSettings(5), &memTrigger{})

	res, err := s.RunScheduledTasks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSuccess, res.Status)
	assert.Zero(t, res.Processed)
	assert.NotEmpty(t, lastRun(t, ms))
}

func TestRunScheduledTasks_ListFailure(t *testing.T) {
	ms := testsupport.NewMemStore()
	ms.FailOn("ListRecentPublished", errors.New("db down"))
	s, _ := newScheduler(ms, runSettings(5), &memTrigger{})

	res, err := s.RunScheduledTasks(context.Background())
	require.Error(t, err)
	assert.Equal(t, models.RunStatusError, res.Status)
	assert.Empty(t, lastRun(t, ms), "failed runs leave the timestamp alone")
}

func TestRunScheduledTasks_Categorization(t *testing.T) {
	ms := testsupport.NewMemStore()
	uncategorized := ms.AddTerm("Uncategorized", "uncategorized", models.TaxonomyCategory)
	garden := ms.AddTerm("Gardening", "gardening", models.TaxonomyCategory)
	news := ms.AddTerm("News", "news", models.TaxonomyCategory)
	addPosts(ms, 2)
	ms.Attach(1, uncategorized.ID)
	ms.Attach(2, news.ID)

	st := settings.Defaults()
	st.AutoCategoryEnabled = true
	st.AutoCategoryStrategy = settings.StrategyContentMatch
	s, _ := newScheduler(ms, st, &memTrigger{})

	res, err := s.RunScheduledTasks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, []string{garden.Name}, ms.TermNames(1, models.TaxonomyCategory))
	assert.Equal(t, []string{"News"}, ms.TermNames(2, models.TaxonomyCategory), "meaningful category is kept")
	assert.Empty(t, ms.TermNames(1, models.TaxonomyTag), "tagging is disabled")
}

func TestRunScheduledTasks_PerPostFailureIsSkipped(t *testing.T) {
	ms := testsupport.NewMemStore()
	ms.AddTerm("Gardening", "gardening", models.TaxonomyCategory)
	addPosts(ms, 2)
	ms.FailOn("SetPostTags", errors.New("write failed"))

	st := runSettings(5)
	st.AutoCategoryEnabled = true
	st.AutoCategoryStrategy = settings.StrategyContentMatch
	s, _ := newScheduler(ms, st, &memTrigger{})

	res, err := s.RunScheduledTasks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Processed, "categorization still counts")
	assert.Equal(t, 2, ms.Calls("SetPostTags"))
}

func TestRunScheduledTasks_OverlapGuard(t *testing.T) {
	ms := testsupport.NewMemStore()
	addPosts(ms, 1)
	s, _ := newScheduler(ms, runSettings(5), &memTrigger{})
	s.deps.LockPath = filepath.Join(t.TempDir(), "run.lock")

	held := flock.New(s.deps.LockPath)
	locked, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, locked)

	_, err = s.RunScheduledTasks(context.Background())
	assert.ErrorIs(t, err, models.ErrRunInProgress)
	assert.Zero(t, ms.Calls("ListRecentPublished"))

	require.NoError(t, held.Unlock())
	res, err := s.RunScheduledTasks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
}

func TestRunNow_RecoversPanic(t *testing.T) {
	s := New(Deps{Settings: panicSettings{}, Trigger: &memTrigger{}})

	res, err := s.RunNow(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, models.RunStatusError, res.Status)
}

func TestStatus(t *testing.T) {
	ms := testsupport.NewMemStore()
	st := settings.Defaults()
	st.ScheduleEnabled = true
	next := time.Date(2024, 6, 16, 2, 0, 0, 0, time.UTC)
	s, _ := newScheduler(ms, st, &memTrigger{reg: &Registration{TaskID: TaskID(next), NextRun: next}})

	status, err := s.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Enabled)
	require.NotNil(t, status.NextRun)
	assert.True(t, next.Equal(*status.NextRun))
	assert.Nil(t, status.LastRun)

	require.NoError(t, ms.SetOption(context.Background(), settings.LastRunOptionName, []byte("1718400000")))
	status, err = s.Status(context.Background())
	require.NoError(t, err)
	require.NotNil(t, status.LastRun)
	assert.Equal(t, int64(1718400000), status.LastRun.Unix())
}
