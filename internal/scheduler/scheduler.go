// Package scheduler runs the recurring batch pass that tags and categorizes
// recently published posts, and keeps its trigger in step with the
// settings.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"autotag/internal/models"
	"autotag/internal/services"
	"autotag/internal/settings"
	"autotag/internal/store"

	log "github.com/sirupsen/logrus"
)

// candidateFactor is how many posts are fetched per batch slot; most recent
// posts are usually processed already.
const candidateFactor = 3

// staleGrace is how long past its due time a registration may go unfired
// before it is considered lost and armed again.
const staleGrace = 10 * time.Minute

// SettingsSource loads the current settings.
type SettingsSource interface {
	Load(ctx context.Context) (settings.Settings, error)
}

// RunResult describes one batch run.
type RunResult struct {
	Status     string    `json:"status"`
	Processed  int       `json:"processed"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// AfterRunFunc is notified after every completed run with its result.
type AfterRunFunc func(ctx context.Context, res RunResult)

// Status summarizes the schedule for dashboards and the CLI.
type Status struct {
	Enabled   bool       `json:"enabled"`
	Frequency string     `json:"frequency"`
	Time      string     `json:"time"`
	BatchSize int        `json:"batch_size"`
	NextRun   *time.Time `json:"next_run,omitempty"`
	LastRun   *time.Time `json:"last_run,omitempty"`
}

// Deps holds the collaborators of a Scheduler.
type Deps struct {
	Settings     SettingsSource
	Posts        store.PostStore
	Options      store.OptionStore
	Tagging      *services.TaggingService
	Categorizing *services.CategorizationService
	Trigger      Trigger
	Location     *time.Location
	// LockPath enables the cross-process overlap guard when set.
	LockPath string
}

type Scheduler struct {
	deps Deps
	loc  *time.Location
	now  func() time.Time

	mu        sync.Mutex // serializes trigger changes
	listeners []AfterRunFunc
}

var _ services.ScheduleUpdater = (*Scheduler)(nil)

func New(deps Deps) *Scheduler {
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{deps: deps, loc: loc, now: time.Now}
}

// OnAfterRun registers fn to be called after each completed run.
func (s *Scheduler) OnAfterRun(fn AfterRunFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Interval returns the period of a schedule frequency.
func Interval(frequency string) time.Duration {
	switch settings.NormalizeFrequency(frequency) {
	case settings.FrequencyHourly:
		return time.Hour
	case settings.FrequencyTwiceDaily:
		return 12 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// ResolveStart returns the first occurrence for st. Non-daily schedules
// start one minute from now. Daily schedules start at the next schedule_time
// in loc, tomorrow when that time has already passed today.
func ResolveStart(st settings.Settings, now time.Time, loc *time.Location) time.Time {
	if settings.NormalizeFrequency(st.ScheduleFrequency) != settings.FrequencyDaily {
		return now.Add(time.Minute)
	}
	if loc == nil {
		loc = time.UTC
	}
	hour, minute, ok := settings.ParseScheduleTime(st.ScheduleTime)
	if !ok {
		hour, minute, _ = settings.ParseScheduleTime(settings.DefaultScheduleTime)
	}

	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !start.After(local) {
		start = start.AddDate(0, 0, 1)
	}
	return start
}

// MaybeSchedule clears the trigger when scheduling is disabled and registers
// it when scheduling is enabled and nothing live is armed. A registration
// overdue by more than staleGrace is replaced.
func (s *Scheduler) MaybeSchedule(ctx context.Context) error {
	st, err := s.deps.Settings.Load(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !st.ScheduleEnabled {
		return s.deps.Trigger.Unschedule(ctx)
	}
	reg, err := s.deps.Trigger.Next(ctx)
	if err != nil {
		return err
	}
	now := s.now()
	if reg != nil {
		if !reg.NextRun.Before(now.Add(-staleGrace)) {
			return nil
		}
		log.Warnf("Registration %s was due at %s and never fired; scheduling again",
			reg.TaskID, reg.NextRun.Format(time.RFC3339))
		if err := s.deps.Trigger.Unschedule(ctx); err != nil {
			return err
		}
	}
	return s.deps.Trigger.Schedule(ctx, ResolveStart(st, now, s.loc), st.ScheduleFrequency)
}

// HandleSettingsUpdate clears the trigger and registers it again from the
// new settings when scheduling is enabled.
func (s *Scheduler) HandleSettingsUpdate(ctx context.Context, old, new settings.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.deps.Trigger.Unschedule(ctx); err != nil {
		return err
	}
	if !new.ScheduleEnabled {
		return nil
	}
	return s.deps.Trigger.Schedule(ctx, ResolveStart(new, s.now(), s.loc), new.ScheduleFrequency)
}

// Rearm registers the occurrence after the one identified by firedTaskID.
// Nothing happens when that task is no longer the registered one, so a
// stale task cannot fork the schedule.
func (s *Scheduler) Rearm(ctx context.Context, firedTaskID string) error {
	st, err := s.deps.Settings.Load(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	reg, err := s.deps.Trigger.Next(ctx)
	if err != nil {
		return err
	}
	if reg == nil || reg.TaskID != firedTaskID {
		log.Debugf("Not re-arming %s: fired task %s is not the registered one", Hook, firedTaskID)
		return nil
	}
	if !st.ScheduleEnabled {
		return s.deps.Trigger.Unschedule(ctx)
	}

	interval := Interval(st.ScheduleFrequency)
	next := reg.NextRun.Add(interval)
	for now := s.now(); !next.After(now); {
		next = next.Add(interval)
	}
	return s.deps.Trigger.Schedule(ctx, next, st.ScheduleFrequency)
}

// RunScheduledTasks processes up to schedule_batch_size posts. A post counts
// as processed when it was tagged, categorized, or both. Per-post failures
// are logged and skipped.
func (s *Scheduler) RunScheduledTasks(ctx context.Context) (RunResult, error) {
	res := RunResult{Status: models.RunStatusSkipped, StartedAt: s.now()}

	release, err := acquireRunLock(s.deps.LockPath)
	if err != nil {
		if errors.Is(err, models.ErrRunInProgress) {
			log.Info("Skipping scheduled run: another run holds the lock")
		}
		return res, err
	}
	defer release()

	st, err := s.deps.Settings.Load(ctx)
	if err != nil {
		res.Status = models.RunStatusError
		return res, err
	}
	if !st.AutoTagEnabled && !st.AutoCategoryEnabled {
		log.Debug("Skipping scheduled run: tagging and categorization are disabled")
		res.FinishedAt = s.now()
		return res, nil
	}

	batch := settings.ClampBatchSize(st.ScheduleBatchSize)
	posts, err := s.deps.Posts.ListRecentPublished(ctx, batch*candidateFactor)
	if err != nil {
		res.Status = models.RunStatusError
		return res, fmt.Errorf("failed to list recent posts: %w", err)
	}

	var pass *services.CategorizationPass
	if st.AutoCategoryEnabled && s.deps.Categorizing != nil {
		pass = s.deps.Categorizing.NewPass()
	}

	for _, post := range posts {
		if err := ctx.Err(); err != nil {
			res.Status = models.RunStatusError
			return res, err
		}
		if s.processPost(ctx, st, pass, post.ID) {
			res.Processed++
		}
		if res.Processed >= batch {
			break
		}
	}

	if err := s.deps.Options.SetOption(ctx, settings.LastRunOptionName, []byte(strconv.FormatInt(s.now().Unix(), 10))); err != nil {
		log.Errorf("Failed to record last scheduled run: %v", err)
	}
	res.Status = models.RunStatusSuccess
	res.FinishedAt = s.now()
	log.Infof("Scheduled run processed %d post(s)", res.Processed)

	s.mu.Lock()
	listeners := append([]AfterRunFunc(nil), s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(ctx, res)
	}
	return res, nil
}

// processPost tags an untagged post and categorizes a post without a
// meaningful category. It reports whether either happened.
func (s *Scheduler) processPost(ctx context.Context, st settings.Settings, pass *services.CategorizationPass, postID int64) bool {
	did := false

	if st.AutoTagEnabled && s.deps.Tagging != nil {
		tags, err := s.deps.Posts.GetPostTerms(ctx, postID, models.TaxonomyTag)
		switch {
		case err != nil:
			log.Warnf("Scheduled run: failed to read tags of post %d: %v", postID, err)
		case len(tags) == 0:
			ok, err := s.deps.Tagging.TagPost(ctx, st, postID)
			if err != nil {
				log.Warnf("Scheduled run: failed to tag post %d: %v", postID, err)
			}
			did = did || ok
		}
	}

	if pass != nil {
		meaningful, err := s.deps.Categorizing.HasMeaningfulCategory(ctx, postID)
		switch {
		case err != nil:
			log.Warnf("Scheduled run: failed to read categories of post %d: %v", postID, err)
		case !meaningful:
			ok, err := pass.CategorizePost(ctx, st, postID)
			if err != nil {
				log.Warnf("Scheduled run: failed to categorize post %d: %v", postID, err)
			}
			did = did || ok
		}
	}
	return did
}

// RunNow performs a manual run. Panics are recovered and returned as errors.
func (s *Scheduler) RunNow(ctx context.Context) (res RunResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scheduled run panicked: %v", r)
			res.Status = models.RunStatusError
		}
		if err != nil {
			log.Errorf("Manual scheduled run failed: %v", err)
		}
	}()
	return s.RunScheduledTasks(ctx)
}

// LastRun returns the time of the last completed run.
func (s *Scheduler) LastRun(ctx context.Context) (time.Time, bool, error) {
	raw, err := s.deps.Options.GetOption(ctx, settings.LastRunOptionName)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("failed to read last run: %w", err)
	}
	sec, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil || sec <= 0 {
		return time.Time{}, false, nil
	}
	return time.Unix(sec, 0).In(s.loc), true, nil
}

// Status reports the configured schedule with its next and last run.
func (s *Scheduler) Status(ctx context.Context) (*Status, error) {
	st, err := s.deps.Settings.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := &Status{
		Enabled:   st.ScheduleEnabled,
		Frequency: st.ScheduleFrequency,
		Time:      st.ScheduleTime,
		BatchSize: st.ScheduleBatchSize,
	}

	reg, err := s.deps.Trigger.Next(ctx)
	if err != nil {
		return nil, err
	}
	if reg != nil {
		next := reg.NextRun.In(s.loc)
		out.NextRun = &next
	}

	last, ok, err := s.LastRun(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		out.LastRun = &last
	}
	return out, nil
}
