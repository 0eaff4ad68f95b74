package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"autotag/internal/settings"
	"autotag/internal/store"
	"autotag/internal/tasks"

	"github.com/hibiken/asynq"
	log "github.com/sirupsen/logrus"
)

// Hook names the recurring scheduled event.
const Hook = "gd_autotag_run_scheduled_tasks"

// Registration describes the currently armed occurrence of the hook.
type Registration struct {
	TaskID    string    `json:"task_id"`
	Queue     string    `json:"queue"`
	NextRun   time.Time `json:"next_run"`
	Frequency string    `json:"frequency"`
}

// Trigger is the host scheduling facility.
type Trigger interface {
	// Next returns the armed occurrence, or nil when none is registered.
	Next(ctx context.Context) (*Registration, error)
	Schedule(ctx context.Context, start time.Time, frequency string) error
	Unschedule(ctx context.Context) error
}

// RunPayload is the body of a scheduled run task.
type RunPayload struct {
	Frequency    string `json:"frequency"`
	ScheduledFor int64  `json:"scheduled_for"`
}

// AsynqTrigger arms the hook as a delayed asynq task and remembers it in
// the option store.
type AsynqTrigger struct {
	jobs    store.JobClient
	options store.OptionStore
}

var _ Trigger = (*AsynqTrigger)(nil)

func NewAsynqTrigger(jobs store.JobClient, options store.OptionStore) *AsynqTrigger {
	return &AsynqTrigger{jobs: jobs, options: options}
}

// TaskID is the deterministic asynq task id for an occurrence.
func TaskID(start time.Time) string {
	return fmt.Sprintf("%s:%d", Hook, start.Unix())
}

func (t *AsynqTrigger) Next(ctx context.Context) (*Registration, error) {
	raw, err := t.options.GetOption(ctx, settings.CronOptionName)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read schedule registration: %w", err)
	}
	var reg Registration
	if err := json.Unmarshal(raw, &reg); err != nil || reg.TaskID == "" {
		log.Warnf("Ignoring unreadable schedule registration %q", string(raw))
		return nil, nil
	}
	return &reg, nil
}

// Schedule enqueues the occurrence at start and records it. An occurrence
// that is already queued under the same id is kept.
func (t *AsynqTrigger) Schedule(ctx context.Context, start time.Time, frequency string) error {
	payload, err := json.Marshal(RunPayload{Frequency: frequency, ScheduledFor: start.Unix()})
	if err != nil {
		return fmt.Errorf("failed to marshal run payload: %w", err)
	}

	reg := Registration{
		TaskID:    TaskID(start),
		Queue:     tasks.QueueSchedule,
		NextRun:   start.UTC(),
		Frequency: frequency,
	}
	task := asynq.NewTask(tasks.TypeScheduledRun, payload)
	_, err = t.jobs.Enqueue(ctx, task,
		asynq.TaskID(reg.TaskID),
		asynq.Queue(reg.Queue),
		asynq.ProcessAt(start),
		asynq.MaxRetry(0),
	)
	if err != nil && !errors.Is(err, store.ErrDuplicate) {
		return fmt.Errorf("failed to schedule %s: %w", Hook, err)
	}

	raw, err := json.Marshal(reg)
	if err != nil {
		return fmt.Errorf("failed to marshal schedule registration: %w", err)
	}
	if err := t.options.SetOption(ctx, settings.CronOptionName, raw); err != nil {
		return fmt.Errorf("failed to record schedule registration: %w", err)
	}
	log.Infof("Scheduled %s (%s) for %s", Hook, frequency, start.Format(time.RFC3339))
	return nil
}

// Unschedule removes the armed occurrence, if any.
func (t *AsynqTrigger) Unschedule(ctx context.Context) error {
	reg, err := t.Next(ctx)
	if err != nil {
		return err
	}
	if reg == nil {
		return nil
	}
	if err := t.jobs.DeleteTask(ctx, reg.Queue, reg.TaskID); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("failed to remove scheduled task %s: %w", reg.TaskID, err)
	}
	if err := t.options.DeleteOption(ctx, settings.CronOptionName); err != nil {
		return fmt.Errorf("failed to clear schedule registration: %w", err)
	}
	log.Infof("Cleared scheduled %s", Hook)
	return nil
}
