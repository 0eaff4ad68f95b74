// Package worker holds the asynq task handlers.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"autotag/internal/models"
	"autotag/internal/scheduler"
	"autotag/internal/tasks"

	"github.com/hibiken/asynq"
	log "github.com/sirupsen/logrus"
)

// ScheduleRunner runs batches and arms the following occurrence.
type ScheduleRunner interface {
	RunScheduledTasks(ctx context.Context) (scheduler.RunResult, error)
	Rearm(ctx context.Context, firedTaskID string) error
}

// RegisterHandlers registers every task handler on mux.
func RegisterHandlers(mux *asynq.ServeMux, runner ScheduleRunner) {
	log.Infof("Registering %s handler", tasks.TypeScheduledRun)
	mux.HandleFunc(tasks.TypeScheduledRun, HandleScheduledRun(runner))
}

// HandleScheduledRun returns the handler for one firing of the recurring
// hook. The next occurrence is armed before the batch runs so a crash
// mid-batch does not stop the schedule. Runs are never retried; the next
// occurrence picks up what this one missed.
func HandleScheduledRun(runner ScheduleRunner) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var p scheduler.RunPayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return fmt.Errorf("failed to unmarshal scheduled run payload: %v: %w", err, asynq.SkipRetry)
		}
		taskID, _ := asynq.GetTaskID(ctx)
		log.Infof("Scheduled run fired (task=%s frequency=%s)", taskID, p.Frequency)

		if err := runner.Rearm(ctx, taskID); err != nil {
			log.Errorf("Failed to arm next scheduled run: %v", err)
		}

		res, err := runner.RunScheduledTasks(ctx)
		if err != nil {
			if errors.Is(err, models.ErrRunInProgress) {
				log.Info("Scheduled run skipped: another run is in progress")
				return nil
			}
			log.Errorf("Scheduled run failed: %v", err)
			return fmt.Errorf("scheduled run: %v: %w", err, asynq.SkipRetry)
		}
		log.Infof("Scheduled run finished with status %s, %d post(s) processed", res.Status, res.Processed)
		return nil
	}
}
