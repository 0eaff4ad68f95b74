package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"autotag/internal/models"
	"autotag/internal/scheduler"
	"autotag/internal/tasks"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	calls  []string
	runErr error
}

func (f *fakeRunner) RunScheduledTasks(ctx context.Context) (scheduler.RunResult, error) {
	f.calls = append(f.calls, "run")
	return scheduler.RunResult{Status: models.RunStatusSuccess, Processed: 2}, f.runErr
}

func (f *fakeRunner) Rearm(ctx context.Context, firedTaskID string) error {
	f.calls = append(f.calls, "rearm")
	return errors.New("rearm failures are logged only")
}

func runTask(t *testing.T) *asynq.Task {
	t.Helper()
	payload, err := json.Marshal(scheduler.RunPayload{Frequency: "daily", ScheduledFor: 1718503200})
	require.NoError(t, err)
	return asynq.NewTask(tasks.TypeScheduledRun, payload)
}

func TestHandleScheduledRun(t *testing.T) {
	testCases := []struct {
		name    string
		runErr  error
		wantErr bool
	}{
		{name: "Success"},
		{name: "Overlapping run is not an error", runErr: models.ErrRunInProgress},
		{name: "Failure is not retried", runErr: errors.New("db down"), wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			runner := &fakeRunner{runErr: tc.runErr}
			err := HandleScheduledRun(runner)(context.Background(), runTask(t))

			assert.Equal(t, []string{"rearm", "run"}, runner.calls)
			if tc.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, asynq.SkipRetry)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestHandleScheduledRun_BadPayload(t *testing.T) {
	runner := &fakeRunner{}
	err := HandleScheduledRun(runner)(context.Background(), asynq.NewTask(tasks.TypeScheduledRun, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Empty(t, runner.calls)
}
