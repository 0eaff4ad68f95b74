package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	log "github.com/sirupsen/logrus"
)

var _ JobClient = (*AsynqJobClient)(nil)

// AsynqJobClient enqueues tasks through asynq and removes them through the
// asynq inspector.
type AsynqJobClient struct {
	client    *asynq.Client
	inspector *asynq.Inspector
}

func NewAsynqJobClient(opt asynq.RedisClientOpt) *AsynqJobClient {
	return &AsynqJobClient{
		client:    asynq.NewClient(opt),
		inspector: asynq.NewInspector(opt),
	}
}

func (jc *AsynqJobClient) Close() error {
	errClient := jc.client.Close()
	errInspector := jc.inspector.Close()
	return errors.Join(errClient, errInspector)
}

// Enqueue enqueues a task. A task id that is already taken is reported as
// ErrDuplicate.
func (jc *AsynqJobClient) Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if jc.client == nil {
		return nil, fmt.Errorf("AsynqJobClient internal client is not initialized")
	}
	info, err := jc.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
			return nil, fmt.Errorf("enqueue %s: %w", task.Type(), ErrDuplicate)
		}
		return nil, fmt.Errorf("enqueue %s: %w", task.Type(), err)
	}
	log.Debugf("Enqueued task type '%s' id=%s queue=%s process_at=%s", task.Type(), info.ID, info.Queue, info.NextProcessAt)
	return info, nil
}

// DeleteTask removes a pending or scheduled task. A task that no longer
// exists is reported as ErrNotFound.
func (jc *AsynqJobClient) DeleteTask(ctx context.Context, queue, taskID string) error {
	if err := jc.inspector.DeleteTask(queue, taskID); err != nil {
		if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete task %s from %s: %w", taskID, queue, err)
	}
	return nil
}
