package testsupport

import (
	"context"

	"autotag/internal/store"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/mock"
)

// JobClient is a testify mock of store.JobClient.
type JobClient struct {
	mock.Mock
}

var _ store.JobClient = (*JobClient)(nil)

func (m *JobClient) Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(task, opts)
	info, _ := args.Get(0).(*asynq.TaskInfo)
	return info, args.Error(1)
}

func (m *JobClient) DeleteTask(ctx context.Context, queue, taskID string) error {
	args := m.Called(queue, taskID)
	return args.Error(0)
}

func (m *JobClient) Close() error {
	args := m.Called()
	return args.Error(0)
}
