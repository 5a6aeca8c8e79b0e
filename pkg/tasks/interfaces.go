package tasks

import "github.com/hibiken/asynq"

// TaskEnqueuer is the slice of asynq.Client the upload handler needs to
// schedule lecture processing. Tests substitute a recording mock so no Redis
// is required.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}
