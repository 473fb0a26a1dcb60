package tasks

import (
	"github.com/hibiken/asynq"

	"textbridge/internal/platform/redis"
)

const (
	// TaskTypeSubmit runs stage A: discover, transform, export, submit.
	TaskTypeSubmit = "translate:submit"
	// TaskTypeComplete runs stage B: correlate, rebuild, write, notify.
	TaskTypeComplete = "translate:complete"
)

type Client struct{ c *asynq.Client }

func New(r *redis.Service) *Client { return &Client{c: asynq.NewClient(r.AsynqRedisOpt())} }

func (t *Client) Enqueue(task *asynq.Task, queue string, maxRetries int) error {
	_, err := t.c.Enqueue(task, asynq.Queue(queue), asynq.MaxRetry(maxRetries))
	return err
}
