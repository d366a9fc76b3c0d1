package tasks

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TypeExpireHolds = "holds:expire"

// ExpireHoldsPayload is the body of a sweep task. A zero Before means "now" on the worker.
type ExpireHoldsPayload struct {
	Before time.Time `json:"before,omitempty"`
}

// NewExpireHoldsTask builds a sweep task. Unique keeps overlapping schedules from
// queueing a second sweep while one is still waiting.
func NewExpireHoldsTask(interval time.Duration) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(ExpireHoldsPayload{})
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeExpireHolds, b)
	opts := []asynq.Option{
		asynq.MaxRetry(0),
		asynq.Timeout(interval),
	}
	if interval > time.Second {
		opts = append(opts, asynq.Unique(interval-time.Second))
	}
	return task, opts, nil
}

// ParseExpireHoldsPayload decodes a sweep task body. An empty body is accepted.
func ParseExpireHoldsPayload(data []byte) (ExpireHoldsPayload, error) {
	var p ExpireHoldsPayload
	if len(data) == 0 {
		return p, nil
	}
	err := json.Unmarshal(data, &p)
	return p, err
}
