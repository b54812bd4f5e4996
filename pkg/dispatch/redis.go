package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/apertura/sessionflow/pkg/models"
	redis "github.com/redis/go-redis/v9"
)

// DefaultQueue is the redis list the content-generation workers BLPOP from.
const DefaultQueue = "sessionflow:automation:queue"

// RedisDispatcher pushes task payloads onto a redis list for queue-based
// consumers.
type RedisDispatcher struct {
	client redis.UniversalClient
	queue  string
}

// NewRedisDispatcher creates a dispatcher over a redis list. An empty queue
// name selects DefaultQueue.
func NewRedisDispatcher(redisURL, queue string) (*RedisDispatcher, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	if queue == "" {
		queue = DefaultQueue
	}

	return &RedisDispatcher{
		client: redis.NewClient(opts),
		queue:  queue,
	}, nil
}

// queuedTask is the wire shape pushed onto the list.
type queuedTask struct {
	TaskID           string      `json:"task_id"`
	SessionID        string      `json:"session_id"`
	TaskName         string      `json:"task_name"`
	DueDate          models.Date `json:"due_date"`
	ApprovalRequired bool        `json:"approval_required"`
	Batched          bool        `json:"batched"`
}

func (d *RedisDispatcher) Dispatch(ctx context.Context, task *models.TaskInstance, batched bool) error {
	payload, err := json.Marshal(queuedTask{
		TaskID:           task.ID,
		SessionID:        task.SessionID,
		TaskName:         task.TaskName,
		DueDate:          task.AdjustedDate,
		ApprovalRequired: task.ApprovalRequired,
		Batched:          batched,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal queued task: %w", err)
	}

	err = d.client.LPush(ctx, d.queue, payload).Err()
	if err != nil {
		return fmt.Errorf("failed to push task %s to queue %s: %w", task.ID, d.queue, err)
	}

	return nil
}

func (d *RedisDispatcher) Close() error {
	return d.client.Close()
}
