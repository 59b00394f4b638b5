package scheduler

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"

	"github.com/alexcopeland13/relay-isa-automation-sub001/platform/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

const reprocessMaxRetry = 5

type Client struct {
	client *asynq.Client
	queue  string
}

// ReprocessEnqueuer schedules a conversation rebuild outside the request.
type ReprocessEnqueuer interface {
	EnqueueReprocess(ctx context.Context, callSID string, steps []string) error
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queueName(cfg),
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueReprocess queues a reprocess job. A job for the same call and steps
// that is still queued absorbs the request.
func (c *Client) EnqueueReprocess(ctx context.Context, callSID string, steps []string) error {
	if c == nil || c.client == nil {
		return nil
	}

	payload := ConversationReprocessPayload{CallSID: callSID, Steps: steps}
	task, err := NewConversationReprocessTask(payload)
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.MaxRetry(reprocessMaxRetry),
		asynq.TaskID(reprocessTaskID(payload)),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

func queueName(cfg config.SchedulerConfig) string {
	if queue := cfg.GetAsynqQueueName(); queue != "" {
		return queue
	}
	return "default"
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
