package scheduler

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"

	"callcenter_backend/internal/events"
	"callcenter_backend/platform/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// Enqueuer is the part of *asynq.Client the scheduler uses.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type Client struct {
	client Enqueuer
	closer func() error
	queue  string
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

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	client := asynq.NewClient(opt)
	return &Client{client: client, closer: client.Close, queue: queue}, nil
}

func (c *Client) Close() error {
	if c == nil || c.closer == nil {
		return nil
	}
	return c.closer()
}

// EnqueueStockLowAlert queues one alert per product per hour.
func (c *Client) EnqueueStockLowAlert(ctx context.Context, payload StockLowAlertPayload) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewStockLowAlertTask(payload)
	if err != nil {
		return err
	}

	taskID := fmt.Sprintf("stock-low:%s:%s", payload.ProductID, payload.OccurredAt.UTC().Format("2006010215"))
	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue), asynq.TaskID(taskID), asynq.MaxRetry(5))
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

// SubscribeStockAlerts forwards StockLow events to the alert queue.
func SubscribeStockAlerts(bus events.Bus, client *Client) {
	bus.Subscribe(events.StockLow{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.StockLow)
		if !ok {
			return nil
		}
		return client.EnqueueStockLowAlert(ctx, StockLowAlertPayload{
			ProductID:   e.ProductID.String(),
			ProductName: e.ProductName,
			Stock:       e.Stock,
			Threshold:   e.Threshold,
			OccurredAt:  e.OccurredAt(),
		})
	}))
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
