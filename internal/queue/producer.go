package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"ingestion-portal/internal/config"
	"ingestion-portal/internal/model"

	"github.com/go-redis/redis/v8"
)

type Producer struct {
	client *redis.Client
	cfg    *config.Config
}

func NewProducer(redisClient *RedisClient, cfg *config.Config) *Producer {
	return &Producer{
		client: redisClient.Client(),
		cfg:    cfg,
	}
}

// EnqueueDQJob hands an upload to the out-of-process data-quality checker.
func (p *Producer) EnqueueDQJob(ctx context.Context, job model.DQJob) error {
	return p.push(ctx, p.cfg.Redis.DQQueue, job)
}

func (p *Producer) EnqueueNotification(ctx context.Context, job model.NotificationJob) error {
	return p.push(ctx, p.cfg.Redis.NotificationQueue, job)
}

func (p *Producer) push(ctx context.Context, queueName string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	if err := p.client.LPush(ctx, queueName, data).Err(); err != nil {
		return fmt.Errorf("push to %s: %w", queueName, err)
	}
	return nil
}
