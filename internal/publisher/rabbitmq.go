package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"wechat_sync/internal/domain"
)

type RabbitMQ struct {
	conn            *amqp.Connection
	channel         *amqp.Channel
	exchange        string
	syncRoutingKey  string
	mediaRoutingKey string
	logger          *slog.Logger
}

type Config struct {
	URL             string
	Exchange        string
	SyncQueue       string
	SyncRoutingKey  string
	MediaQueue      string
	MediaRoutingKey string
}

// NewRabbitMQ connects and declares the exchange with its sync request and
// media download queues.
func NewRabbitMQ(cfg Config, logger *slog.Logger) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := Declare(ch, cfg); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	logger.Info("connected to rabbitmq",
		"exchange", cfg.Exchange,
		"sync_queue", cfg.SyncQueue,
		"media_queue", cfg.MediaQueue,
	)

	return &RabbitMQ{
		conn:            conn,
		channel:         ch,
		exchange:        cfg.Exchange,
		syncRoutingKey:  cfg.SyncRoutingKey,
		mediaRoutingKey: cfg.MediaRoutingKey,
		logger:          logger,
	}, nil
}

// Declare sets up the durable topology shared by publishers and consumers.
func Declare(ch *amqp.Channel, cfg Config) error {
	err := ch.ExchangeDeclare(
		cfg.Exchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	bindings := []struct {
		queue, key string
	}{
		{cfg.SyncQueue, cfg.SyncRoutingKey},
		{cfg.MediaQueue, cfg.MediaRoutingKey},
	}
	for _, b := range bindings {
		q, err := ch.QueueDeclare(
			b.queue,
			true,
			false,
			false,
			false,
			nil,
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", b.queue, err)
		}

		if err := ch.QueueBind(q.Name, b.key, cfg.Exchange, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", b.queue, err)
		}
	}
	return nil
}

// Dispatch publishes one media download job carrying every url.
func (r *RabbitMQ) Dispatch(ctx context.Context, taskID string, urls []string) error {
	job := domain.MediaDownloadJob{
		JobID:       uuid.NewString(),
		TaskID:      taskID,
		URLs:        urls,
		RequestedAt: time.Now().UTC(),
	}

	if err := r.publish(ctx, r.mediaRoutingKey, job.JobID, job); err != nil {
		return err
	}

	r.logger.Debug("published media job",
		"job_id", job.JobID,
		"task_id", taskID,
		"urls", len(urls),
	)
	return nil
}

// PublishSyncRequest enqueues req for the sync workers.
func (r *RabbitMQ) PublishSyncRequest(ctx context.Context, req domain.SyncRequest) error {
	if err := r.publish(ctx, r.syncRoutingKey, req.TaskID, req); err != nil {
		return err
	}

	r.logger.Debug("published sync request",
		"task_id", req.TaskID,
		"account_id", req.AccountID,
	)
	return nil
}

func (r *RabbitMQ) publish(ctx context.Context, routingKey, messageID string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	err = r.channel.PublishWithContext(
		ctx,
		r.exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    messageID,
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
