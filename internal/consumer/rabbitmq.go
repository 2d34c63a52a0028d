package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	amqp "github.com/rabbitmq/amqp091-go"

	"wechat_sync/internal/domain"
	"wechat_sync/internal/publisher"
)

// Handler runs one sync request to completion.
type Handler interface {
	Handle(ctx context.Context, req domain.SyncRequest) (domain.Outcome, error)
}

type Config struct {
	Topology    publisher.Config
	Consumer    string
	Concurrency int
}

// RabbitMQ consumes sync requests and hands them to a Handler. Retries are
// scheduled on the task by the handler, so every handled delivery is acked.
// Only messages that can never succeed are rejected.
type RabbitMQ struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	handler Handler
	config  Config
	logger  *slog.Logger

	running atomic.Bool
	wg      sync.WaitGroup
}

func NewRabbitMQ(cfg Config, handler Handler, logger *slog.Logger) (*RabbitMQ, error) {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}

	conn, err := amqp.Dial(cfg.Topology.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := publisher.Declare(ch, cfg.Topology); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	if err := ch.Qos(cfg.Concurrency, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}

	return &RabbitMQ{
		conn:    conn,
		channel: ch,
		handler: handler,
		config:  cfg,
		logger:  logger.With("component", "sync_consumer"),
	}, nil
}

// Start blocks until ctx is cancelled or the delivery channel closes. In
// flight requests are allowed to finish before it returns.
func (c *RabbitMQ) Start(ctx context.Context) error {
	deliveries, err := c.channel.Consume(
		c.config.Topology.SyncQueue,
		c.config.Consumer,
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	c.running.Store(true)
	c.logger.Info("consumer started",
		"queue", c.config.Topology.SyncQueue,
		"concurrency", c.config.Concurrency,
	)

	// Runs are bounded by their own deadline; shutdown only stops intake.
	handleCtx := context.WithoutCancel(ctx)

	for i := 0; i < c.config.Concurrency; i++ {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case d, ok := <-deliveries:
					if !ok {
						return
					}
					c.processDelivery(handleCtx, d)
				}
			}
		}()
	}

	<-ctx.Done()
	c.logger.Info("context cancelled, stopping consumer")
	if err := c.channel.Cancel(c.config.Consumer, false); err != nil {
		c.logger.Warn("failed to cancel consumer", "error", err)
	}
	c.running.Store(false)
	c.wg.Wait()
	return nil
}

func (c *RabbitMQ) processDelivery(ctx context.Context, d amqp.Delivery) {
	var req domain.SyncRequest
	if err := json.Unmarshal(d.Body, &req); err != nil {
		c.logger.Error("failed to decode sync request",
			"message_id", d.MessageId,
			"error", err,
		)
		c.reject(d)
		return
	}

	outcome, err := c.handler.Handle(ctx, req)
	if errors.Is(err, domain.ErrInvalidRequest) {
		c.reject(d)
		return
	}

	logger := c.logger.With("task_id", req.TaskID, "outcome", outcome.String())
	if err != nil {
		logger.Warn("sync request finished with error", "error", err)
	} else {
		logger.Info("sync request handled")
	}

	if err := d.Ack(false); err != nil {
		logger.Error("failed to ack delivery", "error", err)
	}
}

func (c *RabbitMQ) reject(d amqp.Delivery) {
	if err := d.Reject(false); err != nil {
		c.logger.Error("failed to reject delivery", "message_id", d.MessageId, "error", err)
	}
}

func (c *RabbitMQ) IsRunning() bool {
	return c.running.Load()
}

func (c *RabbitMQ) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
