//go:build integration

package publisher

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/testcontainers/testcontainers-go/wait"

	"wechat_sync/internal/domain"
)

type RabbitMQIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *rabbitmq.RabbitMQContainer
	amqpURL   string
	logger    *slog.Logger
}

func (s *RabbitMQIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	container, err := rabbitmq.Run(s.ctx,
		"rabbitmq:3.13-management-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Server startup complete").
				WithStartupTimeout(60*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	amqpURL, err := container.AmqpURL(s.ctx)
	s.Require().NoError(err)
	s.amqpURL = amqpURL
}

func (s *RabbitMQIntegrationSuite) TearDownSuite() {
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func TestRabbitMQIntegrationSuite(t *testing.T) {
	suite.Run(t, new(RabbitMQIntegrationSuite))
}

func (s *RabbitMQIntegrationSuite) config(name string) Config {
	return Config{
		URL:             s.amqpURL,
		Exchange:        "test-exchange-" + name,
		SyncQueue:       "test-sync-" + name,
		SyncRoutingKey:  "sync-" + name,
		MediaQueue:      "test-media-" + name,
		MediaRoutingKey: "media-" + name,
	}
}

func (s *RabbitMQIntegrationSuite) TestPublisher_Connection() {
	pub, err := NewRabbitMQ(s.config("conn"), s.logger)
	s.NoError(err)
	s.NotNil(pub)

	s.NoError(pub.Close())
}

func (s *RabbitMQIntegrationSuite) TestPublisher_Dispatch() {
	cfg := s.config("media")
	pub, err := NewRabbitMQ(cfg, s.logger)
	s.Require().NoError(err)
	defer pub.Close()

	urls := []string{"https://mmbiz.qpic.cn/a.jpg", "https://mmbiz.qpic.cn/b.jpg"}
	s.NoError(pub.Dispatch(s.ctx, "t1", urls))

	msg := s.consumeMessage(cfg.MediaQueue)
	s.Require().NotNil(msg)
	s.Equal("application/json", msg.ContentType)
	s.Equal(uint8(amqp.Persistent), msg.DeliveryMode)

	var job domain.MediaDownloadJob
	s.NoError(json.Unmarshal(msg.Body, &job))
	s.Equal("t1", job.TaskID)
	s.Equal(urls, job.URLs)
	s.Equal(job.JobID, msg.MessageId)
	s.False(job.RequestedAt.IsZero())
}

func (s *RabbitMQIntegrationSuite) TestPublisher_PublishSyncRequest() {
	cfg := s.config("sync")
	pub, err := NewRabbitMQ(cfg, s.logger)
	s.Require().NoError(err)
	defer pub.Close()

	req := domain.SyncRequest{
		TaskID:       "t2",
		AccountID:    "a1",
		SyncType:     "articles",
		SyncScope:    "recent",
		ArticleLimit: 25,
		BatchSize:    10,
		ProcessMedia: true,
	}
	s.NoError(pub.PublishSyncRequest(s.ctx, req))

	msg := s.consumeMessage(cfg.SyncQueue)
	s.Require().NotNil(msg)
	s.Equal("t2", msg.MessageId)

	var received domain.SyncRequest
	s.NoError(json.Unmarshal(msg.Body, &received))
	s.Equal(req, received)
}

func (s *RabbitMQIntegrationSuite) consumeMessage(queue string) *amqp.Delivery {
	conn, err := amqp.Dial(s.amqpURL)
	s.Require().NoError(err)
	defer conn.Close()

	ch, err := conn.Channel()
	s.Require().NoError(err)
	defer ch.Close()

	msgs, err := ch.Consume(queue, "", true, false, false, false, nil)
	s.Require().NoError(err)

	select {
	case msg := <-msgs:
		return &msg
	case <-time.After(5 * time.Second):
		s.Fail("Timeout waiting for message")
		return nil
	}
}
