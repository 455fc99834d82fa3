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

	"github.com/ppiankov/claimcheck/internal/model"
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

func (s *RabbitMQIntegrationSuite) TestPublishResult() {
	cfg := model.PublisherConfig{
		Enabled:    true,
		URL:        s.amqpURL,
		Exchange:   "claimcheck-test",
		RoutingKey: "verified",
		QueueName:  "verified-test",
	}

	pub, err := NewRabbitMQ(cfg, s.logger)
	s.Require().NoError(err)
	defer func() { _ = pub.Close() }()

	result := &model.FactCheckResult{
		ClaimID: "abc",
		Claim:   "The moon is made of cheese",
		Verdict: model.VerdictLikelyFalse,
		Score:   97,
		Sources: []model.SourceRecord{{Title: "NASA", Link: "https://www.nasa.gov/moon", Snippet: "The Moon is rock."}},
	}
	s.Require().NoError(pub.Publish(s.ctx, result, "created"))

	msg := s.consumeMessage(cfg.QueueName)
	s.Require().NotNil(msg)
	s.Equal(uint8(amqp.Persistent), msg.DeliveryMode)

	var received ResultMessage
	s.Require().NoError(json.Unmarshal(msg.Body, &received))
	s.Equal("abc", received.ClaimID)
	s.Equal(model.VerdictLikelyFalse, received.Result.Verdict)
	s.Len(received.Result.Sources, 1)
}

func (s *RabbitMQIntegrationSuite) consumeMessage(queue string) *amqp.Delivery {
	conn, err := amqp.Dial(s.amqpURL)
	s.Require().NoError(err)
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	s.Require().NoError(err)
	defer func() { _ = ch.Close() }()

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
