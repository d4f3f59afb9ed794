package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"
)

const (
	// A handler that keeps failing gets this many attempts before the
	// message is skipped. Skipped changes are recovered by the subscriber's
	// next full refetch, so dropping here is safe but still logged loudly.
	maxHandleAttempts = 3
	retryDelay        = 1 * time.Second
)

// ChangeHandler receives order change events in per-order commit order.
type ChangeHandler interface {
	HandleOrderChange(change OrderChange) error
}

type KafkaConsumer struct {
	consumerGroup sarama.ConsumerGroup
	handler       ChangeHandler
	logger        *logrus.Logger
	topics        []string
}

type consumerGroupHandler struct {
	handler ChangeHandler
	logger  *logrus.Logger
}

func NewKafkaConsumer(brokers, groupID string, handler ChangeHandler, logger *logrus.Logger) (*KafkaConsumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.Strategy = sarama.BalanceStrategyRoundRobin
	config.Consumer.Offsets.Initial = sarama.OffsetOldest
	config.Version = sarama.V2_6_0_0

	consumerGroup, err := sarama.NewConsumerGroup(strings.Split(brokers, ","), groupID, config)
	if err != nil {
		return nil, err
	}

	return &KafkaConsumer{
		consumerGroup: consumerGroup,
		handler:       handler,
		logger:        logger,
		topics:        []string{OrdersChangedTopic},
	}, nil
}

func (c *KafkaConsumer) Start(ctx context.Context) error {
	handler := &consumerGroupHandler{
		handler: c.handler,
		logger:  c.logger,
	}

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Change consumer context cancelled")
			return nil
		default:
			if err := c.consumerGroup.Consume(ctx, c.topics, handler); err != nil {
				c.logger.WithError(err).Error("Error consuming order changes")
				return err
			}
		}
	}
}

func (c *KafkaConsumer) Close() error {
	return c.consumerGroup.Close()
}

func (h *consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	h.logger.Info("Change consumer session setup")
	return nil
}

func (h *consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	h.logger.Info("Change consumer session cleanup")
	return nil
}

func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message := <-claim.Messages():
			if message == nil {
				return nil
			}

			h.handleMessage(session.Context(), message)
			session.MarkMessage(message, "")

		case <-session.Context().Done():
			h.logger.Info("Change consumer session context cancelled")
			return nil
		}
	}
}

func (h *consumerGroupHandler) handleMessage(ctx context.Context, message *sarama.ConsumerMessage) {
	var change OrderChange
	if err := json.Unmarshal(message.Value, &change); err != nil {
		h.logger.WithError(err).WithField("offset", message.Offset).Error("Failed to unmarshal order change, skipping")
		return
	}

	var err error
	for attempt := 1; attempt <= maxHandleAttempts; attempt++ {
		if err = h.handler.HandleOrderChange(change); err == nil {
			return
		}

		h.logger.WithError(err).WithFields(logrus.Fields{
			"order_id": change.OrderID,
			"type":     change.Type,
			"attempt":  attempt,
		}).Warn("Change handler failed")

		if attempt < maxHandleAttempts {
			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				return
			}
		}
	}

	h.logger.WithError(err).WithFields(logrus.Fields{
		"order_id": change.OrderID,
		"type":     change.Type,
	}).Error("Change handler exhausted retries, skipping message")
}
