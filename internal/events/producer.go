package events

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"
)

// Publisher is what the order store needs from this package: a way to hand a
// committed change to subscribers.
type Publisher interface {
	PublishChange(change OrderChange) error
}

type KafkaProducer struct {
	producer sarama.SyncProducer
	logger   *logrus.Logger
}

func NewKafkaProducer(brokers string, logger *logrus.Logger) (*KafkaProducer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Version = sarama.V2_6_0_0

	producer, err := sarama.NewSyncProducer(strings.Split(brokers, ","), config)
	if err != nil {
		return nil, err
	}

	return &KafkaProducer{
		producer: producer,
		logger:   logger,
	}, nil
}

// PublishChange sends the change keyed by order id so every event for one
// order lands on the same partition in commit order.
func (p *KafkaProducer) PublishChange(change OrderChange) error {
	change.EventTime = time.Now()

	data, err := json.Marshal(change)
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: OrdersChangedTopic,
		Key:   sarama.StringEncoder(change.OrderID),
		Value: sarama.ByteEncoder(data),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.logger.WithError(err).Error("Failed to publish order change")
		return err
	}

	p.logger.WithFields(logrus.Fields{
		"topic":     OrdersChangedTopic,
		"partition": partition,
		"offset":    offset,
		"order_id":  change.OrderID,
		"type":      change.Type,
	}).Info("Order change published")

	return nil
}

func (p *KafkaProducer) Close() error {
	return p.producer.Close()
}
