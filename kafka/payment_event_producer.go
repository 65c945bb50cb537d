package kafka

import (
	"context"
	"encoding/json"

	"chamapay/models"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type PaymentEventProducer struct {
	writer *kafka.Writer
	topic  string
	logger *zap.Logger
}

func NewPaymentEventProducer(brokers []string, topic string, logger *zap.Logger) *PaymentEventProducer {
	w := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
	logger.Info("Payment event producer initialized",
		zap.String("topic", topic),
		zap.Strings("brokers", brokers),
	)
	return &PaymentEventProducer{writer: w, topic: topic, logger: logger}
}

func (p *PaymentEventProducer) SendPaymentEvent(event models.PaymentEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(event.IntentID),
		Value: data,
	}

	if err := p.writer.WriteMessages(context.Background(), msg); err != nil {
		p.logger.Error("Failed to send payment event", zap.Error(err))
		return err
	}

	p.logger.Info("Sent payment event",
		zap.String("type", event.Type),
		zap.String("intent_id", event.IntentID),
	)
	return nil
}

func (p *PaymentEventProducer) Close() {
	_ = p.writer.Close()
	p.logger.Info("Kafka producer closed")
}
