// Package events публикует уведомления о пополнении в брокер сообщений.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"stockbill/internal/config"
	"stockbill/internal/domain"
)

const RefillRequired = "RefillRequired"

// RefillEvent конверт события о необходимости пополнения запаса.
type RefillEvent struct {
	EventID   string         `json:"event_id"`
	EventType string         `json:"event_type"`
	Product   domain.Product `json:"product"`
	Timestamp time.Time      `json:"timestamp"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher пишет по одному сообщению на товар, ключ сообщения равен id товара.
type KafkaPublisher struct {
	writer messageWriter
	log    *zap.Logger
	now    func() time.Time
}

func NewKafkaPublisher(cfg config.KafkaConfig, log *zap.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.LeastBytes{},
		BatchTimeout:           10 * time.Millisecond,
		WriteTimeout:           5 * time.Second,
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: w, log: log, now: time.Now}
}

func (p *KafkaPublisher) PublishRefillAlerts(ctx context.Context, products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(products))
	for _, prod := range products {
		value, err := encodeRefillEvent(prod, p.now())
		if err != nil {
			return err
		}
		msgs = append(msgs, kafka.Message{Key: []byte(prod.ID), Value: value})
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish refill alerts: %w", err)
	}
	p.log.Debug("refill alerts published", zap.Int("count", len(msgs)))
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func encodeRefillEvent(p domain.Product, at time.Time) ([]byte, error) {
	b, err := json.Marshal(RefillEvent{
		EventID:   uuid.NewString(),
		EventType: RefillRequired,
		Product:   p,
		Timestamp: at.UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("encode refill event %s: %w", p.ID, err)
	}
	return b, nil
}

// NopPublisher используется, когда брокер не настроен.
type NopPublisher struct{}

func (NopPublisher) PublishRefillAlerts(context.Context, []domain.Product) error { return nil }
func (NopPublisher) Close() error                                               { return nil }
