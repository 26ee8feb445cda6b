package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/EmilyMartinsDev/Coachpro-app-sub000/internal/domain"
	"github.com/EmilyMartinsDev/Coachpro-app-sub000/pkg/logger"
	"github.com/IBM/sarama"
)

// LifecycleProducer публикует события жизненного цикла подписок в Kafka
type LifecycleProducer struct {
	producer sarama.SyncProducer
	topic    string
	log      *logger.Logger
}

// NewLifecycleProducer создает новый продюсер событий
func NewLifecycleProducer(producer sarama.SyncProducer, topic string, log *logger.Logger) *LifecycleProducer {
	return &LifecycleProducer{
		producer: producer,
		topic:    topic,
		log:      log,
	}
}

// Publish публикует событие; ключ сообщения - ID подписки
func (p *LifecycleProducer) Publish(ctx context.Context, event domain.LifecycleEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	messageValue, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal lifecycle event: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.SubscriptionID.String()),
		Value: sarama.ByteEncoder(messageValue),
		Headers: []sarama.RecordHeader{
			{
				Key:   []byte("event_type"),
				Value: []byte(event.Type),
			},
		},
		Timestamp: event.OccurredAt,
	}

	partition, offset, err := p.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("failed to publish lifecycle event: %w", err)
	}

	p.log.Debug("Published %s event to topic %s: partition=%d offset=%d",
		event.Type, p.topic, partition, offset)

	return nil
}

// Close закрывает продюсер
func (p *LifecycleProducer) Close() error {
	return p.producer.Close()
}
