package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/EmilyMartinsDev/Coachpro-app-sub000/internal/domain"
	"github.com/EmilyMartinsDev/Coachpro-app-sub000/pkg/logger"
	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/google/uuid"
)

func testEvent() domain.LifecycleEvent {
	sub := &domain.Subscription{
		ID:                      uuid.New(),
		StudentID:               uuid.New(),
		Status:                  domain.StatusPendenteAprovacao,
		CurrentInstallmentIndex: 1,
	}
	return domain.NewLifecycleEvent(domain.EventProofSubmitted, sub, domain.StatusPendente, time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC))
}

func TestLifecycleProducerPublish(t *testing.T) {
	cfg := NewConfig([]string{"localhost:9092"}, "")
	sp := mocks.NewSyncProducer(t, NewSaramaConfig(cfg))
	event := testEvent()

	sp.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != DefaultTopic {
			return fmt.Errorf("topic = %s, want %s", msg.Topic, DefaultTopic)
		}
		key, err := msg.Key.Encode()
		if err != nil {
			return err
		}
		if string(key) != event.SubscriptionID.String() {
			return fmt.Errorf("key = %s, want subscription id", key)
		}
		value, err := msg.Value.Encode()
		if err != nil {
			return err
		}
		var decoded domain.LifecycleEvent
		if err := json.Unmarshal(value, &decoded); err != nil {
			return err
		}
		if decoded.Type != domain.EventProofSubmitted || decoded.PreviousStatus != domain.StatusPendente {
			return fmt.Errorf("unexpected payload: %+v", decoded)
		}
		return nil
	})

	producer := NewLifecycleProducer(sp, cfg.Topic, logger.NewNop())
	if err := producer.Publish(context.Background(), event); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := producer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestLifecycleProducerPublishFailure(t *testing.T) {
	cfg := NewConfig([]string{"localhost:9092"}, "events")
	sp := mocks.NewSyncProducer(t, NewSaramaConfig(cfg))
	sp.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	producer := NewLifecycleProducer(sp, cfg.Topic, logger.NewNop())
	err := producer.Publish(context.Background(), testEvent())
	if !errors.Is(err, sarama.ErrOutOfBrokers) {
		t.Fatalf("Publish error = %v, want ErrOutOfBrokers", err)
	}
	_ = producer.Close()
}

func TestLifecycleProducerCancelledContext(t *testing.T) {
	cfg := NewConfig([]string{"localhost:9092"}, "events")
	sp := mocks.NewSyncProducer(t, NewSaramaConfig(cfg))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	producer := NewLifecycleProducer(sp, cfg.Topic, logger.NewNop())
	if err := producer.Publish(ctx, testEvent()); !errors.Is(err, context.Canceled) {
		t.Fatalf("Publish error = %v, want context.Canceled", err)
	}
	_ = producer.Close()
}
