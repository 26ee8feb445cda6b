package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/EmilyMartinsDev/Coachpro-app-sub000/pkg/logger"
	"github.com/IBM/sarama"
	"github.com/cenkalti/backoff/v4"
)

// NewSyncProducer подключается к брокерам, повторяя попытки с экспоненциальной задержкой
func NewSyncProducer(ctx context.Context, cfg *Config, log *logger.Logger) (sarama.SyncProducer, error) {
	if len(cfg.Brokers) == 0 || cfg.Brokers[0] == "" {
		return nil, errors.New("kafka broker address is empty")
	}

	saramaConfig := NewSaramaConfig(cfg)

	var producer sarama.SyncProducer
	operation := func() error {
		p, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
		if err != nil {
			log.Warnw("Kafka not ready, retrying", "brokers", cfg.Brokers, "error", err)
			return err
		}
		producer = p
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxInterval = 5 * time.Second
	bo.MaxElapsedTime = 30 * time.Second

	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return nil, fmt.Errorf("kafka connection failed: %w", err)
	}

	log.Infow("Connected to Kafka", "brokers", cfg.Brokers)
	return producer, nil
}

// EnsureTopic проверяет и создает топик событий.
func EnsureTopic(cfg *Config, log *logger.Logger) error {
	admin, err := sarama.NewClusterAdmin(cfg.Brokers, NewSaramaConfig(cfg))
	if err != nil {
		log.Errorw("Failed to connect to Kafka broker for topic creation", "brokers", cfg.Brokers, "error", err)
		return fmt.Errorf("kafka admin connection failed: %w", err)
	}
	defer admin.Close()

	topics, err := admin.ListTopics()
	if err != nil {
		return fmt.Errorf("kafka list topics failed: %w", err)
	}
	if _, ok := topics[cfg.Topic]; ok {
		log.Debugw("Topic already exists", "topic", cfg.Topic)
		return nil
	}

	err = admin.CreateTopic(cfg.Topic, &sarama.TopicDetail{
		NumPartitions:     cfg.NumPartitions,
		ReplicationFactor: cfg.ReplicationFactor,
	}, false)
	if err != nil {
		if errors.Is(err, sarama.ErrTopicAlreadyExists) {
			log.Warnw("Topic already existed during creation attempt", "topic", cfg.Topic)
			return nil
		}
		log.Errorw("Failed to create topic", "error", err, "topic", cfg.Topic)
		return fmt.Errorf("kafka create topic failed: %w", err)
	}

	log.Infow("Created Kafka topic", "topic", cfg.Topic, "partitions", cfg.NumPartitions)
	return nil
}
