package kafka

import (
	"time"

	"github.com/IBM/sarama"
)

// DefaultTopic топик событий жизненного цикла подписок
const DefaultTopic = "coachpro.subscription.lifecycle"

// Config конфигурация для Kafka
type Config struct {
	Brokers           []string
	Topic             string
	ClientID          string
	NumPartitions     int32
	ReplicationFactor int16
	Producer          ProducerConfig
}

// ProducerConfig конфигурация для продюсера
type ProducerConfig struct {
	MaxMessageBytes int
	Compression     sarama.CompressionCodec
	RequiredAcks    sarama.RequiredAcks
	RetryMax        int
	Timeout         time.Duration
}

// NewConfig создает новую конфигурацию Kafka
func NewConfig(brokers []string, topic string) *Config {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Config{
		Brokers:           brokers,
		Topic:             topic,
		ClientID:          "coachpro-subscriptions",
		NumPartitions:     3,
		ReplicationFactor: 1,
		Producer: ProducerConfig{
			MaxMessageBytes: 1000000,
			Compression:     sarama.CompressionSnappy,
			RequiredAcks:    sarama.WaitForAll,
			RetryMax:        3,
			Timeout:         5 * time.Second,
		},
	}
}

// NewSaramaConfig создает новую конфигурацию Sarama
func NewSaramaConfig(cfg *Config) *sarama.Config {
	saramaConfig := sarama.NewConfig()

	// Версия Kafka
	saramaConfig.Version = sarama.V3_3_0_0
	saramaConfig.ClientID = cfg.ClientID

	// Настройки продюсера
	saramaConfig.Producer.MaxMessageBytes = cfg.Producer.MaxMessageBytes
	saramaConfig.Producer.Compression = cfg.Producer.Compression
	saramaConfig.Producer.RequiredAcks = cfg.Producer.RequiredAcks
	saramaConfig.Producer.Retry.Max = cfg.Producer.RetryMax
	saramaConfig.Producer.Timeout = cfg.Producer.Timeout
	// ключ - ID подписки, события одной подписки попадают в одну партицию
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true

	return saramaConfig
}
