package kafka

import (
	"OurSpace/internal/api/config"
	"OurSpace/internal/repository"
	"context"
	"errors"
	log "log/slog"

	"github.com/IBM/sarama"
)

// ConsumerManager 管理目录缓存失效消费者组
type ConsumerManager struct {
	directoryConsumer sarama.ConsumerGroup
	directoryHandler  sarama.ConsumerGroupHandler
	topics            []string
}

// NewConsumerManager 构造函数
func NewConsumerManager(
	cfg *config.Config,
	userRepo repository.UserRepo,
	listingRepo repository.ListingRepo,
) (*ConsumerManager, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, errors.New("kafka brokers not configured")
	}
	saramaCfg := newSaramaConfig(cfg.Kafka)

	directoryConsumer, err := sarama.NewConsumerGroup(cfg.Kafka.Brokers, cfg.KafkaDirectory.GroupID, saramaCfg)
	if err != nil {
		return nil, err
	}

	return &ConsumerManager{
		directoryConsumer: directoryConsumer,
		directoryHandler:  NewDirectoryHandler(userRepo, listingRepo),
		topics:            cfg.KafkaDirectory.Topics,
	}, nil
}

// Start 阻塞消费直到 ctx 结束，随后关闭消费者组
func (m *ConsumerManager) Start(ctx context.Context) error {
	go func() {
		for err := range m.directoryConsumer.Errors() {
			log.Error("Directory consumer error", "err", err)
		}
	}()

	go func() {
		log.Info("Directory consumer started", "topics", m.topics)
		for {
			if err := m.directoryConsumer.Consume(ctx, m.topics, m.directoryHandler); err != nil {
				if errors.Is(err, sarama.ErrClosedConsumerGroup) {
					return
				}
				log.Error("Error from consumer", "err", err)
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	<-ctx.Done()
	log.Info("Kafka Manager shutting down...")

	if err := m.directoryConsumer.Close(); err != nil {
		log.Error("Failed to close directory consumer", "err", err)
		return err
	}
	return nil
}
