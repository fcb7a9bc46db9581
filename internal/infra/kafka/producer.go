package kafka

import (
	"fmt"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/arklim/account-service/internal/infra/config"
)

// Producer owns a Sarama AsyncProducer and drains its error channel.
type Producer struct {
	producer sarama.AsyncProducer
	logger   *zap.Logger
	prefix   string
	done     chan struct{}
}

// NewProducer connects an async producer to the configured brokers.
func NewProducer(cfg config.KafkaSettings, logger *zap.Logger) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: at least one broker is required")
	}

	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_5_0_0
	saramaConfig.ClientID = "account-service"

	saramaConfig.Producer.RequiredAcks = sarama.WaitForLocal
	saramaConfig.Producer.Compression = sarama.CompressionSnappy
	saramaConfig.Producer.Flush.Frequency = 100 * time.Millisecond
	saramaConfig.Producer.Flush.Messages = 100
	saramaConfig.Producer.Retry.Max = 3
	saramaConfig.Producer.Return.Successes = false
	saramaConfig.Producer.Return.Errors = true

	saramaConfig.Metadata.Retry.Max = 3
	saramaConfig.Metadata.Retry.Backoff = 250 * time.Millisecond

	producer, err := sarama.NewAsyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	p := newProducer(producer, cfg.TopicPrefix, logger)

	logger.Info("kafka producer initialized",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic_prefix", cfg.TopicPrefix),
	)

	return p, nil
}

func newProducer(producer sarama.AsyncProducer, prefix string, logger *zap.Logger) *Producer {
	p := &Producer{
		producer: producer,
		logger:   logger,
		prefix:   strings.Trim(strings.TrimSpace(prefix), "."),
		done:     make(chan struct{}),
	}
	go p.drainErrors()
	return p
}

// drainErrors logs delivery failures; events are fire-and-forget.
func (p *Producer) drainErrors() {
	for {
		select {
		case perr, ok := <-p.producer.Errors():
			if !ok {
				return
			}
			if perr == nil {
				continue
			}
			p.logger.Error("kafka delivery failed",
				zap.Error(perr.Err),
				zap.String("topic", perr.Msg.Topic),
			)
		case <-p.done:
			return
		}
	}
}

// Input exposes the producer's message channel.
func (p *Producer) Input() chan<- *sarama.ProducerMessage {
	return p.producer.Input()
}

// Close flushes pending messages and stops the error drain.
func (p *Producer) Close() error {
	p.logger.Info("closing kafka producer")
	close(p.done)

	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("close kafka producer: %w", err)
	}
	return nil
}

// TopicName prefixes eventType with the configured topic prefix.
func (p *Producer) TopicName(eventType string) string {
	if p.prefix == "" || strings.HasPrefix(eventType, p.prefix+".") {
		return eventType
	}
	return p.prefix + "." + eventType
}
