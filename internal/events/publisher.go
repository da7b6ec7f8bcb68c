// Package events publishes question and answer events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"interview-assistant/internal/models"
	"interview-assistant/internal/observability/metrics"
	"interview-assistant/internal/schema"
)

// Publisher writes questions and answers to separate Kafka topics. With
// Kafka disabled it only logs.
type Publisher struct {
	writerQuestions *kafka.Writer
	writerAnswers   *kafka.Writer
	principal       string
	topicQuestions  string
	topicAnswers    string
	enabled         bool
	validator       *schema.Validator
	metrics         *metrics.Metrics
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers        []string
	TopicQuestions string
	TopicAnswers   string
	Principal      string
	Enabled        bool
}

// New creates a publisher. A nil config, Enabled=false or an empty broker
// list selects log-only mode.
func New(cfg *Config) *Publisher {
	p := &Publisher{
		validator: schema.New(),
		metrics:   metrics.DefaultMetrics,
	}
	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return p
	}

	p.principal = cfg.Principal
	p.topicQuestions = cfg.TopicQuestions
	p.topicAnswers = cfg.TopicAnswers

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return p
	}

	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	p.writerQuestions = newWriter(cfg.Brokers, cfg.TopicQuestions, transport)
	p.writerAnswers = newWriter(cfg.Brokers, cfg.TopicAnswers, transport)
	p.enabled = true

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicQuestions", cfg.TopicQuestions).
		Str("topicAnswers", cfg.TopicAnswers).
		Str("principal", cfg.Principal).
		Msg("Kafka publisher initialized")

	return p
}

func newWriter(brokers []string, topic string, transport *kafka.Transport) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}
}

// Principal is stamped on every event header.
func (p *Publisher) Principal() string { return p.principal }

// PublishQuestion publishes a question event keyed by session, so one
// session's events stay on one partition.
func (p *Publisher) PublishQuestion(ctx context.Context, event models.QuestionEvent) error {
	return p.publish(ctx, p.writerQuestions, p.topicQuestions, "question", event.SessionID, event)
}

// PublishAnswer publishes an answer event keyed by session.
func (p *Publisher) PublishAnswer(ctx context.Context, event models.AnswerEvent) error {
	return p.publish(ctx, p.writerAnswers, p.topicAnswers, "answer", event.SessionID, event)
}

func (p *Publisher) publish(ctx context.Context, writer *kafka.Writer, topic, eventType, key string, event any) error {
	start := time.Now()

	if err := p.validator.Validate(event); err != nil {
		p.metrics.RecordKafkaPublish(topic, eventType, err, time.Since(start).Seconds())
		return fmt.Errorf("validate %s event: %w", eventType, err)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return err
	}

	log.Debug().
		Str("principal", p.principal).
		Str("topic", topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("Publishing event")

	if !p.enabled || writer == nil {
		p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(eventType)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Str("key", key).
			Msg("Failed to write to Kafka")
		p.metrics.RecordKafkaPublish(topic, eventType, err, time.Since(start).Seconds())
		return err
	}

	p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
	return nil
}

// Close closes both Kafka writers.
func (p *Publisher) Close() error {
	var err error
	if p.writerQuestions != nil {
		if e := p.writerQuestions.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing questions writer")
			err = e
		}
	}
	if p.writerAnswers != nil {
		if e := p.writerAnswers.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing answers writer")
			err = e
		}
	}
	return err
}
