package report

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"
)

// KafkaSink publishes snapshots to a Kafka topic through an async producer.
// Publish never blocks the harvest loop: when the local queue is full the
// snapshot is dropped and an error returned, matching the at-most-once
// contract of the report pipeline.
type KafkaSink struct {
	log     *slog.Logger
	prod    sarama.AsyncProducer
	topic   string
	queue   chan Snapshot
	stopped chan struct{}
}

func NewKafkaSink(brokers []string, topic string, queueSize int, log *slog.Logger) (*KafkaSink, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Compression = sarama.CompressionSnappy
	cfg.Producer.Return.Errors = true
	cfg.Producer.Return.Successes = false

	prod, err := sarama.NewAsyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	if queueSize <= 0 {
		queueSize = 1024
	}
	s := &KafkaSink{
		log:     log,
		prod:    prod,
		topic:   topic,
		queue:   make(chan Snapshot, queueSize),
		stopped: make(chan struct{}),
	}
	go s.run()
	go s.drainErrors()
	return s, nil
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Publish(_ context.Context, snap Snapshot) error {
	select {
	case s.queue <- snap:
		return nil
	default:
		return fmt.Errorf("kafka queue full, dropped report for %q", snap.Cluster)
	}
}

func (s *KafkaSink) run() {
	defer close(s.stopped)
	for snap := range s.queue {
		payload, err := json.Marshal(snap)
		if err != nil {
			s.log.Error("marshal report", "cluster", snap.Cluster, "err", err)
			continue
		}
		s.prod.Input() <- &sarama.ProducerMessage{
			Topic: s.topic,
			Key:   sarama.StringEncoder(snap.Cluster),
			Value: sarama.ByteEncoder(payload),
		}
	}
}

func (s *KafkaSink) drainErrors() {
	for perr := range s.prod.Errors() {
		s.log.Error("kafka produce failed", "topic", s.topic, "err", perr.Err)
	}
}

// Close drains the queue, then shuts the producer down. Publish must not be
// called after Close.
func (s *KafkaSink) Close() error {
	close(s.queue)
	<-s.stopped
	return s.prod.Close()
}
