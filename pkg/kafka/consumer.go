// Package kafka provides Kafka producer and consumer clients backed by
// segmentio/kafka-go. The consumer surfaces micro-batches of raw record
// payloads and commits offsets only when told to; the producer serialises
// events as JSON for the feeder tool.
package kafka

import (
	"context"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Stream-Sentiment-Pipeline/pkg/config"
	"github.com/segmentio/kafka-go"
)

// BatchReader reads micro-batches from the record topic. A batch closes when
// it reaches maxBatch messages or when maxWait elapses after the first
// message arrives. Offsets move only on an explicit Commit, so a crash
// between fetch and commit re-delivers the batch (at-least-once).
type BatchReader struct {
	reader   *kafka.Reader
	logger   *slog.Logger
	maxBatch int
	maxWait  time.Duration
	pending  []kafka.Message
}

// NewBatchReader creates a BatchReader for the configured topic.
func NewBatchReader(cfg config.KafkaConfig, maxBatch int, maxWait time.Duration) *BatchReader {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    1e3,
		MaxBytes:    10e6,
		StartOffset: kafka.LastOffset,
	})

	return &BatchReader{
		reader:   r,
		logger:   slog.Default().With("component", "kafka-reader", "topic", cfg.Topic),
		maxBatch: maxBatch,
		maxWait:  maxWait,
	}
}

// Fetch blocks until at least one message arrives, then accumulates messages
// until the batch is full or the wait window closes. It returns the raw
// payload values and holds the fetched messages for the next Commit.
func (r *BatchReader) Fetch(ctx context.Context) ([][]byte, error) {
	first, err := r.reader.FetchMessage(ctx)
	if err != nil {
		return nil, err
	}
	msgs := []kafka.Message{first}

	window, cancel := context.WithTimeout(ctx, r.maxWait)
	defer cancel()
	for len(msgs) < r.maxBatch {
		msg, err := r.reader.FetchMessage(window)
		if err != nil {
			if ctx.Err() != nil {
				// Caller shutting down. The uncommitted messages in hand
				// re-deliver on the next start.
				return nil, ctx.Err()
			}
			// The window closing ends the batch with whatever is in hand.
			if window.Err() != nil {
				break
			}
			return nil, err
		}
		msgs = append(msgs, msg)
	}

	r.pending = msgs
	payloads := make([][]byte, len(msgs))
	for i, m := range msgs {
		payloads[i] = m.Value
	}
	r.logger.Debug("micro-batch fetched",
		"size", len(msgs),
		"partition", first.Partition,
		"first_offset", first.Offset,
	)
	return payloads, nil
}

// Commit marks the most recently fetched batch as consumed. Callers invoke
// it only after the batch's rows are durably written to the sink.
func (r *BatchReader) Commit(ctx context.Context) error {
	if len(r.pending) == 0 {
		return nil
	}
	if err := r.reader.CommitMessages(ctx, r.pending...); err != nil {
		return err
	}
	r.pending = nil
	return nil
}

// Close closes the underlying Kafka reader.
func (r *BatchReader) Close() error {
	return r.reader.Close()
}
