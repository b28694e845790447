// Package pipeline wires ingestion, schema reconciliation, text cleaning,
// tokenisation, scoring, and the relational sink into one continuously
// running micro-batch job.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Stream-Sentiment-Pipeline/internal/record"
	"github.com/Adithya-Monish-Kumar-K/Stream-Sentiment-Pipeline/internal/schema"
	"github.com/Adithya-Monish-Kumar-K/Stream-Sentiment-Pipeline/internal/sentiment"
	"github.com/Adithya-Monish-Kumar-K/Stream-Sentiment-Pipeline/internal/textclean"
	"github.com/Adithya-Monish-Kumar-K/Stream-Sentiment-Pipeline/internal/tokenize"
	"github.com/Adithya-Monish-Kumar-K/Stream-Sentiment-Pipeline/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Stream-Sentiment-Pipeline/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Stream-Sentiment-Pipeline/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Stream-Sentiment-Pipeline/pkg/tracing"
)

// State is the pipeline lifecycle. Transitions only move forward:
// STARTING to STREAMING, then STOPPED on a clean shutdown or FAILED on the
// first stage error.
type State int32

const (
	StateStarting State = iota
	StateStreaming
	StateStopped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "STARTING"
	case StateStreaming:
		return "STREAMING"
	case StateStopped:
		return "STOPPED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// BatchSource delivers raw payload micro-batches and commits consumed
// offsets only when told to.
type BatchSource interface {
	Fetch(ctx context.Context) ([][]byte, error)
	Commit(ctx context.Context) error
}

// TokenSink durably writes a batch's classified tokens.
type TokenSink interface {
	WriteBatch(ctx context.Context, tokens []sentiment.ClassifiedToken) error
}

// Orchestrator runs the micro-batch loop. One batch is in flight at a time;
// offsets commit only after the batch's rows are durably written, so a crash
// between write and commit re-delivers (and re-inserts) the batch.
type Orchestrator struct {
	cfg      config.PipelineConfig
	source   BatchSource
	scorer   sentiment.Scorer
	sink     TokenSink
	expected schema.Schema
	metrics  *metrics.Metrics
	logger   *slog.Logger
	runID    string
	traced   bool
	state    atomic.Int32
	batchSeq uint64
}

// New wires the orchestrator. m may be nil.
func New(cfg config.PipelineConfig, source BatchSource, scorer sentiment.Scorer, sink TokenSink, m *metrics.Metrics) *Orchestrator {
	runID := uuid.NewString()
	return &Orchestrator{
		cfg:      cfg,
		source:   source,
		scorer:   scorer,
		sink:     sink,
		expected: schema.Expected(),
		metrics:  m,
		logger:   slog.Default().With("component", "pipeline", "run_id", runID),
		runID:    runID,
	}
}

// EnableTracing turns on per-batch span logging.
func (o *Orchestrator) EnableTracing() {
	o.traced = true
}

func (o *Orchestrator) RunID() string {
	return o.runID
}

func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

func (o *Orchestrator) setState(s State) {
	o.state.Store(int32(s))
	if o.metrics != nil {
		o.metrics.PipelineState.Set(float64(s))
	}
	o.logger.Info("state transition", "state", s.String())
}

// Run drives the stream until the context is cancelled (clean stop, nil
// return) or a stage fails (typed fatal error). There are no retries: the
// first error ends the run.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.setState(StateStarting)
	o.logger.Info("pipeline starting",
		"schema", o.expected.FieldNames(),
		"batch_size", o.cfg.BatchSize,
		"batch_wait", o.cfg.BatchWait,
		"workers", o.cfg.Workers,
	)

	o.setState(StateStreaming)
	for {
		if ctx.Err() != nil {
			o.setState(StateStopped)
			o.logger.Info("pipeline stopped", "reason", ctx.Err())
			return nil
		}

		payloads, err := o.source.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				o.setState(StateStopped)
				o.logger.Info("pipeline stopped", "reason", err)
				return nil
			}
			o.setState(StateFailed)
			return apperrors.Newf(apperrors.ErrConnection, "ingest",
				"fetching micro-batch: %v", err)
		}
		if len(payloads) == 0 {
			continue
		}

		if err := o.processBatch(ctx, payloads); err != nil {
			// A stage aborted by shutdown is not a failure: the batch's
			// offsets are uncommitted and it re-delivers on the next start.
			if ctx.Err() != nil {
				o.setState(StateStopped)
				o.logger.Info("pipeline stopped mid-batch", "reason", ctx.Err())
				return nil
			}
			if o.metrics != nil {
				o.metrics.BatchesTotal.WithLabelValues("failed").Inc()
			}
			o.setState(StateFailed)
			return err
		}
		if o.metrics != nil {
			o.metrics.BatchesTotal.WithLabelValues("ok").Inc()
		}
	}
}

// processBatch runs one micro-batch through every stage in order. The sink
// write precedes the offset commit; reversing them would drop data on a
// crash.
func (o *Orchestrator) processBatch(ctx context.Context, payloads [][]byte) error {
	o.batchSeq++
	start := time.Now()

	if o.cfg.BatchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.BatchTimeout)
		defer cancel()
	}

	ctx, span := tracing.StartSpan(ctx, "micro-batch", fmt.Sprintf("%s-%d", o.runID, o.batchSeq))
	defer func() {
		span.End()
		if o.traced {
			span.Log()
		}
	}()

	var (
		batch   record.Batch
		records []record.RawRecord
		tokens  []sentiment.ClassifiedToken
	)

	if err := o.stage(ctx, "decode", func() error {
		var err error
		batch, err = record.Decode(payloads)
		return err
	}); err != nil {
		return err
	}

	if err := o.stage(ctx, "reconcile", func() error {
		observed := len(batch.Columns)
		batch = schema.Reconcile(batch, o.expected)
		if dropped := observed - len(batch.Columns); dropped > 0 {
			o.logger.Debug("undeclared columns dropped", "count", dropped)
		}
		var err error
		records, err = record.Bind(batch)
		return err
	}); err != nil {
		return err
	}

	if err := o.stage(ctx, "classify", func() error {
		var err error
		tokens, err = o.classify(ctx, records)
		return err
	}); err != nil {
		return err
	}

	if err := o.stage(ctx, "write", func() error {
		return o.sink.WriteBatch(ctx, tokens)
	}); err != nil {
		return err
	}

	if err := o.stage(ctx, "commit", func() error {
		if err := o.source.Commit(ctx); err != nil {
			return apperrors.Newf(apperrors.ErrConnection, "ingest",
				"committing offsets: %v", err)
		}
		return nil
	}); err != nil {
		return err
	}

	span.SetAttr("records", len(records))
	span.SetAttr("tokens", len(tokens))
	if o.metrics != nil {
		o.metrics.RecordsTotal.Add(float64(len(records)))
		o.metrics.TokensTotal.Add(float64(len(tokens)))
		o.metrics.BatchRecords.Observe(float64(len(records)))
	}
	o.logger.Info("batch processed",
		"seq", o.batchSeq,
		"records", len(records),
		"tokens", len(tokens),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

// classify cleans, tokenises, and scores each record on a bounded worker
// pool. Results flatten in record order; token order inside a record is
// preserved.
func (o *Orchestrator) classify(ctx context.Context, records []record.RawRecord) ([]sentiment.ClassifiedToken, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Workers)

	perRecord := make([][]sentiment.ClassifiedToken, len(records))
	for i, rec := range records {
		g.Go(func() error {
			words := tokenize.Split(textclean.Clean(rec.Text))
			if len(words) == 0 {
				return nil
			}
			scored := make([]sentiment.ClassifiedToken, 0, len(words))
			for _, word := range words {
				s, err := o.scorer.Score(gctx, word)
				if err != nil {
					return apperrors.Newf(apperrors.ErrScoring, "classify",
						"scoring %q: %v", word, err)
				}
				scored = append(scored, sentiment.ClassifiedToken{
					Word:         word,
					Polarity:     s.Polarity,
					Subjectivity: s.Subjectivity,
				})
			}
			perRecord[i] = scored
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var tokens []sentiment.ClassifiedToken
	for _, scored := range perRecord {
		tokens = append(tokens, scored...)
	}
	return tokens, nil
}

// stage times one named step of a batch and attaches it to the batch span.
func (o *Orchestrator) stage(ctx context.Context, name string, fn func() error) error {
	_, span := tracing.StartChildSpan(ctx, name)
	err := fn()
	span.End()
	if o.metrics != nil {
		o.metrics.StageDuration.WithLabelValues(name).Observe(span.Duration.Seconds())
	}
	return err
}
