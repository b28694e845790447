// Package sink persists classified tokens to the relational store.
package sink

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/Stream-Sentiment-Pipeline/internal/sentiment"
	apperrors "github.com/Adithya-Monish-Kumar-K/Stream-Sentiment-Pipeline/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Stream-Sentiment-Pipeline/pkg/postgres"
)

const insertTokenSQL = `INSERT INTO sentiment_analysis (word, polarity, subjectivity) VALUES ($1, $2, $3)`

// Writer appends classified tokens to the sentiment_analysis table. Each
// batch lands in one transaction: every row commits or none do. Inserts are
// append-only; a batch re-delivered after a crash re-inserts its rows
// (at-least-once).
//
// It requires a `sentiment_analysis` table:
//
//	CREATE TABLE sentiment_analysis (
//	    word         TEXT NOT NULL,
//	    polarity     DOUBLE PRECISION NOT NULL,
//	    subjectivity DOUBLE PRECISION NOT NULL
//	);
type Writer struct {
	db     *postgres.Client
	logger *slog.Logger
}

// NewWriter creates a sink writer on an open client.
func NewWriter(db *postgres.Client) *Writer {
	return &Writer{
		db:     db,
		logger: slog.Default().With("component", "sink"),
	}
}

// WriteBatch inserts the batch's rows transactionally. An empty batch is a
// no-op. Any failure is a fatal sink error.
func (w *Writer) WriteBatch(ctx context.Context, tokens []sentiment.ClassifiedToken) error {
	if len(tokens) == 0 {
		return nil
	}
	err := w.db.InTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, insertTokenSQL)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, t := range tokens {
			if _, err := stmt.ExecContext(ctx, t.Word, t.Polarity, t.Subjectivity); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return apperrors.Newf(apperrors.ErrSinkWrite, "sink", "writing %d rows: %v", len(tokens), err)
	}
	w.logger.Debug("batch written", "rows", len(tokens))
	return nil
}
