// Package sentiment scores tokens for polarity and subjectivity.
package sentiment

import (
	"context"

	"github.com/jonreiter/govader"
)

// Scores is one token's sentiment measurement. Polarity lies in [-1, 1],
// negative to positive; Subjectivity lies in [0, 1], objective to subjective.
type Scores struct {
	Polarity     float64 `json:"polarity"`
	Subjectivity float64 `json:"subjectivity"`
}

// ClassifiedToken pairs a token with its scores. One classified token
// becomes one sink row.
type ClassifiedToken struct {
	Word         string
	Polarity     float64
	Subjectivity float64
}

// Scorer produces sentiment scores for a single token. Implementations must
// be deterministic and safe for concurrent use.
type Scorer interface {
	Score(ctx context.Context, word string) (Scores, error)
}

// VaderScorer scores tokens with the VADER sentiment lexicon. Polarity is
// the compound score; subjectivity is the sentiment-bearing share of the
// input (positive plus negative). The analyzer is read-only after
// construction.
type VaderScorer struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

func NewVaderScorer() *VaderScorer {
	return &VaderScorer{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

func (s *VaderScorer) Score(ctx context.Context, word string) (Scores, error) {
	scores := s.analyzer.PolarityScores(word)
	return Scores{
		Polarity:     clamp(scores.Compound, -1, 1),
		Subjectivity: clamp(scores.Positive+scores.Negative, 0, 1),
	}, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
