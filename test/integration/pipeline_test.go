// Package integration contains tests that verify the interaction between
// pipeline components: the real scorer and the real sink against a real
// PostgreSQL database, with the stream source held in memory.
//
// Run with:
//
//	go test -v ./test/integration/...
package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Stream-Sentiment-Pipeline/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/Stream-Sentiment-Pipeline/internal/sentiment"
	"github.com/Adithya-Monish-Kumar-K/Stream-Sentiment-Pipeline/internal/sink"
	"github.com/Adithya-Monish-Kumar-K/Stream-Sentiment-Pipeline/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Stream-Sentiment-Pipeline/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Stream-Sentiment-Pipeline/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Stream-Sentiment-Pipeline/pkg/postgres"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// skipIfNoPostgres skips the test when PostgreSQL is unavailable and makes
// sure the sink table exists.
func skipIfNoPostgres(t *testing.T) *postgres.Client {
	t.Helper()
	db, err := postgres.New(testPostgresConfig())
	if err != nil {
		t.Skipf("skipping integration test: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	_, err = db.DB.ExecContext(t.Context(), `
		CREATE TABLE IF NOT EXISTS sentiment_analysis (
			word         TEXT NOT NULL,
			polarity     DOUBLE PRECISION NOT NULL,
			subjectivity DOUBLE PRECISION NOT NULL
		)`)
	if err != nil {
		t.Fatalf("creating sink table: %v", err)
	}
	return db
}

func testPostgresConfig() config.PostgresConfig {
	return config.PostgresConfig{
		URL:             envOrDefault("TEST_POSTGRES_URL", "postgres://localhost:5432/sentiment_test?sslmode=disable"),
		User:            envOrDefault("TEST_POSTGRES_USER", "sentiment"),
		Password:        os.Getenv("TEST_POSTGRES_PASSWORD"),
		Driver:          "postgres",
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// uniqueWord returns a marker word no other test run will have written, and
// registers its cleanup.
func uniqueWord(t *testing.T, db *postgres.Client, prefix string) string {
	t.Helper()
	word := fmt.Sprintf("%s%d", prefix, time.Now().UnixNano())
	t.Cleanup(func() {
		db.DB.Exec(`DELETE FROM sentiment_analysis WHERE word = $1`, word)
	})
	return word
}

func wordCount(t *testing.T, db *postgres.Client, word string) int {
	t.Helper()
	var count int
	err := db.DB.QueryRowContext(t.Context(),
		`SELECT COUNT(*) FROM sentiment_analysis WHERE word = $1`, word,
	).Scan(&count)
	if err != nil {
		t.Fatalf("counting rows for %q: %v", word, err)
	}
	return count
}

// memSource serves one fixed micro-batch, then reports context.Canceled so
// the run loop shuts down cleanly.
type memSource struct {
	batches [][][]byte
	idx     int
	commits int
}

func (m *memSource) Fetch(ctx context.Context) ([][]byte, error) {
	if m.idx >= len(m.batches) {
		return nil, context.Canceled
	}
	b := m.batches[m.idx]
	m.idx++
	return b, nil
}

func (m *memSource) Commit(ctx context.Context) error {
	m.commits++
	return nil
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

// TestSinkWriteBatch verifies tokens land in the table and that re-delivered
// batches append rather than overwrite.
func TestSinkWriteBatch(t *testing.T) {
	db := skipIfNoPostgres(t)
	writer := sink.NewWriter(db)
	word := uniqueWord(t, db, "itoken")

	tokens := []sentiment.ClassifiedToken{
		{Word: word, Polarity: 0.5, Subjectivity: 0.25},
		{Word: word, Polarity: -0.5, Subjectivity: 0.75},
	}
	if err := writer.WriteBatch(t.Context(), tokens); err != nil {
		t.Fatalf("WriteBatch failed: %v", err)
	}
	if got := wordCount(t, db, word); got != 2 {
		t.Errorf("expected 2 rows, got %d", got)
	}

	// A crash between write and commit re-delivers the batch; the sink must
	// append the duplicates, not reject them.
	if err := writer.WriteBatch(t.Context(), tokens); err != nil {
		t.Fatalf("re-delivered WriteBatch failed: %v", err)
	}
	if got := wordCount(t, db, word); got != 4 {
		t.Errorf("expected 4 rows after re-delivery, got %d", got)
	}
}

// TestSinkRoundTrip verifies scores survive the trip to the table unchanged.
func TestSinkRoundTrip(t *testing.T) {
	db := skipIfNoPostgres(t)
	writer := sink.NewWriter(db)
	word := uniqueWord(t, db, "itoken")

	want := sentiment.ClassifiedToken{Word: word, Polarity: -0.8316, Subjectivity: 0.423}
	if err := writer.WriteBatch(t.Context(), []sentiment.ClassifiedToken{want}); err != nil {
		t.Fatalf("WriteBatch failed: %v", err)
	}

	var polarity, subjectivity float64
	err := db.DB.QueryRowContext(t.Context(),
		`SELECT polarity, subjectivity FROM sentiment_analysis WHERE word = $1`, word,
	).Scan(&polarity, &subjectivity)
	if err != nil {
		t.Fatalf("reading row back: %v", err)
	}
	if polarity != want.Polarity || subjectivity != want.Subjectivity {
		t.Errorf("expected %v/%v, got %v/%v", want.Polarity, want.Subjectivity, polarity, subjectivity)
	}
}

// TestPipelineFlow runs the orchestrator with a real scorer and a real sink:
// one in-memory batch in, classified rows out, offsets committed last.
func TestPipelineFlow(t *testing.T) {
	db := skipIfNoPostgres(t)
	first := uniqueWord(t, db, "iflowa")
	second := uniqueWord(t, db, "iflowb")
	tagged := uniqueWord(t, db, "iflowc")

	payload := fmt.Sprintf(`{"text": "%s %s #%s http://ignored.example @nobody"}`, first, second, tagged)
	source := &memSource{batches: [][][]byte{{[]byte(payload)}}}

	o := pipeline.New(
		config.PipelineConfig{BatchSize: 10, BatchWait: 10 * time.Millisecond, Workers: 2},
		source,
		sentiment.NewVaderScorer(),
		sink.NewWriter(db),
		nil,
	)
	if err := o.Run(t.Context()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if got := wordCount(t, db, first); got != 1 {
		t.Errorf("expected 1 row for %q, got %d", first, got)
	}
	if got := wordCount(t, db, second); got != 1 {
		t.Errorf("expected 1 row for %q, got %d", second, got)
	}
	// Hashtags keep their word; the marker must land without the '#'.
	if got := wordCount(t, db, tagged); got != 1 {
		t.Errorf("expected 1 row for hashtag word %q, got %d", tagged, got)
	}
	// The cleaner strips the URL and the mention; neither may leak into the
	// sink as a token.
	if got := wordCount(t, db, "http://ignored.example"); got != 0 {
		t.Errorf("URL leaked into the sink (%d rows)", got)
	}
	if got := wordCount(t, db, "@nobody"); got != 0 {
		t.Errorf("mention leaked into the sink (%d rows)", got)
	}
	if source.commits != 1 {
		t.Errorf("expected 1 offset commit, got %d", source.commits)
	}
}

// TestReadyEndpoint verifies the readiness report aggregates a live postgres
// check and the stream state, the same wiring the service uses.
func TestReadyEndpoint(t *testing.T) {
	db := skipIfNoPostgres(t)

	checker := health.NewChecker()
	checker.SetStateFunc(func() string { return pipeline.StateStreaming.String() })
	checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
		if err := db.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	srv := httptest.NewServer(checker.ReadyHandler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("ready request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var report health.Report
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		t.Fatalf("decoding report: %v", err)
	}
	if report.Status != health.StatusUp {
		t.Errorf("expected status up, got %q", report.Status)
	}
	if report.State != "STREAMING" {
		t.Errorf("expected state STREAMING, got %q", report.State)
	}
	if report.Components["postgres"].Status != health.StatusUp {
		t.Errorf("expected postgres up, got %+v", report.Components["postgres"])
	}
}

// TestMetricsEndpoint verifies the Prometheus handler serves the pipeline
// series.
func TestMetricsEndpoint(t *testing.T) {
	metrics.New()
	srv := httptest.NewServer(metrics.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("metrics request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	for _, series := range []string{"pipeline_state", "pipeline_records_total", "score_cache_hits_total"} {
		if !strings.Contains(string(body), series) {
			t.Errorf("missing expected series: %s", series)
		}
	}
}

// ---------------------------------------------------------------------------
// Env helpers
// ---------------------------------------------------------------------------

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
