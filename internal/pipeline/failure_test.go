package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/Stream-Sentiment-Pipeline/pkg/errors"
)

type fakeNotifier struct {
	calls       int
	lastMessage string
	err         error
}

func (f *fakeNotifier) Notify(ctx context.Context, message string) error {
	f.calls++
	f.lastMessage = message
	return f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandleFailure(t *testing.T) {
	notifier := &fakeNotifier{}
	err := apperrors.Newf(apperrors.ErrSinkWrite, "sink", "writing 3 rows: deadlock")

	code := HandleFailure(err, notifier, discardLogger())
	if code != 1 {
		t.Errorf("expected exit code 1, got %d", code)
	}
	if notifier.calls != 1 {
		t.Fatalf("expected exactly 1 alert, got %d", notifier.calls)
	}
	if !strings.Contains(notifier.lastMessage, "deadlock") {
		t.Errorf("expected the alert to carry the failure, got %q", notifier.lastMessage)
	}
	if !strings.Contains(notifier.lastMessage, "sink") {
		t.Errorf("expected the alert to carry the stage, got %q", notifier.lastMessage)
	}
}

func TestHandleFailureNotifierError(t *testing.T) {
	notifier := &fakeNotifier{
		err: apperrors.Newf(apperrors.ErrNotification, "alert", "smtp refused"),
	}
	err := apperrors.Newf(apperrors.ErrConnection, "ingest", "broker gone")

	code := HandleFailure(err, notifier, discardLogger())
	if code != 1 {
		t.Errorf("expected exit code 1 regardless of alert delivery, got %d", code)
	}
	if notifier.calls != 1 {
		t.Errorf("expected 1 alert attempt, got %d", notifier.calls)
	}
}

func TestHandleFailureNilError(t *testing.T) {
	notifier := &fakeNotifier{}
	if code := HandleFailure(nil, notifier, discardLogger()); code != 0 {
		t.Errorf("expected exit code 0 for a clean stop, got %d", code)
	}
	if notifier.calls != 0 {
		t.Errorf("expected no alert for a clean stop, got %d", notifier.calls)
	}
}

func TestHandleFailureNilNotifier(t *testing.T) {
	err := errors.New("plain failure")
	if code := HandleFailure(err, nil, discardLogger()); code != 1 {
		t.Errorf("expected exit code 1, got %d", code)
	}
}
