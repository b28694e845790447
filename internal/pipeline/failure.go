package pipeline

import (
	"context"
	"log/slog"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/Stream-Sentiment-Pipeline/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Stream-Sentiment-Pipeline/pkg/resilience"
)

// alertTimeout bounds the alert dispatch so a dead SMTP server cannot keep a
// failed process alive.
const alertTimeout = 30 * time.Second

// Notifier dispatches a fatal-failure alert.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// HandleFailure is the single sink for fatal pipeline errors: it logs the
// failure, dispatches exactly one alert, and returns the process exit code.
// The alert is advisory; a delivery failure is logged and changes neither
// the exit code nor anything else.
func HandleFailure(err error, notifier Notifier, logger *slog.Logger) int {
	if err == nil {
		return apperrors.ExitCode(nil)
	}
	logger.Error("pipeline failed",
		"error", err,
		"stage", apperrors.Stage(err),
	)
	if notifier != nil {
		nerr := resilience.WithTimeout(context.Background(), alertTimeout, "alert",
			func(ctx context.Context) error {
				return notifier.Notify(ctx, err.Error())
			})
		if nerr != nil {
			logger.Error("alert delivery failed", "error", nerr)
		}
	}
	return apperrors.ExitCode(err)
}
