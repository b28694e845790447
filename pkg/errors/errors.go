package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the pipeline's failure taxonomy. Every stage error is
// wrapped around exactly one of these so the top-level handler can classify
// a failure without knowing which component produced it.
var (
	ErrConnection   = errors.New("connection failure")
	ErrDecode       = errors.New("decode failure")
	ErrScoring      = errors.New("scoring failure")
	ErrSinkWrite    = errors.New("sink write failure")
	ErrNotification = errors.New("notification failure")
)

// PipelineError carries a sentinel, the stage that raised it, and a
// human-readable message. All sentinels except ErrNotification are fatal:
// they stop the stream and decide the process exit code.
type PipelineError struct {
	Err     error
	Stage   string
	Message string
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Stage, e.Err.Error(), e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

func New(sentinel error, stage, message string) *PipelineError {
	return &PipelineError{
		Err:     sentinel,
		Stage:   stage,
		Message: message,
	}
}

func Newf(sentinel error, stage, format string, args ...any) *PipelineError {
	return &PipelineError{
		Err:     sentinel,
		Stage:   stage,
		Message: fmt.Sprintf(format, args...),
	}
}

// Stage reports which stage raised err, or "unknown" for untyped errors.
func Stage(err error) string {
	var pipeErr *PipelineError
	if errors.As(err, &pipeErr) {
		return pipeErr.Stage
	}
	return "unknown"
}

// ExitCode maps an error to the process exit code: 0 for a clean stop,
// 1 for any fatal failure. Notification errors never reach this path on
// their own; they are logged and swallowed by the failure handler.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}
