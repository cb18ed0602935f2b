package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/jademcosta/pescador/pkg/config"
)

const (
	ComponentKey        = "component"
	SubscriptionTypeKey = "subscription_type"
	ObjStorageTypeKey   = "obj_storage_type"
	RunIDKey            = "run_id"
)

// New builds the process logger. It writes to stdout and, when a run log is
// provided, to the run-log file as well. Every line carries the run id, so
// shipped logs can be correlated with the run that produced them.
func New(conf config.LogConfig, runLog *RunLog) *slog.Logger {
	var sink io.Writer = os.Stdout
	if runLog != nil {
		sink = io.MultiWriter(os.Stdout, runLog)
	}

	logger := slog.New(newHandler(conf, sink))
	return logger.With(RunIDKey, uuid.New().String())
}

// NewDummy is meant to be used on tests only
func NewDummy() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newHandler(conf config.LogConfig, sink io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{Level: parseLevel(conf.Level)}

	if conf.Format == "json" {
		return slog.NewJSONHandler(sink, opts)
	}
	return slog.NewTextHandler(sink, opts)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
