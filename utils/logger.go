package utils

import (
	"io"
	"log/slog"
	"os"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/lmittmann/tint"
)

func Logger(logPaths ...string) *slog.Logger {
	writers := []io.Writer{os.Stderr}
	for _, log := range logPaths {
		w, err := os.OpenFile(log, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			panic(err)
		}
		writers = append(writers, w)
	}

	return slog.New(tint.NewHandler(io.MultiWriter(writers...), &tint.Options{
		Level: slog.LevelDebug,
	}))
}

// WithLogger makes an actor system log through the shared tint handler
// instead of protoactor's default.
func WithLogger(logPaths ...string) actor.ConfigOption {
	logger := Logger(logPaths...)
	return actor.WithLoggerFactory(func(system *actor.ActorSystem) *slog.Logger {
		return logger
	})
}
