package logging

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/olushola/classroom-bot/internal/ctxutil"
)

const service = "classroom-bot"

type Log struct {
	Base *zap.Logger
	// Level can be changed at runtime; it is served on /loglevel.
	Level zap.AtomicLevel
}

// Init builds the process logger: JSON in prod, console otherwise. An
// unknown level falls back to info.
func Init(level, env, version string) (*Log, error) {
	lvl, err := zap.ParseAtomicLevel(strings.ToLower(level))
	if err != nil {
		lvl = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	cfg := zap.NewDevelopmentConfig()
	if strings.EqualFold(env, "prod") {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = lvl
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.InitialFields = map[string]any{"service": service, "version": version}

	base, err := cfg.Build(zap.AddStacktrace(zap.ErrorLevel))
	if err != nil {
		return nil, err
	}
	return &Log{Base: base, Level: lvl}, nil
}

// Named returns the logger of one component (handlers, jobs, http).
func (l *Log) Named(component string) *zap.Logger { return l.Base.Named(component) }

func (l *Log) Sync() { _ = l.Base.Sync() }


// FromContext tags l with the chat and operation the dispatcher put in ctx.
func FromContext(ctx context.Context, l *zap.Logger) *zap.Logger {
	if id, ok := ctxutil.ChatID(ctx); ok {
		l = l.With(zap.Int64("chat_id", id))
	}
	if op, ok := ctxutil.Op(ctx); ok {
		l = l.With(zap.String("op", op))
	}
	return l
}
