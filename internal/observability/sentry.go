package observability

import (
	"context"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/olushola/classroom-bot/internal/ctxutil"
)

func InitSentry(dsn, env, release string) (func(), error) {
	if dsn == "" {
		return func() {}, nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: env,
		Release:     release,
	}); err != nil {
		return func() {}, err
	}
	return func() { sentry.Flush(2 * time.Second) }, nil
}

func CaptureErr(err error) {
	if err != nil {
		sentry.CaptureException(err)
	}
}

// CaptureChatErr reports err tagged with the chat and operation it came from.
func CaptureChatErr(err error, chatID int64, op string) {
	if err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("chat_id", strconv.FormatInt(chatID, 10))
		if op != "" {
			scope.SetTag("op", op)
		}
		sentry.CaptureException(err)
	})
}

// CaptureCtxErr reports err with the chat and operation carried by ctx.
func CaptureCtxErr(ctx context.Context, err error) {
	id, ok := ctxutil.ChatID(ctx)
	if !ok {
		CaptureErr(err)
		return
	}
	op, _ := ctxutil.Op(ctx)
	CaptureChatErr(err, id, op)
}
