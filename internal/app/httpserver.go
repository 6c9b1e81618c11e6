package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/olushola/classroom-bot/internal/metrics"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

// newMux serves health and metrics; level, when set, answers GET and PUT on
// /loglevel (zap.AtomicLevel is such a handler).
func newMux(db Pinger, level http.Handler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 800*time.Millisecond)
		defer cancel()
		t0 := time.Now()
		if err := db.PingContext(ctx); err != nil {
			http.Error(w, "db not ok: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		metrics.ObserveDBPing(time.Since(t0))
		_, _ = w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", metrics.Handler())
	if level != nil {
		mux.Handle("/loglevel", level)
	}
	return mux
}

// RunHTTP serves /healthz, /metrics and /loglevel until ctx is done.
func RunHTTP(ctx context.Context, addr string, db Pinger, level http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           newMux(db, level),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return srv.Shutdown(shCtx)
	}
}
