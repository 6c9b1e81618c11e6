package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BotUpdates = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "classroom", Name: "updates_total", Help: "Processed telegram updates",
	})
	HandlerErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "classroom", Name: "handler_errors_total", Help: "Handler errors",
	})
	DBPing = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "classroom", Name: "db_ping_seconds", Help: "DB ping latency",
		Buckets: prometheus.DefBuckets,
	})
	IntakeSubmissions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "classroom", Name: "intake_submissions_total", Help: "Intake submit presses by result",
	}, []string{"result"})
	LessonsStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "classroom", Name: "lessons_started_total", Help: "Lessons entered from intake",
	})
	LessonsCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "classroom", Name: "lessons_completed_total", Help: "Lessons finished on the last step",
	})
	StepActions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "classroom", Name: "step_actions_total", Help: "Lesson navigation actions",
	}, []string{"action"})
	ScreenShareRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "classroom", Name: "screen_share_requests_total", Help: "Screen share toggles by result",
	}, []string{"result"})
	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "classroom", Name: "active_sessions", Help: "Chats with an in-memory session",
	})
)

func init() {
	prometheus.MustRegister(
		BotUpdates, HandlerErrors, DBPing,
		IntakeSubmissions, LessonsStarted, LessonsCompleted,
		StepActions, ScreenShareRequests, ActiveSessions,
	)
}

func Handler() http.Handler { return promhttp.Handler() }

func ObserveDBPing(d time.Duration) { DBPing.Observe(d.Seconds()) }
