package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Generations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tuition", Name: "generations_total", Help: "Session date generations by result",
	}, []string{"result"})
	Materialized = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tuition", Name: "materialized_students_total", Help: "Students processed by bulk materialization",
	}, []string{"result"})
	Transitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tuition", Name: "session_transitions_total", Help: "Session status transitions",
	}, []string{"event"})
	Recalculations = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tuition", Name: "recalculations_total", Help: "Tuition fee recalculations",
	})
	AmountDrift = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tuition", Name: "amount_drift_total", Help: "Tuition fees whose stored amount differed from recalculation",
	})
	HTTPErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tuition", Name: "http_errors_total", Help: "API errors by status code",
	}, []string{"code"})
	DBPing = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "tuition", Name: "db_ping_seconds", Help: "DB ping latency",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(Generations, Materialized, Transitions, Recalculations, AmountDrift, HTTPErrors, DBPing)
}

func Handler() http.Handler { return promhttp.Handler() }

func ObserveDBPing(d time.Duration) { DBPing.Observe(d.Seconds()) }
