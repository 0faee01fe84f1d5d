package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Auth-related Prometheus metrics. Defined in a standalone package to avoid
// import cycles between services and HTTP packages.

var (
	LoginsInitiated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cli_logins_initiated_total",
		Help: "Logins de CLI iniciados, por provider (vacío = página de selección)",
	}, []string{"provider"})

	LoginsCompleted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cli_logins_completed_total",
		Help: "Intentos de complete, por provider y resultado",
	}, []string{"provider", "result"})

	SessionsRotated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cli_sessions_rotated_total",
		Help: "Rotaciones de token de sesión",
	})

	ExpiredRecordsSwept = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "expired_records_swept_total",
		Help: "Registros vencidos eliminados por el sweeper, por tipo",
	}, []string{"kind"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_ms",
		Help:    "Duración de requests HTTP en milisegundos",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	}, []string{"method", "route", "status"})
)

// LoginInitiated cuenta un initiate. provider puede ser vacío.
func LoginInitiated(provider string) {
	LoginsInitiated.WithLabelValues(provider).Inc()
}

// LoginCompleted cuenta un complete, exitoso o no.
func LoginCompleted(provider string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	LoginsCompleted.WithLabelValues(provider, result).Inc()
}

// Swept cuenta registros vencidos eliminados de un tipo dado.
func Swept(kind string, n int) {
	ExpiredRecordsSwept.WithLabelValues(kind).Add(float64(n))
}

// Register registra las métricas de auth en el registry dado (o el default si es nil).
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	collectors := []prometheus.Collector{
		LoginsInitiated,
		LoginsCompleted,
		SessionsRotated,
		ExpiredRecordsSwept,
		HTTPRequestDuration,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
