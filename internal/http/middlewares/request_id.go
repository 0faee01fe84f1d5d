package middlewares

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/gatekit/internal/http/helpers"
	"github.com/dropDatabas3/gatekit/internal/metrics"
	"github.com/dropDatabas3/gatekit/internal/observability/logger"
)

// statusWriter captura el status code escrito por el handler.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// WithRequestID asigna (o propaga) un X-Request-ID, inyecta un logger con el
// request id en el contexto y loguea cada request con duración y status.
func WithRequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rid := r.Header.Get("X-Request-ID")
			if rid == "" {
				rid = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", rid)

			ctx := helpers.WithRequestID(r.Context(), rid)
			log := logger.L().With(logger.RequestID(rid))
			ctx = logger.ToContext(ctx, log)

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(sw, r.WithContext(ctx))
			elapsed := time.Since(start)

			metrics.HTTPRequestDuration.
				WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(sw.status)).
				Observe(float64(elapsed.Milliseconds()))

			log.Debug("request",
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
				logger.Status(sw.status),
				logger.Duration(elapsed),
				logger.ClientIP(helpers.ClientIP(r)),
			)
		})
	}
}
