// Package sweeper elimina periódicamente los registros vencidos: states de
// autorización que nadie consumió y sesiones pasadas de su TTL.
package sweeper

import (
	"context"
	"time"

	"github.com/dropDatabas3/gatekit/internal/domain/repository"
	"github.com/dropDatabas3/gatekit/internal/metrics"
	"github.com/dropDatabas3/gatekit/internal/observability/logger"
)

// DefaultInterval entre pasadas.
const DefaultInterval = 5 * time.Minute

// Sweeper borra registros vencidos en cada pasada.
type Sweeper struct {
	States   repository.AuthStateRepository
	Sessions repository.SessionRepository
	Interval time.Duration
}

// New crea el sweeper.
func New(states repository.AuthStateRepository, sessions repository.SessionRepository, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Sweeper{States: states, Sessions: sessions, Interval: interval}
}

// Run ejecuta pasadas hasta que el contexto se cancele. La primera pasada
// corre inmediatamente.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.SweepOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce hace una pasada. Los errores se loguean y no cortan el loop:
// la próxima pasada lo reintenta.
func (s *Sweeper) SweepOnce(ctx context.Context) (states, sessions int) {
	log := logger.From(ctx).With(logger.Component("sweeper"))

	n, err := s.States.DeleteExpired(ctx)
	if err != nil {
		log.Warn("sweep auth states failed", logger.Err(err))
	} else if n > 0 {
		metrics.Swept("auth_state", n)
		log.Info("swept auth states", logger.Count(n))
	}
	states = n

	n, err = s.Sessions.DeleteExpired(ctx)
	if err != nil {
		log.Warn("sweep sessions failed", logger.Err(err))
	} else if n > 0 {
		metrics.Swept("cli_session", n)
		log.Info("swept sessions", logger.Count(n))
	}
	sessions = n
	return states, sessions
}
