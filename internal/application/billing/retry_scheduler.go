package billing

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/facturador-api/internal/domain"
)

const retrySweepLockKey = "facturador:retry-sweep"

// staleMargin holgura sobre la ventana de un envío en curso antes de darlo por interrumpido.
const staleMargin = time.Minute

// RetrySchedulerConfig parámetros del barrido de reintentos.
type RetrySchedulerConfig struct {
	Interval    time.Duration // periodo del barrido
	StaleAfter  time.Duration // processing sin cambios por más de esto = interrumpido
	MaxAttempts int           // jobs con attempt_count >= MaxAttempts no se reintentan
	BatchSize   int
}

// RetryScheduler consume next_retry_at: recupera jobs interrumpidos y vuelve a invocar
// SubmitInvoice para los jobs fallidos vencidos. Es opcional; sin él los reintentos son
// manuales. Con varias instancias, locker evita barridos simultáneos (puede ser nil).
type RetryScheduler struct {
	manager *SubmissionManager
	locker  Locker
	metrics Metrics
	cfg     RetrySchedulerConfig
	log     zerolog.Logger
	now     func() time.Time
}

// NewRetryScheduler construye el barrido con valores por defecto razonables.
func NewRetryScheduler(manager *SubmissionManager, locker Locker, metrics Metrics, cfg RetrySchedulerConfig, log zerolog.Logger) *RetryScheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 10 * time.Minute
	}
	// un envío vivo toca el job antes del token y del envío, cada uno limitado por Timeout
	if minStale := 2*manager.cfg.Timeout + staleMargin; manager.cfg.Timeout > 0 && cfg.StaleAfter <= minStale {
		log.Warn().Dur("stale_after", cfg.StaleAfter).Dur("min_stale_after", minStale).
			Msg("stale_after no supera el timeout del proveedor, se ajusta")
		cfg.StaleAfter = minStale + time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &RetryScheduler{
		manager: manager,
		locker:  locker,
		metrics: metrics,
		cfg:     cfg,
		log:     log.With().Str("component", "retry_scheduler").Logger(),
		now:     time.Now,
	}
}

// Run ejecuta barridos hasta que ctx se cancele.
func (s *RetryScheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	s.log.Info().Dur("interval", s.cfg.Interval).Int("max_attempts", s.cfg.MaxAttempts).Msg("barrido de reintentos activo")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, _, err := s.Sweep(ctx); err != nil {
				s.log.Error().Err(err).Msg("barrido de reintentos fallido")
			}
		}
	}
}

// Sweep ejecuta un barrido. Devuelve jobs recuperados y jobs reintentados.
func (s *RetryScheduler) Sweep(ctx context.Context) (recovered, retried int, err error) {
	if s.locker != nil {
		release, ok, err := s.locker.TryLock(ctx, retrySweepLockKey, s.cfg.Interval)
		if err != nil {
			return 0, 0, err
		}
		if !ok {
			s.log.Debug().Msg("otra instancia está barriendo, se omite")
			return 0, 0, nil
		}
		defer func() {
			if rErr := release(context.WithoutCancel(ctx)); rErr != nil {
				s.log.Warn().Err(rErr).Msg("no se pudo liberar el lock del barrido")
			}
		}()
	}

	now := s.now().UTC()
	recovered, err = s.manager.RecoverInterrupted(ctx, now.Add(-s.cfg.StaleAfter), s.cfg.BatchSize)
	if err != nil {
		return 0, 0, err
	}

	due, err := s.manager.repos.Jobs.ListDueRetries(ctx, now, s.cfg.MaxAttempts, s.cfg.BatchSize)
	if err != nil {
		return recovered, 0, err
	}
	for _, j := range due {
		if ctx.Err() != nil {
			break
		}
		_, subErr := s.manager.SubmitInvoice(ctx, j.CompanyID, j.InvoiceID)
		switch domain.KindOf(subErr) {
		case "":
			retried++
		case domain.KindConflict:
			// otro envío lo tomó o ya fue validada
		default:
			retried++
			s.log.Debug().Err(subErr).Str("job_id", j.ID).Msg("reintento fallido")
		}
	}

	if s.metrics != nil {
		s.metrics.ObserveRetrySweep(recovered, retried)
	}
	if recovered > 0 || retried > 0 {
		s.log.Info().Int("recovered", recovered).Int("retried", retried).Msg("barrido de reintentos completado")
	}
	return recovered, retried, nil
}
