package translation

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"linguachat-backend/internal/domain"
	"linguachat-backend/pkg/logger"
	"linguachat-backend/pkg/metrics"
)

// Backend is the translation engine the orchestrator delegates to
type Backend interface {
	Translate(ctx context.Context, text string, source, target domain.Language, tone domain.Tone) (string, error)
	Ping(ctx context.Context) error
}

// Service orchestrates translations. It never blocks message delivery: a
// failed or slow translation degrades to the original text with a failed
// status, and the caller decides what to persist.
type Service struct {
	backend Backend
	timeout time.Duration
	ready   atomic.Bool
}

// NewService creates a translation orchestrator
func NewService(backend Backend, timeout time.Duration) *Service {
	return &Service{
		backend: backend,
		timeout: timeout,
	}
}

// Translate converts text into the target language with the given tone.
// Returns the text to store plus the resulting lifecycle status:
//
//   - same source and target: the original text, immediately translated
//   - backend success: the translated text, translated
//   - backend failure or timeout: the original text, failed
//
// The second return value is never an error: translation is best-effort
// and the original text is always a usable fallback.
func (s *Service) Translate(ctx context.Context, text string, source, target domain.Language, tone domain.Tone) (string, domain.TranslationStatus) {
	if source == target {
		metrics.TranslationsTotal.WithLabelValues("skipped").Inc()
		return text, domain.TranslationStatusTranslated
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	translated, err := s.backend.Translate(ctx, text, source, target, tone)
	metrics.TranslationDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.TranslationsTotal.WithLabelValues("failed").Inc()
		logger.Warn("translation failed, falling back to original text",
			zap.String("source", string(source)),
			zap.String("target", string(target)),
			zap.Error(err),
		)
		return text, domain.TranslationStatusFailed
	}

	s.ready.Store(true)
	metrics.TranslationsTotal.WithLabelValues("translated").Inc()
	return translated, domain.TranslationStatusTranslated
}

// WarmUp probes the backend in the background so the first real
// translation does not pay the cold-start cost. Safe to call once at
// startup; failures are logged and retried on the next probe interval
// until the backend answers.
func (s *Service) WarmUp(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			probeCtx, cancel := context.WithTimeout(ctx, s.timeout)
			err := s.backend.Ping(probeCtx)
			cancel()

			if err == nil {
				s.ready.Store(true)
				logger.Info("translation backend ready")
				return
			}
			logger.Warn("translation backend not ready", zap.Error(err))

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

// IsReady reports whether the backend has answered at least once
func (s *Service) IsReady() bool {
	return s.ready.Load()
}
