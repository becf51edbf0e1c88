// Package fetch retries upstream lookups and degrades exhausted ones to a
// "not found" result instead of an error.
package fetch

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/vshulcz/Viewpulse/internal/domain"
	"github.com/vshulcz/Viewpulse/internal/logging"
	"github.com/vshulcz/Viewpulse/internal/misc"
	"github.com/vshulcz/Viewpulse/internal/ports"
	"github.com/vshulcz/Viewpulse/internal/telemetry"
)

// Retry defaults: three calls, two seconds apart.
const (
	DefaultAttempts = 3
	DefaultDelay    = 2 * time.Second

	endpointView   = "view"
	endpointOnline = "online"
)

// Service implements ports.Fetcher on top of a ports.VideoAPI.
type Service struct {
	api    ports.VideoAPI
	delays []time.Duration
	log    *zap.Logger
	rec    *telemetry.Recorder
}

var _ ports.Fetcher = (*Service)(nil)

// New makes at most attempts calls per lookup with delay between them.
// log and rec may be nil.
func New(api ports.VideoAPI, attempts int, delay time.Duration, log *zap.Logger, rec *telemetry.Recorder) *Service {
	if attempts < 1 {
		attempts = DefaultAttempts
	}
	return &Service{
		api:    api,
		delays: misc.Linear(attempts, delay),
		log:    logging.OrNop(log),
		rec:    rec,
	}
}

// IsRetryable reports whether err is one of the fetch failure kinds.
// Every kind is retried the same way.
func IsRetryable(err error) bool {
	return errors.Is(err, domain.ErrTransport) ||
		errors.Is(err, domain.ErrUpstream) ||
		errors.Is(err, domain.ErrMalformed)
}

// Video looks up t.ID; false means every attempt failed.
func (s *Service) Video(ctx context.Context, t domain.Target) (domain.Video, bool) {
	return retried(ctx, s, endpointView, []zap.Field{zap.String("bvid", t.ID)}, func() (domain.Video, error) {
		return s.api.Video(ctx, t.ID)
	})
}

// Online looks up the viewer count for aid/cid; false means every attempt failed.
func (s *Service) Online(ctx context.Context, aid, cid int64) (int64, bool) {
	return retried(ctx, s, endpointOnline, []zap.Field{zap.Int64("aid", aid), zap.Int64("cid", cid)}, func() (int64, error) {
		return s.api.Online(ctx, aid, cid)
	})
}

func retried[T any](ctx context.Context, s *Service, endpoint string, ids []zap.Field, call func() (T, error)) (T, bool) {
	var (
		out     T
		attempt int
	)
	op := func() error {
		attempt++
		v, err := call()
		if err != nil {
			kind := domain.Kind(err)
			s.rec.FetchAttemptFailed(endpoint, kind)
			s.log.Warn("fetch attempt failed", append(ids,
				zap.String("endpoint", endpoint),
				zap.Int("attempt", attempt),
				zap.String("kind", kind),
				zap.Error(err),
			)...)
			return err
		}
		out = v
		return nil
	}

	if err := misc.Retry(ctx, s.delays, IsRetryable, op); err != nil {
		s.rec.FetchDone(endpoint, false)
		s.log.Error("fetch gave up", append(ids,
			zap.String("endpoint", endpoint),
			zap.Int("attempts", attempt),
			zap.String("kind", domain.Kind(err)),
			zap.Error(err),
		)...)
		var zero T
		return zero, false
	}
	s.rec.FetchDone(endpoint, true)
	return out, true
}
