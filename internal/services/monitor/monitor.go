// Package monitor runs the fetch-publish cycle on a fixed interval.
package monitor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vshulcz/Viewpulse/internal/domain"
	"github.com/vshulcz/Viewpulse/internal/logging"
	"github.com/vshulcz/Viewpulse/internal/misc"
	"github.com/vshulcz/Viewpulse/internal/ports"
	"github.com/vshulcz/Viewpulse/internal/services/batch"
	"github.com/vshulcz/Viewpulse/internal/services/report"
	"github.com/vshulcz/Viewpulse/internal/telemetry"
)

// DefaultInterval is the pause between cycles; the Outcome* values label
// the cycle counter.
const (
	DefaultInterval = 15 * time.Second

	OutcomeOK           = "ok"
	OutcomeSinkError    = "sink_error"
	OutcomeTargetsError = "targets_error"
)

// BatchPublisher pushes one cycle's results as a single batch.
type BatchPublisher interface {
	Publish(ctx context.Context, results map[string]domain.FetchResult) (batch.Summary, error)
}

// Options tunes the loop. Zero values pick the defaults: 15s interval,
// sequential fetching, no cycle deadline, the wall clock.
type Options struct {
	Interval     time.Duration
	RateLimit    int
	CycleTimeout time.Duration
	Clock        misc.Clock
	Reports      report.Publisher
	Recorder     *telemetry.Recorder
}

// Service is the polling loop. Cycle may also be driven directly.
type Service struct {
	targets ports.TargetSource
	fetcher ports.Fetcher
	pub     BatchPublisher
	opts    Options
	log     *zap.Logger

	cycle atomic.Uint64
}

// New wires a Service; log may be nil.
func New(targets ports.TargetSource, fetcher ports.Fetcher, pub BatchPublisher, opts Options, log *zap.Logger) *Service {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.RateLimit < 1 {
		opts.RateLimit = 1
	}
	if opts.Clock == nil {
		opts.Clock = misc.RealClock{}
	}
	return &Service{
		targets: targets,
		fetcher: fetcher,
		pub:     pub,
		opts:    opts,
		log:     logging.OrNop(log),
	}
}

// Run executes cycles until ctx is cancelled. Cycle errors are logged and
// never end the loop.
func (s *Service) Run(ctx context.Context) error {
	s.log.Info("monitor started",
		zap.Duration("interval", s.opts.Interval),
		zap.Int("rate_limit", s.opts.RateLimit))
	for {
		if _, err := s.Cycle(ctx); err != nil && ctx.Err() == nil {
			s.log.Error("cycle failed", zap.String("kind", domain.Kind(err)), zap.Error(err))
		}
		if ctx.Err() != nil {
			s.log.Info("monitor stopped")
			return nil
		}

		s.log.Info("waiting for next cycle", zap.Duration("interval", s.opts.Interval))
		select {
		case <-ctx.Done():
			s.log.Info("monitor stopped")
			return nil
		case <-s.opts.Clock.After(s.opts.Interval):
		}
	}
}

// Cycle reloads targets, fetches all of them and publishes the results once.
// A target-source error ends the cycle before any push.
func (s *Service) Cycle(ctx context.Context) (report.Event, error) {
	n := s.cycle.Add(1)
	started := s.opts.Clock.Now()

	targets, err := s.targets.Load(ctx)
	if err != nil {
		evt := report.Event{Cycle: n, StartedAt: started.UTC(), Error: err.Error()}
		s.finish(ctx, &evt, started, OutcomeTargetsError)
		return evt, err
	}

	results := s.fetchAll(ctx, targets)
	if err := ctx.Err(); err != nil {
		return report.Event{Cycle: n, StartedAt: started.UTC()}, err
	}

	evt := report.NewEvent(n, started, targets, results)
	_, err = s.pub.Publish(ctx, results)
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeSinkError
		evt.PushError = err.Error()
	} else {
		evt.Pushed = true
	}
	s.finish(ctx, &evt, started, outcome)

	s.log.Info("cycle done",
		zap.Uint64("cycle", n),
		zap.Int("targets", len(targets)),
		zap.Int("fetched", len(results)),
		zap.Int("failed", len(evt.Failed)),
		zap.Bool("pushed", evt.Pushed),
		zap.Duration("took", evt.Duration))
	return evt, err
}

func (s *Service) finish(ctx context.Context, evt *report.Event, started time.Time, outcome string) {
	evt.Duration = s.opts.Clock.Now().Sub(started)
	s.opts.Recorder.CycleDone(outcome, evt.Duration)
	if s.opts.Reports != nil {
		s.opts.Reports.Publish(context.WithoutCancel(ctx), *evt)
	}
}

// fetchAll never fails: a target whose lookup gave up is simply absent.
func (s *Service) fetchAll(ctx context.Context, targets []domain.Target) map[string]domain.FetchResult {
	if s.opts.CycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.CycleTimeout)
		defer cancel()
	}

	var (
		mu      sync.Mutex
		results = make(map[string]domain.FetchResult, len(targets))
	)
	g := new(errgroup.Group)
	g.SetLimit(s.opts.RateLimit)
	for _, t := range targets {
		g.Go(func() error {
			r, ok := s.fetchOne(ctx, t)
			if !ok {
				s.log.Warn("target skipped this cycle", zap.String("bvid", t.ID))
				return nil
			}
			fields := []zap.Field{
				zap.String("bvid", t.ID),
				zap.String("title", r.Video.Title),
				zap.Int64("duration", r.Video.Duration),
				zap.Int64("views", r.Video.Views),
			}
			if r.Online != nil {
				fields = append(fields, zap.Int64("online", *r.Online))
			} else {
				fields = append(fields, zap.String("online_skipped", r.SkipReason))
			}
			s.log.Info("target fetched", fields...)
			mu.Lock()
			results[t.ID] = r
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		s.log.Warn("cycle deadline reached", zap.Duration("timeout", s.opts.CycleTimeout),
			zap.Int("fetched", len(results)), zap.Int("targets", len(targets)))
	}
	return results
}

// fetchOne reports false when the video itself could not be fetched.
func (s *Service) fetchOne(ctx context.Context, t domain.Target) (domain.FetchResult, bool) {
	v, ok := s.fetcher.Video(ctx, t)
	if !ok {
		return domain.FetchResult{}, false
	}
	if v.BVID == "" {
		v.BVID = t.ID
	}
	r := domain.FetchResult{ID: t.ID, Video: v}
	if !v.HasPlayerIDs() {
		r.SkipReason = "missing aid or cid"
		return r, true
	}
	if n, ok := s.fetcher.Online(ctx, v.AID, v.CID); ok {
		r.Online = &n
	} else {
		r.SkipReason = "online lookup failed"
	}
	return r, true
}
