package monitor

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vshulcz/Viewpulse/internal/domain"
	"github.com/vshulcz/Viewpulse/internal/services/batch"
	"github.com/vshulcz/Viewpulse/internal/services/report"
	"github.com/vshulcz/Viewpulse/internal/telemetry"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type staticSource struct {
	targets []domain.Target
	err     error
	loads   int
}

func (s *staticSource) Load(context.Context) ([]domain.Target, error) {
	s.loads++
	return slices.Clone(s.targets), s.err
}

func targets(ids ...string) []domain.Target {
	out := make([]domain.Target, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.Target{ID: id, Params: "https://www.bilibili.com/video/" + id})
	}
	return out
}

type fakeFetcher struct {
	mu      sync.Mutex
	videos  map[string]domain.Video
	online  map[int64]int64
	delay   time.Duration
	block   bool
	calls   map[string]int
	active  int
	maxSeen int
}

func (f *fakeFetcher) Video(ctx context.Context, t domain.Target) (domain.Video, bool) {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls["video:"+t.ID]++
	f.active++
	f.maxSeen = max(f.maxSeen, f.active)
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()

	if f.block {
		<-ctx.Done()
		return domain.Video{}, false
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	v, ok := f.videos[t.ID]
	return v, ok
}

func (f *fakeFetcher) Online(_ context.Context, aid, _ int64) (int64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[fmt.Sprintf("online:%d", aid)]++
	n, ok := f.online[aid]
	return n, ok
}

type fakePublisher struct {
	mu    sync.Mutex
	calls []map[string]domain.FetchResult
	err   error
}

func (p *fakePublisher) Publish(_ context.Context, results map[string]domain.FetchResult) (batch.Summary, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, maps.Clone(results))
	return batch.Summary{Primary: len(results)}, p.err
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	waits chan time.Duration
	fire  chan time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{
		now:   time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		waits: make(chan time.Duration),
		fire:  make(chan time.Time),
	}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.waits <- d
	return c.fire
}

type eventLog struct {
	mu   sync.Mutex
	evts []report.Event
}

func (l *eventLog) Publish(_ context.Context, evt report.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.evts = append(l.evts, evt)
}

func sampleFetcher() *fakeFetcher {
	return &fakeFetcher{
		videos: map[string]domain.Video{
			"BV1": {BVID: "BV1", Title: "one", Duration: 60, Views: 10, AID: 1, CID: 11},
			"BV2": {BVID: "BV2", Title: "two", Duration: 70, Views: 20, AID: 2, CID: 22},
			"BV3": {BVID: "BV3", Title: "three", Duration: 80, Views: 30},
		},
		online: map[int64]int64{1: 100, 2: 200},
	}
}

func TestCycle_FailureIsolation(t *testing.T) {
	src := &staticSource{targets: targets("BV1", "BVgone", "BV2")}
	pub := &fakePublisher{}
	reports := &eventLog{}
	rec := telemetry.New()
	svc := New(src, sampleFetcher(), pub, Options{Clock: newFakeClock(), Reports: reports, Recorder: rec}, nil)

	evt, err := svc.Cycle(context.Background())
	if err != nil {
		t.Fatalf("Cycle: %v", err)
	}
	if pub.count() != 1 {
		t.Fatalf("publish calls=%d want 1", pub.count())
	}
	got := pub.calls[0]
	if len(got) != 2 || got["BV1"].Online == nil || *got["BV2"].Online != 200 {
		t.Fatalf("published results = %+v", got)
	}
	if !slices.Equal(evt.Failed, []string{"BVgone"}) || !evt.Pushed || evt.Cycle != 1 {
		t.Fatalf("event = %+v", evt)
	}
	if evt.Duration != time.Second {
		t.Fatalf("duration=%v want one fake tick", evt.Duration)
	}
	if len(reports.evts) != 1 {
		t.Fatalf("reports=%d want 1", len(reports.evts))
	}

	const want = `
# HELP viewpulse_cycles_total Fetch-publish cycles by outcome.
# TYPE viewpulse_cycles_total counter
viewpulse_cycles_total{outcome="ok"} 1
`
	if err := testutil.GatherAndCompare(rec.Gatherer(), strings.NewReader(want), "viewpulse_cycles_total"); err != nil {
		t.Fatal(err)
	}
}

func TestCycle_LogsEachFetchedTarget(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	svc := New(&staticSource{targets: targets("BV1", "BVgone", "BV3")}, sampleFetcher(), &fakePublisher{},
		Options{Clock: newFakeClock()}, zap.New(core))

	if _, err := svc.Cycle(context.Background()); err != nil {
		t.Fatalf("Cycle: %v", err)
	}

	fetched := map[string]map[string]any{}
	for _, e := range logs.FilterMessage("target fetched").All() {
		ctx := e.ContextMap()
		id, _ := ctx["bvid"].(string)
		fetched[id] = ctx
	}
	if len(fetched) != 2 {
		t.Fatalf("fetched lines for %v, want BV1 and BV3", slices.Sorted(maps.Keys(fetched)))
	}
	one := fetched["BV1"]
	if one["title"] != "one" || one["duration"] != int64(60) || one["views"] != int64(10) || one["online"] != int64(100) {
		t.Fatalf("BV1 line = %v", one)
	}
	if got := fetched["BV3"]["online_skipped"]; got != "missing aid or cid" {
		t.Fatalf("BV3 online_skipped = %v", got)
	}
	if n := logs.FilterMessage("target skipped this cycle").Len(); n != 1 {
		t.Fatalf("skipped lines=%d want 1", n)
	}
}

func TestCycle_MissingPlayerIDsSkipsOnlineLookup(t *testing.T) {
	f := sampleFetcher()
	pub := &fakePublisher{}
	svc := New(&staticSource{targets: targets("BV3")}, f, pub, Options{Clock: newFakeClock()}, nil)

	if _, err := svc.Cycle(context.Background()); err != nil {
		t.Fatalf("Cycle: %v", err)
	}
	r := pub.calls[0]["BV3"]
	if r.Online != nil || r.SkipReason != "missing aid or cid" {
		t.Fatalf("result = %+v", r)
	}
	for k := range f.calls {
		if strings.HasPrefix(k, "online:") {
			t.Fatalf("unexpected online lookup %s", k)
		}
	}
}

func TestCycle_OnlineFailureKeepsPrimary(t *testing.T) {
	f := sampleFetcher()
	delete(f.online, 2)
	pub := &fakePublisher{}
	svc := New(&staticSource{targets: targets("BV2")}, f, pub, Options{Clock: newFakeClock()}, nil)

	if _, err := svc.Cycle(context.Background()); err != nil {
		t.Fatalf("Cycle: %v", err)
	}
	r, ok := pub.calls[0]["BV2"]
	if !ok || r.Online != nil || r.SkipReason != "online lookup failed" {
		t.Fatalf("result = %+v ok=%v", r, ok)
	}
}

func TestCycle_TargetsErrorSkipsPush(t *testing.T) {
	loadErr := errors.New("open urls.txt: no such file or directory")
	pub := &fakePublisher{}
	reports := &eventLog{}
	svc := New(&staticSource{err: loadErr}, sampleFetcher(), pub, Options{Clock: newFakeClock(), Reports: reports}, nil)

	evt, err := svc.Cycle(context.Background())
	if !errors.Is(err, loadErr) {
		t.Fatalf("err=%v", err)
	}
	if pub.count() != 0 {
		t.Fatalf("publish called %d times", pub.count())
	}
	if evt.Pushed || evt.Error == "" || len(reports.evts) != 1 {
		t.Fatalf("event=%+v reports=%d", evt, len(reports.evts))
	}
}

func TestCycle_SinkErrorReported(t *testing.T) {
	pub := &fakePublisher{err: fmt.Errorf("%w: 502", domain.ErrSink)}
	svc := New(&staticSource{targets: targets("BV1")}, sampleFetcher(), pub, Options{Clock: newFakeClock()}, nil)

	evt, err := svc.Cycle(context.Background())
	if !errors.Is(err, domain.ErrSink) {
		t.Fatalf("err=%v", err)
	}
	if evt.Pushed || evt.PushError == "" || len(evt.Videos) != 1 {
		t.Fatalf("event=%+v", evt)
	}
}

func TestCycle_RateLimit(t *testing.T) {
	for _, limit := range []int{1, 3} {
		t.Run(fmt.Sprintf("limit_%d", limit), func(t *testing.T) {
			f := sampleFetcher()
			f.delay = 20 * time.Millisecond
			ids := []string{"BV1", "BV2", "BV3", "BV4", "BV5", "BV6"}
			svc := New(&staticSource{targets: targets(ids...)}, f, &fakePublisher{},
				Options{Clock: newFakeClock(), RateLimit: limit}, nil)

			if _, err := svc.Cycle(context.Background()); err != nil {
				t.Fatalf("Cycle: %v", err)
			}
			if f.maxSeen > limit {
				t.Fatalf("max concurrent fetches=%d exceeds %d", f.maxSeen, limit)
			}
			for _, id := range ids {
				if f.calls["video:"+id] != 1 {
					t.Fatalf("%s fetched %d times", id, f.calls["video:"+id])
				}
			}
		})
	}
}

func TestCycle_TimeoutStillPublishes(t *testing.T) {
	f := sampleFetcher()
	f.block = true
	pub := &fakePublisher{}
	svc := New(&staticSource{targets: targets("BV1", "BV2")}, f, pub,
		Options{Clock: newFakeClock(), RateLimit: 2, CycleTimeout: 20 * time.Millisecond}, nil)

	evt, err := svc.Cycle(context.Background())
	if err != nil {
		t.Fatalf("Cycle: %v", err)
	}
	if pub.count() != 1 || len(pub.calls[0]) != 0 {
		t.Fatalf("publish calls=%v", pub.calls)
	}
	if len(evt.Failed) != 2 {
		t.Fatalf("failed=%v", evt.Failed)
	}
}

type captureSink struct {
	batches []map[string]float64
}

func (s *captureSink) Push(_ context.Context, g prometheus.Gatherer) error {
	mfs, err := g.Gather()
	if err != nil {
		return err
	}
	flat := map[string]float64{}
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			sort.Strings(labels)
			flat[mf.GetName()+"{"+strings.Join(labels, ",")+"}"] = m.GetGauge().GetValue()
		}
	}
	s.batches = append(s.batches, flat)
	return nil
}

func TestCycle_DeterministicBatches(t *testing.T) {
	sink := &captureSink{}
	svc := New(&staticSource{targets: targets("BV2", "BV1", "BV3", "BVgone")}, sampleFetcher(),
		batch.NewPublisher(sink, nil), Options{Clock: newFakeClock(), RateLimit: 4}, nil)

	for range 2 {
		if _, err := svc.Cycle(context.Background()); err != nil {
			t.Fatalf("Cycle: %v", err)
		}
	}
	if len(sink.batches) != 2 {
		t.Fatalf("pushes=%d", len(sink.batches))
	}
	if !maps.Equal(sink.batches[0], sink.batches[1]) {
		t.Fatalf("batches differ:\n%v\n%v", sink.batches[0], sink.batches[1])
	}
	if len(sink.batches[0]) != 5 {
		t.Fatalf("want 3 info + 2 online observations, got %v", sink.batches[0])
	}
}

func TestRun_LoopsUntilCancelled(t *testing.T) {
	clk := newFakeClock()
	src := &staticSource{targets: targets("BV1")}
	pub := &fakePublisher{err: domain.ErrSink}
	svc := New(src, sampleFetcher(), pub, Options{Clock: clk}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	if d := <-clk.waits; d != DefaultInterval {
		t.Fatalf("waited %v want %v", d, DefaultInterval)
	}
	clk.fire <- time.Time{}
	<-clk.waits
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	if pub.count() != 2 || src.loads != 2 {
		t.Fatalf("publishes=%d loads=%d want 2/2", pub.count(), src.loads)
	}
}

func TestNew_Defaults(t *testing.T) {
	svc := New(&staticSource{}, sampleFetcher(), &fakePublisher{}, Options{}, nil)
	if svc.opts.Interval != DefaultInterval || svc.opts.RateLimit != 1 || svc.opts.Clock == nil {
		t.Fatalf("opts=%+v", svc.opts)
	}
}
