// Package batch turns one cycle's fetch results into a metric batch and
// hands it to the sink in a single push.
package batch

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/vshulcz/Viewpulse/internal/domain"
	"github.com/vshulcz/Viewpulse/internal/logging"
	"github.com/vshulcz/Viewpulse/internal/ports"
)

// Metric names as they appear on the gateway.
const (
	InfoMetric   = "bilibili_video_info"
	OnlineMetric = "bilibili_video_online_count"
)

// Batch is one cycle's observations on a registry of its own.
type Batch struct {
	reg    *prometheus.Registry
	info   *prometheus.GaugeVec
	online *prometheus.GaugeVec

	primary   int
	secondary int
}

func newBatch() *Batch {
	b := &Batch{
		reg: prometheus.NewRegistry(),
		info: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: InfoMetric,
			Help: "Bilibili video information",
		}, []string{"bvid", "title", "duration"}),
		online: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: OnlineMetric,
			Help: "Bilibili video online count",
		}, []string{"title"}),
	}
	b.reg.MustRegister(b.info, b.online)
	return b
}

// Gatherer is what the sink reads.
func (b *Batch) Gatherer() prometheus.Gatherer { return b.reg }

// Primary is the number of video-info observations.
func (b *Batch) Primary() int { return b.primary }

// Secondary is the number of online-count observations.
func (b *Batch) Secondary() int { return b.secondary }

// Summary describes what one Publish call sent.
type Summary struct {
	Primary   int
	Secondary int
}

// Assembler builds batches; it keeps no state between calls.
type Assembler struct {
	log *zap.Logger
}

// NewAssembler returns an Assembler; log may be nil.
func NewAssembler(log *zap.Logger) *Assembler {
	return &Assembler{log: logging.OrNop(log)}
}

// Assemble records one info observation per result and an online observation
// for each result whose lookup succeeded. A result whose labels the registry
// rejects is logged and left out. IDs are visited in sorted order, so
// equal inputs produce equal batches.
func (a *Assembler) Assemble(results map[string]domain.FetchResult) *Batch {
	b := newBatch()

	ids := make([]string, 0, len(results))
	for id := range results {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	titles := make(map[string]string, len(ids))
	for _, id := range ids {
		r := results[id]
		v := r.Video
		g, err := b.info.GetMetricWithLabelValues(id, v.Title, strconv.FormatInt(v.Duration, 10))
		if err != nil {
			a.log.Warn("video not recorded", zap.String("bvid", id), zap.Error(err))
			continue
		}
		g.Set(float64(v.Views))
		b.primary++

		if r.Online == nil {
			reason := r.SkipReason
			if reason == "" && !v.HasPlayerIDs() {
				reason = "missing aid or cid"
			}
			a.log.Warn("online count not recorded", zap.String("bvid", id), zap.String("title", v.Title), zap.String("reason", reason))
			continue
		}
		if owner, taken := titles[v.Title]; taken {
			a.log.Warn("online count not recorded", zap.String("bvid", id), zap.String("title", v.Title),
				zap.String("reason", "title already used by "+owner))
			continue
		}
		og, err := b.online.GetMetricWithLabelValues(v.Title)
		if err != nil {
			a.log.Warn("online count not recorded", zap.String("bvid", id), zap.Error(err))
			continue
		}
		titles[v.Title] = id
		og.Set(float64(*r.Online))
		b.secondary++
	}
	return b
}

// Publisher assembles a fresh batch per call and pushes it once.
type Publisher struct {
	asm  *Assembler
	sink ports.Sink
	log  *zap.Logger
}

// NewPublisher pushes assembled batches to sink; log may be nil.
func NewPublisher(sink ports.Sink, log *zap.Logger) *Publisher {
	log = logging.OrNop(log)
	return &Publisher{asm: NewAssembler(log), sink: sink, log: log}
}

// Publish pushes every result as one batch. A push error is returned wrapped
// in domain.ErrSink; nothing is retried here.
func (p *Publisher) Publish(ctx context.Context, results map[string]domain.FetchResult) (Summary, error) {
	b := p.asm.Assemble(results)
	sum := Summary{Primary: b.Primary(), Secondary: b.Secondary()}
	if err := p.sink.Push(ctx, b.Gatherer()); err != nil {
		return sum, fmt.Errorf("%w: %w", domain.ErrSink, err)
	}
	p.log.Info("batch pushed", zap.Int("videos", sum.Primary), zap.Int("online", sum.Secondary))
	return sum, nil
}
