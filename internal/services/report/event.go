// Package report describes what happened in one monitoring cycle and fans
// that description out to the configured report sinks.
package report

import (
	"slices"
	"time"

	"github.com/vshulcz/Viewpulse/internal/domain"
)

// Video is one fetched target as it went into the batch.
type Video struct {
	BVID     string `json:"bvid"`
	Title    string `json:"title"`
	Duration int64  `json:"duration"`
	Views    int64  `json:"views"`
	Online   *int64 `json:"online,omitempty"`
}

// Event is the outcome of one cycle.
type Event struct {
	Cycle     uint64        `json:"cycle"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
	Targets   int           `json:"targets"`
	Videos    []Video       `json:"videos"`
	Failed    []string      `json:"failed,omitempty"`
	Pushed    bool          `json:"pushed"`
	PushError string        `json:"push_error,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// NewEvent builds the event for a finished fetch phase. Targets that produced
// no result are listed in Failed, in target order.
func NewEvent(cycle uint64, started time.Time, targets []domain.Target, results map[string]domain.FetchResult) Event {
	evt := Event{
		Cycle:     cycle,
		StartedAt: started.UTC(),
		Targets:   len(targets),
		Videos:    make([]Video, 0, len(results)),
	}
	for _, t := range targets {
		r, ok := results[t.ID]
		if !ok {
			evt.Failed = append(evt.Failed, t.ID)
			continue
		}
		evt.Videos = append(evt.Videos, Video{
			BVID:     r.ID,
			Title:    r.Video.Title,
			Duration: r.Video.Duration,
			Views:    r.Video.Views,
			Online:   r.Online,
		})
	}
	slices.SortFunc(evt.Videos, func(a, b Video) int {
		switch {
		case a.BVID < b.BVID:
			return -1
		case a.BVID > b.BVID:
			return 1
		}
		return 0
	})
	return evt
}
