package domain

import "time"

// Target is one monitored video: a stable identifier plus whatever the source
// line carried alongside it (usually the page or API URL).
type Target struct {
	ID     string
	Params string
}

// Video holds the fields extracted from the video-info endpoint.
// AID and CID are zero when the upstream payload did not carry them.
type Video struct {
	BVID     string `json:"bvid"`
	Title    string `json:"title"`
	Duration int64  `json:"duration"`
	Views    int64  `json:"views"`
	AID      int64  `json:"aid,omitempty"`
	CID      int64  `json:"cid,omitempty"`
}

// HasPlayerIDs reports whether the online-count lookup can be attempted.
func (v Video) HasPlayerIDs() bool {
	return v.AID != 0 && v.CID != 0
}

// FetchResult is the outcome of a successful primary fetch for one target.
type FetchResult struct {
	ID    string
	Video Video
	// Online is nil when the online-count lookup was skipped or failed.
	Online *int64
	// SkipReason says why Online is nil.
	SkipReason string
}

// Snapshot is one archived observation of a video.
type Snapshot struct {
	Cycle      uint64    `json:"cycle"`
	ObservedAt time.Time `json:"observed_at"`
	BVID       string    `json:"bvid"`
	Title      string    `json:"title"`
	Duration   int64     `json:"duration"`
	Views      int64     `json:"views"`
	Online     *int64    `json:"online,omitempty"`
}
