// Package bilibili is a thin client for the two public web API endpoints the
// exporter reads: video info and the player's online-viewer total.
package bilibili

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"

	"github.com/vshulcz/Viewpulse/internal/domain"
	"github.com/vshulcz/Viewpulse/internal/ports"
)

const (
	viewPath   = "/x/web-interface/view"
	onlinePath = "/x/player/online/total"
)

// Client issues single GET requests; retrying is the caller's business.
type Client struct {
	rc *resty.Client
}

var _ ports.VideoAPI = (*Client)(nil)

// New builds a client against baseURL. Every request carries userAgent and
// is bounded by timeout. hc may be nil; it is copied, so the caller's
// Timeout stays untouched.
func New(baseURL, userAgent string, timeout time.Duration, hc *http.Client) *Client {
	var rc *resty.Client
	if hc != nil {
		own := *hc
		rc = resty.NewWithClient(&own)
	} else {
		rc = resty.New()
	}
	rc.SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json")
	return &Client{rc: rc}
}

type envelope[T any] struct {
	Code    *int   `json:"code"`
	Message string `json:"message"`
	Data    *T     `json:"data"`
}

type viewData struct {
	BVID     string  `json:"bvid"`
	Title    *string `json:"title"`
	Duration *int64  `json:"duration"`
	AID      int64   `json:"aid"`
	CID      int64   `json:"cid"`
	Stat     *struct {
		View *int64 `json:"view"`
	} `json:"stat"`
}

type onlineData struct {
	Count *looseInt `json:"count"`
	Total string    `json:"total"`
}

// Video fetches /x/web-interface/view for bvid.
func (c *Client) Video(ctx context.Context, bvid string) (domain.Video, error) {
	d, err := get[viewData](ctx, c, viewPath, map[string]string{"bvid": bvid})
	if err != nil {
		return domain.Video{}, err
	}
	switch {
	case d.Stat == nil || d.Stat.View == nil:
		return domain.Video{}, fmt.Errorf("%w: missing data.stat.view", domain.ErrMalformed)
	case d.Title == nil:
		return domain.Video{}, fmt.Errorf("%w: missing data.title", domain.ErrMalformed)
	case !utf8.ValidString(*d.Title):
		return domain.Video{}, fmt.Errorf("%w: data.title is not valid UTF-8", domain.ErrMalformed)
	case d.Duration == nil:
		return domain.Video{}, fmt.Errorf("%w: missing data.duration", domain.ErrMalformed)
	}
	return domain.Video{
		BVID:     bvid,
		Title:    *d.Title,
		Duration: *d.Duration,
		Views:    *d.Stat.View,
		AID:      d.AID,
		CID:      d.CID,
	}, nil
}

// Online fetches the current online-viewer count for a video part.
// A payload without data.count reads as zero viewers.
func (c *Client) Online(ctx context.Context, aid, cid int64) (int64, error) {
	d, err := get[onlineData](ctx, c, onlinePath, map[string]string{
		"aid": strconv.FormatInt(aid, 10),
		"cid": strconv.FormatInt(cid, 10),
	})
	if err != nil {
		return 0, err
	}
	if d.Count == nil {
		return 0, nil
	}
	return int64(*d.Count), nil
}

// get performs one GET and unwraps the common {code, message, data} envelope.
func get[T any](ctx context.Context, c *Client, path string, query map[string]string) (*T, error) {
	resp, err := c.rc.R().
		SetContext(ctx).
		SetQueryParams(query).
		Get(path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrTransport, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%w: status %s", domain.ErrUpstream, resp.Status())
	}

	var env envelope[T]
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", domain.ErrMalformed, err)
	}
	if env.Code == nil {
		return nil, fmt.Errorf("%w: missing code", domain.ErrMalformed)
	}
	if *env.Code != 0 {
		return nil, fmt.Errorf("%w: code %d: %s", domain.ErrUpstream, *env.Code, env.Message)
	}
	if env.Data == nil {
		return nil, fmt.Errorf("%w: missing data", domain.ErrMalformed)
	}
	return env.Data, nil
}

// looseInt accepts 12, "12" and "1000+".
type looseInt int64

func (n *looseInt) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	s = strings.Trim(s, `"`)
	s = strings.TrimSuffix(strings.TrimSpace(s), "+")
	if s == "" {
		*n = 0
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return fmt.Errorf("count %q: %w", s, err)
		}
		v = int64(f)
	}
	*n = looseInt(v)
	return nil
}
