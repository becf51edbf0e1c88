// Package remote posts cycle reports to a webhook.
package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"

	"github.com/vshulcz/Viewpulse/internal/misc"
	"github.com/vshulcz/Viewpulse/internal/services/report"
)

// SignatureHeader carries the hex HMAC-SHA256 of the body when a key is set.
const SignatureHeader = "HashSHA256"

type Client struct {
	endpoint string
	key      string
	rc       *resty.Client
}

var _ report.Observer = (*Client)(nil)

// New validates the endpoint and returns a Client posting there.
func New(rawURL, key string, hc *http.Client) (*Client, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, fmt.Errorf("report url is empty")
	}
	if _, err := url.ParseRequestURI(rawURL); err != nil {
		return nil, fmt.Errorf("invalid report url: %w", err)
	}
	if hc == nil {
		hc = &http.Client{Timeout: 5 * time.Second}
	}
	rc := resty.NewWithClient(hc).
		SetHeader("Content-Type", "application/json")
	return &Client{endpoint: rawURL, key: strings.TrimSpace(key), rc: rc}, nil
}

func (c *Client) Notify(ctx context.Context, evt report.Event) error {
	if c == nil {
		return nil
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	req := c.rc.R().SetContext(ctx).SetBody(payload)
	if c.key != "" {
		req.SetHeader(SignatureHeader, misc.SignSHA256(payload, c.key))
	}
	resp, err := req.Post(c.endpoint)
	if err != nil {
		return fmt.Errorf("report post: %w", err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return fmt.Errorf("report post status %d", resp.StatusCode())
	}
	return nil
}
