// Package pushgateway delivers metric batches to a Prometheus Pushgateway.
package pushgateway

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/vshulcz/Viewpulse/internal/ports"
)

const DefaultJob = "bilibili_monitoring"

// Client pushes a whole batch with PUT, replacing the job's group.
type Client struct {
	url      string
	job      string
	instance string
	hc       *http.Client
}

var _ ports.Sink = (*Client)(nil)

// New normalizes the gateway address and returns a Client. An empty instance
// pushes without the instance grouping label.
func New(gatewayURL, job, instance string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	if strings.TrimSpace(job) == "" {
		job = DefaultJob
	}
	return &Client{
		url:      normalizeBase(gatewayURL),
		job:      job,
		instance: strings.TrimSpace(instance),
		hc:       hc,
	}
}

func normalizeBase(s string) string {
	s = strings.TrimRight(strings.TrimSpace(s), "/")
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return s
	}
	return "http://" + s
}

// Push sends every family g gathers as one request.
func (c *Client) Push(ctx context.Context, g prometheus.Gatherer) error {
	p := push.New(c.url, c.job).Gatherer(g).Client(c.hc)
	if c.instance != "" {
		p = p.Grouping("instance", c.instance)
	}
	if err := p.PushContext(ctx); err != nil {
		return fmt.Errorf("push to %s: %w", c.url, err)
	}
	return nil
}
