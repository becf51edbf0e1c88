package ports

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// Sink transmits one gathered batch as a unit.
type Sink interface {
	Push(ctx context.Context, g prometheus.Gatherer) error
}
