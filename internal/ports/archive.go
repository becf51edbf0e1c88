package ports

import (
	"context"

	"github.com/vshulcz/Viewpulse/internal/domain"
)

// Archive answers history queries over stored snapshots.
type Archive interface {
	Recent(ctx context.Context, bvid string, limit int) ([]domain.Snapshot, error)
	Ping(ctx context.Context) error
}
