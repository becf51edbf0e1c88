package ports

import (
	"context"

	"github.com/vshulcz/Viewpulse/internal/domain"
)

// TargetSource yields the targets for one cycle. It is called once per cycle.
type TargetSource interface {
	Load(ctx context.Context) ([]domain.Target, error)
}

// VideoAPI performs single, unretried upstream calls.
type VideoAPI interface {
	Video(ctx context.Context, bvid string) (domain.Video, error)
	Online(ctx context.Context, aid, cid int64) (int64, error)
}

// Fetcher wraps VideoAPI with retries; false means the attempts ran out.
type Fetcher interface {
	Video(ctx context.Context, t domain.Target) (domain.Video, bool)
	Online(ctx context.Context, aid, cid int64) (int64, bool)
}
