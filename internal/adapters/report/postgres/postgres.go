// Package postgres archives cycle reports and per-video snapshots.
package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"

	"github.com/vshulcz/Viewpulse/internal/domain"
	"github.com/vshulcz/Viewpulse/internal/misc"
	"github.com/vshulcz/Viewpulse/internal/ports"
	"github.com/vshulcz/Viewpulse/internal/services/report"
)

const DefaultRecentLimit = 50

// Archive writes one cycles row and one snapshot row per video per report.
type Archive struct {
	db      *sql.DB
	backoff []time.Duration
}

var (
	_ report.Observer = (*Archive)(nil)
	_ ports.Archive   = (*Archive)(nil)
)

var retryablePGCodes = map[string]struct{}{
	pgerrcode.ConnectionException:                     {},
	pgerrcode.ConnectionFailure:                       {},
	pgerrcode.SQLClientUnableToEstablishSQLConnection: {},
	pgerrcode.TransactionResolutionUnknown:            {},
	pgerrcode.SerializationFailure:                    {},
	pgerrcode.DeadlockDetected:                        {},
	pgerrcode.LockNotAvailable:                        {},
	pgerrcode.TooManyConnections:                      {},
	pgerrcode.AdminShutdown:                           {},
	pgerrcode.CrashShutdown:                           {},
	pgerrcode.CannotConnectNow:                        {},
}

func New(db *sql.DB) *Archive {
	return &Archive{db: db, backoff: misc.DefaultBackoff}
}

// Notify stores evt in a single transaction.
func (a *Archive) Notify(ctx context.Context, evt report.Event) error {
	const qCycle = `
INSERT INTO cycles (cycle, started_at, duration_ms, targets, failed, pushed, push_error)
VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''))`
	const qSnap = `
INSERT INTO video_snapshots (cycle, observed_at, bvid, title, duration, views, online)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	attempt := func() error {
		tx, err := a.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
		if err != nil {
			return err
		}
		defer func() {
			_ = tx.Rollback()
		}()

		if _, err := tx.ExecContext(ctx, qCycle, int64(evt.Cycle), evt.StartedAt,
			evt.Duration.Milliseconds(), evt.Targets, len(evt.Failed), evt.Pushed, evt.PushError); err != nil {
			return err
		}
		for _, v := range evt.Videos {
			var online sql.NullInt64
			if v.Online != nil {
				online = sql.NullInt64{Int64: *v.Online, Valid: true}
			}
			if _, err := tx.ExecContext(ctx, qSnap, int64(evt.Cycle), evt.StartedAt,
				v.BVID, v.Title, v.Duration, v.Views, online); err != nil {
				return err
			}
		}
		return tx.Commit()
	}
	return misc.Retry(ctx, a.backoff, isRetryablePG, attempt)
}

// Recent returns up to limit snapshots of bvid, newest first. An unknown
// video yields domain.ErrNotFound.
func (a *Archive) Recent(ctx context.Context, bvid string, limit int) ([]domain.Snapshot, error) {
	const q = `
SELECT cycle, observed_at, bvid, title, duration, views, online
FROM video_snapshots
WHERE bvid = $1
ORDER BY observed_at DESC, id DESC
LIMIT $2`
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	var out []domain.Snapshot
	op := func() error {
		rows, err := a.db.QueryContext(ctx, q, bvid, limit)
		if err != nil {
			return err
		}
		defer func() {
			_ = rows.Close()
		}()

		got := make([]domain.Snapshot, 0, limit)
		for rows.Next() {
			var (
				s      domain.Snapshot
				cycle  int64
				online sql.NullInt64
			)
			if err := rows.Scan(&cycle, &s.ObservedAt, &s.BVID, &s.Title, &s.Duration, &s.Views, &online); err != nil {
				return err
			}
			s.Cycle = uint64(cycle)
			if online.Valid {
				v := online.Int64
				s.Online = &v
			}
			got = append(got, s)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		out = got
		return nil
	}
	if err := misc.Retry(ctx, a.backoff, isRetryablePG, op); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, domain.ErrNotFound
	}
	return out, nil
}

// Ping checks the connection with a one-second deadline.
func (a *Archive) Ping(ctx context.Context) error {
	if a.db == nil {
		return errors.New("db not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	return misc.Retry(ctx, a.backoff, isRetryablePG, func() error {
		return a.db.PingContext(ctx)
	})
}

// IsRetryable reports whether err is a transient Postgres or network failure.
func IsRetryable(err error) bool {
	return isRetryablePG(err)
}

func isRetryablePG(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var pqe *pq.Error
	if errors.As(err, &pqe) {
		code := string(pqe.Code)
		if _, ok := retryablePGCodes[code]; ok {
			return true
		}
		// connection exception and transaction rollback classes
		return strings.HasPrefix(code, "08") || strings.HasPrefix(code, "40")
	}
	return false
}
