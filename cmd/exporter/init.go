package main

import (
	"context"
	"database/sql"
	"net/url"
	"regexp"
	"strings"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/vshulcz/Viewpulse/internal/adapters/report/file"
	"github.com/vshulcz/Viewpulse/internal/adapters/report/memory"
	pgreport "github.com/vshulcz/Viewpulse/internal/adapters/report/postgres"
	"github.com/vshulcz/Viewpulse/internal/adapters/report/remote"
	filesrc "github.com/vshulcz/Viewpulse/internal/adapters/targets/file"
	"github.com/vshulcz/Viewpulse/internal/adapters/targets/static"
	"github.com/vshulcz/Viewpulse/internal/config"
	"github.com/vshulcz/Viewpulse/internal/misc"
	"github.com/vshulcz/Viewpulse/internal/ports"
	"github.com/vshulcz/Viewpulse/internal/services/report"
)

// buildTargets prefers the static list when one is configured.
func buildTargets(cfg config.ExporterConfig, logger *zap.Logger) ports.TargetSource {
	if len(cfg.StaticTargets) > 0 {
		src := static.New(cfg.StaticTargets)
		logger.Info("using static targets", zap.Int("count", len(cfg.StaticTargets)))
		return src
	}
	logger.Info("using targets file", zap.String("path", cfg.TargetsFile))
	return filesrc.New(cfg.TargetsFile, logger)
}

type reportSinks struct {
	Subject *report.Subject
	Memory  *memory.Store
	Archive ports.Archive

	db *sql.DB
}

func (r *reportSinks) Close() {
	if r.db != nil {
		_ = r.db.Close()
	}
}

// buildReports attaches every configured report observer. A broken archive
// is logged and left out rather than stopping the exporter.
func buildReports(ctx context.Context, cfg config.ExporterConfig, logger *zap.Logger) (*reportSinks, error) {
	out := &reportSinks{
		Subject: report.NewSubject(logger),
		Memory:  memory.New(memory.DefaultCapacity),
	}
	out.Subject.Attach("memory", out.Memory)

	if cfg.ReportFile != "" {
		out.Subject.Attach("file", file.New(cfg.ReportFile))
	}
	if cfg.ReportURL != "" {
		rc, err := remote.New(cfg.ReportURL, cfg.Key, nil)
		if err != nil {
			return nil, err
		}
		out.Subject.Attach("remote", rc)
	}
	if cfg.DSN != "" {
		if db, archive, err := openArchive(ctx, cfg.DSN); err != nil {
			logger.Warn("snapshot archive disabled", zap.Error(err))
		} else {
			logger.Info("db connected & migrated")
			out.db = db
			out.Archive = archive
			out.Subject.Attach("postgres", archive)
		}
	}
	logger.Info("report observers ready", zap.Strings("observers", out.Subject.Names()))
	return out, nil
}

func openArchive(ctx context.Context, dsn string) (*sql.DB, *pgreport.Archive, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, nil, err
	}
	op := func() error {
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		return pgreport.Migrate(db)
	}
	if err := misc.Retry(ctx, misc.DefaultBackoff, pgreport.IsRetryable, op); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return db, pgreport.New(db), nil
}

var dsnPassword = regexp.MustCompile(`password=\S+`)

// redactDSN hides the password in URL and keyword/value DSNs.
func redactDSN(dsn string) string {
	if dsn == "" {
		return ""
	}
	if strings.Contains(dsn, "://") {
		if u, err := url.Parse(dsn); err == nil {
			return u.Redacted()
		}
	}
	return dsnPassword.ReplaceAllString(dsn, "password=xxxxx")
}
