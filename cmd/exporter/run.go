package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vshulcz/Viewpulse/internal/adapters/bilibili"
	"github.com/vshulcz/Viewpulse/internal/adapters/http/ginserver"
	"github.com/vshulcz/Viewpulse/internal/adapters/http/ginserver/middlewares"
	"github.com/vshulcz/Viewpulse/internal/adapters/publisher/pushgateway"
	"github.com/vshulcz/Viewpulse/internal/config"
	"github.com/vshulcz/Viewpulse/internal/logging"
	"github.com/vshulcz/Viewpulse/internal/services/batch"
	"github.com/vshulcz/Viewpulse/internal/services/fetch"
	"github.com/vshulcz/Viewpulse/internal/services/monitor"
	"github.com/vshulcz/Viewpulse/internal/telemetry"
	"github.com/vshulcz/Viewpulse/pkg/buildinfo"
)

const shutdownTimeout = 5 * time.Second

// run blocks until ctx is cancelled or the status server fails.
func run(ctx context.Context, args []string, stdout io.Writer) error {
	cfg, err := config.LoadExporterConfig(args, stdout)
	if err != nil {
		return err
	}

	logger, closeLog, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile, Console: stdout})
	if err != nil {
		return err
	}
	defer closeLog()

	logger.Info("exporter starting", buildinfo.Info{Version: buildVersion, Date: buildDate, Commit: buildCommit}.Fields()...)
	logger.Info("exporter config",
		zap.String("gateway", cfg.GatewayURL),
		zap.String("job", cfg.Job),
		zap.String("instance", cfg.Instance),
		zap.Duration("interval", cfg.Interval),
		zap.Int("attempts", cfg.Attempts),
		zap.Duration("retry_delay", cfg.RetryDelay),
		zap.Int("rate_limit", cfg.RateLimit),
		zap.String("dsn", redactDSN(cfg.DSN)))

	rec := telemetry.New()
	reports, err := buildReports(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer reports.Close()

	api := bilibili.New(cfg.APIBase, cfg.UserAgent, cfg.RequestTimeout, nil)
	sink := pushgateway.New(cfg.GatewayURL, cfg.Job, cfg.Instance, &http.Client{Timeout: cfg.RequestTimeout})
	svc := monitor.New(
		buildTargets(cfg, logger),
		fetch.New(api, cfg.Attempts, cfg.RetryDelay, logger, rec),
		batch.NewPublisher(sink, logger),
		monitor.Options{
			Interval:     cfg.Interval,
			RateLimit:    cfg.RateLimit,
			CycleTimeout: cfg.CycleTimeout,
			Reports:      reports.Subject,
			Recorder:     rec,
		},
		logger,
	)

	var (
		srv *http.Server
		ln  net.Listener
	)
	if cfg.StatusAddr != "" {
		gin.SetMode(gin.ReleaseMode)
		h := ginserver.NewHandler(reports.Memory, reports.Archive)
		router := ginserver.NewRouter(h, rec.Gatherer(),
			middlewares.ZapLogger(logger),
			middlewares.Gzip(),
			middlewares.SignResponse(cfg.Key),
		)
		srv = &http.Server{Addr: cfg.StatusAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}
		if ln, err = net.Listen("tcp", cfg.StatusAddr); err != nil {
			return fmt.Errorf("status server: %w", err)
		}
		logger.Info("status server listening", zap.String("addr", ln.Addr().String()))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return svc.Run(gctx) })
	if srv != nil {
		g.Go(func() error {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("status server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	err = g.Wait()
	logger.Info("exporter stopped")
	return err
}
