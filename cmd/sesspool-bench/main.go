// Command sesspool-bench generates publish load on NATS through a sesspool connection pool.
//
// Pool limits are read from SESSPOOL_POOL_* variables (SESSPOOL_POOL_MAX_CONNECTIONS,
// SESSPOOL_POOL_MAX_SESSIONS_PER_CONNECTION, ...), everything else from SESSPOOL_* variables
// or sesspool-bench.yaml. A .env file in the working directory is loaded first.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/derElektrobesen/sesspool"
	"github.com/derElektrobesen/sesspool/logadapter"
	"github.com/derElektrobesen/sesspool/natspool"
	"github.com/derElektrobesen/sesspool/poolmetrics"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v3/process"
	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "can't load .env")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	poolCfg, err := sesspool.NewConfigFromEnv("SESSPOOL_POOL_")
	if err != nil {
		return err
	}
	poolCfg.Logger = logadapter.Zap(logger)

	pool := natspool.NewPool(natspool.Config{
		PoolConfig:     poolCfg,
		URL:            cfg.NATS.URL,
		Name:           cfg.NATS.Name,
		ConnectTimeout: cfg.NATS.ConnectTimeout,
		MaxReconnects:  cfg.NATS.MaxReconnects,
	})
	defer pool.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Load.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Load.Duration)
		defer cancel()
	}

	if cfg.Metrics.Enabled {
		srv := newMetricsServer(cfg.Metrics, pool)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
		defer srv.Close()
	}

	if err := pool.Start(ctx); err != nil {
		logger.Warn("can't open all connections on startup", zap.Error(err))
	}

	b := &bench{
		pool:    pool,
		limiter: rate.NewLimiter(rate.Limit(cfg.Load.Rate), cfg.Load.Burst),
		logger:  logger,
		subject: cfg.Load.Subject,
		payload: make([]byte, cfg.Load.PayloadSize),
		session: sesspool.SessionConfig{Transacted: cfg.Load.Transacted},
	}

	logger.Info("starting load",
		zap.Int("workers", cfg.Load.Workers),
		zap.Float64("rate", cfg.Load.Rate),
		zap.Int("max_connections", poolCfg.MaxConnections),
		zap.Int("max_sessions_per_connection", poolCfg.MaxSessionsPerConnection))

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < cfg.Load.Workers; i++ {
		g.Go(func() error { return b.worker(gctx) })
	}
	g.Go(func() error {
		reportLoop(gctx, logger, b, cfg.Load.ReportInterval)
		return nil
	})

	err = g.Wait()
	report(logger, b)

	return err
}

func newMetricsServer(cfg metricsSection, src poolmetrics.StatsSource) *http.Server {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		poolmetrics.NewCollector("sesspool", nil, src),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	mux := http.NewServeMux()
	mux.Handle(cfg.Endpoint, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func reportLoop(ctx context.Context, logger *zap.Logger, b *bench, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report(logger, b)
		}
	}
}

func report(logger *zap.Logger, b *bench) {
	st := b.pool.Stats()
	fields := []zap.Field{
		zap.Uint64("published", b.res.published.Load()),
		zap.Uint64("exhausted", b.res.exhausted.Load()),
		zap.Uint64("failed", b.res.failed.Load()),
		zap.Uint64("invalidated", b.res.invalidate.Load()),
		zap.Int("connections", st.Connections),
		zap.Int("active_sessions", st.ActiveSessions),
		zap.Uint64("connect_failures", st.ConnectFailures),
	}

	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if mem, err := proc.MemoryInfo(); err == nil {
			fields = append(fields, zap.Uint64("rss_bytes", mem.RSS))
		}
		if cpu, err := proc.CPUPercent(); err == nil {
			fields = append(fields, zap.Float64("cpu_percent", cpu))
		}
		if threads, err := proc.NumThreads(); err == nil {
			fields = append(fields, zap.Int32("threads", threads))
		}
	}

	logger.Info("load report", fields...)
}
