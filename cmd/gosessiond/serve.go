package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/internal/appconfig"
	"github.com/MrEthical07/goSession/internal/httpapi"
	"github.com/MrEthical07/goSession/internal/obs"
	otelexport "github.com/MrEthical07/goSession/metrics/export/otel"
	promexport "github.com/MrEthical07/goSession/metrics/export/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the session HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.Load(*configPath)
			if err != nil {
				return err
			}
			log, err := obs.NewLogger(cfg.AsLoggerConfig())
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			return serve(cmd.Context(), cfg, log)
		},
	}
}

func serve(ctx context.Context, cfg *appconfig.Config, log *zap.Logger) error {
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		client, err := openRedis(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()
		rdb = client
	}

	be, err := openStore(ctx, cfg.Store.Driver, cfg, rdb, log)
	if err != nil {
		return err
	}
	defer be.close()

	builder := goSession.New().
		WithConfig(cfg.ToEngineConfig()).
		WithStore(be.store).
		WithLogger(log).
		WithAuditSink(goSession.NewZapSink(log))
	if rdb != nil {
		builder = builder.WithRedis(rdb)
	} else if cfg.Throttle.Login || cfg.Throttle.Refresh {
		log.Warn("throttles configured without redis.addr; login and refresh are not rate limited")
	}
	engine, err := builder.Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	mp, err := obs.NewMeterProvider(ctx, cfg.OTEL.AsOTELConfig())
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mp.Shutdown(sctx); err != nil {
			log.Warn("meter provider shutdown", zap.Error(err))
		}
	}()
	if cfg.OTEL.Enable {
		exp, err := otelexport.NewExporter(mp.Meter("github.com/MrEthical07/goSession"), engine)
		if err != nil {
			return err
		}
		defer func() { _ = exp.Close() }()
	}

	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		metricsHandler = promexport.Handler(promexport.NewCollector(engine))
	}

	api, err := httpapi.New(engine, httpapi.Options{
		Log:            log,
		RequestTimeout: cfg.HTTP.RequestTimeout,
		Metrics:        metricsHandler,
		Ready:          be.ready,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      api.Routes(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http listening", zap.String("addr", srv.Addr), zap.String("store", cfg.Store.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.GracefulTimeout)
	defer cancel()
	return srv.Shutdown(sctx)
}
