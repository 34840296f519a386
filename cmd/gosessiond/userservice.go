package main

import (
	"fmt"

	"github.com/MrEthical07/goSession/internal/appconfig"
	"github.com/MrEthical07/goSession/internal/obs"
	"github.com/MrEthical07/goSession/store/natsstore"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newUserServiceCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "user-service",
		Short: "Serve the user store to remote engines over NATS",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.NATS.URL == "" {
				return appconfig.ErrMissingNATSURL
			}
			log, err := obs.NewLogger(cfg.AsLoggerConfig())
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			if cfg.NATS.Backend == "nats" {
				return appconfig.ErrConfig("nats.backend cannot be nats")
			}

			ctx := cmd.Context()
			be, err := openStore(ctx, cfg.NATS.Backend, cfg, nil, log)
			if err != nil {
				return err
			}
			defer be.close()

			nc, err := nats.Connect(cfg.NATS.URL, nats.Name(cfg.App.Name+"-user-service"), nats.MaxReconnects(-1))
			if err != nil {
				return fmt.Errorf("connect nats: %w", err)
			}
			defer nc.Close()

			responder := natsstore.NewResponder(nc, be.store, natsstore.ResponderConfig{
				Prefix:         cfg.NATS.Prefix,
				Queue:          cfg.NATS.Queue,
				HandlerTimeout: cfg.NATS.HandlerTimeout,
			}, log)
			if err := responder.Start(ctx); err != nil {
				return err
			}
			defer responder.Close()

			log.Info("user service ready",
				zap.String("prefix", cfg.NATS.Prefix),
				zap.String("backend", cfg.NATS.Backend),
			)
			<-ctx.Done()
			return nil
		},
	}
}
