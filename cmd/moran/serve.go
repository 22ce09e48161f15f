package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/freeeve/reward-moran/internal/handler"
	"github.com/freeeve/reward-moran/internal/model"
	"github.com/freeeve/reward-moran/internal/repository/redis"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Relay progress published to Redis by running experiments over WebSocket",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if cmd.Flags().Changed("redis") {
				cfg.RedisURL, _ = cmd.Flags().GetString("redis")
			}
			if cmd.Flags().Changed("listen") {
				cfg.ListenAddr, _ = cmd.Flags().GetString("listen")
			}
			if cfg.RedisURL == "" {
				return &model.ConfigurationError{Field: "redis", Reason: "required"}
			}
			if cfg.ListenAddr == "" {
				cfg.ListenAddr = ":8009"
			}

			ctx, cancel := signalContext()
			defer cancel()

			rc, err := redis.NewClient(ctx, cfg.RedisURL)
			if err != nil {
				return err
			}
			defer rc.Close()

			hub := handler.NewHub()
			stop, err := serveProgress(cfg.ListenAddr, handler.NewRouter(hub, rc))
			if err != nil {
				return err
			}
			defer stop()

			if err := rc.RelayEvents(ctx, hub.Publish); err != nil {
				return err
			}
			log.Info().Msg("Progress relay stopped")
			return nil
		},
	}
	cmd.Flags().String("redis", "", "Redis URL to read progress from")
	cmd.Flags().String("listen", "", "Listen address (default :8009)")
	return cmd
}
