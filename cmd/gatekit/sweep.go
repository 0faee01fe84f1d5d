package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/gatekit/internal/config"
	"github.com/dropDatabas3/gatekit/internal/observability/logger"
	"github.com/dropDatabas3/gatekit/internal/store"
	_ "github.com/dropDatabas3/gatekit/internal/store/memory"
	_ "github.com/dropDatabas3/gatekit/internal/store/pg"
	"github.com/dropDatabas3/gatekit/internal/sweeper"
)

func newSweepCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Elimina states y sesiones vencidos (una pasada)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger.Init(logger.Config{Env: cfg.App.Env, ServiceName: "gatekit", Version: Version})
			defer func() { _ = logger.Sync() }()

			ctx := context.Background()
			var storeCfg store.Config
			storeCfg.Driver = cfg.Storage.Driver
			storeCfg.DSN = cfg.Storage.DSN

			st, err := store.Open(ctx, storeCfg)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			sw := sweeper.New(st.AuthStates(), st.Sessions(), 0)
			states, sessions := sw.SweepOnce(ctx)
			cmd.Printf("barridos: states=%d sessions=%d\n", states, sessions)
			return nil
		},
	}
}
