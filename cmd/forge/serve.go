package main

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"flowforge/internal/app"
	"flowforge/internal/config"
	"flowforge/internal/server"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the compile server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log.Printf("Config loaded (port: %d, workspace: %s, module: %s)",
				cfg.Server.Port, cfg.Workspace.Root, cfg.Workspace.Module)

			a, err := app.Build(context.Background(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			srv := server.New(cfg, a.Dispatcher)
			addr := fmt.Sprintf(":%d", cfg.Server.Port)
			log.Printf("Starting server on %s", addr)
			return srv.Listen(addr)
		},
	}
}
