package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-kit/log/level"
	"github.com/spf13/cobra"

	"keyrelay/internal/app"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:           "relay",
		Short:         "Serve device pre-key bundles over HTTP",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadServerConfig(configFile)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return err
			}
			logger, err := app.NewLogger(os.Stderr, cfg.Log.Level)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv, err := app.NewServer(ctx, *cfg, logger)
			if err != nil {
				level.Error(logger).Log("msg", "failed to start relay", "err", err)
				return err
			}
			defer srv.Close()

			if err := srv.Run(ctx); err != nil {
				level.Error(logger).Log("msg", "relay stopped", "err", err)
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "configuration file (default: keyrelay.yaml in ., ./config or /etc/keyrelay)")
	cmd.SetContext(context.Background())
	return cmd
}
