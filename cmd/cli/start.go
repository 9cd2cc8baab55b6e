package cli

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/recaphq/recap/internal/initialization"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func NewStartCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the CRM integration service",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			container, err := initialization.NewContainer(ctx)
			if err != nil {
				return err
			}
			defer container.Close()

			if err := container.Scheduler.Start(); err != nil {
				return err
			}
			defer container.Scheduler.Stop()

			errCh := make(chan error, 1)
			go func() {
				errCh <- container.App.Listen(container.Config.HTTPAddress)
			}()

			log.Info().Str("address", container.Config.HTTPAddress).Msg("HTTP server listening")

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			log.Info().Msg("Shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := container.App.ShutdownWithContext(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("HTTP server shutdown failed")
			}

			return nil
		},
	}
}
