package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newRunCommand(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Send today's message once and exit",
		Long:  "Send today's message once. Exits 0 on success and 1 on any failure.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := startup(*envFile, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer a.Close()

			// Ctrl+C or SIGTERM cancels the run; the browser is still torn down
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, release := a.cookieStore(ctx)
			defer release()

			outcome := a.runner(store).Run(ctx)
			if outcome.ExitCode() != 0 {
				return errRunFailed
			}
			return nil
		},
	}
}
