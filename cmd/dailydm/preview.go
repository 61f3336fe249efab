package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dhruvsoni1802/dailydm/internal/bot"
	"github.com/dhruvsoni1802/dailydm/internal/config"
)

func newPreviewCommand(envFile *string) *cobra.Command {
	var day string

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Print a message that would be sent today, without opening a browser",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadEnvFile(*envFile); err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			table, err := bot.LoadMessages(cfg.MessagesFile)
			if err != nil {
				return err
			}

			now := time.Now()
			if day != "" {
				if now, err = nextWeekday(now, day); err != nil {
					return err
				}
			}

			sel := bot.SelectMessage(table, now, nil)
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s): %s\n", sel.Weekday, sel.Key, sel.Message)
			return nil
		},
	}
	cmd.Flags().StringVar(&day, "day", "", "preview for a weekday instead of today, e.g. Friday")

	return cmd
}

// nextWeekday returns the first date on or after from that falls on the named weekday.
func nextWeekday(from time.Time, name string) (time.Time, error) {
	for i := range 7 {
		d := from.AddDate(0, 0, i)
		if d.Weekday().String() == name {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("unknown weekday %q, use the full English name", name)
}
