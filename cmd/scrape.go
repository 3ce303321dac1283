package cmd

import (
	"fmt"
	"os"

	"github.com/audimetria/audimetria/internal/config"
	"github.com/audimetria/audimetria/pkg/dates"
	"github.com/audimetria/audimetria/pkg/ratings"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape <YYYY-MM-DD>",
	Short: "Fetch and print the figures for one day without saving them",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		day, err := dates.ParseISO(args[0])
		if err != nil {
			return err
		}
		cfg, err := config.LoadSource(viper.GetViper())
		if err != nil {
			return err
		}
		d, err := newDriver(cfg, false)
		if err != nil {
			return err
		}
		record, err := d.ScanDate(cmd.Context(), day)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		ratings.PrintRecord(os.Stdout, record)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scrapeCmd)
}
