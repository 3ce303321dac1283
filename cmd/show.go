package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/audimetria/audimetria/pkg/ratings"
	"github.com/audimetria/audimetria/pkg/storage"
	"github.com/audimetria/audimetria/pkg/store"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored dataset (default 20 most recent days)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		dbPath, _ := cmd.Flags().GetString("db")
		limit, _ := cmd.Flags().GetInt("limit")

		var dataset *ratings.Dataset
		if dbPath != "" {
			if _, err := os.Stat(dbPath); err != nil {
				return fmt.Errorf("database not found: %s", dbPath)
			}
			db, err := storage.Open(dbPath)
			if err != nil {
				return err
			}
			defer db.Close()
			records, err := db.ListDailyRecords(cmd.Context(), limit)
			if err != nil {
				return err
			}
			dataset = ratings.NewDataset()
			dataset.DailyData = records
		} else {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			s, err := newStore(cfg)
			if err != nil {
				return err
			}
			var version store.Version
			dataset, version, err = s.Load(cmd.Context())
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("no dataset at %s yet", s.Location())
			}
			if err != nil {
				return err
			}
			if version != "" {
				fmt.Fprintf(os.Stderr, "%s @ %s\n", s.Location(), version)
			}
		}

		ratings.PrintDataset(os.Stdout, dataset, limit)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().String("db", "", "Read from this SQLite mirror instead of the dataset")
	showCmd.Flags().Int("limit", 20, "Number of days to show, -1 for all")
}
