package cmd

import (
	"fmt"

	"github.com/audimetria/audimetria/internal/utils"
	"github.com/audimetria/audimetria/pkg/reconcile"
	"github.com/spf13/cobra"
)

// runCmd implements: audimetria run
//
//	--dry-run     Scan and merge, but do not write the dataset
//	--db string   Also mirror every record into this SQLite file
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Scrape unseen dates and update the dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			return fmt.Errorf("unknown command: '%s'. See 'audimetria run --help'", args[0])
		}
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if db, _ := cmd.Flags().GetString("db"); db != "" {
			cfg.MirrorPath = db
		}
		d, err := newDriver(cfg, true)
		if err != nil {
			return err
		}
		d.DryRun = dryRun
		if cfg.MirrorPath != "" {
			d.Mirror = lockedMirror{path: cfg.MirrorPath}
		}

		res, err := d.Run(cmd.Context())
		printRunResult(res)
		return err
	},
}

func printRunResult(res reconcile.Result) {
	utils.Log.Infof("Scanned %d dates: %d fetched, %d failed, %d already known, %d added",
		res.Candidates, res.Fetched, res.Failed, res.Skipped, res.Added)
	for _, c := range res.MirrorChanges {
		fmt.Printf("%-7s  %s  %-12s  viewers=%d share=%.1f\n", c.ChangeType, c.Date, c.Program, c.Viewers, c.Share)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Bool("dry-run", false, "Do not write the dataset")
	runCmd.Flags().String("db", "", "Mirror records into this SQLite file")
}
