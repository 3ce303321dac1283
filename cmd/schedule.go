package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/audimetria/audimetria/internal/utils"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

// scheduleCmd implements: audimetria schedule --cron "0 9 * * 2-5"
// It keeps running and performs a run on every tick. A tick that fires
// while the previous run is still going is skipped.
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run periodically on a cron schedule",
	RunE: func(cmd *cobra.Command, _ []string) error {
		expr, _ := cmd.Flags().GetString("cron")

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
		if cfg.MirrorPath != "" {
			d.Mirror = lockedMirror{path: cfg.MirrorPath}
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var mu sync.Mutex
		c := cron.New()
		_, err = c.AddFunc(expr, func() {
			if !mu.TryLock() {
				utils.Log.Warn("Previous run still in progress, skipping this tick")
				return
			}
			defer mu.Unlock()

			res, err := d.Run(ctx)
			printRunResult(res)
			if err != nil && ctx.Err() == nil {
				utils.Log.WithError(err).Error("Run failed")
			}
		})
		if err != nil {
			return fmt.Errorf("invalid cron expression %q: %w", expr, err)
		}

		utils.Log.Infof("Scheduled with %q, waiting for the next tick", expr)
		c.Start()
		<-ctx.Done()
		utils.Log.Info("Shutting down")
		<-c.Stop().Done()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
	scheduleCmd.Flags().String("cron", "0 9 * * 2-5", "Cron expression (minute hour dom month dow)")
	scheduleCmd.Flags().String("db", "", "Mirror records into this SQLite file")
}
