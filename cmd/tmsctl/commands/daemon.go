package commands

import (
	"log/slog"
	"tmsassist/internal/components/chrono"
	"tmsassist/internal/components/serviceutil"
	"tmsassist/internal/components/telemetry"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(daemonCmd)
}

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Processes the open work orders on the configured cron schedule until interrupted.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		a := mustOpenApp(ctx)
		defer a.Close()

		window, err := chrono.ParseWindow(a.config.Daemon.Range)
		if err != nil {
			serviceutil.Fatal("invalid daemon range", err)
		}
		_, err = a.service.Session(ctx)
		if err != nil {
			serviceutil.Fatal("failed to read session", err)
		}

		cron := chrono.NewStandardCron(a.clock.Location(), telemetry.NewScopedAPI("daemon", telemetry.SlogAPI{}))
		err = cron.Cron(a.config.Daemon.Cron, func() {
			result, err := process(ctx, a, window)
			if err != nil {
				slog.Error("failed to process work orders", "err", err.Error())
				return
			}
			slog.Info("processed work orders", "result", result.Summary())
		})
		if err != nil {
			cron.Stop()
			serviceutil.Fatal("invalid cron spec", err)
		}

		slog.Info("daemon started", "cron", a.config.Daemon.Cron, "range", string(window))
		<-ctx.Done()
		cron.Stop()
		slog.Info("daemon stopped")
	},
}
