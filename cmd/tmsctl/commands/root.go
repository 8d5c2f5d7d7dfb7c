package commands

import (
	"context"
	"fmt"
	"os"
	"tmsassist/internal/components/telemetry"
	"tmsassist/internal/config"

	"github.com/spf13/cobra"
)

var (
	configPath *string
	dotenvPath *string
	debug      *bool
	verbose    *bool
)

var rootCmd = &cobra.Command{
	Use:   "tmsctl",
	Short: "tmsctl creates, answers and closes work orders on the TMS portal.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(*debug)
	},
}

func init() {
	configPath = rootCmd.PersistentFlags().String("config", config.DefaultName, "The config file, a bare name is searched for upwards from the working directory.")
	dotenvPath = rootCmd.PersistentFlags().String("env", ".env", "A .env file with secrets, ignored when missing.")
	debug = rootCmd.PersistentFlags().Bool("debug", false, "Log every portal request.")
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Print every failed item of a batch.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
