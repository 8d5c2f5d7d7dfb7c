package commands

import (
	"context"
	"fmt"
	"tmsassist/internal/batch"
	"tmsassist/internal/components/chrono"
	"tmsassist/internal/components/serviceutil"
	"tmsassist/internal/service"

	"github.com/spf13/cobra"
)

var (
	feedbackRange *string
	closeRange    *string
	processRange  *string
)

func init() {
	feedbackRange = feedbackCmd.Flags().StringP("range", "r", "today", "Either 'today' or 'month', ignored when codes are given.")
	closeRange = closeCmd.Flags().StringP("range", "r", "today", "Either 'today' or 'month', ignored when codes are given.")
	processRange = processCmd.Flags().StringP("range", "r", "today", "Either 'today' or 'month'.")

	rootCmd.AddCommand(feedbackCmd)
	rootCmd.AddCommand(closeCmd)
	rootCmd.AddCommand(processCmd)
}

type selectedRun func(ctx context.Context, codes []string) (batch.Result, error)
type windowRun func(ctx context.Context, window chrono.Window) (batch.Result, error)

func runAction(cmd *cobra.Command, codes []string, rangeFlag string, pick func(service.Service) (selectedRun, windowRun)) {
	window, err := chrono.ParseWindow(rangeFlag)
	if err != nil {
		serviceutil.Fatal("invalid range", err)
	}

	a := mustOpenApp(cmd.Context())
	defer a.Close()

	selected, windowed := pick(a.service)
	var result batch.Result
	if len(codes) > 0 {
		result, err = selected(cmd.Context(), codes)
	} else {
		result, err = windowed(cmd.Context(), window)
	}
	if err != nil {
		serviceutil.Fatal(fmt.Sprintf("failed to run %s", cmd.Name()), err)
	}

	fmt.Println(result.Summary())
	if *verbose {
		renderFailures(result)
	}
}

var feedbackCmd = &cobra.Command{
	Use:   "feedback [codes...] [--range today|month]",
	Short: "Sends the recorded answers as feedback, either for the given work orders or every one in range still lacking it.",
	Run: func(cmd *cobra.Command, args []string) {
		runAction(cmd, args, *feedbackRange, func(s service.Service) (selectedRun, windowRun) {
			return s.FeedbackSelected, s.FeedbackWindow
		})
	},
}

var closeCmd = &cobra.Command{
	Use:   "close [codes...] [--range today|month]",
	Short: "Closes the given work orders or every one in range that is still open.",
	Run: func(cmd *cobra.Command, args []string) {
		runAction(cmd, args, *closeRange, func(s service.Service) (selectedRun, windowRun) {
			return s.CloseSelected, s.CloseWindow
		})
	},
}

func process(ctx context.Context, a app, window chrono.Window) (batch.CombinedResult, error) {
	result, err := a.service.ProcessWindow(ctx, window)
	if err != nil {
		return batch.CombinedResult{}, err
	}
	if *verbose {
		renderFailures(result.Feedback, result.Close)
	}
	return result, nil
}

var processCmd = &cobra.Command{
	Use:   "process [--range today|month]",
	Short: "Sends feedback and then closes every open work order in range.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		window, err := chrono.ParseWindow(*processRange)
		if err != nil {
			serviceutil.Fatal("invalid range", err)
		}

		a := mustOpenApp(cmd.Context())
		defer a.Close()

		result, err := process(cmd.Context(), a, window)
		if err != nil {
			serviceutil.Fatal("failed to process work orders", err)
		}
		fmt.Println(result.Summary())
	},
}
