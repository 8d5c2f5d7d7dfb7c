package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"tmsassist/internal/components/serviceutil"
	"tmsassist/internal/service"
	"tmsassist/internal/ticket"

	"github.com/spf13/cobra"
)

var (
	createWechat *string
	createMobile *string
	createAnswer *string
	recordAnswer *string
)

func init() {
	createWechat = createCmd.Flags().String("wx", "", "A WeChat id to be contacted on.")
	createMobile = createCmd.Flags().String("mobile", "", "A phone number to be contacted on, ignored when --wx is given.")
	createAnswer = createCmd.Flags().String("answer", "", "The feedback to send when the work order is processed.")
	recordAnswer = recordCmd.Flags().String("answer", "", "The feedback to send when the work order is processed.")

	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(answerCmd)
}

var createCmd = &cobra.Command{
	Use:   "create <cinema code> <question> [--wx <id> | --mobile <number>] [--answer <text>]",
	Short: "Creates a work order on the portal and records it locally.",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		a := mustOpenApp(cmd.Context())
		defer a.Close()

		outcome, err := a.service.CreateTicket(cmd.Context(), service.CreateTicketInput{
			Counterpart: args[0],
			Question:    args[1],
			Wechat:      *createWechat,
			Mobile:      *createMobile,
			Answer:      *createAnswer,
		})
		if err != nil {
			serviceutil.Fatal("failed to create work order", err)
		}
		if !printOutcome(os.Stdout, outcome) {
			os.Exit(1)
		}
	},
}

// printOutcome writes the outcome message verbatim, a portal response that
// was not the expected acknowledgement is printed exactly as received. The
// kind and stage of a failure only go to the log.
func printOutcome(w io.Writer, outcome ticket.Outcome) bool {
	fmt.Fprintln(w, outcome.Message())
	if outcome.Ok() {
		return true
	}
	slog.Error(
		"failed to create work order",
		"kind", outcome.Kind.String(),
		"stage", outcome.Stage.String(),
	)
	return false
}

var recordCmd = &cobra.Command{
	Use:   "record <code> <cinema code> <question> [--answer <text>]",
	Short: "Records a work order that was created on the portal by other means.",
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		a := mustOpenApp(cmd.Context())
		defer a.Close()

		err := a.service.RecordWorkOrder(cmd.Context(), args[0], service.CreateTicketInput{
			Counterpart: args[1],
			Question:    args[2],
			Answer:      *recordAnswer,
		})
		if err != nil {
			serviceutil.Fatal("failed to record work order", err)
		}
	},
}

var answerCmd = &cobra.Command{
	Use:   "answer <code> <text>",
	Short: "Sets the feedback that is sent for a work order.",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		a := mustOpenApp(cmd.Context())
		defer a.Close()

		err := a.service.SetAnswer(cmd.Context(), args[0], args[1])
		if err != nil {
			serviceutil.Fatal("failed to set answer", err)
		}
	},
}
