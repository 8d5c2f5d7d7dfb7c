package commands

import (
	"tmsassist/internal/components/chrono"
	"tmsassist/internal/components/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var listRange *string

func init() {
	listRange = listCmd.Flags().StringP("range", "r", "today", "Either 'today' or 'month'.")
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list [--range today|month]",
	Short: "Lists the recorded work orders of the logged in user.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		window, err := chrono.ParseWindow(*listRange)
		if err != nil {
			serviceutil.Fatal("invalid range", err)
		}

		a := mustOpenApp(cmd.Context())
		defer a.Close()

		orders, err := a.service.WorkOrders(cmd.Context(), window)
		if err != nil {
			serviceutil.Fatal("failed to list work orders", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Code", "Created", "Cinema", "Question", "Answer", "Feedback", "Closed"})
		for _, o := range orders {
			t.AppendRow(table.Row{
				o.Code,
				o.CreatedAt.In(a.clock.Location()).Format("2006-01-02 15:04"),
				o.Counterpart,
				o.Question,
				o.Answer,
				check(o.FeedbackGiven),
				check(o.Closed),
			})
		}
		t.AppendFooter(table.Row{"", "", "", "", "", "", len(orders)})
		t.Render()
	},
}
