package commands

import (
	"os"
	"tmsassist/internal/batch"

	"github.com/jedib0t/go-pretty/v6/table"
)

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

func check(value bool) string {
	if value {
		return "✓"
	}
	return ""
}

func renderFailures(results ...batch.Result) {
	t := newTable()
	t.AppendHeader(table.Row{"Code", "Action", "Error", "Response"})
	rows := 0
	for _, result := range results {
		for _, item := range result.Failures() {
			message := ""
			if item.Err != nil {
				message = item.Err.Error()
			}
			if item.LocalUpdateFailed {
				message = "local update: " + message
			}
			t.AppendRow(table.Row{item.Code, item.Action.String(), message, item.Body})
			rows++
		}
	}
	if rows > 0 {
		t.Render()
	}
}
