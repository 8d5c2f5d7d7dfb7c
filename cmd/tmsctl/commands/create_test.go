package commands

import (
	"bytes"
	"fmt"
	"testing"
	"tmsassist/internal/ticket"

	"github.com/stretchr/testify/require"
)

func TestPrintOutcome(t *testing.T) {
	table := []struct {
		outcome  ticket.Outcome
		expected string
		ok       bool
	}{
		{
			outcome:  ticket.Outcome{Kind: ticket.Success, Stage: ticket.StageOrderId, Id: "20931"},
			expected: "20931\n",
			ok:       true,
		},
		{
			outcome:  ticket.Outcome{Kind: ticket.SemanticMismatch, Stage: ticket.StageCreate, Body: `{"msg":"请勿重复提交"}`},
			expected: "{\"msg\":\"请勿重复提交\"}\n",
		},
		{
			outcome:  ticket.Outcome{Kind: ticket.NotFound, Stage: ticket.StageToken},
			expected: "no token found\n",
		},
		{
			outcome:  ticket.Outcome{Kind: ticket.RemoteFailure, Stage: ticket.StageCreate, Err: fmt.Errorf("http status 502")},
			expected: "request failed at create: http status 502\n",
		},
	}

	for _, row := range table {
		var out bytes.Buffer
		ok := printOutcome(&out, row.outcome)
		require.Equal(t, row.ok, ok)
		require.Equal(t, row.expected, out.String())
	}
}
