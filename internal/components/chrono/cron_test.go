package chrono

import (
	"testing"
	"time"
	"tmsassist/internal/components/telemetry"

	"github.com/stretchr/testify/require"
)

func TestCronRejectsInvalidSpec(t *testing.T) {
	cron := NewStandardCron(time.UTC, telemetry.NewRecorder())
	defer cron.Stop()

	require.Error(t, cron.Cron("every day at noon", func() {}))
	require.NoError(t, cron.Cron("*/30 9-22 * * *", func() {}))
}

func TestCronLoggerPairs(t *testing.T) {
	require.Equal(t, []any{"a=1", "b=x"}, pairs([]any{"a", 1, "b", "x"}))
	// a dangling key has no value to pair with
	require.Equal(t, []any{"a=1"}, pairs([]any{"a", 1, "b"}))
}
