package telemetry

import (
	"fmt"
	"log/slog"
	"os"
)

// InitSlog installs the default slog handler SlogAPI writes to, debug
// reports are dropped unless debug is set.
func InitSlog(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// SlogAPI implements API on top of the default slog logger.
type SlogAPI struct{}

// attrs turns params into slog key/value pairs, errors go under "err" and
// everything else is numbered.
func (SlogAPI) attrs(params []any) []any {
	out := make([]any, 0, len(params)*2)
	for i, p := range params {
		if err, ok := p.(error); ok {
			out = append(out, "err", err.Error())
			continue
		}
		out = append(out, fmt.Sprintf("p%d", i), p)
	}
	return out
}

func (s SlogAPI) ReportBroken(id string, params ...any) {
	slog.Error("broken: "+id, s.attrs(params)...)
}

func (s SlogAPI) ReportWarning(id string, params ...any) {
	slog.Warn(id, s.attrs(params)...)
}

func (s SlogAPI) ReportDebug(message string, params ...any) {
	slog.Debug(message, s.attrs(params)...)
}

func (s SlogAPI) ReportCount(id string, count int64) {
	slog.Debug("count", "id", id, "n", count)
}
