package chrono

import (
	"context"
	"fmt"
	"time"
)

// DefaultLocation is the timezone the portal operates in.
const DefaultLocation = "Asia/Shanghai"

// API is the interface that anything depending on the system clock should use.
type API interface {
	Now() time.Time
	Location() *time.Location
	// Sleep blocks for d or until ctx is done, whichever comes first.
	Sleep(ctx context.Context, d time.Duration) error
}

type StandardImpl struct {
	location *time.Location
}

func NewStandardImpl(location string) (StandardImpl, error) {
	if location == "" {
		location = DefaultLocation
	}
	loc, err := time.LoadLocation(location)
	if err != nil {
		return StandardImpl{}, err
	}
	return StandardImpl{location: loc}, nil
}

func (s StandardImpl) Now() time.Time {
	return time.Now().In(s.location)
}

func (s StandardImpl) Location() *time.Location {
	return s.location
}

func (s StandardImpl) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Window is a named time range evaluated relative to "now".
type Window string

const (
	WindowToday Window = "today"
	WindowMonth Window = "month"
)

// ParseWindow accepts "today" (the default when empty) and "month".
func ParseWindow(s string) (Window, error) {
	switch Window(s) {
	case "", WindowToday:
		return WindowToday, nil
	case WindowMonth:
		return WindowMonth, nil
	}
	return "", fmt.Errorf("unknown range '%s', expected 'today' or 'month'", s)
}

// Bounds returns the half open range [start, end) of the window containing now.
func (w Window) Bounds(now time.Time) (start, end time.Time) {
	loc := now.Location()
	switch w {
	case WindowMonth:
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
		end = start.AddDate(0, 1, 0)
	default:
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
		end = start.AddDate(0, 0, 1)
	}
	return start, end
}
