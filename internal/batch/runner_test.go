package batch

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
	"tmsassist/internal/components/telemetry"
	"tmsassist/internal/session"
	"tmsassist/internal/store"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mutex  sync.Mutex
	sleeps []time.Duration
	// cancelAfter cancels the batch once this many sleeps happened, 0 disables it.
	cancelAfter int
	cancel      context.CancelFunc
}

func (c *fakeClock) Now() time.Time           { return time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC) }
func (c *fakeClock) Location() *time.Location { return time.UTC }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mutex.Lock()
	c.sleeps = append(c.sleeps, d)
	if c.cancelAfter > 0 && len(c.sleeps) > c.cancelAfter {
		c.cancel()
	}
	c.mutex.Unlock()
	return ctx.Err()
}

type fakeExecutor struct {
	fail  map[string]bool
	calls []string
}

func (e *fakeExecutor) Feedback(ctx context.Context, sess session.Session, id, message string) (string, error) {
	e.calls = append(e.calls, "feedback "+id+" "+message)
	if e.fail[id] {
		return "", fmt.Errorf("portal rejected %s", id)
	}
	return `{"msg":"ok"}`, nil
}

func (e *fakeExecutor) Close(ctx context.Context, sess session.Session, id string) (string, error) {
	e.calls = append(e.calls, "close "+id)
	if e.fail[id] {
		return "", fmt.Errorf("portal rejected %s", id)
	}
	return `{"msg":"ok"}`, nil
}

type flagUpdate struct {
	Code string
	Flag store.Flag
}

type fakeFlags struct {
	fail    map[string]bool
	updates []flagUpdate
}

func (f *fakeFlags) SetFlag(ctx context.Context, code string, flag store.Flag) error {
	if f.fail[code] {
		return fmt.Errorf("disk full")
	}
	f.updates = append(f.updates, flagUpdate{Code: code, Flag: flag})
	return nil
}

var testSession = session.Session{Cookie: "PHPSESSID=abc", Username: "alice"}

func newTestRunner(executor Executor, clock *fakeClock) Runner {
	return NewRunner(executor, clock, Options{}, telemetry.NewRecorder())
}

func TestCloseTally(t *testing.T) {
	table := []struct {
		items    int
		failures int
	}{
		{items: 0, failures: 0},
		{items: 1, failures: 1},
		{items: 5, failures: 0},
		{items: 5, failures: 2},
		{items: 7, failures: 7},
	}

	for _, row := range table {
		t.Run(fmt.Sprintf("%d-%d", row.items, row.failures), func(t *testing.T) {
			executor := &fakeExecutor{fail: map[string]bool{}}
			flags := &fakeFlags{}
			clock := &fakeClock{}

			var items []Item
			var expectedUpdates []flagUpdate
			for i := 0; i < row.items; i++ {
				code := fmt.Sprint(1000 + i)
				items = append(items, Item{Code: code})
				if i < row.failures {
					executor.fail[code] = true
					continue
				}
				expectedUpdates = append(expectedUpdates, flagUpdate{Code: code, Flag: store.FlagClosed})
			}

			result := newTestRunner(executor, clock).Close(context.Background(), testSession, flags, items)
			require.NoError(t, result.Err)
			require.Equal(t, row.items, result.Attempted)
			require.Equal(t, row.items-row.failures, result.Succeeded)
			require.Len(t, result.Failures(), row.failures)
			require.Empty(t, cmp.Diff(expectedUpdates, flags.updates))
			require.Len(t, clock.sleeps, row.items)
		})
	}
}

func TestItemsRunInOrder(t *testing.T) {
	executor := &fakeExecutor{fail: map[string]bool{"2": true}}
	flags := &fakeFlags{}

	result := newTestRunner(executor, &fakeClock{}).Feedback(context.Background(), testSession, flags, []Item{
		{Code: "3", Answer: "c"},
		{Code: "1", Answer: "a"},
		{Code: "2", Answer: "b"},
		{Code: "4", Answer: "d"},
	})

	require.Equal(t, []string{"feedback 3 c", "feedback 1 a", "feedback 2 b", "feedback 4 d"}, executor.calls)
	require.Equal(t, "feedback succeeded 3/4", result.Summary())

	var statuses []Status
	for _, item := range result.Items {
		statuses = append(statuses, item.Status)
	}
	require.Equal(t, []Status{StatusSucceeded, StatusSucceeded, StatusFailed, StatusSucceeded}, statuses)
	require.Contains(t, result.Items[2].Err.Error(), "portal rejected 2")
}

func TestFeedbackSkipsEmptyAnswers(t *testing.T) {
	executor := &fakeExecutor{}
	flags := &fakeFlags{}
	clock := &fakeClock{}

	result := newTestRunner(executor, clock).Feedback(context.Background(), testSession, flags, []Item{
		{Code: "1", Answer: "a"},
		{Code: "2"},
	})
	require.Equal(t, 1, result.Attempted)
	require.Equal(t, 1, result.Succeeded)
	require.Equal(t, 1, result.Skipped)
	require.Equal(t, "feedback succeeded 1/1 (1 skipped)", result.Summary())
	require.Len(t, clock.sleeps, 1)
	require.Equal(t, []flagUpdate{{Code: "1", Flag: store.FlagFeedback}}, flags.updates)
}

func TestFeedbackAndClose(t *testing.T) {
	executor := &fakeExecutor{}
	flags := &fakeFlags{}

	result := newTestRunner(executor, &fakeClock{}).FeedbackAndClose(context.Background(), testSession, flags, []Item{
		{Code: "1", Answer: "a"},
		{Code: "2"},
		{Code: "3", Answer: "c"},
	})

	require.Equal(t, 2, result.Feedback.Attempted)
	require.Equal(t, 1, result.Feedback.Skipped)
	require.Equal(t, 3, result.Close.Attempted)
	require.Equal(t, 3, result.Close.Succeeded)
	require.Equal(t, "feedback succeeded 2/2 (1 skipped), close succeeded 3/3", result.Summary())

	require.Equal(t, []string{
		"feedback 1 a",
		"close 1",
		"close 2",
		"feedback 3 c",
		"close 3",
	}, executor.calls)
}

func TestFeedbackFailureStillCloses(t *testing.T) {
	executor := &failingFeedback{fakeExecutor: fakeExecutor{}}
	flags := &fakeFlags{}

	result := newTestRunner(executor, &fakeClock{}).FeedbackAndClose(context.Background(), testSession, flags, []Item{
		{Code: "1", Answer: "a"},
	})
	require.Equal(t, 0, result.Feedback.Succeeded)
	require.Equal(t, 1, result.Feedback.Attempted)
	require.Equal(t, 1, result.Close.Succeeded)
	require.Equal(t, []flagUpdate{{Code: "1", Flag: store.FlagClosed}}, flags.updates)
}

type failingFeedback struct {
	fakeExecutor
}

func (e *failingFeedback) Feedback(ctx context.Context, sess session.Session, id, message string) (string, error) {
	return "<html>error</html>", fmt.Errorf("feedback refused")
}

func TestLocalUpdateFailure(t *testing.T) {
	executor := &fakeExecutor{}
	flags := &fakeFlags{fail: map[string]bool{"2": true}}
	tel := telemetry.NewRecorder()

	runner := NewRunner(executor, &fakeClock{}, Options{}, tel)
	result := runner.Close(context.Background(), testSession, flags, []Item{{Code: "1"}, {Code: "2"}, {Code: "3"}})

	require.Equal(t, 3, result.Attempted)
	require.Equal(t, 2, result.Succeeded)
	require.Len(t, flags.updates, 2)

	failures := result.Failures()
	require.Len(t, failures, 1)
	require.Equal(t, "2", failures[0].Code)
	require.True(t, failures[0].LocalUpdateFailed)
	// the remote action went through
	require.Equal(t, `{"msg":"ok"}`, failures[0].Body)
	require.Len(t, tel.Reports("warning", report_runner_item), 1)
}

func TestCancellationBetweenItems(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	executor := &fakeExecutor{}
	flags := &fakeFlags{}
	clock := &fakeClock{cancelAfter: 2, cancel: cancel}

	result := newTestRunner(executor, clock).Close(ctx, testSession, flags, []Item{{Code: "1"}, {Code: "2"}, {Code: "3"}, {Code: "4"}})
	require.ErrorIs(t, result.Err, context.Canceled)
	require.Equal(t, 2, result.Attempted)
	require.Equal(t, []string{"close 1", "close 2"}, executor.calls)
}

func TestIntervalIsClamped(t *testing.T) {
	tel := telemetry.NewRecorder()
	executor := &fakeExecutor{}

	require.Equal(t, DefaultInterval, NewRunner(executor, &fakeClock{}, Options{}, tel).Interval())
	require.Equal(t, time.Second, NewRunner(executor, &fakeClock{}, Options{Interval: time.Second}, tel).Interval())
	require.Equal(t, 500*time.Millisecond, NewRunner(executor, &fakeClock{}, Options{
		Interval:    10 * time.Millisecond,
		MinInterval: 500 * time.Millisecond,
	}, tel).Interval())

	clock := &fakeClock{}
	NewRunner(executor, clock, Options{Interval: 10 * time.Millisecond}, tel).
		Close(context.Background(), testSession, &fakeFlags{}, []Item{{Code: "1"}})
	require.Equal(t, []time.Duration{DefaultMinInterval}, clock.sleeps)
}
