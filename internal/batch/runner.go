// Package batch applies lifecycle actions to a list of work orders one after
// another. Items are paced so the portal never sees bursts, and a failing
// item never stops the items after it.
package batch

import (
	"context"
	"fmt"
	"time"
	"tmsassist/internal/components/assert"
	"tmsassist/internal/components/chrono"
	"tmsassist/internal/components/telemetry"
	"tmsassist/internal/session"
	"tmsassist/internal/store"
)

const (
	DefaultInterval    = 200 * time.Millisecond
	DefaultMinInterval = 200 * time.Millisecond
)

const (
	report_runner_item      = "runner.item"
	report_runner_succeeded = "runner.succeeded"
)

type Executor interface {
	Feedback(ctx context.Context, sess session.Session, id, message string) (string, error)
	Close(ctx context.Context, sess session.Session, id string) (string, error)
}

// FlagStore records a lifecycle flag once the portal has accepted the action.
type FlagStore interface {
	SetFlag(ctx context.Context, code string, flag store.Flag) error
}

type Item struct {
	Code string
	// Answer is the feedback text, items without one are skipped by feedback.
	Answer string
}

type Options struct {
	// Interval is the wait before every remote action.
	Interval time.Duration
	// MinInterval is the floor Interval is clamped to.
	MinInterval time.Duration
}

type Runner struct {
	executor Executor
	clock    chrono.API
	interval time.Duration
	tel      telemetry.API
}

func NewRunner(executor Executor, clock chrono.API, options Options, tel telemetry.API) Runner {
	assert.NotNil(executor)
	assert.NotNil(clock)
	assert.NotNil(tel)
	assert.NonNegative(options.Interval)
	assert.NonNegative(options.MinInterval)

	if options.Interval == 0 {
		options.Interval = DefaultInterval
	}
	if options.MinInterval == 0 {
		options.MinInterval = DefaultMinInterval
	}
	interval := options.Interval
	if interval < options.MinInterval {
		interval = options.MinInterval
	}

	return Runner{
		executor: executor,
		clock:    clock,
		interval: interval,
		tel:      telemetry.NewScopedAPI("batch", tel),
	}
}

func (r Runner) Interval() time.Duration {
	return r.interval
}

type step struct {
	runner *Runner
	sess   session.Session
	flags  FlagStore
}

// perform paces, runs the remote action and on success sets the local flag.
func (s step) perform(ctx context.Context, item Item, action Action) (ItemOutcome, error) {
	err := s.runner.clock.Sleep(ctx, s.runner.interval)
	if err != nil {
		return ItemOutcome{}, err
	}

	outcome := ItemOutcome{Code: item.Code, Action: action}

	var body string
	switch action {
	case ActionFeedback:
		body, err = s.runner.executor.Feedback(ctx, s.sess, item.Code, item.Answer)
	case ActionClose:
		body, err = s.runner.executor.Close(ctx, s.sess, item.Code)
	default:
		panic(fmt.Sprintf("batch: unknown action %d", action))
	}
	outcome.Body = body
	if err != nil {
		outcome.Status = StatusFailed
		outcome.Err = err
		return outcome, nil
	}

	err = s.flags.SetFlag(ctx, item.Code, action.flag())
	if err != nil {
		// the portal already applied the action, only the local mirror is behind
		s.runner.tel.ReportWarning(
			report_runner_item,
			fmt.Errorf("local update after remote %s: %w", action, err),
			item.Code,
		)
		outcome.Status = StatusFailed
		outcome.Err = err
		outcome.LocalUpdateFailed = true
		return outcome, nil
	}

	outcome.Status = StatusSucceeded
	return outcome, nil
}

func (r Runner) run(ctx context.Context, sess session.Session, flags FlagStore, items []Item, action Action) Result {
	assert.NotNil(flags)

	s := step{runner: &r, sess: sess, flags: flags}
	result := Result{Action: action}
	for _, item := range items {
		if action == ActionFeedback && item.Answer == "" {
			result.add(ItemOutcome{Code: item.Code, Action: action, Status: StatusSkipped})
			continue
		}
		outcome, err := s.perform(ctx, item, action)
		if err != nil {
			result.Err = err
			break
		}
		result.add(outcome)
	}

	r.tel.ReportCount(report_runner_succeeded, int64(result.Succeeded))
	return result
}

// Feedback sends the answer of every item as feedback.
func (r Runner) Feedback(ctx context.Context, sess session.Session, flags FlagStore, items []Item) Result {
	return r.run(ctx, sess, flags, items, ActionFeedback)
}

// Close closes every item, whatever its local state.
func (r Runner) Close(ctx context.Context, sess session.Session, flags FlagStore, items []Item) Result {
	return r.run(ctx, sess, flags, items, ActionClose)
}

// FeedbackAndClose gives feedback and then closes each item before moving on
// to the next. Feedback and close are tallied separately, an item whose
// feedback failed is still closed.
func (r Runner) FeedbackAndClose(ctx context.Context, sess session.Session, flags FlagStore, items []Item) CombinedResult {
	assert.NotNil(flags)

	s := step{runner: &r, sess: sess, flags: flags}
	result := CombinedResult{
		Feedback: Result{Action: ActionFeedback},
		Close:    Result{Action: ActionClose},
	}

	for _, item := range items {
		if item.Answer == "" {
			result.Feedback.add(ItemOutcome{Code: item.Code, Action: ActionFeedback, Status: StatusSkipped})
		} else {
			outcome, err := s.perform(ctx, item, ActionFeedback)
			if err != nil {
				result.Feedback.Err = err
				result.Close.Err = err
				break
			}
			result.Feedback.add(outcome)
		}

		outcome, err := s.perform(ctx, item, ActionClose)
		if err != nil {
			result.Feedback.Err = err
			result.Close.Err = err
			break
		}
		result.Close.add(outcome)
	}

	r.tel.ReportCount(report_runner_succeeded, int64(result.Feedback.Succeeded+result.Close.Succeeded))
	return result
}
