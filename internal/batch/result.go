package batch

import (
	"fmt"
	"strings"
	"tmsassist/internal/store"
)

type Action int

const (
	ActionFeedback Action = iota
	ActionClose
)

func (a Action) String() string {
	switch a {
	case ActionFeedback:
		return "feedback"
	case ActionClose:
		return "close"
	}
	return "unknown"
}

func (a Action) flag() store.Flag {
	switch a {
	case ActionFeedback:
		return store.FlagFeedback
	case ActionClose:
		return store.FlagClosed
	}
	panic(fmt.Sprintf("batch: unknown action %d", a))
}

type Status int

const (
	StatusSucceeded Status = iota
	StatusFailed
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	}
	return "unknown"
}

// ItemOutcome is what happened to a single item.
type ItemOutcome struct {
	Code   string
	Action Action
	Status Status
	// Body is the raw portal response, if the request got that far.
	Body string
	Err  error
	// LocalUpdateFailed is set when the portal accepted the action but the
	// local flag could not be written.
	LocalUpdateFailed bool
}

// Result tallies one action over a batch. Attempted counts items a remote
// call was made for, Succeeded those whose remote call and local update
// both went through.
type Result struct {
	Action    Action
	Attempted int
	Succeeded int
	Skipped   int
	Items     []ItemOutcome
	// Err is set when the batch was cancelled before reaching every item.
	Err error
}

func (r *Result) add(outcome ItemOutcome) {
	r.Items = append(r.Items, outcome)
	switch outcome.Status {
	case StatusSkipped:
		r.Skipped++
	case StatusSucceeded:
		r.Attempted++
		r.Succeeded++
	case StatusFailed:
		r.Attempted++
	}
}

// Failures returns the outcomes of every item that did not succeed.
func (r Result) Failures() []ItemOutcome {
	var out []ItemOutcome
	for _, item := range r.Items {
		if item.Status == StatusFailed {
			out = append(out, item)
		}
	}
	return out
}

func (r Result) Summary() string {
	var out strings.Builder
	fmt.Fprintf(&out, "%s succeeded %d/%d", r.Action, r.Succeeded, r.Attempted)
	if r.Skipped > 0 {
		fmt.Fprintf(&out, " (%d skipped)", r.Skipped)
	}
	if r.Err != nil {
		fmt.Fprintf(&out, ", stopped early: %s", r.Err.Error())
	}
	return out.String()
}

type CombinedResult struct {
	Feedback Result
	Close    Result
}

func (r CombinedResult) Summary() string {
	feedback := r.Feedback
	feedback.Err = nil
	return feedback.Summary() + ", " + r.Close.Summary()
}
