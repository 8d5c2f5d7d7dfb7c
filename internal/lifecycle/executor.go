// Package lifecycle performs the state transitions of an existing work order.
//
// Unlike ticket creation, the response body is not checked: a request that
// completes without a transport or status error counts as success.
package lifecycle

import (
	"context"
	"fmt"
	"net/url"
	"tmsassist/internal/components/assert"
	"tmsassist/internal/components/telemetry"
	"tmsassist/internal/portal"
	"tmsassist/internal/session"
)

const (
	actFeedback = "confirm_feedback"
	actClose    = "close_workorder"
)

const (
	report_executor_feedback = "executor.feedback"
	report_executor_close    = "executor.close"
)

type Opener interface {
	Open(sess session.Session) (*portal.Client, error)
}

type Executor struct {
	portal Opener
	tel    telemetry.API
}

func NewExecutor(portal Opener, tel telemetry.API) Executor {
	assert.NotNil(portal)
	assert.NotNil(tel)

	return Executor{
		portal: portal,
		tel:    telemetry.NewScopedAPI("lifecycle", tel),
	}
}

func (e Executor) update(ctx context.Context, sess session.Session, form url.Values) (string, error) {
	client, err := e.portal.Open(sess)
	if err != nil {
		return "", err
	}
	body, err := client.PostForm(ctx, portal.EndpointUpdate, form)
	if err != nil {
		return string(body), err
	}
	return string(body), nil
}

// Feedback answers the work order id with message.
func (e Executor) Feedback(ctx context.Context, sess session.Session, id, message string) (string, error) {
	body, err := e.update(ctx, sess, url.Values{
		"message":      {message},
		"input_file[]": {""},
		"id":           {id},
		"act":          {actFeedback},
	})
	if err != nil {
		e.tel.ReportWarning(report_executor_feedback, err, id)
		return body, fmt.Errorf("feedback %s: %w", id, err)
	}
	return body, nil
}

// Close closes the work order id. Closing an already closed work order is
// sent to the portal as is.
func (e Executor) Close(ctx context.Context, sess session.Session, id string) (string, error) {
	body, err := e.update(ctx, sess, url.Values{
		"id":  {id},
		"act": {actClose},
	})
	if err != nil {
		e.tel.ReportWarning(report_executor_close, err, id)
		return body, fmt.Errorf("close %s: %w", id, err)
	}
	return body, nil
}
