package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"tmsassist/internal/batch"
	"tmsassist/internal/components/chrono"
	"tmsassist/internal/store"
)

// WorkOrders lists the local work orders created within window, newest
// first.
func (s Service) WorkOrders(ctx context.Context, window chrono.Window) ([]store.WorkOrder, error) {
	_, records, err := s.records(ctx)
	if err != nil {
		return nil, err
	}
	start, end := window.Bounds(s.clock.Now())
	return records.List(ctx, start, end)
}

func (s Service) SetAnswer(ctx context.Context, code, answer string) error {
	_, records, err := s.records(ctx)
	if err != nil {
		return err
	}
	return records.SetAnswer(ctx, code, strings.TrimSpace(answer))
}

// selected resolves codes to batch items carrying their stored answers.
// Unknown codes fail the whole selection before anything is sent.
func (s Service) selected(ctx context.Context, records store.Records, codes []string) ([]batch.Item, error) {
	if len(codes) == 0 {
		return nil, fmt.Errorf("no work orders selected")
	}

	items := make([]batch.Item, 0, len(codes))
	seen := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		code = strings.TrimSpace(code)
		if _, ok := seen[code]; ok || code == "" {
			continue
		}
		seen[code] = struct{}{}

		answer, err := records.Answer(ctx, code)
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("unknown work order %s: %w", code, err)
		}
		if err != nil {
			s.tel.ReportBroken(report_service_records, err, code)
			return nil, err
		}
		items = append(items, batch.Item{Code: code, Answer: answer})
	}
	return items, nil
}

func (s Service) windowed(ctx context.Context, records store.Records, window chrono.Window, pending store.Pending) ([]batch.Item, error) {
	start, end := window.Bounds(s.clock.Now())
	orders, err := records.Unprocessed(ctx, start, end, pending)
	if err != nil {
		s.tel.ReportBroken(report_service_records, err, string(window))
		return nil, err
	}
	items := make([]batch.Item, len(orders))
	for i, order := range orders {
		items[i] = batch.Item{Code: order.Code, Answer: order.Answer}
		// feedback is never sent twice, an empty answer makes the runner skip it
		if order.FeedbackGiven {
			items[i].Answer = ""
		}
	}
	return items, nil
}

// FeedbackSelected sends the stored answer of every selected work order as
// its feedback. Work orders without an answer are skipped.
func (s Service) FeedbackSelected(ctx context.Context, codes []string) (batch.Result, error) {
	sess, records, err := s.records(ctx)
	if err != nil {
		return batch.Result{}, err
	}
	items, err := s.selected(ctx, records, codes)
	if err != nil {
		return batch.Result{}, err
	}
	return s.batches.Feedback(ctx, sess, records, items), nil
}

func (s Service) CloseSelected(ctx context.Context, codes []string) (batch.Result, error) {
	sess, records, err := s.records(ctx)
	if err != nil {
		return batch.Result{}, err
	}
	items, err := s.selected(ctx, records, codes)
	if err != nil {
		return batch.Result{}, err
	}
	return s.batches.Close(ctx, sess, records, items), nil
}

// FeedbackWindow gives feedback to every work order created within window
// that has not received it yet.
func (s Service) FeedbackWindow(ctx context.Context, window chrono.Window) (batch.Result, error) {
	sess, records, err := s.records(ctx)
	if err != nil {
		return batch.Result{}, err
	}
	items, err := s.windowed(ctx, records, window, store.PendingFeedback)
	if err != nil {
		return batch.Result{}, err
	}
	return s.batches.Feedback(ctx, sess, records, items), nil
}

func (s Service) CloseWindow(ctx context.Context, window chrono.Window) (batch.Result, error) {
	sess, records, err := s.records(ctx)
	if err != nil {
		return batch.Result{}, err
	}
	items, err := s.windowed(ctx, records, window, store.PendingClose)
	if err != nil {
		return batch.Result{}, err
	}
	return s.batches.Close(ctx, sess, records, items), nil
}

// ProcessWindow gives feedback to and then closes every work order created
// within window that is not closed yet.
func (s Service) ProcessWindow(ctx context.Context, window chrono.Window) (batch.CombinedResult, error) {
	sess, records, err := s.records(ctx)
	if err != nil {
		return batch.CombinedResult{}, err
	}
	items, err := s.windowed(ctx, records, window, store.PendingClose)
	if err != nil {
		return batch.CombinedResult{}, err
	}
	return s.batches.FeedbackAndClose(ctx, sess, records, items), nil
}
