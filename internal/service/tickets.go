package service

import (
	"context"
	"fmt"
	"strings"
	"tmsassist/internal/store"
	"tmsassist/internal/ticket"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type CreateTicketInput struct {
	Counterpart string `validate:"required,max=64"`
	Question    string `validate:"required,max=2000"`
	Wechat      string `validate:"omitempty,max=64"`
	Mobile      string `validate:"omitempty,numeric,min=5,max=20"`
	// Answer is stored locally and later sent as the feedback message.
	Answer string
}

func (in CreateTicketInput) normalize() CreateTicketInput {
	in.Counterpart = strings.TrimSpace(in.Counterpart)
	in.Question = strings.TrimSpace(in.Question)
	in.Wechat = strings.TrimSpace(in.Wechat)
	in.Mobile = strings.TrimSpace(in.Mobile)
	in.Answer = strings.TrimSpace(in.Answer)
	return in
}

// CreateTicket creates a work order on the portal and, when the portal
// reports its id, records it locally. The outcome is returned as is, only
// invalid input, a missing session and local failures are errors.
func (s Service) CreateTicket(ctx context.Context, in CreateTicketInput) (ticket.Outcome, error) {
	in = in.normalize()
	err := validate.Struct(in)
	if err != nil {
		return ticket.Outcome{}, fmt.Errorf("invalid ticket: %w", err)
	}

	sess, records, err := s.records(ctx)
	if err != nil {
		return ticket.Outcome{}, err
	}

	outcome := s.tickets.Create(ctx, sess, ticket.Request{
		Counterpart: in.Counterpart,
		Question:    in.Question,
		Wechat:      in.Wechat,
		Mobile:      in.Mobile,
	})
	if !outcome.Ok() {
		return outcome, nil
	}

	err = records.UpsertCreated(ctx, store.WorkOrder{
		Code:        outcome.Id,
		Counterpart: in.Counterpart,
		Question:    in.Question,
		Answer:      in.Answer,
		CreatedAt:   s.clock.Now(),
	})
	if err != nil {
		s.tel.ReportBroken(report_service_create, err, outcome.Id)
		return outcome, fmt.Errorf("record work order %s: %w", outcome.Id, err)
	}
	return outcome, nil
}

// RecordWorkOrder inserts a work order that was created outside of
// CreateTicket, for example through the portal's web interface.
func (s Service) RecordWorkOrder(ctx context.Context, code string, in CreateTicketInput) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return fmt.Errorf("work order code is required")
	}
	in = in.normalize()
	err := validate.Struct(in)
	if err != nil {
		return fmt.Errorf("invalid work order: %w", err)
	}

	_, records, err := s.records(ctx)
	if err != nil {
		return err
	}
	return records.UpsertCreated(ctx, store.WorkOrder{
		Code:        code,
		Counterpart: in.Counterpart,
		Question:    in.Question,
		Answer:      in.Answer,
		CreatedAt:   s.clock.Now(),
	})
}
