// Package service is the command surface of tmsassist, it owns the current
// session and ties the portal operations to the local work order records.
package service

import (
	"context"
	"errors"
	"fmt"
	"tmsassist/internal/batch"
	"tmsassist/internal/components/assert"
	"tmsassist/internal/components/chrono"
	"tmsassist/internal/components/telemetry"
	"tmsassist/internal/session"
	"tmsassist/internal/store"
	"tmsassist/internal/ticket"
)

const (
	report_service_login   = "service.login"
	report_service_session = "service.session"
	report_service_create  = "service.create"
	report_service_records = "service.records"
)

// PortalAPI is the part of the portal that does not need the orchestrator.
type PortalAPI interface {
	Login(ctx context.Context, username, password string) (session.Session, error)
	DashboardUsername(ctx context.Context, sess session.Session) (string, error)
}

type TicketAPI interface {
	Create(ctx context.Context, sess session.Session, req ticket.Request) ticket.Outcome
}

type BatchAPI interface {
	Feedback(ctx context.Context, sess session.Session, flags batch.FlagStore, items []batch.Item) batch.Result
	Close(ctx context.Context, sess session.Session, flags batch.FlagStore, items []batch.Item) batch.Result
	FeedbackAndClose(ctx context.Context, sess session.Session, flags batch.FlagStore, items []batch.Item) batch.CombinedResult
}

type Service struct {
	portal  PortalAPI
	tickets TicketAPI
	batches BatchAPI
	store   store.Store
	current *session.Context
	profile string
	clock   chrono.API
	tel     telemetry.API
}

type serviceConfig struct {
	tel     telemetry.API
	clock   chrono.API
	profile string
}

type Option func(cfg *serviceConfig)

func WithTelemetry(tel telemetry.API) Option {
	return func(cfg *serviceConfig) {
		cfg.tel = tel
	}
}

func WithClock(clock chrono.API) Option {
	return func(cfg *serviceConfig) {
		cfg.clock = clock
	}
}

// WithProfile sets the name the session is persisted under, "default" if
// unset.
func WithProfile(profile string) Option {
	return func(cfg *serviceConfig) {
		cfg.profile = profile
	}
}

func New(portal PortalAPI, tickets TicketAPI, batches BatchAPI, records store.Store, options ...Option) (Service, error) {
	assert.NotNil(portal)
	assert.NotNil(tickets)
	assert.NotNil(batches)

	cfg := serviceConfig{}
	for _, opt := range options {
		opt(&cfg)
	}

	s := Service{
		portal:  portal,
		tickets: tickets,
		batches: batches,
		store:   records,
		current: &session.Context{},
		profile: "default",
		tel:     telemetry.SlogAPI{},
	}
	if cfg.tel != nil {
		s.tel = cfg.tel
	}
	if cfg.profile != "" {
		s.profile = cfg.profile
	}
	if cfg.clock != nil {
		s.clock = cfg.clock
	} else {
		clock, err := chrono.NewStandardImpl(chrono.DefaultLocation)
		if err != nil {
			return Service{}, fmt.Errorf("load default location: %w", err)
		}
		s.clock = clock
	}

	s.tel = telemetry.NewScopedAPI("service", s.tel)
	return s, nil
}

func (s Service) Profile() string {
	return s.profile
}

// Login replaces the current session with a fresh one and persists it for
// later invocations.
func (s Service) Login(ctx context.Context, username, password string) (session.Session, error) {
	if username == "" || password == "" {
		return session.Session{}, fmt.Errorf("username and password are required")
	}

	sess, err := s.portal.Login(ctx, username, password)
	if err != nil {
		s.tel.ReportWarning(report_service_login, err, username)
		return session.Session{}, err
	}
	s.current.Set(sess)

	err = s.store.SaveSession(ctx, s.profile, sess)
	if err != nil {
		return sess, fmt.Errorf("save session: %w", err)
	}
	return sess, nil
}

func (s Service) Logout(ctx context.Context) error {
	s.current.Clear()
	err := s.store.DeleteSession(ctx, s.profile)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Session returns the current session, loading the persisted one of the
// profile if this process has not logged in yet.
func (s Service) Session(ctx context.Context) (session.Session, error) {
	sess, ok := s.current.Get()
	if ok {
		return sess, nil
	}

	sess, err := s.store.LoadSession(ctx, s.profile)
	if errors.Is(err, store.ErrNotFound) {
		return session.Session{}, session.ErrNoSession
	}
	if err != nil {
		s.tel.ReportBroken(report_service_session, err, s.profile)
		return session.Session{}, fmt.Errorf("load session: %w", err)
	}
	s.current.Set(sess)
	return sess, nil
}

// Cookie is the raw cookie string of the current session.
func (s Service) Cookie(ctx context.Context) (string, error) {
	sess, err := s.Session(ctx)
	if err != nil {
		return "", err
	}
	return sess.Cookie, nil
}

// Whoami asks the portal dashboard who the current session belongs to.
func (s Service) Whoami(ctx context.Context) (string, error) {
	sess, err := s.Session(ctx)
	if err != nil {
		return "", err
	}
	return s.portal.DashboardUsername(ctx, sess)
}

func (s Service) records(ctx context.Context) (session.Session, store.Records, error) {
	sess, err := s.Session(ctx)
	if err != nil {
		return session.Session{}, store.Records{}, err
	}
	if sess.Username == "" {
		return session.Session{}, store.Records{}, fmt.Errorf("session has no username, log in again")
	}
	return sess, s.store.User(sess.Username), nil
}
