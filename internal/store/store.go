// Package store mirrors the work orders created through the portal together
// with their lifecycle flags, and keeps the sessions of the command line
// profiles.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"
	"tmsassist/internal/components/assert"
	"tmsassist/internal/components/telemetry"
	"tmsassist/internal/session"
)

var ErrNotFound = errors.New("not found")

const (
	report_store_query = "store.query"
)

type WorkOrder struct {
	Code        string
	Counterpart string
	Question    string
	// Answer is the feedback sent to the portal, empty when there is none yet.
	Answer        string
	CreatedAt     time.Time
	Created       bool
	FeedbackGiven bool
	Closed        bool
}

// Flag is a lifecycle flag, flags only ever go from unset to set.
type Flag int

const (
	FlagFeedback Flag = iota
	FlagClosed
)

func (f Flag) column() string {
	switch f {
	case FlagFeedback:
		return "is_feedback"
	case FlagClosed:
		return "is_closed"
	}
	panic(fmt.Sprintf("store: unknown flag %d", f))
}

// Pending selects work orders that still need an action.
type Pending int

const (
	PendingFeedback Pending = iota
	// PendingClose is anything not closed yet, feedback can no longer be
	// given once a work order is closed.
	PendingClose
)

func (p Pending) predicate() string {
	switch p {
	case PendingFeedback:
		return "is_feedback = 0"
	case PendingClose:
		return "is_closed = 0"
	}
	panic(fmt.Sprintf("store: unknown pending kind %d", p))
}

type Store struct {
	db     *sql.DB
	driver string
	tel    telemetry.API
}

// New wraps db opened with driver, see Open.
func New(db *sql.DB, driver string, tel telemetry.API) Store {
	assert.NotNil(db)
	assert.NotNil(tel)
	assert.NotEmptyStr(driver)
	return Store{
		db:     db,
		driver: driver,
		tel:    telemetry.NewScopedAPI("store", tel),
	}
}

var placeholderRegex = regexp.MustCompile(`\$\d+`)

// rebind rewrites $n placeholders for sqlite. Queries in this package use
// every placeholder once and in ascending order.
func (s Store) rebind(query string) string {
	if s.driver != DriverSqlite {
		return query
	}
	return placeholderRegex.ReplaceAllString(query, "?")
}

func (s Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.rebind(query), args...)
}

func (s Store) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.rebind(query), args...)
}

func (s Store) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.rebind(query), args...)
}

func (s Store) DB() *sql.DB {
	return s.db
}

// User returns the view of the work orders owned by username.
func (s Store) User(username string) Records {
	assert.NotEmptyStr(username)
	return Records{store: s, username: username}
}

func (s Store) SaveSession(ctx context.Context, profile string, sess session.Session) error {
	_, err := s.exec(
		ctx,
		`insert into sessions (profile, cookie, username, updated_at) values ($1, $2, $3, $4)
		on conflict (profile) do update set
			cookie = excluded.cookie,
			username = excluded.username,
			updated_at = excluded.updated_at`,
		profile,
		sess.Cookie,
		sess.Username,
		time.Now().Unix(),
	)
	if err != nil {
		s.tel.ReportBroken(report_store_query, err, "SaveSession")
		return err
	}
	return nil
}

func (s Store) LoadSession(ctx context.Context, profile string) (session.Session, error) {
	var sess session.Session
	err := s.queryRow(
		ctx,
		"select cookie, username from sessions where profile = $1",
		profile,
	).Scan(&sess.Cookie, &sess.Username)
	if errors.Is(err, sql.ErrNoRows) {
		return session.Session{}, ErrNotFound
	}
	if err != nil {
		s.tel.ReportBroken(report_store_query, err, "LoadSession")
		return session.Session{}, err
	}
	return sess, nil
}

func (s Store) DeleteSession(ctx context.Context, profile string) error {
	_, err := s.exec(ctx, "delete from sessions where profile = $1", profile)
	if err != nil {
		s.tel.ReportBroken(report_store_query, err, "DeleteSession")
		return err
	}
	return nil
}

// Records are the work orders of a single user.
type Records struct {
	store    Store
	username string
}

func (r Records) Username() string {
	return r.username
}

// UpsertCreated records a work order that was just created on the portal.
// Creating the same code twice refreshes its content but keeps its flags.
func (r Records) UpsertCreated(ctx context.Context, order WorkOrder) error {
	createdAt := order.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := r.store.exec(
		ctx,
		`insert into work_orders (username, code, counterpart, question, answer, created_at, is_created)
		values ($1, $2, $3, $4, $5, $6, 1)
		on conflict (username, code) do update set
			counterpart = excluded.counterpart,
			question = excluded.question,
			answer = excluded.answer`,
		r.username,
		order.Code,
		order.Counterpart,
		order.Question,
		order.Answer,
		createdAt.Unix(),
	)
	if err != nil {
		r.store.tel.ReportBroken(report_store_query, err, "UpsertCreated", order.Code)
		return err
	}
	return nil
}

// SetFlag marks flag on the work order code, setting a flag that is already
// set changes nothing.
func (r Records) SetFlag(ctx context.Context, code string, flag Flag) error {
	res, err := r.store.exec(
		ctx,
		fmt.Sprintf("update work_orders set %s = 1 where username = $1 and code = $2", flag.column()),
		r.username,
		code,
	)
	if err != nil {
		r.store.tel.ReportBroken(report_store_query, err, "SetFlag", code)
		return err
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("set flag on %s: %w", code, ErrNotFound)
	}
	return nil
}

// Answer returns the stored feedback text of code, which may be empty.
func (r Records) Answer(ctx context.Context, code string) (string, error) {
	var answer string
	err := r.store.queryRow(
		ctx,
		"select answer from work_orders where username = $1 and code = $2",
		r.username,
		code,
	).Scan(&answer)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("answer of %s: %w", code, ErrNotFound)
	}
	if err != nil {
		r.store.tel.ReportBroken(report_store_query, err, "Answer", code)
		return "", err
	}
	return answer, nil
}

const workOrderColumns = "code, counterpart, question, answer, created_at, is_created, is_feedback, is_closed"

func scanWorkOrders(rows *sql.Rows) ([]WorkOrder, error) {
	defer rows.Close()

	var out []WorkOrder
	for rows.Next() {
		var order WorkOrder
		var createdAt int64
		var created, feedback, closed int64
		err := rows.Scan(
			&order.Code,
			&order.Counterpart,
			&order.Question,
			&order.Answer,
			&createdAt,
			&created,
			&feedback,
			&closed,
		)
		if err != nil {
			return nil, err
		}
		order.CreatedAt = time.Unix(createdAt, 0)
		order.Created = created != 0
		order.FeedbackGiven = feedback != 0
		order.Closed = closed != 0
		out = append(out, order)
	}
	return out, rows.Err()
}

// List returns the work orders created within [start, end), newest first.
func (r Records) List(ctx context.Context, start, end time.Time) ([]WorkOrder, error) {
	rows, err := r.store.query(
		ctx,
		fmt.Sprintf(
			`select %s from work_orders
			where username = $1 and created_at >= $2 and created_at < $3
			order by created_at desc, code desc`,
			workOrderColumns,
		),
		r.username,
		start.Unix(),
		end.Unix(),
	)
	if err != nil {
		r.store.tel.ReportBroken(report_store_query, err, "List")
		return nil, err
	}
	orders, err := scanWorkOrders(rows)
	if err != nil {
		r.store.tel.ReportBroken(report_store_query, err, "List")
		return nil, err
	}
	return orders, nil
}

// Unprocessed returns the work orders created within [start, end) that still
// need the actions selected by pending, oldest first.
func (r Records) Unprocessed(ctx context.Context, start, end time.Time, pending Pending) ([]WorkOrder, error) {
	rows, err := r.store.query(
		ctx,
		fmt.Sprintf(
			`select %s from work_orders
			where username = $1 and created_at >= $2 and created_at < $3 and %s
			order by created_at asc, code asc`,
			workOrderColumns,
			pending.predicate(),
		),
		r.username,
		start.Unix(),
		end.Unix(),
	)
	if err != nil {
		r.store.tel.ReportBroken(report_store_query, err, "Unprocessed")
		return nil, err
	}
	orders, err := scanWorkOrders(rows)
	if err != nil {
		r.store.tel.ReportBroken(report_store_query, err, "Unprocessed")
		return nil, err
	}
	return orders, nil
}

// Get returns a single work order.
func (r Records) Get(ctx context.Context, code string) (WorkOrder, error) {
	rows, err := r.store.query(
		ctx,
		fmt.Sprintf("select %s from work_orders where username = $1 and code = $2", workOrderColumns),
		r.username,
		code,
	)
	if err != nil {
		r.store.tel.ReportBroken(report_store_query, err, "Get", code)
		return WorkOrder{}, err
	}
	orders, err := scanWorkOrders(rows)
	if err != nil {
		r.store.tel.ReportBroken(report_store_query, err, "Get", code)
		return WorkOrder{}, err
	}
	if len(orders) == 0 {
		return WorkOrder{}, fmt.Errorf("work order %s: %w", code, ErrNotFound)
	}
	return orders[0], nil
}

// SetAnswer stores the feedback text to send for code.
func (r Records) SetAnswer(ctx context.Context, code, answer string) error {
	res, err := r.store.exec(
		ctx,
		"update work_orders set answer = $1 where username = $2 and code = $3",
		answer,
		r.username,
		code,
	)
	if err != nil {
		r.store.tel.ReportBroken(report_store_query, err, "SetAnswer", code)
		return err
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("set answer on %s: %w", code, ErrNotFound)
	}
	return nil
}
