package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"tmsassist/internal/session"

	"github.com/PuerkitoBio/goquery"
)

const loginAccepted = "登录成功"

const (
	report_login              = "login"
	report_dashboard_username = "dashboard-username"
)

// ErrLoginRejected wraps the message the portal gave when refusing a login.
var ErrLoginRejected = errors.New("login rejected")

type ackResponse struct {
	Msg string `json:"msg"`
}

// Login authenticates against the portal and returns the resulting session.
func (f Factory) Login(ctx context.Context, username, password string) (session.Session, error) {
	client, err := f.Open(session.Session{})
	if err != nil {
		return session.Session{}, err
	}

	body, err := client.PostForm(ctx, EndpointLogin, url.Values{
		"username": {username},
		"password": {password},
	})
	if err != nil {
		return session.Session{}, fmt.Errorf("login: %w", err)
	}

	var ack ackResponse
	err = json.Unmarshal(body, &ack)
	if err != nil {
		f.tel.ReportWarning(report_login, fmt.Errorf("parse response: %w", err), string(body))
		return session.Session{}, fmt.Errorf("login: parse response: %w", err)
	}
	if ack.Msg != loginAccepted {
		return session.Session{}, fmt.Errorf("%w: %s", ErrLoginRejected, ack.Msg)
	}

	cookie := client.Cookie()
	if cookie == "" {
		f.tel.ReportWarning(report_login, fmt.Errorf("portal accepted login without setting cookies"), username)
	}

	return session.Session{
		Cookie:   cookie,
		Username: username,
	}, nil
}

// DashboardUsername returns the display name the portal shows for sess.
func (f Factory) DashboardUsername(ctx context.Context, sess session.Session) (string, error) {
	client, err := f.Open(sess)
	if err != nil {
		return "", err
	}

	page, err := client.Get(ctx, EndpointDashboard, nil)
	if err != nil {
		return "", fmt.Errorf("dashboard: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(page.Body))
	if err != nil {
		f.tel.ReportBroken(report_dashboard_username, fmt.Errorf("parse: %w", err))
		return "", fmt.Errorf("dashboard: %w", err)
	}

	username := doc.Find("span.username").First()
	if username.Length() == 0 {
		return "", fmt.Errorf("dashboard: could not find span.username")
	}
	return strings.TrimSpace(username.Text()), nil
}
