// Package ticket creates work orders on the portal. Creation is a fixed walk
// across several pages where every page yields the url or token the next
// request needs.
package ticket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync/atomic"
	"tmsassist/internal/components/assert"
	"tmsassist/internal/components/telemetry"
	"tmsassist/internal/extract"
	"tmsassist/internal/portal"
	"tmsassist/internal/session"
)

const createAccepted = "提交成功"

const (
	report_orchestrator_create = "orchestrator.create"
	report_orchestrator_count  = "orchestrator.created"
)

const (
	ticketCategory = "99"
	visitWayRemote = "1"
	contactWechat  = "wx"
	contactMobile  = "mobile"
)

type Request struct {
	// Counterpart is the cinema code the ticket is about.
	Counterpart string
	Question    string
	// Wechat takes precedence over Mobile when both are given, with neither
	// set the form is submitted without contact fields.
	Wechat string
	Mobile string
}

func (r Request) contact() (way, value string) {
	if r.Wechat != "" {
		return contactWechat, r.Wechat
	}
	if r.Mobile != "" {
		return contactMobile, r.Mobile
	}
	return "", ""
}

type Opener interface {
	Open(sess session.Session) (*portal.Client, error)
}

type Orchestrator struct {
	portal    Opener
	extractor extract.Extractor
	tel       telemetry.API
	created   atomic.Int64
}

func NewOrchestrator(portal Opener, extractor extract.Extractor, tel telemetry.API) *Orchestrator {
	assert.NotNil(portal)
	assert.NotNil(extractor)
	assert.NotNil(tel)

	return &Orchestrator{
		portal:    portal,
		extractor: extractor,
		tel:       telemetry.NewScopedAPI("ticket", tel),
	}
}

func remoteFailure(stage Stage, err error) Outcome {
	return Outcome{Kind: RemoteFailure, Stage: stage, Err: err}
}

func notFound(stage Stage) Outcome {
	return Outcome{Kind: NotFound, Stage: stage}
}

// Create runs the creation sequence under sess. It stops at the first step
// that fails and never retries.
func (o *Orchestrator) Create(ctx context.Context, sess session.Session, req Request) Outcome {
	client, err := o.portal.Open(sess)
	if err != nil {
		o.tel.ReportBroken(report_orchestrator_create, fmt.Errorf("open client: %w", err))
		return remoteFailure(StageEditLink, err)
	}

	o.tel.ReportDebug("lookup counterpart", req.Counterpart)
	lookup, err := client.Get(ctx, portal.EndpointLookup, url.Values{
		"n2nip":      {""},
		"cinemacode": {req.Counterpart},
	})
	if err != nil {
		return remoteFailure(StageEditLink, err)
	}
	editLink, ok := o.extractor.Extract(ctx, lookup.Body, extract.EditLink)
	if !ok {
		return notFound(StageEditLink)
	}

	editPage, outcome, ok := o.follow(ctx, client, lookup, editLink, StageConfigLink)
	if !ok {
		return outcome
	}
	configLink, ok := o.extractor.Extract(ctx, editPage.Body, extract.ConfigLink)
	if !ok {
		return notFound(StageConfigLink)
	}

	configPage, outcome, ok := o.follow(ctx, client, editPage, configLink, StageToken)
	if !ok {
		return outcome
	}
	token, ok := o.extractor.Extract(ctx, configPage.Body, extract.Token)
	if !ok {
		return notFound(StageToken)
	}

	seed := url.Values{"token": {token}}
	_, err = client.Get(ctx, portal.EndpointWorkOrder, seed)
	if err != nil {
		return remoteFailure(StageTokenSeed, err)
	}

	way, contact := req.contact()
	form := url.Values{
		"type":         {ticketCategory},
		"describe":     {req.Question},
		"input_file[]": {""},
		"visit_way":    {visitWayRemote},
	}
	if way != "" {
		form.Set("contact_way", way)
		form.Set("contact", contact)
	}
	body, err := client.PostForm(ctx, portal.EndpointCreate, form)
	if err != nil {
		return remoteFailure(StageCreate, err)
	}
	var ack struct {
		Msg string `json:"msg"`
	}
	err = json.Unmarshal(body, &ack)
	if err != nil || ack.Msg != createAccepted {
		o.tel.ReportWarning(
			report_orchestrator_create,
			fmt.Errorf("unexpected creation response"),
			req.Counterpart,
			string(body),
		)
		return Outcome{Kind: SemanticMismatch, Stage: StageCreate, Body: string(body)}
	}

	// the portal may rotate cookies after creation
	_, err = client.Get(ctx, portal.EndpointWorkOrder, seed)
	if err != nil {
		return remoteFailure(StageTokenRefresh, err)
	}

	list, err := client.Get(ctx, portal.EndpointWorkOrder, nil)
	if err != nil {
		return remoteFailure(StageOrderId, err)
	}
	id, ok := o.extractor.Extract(ctx, list.Body, extract.LatestOrderId)
	if !ok {
		return notFound(StageOrderId)
	}

	o.tel.ReportCount(report_orchestrator_count, o.created.Add(1))
	return Outcome{Kind: Success, Stage: StageOrderId, Id: id}
}

// follow fetches a link found on from, failures are attributed to stage.
func (o *Orchestrator) follow(ctx context.Context, client *portal.Client, from portal.Page, link string, stage Stage) (portal.Page, Outcome, bool) {
	target, err := from.Resolve(link)
	if err != nil {
		o.tel.ReportWarning(report_orchestrator_create, fmt.Errorf("resolve link: %w", err), link)
		return portal.Page{}, remoteFailure(stage, err), false
	}
	page, err := client.Get(ctx, target, nil)
	if err != nil {
		return portal.Page{}, remoteFailure(stage, err), false
	}
	return page, Outcome{}, true
}
