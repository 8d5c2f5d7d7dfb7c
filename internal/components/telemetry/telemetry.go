// Package telemetry is how tmsassist components report what happened to them.
// Components never log directly, they report through an API so tests can
// swap in a Recorder and assert on the reports.
package telemetry

import (
	"fmt"
)

// API receives reports from components.
type API interface {
	// ReportBroken reports a failure someone should look at, like a portal
	// request that never got a response or a local query that failed.
	//
	// id names the component and method (`client.get`, `store.query`), not the
	// failing line. Ids are lowercase, dashes separate words. The package
	// prefix comes from NewScopedAPI, each package keeps its ids in
	// `report_...` constants. Details go into params, errors first.
	ReportBroken(id string, params ...any)

	// ReportWarning reports something unexpected that did not stop the
	// operation, like the portal answering with an error status or an
	// extraction fallback giving an unusable answer. Ids follow ReportBroken.
	ReportWarning(id string, params ...any)

	// ReportDebug reports progress, only shown with --debug.
	ReportDebug(msg string, params ...any)

	// ReportCount reports the running total of an event, for example work
	// orders created so far by this process. Totals are samples and must not
	// be summed.
	ReportCount(id string, count int64)
}

// ScopedAPI prefixes every id with a namespace, usually the package name.
type ScopedAPI struct {
	namespace string
	inner     API
}

func NewScopedAPI(namespace string, inner API) ScopedAPI {
	return ScopedAPI{namespace: namespace, inner: inner}
}

func (s ScopedAPI) scoped(id string) string {
	return fmt.Sprintf("%s: %s", s.namespace, id)
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(s.scoped(id), params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(s.scoped(id), params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(s.scoped(msg), params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(s.scoped(id), count)
}
