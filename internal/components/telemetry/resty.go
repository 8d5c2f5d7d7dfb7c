package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	report_resty_request  = "resty.request"
	report_resty_response = "resty.response"
)

const redacted = "<REDACTED>"

// maxDumpBody caps how much of a response body goes into a warning.
const maxDumpBody = 4096

// sensitiveHeaders carry credentials: the portal session cookie and the
// api key of the extraction fallback.
var sensitiveHeaders = map[string]struct{}{
	"Cookie":        {},
	"Set-Cookie":    {},
	"Authorization": {},
	"X-Api-Key":     {},
}

// sensitiveParams are query parameters that carry credentials, the portal
// passes the work order token in the query string.
var sensitiveParams = map[string]struct{}{
	"token":    {},
	"password": {},
	"key":      {},
	"api_key":  {},
}

type restyHooks struct {
	tel     API
	counter *uint64
}

// InstrumentResty reports every request made through client as debug and
// every error status as a warning carrying a dump of the exchange. Dumps
// never contain request bodies and credentials are redacted.
func InstrumentResty(client *resty.Client, tel API) {
	var counter uint64
	hooks := restyHooks{tel: tel, counter: &counter}

	client.OnBeforeRequest(hooks.before)
	client.OnAfterResponse(hooks.after)
	client.OnError(hooks.failed)
}

type requestKeyType struct{}

var requestKey requestKeyType

type requestInfo struct {
	id    uint64
	start time.Time
}

func (h restyHooks) before(_ *resty.Client, req *resty.Request) error {
	info := requestInfo{
		id:    atomic.AddUint64(h.counter, 1),
		start: time.Now(),
	}
	h.tel.ReportDebug(report_resty_request, info.id, req.Method, redactUrl(req.URL))
	req.SetContext(context.WithValue(req.Context(), requestKey, info))
	return nil
}

func (h restyHooks) after(_ *resty.Client, res *resty.Response) error {
	// requests rejected before the before hook ran have no info attached
	info, ok := res.Request.Context().Value(requestKey).(requestInfo)
	if !ok {
		return nil
	}

	h.tel.ReportDebug(
		report_resty_response,
		info.id,
		time.Since(info.start).String(),
		res.Status(),
	)
	if res.IsError() {
		h.tel.ReportWarning(
			report_resty_response,
			fmt.Errorf("http status %d", res.StatusCode()),
			dumpExchange(res),
		)
	}
	return nil
}

func (h restyHooks) failed(req *resty.Request, err error) {
	var elapsed time.Duration
	if info, ok := req.Context().Value(requestKey).(requestInfo); ok {
		elapsed = time.Since(info.start)
	}
	h.tel.ReportBroken(
		report_resty_response,
		err,
		req.Method,
		redactUrl(req.URL),
		elapsed,
	)
}

// redactUrl replaces credentials in raw, a url that does not parse is
// dropped entirely.
func redactUrl(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return redacted
	}
	if parsed.User != nil {
		parsed.User = url.User(redacted)
	}
	query := parsed.Query()
	changed := false
	for key := range query {
		if _, ok := sensitiveParams[strings.ToLower(key)]; ok {
			query.Set(key, redacted)
			changed = true
		}
	}
	if changed {
		parsed.RawQuery = query.Encode()
	}
	return parsed.String()
}

func dumpHeaders(headers http.Header) string {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := sensitiveHeaders[http.CanonicalHeaderKey(k)]; ok {
			lines = append(lines, k+": "+redacted)
			continue
		}
		for _, v := range headers[k] {
			lines = append(lines, k+": "+v)
		}
	}
	return strings.Join(lines, "\n")
}

func dumpBody(body string) string {
	if body == "" {
		return "<EMPTY BODY>"
	}
	if len(body) > maxDumpBody {
		return body[:maxDumpBody] + "..."
	}
	return body
}

// dumpExchange renders the request line and headers and the full response.
func dumpExchange(res *resty.Response) string {
	var requestHeaders string
	if res.Request.RawRequest != nil {
		requestHeaders = dumpHeaders(res.Request.RawRequest.Header)
	}

	servedFrom := res.Request.URL
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		servedFrom = res.RawResponse.Request.URL.String()
	}

	var out strings.Builder
	fmt.Fprintf(&out, "> %s %s\n", res.Request.Method, redactUrl(res.Request.URL))
	if requestHeaders != "" {
		out.WriteString(requestHeaders + "\n")
	}
	fmt.Fprintf(&out, "\n< %d %s\n", res.StatusCode(), redactUrl(servedFrom))
	if responseHeaders := dumpHeaders(res.Header()); responseHeaders != "" {
		out.WriteString(responseHeaders + "\n")
	}
	out.WriteString("\n" + dumpBody(res.String()))
	return out.String()
}
