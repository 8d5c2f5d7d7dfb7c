// Package portal is the HTTP transport for the TMS portal. It owns the fixed
// endpoints and turns a session's cookie material into a working cookie jar,
// everything it returns is raw page bodies for the extract package to read.
package portal

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
	"tmsassist/internal/components/assert"
	"tmsassist/internal/components/telemetry"
	"tmsassist/internal/session"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const DefaultBaseUrl = "https://c.baobaot.com"

const (
	EndpointLogin        = "/user/ajax_login"
	EndpointDashboard    = "/admin/dashboard"
	EndpointLookup       = "/admin/etms/n2nip"
	EndpointWorkOrder    = "/cinema/workorder"
	EndpointCreate       = "/cinema/workorder/ajax_create"
	EndpointUpdate       = "/admin/workorder/ajax_update"
	defaultUserAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"
	defaultClientTimeout = 30 * time.Second
)

const (
	report_client_get       = "client.get"
	report_client_post_form = "client.post-form"
)

type Options struct {
	BaseUrl string
	// Timeout is the per request timeout, 0 means 30 seconds.
	Timeout time.Duration
	// RequestsPerSecond limits requests across every client opened by the
	// same Factory, 0 means unlimited.
	RequestsPerSecond float64
	CloudflareBypass  bool
	UserAgent         string
}

// Factory opens portal clients, one per operation.
type Factory struct {
	baseUrl *url.URL
	options Options
	limiter *rate.Limiter
	tel     telemetry.API
}

func NewFactory(options Options, tel telemetry.API) (Factory, error) {
	assert.NotNil(tel)

	if options.BaseUrl == "" {
		options.BaseUrl = DefaultBaseUrl
	}
	if options.Timeout == 0 {
		options.Timeout = defaultClientTimeout
	}
	if options.UserAgent == "" {
		options.UserAgent = defaultUserAgent
	}

	parsed, err := url.Parse(strings.TrimSuffix(options.BaseUrl, "/"))
	if err != nil {
		return Factory{}, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return Factory{}, fmt.Errorf("base url '%s' must be absolute", options.BaseUrl)
	}

	var limiter *rate.Limiter
	if options.RequestsPerSecond > 0 {
		burst := int(options.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(options.RequestsPerSecond), burst)
	}

	return Factory{
		baseUrl: parsed,
		options: options,
		limiter: limiter,
		tel:     telemetry.NewScopedAPI("portal", tel),
	}, nil
}

func (f Factory) BaseUrl() *url.URL {
	u := *f.baseUrl
	return &u
}

// Host is the portal host, links outside of it are never followed.
func (f Factory) Host() string {
	return f.baseUrl.Host
}

// Open creates a client whose cookie jar is seeded with the session's
// cookie material. Cookies the portal sets while the client is in use stay
// inside that client.
func (f Factory) Open(sess session.Session) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	jar.SetCookies(f.baseUrl, ParseCookies(sess.Cookie))

	httpClient := resty.New()
	httpClient.SetBaseURL(f.baseUrl.String())
	httpClient.SetCookieJar(jar)
	if f.options.CloudflareBypass {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}
	httpClient.SetHeader("user-agent", f.options.UserAgent)
	httpClient.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(f.baseUrl.Hostname()))
	httpClient.SetTimeout(f.options.Timeout)

	if f.limiter != nil {
		limiter := f.limiter
		httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return limiter.Wait(req.Context())
		})
	}

	telemetry.InstrumentResty(httpClient, f.tel)

	return &Client{
		baseUrl: f.baseUrl,
		http:    httpClient,
		jar:     jar,
		tel:     f.tel,
	}, nil
}

// StatusError is returned when the portal answers with a status >= 400.
type StatusError struct {
	Method string
	Url    string
	Status int
}

func (e StatusError) Error() string {
	return fmt.Sprintf("%s %s: http status %d", e.Method, e.Url, e.Status)
}

// Page is a fetched document and the url it was finally served from.
type Page struct {
	Url  *url.URL
	Body []byte
}

// Resolve turns a link found on the page into an absolute url.
func (p Page) Resolve(ref string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", err
	}
	if p.Url == nil {
		return parsed.String(), nil
	}
	return p.Url.ResolveReference(parsed).String(), nil
}

type Client struct {
	baseUrl *url.URL
	http    *resty.Client
	jar     http.CookieJar
	tel     telemetry.API
}

func (c *Client) resolve(endpoint string) string {
	parsed, err := url.Parse(endpoint)
	if err != nil || parsed.IsAbs() {
		return endpoint
	}
	return c.baseUrl.ResolveReference(parsed).String()
}

func finalUrl(res *resty.Response, fallback string) *url.URL {
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		return res.RawResponse.Request.URL
	}
	parsed, _ := url.Parse(fallback)
	return parsed
}

// Get fetches endpoint, which may be a path on the portal or an absolute url.
func (c *Client) Get(ctx context.Context, endpoint string, query url.Values) (Page, error) {
	target := c.resolve(endpoint)

	req := c.http.R().SetContext(ctx)
	if query != nil {
		req.SetQueryParamsFromValues(query)
	}
	res, err := req.Get(target)
	if err != nil {
		c.tel.ReportBroken(report_client_get, fmt.Errorf("fetch: %w", err), target)
		return Page{}, err
	}
	if res.IsError() {
		return Page{}, StatusError{Method: http.MethodGet, Url: target, Status: res.StatusCode()}
	}

	return Page{
		Url:  finalUrl(res, target),
		Body: res.Body(),
	}, nil
}

// PostForm submits an urlencoded form and returns the raw response body.
func (c *Client) PostForm(ctx context.Context, endpoint string, form url.Values) ([]byte, error) {
	target := c.resolve(endpoint)

	res, err := c.http.R().
		SetContext(ctx).
		SetFormDataFromValues(form).
		Post(target)
	if err != nil {
		c.tel.ReportBroken(report_client_post_form, fmt.Errorf("fetch: %w", err), target)
		return nil, err
	}
	if res.IsError() {
		return res.Body(), StatusError{Method: http.MethodPost, Url: target, Status: res.StatusCode()}
	}
	return res.Body(), nil
}

// Cookie serializes the cookies the jar holds for the portal, including any
// the portal has set since the client was opened.
func (c *Client) Cookie() string {
	return FormatCookies(c.jar.Cookies(c.baseUrl))
}
