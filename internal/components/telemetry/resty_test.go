package telemetry

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

func newFailingServer(t testing.TB) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "PHPSESSID", Value: "rotated-secret"})
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "upstream down")
	}))
	t.Cleanup(server.Close)
	return server
}

func reportText(reports []Report) string {
	var out strings.Builder
	for _, r := range reports {
		out.WriteString(r.Id)
		for _, p := range r.Params {
			fmt.Fprintf(&out, " %v", p)
		}
		out.WriteString("\n")
	}
	return out.String()
}

func TestInstrumentRestyBodylessErrorStatus(t *testing.T) {
	server := newFailingServer(t)
	tel := NewRecorder()
	client := resty.New().SetBaseURL(server.URL)
	InstrumentResty(client, tel)

	res, err := client.R().Get("/admin/dashboard")
	require.NoError(t, err)
	require.Equal(t, http.StatusBadGateway, res.StatusCode())

	// an empty form has no body either
	res, err = client.R().SetFormData(map[string]string{}).Post("/admin/workorder/ajax_update")
	require.NoError(t, err)
	require.Equal(t, http.StatusBadGateway, res.StatusCode())

	warnings := tel.Reports("warning", report_resty_response)
	require.Len(t, warnings, 2)
	require.Contains(t, reportText(warnings), "upstream down")
}

func TestInstrumentRestyRedactsCredentials(t *testing.T) {
	server := newFailingServer(t)
	tel := NewRecorder()
	client := resty.New().SetBaseURL(server.URL)
	InstrumentResty(client, tel)

	_, err := client.R().
		SetHeader("Cookie", "PHPSESSID=s3cr3t").
		SetAuthToken("sk-live-key").
		SetFormData(map[string]string{"username": "alice", "password": "hunter2"}).
		Post("/user/ajax_login")
	require.NoError(t, err)

	_, err = client.R().
		SetQueryParam("token", "5f2b9c0e71d34a8b").
		SetQueryParam("cinemacode", "31071401").
		Get("/cinema/workorder")
	require.NoError(t, err)

	text := reportText(tel.Reports("warning", ""))
	require.NotEmpty(t, text)
	for _, secret := range []string{"s3cr3t", "hunter2", "sk-live-key", "5f2b9c0e71d34a8b", "rotated-secret"} {
		require.NotContains(t, text, secret)
	}
	require.Contains(t, text, "31071401")
	require.Contains(t, text, redacted)

	debug := reportText(tel.Reports("debug", ""))
	require.NotContains(t, debug, "5f2b9c0e71d34a8b")
}

func TestRedactUrl(t *testing.T) {
	require.Equal(t, "https://c.baobaot.com/cinema/workorder", redactUrl("https://c.baobaot.com/cinema/workorder"))
	require.Equal(
		t,
		"/cinema/workorder?cinemacode=1&token=%3CREDACTED%3E",
		redactUrl("/cinema/workorder?token=abc&cinemacode=1"),
	)
	require.NotContains(t, redactUrl("https://alice:pw@c.baobaot.com/"), "pw")
}
