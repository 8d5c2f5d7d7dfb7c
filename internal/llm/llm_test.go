package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"tmsassist/internal/components/telemetry"

	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tel := telemetry.NewRecorder()

	asker, err := New(Options{}, tel)
	require.NoError(t, err)
	require.Nil(t, asker)

	_, err = New(Options{Provider: "anthropic"}, tel)
	require.Error(t, err)

	_, err = New(Options{Provider: "gemini"}, tel)
	require.Error(t, err)

	asker, err = New(Options{Provider: "OpenAI"}, tel)
	require.NoError(t, err)
	require.IsType(t, OpenAI{}, asker)

	asker, err = New(Options{Provider: "anthropic", ApiKey: "sk-test"}, tel)
	require.NoError(t, err)
	require.IsType(t, Anthropic{}, asker)
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "abc", truncate("abc", 10))
	require.Equal(t, "ab", truncate("abc", 2))
	// "编" is three bytes, never cut in half
	require.Equal(t, "a", truncate("a编辑", 3))
	require.Equal(t, "a编", truncate("a编辑", 4))
}

func TestOpenAIAsk(t *testing.T) {
	var received openAIRequest
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&received)

		w.Header().Set("content-type", "application/json")
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"/admin/etms/n2nip/edit?id=11"}}]}`)
	}))
	defer server.Close()

	asker := NewOpenAI(Options{
		Model:       "gpt-4o-mini",
		BaseUrl:     server.URL + "/v1/",
		ApiKey:      "sk-test",
		MaxDocument: 8,
	}, telemetry.NewRecorder())

	answer, err := asker.Ask(context.Background(), "<html>0123456789</html>", "find the edit link")
	require.NoError(t, err)
	require.Equal(t, "/admin/etms/n2nip/edit?id=11", answer)

	require.Equal(t, "Bearer sk-test", auth)
	require.Equal(t, "gpt-4o-mini", received.Model)
	require.Equal(t, []openAIMessage{
		{Role: "system", Content: "find the edit link"},
		{Role: "user", Content: "<html>01"},
	}, received.Messages)
}

func TestOpenAIErrors(t *testing.T) {
	table := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{name: "api error", status: http.StatusUnauthorized, body: `{"error":{"message":"invalid api key"}}`, message: "invalid api key"},
		{name: "bare status", status: http.StatusBadGateway, body: `{}`, message: "http status 502"},
		{name: "no choices", status: http.StatusOK, body: `{"choices":[]}`, message: "no choices"},
	}

	for _, row := range table {
		t.Run(row.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("content-type", "application/json")
				w.WriteHeader(row.status)
				fmt.Fprint(w, row.body)
			}))
			defer server.Close()

			asker := NewOpenAI(Options{Model: "m", BaseUrl: server.URL}, telemetry.NewRecorder())
			_, err := asker.Ask(context.Background(), "doc", "instruction")
			require.Error(t, err)
			require.True(t, strings.Contains(err.Error(), row.message), err.Error())
		})
	}
}

func TestAnthropicAsk(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&received)
		w.Header().Set("content-type", "application/json")
		fmt.Fprint(w, `{
			"id": "msg_01",
			"type": "message",
			"role": "assistant",
			"model": "claude-sonnet-4-5-20250929",
			"content": [{"type": "text", "text": "20931"}],
			"stop_reason": "end_turn",
			"stop_sequence": null,
			"usage": {"input_tokens": 120, "output_tokens": 3}
		}`)
	}))
	defer server.Close()

	asker := NewAnthropic(Options{
		Model:       "claude-sonnet-4-5-20250929",
		ApiKey:      "sk-test",
		BaseUrl:     server.URL,
		MaxDocument: defaultMaxDocument,
		Timeout:     defaultTimeout,
	}, telemetry.NewRecorder())

	answer, err := asker.Ask(context.Background(), "<html></html>", "reply with the id")
	require.NoError(t, err)
	require.Equal(t, "20931", answer)
	require.Equal(t, "claude-sonnet-4-5-20250929", received["model"])
}
