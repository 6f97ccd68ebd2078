package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"kernel-workspace-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newChatServer(t *testing.T, chunks []string, captured *map[string]interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		if captured != nil {
			_ = json.NewDecoder(r.Body).Decode(captured)
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		for _, c := range chunks {
			fmt.Fprintf(w, `{"model":"test","message":{"role":"assistant","content":%q},"done":false}`+"\n", c)
		}
		fmt.Fprint(w, `{"model":"test","message":{"role":"assistant","content":""},"done":true}`+"\n")
	}))
}

func TestChatStreamForwardsTokens(t *testing.T) {
	var body map[string]interface{}
	srv := newChatServer(t, []string{"Hel", "lo", "!"}, &body)
	defer srv.Close()

	p, err := NewOllamaProvider(srv.URL, "llama3")
	require.NoError(t, err)

	var tokens []string
	err = p.ChatStream(context.Background(), []llm.Message{
		{Role: llm.RoleSystem, Content: "sys"},
		{Role: "model", Content: "earlier"},
		{Role: llm.RoleUser, Content: "hi"},
	}, func(tok string) error {
		tokens = append(tokens, tok)
		return nil
	}, llm.WithTemperature(0.2))
	require.NoError(t, err)

	assert.Equal(t, []string{"Hel", "lo", "!"}, tokens)
	assert.Equal(t, "llama3", body["model"])
	assert.Equal(t, true, body["stream"])

	messages := body["messages"].([]interface{})
	require.Len(t, messages, 3)
	assert.Equal(t, "assistant", messages[1].(map[string]interface{})["role"])
}

func TestChatConcatenatesResponse(t *testing.T) {
	srv := newChatServer(t, []string{`{"route":`, ` "chat"}`}, nil)
	defer srv.Close()

	p, err := NewOllamaProvider(srv.URL, "llama3")
	require.NoError(t, err)

	out, err := p.Generate(context.Background(), "classify", llm.WithModel("other"))
	require.NoError(t, err)
	assert.Equal(t, `{"route": "chat"}`, out)
}

func TestChatStreamAbortsOnCallbackError(t *testing.T) {
	srv := newChatServer(t, []string{"a", "b", "c"}, nil)
	defer srv.Close()

	p, err := NewOllamaProvider(srv.URL, "llama3")
	require.NoError(t, err)

	stop := errors.New("client gone")
	count := 0
	err = p.ChatStream(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "x"}}, func(string) error {
		count++
		return stop
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, count)
}

func TestChatReportsBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":"model 'missing' not found"}`)
	}))
	defer srv.Close()

	p, err := NewOllamaProvider(srv.URL, "missing")
	require.NoError(t, err)

	_, err = p.Chat(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "x"}})
	require.Error(t, err)
}
