package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method string
	path   string
	body   map[string]interface{}
}

func newKernelStub(t *testing.T, seen *[]recorded) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{method: r.Method, path: r.URL.Path}
		if r.Header.Get("Content-Type") == "application/json" {
			_ = json.NewDecoder(r.Body).Decode(&rec.body)
		}
		*seen = append(*seen, rec)

		switch r.URL.Path {
		case "/ask":
			w.Header().Set("X-Agent-Status", "ok")
			w.Header().Set("X-Agent-Route", "chat")
			w.Header().Set("X-Agent-Persona", "default")
			io.WriteString(w, "Hello there")
		case "/approve_command":
			w.WriteHeader(http.StatusConflict)
			io.WriteString(w, `{"error":"no command staged"}`)
		case "/upload":
			require.NoError(t, r.ParseMultipartForm(1<<20))
			_, header, err := r.FormFile("file")
			require.NoError(t, err)
			io.WriteString(w, `{"status":"success","data":{"filename":"`+header.Filename+`"}}`)
		default:
			io.WriteString(w, `{"status":"success"}`)
		}
	}))
}

func run(t *testing.T, srv *httptest.Server, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--server", srv.URL}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestAskStreamsBodyAndSendsPersona(t *testing.T) {
	var seen []recorded
	srv := newKernelStub(t, &seen)
	defer srv.Close()

	out, err := run(t, srv, "ask", "--persona", "coder", "hi", "there")
	require.NoError(t, err)

	assert.Contains(t, out, "Hello there")
	assert.Contains(t, out, "route=chat")
	require.Len(t, seen, 1)
	assert.Equal(t, "hi there", seen[0].body["question"])
	assert.Equal(t, "coder", seen[0].body["persona"])
}

func TestApproveSurfacesConflict(t *testing.T) {
	var seen []recorded
	srv := newKernelStub(t, &seen)
	defer srv.Close()

	_, err := run(t, srv, "command", "approve")
	var apiErr *apiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
}

func TestUploadWithAnalyzeAsksAboutFile(t *testing.T) {
	var seen []recorded
	srv := newKernelStub(t, &seen)
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("kernel notes"), 0o644))

	out, err := run(t, srv, "upload", "--analyze", path)
	require.NoError(t, err)

	assert.Contains(t, out, `"filename": "notes.txt"`)
	require.Len(t, seen, 2)
	assert.Equal(t, "/upload", seen[0].path)
	assert.Equal(t, "/ask", seen[1].path)
	assert.Contains(t, seen[1].body["question"], `"notes.txt"`)
}

func TestExecuteInfersLanguage(t *testing.T) {
	var seen []recorded
	srv := newKernelStub(t, &seen)
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "Main.java")
	require.NoError(t, os.WriteFile(path, []byte("class Main {}"), 0o644))

	_, err := run(t, srv, "execute", path)
	require.NoError(t, err)

	require.Len(t, seen, 1)
	assert.Equal(t, "java", seen[0].body["language"])
	assert.Equal(t, "class Main {}", seen[0].body["code"])
}
