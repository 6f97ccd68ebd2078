package controller

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"kernel-workspace-be/internal/dto"
	"kernel-workspace-be/internal/pkg/logger"
	"kernel-workspace-be/internal/pkg/serverutils"
	"kernel-workspace-be/internal/service"
	"kernel-workspace-be/pkg/ai/router"
	"kernel-workspace-be/pkg/approval"
	"kernel-workspace-be/pkg/llm"
	"kernel-workspace-be/pkg/rag/prompt"
	"kernel-workspace-be/pkg/rag/response"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tokenLLM struct {
	tokens []string
	err    error
}

func (t tokenLLM) Chat(context.Context, []llm.Message, ...llm.Option) (string, error) {
	return "", errors.New("not used")
}

func (t tokenLLM) Generate(context.Context, string, ...llm.Option) (string, error) {
	return "", errors.New("not used")
}

func (t tokenLLM) ChatStream(_ context.Context, _ []llm.Message, onToken llm.TokenFunc, _ ...llm.Option) error {
	for _, tok := range t.tokens {
		if err := onToken(tok); err != nil {
			return err
		}
	}
	return t.err
}

type fakeKernel struct {
	llm       tokenLLM
	committed []string
	cleared   int
}

func (f *fakeKernel) Ask(ctx context.Context, req *dto.AskRequest) (*service.AskResult, error) {
	return f.askWith(ctx, req, f.llm)
}

func (f *fakeKernel) askWith(ctx context.Context, req *dto.AskRequest, backend llm.LLMProvider) (*service.AskResult, error) {
	gen := response.NewGenerator(backend, nil, response.Config{}, logger.NewNopLogger())
	stream, err := gen.Start(ctx, response.Request{Query: req.Question, Messages: []llm.Message{{Role: llm.RoleUser, Content: req.Question}}})
	if err != nil {
		return nil, err
	}
	return &service.AskResult{
		Decision: router.Decision{Route: router.RouteWebSearch, Source: router.SourceClassifier},
		Status:   "Browsing the web...",
		Persona:  prompt.AlgorithmExplainer,
		Stream:   stream,
	}, nil
}

func (f *fakeKernel) CommitMemory(_ context.Context, req *dto.CommitMemoryRequest) error {
	f.committed = append(f.committed, req.Question)
	return nil
}

func (f *fakeKernel) ClearMemory(context.Context) error {
	f.cleared++
	return nil
}

func (f *fakeKernel) Workspace(context.Context) *dto.WorkspaceResponse {
	return &dto.WorkspaceResponse{Files: []dto.WorkspaceFileResponse{{Name: "main.py", PreviewChars: 12}}}
}

func (f *fakeKernel) Personas() []dto.PersonaResponse {
	return []dto.PersonaResponse{{Name: "Standard AI"}}
}

type fakeUpload struct {
	err error
}

func (f fakeUpload) Upload(_ context.Context, filename string, content io.Reader) (*dto.UploadResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	_, _ = io.ReadAll(content)
	return &dto.UploadResponse{Status: "success", Filename: filename, Chunks: 3}, nil
}

type fakeCommands struct {
	staged string
}

func (f *fakeCommands) Request(_ context.Context, req *dto.RequestCommandRequest) (*dto.RequestCommandResponse, error) {
	f.staged = req.Question
	return &dto.RequestCommandResponse{Status: "staged", Command: req.Question}, nil
}

func (f *fakeCommands) Approve(context.Context) (*dto.ApproveCommandResponse, error) {
	if f.staged == "" {
		return nil, &service.CommandError{Err: approval.ErrNothingStaged}
	}
	cmd := f.staged
	f.staged = ""
	return &dto.ApproveCommandResponse{Status: "error", Command: cmd, Output: "not found", ExitCode: 127}, nil
}

func (f *fakeCommands) Cancel(context.Context) bool {
	had := f.staged != ""
	f.staged = ""
	return had
}

type fakeExecution struct{}

func (fakeExecution) Execute(_ context.Context, req *dto.ExecuteRequest) *dto.ExecuteResponse {
	return &dto.ExecuteResponse{Status: "success", Output: "2\n", Kind: "ok"}
}

func newTestApp(kernel *fakeKernel, upload fakeUpload, commands *fakeCommands) *fiber.App {
	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	log := logger.NewNopLogger()
	NewKernelController(kernel, 0, log).RegisterRoutes(app)
	NewUploadController(upload).RegisterRoutes(app)
	NewCommandController(commands).RegisterRoutes(app)
	NewExecutionController(fakeExecution{}).RegisterRoutes(app)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(raw)
}

func TestAskStreamsTokensWithAgentHeaders(t *testing.T) {
	app := newTestApp(&fakeKernel{llm: tokenLLM{tokens: []string{"Binary ", "search ", "halves."}}}, fakeUpload{}, &fakeCommands{})

	resp, body := doJSON(t, app, "POST", "/ask", `{"question":"explain binary search","persona":"Algorithm Explainer"}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Binary search halves.", body)
	assert.Equal(t, "Browsing the web...", resp.Header.Get(HeaderAgentStatus))
	assert.Equal(t, "web_search", resp.Header.Get(HeaderAgentRoute))
	assert.Equal(t, "Algorithm Explainer", resp.Header.Get(HeaderAgentPersona))
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain"))
}

func TestAskMapsGenerationFailureTo502(t *testing.T) {
	app := newTestApp(&fakeKernel{llm: tokenLLM{err: errors.New("connection refused")}}, fakeUpload{}, &fakeCommands{})

	resp, body := doJSON(t, app, "POST", "/ask", `{"question":"anything at all"}`)

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, body, "connection refused")
}

func TestAskValidatesRequest(t *testing.T) {
	app := newTestApp(&fakeKernel{}, fakeUpload{}, &fakeCommands{})

	resp, body := doJSON(t, app, "POST", "/ask", `{"persona":"Standard AI"}`)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "question")
}

func TestCommandLifecycle(t *testing.T) {
	app := newTestApp(&fakeKernel{}, fakeUpload{}, &fakeCommands{})

	resp, body := doJSON(t, app, "POST", "/approve_command", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	var refused map[string]string
	require.NoError(t, json.Unmarshal([]byte(body), &refused))
	assert.Equal(t, approval.ErrNothingStaged.Error(), refused["error"])

	resp, body = doJSON(t, app, "POST", "/request_command", `{"question":"mvn test"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"staged","command":"mvn test","staged_at":"0001-01-01T00:00:00Z"}`, body)

	resp, body = doJSON(t, app, "POST", "/approve_command", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var out dto.ApproveCommandResponse
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	assert.Equal(t, "error", out.Status)
	assert.Equal(t, 127, out.ExitCode)
}

func TestMemoryEndpoints(t *testing.T) {
	kernel := &fakeKernel{}
	app := newTestApp(kernel, fakeUpload{}, &fakeCommands{})

	resp, body := doJSON(t, app, "POST", "/commit_memory", `{"question":"Close channels from the sender side"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"success","message":"Solution saved to long-term memory"}`, body)
	assert.Equal(t, []string{"Close channels from the sender side"}, kernel.committed)

	for i := 0; i < 2; i++ {
		resp, _ = doJSON(t, app, "POST", "/clear_memory", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}
	assert.Equal(t, 2, kernel.cleared)

	resp, body = doJSON(t, app, "GET", "/workspace", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"main.py"`)
}

func TestExecute(t *testing.T) {
	app := newTestApp(&fakeKernel{}, fakeUpload{}, &fakeCommands{})

	resp, body := doJSON(t, app, "POST", "/execute", `{"code":"print(1+1)","language":"python"}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"success","output":"2\n","kind":"ok"}`, body)
}
