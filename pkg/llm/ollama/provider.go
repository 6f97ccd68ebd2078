package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"kernel-workspace-be/pkg/llm"

	"github.com/ollama/ollama/api"
)

type OllamaProvider struct {
	BaseURL   string
	ModelName string
	client    *api.Client
}

// Ensure OllamaProvider implements LLMProvider
var _ llm.LLMProvider = &OllamaProvider{}

func NewOllamaProvider(baseURL, modelName string) (*OllamaProvider, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse ollama base url: %w", err)
	}

	// No client-level timeout: streamed answers can legitimately run for
	// minutes. Callers bound each call through ctx instead.
	httpClient := &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			ResponseHeaderTimeout: 120 * time.Second,
		},
	}

	return &OllamaProvider{
		BaseURL:   baseURL,
		ModelName: modelName,
		client:    api.NewClient(base, httpClient),
	}, nil
}

func (o *OllamaProvider) buildRequest(history []llm.Message, stream bool, opts ...llm.Option) *api.ChatRequest {
	options := llm.Apply(opts...)

	messages := make([]api.Message, len(history))
	for i, msg := range history {
		role := msg.Role
		// Map standard roles if necessary, though "user", "assistant", "system" are standard
		if role == "model" {
			role = llm.RoleAssistant
		}
		messages[i] = api.Message{
			Role:    role,
			Content: msg.Content,
		}
	}

	model := o.ModelName
	if options.Model != "" {
		model = options.Model
	}

	modelOptions := map[string]interface{}{}
	if options.Temperature != nil {
		modelOptions["temperature"] = *options.Temperature
	}
	if options.MaxTokens > 0 {
		modelOptions["num_predict"] = options.MaxTokens
	}

	req := &api.ChatRequest{
		Model:    model,
		Messages: messages,
		Stream:   &stream,
		Options:  modelOptions,
	}
	if options.JSONFormat {
		req.Format = []byte(`"json"`)
	}
	return req
}

func (o *OllamaProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	req := o.buildRequest(history, false, opts...)

	var content strings.Builder
	err := o.client.Chat(ctx, req, func(res api.ChatResponse) error {
		content.WriteString(res.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat failed: %w", err)
	}

	return content.String(), nil
}

func (o *OllamaProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	// Reuse Chat for simplicity as most new LLMs are chat-optimized
	return o.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, opts...)
}

func (o *OllamaProvider) ChatStream(ctx context.Context, history []llm.Message, onToken llm.TokenFunc, opts ...llm.Option) error {
	req := o.buildRequest(history, true, opts...)

	err := o.client.Chat(ctx, req, func(res api.ChatResponse) error {
		if res.Message.Content == "" {
			return nil
		}
		return onToken(res.Message.Content)
	})
	if err != nil {
		return fmt.Errorf("ollama stream failed: %w", err)
	}
	return nil
}
