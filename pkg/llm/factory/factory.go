package factory

import (
	"fmt"
	"strings"

	"kernel-workspace-be/pkg/llm"
	"kernel-workspace-be/pkg/llm/ollama"
)

const (
	defaultOllamaURL = "http://localhost:11434"
	defaultModel     = "llama3"
)

// NewLLMProvider builds the chat backend named by LLM_PROVIDER. Ollama is the
// only backend; an empty name selects it.
func NewLLMProvider(providerType, modelName, baseURL string) (llm.LLMProvider, error) {
	switch strings.ToLower(strings.TrimSpace(providerType)) {
	case "ollama", "":
		if baseURL == "" {
			baseURL = defaultOllamaURL
		}
		if modelName == "" {
			modelName = defaultModel
		}
		return ollama.NewOllamaProvider(baseURL, modelName)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}
