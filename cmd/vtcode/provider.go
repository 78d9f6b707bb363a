package main

import (
	"fmt"
	"strings"

	"github.com/vtcode-ai/vtcode/internal/agent"
	"github.com/vtcode-ai/vtcode/internal/agent/providers"
	"github.com/vtcode-ai/vtcode/internal/config"
)

// providerFor resolves a model id to its backend by prefix, exactly as
// SPEC_FULL.md's invariant 10 requires: backend_of("gpt-4o") = OpenAI,
// backend_of("claude-3-opus") = Anthropic, backend_of("gemini-2.5-pro") =
// Gemini. Selection is a plain switch, not reflection or a plugin registry.
func providerFor(model string, cfg config.ProvidersConfig) (agent.LLMProvider, error) {
	switch {
	case strings.HasPrefix(model, "claude-"):
		if cfg.Anthropic.APIKey == "" {
			return nil, fmt.Errorf("model %q requires providers.anthropic.api_key", model)
		}
		return providers.NewAnthropicProvider(providers.AnthropicConfig{
			APIKey:  cfg.Anthropic.APIKey,
			BaseURL: cfg.Anthropic.BaseURL,
		})
	case strings.HasPrefix(model, "gpt-") || strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3"):
		if cfg.OpenAI.APIKey == "" {
			return nil, fmt.Errorf("model %q requires providers.openai.api_key", model)
		}
		return providers.NewOpenAIProvider(cfg.OpenAI.APIKey), nil
	default:
		if cfg.Gemini.APIKey == "" {
			return nil, fmt.Errorf("model %q requires providers.gemini.api_key", model)
		}
		return providers.NewGoogleProvider(providers.GoogleConfig{APIKey: cfg.Gemini.APIKey})
	}
}
