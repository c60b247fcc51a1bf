package provider

import (
	"fmt"
	"strings"

	"github.com/calbot-ai/calbot/internal/config"
)

// ParseModelString splits a "provider/model" string into provider ID and
// model name. A bare model name yields an empty provider ID.
func ParseModelString(s string) (providerID, modelName string) {
	s = strings.TrimSpace(s)
	parts := strings.SplitN(s, "/", 2)
	if len(parts) < 2 {
		return "", s
	}
	return strings.ToLower(parts[0]), parts[1]
}

// Resolve creates the LLMProvider named by the config's model string.
// "gemini/<model>" selects the Gemini client; "openai/<model>" or a bare
// model name selects the OpenAI-compatible client.
func Resolve(cfg *config.Config) (LLMProvider, error) {
	provID, model := ParseModelString(cfg.Model.Name)
	switch provID {
	case "", "openai", "openrouter":
		return NewOpenAIProvider(cfg.Providers.OpenAI.APIKey, cfg.Providers.OpenAI.APIBase, model), nil
	case "gemini", "google":
		if cfg.Providers.Gemini.APIKey == "" {
			return nil, fmt.Errorf("gemini provider selected but no API key configured")
		}
		return NewGeminiProvider(cfg.Providers.Gemini.APIKey, cfg.Providers.Gemini.APIBase, model), nil
	default:
		return nil, fmt.Errorf("unknown provider %q in model string %q", provID, cfg.Model.Name)
	}
}
