// Package config provides configuration types and loading for calbot.
package config

// Config is the root configuration struct.
// Top-level groups: Model, Providers, Calendar, Assistant.
type Config struct {
	Model     ModelConfig     `json:"model"`
	Providers ProvidersConfig `json:"providers"`
	Calendar  CalendarConfig  `json:"calendar"`
	Assistant AssistantConfig `json:"assistant"`
}

// ---------------------------------------------------------------------------
// Model – LLM behaviour
// ---------------------------------------------------------------------------

// ModelConfig groups LLM model settings.
type ModelConfig struct {
	Name        string  `json:"name" envconfig:"MODEL"`
	MaxTokens   int     `json:"maxTokens" envconfig:"MAX_TOKENS"`
	Temperature float64 `json:"temperature" envconfig:"TEMPERATURE"`
}

// ---------------------------------------------------------------------------
// Providers – LLM API keys & endpoints
// ---------------------------------------------------------------------------

// ProvidersConfig contains LLM provider configurations.
type ProvidersConfig struct {
	Gemini ProviderConfig `json:"gemini"`
	OpenAI ProviderConfig `json:"openai"`
}

// ProviderConfig contains settings for a single LLM provider.
type ProviderConfig struct {
	APIKey  string `json:"apiKey" envconfig:"API_KEY"`
	APIBase string `json:"apiBase,omitempty" envconfig:"API_BASE"`
}

// ---------------------------------------------------------------------------
// Calendar – scheduling service settings
// ---------------------------------------------------------------------------

// CalendarConfig groups Google Calendar/Tasks settings.
type CalendarConfig struct {
	DefaultCalendarID string `json:"defaultCalendarId" envconfig:"CALENDAR_ID"`
	TaskListID        string `json:"taskListId" envconfig:"TASK_LIST_ID"`
	TimeZone          string `json:"timeZone" envconfig:"TIMEZONE"`
	OAuthClientID     string `json:"oauthClientId" envconfig:"OAUTH_CLIENT_ID"`
	OAuthClientSecret string `json:"oauthClientSecret" envconfig:"OAUTH_CLIENT_SECRET"`
	TokenFile         string `json:"tokenFile" envconfig:"TOKEN_FILE"`
}

// ---------------------------------------------------------------------------
// Assistant – conversation behaviour
// ---------------------------------------------------------------------------

// AssistantConfig groups conversation-loop settings.
type AssistantConfig struct {
	// ConferenceKeywords force a meeting link onto an event when any of
	// them appears in the user's utterance.
	ConferenceKeywords []string `json:"conferenceKeywords"`
	// TranscriptWindow is the number of most-recent turns replayed to the
	// model on each interpretation.
	TranscriptWindow int `json:"transcriptWindow" envconfig:"TRANSCRIPT_WINDOW"`
	// DefaultDurationMinutes is applied when an event has a start but no end.
	DefaultDurationMinutes int `json:"defaultDurationMinutes" envconfig:"DEFAULT_DURATION_MINUTES"`
}

// DefaultConfig returns a Config populated with default values.
func DefaultConfig() *Config {
	return &Config{
		Model: ModelConfig{
			Name:        "gemini/gemini-2.0-flash",
			MaxTokens:   4096,
			Temperature: 0.2,
		},
		Calendar: CalendarConfig{
			DefaultCalendarID: "primary",
			TaskListID:        "@default",
			TokenFile:         "token.json",
		},
		Assistant: AssistantConfig{
			ConferenceKeywords:     []string{"call", "sync", "meet", "online"},
			TranscriptWindow:       40,
			DefaultDurationMinutes: 60,
		},
	}
}
