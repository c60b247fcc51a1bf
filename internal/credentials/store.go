// Package credentials stores the assistant's persisted state in the system
// keyring: the LLM API key, the OAuth client identifier, and the
// onboarding-complete flag. Nothing else is persisted by the core.
package credentials

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const service = "calbot"

const (
	keyLLMAPIKey     = "llm_api_key"
	keyOAuthClientID = "oauth_client_id"
	keyOnboarded     = "onboarded"
)

// ErrNotSet indicates the requested credential has not been stored yet.
var ErrNotSet = errors.New("credential not set")

// SaveLLMAPIKey stores the LLM provider API key.
func SaveLLMAPIKey(key string) error {
	if err := keyring.Set(service, keyLLMAPIKey, key); err != nil {
		return fmt.Errorf("save llm api key: %w", err)
	}
	return nil
}

// LLMAPIKey returns the stored LLM provider API key.
func LLMAPIKey() (string, error) {
	val, err := keyring.Get(service, keyLLMAPIKey)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotSet
	}
	if err != nil {
		return "", fmt.Errorf("load llm api key: %w", err)
	}
	return val, nil
}

// SaveOAuthClientID stores the OAuth client identifier.
func SaveOAuthClientID(id string) error {
	if err := keyring.Set(service, keyOAuthClientID, id); err != nil {
		return fmt.Errorf("save oauth client id: %w", err)
	}
	return nil
}

// OAuthClientID returns the stored OAuth client identifier.
func OAuthClientID() (string, error) {
	val, err := keyring.Get(service, keyOAuthClientID)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotSet
	}
	if err != nil {
		return "", fmt.Errorf("load oauth client id: %w", err)
	}
	return val, nil
}

// SetOnboarded marks onboarding as complete (or not).
func SetOnboarded(done bool) error {
	val := "false"
	if done {
		val = "true"
	}
	if err := keyring.Set(service, keyOnboarded, val); err != nil {
		return fmt.Errorf("save onboarding flag: %w", err)
	}
	return nil
}

// Onboarded reports whether onboarding has completed.
func Onboarded() bool {
	val, err := keyring.Get(service, keyOnboarded)
	return err == nil && val == "true"
}

// Clear removes all stored credentials. Used on sign-out.
func Clear() error {
	var errs []error
	for _, key := range []string{keyLLMAPIKey, keyOAuthClientID, keyOnboarded} {
		if err := keyring.Delete(service, key); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
