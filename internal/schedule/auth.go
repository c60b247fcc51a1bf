package schedule

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/people/v1"
	"google.golang.org/api/tasks/v1"
)

// OAuthConfig returns the OAuth2 config for the desktop authorization-code
// flow with the scopes the assistant needs.
func OAuthConfig(clientID, clientSecret string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  "urn:ietf:wg:oauth:2.0:oob",
		Scopes: []string{
			calendar.CalendarEventsScope,
			calendar.CalendarReadonlyScope,
			tasks.TasksScope,
			people.ContactsReadonlyScope,
		},
		Endpoint: google.Endpoint,
	}
}

// AuthURL returns the URL the user opens to grant access. Offline access is
// requested so the refresh token survives restarts.
func AuthURL(config *oauth2.Config) string {
	return config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
}

// ExchangeAuthCode trades a pasted authorization code for a token.
func ExchangeAuthCode(ctx context.Context, config *oauth2.Config, authCode string) (*oauth2.Token, error) {
	tok, err := config.Exchange(ctx, authCode)
	if err != nil {
		return nil, fmt.Errorf("exchange auth code: %w", err)
	}
	return tok, nil
}

// SaveToken saves a token to a file path.
func SaveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create token file: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}

// TokenFromFile retrieves a token from a local file.
func TokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

// AuthenticatedClient builds an HTTP client from a stored token file.
func AuthenticatedClient(ctx context.Context, clientID, clientSecret, tokenPath string) (*http.Client, error) {
	tok, err := TokenFromFile(tokenPath)
	if err != nil {
		return nil, fmt.Errorf("could not load token: %w (run the 'auth' command first)", err)
	}
	return OAuthConfig(clientID, clientSecret).Client(ctx, tok), nil
}
