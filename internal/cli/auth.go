package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/calbot-ai/calbot/internal/config"
	"github.com/calbot-ai/calbot/internal/credentials"
	"github.com/calbot-ai/calbot/internal/schedule"
	"github.com/spf13/cobra"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Link your Google account via OAuth",
	Long:  "Runs the desktop authorization-code flow: open the printed URL, grant access, then paste the code back here.",
	RunE:  runAuth,
}

func runAuth(cmd *cobra.Command, args []string) error {
	printHeader("🔑 Google Authorization")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	clientID := cfg.Calendar.OAuthClientID
	if clientID == "" {
		clientID, err = credentials.OAuthClientID()
		if err != nil {
			return fmt.Errorf("no OAuth client ID configured; run `calbot onboard` first")
		}
	}

	oauthCfg := schedule.OAuthConfig(clientID, cfg.Calendar.OAuthClientSecret)
	fmt.Println("Open this URL in your browser and approve access:")
	fmt.Println()
	fmt.Println("  " + schedule.AuthURL(oauthCfg))
	fmt.Println()
	fmt.Print("Paste the authorization code here: ")

	reader := bufio.NewReader(cmd.InOrStdin())
	line, _ := reader.ReadString('\n')
	code := strings.TrimSpace(line)
	if code == "" {
		return fmt.Errorf("no authorization code entered")
	}

	token, err := schedule.ExchangeAuthCode(cmd.Context(), oauthCfg, code)
	if err != nil {
		return fmt.Errorf("exchange code: %w", err)
	}

	tokenPath, err := cfg.TokenPath()
	if err != nil {
		return err
	}
	if err := schedule.SaveToken(tokenPath, token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}

	fmt.Printf("\n✅ Google account linked. Token stored at %s\n", tokenPath)
	return nil
}
