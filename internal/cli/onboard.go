package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/calbot-ai/calbot/internal/config"
	"github.com/calbot-ai/calbot/internal/credentials"
	"github.com/spf13/cobra"
)

var (
	onboardForce        bool
	onboardLLMKey       string
	onboardModel        string
	onboardClientID     string
	onboardClientSecret string
	onboardTimeZone     string
)

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Initialize configuration and store credentials",
	RunE:  runOnboard,
}

func init() {
	onboardCmd.Flags().BoolVarP(&onboardForce, "force", "f", false, "Re-run onboarding even if already done")
	onboardCmd.Flags().StringVar(&onboardLLMKey, "llm-key", "", "LLM provider API key (prompted when omitted)")
	onboardCmd.Flags().StringVar(&onboardModel, "model", "", "Model string, e.g. gemini/gemini-2.0-flash or openai/gpt-4o")
	onboardCmd.Flags().StringVar(&onboardClientID, "oauth-client-id", "", "Google OAuth client ID")
	onboardCmd.Flags().StringVar(&onboardClientSecret, "oauth-client-secret", "", "Google OAuth client secret")
	onboardCmd.Flags().StringVar(&onboardTimeZone, "timezone", "", "IANA time zone, e.g. Europe/Berlin")
}

func runOnboard(cmd *cobra.Command, args []string) error {
	printHeader("🚀 Calbot Onboarding")

	if credentials.Onboarded() && !onboardForce {
		fmt.Println("Already onboarded. Use --force to run again.")
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Config warning: %v (using defaults)\n", err)
		cfg = config.DefaultConfig()
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	ask := func(prompt, current string) string {
		if current != "" {
			return current
		}
		fmt.Print(prompt)
		line, _ := reader.ReadString('\n')
		return strings.TrimSpace(line)
	}

	llmKey := ask("LLM API key: ", onboardLLMKey)
	if llmKey == "" {
		return fmt.Errorf("an LLM API key is required")
	}
	if err := credentials.SaveLLMAPIKey(llmKey); err != nil {
		return fmt.Errorf("store LLM key: %w", err)
	}

	if model := ask(fmt.Sprintf("Model [%s]: ", cfg.Model.Name), onboardModel); model != "" {
		cfg.Model.Name = model
	}

	clientID := ask("Google OAuth client ID: ", onboardClientID)
	if clientID == "" {
		return fmt.Errorf("a Google OAuth client ID is required")
	}
	if err := credentials.SaveOAuthClientID(clientID); err != nil {
		return fmt.Errorf("store OAuth client ID: %w", err)
	}
	cfg.Calendar.OAuthClientID = clientID

	if secret := ask("Google OAuth client secret (blank for none): ", onboardClientSecret); secret != "" {
		cfg.Calendar.OAuthClientSecret = secret
	}
	if tz := ask("Time zone (blank for system default): ", onboardTimeZone); tz != "" {
		cfg.Calendar.TimeZone = tz
	}

	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	if err := credentials.SetOnboarded(true); err != nil {
		return fmt.Errorf("mark onboarded: %w", err)
	}

	path, _ := config.ConfigPath()
	fmt.Printf("\n✅ Configuration written to %s\n", path)
	fmt.Println("Next: run `calbot auth` to link your Google account, then `calbot chat`.")
	return nil
}
