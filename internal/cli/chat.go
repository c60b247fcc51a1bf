package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/calbot-ai/calbot/internal/assistant"
	"github.com/calbot-ai/calbot/internal/bus"
	"github.com/calbot-ai/calbot/internal/config"
	"github.com/calbot-ai/calbot/internal/credentials"
	"github.com/calbot-ai/calbot/internal/dispatch"
	"github.com/calbot-ai/calbot/internal/draft"
	"github.com/calbot-ai/calbot/internal/intent"
	"github.com/calbot-ai/calbot/internal/provider"
	"github.com/calbot-ai/calbot/internal/schedule"
	"github.com/calbot-ai/calbot/internal/transcript"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the calendar assistant",
	RunE:  runChat,
}

// services bundles the wired dependencies shared by the chat and calendars
// commands.
type services struct {
	cfg      *config.Config
	logger   *slog.Logger
	location *time.Location
	provider provider.LLMProvider
	service  schedule.Service
}

// buildServices loads config, credentials, and the authenticated Google
// client.
func buildServices(ctx context.Context) (*services, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// Log to stderr at warn so the conversation stays readable.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	// The keyring key backfills whichever provider slot the model string
	// selects, unless the config already carries one.
	if key, err := credentials.LLMAPIKey(); err == nil {
		provID, _ := provider.ParseModelString(cfg.Model.Name)
		switch provID {
		case "gemini", "google":
			if cfg.Providers.Gemini.APIKey == "" {
				cfg.Providers.Gemini.APIKey = key
			}
		default:
			if cfg.Providers.OpenAI.APIKey == "" {
				cfg.Providers.OpenAI.APIKey = key
			}
		}
	}

	prov, err := provider.Resolve(cfg)
	if err != nil {
		return nil, err
	}

	clientID := cfg.Calendar.OAuthClientID
	if clientID == "" {
		clientID, err = credentials.OAuthClientID()
		if err != nil {
			return nil, fmt.Errorf("no OAuth client ID configured; run `calbot onboard` first")
		}
	}

	tokenPath, err := cfg.TokenPath()
	if err != nil {
		return nil, err
	}
	httpClient, err := schedule.AuthenticatedClient(ctx, clientID, cfg.Calendar.OAuthClientSecret, tokenPath)
	if err != nil {
		return nil, err
	}
	svc, err := schedule.NewGoogleService(ctx, logger, httpClient)
	if err != nil {
		return nil, err
	}

	loc := time.Local
	if cfg.Calendar.TimeZone != "" {
		if l, lerr := time.LoadLocation(cfg.Calendar.TimeZone); lerr == nil {
			loc = l
		} else {
			logger.Warn("invalid time zone in config, using system local", "timeZone", cfg.Calendar.TimeZone)
		}
	}

	return &services{cfg: cfg, logger: logger, location: loc, provider: prov, service: svc}, nil
}

func runChat(cmd *cobra.Command, args []string) error {
	printHeader("🤖 Calbot")

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	deps, err := buildServices(ctx)
	if err != nil {
		return err
	}
	cfg := deps.cfg

	msgBus := bus.NewMessageBus()
	log := transcript.NewLog(cfg.Assistant.TranscriptWindow)
	session := draft.NewSessionContext()
	checker := schedule.NewChecker(deps.service, deps.logger)

	dispatcher := dispatch.NewDispatcher(dispatch.Options{
		Service:            deps.service,
		ConferenceKeywords: cfg.Assistant.ConferenceKeywords,
		DefaultCalendarID:  cfg.Calendar.DefaultCalendarID,
		TaskListID:         cfg.Calendar.TaskListID,
		Refresh: func(date string) {
			msgBus.PublishEvent(&bus.Event{Kind: bus.KindCalendarRefresh, Date: date})
		},
		Logger: deps.logger,
	})

	interp := intent.NewInterpreter(deps.provider, cfg.Model.Name, cfg.Model.MaxTokens, cfg.Model.Temperature, deps.logger)

	asst := assistant.New(assistant.Options{
		Bus:                msgBus,
		Interpreter:        interp,
		Dispatcher:         dispatcher,
		Checker:            checker,
		Service:            deps.service,
		Session:            session,
		Log:                log,
		Location:           deps.location,
		TimeZone:           cfg.Calendar.TimeZone,
		DefaultCalendarID:  cfg.Calendar.DefaultCalendarID,
		DefaultDuration:    time.Duration(cfg.Assistant.DefaultDurationMinutes) * time.Minute,
		ConferenceKeywords: cfg.Assistant.ConferenceKeywords,
		Logger:             deps.logger,
	})

	view := newChatView(ctx, deps.service, deps.location, cfg.Calendar.DefaultCalendarID)
	// Buffered so a cycle that completes before the input loop is back at
	// its wait does not lose the signal and hang the prompt.
	done := make(chan struct{}, 1)
	msgBus.Subscribe(func(e *bus.Event) {
		view.render(e)
		if e.Kind != bus.KindCalendarRefresh {
			notifyCycleDone(done)
		}
	})

	go asst.Run(ctx)
	go msgBus.DispatchEvents(ctx)

	fmt.Printf("Model: %s. Type /help for commands, /quit to leave.\n\n", cfg.Model.Name)

	reader := bufio.NewReader(cmd.InOrStdin())
	for {
		fmt.Print(color.GreenString("you> "))
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println()
			return nil
		}
		text := strings.TrimSpace(line)
		if text == "" {
			continue
		}

		var imagePath string
		switch {
		case text == "/quit" || text == "/exit":
			return nil
		case text == "/help":
			printChatHelp()
			continue
		case text == "/signout":
			asst.SignOut()
			fmt.Println("Signed out: draft and conversation history discarded.")
			continue
		case strings.HasPrefix(text, "/image "):
			parts := strings.SplitN(strings.TrimPrefix(text, "/image "), " ", 2)
			imagePath = strings.TrimSpace(parts[0])
			text = ""
			if len(parts) == 2 {
				text = strings.TrimSpace(parts[1])
			}
			if text == "" {
				text = "Please schedule what this image shows."
			}
		case strings.HasPrefix(text, "/voice "):
			audioPath := strings.TrimSpace(strings.TrimPrefix(text, "/voice "))
			text, err = transcribeAudio(ctx, deps.provider, audioPath)
			if err != nil {
				fmt.Println(color.RedString("Transcription error: %v", err))
				continue
			}
			fmt.Printf("(heard: %s)\n", text)
		}

		msgBus.PublishUtterance(&bus.Utterance{
			TraceID:   uuid.NewString(),
			Text:      text,
			ImagePath: imagePath,
			Timestamp: time.Now(),
		})

		select {
		case <-done:
		case <-ctx.Done():
			return nil
		}
	}
}

// notifyCycleDone records one cycle-complete signal without ever blocking
// the event-dispatch goroutine.
func notifyCycleDone(done chan struct{}) {
	select {
	case done <- struct{}{}:
	default:
	}
}

// transcribeAudio converts a voice note into text through the provider's
// transcription endpoint.
func transcribeAudio(ctx context.Context, prov provider.LLMProvider, path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	resp, err := prov.Transcribe(ctx, &provider.AudioRequest{FilePath: path})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.Text) == "" {
		return "", errors.New("the recording came back empty")
	}
	return resp.Text, nil
}

func printChatHelp() {
	fmt.Println("Commands:")
	fmt.Println("  /image <path> [text]  attach an image (flyer, invite) to your message")
	fmt.Println("  /voice <path>         transcribe a voice note and send it")
	fmt.Println("  /signout              discard the pending draft and conversation history")
	fmt.Println("  /quit                 exit")
}
