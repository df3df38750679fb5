package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lvyanru/stockchat/internal/cli/client"
	"github.com/lvyanru/stockchat/internal/cli/config"
	"github.com/lvyanru/stockchat/internal/cli/session"
	"github.com/lvyanru/stockchat/internal/cli/tui"
	"github.com/lvyanru/stockchat/internal/cli/ui"
)

var (
	chatSessionID string
	chatServer    string
)

// chatCmd is the chat command
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "start an interactive chat session",
	Long: `Start an interactive chat session with streaming responses.

The full conversation is kept locally and replayed to the server on every
message, so the assistant always sees the whole history. When a reply
mentions a ticker like $AAPL, a 7-day price chart is rendered inline.

Keyboard controls:
  • Enter sends the message (and aborts any reply still streaming)
  • Esc aborts the current reply, or quits when idle
  • Ctrl+C quits`,
	Example: `  # Start a new session
  $ stockchat chat

  # Resume a saved session
  $ stockchat chat --session 2f1c9b3a

  # Talk to a different server
  $ stockchat chat --server http://chat.internal:8080`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatSessionID, "session", "s", "", "Session ID to resume")
	chatCmd.Flags().StringVar(&chatServer, "server", "", "Server address (overrides config)")

	// Silence usage to avoid showing help on every error
	chatCmd.SilenceUsage = true
}

func runChat(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		ui.PrintError("unexpected argument: %s", args[0])
		fmt.Printf("\nRun '%s --help' for usage.\n", cmd.CommandPath())
		return fmt.Errorf("invalid arguments")
	}

	cfg, err := config.Load()
	if err != nil {
		ui.PrintError("failed to load config: %v", err)
		return fmt.Errorf("config load failed")
	}

	server := cfg.Server
	if chatServer != "" {
		server = chatServer
	}

	apiClient, err := client.NewAPIClient(server)
	if err != nil {
		ui.PrintError("failed to create client: %v", err)
		return fmt.Errorf("client creation failed")
	}

	storePath, err := session.DefaultPath()
	if err != nil {
		ui.PrintError("failed to locate session store: %v", err)
		return fmt.Errorf("session store unavailable")
	}
	store := session.NewStore(storePath)

	var sess *session.Session
	if chatSessionID != "" {
		sess, err = store.Get(chatSessionID)
		if err != nil {
			ui.PrintError("failed to load session %s: %v", chatSessionID, err)
			fmt.Println("\nRun 'stockchat sessions list' to see saved sessions.")
			return fmt.Errorf("session not found")
		}
	} else {
		sess, err = store.Create()
		if err != nil {
			ui.PrintError("failed to create session: %v", err)
			return fmt.Errorf("session creation failed")
		}
	}

	program := tui.NewChatProgram(apiClient, store, sess)
	if err := program.Run(); err != nil {
		return fmt.Errorf("failed to run chat TUI: %w", err)
	}

	return nil
}
