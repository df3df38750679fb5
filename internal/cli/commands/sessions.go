package commands

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/lvyanru/stockchat/internal/cli/session"
	"github.com/lvyanru/stockchat/internal/cli/ui"
)

var (
	sessionsDeleteForce bool
	sessionsClearForce  bool
)

// sessionsCmd groups the session management subcommands
var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "manage saved chat sessions",
	Long: `Manage chat sessions saved on this machine.

Sessions are stored in ~/.stockchat/sessions.json. Each session keeps the
full message transcript, so resuming one gives the assistant the same
context it had before.`,
	Example: `  # List saved sessions
  $ stockchat sessions list

  # Show a session transcript
  $ stockchat sessions show 2f1c9b3a

  # Delete one session
  $ stockchat sessions delete 2f1c9b3a

  # Delete all sessions
  $ stockchat sessions clear`,
}

// sessionsListCmd is the sessions list command
var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "list saved sessions",
	RunE:  runSessionsList,
}

// sessionsShowCmd is the sessions show command
var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "print a session transcript",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsShow,
}

// sessionsDeleteCmd is the sessions delete command
var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "delete a saved session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsDelete,
}

// sessionsClearCmd is the sessions clear command
var sessionsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "delete all saved sessions",
	RunE:  runSessionsClear,
}

func init() {
	sessionsDeleteCmd.Flags().BoolVarP(&sessionsDeleteForce, "force", "f", false, "Skip confirmation prompt")
	sessionsClearCmd.Flags().BoolVarP(&sessionsClearForce, "force", "f", false, "Skip confirmation prompt")

	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
	sessionsCmd.AddCommand(sessionsClearCmd)

	// Silence usage to avoid showing help on every error
	sessionsCmd.SilenceUsage = true
	sessionsListCmd.SilenceUsage = true
	sessionsShowCmd.SilenceUsage = true
	sessionsDeleteCmd.SilenceUsage = true
	sessionsClearCmd.SilenceUsage = true
}

func openStore() (*session.Store, error) {
	path, err := session.DefaultPath()
	if err != nil {
		ui.PrintError("failed to locate session store: %v", err)
		return nil, fmt.Errorf("session store unavailable")
	}
	return session.NewStore(path), nil
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}

	sessions, err := store.List()
	if err != nil {
		ui.PrintError("failed to list sessions: %v", err)
		return fmt.Errorf("list operation failed")
	}

	if len(sessions) == 0 {
		ui.PrintInfo("No saved sessions. Run 'stockchat chat' to start one.")
		return nil
	}

	fmt.Println()
	for _, sess := range sessions {
		fmt.Printf("  %s  %s  %s\n",
			ui.Styles.Accent.Render(sess.ID),
			ui.Styles.Bold.Render(sess.Title),
			ui.Styles.Dim.Render(fmt.Sprintf("%d messages, updated %s",
				len(sess.Messages), sess.UpdatedAt.Format("2006-01-02 15:04"))))
	}
	fmt.Println()
	fmt.Printf("%d session(s)\n", len(sessions))

	return nil
}

func runSessionsShow(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}

	sess, err := store.Get(args[0])
	if err != nil {
		ui.PrintError("failed to load session %s: %v", args[0], err)
		return fmt.Errorf("session not found")
	}

	fmt.Println()
	fmt.Println(ui.Styles.Bold.Render(sess.Title))
	fmt.Println(ui.Styles.Dim.Render(sess.ID))
	for _, msg := range sess.Messages {
		fmt.Println()
		switch msg.Role {
		case "user":
			fmt.Println(ui.Styles.Bold.Render("You") + ui.Styles.Dim.Render("  "+msg.Timestamp.Format("15:04:05")))
		case "assistant":
			fmt.Println(ui.Styles.Accent.Render("Assistant") + ui.Styles.Dim.Render("  "+msg.Timestamp.Format("15:04:05")))
		default:
			fmt.Println(ui.Styles.Dim.Render(msg.Role))
		}
		fmt.Println(msg.Content)
	}

	return nil
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}

	sess, err := store.Get(args[0])
	if err != nil {
		ui.PrintError("failed to load session %s: %v", args[0], err)
		return fmt.Errorf("session not found")
	}

	// Confirm deletion unless --force
	if !sessionsDeleteForce {
		confirm := false
		prompt := &survey.Confirm{
			Message: fmt.Sprintf("Delete session '%s' (%d messages)?", sess.Title, len(sess.Messages)),
		}
		if err := survey.AskOne(prompt, &confirm); err != nil {
			return fmt.Errorf("confirmation prompt failed: %w", err)
		}
		if !confirm {
			ui.PrintInfo("Deletion cancelled")
			return nil
		}
	}

	if err := store.Delete(sess.ID); err != nil {
		ui.PrintError("failed to delete: %v", err)
		return fmt.Errorf("deletion failed")
	}

	ui.PrintSuccess("Deleted session '%s'", sess.Title)
	return nil
}

func runSessionsClear(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}

	sessions, err := store.List()
	if err != nil {
		ui.PrintError("failed to list sessions: %v", err)
		return fmt.Errorf("list operation failed")
	}
	if len(sessions) == 0 {
		ui.PrintInfo("No saved sessions")
		return nil
	}

	if !sessionsClearForce {
		confirm := false
		prompt := &survey.Confirm{
			Message: fmt.Sprintf("Delete all %d session(s)?", len(sessions)),
		}
		if err := survey.AskOne(prompt, &confirm); err != nil {
			return fmt.Errorf("confirmation prompt failed: %w", err)
		}
		if !confirm {
			ui.PrintInfo("Clear cancelled")
			return nil
		}
	}

	if err := store.Clear(); err != nil {
		ui.PrintError("failed to clear sessions: %v", err)
		return fmt.Errorf("clear failed")
	}

	ui.PrintSuccess("Deleted %d session(s)", len(sessions))
	return nil
}
