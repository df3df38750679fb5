package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lvyanru/stockchat/internal/cli/config"
	"github.com/lvyanru/stockchat/internal/cli/ui"
)

// configCmd shows or updates the CLI configuration
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "show or change CLI settings",
	Long: `Show the current CLI configuration (~/.stockchat/config.json).

Use 'config set-server' to point the CLI at a different relay server.`,
	Example: `  # Show the current configuration
  $ stockchat config

  # Point the CLI at another server
  $ stockchat config set-server http://chat.internal:8080`,
	RunE: runConfigShow,
}

// configSetServerCmd persists a new server address
var configSetServerCmd = &cobra.Command{
	Use:   "set-server <address>",
	Short: "set the relay server address",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigSetServer,
}

func init() {
	configCmd.AddCommand(configSetServerCmd)

	configCmd.SilenceUsage = true
	configSetServerCmd.SilenceUsage = true
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		ui.PrintError("failed to load config: %v", err)
		return fmt.Errorf("config load failed")
	}

	path, _ := config.GetConfigPath()
	fmt.Printf("%s  %s\n", ui.Styles.Bold.Render("server"), cfg.Server)
	fmt.Println(ui.Styles.Dim.Render(path))
	return nil
}

func runConfigSetServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		ui.PrintError("failed to load config: %v", err)
		return fmt.Errorf("config load failed")
	}

	cfg.Server = args[0]
	if err := cfg.Save(); err != nil {
		ui.PrintError("failed to save config: %v", err)
		return fmt.Errorf("config save failed")
	}

	ui.PrintSuccess("Server set to %s", cfg.Server)
	return nil
}
