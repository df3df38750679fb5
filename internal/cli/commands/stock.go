package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lvyanru/stockchat/internal/cli/client"
	"github.com/lvyanru/stockchat/internal/cli/config"
	"github.com/lvyanru/stockchat/internal/cli/ui"
)

var stockServer string

// stockCmd is the stock command
var stockCmd = &cobra.Command{
	Use:   "stock <symbol>",
	Short: "show a 7-day price chart for a symbol",
	Long: `Fetch the daily closing prices for a stock symbol and render them
as a terminal chart, without entering the chat.`,
	Example: `  # Chart Apple's last trading week
  $ stockchat stock AAPL

  # Symbols are case-insensitive
  $ stockchat stock tsla`,
	Args: cobra.ExactArgs(1),
	RunE: runStock,
}

func init() {
	stockCmd.Flags().StringVar(&stockServer, "server", "", "Server address (overrides config)")

	// Silence usage to avoid showing help on every error
	stockCmd.SilenceUsage = true
}

func runStock(cmd *cobra.Command, args []string) error {
	symbol := strings.ToUpper(strings.TrimSpace(args[0]))

	cfg, err := config.Load()
	if err != nil {
		ui.PrintError("failed to load config: %v", err)
		return fmt.Errorf("config load failed")
	}

	server := cfg.Server
	if stockServer != "" {
		server = stockServer
	}

	apiClient, err := client.NewAPIClient(server)
	if err != nil {
		ui.PrintError("failed to create client: %v", err)
		return fmt.Errorf("client creation failed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	series, err := apiClient.StockSeries(ctx, symbol)
	if err != nil {
		ui.PrintError("failed to fetch %s: %v", symbol, err)
		return fmt.Errorf("stock fetch failed")
	}

	fmt.Println()
	fmt.Println(ui.RenderPriceChart(series))

	return nil
}
