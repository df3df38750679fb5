package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/network/netpoll"
	"github.com/spf13/cobra"

	"github.com/lvyanru/stockchat/internal/config"
	"github.com/lvyanru/stockchat/internal/handler"
	"github.com/lvyanru/stockchat/internal/infrastructure/finance"
	"github.com/lvyanru/stockchat/internal/infrastructure/groq"
	"github.com/lvyanru/stockchat/internal/ratelimit"
	"github.com/lvyanru/stockchat/internal/router"
	"github.com/lvyanru/stockchat/internal/usecase"
	"github.com/lvyanru/stockchat/pkg/logger"
)

var (
	cfgFile string
	version = "0.1.0"
)

var rootCmd = &cobra.Command{
	Use:   "stockchat-server",
	Short: "Streaming chat relay with stock charting",
	Long: `stockchat-server relays chat requests to an upstream LLM completion
provider and streams the reply back over Server-Sent Events. It also
proxies daily stock price series for the chart feature.`,
	Version: version,
	Run:     runServer,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "path to config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func runServer(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := logger.Setup(cfg.Log); err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}

	slog.Info("stockchat server starting...",
		"version", version,
		"config", cfgFile,
	)

	// Route Hertz's own logging through slog
	hertzLogger := logger.NewHertzSlogAdapter(slog.Default())
	hlog.SetLogger(hertzLogger)

	// Upstream completion provider. A missing API key is not fatal here:
	// chat requests fail with a misconfiguration error until it is set.
	groqClient, err := groq.NewClient(cfg.Upstream, slog.Default())
	if err != nil {
		slog.Error("failed to create upstream client", "error", err)
		os.Exit(1)
	}
	if !groqClient.Configured() {
		slog.Warn("upstream API key is not configured, chat requests will fail",
			"hint", "set STOCKCHAT_UPSTREAM_API_KEY")
	}

	financeClient, err := finance.NewClient(cfg.Stock, slog.Default())
	if err != nil {
		slog.Error("failed to create finance client", "error", err)
		os.Exit(1)
	}

	limiter := ratelimit.NewFixedWindow(cfg.RateLimit.Capacity, cfg.RateLimit.Window)

	chatUsecase := usecase.NewChatUsecase(groqClient, slog.Default())
	chatHandler := handler.NewChatHandler(chatUsecase, limiter, slog.Default())

	stockUsecase := usecase.NewStockUsecase(financeClient, slog.Default())
	stockHandler := handler.NewStockHandler(stockUsecase, slog.Default())

	healthHandler := handler.NewHealthHandler(groqClient)

	h := server.Default(
		server.WithHostPorts(cfg.GetServerAddr()),
		server.WithReadTimeout(cfg.Server.ReadTimeout),
		server.WithWriteTimeout(cfg.Server.WriteTimeout),
		server.WithMaxRequestBodySize(cfg.Server.MaxRequestBodySize*1024*1024),
		server.WithTransport(netpoll.NewTransporter),
	)

	router.Setup(h, chatHandler, stockHandler, healthHandler)

	slog.Info("server started successfully",
		"address", cfg.GetServerAddr(),
		"mode", cfg.Server.Mode,
		"rate_limit_capacity", cfg.RateLimit.Capacity,
		"rate_limit_window", cfg.RateLimit.Window.String(),
	)

	go func() {
		if err := h.Run(); err != nil {
			slog.Error("server run failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := h.Shutdown(ctx); err != nil {
		slog.Error("server shutdown failed", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}
