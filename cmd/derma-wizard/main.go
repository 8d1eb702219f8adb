package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/dermatics/derma-wizard/internal/api"
	"github.com/dermatics/derma-wizard/internal/cart"
	"github.com/dermatics/derma-wizard/internal/config"
	"github.com/dermatics/derma-wizard/internal/transport"
)

func main() {
	initializeLogger()

	cfg := loadEnvironmentConfig()
	flags := parseCommandLineFlags(cfg)
	applyFlags(cfg, flags)

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	flowClient, err := transport.NewClient(
		transport.WithBaseURL(cfg.FlowBaseURL),
		transport.WithHTTPClient(&http.Client{Timeout: cfg.FlowTimeout}),
	)
	if err != nil {
		slog.Error("Failed to create flow client", "error", err)
		os.Exit(1)
	}

	cartBridge, err := cart.NewBridge(cart.WithBaseURL(cfg.CartBaseURL))
	if err != nil {
		slog.Error("Failed to create cart bridge", "error", err)
		os.Exit(1)
	}

	srv := api.NewServer(cfg, flowClient, cartBridge)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Bootstrapping derma-wizard host",
		"port", cfg.Port,
		"flow_base_url", cfg.FlowBaseURL,
		"cart_base_url", cfg.CartBaseURL,
		"dev", cfg.IsDevelopment())
	if err := srv.Run(ctx); err != nil {
		slog.Error("derma-wizard failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("derma-wizard exited successfully")
}

// Flags holds command line flag values
type Flags struct {
	port        *string
	flowBaseURL *string
	cartBaseURL *string
	origin      *string
}

// initializeLogger sets up structured logging
func initializeLogger() {
	level := slog.LevelInfo
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		if err := level.UnmarshalText([]byte(lvl)); err != nil {
			slog.Warn("Invalid LOG_LEVEL, using info", "value", lvl)
		}
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() *config.Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Debug("environment variables loaded",
		"PORT", cfg.Port,
		"FLOW_BASE_URL", cfg.FlowBaseURL,
		"CART_BASE_URL", cfg.CartBaseURL,
		"ALLOWED_ORIGIN", cfg.AllowedOrigin,
		"FLOW_TIMEOUT", cfg.FlowTimeout,
		"DEV_MODE", cfg.DevMode)

	return cfg
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(cfg *config.Config) Flags {
	flags := Flags{
		port:        flag.String("port", cfg.Port, "HTTP listen port (overrides $PORT)"),
		flowBaseURL: flag.String("flow-base-url", cfg.FlowBaseURL, "flow service base URL (overrides $FLOW_BASE_URL)"),
		cartBaseURL: flag.String("cart-base-url", cfg.CartBaseURL, "storefront cart base URL (overrides $CART_BASE_URL)"),
		origin:      flag.String("allowed-origin", cfg.AllowedOrigin, "allowed WebSocket origin (overrides $ALLOWED_ORIGIN)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"port", *flags.port,
		"flowBaseURL", *flags.flowBaseURL,
		"cartBaseURL", *flags.cartBaseURL,
		"origin", *flags.origin)

	return flags
}

// applyFlags folds flag overrides back into the configuration
func applyFlags(cfg *config.Config, flags Flags) {
	cfg.Port = *flags.port
	cfg.FlowBaseURL = *flags.flowBaseURL
	cfg.CartBaseURL = *flags.cartBaseURL
	cfg.AllowedOrigin = *flags.origin
}
