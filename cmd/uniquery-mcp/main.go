package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/uniquery/uniquery/internal/app"
	"github.com/uniquery/uniquery/internal/config"
	"github.com/uniquery/uniquery/internal/mcptools"
	"github.com/uniquery/uniquery/internal/observability"
)

const version = "0.1.0"

func main() {
	cfg, err := config.LoadFromEnv("uniquery-mcp")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	// stdout carries the MCP protocol.
	logger := observability.NewLogger(cfg, os.Stderr)
	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	application, err := app.Build(startCtx, cfg, logger)
	cancel()
	if err != nil {
		logger.Error("failed to build pipeline", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = application.Close() }()

	s := server.NewMCPServer(
		"uniquery",
		version,
		server.WithToolCapabilities(false),
		server.WithLogging(),
	)
	mcptools.Register(s, application.Service)

	logger.Info("serving mcp tools on stdio")
	if err := server.ServeStdio(s); err != nil {
		logger.Error("mcp server failed", slog.Any("error", err))
		os.Exit(1)
	}
}
