// Command mcp serves the note tools to MCP clients over stdio, acting as a
// single configured user.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"noteflow/internal/bootstrap"
	"noteflow/internal/config"
	"noteflow/internal/logger"
	"noteflow/internal/mcpserver"
)

func main() {
	bootstrapLog := log.New(os.Stderr, "bootstrap: ", log.LstdFlags)

	cfg, err := config.Load()
	if err != nil {
		bootstrapLog.Printf("config load failed: %v", err)
		os.Exit(1)
	}

	userID := flag.String("user", cfg.MCPUserID, "user id the tools act as (default MCP_USER_ID)")
	flag.Parse()
	if *userID == "" {
		bootstrapLog.Print("a user id is required: pass -user or set MCP_USER_ID")
		os.Exit(2)
	}

	// stdout carries the protocol
	logg := slog.New(logger.NewHandler(os.Stderr, cfg.LogFormat, cfg.LogLevel))
	slog.SetDefault(logg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := bootstrap.Build(ctx, cfg, logg)
	if err != nil {
		logg.Error("service wiring failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = svc.Close(context.Background()) }()

	srv := mcpserver.New(*userID, svc.Notes, svc.QA, svc.Assist, logg.With("component", "mcp"))
	logg.Info("serving MCP over stdio", "user", *userID)
	if err := srv.ServeStdio(); err != nil {
		logg.Error("mcp server stopped", "err", err)
		os.Exit(1)
	}
}
