package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	mcpadapter "marginalia/internal/adapters/mcp"
	"marginalia/internal/config"
	"marginalia/internal/logger"
	"marginalia/internal/service"
)

func main() {
	configFlag := flag.String("config", "", "path to the config file")
	profileFlag := flag.String("profile", "", "database profile")
	watchFlag := flag.Bool("watch", false, "run the reconciliation engine in the background")
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("marginalia-mcp: %v", err)
	}
	if *profileFlag != "" {
		cfg.Database.Profile = *profileFlag
		cfg.Database.Path = config.DatabasePath(*profileFlag)
		cfg.Identity.SidecarPath = ""
		if err := config.ApplyDefaults(cfg); err != nil {
			log.Fatalf("marginalia-mcp: %v", err)
		}
	}
	// stdout carries the protocol
	if cfg.Logging.Output == "stdout" {
		cfg.Logging.Output = "stderr"
	}

	l, cleanup, err := logger.New(cfg.Logging)
	if err != nil {
		log.Fatalf("marginalia-mcp: %v", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := service.New(ctx, cfg, l)
	if err != nil {
		l.Fatal("could not start", zap.Error(err))
	}
	defer svc.Close()

	if *watchFlag {
		go func() {
			if err := svc.Run(ctx); err != nil {
				l.Error("background reconciliation stopped", zap.Error(err))
			}
		}()
	}

	mcpServer := server.NewMCPServer(
		"marginalia-mcp",
		"0.1.0",
		server.WithToolCapabilities(true),
	)

	mcpServer.AddTool(
		mcp.NewTool("ping",
			mcp.WithDescription("Health check, returns pong"),
		),
		func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultText("pong"), nil
		},
	)

	mcpadapter.RegisterTools(mcpServer, mcpadapter.Deps{
		Store:   svc.Store,
		Log:     svc.Store,
		Stats:   svc.Store,
		Files:   svc.Files,
		Evicter: svc.Cache,
		Lister:  svc.Lister,
		Scanner: svc.Scanner,
		Syncer:  svc,
	})

	if err := server.ServeStdio(mcpServer); err != nil {
		l.Error("server stopped", zap.Error(err))
	}
}
