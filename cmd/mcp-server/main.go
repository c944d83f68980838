package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mikeboe/grounded-search/pkg/config"
	"github.com/mikeboe/grounded-search/pkg/mcpserver"
	"github.com/mikeboe/grounded-search/pkg/search"
)

const version = "1.0.0"

func main() {
	// Stdout carries the MCP protocol, so all logging goes to stderr.
	handler := slog.NewTextHandler(os.Stderr, nil)
	slog.SetDefault(slog.New(handler))

	if err := godotenv.Load(); err != nil {
		// It's okay if .env doesn't exist, as long as env vars are set
	}

	cfg := config.Load()
	client := search.NewClient(cfg, slog.Default())
	server := mcpserver.New(client, version)

	if err := server.Run(context.Background(), &mcp.StdioTransport{}); err != nil {
		slog.Error("MCP server stopped", "error", err)
		os.Exit(1)
	}
}
