package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/chatscout/internal/google"
	"github.com/teemow/chatscout/internal/logging"
	"github.com/teemow/chatscout/internal/resources"
	"github.com/teemow/chatscout/internal/server"
	"github.com/teemow/chatscout/internal/tools/chat_tools"
)

func newServeCmd() *cobra.Command {
	var serverName string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server to provide Google Chat tools for AI assistants",
		Long: `Start an MCP (Model Context Protocol) server over stdio. It exposes the
Google Chat search and message tools plus the OAuth tool pair that
completes authorization, for use by MCP-capable AI assistants.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(serverName)
		},
	}

	cmd.Flags().StringVar(&serverName, "name", "chatscout", "Server name advertised to MCP clients")
	return cmd
}

func runServe(serverName string) error {
	logging.Setup(debugMode)

	// A missing .env file is fine; the variables may come from the
	// environment directly.
	_ = godotenv.Load()

	conf, err := google.ConfigFromEnv()
	if err != nil {
		return fmt.Errorf("cannot start MCP server: %w", err)
	}

	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	serverContext, err := server.NewServerContext(shutdownCtx, conf.OAuthConfig())
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		_ = serverContext.Shutdown()
	}()

	mcpSrv := mcpserver.NewMCPServer(serverName, version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false), // Subscribe and listChanged
	)

	if err := registerAllTools(mcpSrv, serverContext); err != nil {
		return err
	}

	return runStdioServer(mcpSrv)
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

// registerAllTools registers all MCP tools and resources
func registerAllTools(mcpSrv *mcpserver.MCPServer, ctx *server.ServerContext) error {
	type toolRegistration struct {
		name     string
		register func() error
	}

	registrations := []toolRegistration{
		{
			name: "Chat",
			register: func() error {
				return chat_tools.RegisterChatTools(mcpSrv, ctx)
			},
		},
		{
			name: "Auth Resources",
			register: func() error {
				return resources.RegisterAuthResources(mcpSrv, ctx)
			},
		},
	}

	for _, reg := range registrations {
		if err := reg.register(); err != nil {
			return fmt.Errorf("failed to register %s: %w", reg.name, err)
		}
	}

	return nil
}
