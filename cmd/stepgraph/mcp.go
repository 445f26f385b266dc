package main

import (
	"fmt"

	"github.com/aretw0/stepgraph"
	"github.com/aretw0/stepgraph/internal/cli"
	"github.com/aretw0/stepgraph/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes the engine to AI agents as MCP tools: run_graph, get_run,
list_graphs, get_graph and review_code.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		addr, _ := cmd.Flags().GetString("addr")
		baseURL, _ := cmd.Flags().GetString("base-url")

		ctx, stop := cli.SignalContext(cmd.Context())
		defer stop()

		// Logs go to stderr, keeping stdout for JSON-RPC.
		app, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		srv := mcp.NewServer(app.Engine, stepgraph.Version,
			mcp.WithSessions(app.Sessions),
			mcp.WithLogger(app.Logger),
		)

		switch transport {
		case "stdio":
			app.Logger.Info("starting MCP server (stdio)")
			return srv.ServeStdio()
		case "sse":
			if baseURL == "" {
				baseURL = "http://localhost" + addr
			}
			return srv.ServeSSE(ctx, addr, baseURL)
		default:
			return fmt.Errorf("unknown transport %q (want stdio or sse)", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().StringP("transport", "t", "stdio", "Transport: stdio or sse")
	mcpCmd.Flags().String("addr", ":8080", "Address to listen on for SSE")
	mcpCmd.Flags().String("base-url", "", "Public base URL for SSE (defaults to http://localhost<addr>)")
}
