package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"hohparser/internal/extractor"
	"hohparser/internal/logging"
	"hohparser/internal/mcp"
	"hohparser/internal/metrics"
	"hohparser/internal/rpc"
	"hohparser/internal/server"
)

var addr string

func init() {
	serveCmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from config)")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the REST, JSON-RPC and metrics endpoints over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if addr == "" {
			addr = cfg.Server.Addr
		}
		if cfg.Debug {
			gin.SetMode(gin.DebugMode)
		} else {
			gin.SetMode(gin.ReleaseMode)
		}

		collector := metrics.NewCollector()
		a, err := newAnalyzer(extractor.WithObserver(collector))
		if err != nil {
			return err
		}
		svc := rpc.NewService(a)
		reg := rpc.NewRegistry(svc, logging.Named(slog.Default(), "hohparser.jsonrpc"))
		srv := server.NewServer(svc, reg, collector, logging.Named(slog.Default(), "hohparser.server"))

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return srv.Run(ctx, addr)
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the analysis tools over MCP on stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newAnalyzer()
		if err != nil {
			return err
		}
		return mcp.NewServer(rpc.NewService(a), logging.Named(slog.Default(), "hohparser.mcp")).ServeStdio()
	},
}
