package mcp

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"hohparser/internal/rpc"
)

// Server exposes the analysis service as MCP tools.
type Server struct {
	svc    *rpc.Service
	mcp    *server.MCPServer
	logger *slog.Logger
}

// NewServer registers every tool on a fresh MCP server.
func NewServer(svc *rpc.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		svc:    svc,
		logger: logger,
		mcp: server.NewMCPServer(
			rpc.ServerName,
			rpc.ServerVersion,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
		),
	}

	s.mcp.AddTool(
		mcp.NewTool(
			"parse_file",
			mcp.WithDescription("Analyze Python source and return its classes, functions and relationships."),
			mcp.WithString("filename", mcp.Required(), mcp.Description("Name reported as the unit's path")),
			mcp.WithString("content_b64", mcp.Required(), mcp.Description("Base64-encoded source")),
		),
		s.handleParseFile,
	)
	s.mcp.AddTool(
		mcp.NewTool(
			"symbol_table",
			mcp.WithDescription("Analyze a Python file on the server's disk."),
			mcp.WithString("filepath", mcp.Required(), mcp.Description("Path of the file to analyze")),
		),
		s.handleSymbolTable,
	)
	s.mcp.AddTool(
		mcp.NewTool("health_check", mcp.WithDescription("Report server status and time.")),
		s.handleHealthCheck,
	)
	s.mcp.AddTool(
		mcp.NewTool("get_capabilities", mcp.WithDescription("List supported methods and resource types.")),
		s.handleGetCapabilities,
	)
	return s
}

// MCPServer exposes the underlying server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// ServeStdio serves on stdin and stdout until the input closes or the
// process is signalled.
func (s *Server) ServeStdio() error {
	s.logger.Info("starting MCP server on stdio")
	return server.ServeStdio(s.mcp)
}

func (s *Server) handleParseFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filename, err := req.RequireString("filename")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content_b64")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	unit, err := s.svc.ParseFile(ctx, rpc.ParseFileParams{Filename: filename, ContentB64: content})
	if err != nil {
		return s.toolError("parse_file", err), nil
	}
	return jsonResult(unit)
}

func (s *Server) handleSymbolTable(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("filepath")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	unit, err := s.svc.SymbolTable(ctx, rpc.SymbolTableParams{Filepath: path})
	if err != nil {
		return s.toolError("symbol_table", err), nil
	}
	return jsonResult(unit)
}

func (s *Server) handleHealthCheck(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.HealthCheck(ctx))
}

func (s *Server) handleGetCapabilities(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.Capabilities(ctx))
}

// toolError reports a failure inside the result, carrying the JSON-RPC
// error object so clients see the same code on every transport.
func (s *Server) toolError(tool string, err error) *mcp.CallToolResult {
	s.logger.Debug("tool failed", "tool", tool, "error", err)
	body, marshalErr := json.Marshal(rpc.ToError(err))
	if marshalErr != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultError(string(body))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(body)), nil
}
