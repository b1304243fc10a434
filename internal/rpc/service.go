package rpc

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"hohparser/internal/extractor"
)

// Server identity reported by get_capabilities and the MCP handshake.
const (
	ServerName    = "Hammer of Hephaestus MCP Server"
	ServerVersion = "0.1.0"
)

// ErrInvalidParams marks requests whose parameters are missing or malformed.
var ErrInvalidParams = errors.New("invalid params")

// Capabilities lists the methods every transport exposes.
var Capabilities = []string{"parse_file", "symbol_table", "health_check", "get_capabilities"}

// ResourceTypes lists the advertised resource types.
var ResourceTypes = []string{"python", "markdown", "pdf", "web", "yaml", "json", "toml", "xml"}

// HealthResult is the health_check result. ServerTime is UTC with
// microseconds.
type HealthResult struct {
	Status     string `json:"status"`
	ServerTime string `json:"server_time"`
}

// CapabilitiesResult is the get_capabilities result.
type CapabilitiesResult struct {
	JSONRPC       string   `json:"jsonrpc"`
	Server        string   `json:"server"`
	Version       string   `json:"version"`
	Capabilities  []string `json:"capabilities"`
	ResourceTypes []string `json:"resource_types"`
}

// ParseFileParams are the parse_file parameters. ContentB64 holds the source
// in standard base64.
type ParseFileParams struct {
	Filename   string `json:"filename"`
	ContentB64 string `json:"content_b64"`
}

// SymbolTableParams are the symbol_table parameters. Filepath names a file on
// the server.
type SymbolTableParams struct {
	Filepath string `json:"filepath"`
}

// Service implements the operations shared by the JSON-RPC, REST and MCP
// surfaces.
type Service struct {
	analyzer *extractor.Analyzer
	now      func() time.Time
}

// NewService creates a service that analyzes with a.
func NewService(a *extractor.Analyzer) *Service {
	return &Service{analyzer: a, now: time.Now}
}

// HealthCheck reports that the service is up.
func (s *Service) HealthCheck(context.Context) HealthResult {
	return HealthResult{
		Status:     "ok",
		ServerTime: s.now().UTC().Format("2006-01-02T15:04:05.000000Z"),
	}
}

// Capabilities describes the server and the methods it exposes.
func (s *Service) Capabilities(context.Context) CapabilitiesResult {
	return CapabilitiesResult{
		JSONRPC:       Version,
		Server:        ServerName,
		Version:       ServerVersion,
		Capabilities:  append([]string(nil), Capabilities...),
		ResourceTypes: append([]string(nil), ResourceTypes...),
	}
}

// ParseFile analyzes base64-encoded source. The unit's path is the given
// filename.
func (s *Service) ParseFile(ctx context.Context, p ParseFileParams) (*extractor.SourceUnit, error) {
	if p.Filename == "" {
		return nil, fmt.Errorf("%w: filename is required", ErrInvalidParams)
	}
	// Padding makes DecodedLen overshoot by at most two bytes.
	if limit := s.analyzer.MaxFileSize(); int64(base64.StdEncoding.DecodedLen(len(p.ContentB64))) > limit+2 {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", extractor.ErrFileTooLarge, p.Filename, limit)
	}
	content, err := base64.StdEncoding.DecodeString(p.ContentB64)
	if err != nil {
		return nil, fmt.Errorf("%w: content_b64: %w", ErrInvalidParams, err)
	}
	return s.ParseContent(ctx, p.Filename, content)
}

// ParseContent analyzes raw source under the given filename.
func (s *Service) ParseContent(ctx context.Context, filename string, content []byte) (*extractor.SourceUnit, error) {
	if filename == "" {
		return nil, fmt.Errorf("%w: filename is required", ErrInvalidParams)
	}
	return s.analyzer.AnalyzeContent(ctx, filename, content)
}

// SymbolTable analyzes a file on the server's disk.
func (s *Service) SymbolTable(ctx context.Context, p SymbolTableParams) (*extractor.SourceUnit, error) {
	if p.Filepath == "" {
		return nil, fmt.Errorf("%w: filepath is required", ErrInvalidParams)
	}
	return s.analyzer.AnalyzeFile(ctx, p.Filepath)
}
