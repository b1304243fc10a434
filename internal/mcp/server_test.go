package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hohparser/internal/extractor"
	"hohparser/internal/rpc"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	a, err := extractor.NewAnalyzer("python")
	require.NoError(t, err)
	return NewServer(rpc.NewService(a), nil)
}

func callTool(t *testing.T, s *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	tool := s.MCPServer().GetTool(name)
	require.NotNil(t, tool, "tool %s not registered", name)

	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	result, err := tool.Handler(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, result.Content, 1)
	text, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok)
	return text.Text
}

func TestServer_Tools(t *testing.T) {
	s := newTestServer(t)
	tools := s.MCPServer().ListTools()
	assert.Len(t, tools, len(rpc.Capabilities))
	for _, name := range rpc.Capabilities {
		assert.Contains(t, tools, name)
	}
}

func TestServer_ParseFile(t *testing.T) {
	s := newTestServer(t)

	t.Run("Success", func(t *testing.T) {
		src := "class A:\n    pass\n\nclass B:\n    pass\n\nclass C(A, B):\n    pass\n"
		result := callTool(t, s, "parse_file", map[string]any{
			"filename":    "abc.py",
			"content_b64": base64.StdEncoding.EncodeToString([]byte(src)),
		})
		assert.False(t, result.IsError)

		var unit extractor.SourceUnit
		require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &unit))
		assert.Equal(t, "abc.py", unit.Path)
		require.Len(t, unit.Classes, 3)
		assert.Equal(t, []string{"A", "B"}, unit.Classes[2].Bases)
		require.Len(t, unit.Relationships, 2)
		assert.Equal(t, "A", unit.Relationships[0].Target)
		assert.Equal(t, "B", unit.Relationships[1].Target)
	})

	t.Run("Syntax Error", func(t *testing.T) {
		result := callTool(t, s, "parse_file", map[string]any{
			"filename":    "bad.py",
			"content_b64": base64.StdEncoding.EncodeToString([]byte("def (:\n")),
		})
		assert.True(t, result.IsError)

		var rpcErr rpc.Error
		require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &rpcErr))
		assert.Equal(t, rpc.CodeSyntaxError, rpcErr.Code)
	})

	t.Run("Missing Argument", func(t *testing.T) {
		result := callTool(t, s, "parse_file", map[string]any{"filename": "a.py"})
		assert.True(t, result.IsError)
	})
}

func TestServer_SymbolTable(t *testing.T) {
	s := newTestServer(t)
	result := callTool(t, s, "symbol_table", map[string]any{"filepath": "/definitely/not/here.py"})
	assert.True(t, result.IsError)

	var rpcErr rpc.Error
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &rpcErr))
	assert.Equal(t, rpc.CodeFileError, rpcErr.Code)
}

func TestServer_HealthAndCapabilities(t *testing.T) {
	s := newTestServer(t)

	var health rpc.HealthResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, callTool(t, s, "health_check", nil))), &health))
	assert.Equal(t, "ok", health.Status)

	var caps rpc.CapabilitiesResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, callTool(t, s, "get_capabilities", nil))), &caps))
	assert.Equal(t, rpc.ServerName, caps.Server)
	assert.Equal(t, rpc.ServerVersion, caps.Version)
}
