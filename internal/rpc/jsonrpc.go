package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"hohparser/internal/extractor"
	"hohparser/internal/pyast"
)

const Version = "2.0"

// JSON-RPC error codes. The -320xx codes are application defined.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeSyntaxError    = -32001
	CodeFileError      = -32002
)

type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
}

// IsNotification reports whether the request carries no id.
func (r *Request) IsNotification() bool {
	return r.ID == nil
}

type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
	ID      json.RawMessage `json:"id"`
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// Handler runs one method with raw params.
type Handler func(ctx context.Context, params json.RawMessage) (any, error)

// Registry dispatches requests through a fixed method table.
type Registry struct {
	methods map[string]Handler
	logger  *slog.Logger
}

// NewRegistry builds the method table for svc.
func NewRegistry(svc *Service, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger: logger,
		methods: map[string]Handler{
			"health_check": func(ctx context.Context, _ json.RawMessage) (any, error) {
				return svc.HealthCheck(ctx), nil
			},
			"get_capabilities": func(ctx context.Context, _ json.RawMessage) (any, error) {
				return svc.Capabilities(ctx), nil
			},
			"parse_file": func(ctx context.Context, raw json.RawMessage) (any, error) {
				var p ParseFileParams
				if err := decodeParams(raw, &p, "filename", "content_b64"); err != nil {
					return nil, err
				}
				return svc.ParseFile(ctx, p)
			},
			"symbol_table": func(ctx context.Context, raw json.RawMessage) (any, error) {
				var p SymbolTableParams
				if err := decodeParams(raw, &p, "filepath"); err != nil {
					return nil, err
				}
				return svc.SymbolTable(ctx, p)
			},
		},
	}
}

// Methods returns the registered method names in sorted order.
func (r *Registry) Methods() []string {
	names := make([]string, 0, len(r.methods))
	for name := range r.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call invokes a method directly.
func (r *Registry) Call(ctx context.Context, method string, params json.RawMessage) (any, error) {
	h, ok := r.methods[method]
	if !ok {
		return nil, &Error{Code: CodeMethodNotFound, Message: "Method not found", Data: method}
	}
	start := time.Now()
	result, err := h(ctx, params)
	r.logger.Debug("jsonrpc call", "method", method, "elapsed", time.Since(start), "error", err)
	return result, err
}

// Handle processes a single or batch request body. It returns nil when no
// response is due, which happens when every request is a notification.
func (r *Registry) Handle(ctx context.Context, body []byte) []byte {
	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '[' {
		return r.handleBatch(ctx, body)
	}

	resp := r.handleOne(ctx, body)
	if resp == nil {
		return nil
	}
	return mustMarshal(resp)
}

func (r *Registry) handleBatch(ctx context.Context, body []byte) []byte {
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return mustMarshal(errorResponse(nil, &Error{Code: CodeParseError, Message: "Parse error"}))
	}
	if len(items) == 0 {
		return mustMarshal(errorResponse(nil, &Error{Code: CodeInvalidRequest, Message: "Invalid Request"}))
	}

	responses := make([]*Response, len(items))
	var g errgroup.Group
	for i, item := range items {
		g.Go(func() error {
			responses[i] = r.handleOne(ctx, item)
			return nil
		})
	}
	_ = g.Wait()

	out := make([]*Response, 0, len(responses))
	for _, resp := range responses {
		if resp != nil {
			out = append(out, resp)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return mustMarshal(out)
}

func (r *Registry) handleOne(ctx context.Context, raw []byte) *Response {
	if !json.Valid(raw) {
		return errorResponse(nil, &Error{Code: CodeParseError, Message: "Parse error"})
	}

	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return errorResponse(nil, &Error{Code: CodeInvalidRequest, Message: "Invalid Request"})
	}
	if req.JSONRPC != Version || req.Method == "" {
		return errorResponse(req.ID, &Error{Code: CodeInvalidRequest, Message: "Invalid Request"})
	}

	result, err := r.Call(ctx, req.Method, req.Params)
	if req.IsNotification() {
		return nil
	}
	if err != nil {
		return errorResponse(req.ID, ToError(err))
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		return errorResponse(req.ID, &Error{Code: CodeInternalError, Message: "Internal error", Data: err.Error()})
	}
	return &Response{JSONRPC: Version, Result: encoded, ID: req.ID}
}

// ToError maps a service error onto a JSON-RPC error object.
func ToError(err error) *Error {
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr
	}

	var syntaxErr *pyast.SyntaxError
	switch {
	case errors.As(err, &syntaxErr):
		return &Error{Code: CodeSyntaxError, Message: "Syntax error", Data: map[string]any{
			"filename": syntaxErr.Filename,
			"line":     syntaxErr.Line,
			"column":   syntaxErr.Column,
			"message":  syntaxErr.Msg,
		}}
	case errors.Is(err, ErrInvalidParams), errors.Is(err, extractor.ErrFileTooLarge), errors.Is(err, extractor.ErrInvalidContent):
		return &Error{Code: CodeInvalidParams, Message: "Invalid params", Data: err.Error()}
	case errors.Is(err, extractor.ErrRead):
		return &Error{Code: CodeFileError, Message: "File error", Data: err.Error()}
	}
	return &Error{Code: CodeInternalError, Message: "Internal error", Data: err.Error()}
}

// decodeParams decodes by-name params into v after checking that every
// required member is present.
func decodeParams(raw json.RawMessage, v any, required ...string) error {
	if len(raw) == 0 || string(raw) == "null" {
		raw = json.RawMessage("{}")
	}
	var members map[string]json.RawMessage
	if err := json.Unmarshal(raw, &members); err != nil {
		return fmt.Errorf("%w: params must be an object", ErrInvalidParams)
	}
	for _, name := range required {
		if _, ok := members[name]; !ok {
			return fmt.Errorf("%w: missing %s", ErrInvalidParams, name)
		}
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	return nil
}

func errorResponse(id json.RawMessage, e *Error) *Response {
	if id == nil {
		id = json.RawMessage("null")
	}
	return &Response{JSONRPC: Version, Error: e, ID: id}
}

func mustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("jsonrpc: marshal response: %v", err))
	}
	return b
}
