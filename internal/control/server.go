package control

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/spx-launcher-go/internal/log"
)

// Server is a registry of tools that can be served over MCP or called
// directly.
type Server struct {
	name    string
	version string
	log     *slog.Logger

	mu    sync.RWMutex
	tools map[string]*registeredTool
	order []string
}

type registeredTool struct {
	tool    *mcp.Tool
	handler mcp.ToolHandler
}

// NewServer creates an empty registry. A nil logger disables logging.
func NewServer(name, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Server{
		name:    name,
		version: version,
		log:     logger.With("component", "control"),
		tools:   make(map[string]*registeredTool, 8),
	}
}

// AddTool registers a tool, replacing any tool with the same name.
func (s *Server) AddTool(tool *mcp.Tool, handler mcp.ToolHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tools[tool.Name]; !exists {
		s.order = append(s.order, tool.Name)
	}

	s.tools[tool.Name] = &registeredTool{tool: tool, handler: handler}
}

// Name returns the server name.
func (s *Server) Name() string {
	return s.name
}

// Version returns the server version.
func (s *Server) Version() string {
	return s.version
}

// Tools returns the registered tools in registration order.
func (s *Server) Tools() []*mcp.Tool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tools := make([]*mcp.Tool, 0, len(s.order))
	for _, name := range s.order {
		tools = append(tools, s.tools[name].tool)
	}

	return tools
}

// CallTool runs a tool in-process. Unknown tools and handler errors are
// returned as error results.
func (s *Server) CallTool(ctx context.Context, name string, input map[string]any) *mcp.CallToolResult {
	s.mu.RLock()
	t, exists := s.tools[name]
	s.mu.RUnlock()

	if !exists {
		return ErrorResult("Tool not found: " + name)
	}

	if input == nil {
		input = map[string]any{}
	}

	inputBytes, err := json.Marshal(input)
	if err != nil {
		return ErrorResult("Failed to marshal input: " + err.Error())
	}

	req := &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{
			Name:      name,
			Arguments: inputBytes,
		},
	}

	result, err := s.instrument(t)(ctx, req)
	if err != nil {
		return ErrorResult("Tool execution failed: " + err.Error())
	}

	if result == nil {
		return &mcp.CallToolResult{Content: []mcp.Content{}}
	}

	return result
}

// MCPServer builds an SDK server carrying every registered tool.
func (s *Server) MCPServer() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: s.name, Version: s.version}, nil)

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, name := range s.order {
		t := s.tools[name]
		server.AddTool(t.tool, s.instrument(t))
	}

	return server
}

// Serve runs an MCP session on transport until the peer disconnects or ctx
// is cancelled.
func (s *Server) Serve(ctx context.Context, transport mcp.Transport) error {
	s.log.InfoContext(ctx, "Serving control tools", "tools", len(s.Tools()))

	if err := s.MCPServer().Run(ctx, transport); err != nil {
		return fmt.Errorf("serve mcp: %w", err)
	}

	return nil
}

// instrument tags every log record made during a tool call with the tool
// name.
func (s *Server) instrument(t *registeredTool) mcp.ToolHandler {
	name := t.tool.Name

	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx = log.ContextAttrs(ctx, slog.String("tool", name))

		s.log.DebugContext(ctx, "Tool called")

		return t.handler(ctx, req)
	}
}

// Schema creates an object schema from a property type map. Only the named
// properties are required.
//
// Input format: {"limit": "int", "path": "string"}
func Schema(props map[string]string, required ...string) *jsonschema.Schema {
	properties := make(map[string]*jsonschema.Schema, len(props))

	for name, goType := range props {
		properties[name] = goTypeToJSONSchema(goType)
	}

	if required == nil {
		required = []string{}
	}

	return &jsonschema.Schema{
		Type:       "object",
		Properties: properties,
		Required:   required,
	}
}

func goTypeToJSONSchema(goType string) *jsonschema.Schema {
	switch goType {
	case "int", "int32", "int64", "uint", "uint16", "uint32":
		return &jsonschema.Schema{Type: "integer"}
	case "float64", "number":
		return &jsonschema.Schema{Type: "number"}
	case "bool", "boolean":
		return &jsonschema.Schema{Type: "boolean"}
	default:
		return &jsonschema.Schema{Type: "string"}
	}
}

// TextResult creates a CallToolResult with text content.
func TextResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

// ErrorResult creates a CallToolResult indicating an error.
func ErrorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: message},
		},
		IsError: true,
	}
}

// ResultText joins the text content of a result, one item per line.
func ResultText(result *mcp.CallToolResult) string {
	if result == nil {
		return ""
	}

	parts := make([]string, 0, len(result.Content))

	for _, c := range result.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}

	return strings.Join(parts, "\n")
}

// ParseArguments unmarshals CallToolRequest arguments into a map.
func ParseArguments(req *mcp.CallToolRequest) (map[string]any, error) {
	if req == nil || req.Params == nil || len(req.Params.Arguments) == 0 {
		return make(map[string]any), nil
	}

	var args map[string]any
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return nil, fmt.Errorf("failed to unmarshal arguments: %w", err)
	}

	if args == nil {
		args = make(map[string]any)
	}

	return args, nil
}
