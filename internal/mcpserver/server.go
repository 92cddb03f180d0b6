package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/codex-k8s/canvas-command-gateway/internal/admission"
	"github.com/codex-k8s/canvas-command-gateway/internal/dsl"
	"github.com/codex-k8s/canvas-command-gateway/internal/gateway"
	"github.com/codex-k8s/canvas-command-gateway/internal/protocol"
	"github.com/codex-k8s/canvas-command-gateway/internal/templates"
	"github.com/codex-k8s/canvas-command-gateway/internal/tools"
)

// MCP tool and resource names.
const (
	ToolCanvasCommand   = "canvas_command"
	ToolRateLimitStatus = "rate_limit_status"
	ResourceToolCatalog = "canvas://tools"
)

// Commander is the dispatcher surface exposed over MCP.
type Commander interface {
	Dispatch(ctx context.Context, req gateway.CommandRequest) (gateway.Outcome, error)
	Status(userID string) admission.Status
}

// Builder constructs an MCP server around a Commander.
type Builder struct {
	// Commander runs canvas commands. Required.
	Commander Commander
	// Tools is published as a read-only catalog resource.
	Tools *tools.Registry
	// Templates provides localized messages.
	Templates templates.Renderer
	// Logger is used for structured logging.
	Logger *slog.Logger
}

// CommandInput is the canvas_command tool input.
type CommandInput struct {
	UserID        string            `json:"user_id" jsonschema:"canvas user issuing the command"`
	Prompt        string            `json:"prompt" jsonschema:"free-text drawing instruction"`
	History       []gateway.Message `json:"history,omitempty" jsonschema:"prior conversation turns, oldest first"`
	CanvasState   map[string]any    `json:"canvas_state,omitempty" jsonschema:"optional read-only canvas snapshot"`
	CorrelationID string            `json:"correlation_id,omitempty" jsonschema:"optional id linking logs and audit"`
}

// StatusInput is the rate_limit_status tool input.
type StatusInput struct {
	UserID string `json:"user_id" jsonschema:"canvas user to report on"`
}

type catalogEntry struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Build creates an MCP server with the gateway tools.
func (b Builder) Build(cfg dsl.ServerConfig) (*mcp.Server, error) {
	if b.Commander == nil {
		return nil, errors.New("commander is nil")
	}
	server := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolCanvasCommand,
		Title:       "Canvas command",
		Description: "Turns a natural-language instruction into validated canvas operations.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, b.handleCommand)

	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolRateLimitStatus,
		Title:       "Rate limit status",
		Description: "Reports how many canvas commands a user may still send in the current window.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true, IdempotentHint: true},
	}, b.handleStatus)

	if b.Tools != nil {
		catalog, err := b.catalogJSON()
		if err != nil {
			return nil, err
		}
		server.AddResource(&mcp.Resource{
			Name:        "canvas-tools",
			URI:         ResourceToolCatalog,
			Description: "Canvas operations the assistant may propose, with their argument schemas.",
			MIMEType:    "application/json",
		}, func(_ context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			return &mcp.ReadResourceResult{
				Contents: []*mcp.ResourceContents{
					{URI: ResourceToolCatalog, MIMEType: "application/json", Text: catalog},
				},
			}, nil
		})
	}

	return server, nil
}

func (b Builder) handleCommand(ctx context.Context, _ *mcp.CallToolRequest, input CommandInput) (*mcp.CallToolResult, protocol.CommandResponse, error) {
	var state json.RawMessage
	if len(input.CanvasState) > 0 {
		raw, err := json.Marshal(input.CanvasState)
		if err != nil {
			return nil, protocol.CommandResponse{}, fmt.Errorf("encode canvas state: %w", err)
		}
		state = raw
	}

	req, err := gateway.NewCommandRequest(input.CorrelationID, input.UserID, input.Prompt, input.History, state)
	if err != nil {
		return nil, protocol.CommandResponse{}, err
	}
	if b.Logger != nil {
		b.Logger.Debug("mcp canvas command", "user_id", req.UserID, "correlation_id", req.CorrelationID)
	}

	out, err := b.Commander.Dispatch(ctx, req)
	if err != nil {
		return nil, protocol.CommandResponse{}, err
	}
	resp := protocol.FromOutcome(req.CorrelationID, out, b.Templates)
	return &mcp.CallToolResult{IsError: resp.Status == protocol.StatusError}, resp, nil
}

func (b Builder) handleStatus(_ context.Context, _ *mcp.CallToolRequest, input StatusInput) (*mcp.CallToolResult, protocol.RateLimitStatus, error) {
	if input.UserID == "" {
		return nil, protocol.RateLimitStatus{}, errors.New("user_id is required")
	}
	return nil, protocol.FromStatus(b.Commander.Status(input.UserID), b.Templates), nil
}

func (b Builder) catalogJSON() (string, error) {
	defs := b.Tools.Definitions()
	entries := make([]catalogEntry, 0, len(defs))
	for _, def := range defs {
		params, _ := b.Tools.Parameters(def.Name)
		entries = append(entries, catalogEntry{Name: def.Name, Description: def.Description, Parameters: params})
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("encode tool catalog: %w", err)
	}
	return string(data), nil
}
