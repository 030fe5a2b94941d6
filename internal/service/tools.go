package service

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/pierre-fitness/pierre-gateway/internal/domain"
)

// Tool names form a closed set; anything else is MethodNotFound.
const (
	ToolConnectProvider     = "connect_provider"
	ToolDisconnectProvider  = "disconnect_provider"
	ToolGetConnectionStatus = "get_connection_status"
	ToolGetActivities       = "get_activities"
	ToolGetActivity         = "get_activity"
	ToolGetAthlete          = "get_athlete"
	ToolGetStats            = "get_stats"
	ToolSetToolOverride     = "set_tool_override"
	ToolListTools           = "list_tools"
	ToolAdminDeleteUser     = "admin_delete_user"
)

// ToolHandlerFunc executes one tool invocation
type ToolHandlerFunc func(ctx context.Context, req *UniversalRequest) (any, error)

// ToolDefinition is one catalogue entry: the MCP schema, the capability
// bits, and the handler
type ToolDefinition struct {
	Tool         mcp.Tool
	Capabilities domain.ToolCapabilities
	Handler      ToolHandlerFunc
}

// ToolRegistry is the static tool catalogue
type ToolRegistry struct {
	tools map[string]*ToolDefinition
	order []string
}

// NewToolRegistry creates an empty registry
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]*ToolDefinition)}
}

// Register adds a tool definition
func (r *ToolRegistry) Register(def *ToolDefinition) {
	name := def.Tool.Name
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = def
}

// Get returns a tool definition by name
func (r *ToolRegistry) Get(name string) (*ToolDefinition, bool) {
	def, ok := r.tools[name]
	return def, ok
}

// Names lists tool names in registration order
func (r *ToolRegistry) Names() []string {
	return r.order
}

// MCPTools lists the mcp.Tool schemas in registration order
func (r *ToolRegistry) MCPTools() []mcp.Tool {
	out := make([]mcp.Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].Tool)
	}
	return out
}

// RegisterCatalogue installs the full tool set with the given handlers
func RegisterCatalogue(registry *ToolRegistry, h *ToolHandlers) {
	registry.Register(&ToolDefinition{
		Tool: mcp.NewTool(ToolConnectProvider,
			mcp.WithDescription("Start an OAuth connection to a fitness provider and return the authorization URL"),
			mcp.WithString("provider", mcp.Required(), mcp.Description("Provider name, e.g. strava or fitbit")),
			mcp.WithString("deep_link", mcp.Description("Mobile deep link to redirect to after the flow completes")),
		),
		Capabilities: domain.ToolCapabilities{WriteFitness: true},
		Handler:      h.ConnectProvider,
	})

	registry.Register(&ToolDefinition{
		Tool: mcp.NewTool(ToolDisconnectProvider,
			mcp.WithDescription("Disconnect a fitness provider and forget its tokens"),
			mcp.WithString("provider", mcp.Required(), mcp.Description("Provider name")),
		),
		Capabilities: domain.ToolCapabilities{WriteFitness: true, RequiresOAuth: true},
		Handler:      h.DisconnectProvider,
	})

	registry.Register(&ToolDefinition{
		Tool: mcp.NewTool(ToolGetConnectionStatus,
			mcp.WithDescription("List provider connections for the calling user"),
		),
		Capabilities: domain.ToolCapabilities{ReadFitness: true},
		Handler:      h.GetConnectionStatus,
	})

	registry.Register(&ToolDefinition{
		Tool: mcp.NewTool(ToolGetActivities,
			mcp.WithDescription("Fetch a page of activities from a connected provider"),
			mcp.WithString("provider", mcp.Required(), mcp.Description("Provider name")),
			mcp.WithNumber("page", mcp.Description("Page number, starting at 1")),
			mcp.WithNumber("per_page", mcp.Description("Page size, default 30")),
			mcp.WithString("cache_policy", mcp.Description("use_cache, bypass, or refresh")),
		),
		Capabilities: domain.ToolCapabilities{ReadFitness: true, RequiresOAuth: true, SupportsProgress: true},
		Handler:      h.GetActivities,
	})

	registry.Register(&ToolDefinition{
		Tool: mcp.NewTool(ToolGetActivity,
			mcp.WithDescription("Fetch a single activity by id"),
			mcp.WithString("provider", mcp.Required(), mcp.Description("Provider name")),
			mcp.WithString("activity_id", mcp.Required(), mcp.Description("Provider-side activity id")),
			mcp.WithString("cache_policy", mcp.Description("use_cache, bypass, or refresh")),
		),
		Capabilities: domain.ToolCapabilities{ReadFitness: true, RequiresOAuth: true},
		Handler:      h.GetActivity,
	})

	registry.Register(&ToolDefinition{
		Tool: mcp.NewTool(ToolGetAthlete,
			mcp.WithDescription("Fetch the athlete profile from a connected provider"),
			mcp.WithString("provider", mcp.Required(), mcp.Description("Provider name")),
			mcp.WithString("cache_policy", mcp.Description("use_cache, bypass, or refresh")),
		),
		Capabilities: domain.ToolCapabilities{ReadFitness: true, RequiresOAuth: true},
		Handler:      h.GetAthlete,
	})

	registry.Register(&ToolDefinition{
		Tool: mcp.NewTool(ToolGetStats,
			mcp.WithDescription("Fetch aggregate stats from a connected provider"),
			mcp.WithString("provider", mcp.Required(), mcp.Description("Provider name")),
			mcp.WithString("cache_policy", mcp.Description("use_cache, bypass, or refresh")),
		),
		Capabilities: domain.ToolCapabilities{ReadFitness: true, RequiresOAuth: true},
		Handler:      h.GetStats,
	})

	registry.Register(&ToolDefinition{
		Tool: mcp.NewTool(ToolSetToolOverride,
			mcp.WithDescription("Enable or disable a tool for the calling user's tenant"),
			mcp.WithString("tool_name", mcp.Required(), mcp.Description("Tool to override")),
			mcp.WithBoolean("enabled", mcp.Required(), mcp.Description("Whether the tool is enabled")),
			mcp.WithString("reason", mcp.Description("Why the override was set")),
		),
		Capabilities: domain.ToolCapabilities{AdminOnly: true},
		Handler:      h.SetToolOverride,
	})

	registry.Register(&ToolDefinition{
		Tool: mcp.NewTool(ToolListTools,
			mcp.WithDescription("List the tools available to the calling user's tenant"),
		),
		Capabilities: domain.ToolCapabilities{},
		Handler:      h.ListTools,
	})

	registry.Register(&ToolDefinition{
		Tool: mcp.NewTool(ToolAdminDeleteUser,
			mcp.WithDescription("Delete a user account and its stored data"),
			mcp.WithString("user_id", mcp.Required(), mcp.Description("Id of the user to delete")),
		),
		Capabilities: domain.ToolCapabilities{AdminOnly: true},
		Handler:      h.AdminDeleteUser,
	})
}
