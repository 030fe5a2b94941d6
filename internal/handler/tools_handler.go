package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pierre-fitness/pierre-gateway/internal/dto"
	"github.com/pierre-fitness/pierre-gateway/internal/service"
)

// ToolsHandler exposes the tool-dispatch engine over REST, JSON-RPC,
// MCP, and A2A.
type ToolsHandler struct {
	dispatcher *service.Dispatcher
	registry   *service.ToolRegistry
	converter  *service.ProtocolConverter
	progress   *service.ProgressBus
}

// NewToolsHandler creates a tools handler
func NewToolsHandler(dispatcher *service.Dispatcher, registry *service.ToolRegistry, converter *service.ProtocolConverter, progress *service.ProgressBus) *ToolsHandler {
	return &ToolsHandler{
		dispatcher: dispatcher,
		registry:   registry,
		converter:  converter,
		progress:   progress,
	}
}

// CallREST handles POST /api/tools/:tool
func (h *ToolsHandler) CallREST(c *gin.Context) {
	var params map[string]any
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&params); err != nil {
			c.JSON(http.StatusBadRequest, dto.RESTEnvelope{
				Success: false,
				Message: "request body must be a JSON object",
			})
			return
		}
	}
	if params == nil {
		params = map[string]any{}
	}

	req := &service.UniversalRequest{
		ToolName:      c.Param("tool"),
		Parameters:    params,
		UserID:        CallerID(c),
		TenantID:      CallerTenantID(c),
		Role:          CallerRole(c),
		Protocol:      service.ProtocolREST,
		ProgressToken: c.GetHeader("X-Progress-Token"),
	}

	status, envelope := h.converter.ToREST(h.dispatcher.Dispatch(c.Request.Context(), req))
	c.JSON(status, envelope)
}

// ListREST handles GET /api/tools
func (h *ToolsHandler) ListREST(c *gin.Context) {
	req := &service.UniversalRequest{
		ToolName:   service.ToolListTools,
		Parameters: map[string]any{},
		UserID:     CallerID(c),
		TenantID:   CallerTenantID(c),
		Role:       CallerRole(c),
		Protocol:   service.ProtocolREST,
	}

	status, envelope := h.converter.ToREST(h.dispatcher.Dispatch(c.Request.Context(), req))
	c.JSON(status, envelope)
}

// RPC handles POST /rpc: JSON-RPC 2.0 with MCP-compatible methods.
// tools/list returns the MCP tool schemas; tools/call and direct tool
// names dispatch an invocation.
func (h *ToolsHandler) RPC(c *gin.Context) {
	var rpcReq dto.JSONRPCRequest
	if err := c.ShouldBindJSON(&rpcReq); err != nil {
		c.JSON(http.StatusOK, dto.JSONRPCResponse{
			JSONRPC: "2.0",
			Error:   &dto.JSONRPCError{Code: -32700, Message: "parse error"},
		})
		return
	}

	switch rpcReq.Method {
	case "tools/list":
		c.JSON(http.StatusOK, dto.JSONRPCResponse{
			JSONRPC: "2.0",
			ID:      rpcReq.ID,
			Result:  gin.H{"tools": h.registry.MCPTools()},
		})
		return

	case "notifications/cancelled":
		if token, ok := rpcReq.Params["progressToken"].(string); ok {
			h.progress.Cancel(token)
		}
		c.Status(http.StatusAccepted)
		return

	case "tools/call":
		name, _ := rpcReq.Params["name"].(string)
		args, _ := rpcReq.Params["arguments"].(map[string]any)
		if args == nil {
			args = map[string]any{}
		}
		token, _ := rpcReq.Params["progressToken"].(string)

		req := &service.UniversalRequest{
			ToolName:      name,
			Parameters:    args,
			UserID:        CallerID(c),
			TenantID:      CallerTenantID(c),
			Role:          CallerRole(c),
			Protocol:      service.ProtocolMCP,
			ProgressToken: token,
		}

		resp := h.dispatcher.Dispatch(c.Request.Context(), req)

		// MCP carries tool failures inside the result, but an unknown
		// tool is still a protocol-level -32601.
		if resp.Error != nil {
			c.JSON(http.StatusOK, h.converter.ToJSONRPC(rpcReq.ID, resp))
			return
		}
		c.JSON(http.StatusOK, dto.JSONRPCResponse{
			JSONRPC: "2.0",
			ID:      rpcReq.ID,
			Result:  h.converter.ToMCP(resp),
		})
		return

	default:
		// Plain JSON-RPC: the method is the tool name.
		params := rpcReq.Params
		if params == nil {
			params = map[string]any{}
		}

		req := &service.UniversalRequest{
			ToolName:   rpcReq.Method,
			Parameters: params,
			UserID:     CallerID(c),
			TenantID:   CallerTenantID(c),
			Role:       CallerRole(c),
			Protocol:   service.ProtocolJSONRPC,
		}

		c.JSON(http.StatusOK, h.converter.ToJSONRPC(rpcReq.ID, h.dispatcher.Dispatch(c.Request.Context(), req)))
	}
}

// CallA2A handles POST /a2a/:tool for agent-to-agent callers
func (h *ToolsHandler) CallA2A(c *gin.Context) {
	var params map[string]any
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&params); err != nil {
			c.JSON(http.StatusBadRequest, dto.A2AResponse{
				Kind:   "task",
				Status: "failed",
				Error:  "request body must be a JSON object",
			})
			return
		}
	}
	if params == nil {
		params = map[string]any{}
	}

	req := &service.UniversalRequest{
		ToolName:   c.Param("tool"),
		Parameters: params,
		UserID:     CallerID(c),
		TenantID:   CallerTenantID(c),
		Role:       CallerRole(c),
		Protocol:   service.ProtocolA2A,
	}

	c.JSON(http.StatusOK, h.converter.ToA2A(h.dispatcher.Dispatch(c.Request.Context(), req)))
}
