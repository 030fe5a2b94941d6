package service

import (
	"encoding/json"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/pierre-fitness/pierre-gateway/internal/apperr"
	"github.com/pierre-fitness/pierre-gateway/internal/dto"
)

// JSON-RPC 2.0 error codes used by the converter
const (
	jsonrpcMethodNotFound = -32601
	jsonrpcInvalidParams  = -32602
	jsonrpcInternal       = -32603
	jsonrpcCancelled      = -32000
	jsonrpcAuth           = -32001
	jsonrpcDenied         = -32002
)

// HTTPStatus maps an error kind to its REST status code
func HTTPStatus(kind apperr.Kind) int {
	switch kind {
	case apperr.AuthRequired, apperr.AuthInvalid, apperr.AuthExpired:
		return http.StatusUnauthorized
	case apperr.PermissionDenied:
		return http.StatusForbidden
	case apperr.InvalidInput, apperr.InvalidFormat:
		return http.StatusBadRequest
	case apperr.NotFound, apperr.MethodNotFound:
		return http.StatusNotFound
	case apperr.RateLimited:
		return http.StatusTooManyRequests
	case apperr.OperationCancelled:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func jsonrpcCode(kind apperr.Kind) int {
	switch kind {
	case apperr.MethodNotFound:
		return jsonrpcMethodNotFound
	case apperr.InvalidInput, apperr.InvalidFormat:
		return jsonrpcInvalidParams
	case apperr.AuthRequired, apperr.AuthInvalid, apperr.AuthExpired:
		return jsonrpcAuth
	case apperr.PermissionDenied:
		return jsonrpcDenied
	case apperr.OperationCancelled:
		return jsonrpcCancelled
	default:
		return jsonrpcInternal
	}
}

// ProtocolConverter renders UniversalResponses into protocol-native
// shapes. It is stateless.
type ProtocolConverter struct{}

// NewProtocolConverter creates a converter
func NewProtocolConverter() *ProtocolConverter {
	return &ProtocolConverter{}
}

// ToMCP renders a tool response as an MCP CallToolResult. Tool-level
// failures travel inside the result with IsError set, per the MCP spec.
func (c *ProtocolConverter) ToMCP(resp *UniversalResponse) *mcp.CallToolResult {
	if resp.Error != nil {
		return mcp.NewToolResultError(apperr.MessageOf(resp.Error))
	}

	text := "{}"
	if resp.Result != nil {
		if raw, err := json.Marshal(resp.Result); err == nil {
			text = string(raw)
		}
	}

	result := mcp.NewToolResultText(text)
	result.StructuredContent = resp.Result
	return result
}

// ToJSONRPC renders a JSON-RPC 2.0 response for the given request id
func (c *ProtocolConverter) ToJSONRPC(id any, resp *UniversalResponse) *dto.JSONRPCResponse {
	out := &dto.JSONRPCResponse{JSONRPC: "2.0", ID: id}

	if resp.Error != nil {
		out.Error = &dto.JSONRPCError{
			Code:    jsonrpcCode(apperr.KindOf(resp.Error)),
			Message: apperr.MessageOf(resp.Error),
		}
		return out
	}

	out.Result = resp.Result
	return out
}

// ToREST renders the REST envelope and its HTTP status
func (c *ProtocolConverter) ToREST(resp *UniversalResponse) (int, *dto.RESTEnvelope) {
	if resp.Error != nil {
		return HTTPStatus(apperr.KindOf(resp.Error)), &dto.RESTEnvelope{
			Success: false,
			Message: apperr.MessageOf(resp.Error),
		}
	}

	return http.StatusOK, &dto.RESTEnvelope{
		Success: true,
		Data:    resp.Result,
	}
}

// ToA2A renders the agent-to-agent task payload
func (c *ProtocolConverter) ToA2A(resp *UniversalResponse) *dto.A2AResponse {
	if resp.Error != nil {
		return &dto.A2AResponse{
			Kind:   "task",
			Status: "failed",
			Error:  apperr.MessageOf(resp.Error),
		}
	}

	return &dto.A2AResponse{
		Kind:   "task",
		Status: "completed",
		Parts:  []dto.A2APart{{Type: "data", Data: resp.Result}},
	}
}
