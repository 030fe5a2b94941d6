package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/pierre-fitness/pierre-gateway/internal/apperr"
	"github.com/pierre-fitness/pierre-gateway/internal/domain"
)

// Protocol selects the wire shape of a tool response
type Protocol string

const (
	ProtocolMCP     Protocol = "mcp"
	ProtocolJSONRPC Protocol = "jsonrpc"
	ProtocolREST    Protocol = "rest"
	ProtocolA2A     Protocol = "a2a"
)

// UniversalRequest is the protocol-independent tool invocation envelope
type UniversalRequest struct {
	ToolName      string
	Parameters    map[string]any
	UserID        string
	TenantID      string
	Role          domain.Role
	Protocol      Protocol
	ProgressToken string
}

// UniversalResponse is the protocol-independent tool result
type UniversalResponse struct {
	Success  bool
	Result   any
	Error    error
	Metadata map[string]any
}

// Dispatcher validates and executes tool invocations. It owns the
// per-invocation lifecycle: availability check, cancellation
// registration, execution, audit.
type Dispatcher struct {
	registry  *ToolRegistry
	selection *ToolSelection
	progress  *ProgressBus
	audit     *AuditService
	logger    *zap.Logger
}

// NewDispatcher wires the dispatcher
func NewDispatcher(
	registry *ToolRegistry,
	selection *ToolSelection,
	progress *ProgressBus,
	audit *AuditService,
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		registry:  registry,
		selection: selection,
		progress:  progress,
		audit:     audit,
		logger:    logger,
	}
}

// Dispatch runs one tool invocation end to end. A disabled tool is
// indistinguishable from an unknown one.
func (d *Dispatcher) Dispatch(ctx context.Context, req *UniversalRequest) *UniversalResponse {
	start := time.Now()

	def, ok := d.registry.Get(req.ToolName)
	if ok {
		enabled, err := d.selection.IsEnabled(ctx, req.TenantID, req.ToolName)
		if err != nil {
			return d.finish(req, start, nil, apperr.Wrap(apperr.Database, "failed to resolve tool availability", err))
		}
		if !enabled {
			ok = false
		}
	}
	if !ok {
		return d.finish(req, start, nil, apperr.Newf(apperr.MethodNotFound, "tool not found: %s", req.ToolName))
	}

	if def.Capabilities.AdminOnly && req.Role != domain.RoleAdmin && req.Role != domain.RoleSuperAdmin {
		return d.finish(req, start, nil, apperr.Newf(apperr.PermissionDenied, "tool %s requires an admin role", req.ToolName))
	}

	execCtx := ctx
	if req.ProgressToken != "" {
		execCtx = d.progress.Register(ctx, req.ProgressToken)
		defer d.progress.Cleanup(req.ProgressToken)
	}

	result, err := def.Handler(execCtx, req)
	if err != nil && errors.Is(execCtx.Err(), context.Canceled) && ctx.Err() == nil {
		err = apperr.Wrap(apperr.OperationCancelled, "operation cancelled", err)
	}

	return d.finish(req, start, result, err)
}

func (d *Dispatcher) finish(req *UniversalRequest, start time.Time, result any, err error) *UniversalResponse {
	elapsed := time.Since(start)

	entry := &domain.AuditEntry{
		Timestamp:      start,
		ToolName:       req.ToolName,
		UserID:         req.UserID,
		TenantID:       req.TenantID,
		ResponseTimeMs: elapsed.Milliseconds(),
	}

	resp := &UniversalResponse{
		Metadata: map[string]any{
			"tool":       req.ToolName,
			"elapsed_ms": elapsed.Milliseconds(),
		},
	}

	if err != nil {
		kind := string(apperr.KindOf(err))
		entry.StatusCode = HTTPStatus(apperr.KindOf(err))
		entry.ErrorKind = &kind
		resp.Error = err

		d.logger.Warn("tool call failed",
			zap.String("tool", req.ToolName),
			zap.String("user_id", req.UserID),
			zap.String("error_kind", kind),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
	} else {
		entry.StatusCode = 200
		resp.Success = true
		resp.Result = result

		d.logger.Info("tool call completed",
			zap.String("tool", req.ToolName),
			zap.String("user_id", req.UserID),
			zap.Duration("elapsed", elapsed),
		)
	}

	go d.audit.Record(entry)

	return resp
}
