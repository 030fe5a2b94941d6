package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/pierre-fitness/pierre-gateway/internal/apperr"
	"github.com/pierre-fitness/pierre-gateway/internal/domain"
	"github.com/pierre-fitness/pierre-gateway/internal/repository"
)

// ToolStatus is one catalogue entry with its effective enabled bit
type ToolStatus struct {
	Name         string                  `json:"name"`
	Description  string                  `json:"description"`
	Capabilities domain.ToolCapabilities `json:"capabilities"`
	Enabled      bool                    `json:"enabled"`
	Reason       *string                 `json:"reason,omitempty"`
}

// ToolSelection resolves which tools a tenant may call. Precedence:
// process-wide disabled list, then tenant overrides, then the catalogue
// default (enabled).
type ToolSelection struct {
	registry  *ToolRegistry
	overrides repository.ToolOverrideRepository
	disabled  map[string]struct{}
}

// NewToolSelection creates a tool-selection service. envDisabled comes
// from PIERRE_DISABLED_TOOLS.
func NewToolSelection(registry *ToolRegistry, overrides repository.ToolOverrideRepository, envDisabled []string) *ToolSelection {
	disabled := make(map[string]struct{}, len(envDisabled))
	for _, name := range envDisabled {
		name = strings.TrimSpace(name)
		if name != "" {
			disabled[name] = struct{}{}
		}
	}
	return &ToolSelection{
		registry:  registry,
		overrides: overrides,
		disabled:  disabled,
	}
}

// IsEnabled reports whether a catalogue tool may be called by the tenant
func (s *ToolSelection) IsEnabled(ctx context.Context, tenantID, toolName string) (bool, error) {
	if _, ok := s.registry.Get(toolName); !ok {
		return false, nil
	}
	if _, off := s.disabled[toolName]; off {
		return false, nil
	}
	if tenantID == "" {
		return true, nil
	}

	overrides, err := s.overrides.ListForTenant(ctx, tenantID)
	if err != nil {
		return false, fmt.Errorf("failed to load tool overrides: %w", err)
	}
	for _, o := range overrides {
		if o.ToolName == toolName {
			return o.IsEnabled, nil
		}
	}
	return true, nil
}

// EffectiveTools lists the catalogue with each tool's enabled bit for
// the tenant
func (s *ToolSelection) EffectiveTools(ctx context.Context, tenantID string) ([]ToolStatus, error) {
	overrideByName := make(map[string]*domain.ToolOverride)
	if tenantID != "" {
		overrides, err := s.overrides.ListForTenant(ctx, tenantID)
		if err != nil {
			return nil, fmt.Errorf("failed to load tool overrides: %w", err)
		}
		for _, o := range overrides {
			overrideByName[o.ToolName] = o
		}
	}

	out := make([]ToolStatus, 0, len(s.registry.Names()))
	for _, name := range s.registry.Names() {
		def, _ := s.registry.Get(name)
		status := ToolStatus{
			Name:         name,
			Description:  def.Tool.Description,
			Capabilities: def.Capabilities,
			Enabled:      true,
		}
		if o, ok := overrideByName[name]; ok {
			status.Enabled = o.IsEnabled
			status.Reason = o.Reason
		}
		if _, off := s.disabled[name]; off {
			status.Enabled = false
		}
		out = append(out, status)
	}
	return out, nil
}

// SetOverride stores a tenant override. Only tenant admins may call it;
// the role check happens here so every protocol path enforces it.
func (s *ToolSelection) SetOverride(ctx context.Context, tenantID, toolName string, enabled bool, setBy string, role domain.Role, reason *string) error {
	if role != domain.RoleAdmin && role != domain.RoleSuperAdmin {
		return apperr.New(apperr.PermissionDenied, "tool overrides require a tenant admin")
	}
	if tenantID == "" {
		return apperr.New(apperr.InvalidInput, "no active tenant")
	}
	if _, ok := s.registry.Get(toolName); !ok {
		return apperr.Newf(apperr.MethodNotFound, "tool not found: %s", toolName)
	}

	return s.overrides.Upsert(ctx, &domain.ToolOverride{
		TenantID:  tenantID,
		ToolName:  toolName,
		IsEnabled: enabled,
		SetBy:     &setBy,
		Reason:    reason,
	})
}
