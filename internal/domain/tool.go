package domain

import "time"

// ToolCapabilities are the static capability bits of a catalogue entry
type ToolCapabilities struct {
	ReadFitness      bool `json:"read_fitness"`
	WriteFitness     bool `json:"write_fitness"`
	AdminOnly        bool `json:"admin_only"`
	RequiresOAuth    bool `json:"requires_oauth"`
	SupportsProgress bool `json:"supports_progress"`
}

// ToolOverride is a per-tenant enable/disable override on the catalogue
type ToolOverride struct {
	TenantID  string  `json:"tenant_id" db:"tenant_id"`
	ToolName  string  `json:"tool_name" db:"tool_name"`
	IsEnabled bool    `json:"is_enabled" db:"is_enabled"`
	SetBy     *string `json:"set_by,omitempty" db:"set_by"`
	Reason    *string `json:"reason,omitempty" db:"reason"`
}

// AuditEntry is one tool-invocation audit row
type AuditEntry struct {
	ID             string    `json:"id" db:"id"`
	Timestamp      time.Time `json:"timestamp" db:"timestamp"`
	ToolName       string    `json:"tool_name" db:"tool_name"`
	UserID         string    `json:"user_id" db:"user_id"`
	TenantID       string    `json:"tenant_id" db:"tenant_id"`
	StatusCode     int       `json:"status_code" db:"status_code"`
	ResponseTimeMs int64     `json:"response_time_ms" db:"response_time_ms"`
	ErrorKind      *string   `json:"error_kind,omitempty" db:"error_kind"`
}
