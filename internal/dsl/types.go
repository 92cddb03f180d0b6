package dsl

// Config is the top-level YAML configuration.
type Config struct {
	// Server describes the listener and MCP identity.
	Server ServerConfig `yaml:"server"`
	// Admission configures the per-user quota.
	Admission AdmissionConfig `yaml:"admission"`
	// Completion configures the model call.
	Completion CompletionConfig `yaml:"completion"`
	// Tools enables catalog tools. Empty enables the whole catalog.
	Tools []ToolConfig `yaml:"tools"`
}

// ServerConfig defines server settings.
type ServerConfig struct {
	// Name is the MCP server name.
	Name string `yaml:"name"`
	// Version is the MCP server version.
	Version string `yaml:"version"`
	// Transport selects the server transport ("http" or "stdio").
	Transport string `yaml:"transport"`
	// ShutdownTimeout overrides graceful shutdown duration.
	ShutdownTimeout string `yaml:"shutdown_timeout"`
	// HTTP configures HTTP transport.
	HTTP HTTPConfig `yaml:"http"`
	// ReplayCache configures replay of retried commands.
	ReplayCache ReplayCacheConfig `yaml:"replay_cache"`
}

// ReplayCacheConfig configures response replay for retried commands.
type ReplayCacheConfig struct {
	// Enabled toggles the replay cache.
	Enabled bool `yaml:"enabled"`
	// TTL controls how long responses are kept.
	TTL string `yaml:"ttl"`
	// MaxEntries limits the cache size.
	MaxEntries int `yaml:"max_entries"`
}

// HTTPConfig configures the HTTP transport.
type HTTPConfig struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen"`
	// BasePath prefixes the command API routes.
	BasePath string `yaml:"base_path"`
	// MCPPath is the MCP streamable HTTP endpoint path.
	MCPPath string `yaml:"mcp_path"`
	// ReadTimeout limits request read time.
	ReadTimeout string `yaml:"read_timeout"`
	// WriteTimeout limits response write time.
	WriteTimeout string `yaml:"write_timeout"`
	// IdleTimeout controls idle connections.
	IdleTimeout string `yaml:"idle_timeout"`
	// MaxBodyBytes caps the command request body.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// AdmissionConfig configures the fixed-window quota.
type AdmissionConfig struct {
	// MaxRequestsPerWindow is the per-user quota.
	MaxRequestsPerWindow int `yaml:"max_requests_per_window"`
	// WindowDurationSeconds is the window length.
	WindowDurationSeconds int `yaml:"window_duration_seconds"`
	// MaxEntries caps retained user records. Zero keeps every record.
	MaxEntries int `yaml:"max_entries"`
	// IdleTTL drops records idle for this long, e.g. "10m".
	IdleTTL string `yaml:"idle_ttl"`
}

// CompletionConfig configures the completion service call.
type CompletionConfig struct {
	// Model selects the model variant.
	Model string `yaml:"model"`
	// ReasoningEffort is passed through as a hint.
	ReasoningEffort string `yaml:"reasoning_effort"`
	// ResponseVerbosity is passed through as a hint.
	ResponseVerbosity string `yaml:"response_verbosity"`
	// RequestTimeoutMS is the completion deadline.
	RequestTimeoutMS int `yaml:"request_timeout_ms"`
	// MaxRequestTimeoutMS caps the completion deadline.
	MaxRequestTimeoutMS int `yaml:"max_request_timeout_ms"`
	// UpstreamRatePerMinute paces calls process-wide. Zero disables pacing.
	UpstreamRatePerMinute int `yaml:"upstream_rate_per_minute"`
	// SystemPrompt replaces the built-in system instructions.
	SystemPrompt string `yaml:"system_prompt"`
	// MaxCanvasStateBytes omits larger canvas snapshots from the prompt.
	MaxCanvasStateBytes int `yaml:"max_canvas_state_bytes"`
}

// ToolConfig enables one catalog tool.
type ToolConfig struct {
	// Name selects the catalog tool.
	Name string `yaml:"name"`
	// Description overrides the catalog description.
	Description string `yaml:"description"`
	// Fields adds per-argument policies.
	Fields map[string]FieldPolicy `yaml:"fields"`
}

// FieldPolicy defines validation rules for tool argument fields.
type FieldPolicy struct {
	// Regex validates string value format.
	Regex string `yaml:"regex"`
	// Min sets numeric minimum.
	Min *float64 `yaml:"min"`
	// Max sets numeric maximum.
	Max *float64 `yaml:"max"`
	// MinLength sets string minimum length.
	MinLength *int `yaml:"min_length"`
	// MaxLength sets string maximum length.
	MaxLength *int `yaml:"max_length"`
}
