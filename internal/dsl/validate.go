package dsl

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/codex-k8s/canvas-command-gateway/internal/admission"
	"github.com/codex-k8s/canvas-command-gateway/internal/constants"
	"github.com/codex-k8s/canvas-command-gateway/internal/tools"
)

// Defaults applied by Validate.
const (
	DefaultListen           = ":8080"
	DefaultBasePath         = "/api"
	DefaultMCPPath          = "/mcp"
	DefaultRequestTimeoutMS = 10000
	DefaultMaxTimeoutMS     = 60000
	DefaultMaxBodyBytes     = 1 << 20
	DefaultReplayTTL        = "10m"
	DefaultReplayEntries    = 10000
)

// Validate applies defaults and verifies required fields.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if err := validateServer(&cfg.Server); err != nil {
		return err
	}
	if err := validateAdmission(&cfg.Admission); err != nil {
		return err
	}
	if err := validateCompletion(&cfg.Completion); err != nil {
		return err
	}
	return validateTools(cfg.Tools)
}

func validateServer(s *ServerConfig) error {
	if s.Name == "" {
		return fmt.Errorf("server.name is required")
	}
	if s.Version == "" {
		return fmt.Errorf("server.version is required")
	}
	if s.Transport == "" {
		s.Transport = constants.TransportHTTP
	}
	switch s.Transport {
	case constants.TransportHTTP, constants.TransportStdio:
	default:
		return fmt.Errorf("server.transport must be http or stdio")
	}
	if err := checkDuration("server.shutdown_timeout", s.ShutdownTimeout); err != nil {
		return err
	}

	h := &s.HTTP
	if strings.TrimSpace(h.Listen) == "" {
		h.Listen = DefaultListen
	}
	if h.BasePath == "" {
		h.BasePath = DefaultBasePath
	}
	if h.MCPPath == "" {
		h.MCPPath = DefaultMCPPath
	}
	if h.MCPPath == h.BasePath {
		return fmt.Errorf("server.http.mcp_path must differ from server.http.base_path")
	}
	if h.MaxBodyBytes == 0 {
		h.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if h.MaxBodyBytes < 0 {
		return fmt.Errorf("server.http.max_body_bytes must be >= 0")
	}
	if s.ReplayCache.Enabled {
		if s.ReplayCache.TTL == "" {
			s.ReplayCache.TTL = DefaultReplayTTL
		}
		if s.ReplayCache.MaxEntries == 0 {
			s.ReplayCache.MaxEntries = DefaultReplayEntries
		}
		if s.ReplayCache.MaxEntries < 0 {
			return fmt.Errorf("server.replay_cache.max_entries must be >= 0")
		}
		if err := checkDuration("server.replay_cache.ttl", s.ReplayCache.TTL); err != nil {
			return err
		}
	}
	for name, value := range map[string]string{
		"server.http.read_timeout":  h.ReadTimeout,
		"server.http.write_timeout": h.WriteTimeout,
		"server.http.idle_timeout":  h.IdleTimeout,
	} {
		if err := checkDuration(name, value); err != nil {
			return err
		}
	}
	return nil
}

func validateAdmission(a *AdmissionConfig) error {
	if a.MaxRequestsPerWindow == 0 {
		a.MaxRequestsPerWindow = admission.DefaultMaxPerWindow
	}
	if a.MaxRequestsPerWindow < 0 {
		return fmt.Errorf("admission.max_requests_per_window must be > 0")
	}
	if a.WindowDurationSeconds == 0 {
		a.WindowDurationSeconds = int(admission.DefaultWindow / time.Second)
	}
	if a.WindowDurationSeconds < 0 {
		return fmt.Errorf("admission.window_duration_seconds must be > 0")
	}
	if a.MaxEntries < 0 {
		return fmt.Errorf("admission.max_entries must be >= 0")
	}
	return checkDuration("admission.idle_ttl", a.IdleTTL)
}

func validateCompletion(c *CompletionConfig) error {
	if c.Model == "" {
		return fmt.Errorf("completion.model is required")
	}
	switch c.ReasoningEffort {
	case "", constants.ReasoningMinimal, constants.ReasoningLow, constants.ReasoningMedium, constants.ReasoningHigh:
	default:
		return fmt.Errorf("completion.reasoning_effort must be minimal, low, medium, or high")
	}
	switch c.ResponseVerbosity {
	case "", constants.VerbosityLow, constants.VerbosityMedium, constants.VerbosityHigh:
	default:
		return fmt.Errorf("completion.response_verbosity must be low, medium, or high")
	}
	if c.RequestTimeoutMS == 0 {
		c.RequestTimeoutMS = DefaultRequestTimeoutMS
	}
	if c.MaxRequestTimeoutMS == 0 {
		c.MaxRequestTimeoutMS = DefaultMaxTimeoutMS
	}
	if c.RequestTimeoutMS < 0 || c.MaxRequestTimeoutMS < 0 {
		return fmt.Errorf("completion timeouts must be > 0")
	}
	if c.RequestTimeoutMS > c.MaxRequestTimeoutMS {
		return fmt.Errorf("completion.request_timeout_ms must not exceed completion.max_request_timeout_ms")
	}
	if c.UpstreamRatePerMinute < 0 {
		return fmt.Errorf("completion.upstream_rate_per_minute must be >= 0")
	}
	if c.MaxCanvasStateBytes < 0 {
		return fmt.Errorf("completion.max_canvas_state_bytes must be >= 0")
	}
	return nil
}

func validateTools(list []ToolConfig) error {
	known := map[string]struct{}{}
	for _, def := range tools.Catalog() {
		known[def.Name] = struct{}{}
	}
	seen := map[string]struct{}{}
	for i, tool := range list {
		if tool.Name == "" {
			return fmt.Errorf("tools[%d].name is required", i)
		}
		if _, ok := known[tool.Name]; !ok {
			return fmt.Errorf("tools[%d].name %q is not a canvas tool", i, tool.Name)
		}
		if _, exists := seen[tool.Name]; exists {
			return fmt.Errorf("duplicate tool name: %s", tool.Name)
		}
		seen[tool.Name] = struct{}{}
		for field, policy := range tool.Fields {
			if policy.Regex == "" {
				continue
			}
			if _, err := regexp.Compile(policy.Regex); err != nil {
				return fmt.Errorf("tools[%d].fields.%s.regex is invalid: %w", i, field, err)
			}
		}
	}
	return nil
}

func checkDuration(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("%s is invalid: %w", name, err)
	}
	if d < 0 {
		return fmt.Errorf("%s must be >= 0", name)
	}
	return nil
}
