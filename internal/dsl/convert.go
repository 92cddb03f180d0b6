package dsl

import (
	"time"

	"github.com/codex-k8s/canvas-command-gateway/internal/admission"
	"github.com/codex-k8s/canvas-command-gateway/internal/timeutil"
	"github.com/codex-k8s/canvas-command-gateway/internal/tools"
)

// AdmissionPolicy returns the validated quota policy.
func (c *Config) AdmissionPolicy() admission.Policy {
	return admission.Policy{
		MaxPerWindow: c.Admission.MaxRequestsPerWindow,
		Window:       time.Duration(c.Admission.WindowDurationSeconds) * time.Second,
	}
}

// AdmissionEviction returns the record retention bounds.
func (c *Config) AdmissionEviction() admission.Eviction {
	return admission.Eviction{
		MaxEntries: c.Admission.MaxEntries,
		IdleTTL:    timeutil.ParseDurationOrDefault(c.Admission.IdleTTL, 0),
	}
}

// RequestTimeout returns the completion deadline.
func (c *Config) RequestTimeout() time.Duration {
	return timeutil.Millis(c.Completion.RequestTimeoutMS)
}

// MaxRequestTimeout returns the completion deadline cap.
func (c *Config) MaxRequestTimeout() time.Duration {
	return timeutil.Millis(c.Completion.MaxRequestTimeoutMS)
}

// ToolConfigs converts tool declarations for tools.NewRegistry.
func (c *Config) ToolConfigs() []tools.Config {
	out := make([]tools.Config, 0, len(c.Tools))
	for _, t := range c.Tools {
		cfg := tools.Config{Name: t.Name, Description: t.Description}
		if len(t.Fields) > 0 {
			cfg.Fields = make(map[string]tools.FieldPolicy, len(t.Fields))
			for field, p := range t.Fields {
				cfg.Fields[field] = tools.FieldPolicy{
					Regex:     p.Regex,
					Min:       p.Min,
					Max:       p.Max,
					MinLength: p.MinLength,
					MaxLength: p.MaxLength,
				}
			}
		}
		out = append(out, cfg)
	}
	return out
}

// ReplayTTL returns the replay cache ttl.
func (c *Config) ReplayTTL() time.Duration {
	return timeutil.ParseDurationOrDefault(c.Server.ReplayCache.TTL, 0)
}
