package dsl

import "strings"

func normalizeConfig(cfg *Config) {
	cfg.Server.Transport = strings.ToLower(strings.TrimSpace(cfg.Server.Transport))
	cfg.Server.HTTP.BasePath = normalizePath(cfg.Server.HTTP.BasePath)
	cfg.Server.HTTP.MCPPath = normalizePath(cfg.Server.HTTP.MCPPath)
	cfg.Completion.Model = strings.TrimSpace(cfg.Completion.Model)
	cfg.Completion.ReasoningEffort = strings.ToLower(strings.TrimSpace(cfg.Completion.ReasoningEffort))
	cfg.Completion.ResponseVerbosity = strings.ToLower(strings.TrimSpace(cfg.Completion.ResponseVerbosity))
	for i := range cfg.Tools {
		cfg.Tools[i].Name = strings.TrimSpace(cfg.Tools[i].Name)
	}
}

// normalizePath returns "" or a path with one leading and no trailing slash.
func normalizePath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return ""
	}
	return "/" + p
}
