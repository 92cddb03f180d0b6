package render

import (
	"fmt"
	"os"
	"strings"
	"text/template"
)

// FuncMap returns template helpers for YAML rendering.
func FuncMap(tracker *EnvTracker) template.FuncMap {
	lookup := func(key string) (string, bool) {
		tracker.markUsed(key)
		return os.LookupEnv(key)
	}
	return template.FuncMap{
		"env": func(key string) string {
			value, ok := lookup(key)
			if !ok {
				tracker.markMissing(key)
			}
			return value
		},
		"envOr": func(key, def string) string {
			if value, ok := lookup(key); ok && value != "" {
				return value
			}
			return def
		},
		"required": func(key string) (string, error) {
			value, ok := lookup(key)
			if !ok || strings.TrimSpace(value) == "" {
				tracker.markMissing(key)
				return "", fmt.Errorf("env %s is required", key)
			}
			return value, nil
		},
		"default": func(def, value string) string {
			if value == "" {
				return def
			}
			return value
		},
		"quote": func(value string) string {
			return fmt.Sprintf("%q", value)
		},
		"lower": strings.ToLower,
		"upper": strings.ToUpper,
	}
}
