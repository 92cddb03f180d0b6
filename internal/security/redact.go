package security

import (
	"encoding/json"
	"strings"
)

const (
	redacted = "***"
	// maxLoggedString bounds free-text values copied into logs.
	maxLoggedString = 256
)

var sensitiveSubstrings = []string{
	"token",
	"password",
	"authorization",
	"apikey",
	"api_key",
	"access_key",
	"private_key",
	"credential",
	"secret",
	"passwd",
	"cookie",
	"session",
	"jwt",
	"bearer",
	"signature",
	"passphrase",
}

// RedactArguments returns a deep copy of arguments with sensitive values
// replaced and long strings truncated.
func RedactArguments(values map[string]any) map[string]any {
	if values == nil {
		return nil
	}
	out := make(map[string]any, len(values))
	for key, value := range values {
		if isSensitiveKey(key) {
			out[key] = redacted
			continue
		}
		out[key] = redactValue(value)
	}
	return out
}

// RedactRawArguments parses model-generated JSON arguments for logging.
// Unparseable input is reported by size only.
func RedactRawArguments(raw string) any {
	var parsed any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return map[string]any{"unparsed_bytes": len(raw)}
	}
	return redactValue(parsed)
}

func redactValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return RedactArguments(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = redactValue(item)
		}
		return out
	case string:
		if len(v) > maxLoggedString {
			return v[:maxLoggedString] + "..."
		}
		return v
	default:
		return v
	}
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(strings.TrimSpace(key))
	for _, part := range sensitiveSubstrings {
		if strings.Contains(lower, part) {
			return true
		}
	}
	return false
}
