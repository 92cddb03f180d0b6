package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config stores environment-driven settings for the gateway.
type Config struct {
	// ConfigPath is the path to the YAML configuration file.
	ConfigPath string `env:"CANVAS_GATEWAY_CONFIG" envDefault:"config.yaml"`
	// LogLevel sets the logger level.
	LogLevel string `env:"CANVAS_GATEWAY_LOG_LEVEL" envDefault:"info"`
	// Lang selects message language for templates.
	Lang string `env:"CANVAS_GATEWAY_LANG" envDefault:"en"`
	// ShutdownTimeout controls graceful shutdown duration.
	ShutdownTimeout time.Duration `env:"CANVAS_GATEWAY_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	// LLMAPIKey authenticates against the completion service.
	LLMAPIKey string `env:"CANVAS_GATEWAY_LLM_API_KEY"`
	// LLMBaseURL overrides the completion service endpoint.
	LLMBaseURL string `env:"CANVAS_GATEWAY_LLM_BASE_URL"`
	// AdminToken enables the rate-limit reset endpoint when set.
	AdminToken string `env:"CANVAS_GATEWAY_ADMIN_TOKEN"`
	// OTelEndpoint enables OTLP/HTTP trace export when set.
	OTelEndpoint string `env:"CANVAS_GATEWAY_OTEL_ENDPOINT"`
}

// Load parses environment variables into Config.
func Load() (Config, error) {
	return env.ParseAs[Config]()
}
