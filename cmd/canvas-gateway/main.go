package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/codex-k8s/canvas-command-gateway/configs"
	"github.com/codex-k8s/canvas-command-gateway/internal/admission"
	"github.com/codex-k8s/canvas-command-gateway/internal/app"
	"github.com/codex-k8s/canvas-command-gateway/internal/audit"
	"github.com/codex-k8s/canvas-command-gateway/internal/completion"
	"github.com/codex-k8s/canvas-command-gateway/internal/config"
	"github.com/codex-k8s/canvas-command-gateway/internal/constants"
	"github.com/codex-k8s/canvas-command-gateway/internal/dsl"
	"github.com/codex-k8s/canvas-command-gateway/internal/gateway"
	"github.com/codex-k8s/canvas-command-gateway/internal/http/api"
	"github.com/codex-k8s/canvas-command-gateway/internal/idempotency"
	"github.com/codex-k8s/canvas-command-gateway/internal/log"
	"github.com/codex-k8s/canvas-command-gateway/internal/mcpserver"
	"github.com/codex-k8s/canvas-command-gateway/internal/render"
	"github.com/codex-k8s/canvas-command-gateway/internal/telemetry"
	"github.com/codex-k8s/canvas-command-gateway/internal/templates"
	"github.com/codex-k8s/canvas-command-gateway/internal/tools"
)

func main() {
	embeddedConfig := flag.String("embedded-config", "", "Use embedded config from configs/ (filename)")
	flag.Parse()

	if err := run(*embeddedConfig); err != nil {
		fmt.Fprintf(os.Stderr, "canvas-gateway: %v\n", err)
		os.Exit(1)
	}
}

func run(embeddedConfig string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	var rendered []byte
	if embeddedConfig != "" {
		raw, err := configs.Load(embeddedConfig)
		if err != nil {
			return err
		}
		rendered, err = render.RenderBytes(embeddedConfig, raw)
		if err != nil {
			return fmt.Errorf("render config: %w", err)
		}
	} else {
		rendered, err = render.RenderFile(cfg.ConfigPath)
		if err != nil {
			return fmt.Errorf("render config: %w", err)
		}
	}

	dslCfg, err := dsl.Load(rendered)
	if err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	// stdout carries the MCP stream on stdio.
	logger := log.New(cfg.LogLevel)
	if dslCfg.Server.Transport == constants.TransportStdio {
		logger = log.NewWithWriter(cfg.LogLevel, os.Stderr)
	}

	baseCtx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer cancel()

	shutdownTracing, err := telemetry.Setup(baseCtx, cfg.OTelEndpoint, dslCfg.Server.Name, dslCfg.Server.Version)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	bundle, err := templates.Load(cfg.Lang)
	if err != nil {
		return fmt.Errorf("load templates: %w", err)
	}

	registry, err := tools.NewRegistry(dslCfg.ToolConfigs())
	if err != nil {
		return fmt.Errorf("tool registry: %w", err)
	}

	client, err := completion.NewOpenAI(completion.OpenAIConfig{
		APIKey:  cfg.LLMAPIKey,
		BaseURL: cfg.LLMBaseURL,
	})
	if err != nil {
		return fmt.Errorf("completion client: %w", err)
	}

	dispatcher, err := gateway.New(gateway.Config{
		Admission: admission.NewController(dslCfg.AdmissionPolicy(), dslCfg.AdmissionEviction()),
		Invoker: completion.NewInvoker(client, completion.Options{
			DefaultDeadline:       dslCfg.RequestTimeout(),
			MaxDeadline:           dslCfg.MaxRequestTimeout(),
			UpstreamRatePerMinute: dslCfg.Completion.UpstreamRatePerMinute,
			Logger:                logger,
		}),
		Tools:               registry,
		Model:               dslCfg.Completion.Model,
		ReasoningEffort:     dslCfg.Completion.ReasoningEffort,
		Verbosity:           dslCfg.Completion.ResponseVerbosity,
		SystemPrompt:        dslCfg.Completion.SystemPrompt,
		Deadline:            dslCfg.RequestTimeout(),
		MaxCanvasStateBytes: dslCfg.Completion.MaxCanvasStateBytes,
		Audit:               audit.New(logger),
		Logger:              logger,
	})
	if err != nil {
		return fmt.Errorf("dispatcher: %w", err)
	}

	server, err := mcpserver.Builder{
		Commander: dispatcher,
		Tools:     registry,
		Templates: bundle,
		Logger:    logger,
	}.Build(dslCfg.Server)
	if err != nil {
		return fmt.Errorf("build mcp server: %w", err)
	}

	logger.Info("canvas gateway configured",
		"transport", dslCfg.Server.Transport,
		"model", dslCfg.Completion.Model,
		"tools", len(registry.Definitions()),
		"max_per_window", dslCfg.Admission.MaxRequestsPerWindow,
		"window_seconds", dslCfg.Admission.WindowDurationSeconds,
	)

	if dslCfg.Server.Transport == constants.TransportStdio {
		return server.Run(baseCtx, &mcp.StdioTransport{})
	}
	return runHTTP(baseCtx, cfg, dslCfg, dispatcher, server, bundle, logger)
}

func runHTTP(ctx context.Context, envCfg config.Config, dslCfg *dsl.Config, dispatcher *gateway.Dispatcher, server *mcp.Server, bundle *templates.Bundle, logger *slog.Logger) error {
	mcpHandler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, &mcp.StreamableHTTPOptions{Stateless: true})

	var replay *idempotency.Cache[api.Replay]
	if dslCfg.Server.ReplayCache.Enabled {
		replay = idempotency.NewCache[api.Replay](dslCfg.ReplayTTL(), dslCfg.Server.ReplayCache.MaxEntries)
	}

	apiHandler := api.New(dispatcher, api.Options{
		BasePath:     dslCfg.Server.HTTP.BasePath,
		AdminToken:   envCfg.AdminToken,
		MaxBodyBytes: dslCfg.Server.HTTP.MaxBodyBytes,
		Replay:       replay,
		Templates:    bundle,
		Logger:       logger,
	})

	// An explicit server.shutdown_timeout beats the env default.
	shutdownTimeout := envCfg.ShutdownTimeout
	if dslCfg.Server.ShutdownTimeout != "" {
		shutdownTimeout = 0
	}

	application, err := app.New(ctx, dslCfg.Server, map[string]http.Handler{
		dslCfg.Server.HTTP.BasePath + "/": apiHandler,
		dslCfg.Server.HTTP.MCPPath:        mcpHandler,
	}, logger, shutdownTimeout)
	if err != nil {
		return err
	}
	return application.Run(ctx)
}
