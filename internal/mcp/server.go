// Package mcp provides an MCP (Model Context Protocol) server for sweepgen.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/sweepgen/internal/config"
	"github.com/nvandessel/sweepgen/internal/evaluator"
	"github.com/nvandessel/sweepgen/internal/logging"
	"github.com/nvandessel/sweepgen/internal/ratelimit"
	"github.com/nvandessel/sweepgen/internal/reservoir"
	"github.com/nvandessel/sweepgen/internal/runner"
)

// Server wraps the MCP SDK server and exposes the sweep tools.
type Server struct {
	server   *sdk.Server
	settings *config.SweepgenConfig
	registry *evaluator.Registry
	runner   *runner.Runner
	limiters *ratelimit.ToolLimiters
	audit    *AuditLogger
	logger   *slog.Logger
	roots    []string
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "sweepgen")
	Version string // Server version

	// Settings is the tool configuration; Default() when nil.
	Settings *config.SweepgenConfig
	// Registry defaults to the built-in evaluators.
	Registry *evaluator.Registry
	// Producer defaults to Settings.Producer().
	Producer reservoir.Producer
	// Roots bound every path a tool reads or writes. Defaults to the
	// configured output directory.
	Roots []string
	// AuditDir receives audit.jsonl. Empty disables auditing.
	AuditDir string
	Logger   *slog.Logger
}

// NewServer creates an MCP server with the sweep tools registered.
func NewServer(cfg *Config) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("server config is required")
	}
	settings := cfg.Settings
	if settings == nil {
		settings = config.Default()
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	registry := cfg.Registry
	if registry == nil {
		registry = evaluator.Builtin()
	}
	producer := cfg.Producer
	if producer == nil {
		producer = settings.Producer()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	roots := cfg.Roots
	if len(roots) == 0 {
		dir, err := settings.OutputDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve output dir: %w", err)
		}
		roots = []string{dir}
	}

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, req *sdk.InitializedRequest) {
			logger.Debug("mcp client initialized")
		},
	})

	s := &Server{
		server:   mcpServer,
		settings: settings,
		registry: registry,
		runner:   runner.New(producer, registry, logger, runner.WithTraceLevel(settings.Logging.Level)),
		limiters: ratelimit.New(settings.MCP.RateLimits),
		logger:   logger,
		roots:    roots,
	}
	if cfg.AuditDir != "" {
		s.audit = NewAuditLogger(cfg.AuditDir)
	}

	s.registerTools()
	return s, nil
}

// Run starts the MCP server over stdio transport.
// This blocks until the client disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	notifySignals(sigChan)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	err := s.server.Run(ctx, &sdk.StdioTransport{})
	if cerr := s.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// Close releases the audit log.
func (s *Server) Close() error {
	return s.audit.Close()
}
