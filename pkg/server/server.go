// Package server provides the MCP server implementation for the tricycle fare estimator.
package server

import (
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/NERVsystems/trikefare/pkg/config"
	"github.com/NERVsystems/trikefare/pkg/geocode"
	"github.com/NERVsystems/trikefare/pkg/locate"
	"github.com/NERVsystems/trikefare/pkg/metrics"
	"github.com/NERVsystems/trikefare/pkg/osm"
	"github.com/NERVsystems/trikefare/pkg/tools"
	"github.com/NERVsystems/trikefare/pkg/tools/prompts"
	"github.com/NERVsystems/trikefare/pkg/version"
	"github.com/NERVsystems/trikefare/pkg/wizard"
)

// ServerName is the name of the MCP server
const ServerName = "trikefare"

// Server encapsulates the MCP server with the fare estimator tools.
type Server struct {
	srv      *server.MCPServer
	store    *wizard.Store
	registry *tools.Registry
	metrics  *metrics.Metrics
}

// NewServer builds the service graph from cfg and registers all tools.
// m may be nil to disable metrics.
func NewServer(cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("initializing fare estimator MCP server",
		"name", ServerName,
		"version", version.BuildVersion,
		"city", cfg.City)

	limiter := osm.NewRateLimiter()
	limiter.SetLimit(osm.ServiceNominatim, cfg.Nominatim.RateLimit, cfg.Nominatim.Burst)

	client := osm.NewClient(osm.Options{
		NominatimURL: cfg.Nominatim.URL,
		UserAgent:    cfg.Nominatim.UserAgent,
		Timeout:      cfg.Nominatim.Timeout,
		Limiter:      limiter,
		Logger:       logger,
	})

	geocoder := geocode.NewClient(client, geocode.Options{
		City:      cfg.City,
		Indicator: m,
		Recorder:  m,
		CacheSize: cfg.Nominatim.CacheSize,
		CacheTTL:  cfg.Nominatim.CacheTTL,
		Logger:    logger,

		CountryCodes: cfg.Nominatim.CountryCodes,
	})

	locator, err := locate.New(cfg.Locate.Mode, cfg.LocatePoint(), client, cfg.Locate.IPURL)
	if err != nil {
		return nil, fmt.Errorf("locator: %w", err)
	}

	wizCfg := cfg.Wizard()
	if err := wizCfg.Validate(); err != nil {
		return nil, fmt.Errorf("wizard config: %w", err)
	}
	wiz := wizard.New(wizCfg)

	store := wizard.NewStore(wiz, wizard.Deps{
		Geocoder: geocoder,
		Searcher: geocoder,
		Locator:  locator,
		Recorder: m,
		Logger:   logger,
	}, cfg.Sessions.Max, cfg.Sessions.IdleTTL)

	srv := server.NewMCPServer(
		ServerName,
		version.BuildVersion,
		server.WithToolCapabilities(false),
		server.WithPromptCapabilities(false),
		server.WithRecovery(),
	)

	registry := tools.NewRegistry(logger, store, geocoder)
	registry.RegisterTools(srv)
	prompts.RegisterFarePrompts(srv, wizCfg)

	return &Server{srv: srv, store: store, registry: registry, metrics: m}, nil
}

// MCPServer returns the underlying MCP server
func (s *Server) MCPServer() *server.MCPServer {
	return s.srv
}

// Store returns the session store
func (s *Server) Store() *wizard.Store {
	return s.store
}

// Registry returns the tool registry
func (s *Server) Registry() *tools.Registry {
	return s.registry
}

// Run starts the MCP server using stdin/stdout for communication.
func (s *Server) Run() error {
	return server.ServeStdio(s.srv)
}
