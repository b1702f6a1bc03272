// Package tools provides the fare estimator MCP tools implementations.
package tools

import (
	"context"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/NERVsystems/trikefare/pkg/wizard"
)

// DefaultWaitTimeout bounds get_fare_session's wait for pending addresses.
const DefaultWaitTimeout = 30 * time.Second

// Geocoder resolves addresses both ways
type Geocoder interface {
	wizard.AddressResolver
	wizard.Searcher
}

// Registry holds all MCP tool registrations for the fare estimator.
type Registry struct {
	logger      *slog.Logger
	store       *wizard.Store
	geocoder    Geocoder
	waitTimeout time.Duration
}

// NewRegistry creates a new MCP tool registry. geocoder may be nil, in
// which case the geocoding tools report the service as unavailable.
func NewRegistry(logger *slog.Logger, store *wizard.Store, geocoder Geocoder) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger:      logger,
		store:       store,
		geocoder:    geocoder,
		waitTimeout: DefaultWaitTimeout,
	}
}

// SetWaitTimeout changes how long get_fare_session waits for lookups
func (r *Registry) SetWaitTimeout(d time.Duration) {
	r.waitTimeout = d
}

// ToolDefinition represents a fare estimator MCP tool definition.
type ToolDefinition struct {
	Name        string
	Description string
	Tool        mcp.Tool
	Handler     func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// GetToolDefinitions returns all fare estimator MCP tool definitions.
func (r *Registry) GetToolDefinitions() []ToolDefinition {
	return []ToolDefinition{
		// Wizard session tools
		{
			Name:        "start_fare_session",
			Description: "Start a new fare estimation wizard session",
			Tool:        StartFareSessionTool(),
			Handler:     r.HandleStartFareSession,
		},
		{
			Name:        "get_fare_session",
			Description: "Show the current state of a fare estimation session",
			Tool:        GetFareSessionTool(),
			Handler:     r.HandleGetFareSession,
		},
		{
			Name:        "set_passengers",
			Description: "Choose the number of passengers on the first step",
			Tool:        SetPassengersTool(),
			Handler:     r.HandleSetPassengers,
		},
		{
			Name:        "next_step",
			Description: "Advance the wizard to the next step",
			Tool:        NextStepTool(),
			Handler:     r.HandleNextStep,
		},
		{
			Name:        "restart_fare_session",
			Description: "Go back to the first step and clear picked locations",
			Tool:        RestartFareSessionTool(),
			Handler:     r.HandleRestartFareSession,
		},

		// Location picking tools
		{
			Name:        "select_map_point",
			Description: "Pick a point on the active step's map",
			Tool:        SelectMapPointTool(),
			Handler:     r.HandleSelectMapPoint,
		},
		{
			Name:        "search_location",
			Description: "Search for a place and pick it on the active step's map",
			Tool:        SearchLocationTool(),
			Handler:     r.HandleSearchLocation,
		},
		{
			Name:        "locate_device",
			Description: "Pick the device's current position on the active step's map",
			Tool:        LocateDeviceTool(),
			Handler:     r.HandleLocateDevice,
		},

		// Stateless tools
		{
			Name:        "estimate_fare",
			Description: "Estimate the tricycle fare between two points",
			Tool:        EstimateFareTool(),
			Handler:     r.HandleEstimateFare,
		},
		{
			Name:        "reverse_geocode",
			Description: "Convert geographic coordinates to a short address",
			Tool:        ReverseGeocodeTool(),
			Handler:     r.HandleReverseGeocode,
		},
		{
			Name:        "geocode_address",
			Description: "Convert a place name inside the service area to coordinates",
			Tool:        GeocodeAddressTool(),
			Handler:     r.HandleGeocodeAddress,
		},
	}
}

// RegisterTools registers all tools with the MCP server.
func (r *Registry) RegisterTools(mcpServer *server.MCPServer) {
	for _, def := range r.GetToolDefinitions() {
		r.logger.Info("registering tool", "name", def.Name)
		mcpServer.AddTool(def.Tool, def.Handler)
	}
}
