package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/NERVsystems/trikefare/pkg/geo"
	"github.com/NERVsystems/trikefare/pkg/geocode"
)

// GeocodeAddressTool returns a tool definition for geocoding addresses
func GeocodeAddressTool() mcp.Tool {
	return mcp.NewTool("geocode_address",
		mcp.WithDescription("Convert a place name or address inside the service area to geographic coordinates"),
		mcp.WithString("address",
			mcp.Required(),
			mcp.Description("The address or place name to geocode"),
		),
	)
}

// HandleGeocodeAddress resolves a place name inside the service region
func (r *Registry) HandleGeocodeAddress(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger := r.logger.With("tool", "geocode_address")

	address := strings.TrimSpace(mcp.ParseString(req, "address", ""))
	if address == "" {
		return ErrorResponse("Address must not be empty"), nil
	}
	if r.geocoder == nil {
		return ErrorResponse("Geocoding is not available"), nil
	}

	cfg := r.store.Wizard().Config()
	p, err := r.geocoder.Search(ctx, address, cfg.Region)
	if err != nil {
		if errors.Is(err, geocode.ErrNoResults) {
			return guided(fmt.Sprintf("No results found for %q.", address),
				fmt.Sprintf("Only places within %s are searched. Try a landmark or barangay name.", cfg.City)), nil
		}
		logger.Error("geocoding failed", "address", address, "error", err)
		return WarningResult(err), nil
	}

	return jsonResult(logger, Place{Query: address, Location: p}), nil
}

// ReverseGeocodeTool returns a tool definition for reverse geocoding
func ReverseGeocodeTool() mcp.Tool {
	return mcp.NewTool("reverse_geocode",
		mcp.WithDescription("Convert geographic coordinates to a short human-readable address"),
		mcp.WithNumber("latitude",
			mcp.Required(),
			mcp.Description("The latitude coordinate"),
		),
		mcp.WithNumber("longitude",
			mcp.Required(),
			mcp.Description("The longitude coordinate"),
		),
	)
}

// HandleReverseGeocode resolves coordinates to a display address. Lookup
// failures are not tool errors: the address degrades to a fixed text.
func (r *Registry) HandleReverseGeocode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger := r.logger.With("tool", "reverse_geocode")

	p, ok := parsePoint(req, "latitude", "longitude")
	if !ok {
		return ErrorResponse("latitude and longitude are required"), nil
	}
	if err := geo.ValidateCoords(p.Latitude, p.Longitude); err != nil {
		return ErrorResponse(err.Error()), nil
	}
	if r.geocoder == nil {
		return ErrorResponse("Geocoding is not available"), nil
	}

	res := r.geocoder.ReverseGeocode(ctx, p)
	return jsonResult(logger, Place{Location: p, Address: res.Address, Status: string(res.Status)}), nil
}
