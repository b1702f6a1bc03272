package tools

import (
	"errors"
	"fmt"
	"net"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/NERVsystems/trikefare/pkg/osm"
	"github.com/NERVsystems/trikefare/pkg/wizard"
)

// Guidance per warning kind
var kindGuidance = map[wizard.Kind]string{
	wizard.KindOutsideRegion:     "Pick a point inside the map's max_bounds.",
	wizard.KindMissingPoint:      "Pick a point with select_map_point, search_location or locate_device first.",
	wizard.KindFinalStep:         "Call restart_fare_session to estimate another trip.",
	wizard.KindStepInactive:      "Check the session's current step with get_fare_session.",
	wizard.KindInvalidPassengers: "Use one of the view's passenger_options.",
	wizard.KindGeolocation:       "Pick the point on the map or search for it instead.",
	wizard.KindLocateBusy:        "Wait for the running location request to finish.",
	wizard.KindSearch:            "Try a landmark or barangay name, or pick the point on the map.",
}

func guided(message, guidance string) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("Error: %s\n\nGuidance: %s", message, guidance))
}

// ErrorWithGuidance returns a properly formatted error response with user guidance.
func ErrorWithGuidance(err *osm.APIError) *mcp.CallToolResult {
	return guided(err.Message, err.Guidance)
}

// WarningResult turns an error from a wizard action or the geocoding
// service into a tool error the user can act on. A wizard warning wins over
// the provider error it wraps.
func WarningResult(err error) *mcp.CallToolResult {
	var w *wizard.Warning
	if errors.As(err, &w) {
		guidance, ok := kindGuidance[w.Kind]
		if !ok {
			guidance = osm.GuidanceGeneral
		}
		return guided(w.Message, guidance)
	}

	var apiErr *osm.APIError
	if errors.As(err, &apiErr) {
		return ErrorWithGuidance(apiErr)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return guided(err.Error(), osm.GuidanceTimeout)
		}
		return guided(err.Error(), osm.GuidanceNetworkError)
	}

	return guided(err.Error(), osm.GuidanceGeneral)
}
