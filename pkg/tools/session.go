package tools

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/NERVsystems/trikefare/pkg/geo"
	"github.com/NERVsystems/trikefare/pkg/wizard"
)

func withSessionID(opts ...mcp.ToolOption) []mcp.ToolOption {
	return append([]mcp.ToolOption{
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("The session ID returned by start_fare_session"),
		),
	}, opts...)
}

// StartFareSessionTool returns a tool definition for starting a wizard session
func StartFareSessionTool() mcp.Tool {
	return mcp.NewTool("start_fare_session",
		mcp.WithDescription("Start a fare estimation wizard: passengers, current location, destination, fare. "+
			"Returns the session ID and the first step's view."),
	)
}

// GetFareSessionTool returns a tool definition for reading a session
func GetFareSessionTool() mcp.Tool {
	return mcp.NewTool("get_fare_session", withSessionID(
		mcp.WithDescription("Show the current view of a fare estimation session"),
		mcp.WithBoolean("wait",
			mcp.Description("Wait for pending address lookups before answering"),
		),
		mcp.WithBoolean("refresh",
			mcp.Description("Re-show the active step, refreshing its map layout"),
		),
	)...)
}

// SetPassengersTool returns a tool definition for choosing the party size
func SetPassengersTool() mcp.Tool {
	return mcp.NewTool("set_passengers", withSessionID(
		mcp.WithDescription("Choose the number of passengers. Only allowed on the first step."),
		mcp.WithNumber("passengers",
			mcp.Required(),
			mcp.Description("Number of passengers (1-3)"),
		),
	)...)
}

// NextStepTool returns a tool definition for advancing the wizard
func NextStepTool() mcp.Tool {
	return mcp.NewTool("next_step", withSessionID(
		mcp.WithDescription("Advance to the next step. Location steps need a picked point; "+
			"leaving the destination step computes the fare."),
	)...)
}

// RestartFareSessionTool returns a tool definition for restarting the wizard
func RestartFareSessionTool() mcp.Tool {
	return mcp.NewTool("restart_fare_session", withSessionID(
		mcp.WithDescription("Return to the first step, clearing both locations and the fare"),
	)...)
}

// SelectMapPointTool returns a tool definition for clicking the map
func SelectMapPointTool() mcp.Tool {
	return mcp.NewTool("select_map_point", withSessionID(
		mcp.WithDescription("Pick a point on the active location step's map"),
		mcp.WithNumber("latitude",
			mcp.Required(),
			mcp.Description("The latitude coordinate"),
		),
		mcp.WithNumber("longitude",
			mcp.Required(),
			mcp.Description("The longitude coordinate"),
		),
	)...)
}

// SearchLocationTool returns a tool definition for text search
func SearchLocationTool() mcp.Tool {
	return mcp.NewTool("search_location", withSessionID(
		mcp.WithDescription("Search for a place inside the service area and pick it on the active step"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Place name, landmark or street, e.g. \"Fort Pilar\""),
		),
	)...)
}

// LocateDeviceTool returns a tool definition for device geolocation
func LocateDeviceTool() mcp.Tool {
	return mcp.NewTool("locate_device", withSessionID(
		mcp.WithDescription("Pick the device's current position on the active location step"),
	)...)
}

// session resolves the session_id argument. A non-nil result is the error to return.
func (r *Registry) session(req mcp.CallToolRequest) (*wizard.Session, *mcp.CallToolResult) {
	id := strings.TrimSpace(mcp.ParseString(req, "session_id", ""))
	if id == "" {
		return nil, ErrorResponse("session_id must not be empty")
	}
	sess, ok := r.store.Get(id)
	if !ok {
		return nil, guided(fmt.Sprintf("Unknown or expired session %q.", id),
			"Call start_fare_session to begin a new estimate.")
	}
	return sess, nil
}

func (r *Registry) viewResult(logger *slog.Logger, sess *wizard.Session, v wizard.View, err error) *mcp.CallToolResult {
	if err != nil {
		logger.Debug("action rejected", "session", sess.ID(), "error", err)
		return WarningResult(err)
	}
	return jsonResult(logger, SessionOutput{SessionID: sess.ID(), UpdatedAt: sess.UpdatedAt(), View: v})
}

// HandleStartFareSession creates a session
func (r *Registry) HandleStartFareSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger := r.logger.With("tool", "start_fare_session")

	sess := r.store.Create()
	logger.Info("fare session started", "session", sess.ID(), "sessions", r.store.Len())
	return r.viewResult(logger, sess, sess.View(), nil), nil
}

// HandleGetFareSession renders a session, optionally after pending lookups finish
func (r *Registry) HandleGetFareSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger := r.logger.With("tool", "get_fare_session")

	sess, errResult := r.session(req)
	if errResult != nil {
		return errResult, nil
	}

	if mcp.ParseBoolean(req, "wait", false) {
		waitCtx, cancel := context.WithTimeout(ctx, r.waitTimeout)
		defer cancel()
		if err := sess.Wait(waitCtx); err != nil {
			// Still answer; the view shows the lookups as loading.
			logger.Warn("address lookups still pending", "session", sess.ID(), "error", err)
		}
	}
	if mcp.ParseBoolean(req, "refresh", false) {
		return r.viewResult(logger, sess, sess.Refresh(), nil), nil
	}
	return r.viewResult(logger, sess, sess.View(), nil), nil
}

// HandleSetPassengers sets the party size
func (r *Registry) HandleSetPassengers(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger := r.logger.With("tool", "set_passengers")

	sess, errResult := r.session(req)
	if errResult != nil {
		return errResult, nil
	}

	n := mcp.ParseFloat64(req, "passengers", math.NaN())
	if math.IsNaN(n) || n != math.Trunc(n) {
		return ErrorResponse("passengers must be a whole number"), nil
	}

	v, err := sess.SetPassengers(int(n))
	return r.viewResult(logger, sess, v, err), nil
}

// HandleNextStep advances the wizard
func (r *Registry) HandleNextStep(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger := r.logger.With("tool", "next_step")

	sess, errResult := r.session(req)
	if errResult != nil {
		return errResult, nil
	}

	v, err := sess.Next()
	return r.viewResult(logger, sess, v, err), nil
}

// HandleRestartFareSession restarts the wizard
func (r *Registry) HandleRestartFareSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger := r.logger.With("tool", "restart_fare_session")

	sess, errResult := r.session(req)
	if errResult != nil {
		return errResult, nil
	}

	return r.viewResult(logger, sess, sess.Restart(), nil), nil
}

// HandleSelectMapPoint picks a clicked point
func (r *Registry) HandleSelectMapPoint(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger := r.logger.With("tool", "select_map_point")

	sess, errResult := r.session(req)
	if errResult != nil {
		return errResult, nil
	}

	p, ok := parsePoint(req, "latitude", "longitude")
	if !ok {
		return ErrorResponse("latitude and longitude are required"), nil
	}

	v, err := sess.SelectPoint(ctx, p)
	return r.viewResult(logger, sess, v, err), nil
}

// HandleSearchLocation picks a searched place
func (r *Registry) HandleSearchLocation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger := r.logger.With("tool", "search_location")

	sess, errResult := r.session(req)
	if errResult != nil {
		return errResult, nil
	}

	query := strings.TrimSpace(mcp.ParseString(req, "query", ""))
	if query == "" {
		return ErrorResponse("Query must not be empty"), nil
	}

	v, err := sess.Search(ctx, query)
	return r.viewResult(logger, sess, v, err), nil
}

// HandleLocateDevice picks the device position
func (r *Registry) HandleLocateDevice(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger := r.logger.With("tool", "locate_device")

	sess, errResult := r.session(req)
	if errResult != nil {
		return errResult, nil
	}

	v, err := sess.Locate(ctx)
	return r.viewResult(logger, sess, v, err), nil
}

// parsePoint reads a coordinate pair. Missing values are reported as !ok;
// range checks are left to the caller.
func parsePoint(req mcp.CallToolRequest, latKey, lonKey string) (geo.Point, bool) {
	lat := mcp.ParseFloat64(req, latKey, math.NaN())
	lon := mcp.ParseFloat64(req, lonKey, math.NaN())
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return geo.Point{}, false
	}
	return geo.Point{Latitude: lat, Longitude: lon}, true
}
