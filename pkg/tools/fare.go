package tools

import (
	"context"
	"math"

	"github.com/mark3labs/mcp-go/mcp"
)

// EstimateFareTool returns a tool definition for one-shot fare estimates
func EstimateFareTool() mcp.Tool {
	return mcp.NewTool("estimate_fare",
		mcp.WithDescription("Estimate the tricycle fare between two points inside the service area "+
			"using straight-line distance"),
		mcp.WithNumber("from_latitude",
			mcp.Required(),
			mcp.Description("Latitude of the pick-up point"),
		),
		mcp.WithNumber("from_longitude",
			mcp.Required(),
			mcp.Description("Longitude of the pick-up point"),
		),
		mcp.WithNumber("to_latitude",
			mcp.Required(),
			mcp.Description("Latitude of the destination"),
		),
		mcp.WithNumber("to_longitude",
			mcp.Required(),
			mcp.Description("Longitude of the destination"),
		),
		mcp.WithNumber("passengers",
			mcp.Description("Number of passengers (1-3, default 1)"),
		),
		mcp.WithBoolean("resolve_addresses",
			mcp.Description("Also look up both addresses (default false)"),
		),
	)
}

// HandleEstimateFare computes a fare without a session
func (r *Registry) HandleEstimateFare(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger := r.logger.With("tool", "estimate_fare")

	from, ok := parsePoint(req, "from_latitude", "from_longitude")
	if !ok {
		return ErrorResponse("from_latitude and from_longitude are required"), nil
	}
	to, ok := parsePoint(req, "to_latitude", "to_longitude")
	if !ok {
		return ErrorResponse("to_latitude and to_longitude are required"), nil
	}
	n := mcp.ParseFloat64(req, "passengers", 1)
	if n != math.Trunc(n) {
		return ErrorResponse("passengers must be a whole number"), nil
	}

	res, err := r.store.Wizard().Estimate(from, to, int(n))
	if err != nil {
		return WarningResult(err), nil
	}

	out := FareEstimateOutput{
		From:         Place{Location: from},
		To:           Place{Location: to},
		DistanceKm:   res.DistanceKm,
		DistanceText: res.DistanceText(),
		Passengers:   res.Passengers,
		Fare:         res.Fare.String(),
		FareAmount:   res.Fare.Major(),
		Currency:     res.Fare.Currency,
	}

	if mcp.ParseBoolean(req, "resolve_addresses", false) && r.geocoder != nil {
		for _, pl := range []*Place{&out.From, &out.To} {
			a := r.geocoder.ReverseGeocode(ctx, pl.Location)
			pl.Address, pl.Status = a.Address, string(a.Status)
		}
	}

	logger.Info("fare estimated",
		"from", from.String(), "to", to.String(),
		"distance_km", res.DistanceKm, "passengers", res.Passengers, "fare", out.Fare)
	return jsonResult(logger, out), nil
}
