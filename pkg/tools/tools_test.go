package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/NERVsystems/trikefare/pkg/geo"
	"github.com/NERVsystems/trikefare/pkg/geocode"
	"github.com/NERVsystems/trikefare/pkg/locate"
	"github.com/NERVsystems/trikefare/pkg/osm"
	"github.com/NERVsystems/trikefare/pkg/testutil"
	"github.com/NERVsystems/trikefare/pkg/wizard"
)

var (
	cityHall  = geo.Point{Latitude: 6.9214, Longitude: 122.0790}
	fortPilar = geo.Point{Latitude: 6.9020, Longitude: 122.0800}
)

type fakeGeocoder struct {
	addresses map[geo.Point]string
	searchErr error
	places    map[string]geo.Point
}

func (f *fakeGeocoder) ReverseGeocode(ctx context.Context, p geo.Point) geocode.Result {
	if a, ok := f.addresses[p]; ok {
		return geocode.Result{Address: a, Status: geocode.StatusFound}
	}
	return geocode.Result{Address: geocode.NotFoundText, Status: geocode.StatusNotFound}
}

func (f *fakeGeocoder) Search(ctx context.Context, query string, region geo.BoundingBox) (geo.Point, error) {
	if f.searchErr != nil {
		return geo.Point{}, f.searchErr
	}
	p, ok := f.places[query]
	if !ok {
		return geo.Point{}, geocode.ErrNoResults
	}
	return p, nil
}

func newRegistry(t *testing.T, g *fakeGeocoder) *Registry {
	t.Helper()
	logger := testutil.DiscardLogger()
	store := wizard.NewStore(wizard.New(wizard.DefaultConfig()), wizard.Deps{
		Geocoder: g,
		Searcher: g,
		Locator:  locate.Fixed{Point: cityHall},
		Logger:   logger,
	}, 10, time.Hour)
	return NewRegistry(logger, store, g)
}

func defaultGeocoder() *fakeGeocoder {
	return &fakeGeocoder{
		addresses: map[geo.Point]string{
			cityHall:  "Valderosa Street, Zamboanga City",
			fortPilar: "Fort Pilar, Zamboanga City",
		},
		places: map[string]geo.Point{"Fort Pilar": fortPilar},
	}
}

func call(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), name string, args map[string]any) (*mcp.CallToolResult, string) {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("%s returned Go error: %v", name, err)
	}
	if result == nil || len(result.Content) == 0 {
		t.Fatalf("%s returned empty result", name)
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("%s content type %T", name, result.Content[0])
	}
	return result, tc.Text
}

func decodeSession(t *testing.T, text string) SessionOutput {
	t.Helper()
	var out SessionOutput
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		t.Fatalf("decode session output: %v\n%s", err, text)
	}
	return out
}

func TestToolDefinitions(t *testing.T) {
	r := newRegistry(t, defaultGeocoder())
	defs := r.GetToolDefinitions()

	want := []string{
		"start_fare_session", "get_fare_session", "set_passengers", "next_step",
		"restart_fare_session", "select_map_point", "search_location", "locate_device",
		"estimate_fare", "reverse_geocode", "geocode_address",
	}
	if len(defs) != len(want) {
		t.Fatalf("got %d tools, want %d", len(defs), len(want))
	}
	for i, def := range defs {
		if def.Name != want[i] {
			t.Errorf("tool %d = %q, want %q", i, def.Name, want[i])
		}
		if def.Tool.Name != def.Name {
			t.Errorf("tool %q registered with schema name %q", def.Name, def.Tool.Name)
		}
		if def.Handler == nil {
			t.Errorf("tool %q has no handler", def.Name)
		}
	}
}

func TestWizardThroughTools(t *testing.T) {
	r := newRegistry(t, defaultGeocoder())

	_, text := call(t, r.HandleStartFareSession, "start_fare_session", nil)
	out := decodeSession(t, text)
	id := out.SessionID
	if id == "" || out.View.StepNumber != 1 || out.View.Progress != 5 {
		t.Fatalf("start view = %+v", out)
	}
	sid := map[string]any{"session_id": id}

	_, text = call(t, r.HandleSetPassengers, "set_passengers", map[string]any{"session_id": id, "passengers": 3})
	if out = decodeSession(t, text); out.View.Passengers != 3 {
		t.Errorf("Passengers = %d", out.View.Passengers)
	}
	call(t, r.HandleNextStep, "next_step", sid)

	res, text := call(t, r.HandleNextStep, "next_step", sid)
	if !res.IsError || !strings.Contains(text, "Please select a location on the map before proceeding.") {
		t.Errorf("next_step without point = %v %q", res.IsError, text)
	}
	if !strings.Contains(text, "Guidance:") {
		t.Errorf("warning missing guidance: %q", text)
	}

	_, text = call(t, r.HandleSelectMapPoint, "select_map_point", map[string]any{
		"session_id": id, "latitude": cityHall.Latitude, "longitude": cityHall.Longitude,
	})
	if out = decodeSession(t, text); !out.View.NextEnabled {
		t.Error("next not enabled after selecting a point")
	}
	call(t, r.HandleNextStep, "next_step", sid)

	_, text = call(t, r.HandleSearchLocation, "search_location", map[string]any{"session_id": id, "query": "Fort Pilar"})
	if out = decodeSession(t, text); out.View.Locations[1].Point == nil || *out.View.Locations[1].Point != fortPilar {
		t.Errorf("destination = %v", out.View.Locations[1].Point)
	}

	before := out.View.Locations[1].Map.Refreshes
	_, text = call(t, r.HandleGetFareSession, "get_fare_session", map[string]any{"session_id": id, "refresh": true})
	out = decodeSession(t, text)
	if got := out.View.Locations[1].Map.Refreshes; got != before+1 {
		t.Errorf("Refreshes = %d, want %d", got, before+1)
	}
	if !out.View.NextEnabled || out.UpdatedAt.IsZero() {
		t.Errorf("refreshed view = next %v, updated_at %v", out.View.NextEnabled, out.UpdatedAt)
	}

	_, text = call(t, r.HandleGetFareSession, "get_fare_session", map[string]any{"session_id": id, "wait": true})
	if out = decodeSession(t, text); out.View.Loading {
		t.Error("still loading after wait")
	}

	_, text = call(t, r.HandleNextStep, "next_step", sid)
	out = decodeSession(t, text)
	if out.View.Result == nil {
		t.Fatalf("no result: %s", text)
	}
	if out.View.Result.CurrentAddress != "Valderosa Street, Zamboanga City" ||
		out.View.Result.DestinationAddress != "Fort Pilar, Zamboanga City" {
		t.Errorf("result addresses = %+v", out.View.Result)
	}
	if !strings.HasPrefix(out.View.Result.Fare, "₱") || out.View.Result.Passengers != 3 {
		t.Errorf("result = %+v", out.View.Result)
	}

	_, text = call(t, r.HandleRestartFareSession, "restart_fare_session", sid)
	if out = decodeSession(t, text); out.View.StepNumber != 1 || out.View.Result != nil {
		t.Errorf("restart view = %+v", out.View)
	}
}

func TestSessionToolErrors(t *testing.T) {
	r := newRegistry(t, defaultGeocoder())
	_, text := call(t, r.HandleStartFareSession, "start_fare_session", nil)
	id := decodeSession(t, text).SessionID

	tests := []struct {
		name    string
		handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
		args    map[string]any
		want    string
	}{
		{"missing session", r.HandleNextStep, map[string]any{}, "session_id must not be empty"},
		{"unknown session", r.HandleNextStep, map[string]any{"session_id": "nope"}, "Unknown or expired session"},
		{"fractional passengers", r.HandleSetPassengers, map[string]any{"session_id": id, "passengers": 1.5}, "whole number"},
		{"too many passengers", r.HandleSetPassengers, map[string]any{"session_id": id, "passengers": 4}, "between 1 and 3"},
		{"missing coordinates", r.HandleSelectMapPoint, map[string]any{"session_id": id}, "latitude and longitude are required"},
		{"point on passenger step", r.HandleSelectMapPoint, map[string]any{"session_id": id, "latitude": 6.92, "longitude": 122.08}, "location step"},
		{"empty query", r.HandleSearchLocation, map[string]any{"session_id": id, "query": " "}, "Query must not be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, text := call(t, tt.handler, tt.name, tt.args)
			if !res.IsError {
				t.Fatalf("expected tool error, got %q", text)
			}
			if !strings.Contains(text, tt.want) {
				t.Errorf("error = %q, want it to contain %q", text, tt.want)
			}
		})
	}
}

func TestSelectOutsideRegion(t *testing.T) {
	r := newRegistry(t, defaultGeocoder())
	_, text := call(t, r.HandleStartFareSession, "start_fare_session", nil)
	id := decodeSession(t, text).SessionID
	call(t, r.HandleNextStep, "next_step", map[string]any{"session_id": id})

	res, text := call(t, r.HandleSelectMapPoint, "select_map_point", map[string]any{
		"session_id": id, "latitude": 14.5995, "longitude": 120.9842,
	})
	if !res.IsError || !strings.Contains(text, "Please select a location within Zamboanga City.") {
		t.Errorf("select outside = %v %q", res.IsError, text)
	}

	_, text = call(t, r.HandleGetFareSession, "get_fare_session", map[string]any{"session_id": id})
	if out := decodeSession(t, text); out.View.NextEnabled || out.View.Locations[0].Point != nil {
		t.Errorf("rejected point changed the view: %+v", out.View)
	}
}

func TestLocateDeviceTool(t *testing.T) {
	r := newRegistry(t, defaultGeocoder())
	_, text := call(t, r.HandleStartFareSession, "start_fare_session", nil)
	id := decodeSession(t, text).SessionID
	call(t, r.HandleNextStep, "next_step", map[string]any{"session_id": id})

	_, text = call(t, r.HandleLocateDevice, "locate_device", map[string]any{"session_id": id})
	out := decodeSession(t, text)
	loc := out.View.Locations[0]
	if loc.Point == nil || *loc.Point != cityHall || loc.Map.Zoom != wizard.DefaultFocusZoom || !loc.LocateEnabled {
		t.Errorf("located = %+v", loc)
	}
}

func TestEstimateFareTool(t *testing.T) {
	r := newRegistry(t, defaultGeocoder())

	tests := []struct {
		name      string
		args      map[string]any
		wantError string
		wantFare  string
	}{
		{
			name: "same point",
			args: map[string]any{
				"from_latitude": 6.9214, "from_longitude": 122.0790,
				"to_latitude": 6.9214, "to_longitude": 122.0790,
			},
			wantFare: "₱35.00",
		},
		{
			name: "same point three passengers",
			args: map[string]any{
				"from_latitude": 6.9214, "from_longitude": 122.0790,
				"to_latitude": 6.9214, "to_longitude": 122.0790,
				"passengers": 3,
			},
			wantFare: "₱45.00",
		},
		{
			name:      "missing destination",
			args:      map[string]any{"from_latitude": 6.9214, "from_longitude": 122.0790},
			wantError: "to_latitude and to_longitude are required",
		},
		{
			name: "outside region",
			args: map[string]any{
				"from_latitude": 6.9214, "from_longitude": 122.0790,
				"to_latitude": 14.5995, "to_longitude": 120.9842,
			},
			wantError: "within Zamboanga City",
		},
		{
			name: "too many passengers",
			args: map[string]any{
				"from_latitude": 6.9214, "from_longitude": 122.0790,
				"to_latitude": 6.9214, "to_longitude": 122.0790,
				"passengers": 5,
			},
			wantError: "between 1 and 3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, text := call(t, r.HandleEstimateFare, "estimate_fare", tt.args)
			if tt.wantError != "" {
				if !res.IsError || !strings.Contains(text, tt.wantError) {
					t.Errorf("result = %v %q, want error containing %q", res.IsError, text, tt.wantError)
				}
				return
			}
			var out FareEstimateOutput
			if err := json.Unmarshal([]byte(text), &out); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if out.Fare != tt.wantFare || out.DistanceText != "Distance: 0.00 km" {
				t.Errorf("estimate = %+v", out)
			}
			if out.From.Address != "" {
				t.Error("addresses resolved without resolve_addresses")
			}
		})
	}

	t.Run("resolve addresses", func(t *testing.T) {
		_, text := call(t, r.HandleEstimateFare, "estimate_fare", map[string]any{
			"from_latitude": cityHall.Latitude, "from_longitude": cityHall.Longitude,
			"to_latitude": fortPilar.Latitude, "to_longitude": fortPilar.Longitude,
			"resolve_addresses": true,
		})
		var out FareEstimateOutput
		if err := json.Unmarshal([]byte(text), &out); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if out.From.Address != "Valderosa Street, Zamboanga City" || out.To.Address != "Fort Pilar, Zamboanga City" {
			t.Errorf("addresses = %q / %q", out.From.Address, out.To.Address)
		}
		if out.To.Status != "found" {
			t.Errorf("status = %q", out.To.Status)
		}
	})
}

func TestGeocodeTools(t *testing.T) {
	g := defaultGeocoder()
	r := newRegistry(t, g)

	_, text := call(t, r.HandleGeocodeAddress, "geocode_address", map[string]any{"address": "Fort Pilar"})
	var place Place
	if err := json.Unmarshal([]byte(text), &place); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if place.Location != fortPilar || place.Query != "Fort Pilar" {
		t.Errorf("place = %+v", place)
	}

	res, text := call(t, r.HandleGeocodeAddress, "geocode_address", map[string]any{"address": "Atlantis"})
	if !res.IsError || !strings.Contains(text, `No results found for "Atlantis".`) {
		t.Errorf("no results = %v %q", res.IsError, text)
	}

	g.searchErr = osm.NewAPIError(osm.ServiceNominatim, 429, "Too many requests", "")
	res, text = call(t, r.HandleGeocodeAddress, "geocode_address", map[string]any{"address": "Fort Pilar"})
	if !res.IsError || !strings.Contains(text, osm.GuidanceRateLimit) {
		t.Errorf("rate limited = %v %q", res.IsError, text)
	}

	res, _ = call(t, r.HandleGeocodeAddress, "geocode_address", map[string]any{"address": ""})
	if !res.IsError {
		t.Error("empty address accepted")
	}

	_, text = call(t, r.HandleReverseGeocode, "reverse_geocode", map[string]any{"latitude": 6.9214, "longitude": 122.0790})
	if err := json.Unmarshal([]byte(text), &place); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if place.Address != "Valderosa Street, Zamboanga City" || place.Status != "found" {
		t.Errorf("reverse = %+v", place)
	}

	res, text = call(t, r.HandleReverseGeocode, "reverse_geocode", map[string]any{"latitude": 6.0, "longitude": 120.0})
	if res.IsError {
		t.Errorf("not found should not be a tool error: %q", text)
	}
	if !strings.Contains(text, geocode.NotFoundText) {
		t.Errorf("reverse not found = %q", text)
	}

	res, _ = call(t, r.HandleReverseGeocode, "reverse_geocode", map[string]any{"latitude": 91.0, "longitude": 0.0})
	if !res.IsError {
		t.Error("invalid latitude accepted")
	}
}

func TestWarningResult(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want []string
	}{
		{"warning", wizard.ErrFinalStep, []string{"Error: already at the last step", "restart_fare_session"}},
		{"api error", osm.NewAPIError(osm.ServiceNominatim, 503, "unavailable", ""), []string{"Error: unavailable", osm.GuidanceUnavailable}},
		{"plain", errors.New("boom"), []string{"Error: boom", osm.GuidanceGeneral}},
		{
			"warning wrapping api error",
			&wizard.Warning{Kind: wizard.KindSearch, Message: "Search is unavailable right now, please try again.",
				Err: osm.NewAPIError(osm.ServiceNominatim, 503, "upstream body", "")},
			[]string{"Error: Search is unavailable right now", "Try a landmark"},
		},
		{
			"connection refused",
			&url.Error{Op: "Get", URL: "https://nominatim.example/search", Err: errors.New("connection refused")},
			[]string{"connection refused", osm.GuidanceNetworkError},
		},
		{
			"timeout",
			&url.Error{Op: "Get", URL: "https://nominatim.example/search", Err: context.DeadlineExceeded},
			[]string{"deadline exceeded", osm.GuidanceTimeout},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := WarningResult(tt.err)
			if !res.IsError {
				t.Error("IsError = false")
			}
			text := res.Content[0].(mcp.TextContent).Text
			for _, w := range tt.want {
				if !strings.Contains(text, w) {
					t.Errorf("%q missing %q", text, w)
				}
			}
		})
	}
}

func TestSearchLocationProviderFailure(t *testing.T) {
	g := defaultGeocoder()
	g.searchErr = fmt.Errorf("search %q: %w", "Fort Pilar",
		osm.NewAPIError(osm.ServiceNominatim, 503, "<html>upstream down</html>", ""))
	r := newRegistry(t, g)

	_, text := call(t, r.HandleStartFareSession, "start_fare_session", nil)
	id := decodeSession(t, text).SessionID
	call(t, r.HandleNextStep, "next_step", map[string]any{"session_id": id})

	res, text := call(t, r.HandleSearchLocation, "search_location", map[string]any{"session_id": id, "query": "Fort Pilar"})
	if !res.IsError {
		t.Fatalf("IsError = false: %s", text)
	}
	if !strings.Contains(text, "Search is unavailable right now, please try again.") {
		t.Errorf("text = %q, want the wizard's search message", text)
	}
	if strings.Contains(text, "upstream down") {
		t.Errorf("raw provider body leaked: %q", text)
	}
	if !strings.Contains(text, "Guidance: Try a landmark") {
		t.Errorf("text = %q, want search guidance", text)
	}
}
