// Package locate provides device geolocation sources.
package locate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/NERVsystems/trikefare/pkg/geo"
	"github.com/NERVsystems/trikefare/pkg/osm"
)

// ErrUnavailable is returned when no geolocation source is configured
var ErrUnavailable = errors.New("geolocation is not supported on this device")

// Locator yields the device's current position
type Locator interface {
	Locate(ctx context.Context) (geo.Point, error)
}

// Func adapts a function to Locator
type Func func(ctx context.Context) (geo.Point, error)

// Locate calls f
func (f Func) Locate(ctx context.Context) (geo.Point, error) {
	return f(ctx)
}

// Fixed always reports the same position
type Fixed struct {
	Point geo.Point
}

// Locate returns the fixed point
func (f Fixed) Locate(ctx context.Context) (geo.Point, error) {
	if err := ctx.Err(); err != nil {
		return geo.Point{}, err
	}
	return f.Point, nil
}

// Unavailable never yields a position
type Unavailable struct{}

// Locate returns ErrUnavailable
func (Unavailable) Locate(ctx context.Context) (geo.Point, error) {
	return geo.Point{}, ErrUnavailable
}

// DefaultIPAPIURL is the ip-api.com JSON endpoint
const DefaultIPAPIURL = "http://ip-api.com/json/"

type ipAPIResponse struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	City    string  `json:"city"`
}

// IPLocator approximates the device position from its public IP address
type IPLocator struct {
	client *osm.Client
	url    string
}

// NewIPLocator creates a locator querying url (DefaultIPAPIURL when empty)
func NewIPLocator(client *osm.Client, url string) *IPLocator {
	if url == "" {
		url = DefaultIPAPIURL
	}
	return &IPLocator{client: client, url: url}
}

// Locate queries the IP geolocation service
func (l *IPLocator) Locate(ctx context.Context) (geo.Point, error) {
	var resp ipAPIResponse
	if err := l.client.GetJSON(ctx, osm.ServiceIPAPI, l.url, &resp); err != nil {
		return geo.Point{}, fmt.Errorf("ip geolocation: %w", err)
	}
	if !strings.EqualFold(resp.Status, "success") {
		msg := resp.Message
		if msg == "" {
			msg = "lookup failed"
		}
		return geo.Point{}, fmt.Errorf("ip geolocation: %s", msg)
	}

	p := geo.Point{Latitude: resp.Lat, Longitude: resp.Lon}
	if err := geo.ValidateCoords(p.Latitude, p.Longitude); err != nil {
		return geo.Point{}, fmt.Errorf("ip geolocation: %w", err)
	}
	return p, nil
}

// New builds a Locator by mode name: "fixed", "ip" or "none".
func New(mode string, fixed geo.Point, client *osm.Client, ipURL string) (Locator, error) {
	switch strings.ToLower(mode) {
	case "fixed":
		return Fixed{Point: fixed}, nil
	case "ip":
		if client == nil {
			return nil, errors.New("ip locator requires an HTTP client")
		}
		return NewIPLocator(client, ipURL), nil
	case "", "none":
		return Unavailable{}, nil
	default:
		return nil, fmt.Errorf("unknown locate mode %q", mode)
	}
}
