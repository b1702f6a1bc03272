package osm

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/NERVsystems/trikefare/pkg/geo"
)

// ReverseResult is the subset of a Nominatim /reverse jsonv2 response we use.
// Nominatim answers 200 with only Error set when nothing is found.
type ReverseResult struct {
	PlaceID     int64  `json:"place_id"`
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	Error       string `json:"error,omitempty"`
}

// SearchResult is one entry of a Nominatim /search jsonv2 response
type SearchResult struct {
	PlaceID     int64   `json:"place_id"`
	DisplayName string  `json:"display_name"`
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	Type        string  `json:"type"`
	Importance  float64 `json:"importance"`
}

// Point parses the result's string coordinates
func (r SearchResult) Point() (geo.Point, error) {
	lat, err := strconv.ParseFloat(r.Lat, 64)
	if err != nil {
		return geo.Point{}, fmt.Errorf("parse latitude %q: %w", r.Lat, err)
	}
	lon, err := strconv.ParseFloat(r.Lon, 64)
	if err != nil {
		return geo.Point{}, fmt.Errorf("parse longitude %q: %w", r.Lon, err)
	}
	return geo.Point{Latitude: lat, Longitude: lon}, nil
}

// SearchOptions narrows a forward search
type SearchOptions struct {
	Limit   int
	ViewBox *geo.BoundingBox
	// Bounded restricts results to ViewBox instead of only preferring it.
	Bounded      bool
	CountryCodes string
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Reverse resolves a point to the nearest address
func (c *Client) Reverse(ctx context.Context, p geo.Point) (*ReverseResult, error) {
	reqURL, err := url.Parse(c.nominatimURL + "/reverse")
	if err != nil {
		return nil, fmt.Errorf("parse nominatim URL: %w", err)
	}

	q := reqURL.Query()
	q.Set("format", "jsonv2")
	q.Set("lat", formatCoord(p.Latitude))
	q.Set("lon", formatCoord(p.Longitude))
	reqURL.RawQuery = q.Encode()

	var result ReverseResult
	if err := c.GetJSON(ctx, ServiceNominatim, reqURL.String(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Search resolves free text to candidate places, best match first
func (c *Client) Search(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error) {
	reqURL, err := url.Parse(c.nominatimURL + "/search")
	if err != nil {
		return nil, fmt.Errorf("parse nominatim URL: %w", err)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 1
	}

	q := reqURL.Query()
	q.Set("format", "jsonv2")
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(limit))
	if opts.ViewBox != nil {
		q.Set("viewbox", opts.ViewBox.ViewBox())
		if opts.Bounded {
			q.Set("bounded", "1")
		}
	}
	if opts.CountryCodes != "" {
		q.Set("countrycodes", opts.CountryCodes)
	}
	reqURL.RawQuery = q.Encode()

	var results []SearchResult
	if err := c.GetJSON(ctx, ServiceNominatim, reqURL.String(), &results); err != nil {
		return nil, err
	}
	return results, nil
}
