// Package geocode turns points into short display addresses and free text
// into points, degrading to fixed texts when the provider cannot answer.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/NERVsystems/trikefare/pkg/geo"
	"github.com/NERVsystems/trikefare/pkg/osm"
)

// Display texts for the address field
const (
	LoadingText  = "Loading address..."
	NotFoundText = "Address not found."
	FailedText   = "Unable to fetch address."
)

// ErrNoResults is returned by Search when the provider has no match in the region.
var ErrNoResults = errors.New("no matching location found")

// Status classifies a reverse lookup outcome
type Status string

const (
	StatusFound    Status = "found"
	StatusNotFound Status = "not_found"
	StatusFailed   Status = "failed"
)

// Result is the outcome of a reverse lookup. Address is always displayable.
type Result struct {
	Address string `json:"address"`
	Status  Status `json:"status"`
	Err     error  `json:"-"`
}

// Provider is the external geocoding service
type Provider interface {
	Reverse(ctx context.Context, p geo.Point) (*osm.ReverseResult, error)
	Search(ctx context.Context, query string, opts osm.SearchOptions) ([]osm.SearchResult, error)
}

// Indicator is told when a lookup starts and when it finishes.
// Stop is called exactly once for every Start.
type Indicator interface {
	Start()
	Stop()
}

type nopIndicator struct{}

func (nopIndicator) Start() {}
func (nopIndicator) Stop()  {}

// Recorder receives lookup outcomes, e.g. for metrics
type Recorder interface {
	ObserveGeocode(status string, d time.Duration)
}

// Options configures a Client
type Options struct {
	// City is the name addresses are shortened at, e.g. "Zamboanga City".
	City      string
	Indicator Indicator
	Recorder  Recorder
	// CacheSize > 0 enables a reverse lookup cache.
	CacheSize int
	CacheTTL  time.Duration
	Logger    *slog.Logger

	// CountryCodes is passed to forward searches as-is.
	CountryCodes string
}

// Client resolves addresses through a Provider
type Client struct {
	provider  Provider
	city      string
	indicator Indicator
	recorder  Recorder
	cache     *osm.TTLCache[string, string]
	countries string
	logger    *slog.Logger
}

// NewClient creates a geocoding client
func NewClient(provider Provider, opts Options) *Client {
	c := &Client{
		provider:  provider,
		city:      opts.City,
		indicator: opts.Indicator,
		recorder:  opts.Recorder,
		countries: opts.CountryCodes,
		logger:    opts.Logger,
	}
	if c.indicator == nil {
		c.indicator = nopIndicator{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With("component", "geocode")
	if opts.CacheSize > 0 {
		c.cache = osm.NewTTLCache[string, string](opts.CacheSize, opts.CacheTTL)
	}
	return c
}

// City returns the city name addresses are shortened at
func (c *Client) City() string {
	return c.city
}

// Shorten truncates address right after the first occurrence of city.
// The address is returned unchanged when city is empty or absent.
func Shorten(address, city string) string {
	if city == "" {
		return address
	}
	idx := strings.Index(address, city)
	if idx == -1 {
		return address
	}
	return address[:idx+len(city)]
}

// ReverseGeocode resolves p to a display address. It never fails: provider
// errors and empty answers become NotFoundText or FailedText.
func (c *Client) ReverseGeocode(ctx context.Context, p geo.Point) Result {
	c.indicator.Start()
	defer c.indicator.Stop()

	start := time.Now()
	res := c.reverse(ctx, p)
	if c.recorder != nil {
		c.recorder.ObserveGeocode(string(res.Status), time.Since(start))
	}
	return res
}

func (c *Client) reverse(ctx context.Context, p geo.Point) Result {
	key := p.String()
	if c.cache != nil {
		if addr, ok := c.cache.Get(key); ok {
			return Result{Address: addr, Status: StatusFound}
		}
	}

	data, err := c.provider.Reverse(ctx, p)
	if err != nil {
		c.logger.Warn("reverse geocoding failed", "point", key, "error", err)
		return Result{Address: FailedText, Status: StatusFailed, Err: err}
	}
	if data == nil || data.DisplayName == "" {
		c.logger.Debug("no address for point", "point", key)
		return Result{Address: NotFoundText, Status: StatusNotFound}
	}

	addr := Shorten(data.DisplayName, c.city)
	if c.cache != nil {
		c.cache.Set(key, addr)
	}
	return Result{Address: addr, Status: StatusFound}
}

// Search resolves query to the best matching point inside region.
func (c *Client) Search(ctx context.Context, query string, region geo.BoundingBox) (geo.Point, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return geo.Point{}, fmt.Errorf("%w: empty query", ErrNoResults)
	}

	results, err := c.provider.Search(ctx, query, osm.SearchOptions{
		Limit:        1,
		ViewBox:      &region,
		Bounded:      true,
		CountryCodes: c.countries,
	})
	if err != nil {
		return geo.Point{}, fmt.Errorf("search %q: %w", query, err)
	}
	if len(results) == 0 {
		return geo.Point{}, fmt.Errorf("%w for %q", ErrNoResults, query)
	}

	p, err := results[0].Point()
	if err != nil {
		return geo.Point{}, fmt.Errorf("search %q: %w", query, err)
	}
	c.logger.Debug("search resolved", "query", query, "point", p.String(), "name", results[0].DisplayName)
	return p, nil
}
