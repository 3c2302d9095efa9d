// Package amenity looks up nearby places of a given category in OpenStreetMap through the Overpass API.
package amenity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"sort"
	"time"

	"github.com/UnknownOlympus/paddos/internal/geo"
	"github.com/UnknownOlympus/paddos/internal/metrics"
	"github.com/UnknownOlympus/paddos/internal/models"
	"github.com/serjvanilla/go-overpass"
)

// DefaultEndpoint is the public Overpass API interpreter.
const DefaultEndpoint = "https://overpass-api.de/api/interpreter"

// DefaultTimeout bounds a single Overpass call.
const DefaultTimeout = 15 * time.Second

// ErrQueryTimeout is reported when the Overpass call does not finish before the deadline.
var ErrQueryTimeout = errors.New("overpass query timed out")

// Querier executes a raw Overpass QL query. *Pool satisfies it.
type Querier interface {
	Query(ctx context.Context, query string) (overpass.Result, error)
}

// Fetcher returns places of a category around a point together with a success flag.
type Fetcher interface {
	Fetch(ctx context.Context, center models.Coordinates, cat models.PlaceCategory, radius int) ([]models.PlaceRecord, bool)
}

// Client fetches amenities from Overpass. It never returns errors to the caller:
// every failure is logged, counted and reported as ok=false.
type Client struct {
	querier Querier          // querier executes Overpass QL queries
	timeout time.Duration    // timeout bounds each call
	log     *slog.Logger     // log is the logger for logging operations
	metrics *metrics.Metrics // metrics records request outcomes and latency
}

// NewClient creates an Overpass-backed client for the given endpoint.
// parallel caps the number of concurrent requests the underlying client may issue.
func NewClient(endpoint string, parallel int, timeout time.Duration, log *slog.Logger, m *metrics.Metrics) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return NewClientWithQuerier(NewPool(endpoint, parallel, &http.Client{}), timeout, log, m)
}

// NewClientWithQuerier creates a client on top of a custom querier.
// Useful for testing without network access.
func NewClientWithQuerier(querier Querier, timeout time.Duration, log *slog.Logger, m *metrics.Metrics) *Client {
	return &Client{querier: querier, timeout: timeout, log: log, metrics: m}
}

// Fetch returns places of category cat within radius meters of center, closest first.
// The boolean is false when the source could not be queried or its answer could not be parsed.
func (c *Client) Fetch(
	ctx context.Context,
	center models.Coordinates,
	cat models.PlaceCategory,
	radius int,
) ([]models.PlaceRecord, bool) {
	startTime := time.Now()
	records, err := c.fetch(ctx, center, cat, radius)
	c.metrics.AmenityRequestSeconds.WithLabelValues(string(cat)).Observe(time.Since(startTime).Seconds())

	if err != nil {
		c.log.WarnContext(ctx, "Amenity source unavailable", "category", cat, "radius", radius, "error", err)
		c.metrics.AmenityRequests.WithLabelValues(string(cat), "failure").Inc()
		return nil, false
	}

	c.metrics.AmenityRequests.WithLabelValues(string(cat), "success").Inc()
	c.log.DebugContext(ctx, "Amenities fetched", "category", cat, "count", len(records))

	return records, true
}

func (c *Client) fetch(
	ctx context.Context,
	center models.Coordinates,
	cat models.PlaceCategory,
	radius int,
) ([]models.PlaceRecord, error) {
	query, err := BuildQuery(center, cat, radius, max(1, int(c.timeout.Seconds())))
	if err != nil {
		return nil, err
	}

	result, err := c.execute(ctx, query)
	if err != nil {
		return nil, err
	}

	return toRecords(result, center, cat), nil
}

// execute runs the query bounded by the client timeout. Waiting for a free
// request slot counts against the same deadline.
func (c *Client) execute(ctx context.Context, query string) (result overpass.Result, err error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	defer func() {
		if rec := recover(); rec != nil {
			result, err = overpass.Result{}, fmt.Errorf("overpass query panicked: %v", rec)
		}
	}()

	result, err = c.querier.Query(ctx, query)
	if err == nil {
		return result, nil
	}

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return overpass.Result{}, fmt.Errorf("%w: %w", ErrQueryTimeout, err)
	case ctx.Err() != nil:
		return overpass.Result{}, fmt.Errorf("overpass query cancelled: %w", err)
	default:
		return overpass.Result{}, fmt.Errorf("overpass query failed: %w", err)
	}
}

// toRecords converts nodes and ways into place records sorted by distance from center.
// Elements without resolvable coordinates are skipped.
func toRecords(result overpass.Result, center models.Coordinates, cat models.PlaceCategory) []models.PlaceRecord {
	records := make([]models.PlaceRecord, 0, len(result.Nodes)+len(result.Ways))

	for _, node := range result.Nodes {
		if node == nil {
			continue
		}
		if record, ok := newRecord(center, cat, node.Lat, node.Lon, node.Tags); ok {
			records = append(records, record)
		}
	}

	for _, way := range result.Ways {
		if way == nil {
			continue
		}
		lat, lon := wayCenter(way)
		if record, ok := newRecord(center, cat, lat, lon, way.Tags); ok {
			records = append(records, record)
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].DistanceKm != records[j].DistanceKm {
			return records[i].DistanceKm < records[j].DistanceKm
		}
		return records[i].Name < records[j].Name
	})

	return records
}

func newRecord(
	center models.Coordinates,
	cat models.PlaceCategory,
	lat, lon float64,
	tags map[string]string,
) (models.PlaceRecord, bool) {
	// Zero marks a coordinate Overpass did not resolve (e.g. a way member referenced but not returned).
	if lat == 0 || lon == 0 {
		return models.PlaceRecord{}, false
	}

	dist := geo.Distance(center, models.Coordinates{Latitude: lat, Longitude: lon})
	if math.IsInf(dist, 1) {
		return models.PlaceRecord{}, false
	}

	name := tags["name"]
	if name == "" {
		name = fallbackName(cat)
	}

	return models.PlaceRecord{
		Name:       name,
		Category:   cat,
		DistanceKm: geo.Round(dist, 2),
		Latitude:   lat,
		Longitude:  lon,
	}, true
}

// wayCenter approximates the centroid of a way from its bounds, or from its resolved member nodes.
func wayCenter(way *overpass.Way) (float64, float64) {
	if way.Bounds != nil {
		return (way.Bounds.Min.Lat + way.Bounds.Max.Lat) / 2, (way.Bounds.Min.Lon + way.Bounds.Max.Lon) / 2
	}

	var lat, lon float64
	count := 0
	for _, node := range way.Nodes {
		if node == nil || node.Lat == 0 || node.Lon == 0 {
			continue
		}
		lat += node.Lat
		lon += node.Lon
		count++
	}
	if count == 0 {
		return 0, 0
	}

	return lat / float64(count), lon / float64(count)
}
