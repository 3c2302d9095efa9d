package amenity

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/serjvanilla/go-overpass"
	"golang.org/x/sync/semaphore"
)

// Pool runs Overpass queries with at most parallel requests in flight.
// A caller waits for a free slot only as long as its context allows, and the
// HTTP request it sends is bound to the same context.
type Pool struct {
	endpoint   string
	httpClient *http.Client
	slots      *semaphore.Weighted
}

// NewPool creates a pool for the endpoint. parallel below 1 is treated as 1.
func NewPool(endpoint string, parallel int, httpClient *http.Client) *Pool {
	return &Pool{
		endpoint:   endpoint,
		httpClient: httpClient,
		slots:      semaphore.NewWeighted(int64(max(parallel, 1))),
	}
}

// Query sends the query once a slot is free.
func (p *Pool) Query(ctx context.Context, query string) (overpass.Result, error) {
	if err := p.slots.Acquire(ctx, 1); err != nil {
		return overpass.Result{}, fmt.Errorf("no free overpass slot: %w", err)
	}
	defer p.slots.Release(1)

	if err := ctx.Err(); err != nil {
		return overpass.Result{}, err
	}

	// The slot is already held, so the per-call client needs a single one.
	client := overpass.NewWithSettings(p.endpoint, 1, contextPoster{ctx: ctx, client: p.httpClient})

	return client.Query(query)
}

// contextPoster satisfies overpass.HTTPClient with requests bound to ctx.
type contextPoster struct {
	ctx    context.Context
	client *http.Client
}

func (cp contextPoster) PostForm(endpoint string, data url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(cp.ctx, http.MethodPost, endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return cp.client.Do(req)
}
