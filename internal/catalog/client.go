package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

// Cache is the collaborator consulted before and populated after every
// upstream call. Get reports a miss with ok=false; expiry mechanics stay on
// the implementation side.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// SearchRecorder receives fire-and-forget search analytics. Implementations
// must not block the caller on failure.
type SearchRecorder interface {
	RecordProductSearch(ctx context.Context, query string, results int)
}

// SearchAggregate is one row of the top-searches report: a query, how often
// it was searched, and the average result count it produced.
type SearchAggregate struct {
	Query      string  `json:"query"`
	Searches   int64   `json:"searches"`
	AvgResults float64 `json:"avg_results"`
}

type nopRecorder struct{}

func (nopRecorder) RecordProductSearch(context.Context, string, int) {}

// NopRecorder discards search analytics.
var NopRecorder SearchRecorder = nopRecorder{}

const (
	searchTTL     = 30 * time.Minute
	productTTL    = time.Hour
	categoriesTTL = 24 * time.Hour

	requestTimeout = 30 * time.Second
	connectTimeout = 10 * time.Second

	rateLimitBackoff     = 2 * time.Second
	defaultMaxConcurrent = 5

	userAgent    = "SmartShelf-Catalog/1.0"
	maxBodyBytes = 4 << 20
)

// errRateLimited marks an upstream 429. Transient and deliberately excluded
// from the error counter.
var errRateLimited = errors.New("upstream rate limited")

// upstreamStatusError is any non-200/429 response status.
type upstreamStatusError struct {
	code int
}

func (e *upstreamStatusError) Error() string {
	return "upstream status " + strconv.Itoa(e.code)
}

// Config carries the construction-time settings for a Client.
type Config struct {
	// APIKey authenticates against the upstream catalog API. When empty,
	// every networked operation short-circuits to an empty result.
	APIKey string
	// APIHost is the upstream host, also sent as an identification header.
	APIHost string
	// MaxConcurrent bounds simultaneous upstream calls across the process.
	MaxConcurrent int

	// BaseURL overrides the default https://<APIHost>. Tests point it at a
	// local server.
	BaseURL string
	// Backoff overrides the pause applied after an upstream 429.
	Backoff time.Duration
	// Transport overrides the base RoundTripper of the lazily built session.
	Transport http.RoundTripper
	// TracerProvider instruments outbound calls when set.
	TracerProvider trace.TracerProvider
}

// Client fetches product search results, detail records, and review batches
// from the rate-limited upstream catalog API. Every operation runs the same
// skeleton: cache lookup, gate acquisition, transport call, normalization,
// cache write, statistics update. No failure ever propagates to the caller;
// each degrades to an empty or nil result and an error counter increment.
type Client struct {
	cfg      Config
	cache    Cache
	recorder SearchRecorder
	gate     *semaphore.Weighted
	flight   singleflight.Group
	stats    Stats

	sessionOnce sync.Once
	session     *http.Client
}

// NewClient constructs a Client around its collaborators. A nil recorder
// discards search analytics.
func NewClient(cfg Config, cache Cache, recorder SearchRecorder) *Client {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = defaultMaxConcurrent
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://" + cfg.APIHost
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = rateLimitBackoff
	}
	if recorder == nil {
		recorder = NopRecorder
	}
	return &Client{
		cfg:      cfg,
		cache:    cache,
		recorder: recorder,
		gate:     semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
	}
}

// SearchProducts returns normalized products for a search query, possibly
// empty. Results are cached for 30 minutes; concurrent misses on the same
// key collapse into a single upstream call.
func (c *Client) SearchProducts(ctx context.Context, query, country string, page int, category string, maxResults int) []Product {
	lg := zctx.From(ctx)
	if c.cfg.APIKey == "" {
		lg.Warn("Catalog API key not configured, skipping search")
		return nil
	}

	key := searchCacheKey(query, country, page, category, maxResults)
	var cached []Product
	if c.cacheGet(ctx, key, &cached) {
		c.recorder.RecordProductSearch(ctx, query, len(cached))
		return cached
	}

	// Failures are observed inside the flight so a shared call counts one
	// error, not one per waiting caller.
	v, err, _ := c.flight.Do(key, func() (any, error) {
		params := url.Values{
			"query":   {query},
			"country": {country},
			"page":    {strconv.Itoa(page)},
		}
		if category != "" {
			params.Set("category", category)
		}
		body, err := c.fetch(ctx, "/search", params)
		if err != nil {
			c.observeFailure(ctx, "search", err)
			return nil, err
		}
		items, err := decodeItemList(body, "products")
		if err != nil {
			c.observeFailure(ctx, "search", err)
			return nil, err
		}
		products := NormalizeBatch(ctx, items, maxResults)
		c.cacheSet(ctx, key, products, searchTTL)
		return products, nil
	})
	if err != nil {
		return nil
	}

	products := v.([]Product)
	c.recorder.RecordProductSearch(ctx, query, len(products))
	lg.Info("Catalog search completed",
		zap.String("query", query), zap.Int("results", len(products)))
	return products
}

// GetProductDetails returns one product record, or nil on any non-success
// path. Cached for an hour; detail facts decay slower than search relevance.
func (c *Client) GetProductDetails(ctx context.Context, asin, country string) *Product {
	if c.cfg.APIKey == "" {
		zctx.From(ctx).Warn("Catalog API key not configured, skipping product details")
		return nil
	}

	key := "catalog:product:" + asin + ":" + country
	var cached Product
	if c.cacheGet(ctx, key, &cached) {
		return &cached
	}

	v, err, _ := c.flight.Do(key, func() (any, error) {
		body, err := c.fetch(ctx, "/product-details", url.Values{
			"asin":    {asin},
			"country": {country},
		})
		if err != nil {
			c.observeFailure(ctx, "product-details", err)
			return nil, err
		}
		detail, err := decodeDetail(body)
		if err != nil {
			c.observeFailure(ctx, "product-details", err)
			return nil, err
		}
		p, err := Normalize(detail)
		if err != nil {
			err = errors.Wrap(errMalformedPayload, err.Error())
			c.observeFailure(ctx, "product-details", err)
			return nil, err
		}
		if p.ASIN == "" {
			err = errors.Wrap(errMalformedPayload, "detail without identifier")
			c.observeFailure(ctx, "product-details", err)
			return nil, err
		}
		c.cacheSet(ctx, key, p, productTTL)
		return p, nil
	})
	if err != nil {
		return nil
	}

	p := v.(Product)
	return &p
}

// GetProductReviews returns up to limit raw review records, cached for an
// hour. Reviews are passed through verbatim for downstream analysis.
func (c *Client) GetProductReviews(ctx context.Context, asin, country string, limit int) []Review {
	if c.cfg.APIKey == "" {
		zctx.From(ctx).Warn("Catalog API key not configured, skipping reviews")
		return nil
	}

	key := "catalog:reviews:" + asin + ":" + country + ":" + strconv.Itoa(limit)
	var cached []Review
	if c.cacheGet(ctx, key, &cached) {
		return cached
	}

	v, err, _ := c.flight.Do(key, func() (any, error) {
		body, err := c.fetch(ctx, "/reviews", url.Values{
			"asin":    {asin},
			"country": {country},
		})
		if err != nil {
			c.observeFailure(ctx, "reviews", err)
			return nil, err
		}
		items, err := decodeItemList(body, "reviews")
		if err != nil {
			c.observeFailure(ctx, "reviews", err)
			return nil, err
		}
		if limit >= 0 && len(items) > limit {
			items = items[:limit]
		}
		reviews := make([]Review, len(items))
		for i, raw := range items {
			reviews[i] = Review(raw)
		}
		c.cacheSet(ctx, key, reviews, productTTL)
		return reviews, nil
	})
	if err != nil {
		return nil
	}
	return v.([]Review)
}

// categories is the static taxonomy. It changes far more slowly than any
// fetched resource, so there is no upstream endpoint for it.
var categories = []string{
	"Electronics",
	"Books",
	"Clothing",
	"Home & Kitchen",
	"Sports & Outdoors",
	"Beauty & Personal Care",
	"Toys & Games",
	"Health & Household",
	"Automotive",
	"Industrial & Scientific",
	"Office Products",
	"Pet Supplies",
	"Grocery & Gourmet Food",
	"Baby Products",
	"Tools & Home Improvement",
}

// GetCategories returns the canonical category names, cached for a day.
// Requires neither a credential nor a network call.
func (c *Client) GetCategories(ctx context.Context) []string {
	const key = "catalog:categories"
	var cached []string
	if c.cacheGet(ctx, key, &cached) {
		return cached
	}
	out := slices.Clone(categories)
	c.cacheSet(ctx, key, out, categoriesTTL)
	return out
}

// Stats returns a snapshot of the client counters and derived rates.
func (c *Client) Stats() StatsSnapshot {
	return c.stats.snapshot(c.cfg.MaxConcurrent)
}

// Close releases idle transport connections. Safe to call before any request.
func (c *Client) Close() {
	if c.session != nil {
		c.session.CloseIdleConnections()
	}
}

// httpSession lazily builds the shared connection pool. sync.Once keeps
// concurrent first calls from racing the initialization.
func (c *Client) httpSession() *http.Client {
	c.sessionOnce.Do(func() {
		base := c.cfg.Transport
		if base == nil {
			base = &http.Transport{
				DialContext:         (&net.Dialer{Timeout: connectTimeout}).DialContext,
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			}
		}
		var opts []otelhttp.Option
		if c.cfg.TracerProvider != nil {
			opts = append(opts, otelhttp.WithTracerProvider(c.cfg.TracerProvider))
		}
		c.session = &http.Client{
			Timeout:   requestTimeout,
			Transport: otelhttp.NewTransport(base, opts...),
		}
	})
	return c.session
}

// fetch acquires a gate permit, issues one GET against the upstream API, and
// returns the body on 200. The permit is released whether or not the call
// succeeds. Every attempt increments the request counter.
func (c *Client) fetch(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if err := c.gate.Acquire(ctx, 1); err != nil {
		return nil, errors.Wrap(err, "acquire permit")
	}
	defer c.gate.Release(1)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("x-rapidapi-key", c.cfg.APIKey)
	req.Header.Set("x-rapidapi-host", c.cfg.APIHost)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	c.stats.recordRequest()
	resp, err := c.httpSession().Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "send")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusTooManyRequests:
		return nil, errRateLimited
	default:
		return nil, &upstreamStatusError{code: resp.StatusCode}
	}
}

// observeFailure logs and accounts one failed upstream interaction. Rate
// limiting is transient: it pauses for the backoff interval instead of
// incrementing the error counter, and the caller may retry.
func (c *Client) observeFailure(ctx context.Context, op string, err error) {
	lg := zctx.From(ctx)
	switch {
	case errors.Is(err, errRateLimited):
		lg.Warn("Upstream rate limit exceeded",
			zap.String("op", op), zap.Duration("backoff", c.cfg.Backoff))
		c.pause(ctx)
	case isTimeout(err):
		lg.Error("Upstream call timed out", zap.String("op", op), zap.Error(err))
		c.stats.recordError()
	case errors.Is(err, errMalformedPayload):
		lg.Error("Upstream payload malformed", zap.String("op", op), zap.Error(err))
		c.stats.recordError()
	default:
		lg.Error("Upstream call failed", zap.String("op", op), zap.Error(err))
		c.stats.recordError()
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func (c *Client) pause(ctx context.Context) {
	t := time.NewTimer(c.cfg.Backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// cacheGet reads and decodes one cache entry into dst. Backend errors and
// undecodable entries degrade to a miss. Successful reads count as hits.
func (c *Client) cacheGet(ctx context.Context, key string, dst any) bool {
	data, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		zctx.From(ctx).Warn("Cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		zctx.From(ctx).Warn("Discarding undecodable cache entry",
			zap.String("key", key), zap.Error(err))
		return false
	}
	c.stats.recordCacheHit()
	return true
}

// cacheSet encodes and stores one entry. Write failures only log; serving
// the fetched result matters more than populating the cache.
func (c *Client) cacheSet(ctx context.Context, key string, value any, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		zctx.From(ctx).Warn("Cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.cache.Set(ctx, key, data, ttl); err != nil {
		zctx.From(ctx).Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// searchCacheKey derives a deterministic key from all search parameters.
// url.Values.Encode sorts by key, so the serialization is canonical and two
// equal parameter sets can never produce different keys.
func searchCacheKey(query, country string, page int, category string, maxResults int) string {
	params := url.Values{
		"query":       {query},
		"country":     {country},
		"page":        {strconv.Itoa(page)},
		"category":    {category},
		"max_results": {strconv.Itoa(maxResults)},
	}
	sum := sha256.Sum256([]byte(params.Encode()))
	return "catalog:search:" + hex.EncodeToString(sum[:])
}
