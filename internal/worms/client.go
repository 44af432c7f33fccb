package worms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/obistack/occurrence-go/internal/errors"
	"github.com/obistack/occurrence-go/internal/logging"
	"github.com/obistack/occurrence-go/internal/occurrence"
)

// Package-level logger specific to the worms service
var (
	logger          *slog.Logger
	serviceLevelVar = new(slog.LevelVar) // Dynamic level control
	closeLogger     func() error
)

func init() {
	var err error
	logFilePath := filepath.Join("logs", "worms.log")
	serviceLevelVar.Set(slog.LevelDebug)

	logger, closeLogger, err = logging.NewFileLogger(logFilePath, "worms", serviceLevelVar)
	if err != nil {
		// Fallback: disable service file logging but keep a valid logger
		log.Printf("Failed to initialize worms file logger at %s: %v. Service logging disabled.", logFilePath, err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: serviceLevelVar})
		logger = slog.New(fbHandler).With("service", "worms")
		closeLogger = func() error { return nil }
	}
}

// Client provides methods for interacting with the WoRMS REST API
type Client struct {
	config      Config
	httpClient  *http.Client
	cache       *cache.Cache
	rateLimiter *rate.Limiter

	// Metrics
	metrics struct {
		apiCalls  int64
		cacheHits int64
		apiErrors int64
		mu        sync.Mutex
	}
}

// NewClient creates a new WoRMS API client
func NewClient(config Config) (*Client, error) {
	if config.BaseURL == "" {
		return nil, errors.Newf("WoRMS base URL is required").
			Category(errors.CategoryConfiguration).
			Component("worms").
			Build()
	}

	defaults := DefaultConfig()
	if config.Timeout == 0 {
		config.Timeout = defaults.Timeout
	}
	if config.CacheTTL == 0 {
		config.CacheTTL = defaults.CacheTTL
	}
	if config.RateLimit == 0 {
		config.RateLimit = defaults.RateLimit
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = defaults.MaxRetries
	}
	if config.MaxInFlight <= 0 {
		config.MaxInFlight = defaults.MaxInFlight
	}

	client := &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		cache:       cache.New(config.CacheTTL, config.CacheTTL*2),
		rateLimiter: rate.NewLimiter(rate.Every(config.RateLimit), 1),
	}

	logger.Info("WoRMS client initialized",
		"base_url", config.BaseURL,
		"cache_ttl", config.CacheTTL,
		"rate_limit", config.RateLimit,
		"batch_size", config.BatchSize)

	return client, nil
}

// Close cleans up client resources
func (c *Client) Close() {
	logger.Info("Closing WoRMS client")
	if closeLogger != nil {
		if err := closeLogger(); err != nil {
			log.Printf("Error closing worms logger: %v", err)
		}
	}
}

// ValidAphiaIDs resolves each AphiaID to its accepted (valid) AphiaID.
// Lookups are batched; a failed batch is logged and skipped so one flaky
// request never fails the whole normalization. IDs WoRMS does not know stay
// absent from the result map.
func (c *Client) ValidAphiaIDs(ctx context.Context, ids []int64) (map[int64]int64, error) {
	resolved := make(map[int64]int64, len(ids))
	var misses []int64

	// Serve what we can from cache first
	for _, id := range ids {
		if cached, found := c.cache.Get(cacheKey(id)); found {
			if valid, ok := cached.(int64); ok {
				resolved[id] = valid
				c.countCacheHit()
				continue
			}
		}
		misses = append(misses, id)
	}

	if len(misses) == 0 {
		return resolved, nil
	}

	var mu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(c.config.MaxInFlight)

	for start := 0; start < len(misses); start += c.config.BatchSize {
		end := min(start+c.config.BatchSize, len(misses))
		batch := misses[start:end]

		group.Go(func() error {
			records, err := c.fetchBatch(groupCtx, batch)
			if err != nil {
				// Normalization is best effort: log and skip the batch
				logger.Warn("Failed to resolve AphiaID batch",
					"batch_size", len(batch),
					"first_id", batch[0],
					"error", err)
				c.countAPIError()
				return nil
			}

			mu.Lock()
			defer mu.Unlock()
			for _, record := range records {
				if record == nil {
					continue
				}
				valid := record.AphiaID
				if record.ValidAphiaID != nil {
					valid = *record.ValidAphiaID
				}
				resolved[record.AphiaID] = valid
				c.cache.Set(cacheKey(record.AphiaID), valid, cache.DefaultExpiration)
			}
			return nil
		})
	}

	// Batch errors are swallowed above; the only error left is context
	// cancellation.
	if err := group.Wait(); err != nil {
		return resolved, err
	}
	if err := ctx.Err(); err != nil {
		return resolved, err
	}
	return resolved, nil
}

// NormalizeOccurrences replaces each record's AphiaID with its accepted
// AphiaID. Records are modified in place; records without an AphiaID or
// whose ID cannot be resolved are left untouched.
func (c *Client) NormalizeOccurrences(ctx context.Context, records []occurrence.Record) error {
	unique := make(map[int64]struct{})
	for i := range records {
		if records[i].AphiaID != nil {
			unique[*records[i].AphiaID] = struct{}{}
		}
	}
	if len(unique) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(unique))
	for id := range unique {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	logger.Info("Normalizing AphiaIDs via WoRMS", "unique_ids", len(ids))

	resolved, err := c.ValidAphiaIDs(ctx, ids)
	if err != nil {
		return err
	}

	for i := range records {
		if records[i].AphiaID == nil {
			continue
		}
		if valid, ok := resolved[*records[i].AphiaID]; ok && valid != *records[i].AphiaID {
			records[i].AphiaID = &valid
		}
	}
	return nil
}

// fetchBatch requests one AphiaRecordsByAphiaIDs batch with rate limiting
// and retries. Entries can be null for unknown IDs, hence the pointer slice.
func (c *Client) fetchBatch(ctx context.Context, ids []int64) ([]*AphiaRecord, error) {
	params := url.Values{}
	for _, id := range ids {
		params.Add("aphiaids[]", strconv.FormatInt(id, 10))
	}
	requestURL := fmt.Sprintf("%s/AphiaRecordsByAphiaIDs?%s", c.config.BaseURL, params.Encode())

	var records []*AphiaRecord
	if err := c.doRequestWithRetry(ctx, requestURL, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// doRequestWithRetry performs a GET request, retrying transient failures
// (network errors, 429, 5xx) with linear backoff.
func (c *Client) doRequestWithRetry(ctx context.Context, requestURL string, target any) error {
	var lastErr error

	for attempt := 1; attempt <= c.config.MaxRetries; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return err
		}

		lastErr = c.doRequest(ctx, requestURL, target)
		if lastErr == nil {
			return nil
		}
		if !isTransient(lastErr) {
			return lastErr
		}

		logger.Debug("Retrying WoRMS request",
			"attempt", attempt,
			"max_retries", c.config.MaxRetries,
			"error", lastErr)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
		}
	}
	return lastErr
}

// doRequest performs a single GET request and decodes the JSON response.
func (c *Client) doRequest(ctx context.Context, requestURL string, target any) error {
	reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, requestURL, http.NoBody)
	if err != nil {
		return errors.New(err).
			Category(errors.CategoryNetwork).
			Component("worms").
			Build()
	}
	req.Header.Set("Accept", "application/json")

	c.countAPICall()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &transientError{err: errors.New(err).
			Category(errors.CategoryNetwork).
			Component("worms").
			Build()}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// WoRMS returns 200 with a JSON body
	case resp.StatusCode == http.StatusNoContent:
		// No matches; leave the target at its zero value
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return &transientError{err: errors.Newf("WoRMS request failed with status %d", resp.StatusCode).
			Category(errors.CategoryHTTP).
			Component("worms").
			Context("status", resp.StatusCode).
			Build()}
	default:
		return errors.Newf("WoRMS request failed with status %d", resp.StatusCode).
			Category(errors.CategoryHTTP).
			Component("worms").
			Context("status", resp.StatusCode).
			Build()
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return errors.New(err).
			Category(errors.CategoryFileParsing).
			Component("worms").
			Context("operation", "decode-response").
			Build()
	}
	return nil
}

// transientError marks failures worth retrying.
type transientError struct {
	err error
}

func (t *transientError) Error() string { return t.err.Error() }
func (t *transientError) Unwrap() error { return t.err }

func isTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}

func cacheKey(id int64) string {
	return "aphia:" + strconv.FormatInt(id, 10)
}

func (c *Client) countAPICall() {
	c.metrics.mu.Lock()
	c.metrics.apiCalls++
	c.metrics.mu.Unlock()
}

func (c *Client) countCacheHit() {
	c.metrics.mu.Lock()
	c.metrics.cacheHits++
	c.metrics.mu.Unlock()
}

func (c *Client) countAPIError() {
	c.metrics.mu.Lock()
	c.metrics.apiErrors++
	c.metrics.mu.Unlock()
}
