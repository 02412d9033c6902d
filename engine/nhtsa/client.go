// Package nhtsa is the HTTP client for the NHTSA public APIs: VIN decoding
// via vPIC, recalls and complaints by vehicle, per-issue safety detail, and
// make/model metadata. Every fetch goes through the disk cache first, and
// cache misses are retried with exponential backoff before a typed error
// surfaces to the caller.
package nhtsa

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/defectscope/defectscope/engine/cache"
	"github.com/defectscope/defectscope/engine/domain"
	"github.com/defectscope/defectscope/pkg/fn"
	"github.com/defectscope/defectscope/pkg/metrics"
	"golang.org/x/time/rate"
)

const (
	defaultRecallsBaseURL = "https://api.nhtsa.gov"
	defaultVPICBaseURL    = "https://vpic.nhtsa.dot.gov/api"

	userAgent = "defectscope/1.0"
)

// Cache TTLs per endpoint class. Historical safety records don't change, so
// detail payloads and VIN decodes keep for a week.
const (
	TTLVehicleData = 12 * time.Hour
	TTLCampaign    = 24 * time.Hour
	TTLDecode      = 7 * 24 * time.Hour
	TTLSafetyIssue = 7 * 24 * time.Hour
	TTLMetadata    = 24 * time.Hour
)

// retryableStatus are the statuses worth another attempt: rate limits and
// server-side failures.
var retryableStatus = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// Config holds client configuration. Zero values take defaults.
type Config struct {
	RecallsBaseURL string
	VPICBaseURL    string
	Timeout        time.Duration
	Retry          fn.RetryOpts
	RateLimit      rate.Limit
	RateBurst      int
}

func (c Config) withDefaults() Config {
	if c.RecallsBaseURL == "" {
		c.RecallsBaseURL = defaultRecallsBaseURL
	}
	if c.VPICBaseURL == "" {
		c.VPICBaseURL = defaultVPICBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = 20 * time.Second
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry = fn.RetryOpts{
			MaxAttempts: 4,
			InitialWait: 600 * time.Millisecond,
			MaxWait:     6 * time.Second,
			Jitter:      true,
		}
	}
	if c.RateLimit == 0 {
		c.RateLimit = rate.Every(100 * time.Millisecond)
	}
	if c.RateBurst == 0 {
		c.RateBurst = 5
	}
	return c
}

// Client fetches NHTSA data through the disk cache.
type Client struct {
	cfg     Config
	http    *http.Client
	cache   *cache.Disk
	limiter *rate.Limiter
	logger  *slog.Logger

	mRequests *metrics.Counter
	mRetries  *metrics.Counter
	mHits     *metrics.Counter
	mMisses   *metrics.Counter
}

// New creates a Client over the given cache. cache may be nil to bypass
// caching entirely (useful in tests); reg may be nil to skip metrics.
func New(c *cache.Disk, cfg Config, reg *metrics.Registry, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if reg == nil {
		reg = metrics.New()
	}
	cfg = cfg.withDefaults()
	return &Client{
		cfg:       cfg,
		http:      &http.Client{Timeout: cfg.Timeout},
		cache:     c,
		limiter:   rate.NewLimiter(cfg.RateLimit, cfg.RateBurst),
		logger:    logger,
		mRequests: reg.Counter("nhtsa_requests_total", "Upstream HTTP requests issued"),
		mRetries:  reg.Counter("nhtsa_retries_total", "Upstream HTTP attempts beyond the first"),
		mHits:     reg.Counter("nhtsa_cache_hits_total", "Fetches served from the disk cache"),
		mMisses:   reg.Counter("nhtsa_cache_misses_total", "Fetches that went to the network"),
	}
}

// emptyResults is what a 404 turns into: an empty dataset, not an error.
var emptyResults = json.RawMessage(`{"results": []}`)

// GetJSON returns the parsed JSON body at rawURL, serving from cache when an
// entry younger than ttl exists. On a miss it issues a GET with the retry
// policy and writes the result back to the cache before returning it.
func (c *Client) GetJSON(ctx context.Context, rawURL string, ttl time.Duration) (json.RawMessage, error) {
	if c.cache != nil {
		if data, ok := c.cache.Get(rawURL, ttl); ok {
			c.mHits.Inc()
			return data, nil
		}
	}
	c.mMisses.Inc()

	attempt := 0
	result := fn.Retry(ctx, c.cfg.Retry, func(ctx context.Context) fn.Result[json.RawMessage] {
		if attempt > 0 {
			c.mRetries.Inc()
		}
		attempt++
		return c.doGet(ctx, rawURL)
	})

	data, err := result.Unwrap()
	if err != nil {
		if domain.IsRemote(err) {
			return nil, err
		}
		return nil, domain.NewRemoteError(rawURL, "request failed after retries", 0, err)
	}

	if c.cache != nil {
		if err := c.cache.Set(rawURL, data); err != nil {
			c.logger.Warn("cache write failed", "url", rawURL, "error", err)
		}
	}
	return data, nil
}

// doGet performs one HTTP attempt. Retryable failures come back as plain
// errors; everything the retry loop must not repeat is wrapped Permanent.
func (c *Client) doGet(ctx context.Context, rawURL string) fn.Result[json.RawMessage] {
	if err := c.limiter.Wait(ctx); err != nil {
		return fn.Err[json.RawMessage](fn.Permanent(err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fn.Err[json.RawMessage](fn.Permanent(err))
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	c.mRequests.Inc()
	resp, err := c.http.Do(req)
	if err != nil {
		return fn.Err[json.RawMessage](err)
	}
	defer resp.Body.Close()

	// 404 is an empty dataset, not a failure.
	if resp.StatusCode == http.StatusNotFound {
		return fn.Ok(emptyResults)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		rerr := domain.NewRemoteError(rawURL, "unexpected status", resp.StatusCode, nil)
		if retryableStatus[resp.StatusCode] {
			return fn.Err[json.RawMessage](rerr)
		}
		return fn.Err[json.RawMessage](fn.Permanent(rerr))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fn.Err[json.RawMessage](err)
	}
	if !json.Valid(body) {
		return fn.Err[json.RawMessage](fn.Permanent(
			domain.NewRemoteError(rawURL, "invalid JSON in response body", resp.StatusCode, nil)))
	}
	return fn.Ok(json.RawMessage(body))
}

// resultsOf extracts the results list from a payload, accepting both the
// "results" and "Results" key casings the upstream mixes between endpoints.
func resultsOf(payload json.RawMessage) []map[string]any {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil
	}
	for _, key := range []string{"results", "Results"} {
		raw, ok := envelope[key]
		if !ok {
			continue
		}
		var list []map[string]any
		if err := json.Unmarshal(raw, &list); err == nil && list != nil {
			return list
		}
	}
	return nil
}

// Decoded is the outcome of a VIN decode.
type Decoded struct {
	Vehicle domain.Vehicle
	// Warning carries the upstream error annotation for decodes that
	// succeeded with caveats. A decode with a warning is still usable when
	// make/model/year came back.
	Warning string
	Raw     map[string]any
}

// DecodeVIN decodes a 17-character VIN into make/model/year. Length is
// validated before any network call.
func (c *Client) DecodeVIN(ctx context.Context, vin string) (*Decoded, error) {
	v, err := domain.NormalizeVIN(vin)
	if err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/vehicles/decodevinvalues/%s?format=json", c.cfg.VPICBaseURL, url.QueryEscape(v))
	payload, err := c.GetJSON(ctx, u, TTLDecode)
	if err != nil {
		return nil, err
	}

	rows := resultsOf(payload)
	if len(rows) == 0 {
		return nil, domain.NewRemoteError(u, "VIN decode returned no results", 0, nil)
	}
	row := rows[0]

	dec := &Decoded{
		Vehicle: domain.Vehicle{
			Make:  asString(row["Make"]),
			Model: asString(row["Model"]),
			Year:  asInt(row["ModelYear"]),
			VIN:   v,
		},
		Raw: row,
	}

	errCode := strings.TrimSpace(asString(row["ErrorCode"]))
	switch errCode {
	case "", "0", "0.0", "null", "None":
	default:
		dec.Warning = errCode + ": " + strings.TrimSpace(asString(row["ErrorText"]))
	}
	return dec, nil
}

// RecallsByVehicle fetches recall records for a make/model/year.
func (c *Client) RecallsByVehicle(ctx context.Context, mk, model string, year int) ([]map[string]any, error) {
	u := fmt.Sprintf("%s/recalls/recallsByVehicle?make=%s&model=%s&modelYear=%d",
		c.cfg.RecallsBaseURL, url.QueryEscape(strings.TrimSpace(mk)), url.QueryEscape(strings.TrimSpace(model)), year)
	payload, err := c.GetJSON(ctx, u, TTLVehicleData)
	if err != nil {
		return nil, err
	}
	return resultsOf(payload), nil
}

// ComplaintsByVehicle fetches consumer complaint records for a make/model/year.
func (c *Client) ComplaintsByVehicle(ctx context.Context, mk, model string, year int) ([]map[string]any, error) {
	u := fmt.Sprintf("%s/complaints/complaintsByVehicle?make=%s&model=%s&modelYear=%d",
		c.cfg.RecallsBaseURL, url.QueryEscape(strings.TrimSpace(mk)), url.QueryEscape(strings.TrimSpace(model)), year)
	payload, err := c.GetJSON(ctx, u, TTLVehicleData)
	if err != nil {
		return nil, err
	}
	return resultsOf(payload), nil
}

// RecallsByCampaign fetches recall records for a single campaign number.
// An empty campaign number yields an empty list.
func (c *Client) RecallsByCampaign(ctx context.Context, campaign string) ([]map[string]any, error) {
	campaign = strings.TrimSpace(campaign)
	if campaign == "" {
		return nil, nil
	}
	u := fmt.Sprintf("%s/recalls/campaignNumber?campaignNumber=%s",
		c.cfg.RecallsBaseURL, url.QueryEscape(campaign))
	payload, err := c.GetJSON(ctx, u, TTLCampaign)
	if err != nil {
		return nil, err
	}
	return resultsOf(payload), nil
}

// IssueTypes supported by SafetyIssueByID.
var IssueTypes = map[string]bool{
	"complaints":     true,
	"recalls":        true,
	"investigations": true,
}

// SafetyIssueByID fetches the raw safety-issue detail payload for an id.
func (c *Client) SafetyIssueByID(ctx context.Context, id, issueType string) (json.RawMessage, error) {
	issueType = strings.ToLower(strings.TrimSpace(issueType))
	if !IssueTypes[issueType] {
		return nil, domain.NewInputError("issueType", issueType, domain.ErrUnsupportedIssueType)
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.NewInputError("nhtsaId", id, domain.ErrMissingField)
	}
	u := fmt.Sprintf("%s/safetyIssues/byNhtsaId?filter=issueType&filterValue=%s&nhtsaId=%s",
		c.cfg.RecallsBaseURL, url.QueryEscape(issueType), url.QueryEscape(id))
	return c.GetJSON(ctx, u, TTLSafetyIssue)
}

// Makes lists all known vehicle makes. Best-effort: any failure returns an
// empty list, never an error.
func (c *Client) Makes(ctx context.Context) []string {
	u := fmt.Sprintf("%s/vehicles/getallmakes?format=json", c.cfg.VPICBaseURL)
	return c.metadataList(ctx, u, "Make_Name")
}

// ModelsForMakeYear lists models for a make in a specific model year.
// Best-effort.
func (c *Client) ModelsForMakeYear(ctx context.Context, mk string, year int) []string {
	u := fmt.Sprintf("%s/vehicles/getmodelsformakeyear/make/%s/modelyear/%d?format=json",
		c.cfg.VPICBaseURL, url.PathEscape(strings.TrimSpace(mk)), year)
	return c.metadataList(ctx, u, "Model_Name")
}

// ModelsForMake lists models for a make across all years. Best-effort.
func (c *Client) ModelsForMake(ctx context.Context, mk string) []string {
	u := fmt.Sprintf("%s/vehicles/getmodelsformake/%s?format=json",
		c.cfg.VPICBaseURL, url.PathEscape(strings.TrimSpace(mk)))
	return c.metadataList(ctx, u, "Model_Name")
}

// metadataList runs a convenience lookup and swallows every failure.
func (c *Client) metadataList(ctx context.Context, u, field string) []string {
	payload, err := c.GetJSON(ctx, u, TTLMetadata)
	if err != nil {
		c.logger.Debug("metadata lookup failed", "url", u, "error", err)
		return nil
	}
	var out []string
	for _, row := range resultsOf(payload) {
		if name := strings.TrimSpace(asString(row[field])); name != "" {
			out = append(out, name)
		}
	}
	return out
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

func asInt(v any) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}
