package strava

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"paceline/internal/config"
	"paceline/internal/logging"
	"paceline/internal/ratelimit"
)

const (
	defaultHTTPTimeout    = 30 * time.Second
	defaultRetryMaxDelay  = 60 * time.Second
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryAttempts  = 3
	defaultPerPage        = 30
)

// Client wraps the Strava v3 API.
type Client struct {
	cfg        config.Strava
	httpClient *http.Client
	tokens     oauth2.TokenSource
	limiter    *ratelimit.Limiter
	logger     *slog.Logger

	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	sleeper          func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTokenSource overrides the default static token source.
func WithTokenSource(source oauth2.TokenSource) Option {
	return func(c *Client) {
		if source != nil {
			c.tokens = source
		}
	}
}

// WithLogger attaches a logger for request and retry diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRetryMaxAttempts overrides the default retry count (defaults to 3).
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retryMaxAttempts = attempts
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient constructs a Strava client using the supplied configuration and
// rate limiter. All requests wait on the limiter before being sent.
func NewClient(cfg config.Strava, limiter *ratelimit.Limiter, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg:              cfg,
		httpClient:       &http.Client{Timeout: timeout},
		tokens:           oauth2.StaticTokenSource(&oauth2.Token{AccessToken: strings.TrimSpace(cfg.AccessToken)}),
		limiter:          limiter,
		logger:           logging.Nop(),
		retryMaxAttempts: defaultRetryAttempts,
		retryBaseDelay:   defaultRetryBaseDelay,
		retryMaxDelay:    defaultRetryMaxDelay,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = "https://www.strava.com/api/v3"
	}
	client.cfg.BaseURL = strings.TrimRight(client.cfg.BaseURL, "/")
	if client.cfg.PerPage <= 0 {
		client.cfg.PerPage = defaultPerPage
	}
	return client
}

type httpStatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("strava request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// Activities lists summary activities newest first, walking pages until the
// server returns a short page or limit is reached. A limit of 0 means no
// limit; a non-zero after restricts the listing to activities started after
// that instant.
func (c *Client) Activities(ctx context.Context, after time.Time, limit int) ([]*Activity, error) {
	var activities []*Activity
	perPage := c.cfg.PerPage

	for page := 1; ; page++ {
		query := url.Values{}
		query.Set("page", strconv.Itoa(page))
		query.Set("per_page", strconv.Itoa(perPage))
		if !after.IsZero() {
			query.Set("after", strconv.FormatInt(after.Unix(), 10))
		}

		body, err := c.get(ctx, "/athlete/activities", query)
		if err != nil {
			return activities, fmt.Errorf("list activities page %d: %w", page, err)
		}

		var rawItems []json.RawMessage
		if err := json.Unmarshal(body, &rawItems); err != nil {
			return activities, fmt.Errorf("list activities page %d: decode: %w", page, err)
		}

		for _, raw := range rawItems {
			activity := &Activity{}
			if err := json.Unmarshal(raw, activity); err != nil {
				return activities, fmt.Errorf("list activities page %d: decode item: %w", page, err)
			}
			activity.Raw = string(raw)
			activities = append(activities, activity)
			if limit > 0 && len(activities) >= limit {
				return activities, nil
			}
		}

		c.logger.Debug("fetched activity page", "page", page, "items", len(rawItems))
		if len(rawItems) < perPage {
			return activities, nil
		}
	}
}

// ActivityDetail fetches the full payload for one activity, including its
// segment efforts.
func (c *Client) ActivityDetail(ctx context.Context, id int64) (*Activity, error) {
	query := url.Values{}
	query.Set("include_all_efforts", "true")
	body, err := c.get(ctx, fmt.Sprintf("/activities/%d", id), query)
	if err != nil {
		return nil, fmt.Errorf("fetch activity %d: %w", id, err)
	}
	activity, err := DecodeActivityDetail(body)
	if err != nil {
		return nil, fmt.Errorf("fetch activity %d: %w", id, err)
	}
	return activity, nil
}

// SegmentDetail fetches the full payload for one segment.
func (c *Client) SegmentDetail(ctx context.Context, id int64) (*Segment, error) {
	body, err := c.get(ctx, fmt.Sprintf("/segments/%d", id), nil)
	if err != nil {
		return nil, fmt.Errorf("fetch segment %d: %w", id, err)
	}
	segment := &Segment{}
	if err := json.Unmarshal(body, segment); err != nil {
		return nil, fmt.Errorf("fetch segment %d: decode: %w", id, err)
	}
	segment.Raw = string(body)
	return segment, nil
}

// DecodeActivityDetail decodes a full activity payload, preserving the
// verbatim JSON of the activity and of each embedded effort and segment.
// Archive documents share this format with the detail endpoint.
func DecodeActivityDetail(body []byte) (*Activity, error) {
	activity := &Activity{}
	if err := json.Unmarshal(body, activity); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	activity.Raw = string(body)

	// Re-decode the efforts so each keeps its own verbatim payload.
	var shell struct {
		SegmentEfforts []json.RawMessage `json:"segment_efforts"`
	}
	if err := json.Unmarshal(body, &shell); err != nil {
		return nil, fmt.Errorf("decode efforts: %w", err)
	}
	activity.SegmentEfforts = activity.SegmentEfforts[:0]
	for _, rawEffort := range shell.SegmentEfforts {
		var effort Effort
		if err := json.Unmarshal(rawEffort, &effort); err != nil {
			return nil, fmt.Errorf("decode effort: %w", err)
		}
		effort.Raw = string(rawEffort)
		if effort.Activity.ID == 0 {
			effort.Activity.ID = activity.ID
		}
		if effort.Segment != nil {
			var segShell struct {
				Segment json.RawMessage `json:"segment"`
			}
			if err := json.Unmarshal(rawEffort, &segShell); err == nil && len(segShell.Segment) > 0 {
				effort.Segment.Raw = string(segShell.Segment)
			}
		}
		activity.SegmentEfforts = append(activity.SegmentEfforts, effort)
	}
	return activity, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	attempts := c.retryAttempts()
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		body, err := c.getOnce(ctx, path, query)
		if err == nil {
			return body, nil
		}
		lastErr = err

		delay, retry := c.retryDelay(ctx, err, attempt, attempts)
		if !retry {
			return nil, err
		}
		c.logger.Warn("retrying request", "path", path, "attempt", attempt, "delay", delay, "error", err)
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}

func (c *Client) getOnce(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("strava request: rate limit wait: %w", err)
	}

	endpoint := c.cfg.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("strava request: new request: %w", err)
	}
	token, err := c.tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("strava request: token: %w", err)
	}
	token.SetAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("strava request: http error: %w", err)
	}
	defer resp.Body.Close()
	c.limiter.Record()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("strava request: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return nil, &httpStatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			RetryAfter: retryAfter,
		}
	}
	return body, nil
}

func (c *Client) retryAttempts() int {
	if c.retryMaxAttempts <= 0 {
		return 1
	}
	return c.retryMaxAttempts
}

func (c *Client) retryDelay(ctx context.Context, err error, attempt, maxAttempts int) (time.Duration, bool) {
	if attempt >= maxAttempts {
		return 0, false
	}
	if err == nil || ctx.Err() != nil {
		return 0, false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusRequestTimeout,
			statusErr.StatusCode == http.StatusTooManyRequests,
			statusErr.StatusCode >= http.StatusInternalServerError:
			if statusErr.RetryAfter > 0 {
				return c.capDelay(statusErr.RetryAfter), true
			}
			return c.backoffDelay(attempt), true
		default:
			return 0, false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return c.backoffDelay(attempt), true
	}

	return 0, false
}

func (c *Client) backoffDelay(attempt int) time.Duration {
	base := c.retryBaseDelay
	if base <= 0 {
		return 0
	}
	// attempt 1 -> base, attempt 2 -> base*2, attempt 3 -> base*4, ...
	delay := base
	for i := 1; i < attempt; i++ {
		if delay > c.retryMaxDelay/2 {
			delay = c.retryMaxDelay
			break
		}
		delay *= 2
	}
	return c.capDelay(delay)
}

func (c *Client) capDelay(delay time.Duration) time.Duration {
	if delay < 0 {
		return 0
	}
	if c.retryMaxDelay > 0 && delay > c.retryMaxDelay {
		return c.retryMaxDelay
	}
	return delay
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}
