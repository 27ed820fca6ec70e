package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const maxResponseBytes = 5 << 20

var (
	// ErrAllEndpointsFailed is returned when no endpoint produced a usable payload.
	ErrAllEndpointsFailed = errors.New("importer: all endpoints failed")
	// ErrUpstreamStatus is returned for non-2xx responses.
	ErrUpstreamStatus = errors.New("importer: upstream returned non-2xx status")
	// ErrInvalidJSON is returned by Forward when the upstream body is not JSON.
	ErrInvalidJSON = errors.New("importer: upstream body is not valid json")
)

// ClientConfig configures the search client.
type ClientConfig struct {
	TicketmasterURL   string
	APIKey            string
	FallbackEndpoints []string
	PageSize          int
	Timeout           time.Duration
	Location          *time.Location
}

// Client searches the discovery API first and then every fallback endpoint in order.
type Client struct {
	cfg    ClientConfig
	http   *http.Client
	logger *zap.Logger
	now    func() time.Time
}

// NewClient constructs a client. A nil httpClient gets one with the configured timeout.
func NewClient(cfg ClientConfig, httpClient *http.Client, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{cfg: cfg, http: httpClient, logger: logger, now: time.Now}
}

type attempt struct {
	name     string
	url      string
	source   Source
	upcoming bool
}

// Search runs the query against each endpoint until one yields a recognised payload.
func (c *Client) Search(ctx context.Context, q Query) (*Result, error) {
	attempts := c.attempts(q)
	if len(attempts) == 0 {
		return nil, fmt.Errorf("%w: no endpoints configured", ErrAllEndpointsFailed)
	}

	var errs []error
	for _, a := range attempts {
		candidates, err := c.try(ctx, a)
		if err != nil {
			c.logger.Warn("import endpoint failed", zap.String("endpoint", a.name), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", a.name, err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		return &Result{Query: q, Live: true, Endpoint: a.name, Candidates: candidates}, nil
	}
	return nil, fmt.Errorf("%w: %w", ErrAllEndpointsFailed, errors.Join(errs...))
}

func (c *Client) try(ctx context.Context, a attempt) ([]Candidate, error) {
	body, err := c.fetch(ctx, a.url)
	if err != nil {
		return nil, err
	}
	payload, err := Decode(body)
	if err != nil {
		return nil, err
	}
	return Normalize(payload, Options{
		Now:      c.now(),
		Location: c.cfg.Location,
		Source:   a.source,
		Upcoming: a.upcoming,
		Logger:   c.logger,
	})
}

func (c *Client) attempts(q Query) []attempt {
	var out []attempt
	if c.cfg.TicketmasterURL != "" && c.cfg.APIKey != "" {
		if u, err := url.Parse(c.cfg.TicketmasterURL); err == nil {
			params := u.Query()
			params.Set("apikey", c.cfg.APIKey)
			if q.Keyword != "" {
				params.Set("keyword", q.Keyword)
			}
			if q.Location != "" {
				params.Set("city", q.Location)
			}
			if q.Category != "" {
				params.Set("classificationName", q.Category)
			}
			if q.StartDate != "" {
				params.Set("startDateTime", q.StartDate+"T00:00:00Z")
			}
			params.Set("size", strconv.Itoa(c.cfg.PageSize))
			params.Set("sort", "date,asc")
			u.RawQuery = params.Encode()
			out = append(out, attempt{name: u.Host, url: u.String(), source: SourceTicketmaster, upcoming: true})
		}
	}
	for _, endpoint := range c.cfg.FallbackEndpoints {
		u, err := url.Parse(endpoint)
		if err != nil {
			c.logger.Warn("ignoring malformed import endpoint", zap.String("endpoint", endpoint), zap.Error(err))
			continue
		}
		params := u.Query()
		if q.Keyword != "" {
			params.Set("q", q.Keyword)
			params.Set("keyword", q.Keyword)
		}
		if q.Location != "" {
			params.Set("city", q.Location)
		}
		u.RawQuery = params.Encode()
		out = append(out, attempt{name: u.Host + u.Path, url: u.String(), source: SourceFeed})
	}
	return out
}

// Forward relays a discovery API query with the server-held key and returns the raw JSON body.
// Only keyword, city, startDateTime and endDateTime are forwarded.
func (c *Client) Forward(ctx context.Context, in url.Values) (json.RawMessage, error) {
	u, err := url.Parse(c.cfg.TicketmasterURL)
	if err != nil {
		return nil, fmt.Errorf("parse discovery url: %w", err)
	}
	params := u.Query()
	for _, key := range []string{"keyword", "city", "startDateTime", "endDateTime"} {
		if v := in.Get(key); v != "" {
			params.Set(key, v)
		}
	}
	params.Set("apikey", c.cfg.APIKey)
	u.RawQuery = params.Encode()

	body, err := c.fetchAny(ctx, u.String())
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, ErrInvalidJSON
	}
	return json.RawMessage(body), nil
}

func (c *Client) fetch(ctx context.Context, target string) ([]byte, error) {
	resp, body, err := c.do(ctx, target)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d", ErrUpstreamStatus, resp.StatusCode)
	}
	return body, nil
}

// fetchAny returns the body whatever the status, as the relay passes upstream errors through.
func (c *Client) fetchAny(ctx context.Context, target string) ([]byte, error) {
	_, body, err := c.do(ctx, target)
	return body, err
}

func (c *Client) do(ctx context.Context, target string) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("request %s: %w", req.URL.Host, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, nil, fmt.Errorf("read response: %w", err)
	}
	return resp, body, nil
}
