package livedata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// HTTPConfig configures an HTTPProvider.
type HTTPConfig struct {
	// BaseURL of the data service, e.g. "https://data.example.com".
	BaseURL string

	// Timeout per request. Default: 3 seconds.
	Timeout time.Duration

	// RatePerSecond and Burst bound outgoing requests. Zero disables limiting.
	RatePerSecond float64
	Burst         int

	Breaker BreakerConfig
}

// HTTPProvider fetches facts from a JSON service:
//
//	GET {BaseURL}/v1/facts?topics=market,costs&neighborhood=Heights
//	200 {"facts": {"market.total_sales": 7500, ...}}
type HTTPProvider struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	breaker *Breaker
	logger  zerolog.Logger
}

// HTTPOption configures an HTTPProvider.
type HTTPOption func(*HTTPProvider)

// WithLogger sets the logger used for breaker state changes.
func WithLogger(l zerolog.Logger) HTTPOption {
	return func(p *HTTPProvider) { p.logger = l }
}

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(p *HTTPProvider) { p.client = c }
}

// NewHTTPProvider creates a provider for cfg.BaseURL.
func NewHTTPProvider(cfg HTTPConfig, opts ...HTTPOption) (*HTTPProvider, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if _, err := url.ParseRequestURI(base); err != nil || base == "" {
		return nil, fmt.Errorf("livedata: invalid base URL %q", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	p := &HTTPProvider{
		baseURL: base,
		client:  &http.Client{Timeout: timeout},
		logger:  zerolog.Nop(),
	}
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	for _, opt := range opts {
		opt(p)
	}

	p.breaker = NewBreaker("livedata-http", cfg.Breaker, func(from, to string) {
		p.logger.Warn().Str("from", from).Str("to", to).Msg("livedata: circuit breaker state changed")
	})

	return p, nil
}

// Breaker exposes the provider's circuit breaker.
func (p *HTTPProvider) Breaker() *Breaker {
	return p.breaker
}

type factsResponse struct {
	Facts map[string]any `json:"facts"`
}

// Fetch implements Provider.
func (p *HTTPProvider) Fetch(ctx context.Context, req Request) (Facts, error) {
	if req.Empty() {
		return nil, nil
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limit: %w", ErrUnavailable, err)
		}
	}

	result, err := p.breaker.Execute(ctx, func() (interface{}, error) {
		return p.get(ctx, req)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return result.(Facts), nil
}

func (p *HTTPProvider) get(ctx context.Context, req Request) (Facts, error) {
	topics := make([]string, 0, len(req.Topics))
	for _, t := range req.Topics {
		topics = append(topics, string(t))
	}

	q := url.Values{}
	q.Set("topics", strings.Join(topics, ","))
	if req.Neighborhood != "" {
		q.Set("neighborhood", req.Neighborhood)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/v1/facts?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out factsResponse
	dec := json.NewDecoder(io.LimitReader(resp.Body, 1<<20))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return Facts(out.Facts), nil
}
