// Package pricefeed implements a PriceSource backed by a DEXScreener-style
// REST API, with TTL caching and client-side rate limiting.
package pricefeed

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/KyberNetwork/logger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/goccy/go-json"
	gocache "github.com/patrickmn/go-cache"
	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"

	"github.com/tokenarena/arenakit"
)

const (
	defaultBaseURL           = "https://api.dexscreener.com"
	defaultRequestTimeout    = 5 * time.Second
	defaultCacheTTL          = 5 * time.Minute
	defaultRequestsPerSecond = 5
)

// pairData is the slice of the API response we care about.
type pairData struct {
	BaseToken struct {
		Address string `json:"address"`
	} `json:"baseToken"`
	PriceUSD string `json:"priceUsd"`
}

// Client fetches USD token prices over HTTP. It implements the
// arenakit.PriceSource interface: a missing price is reported as not found,
// never as an error.
type Client struct {
	http    *fasthttp.Client
	baseURL string
	timeout time.Duration

	cache   *gocache.Cache
	limiter *rate.Limiter
}

var _ arenakit.PriceSource = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithRequestTimeout sets the per-request timeout used when the caller's
// context has no deadline.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithCacheTTL sets how long fetched prices are cached.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) {
		if ttl > 0 {
			c.cache = gocache.New(ttl, ttl)
		}
	}
}

// WithRequestsPerSecond caps the outgoing request rate.
func WithRequestsPerSecond(rps int) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), rps)
		}
	}
}

// NewClient creates a price client with sensible defaults.
func NewClient(opts ...Option) *Client {
	c := &Client{
		http:    &fasthttp.Client{},
		baseURL: defaultBaseURL,
		timeout: defaultRequestTimeout,
		cache:   gocache.New(defaultCacheTTL, defaultCacheTTL),
		limiter: rate.NewLimiter(rate.Limit(defaultRequestsPerSecond), defaultRequestsPerSecond),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PriceUSD returns the cached or freshly fetched USD price of a token.
// Every failure path, including rate limit waits cut short by the context,
// reports not found.
func (c *Client) PriceUSD(ctx context.Context, chainID string, token common.Address) (float64, bool) {
	key := chainID + ":" + strings.ToLower(token.Hex())
	if cached, found := c.cache.Get(key); found {
		price := cached.(float64)
		return price, price > 0
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return 0, false
	}

	price, err := c.fetch(ctx, chainID, token)
	if err != nil {
		logger.WithFields(logger.Fields{
			"chain": chainID,
			"token": token.Hex(),
			"error": err,
		}).Debug("Price fetch failed")
		return 0, false
	}

	c.cache.SetDefault(key, price)
	return price, price > 0
}

func (c *Client) fetch(ctx context.Context, chainID string, token common.Address) (float64, error) {
	requestURL := fmt.Sprintf("%s/tokens/v1/%s/%s", c.baseURL, chainID, strings.ToLower(token.Hex()))

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(requestURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.SetContentType("application/json")

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	if deadline, ok := ctx.Deadline(); ok {
		if err := c.http.DoDeadline(req, resp, deadline); err != nil {
			return 0, fmt.Errorf("request to %s failed: %w", requestURL, err)
		}
	} else {
		if err := c.http.DoTimeout(req, resp, c.timeout); err != nil {
			return 0, fmt.Errorf("request to %s failed: %w", requestURL, err)
		}
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return 0, fmt.Errorf("request to %s failed with status %d", requestURL, resp.StatusCode())
	}

	var pairs []pairData
	if err := json.Unmarshal(resp.Body(), &pairs); err != nil {
		return 0, fmt.Errorf("failed to unmarshal price response: %w", err)
	}

	want := strings.ToLower(token.Hex())
	for _, pair := range pairs {
		if strings.ToLower(pair.BaseToken.Address) != want {
			continue
		}
		price, err := strconv.ParseFloat(pair.PriceUSD, 64)
		if err != nil {
			continue
		}
		return price, nil
	}
	return 0, nil
}
