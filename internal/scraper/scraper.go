package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"dextools-monitor-bot/internal/types"

	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://www.dextools.io"
	defaultTimeout = 20 * time.Second
	maxPageBytes   = 8 << 20
)

// ErrInvalidPairURL is returned for links that are not DexTools pair-explorer pages.
var ErrInvalidPairURL = errors.New("not a dextools pair-explorer link")

var pairURLPattern = regexp.MustCompile(`dextools\.io/app/[^/]+/([^/]+)/pair-explorer/([a-fA-F0-9x]+)`)

var browserHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	"Accept-Language": "pt-BR,pt;q=0.9,en;q=0.8",
}

// TransportError covers network failures and non-2xx responses.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransportError reports whether err came from the fetch itself.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// ParsePairURL derives (chain, pair address) from a link such as
// https://www.dextools.io/app/en/bnb/pair-explorer/0xabc...
func ParsePairURL(link string) (chain, pair string, err error) {
	m := pairURLPattern.FindStringSubmatch(strings.TrimSpace(link))
	if len(m) < 3 {
		return "", "", errors.Wrapf(ErrInvalidPairURL, "%q", link)
	}
	return m[1], m[2], nil
}

// Option configures Client.
type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithTimeout bounds a single page fetch.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithRateLimit paces outgoing requests; zero or less disables pacing.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// CacheTTLFor caps ttl below the sweep interval so a pass never evaluates a
// page cached by the previous one.
func CacheTTLFor(ttl, interval time.Duration) time.Duration {
	if ttl <= 0 || interval <= 0 || ttl < interval {
		return ttl
	}
	return interval / 2
}

// WithCacheTTL lets targets sharing a pair reuse one fetch; zero disables it.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) {
		if ttl <= 0 {
			c.cache = nil
			return
		}
		c.cache = cache.New(ttl, 2*ttl)
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// Client fetches DexTools pair pages.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	limiter *rate.Limiter
	cache   *cache.Cache
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		timeout: defaultTimeout,
		http:    &http.Client{},
		limiter: rate.NewLimiter(rate.Inf, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PairURL replays a stored (chain, pair) into the page URL.
func (c *Client) PairURL(chain, pair string) string {
	return fmt.Sprintf("%s/app/en/%s/pair-explorer/%s", c.baseURL, chain, pair)
}

// GetCoinData fetches the pair page and extracts its metric. A transport
// failure returns a *TransportError and a metric with OK unset.
func (c *Client) GetCoinData(ctx context.Context, chain, pair string) (types.Metric, error) {
	key := chain + "/" + pair
	if c.cache != nil {
		if v, found := c.cache.Get(key); found {
			log.Debugf("page cache hit for %s", key)
			return v.(types.Metric), nil
		}
	}

	url := c.PairURL(chain, pair)
	content, err := c.fetch(ctx, url)
	if err != nil {
		return types.Metric{}, err
	}

	m := Extract(content)
	if c.cache != nil {
		c.cache.SetDefault(key, m)
	}
	return m, nil
}

func (c *Client) fetch(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return "", &TransportError{URL: url, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &TransportError{URL: url, Err: err}
	}
	for k, v := range browserHeaders {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &TransportError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", &TransportError{URL: url, Err: err}
	}
	return string(body), nil
}
