package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"github.com/ppiankov/bookgraph/internal/metrics"
	"github.com/ppiankov/bookgraph/internal/model"
	"github.com/ppiankov/bookgraph/internal/util"
	"github.com/ppiankov/bookgraph/internal/worker"
)

// ErrDisallowed is the cause of a FetchError when robots.txt forbids the URL.
var ErrDisallowed = errors.New("disallowed by robots.txt")

// FetchError reports a failed upstream fetch. StatusCode is zero when no
// response was received.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s returned status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Fetcher retrieves book text and catalog pages from the configured source.
type Fetcher struct {
	httpClient  *http.Client
	userAgent   string
	maxBytes    int64
	contentURL  string
	metadataURL string

	robots  *util.RobotsChecker
	limiter *worker.Limiter
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithFetchLimiter throttles requests per upstream host.
func WithFetchLimiter(l *worker.Limiter) FetcherOption {
	return func(f *Fetcher) { f.limiter = l }
}

func WithFetchMetrics(m *metrics.Metrics) FetcherOption {
	return func(f *Fetcher) { f.metrics = m }
}

func WithFetchLogger(l *zap.Logger) FetcherOption {
	return func(f *Fetcher) { f.logger = l }
}

// NewFetcher creates a Fetcher from source settings.
func NewFetcher(cfg model.SourceConfig, opts ...FetcherOption) *Fetcher {
	defaults := model.DefaultConfig().Source
	if cfg.ContentURL == "" {
		cfg.ContentURL = defaults.ContentURL
	}
	if cfg.MetadataURL == "" {
		cfg.MetadataURL = defaults.MetadataURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaults.UserAgent
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaults.MaxBodyBytes
	}

	transport := util.NewTransport(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy)

	f := &Fetcher{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent:   cfg.UserAgent,
		maxBytes:    cfg.MaxBodyBytes,
		contentURL:  cfg.ContentURL,
		metadataURL: cfg.MetadataURL,
		logger:      zap.NewNop(),
	}
	if cfg.RespectRobots {
		f.robots = util.NewRobotsChecker(cfg.UserAgent, cfg.Timeout, transport)
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.robots != nil && f.limiter == nil {
		// unlimited until robots.txt asks for a crawl delay
		f.limiter = worker.NewLimiter(0, 0)
	}
	return f
}

// FetchBook downloads the plain text of book id. One attempt, no retries.
func (f *Fetcher) FetchBook(ctx context.Context, id string) (*model.Book, error) {
	target := expandURL(f.contentURL, id)

	resp, err := f.get(ctx, target, "text/plain, */*;q=0.8")
	if err != nil {
		return nil, err
	}

	return &model.Book{
		ID:        id,
		Content:   resp.text(),
		SourceURL: resp.finalURL,
		FetchedAt: time.Now().UTC(),
		FetchMeta: resp.meta,
	}, nil
}

// fetched is a successful upstream response, already read.
type fetched struct {
	body     []byte
	meta     model.FetchMeta
	finalURL string
}

// text returns the body as UTF-8, converting when the server declared
// another charset.
func (r *fetched) text() string {
	_, params, err := mime.ParseMediaType(r.meta.ContentType)
	if err != nil || params["charset"] == "" {
		return string(r.body)
	}

	enc, name := charset.Lookup(params["charset"])
	if enc == nil || name == "utf-8" {
		return string(r.body)
	}

	decoded, err := enc.NewDecoder().Bytes(r.body)
	if err != nil {
		return string(r.body)
	}
	return string(decoded)
}

func (f *Fetcher) get(ctx context.Context, target, accept string) (*fetched, error) {
	if f.robots != nil {
		allowed, delay, err := f.robots.CanFetch(ctx, target)
		if err != nil {
			return nil, f.fail("robots", &FetchError{URL: target, Err: err})
		}
		if !allowed {
			return nil, f.fail("robots", &FetchError{URL: target, Err: ErrDisallowed})
		}
		if delay > 0 {
			if u, err := url.Parse(target); err == nil {
				f.limiter.Throttle(u.Host, delay)
			}
		}
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, target); err != nil {
			return nil, f.fail("transport", &FetchError{URL: target, Err: err})
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, f.fail("transport", &FetchError{URL: target, Err: fmt.Errorf("create request: %w", err)})
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", accept)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, f.fail("transport", &FetchError{URL: target, Err: err})
	}
	defer func() { _ = resp.Body.Close() }()

	meta := model.FetchMeta{
		StatusCode:   resp.StatusCode,
		ContentType:  resp.Header.Get("Content-Type"),
		LastModified: resp.Header.Get("Last-Modified"),
		ETag:         resp.Header.Get("ETag"),
		Headers:      make(map[string]string),
	}
	for _, key := range []string{"Content-Length", "Server", "Cache-Control"} {
		if val := resp.Header.Get(key); val != "" {
			meta.Headers[key] = val
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, f.fail("status", &FetchError{
			URL:        target,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status: %s", resp.Status),
		})
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, f.fail("transport", &FetchError{URL: target, Err: fmt.Errorf("read body: %w", err)})
	}

	f.logger.Debug("fetched upstream document",
		zap.String("url", target),
		zap.Int("bytes", len(body)),
	)

	return &fetched{body: body, meta: meta, finalURL: resp.Request.URL.String()}, nil
}

func (f *Fetcher) fail(kind string, err *FetchError) error {
	f.metrics.FetchFailed(kind)
	f.logger.Warn("upstream fetch failed", zap.String("kind", kind), zap.Error(err))
	return err
}

// expandURL substitutes every {id} in template with the escaped id.
func expandURL(template, id string) string {
	return strings.ReplaceAll(template, "{id}", url.PathEscape(id))
}
