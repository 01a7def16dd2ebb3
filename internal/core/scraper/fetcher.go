package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"recipe-ingest/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
)

// FetcherConfig controls how pages are downloaded.
type FetcherConfig struct {
	UserAgent     string
	Timeout       time.Duration
	MaxBodyBytes  int64
	RespectRobots bool
}

// Fetcher downloads recipe pages over HTTP and decodes them to UTF-8.
type Fetcher struct {
	client *resty.Client
	cfg    FetcherConfig
}

// NewFetcher creates a Fetcher. Zero values fall back to sensible defaults.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	if cfg.UserAgent == "" {
		cfg.UserAgent = "recipe-ingest/1.0"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 5 << 20
	}

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml")

	return &Fetcher{client: client, cfg: cfg}
}

// Fetch returns the page body of rawURL as UTF-8 text.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", common.Wrapf(common.ErrInvalidRequest, "invalid url %q", rawURL)
	}

	if f.cfg.RespectRobots {
		if err := f.checkRobots(ctx, u); err != nil {
			return "", err
		}
	}

	start := time.Now()
	resp, err := f.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(u.String())
	if err != nil {
		return "", common.Wrap(common.ErrFetchFailed, err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() != http.StatusOK {
		return "", common.Wrapf(common.ErrFetchFailed, "GET %s: HTTP %d", u, resp.StatusCode())
	}

	limited := io.LimitReader(body, f.cfg.MaxBodyBytes+1)
	reader, err := charset.NewReader(limited, resp.Header().Get("Content-Type"))
	if err != nil {
		common.LogDebug("Falling back to raw page encoding", zap.String("url", u.String()), zap.Error(err))
		reader = limited
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", common.Wrap(common.ErrFetchFailed, err)
	}
	if int64(len(data)) > f.cfg.MaxBodyBytes {
		return "", common.Wrapf(common.ErrFetchFailed, "page exceeds %d bytes", f.cfg.MaxBodyBytes)
	}

	common.LogDebug("Fetched page",
		zap.String("url", u.String()),
		zap.Int("bytes", len(data)),
		zap.Duration("duration", time.Since(start)),
	)
	return string(data), nil
}

// checkRobots fails only when robots.txt explicitly disallows the page; an unreachable robots.txt
// allows everything.
func (f *Fetcher) checkRobots(ctx context.Context, u *url.URL) error {
	robotsURL := fmt.Sprintf("%s://%s/robots.txt", u.Scheme, u.Host)
	resp, err := f.client.R().SetContext(ctx).Get(robotsURL)
	if err != nil {
		common.LogWarn("Failed to load robots.txt, ignoring", zap.String("url", robotsURL), zap.Error(err))
		return nil
	}

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode(), resp.Body())
	if err != nil {
		common.LogWarn("Failed to parse robots.txt, ignoring", zap.String("url", robotsURL), zap.Error(err))
		return nil
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if !data.FindGroup(f.cfg.UserAgent).Test(path) {
		return common.Wrapf(common.ErrDisallowedByRobots, "%s", u)
	}
	return nil
}
