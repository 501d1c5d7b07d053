package imagery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"

	"github.com/soundprediction/labelkit/pkg/config"
)

// ErrUnsupportedScheme is wrapped by FetchError for URLs that are neither
// http(s) nor file.
var ErrUnsupportedScheme = errors.New("unsupported url scheme")

// HTTPFetcher fetches images over HTTP(S) with retries, guarded by a circuit
// breaker. file:// URLs are read from the local filesystem.
type HTTPFetcher struct {
	client *resty.Client
	cb     *gobreaker.CircuitBreaker
	logger *slog.Logger
}

// NewHTTPFetcher creates a fetcher from the fetch and circuit breaker settings.
func NewHTTPFetcher(cfg config.FetchConfig, cbCfg config.CircuitBreakerConfig, logger *slog.Logger) *HTTPFetcher {
	if logger == nil {
		logger = slog.Default()
	}

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(cfg.RetryWait).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return r != nil && r.StatusCode() >= 500
		})
	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}

	f := &HTTPFetcher{client: client, logger: logger}
	if cbCfg.Enabled {
		f.cb = gobreaker.NewCircuitBreaker(breakerSettings("image-fetch", cbCfg, logger))
	}
	return f
}

func breakerSettings(name string, cfg config.CircuitBreakerConfig, logger *slog.Logger) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    time.Duration(cfg.Interval) * time.Second,
		Timeout:     time.Duration(cfg.Timeout) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= cfg.ReadyToTripRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				logger.Warn("circuit breaker tripped", "name", name, "from", from.String(), "to", to.String())
			}
		},
	}
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*Image, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}

	switch u.Scheme {
	case "file":
		data, err := os.ReadFile(u.Path)
		if err != nil {
			return nil, &FetchError{URL: rawURL, Err: err}
		}
		return Decode(rawURL, data)
	case "http", "https":
	default:
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("%w %q", ErrUnsupportedScheme, u.Scheme)}
	}

	if f.cb == nil {
		return f.get(ctx, rawURL)
	}
	img, err := f.cb.Execute(func() (interface{}, error) {
		return f.get(ctx, rawURL)
	})
	if err != nil {
		var fe *FetchError
		if errors.As(err, &fe) {
			return nil, err
		}
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	return img.(*Image), nil
}

func (f *HTTPFetcher) get(ctx context.Context, rawURL string) (*Image, error) {
	resp, err := f.client.R().SetContext(ctx).Get(rawURL)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	if !resp.IsSuccess() {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("unexpected status %s", resp.Status())}
	}
	return Decode(rawURL, resp.Body())
}
