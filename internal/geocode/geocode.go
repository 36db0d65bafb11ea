// Package geocode resolves road addresses to coordinates through the Kakao
// local search API.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"housing-radar/internal/common/config"
	commonerrors "housing-radar/internal/common/errors"
	commonhttp "housing-radar/internal/common/http"
	"housing-radar/internal/common/logger"
	"housing-radar/internal/common/metrics"
)

// Point is a WGS84 coordinate pair.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// FailureLogger records addresses the geocoder could not resolve. The store
// implements it with the geocoding_logs table.
type FailureLogger interface {
	LogGeocodingFailure(ctx context.Context, address, errorMessage string) error
}

// Client calls the Kakao address search endpoint and caches resolved points.
type Client struct {
	http     *commonhttp.Client
	redis    *redis.Client
	failures FailureLogger
	logger   logger.Logger
	apiKey   string
	baseURL  string
	cacheTTL time.Duration
	minGap   time.Duration
	lastCall time.Time
}

// Option configures an optional client behavior.
type Option func(*Client)

// WithMinRequestGap spaces consecutive upstream calls at least gap apart.
func WithMinRequestGap(gap time.Duration) Option {
	return func(c *Client) {
		c.minGap = gap
	}
}

// WithFailureLogger records unresolvable addresses through fl.
func WithFailureLogger(fl FailureLogger) Option {
	return func(c *Client) {
		c.failures = fl
	}
}

func NewClient(cfg config.KakaoConfig, httpClient *commonhttp.Client, redisClient *redis.Client, log logger.Logger, opts ...Option) *Client {
	c := &Client{
		http:     httpClient,
		redis:    redisClient,
		logger:   log.WithFields(map[string]interface{}{"component": "geocode"}),
		apiKey:   cfg.APIKey,
		baseURL:  cfg.BaseURL,
		cacheTTL: config.GetTTL(cfg.CacheTTL),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type kakaoResponse struct {
	Documents []struct {
		Y string `json:"y"`
		X string `json:"x"`
	} `json:"documents"`
}

// Resolve returns the coordinates for address. Resolution failures are
// recorded and surfaced as an error; callers treat the notice as ungeocoded
// rather than dropping it.
func (c *Client) Resolve(ctx context.Context, address string) (Point, error) {
	if address == "" {
		return Point{}, commonerrors.New(commonerrors.ErrCodeGeocodeFailed, "empty address", false)
	}

	cacheKey := "geocode:" + address
	if c.redis != nil {
		if cached, err := c.redis.Get(ctx, cacheKey).Result(); err == nil {
			var p Point
			if err := json.Unmarshal([]byte(cached), &p); err == nil {
				metrics.GeocodeRequests.WithLabelValues("cache_hit").Inc()
				return p, nil
			}
		}
	}

	p, err := c.fetch(ctx, address)
	if err != nil {
		metrics.GeocodeRequests.WithLabelValues("failed").Inc()
		if c.failures != nil {
			if logErr := c.failures.LogGeocodingFailure(ctx, address, err.Error()); logErr != nil {
				c.logger.WithError(logErr).Warn("failed to record geocoding failure", nil)
			}
		}
		return Point{}, err
	}
	metrics.GeocodeRequests.WithLabelValues("ok").Inc()

	if c.redis != nil {
		if payload, err := json.Marshal(p); err == nil {
			if err := c.redis.Set(ctx, cacheKey, payload, c.cacheTTL).Err(); err != nil {
				c.logger.WithError(err).Warn("failed to cache geocode result", nil)
			}
		}
	}
	return p, nil
}

func (c *Client) fetch(ctx context.Context, address string) (Point, error) {
	c.throttle()

	endpoint := fmt.Sprintf("%s/v2/local/search/address.json?query=%s", c.baseURL, url.QueryEscape(address))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Point{}, commonerrors.Wrap(commonerrors.ErrCodeGeocodeFailed, "building kakao request", err, false)
	}
	req.Header.Set("Authorization", "KakaoAK "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return Point{}, commonerrors.Wrap(commonerrors.ErrCodeGeocodeFailed, "kakao request failed", err, true)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Point{}, commonerrors.New(commonerrors.ErrCodeGeocodeFailed,
			fmt.Sprintf("kakao responded with status %d", resp.StatusCode), resp.StatusCode >= 500)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Point{}, commonerrors.Wrap(commonerrors.ErrCodeGeocodeFailed, "reading kakao response", err, true)
	}

	var parsed kakaoResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Point{}, commonerrors.Wrap(commonerrors.ErrCodeGeocodeFailed, "decoding kakao response", err, false)
	}
	if len(parsed.Documents) == 0 {
		return Point{}, commonerrors.New(commonerrors.ErrCodeGeocodeFailed, "no match for address", false)
	}

	lat, err := strconv.ParseFloat(parsed.Documents[0].Y, 64)
	if err != nil {
		return Point{}, commonerrors.Wrap(commonerrors.ErrCodeGeocodeFailed, "parsing latitude", err, false)
	}
	lng, err := strconv.ParseFloat(parsed.Documents[0].X, 64)
	if err != nil {
		return Point{}, commonerrors.Wrap(commonerrors.ErrCodeGeocodeFailed, "parsing longitude", err, false)
	}
	return Point{Lat: lat, Lng: lng}, nil
}

func (c *Client) throttle() {
	if c.minGap <= 0 {
		return
	}
	if elapsed := time.Since(c.lastCall); elapsed < c.minGap {
		time.Sleep(c.minGap - elapsed)
	}
	c.lastCall = time.Now()
}
