// Package market fetches regional monthly-rent baselines from the Seoul open
// data RTMS feed.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/redis/go-redis/v9"

	"housing-radar/internal/common/config"
	commonerrors "housing-radar/internal/common/errors"
	commonhttp "housing-radar/internal/common/http"
	"housing-radar/internal/common/logger"
	"housing-radar/internal/common/metrics"
)

// areaBand is the tolerated deviation from the notice area when selecting
// comparable market rows.
const areaBand = 0.20

// Baseline is the averaged market price for one legal dong and area band.
type Baseline struct {
	AvgDeposit float64 `json:"avg_deposit"`
	AvgRent    float64 `json:"avg_rent"`
	Samples    int     `json:"samples"`
}

// Client queries tbLnOpendataRtmsV and caches per-dong baselines in Redis.
type Client struct {
	http      *commonhttp.Client
	redis     *redis.Client
	logger    logger.Logger
	apiKey    string
	baseURL   string
	batchSize int
	cacheTTL  time.Duration
}

func NewClient(cfg config.SeoulDataConfig, httpClient *commonhttp.Client, redisClient *redis.Client, log logger.Logger) *Client {
	return &Client{
		http:      httpClient,
		redis:     redisClient,
		logger:    log.WithFields(map[string]interface{}{"component": "market"}),
		apiKey:    cfg.APIKey,
		baseURL:   cfg.BaseURL,
		batchSize: cfg.BatchSize,
		cacheTTL:  config.GetTTL(cfg.CacheTTL),
	}
}

type rtmsResponse struct {
	Service struct {
		Rows []rtmsRow `json:"row"`
	} `json:"tbLnOpendataRtmsV"`
}

type rtmsRow struct {
	LegalDong string      `json:"BJDONG_NM"`
	Area      json.Number `json:"BLDG_AREA"`
	Deposit   json.Number `json:"RENT_GTN"`
	Rent      json.Number `json:"RENT_FEE"`
}

// Lookup returns the average deposit and rent for transactions in legalDong
// whose building area is within 20% of areaM2. When the feed is unreachable
// or no comparable transactions exist it degrades to a zero baseline so the
// analysis can still proceed.
func (c *Client) Lookup(ctx context.Context, legalDong string, areaM2 float64) (Baseline, error) {
	if legalDong == "" {
		metrics.MarketLookups.WithLabelValues("skipped").Inc()
		return Baseline{}, commonerrors.NewMarketDataMissing("no legal dong to match against")
	}

	cacheKey := fmt.Sprintf("market:%s:%.1f", legalDong, areaM2)
	if c.redis != nil {
		if cached, err := c.redis.Get(ctx, cacheKey).Result(); err == nil {
			var b Baseline
			if err := json.Unmarshal([]byte(cached), &b); err == nil {
				metrics.MarketLookups.WithLabelValues("cache_hit").Inc()
				return b, nil
			}
		}
	}

	rows, err := c.fetchRows(ctx)
	if err != nil {
		c.logger.WithError(err).Warn("market feed unavailable, degrading to zero baseline", nil)
		metrics.MarketLookups.WithLabelValues("feed_error").Inc()
		return Baseline{}, nil
	}

	b := aggregate(rows, legalDong, areaM2)
	if b.Samples == 0 {
		metrics.MarketLookups.WithLabelValues("no_match").Inc()
	} else {
		metrics.MarketLookups.WithLabelValues("ok").Inc()
	}

	if c.redis != nil {
		if payload, err := json.Marshal(b); err == nil {
			if err := c.redis.Set(ctx, cacheKey, payload, c.cacheTTL).Err(); err != nil {
				c.logger.WithError(err).Warn("failed to cache market baseline", nil)
			}
		}
	}
	return b, nil
}

func (c *Client) fetchRows(ctx context.Context) ([]rtmsRow, error) {
	url := fmt.Sprintf("%s/%s/json/tbLnOpendataRtmsV/1/%d/", c.baseURL, c.apiKey, c.batchSize)
	resp, err := c.http.Get(ctx, url)
	if err != nil {
		return nil, commonerrors.Wrap(commonerrors.ErrCodeMarketAPIFailed, "rtms request failed", err, true)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, commonerrors.New(commonerrors.ErrCodeMarketAPIFailed,
			fmt.Sprintf("rtms responded with status %d", resp.StatusCode), true)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, commonerrors.Wrap(commonerrors.ErrCodeMarketAPIFailed, "reading rtms response", err, true)
	}

	var parsed rtmsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, commonerrors.Wrap(commonerrors.ErrCodeMarketAPIFailed, "decoding rtms response", err, false)
	}
	return parsed.Service.Rows, nil
}

// aggregate averages deposit and rent over rows matching the dong and the
// area band. Rows with unparseable numbers are skipped, not fatal.
func aggregate(rows []rtmsRow, legalDong string, areaM2 float64) Baseline {
	low := areaM2 * (1 - areaBand)
	high := areaM2 * (1 + areaBand)

	var depositSum, rentSum float64
	var count int
	for _, row := range rows {
		if row.LegalDong != legalDong {
			continue
		}
		area, err := row.Area.Float64()
		if err != nil || area < low || area > high {
			continue
		}
		deposit, err := row.Deposit.Float64()
		if err != nil {
			continue
		}
		rent, err := row.Rent.Float64()
		if err != nil {
			continue
		}
		depositSum += deposit
		rentSum += rent
		count++
	}

	if count == 0 {
		return Baseline{}
	}
	return Baseline{
		AvgDeposit: round2(depositSum / float64(count)),
		AvgRent:    round2(rentSum / float64(count)),
		Samples:    count,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
