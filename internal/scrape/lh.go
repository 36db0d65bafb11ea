package scrape

import (
	"context"
	"fmt"

	"golang.org/x/net/html"

	"housing-radar/internal/common/config"
	commonerrors "housing-radar/internal/common/errors"
	commonhttp "housing-radar/internal/common/http"
	"housing-radar/internal/common/logger"
	"housing-radar/internal/common/metrics"
	"housing-radar/internal/models"
)

// LHScraper reads the LH corporation announcement board. The board uses the
// same plain-table layout as SH but paginates server side, so only the
// first page is read per run.
type LHScraper struct {
	http    *commonhttp.Client
	logger  logger.Logger
	listURL string
	baseURL string
	maxRows int
}

func NewLHScraper(cfg config.ScrapersConfig, httpClient *commonhttp.Client, log logger.Logger) *LHScraper {
	return &LHScraper{
		http:    httpClient,
		logger:  log.WithFields(map[string]interface{}{"component": "scraper", "platform": "LH"}),
		listURL: cfg.LH.ListURL,
		baseURL: cfg.LH.BaseURL,
		maxRows: cfg.MaxRows,
	}
}

func (s *LHScraper) Platform() models.Platform {
	return models.PlatformLH
}

func (s *LHScraper) Scrape(ctx context.Context) ([]ScrapedNotice, error) {
	resp, err := s.http.Get(ctx, s.listURL)
	if err != nil {
		metrics.ScrapeFailures.WithLabelValues("LH").Inc()
		return nil, commonerrors.Wrap(commonerrors.ErrCodeScrapePageLoad, "fetching LH list page", err, true)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		metrics.ScrapeFailures.WithLabelValues("LH").Inc()
		return nil, commonerrors.New(commonerrors.ErrCodeScrapePageLoad,
			fmt.Sprintf("LH list page responded with status %d", resp.StatusCode), true)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		metrics.ScrapeFailures.WithLabelValues("LH").Inc()
		return nil, commonerrors.Wrap(commonerrors.ErrCodeScrapeFailed, "parsing LH list page", err, false)
	}

	var notices []ScrapedNotice
	for _, row := range parseListRows(doc) {
		if !isRentalNotice(row.title) {
			continue
		}
		if s.maxRows > 0 && len(notices) >= s.maxRows {
			break
		}

		region, address := RegionFromTitle(row.title)
		notices = append(notices, ScrapedNotice{
			Title:    row.title,
			Link:     resolveLink(s.baseURL, row.href, row.title),
			Platform: models.PlatformLH,
			ListDate: parseListDate(row.dateText),
			Region:   region,
			Address:  address,
		})
	}
	metrics.NoticesScraped.WithLabelValues("LH").Add(float64(len(notices)))
	return notices, nil
}
