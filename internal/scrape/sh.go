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

// SHScraper reads the SH corporation notice board.
type SHScraper struct {
	http    *commonhttp.Client
	logger  logger.Logger
	listURL string
	baseURL string
	maxRows int
}

func NewSHScraper(cfg config.ScrapersConfig, httpClient *commonhttp.Client, log logger.Logger) *SHScraper {
	return &SHScraper{
		http:    httpClient,
		logger:  log.WithFields(map[string]interface{}{"component": "scraper", "platform": "SH"}),
		listURL: cfg.SH.ListURL,
		baseURL: cfg.SH.BaseURL,
		maxRows: cfg.MaxRows,
	}
}

func (s *SHScraper) Platform() models.Platform {
	return models.PlatformSH
}

func (s *SHScraper) Scrape(ctx context.Context) ([]ScrapedNotice, error) {
	resp, err := s.http.Get(ctx, s.listURL)
	if err != nil {
		metrics.ScrapeFailures.WithLabelValues("SH").Inc()
		return nil, commonerrors.Wrap(commonerrors.ErrCodeScrapePageLoad, "fetching SH list page", err, true)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		metrics.ScrapeFailures.WithLabelValues("SH").Inc()
		return nil, commonerrors.New(commonerrors.ErrCodeScrapePageLoad,
			fmt.Sprintf("SH list page responded with status %d", resp.StatusCode), true)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		metrics.ScrapeFailures.WithLabelValues("SH").Inc()
		return nil, commonerrors.Wrap(commonerrors.ErrCodeScrapeFailed, "parsing SH list page", err, false)
	}

	notices := s.collect(ctx, parseListRows(doc))
	metrics.NoticesScraped.WithLabelValues("SH").Add(float64(len(notices)))
	return notices, nil
}

func (s *SHScraper) collect(ctx context.Context, rows []listRow) []ScrapedNotice {
	var notices []ScrapedNotice
	for _, row := range rows {
		if !isRentalNotice(row.title) {
			continue
		}
		if s.maxRows > 0 && len(notices) >= s.maxRows {
			break
		}

		region, address := RegionFromTitle(row.title)
		n := ScrapedNotice{
			Title:    row.title,
			Link:     resolveLink(s.baseURL, row.href, row.title),
			Platform: models.PlatformSH,
			ListDate: parseListDate(row.dateText),
			Region:   region,
			Address:  address,
		}
		n.RawText = s.fetchDetail(ctx, n.Link)
		notices = append(notices, n)
	}
	return notices
}

// fetchDetail pulls the notice body text. Detail failures are logged but do
// not drop the notice; extraction then works from the title alone.
func (s *SHScraper) fetchDetail(ctx context.Context, link string) string {
	resp, err := s.http.Get(ctx, link)
	if err != nil {
		s.logger.WithError(err).Warn("failed to fetch notice detail", map[string]interface{}{"link": link})
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		s.logger.Warn("notice detail returned non-200", map[string]interface{}{"link": link, "status": resp.StatusCode})
		return ""
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		s.logger.WithError(err).Warn("failed to parse notice detail", map[string]interface{}{"link": link})
		return ""
	}

	text := textContent(doc)
	for _, pdfLink := range pdfLinks(doc) {
		pdfText, err := FetchPDFText(ctx, s.http, resolveLink(s.baseURL, pdfLink, ""))
		if err != nil {
			s.logger.WithError(err).Warn("failed to extract pdf attachment", map[string]interface{}{"link": pdfLink})
			continue
		}
		text += "\n" + pdfText
	}
	return text
}
