// Package ingest runs the collection pipeline: scrape the portals, extract
// structured fields from the notice text, geocode, and persist.
package ingest

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"housing-radar/internal/common/logger"
	"housing-radar/internal/common/metrics"
	"housing-radar/internal/common/observability"
	"housing-radar/internal/geocode"
	"housing-radar/internal/models"
	"housing-radar/internal/scrape"
	"housing-radar/internal/textextract"
)

// applicationWindowDays is the assumed window length when a notice mentions
// only a single date.
const applicationWindowDays = 14

type NoticeStore interface {
	NoticeExists(ctx context.Context, title string) (bool, error)
	InsertNotice(ctx context.Context, n *models.HousingNotice) (int64, error)
}

type Geocoder interface {
	Resolve(ctx context.Context, address string) (geocode.Point, error)
}

type Indexer interface {
	IndexNotice(ctx context.Context, n *models.HousingNotice) error
}

// Collector drives one collection run across all configured scrapers.
type Collector struct {
	scrapers []scrape.Scraper
	store    NoticeStore
	geocoder Geocoder
	indexer  Indexer
	parser   *textextract.Parser
	logger   logger.Logger
	obs      *observability.Observability
}

func NewCollector(scrapers []scrape.Scraper, store NoticeStore, geocoder Geocoder, indexer Indexer, log logger.Logger, obs *observability.Observability) *Collector {
	return &Collector{
		scrapers: scrapers,
		store:    store,
		geocoder: geocoder,
		indexer:  indexer,
		parser:   textextract.NewParser(),
		logger:   log.WithFields(map[string]interface{}{"component": "collector"}),
		obs:      obs,
	}
}

// Run scrapes every portal once. Scraper failures are isolated: one portal
// being down does not abort the run.
func (c *Collector) Run(ctx context.Context) Report {
	ctx, span := observability.Tracer("ingest").Start(ctx, "collect")
	defer span.End()

	report := Report{RunID: uuid.NewString()}
	runLog := c.logger.WithFields(map[string]interface{}{"run_id": report.RunID})
	started := time.Now()

	runLog.Info("collection run started", nil)
	for _, s := range c.scrapers {
		notices, err := s.Scrape(ctx)
		if err != nil {
			runLog.WithError(err).Error("scraper failed", map[string]interface{}{"platform": string(s.Platform())})
			report.Failures++
			continue
		}
		report.Scraped += len(notices)

		for _, n := range notices {
			c.processNotice(ctx, n, &report, runLog)
		}
	}

	duration := time.Since(started)
	metrics.JobDuration.WithLabelValues("collect").Observe(duration.Seconds())
	if c.obs != nil {
		status := "success"
		if report.Failures > 0 {
			status = "partial"
		}
		c.obs.RecordJobProcessed(ctx, "collect", status)
		c.obs.RecordJobDuration(ctx, "collect", duration, status)
	}

	runLog.Info("collection run finished", map[string]interface{}{
		"scraped":    report.Scraped,
		"saved":      report.Saved,
		"duplicates": report.Duplicates,
		"invalid":    report.Invalid,
		"failures":   report.Failures,
	})
	return report
}

func (c *Collector) processNotice(ctx context.Context, raw scrape.ScrapedNotice, report *Report, runLog logger.Logger) {
	if err := validateNotice(raw); err != nil {
		runLog.WithError(err).Warn("dropping invalid notice", map[string]interface{}{"title": raw.Title})
		report.Invalid++
		return
	}

	exists, err := c.store.NoticeExists(ctx, raw.Title)
	if err != nil {
		runLog.WithError(err).Error("duplicate check failed", map[string]interface{}{"title": raw.Title})
		report.Failures++
		return
	}
	if exists {
		report.Duplicates++
		return
	}

	notice := c.buildNotice(ctx, raw)

	if _, err := c.store.InsertNotice(ctx, notice); err != nil {
		runLog.WithError(err).Error("failed to save notice", map[string]interface{}{"title": raw.Title})
		report.Failures++
		return
	}
	metrics.NoticesSaved.WithLabelValues(string(raw.Platform)).Inc()
	report.Saved++

	if c.indexer != nil {
		if err := c.indexer.IndexNotice(ctx, notice); err != nil {
			runLog.WithError(err).Warn("failed to index notice", map[string]interface{}{"title": raw.Title})
		}
	}
}

// buildNotice turns a scraped notice into a storable record by running text
// extraction on the body and applying the pricing and window policies.
func (c *Collector) buildNotice(ctx context.Context, raw scrape.ScrapedNotice) *models.HousingNotice {
	text := raw.Title
	if raw.RawText != "" {
		text += "\n" + raw.RawText
	}
	parsed := c.parser.Parse(text)

	deposit, rent := textextract.SplitDepositRent(parsed.Amounts)
	start, end := applicationWindow(parsed.Dates, raw.ListDate)

	notice := &models.HousingNotice{
		Title:                 raw.Title,
		Platform:              raw.Platform,
		Link:                  raw.Link,
		NoticeDate:            raw.ListDate,
		StartDate:             start,
		EndDate:               end,
		Region:                raw.Region,
		Address:               raw.Address,
		Deposit:               int64(deposit),
		Rent:                  int64(rent),
		AreaM2:                textextract.MaxAreaOrDefault(parsed.Areas),
		SummaryQualifications: textextract.JoinOrNA(parsed.Keywords.Qualifications),
		SummaryIncome:         textextract.JoinOrNA(parsed.Keywords.Income),
		SummaryAssets:         textextract.JoinOrNA(parsed.Keywords.Assets),
	}

	if c.geocoder != nil && raw.Address != "" {
		if p, err := c.geocoder.Resolve(ctx, raw.Address); err == nil {
			notice.Lat = p.Lat
			notice.Lng = p.Lng
		}
	}
	return notice
}

// applicationWindow derives the application period from the dates mentioned
// in the notice: two or more dates bound the window, a single date opens a
// fixed-length window, and no dates at all fall back to the posting date.
func applicationWindow(dates []string, listDate time.Time) (start, end time.Time) {
	var parsed []time.Time
	for _, d := range dates {
		if t, err := time.Parse("2006-01-02", d); err == nil {
			parsed = append(parsed, t)
		}
	}
	sort.Slice(parsed, func(i, j int) bool { return parsed[i].Before(parsed[j]) })

	switch {
	case len(parsed) >= 2:
		return parsed[0], parsed[len(parsed)-1]
	case len(parsed) == 1:
		return parsed[0], parsed[0].AddDate(0, 0, applicationWindowDays)
	default:
		return listDate, listDate
	}
}
