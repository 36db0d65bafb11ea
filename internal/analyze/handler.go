// Package analyze scores stored notices against market rent baselines.
package analyze

import (
	"context"
	"fmt"
	"strings"
	"time"

	"housing-radar/internal/common/logger"
	"housing-radar/internal/common/metrics"
	"housing-radar/internal/common/observability"
	"housing-radar/internal/market"
	"housing-radar/internal/models"
	"housing-radar/internal/scoring"
)

// wonPerManwon converts the market feed's 만원-denominated rent figures to
// won, the unit notices are stored in.
const wonPerManwon = 10000

type AnalysisStore interface {
	AllNotices(ctx context.Context) ([]models.HousingNotice, error)
	UpsertAnalysis(ctx context.Context, r *models.AnalysisResult) error
	SaveMarketPrice(ctx context.Context, p *models.MarketPrice) error
}

type MarketSource interface {
	Lookup(ctx context.Context, legalDong string, areaM2 float64) (market.Baseline, error)
}

// Notifier receives notices whose score cleared the alert threshold.
type Notifier interface {
	NotifyHighScore(ctx context.Context, n models.HousingNotice, r scoring.Result) error
}

// Analyzer walks the notice table and writes one analysis verdict per
// notice.
type Analyzer struct {
	store     AnalysisStore
	market    MarketSource
	notifier  Notifier
	logger    logger.Logger
	obs       *observability.Observability
	threshold float64
}

func New(store AnalysisStore, marketSource MarketSource, notifier Notifier, threshold float64, log logger.Logger, obs *observability.Observability) *Analyzer {
	return &Analyzer{
		store:     store,
		market:    marketSource,
		notifier:  notifier,
		threshold: threshold,
		logger:    log.WithFields(map[string]interface{}{"component": "analyzer"}),
		obs:       obs,
	}
}

// Report summarizes one analysis run.
type Report struct {
	Analyzed int `json:"analyzed"`
	Alerts   int `json:"alerts"`
	Failures int `json:"failures"`
}

func (a *Analyzer) Run(ctx context.Context) (Report, error) {
	ctx, span := observability.Tracer("analyze").Start(ctx, "analyze")
	defer span.End()

	var report Report
	started := time.Now()

	notices, err := a.store.AllNotices(ctx)
	if err != nil {
		return report, fmt.Errorf("loading notices for analysis: %w", err)
	}

	for _, n := range notices {
		if err := a.analyzeNotice(ctx, n, &report); err != nil {
			a.logger.WithError(err).Error("notice analysis failed", map[string]interface{}{"notice_id": n.ID})
			metrics.NoticesAnalyzed.WithLabelValues("error").Inc()
			report.Failures++
		}
	}

	duration := time.Since(started)
	metrics.JobDuration.WithLabelValues("analyze").Observe(duration.Seconds())
	if a.obs != nil {
		status := "success"
		if report.Failures > 0 {
			status = "partial"
		}
		a.obs.RecordJobProcessed(ctx, "analyze", status)
		a.obs.RecordJobDuration(ctx, "analyze", duration, status)
	}

	a.logger.Info("analysis run finished", map[string]interface{}{
		"analyzed": report.Analyzed,
		"alerts":   report.Alerts,
		"failures": report.Failures,
	})
	return report, nil
}

func (a *Analyzer) analyzeNotice(ctx context.Context, n models.HousingNotice, report *Report) error {
	baseline := a.lookupBaseline(ctx, n)
	result := scoring.Score(baseline.AvgRent*wonPerManwon, float64(n.Rent))

	verdict := &models.AnalysisResult{
		NoticeID:     n.ID,
		Score:        result.Score,
		PriceDiffPct: result.DiffPercent,
		Summary:      fmt.Sprintf("Strict analysis: %.2f%% cheaper", result.DiffPercent),
	}
	if err := a.store.UpsertAnalysis(ctx, verdict); err != nil {
		return err
	}
	metrics.NoticesAnalyzed.WithLabelValues("ok").Inc()
	report.Analyzed++

	if a.notifier != nil && result.Score >= a.threshold {
		report.Alerts++
		if err := a.notifier.NotifyHighScore(ctx, n, result); err != nil {
			a.logger.WithError(err).Warn("failed to send high score alert", map[string]interface{}{"notice_id": n.ID})
		}
	}
	return nil
}

func (a *Analyzer) lookupBaseline(ctx context.Context, n models.HousingNotice) market.Baseline {
	dong := LegalDong(n.Address)
	if dong == "" {
		return market.Baseline{}
	}
	baseline, err := a.market.Lookup(ctx, dong, n.AreaM2)
	if err != nil {
		a.logger.WithError(err).Warn("market lookup failed", map[string]interface{}{"notice_id": n.ID, "legal_dong": dong})
		return market.Baseline{}
	}

	if baseline.Samples > 0 {
		record := &models.MarketPrice{
			LegalDong:  dong,
			AvgDeposit: int64(baseline.AvgDeposit),
			AvgRent:    int64(baseline.AvgRent),
		}
		if err := a.store.SaveMarketPrice(ctx, record); err != nil {
			a.logger.WithError(err).Warn("failed to record market baseline", map[string]interface{}{"legal_dong": dong})
		}
	}
	return baseline
}

// LegalDong extracts the legal dong from a road address, assuming the
// city / district / dong word order. Addresses that do not fit yield an
// empty string and the notice scores without a market baseline.
func LegalDong(address string) string {
	fields := strings.Fields(address)
	if len(fields) < 3 {
		return ""
	}
	return fields[2]
}
