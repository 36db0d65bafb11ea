// Package models holds the persisted records shared across the pipeline.
package models

import "time"

// Platform identifies the notice source site.
type Platform string

const (
	PlatformSH     Platform = "SH"
	PlatformLH     Platform = "LH"
	PlatformMyHome Platform = "MYHOME"
)

// HousingNotice is one collected rental-housing announcement. Title is the
// deduplication key: exact string match, case-sensitive.
type HousingNotice struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Platform   Platform  `json:"platform"`
	Link       string    `json:"link"`
	NoticeDate time.Time `json:"noticeDate"`
	StartDate  time.Time `json:"startDate"`
	EndDate    time.Time `json:"endDate"`
	Region     string    `json:"region"`
	Address    string    `json:"address"`
	Deposit    int64     `json:"deposit"`
	Rent       int64     `json:"rent"`
	AreaM2     float64   `json:"area"`
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`

	SummaryQualifications string `json:"summaryQualifications"`
	SummaryIncome         string `json:"summaryIncome"`
	SummaryAssets         string `json:"summaryAssets"`

	CreatedAt time.Time `json:"createdAt"`
}

// AnalysisResult is the per-notice affordability verdict, upserted on every
// analysis run (one row per notice id).
type AnalysisResult struct {
	ID           int64     `json:"id"`
	NoticeID     int64     `json:"noticeId"`
	Score        float64   `json:"score"`
	PriceDiffPct float64   `json:"priceDiffPercent"`
	Summary      string    `json:"summary"`
	CreatedAt    time.Time `json:"createdAt"`
}

// MarketPrice is a cached regional market baseline keyed by legal dong.
type MarketPrice struct {
	ID         int64     `json:"id"`
	RegionCode string    `json:"regionCode"`
	LegalDong  string    `json:"legalDong"`
	AvgDeposit int64     `json:"avgDeposit"`
	AvgRent    int64     `json:"avgRent"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// GeocodingLog records a geocoding attempt outcome for later inspection.
type GeocodingLog struct {
	ID           int64     `json:"id"`
	Address      string    `json:"address"`
	Status       string    `json:"status"`
	ErrorMessage string    `json:"errorMessage"`
	CreatedAt    time.Time `json:"createdAt"`
}
