// Package store persists notices and analysis results in PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"housing-radar/internal/common/logger"
	"housing-radar/internal/models"
)

// Store wraps the SQL connection with the pipeline's queries.
type Store struct {
	db     *sql.DB
	logger logger.Logger
}

func New(db *sql.DB, log logger.Logger) *Store {
	return &Store{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "store"}),
	}
}

// EnsureSchema creates the pipeline tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS housing_notices (
			id BIGSERIAL PRIMARY KEY,
			title TEXT NOT NULL,
			platform TEXT NOT NULL,
			link TEXT NOT NULL,
			notice_date TIMESTAMPTZ,
			start_date TIMESTAMPTZ,
			end_date TIMESTAMPTZ,
			region TEXT,
			address TEXT,
			deposit BIGINT NOT NULL DEFAULT 0,
			rent BIGINT NOT NULL DEFAULT 0,
			area DOUBLE PRECISION,
			lat DOUBLE PRECISION,
			lng DOUBLE PRECISION,
			summary_qualifications TEXT,
			summary_income TEXT,
			summary_assets TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_housing_notices_title ON housing_notices (title)`,
		`CREATE INDEX IF NOT EXISTS idx_housing_notices_region ON housing_notices (region)`,
		`CREATE TABLE IF NOT EXISTS analysis_results (
			id BIGSERIAL PRIMARY KEY,
			notice_id BIGINT NOT NULL,
			score DOUBLE PRECISION NOT NULL,
			price_diff_percent DOUBLE PRECISION NOT NULL,
			summary TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_analysis_results_notice ON analysis_results (notice_id)`,
		`CREATE TABLE IF NOT EXISTS market_prices (
			id BIGSERIAL PRIMARY KEY,
			region_code TEXT,
			legal_dong TEXT NOT NULL,
			avg_deposit BIGINT NOT NULL DEFAULT 0,
			avg_rent BIGINT NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS geocoding_logs (
			id BIGSERIAL PRIMARY KEY,
			address TEXT NOT NULL,
			status TEXT NOT NULL,
			error_message TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// NoticeExists reports whether a notice with exactly this title is stored.
// Titles are the deduplication key: exact match, case-sensitive.
func (s *Store) NoticeExists(ctx context.Context, title string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM housing_notices WHERE title = $1)`, title,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("notice exists check: %w", err)
	}
	return exists, nil
}

// InsertNotice stores a new notice and returns its id.
func (s *Store) InsertNotice(ctx context.Context, n *models.HousingNotice) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO housing_notices
			(title, platform, link, notice_date, start_date, end_date,
			 region, address, deposit, rent, area, lat, lng,
			 summary_qualifications, summary_income, summary_assets)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id`,
		n.Title, n.Platform, n.Link, n.NoticeDate, n.StartDate, n.EndDate,
		n.Region, n.Address, n.Deposit, n.Rent, n.AreaM2, n.Lat, n.Lng,
		n.SummaryQualifications, n.SummaryIncome, n.SummaryAssets,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert notice: %w", err)
	}
	return id, nil
}

// ListNotices returns stored notices, optionally filtered by region, with
// offset/limit pagination.
func (s *Store) ListNotices(ctx context.Context, region string, skip, limit int) ([]models.HousingNotice, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, title, platform, link, notice_date, start_date, end_date,
		       region, address, deposit, rent, area, lat, lng,
		       summary_qualifications, summary_income, summary_assets, created_at
		FROM housing_notices`
	args := []interface{}{}
	if region != "" {
		query += ` WHERE region = $1 ORDER BY id OFFSET $2 LIMIT $3`
		args = append(args, region, skip, limit)
	} else {
		query += ` ORDER BY id OFFSET $1 LIMIT $2`
		args = append(args, skip, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notices: %w", err)
	}
	defer rows.Close()

	return scanNotices(rows)
}

// AllNotices returns every stored notice; the analysis job walks the whole
// table each run.
func (s *Store) AllNotices(ctx context.Context) ([]models.HousingNotice, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, platform, link, notice_date, start_date, end_date,
		       region, address, deposit, rent, area, lat, lng,
		       summary_qualifications, summary_income, summary_assets, created_at
		FROM housing_notices ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("all notices: %w", err)
	}
	defer rows.Close()

	return scanNotices(rows)
}

func scanNotices(rows *sql.Rows) ([]models.HousingNotice, error) {
	var notices []models.HousingNotice
	for rows.Next() {
		var n models.HousingNotice
		var noticeDate, startDate, endDate, createdAt sql.NullTime
		var area, lat, lng sql.NullFloat64
		var region, address, qual, income, assets sql.NullString

		err := rows.Scan(
			&n.ID, &n.Title, &n.Platform, &n.Link, &noticeDate, &startDate,
			&endDate, &region, &address, &n.Deposit, &n.Rent, &area, &lat,
			&lng, &qual, &income, &assets, &createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan notice: %w", err)
		}

		n.NoticeDate = noticeDate.Time
		n.StartDate = startDate.Time
		n.EndDate = endDate.Time
		n.Region = region.String
		n.Address = address.String
		n.AreaM2 = area.Float64
		n.Lat = lat.Float64
		n.Lng = lng.Float64
		n.SummaryQualifications = qual.String
		n.SummaryIncome = income.String
		n.SummaryAssets = assets.String
		n.CreatedAt = createdAt.Time

		notices = append(notices, n)
	}
	return notices, rows.Err()
}

// UpsertAnalysis writes the per-notice analysis verdict, overwriting any
// previous row for the same notice id.
func (s *Store) UpsertAnalysis(ctx context.Context, r *models.AnalysisResult) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO analysis_results (notice_id, score, price_diff_percent, summary)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (notice_id) DO UPDATE SET
			score = EXCLUDED.score,
			price_diff_percent = EXCLUDED.price_diff_percent,
			summary = EXCLUDED.summary`,
		r.NoticeID, r.Score, r.PriceDiffPct, r.Summary,
	)
	if err != nil {
		return fmt.Errorf("upsert analysis: %w", err)
	}
	return nil
}

// GetAnalysis fetches the stored verdict for one notice, sql.ErrNoRows when
// the notice has not been analyzed yet.
func (s *Store) GetAnalysis(ctx context.Context, noticeID int64) (*models.AnalysisResult, error) {
	var r models.AnalysisResult
	var createdAt sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, notice_id, score, price_diff_percent, summary, created_at
		FROM analysis_results WHERE notice_id = $1`, noticeID,
	).Scan(&r.ID, &r.NoticeID, &r.Score, &r.PriceDiffPct, &r.Summary, &createdAt)
	if err != nil {
		return nil, err
	}
	r.CreatedAt = createdAt.Time
	return &r, nil
}

// SaveMarketPrice records a fetched regional baseline.
func (s *Store) SaveMarketPrice(ctx context.Context, p *models.MarketPrice) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO market_prices (region_code, legal_dong, avg_deposit, avg_rent, updated_at)
		VALUES ($1, $2, $3, $4, NOW())`,
		p.RegionCode, p.LegalDong, p.AvgDeposit, p.AvgRent,
	)
	if err != nil {
		return fmt.Errorf("save market price: %w", err)
	}
	return nil
}

// LogGeocodingFailure records a failed geocoding attempt.
func (s *Store) LogGeocodingFailure(ctx context.Context, address, errorMessage string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO geocoding_logs (address, status, error_message)
		VALUES ($1, 'FAILED', $2)`,
		address, errorMessage,
	)
	if err != nil {
		return fmt.Errorf("log geocoding failure: %w", err)
	}
	return nil
}
