// cmd/tools/seed/main.go
//
// Seed loads a handful of sample notices into the store so the API and
// analyzer can be exercised without waiting for a scrape cycle.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"housing-radar/internal/common/config"
	"housing-radar/internal/common/database"
	"housing-radar/internal/common/logger"
	"housing-radar/internal/models"
	"housing-radar/internal/store"
)

func sampleNotices() []models.HousingNotice {
	base := time.Now().UTC().Truncate(24 * time.Hour)
	return []models.HousingNotice{
		{
			Title:                 "강남구 청년 매입임대주택 입주자 모집공고",
			Platform:              models.PlatformSH,
			Link:                  "https://www.i-sh.co.kr/notice/seed-1",
			NoticeDate:            base,
			StartDate:             base.AddDate(0, 0, 5),
			EndDate:               base.AddDate(0, 0, 19),
			Region:                "Gangnam-gu",
			Address:               "서울시 강남구 역삼동 123",
			Deposit:               10000000,
			Rent:                  150000,
			AreaM2:                29.0,
			SummaryQualifications: "무주택, 청년",
			SummaryIncome:         "소득, 중위소득",
			SummaryAssets:         "자산: 3억",
		},
		{
			Title:                 "중구 신혼부부 행복주택 입주자 모집",
			Platform:              models.PlatformLH,
			Link:                  "https://apply.lh.or.kr/notice/seed-2",
			NoticeDate:            base,
			StartDate:             base.AddDate(0, 0, 7),
			EndDate:               base.AddDate(0, 0, 21),
			Region:                "Jung-gu",
			Address:               "서울시 중구 명동 45",
			Deposit:               20000000,
			Rent:                  250000,
			AreaM2:                36.5,
			SummaryQualifications: "무주택, 신혼부부",
			SummaryIncome:         "N/A",
			SummaryAssets:         "N/A",
		},
		{
			Title:                 "마포구 고령자 전세임대 모집공고",
			Platform:              models.PlatformSH,
			Link:                  "https://www.i-sh.co.kr/notice/seed-3",
			NoticeDate:            base,
			StartDate:             base.AddDate(0, 0, 3),
			EndDate:               base.AddDate(0, 0, 17),
			Region:                "Mapo-gu",
			Address:               "서울시 마포구 공덕동 77",
			Deposit:               5000000,
			Rent:                  0,
			AreaM2:                25.0,
			SummaryQualifications: "무주택, 고령자",
			SummaryIncome:         "소득",
			SummaryAssets:         "N/A",
		},
	}
}

func main() {
	configPath := flag.String("config", "", "optional explicit config file")
	flag.Parse()

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFromFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	ctx := context.Background()

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		fmt.Fprintf(os.Stderr, "postgres connection failed: %v\n", err)
		os.Exit(1)
	}
	defer pg.Close()

	st := store.New(pg.DB, log)
	if err := st.EnsureSchema(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "schema bootstrap failed: %v\n", err)
		os.Exit(1)
	}

	var inserted, skipped int
	for _, n := range sampleNotices() {
		exists, err := st.NoticeExists(ctx, n.Title)
		if err != nil {
			fmt.Fprintf(os.Stderr, "duplicate check failed: %v\n", err)
			os.Exit(1)
		}
		if exists {
			skipped++
			continue
		}
		notice := n
		if _, err := st.InsertNotice(ctx, &notice); err != nil {
			fmt.Fprintf(os.Stderr, "insert failed for %q: %v\n", n.Title, err)
			os.Exit(1)
		}
		inserted++
	}

	fmt.Printf("seed complete: %d inserted, %d already present\n", inserted, skipped)
}
