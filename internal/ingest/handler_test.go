package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"housing-radar/internal/common/logger"
	"housing-radar/internal/geocode"
	"housing-radar/internal/models"
	"housing-radar/internal/scrape"
)

// ==========================
// TEST FAKES
// ==========================

type fakeScraper struct {
	platform models.Platform
	notices  []scrape.ScrapedNotice
	err      error
}

func (f *fakeScraper) Platform() models.Platform { return f.platform }

func (f *fakeScraper) Scrape(_ context.Context) ([]scrape.ScrapedNotice, error) {
	return f.notices, f.err
}

type fakeStore struct {
	existing  map[string]bool
	saved     []*models.HousingNotice
	insertErr error
	existsErr error
}

func (f *fakeStore) NoticeExists(_ context.Context, title string) (bool, error) {
	return f.existing[title], f.existsErr
}

func (f *fakeStore) InsertNotice(_ context.Context, n *models.HousingNotice) (int64, error) {
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	f.saved = append(f.saved, n)
	return int64(len(f.saved)), nil
}

type fakeGeocoder struct {
	point geocode.Point
	err   error
	calls []string
}

func (f *fakeGeocoder) Resolve(_ context.Context, address string) (geocode.Point, error) {
	f.calls = append(f.calls, address)
	return f.point, f.err
}

type fakeIndexer struct {
	indexed []*models.HousingNotice
	err     error
}

func (f *fakeIndexer) IndexNotice(_ context.Context, n *models.HousingNotice) error {
	if f.err != nil {
		return f.err
	}
	f.indexed = append(f.indexed, n)
	return nil
}

func noticeFixture() scrape.ScrapedNotice {
	return scrape.ScrapedNotice{
		Title:    "강남구 청년 매입임대주택 입주자 모집공고",
		Link:     "https://www.i-sh.co.kr/notice/3",
		Platform: models.PlatformSH,
		ListDate: time.Date(2026, 1, 27, 0, 0, 0, 0, time.UTC),
		Region:   "Gangnam-gu",
		Address:  "서울시 강남구청",
		RawText: "신청기간: 2026.02.01 ~ 2026.02.15\n" +
			"보증금 1,000만원 / 월 임대료 150,000원 / 전용면적 29m2\n" +
			"신청자격: 무주택 청년, 중위소득 100% 이하, 자산 기준 충족 세대",
	}
}

func newCollector(store *fakeStore, geo *fakeGeocoder, idx *fakeIndexer, scrapers ...scrape.Scraper) *Collector {
	var g Geocoder
	if geo != nil {
		g = geo
	}
	var i Indexer
	if idx != nil {
		i = idx
	}
	return NewCollector(scrapers, store, g, i, logger.NewNoOpLogger(), nil)
}

// ==========================
// COLLECTION RUN TESTS
// ==========================

func TestRunSavesNewNotice(t *testing.T) {
	store := &fakeStore{existing: map[string]bool{}}
	geo := &fakeGeocoder{point: geocode.Point{Lat: 37.5172, Lng: 127.0473}}
	idx := &fakeIndexer{}
	c := newCollector(store, geo, idx, &fakeScraper{platform: models.PlatformSH, notices: []scrape.ScrapedNotice{noticeFixture()}})

	report := c.Run(context.Background())

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 1, report.Scraped)
	assert.Equal(t, 1, report.Saved)
	assert.Zero(t, report.Duplicates)
	assert.Zero(t, report.Failures)

	require.Len(t, store.saved, 1)
	n := store.saved[0]
	assert.Equal(t, int64(10000000), n.Deposit)
	assert.Equal(t, int64(150000), n.Rent)
	assert.Equal(t, 29.0, n.AreaM2)
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), n.StartDate)
	assert.Equal(t, time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC), n.EndDate)
	assert.Equal(t, 37.5172, n.Lat)
	assert.Contains(t, n.SummaryQualifications, "무주택")
	assert.Contains(t, n.SummaryIncome, "중위소득")

	require.Len(t, geo.calls, 1)
	assert.Equal(t, "서울시 강남구청", geo.calls[0])
	require.Len(t, idx.indexed, 1)
}

func TestRunSkipsDuplicateTitle(t *testing.T) {
	fixture := noticeFixture()
	store := &fakeStore{existing: map[string]bool{fixture.Title: true}}
	c := newCollector(store, nil, nil, &fakeScraper{platform: models.PlatformSH, notices: []scrape.ScrapedNotice{fixture}})

	report := c.Run(context.Background())

	assert.Equal(t, 1, report.Duplicates)
	assert.Zero(t, report.Saved)
	assert.Empty(t, store.saved)
}

func TestRunDropsInvalidPayload(t *testing.T) {
	invalid := noticeFixture()
	invalid.Title = ""
	store := &fakeStore{existing: map[string]bool{}}
	c := newCollector(store, nil, nil, &fakeScraper{platform: models.PlatformSH, notices: []scrape.ScrapedNotice{invalid}})

	report := c.Run(context.Background())

	assert.Equal(t, 1, report.Invalid)
	assert.Zero(t, report.Saved)
}

func TestRunIsolatesScraperFailure(t *testing.T) {
	store := &fakeStore{existing: map[string]bool{}}
	broken := &fakeScraper{platform: models.PlatformLH, err: errors.New("portal down")}
	working := &fakeScraper{platform: models.PlatformSH, notices: []scrape.ScrapedNotice{noticeFixture()}}
	c := newCollector(store, nil, nil, broken, working)

	report := c.Run(context.Background())

	assert.Equal(t, 1, report.Failures)
	assert.Equal(t, 1, report.Saved)
}

func TestRunGeocodeFailureKeepsNotice(t *testing.T) {
	store := &fakeStore{existing: map[string]bool{}}
	geo := &fakeGeocoder{err: errors.New("no match")}
	c := newCollector(store, geo, nil, &fakeScraper{platform: models.PlatformSH, notices: []scrape.ScrapedNotice{noticeFixture()}})

	report := c.Run(context.Background())

	assert.Equal(t, 1, report.Saved)
	require.Len(t, store.saved, 1)
	assert.Zero(t, store.saved[0].Lat)
	assert.Zero(t, store.saved[0].Lng)
}

func TestRunIndexFailureKeepsNotice(t *testing.T) {
	store := &fakeStore{existing: map[string]bool{}}
	idx := &fakeIndexer{err: errors.New("es down")}
	c := newCollector(store, nil, idx, &fakeScraper{platform: models.PlatformSH, notices: []scrape.ScrapedNotice{noticeFixture()}})

	report := c.Run(context.Background())
	assert.Equal(t, 1, report.Saved)
}

func TestRunInsertFailureCounted(t *testing.T) {
	store := &fakeStore{existing: map[string]bool{}, insertErr: errors.New("db down")}
	c := newCollector(store, nil, nil, &fakeScraper{platform: models.PlatformSH, notices: []scrape.ScrapedNotice{noticeFixture()}})

	report := c.Run(context.Background())
	assert.Equal(t, 1, report.Failures)
	assert.Zero(t, report.Saved)
}

// ==========================
// APPLICATION WINDOW TESTS
// ==========================

func TestApplicationWindow(t *testing.T) {
	listDate := time.Date(2026, 1, 27, 0, 0, 0, 0, time.UTC)

	t.Run("two or more dates bound the window", func(t *testing.T) {
		start, end := applicationWindow([]string{"2026-02-10", "2026-02-01", "2026-03-20"}, listDate)
		assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), start)
		assert.Equal(t, time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC), end)
	})

	t.Run("single date opens a two week window", func(t *testing.T) {
		start, end := applicationWindow([]string{"2026-02-01"}, listDate)
		assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), start)
		assert.Equal(t, time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC), end)
	})

	t.Run("no dates falls back to the posting date", func(t *testing.T) {
		start, end := applicationWindow(nil, listDate)
		assert.Equal(t, listDate, start)
		assert.Equal(t, listDate, end)
	})

	t.Run("unparseable dates are ignored", func(t *testing.T) {
		start, end := applicationWindow([]string{"2026-13-45"}, listDate)
		assert.Equal(t, listDate, start)
		assert.Equal(t, listDate, end)
	})
}

// ==========================
// PAYLOAD VALIDATION TESTS
// ==========================

func TestValidateNotice(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*scrape.ScrapedNotice)
		wantErr bool
	}{
		{"valid notice", func(n *scrape.ScrapedNotice) {}, false},
		{"empty title", func(n *scrape.ScrapedNotice) { n.Title = "" }, true},
		{"empty link", func(n *scrape.ScrapedNotice) { n.Link = "" }, true},
		{"unknown platform", func(n *scrape.ScrapedNotice) { n.Platform = "ZIGBANG" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := noticeFixture()
			tt.mutate(&n)
			err := validateNotice(n)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
