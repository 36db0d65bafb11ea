package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"housing-radar/internal/common/config"
	commonhttp "housing-radar/internal/common/http"
	"housing-radar/internal/common/logger"
	"housing-radar/internal/models"
)

const listPage = `<html><body>
<table>
  <tr><th>번호</th><th>제목</th><th>담당부서</th><th>등록일</th></tr>
  <tr><td>3</td><td><a href="/notice/3">강남구 청년 매입임대주택 입주자 모집공고</a></td><td>주거복지처</td><td>2026.01.27</td></tr>
  <tr><td>2</td><td><a href="/notice/2">시설 공사 입찰 안내</a></td><td>시설처</td><td>2026.01.26</td></tr>
  <tr><td>1</td><td><a href="/notice/1">행복주택 임대 안내</a></td><td>주거복지처</td><td>26.01.25</td></tr>
</table>
</body></html>`

const detailPage = `<html><body>
<p>신청기간: 2026.02.01 ~ 2026.02.15</p>
<p>보증금 1,000만원 / 월 임대료 150,000원 / 전용면적 29m2</p>
</body></html>`

func parseHTML(t *testing.T, raw string) *html.Node {
	doc, err := html.Parse(strings.NewReader(raw))
	require.NoError(t, err)
	return doc
}

// ==========================
// REGION RESOLUTION TESTS
// ==========================

func TestRegionFromTitle(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		region  string
		address string
	}{
		{
			name:    "district keyword in title",
			title:   "강남구 청년 매입임대주택 모집",
			region:  "Gangnam-gu",
			address: "서울시 강남구청",
		},
		{
			name:    "jung-gu is matched on the full keyword",
			title:   "중구 행복주택 입주자 모집",
			region:  "Jung-gu",
			address: "서울시 중구청",
		},
		{
			name:    "dongdaemun wins over shorter keywords",
			title:   "동대문구 임대주택 공급",
			region:  "Dongdaemun-gu",
			address: "서울시 동대문구청",
		},
		{
			name:    "no district falls back to city hall",
			title:   "2026년 주거복지 정책 안내",
			region:  "Seoul",
			address: "서울시청",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			region, address := RegionFromTitle(tt.title)
			assert.Equal(t, tt.region, region)
			assert.Equal(t, tt.address, address)
		})
	}
}

// ==========================
// LIST PARSING TESTS
// ==========================

func TestParseListRows(t *testing.T) {
	rows := parseListRows(parseHTML(t, listPage))
	require.Len(t, rows, 3)

	assert.Equal(t, "강남구 청년 매입임대주택 입주자 모집공고", rows[0].title)
	assert.Equal(t, "/notice/3", rows[0].href)
	assert.Equal(t, "2026.01.27", rows[0].dateText)
	assert.Equal(t, "26.01.25", rows[2].dateText)
}

func TestIsRentalNotice(t *testing.T) {
	assert.True(t, isRentalNotice("행복주택 임대 안내"))
	assert.True(t, isRentalNotice("입주자 모집공고"))
	assert.False(t, isRentalNotice("시설 공사 입찰 안내"))
}

func TestParseListDate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want time.Time
	}{
		{"dotted date", "2026.01.27", time.Date(2026, 1, 27, 0, 0, 0, 0, time.UTC)},
		{"two digit year", "26.01.25", time.Date(2026, 1, 25, 0, 0, 0, 0, time.UTC)},
		{"single digit month and day", "2026-3-5", time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)},
		{"no date", "게시판", time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseListDate(tt.in))
		})
	}
}

func TestResolveLink(t *testing.T) {
	base := "https://www.i-sh.co.kr"

	assert.Equal(t, "https://www.i-sh.co.kr/notice/9", resolveLink(base, "/notice/9", "t"))
	assert.Equal(t, "https://other.example.com/x", resolveLink(base, "https://other.example.com/x", "t"))
	assert.Equal(t, "https://www.i-sh.co.kr/view?id=1", resolveLink(base, "view?id=1", "t"))

	synthetic := resolveLink(base, "", "공고 제목")
	assert.True(t, strings.HasPrefix(synthetic, "https://www.i-sh.co.kr/notice/"))
	assert.Equal(t, synthetic, resolveLink(base, "", "공고 제목"), "synthetic links must be stable")
	assert.NotEqual(t, synthetic, resolveLink(base, "", "다른 제목"))
}

// ==========================
// SH SCRAPER TESTS
// ==========================

func newScraperConfig(serverURL string) config.ScrapersConfig {
	return config.ScrapersConfig{
		MaxRows: 20,
		SH: config.ScraperSource{
			Enabled: true,
			ListURL: serverURL + "/list",
			BaseURL: serverURL,
		},
		LH: config.ScraperSource{
			Enabled: true,
			ListURL: serverURL + "/list",
			BaseURL: serverURL,
		},
	}
}

func TestSHScrape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/list":
			w.Write([]byte(listPage))
		default:
			w.Write([]byte(detailPage))
		}
	}))
	defer server.Close()

	s := NewSHScraper(newScraperConfig(server.URL), commonhttp.NewClient(5*time.Second), logger.NewNoOpLogger())
	assert.Equal(t, models.PlatformSH, s.Platform())

	notices, err := s.Scrape(context.Background())
	require.NoError(t, err)
	require.Len(t, notices, 2, "the tender notice must be filtered out")

	first := notices[0]
	assert.Equal(t, "강남구 청년 매입임대주택 입주자 모집공고", first.Title)
	assert.Equal(t, server.URL+"/notice/3", first.Link)
	assert.Equal(t, "Gangnam-gu", first.Region)
	assert.Equal(t, "서울시 강남구청", first.Address)
	assert.Equal(t, time.Date(2026, 1, 27, 0, 0, 0, 0, time.UTC), first.ListDate)
	assert.Contains(t, first.RawText, "1,000만원")

	second := notices[1]
	assert.Equal(t, "Seoul", second.Region)
	assert.Equal(t, "서울시청", second.Address)
}

func TestSHScrapeMaxRows(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/list" {
			w.Write([]byte(listPage))
			return
		}
		w.Write([]byte(detailPage))
	}))
	defer server.Close()

	cfg := newScraperConfig(server.URL)
	cfg.MaxRows = 1

	s := NewSHScraper(cfg, commonhttp.NewClient(5*time.Second), logger.NewNoOpLogger())
	notices, err := s.Scrape(context.Background())
	require.NoError(t, err)
	assert.Len(t, notices, 1)
}

func TestSHScrapeListPageError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	s := NewSHScraper(newScraperConfig(server.URL), commonhttp.NewClient(5*time.Second), logger.NewNoOpLogger())
	_, err := s.Scrape(context.Background())
	assert.Error(t, err)
}

func TestSHScrapeDetailFailureKeepsNotice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/list" {
			w.Write([]byte(listPage))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	s := NewSHScraper(newScraperConfig(server.URL), commonhttp.NewClient(5*time.Second), logger.NewNoOpLogger())
	notices, err := s.Scrape(context.Background())
	require.NoError(t, err)
	require.Len(t, notices, 2)
	assert.Empty(t, notices[0].RawText)
}

// ==========================
// LH SCRAPER TESTS
// ==========================

func TestLHScrape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(listPage))
	}))
	defer server.Close()

	s := NewLHScraper(newScraperConfig(server.URL), commonhttp.NewClient(5*time.Second), logger.NewNoOpLogger())
	assert.Equal(t, models.PlatformLH, s.Platform())

	notices, err := s.Scrape(context.Background())
	require.NoError(t, err)
	require.Len(t, notices, 2)
	assert.Equal(t, models.PlatformLH, notices[0].Platform)
	assert.Empty(t, notices[0].RawText, "LH rows carry title metadata only")
}
