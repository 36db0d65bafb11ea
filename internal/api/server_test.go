package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"housing-radar/internal/common/logger"
	"housing-radar/internal/models"
	"housing-radar/internal/search"
)

// ==========================
// TEST FAKES
// ==========================

type fakeLister struct {
	notices []models.HousingNotice
	err     error
	region  string
	skip    int
	limit   int
}

func (f *fakeLister) ListNotices(_ context.Context, region string, skip, limit int) ([]models.HousingNotice, error) {
	f.region, f.skip, f.limit = region, skip, limit
	return f.notices, f.err
}

type fakeSearcher struct {
	hits []search.Hit
	err  error
}

func (f *fakeSearcher) Query(_ context.Context, _ string, _ int) ([]search.Hit, error) {
	return f.hits, f.err
}

type fakeTrigger struct {
	runs int32
}

func (f *fakeTrigger) RunCycle(_ context.Context) {
	atomic.AddInt32(&f.runs, 1)
}

func newTestServer(lister *fakeLister, searcher *fakeSearcher, trigger *fakeTrigger, checks map[string]HealthCheck) *httptest.Server {
	srv := NewServer(lister, searcher, trigger, checks, "housing-radar", logger.NewNoOpLogger())
	return httptest.NewServer(srv.Handler())
}

// ==========================
// ROOT AND HEALTH TESTS
// ==========================

func TestRoot(t *testing.T) {
	ts := newTestServer(&fakeLister{}, &fakeSearcher{}, &fakeTrigger{}, nil)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "housing-radar", body["service"])
	assert.Equal(t, "running", body["status"])
}

func TestUnknownPath(t *testing.T) {
	ts := newTestServer(&fakeLister{}, &fakeSearcher{}, &fakeTrigger{}, nil)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	t.Run("all dependencies healthy", func(t *testing.T) {
		checks := map[string]HealthCheck{
			"postgres": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return nil },
		}
		ts := newTestServer(&fakeLister{}, &fakeSearcher{}, &fakeTrigger{}, checks)
		defer ts.Close()

		resp, err := http.Get(ts.URL + "/healthz")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "ok", body["postgres"])
	})

	t.Run("one dependency down", func(t *testing.T) {
		checks := map[string]HealthCheck{
			"postgres": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return errors.New("connection refused") },
		}
		ts := newTestServer(&fakeLister{}, &fakeSearcher{}, &fakeTrigger{}, checks)
		defer ts.Close()

		resp, err := http.Get(ts.URL + "/healthz")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})
}

// ==========================
// NOTICE LISTING TESTS
// ==========================

func TestListNotices(t *testing.T) {
	lister := &fakeLister{notices: []models.HousingNotice{
		{ID: 1, Title: "강남구 청년 매입임대주택", Region: "Gangnam-gu"},
	}}
	ts := newTestServer(lister, &fakeSearcher{}, &fakeTrigger{}, nil)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/notices?region=Gangnam-gu&skip=10&limit=5")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Gangnam-gu", lister.region)
	assert.Equal(t, 10, lister.skip)
	assert.Equal(t, 5, lister.limit)

	var notices []models.HousingNotice
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&notices))
	require.Len(t, notices, 1)
	assert.Equal(t, int64(1), notices[0].ID)
}

func TestListNoticesDefaults(t *testing.T) {
	lister := &fakeLister{}
	ts := newTestServer(lister, &fakeSearcher{}, &fakeTrigger{}, nil)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/notices?skip=abc")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0, lister.skip, "bad skip falls back to default")
	assert.Equal(t, 100, lister.limit)

	var notices []models.HousingNotice
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&notices))
	assert.NotNil(t, notices, "empty list must encode as [] not null")
}

func TestListNoticesStoreError(t *testing.T) {
	lister := &fakeLister{err: errors.New("db down")}
	ts := newTestServer(lister, &fakeSearcher{}, &fakeTrigger{}, nil)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/notices")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

// ==========================
// SEARCH TESTS
// ==========================

func TestSearch(t *testing.T) {
	searcher := &fakeSearcher{hits: []search.Hit{{ID: 42, Title: "청년 매입임대주택", Score: 2.4}}}
	ts := newTestServer(&fakeLister{}, searcher, &fakeTrigger{}, nil)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/notices/search?q=청년")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var hits []search.Hit
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&hits))
	require.Len(t, hits, 1)
	assert.Equal(t, int64(42), hits[0].ID)
}

func TestSearchMissingQuery(t *testing.T) {
	ts := newTestServer(&fakeLister{}, &fakeSearcher{}, &fakeTrigger{}, nil)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/notices/search")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSearchBackendError(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("es down")}
	ts := newTestServer(&fakeLister{}, searcher, &fakeTrigger{}, nil)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/notices/search?q=청년")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

// ==========================
// FORCE SCRAPE TESTS
// ==========================

func TestForceScrape(t *testing.T) {
	trigger := &fakeTrigger{}
	ts := newTestServer(&fakeLister{}, &fakeSearcher{}, trigger, nil)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/force-scrape", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&trigger.runs) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestForceScrapeRequiresPost(t *testing.T) {
	ts := newTestServer(&fakeLister{}, &fakeSearcher{}, &fakeTrigger{}, nil)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/force-scrape")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

// ==========================
// METRICS ENDPOINT TESTS
// ==========================

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(&fakeLister{}, &fakeSearcher{}, &fakeTrigger{}, nil)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
