package market

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"housing-radar/internal/common/config"
	commonhttp "housing-radar/internal/common/http"
	"housing-radar/internal/common/logger"
)

func rtmsPayload(rows []map[string]interface{}) []byte {
	payload := map[string]interface{}{
		"tbLnOpendataRtmsV": map[string]interface{}{
			"row": rows,
		},
	}
	data, _ := json.Marshal(payload)
	return data
}

func newTestClient(t *testing.T, serverURL string, withRedis bool) (*Client, *miniredis.Miniredis) {
	cfg := config.SeoulDataConfig{
		APIKey:    "test-key",
		BaseURL:   serverURL,
		BatchSize: 1000,
		CacheTTL:  3600,
	}

	var redisClient *redis.Client
	var mr *miniredis.Miniredis
	if withRedis {
		var err error
		mr, err = miniredis.Run()
		require.NoError(t, err)
		t.Cleanup(mr.Close)
		redisClient = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	}

	return NewClient(cfg, commonhttp.NewClient(5*time.Second), redisClient, logger.NewNoOpLogger()), mr
}

// ==========================
// AGGREGATION TESTS
// ==========================

func TestAggregate(t *testing.T) {
	rows := []rtmsRow{
		{LegalDong: "역삼동", Area: "25.0", Deposit: "10000", Rent: "50"},
		{LegalDong: "역삼동", Area: "28.0", Deposit: "20000", Rent: "70"},
		{LegalDong: "역삼동", Area: "60.0", Deposit: "90000", Rent: "200"}, // outside band
		{LegalDong: "서초동", Area: "25.0", Deposit: "99999", Rent: "999"}, // wrong dong
		{LegalDong: "역삼동", Area: "bad", Deposit: "1", Rent: "1"},        // unparseable
	}

	b := aggregate(rows, "역삼동", 25.0)
	assert.Equal(t, 2, b.Samples)
	assert.Equal(t, 15000.0, b.AvgDeposit)
	assert.Equal(t, 60.0, b.AvgRent)
}

func TestAggregateAreaBandBoundaries(t *testing.T) {
	rows := []rtmsRow{
		{LegalDong: "역삼동", Area: "20.0", Deposit: "100", Rent: "10"}, // exactly -20%
		{LegalDong: "역삼동", Area: "30.0", Deposit: "200", Rent: "20"}, // exactly +20%
		{LegalDong: "역삼동", Area: "19.9", Deposit: "999", Rent: "99"},
		{LegalDong: "역삼동", Area: "30.1", Deposit: "999", Rent: "99"},
	}

	b := aggregate(rows, "역삼동", 25.0)
	assert.Equal(t, 2, b.Samples)
	assert.Equal(t, 150.0, b.AvgDeposit)
}

func TestAggregateNoMatches(t *testing.T) {
	rows := []rtmsRow{
		{LegalDong: "서초동", Area: "25.0", Deposit: "100", Rent: "10"},
	}

	b := aggregate(rows, "역삼동", 25.0)
	assert.Zero(t, b.Samples)
	assert.Zero(t, b.AvgDeposit)
	assert.Zero(t, b.AvgRent)
}

// ==========================
// LOOKUP TESTS
// ==========================

func TestLookup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/test-key/json/tbLnOpendataRtmsV/1/1000/")
		w.Write(rtmsPayload([]map[string]interface{}{
			{"BJDONG_NM": "역삼동", "BLDG_AREA": 25.0, "RENT_GTN": 10000, "RENT_FEE": 50},
			{"BJDONG_NM": "역삼동", "BLDG_AREA": 27.5, "RENT_GTN": 14000, "RENT_FEE": 70},
		}))
	}))
	defer server.Close()

	client, _ := newTestClient(t, server.URL, false)

	b, err := client.Lookup(context.Background(), "역삼동", 25.0)
	require.NoError(t, err)
	assert.Equal(t, 2, b.Samples)
	assert.Equal(t, 12000.0, b.AvgDeposit)
	assert.Equal(t, 60.0, b.AvgRent)
}

func TestLookupEmptyDong(t *testing.T) {
	client, _ := newTestClient(t, "http://unused", false)

	_, err := client.Lookup(context.Background(), "", 25.0)
	assert.Error(t, err)
}

func TestLookupDegradesOnFeedError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, _ := newTestClient(t, server.URL, false)

	b, err := client.Lookup(context.Background(), "역삼동", 25.0)
	require.NoError(t, err)
	assert.Zero(t, b.Samples)
	assert.Zero(t, b.AvgDeposit)
	assert.Zero(t, b.AvgRent)
}

// ==========================
// CACHE TESTS
// ==========================

func TestLookupCachesBaseline(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write(rtmsPayload([]map[string]interface{}{
			{"BJDONG_NM": "역삼동", "BLDG_AREA": 25.0, "RENT_GTN": 10000, "RENT_FEE": 50},
		}))
	}))
	defer server.Close()

	client, mr := newTestClient(t, server.URL, true)

	first, err := client.Lookup(context.Background(), "역삼동", 25.0)
	require.NoError(t, err)
	assert.Equal(t, 1, hits)
	assert.True(t, mr.Exists("market:역삼동:25.0"))

	second, err := client.Lookup(context.Background(), "역삼동", 25.0)
	require.NoError(t, err)
	assert.Equal(t, 1, hits, "second lookup should be served from cache")
	assert.Equal(t, first, second)
}

func TestLookupCacheWriteUsesConfiguredTTL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(rtmsPayload([]map[string]interface{}{
			{"BJDONG_NM": "역삼동", "BLDG_AREA": 25.0, "RENT_GTN": 10000, "RENT_FEE": 50},
		}))
	}))
	defer server.Close()

	db, mock := redismock.NewClientMock()
	cfg := config.SeoulDataConfig{
		APIKey:    "test-key",
		BaseURL:   server.URL,
		BatchSize: 1000,
		CacheTTL:  3600,
	}
	client := NewClient(cfg, commonhttp.NewClient(5*time.Second), db, logger.NewNoOpLogger())

	expected, err := json.Marshal(Baseline{AvgDeposit: 10000, AvgRent: 50, Samples: 1})
	require.NoError(t, err)

	mock.ExpectGet("market:역삼동:25.0").RedisNil()
	mock.ExpectSet("market:역삼동:25.0", expected, time.Hour).SetVal("OK")

	_, err = client.Lookup(context.Background(), "역삼동", 25.0)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
