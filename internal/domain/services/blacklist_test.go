package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trustlens/pkg/logger"
)

const testFeed = `# test feed
http://evil.example.com/login

https://bad.test/path
this is not a url
http://phish.shop.example/checkout/
`

func TestBlacklistCacheParsesFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testFeed))
	}))
	defer server.Close()

	cache := NewBlacklistCache(server.URL, time.Second, logger.NewDefault())
	cache.RefreshIfStale(context.Background(), time.Hour)

	assert.Equal(t, 3, cache.Len(), "comments, blanks and malformed lines are skipped")
	assert.False(t, cache.LastFetch().IsZero())
}

func TestBlacklistCacheLookups(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testFeed))
	}))
	defer server.Close()

	cache := NewBlacklistCache(server.URL, time.Second, logger.NewDefault())
	cache.RefreshIfStale(context.Background(), time.Hour)

	tests := []struct {
		name  string
		check func() bool
		want  bool
	}{
		{"exact url", func() bool { return cache.ContainsURL("http://evil.example.com/login") }, true},
		{"exact url trailing slash", func() bool { return cache.ContainsURL("http://phish.shop.example/checkout") }, true},
		{"unknown url", func() bool { return cache.ContainsURL("http://evil.example.com/other") }, false},
		{"exact domain", func() bool { return cache.ContainsDomain("bad.test") }, true},
		{"subdomain of listed domain", func() bool { return cache.ContainsDomain("login.evil.example.com") }, true},
		{"unrelated domain", func() bool { return cache.ContainsDomain("good.example.org") }, false},
		{"combined url check", func() bool { return cache.Contains("https://bad.test/anything") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.check())
		})
	}
}

func TestBlacklistCacheStaleSnapshotSurvivesFetchFailure(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) > 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(testFeed))
	}))
	defer server.Close()

	cache := NewBlacklistCache(server.URL, time.Second, logger.NewDefault())
	cache.RefreshIfStale(context.Background(), time.Nanosecond)
	require.Equal(t, 3, cache.Len())
	first := cache.LastFetch()

	time.Sleep(2 * time.Millisecond)
	cache.RefreshIfStale(context.Background(), time.Nanosecond)

	assert.Equal(t, 3, cache.Len(), "failed refresh keeps the stale snapshot")
	assert.Equal(t, first, cache.LastFetch())
	assert.True(t, cache.ContainsDomain("bad.test"))
}

func TestBlacklistCacheFreshSnapshotSkipsFetch(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(testFeed))
	}))
	defer server.Close()

	cache := NewBlacklistCache(server.URL, time.Second, logger.NewDefault())
	cache.RefreshIfStale(context.Background(), time.Hour)
	cache.RefreshIfStale(context.Background(), time.Hour)
	cache.RefreshIfStale(context.Background(), time.Hour)

	assert.Equal(t, int32(1), calls.Load())
}

func TestBlacklistCacheEmptyBeforeFirstFetch(t *testing.T) {
	cache := NewBlacklistCache("http://feed.invalid/urls.txt", time.Second, logger.NewDefault())

	assert.Equal(t, 0, cache.Len())
	assert.False(t, cache.Contains("http://evil.example.com/login"))
}
