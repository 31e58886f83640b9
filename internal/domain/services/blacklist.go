package services

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"trustlens/pkg/logger"
)

// DefaultBlacklistTTL is how long a fetched feed snapshot stays fresh.
const DefaultBlacklistTTL = time.Hour

// BlacklistCache holds an in-memory snapshot of a newline-delimited URL
// blacklist feed. Lookups never block on the network: callers refresh
// explicitly via RefreshIfStale and a stale snapshot remains usable until
// a newer fetch succeeds.
//
// The check-then-fetch is deliberately unsynchronized. Two concurrent
// callers that both see a stale snapshot both fetch; whichever swap lands
// last wins. The overwrite is idempotent so the race is harmless.
type BlacklistCache struct {
	feedURL string
	client  *http.Client
	logger  *logger.Logger
	snap    atomic.Pointer[blacklistSnapshot]
}

type blacklistSnapshot struct {
	urls      map[string]struct{}
	domains   map[string]struct{}
	fetchedAt time.Time
}

// NewBlacklistCache creates a cache for the given feed URL. The cache
// starts empty; call RefreshIfStale before the first lookup.
func NewBlacklistCache(feedURL string, timeout time.Duration, log *logger.Logger) *BlacklistCache {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c := &BlacklistCache{
		feedURL: feedURL,
		client:  &http.Client{Timeout: timeout},
		logger:  log.WithComponent("blacklist"),
	}
	c.snap.Store(&blacklistSnapshot{
		urls:    map[string]struct{}{},
		domains: map[string]struct{}{},
	})
	return c
}

// RefreshIfStale fetches the feed when the current snapshot is older than
// ttl. Fetch failures are logged and leave the previous snapshot in place.
func (c *BlacklistCache) RefreshIfStale(ctx context.Context, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultBlacklistTTL
	}
	cur := c.snap.Load()
	if time.Since(cur.fetchedAt) < ttl {
		return
	}

	next, err := c.fetch(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Str("feed", c.feedURL).Msg("blacklist refresh failed, keeping stale snapshot")
		return
	}
	c.snap.Store(next)
	c.logger.Info().Int("urls", len(next.urls)).Int("domains", len(next.domains)).Msg("blacklist refreshed")
}

func (c *BlacklistCache) fetch(ctx context.Context) (*blacklistSnapshot, error) {
	if c.feedURL == "" {
		return nil, fmt.Errorf("no feed URL configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	return c.parse(resp.Body)
}

// parse reads the newline-delimited feed, one URL per line. Blank lines,
// comments and unparseable lines are skipped without failing the batch.
func (c *BlacklistCache) parse(r io.Reader) (*blacklistSnapshot, error) {
	snap := &blacklistSnapshot{
		urls:      make(map[string]struct{}),
		domains:   make(map[string]struct{}),
		fetchedAt: time.Now(),
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parsed, err := url.Parse(line)
		if err != nil || parsed.Hostname() == "" {
			c.logger.Debug().Str("line", line).Msg("skipping malformed feed line")
			continue
		}

		snap.urls[normalizeBlacklistURL(line)] = struct{}{}
		snap.domains[strings.ToLower(parsed.Hostname())] = struct{}{}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read feed: %w", err)
	}

	return snap, nil
}

// ContainsURL reports whether the exact URL is blacklisted.
func (c *BlacklistCache) ContainsURL(rawURL string) bool {
	snap := c.snap.Load()
	_, ok := snap.urls[normalizeBlacklistURL(rawURL)]
	return ok
}

// ContainsDomain reports whether the host, or any parent domain of it,
// is blacklisted. "login.evil.example.com" matches a feed entry whose
// host is "evil.example.com".
func (c *BlacklistCache) ContainsDomain(host string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if host == "" {
		return false
	}

	snap := c.snap.Load()
	labels := strings.Split(host, ".")
	for i := 0; i < len(labels)-1; i++ {
		candidate := strings.Join(labels[i:], ".")
		if _, ok := snap.domains[candidate]; ok {
			return true
		}
	}
	return false
}

// Contains reports whether either the exact URL or its host is blacklisted.
func (c *BlacklistCache) Contains(rawURL string) bool {
	if c.ContainsURL(rawURL) {
		return true
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return c.ContainsDomain(parsed.Hostname())
}

// Len returns the number of blacklisted URLs in the current snapshot.
func (c *BlacklistCache) Len() int {
	return len(c.snap.Load().urls)
}

// LastFetch returns when the current snapshot was fetched. Zero for the
// initial empty snapshot.
func (c *BlacklistCache) LastFetch() time.Time {
	return c.snap.Load().fetchedAt
}

func normalizeBlacklistURL(raw string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(raw)), "/")
}
