package probes

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"

	"trustlens/pkg/logger"
)

// WhoisAger resolves domain age in days from WHOIS creation dates.
// Lookups run through a bounded worker slot set so a burst of
// assessments cannot open an unbounded number of WHOIS connections.
// Successful lookups are memoized; WHOIS data changes on registration
// timescales.
type WhoisAger struct {
	client  *whois.Client
	timeout time.Duration
	slots   chan struct{}
	logger  *logger.Logger

	mu    sync.RWMutex
	cache map[string]int
}

// NewWhoisAger creates the ager with the given concurrency limit.
func NewWhoisAger(timeout time.Duration, workers int, log *logger.Logger) *WhoisAger {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if workers <= 0 {
		workers = 4
	}
	client := whois.NewClient()
	client.SetTimeout(timeout)
	return &WhoisAger{
		client:  client,
		timeout: timeout,
		slots:   make(chan struct{}, workers),
		logger:  log.WithComponent("whois"),
		cache:   make(map[string]int),
	}
}

// AgeDays returns how many days ago the domain was registered. Unknown
// creation dates and lookup failures return an error; the caller treats
// the signal as unknown.
func (w *WhoisAger) AgeDays(ctx context.Context, domain string) (int, error) {
	w.mu.RLock()
	age, ok := w.cache[domain]
	w.mu.RUnlock()
	if ok {
		return age, nil
	}

	select {
	case w.slots <- struct{}{}:
		defer func() { <-w.slots }()
	case <-ctx.Done():
		return 0, ctx.Err()
	}

	raw, err := w.client.Whois(domain)
	if err != nil {
		return 0, fmt.Errorf("whois lookup %s: %w", domain, err)
	}

	parsed, err := whoisparser.Parse(raw)
	if err != nil {
		return 0, fmt.Errorf("whois parse %s: %w", domain, err)
	}
	if parsed.Domain == nil || parsed.Domain.CreatedDateInTime == nil {
		return 0, fmt.Errorf("whois record for %s has no creation date", domain)
	}

	age = int(time.Since(*parsed.Domain.CreatedDateInTime).Hours() / 24)
	if age < 0 {
		age = 0
	}

	w.mu.Lock()
	w.cache[domain] = age
	w.mu.Unlock()

	w.logger.Debug().Str("domain", domain).Int("age_days", age).Msg("resolved domain age")
	return age, nil
}
