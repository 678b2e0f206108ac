package reconcile

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/labstack/gommon/log"
	"uk.co.dudmesh.liveusers/internal/model"
)

const DefaultInterval = 30 * time.Second

// ChangeFeed is the slice of the record store reconciliation needs.
type ChangeFeed interface {
	FindChangedSince(ctx context.Context, cursor time.Time) ([]model.User, error)
}

type Cache interface {
	Upsert(entry model.PresenceEntry, event string) error
}

// Reconcile queries every record created or updated after cursor and returns
// an offline presence entry for each, along with the next cursor. The next
// cursor is taken after the query returns, so a record written while the
// query runs is delivered again on the following pass rather than lost. On
// error the cursor is returned unchanged.
func Reconcile(ctx context.Context, feed ChangeFeed, cursor time.Time, now func() time.Time) (time.Time, []model.PresenceEntry, error) {
	users, err := feed.FindChangedSince(ctx, cursor)
	if err != nil {
		return cursor, nil, fmt.Errorf("querying changed users: %w", err)
	}

	next := now().UTC()
	if next.Before(cursor) {
		next = cursor
	}

	entries := make([]model.PresenceEntry, 0, len(users))
	for i := range users {
		entries = append(entries, model.NewPresenceEntry(&users[i], model.OfflineTag(next)))
	}
	return next, entries, nil
}

// Engine keeps the presence cache loosely in step with the record store.
// Passes are serialised; the cursor only moves forward.
type Engine struct {
	feed     ChangeFeed
	cache    Cache
	log      *log.Logger
	metrics  *Metrics
	interval time.Duration
	now      func() time.Time

	mu     sync.Mutex
	cursor time.Time
}

func New(feed ChangeFeed, cache Cache, interval time.Duration, metrics *Metrics, logger *log.Logger) *Engine {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Engine{
		feed:     feed,
		cache:    cache,
		log:      logger,
		metrics:  metrics,
		interval: interval,
		now:      time.Now,
		cursor:   time.Unix(0, 0).UTC(),
	}
}

func (e *Engine) Cursor() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cursor
}

// Seed loads the whole store into the cache. It runs once at startup, while
// the cursor is still the epoch.
func (e *Engine) Seed(ctx context.Context) (int, error) {
	entries, err := e.pass(ctx)
	if err != nil {
		return 0, err
	}
	e.log.Infof("initialized %d users in live users cache", len(entries))
	return len(entries), nil
}

// Sync runs one reconciliation pass. Failures are logged and produce an
// empty result; they never stop the caller.
func (e *Engine) Sync(ctx context.Context) []model.PresenceEntry {
	entries, err := e.pass(ctx)
	if err != nil {
		e.log.Errorf("failed to sync users with database: %+v", err)
		return []model.PresenceEntry{}
	}
	if len(entries) > 0 {
		e.log.Infof("found and synced %d new or updated users", len(entries))
	}
	return entries
}

func (e *Engine) pass(ctx context.Context) ([]model.PresenceEntry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	next, entries, err := Reconcile(ctx, e.feed, e.cursor, e.now)
	if err != nil {
		e.metrics.observe(false, 0)
		return nil, err
	}

	for _, entry := range entries {
		if err := e.cache.Upsert(entry, model.EventUserAdded); err != nil {
			e.metrics.observe(false, 0)
			return nil, fmt.Errorf("caching user %s: %w", entry.ID, err)
		}
	}

	e.cursor = next
	e.metrics.observe(true, len(entries))
	return entries, nil
}

// Run syncs on every tick until ctx is done.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Sync(ctx)
		}
	}
}
