// Package scan caches the latest detection state per session so the confirm
// endpoint reads counts from memory instead of replaying the stream.
package scan

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wattanaa/ecopoint/internal/models"
)

type entry struct {
	update     models.ScanUpdate
	recordedAt time.Time
}

// Registry keeps the most recent update for every live scan session. The
// smoothed counts in the newest update already summarize the whole window,
// so one entry per session is all confirmation needs.
type Registry struct {
	mu     sync.RWMutex
	latest map[uuid.UUID]entry
	now    func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{latest: make(map[uuid.UUID]entry), now: time.Now}
}

// Record stores the update, replacing any previous one for the session.
func (r *Registry) Record(update models.ScanUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.latest[update.SessionID] = entry{update: update, recordedAt: r.now()}
}

// Latest returns the newest update for the session, if any arrived.
func (r *Registry) Latest(sessionID uuid.UUID) (models.ScanUpdate, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.latest[sessionID]
	return e.update, ok
}

// Counts returns the smoothed counts for the session; zero counts when no
// frame has been processed yet.
func (r *Registry) Counts(sessionID uuid.UUID) models.CategoryCount {
	update, ok := r.Latest(sessionID)
	if !ok {
		return models.CategoryCount{}
	}
	return update.Counts
}

// Forget drops the session's cached state after confirmation or stop.
func (r *Registry) Forget(sessionID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.latest, sessionID)
}

// PruneOlderThan drops entries that have not been refreshed within maxAge.
// Sessions that were stopped or abandoned without confirming never call
// Forget, so a periodic prune keeps the cache from growing unbounded.
// Returns the number of entries removed.
func (r *Registry) PruneOlderThan(maxAge time.Duration) int {
	cutoff := r.now().Add(-maxAge)
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, e := range r.latest {
		if e.recordedAt.Before(cutoff) {
			delete(r.latest, id)
			removed++
		}
	}
	return removed
}

// Len reports how many sessions have cached state.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.latest)
}
