package session

import (
	"sort"
	"sync"

	"github.com/assetpulse/assetpulse-core/internal/models"
)

// Registry hands out one AssetSession per asset id, creating sessions
// on first use. All methods are safe for concurrent callers.
type Registry struct {
	cfg Config

	mu       sync.RWMutex
	sessions map[string]*AssetSession
}

// NewRegistry creates an empty registry; every session it creates
// shares cfg.
func NewRegistry(cfg Config) *Registry {
	return &Registry{cfg: cfg, sessions: make(map[string]*AssetSession)}
}

// Session returns the session for assetID, creating it if absent.
func (r *Registry) Session(assetID string) *AssetSession {
	r.mu.RLock()
	s, ok := r.sessions[assetID]
	r.mu.RUnlock()
	if ok {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok = r.sessions[assetID]; ok {
		return s
	}
	s = NewAssetSession(assetID, r.cfg)
	r.sessions[assetID] = s
	return s
}

// Get returns the session for assetID without creating one.
func (r *Registry) Get(assetID string) (*AssetSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[assetID]
	return s, ok
}

// Ingest routes a reading to its asset's session.
func (r *Registry) Ingest(reading models.SensorReading) (Result, error) {
	return r.Session(reading.AssetID).Ingest(reading)
}

// Assets lists known asset ids in stable order.
func (r *Registry) Assets() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns how many sessions exist.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
