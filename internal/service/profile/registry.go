package profile

import (
	"strings"
	"sync"
	"time"
)

type Profile struct {
	ConnectionID string    `json:"connectionId"`
	Nickname     string    `json:"nickname"`
	Avatar       string    `json:"avatar,omitempty"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Default is the identity shown for a connection that never set one.
func Default(connectionID string) Profile {
	short := strings.ToUpper(strings.ReplaceAll(connectionID, "-", ""))
	if len(short) > 4 {
		short = short[:4]
	}
	return Profile{ConnectionID: connectionID, Nickname: "Player-" + short}
}

// Registry maps connection ids to profiles. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	profiles map[string]Profile
}

func NewRegistry() *Registry {
	return &Registry{profiles: make(map[string]Profile)}
}

func (r *Registry) Lookup(connectionID string) (Profile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[connectionID]
	return p, ok
}

// Upsert applies the non-nil fields of u, creating the entry from Default
// when missing.
func (r *Registry) Upsert(connectionID string, u Update) Profile {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.profiles[connectionID]
	if !ok {
		p = Default(connectionID)
	}
	if u.Nickname != nil {
		p.Nickname = *u.Nickname
	}
	if u.Avatar != nil {
		p.Avatar = *u.Avatar
	}
	p.UpdatedAt = time.Now()
	r.profiles[connectionID] = p
	return p
}

// Put stores p as-is, used when warming the registry from a Store.
func (r *Registry) Put(p Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[p.ConnectionID] = p
}
