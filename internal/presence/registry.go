// Package presence tracks which users currently hold an active websocket
// session. State is in-process only and lost on restart; a multi-process
// deployment would back the same interface with a shared store.
package presence

import (
	"sort"
	"sync"
)

// Registry keeps two inverse mappings between connection ids and user ids.
// A user connecting twice overwrites the previous binding (last session
// wins); there is no multi-device fan-out.
type Registry struct {
	mu     sync.RWMutex
	byConn map[string]int64
	byUser map[int64]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byConn: make(map[string]int64),
		byUser: make(map[int64]string),
	}
}

// Bind associates a connection with a user. Any previous binding for the
// same user is dropped.
func (r *Registry) Bind(connID string, userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.byUser[userID]; ok && prev != connID {
		delete(r.byConn, prev)
	}
	r.byConn[connID] = userID
	r.byUser[userID] = connID
}

// Unbind removes the connection's binding and returns the user that was
// bound, if any. A stale binding (the user reconnected elsewhere) is left
// untouched.
func (r *Registry) Unbind(connID string) (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	userID, ok := r.byConn[connID]
	if !ok {
		return 0, false
	}
	delete(r.byConn, connID)
	if r.byUser[userID] == connID {
		delete(r.byUser, userID)
	}
	return userID, true
}

// SessionFor reports whether the user is online and on which connection.
func (r *Registry) SessionFor(userID int64) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	connID, ok := r.byUser[userID]
	return connID, ok
}

// OnlineUsers returns the ids of all currently bound users, sorted for
// stable broadcasts.
func (r *Registry) OnlineUsers() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]int64, 0, len(r.byUser))
	for id := range r.byUser {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
