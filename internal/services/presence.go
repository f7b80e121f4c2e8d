package services

import "sync"

// PresenceRegistry tracks which usernames currently have a live socket
// connection. Presence is advisory: it only decides whether a live push is
// attempted, it is never a correctness gate. Entries are process-local and
// rebuilt from scratch on restart.
type PresenceRegistry interface {
	// Announce registers or overwrites the connection for a username.
	Announce(username, connID string)
	// Lookup returns the active connection id for a username, if any.
	Lookup(username string) (string, bool)
	// Remove evicts the entry whose connection id matches and returns the
	// username it belonged to.
	Remove(connID string) (string, bool)
	// IsOnline reports whether a username has a live connection.
	IsOnline(username string) bool
	// Online returns all currently connected usernames.
	Online() []string
}

// MemoryPresence is the single-process PresenceRegistry implementation.
// A second Announce for the same username overwrites the previous
// connection: the older tab/device stops receiving personal notifications
// though it stays subscribed to its rooms. Accepted behavior.
type MemoryPresence struct {
	mu     sync.RWMutex
	byUser map[string]string // username -> connection id
}

func NewMemoryPresence() *MemoryPresence {
	return &MemoryPresence{byUser: make(map[string]string)}
}

func (p *MemoryPresence) Announce(username, connID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byUser[username] = connID
}

func (p *MemoryPresence) Lookup(username string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	connID, ok := p.byUser[username]
	return connID, ok
}

func (p *MemoryPresence) Remove(connID string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for username, id := range p.byUser {
		if id == connID {
			delete(p.byUser, username)
			return username, true
		}
	}
	return "", false
}

func (p *MemoryPresence) IsOnline(username string) bool {
	_, ok := p.Lookup(username)
	return ok
}

func (p *MemoryPresence) Online() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	users := make([]string, 0, len(p.byUser))
	for username := range p.byUser {
		users = append(users, username)
	}
	return users
}
