package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPresenceAnnounceAndLookup(t *testing.T) {
	p := NewMemoryPresence()

	_, ok := p.Lookup("alice")
	assert.False(t, ok)
	assert.False(t, p.IsOnline("alice"))

	p.Announce("alice", "conn1")

	connID, ok := p.Lookup("alice")
	assert.True(t, ok)
	assert.Equal(t, "conn1", connID)
	assert.True(t, p.IsOnline("alice"))
}

func TestPresenceLatestAnnouncementWins(t *testing.T) {
	p := NewMemoryPresence()

	p.Announce("alice", "conn1")
	p.Announce("alice", "conn2")

	connID, ok := p.Lookup("alice")
	assert.True(t, ok)
	assert.Equal(t, "conn2", connID)
}

func TestPresenceRemoveByConnection(t *testing.T) {
	p := NewMemoryPresence()

	p.Announce("alice", "conn1")
	p.Announce("bob", "conn2")

	username, removed := p.Remove("conn1")
	assert.True(t, removed)
	assert.Equal(t, "alice", username)
	assert.False(t, p.IsOnline("alice"))
	assert.True(t, p.IsOnline("bob"))

	// Removing an unknown connection is a no-op
	_, removed = p.Remove("conn1")
	assert.False(t, removed)
}

func TestPresenceOnlineList(t *testing.T) {
	p := NewMemoryPresence()

	p.Announce("alice", "conn1")
	p.Announce("bob", "conn2")

	online := p.Online()
	assert.Len(t, online, 2)
	assert.ElementsMatch(t, []string{"alice", "bob"}, online)
}
