package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ImagePlaceholder is the preview text stored on a conversation when the
// latest message carries an image and no text.
const ImagePlaceholder = "📷 Image"

// UnreadMap maps a participant's username to their unread message count.
type UnreadMap map[string]int

// Conversation is a 1:1 thread between two participants.
//
// The participant pair is stored lexicographically sorted with a composite
// unique index, so find-or-create is an atomic insert-or-ignore instead of a
// racy look-up-before-create.
type Conversation struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	ParticipantLow  string `gorm:"uniqueIndex:idx_participant_pair;not null" json:"-"`
	ParticipantHigh string `gorm:"uniqueIndex:idx_participant_pair;not null" json:"-"`

	// Denormalized summary fields, updated on every send
	LastMessage   string    `gorm:"type:text" json:"lastMessage"`
	LastMessageAt time.Time `json:"lastMessageTimestamp"`
	UnreadCounts  UnreadMap `gorm:"serializer:json;type:text" json:"unreadCount"`
}

func (c *Conversation) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.UnreadCounts == nil {
		c.UnreadCounts = UnreadMap{}
	}
	return
}

// SortPair canonicalizes an unordered username pair.
func SortPair(a, b string) (low, high string) {
	if a > b {
		return b, a
	}
	return a, b
}

// Participants returns the unordered pair as a slice.
func (c *Conversation) Participants() []string {
	return []string{c.ParticipantLow, c.ParticipantHigh}
}

// HasParticipant reports whether username is part of this conversation.
func (c *Conversation) HasParticipant(username string) bool {
	return c.ParticipantLow == username || c.ParticipantHigh == username
}

// OtherParticipant returns the participant that is not username.
func (c *Conversation) OtherParticipant(username string) string {
	if c.ParticipantLow == username {
		return c.ParticipantHigh
	}
	return c.ParticipantLow
}

// Message is an immutable unit belonging to exactly one conversation.
// Only the Read flag ever transitions (false -> true, by the recipient).
type Message struct {
	ID             string `gorm:"primaryKey;type:text" json:"id"`
	ConversationID string `gorm:"index;not null" json:"conversationId"`

	Sender   string `gorm:"index;not null" json:"sender"`
	Receiver string `gorm:"index;not null" json:"receiver"`

	Text string `gorm:"type:text" json:"text"`

	// Embedded image attachment; bytes are never serialized to JSON,
	// clients fetch them via /api/chat/image/:messageId
	HasImage  bool   `gorm:"default:false" json:"hasImage"`
	ImageData []byte `gorm:"type:bytea" json:"-"`
	ImageType string `json:"-"`
	ImageName string `json:"-"`

	Read      bool      `gorm:"default:false" json:"read"`
	CreatedAt time.Time `json:"timestamp"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return
}
