package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/shadabtanjeed/UniListing-sub000/internal/models"
	apperrors "github.com/shadabtanjeed/UniListing-sub000/pkg/errors"
	"github.com/shadabtanjeed/UniListing-sub000/pkg/logger"
	"github.com/shadabtanjeed/UniListing-sub000/pkg/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RoomEmitter abstracts the realtime fan-out so the coordinator does not
// depend on any particular transport library. Rooms are keyed by
// conversation id; every user additionally has a personal room keyed by
// their username. Delivery failures are swallowed by implementations: the
// persisted message is the source of truth.
type RoomEmitter interface {
	BroadcastToRoom(room, event string, data interface{})
	// JoinRoom subscribes every connection in personalRoom to room.
	JoinRoom(personalRoom, room string)
}

// ImageAttachment carries a decoded image payload for a message.
type ImageAttachment struct {
	Data        []byte
	ContentType string
	Filename    string
}

// MessageView is the wire shape of a message: image bytes are replaced by a
// fetchable URL, never embedded.
type MessageView struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	Sender         string    `json:"sender"`
	Receiver       string    `json:"receiver"`
	Text           string    `json:"text"`
	HasImage       bool      `json:"hasImage"`
	ImageURL       string    `json:"imageUrl,omitempty"`
	Read           bool      `json:"read"`
	Timestamp      time.Time `json:"timestamp"`
}

// ConversationView annotates a conversation with everything the caller's
// inbox needs: the other participant, the caller's own unread count and the
// other side's presence.
type ConversationView struct {
	ID               string    `json:"conversationId"`
	OtherParticipant string    `json:"otherParticipant"`
	LastMessage      string    `json:"lastMessage"`
	LastMessageAt    time.Time `json:"lastMessageTimestamp"`
	UnreadCount      int       `json:"unreadCount"`
	OtherOnline      bool      `json:"otherOnline"`
}

// UserView is a search result annotated with presence.
type UserView struct {
	Username string `json:"username"`
	Online   bool   `json:"online"`
}

// ChatService coordinates conversations, messages, read receipts and the
// notification fan-out.
type ChatService struct {
	db       *gorm.DB
	presence PresenceRegistry
	emitter  RoomEmitter
}

func NewChatService(db *gorm.DB, presence PresenceRegistry, emitter RoomEmitter) *ChatService {
	return &ChatService{db: db, presence: presence, emitter: emitter}
}

// NewMessageView converts a persisted message to its wire shape.
func NewMessageView(m *models.Message) MessageView {
	v := MessageView{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Sender:         m.Sender,
		Receiver:       m.Receiver,
		Text:           m.Text,
		HasImage:       m.HasImage,
		Read:           m.Read,
		Timestamp:      m.CreatedAt,
	}
	if m.HasImage {
		v.ImageURL = fmt.Sprintf("/api/chat/image/%s", m.ID)
	}
	return v
}

// findOrCreateConversation resolves the conversation for an unordered pair
// as a single atomic upsert: insert-or-ignore on the sorted-pair unique
// index, then fetch the canonical row. Two concurrent calls for the same
// brand-new pair converge on one conversation.
func (s *ChatService) findOrCreateConversation(a, b string) (*models.Conversation, bool, error) {
	low, high := models.SortPair(a, b)

	candidate := models.Conversation{
		ParticipantLow:  low,
		ParticipantHigh: high,
		LastMessageAt:   time.Now(),
		UnreadCounts:    models.UnreadMap{},
	}
	res := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "participant_low"}, {Name: "participant_high"}},
		DoNothing: true,
	}).Create(&candidate)
	if res.Error != nil {
		return nil, false, apperrors.Internal("Failed to resolve conversation")
	}
	created := res.RowsAffected > 0

	var conv models.Conversation
	if err := s.db.Where("participant_low = ? AND participant_high = ?", low, high).
		First(&conv).Error; err != nil {
		return nil, false, apperrors.Internal("Failed to load conversation")
	}
	return &conv, created, nil
}

// loadConversation fetches a conversation by id and enforces that caller is
// a participant.
func (s *ChatService) loadConversation(conversationID, caller string) (*models.Conversation, error) {
	var conv models.Conversation
	if err := s.db.First(&conv, "id = ?", conversationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Conversation not found")
		}
		return nil, apperrors.Internal("Failed to load conversation")
	}
	if !conv.HasParticipant(caller) {
		return nil, apperrors.Forbidden("You are not a participant of this conversation")
	}
	return &conv, nil
}

// SendMessage runs the full send pipeline: resolve the conversation
// (authoritative id if supplied, atomic find-or-create otherwise), update
// the denormalized summary fields, persist the message and fan out
// notifications. Each call produces at most one new message and at most one
// new conversation.
func (s *ChatService) SendMessage(sender, receiver, text string, image *ImageAttachment, conversationID string) (*models.Message, *models.Conversation, error) {
	var (
		conv    *models.Conversation
		created bool
		err     error
	)

	if conversationID != "" {
		conv, err = s.loadConversation(conversationID, sender)
		if err != nil {
			return nil, nil, err
		}
		// The supplied id is authoritative; derive the receiver from it so a
		// mismatched body cannot address a third party.
		receiver = conv.OtherParticipant(sender)
	} else {
		if receiver == "" || receiver == sender {
			return nil, nil, apperrors.BadRequest("A receiver different from the sender is required")
		}
		conv, created, err = s.findOrCreateConversation(sender, receiver)
		if err != nil {
			return nil, nil, err
		}
	}

	now := time.Now()

	preview := text
	if preview == "" && image != nil {
		preview = models.ImagePlaceholder
	}
	conv.LastMessage = preview
	conv.LastMessageAt = now
	if conv.UnreadCounts == nil {
		conv.UnreadCounts = models.UnreadMap{}
	}
	conv.UnreadCounts[receiver]++
	if err := s.db.Save(conv).Error; err != nil {
		return nil, nil, apperrors.Internal("Failed to update conversation")
	}

	msg := models.Message{
		ConversationID: conv.ID,
		Sender:         sender,
		Receiver:       receiver,
		Text:           text,
		Read:           false,
		CreatedAt:      now,
	}
	if image != nil {
		msg.HasImage = true
		msg.ImageData = image.Data
		msg.ImageType = image.ContentType
		msg.ImageName = utils.TruncateString(image.Filename, 255)
	}
	if err := s.db.Create(&msg).Error; err != nil {
		return nil, nil, apperrors.Internal("Failed to persist message")
	}

	s.fanOut(conv, &msg, created)

	return &msg, conv, nil
}

// fanOut delivers a persisted message to the conversation room and, when
// the receiver is online, to their personal room. Failures here are
// deliberately swallowed: the recipient sees the message on next fetch.
func (s *ChatService) fanOut(conv *models.Conversation, msg *models.Message, newConversation bool) {
	if s.emitter == nil {
		return
	}

	view := NewMessageView(msg)

	if newConversation {
		// Sender joins the fresh room; pull the receiver in too when they are
		// online so subsequent events reach them without an explicit
		// re-subscribe.
		s.emitter.JoinRoom(msg.Sender, conv.ID)
		if s.presence != nil && s.presence.IsOnline(msg.Receiver) {
			s.emitter.JoinRoom(msg.Receiver, conv.ID)
		}
	}

	s.emitter.BroadcastToRoom(conv.ID, "new_message", view)

	if s.presence != nil && s.presence.IsOnline(msg.Receiver) {
		s.emitter.BroadcastToRoom(msg.Receiver, "message_notification", map[string]interface{}{
			"conversationId": conv.ID,
			"message":        view,
			"sender":         msg.Sender,
		})
	}
}

// MarkRead flips every unread message addressed to caller in the
// conversation and resets their unread counter. The two writes are
// independent statements; a crash between them leaves recoverable
// staleness, and re-running MarkRead converges. Idempotent.
func (s *ChatService) MarkRead(conversationID, caller string) error {
	conv, err := s.loadConversation(conversationID, caller)
	if err != nil {
		return err
	}

	if err := s.db.Model(&models.Message{}).
		Where("conversation_id = ? AND receiver = ? AND read = ?", conv.ID, caller, false).
		Update("read", true).Error; err != nil {
		return apperrors.Internal("Failed to mark messages read")
	}

	if conv.UnreadCounts == nil {
		conv.UnreadCounts = models.UnreadMap{}
	}
	if conv.UnreadCounts[caller] != 0 {
		conv.UnreadCounts[caller] = 0
		if err := s.db.Save(conv).Error; err != nil {
			// Messages are already flagged; the stale counter heals on the
			// next MarkRead.
			logger.Warn().Err(err).Str("conversation", conv.ID).Msg("Unread counter reset failed")
			return apperrors.Internal("Failed to reset unread counter")
		}
	}
	return nil
}

// ListConversations returns every conversation the caller participates in,
// newest activity first.
func (s *ChatService) ListConversations(caller string) ([]ConversationView, error) {
	var convs []models.Conversation
	if err := s.db.
		Where("participant_low = ? OR participant_high = ?", caller, caller).
		Order("last_message_at DESC").
		Find(&convs).Error; err != nil {
		return nil, apperrors.Internal("Failed to fetch conversations")
	}

	views := make([]ConversationView, 0, len(convs))
	for i := range convs {
		other := convs[i].OtherParticipant(caller)
		online := false
		if s.presence != nil {
			online = s.presence.IsOnline(other)
		}
		views = append(views, ConversationView{
			ID:               convs[i].ID,
			OtherParticipant: other,
			LastMessage:      convs[i].LastMessage,
			LastMessageAt:    convs[i].LastMessageAt,
			UnreadCount:      convs[i].UnreadCounts[caller],
			OtherOnline:      online,
		})
	}
	return views, nil
}

// ListMessages returns the conversation history in chronological order,
// image payloads replaced by fetch URLs. Caller must be a participant.
func (s *ChatService) ListMessages(conversationID, caller string) ([]MessageView, error) {
	conv, err := s.loadConversation(conversationID, caller)
	if err != nil {
		return nil, err
	}

	var messages []models.Message
	if err := s.db.
		Where("conversation_id = ?", conv.ID).
		Order("created_at ASC").
		Find(&messages).Error; err != nil {
		return nil, apperrors.Internal("Failed to fetch messages")
	}

	views := make([]MessageView, 0, len(messages))
	for i := range messages {
		views = append(views, NewMessageView(&messages[i]))
	}
	return views, nil
}

// StartConversation finds or creates the conversation for the pair without
// sending a message.
func (s *ChatService) StartConversation(caller, receiver string) (*models.Conversation, error) {
	if receiver == "" || receiver == caller {
		return nil, apperrors.BadRequest("A receiver different from the caller is required")
	}
	var exists int64
	if err := s.db.Model(&models.User{}).Where("username = ?", receiver).Count(&exists).Error; err != nil {
		return nil, apperrors.Internal("Failed to look up receiver")
	}
	if exists == 0 {
		return nil, apperrors.NotFound("Receiver not found")
	}
	conv, _, err := s.findOrCreateConversation(caller, receiver)
	return conv, err
}

// GetImage authorizes and returns the message carrying an image attachment.
// NotFound for a missing message, a missing owning conversation (integrity
// fallback) or a text-only message; Forbidden for non-participants.
func (s *ChatService) GetImage(messageID, caller string) (*models.Message, error) {
	var msg models.Message
	if err := s.db.First(&msg, "id = ?", messageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Message not found")
		}
		return nil, apperrors.Internal("Failed to load message")
	}

	var conv models.Conversation
	if err := s.db.First(&conv, "id = ?", msg.ConversationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Conversation not found")
		}
		return nil, apperrors.Internal("Failed to load conversation")
	}

	if !conv.HasParticipant(caller) {
		return nil, apperrors.Forbidden("You are not a participant of this conversation")
	}

	if !msg.HasImage {
		return nil, apperrors.NotFound("Message has no image")
	}
	return &msg, nil
}

// SearchUsers performs a case-insensitive username substring search,
// excluding the caller, capped at 10 results and annotated with presence.
func (s *ChatService) SearchUsers(query, caller string) ([]UserView, error) {
	var users []models.User
	if err := s.db.
		Where("LOWER(username) LIKE LOWER(?) AND username <> ?", utils.SanitizeSearchQuery(query), caller).
		Order("username ASC").
		Limit(10).
		Find(&users).Error; err != nil {
		return nil, apperrors.Internal("Failed to search users")
	}

	views := make([]UserView, 0, len(users))
	for i := range users {
		online := false
		if s.presence != nil {
			online = s.presence.IsOnline(users[i].Username)
		}
		views = append(views, UserView{Username: users[i].Username, Online: online})
	}
	return views, nil
}

// ConversationRoomIDs returns the ids of every conversation the user
// participates in, used to join their rooms on connect.
func (s *ChatService) ConversationRoomIDs(username string) ([]string, error) {
	var ids []string
	if err := s.db.Model(&models.Conversation{}).
		Where("participant_low = ? OR participant_high = ?", username, username).
		Pluck("id", &ids).Error; err != nil {
		return nil, apperrors.Internal("Failed to fetch conversation rooms")
	}
	return ids, nil
}
