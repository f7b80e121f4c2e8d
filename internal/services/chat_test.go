package services

import (
	"net/http"
	"testing"

	"github.com/shadabtanjeed/UniListing-sub000/internal/models"
	apperrors "github.com/shadabtanjeed/UniListing-sub000/pkg/errors"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// fakeEmitter records fan-out calls for assertions.
type fakeEmitter struct {
	broadcasts []emittedEvent
	joins      []joinCall
}

type emittedEvent struct {
	Room  string
	Event string
	Data  interface{}
}

type joinCall struct {
	PersonalRoom string
	Room         string
}

func (f *fakeEmitter) BroadcastToRoom(room, event string, data interface{}) {
	f.broadcasts = append(f.broadcasts, emittedEvent{Room: room, Event: event, Data: data})
}

func (f *fakeEmitter) JoinRoom(personalRoom, room string) {
	f.joins = append(f.joins, joinCall{PersonalRoom: personalRoom, Room: room})
}

func (f *fakeEmitter) events(name string) []emittedEvent {
	var out []emittedEvent
	for _, e := range f.broadcasts {
		if e.Event == name {
			out = append(out, e)
		}
	}
	return out
}

func newTestChat(t *testing.T) (*ChatService, *MemoryPresence, *fakeEmitter) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&models.User{}, &models.Conversation{}, &models.Message{}))

	for _, u := range []string{"alice", "bob", "carol"} {
		db.Create(&models.User{Username: u, Email: u + "@example.edu", Password: "x"})
	}

	presence := NewMemoryPresence()
	emitter := &fakeEmitter{}
	return NewChatService(db, presence, emitter), presence, emitter
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	appErr, ok := err.(*apperrors.AppError)
	assert.True(t, ok, "expected AppError, got %v", err)
	return appErr.Code
}

func TestSendMessageCreatesConversation(t *testing.T) {
	chat, _, _ := newTestChat(t)

	msg, conv, err := chat.SendMessage("alice", "bob", "Hi", nil, "")
	assert.NoError(t, err)

	assert.Equal(t, "alice", msg.Sender)
	assert.Equal(t, "bob", msg.Receiver)
	assert.False(t, msg.HasImage)
	assert.False(t, msg.Read)
	assert.Equal(t, "Hi", msg.Text)
	assert.Equal(t, conv.ID, msg.ConversationID)

	assert.ElementsMatch(t, []string{"alice", "bob"}, conv.Participants())
	assert.Equal(t, "Hi", conv.LastMessage)
	assert.Equal(t, 1, conv.UnreadCounts["bob"])
	assert.Equal(t, 0, conv.UnreadCounts["alice"])
}

func TestConversationDiscoveryIsSymmetric(t *testing.T) {
	chat, _, _ := newTestChat(t)

	_, conv1, err := chat.SendMessage("alice", "bob", "Hi", nil, "")
	assert.NoError(t, err)

	// Reply through the authoritative conversation id
	_, conv2, err := chat.SendMessage("bob", "", "Hello back", nil, conv1.ID)
	assert.NoError(t, err)
	assert.Equal(t, conv1.ID, conv2.ID)

	// Sending the other direction without an id also lands on the same pair
	_, conv3, err := chat.SendMessage("bob", "alice", "Another", nil, "")
	assert.NoError(t, err)
	assert.Equal(t, conv1.ID, conv3.ID)

	// Each recipient's counter only, sender's own never increments
	assert.Equal(t, 1, conv3.UnreadCounts["bob"])
	assert.Equal(t, 2, conv3.UnreadCounts["alice"])
}

func TestFindOrCreateYieldsSingleConversation(t *testing.T) {
	chat, _, _ := newTestChat(t)

	conv1, err := chat.StartConversation("alice", "bob")
	assert.NoError(t, err)
	conv2, err := chat.StartConversation("bob", "alice")
	assert.NoError(t, err)
	assert.Equal(t, conv1.ID, conv2.ID)

	var count int64
	chat.db.Model(&models.Conversation{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestStartConversationUnknownReceiver(t *testing.T) {
	chat, _, _ := newTestChat(t)

	_, err := chat.StartConversation("alice", "nobody")
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))
}

func TestMarkReadIsIdempotent(t *testing.T) {
	chat, _, _ := newTestChat(t)

	_, conv, err := chat.SendMessage("alice", "bob", "Hi", nil, "")
	assert.NoError(t, err)
	_, _, err = chat.SendMessage("alice", "", "Again", nil, conv.ID)
	assert.NoError(t, err)

	assert.NoError(t, chat.MarkRead(conv.ID, "bob"))
	assert.NoError(t, chat.MarkRead(conv.ID, "bob"))

	var reloaded models.Conversation
	chat.db.First(&reloaded, "id = ?", conv.ID)
	assert.Equal(t, 0, reloaded.UnreadCounts["bob"])

	var unread int64
	chat.db.Model(&models.Message{}).
		Where("conversation_id = ? AND receiver = ? AND read = ?", conv.ID, "bob", false).
		Count(&unread)
	assert.Equal(t, int64(0), unread)
}

func TestMarkReadDoesNotTouchOtherParticipant(t *testing.T) {
	chat, _, _ := newTestChat(t)

	_, conv, err := chat.SendMessage("alice", "bob", "Hi", nil, "")
	assert.NoError(t, err)
	_, _, err = chat.SendMessage("bob", "", "Reply", nil, conv.ID)
	assert.NoError(t, err)

	assert.NoError(t, chat.MarkRead(conv.ID, "bob"))

	var reloaded models.Conversation
	chat.db.First(&reloaded, "id = ?", conv.ID)
	assert.Equal(t, 0, reloaded.UnreadCounts["bob"])
	assert.Equal(t, 1, reloaded.UnreadCounts["alice"])
}

func TestMarkReadNonParticipantForbidden(t *testing.T) {
	chat, _, _ := newTestChat(t)

	_, conv, err := chat.SendMessage("alice", "bob", "Hi", nil, "")
	assert.NoError(t, err)

	err = chat.MarkRead(conv.ID, "carol")
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))
}

func TestListConversationsOrderAndAnnotations(t *testing.T) {
	chat, presence, _ := newTestChat(t)

	_, convBob, err := chat.SendMessage("alice", "bob", "first", nil, "")
	assert.NoError(t, err)
	_, convCarol, err := chat.SendMessage("alice", "carol", "second", nil, "")
	assert.NoError(t, err)

	presence.Announce("carol", "conn-carol")

	views, err := chat.ListConversations("alice")
	assert.NoError(t, err)
	assert.Len(t, views, 2)

	// Newest activity first
	assert.Equal(t, convCarol.ID, views[0].ID)
	assert.Equal(t, convBob.ID, views[1].ID)

	assert.Equal(t, "carol", views[0].OtherParticipant)
	assert.True(t, views[0].OtherOnline)
	assert.False(t, views[1].OtherOnline)
	assert.Equal(t, 0, views[0].UnreadCount) // alice has nothing unread

	// And bob sees his unread
	bobViews, err := chat.ListConversations("bob")
	assert.NoError(t, err)
	assert.Len(t, bobViews, 1)
	assert.Equal(t, 1, bobViews[0].UnreadCount)
}

func TestListMessagesForbiddenForNonParticipant(t *testing.T) {
	chat, _, _ := newTestChat(t)

	_, conv, err := chat.SendMessage("alice", "bob", "Hi", nil, "")
	assert.NoError(t, err)

	_, err = chat.ListMessages(conv.ID, "carol")
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))
}

func TestListMessagesReplacesImageWithURL(t *testing.T) {
	chat, _, _ := newTestChat(t)

	image := &ImageAttachment{Data: []byte{0xFF, 0xD8, 0xFF}, ContentType: "image/jpeg", Filename: "photo.jpg"}
	msg, conv, err := chat.SendMessage("alice", "bob", "", image, "")
	assert.NoError(t, err)
	assert.Equal(t, models.ImagePlaceholder, conv.LastMessage)

	views, err := chat.ListMessages(conv.ID, "bob")
	assert.NoError(t, err)
	assert.Len(t, views, 1)
	assert.True(t, views[0].HasImage)
	assert.Equal(t, "/api/chat/image/"+msg.ID, views[0].ImageURL)
}

func TestGetImageBoundaries(t *testing.T) {
	chat, _, _ := newTestChat(t)

	image := &ImageAttachment{Data: []byte{0xFF, 0xD8, 0xFF}, ContentType: "image/jpeg", Filename: "photo.jpg"}
	imgMsg, conv, err := chat.SendMessage("alice", "bob", "", image, "")
	assert.NoError(t, err)
	textMsg, _, err := chat.SendMessage("alice", "", "plain", nil, conv.ID)
	assert.NoError(t, err)

	// Both participants can fetch
	for _, caller := range []string{"alice", "bob"} {
		got, err := chat.GetImage(imgMsg.ID, caller)
		assert.NoError(t, err)
		assert.Equal(t, "image/jpeg", got.ImageType)
		assert.Equal(t, []byte{0xFF, 0xD8, 0xFF}, got.ImageData)
	}

	// Non-participant is forbidden
	_, err = chat.GetImage(imgMsg.ID, "carol")
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))

	// Text-only message has no image
	_, err = chat.GetImage(textMsg.ID, "alice")
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))

	// Unknown message
	_, err = chat.GetImage("missing", "alice")
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))
}

func TestFanOutEvents(t *testing.T) {
	chat, presence, emitter := newTestChat(t)
	presence.Announce("bob", "conn-bob")

	msg, conv, err := chat.SendMessage("alice", "bob", "Hi", nil, "")
	assert.NoError(t, err)

	// Brand-new conversation: sender and online receiver are pulled into the room
	assert.Contains(t, emitter.joins, joinCall{PersonalRoom: "alice", Room: conv.ID})
	assert.Contains(t, emitter.joins, joinCall{PersonalRoom: "bob", Room: conv.ID})

	newMessages := emitter.events("new_message")
	assert.Len(t, newMessages, 1)
	assert.Equal(t, conv.ID, newMessages[0].Room)
	view, ok := newMessages[0].Data.(MessageView)
	assert.True(t, ok)
	assert.Equal(t, msg.ID, view.ID)

	notifications := emitter.events("message_notification")
	assert.Len(t, notifications, 1)
	assert.Equal(t, "bob", notifications[0].Room)
}

func TestFanOutSkipsOfflineReceiver(t *testing.T) {
	chat, _, emitter := newTestChat(t)

	_, conv, err := chat.SendMessage("alice", "bob", "Hi", nil, "")
	assert.NoError(t, err)

	// Room broadcast always happens, personal push only when online
	assert.Len(t, emitter.events("new_message"), 1)
	assert.Empty(t, emitter.events("message_notification"))
	assert.Contains(t, emitter.joins, joinCall{PersonalRoom: "alice", Room: conv.ID})
	assert.NotContains(t, emitter.joins, joinCall{PersonalRoom: "bob", Room: conv.ID})
}

func TestSearchUsers(t *testing.T) {
	chat, presence, _ := newTestChat(t)
	presence.Announce("bob", "conn-bob")

	views, err := chat.SearchUsers("O", "alice")
	assert.NoError(t, err)
	// bob and carol match the substring, alice is excluded by caller filter
	assert.Len(t, views, 2)
	for _, v := range views {
		assert.NotEqual(t, "alice", v.Username)
		if v.Username == "bob" {
			assert.True(t, v.Online)
		} else {
			assert.False(t, v.Online)
		}
	}
}

func TestSearchUsersCap(t *testing.T) {
	chat, _, _ := newTestChat(t)

	for i := 0; i < 15; i++ {
		chat.db.Create(&models.User{
			Username: "student" + string(rune('a'+i)),
			Email:    "student" + string(rune('a'+i)) + "@example.edu",
			Password: "x",
		})
	}

	views, err := chat.SearchUsers("student", "alice")
	assert.NoError(t, err)
	assert.Len(t, views, 10)
}
