package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shadabtanjeed/UniListing-sub000/internal/database"
	"github.com/shadabtanjeed/UniListing-sub000/internal/models"
	"github.com/shadabtanjeed/UniListing-sub000/internal/services"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SetupTestDB initializes an in-memory SQLite DB for testing and wires the
// handler package services against it.
func SetupTestDB() {
	db, _ := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	database.DB = db
	database.DB.AutoMigrate(
		&models.User{},
		&models.Conversation{},
		&models.Message{},
		&models.Apartment{},
		&models.ListingImage{},
		&models.Item{},
		&models.ItemImage{},
		&models.SavedPost{},
	)

	Presence = services.NewMemoryPresence()
	Chat = services.NewChatService(db, Presence, nil)
}

func createTestUsers(usernames ...string) {
	for _, u := range usernames {
		database.DB.Create(&models.User{Username: u, Email: u + "@example.edu", Password: "x"})
	}
}

func authedContext(t *testing.T, username, method, target string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var reqBody *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		assert.NoError(t, err)
		reqBody = bytes.NewBuffer(raw)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	c.Request, _ = http.NewRequest(method, target, reqBody)
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set("username", username)
	return c, w
}

func TestSendMessageEndpoint(t *testing.T) {
	SetupTestDB()
	gin.SetMode(gin.TestMode)
	createTestUsers("alice_h1", "bob_h1")

	c, w := authedContext(t, "alice_h1", "POST", "/api/chat/send", map[string]string{
		"receiver": "bob_h1",
		"text":     "Hi",
	})

	SendMessage(c)

	assert.Equal(t, http.StatusCreated, w.Code)

	var response struct {
		Message models.Message `json:"message"`
	}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Equal(t, "alice_h1", response.Message.Sender)
	assert.Equal(t, "bob_h1", response.Message.Receiver)
	assert.False(t, response.Message.Read)
}

func TestSendMessageEndpointValidation(t *testing.T) {
	SetupTestDB()
	gin.SetMode(gin.TestMode)
	createTestUsers("alice_h2")

	// Missing text
	c, w := authedContext(t, "alice_h2", "POST", "/api/chat/send", map[string]string{
		"receiver": "bob_h2",
	})
	SendMessage(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Neither receiver nor conversation id
	c, w = authedContext(t, "alice_h2", "POST", "/api/chat/send", map[string]string{
		"text": "Hi",
	})
	SendMessage(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetConversationMessagesForbidden(t *testing.T) {
	SetupTestDB()
	gin.SetMode(gin.TestMode)
	createTestUsers("alice_h3", "bob_h3", "carol_h3")

	_, conv, err := Chat.SendMessage("alice_h3", "bob_h3", "secret", nil, "")
	assert.NoError(t, err)

	c, w := authedContext(t, "carol_h3", "GET", "/api/chat/conversations/"+conv.ID, nil)
	c.Params = gin.Params{{Key: "id", Value: conv.ID}}

	GetConversationMessages(c)

	assert.Equal(t, http.StatusForbidden, w.Code)

	var response map[string]string
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.NotEmpty(t, response["message"])
}

func TestMarkReadEndpoint(t *testing.T) {
	SetupTestDB()
	gin.SetMode(gin.TestMode)
	createTestUsers("alice_h4", "bob_h4")

	_, conv, err := Chat.SendMessage("alice_h4", "bob_h4", "Hi", nil, "")
	assert.NoError(t, err)

	c, w := authedContext(t, "bob_h4", "POST", "/api/chat/read/"+conv.ID, nil)
	c.Params = gin.Params{{Key: "conversationId", Value: conv.ID}}

	MarkRead(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]bool
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.True(t, response["success"])

	views, err := Chat.ListConversations("bob_h4")
	assert.NoError(t, err)
	assert.Len(t, views, 1)
	assert.Equal(t, 0, views[0].UnreadCount)
}

func TestStartConversationEndpoint(t *testing.T) {
	SetupTestDB()
	gin.SetMode(gin.TestMode)
	createTestUsers("alice_h5", "bob_h5")

	c, w := authedContext(t, "alice_h5", "POST", "/api/chat/conversations", map[string]string{
		"receiver": "bob_h5",
	})
	StartConversation(c)
	assert.Equal(t, http.StatusOK, w.Code)

	var first map[string]string
	json.Unmarshal(w.Body.Bytes(), &first)
	assert.NotEmpty(t, first["conversationId"])

	// Same pair resolves to the same conversation
	c, w = authedContext(t, "bob_h5", "POST", "/api/chat/conversations", map[string]string{
		"receiver": "alice_h5",
	})
	StartConversation(c)
	assert.Equal(t, http.StatusOK, w.Code)

	var second map[string]string
	json.Unmarshal(w.Body.Bytes(), &second)
	assert.Equal(t, first["conversationId"], second["conversationId"])
}

func TestGetMessageImageEndpoint(t *testing.T) {
	SetupTestDB()
	gin.SetMode(gin.TestMode)
	createTestUsers("alice_h6", "bob_h6", "carol_h6")

	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0}
	imgMsg, conv, err := Chat.SendMessage("alice_h6", "bob_h6", "", &services.ImageAttachment{
		Data:        jpeg,
		ContentType: "image/jpeg",
		Filename:    "photo.jpg",
	}, "")
	assert.NoError(t, err)
	textMsg, _, err := Chat.SendMessage("alice_h6", "", "plain", nil, conv.ID)
	assert.NoError(t, err)

	// Participant fetch succeeds with stored content type
	for _, caller := range []string{"alice_h6", "bob_h6"} {
		c, w := authedContext(t, caller, "GET", "/api/chat/image/"+imgMsg.ID, nil)
		c.Params = gin.Params{{Key: "messageId", Value: imgMsg.ID}}
		GetMessageImage(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
		assert.Equal(t, jpeg, w.Body.Bytes())
		assert.Contains(t, w.Header().Get("Cache-Control"), "immutable")
	}

	// Non-participant forbidden
	c, w := authedContext(t, "carol_h6", "GET", "/api/chat/image/"+imgMsg.ID, nil)
	c.Params = gin.Params{{Key: "messageId", Value: imgMsg.ID}}
	GetMessageImage(c)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Text-only message has no image
	c, w = authedContext(t, "alice_h6", "GET", "/api/chat/image/"+textMsg.ID, nil)
	c.Params = gin.Params{{Key: "messageId", Value: textMsg.ID}}
	GetMessageImage(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSearchUsersEndpoint(t *testing.T) {
	SetupTestDB()
	gin.SetMode(gin.TestMode)
	createTestUsers("alice_h7", "bob_h7", "bobby_h7")

	c, w := authedContext(t, "alice_h7", "GET", "/api/chat/search-users?query=bob", nil)
	SearchUsers(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Users []services.UserView `json:"users"`
	}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Len(t, response.Users, 2)

	// Missing query is a 400
	c, w = authedContext(t, "alice_h7", "GET", "/api/chat/search-users", nil)
	SearchUsers(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
