package handlers

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	socketio "github.com/googollee/go-socket.io"
	"github.com/googollee/go-socket.io/engineio"
	"github.com/googollee/go-socket.io/engineio/transport"
	"github.com/googollee/go-socket.io/engineio/transport/polling"
	"github.com/googollee/go-socket.io/engineio/transport/websocket"
	"github.com/shadabtanjeed/UniListing-sub000/internal/services"
	"github.com/shadabtanjeed/UniListing-sub000/pkg/logger"
	"github.com/shadabtanjeed/UniListing-sub000/pkg/utils"
)

var SocketServer *socketio.Server

// Typing throttle: track last typing emit per user to prevent spam
var (
	lastTypingEmit         = make(map[string]time.Time) // username -> last emit time
	lastTypingMu           sync.RWMutex
	typingThrottleDuration = 2 * time.Second
)

// SocketEmitter adapts the socket.io server to services.RoomEmitter.
// Emit failures surface nowhere on purpose: persistence already succeeded
// and the store is the source of truth.
type SocketEmitter struct {
	server *socketio.Server
}

func NewSocketEmitter(server *socketio.Server) *SocketEmitter {
	return &SocketEmitter{server: server}
}

func (e *SocketEmitter) BroadcastToRoom(room, event string, data interface{}) {
	if e.server == nil {
		return
	}
	e.server.BroadcastToRoom("/", room, event, data)
}

func (e *SocketEmitter) JoinRoom(personalRoom, room string) {
	if e.server == nil {
		return
	}
	e.server.ForEach("/", personalRoom, func(conn socketio.Conn) {
		conn.Join(room)
	})
}

// broadcastUserStatus tells every connected client that a user went
// online or offline.
func broadcastUserStatus(server *socketio.Server, username, status string) {
	server.BroadcastToRoom("/", "presence", "user_status", map[string]interface{}{
		"username": username,
		"status":   status,
	})
}

func getString(data map[string]interface{}, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}

// imageFromPayload decodes an image attachment from its transport
// encoding (base64 in the event payload).
func imageFromPayload(data map[string]interface{}) *services.ImageAttachment {
	raw, ok := data["image"].(map[string]interface{})
	if !ok {
		return nil
	}
	encoded := getString(raw, "data")
	if encoded == "" {
		return nil
	}
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil
	}
	return &services.ImageAttachment{
		Data:        decoded,
		ContentType: getString(raw, "contentType"),
		Filename:    getString(raw, "name"),
	}
}

func InitSocketServer(presence services.PresenceRegistry) *socketio.Server {
	server := socketio.NewServer(&engineio.Options{
		Transports: []transport.Transport{
			&websocket.Transport{
				CheckOrigin: func(r *http.Request) bool { return true },
			},
			&polling.Transport{
				CheckOrigin: func(r *http.Request) bool { return true },
			},
		},
	})

	server.OnConnect("/", func(s socketio.Conn) error {
		s.SetContext("")
		url := s.URL()

		// Token comes via query param (most reliable for the ws handshake)
		token := url.Query().Get("token")
		if token == "" {
			token = url.Query().Get("auth_token") // Fallback
		}

		if token == "" {
			logger.Warn().Str("socket", s.ID()).Msg("Socket connection rejected: no token")
			return fmt.Errorf("authentication required")
		}

		claims, err := utils.ValidateToken(token)
		if err != nil {
			logger.Warn().Str("socket", s.ID()).Msg("Socket connection rejected: invalid token")
			return fmt.Errorf("invalid token")
		}

		username := claims.Username
		logger.Info().Str("socket", s.ID()).Str("user", username).Msg("Socket authenticated")

		// Store username in socket context for O(1) lookup
		s.SetContext(username)

		// Personal room for notifications, global room for status broadcasts
		s.Join(username)
		s.Join("presence")

		return nil
	})

	// authenticate: register presence and join the rooms of every existing
	// conversation. Identity comes from the validated token, not the
	// payload.
	server.OnEvent("/", "authenticate", func(s socketio.Conn, _ map[string]interface{}) {
		username, _ := s.Context().(string)
		if username == "" {
			s.Emit("error", map[string]interface{}{"message": "not authenticated"})
			return
		}

		presence.Announce(username, s.ID())

		rooms, err := Chat.ConversationRoomIDs(username)
		if err != nil {
			s.Emit("error", map[string]interface{}{"message": "failed to join conversation rooms"})
		} else {
			for _, room := range rooms {
				s.Join(room)
			}
		}

		broadcastUserStatus(server, username, "online")
		s.Emit("online_users", presence.Online())
	})

	// send_message: persist through the coordinator; it fans out
	// new_message / message_notification itself.
	server.OnEvent("/", "send_message", func(s socketio.Conn, data map[string]interface{}) {
		sender, _ := s.Context().(string)
		if sender == "" {
			s.Emit("error", map[string]interface{}{"message": "not authenticated"})
			return
		}

		receiver := getString(data, "receiver")
		text := getString(data, "text")
		conversationID := getString(data, "conversationId")
		image := imageFromPayload(data)

		if text == "" && image == nil {
			s.Emit("error", map[string]interface{}{"message": "message needs text or an image"})
			return
		}

		msg, conv, err := Chat.SendMessage(sender, receiver, text, image, conversationID)
		if err != nil {
			s.Emit("error", map[string]interface{}{"message": err.Error()})
			return
		}

		// The sender's socket joins a brand-new room immediately; the
		// coordinator handles the receiver side.
		s.Join(conv.ID)

		s.Emit("message_sent", services.NewMessageView(msg))
	})

	// typing: fire-and-forget relay to the conversation room.
	server.OnEvent("/", "typing", func(s socketio.Conn, data map[string]interface{}) {
		username, _ := s.Context().(string)
		if username == "" {
			return
		}

		conversationID := getString(data, "conversationId")
		if conversationID == "" {
			return
		}
		isTyping, _ := data["isTyping"].(bool)

		// Throttle start-typing spam; stop events always pass
		if isTyping {
			lastTypingMu.RLock()
			lastTime, exists := lastTypingEmit[username]
			lastTypingMu.RUnlock()

			if exists && time.Since(lastTime) < typingThrottleDuration {
				return
			}

			lastTypingMu.Lock()
			lastTypingEmit[username] = time.Now()
			lastTypingMu.Unlock()
		}

		server.BroadcastToRoom("/", conversationID, "user_typing", map[string]interface{}{
			"username": username,
			"isTyping": isTyping,
		})
	})

	server.OnEvent("/", "get_online_users", func(s socketio.Conn, _ string) {
		s.Emit("online_users", presence.Online())
	})

	server.OnDisconnect("/", func(s socketio.Conn, reason string) {
		username, removed := presence.Remove(s.ID())
		logger.Info().Str("socket", s.ID()).Str("reason", reason).Msg("Socket closed")

		if removed {
			broadcastUserStatus(server, username, "offline")
		}
	})

	server.OnError("/", func(s socketio.Conn, e error) {
		logger.Error().Err(e).Msg("Socket error")
	})

	go server.Serve()
	SocketServer = server
	return server
}

// SocketHandler wraps the socket.io server for gin.
func SocketHandler(server *socketio.Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		server.ServeHTTP(c.Writer, c.Request)
	}
}
