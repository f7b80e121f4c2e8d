package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetConversations returns the caller's conversations, newest activity
// first, annotated with the other participant's presence.
func GetConversations(c *gin.Context) {
	username := c.MustGet("username").(string)

	conversations, err := Chat.ListConversations(username)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

// GetConversationMessages returns the full history of one conversation in
// chronological order. 403 if the caller is not a participant.
func GetConversationMessages(c *gin.Context) {
	username := c.MustGet("username").(string)
	conversationID := c.Param("id")

	messages, err := Chat.ListMessages(conversationID, username)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// SendMessage handles the plain-HTTP send path (no image support; image
// messages go over the socket channel).
func SendMessage(c *gin.Context) {
	username := c.MustGet("username").(string)

	var req struct {
		Receiver       string `json:"receiver"`
		Text           string `json:"text" binding:"required"`
		ConversationID string `json:"conversationId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "text is required"})
		return
	}
	if req.Receiver == "" && req.ConversationID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "receiver or conversationId is required"})
		return
	}

	msg, _, err := Chat.SendMessage(username, req.Receiver, req.Text, nil, req.ConversationID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// MarkRead marks every unread message addressed to the caller in the
// conversation as read and resets their unread counter. Idempotent.
func MarkRead(c *gin.Context) {
	username := c.MustGet("username").(string)
	conversationID := c.Param("conversationId")

	if err := Chat.MarkRead(conversationID, username); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// StartConversation finds or creates the conversation with the given
// receiver without sending a message.
func StartConversation(c *gin.Context) {
	username := c.MustGet("username").(string)

	var req struct {
		Receiver string `json:"receiver" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "receiver is required"})
		return
	}

	conv, err := Chat.StartConversation(username, req.Receiver)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversationId": conv.ID})
}

// SearchUsers performs a case-insensitive username substring search,
// excluding the caller, capped at 10 results.
func SearchUsers(c *gin.Context) {
	username := c.MustGet("username").(string)

	query := c.Query("query")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "query is required"})
		return
	}

	users, err := Chat.SearchUsers(query, username)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": users})
}

// GetMessageImage streams the image attached to a message. Participants
// only; attachments are immutable so the response is cacheable for a year.
func GetMessageImage(c *gin.Context) {
	username := c.MustGet("username").(string)
	messageID := c.Param("messageId")

	msg, err := Chat.GetImage(messageID, username)
	if err != nil {
		respondError(c, err)
		return
	}

	contentType := msg.ImageType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	if msg.ImageName != "" {
		c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", msg.ImageName))
	}
	c.Data(http.StatusOK, contentType, msg.ImageData)
}
