package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/shadabtanjeed/UniListing-sub000/internal/handlers"
	"github.com/shadabtanjeed/UniListing-sub000/internal/middleware"
)

func RegisterChatRoutes(r gin.IRouter) {
	chat := r.Group("/chat")
	chat.Use(middleware.AuthMiddleware())
	{
		chat.GET("/conversations", handlers.GetConversations)
		chat.GET("/conversations/:id", handlers.GetConversationMessages)
		chat.POST("/conversations", handlers.StartConversation)
		chat.POST("/send", handlers.SendMessage)
		chat.POST("/read/:conversationId", handlers.MarkRead)
		chat.GET("/search-users", handlers.SearchUsers)
		chat.GET("/image/:messageId", handlers.GetMessageImage)
	}
}
