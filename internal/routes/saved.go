package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/shadabtanjeed/UniListing-sub000/internal/handlers"
	"github.com/shadabtanjeed/UniListing-sub000/internal/middleware"
)

func RegisterSavedRoutes(r gin.IRouter) {
	saved := r.Group("/saved")
	saved.Use(middleware.AuthMiddleware())
	{
		saved.GET("", handlers.ListSaved)
		saved.POST("", handlers.SavePost)
		saved.DELETE("/:targetType/:targetId", handlers.Unsave)
	}

	r.GET("/myposts", middleware.AuthMiddleware(), handlers.GetMyPosts)
}
