package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/shadabtanjeed/UniListing-sub000/internal/handlers"
	"github.com/shadabtanjeed/UniListing-sub000/internal/middleware"
)

func RegisterAuthRoutes(r gin.IRouter) {
	r.POST("/signup-request", handlers.SignupRequest)
	r.POST("/verify-otp", handlers.VerifyOTP)
	r.POST("/login", handlers.Login)
	r.POST("/logout", handlers.Logout)
	r.GET("/session", middleware.AuthMiddleware(), handlers.Session)
}
