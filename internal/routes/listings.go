package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/shadabtanjeed/UniListing-sub000/internal/handlers"
	"github.com/shadabtanjeed/UniListing-sub000/internal/middleware"
)

func RegisterApartmentRoutes(r gin.IRouter) {
	apartments := r.Group("/apartments")
	apartments.Use(middleware.AuthMiddleware())
	{
		apartments.GET("", handlers.ListApartments)
		apartments.GET("/:postId", handlers.GetApartment)
		apartments.GET("/:postId/image/:n", handlers.GetApartmentImage)
		apartments.POST("", handlers.CreateApartment)
		apartments.PATCH("/:postId", handlers.UpdateApartment)
		apartments.DELETE("/:postId", handlers.DeleteApartment)
	}
}

func RegisterMarketplaceRoutes(r gin.IRouter) {
	marketplace := r.Group("/marketplace")
	marketplace.Use(middleware.AuthMiddleware())
	{
		marketplace.GET("", handlers.ListItems)
		marketplace.GET("/:postId", handlers.GetItem)
		marketplace.GET("/:postId/image/:n", handlers.GetItemImage)
		marketplace.POST("", handlers.CreateItem)
		marketplace.PATCH("/:postId", handlers.UpdateItem)
		marketplace.DELETE("/:postId", handlers.DeleteItem)
	}
}
