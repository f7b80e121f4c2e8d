package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shadabtanjeed/UniListing-sub000/internal/services"
	apperrors "github.com/shadabtanjeed/UniListing-sub000/pkg/errors"
	"github.com/shadabtanjeed/UniListing-sub000/pkg/logger"
)

// Injected at startup (and by package tests); handlers share one service
// set per process.
var (
	Chat     *services.ChatService
	Presence services.PresenceRegistry
	OTPCodes services.CodeStore
	Mail     services.Mailer
)

// respondError converts a service error to the status/{message} JSON
// contract. Anything that is not an AppError is a 500.
func respondError(c *gin.Context, err error) {
	if appErr, ok := err.(*apperrors.AppError); ok {
		c.JSON(appErr.Code, gin.H{"message": appErr.Message})
		return
	}
	logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Unexpected handler error")
	c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
}
