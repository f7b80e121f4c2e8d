package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shadabtanjeed/UniListing-sub000/internal/database"
	"github.com/shadabtanjeed/UniListing-sub000/internal/models"
	"github.com/shadabtanjeed/UniListing-sub000/pkg/logger"
)

// savedTargetExists checks that the bookmarked post is real.
func savedTargetExists(targetType, targetID string) bool {
	var count int64
	switch targetType {
	case models.SavedTargetApartment:
		database.DB.Model(&models.Apartment{}).Where("post_id = ?", targetID).Count(&count)
	case models.SavedTargetItem:
		database.DB.Model(&models.Item{}).Where("post_id = ?", targetID).Count(&count)
	}
	return count > 0
}

// SavePost bookmarks an apartment or marketplace item for the caller.
// Saving the same target twice is a 409.
func SavePost(c *gin.Context) {
	username := c.MustGet("username").(string)

	var req struct {
		TargetType string `json:"targetType" binding:"required"`
		TargetID   string `json:"targetId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "targetType and targetId are required"})
		return
	}
	if !models.IsValidSavedTarget(req.TargetType) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "targetType must be apartment or item"})
		return
	}
	if !savedTargetExists(req.TargetType, req.TargetID) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Post not found"})
		return
	}

	saved := models.SavedPost{
		Owner:      username,
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
	}
	if err := database.DB.Create(&saved).Error; err != nil {
		var existing models.SavedPost
		lookupErr := database.DB.Where("owner = ? AND target_type = ? AND target_id = ?",
			username, req.TargetType, req.TargetID).First(&existing).Error
		if lookupErr == nil {
			c.JSON(http.StatusConflict, gin.H{"message": "Post already saved"})
			return
		}
		logger.Error().Err(err).Msg("Failed to save post")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to save post"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"saved": saved})
}

// ListSaved returns the caller's bookmarks, newest first.
func ListSaved(c *gin.Context) {
	username := c.MustGet("username").(string)

	var saved []models.SavedPost
	if err := database.DB.Where("owner = ?", username).
		Order("created_at DESC").Find(&saved).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch saved posts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"saved": saved})
}

// Unsave removes a bookmark.
func Unsave(c *gin.Context) {
	username := c.MustGet("username").(string)
	targetType := c.Param("targetType")
	targetID := c.Param("targetId")

	result := database.DB.Where("owner = ? AND target_type = ? AND target_id = ?",
		username, targetType, targetID).Delete(&models.SavedPost{})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to remove saved post"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "Saved post not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetMyPosts returns every listing the caller owns, both kinds in one
// response.
func GetMyPosts(c *gin.Context) {
	username := c.MustGet("username").(string)

	var apartments []models.Apartment
	if err := database.DB.Preload("Images", imageMetaSelect).
		Where("owner = ?", username).Order("created_at DESC").
		Find(&apartments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch apartments"})
		return
	}

	var items []models.Item
	if err := database.DB.Preload("Images", itemImageMetaSelect).
		Where("owner = ?", username).Order("created_at DESC").
		Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch items"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"apartments": apartments, "items": items})
}
