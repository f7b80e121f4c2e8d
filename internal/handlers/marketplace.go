package handlers

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shadabtanjeed/UniListing-sub000/internal/database"
	"github.com/shadabtanjeed/UniListing-sub000/internal/models"
	"github.com/shadabtanjeed/UniListing-sub000/pkg/logger"
	"github.com/shadabtanjeed/UniListing-sub000/pkg/utils"
	"gorm.io/gorm"
)

func itemImageMetaSelect(db *gorm.DB) *gorm.DB {
	return db.Select("id", "item_id", "position", "content_type", "filename").
		Order("position ASC")
}

func readUploadedItemImages(files []*multipart.FileHeader) ([]models.ItemImage, error) {
	images := make([]models.ItemImage, 0, len(files))
	for i, fh := range files {
		if fh.Size > maxListingImageBytes {
			return nil, errTooLargeImage
		}
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(io.LimitReader(f, maxListingImageBytes+1))
		f.Close()
		if err != nil {
			return nil, err
		}
		images = append(images, models.ItemImage{
			Position:    i,
			Data:        data,
			ContentType: fh.Header.Get("Content-Type"),
			Filename:    utils.TruncateString(fh.Filename, 255),
		})
	}
	return images, nil
}

// ListItems returns marketplace listings filtered by category and price
// range.
func ListItems(c *gin.Context) {
	query := database.DB.Model(&models.Item{}).Where("sold = ?", false)

	if category := c.Query("category"); category != "" {
		query = query.Where("LOWER(category) = LOWER(?)", category)
	}
	if minPrice, err := strconv.Atoi(c.Query("minPrice")); err == nil {
		query = query.Where("price >= ?", minPrice)
	}
	if maxPrice, err := strconv.Atoi(c.Query("maxPrice")); err == nil {
		query = query.Where("price <= ?", maxPrice)
	}
	if search := c.Query("search"); search != "" {
		query = query.Where("LOWER(title) LIKE LOWER(?)", utils.SanitizeSearchQuery(search))
	}

	var items []models.Item
	if err := query.Preload("Images", itemImageMetaSelect).
		Order("created_at DESC").Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch items"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

// GetItem returns one item by its human-assigned post id.
func GetItem(c *gin.Context) {
	var item models.Item
	err := database.DB.Preload("Images", itemImageMetaSelect).
		First(&item, "post_id = ?", c.Param("postId")).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Item not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"item": item})
}

// CreateItem accepts a multipart form (fields + image files under
// "images").
func CreateItem(c *gin.Context) {
	username := c.MustGet("username").(string)

	postID := c.PostForm("postId")
	title := c.PostForm("title")
	if postID == "" || title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "postId and title are required"})
		return
	}

	price, _ := strconv.Atoi(c.PostForm("price"))

	item := models.Item{
		PostID:      postID,
		Owner:       username,
		Title:       title,
		Description: c.PostForm("description"),
		Category:    c.PostForm("category"),
		Price:       price,
		Condition:   c.PostForm("condition"),
	}

	if form, err := c.MultipartForm(); err == nil {
		images, err := readUploadedItemImages(form.File["images"])
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		item.Images = images
	}

	if err := database.DB.Create(&item).Error; err != nil {
		var existing models.Item
		if database.DB.First(&existing, "post_id = ?", postID).Error == nil {
			c.JSON(http.StatusConflict, gin.H{"message": "A listing with this post id already exists"})
			return
		}
		logger.Error().Err(err).Msg("Failed to create item")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to create item"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"item": item})
}

// UpdateItem edits an item. Owner only.
func UpdateItem(c *gin.Context) {
	username := c.MustGet("username").(string)

	var item models.Item
	if err := database.DB.First(&item, "post_id = ?", c.Param("postId")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Item not found"})
		return
	}
	if item.Owner != username {
		c.JSON(http.StatusForbidden, gin.H{"message": "You do not own this listing"})
		return
	}

	var req struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		Category    *string `json:"category"`
		Price       *int    `json:"price"`
		Condition   *string `json:"condition"`
		Sold        *bool   `json:"sold"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	if req.Title != nil {
		item.Title = *req.Title
	}
	if req.Description != nil {
		item.Description = *req.Description
	}
	if req.Category != nil {
		item.Category = *req.Category
	}
	if req.Price != nil {
		item.Price = *req.Price
	}
	if req.Condition != nil {
		item.Condition = *req.Condition
	}
	if req.Sold != nil {
		item.Sold = *req.Sold
	}

	if err := database.DB.Save(&item).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to update item"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"item": item})
}

// DeleteItem removes an item. Owner only.
func DeleteItem(c *gin.Context) {
	username := c.MustGet("username").(string)

	var item models.Item
	if err := database.DB.First(&item, "post_id = ?", c.Param("postId")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Item not found"})
		return
	}
	if item.Owner != username {
		c.JSON(http.StatusForbidden, gin.H{"message": "You do not own this listing"})
		return
	}

	if err := database.DB.Delete(&item).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to delete item"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetItemImage streams the nth photo of an item.
func GetItemImage(c *gin.Context) {
	n, err := strconv.Atoi(c.Param("n"))
	if err != nil || n < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid image index"})
		return
	}

	var item models.Item
	if err := database.DB.Select("id").First(&item, "post_id = ?", c.Param("postId")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Item not found"})
		return
	}

	var image models.ItemImage
	err = database.DB.Where("item_id = ? AND position = ?", item.ID, n).First(&image).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Image not found"})
		return
	}

	contentType := image.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	c.Data(http.StatusOK, contentType, image.Data)
}
