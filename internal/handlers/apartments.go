package handlers

import (
	"errors"
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

// maxListingImageBytes caps a single uploaded listing photo (5 MB).
const maxListingImageBytes = 5 << 20

var errTooLargeImage = errors.New("image exceeds the 5MB limit")

// imageMetaSelect loads image rows without their binary payload.
func imageMetaSelect(db *gorm.DB) *gorm.DB {
	return db.Select("id", "apartment_id", "position", "content_type", "filename").
		Order("position ASC")
}

// readUploadedImages drains multipart image files into embedded image rows.
func readUploadedImages(files []*multipart.FileHeader) ([]models.ListingImage, error) {
	images := make([]models.ListingImage, 0, len(files))
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
		images = append(images, models.ListingImage{
			Position:    i,
			Data:        data,
			ContentType: fh.Header.Get("Content-Type"),
			Filename:    utils.TruncateString(fh.Filename, 255),
		})
	}
	return images, nil
}

// ListApartments returns listings filtered by area, rent range and
// bedrooms. Image bytes stay out of the response.
func ListApartments(c *gin.Context) {
	query := database.DB.Model(&models.Apartment{}).Where("available = ?", true)

	if area := c.Query("area"); area != "" {
		query = query.Where("LOWER(area) LIKE LOWER(?)", utils.SanitizeSearchQuery(area))
	}
	if minRent, err := strconv.Atoi(c.Query("minRent")); err == nil {
		query = query.Where("rent >= ?", minRent)
	}
	if maxRent, err := strconv.Atoi(c.Query("maxRent")); err == nil {
		query = query.Where("rent <= ?", maxRent)
	}
	if bedrooms, err := strconv.Atoi(c.Query("bedrooms")); err == nil {
		query = query.Where("bedrooms = ?", bedrooms)
	}

	var apartments []models.Apartment
	if err := query.Preload("Images", imageMetaSelect).
		Order("created_at DESC").Find(&apartments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch apartments"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"apartments": apartments})
}

// GetApartment returns one listing by its human-assigned post id.
func GetApartment(c *gin.Context) {
	var apartment models.Apartment
	err := database.DB.Preload("Images", imageMetaSelect).
		First(&apartment, "post_id = ?", c.Param("postId")).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Apartment not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"apartment": apartment})
}

// CreateApartment accepts a multipart form (fields + image files under
// "images"). The post id is human-assigned and must be unique.
func CreateApartment(c *gin.Context) {
	username := c.MustGet("username").(string)

	postID := c.PostForm("postId")
	title := c.PostForm("title")
	if postID == "" || title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "postId and title are required"})
		return
	}

	rent, _ := strconv.Atoi(c.PostForm("rent"))
	bedrooms, _ := strconv.Atoi(c.PostForm("bedrooms"))
	bathrooms, _ := strconv.Atoi(c.PostForm("bathrooms"))
	latitude, _ := strconv.ParseFloat(c.PostForm("latitude"), 64)
	longitude, _ := strconv.ParseFloat(c.PostForm("longitude"), 64)

	apartment := models.Apartment{
		PostID:      postID,
		Owner:       username,
		Title:       title,
		Description: c.PostForm("description"),
		Area:        c.PostForm("area"),
		Address:     c.PostForm("address"),
		Rent:        rent,
		Bedrooms:    bedrooms,
		Bathrooms:   bathrooms,
		Latitude:    latitude,
		Longitude:   longitude,
		Available:   true,
	}

	if form, err := c.MultipartForm(); err == nil {
		images, err := readUploadedImages(form.File["images"])
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		apartment.Images = images
	}

	if err := database.DB.Create(&apartment).Error; err != nil {
		var existing models.Apartment
		if database.DB.First(&existing, "post_id = ?", postID).Error == nil {
			c.JSON(http.StatusConflict, gin.H{"message": "A listing with this post id already exists"})
			return
		}
		logger.Error().Err(err).Msg("Failed to create apartment")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to create apartment"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"apartment": apartment})
}

// UpdateApartment edits a listing. Owner only.
func UpdateApartment(c *gin.Context) {
	username := c.MustGet("username").(string)

	var apartment models.Apartment
	if err := database.DB.First(&apartment, "post_id = ?", c.Param("postId")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Apartment not found"})
		return
	}
	if apartment.Owner != username {
		c.JSON(http.StatusForbidden, gin.H{"message": "You do not own this listing"})
		return
	}

	var req struct {
		Title       *string  `json:"title"`
		Description *string  `json:"description"`
		Area        *string  `json:"area"`
		Address     *string  `json:"address"`
		Rent        *int     `json:"rent"`
		Bedrooms    *int     `json:"bedrooms"`
		Bathrooms   *int     `json:"bathrooms"`
		Latitude    *float64 `json:"latitude"`
		Longitude   *float64 `json:"longitude"`
		Available   *bool    `json:"available"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	if req.Title != nil {
		apartment.Title = *req.Title
	}
	if req.Description != nil {
		apartment.Description = *req.Description
	}
	if req.Area != nil {
		apartment.Area = *req.Area
	}
	if req.Address != nil {
		apartment.Address = *req.Address
	}
	if req.Rent != nil {
		apartment.Rent = *req.Rent
	}
	if req.Bedrooms != nil {
		apartment.Bedrooms = *req.Bedrooms
	}
	if req.Bathrooms != nil {
		apartment.Bathrooms = *req.Bathrooms
	}
	if req.Latitude != nil {
		apartment.Latitude = *req.Latitude
	}
	if req.Longitude != nil {
		apartment.Longitude = *req.Longitude
	}
	if req.Available != nil {
		apartment.Available = *req.Available
	}

	if err := database.DB.Save(&apartment).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to update apartment"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"apartment": apartment})
}

// DeleteApartment removes a listing. Owner only.
func DeleteApartment(c *gin.Context) {
	username := c.MustGet("username").(string)

	var apartment models.Apartment
	if err := database.DB.First(&apartment, "post_id = ?", c.Param("postId")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Apartment not found"})
		return
	}
	if apartment.Owner != username {
		c.JSON(http.StatusForbidden, gin.H{"message": "You do not own this listing"})
		return
	}

	if err := database.DB.Delete(&apartment).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to delete apartment"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetApartmentImage streams the nth photo of a listing.
func GetApartmentImage(c *gin.Context) {
	n, err := strconv.Atoi(c.Param("n"))
	if err != nil || n < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid image index"})
		return
	}

	var apartment models.Apartment
	if err := database.DB.Select("id").First(&apartment, "post_id = ?", c.Param("postId")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Apartment not found"})
		return
	}

	var image models.ListingImage
	err = database.DB.Where("apartment_id = ? AND position = ?", apartment.ID, n).First(&image).Error
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
