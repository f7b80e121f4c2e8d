package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shadabtanjeed/UniListing-sub000/internal/database"
	"github.com/shadabtanjeed/UniListing-sub000/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestSavePostDuplicateConflict(t *testing.T) {
	SetupTestDB()
	gin.SetMode(gin.TestMode)
	createTestUsers("saver_s1", "owner_s1")

	database.DB.Create(&models.Apartment{PostID: "apt-s1", Owner: "owner_s1", Title: "Room near campus"})

	body := map[string]string{"targetType": "apartment", "targetId": "apt-s1"}

	c, w := authedContext(t, "saver_s1", "POST", "/api/saved", body)
	SavePost(c)
	assert.Equal(t, http.StatusCreated, w.Code)

	c, w = authedContext(t, "saver_s1", "POST", "/api/saved", body)
	SavePost(c)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSavePostUnknownTarget(t *testing.T) {
	SetupTestDB()
	gin.SetMode(gin.TestMode)
	createTestUsers("saver_s2")

	c, w := authedContext(t, "saver_s2", "POST", "/api/saved", map[string]string{
		"targetType": "apartment",
		"targetId":   "missing",
	})
	SavePost(c)
	assert.Equal(t, http.StatusNotFound, w.Code)

	c, w = authedContext(t, "saver_s2", "POST", "/api/saved", map[string]string{
		"targetType": "bicycle",
		"targetId":   "apt-1",
	})
	SavePost(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUnsave(t *testing.T) {
	SetupTestDB()
	gin.SetMode(gin.TestMode)
	createTestUsers("saver_s3", "owner_s3")

	database.DB.Create(&models.Item{PostID: "item-s3", Owner: "owner_s3", Title: "Used textbook"})
	database.DB.Create(&models.SavedPost{Owner: "saver_s3", TargetType: "item", TargetID: "item-s3"})

	c, w := authedContext(t, "saver_s3", "DELETE", "/api/saved/item/item-s3", nil)
	c.Params = gin.Params{{Key: "targetType", Value: "item"}, {Key: "targetId", Value: "item-s3"}}
	Unsave(c)
	assert.Equal(t, http.StatusOK, w.Code)

	// Second delete finds nothing
	c, w = authedContext(t, "saver_s3", "DELETE", "/api/saved/item/item-s3", nil)
	c.Params = gin.Params{{Key: "targetType", Value: "item"}, {Key: "targetId", Value: "item-s3"}}
	Unsave(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListSaved(t *testing.T) {
	SetupTestDB()
	gin.SetMode(gin.TestMode)
	createTestUsers("saver_s4", "other_s4")

	database.DB.Create(&models.SavedPost{Owner: "saver_s4", TargetType: "item", TargetID: "i1"})
	database.DB.Create(&models.SavedPost{Owner: "saver_s4", TargetType: "apartment", TargetID: "a1"})
	database.DB.Create(&models.SavedPost{Owner: "other_s4", TargetType: "item", TargetID: "i1"})

	c, w := authedContext(t, "saver_s4", "GET", "/api/saved", nil)
	ListSaved(c)
	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Saved []models.SavedPost `json:"saved"`
	}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Len(t, response.Saved, 2)
	for _, s := range response.Saved {
		assert.Equal(t, "saver_s4", s.Owner)
	}
}
