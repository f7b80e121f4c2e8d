package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Apartment is a rental listing, keyed by a human-assigned PostID string
// and owned by the posting username.
type Apartment struct {
	ID        string         `gorm:"primaryKey;type:text" json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	PostID string `gorm:"uniqueIndex;not null" json:"postId"`
	Owner  string `gorm:"index;not null" json:"owner"`

	Title       string  `gorm:"not null" json:"title"`
	Description string  `gorm:"type:text" json:"description"`
	Area        string  `gorm:"index" json:"area"`
	Address     string  `json:"address"`
	Rent        int     `gorm:"index" json:"rent"`
	Bedrooms    int     `json:"bedrooms"`
	Bathrooms   int     `json:"bathrooms"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Available   bool    `gorm:"default:true" json:"available"`

	Images []ListingImage `gorm:"foreignKey:ApartmentID" json:"images,omitempty"`
}

func (a *Apartment) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return
}

// ListingImage holds one embedded apartment photo.
type ListingImage struct {
	ID          string    `gorm:"primaryKey;type:text" json:"id"`
	ApartmentID string    `gorm:"index;not null" json:"-"`
	Position    int       `json:"position"`
	Data        []byte    `gorm:"type:bytea" json:"-"`
	ContentType string    `json:"contentType"`
	Filename    string    `json:"filename"`
	CreatedAt   time.Time `json:"-"`
}

func (li *ListingImage) BeforeCreate(tx *gorm.DB) (err error) {
	if li.ID == "" {
		li.ID = uuid.New().String()
	}
	return
}
