package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Item is a peer-to-peer marketplace listing.
type Item struct {
	ID        string         `gorm:"primaryKey;type:text" json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	PostID string `gorm:"uniqueIndex;not null" json:"postId"`
	Owner  string `gorm:"index;not null" json:"owner"`

	Title       string `gorm:"not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	Category    string `gorm:"index" json:"category"`
	Price       int    `gorm:"index" json:"price"`
	Condition   string `json:"condition"` // new | like-new | used
	Sold        bool   `gorm:"default:false" json:"sold"`

	Images []ItemImage `gorm:"foreignKey:ItemID" json:"images,omitempty"`
}

func (i *Item) BeforeCreate(tx *gorm.DB) (err error) {
	if i.ID == "" {
		i.ID = uuid.New().String()
	}
	return
}

// ItemImage holds one embedded item photo.
type ItemImage struct {
	ID          string    `gorm:"primaryKey;type:text" json:"id"`
	ItemID      string    `gorm:"index;not null" json:"-"`
	Position    int       `json:"position"`
	Data        []byte    `gorm:"type:bytea" json:"-"`
	ContentType string    `json:"contentType"`
	Filename    string    `json:"filename"`
	CreatedAt   time.Time `json:"-"`
}

func (ii *ItemImage) BeforeCreate(tx *gorm.DB) (err error) {
	if ii.ID == "" {
		ii.ID = uuid.New().String()
	}
	return
}
