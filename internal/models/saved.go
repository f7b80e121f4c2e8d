package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	SavedTargetApartment = "apartment"
	SavedTargetItem      = "item"
)

// SavedPost is a bookmark join record. The composite unique index prevents
// the same user saving the same target twice.
type SavedPost struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	Owner      string `gorm:"uniqueIndex:idx_owner_target;not null" json:"owner"`
	TargetType string `gorm:"uniqueIndex:idx_owner_target;not null" json:"targetType"`
	TargetID   string `gorm:"uniqueIndex:idx_owner_target;not null" json:"targetId"`
}

func (sp *SavedPost) BeforeCreate(tx *gorm.DB) (err error) {
	if sp.ID == "" {
		sp.ID = uuid.New().String()
	}
	return
}

// IsValidSavedTarget reports whether t names a saveable resource kind.
func IsValidSavedTarget(t string) bool {
	return t == SavedTargetApartment || t == SavedTargetItem
}
