package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// UserProfile has one row per owner; a newer completed session overwrites it.
type UserProfile struct {
	Id               uuid.UUID                               `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OwnerKey         string                                  `gorm:"type:varchar(80);not null;uniqueIndex"`
	UserId           *uuid.UUID                              `gorm:"type:uuid;index"`
	SourceSessionId  string                                  `gorm:"type:varchar(32);not null"`
	Preferences      datatypes.JSONType[map[string]string]   `gorm:"type:jsonb;not null"`
	Constraints      datatypes.JSONType[map[string][]string] `gorm:"type:jsonb;not null"`
	PastDestinations datatypes.JSONSlice[string]             `gorm:"type:jsonb"`
	WishlistRegions  datatypes.JSONSlice[string]             `gorm:"type:jsonb"`
	Completeness     float64                                 `gorm:"not null"`
	Summary          string                                  `gorm:"type:text"`
	CompletedAt      *time.Time
	CreatedAt        time.Time `gorm:"autoCreateTime"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime"`
}

func (UserProfile) TableName() string {
	return "user_profiles"
}
