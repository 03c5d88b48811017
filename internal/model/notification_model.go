package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Notification stores the notice history pushed to an owner.
type Notification struct {
	Id        uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OwnerKey  string            `gorm:"type:varchar(80);not null;index:idx_notifications_owner_created,priority:1;index:idx_notifications_owner_unread,priority:1"`
	TypeCode  string            `gorm:"type:varchar(50);not null;index"`
	Title     string            `gorm:"type:varchar(200);not null"`
	Message   string            `gorm:"type:text;not null"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb"`
	IsRead    bool              `gorm:"default:false;index:idx_notifications_owner_unread,priority:2"`
	ReadAt    *time.Time
	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_notifications_owner_created,priority:2"`
}

func (Notification) TableName() string {
	return "notifications"
}
