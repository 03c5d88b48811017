package entity

import (
	"time"

	"github.com/google/uuid"
)

type BrainstormSession struct {
	Id        uuid.UUID
	OwnerKey  string
	Title     string
	CreatedAt time.Time
	UpdatedAt *time.Time
	DeletedAt *time.Time
	IsDeleted bool
}

type BrainstormMessage struct {
	Id                  uuid.UUID
	BrainstormSessionId uuid.UUID
	Role                string
	Chat                string
	CreatedAt           time.Time
}
