package entity

import (
	"time"

	"github.com/google/uuid"
)

type UserProfile struct {
	Id               uuid.UUID
	OwnerKey         string
	UserId           *uuid.UUID
	SourceSessionId  string
	Preferences      map[string]string
	Constraints      map[string][]string
	PastDestinations []string
	WishlistRegions  []string
	Completeness     float64
	Summary          string
	CompletedAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        *time.Time
}
