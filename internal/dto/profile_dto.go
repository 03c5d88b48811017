package dto

import (
	"time"
)

type ProfileResponse struct {
	Owner            string              `json:"owner"`
	SourceSessionId  string              `json:"source_session_id"`
	Preferences      map[string]string   `json:"preferences"`
	Constraints      map[string][]string `json:"constraints"`
	PastDestinations []string            `json:"past_destinations"`
	WishlistRegions  []string            `json:"wishlist_regions"`
	Completeness     float64             `json:"completeness"`
	Summary          string              `json:"summary,omitempty"`
	CompletedAt      *time.Time          `json:"completed_at,omitempty"`
}

// ProfileSnapshot is a participant's preference copy taken at join time.
type ProfileSnapshot struct {
	Preferences map[string]string   `json:"preferences" validate:"omitempty,max=20"`
	Constraints map[string][]string `json:"constraints" validate:"omitempty,max=20"`
}
