package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateBrainstormRequest struct {
	Title string `json:"title" validate:"max=200"`
}

type BrainstormSessionResponse struct {
	Id        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

type BrainstormMessageResponse struct {
	Id        uuid.UUID `json:"id"`
	Role      string    `json:"role"`
	Chat      string    `json:"chat"`
	CreatedAt time.Time `json:"created_at"`
}

type SendBrainstormRequest struct {
	Chat string `json:"chat" validate:"required,max=4000"`
}

type SendBrainstormResponse struct {
	SessionId uuid.UUID                  `json:"session_id"`
	Sent      *BrainstormMessageResponse `json:"sent"`
	Reply     *BrainstormMessageResponse `json:"reply"`
}

// BrainstormCommand is what the traveler sends over the brainstorm websocket.
type BrainstormCommand struct {
	Type string `json:"type"` // "message"
	Chat string `json:"chat"`
}
