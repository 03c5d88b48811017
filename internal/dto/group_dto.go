package dto

import (
	"time"

	"trawell-be/pkg/compatibility"
)

type CreateRoomRequest struct {
	DisplayName string           `json:"display_name" validate:"required,max=100"`
	Profile     *ProfileSnapshot `json:"profile,omitempty"`
}

type JoinRoomRequest struct {
	RoomCode    string           `json:"room_code" validate:"required,min=4,max=16"`
	DisplayName string           `json:"display_name" validate:"required,max=100"`
	Profile     *ProfileSnapshot `json:"profile,omitempty"`
}

type SendGroupMessageRequest struct {
	Body string `json:"body" validate:"required,max=4000"`
	// InvokeAI asks the assistant to answer right away.
	InvokeAI bool `json:"invoke_ai"`
}

type ParticipantResponse struct {
	Identity        string            `json:"identity"`
	DisplayName     string            `json:"display_name"`
	Preferences     map[string]string `json:"preferences"`
	IndividualScore *float64          `json:"individual_score"`
	IsActive        bool              `json:"is_active"`
	JoinedAt        time.Time         `json:"joined_at"`
	LastActiveAt    time.Time         `json:"last_active_at"`
}

type GroupMessageResponse struct {
	Sequence    int64                  `json:"sequence"`
	Author      *string                `json:"author"`
	DisplayName string                 `json:"display_name"`
	Body        string                 `json:"body"`
	Kind        string                 `json:"kind"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}

type RoomResponse struct {
	RoomCode      string                  `json:"room_code"`
	Status        string                  `json:"status"`
	Compatibility *compatibility.Report   `json:"compatibility"`
	Participants  []*ParticipantResponse  `json:"participants"`
	Messages      []*GroupMessageResponse `json:"messages"`
	Generating    bool                    `json:"generating"`
	CreatedAt     time.Time               `json:"created_at"`
}

// GroupEvent is one frame on a room's websocket.
type GroupEvent struct {
	Type string      `json:"type"`
	Room string      `json:"room"`
	Data interface{} `json:"data,omitempty"`
}

// GroupCommand is what a participant sends over the room websocket.
type GroupCommand struct {
	Type     string `json:"type"` // "message" | "analyze"
	Body     string `json:"body"`
	InvokeAI bool   `json:"invoke_ai"`
}
