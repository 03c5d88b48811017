package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "profile_completed").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

const (
	TypeProfileCompleted  = "profile_completed"
	TypeProfileSummarized = "profile_summarized"
	TypeRoomCreated       = "room_created"
	TypeParticipantJoined = "participant_joined"
)

// Payload keys shared by producers and consumers.
const (
	KeyOwner       = "owner"
	KeySessionID   = "session_id"
	KeyRoomCode    = "room_code"
	KeyDisplayName = "display_name"
	KeySummary     = "summary"
	KeyOccurredAt  = "occurred_at"
)

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// String reads a string payload entry.
func (e BaseEvent) String(key string) string {
	s, _ := e.Data[key].(string)
	return s
}

func ProfileCompleted(owner, sessionID string) BaseEvent {
	return BaseEvent{
		Type:       TypeProfileCompleted,
		Data:       map[string]interface{}{KeyOwner: owner, KeySessionID: sessionID},
		OccurredAt: time.Now(),
	}
}

func ProfileSummarized(owner, summary string) BaseEvent {
	return BaseEvent{
		Type:       TypeProfileSummarized,
		Data:       map[string]interface{}{KeyOwner: owner, KeySummary: summary},
		OccurredAt: time.Now(),
	}
}

func RoomCreated(owner, roomCode string) BaseEvent {
	return BaseEvent{
		Type:       TypeRoomCreated,
		Data:       map[string]interface{}{KeyOwner: owner, KeyRoomCode: roomCode},
		OccurredAt: time.Now(),
	}
}

func ParticipantJoined(owner, roomCode, displayName string) BaseEvent {
	return BaseEvent{
		Type:       TypeParticipantJoined,
		Data:       map[string]interface{}{KeyOwner: owner, KeyRoomCode: roomCode, KeyDisplayName: displayName},
		OccurredAt: time.Now(),
	}
}
