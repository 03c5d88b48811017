package service

import "errors"

var (
	ErrSessionNotFound    = errors.New("profiling session not found")
	ErrProfileNotFound    = errors.New("traveler profile not found")
	ErrRoomNotFound       = errors.New("room not found")
	ErrRoomCodeExhausted  = errors.New("could not allocate a unique room code")
	ErrNotParticipant     = errors.New("not a participant of this room")
	ErrRoomClosed         = errors.New("room is closed")
	ErrBrainstormNotFound = errors.New("brainstorm session not found")

	ErrNotificationNotFound = errors.New("notification not found")
)
