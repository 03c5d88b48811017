package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ByKey filters tables keyed by an opaque string id.
type ByKey struct {
	Key string
}

func (s ByKey) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("id = ?", s.Key)
}

type ByOwnerKey struct {
	OwnerKey string
}

func (s ByOwnerKey) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("owner_key = ?", s.OwnerKey)
}

type ByStatus struct {
	Statuses []string
}

func (s ByStatus) Apply(db *gorm.DB) *gorm.DB {
	if len(s.Statuses) == 1 {
		return db.Where("status = ?", s.Statuses[0])
	}
	return db.Where("status IN ?", s.Statuses)
}

// WithResponses preloads profiling answers in answer order.
type WithResponses struct{}

func (s WithResponses) Apply(db *gorm.DB) *gorm.DB {
	return db.Preload("Responses", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	})
}

type BySessionKey struct {
	SessionKey string
}

func (s BySessionKey) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("session_id = ?", s.SessionKey)
}

type ByRoomCode struct {
	RoomCode string
}

func (s ByRoomCode) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("room_code = ?", s.RoomCode)
}

type ByConversationID struct {
	ConversationID uuid.UUID
}

func (s ByConversationID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("conversation_id = ?", s.ConversationID)
}

type ByIdentityKey struct {
	IdentityKey string
}

func (s ByIdentityKey) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("identity_key = ?", s.IdentityKey)
}

type ActiveOnly struct{}

func (s ActiveOnly) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("is_active = ?", true)
}

// AfterSequence is used to replay messages a client missed.
type AfterSequence struct {
	Sequence int64
}

func (s AfterSequence) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("sequence > ?", s.Sequence)
}

type ByBrainstormSessionID struct {
	BrainstormSessionID uuid.UUID
}

func (s ByBrainstormSessionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("brainstorm_session_id = ?", s.BrainstormSessionID)
}

type UnreadOnly struct{}

func (s UnreadOnly) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("is_read = ?", false)
}
