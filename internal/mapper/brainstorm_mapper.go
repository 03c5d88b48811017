package mapper

import (
	"time"

	"trawell-be/internal/entity"
	"trawell-be/internal/model"

	"gorm.io/gorm"
)

type BrainstormMapper struct{}

func NewBrainstormMapper() *BrainstormMapper {
	return &BrainstormMapper{}
}

// Session Mappers

func (m *BrainstormMapper) SessionToEntity(s *model.BrainstormSession) *entity.BrainstormSession {
	if s == nil {
		return nil
	}

	var deletedAt *time.Time
	if s.DeletedAt.Valid {
		t := s.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !s.UpdatedAt.IsZero() {
		t := s.UpdatedAt
		updatedAt = &t
	}

	return &entity.BrainstormSession{
		Id:        s.Id,
		OwnerKey:  s.OwnerKey,
		Title:     s.Title,
		CreatedAt: s.CreatedAt,
		UpdatedAt: updatedAt,
		DeletedAt: deletedAt,
		IsDeleted: s.DeletedAt.Valid,
	}
}

func (m *BrainstormMapper) SessionToModel(s *entity.BrainstormSession) *model.BrainstormSession {
	if s == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if s.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *s.DeletedAt, Valid: true}
	} else if s.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if s.UpdatedAt != nil {
		updatedAt = *s.UpdatedAt
	}

	return &model.BrainstormSession{
		Id:        s.Id,
		OwnerKey:  s.OwnerKey,
		Title:     s.Title,
		CreatedAt: s.CreatedAt,
		UpdatedAt: updatedAt,
		DeletedAt: deletedAt,
	}
}

// Message Mappers

func (m *BrainstormMapper) MessageToEntity(msg *model.BrainstormMessage) *entity.BrainstormMessage {
	if msg == nil {
		return nil
	}
	return &entity.BrainstormMessage{
		Id:                  msg.Id,
		BrainstormSessionId: msg.BrainstormSessionId,
		Role:                msg.Role,
		Chat:                msg.Chat,
		CreatedAt:           msg.CreatedAt,
	}
}

func (m *BrainstormMapper) MessageToModel(msg *entity.BrainstormMessage) *model.BrainstormMessage {
	if msg == nil {
		return nil
	}
	return &model.BrainstormMessage{
		Id:                  msg.Id,
		BrainstormSessionId: msg.BrainstormSessionId,
		Role:                msg.Role,
		Chat:                msg.Chat,
		CreatedAt:           msg.CreatedAt,
	}
}
