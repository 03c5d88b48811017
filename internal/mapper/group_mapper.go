package mapper

import (
	"encoding/json"
	"time"

	"trawell-be/internal/entity"
	"trawell-be/internal/model"
	"trawell-be/pkg/compatibility"
	"trawell-be/pkg/moderation"

	"gorm.io/datatypes"
)

type GroupMapper struct{}

func NewGroupMapper() *GroupMapper {
	return &GroupMapper{}
}

// Conversation Mappers

func (m *GroupMapper) ConversationToEntity(c *model.GroupConversation) *entity.GroupConversation {
	if c == nil {
		return nil
	}

	var updatedAt *time.Time
	if !c.UpdatedAt.IsZero() {
		t := c.UpdatedAt
		updatedAt = &t
	}

	var report *compatibility.Report
	if len(c.Compatibility) > 0 && string(c.Compatibility) != "null" {
		report = &compatibility.Report{}
		if err := json.Unmarshal(c.Compatibility, report); err != nil {
			report = nil
		}
	}

	return &entity.GroupConversation{
		Id:            c.Id,
		RoomCode:      c.RoomCode,
		Status:        c.Status,
		CreatorKey:    c.CreatorKey,
		Compatibility: report,
		LastSequence:  c.LastSequence,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     updatedAt,
	}
}

func (m *GroupMapper) ConversationToModel(c *entity.GroupConversation) *model.GroupConversation {
	if c == nil {
		return nil
	}

	var updatedAt time.Time
	if c.UpdatedAt != nil {
		updatedAt = *c.UpdatedAt
	}

	return &model.GroupConversation{
		Id:            c.Id,
		RoomCode:      c.RoomCode,
		Status:        c.Status,
		CreatorKey:    c.CreatorKey,
		Compatibility: m.ReportToJSON(c.Compatibility),
		LastSequence:  c.LastSequence,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     updatedAt,
	}
}

func (m *GroupMapper) ReportToJSON(r *compatibility.Report) datatypes.JSON {
	if r == nil {
		return nil
	}
	raw, err := json.Marshal(r)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}

// Participant Mappers

func (m *GroupMapper) ParticipantToEntity(p *model.GroupParticipant) *entity.GroupParticipant {
	if p == nil {
		return nil
	}
	return &entity.GroupParticipant{
		Id:              p.Id,
		ConversationId:  p.ConversationId,
		IdentityKey:     p.IdentityKey,
		DisplayName:     p.DisplayName,
		Preferences:     p.Preferences.Data(),
		Constraints:     p.Constraints.Data(),
		IndividualScore: p.IndividualScore,
		IsActive:        p.IsActive,
		JoinedAt:        p.JoinedAt,
		LastActiveAt:    p.LastActiveAt,
	}
}

func (m *GroupMapper) ParticipantToModel(p *entity.GroupParticipant) *model.GroupParticipant {
	if p == nil {
		return nil
	}
	return &model.GroupParticipant{
		Id:              p.Id,
		ConversationId:  p.ConversationId,
		IdentityKey:     p.IdentityKey,
		DisplayName:     p.DisplayName,
		Preferences:     datatypes.NewJSONType(nonNilStrings(p.Preferences)),
		Constraints:     datatypes.NewJSONType(nonNilLists(p.Constraints)),
		IndividualScore: p.IndividualScore,
		IsActive:        p.IsActive,
		JoinedAt:        p.JoinedAt,
		LastActiveAt:    p.LastActiveAt,
	}
}

// Message Mappers

func (m *GroupMapper) MessageToEntity(msg *model.GroupMessage) *entity.GroupMessage {
	if msg == nil {
		return nil
	}
	return &entity.GroupMessage{
		Id:             msg.Id,
		ConversationId: msg.ConversationId,
		Sequence:       msg.Sequence,
		AuthorKey:      msg.AuthorKey,
		DisplayName:    msg.DisplayName,
		Body:           msg.Body,
		Kind:           msg.Kind,
		Metadata:       map[string]interface{}(msg.Metadata),
		CreatedAt:      msg.CreatedAt,
	}
}

func (m *GroupMapper) MessageToModel(msg *entity.GroupMessage) *model.GroupMessage {
	if msg == nil {
		return nil
	}
	return &model.GroupMessage{
		Id:             msg.Id,
		ConversationId: msg.ConversationId,
		Sequence:       msg.Sequence,
		AuthorKey:      msg.AuthorKey,
		DisplayName:    msg.DisplayName,
		Body:           msg.Body,
		Kind:           msg.Kind,
		Metadata:       datatypes.JSONMap(msg.Metadata),
		CreatedAt:      msg.CreatedAt,
	}
}

// Domain Mappers

// ParticipantToCompatibility feeds the engine. Only preferences are scored.
func (m *GroupMapper) ParticipantToCompatibility(p *entity.GroupParticipant) compatibility.Participant {
	prefs := make(map[string]string, len(p.Preferences))
	for k, v := range p.Preferences {
		prefs[k] = v
	}
	return compatibility.Participant{
		ID:          p.IdentityKey,
		DisplayName: p.DisplayName,
		Preferences: prefs,
	}
}

func (m *GroupMapper) MessageToModeration(msg *entity.GroupMessage) moderation.Message {
	var author string
	if msg.AuthorKey != nil {
		author = *msg.AuthorKey
	}
	return moderation.Message{
		AuthorID: author,
		Kind:     moderation.MessageKind(msg.Kind),
		Body:     msg.Body,
		Metadata: msg.Metadata,
	}
}
