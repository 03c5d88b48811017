package mapper

import (
	"time"

	"trawell-be/internal/entity"
	"trawell-be/internal/model"
	"trawell-be/pkg/identity"
	"trawell-be/pkg/profiling"

	"gorm.io/datatypes"
)

type ProfilingMapper struct{}

func NewProfilingMapper() *ProfilingMapper {
	return &ProfilingMapper{}
}

// Session Mappers

func (m *ProfilingMapper) SessionToEntity(s *model.ProfilingSession) *entity.ProfilingSession {
	if s == nil {
		return nil
	}

	var updatedAt *time.Time
	if !s.UpdatedAt.IsZero() {
		t := s.UpdatedAt
		updatedAt = &t
	}

	responses := make([]*entity.QuestionResponse, 0, len(s.Responses))
	for i := range s.Responses {
		responses = append(responses, m.ResponseToEntity(&s.Responses[i]))
	}

	return &entity.ProfilingSession{
		Id:                   s.Id,
		OwnerKey:             s.OwnerKey,
		UserId:               s.UserId,
		Status:               s.Status,
		CurrentQuestionIndex: s.CurrentQuestionIndex,
		Completeness:         s.Completeness,
		Responses:            responses,
		CreatedAt:            s.CreatedAt,
		UpdatedAt:            updatedAt,
		CompletedAt:          s.CompletedAt,
	}
}

// SessionToModel leaves Responses out; they are written row by row.
func (m *ProfilingMapper) SessionToModel(s *entity.ProfilingSession) *model.ProfilingSession {
	if s == nil {
		return nil
	}

	var updatedAt time.Time
	if s.UpdatedAt != nil {
		updatedAt = *s.UpdatedAt
	}

	return &model.ProfilingSession{
		Id:                   s.Id,
		OwnerKey:             s.OwnerKey,
		UserId:               s.UserId,
		Status:               s.Status,
		CurrentQuestionIndex: s.CurrentQuestionIndex,
		Completeness:         s.Completeness,
		CreatedAt:            s.CreatedAt,
		UpdatedAt:            updatedAt,
		CompletedAt:          s.CompletedAt,
	}
}

// Response Mappers

func (m *ProfilingMapper) ResponseToEntity(r *model.QuestionResponse) *entity.QuestionResponse {
	if r == nil {
		return nil
	}
	return &entity.QuestionResponse{
		Id:               r.Id,
		SessionId:        r.SessionId,
		QuestionId:       r.QuestionId,
		Position:         r.Position,
		RawAnswer:        r.RawAnswer,
		ValidationStatus: r.ValidationStatus,
		ValueKind:        r.ValueKind,
		ValueText:        r.ValueText,
		ValueList:        []string(r.ValueList),
		FollowUpCount:    r.FollowUpCount,
		AnsweredAt:       r.AnsweredAt,
	}
}

func (m *ProfilingMapper) ResponseToModel(r *entity.QuestionResponse) *model.QuestionResponse {
	if r == nil {
		return nil
	}
	return &model.QuestionResponse{
		Id:               r.Id,
		SessionId:        r.SessionId,
		QuestionId:       r.QuestionId,
		Position:         r.Position,
		RawAnswer:        r.RawAnswer,
		ValidationStatus: r.ValidationStatus,
		ValueKind:        r.ValueKind,
		ValueText:        r.ValueText,
		ValueList:        datatypes.JSONSlice[string](r.ValueList),
		FollowUpCount:    r.FollowUpCount,
		AnsweredAt:       r.AnsweredAt,
	}
}

// Domain Mappers

func (m *ProfilingMapper) SessionFromDomain(s *profiling.Session) *entity.ProfilingSession {
	if s == nil {
		return nil
	}
	updatedAt := s.UpdatedAt
	e := &entity.ProfilingSession{
		Id:                   s.ID,
		OwnerKey:             s.Owner.Key(),
		UserId:               s.Owner.UserIDPtr(),
		Status:               string(s.Status),
		CurrentQuestionIndex: s.CurrentIndex,
		Completeness:         s.Completeness,
		Responses:            make([]*entity.QuestionResponse, 0, len(s.Responses)),
		CreatedAt:            s.CreatedAt,
		UpdatedAt:            &updatedAt,
		CompletedAt:          s.CompletedAt,
	}
	for i, r := range s.Responses {
		e.Responses = append(e.Responses, &entity.QuestionResponse{
			SessionId:        s.ID,
			QuestionId:       r.QuestionID,
			Position:         i,
			RawAnswer:        r.RawAnswer,
			ValidationStatus: string(r.Status),
			ValueKind:        string(r.Value.Kind),
			ValueText:        r.Value.Text,
			ValueList:        r.Value.List,
			FollowUpCount:    r.FollowUpCount,
			AnsweredAt:       r.AnsweredAt,
		})
	}
	return e
}

func (m *ProfilingMapper) SessionToDomain(e *entity.ProfilingSession) (*profiling.Session, error) {
	if e == nil {
		return nil, nil
	}
	owner, err := identity.Parse(e.OwnerKey)
	if err != nil {
		return nil, err
	}
	s := &profiling.Session{
		ID:           e.Id,
		Owner:        owner,
		Status:       profiling.Status(e.Status),
		CurrentIndex: e.CurrentQuestionIndex,
		Responses:    make([]*profiling.Response, 0, len(e.Responses)),
		Completeness: e.Completeness,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.CreatedAt,
		CompletedAt:  e.CompletedAt,
	}
	if e.UpdatedAt != nil {
		s.UpdatedAt = *e.UpdatedAt
	}
	for _, r := range e.Responses {
		s.Responses = append(s.Responses, &profiling.Response{
			QuestionID:    r.QuestionId,
			RawAnswer:     r.RawAnswer,
			Status:        profiling.ValidationStatus(r.ValidationStatus),
			Value:         valueFromColumns(r.ValueKind, r.ValueText, r.ValueList),
			FollowUpCount: r.FollowUpCount,
			AnsweredAt:    r.AnsweredAt,
		})
	}
	return s, nil
}

func valueFromColumns(kind, text string, list []string) profiling.ExtractedValue {
	switch profiling.ValueKind(kind) {
	case profiling.KindList:
		return profiling.ListValue(append([]string(nil), list...))
	case profiling.KindEnum:
		return profiling.EnumValue(text)
	case profiling.KindString:
		return profiling.StringValue(text)
	}
	return profiling.ExtractedValue{}
}
