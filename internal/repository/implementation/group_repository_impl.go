package implementation

import (
	"context"
	"errors"
	"time"

	"trawell-be/internal/entity"
	"trawell-be/internal/mapper"
	"trawell-be/internal/model"
	"trawell-be/internal/repository/contract"
	"trawell-be/internal/repository/scope"
	"trawell-be/internal/repository/specification"
	"trawell-be/pkg/compatibility"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

// Conversations

type GroupConversationRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.GroupMapper
}

func NewGroupConversationRepository(db *gorm.DB) contract.GroupConversationRepository {
	return &GroupConversationRepositoryImpl{
		db:     db,
		mapper: mapper.NewGroupMapper(),
	}
}

func (r *GroupConversationRepositoryImpl) Create(ctx context.Context, conversation *entity.GroupConversation) error {
	m := r.mapper.ConversationToModel(conversation)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*conversation = *r.mapper.ConversationToEntity(m)
	return nil
}

func (r *GroupConversationRepositoryImpl) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	return r.db.WithContext(ctx).
		Model(&model.GroupConversation{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *GroupConversationRepositoryImpl) UpdateCompatibility(ctx context.Context, id uuid.UUID, report *compatibility.Report) error {
	return r.db.WithContext(ctx).
		Model(&model.GroupConversation{}).
		Where("id = ?", id).
		Update("compatibility", r.mapper.ReportToJSON(report)).Error
}

// AdvanceSequence never moves the counter backwards.
func (r *GroupConversationRepositoryImpl) AdvanceSequence(ctx context.Context, id uuid.UUID, sequence int64) error {
	return r.db.WithContext(ctx).
		Model(&model.GroupConversation{}).
		Where("id = ? AND last_sequence < ?", id, sequence).
		Update("last_sequence", sequence).Error
}

func (r *GroupConversationRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.GroupConversation, error) {
	var m model.GroupConversation
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ConversationToEntity(&m), nil
}

func (r *GroupConversationRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.GroupConversation, error) {
	var models []*model.GroupConversation
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.GroupConversation, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ConversationToEntity(m)
	}
	return entities, nil
}

// Participants

type GroupParticipantRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.GroupMapper
}

func NewGroupParticipantRepository(db *gorm.DB) contract.GroupParticipantRepository {
	return &GroupParticipantRepositoryImpl{
		db:     db,
		mapper: mapper.NewGroupMapper(),
	}
}

func (r *GroupParticipantRepositoryImpl) Upsert(ctx context.Context, participant *entity.GroupParticipant) error {
	m := r.mapper.ParticipantToModel(participant)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "conversation_id"}, {Name: "identity_key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"display_name", "preferences", "constraints", "is_active", "last_active_at",
		}),
	}).Create(m).Error
	if err != nil {
		return err
	}
	*participant = *r.mapper.ParticipantToEntity(m)
	return nil
}

func (r *GroupParticipantRepositoryImpl) SetActive(ctx context.Context, conversationID uuid.UUID, identityKey string, active bool, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.GroupParticipant{}).
		Where("conversation_id = ? AND identity_key = ?", conversationID, identityKey).
		Updates(map[string]interface{}{
			"is_active":      active,
			"last_active_at": at,
		}).Error
}

func (r *GroupParticipantRepositoryImpl) UpdateScores(ctx context.Context, conversationID uuid.UUID, scores map[string]float64) error {
	db := r.db.WithContext(ctx)
	for key, score := range scores {
		err := db.Model(&model.GroupParticipant{}).
			Where("conversation_id = ? AND identity_key = ?", conversationID, key).
			Update("individual_score", score).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *GroupParticipantRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.GroupParticipant, error) {
	var m model.GroupParticipant
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ParticipantToEntity(&m), nil
}

func (r *GroupParticipantRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.GroupParticipant, error) {
	var models []*model.GroupParticipant
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Order("joined_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.GroupParticipant, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ParticipantToEntity(m)
	}
	return entities, nil
}

func (r *GroupParticipantRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := applySpecifications(r.db.WithContext(ctx).Model(&model.GroupParticipant{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Messages

type GroupMessageRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.GroupMapper
}

func NewGroupMessageRepository(db *gorm.DB) contract.GroupMessageRepository {
	return &GroupMessageRepositoryImpl{
		db:     db,
		mapper: mapper.NewGroupMapper(),
	}
}

func (r *GroupMessageRepositoryImpl) Append(ctx context.Context, message *entity.GroupMessage) error {
	m := r.mapper.MessageToModel(message)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*message = *r.mapper.MessageToEntity(m)
	return nil
}

func (r *GroupMessageRepositoryImpl) ListRecent(ctx context.Context, conversationID uuid.UUID, limit int) ([]*entity.GroupMessage, error) {
	var models []*model.GroupMessage
	err := r.db.WithContext(ctx).
		Scopes(scope.OrderBySequenceDesc).
		Where("conversation_id = ?", conversationID).
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	entities := make([]*entity.GroupMessage, len(models))
	for i, m := range models {
		entities[len(models)-1-i] = r.mapper.MessageToEntity(m)
	}
	return entities, nil
}

func (r *GroupMessageRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.GroupMessage, error) {
	var models []*model.GroupMessage
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Order("sequence ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.GroupMessage, len(models))
	for i, m := range models {
		entities[i] = r.mapper.MessageToEntity(m)
	}
	return entities, nil
}
