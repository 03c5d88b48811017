package implementation

import (
	"context"
	"errors"

	"trawell-be/internal/entity"
	"trawell-be/internal/mapper"
	"trawell-be/internal/model"
	"trawell-be/internal/repository/contract"
	"trawell-be/internal/repository/specification"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProfilingSessionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ProfilingMapper
}

func NewProfilingSessionRepository(db *gorm.DB) contract.ProfilingSessionRepository {
	return &ProfilingSessionRepositoryImpl{
		db:     db,
		mapper: mapper.NewProfilingMapper(),
	}
}

func (r *ProfilingSessionRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ProfilingSessionRepositoryImpl) Create(ctx context.Context, session *entity.ProfilingSession) error {
	m := r.mapper.SessionToModel(session)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	responses := session.Responses
	*session = *r.mapper.SessionToEntity(m)
	session.Responses = responses
	return nil
}

func (r *ProfilingSessionRepositoryImpl) Update(ctx context.Context, session *entity.ProfilingSession) error {
	m := r.mapper.SessionToModel(session)
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(m).Error; err != nil {
		return err
	}
	responses := session.Responses
	*session = *r.mapper.SessionToEntity(m)
	session.Responses = responses
	return nil
}

func (r *ProfilingSessionRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ProfilingSession, error) {
	var m model.ProfilingSession
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.SessionToEntity(&m), nil
}

func (r *ProfilingSessionRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ProfilingSession, error) {
	var models []*model.ProfilingSession
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.ProfilingSession, len(models))
	for i, m := range models {
		entities[i] = r.mapper.SessionToEntity(m)
	}
	return entities, nil
}

func (r *ProfilingSessionRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.ProfilingSession{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

type QuestionResponseRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ProfilingMapper
}

func NewQuestionResponseRepository(db *gorm.DB) contract.QuestionResponseRepository {
	return &QuestionResponseRepositoryImpl{
		db:     db,
		mapper: mapper.NewProfilingMapper(),
	}
}

func (r *QuestionResponseRepositoryImpl) Upsert(ctx context.Context, response *entity.QuestionResponse) error {
	m := r.mapper.ResponseToModel(response)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "session_id"}, {Name: "question_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"position", "raw_answer", "validation_status", "value_kind",
			"value_text", "value_list", "follow_up_count", "answered_at",
		}),
	}).Create(m).Error
	if err != nil {
		return err
	}
	*response = *r.mapper.ResponseToEntity(m)
	return nil
}

func (r *QuestionResponseRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.QuestionResponse, error) {
	var models []*model.QuestionResponse
	db := r.db.WithContext(ctx)
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	if err := db.Order("position ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.QuestionResponse, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ResponseToEntity(m)
	}
	return entities, nil
}
