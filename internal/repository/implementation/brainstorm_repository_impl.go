package implementation

import (
	"context"
	"errors"

	"trawell-be/internal/entity"
	"trawell-be/internal/mapper"
	"trawell-be/internal/model"
	"trawell-be/internal/repository/contract"
	"trawell-be/internal/repository/scope"
	"trawell-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BrainstormSessionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.BrainstormMapper
}

func NewBrainstormSessionRepository(db *gorm.DB) contract.BrainstormSessionRepository {
	return &BrainstormSessionRepositoryImpl{
		db:     db,
		mapper: mapper.NewBrainstormMapper(),
	}
}

func (r *BrainstormSessionRepositoryImpl) Create(ctx context.Context, session *entity.BrainstormSession) error {
	m := r.mapper.SessionToModel(session)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*session = *r.mapper.SessionToEntity(m)
	return nil
}

func (r *BrainstormSessionRepositoryImpl) Update(ctx context.Context, session *entity.BrainstormSession) error {
	m := r.mapper.SessionToModel(session)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*session = *r.mapper.SessionToEntity(m)
	return nil
}

func (r *BrainstormSessionRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.BrainstormSession{}, id).Error
}

func (r *BrainstormSessionRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.BrainstormSession, error) {
	var m model.BrainstormSession
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.SessionToEntity(&m), nil
}

func (r *BrainstormSessionRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.BrainstormSession, error) {
	var models []*model.BrainstormSession
	query := applySpecifications(r.db.WithContext(ctx).Scopes(scope.OrderByCreatedDesc), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.BrainstormSession, len(models))
	for i, m := range models {
		entities[i] = r.mapper.SessionToEntity(m)
	}
	return entities, nil
}

func (r *BrainstormSessionRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := applySpecifications(r.db.WithContext(ctx).Model(&model.BrainstormSession{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

type BrainstormMessageRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.BrainstormMapper
}

func NewBrainstormMessageRepository(db *gorm.DB) contract.BrainstormMessageRepository {
	return &BrainstormMessageRepositoryImpl{
		db:     db,
		mapper: mapper.NewBrainstormMapper(),
	}
}

func (r *BrainstormMessageRepositoryImpl) Create(ctx context.Context, message *entity.BrainstormMessage) error {
	m := r.mapper.MessageToModel(message)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*message = *r.mapper.MessageToEntity(m)
	return nil
}

func (r *BrainstormMessageRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.BrainstormMessage, error) {
	var models []*model.BrainstormMessage
	query := applySpecifications(r.db.WithContext(ctx).Scopes(scope.OrderByCreatedAsc), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.BrainstormMessage, len(models))
	for i, m := range models {
		entities[i] = r.mapper.MessageToEntity(m)
	}
	return entities, nil
}
