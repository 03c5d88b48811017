package unitofwork

import (
	"context"
	"fmt"

	"trawell-be/internal/repository/contract"
	"trawell-be/internal/repository/implementation"

	"gorm.io/gorm"
)

type UnitOfWorkImpl struct {
	db *gorm.DB
	tx *gorm.DB // nil outside a transaction
}

func NewUnitOfWork(db *gorm.DB) UnitOfWork {
	return &UnitOfWorkImpl{
		db: db,
	}
}

func (u *UnitOfWorkImpl) getDB() *gorm.DB {
	if u.tx != nil {
		return u.tx
	}
	return u.db
}

func (u *UnitOfWorkImpl) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}
	u.tx = u.db.WithContext(ctx).Begin()
	return u.tx.Error
}

func (u *UnitOfWorkImpl) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}
	err := u.tx.Commit().Error
	u.tx = nil
	return err
}

func (u *UnitOfWorkImpl) Rollback() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to rollback")
	}
	err := u.tx.Rollback().Error
	u.tx = nil
	return err
}

// Repository Accessors

func (u *UnitOfWorkImpl) ProfilingSessionRepository() contract.ProfilingSessionRepository {
	return implementation.NewProfilingSessionRepository(u.getDB())
}

func (u *UnitOfWorkImpl) QuestionResponseRepository() contract.QuestionResponseRepository {
	return implementation.NewQuestionResponseRepository(u.getDB())
}

func (u *UnitOfWorkImpl) UserProfileRepository() contract.UserProfileRepository {
	return implementation.NewUserProfileRepository(u.getDB())
}

func (u *UnitOfWorkImpl) GroupConversationRepository() contract.GroupConversationRepository {
	return implementation.NewGroupConversationRepository(u.getDB())
}

func (u *UnitOfWorkImpl) GroupParticipantRepository() contract.GroupParticipantRepository {
	return implementation.NewGroupParticipantRepository(u.getDB())
}

func (u *UnitOfWorkImpl) GroupMessageRepository() contract.GroupMessageRepository {
	return implementation.NewGroupMessageRepository(u.getDB())
}

func (u *UnitOfWorkImpl) BrainstormSessionRepository() contract.BrainstormSessionRepository {
	return implementation.NewBrainstormSessionRepository(u.getDB())
}

func (u *UnitOfWorkImpl) BrainstormMessageRepository() contract.BrainstormMessageRepository {
	return implementation.NewBrainstormMessageRepository(u.getDB())
}

func (u *UnitOfWorkImpl) NotificationRepository() contract.NotificationRepository {
	return implementation.NewNotificationRepository(u.getDB())
}
