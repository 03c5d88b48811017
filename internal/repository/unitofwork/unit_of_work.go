package unitofwork

import (
	"context"

	"trawell-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	ProfilingSessionRepository() contract.ProfilingSessionRepository
	QuestionResponseRepository() contract.QuestionResponseRepository
	UserProfileRepository() contract.UserProfileRepository

	GroupConversationRepository() contract.GroupConversationRepository
	GroupParticipantRepository() contract.GroupParticipantRepository
	GroupMessageRepository() contract.GroupMessageRepository

	BrainstormSessionRepository() contract.BrainstormSessionRepository
	BrainstormMessageRepository() contract.BrainstormMessageRepository
	NotificationRepository() contract.NotificationRepository
}
