package service

import (
	"context"
	"strings"
	"time"

	"trawell-be/internal/dto"
	"trawell-be/internal/entity"
	"trawell-be/internal/pkg/logger"
	"trawell-be/internal/repository/specification"
	"trawell-be/internal/repository/unitofwork"
	"trawell-be/pkg/identity"
	"trawell-be/pkg/llm"
	"trawell-be/pkg/prompts"

	"github.com/google/uuid"
)

const brainstormModule = "BrainstormService"

const defaultBrainstormTitle = "New trip idea"

// IBrainstormService is the one-to-one destination chat seeded with the
// caller's profile.
type IBrainstormService interface {
	CreateSession(ctx context.Context, owner identity.Identity, req *dto.CreateBrainstormRequest) (*dto.BrainstormSessionResponse, error)
	GetAllSessions(ctx context.Context, owner identity.Identity) ([]*dto.BrainstormSessionResponse, error)
	GetMessages(ctx context.Context, owner identity.Identity, sessionId uuid.UUID) ([]*dto.BrainstormMessageResponse, error)
	// SendMessage stores the chat, asks the model and stores the reply.
	// onToken, when set, receives the reply as it streams.
	SendMessage(ctx context.Context, owner identity.Identity, sessionId uuid.UUID, req *dto.SendBrainstormRequest, onToken func(string)) (*dto.SendBrainstormResponse, error)
	DeleteSession(ctx context.Context, owner identity.Identity, sessionId uuid.UUID) error
}

type brainstormService struct {
	uowFactory    unitofwork.RepositoryFactory
	profiles      IProfileService
	llm           llm.LLMProvider
	prompts       *prompts.Set
	historyWindow int
	logger        logger.ILogger
}

func NewBrainstormService(
	uowFactory unitofwork.RepositoryFactory,
	profiles IProfileService,
	llmProvider llm.LLMProvider,
	promptSet *prompts.Set,
	historyWindow int,
	log logger.ILogger,
) IBrainstormService {
	if historyWindow <= 0 {
		historyWindow = 20
	}
	return &brainstormService{
		uowFactory:    uowFactory,
		profiles:      profiles,
		llm:           llmProvider,
		prompts:       promptSet,
		historyWindow: historyWindow,
		logger:        log,
	}
}

func (s *brainstormService) CreateSession(ctx context.Context, owner identity.Identity, req *dto.CreateBrainstormRequest) (*dto.BrainstormSessionResponse, error) {
	// Solo brainstorming needs something to ground suggestions in.
	if _, err := s.profiles.Load(ctx, owner); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = defaultBrainstormTitle
	}
	session := &entity.BrainstormSession{
		OwnerKey:  owner.Key(),
		Title:     title,
		CreatedAt: time.Now(),
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.BrainstormSessionRepository().Create(ctx, session); err != nil {
		return nil, err
	}
	return toBrainstormSessionResponse(session), nil
}

func (s *brainstormService) GetAllSessions(ctx context.Context, owner identity.Identity) ([]*dto.BrainstormSessionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	sessions, err := uow.BrainstormSessionRepository().FindAll(ctx, specification.ByOwnerKey{OwnerKey: owner.Key()})
	if err != nil {
		return nil, err
	}

	res := make([]*dto.BrainstormSessionResponse, 0, len(sessions))
	for _, session := range sessions {
		res = append(res, toBrainstormSessionResponse(session))
	}
	return res, nil
}

func (s *brainstormService) GetMessages(ctx context.Context, owner identity.Identity, sessionId uuid.UUID) ([]*dto.BrainstormMessageResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if _, err := s.ownedSession(ctx, uow, owner, sessionId); err != nil {
		return nil, err
	}

	messages, err := uow.BrainstormMessageRepository().FindAll(ctx, specification.ByBrainstormSessionID{BrainstormSessionID: sessionId})
	if err != nil {
		return nil, err
	}

	res := make([]*dto.BrainstormMessageResponse, 0, len(messages))
	for _, m := range messages {
		res = append(res, toBrainstormMessageResponse(m))
	}
	return res, nil
}

func (s *brainstormService) SendMessage(ctx context.Context, owner identity.Identity, sessionId uuid.UUID, req *dto.SendBrainstormRequest, onToken func(string)) (*dto.SendBrainstormResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	session, err := s.ownedSession(ctx, uow, owner, sessionId)
	if err != nil {
		return nil, err
	}

	profile, err := s.profiles.Load(ctx, owner)
	if err != nil {
		return nil, err
	}
	system, err := s.prompts.Render("solo_system", map[string]interface{}{"Profile": profile.Describe()})
	if err != nil {
		return nil, err
	}

	past, err := uow.BrainstormMessageRepository().FindAll(ctx, specification.ByBrainstormSessionID{BrainstormSessionID: sessionId})
	if err != nil {
		return nil, err
	}
	if len(past) > s.historyWindow {
		past = past[len(past)-s.historyWindow:]
	}

	chat := strings.TrimSpace(req.Chat)
	history := make([]llm.Message, 0, len(past)+2)
	history = append(history, llm.Message{Role: llm.RoleSystem, Content: system})
	for _, m := range past {
		history = append(history, llm.Message{Role: m.Role, Content: m.Chat})
	}
	history = append(history, llm.Message{Role: llm.RoleUser, Content: chat})

	sent := &entity.BrainstormMessage{
		BrainstormSessionId: session.Id,
		Role:                llm.RoleUser,
		Chat:                chat,
		CreatedAt:           time.Now(),
	}
	if err := uow.BrainstormMessageRepository().Create(ctx, sent); err != nil {
		return nil, err
	}

	text, err := s.reply(ctx, history, onToken)
	if err != nil {
		s.logger.Warn(brainstormModule, "Brainstorm reply failed", map[string]interface{}{"session": sessionId.String(), "error": err.Error()})
		return nil, err
	}

	reply := &entity.BrainstormMessage{
		BrainstormSessionId: session.Id,
		Role:                llm.RoleAssistant,
		Chat:                text,
		CreatedAt:           time.Now(),
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.BrainstormMessageRepository().Create(ctx, reply); err != nil {
		return nil, err
	}
	now := time.Now()
	session.UpdatedAt = &now
	if err := uow.BrainstormSessionRepository().Update(ctx, session); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	return &dto.SendBrainstormResponse{
		SessionId: session.Id,
		Sent:      toBrainstormMessageResponse(sent),
		Reply:     toBrainstormMessageResponse(reply),
	}, nil
}

func (s *brainstormService) reply(ctx context.Context, history []llm.Message, onToken func(string)) (string, error) {
	if onToken == nil {
		text, err := s.llm.Chat(ctx, history)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(text) == "" {
			return "", llm.ErrEmptyResponse
		}
		return strings.TrimSpace(text), nil
	}

	stream, err := s.llm.ChatStream(ctx, history)
	if err != nil {
		return "", err
	}
	var text strings.Builder
	for chunk := range stream {
		if chunk.Text != "" {
			text.WriteString(chunk.Text)
			onToken(chunk.Text)
		}
		if chunk.Done && chunk.Err != nil {
			return "", chunk.Err
		}
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", llm.ErrEmptyResponse
	}
	return strings.TrimSpace(text.String()), nil
}

func (s *brainstormService) DeleteSession(ctx context.Context, owner identity.Identity, sessionId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if _, err := s.ownedSession(ctx, uow, owner, sessionId); err != nil {
		return err
	}
	return uow.BrainstormSessionRepository().Delete(ctx, sessionId)
}

func (s *brainstormService) ownedSession(ctx context.Context, uow unitofwork.UnitOfWork, owner identity.Identity, sessionId uuid.UUID) (*entity.BrainstormSession, error) {
	session, err := uow.BrainstormSessionRepository().FindOne(ctx,
		specification.ByID{ID: sessionId},
		specification.ByOwnerKey{OwnerKey: owner.Key()},
	)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrBrainstormNotFound
	}
	return session, nil
}

func toBrainstormSessionResponse(s *entity.BrainstormSession) *dto.BrainstormSessionResponse {
	return &dto.BrainstormSessionResponse{
		Id:        s.Id,
		Title:     s.Title,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func toBrainstormMessageResponse(m *entity.BrainstormMessage) *dto.BrainstormMessageResponse {
	return &dto.BrainstormMessageResponse{
		Id:        m.Id,
		Role:      m.Role,
		Chat:      m.Chat,
		CreatedAt: m.CreatedAt,
	}
}
