package service

import (
	"context"
	"errors"
	"fmt"

	"trawell-be/internal/dto"
	"trawell-be/internal/entity"
	"trawell-be/internal/mapper"
	"trawell-be/internal/pkg/logger"
	"trawell-be/internal/repository/contract"
	"trawell-be/internal/repository/specification"
	"trawell-be/internal/repository/unitofwork"
	"trawell-be/internal/tracer"
	"trawell-be/pkg/database"
	"trawell-be/pkg/events"
	"trawell-be/pkg/identity"
	"trawell-be/pkg/keylock"
	"trawell-be/pkg/profiling"

	"go.opentelemetry.io/otel/attribute"
)

const profilingModule = "ProfilingService"

const (
	staleFeedback           = "That answer was for an earlier question. Let's pick up where we left off."
	staleFeedbackNoQuestion = "Every question is answered already. You can finish your profile now."
)

type IProfilingService interface {
	GetQuestions(ctx context.Context) *dto.QuestionCatalogResponse
	Start(ctx context.Context, owner identity.Identity, req *dto.StartProfilingRequest) (*dto.ProfilingSessionResponse, error)
	GetSession(ctx context.Context, owner identity.Identity, sessionID string) (*dto.ProfilingSessionResponse, error)
	SubmitAnswer(ctx context.Context, owner identity.Identity, sessionID string, req *dto.SubmitAnswerRequest) (*dto.SubmitAnswerResponse, error)
	Complete(ctx context.Context, owner identity.Identity, sessionID string) (*dto.CompleteProfilingResponse, error)
	Abandon(ctx context.Context, owner identity.Identity, sessionID string) (*dto.ProfilingSessionResponse, error)
}

type profilingService struct {
	uowFactory    unitofwork.RepositoryFactory
	cache         contract.SessionCache
	machine       *profiling.Machine
	locks         *keylock.Locks
	publisher     events.Publisher
	jobs          IPublisherService
	sessionMapper *mapper.ProfilingMapper
	profileMapper *mapper.ProfileMapper
	logger        logger.ILogger
	autoComplete  bool
}

func NewProfilingService(
	uowFactory unitofwork.RepositoryFactory,
	cache contract.SessionCache,
	machine *profiling.Machine,
	publisher events.Publisher,
	jobs IPublisherService,
	log logger.ILogger,
	autoComplete bool,
) IProfilingService {
	return &profilingService{
		uowFactory:    uowFactory,
		cache:         cache,
		machine:       machine,
		locks:         keylock.New(),
		publisher:     publisher,
		jobs:          jobs,
		sessionMapper: mapper.NewProfilingMapper(),
		profileMapper: mapper.NewProfileMapper(),
		logger:        log,
		autoComplete:  autoComplete,
	}
}

func (s *profilingService) GetQuestions(ctx context.Context) *dto.QuestionCatalogResponse {
	catalog := s.machine.Catalog()
	return &dto.QuestionCatalogResponse{
		Questions:   catalog.Questions(),
		CriticalIds: catalog.CriticalIDs(),
		Total:       catalog.Len(),
		Intro:       catalog.Intro(),
	}
}

func (s *profilingService) Start(ctx context.Context, owner identity.Identity, req *dto.StartProfilingRequest) (*dto.ProfilingSessionResponse, error) {
	if owner.IsZero() {
		return nil, profiling.ErrNoOwner
	}

	// Serialize starts per owner so two tabs cannot both open a session.
	unlock, err := s.locks.LockContext(ctx, "owner:"+owner.Key())
	if err != nil {
		return nil, err
	}
	defer unlock()

	uow := s.uowFactory.NewUnitOfWork(ctx)
	current, err := uow.ProfilingSessionRepository().FindOne(ctx,
		specification.ByOwnerKey{OwnerKey: owner.Key()},
		specification.ByStatus{Statuses: []string{string(profiling.StatusInProgress), string(profiling.StatusNotStarted)}},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.WithResponses{},
	)
	if err != nil {
		return nil, err
	}

	var active *profiling.Session
	if current != nil {
		active, err = s.sessionMapper.SessionToDomain(current)
		if err != nil {
			return nil, err
		}
		if req != nil && req.Resume {
			res := s.toSessionResponse(active)
			res.Resumed = true
			return res, nil
		}
	}

	session, err := s.machine.Start(owner, active)
	if err != nil {
		return nil, err
	}

	if err := uow.ProfilingSessionRepository().Create(ctx, s.sessionMapper.SessionFromDomain(session)); err != nil {
		// Another instance won the race on the one-active-session index.
		if database.IsUniqueViolation(err) {
			return nil, profiling.ErrDuplicateActiveSession
		}
		return nil, err
	}
	s.cacheSession(ctx, session)

	s.logger.Info(profilingModule, "Profiling session started", map[string]interface{}{"session_id": session.ID, "owner": owner.Key()})

	res := s.toSessionResponse(session)
	res.Intro = s.machine.Catalog().Intro()
	return res, nil
}

func (s *profilingService) GetSession(ctx context.Context, owner identity.Identity, sessionID string) (*dto.ProfilingSessionResponse, error) {
	session, err := s.load(ctx, owner, sessionID)
	if err != nil {
		return nil, err
	}
	return s.toSessionResponse(session), nil
}

func (s *profilingService) SubmitAnswer(ctx context.Context, owner identity.Identity, sessionID string, req *dto.SubmitAnswerRequest) (*dto.SubmitAnswerResponse, error) {
	ctx, span := tracer.Tracer().Start(ctx, "profiling.SubmitAnswer")
	defer span.End()
	span.SetAttributes(
		attribute.String("profiling.session_id", sessionID),
		attribute.String("profiling.question_id", req.QuestionId),
	)

	unlock, err := s.locks.LockContext(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	session, err := s.load(ctx, owner, sessionID)
	if err != nil {
		return nil, err
	}

	outcome, next, err := s.machine.SubmitAnswer(ctx, session, req.QuestionId, req.Answer)
	if errors.Is(err, profiling.ErrStaleQuestion) {
		s.logger.Info(profilingModule, "Stale answer, re-prompting", map[string]interface{}{"session_id": sessionID, "question_id": req.QuestionId})
		span.SetAttributes(attribute.Bool("profiling.stale", true))
		return s.reprompt(session, req.QuestionId), nil
	}
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("profiling.validation_status", string(outcome.Status)))

	if err := s.saveAnswer(ctx, session, outcome.QuestionID); err != nil {
		// The cached copy is untouched, so the answer can simply be retried.
		return nil, err
	}
	s.cacheSession(ctx, session)

	res := &dto.SubmitAnswerResponse{
		Outcome:      outcome,
		NextQuestion: next,
		Progress:     s.machine.Progress(session),
		Status:       string(session.Status),
	}

	if outcome.CanComplete && s.autoComplete {
		profile, err := s.complete(ctx, session)
		if err != nil {
			// The answer is stored; the client can still complete explicitly.
			s.logger.Warn(profilingModule, "Auto-complete failed", map[string]interface{}{"session_id": sessionID, "error": err.Error()})
			return res, nil
		}
		res.Profile = toProfileResponse(profile, "")
		res.Status = string(session.Status)
		res.NextQuestion = nil
		res.Progress = s.machine.Progress(session)
		res.Message = s.machine.Catalog().Completion()
	}
	return res, nil
}

// reprompt answers a submission for a question that is no longer pending.
// Nothing is stored; the caller gets feedback and the current question again.
func (s *profilingService) reprompt(session *profiling.Session, questionID string) *dto.SubmitAnswerResponse {
	outcome := profiling.Outcome{
		QuestionID:   questionID,
		Status:       profiling.Insufficient,
		Feedback:     staleFeedback,
		Completeness: s.machine.Completeness(session),
		CanComplete:  s.machine.CanComplete(session),
	}
	res := &dto.SubmitAnswerResponse{
		Outcome:  outcome,
		Progress: s.machine.Progress(session),
		Status:   string(session.Status),
		Stale:    true,
	}
	if q, ok := s.machine.CurrentQuestion(session); ok {
		res.NextQuestion = &q
	} else {
		res.Outcome.Feedback = staleFeedbackNoQuestion
	}
	return res
}

func (s *profilingService) Complete(ctx context.Context, owner identity.Identity, sessionID string) (*dto.CompleteProfilingResponse, error) {
	unlock, err := s.locks.LockContext(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	session, err := s.load(ctx, owner, sessionID)
	if err != nil {
		return nil, err
	}

	profile, err := s.complete(ctx, session)
	if err != nil {
		return nil, err
	}
	return &dto.CompleteProfilingResponse{
		Profile: toProfileResponse(profile, ""),
		Message: s.machine.Catalog().Completion(),
	}, nil
}

// complete finishes the session and stores its profile. A session that is
// already completed is not written again, so a newer profile of the same
// owner is never overwritten by an old session.
func (s *profilingService) complete(ctx context.Context, session *profiling.Session) (*profiling.Profile, error) {
	if session.Status == profiling.StatusCompleted {
		return s.machine.Complete(session)
	}

	profile, err := s.machine.Complete(session)
	if err != nil {
		return nil, err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.ProfilingSessionRepository().Update(ctx, s.sessionMapper.SessionFromDomain(session)); err != nil {
		return nil, err
	}
	if err := uow.UserProfileRepository().Upsert(ctx, s.profileMapper.FromDomain(profile)); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	// Completed sessions are served from the store from now on.
	if err := s.cache.Delete(ctx, session.ID); err != nil {
		s.logger.Warn(profilingModule, "Failed to evict completed session", map[string]interface{}{"session_id": session.ID, "error": err.Error()})
	}

	ownerKey := session.Owner.Key()
	if err := s.publisher.Publish(ctx, events.ProfileCompleted(ownerKey, session.ID)); err != nil {
		s.logger.Warn(profilingModule, "Failed to publish profile_completed", map[string]interface{}{"session_id": session.ID, "error": err.Error()})
	}
	if err := s.jobs.SendProfileSummaryJob(ctx, ownerKey); err != nil {
		s.logger.Warn(profilingModule, "Failed to queue profile summary", map[string]interface{}{"owner": ownerKey, "error": err.Error()})
	}

	s.logger.Info(profilingModule, "Profiling session completed", map[string]interface{}{
		"session_id":   session.ID,
		"owner":        ownerKey,
		"completeness": session.Completeness,
	})
	return profile, nil
}

func (s *profilingService) Abandon(ctx context.Context, owner identity.Identity, sessionID string) (*dto.ProfilingSessionResponse, error) {
	unlock, err := s.locks.LockContext(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	session, err := s.load(ctx, owner, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == profiling.StatusAbandoned {
		return s.toSessionResponse(session), nil
	}
	if err := s.machine.Abandon(session); err != nil {
		return nil, err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.ProfilingSessionRepository().Update(ctx, s.sessionMapper.SessionFromDomain(session)); err != nil {
		return nil, err
	}
	if err := s.cache.Delete(ctx, session.ID); err != nil {
		s.logger.Warn(profilingModule, "Failed to evict abandoned session", map[string]interface{}{"session_id": session.ID, "error": err.Error()})
	}

	s.logger.Info(profilingModule, "Profiling session abandoned", map[string]interface{}{"session_id": session.ID})
	return s.toSessionResponse(session), nil
}

// load reads through the cache. Sessions owned by someone else look missing.
func (s *profilingService) load(ctx context.Context, owner identity.Identity, sessionID string) (*profiling.Session, error) {
	session, ok, err := s.cache.Get(ctx, sessionID)
	if err != nil {
		s.logger.Warn(profilingModule, "Session cache read failed", map[string]interface{}{"session_id": sessionID, "error": err.Error()})
		ok = false
	}

	if !ok {
		uow := s.uowFactory.NewUnitOfWork(ctx)
		stored, err := uow.ProfilingSessionRepository().FindOne(ctx,
			specification.ByKey{Key: sessionID},
			specification.WithResponses{},
		)
		if err != nil {
			return nil, err
		}
		if stored == nil {
			return nil, ErrSessionNotFound
		}
		session, err = s.sessionMapper.SessionToDomain(stored)
		if err != nil {
			return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
		}
		if !session.Status.Terminal() {
			s.cacheSession(ctx, session)
		}
	}

	if session.Owner.Key() != owner.Key() {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// saveAnswer writes the session header and the touched response together.
func (s *profilingService) saveAnswer(ctx context.Context, session *profiling.Session, questionID string) error {
	row := s.sessionMapper.SessionFromDomain(session)

	var touched *entity.QuestionResponse
	for _, r := range row.Responses {
		if r.QuestionId == questionID {
			touched = r
			break
		}
	}
	if touched == nil {
		return errors.New("answered question missing from session")
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.ProfilingSessionRepository().Update(ctx, row); err != nil {
		return err
	}
	if err := uow.QuestionResponseRepository().Upsert(ctx, touched); err != nil {
		return err
	}
	return uow.Commit()
}

func (s *profilingService) cacheSession(ctx context.Context, session *profiling.Session) {
	if err := s.cache.Save(ctx, session); err != nil {
		s.logger.Warn(profilingModule, "Session cache write failed", map[string]interface{}{"session_id": session.ID, "error": err.Error()})
	}
}

func (s *profilingService) toSessionResponse(session *profiling.Session) *dto.ProfilingSessionResponse {
	res := &dto.ProfilingSessionResponse{
		SessionId:   session.ID,
		Owner:       session.Owner.Key(),
		Status:      string(session.Status),
		Progress:    s.machine.Progress(session),
		CanComplete: s.machine.CanComplete(session),
		IsComplete:  session.Status == profiling.StatusCompleted,
		Responses:   session.Responses,
		CreatedAt:   session.CreatedAt,
		CompletedAt: session.CompletedAt,
	}
	if q, ok := s.machine.CurrentQuestion(session); ok {
		res.CurrentQuestion = &q
	}
	return res
}

func toProfileResponse(p *profiling.Profile, summary string) *dto.ProfileResponse {
	return &dto.ProfileResponse{
		Owner:            p.Owner.Key(),
		SourceSessionId:  p.SourceSessionID,
		Preferences:      p.Preferences,
		Constraints:      p.Constraints,
		PastDestinations: p.PastDestinations,
		WishlistRegions:  p.WishlistRegions,
		Completeness:     p.Completeness,
		Summary:          summary,
		CompletedAt:      p.CompletedAt,
	}
}
