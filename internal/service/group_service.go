package service

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"sync"
	"time"

	"trawell-be/internal/config"
	"trawell-be/internal/dto"
	"trawell-be/internal/entity"
	"trawell-be/internal/mapper"
	"trawell-be/internal/pkg/logger"
	"trawell-be/internal/repository/specification"
	"trawell-be/internal/repository/unitofwork"
	"trawell-be/pkg/compatibility"
	"trawell-be/pkg/database"
	"trawell-be/pkg/events"
	"trawell-be/pkg/identity"
	"trawell-be/pkg/llm"
	"trawell-be/pkg/moderation"
	"trawell-be/pkg/prompts"

	"golang.org/x/sync/errgroup"
)

const groupModule = "GroupService"

// roomCodeAlphabet is A-Z and 0-9 without 0, O, 1, I and L.
const roomCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

type IGroupService interface {
	CreateRoom(ctx context.Context, who identity.Identity, req *dto.CreateRoomRequest) (*dto.RoomResponse, error)
	JoinRoom(ctx context.Context, who identity.Identity, req *dto.JoinRoomRequest) (*dto.RoomResponse, error)
	LeaveRoom(ctx context.Context, who identity.Identity, roomCode string) error
	GetRoom(ctx context.Context, who identity.Identity, roomCode string) (*dto.RoomResponse, error)
	SendMessage(ctx context.Context, who identity.Identity, roomCode string, req *dto.SendGroupMessageRequest) (*dto.GroupMessageResponse, error)
	Analyze(ctx context.Context, who identity.Identity, roomCode string) (*compatibility.Report, error)
	Converge(ctx context.Context, who identity.Identity, roomCode string) (*dto.RoomResponse, error)
	// Shutdown stops every room and waits for running generations.
	Shutdown(ctx context.Context) error
}

type groupService struct {
	deps      *roomDeps
	profiles  IProfileService
	publisher events.Publisher
	logger    logger.ILogger

	codeLength   int
	codeAttempts int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	rooms map[string]*room
}

func NewGroupService(
	uowFactory unitofwork.RepositoryFactory,
	broadcaster Broadcaster,
	llmProvider llm.LLMProvider,
	promptSet *prompts.Set,
	engine *compatibility.Engine,
	policy *moderation.Policy,
	profiles IProfileService,
	publisher events.Publisher,
	cfg config.GroupConfig,
	historyWindow int,
	generationTimeout time.Duration,
	log logger.ILogger,
) IGroupService {
	ctx, cancel := context.WithCancel(context.Background())
	if historyWindow <= 0 {
		historyWindow = 20
	}
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = 64
	}
	if cfg.RoomCodeLength <= 0 {
		cfg.RoomCodeLength = 6
	}
	if cfg.RoomCodeAttempts <= 0 {
		cfg.RoomCodeAttempts = 10
	}
	if generationTimeout <= 0 {
		generationTimeout = 2 * time.Minute
	}
	return &groupService{
		deps: &roomDeps{
			uowFactory:        uowFactory,
			broadcaster:       broadcaster,
			llm:               llmProvider,
			prompts:           promptSet,
			engine:            engine,
			policy:            policy,
			mapper:            mapper.NewGroupMapper(),
			logger:            log,
			historyWindow:     historyWindow,
			inboxSize:         cfg.InboxSize,
			generationTimeout: generationTimeout,
		},
		profiles:     profiles,
		publisher:    publisher,
		logger:       log,
		codeLength:   cfg.RoomCodeLength,
		codeAttempts: cfg.RoomCodeAttempts,
		ctx:          ctx,
		cancel:       cancel,
		rooms:        make(map[string]*room),
	}
}

func (s *groupService) CreateRoom(ctx context.Context, who identity.Identity, req *dto.CreateRoomRequest) (*dto.RoomResponse, error) {
	if who.IsZero() {
		return nil, identity.ErrInvalidIdentity
	}
	snapshot, err := s.snapshotFor(ctx, who, req.Profile)
	if err != nil {
		return nil, err
	}

	conv, err := s.allocateRoom(ctx, who)
	if err != nil {
		return nil, err
	}

	var res *dto.RoomResponse
	err = s.withRoom(ctx, conv.RoomCode, func(r *room) error {
		if _, err := r.join(ctx, who, req.DisplayName, snapshot); err != nil {
			return err
		}
		res = r.snapshot()
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.publisher.Publish(ctx, events.RoomCreated(who.Key(), conv.RoomCode)); err != nil {
		s.logger.Warn(groupModule, "Failed to publish room_created", map[string]interface{}{"room": conv.RoomCode, "error": err.Error()})
	}
	s.logger.Info(groupModule, "Room created", map[string]interface{}{"room": conv.RoomCode, "creator": who.Key()})
	return res, nil
}

// allocateRoom inserts a conversation under a fresh code, retrying on
// collisions.
func (s *groupService) allocateRoom(ctx context.Context, who identity.Identity) (*entity.GroupConversation, error) {
	uow := s.deps.uowFactory.NewUnitOfWork(ctx)
	for attempt := 1; attempt <= s.codeAttempts; attempt++ {
		code, err := newRoomCode(s.codeLength)
		if err != nil {
			return nil, err
		}
		conv := &entity.GroupConversation{
			RoomCode:   code,
			Status:     RoomStatusProfiling,
			CreatorKey: who.Key(),
			CreatedAt:  time.Now(),
		}
		err = uow.GroupConversationRepository().Create(ctx, conv)
		if err == nil {
			return conv, nil
		}
		if !database.IsUniqueViolation(err) {
			return nil, err
		}
		s.logger.Debug(groupModule, "Room code collision", map[string]interface{}{"code": code, "attempt": attempt})
	}
	return nil, ErrRoomCodeExhausted
}

func newRoomCode(length int) (string, error) {
	max := big.NewInt(int64(len(roomCodeAlphabet)))
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(roomCodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

func (s *groupService) JoinRoom(ctx context.Context, who identity.Identity, req *dto.JoinRoomRequest) (*dto.RoomResponse, error) {
	if who.IsZero() {
		return nil, identity.ErrInvalidIdentity
	}
	snapshot, err := s.snapshotFor(ctx, who, req.Profile)
	if err != nil {
		return nil, err
	}

	code := normalizeRoomCode(req.RoomCode)
	var (
		res     *dto.RoomResponse
		creator string
	)
	err = s.withRoom(ctx, code, func(r *room) error {
		if _, err := r.join(ctx, who, req.DisplayName, snapshot); err != nil {
			return err
		}
		creator = r.conv.CreatorKey
		res = r.snapshot()
		return nil
	})
	if err != nil {
		return nil, err
	}

	if creator != "" && creator != who.Key() {
		if err := s.publisher.Publish(ctx, events.ParticipantJoined(creator, code, req.DisplayName)); err != nil {
			s.logger.Warn(groupModule, "Failed to publish participant_joined", map[string]interface{}{"room": code, "error": err.Error()})
		}
	}
	return res, nil
}

func (s *groupService) LeaveRoom(ctx context.Context, who identity.Identity, roomCode string) error {
	return s.withRoom(ctx, normalizeRoomCode(roomCode), func(r *room) error {
		return r.leave(ctx, who)
	})
}

func (s *groupService) GetRoom(ctx context.Context, who identity.Identity, roomCode string) (*dto.RoomResponse, error) {
	var res *dto.RoomResponse
	err := s.withRoom(ctx, normalizeRoomCode(roomCode), func(r *room) error {
		if _, ok := r.participants[who.Key()]; !ok {
			return ErrNotParticipant
		}
		res = r.snapshot()
		return nil
	})
	return res, err
}

func (s *groupService) SendMessage(ctx context.Context, who identity.Identity, roomCode string, req *dto.SendGroupMessageRequest) (*dto.GroupMessageResponse, error) {
	body := strings.TrimSpace(req.Body)
	var res *dto.GroupMessageResponse
	err := s.withRoom(ctx, normalizeRoomCode(roomCode), func(r *room) error {
		msg, err := r.postMessage(ctx, who, body, req.InvokeAI)
		if err != nil {
			return err
		}
		res = toGroupMessageResponse(msg)
		return nil
	})
	return res, err
}

func (s *groupService) Analyze(ctx context.Context, who identity.Identity, roomCode string) (*compatibility.Report, error) {
	var report *compatibility.Report
	err := s.withRoom(ctx, normalizeRoomCode(roomCode), func(r *room) error {
		if _, err := r.member(who); err != nil {
			return err
		}
		if err := r.recompute(ctx); err != nil {
			return err
		}
		report = r.conv.Compatibility
		return nil
	})
	return report, err
}

func (s *groupService) Converge(ctx context.Context, who identity.Identity, roomCode string) (*dto.RoomResponse, error) {
	var res *dto.RoomResponse
	err := s.withRoom(ctx, normalizeRoomCode(roomCode), func(r *room) error {
		if err := r.converge(ctx, who); err != nil {
			return err
		}
		res = r.snapshot()
		return nil
	})
	return res, err
}

func (s *groupService) Shutdown(ctx context.Context) error {
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// withRoom runs fn on the room loop. A room evicted between lookup and
// delivery is loaded again.
func (s *groupService) withRoom(ctx context.Context, code string, fn func(r *room) error) error {
	for attempt := 0; attempt < 2; attempt++ {
		r, err := s.room(ctx, code)
		if err != nil {
			return err
		}
		err = r.do(ctx, func() error { return fn(r) })
		if !errors.Is(err, errRoomStopped) {
			return err
		}
		if s.ctx.Err() != nil {
			return ErrRoomClosed
		}
	}
	return ErrRoomClosed
}

// room returns the live room for code, loading it on first use.
func (s *groupService) room(ctx context.Context, code string) (*room, error) {
	s.mu.Lock()
	if r, ok := s.rooms[code]; ok {
		s.mu.Unlock()
		return r, nil
	}
	s.mu.Unlock()

	if s.ctx.Err() != nil {
		return nil, ErrRoomClosed
	}

	uow := s.deps.uowFactory.NewUnitOfWork(ctx)
	conv, err := uow.GroupConversationRepository().FindOne(ctx, specification.ByRoomCode{RoomCode: code})
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, ErrRoomNotFound
	}

	var (
		participants []*entity.GroupParticipant
		recent       []*entity.GroupMessage
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		participants, err = uow.GroupParticipantRepository().FindAll(gctx, specification.ByConversationID{ConversationID: conv.Id})
		return err
	})
	g.Go(func() error {
		var err error
		recent, err = uow.GroupMessageRepository().ListRecent(gctx, conv.Id, recentLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rooms[code]; ok {
		return r, nil
	}
	if s.ctx.Err() != nil {
		return nil, ErrRoomClosed
	}

	r := newRoom(s.ctx, s.deps, &s.wg, conv, participants, recent, s.evict)
	s.rooms[code] = r
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		r.run()
	}()
	return r, nil
}

func (s *groupService) evict(r *room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rooms[r.code()] == r {
		delete(s.rooms, r.code())
	}
	s.logger.Debug(groupModule, "Room evicted", map[string]interface{}{"room": r.code()})
}

// snapshotFor freezes the preferences a participant brings into a room: the
// request's copy if given, else the stored profile, else nothing.
func (s *groupService) snapshotFor(ctx context.Context, who identity.Identity, given *dto.ProfileSnapshot) (*dto.ProfileSnapshot, error) {
	if given != nil {
		return given, nil
	}
	profile, err := s.profiles.Load(ctx, who)
	if errors.Is(err, ErrProfileNotFound) {
		return &dto.ProfileSnapshot{}, nil
	}
	if err != nil {
		return nil, err
	}
	return &dto.ProfileSnapshot{
		Preferences: profile.Preferences,
		Constraints: profile.Constraints,
	}, nil
}

func normalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
