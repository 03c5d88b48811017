package integration

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"trawell-be/internal/entity"
	"trawell-be/internal/model"
	"trawell-be/internal/repository/specification"
	"trawell-be/internal/repository/unitofwork"
	"trawell-be/pkg/compatibility"
	"trawell-be/pkg/database"
	"trawell-be/pkg/identity"
	"trawell-be/pkg/profiling"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()

	// Load .env from root
	if err := godotenv.Load("../../.env"); err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.NewGormDBFromDSN(dsn)
	require.NoError(t, err, "Failed to connect to DB")

	require.NoError(t, gormDB.AutoMigrate(
		&model.ProfilingSession{},
		&model.QuestionResponse{},
		&model.UserProfile{},
		&model.GroupConversation{},
		&model.GroupParticipant{},
		&model.GroupMessage{},
		&model.BrainstormSession{},
		&model.BrainstormMessage{},
		&model.Notification{},
	))
	require.NoError(t, gormDB.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_profiling_one_active
		ON profiling_sessions (owner_key)
		WHERE status IN ('not_started', 'in_progress')`).Error)
	return gormDB
}

func TestGormConnection(t *testing.T) {
	gormDB := openDB(t)

	// Verify Wiring
	uow := unitofwork.NewRepositoryFactory(gormDB).NewUnitOfWork(context.Background())
	assert.NotNil(t, uow.ProfilingSessionRepository())
	assert.NotNil(t, uow.GroupMessageRepository())

	// Basic Ping
	sqlDB, _ := gormDB.DB()
	assert.NoError(t, sqlDB.Ping())
}

func TestProfilingPersistence(t *testing.T) {
	ctx := context.Background()
	uow := unitofwork.NewRepositoryFactory(openDB(t)).NewUnitOfWork(ctx)
	owner := identity.NewAnonymous()

	session := &entity.ProfilingSession{
		Id:        profiling.NewSessionID(),
		OwnerKey:  owner.Key(),
		Status:    string(profiling.StatusInProgress),
		CreatedAt: time.Now(),
	}
	require.NoError(t, uow.ProfilingSessionRepository().Create(ctx, session))

	t.Run("Second active session is a unique violation", func(t *testing.T) {
		err := uow.ProfilingSessionRepository().Create(ctx, &entity.ProfilingSession{
			Id:        profiling.NewSessionID(),
			OwnerKey:  owner.Key(),
			Status:    string(profiling.StatusNotStarted),
			CreatedAt: time.Now(),
		})
		assert.True(t, database.IsUniqueViolation(err), "got %v", err)
	})

	t.Run("Responses upsert per question", func(t *testing.T) {
		answer := &entity.QuestionResponse{
			SessionId:        session.Id,
			QuestionId:       "dietary_restrictions",
			RawAnswer:        "none",
			ValidationStatus: string(profiling.Complete),
			ValueKind:        string(profiling.KindList),
			ValueList:        []string{},
			AnsweredAt:       time.Now(),
		}
		require.NoError(t, uow.QuestionResponseRepository().Upsert(ctx, answer))

		answer.RawAnswer = "vegetarian"
		answer.ValueList = []string{"vegetarian"}
		require.NoError(t, uow.QuestionResponseRepository().Upsert(ctx, answer))

		found, err := uow.ProfilingSessionRepository().FindOne(ctx, specification.ByKey{Key: session.Id}, specification.WithResponses{})
		require.NoError(t, err)
		require.Len(t, found.Responses, 1)
		assert.Equal(t, []string{"vegetarian"}, found.Responses[0].ValueList)
	})

	t.Run("Abandoned session frees the slot", func(t *testing.T) {
		session.Status = string(profiling.StatusAbandoned)
		require.NoError(t, uow.ProfilingSessionRepository().Update(ctx, session))

		err := uow.ProfilingSessionRepository().Create(ctx, &entity.ProfilingSession{
			Id:        profiling.NewSessionID(),
			OwnerKey:  owner.Key(),
			Status:    string(profiling.StatusInProgress),
			CreatedAt: time.Now(),
		})
		assert.NoError(t, err)
	})
}

func TestGroupPersistence(t *testing.T) {
	ctx := context.Background()
	uow := unitofwork.NewRepositoryFactory(openDB(t)).NewUnitOfWork(ctx)

	code := uuid.NewString()[:8]
	conv := &entity.GroupConversation{RoomCode: code, Status: "profiling", CreatorKey: "anon:creator"}
	require.NoError(t, uow.GroupConversationRepository().Create(ctx, conv))
	require.NotEqual(t, uuid.Nil, conv.Id)

	t.Run("Room code is unique", func(t *testing.T) {
		err := uow.GroupConversationRepository().Create(ctx, &entity.GroupConversation{RoomCode: code, Status: "profiling", CreatorKey: "anon:other"})
		assert.True(t, database.IsUniqueViolation(err), "got %v", err)
	})

	t.Run("Sequence is unique per room", func(t *testing.T) {
		msg := func(seq int64) *entity.GroupMessage {
			return &entity.GroupMessage{ConversationId: conv.Id, Sequence: seq, Body: "hi", Kind: "user", Metadata: map[string]interface{}{}}
		}
		require.NoError(t, uow.GroupMessageRepository().Append(ctx, msg(1)))
		require.NoError(t, uow.GroupMessageRepository().Append(ctx, msg(2)))
		err := uow.GroupMessageRepository().Append(ctx, msg(2))
		assert.True(t, database.IsUniqueViolation(err), "got %v", err)

		recent, err := uow.GroupMessageRepository().ListRecent(ctx, conv.Id, 10)
		require.NoError(t, err)
		require.Len(t, recent, 2)
		assert.Equal(t, int64(1), recent[0].Sequence)
	})

	t.Run("Participant rejoin keeps one row", func(t *testing.T) {
		p := &entity.GroupParticipant{
			ConversationId: conv.Id,
			IdentityKey:    "anon:creator",
			DisplayName:    "Alice",
			Preferences:    map[string]string{"environment": "beach"},
			IsActive:       true,
			JoinedAt:       time.Now(),
			LastActiveAt:   time.Now(),
		}
		require.NoError(t, uow.GroupParticipantRepository().Upsert(ctx, p))
		require.NoError(t, uow.GroupParticipantRepository().SetActive(ctx, conv.Id, "anon:creator", false, time.Now()))
		require.NoError(t, uow.GroupParticipantRepository().Upsert(ctx, p))

		n, err := uow.GroupParticipantRepository().Count(ctx, specification.ByConversationID{ConversationID: conv.Id})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("Compatibility report round trips", func(t *testing.T) {
		report := &compatibility.Report{Score: 0.9, Level: compatibility.LevelHigh, ParticipantCount: 2}
		require.NoError(t, uow.GroupConversationRepository().UpdateCompatibility(ctx, conv.Id, report))

		found, err := uow.GroupConversationRepository().FindOne(ctx, specification.ByRoomCode{RoomCode: code})
		require.NoError(t, err)
		require.NotNil(t, found.Compatibility)
		assert.Equal(t, compatibility.LevelHigh, found.Compatibility.Level)
	})
}
