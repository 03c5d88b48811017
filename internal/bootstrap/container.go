package bootstrap

import (
	"context"
	"fmt"
	"log"

	"trawell-be/internal/config"
	"trawell-be/internal/controller"
	"trawell-be/internal/handler"
	"trawell-be/internal/pkg/logger"
	"trawell-be/internal/repository/cache"
	"trawell-be/internal/repository/contract"
	"trawell-be/internal/repository/memory"
	"trawell-be/internal/repository/unitofwork"
	"trawell-be/internal/service"
	"trawell-be/internal/websocket"
	"trawell-be/pkg/compatibility"
	"trawell-be/pkg/events"
	"trawell-be/pkg/llm/factory"
	"trawell-be/pkg/moderation"
	pktNats "trawell-be/pkg/nats"
	"trawell-be/pkg/profiling"
	"trawell-be/pkg/prompts"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ProfileSummaryTopic carries summary jobs on the in-process bus.
const ProfileSummaryTopic = "profile.summary"

type Container struct {
	// Controllers
	ProfilingController  controller.IProfilingController
	ProfileController    controller.IProfileController
	GroupController      controller.IGroupController
	BrainstormController controller.IBrainstormController

	// WebSockets
	ProfilingHandler    *handler.ProfilingHandler
	GroupHandler        *handler.GroupHandler
	BrainstormHandler   *handler.BrainstormHandler
	NotificationHandler *handler.NotificationHandler
	WebSocketHub        *websocket.Hub

	// Background Services (run by main.go)
	ConsumerService     service.IConsumerService
	NotificationService service.INotificationService
	GroupService        service.IGroupService

	Logger logger.ILogger
	// EventBus is false when NATS is not configured and the notification
	// worker must not be started.
	EventBus bool

	closers []func()
}

func NewContainer(ctx context.Context, db *gorm.DB, cfg *config.Config) (*Container, error) {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	rtLogger := logger.NewIsolatedLogger(cfg.App.RealtimeLogPath)

	c := &Container{Logger: sysLogger}

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// 3. Infrastructure
	// NATS is optional; without it domain events are dropped.
	var publisher events.Publisher = events.Discard{}
	var natsSub *pktNats.Subscriber
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			publisher = natsPub
			c.closers = append(c.closers, natsPub.Close)
		}
		natsSub, err = pktNats.NewSubscriber(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
			natsSub = nil
		} else {
			c.closers = append(c.closers, natsSub.Close)
		}
	}

	// Redis backs the cross-instance hub relay and, optionally, the session cache.
	var rdb *redis.Client
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{
				Addr: cfg.App.RedisURL,
			}
		}
		rdb = redis.NewClient(opt)
		if _, err := rdb.Ping(ctx).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
		}
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}

	var sessionCache contract.SessionCache
	switch cfg.Profiling.SessionStore {
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("PROFILE_SESSION_STORE=redis needs REDIS_URL")
		}
		sessionCache = cache.NewRedisSessionCache(rdb, cfg.Profiling.SessionTTL)
	default:
		sessionCache = memory.NewSessionRepository(cfg.Profiling.SessionTTL)
	}

	// 4. AI
	llmProvider, err := factory.NewLLMProvider(ctx, factory.Config{
		Provider:     cfg.Ai.LLMProvider,
		Model:        cfg.Ai.LLMModel,
		OllamaURL:    cfg.Ai.OllamaBaseURL,
		GeminiAPIKey: cfg.Ai.GeminiAPIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize LLM provider: %w", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	promptLoader := prompts.NewLoader(cfg.App.PromptDir)
	profilingPrompts, err := promptLoader.Set("profiling")
	if err != nil {
		return nil, err
	}
	brainstormPrompts, err := promptLoader.Set("brainstorm")
	if err != nil {
		return nil, err
	}
	catalogData, err := promptLoader.Raw("profiling")
	if err != nil {
		return nil, err
	}
	catalog, err := profiling.LoadCatalog(catalogData)
	if err != nil {
		return nil, err
	}

	// 5. Domain
	machine := profiling.NewMachine(
		catalog,
		profiling.NewAnswerValidator(llmProvider, profilingPrompts, sysLogger),
		profiling.Policy{
			MinCompleteness: cfg.Profiling.MinCompleteness,
			CriticalCap:     cfg.Profiling.CriticalCap,
		},
	)

	phrases := cfg.Moderation.AddressPhrases
	if len(phrases) == 0 {
		phrases = moderation.DefaultAddressPhrases()
	}
	policy := moderation.NewPolicy(phrases, cfg.Moderation.ImpasseThreshold, cfg.Moderation.MinRoundSize)

	engine, err := compatibility.NewEngine(compatibility.DefaultDimensions(), compatibility.DefaultThresholds())
	if err != nil {
		return nil, err
	}

	// WebSocket Hub
	wsHub := websocket.NewHub(rdb, rtLogger)
	c.WebSocketHub = wsHub

	// 6. Services
	publisherService := service.NewPublisherService(ProfileSummaryTopic, pubSub)
	profileService := service.NewProfileService(uowFactory)
	profilingService := service.NewProfilingService(
		uowFactory,
		sessionCache,
		machine,
		publisher,
		publisherService,
		sysLogger,
		cfg.Profiling.AutoComplete,
	)
	c.ConsumerService = service.NewConsumerService(
		pubSub,
		ProfileSummaryTopic,
		uowFactory,
		llmProvider,
		profilingPrompts,
		publisher,
		sysLogger,
	)
	c.GroupService = service.NewGroupService(
		uowFactory,
		wsHub,
		llmProvider,
		brainstormPrompts,
		engine,
		policy,
		profileService,
		publisher,
		cfg.Group,
		cfg.Moderation.HistoryWindow,
		cfg.Ai.Timeout,
		rtLogger,
	)
	brainstormService := service.NewBrainstormService(
		uowFactory,
		profileService,
		llmProvider,
		brainstormPrompts,
		cfg.Moderation.HistoryWindow,
		sysLogger,
	)

	// Notifications need NATS; without it the inbox stays readable but empty.
	var sub service.EventSubscriber
	if natsSub != nil {
		sub = natsSub
		c.EventBus = true
	}
	c.NotificationService = service.NewNotificationService(uowFactory, sub, wsHub, rtLogger)

	// 7. Controllers & Handlers
	c.ProfilingController = controller.NewProfilingController(profilingService)
	c.ProfileController = controller.NewProfileController(profileService)
	c.GroupController = controller.NewGroupController(c.GroupService)
	c.BrainstormController = controller.NewBrainstormController(brainstormService)

	c.ProfilingHandler = handler.NewProfilingHandler(profilingService, wsHub, rtLogger)
	c.GroupHandler = handler.NewGroupHandler(c.GroupService, wsHub, rtLogger)
	c.BrainstormHandler = handler.NewBrainstormHandler(brainstormService, wsHub, rtLogger)
	c.NotificationHandler = handler.NewNotificationHandler(c.NotificationService, wsHub, rtLogger)

	c.closers = append(c.closers, func() {
		_ = rtLogger.Sync()
		_ = sysLogger.Sync()
	})
	return c, nil
}

// Close releases connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}
