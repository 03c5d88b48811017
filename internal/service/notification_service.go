package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"trawell-be/internal/dto"
	"trawell-be/internal/entity"
	"trawell-be/internal/pkg/logger"
	"trawell-be/internal/repository/contract"
	"trawell-be/internal/repository/specification"
	"trawell-be/internal/repository/unitofwork"
	"trawell-be/internal/websocket"
	"trawell-be/pkg/events"
	"trawell-be/pkg/identity"
	pktNats "trawell-be/pkg/nats"

	"github.com/google/uuid"
)

const notificationModule = "NotificationService"

const notificationDurable = "notif-service-worker"

// EventSubscriber is the part of the event bus the notification worker needs.
type EventSubscriber interface {
	Subscribe(ctx context.Context, subject string, durableName string, handler pktNats.EventHandler) error
}

type INotificationService interface {
	// Start subscribes to every domain event.
	Start(ctx context.Context) error
	List(ctx context.Context, owner identity.Identity, limit, offset int) (*dto.NotificationListResponse, error)
	MarkAsRead(ctx context.Context, owner identity.Identity, id uuid.UUID) error
	MarkAllAsRead(ctx context.Context, owner identity.Identity) error
}

type notificationTemplate struct {
	title   string
	message string
}

// Placeholders are payload keys in braces.
var notificationTemplates = map[string]notificationTemplate{
	events.TypeProfileCompleted: {
		title:   "Travel profile ready",
		message: "Your travel profile is complete. Start brainstorming destinations!",
	},
	events.TypeProfileSummarized: {
		title:   "Your traveler summary",
		message: "{summary}",
	},
	events.TypeRoomCreated: {
		title:   "Room created",
		message: "Share code {room_code} with your travel companions.",
	},
	events.TypeParticipantJoined: {
		title:   "New companion",
		message: "{display_name} joined room {room_code}.",
	},
}

type notificationService struct {
	uowFactory  unitofwork.RepositoryFactory
	subscriber  EventSubscriber
	broadcaster Broadcaster
	logger      logger.ILogger
}

func NewNotificationService(uowFactory unitofwork.RepositoryFactory, sub EventSubscriber, broadcaster Broadcaster, log logger.ILogger) INotificationService {
	return &notificationService{
		uowFactory:  uowFactory,
		subscriber:  sub,
		broadcaster: broadcaster,
		logger:      log,
	}
}

func (s *notificationService) Start(ctx context.Context) error {
	if err := s.subscriber.Subscribe(ctx, pktNats.SubjectPrefix+">", notificationDurable, s.handleEvent); err != nil {
		s.logger.Error(notificationModule, "Failed to start notification subscriber", map[string]interface{}{"error": err.Error()})
		return err
	}
	s.logger.Info(notificationModule, "Notification service started, listening to events.>", nil)
	return nil
}

func (s *notificationService) handleEvent(ctx context.Context, event events.Event) error {
	typeCode := strings.TrimPrefix(event.EventType(), pktNats.SubjectPrefix)

	tmpl, ok := notificationTemplates[typeCode]
	if !ok {
		s.logger.Debug(notificationModule, "No notification for event", map[string]interface{}{"type": typeCode})
		return nil
	}

	payload := event.Payload()
	owner, _ := payload[events.KeyOwner].(string)
	if owner == "" {
		s.logger.Warn(notificationModule, "Event has no owner", map[string]interface{}{"type": typeCode})
		return nil
	}

	notif := &entity.Notification{
		OwnerKey:  owner,
		TypeCode:  typeCode,
		Title:     tmpl.title,
		Message:   fillTemplate(tmpl.message, payload),
		Metadata:  payload,
		CreatedAt: time.Now(),
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.NotificationRepository().Create(ctx, notif); err != nil {
		s.logger.Error(notificationModule, "Failed to store notification", map[string]interface{}{"owner": owner, "error": err.Error()})
		// Returning the error lets the bus redeliver.
		return err
	}

	s.broadcaster.PublishJSON(websocket.UserTopic(owner), toNotificationResponse(notif))
	s.logger.Info(notificationModule, fmt.Sprintf("Delivered %s", typeCode), map[string]interface{}{"owner": owner})
	return nil
}

func fillTemplate(msg string, payload map[string]interface{}) string {
	for k, v := range payload {
		msg = strings.ReplaceAll(msg, "{"+k+"}", fmt.Sprintf("%v", v))
	}
	return msg
}

func (s *notificationService) List(ctx context.Context, owner identity.Identity, limit, offset int) (*dto.NotificationListResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	repo := uow.NotificationRepository()
	byOwner := specification.ByOwnerKey{OwnerKey: owner.Key()}

	items, err := repo.FindAll(ctx, byOwner, specification.Pagination{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	total, err := repo.Count(ctx, byOwner)
	if err != nil {
		return nil, err
	}
	unread, err := repo.Count(ctx, byOwner, specification.UnreadOnly{})
	if err != nil {
		return nil, err
	}

	res := &dto.NotificationListResponse{
		Items:  make([]*dto.NotificationResponse, 0, len(items)),
		Total:  total,
		Unread: unread,
		Limit:  limit,
		Offset: offset,
	}
	for _, n := range items {
		res.Items = append(res.Items, toNotificationResponse(n))
	}
	return res, nil
}

func (s *notificationService) MarkAsRead(ctx context.Context, owner identity.Identity, id uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	err := uow.NotificationRepository().MarkAsRead(ctx, owner.Key(), id)
	if errors.Is(err, contract.ErrNotificationNotFound) {
		return ErrNotificationNotFound
	}
	return err
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, owner identity.Identity) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.NotificationRepository().MarkAllAsRead(ctx, owner.Key())
}

func toNotificationResponse(n *entity.Notification) *dto.NotificationResponse {
	return &dto.NotificationResponse{
		Id:        n.Id,
		TypeCode:  n.TypeCode,
		Title:     n.Title,
		Message:   n.Message,
		Metadata:  n.Metadata,
		IsRead:    n.IsRead,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
}
