package handler

import (
	"trawell-be/internal/controller"
	"trawell-be/internal/pkg/logger"
	"trawell-be/internal/pkg/serverutils"
	"trawell-be/internal/service"
	internalWS "trawell-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

type NotificationHandler struct {
	service service.INotificationService
	hub     *internalWS.Hub
	logger  logger.ILogger
}

func NewNotificationHandler(service service.INotificationService, hub *internalWS.Hub, log logger.ILogger) *NotificationHandler {
	return &NotificationHandler{
		service: service,
		hub:     hub,
		logger:  log,
	}
}

// ServeWs pushes the caller's notifications as they are stored.
func (h *NotificationHandler) ServeWs(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	owner := serverutils.IdentityFrom(c)
	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("NotificationHandler", "Starting WebSocket session", map[string]interface{}{"owner": owner.Key()})
		internalWS.ServeWs(h.hub, conn, internalWS.UserTopic(owner.Key()), internalWS.Hooks{})
		h.logger.Info("NotificationHandler", "WebSocket session ended", map[string]interface{}{"owner": owner.Key()})
	})(c)
}

// GetNotifications returns the caller's notifications, newest first.
func (h *NotificationHandler) GetNotifications(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)

	res, err := h.service.List(c.UserContext(), serverutils.IdentityFrom(c), limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(serverutils.SuccessResponse("Success get notifications", res))
}

// MarkAsRead marks a specific notification as read.
func (h *NotificationHandler) MarkAsRead(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid ID")
	}

	if err := h.service.MarkAsRead(c.UserContext(), serverutils.IdentityFrom(c), id); err != nil {
		return fiber.NewError(controller.StatusOf(err), err.Error())
	}
	return c.JSON(serverutils.SuccessResponse[any]("Success mark as read", nil))
}

// MarkAllAsRead marks all of the caller's notifications as read.
func (h *NotificationHandler) MarkAllAsRead(c *fiber.Ctx) error {
	if err := h.service.MarkAllAsRead(c.UserContext(), serverutils.IdentityFrom(c)); err != nil {
		return err
	}
	return c.JSON(serverutils.SuccessResponse[any]("Success mark all as read", nil))
}

// RegisterRoutes registers the notification routes.
func (h *NotificationHandler) RegisterRoutes(router fiber.Router) {
	notif := router.Group("/notifications")
	notif.Get("/", h.GetNotifications)
	notif.Patch("/read-all", h.MarkAllAsRead)
	notif.Patch("/:id/read", h.MarkAsRead)

	// WebSocket
	notif.Get("/ws", h.ServeWs)
}
