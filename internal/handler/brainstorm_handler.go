package handler

import (
	"context"
	"encoding/json"
	"fmt"

	"trawell-be/internal/controller"
	"trawell-be/internal/dto"
	"trawell-be/internal/pkg/logger"
	"trawell-be/internal/pkg/serverutils"
	"trawell-be/internal/service"
	internalWS "trawell-be/internal/websocket"
	"trawell-be/pkg/identity"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const brainstormHandlerModule = "BrainstormHandler"

const BrainstormMessageComplete = "message_complete"

type BrainstormHandler struct {
	service service.IBrainstormService
	hub     *internalWS.Hub
	logger  logger.ILogger
}

func NewBrainstormHandler(service service.IBrainstormService, hub *internalWS.Hub, log logger.ILogger) *BrainstormHandler {
	return &BrainstormHandler{
		service: service,
		hub:     hub,
		logger:  log,
	}
}

// ServeWs streams solo brainstorm replies token by token.
func (h *BrainstormHandler) ServeWs(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	owner := serverutils.IdentityFrom(c)
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid session id")
	}
	if _, err := h.service.GetMessages(c.UserContext(), owner, id); err != nil {
		return fiber.NewError(controller.StatusOf(err), err.Error())
	}

	return websocket.New(func(conn *websocket.Conn) {
		queue := newCommandQueue()
		defer queue.stop()

		internalWS.ServeWs(h.hub, conn, internalWS.BrainstormTopic(id.String()), internalWS.Hooks{
			OnMessage: func(client *internalWS.Client, data []byte) {
				ok := queue.push(func(ctx context.Context) { h.handle(ctx, client, owner, id, data) })
				if !ok {
					client.Reply(dto.ProfilingEvent{Type: ProfilingError, Data: socketError{Status: fiber.StatusTooManyRequests, Message: "too many pending commands"}})
				}
			},
		})
	})(c)
}

func (h *BrainstormHandler) handle(ctx context.Context, client *internalWS.Client, owner identity.Identity, id uuid.UUID, data []byte) {
	reply := func(eventType string, v interface{}) {
		client.Reply(dto.ProfilingEvent{Type: eventType, Data: v})
	}

	var cmd dto.BrainstormCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		reply(ProfilingError, toSocketError(fiber.NewError(fiber.StatusBadRequest, "invalid command")))
		return
	}
	if cmd.Type != "message" {
		reply(ProfilingError, toSocketError(fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("unknown command %q", cmd.Type))))
		return
	}

	req := &dto.SendBrainstormRequest{Chat: cmd.Chat}
	if err := serverutils.ValidateRequest(req); err != nil {
		reply(ProfilingError, toSocketError(fiber.NewError(fiber.StatusBadRequest, err.Error())))
		return
	}

	reply(ProfilingThinking, nil)
	res, err := h.service.SendMessage(ctx, owner, id, req, func(tok string) {
		reply(ProfilingToken, map[string]string{"text": tok})
	})
	if err != nil {
		h.logger.Warn(brainstormHandlerModule, "Brainstorm message failed", map[string]interface{}{"session": id.String(), "error": err.Error()})
		reply(ProfilingError, toSocketError(err))
		return
	}
	reply(BrainstormMessageComplete, res)
}

func (h *BrainstormHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/brainstorm/ws/:id", h.ServeWs)
}
