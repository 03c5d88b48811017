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
)

const groupHandlerModule = "GroupHandler"

// Frames only this handler sends. Room events come from the service.
const (
	GroupRoomState = "room_state"
	GroupError     = "error"
)

type GroupHandler struct {
	service service.IGroupService
	hub     *internalWS.Hub
	logger  logger.ILogger
}

func NewGroupHandler(service service.IGroupService, hub *internalWS.Hub, log logger.ILogger) *GroupHandler {
	return &GroupHandler{
		service: service,
		hub:     hub,
		logger:  log,
	}
}

// ServeWs subscribes a participant to their room. Only members may connect.
func (h *GroupHandler) ServeWs(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	who := serverutils.IdentityFrom(c)
	room, err := h.service.GetRoom(c.UserContext(), who, c.Params("room"))
	if err != nil {
		return fiber.NewError(controller.StatusOf(err), err.Error())
	}
	code := room.RoomCode

	return websocket.New(func(conn *websocket.Conn) {
		queue := newCommandQueue()
		defer queue.stop()

		h.logger.Info(groupHandlerModule, "Starting room socket", map[string]interface{}{"room": code, "identity": who.Key()})
		internalWS.ServeWs(h.hub, conn, internalWS.RoomTopic(code), internalWS.Hooks{
			OnOpen: func(client *internalWS.Client) {
				// Frames published before registration are gone, so send a
				// fresh snapshot rather than the one taken before the upgrade.
				queue.push(func(ctx context.Context) {
					state, err := h.service.GetRoom(ctx, who, code)
					if err != nil {
						client.Reply(dto.GroupEvent{Type: GroupError, Room: code, Data: toSocketError(err)})
						return
					}
					client.Reply(dto.GroupEvent{Type: GroupRoomState, Room: code, Data: state})
				})
			},
			OnMessage: func(client *internalWS.Client, data []byte) {
				ok := queue.push(func(ctx context.Context) { h.handle(ctx, client, who, code, data) })
				if !ok {
					client.Reply(dto.GroupEvent{Type: GroupError, Room: code, Data: socketError{Status: fiber.StatusTooManyRequests, Message: "too many pending commands"}})
				}
			},
		})
		h.logger.Info(groupHandlerModule, "Room socket closed", map[string]interface{}{"room": code, "identity": who.Key()})
	})(c)
}

// handle forwards one command. Results reach every member through the
// room's own broadcasts; only errors are answered directly.
func (h *GroupHandler) handle(ctx context.Context, client *internalWS.Client, who identity.Identity, code string, data []byte) {
	fail := func(err error) {
		client.Reply(dto.GroupEvent{Type: GroupError, Room: code, Data: toSocketError(err)})
	}

	var cmd dto.GroupCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		fail(fiber.NewError(fiber.StatusBadRequest, "invalid command"))
		return
	}

	switch cmd.Type {
	case "message":
		req := &dto.SendGroupMessageRequest{Body: cmd.Body, InvokeAI: cmd.InvokeAI}
		if err := serverutils.ValidateRequest(req); err != nil {
			fail(fiber.NewError(fiber.StatusBadRequest, err.Error()))
			return
		}
		if _, err := h.service.SendMessage(ctx, who, code, req); err != nil {
			fail(err)
		}
	case "analyze":
		if _, err := h.service.Analyze(ctx, who, code); err != nil {
			fail(err)
		}
	default:
		fail(fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("unknown command %q", cmd.Type)))
	}
}

func (h *GroupHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/brainstorm/group/ws/:room", h.ServeWs)
}
