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

const profilingHandlerModule = "ProfilingHandler"

// Frames sent on a profiling socket.
const (
	ProfilingThinking          = "thinking"
	ProfilingToken             = "token"
	ProfilingValidationResult  = "validation_result"
	ProfilingQuestionPresented = "question_presented"
	ProfilingProgressUpdate    = "progress_update"
	ProfilingProfileCompleted  = "profile_completed"
	ProfilingError             = "error"
)

type ProfilingHandler struct {
	service service.IProfilingService
	hub     *internalWS.Hub
	logger  logger.ILogger
}

func NewProfilingHandler(service service.IProfilingService, hub *internalWS.Hub, log logger.ILogger) *ProfilingHandler {
	return &ProfilingHandler{
		service: service,
		hub:     hub,
		logger:  log,
	}
}

// ServeWs runs the conversational profiling dialogue for one session. The
// session is checked before the upgrade so an unknown id is a plain 404.
func (h *ProfilingHandler) ServeWs(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	owner := serverutils.IdentityFrom(c)
	sessionID := c.Params("id")
	session, err := h.service.GetSession(c.UserContext(), owner, sessionID)
	if err != nil {
		return fiber.NewError(controller.StatusOf(err), err.Error())
	}

	return websocket.New(func(conn *websocket.Conn) {
		queue := newCommandQueue()
		defer queue.stop()

		h.logger.Info(profilingHandlerModule, "Starting profiling socket", map[string]interface{}{"session": sessionID, "owner": owner.Key()})
		internalWS.ServeWs(h.hub, conn, internalWS.ProfilingTopic(sessionID), internalWS.Hooks{
			OnOpen: func(client *internalWS.Client) {
				queue.push(func(ctx context.Context) { h.greet(ctx, client, session) })
			},
			OnMessage: func(client *internalWS.Client, data []byte) {
				ok := queue.push(func(ctx context.Context) { h.handle(ctx, client, owner, sessionID, data) })
				if !ok {
					client.Reply(dto.ProfilingEvent{Type: ProfilingError, Data: socketError{Status: fiber.StatusTooManyRequests, Message: "too many pending commands"}})
				}
			},
		})
		h.logger.Info(profilingHandlerModule, "Profiling socket closed", map[string]interface{}{"session": sessionID})
	})(c)
}

// greet replays where the session stands for a freshly connected client.
func (h *ProfilingHandler) greet(ctx context.Context, client *internalWS.Client, session *dto.ProfilingSessionResponse) {
	reply := func(eventType string, data interface{}) {
		client.Reply(dto.ProfilingEvent{Type: eventType, Data: data})
	}

	reply(ProfilingProgressUpdate, map[string]interface{}{"progress": session.Progress, "status": session.Status})
	if session.IsComplete || session.CurrentQuestion == nil {
		return
	}

	if len(session.Responses) == 0 && session.Intro != "" {
		if err := h.stream(ctx, session.Intro+" ", func(tok string) { reply(ProfilingToken, map[string]string{"text": tok}) }); err != nil {
			return
		}
	}
	if err := h.stream(ctx, session.CurrentQuestion.Prompt, func(tok string) { reply(ProfilingToken, map[string]string{"text": tok}) }); err != nil {
		return
	}
	reply(ProfilingQuestionPresented, map[string]interface{}{"question": session.CurrentQuestion, "progress": session.Progress})
}

func (h *ProfilingHandler) handle(ctx context.Context, client *internalWS.Client, owner identity.Identity, sessionID string, data []byte) {
	publish := func(eventType string, v interface{}) {
		h.hub.PublishJSON(internalWS.ProfilingTopic(sessionID), dto.ProfilingEvent{Type: eventType, Data: v})
	}
	token := func(tok string) { publish(ProfilingToken, map[string]string{"text": tok}) }
	fail := func(err error) {
		h.logger.Warn(profilingHandlerModule, "Profiling command failed", map[string]interface{}{"session": sessionID, "error": err.Error()})
		client.Reply(dto.ProfilingEvent{Type: ProfilingError, Data: toSocketError(err)})
	}

	var cmd dto.ProfilingCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		fail(fiber.NewError(fiber.StatusBadRequest, "invalid command"))
		return
	}

	switch cmd.Type {
	case "answer":
		req := &dto.SubmitAnswerRequest{QuestionId: cmd.QuestionId, Answer: cmd.Answer}
		if err := serverutils.ValidateRequest(req); err != nil {
			fail(fiber.NewError(fiber.StatusBadRequest, err.Error()))
			return
		}

		publish(ProfilingThinking, map[string]string{"question_id": cmd.QuestionId})
		res, err := h.service.SubmitAnswer(ctx, owner, sessionID, req)
		if err != nil {
			fail(err)
			return
		}

		publish(ProfilingValidationResult, res.Outcome)
		publish(ProfilingProgressUpdate, map[string]interface{}{"progress": res.Progress, "status": res.Status})

		switch {
		case res.Profile != nil:
			if h.stream(ctx, res.Message, token) != nil {
				return
			}
			publish(ProfilingProfileCompleted, map[string]interface{}{"profile": res.Profile, "message": res.Message})
		case res.Stale && res.NextQuestion != nil:
			if h.stream(ctx, res.NextQuestion.Prompt, token) != nil {
				return
			}
			publish(ProfilingQuestionPresented, map[string]interface{}{"question": res.NextQuestion, "progress": res.Progress})
		case res.NextQuestion != nil && !res.Outcome.Advanced:
			if h.stream(ctx, res.Outcome.FollowUp, token) != nil {
				return
			}
			publish(ProfilingQuestionPresented, map[string]interface{}{"question": res.NextQuestion, "progress": res.Progress, "follow_up": res.Outcome.FollowUp})
		case res.NextQuestion != nil:
			if h.stream(ctx, res.NextQuestion.Prompt, token) != nil {
				return
			}
			publish(ProfilingQuestionPresented, map[string]interface{}{"question": res.NextQuestion, "progress": res.Progress})
		}

	case "complete":
		res, err := h.service.Complete(ctx, owner, sessionID)
		if err != nil {
			fail(err)
			return
		}
		if h.stream(ctx, res.Message, token) != nil {
			return
		}
		publish(ProfilingProfileCompleted, res)

	case "abandon":
		res, err := h.service.Abandon(ctx, owner, sessionID)
		if err != nil {
			fail(err)
			return
		}
		publish(ProfilingProgressUpdate, map[string]interface{}{"progress": res.Progress, "status": res.Status})

	default:
		fail(fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("unknown command %q", cmd.Type)))
	}
}

func (h *ProfilingHandler) stream(ctx context.Context, text string, emit func(string)) error {
	if text == "" {
		return nil
	}
	return streamText(ctx, text, emit)
}

func (h *ProfilingHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/profiling/ws/:id", h.ServeWs)
}
