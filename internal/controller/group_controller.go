package controller

import (
	"trawell-be/internal/dto"
	"trawell-be/internal/pkg/serverutils"
	"trawell-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IGroupController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	Join(ctx *fiber.Ctx) error
	Leave(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	SendMessage(ctx *fiber.Ctx) error
	Analyze(ctx *fiber.Ctx) error
	Converge(ctx *fiber.Ctx) error
}

type groupController struct {
	service service.IGroupService
}

func NewGroupController(service service.IGroupService) IGroupController {
	return &groupController{service: service}
}

func (c *groupController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/brainstorm/group")
	h.Post("/create", c.Create)
	h.Post("/join", c.Join)
	h.Get("/:room", c.Show)
	h.Post("/:room/leave", c.Leave)
	h.Post("/:room/messages", c.SendMessage)
	h.Post("/:room/analyze", c.Analyze)
	h.Post("/:room/converge", c.Converge)
}

func (c *groupController) Create(ctx *fiber.Ctx) error {
	var req dto.CreateRoomRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.CreateRoom(ctx.UserContext(), serverutils.IdentityFrom(ctx), &req)
	if err != nil {
		return httpError(err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success create room", res))
}

func (c *groupController) Join(ctx *fiber.Ctx) error {
	var req dto.JoinRoomRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.JoinRoom(ctx.UserContext(), serverutils.IdentityFrom(ctx), &req)
	if err != nil {
		return httpError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success join room", res))
}

func (c *groupController) Leave(ctx *fiber.Ctx) error {
	if err := c.service.LeaveRoom(ctx.UserContext(), serverutils.IdentityFrom(ctx), ctx.Params("room")); err != nil {
		return httpError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Success leave room", nil))
}

func (c *groupController) Show(ctx *fiber.Ctx) error {
	res, err := c.service.GetRoom(ctx.UserContext(), serverutils.IdentityFrom(ctx), ctx.Params("room"))
	if err != nil {
		return httpError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get room", res))
}

func (c *groupController) SendMessage(ctx *fiber.Ctx) error {
	var req dto.SendGroupMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.SendMessage(ctx.UserContext(), serverutils.IdentityFrom(ctx), ctx.Params("room"), &req)
	if err != nil {
		return httpError(err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success send message", res))
}

func (c *groupController) Analyze(ctx *fiber.Ctx) error {
	res, err := c.service.Analyze(ctx.UserContext(), serverutils.IdentityFrom(ctx), ctx.Params("room"))
	if err != nil {
		return httpError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success analyze room", res))
}

func (c *groupController) Converge(ctx *fiber.Ctx) error {
	res, err := c.service.Converge(ctx.UserContext(), serverutils.IdentityFrom(ctx), ctx.Params("room"))
	if err != nil {
		return httpError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success converge room", res))
}
