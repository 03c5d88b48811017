package controller

import (
	"trawell-be/internal/dto"
	"trawell-be/internal/pkg/serverutils"
	"trawell-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IProfilingController interface {
	RegisterRoutes(r fiber.Router)
	Questions(ctx *fiber.Ctx) error
	Start(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	Answer(ctx *fiber.Ctx) error
	Complete(ctx *fiber.Ctx) error
	Abandon(ctx *fiber.Ctx) error
}

type profilingController struct {
	service service.IProfilingService
}

func NewProfilingController(service service.IProfilingService) IProfilingController {
	return &profilingController{service: service}
}

func (c *profilingController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/profiling")
	h.Get("/questions", c.Questions)
	h.Post("/start", c.Start)
	h.Get("/session/:id", c.Show)
	h.Post("/session/:id/answer", c.Answer)
	h.Post("/session/:id/complete", c.Complete)
	h.Post("/session/:id/abandon", c.Abandon)
}

func (c *profilingController) Questions(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Success get questions", c.service.GetQuestions(ctx.UserContext())))
}

func (c *profilingController) Start(ctx *fiber.Ctx) error {
	var req dto.StartProfilingRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
	}

	res, err := c.service.Start(ctx.UserContext(), serverutils.IdentityFrom(ctx), &req)
	if err != nil {
		return httpError(err)
	}

	message := "Success start profiling"
	if res.Resumed {
		message = "Resumed profiling session"
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse(message, res))
}

func (c *profilingController) Show(ctx *fiber.Ctx) error {
	res, err := c.service.GetSession(ctx.UserContext(), serverutils.IdentityFrom(ctx), ctx.Params("id"))
	if err != nil {
		return httpError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get session", res))
}

func (c *profilingController) Answer(ctx *fiber.Ctx) error {
	var req dto.SubmitAnswerRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.SubmitAnswer(ctx.UserContext(), serverutils.IdentityFrom(ctx), ctx.Params("id"), &req)
	if err != nil {
		return httpError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success submit answer", res))
}

func (c *profilingController) Complete(ctx *fiber.Ctx) error {
	res, err := c.service.Complete(ctx.UserContext(), serverutils.IdentityFrom(ctx), ctx.Params("id"))
	if err != nil {
		return httpError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success complete profiling", res))
}

func (c *profilingController) Abandon(ctx *fiber.Ctx) error {
	res, err := c.service.Abandon(ctx.UserContext(), serverutils.IdentityFrom(ctx), ctx.Params("id"))
	if err != nil {
		return httpError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success abandon profiling", res))
}
