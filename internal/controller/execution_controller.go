package controller

import (
	"kernel-workspace-be/internal/dto"
	"kernel-workspace-be/internal/pkg/serverutils"
	"kernel-workspace-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IExecutionController interface {
	RegisterRoutes(r fiber.Router)
	Execute(ctx *fiber.Ctx) error
}

type executionController struct {
	executionService service.IExecutionService
}

func NewExecutionController(executionService service.IExecutionService) IExecutionController {
	return &executionController{
		executionService: executionService,
	}
}

func (c *executionController) RegisterRoutes(r fiber.Router) {
	r.Post("/execute", c.Execute)
}

func (c *executionController) Execute(ctx *fiber.Ctx) error {
	var req dto.ExecuteRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	return ctx.JSON(c.executionService.Execute(ctx.UserContext(), &req))
}
