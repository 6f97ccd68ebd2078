package controller

import (
	"errors"

	"kernel-workspace-be/internal/dto"
	"kernel-workspace-be/internal/pkg/serverutils"
	"kernel-workspace-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ICommandController interface {
	RegisterRoutes(r fiber.Router)
	RequestCommand(ctx *fiber.Ctx) error
	ApproveCommand(ctx *fiber.Ctx) error
	CancelCommand(ctx *fiber.Ctx) error
}

type commandController struct {
	commandService service.ICommandService
}

func NewCommandController(commandService service.ICommandService) ICommandController {
	return &commandController{
		commandService: commandService,
	}
}

func (c *commandController) RegisterRoutes(r fiber.Router) {
	r.Post("/request_command", c.RequestCommand)
	r.Post("/approve_command", c.ApproveCommand)
	r.Post("/cancel_command", c.CancelCommand)
}

func (c *commandController) RequestCommand(ctx *fiber.Ctx) error {
	var req dto.RequestCommandRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.commandService.Request(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

// ApproveCommand answers {"error": ...} when approval itself is refused so
// the client can tell it apart from a command that ran and failed.
func (c *commandController) ApproveCommand(ctx *fiber.Ctx) error {
	res, err := c.commandService.Approve(ctx.UserContext())
	if err != nil {
		var cmdErr *service.CommandError
		if errors.As(err, &cmdErr) {
			return ctx.Status(cmdErr.StatusCode()).JSON(fiber.Map{"error": cmdErr.Error()})
		}
		return err
	}
	return ctx.JSON(res)
}

func (c *commandController) CancelCommand(ctx *fiber.Ctx) error {
	if !c.commandService.Cancel(ctx.UserContext()) {
		return ctx.JSON(serverutils.SuccessResponse[any]("No command was staged", nil))
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Staged command discarded", nil))
}
