package controller

import (
	"bufio"
	"context"
	"errors"
	"io"
	"time"

	"kernel-workspace-be/internal/dto"
	"kernel-workspace-be/internal/pkg/logger"
	"kernel-workspace-be/internal/pkg/serverutils"
	"kernel-workspace-be/internal/service"
	internalWS "kernel-workspace-be/internal/websocket"
	"kernel-workspace-be/pkg/rag/response"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const (
	HeaderAgentStatus  = "X-Agent-Status"
	HeaderAgentRoute   = "X-Agent-Route"
	HeaderAgentPersona = "X-Agent-Persona"
)

type IKernelController interface {
	RegisterRoutes(r fiber.Router)
	Ask(ctx *fiber.Ctx) error
	AskSocket(ctx *fiber.Ctx) error
	CommitMemory(ctx *fiber.Ctx) error
	ClearMemory(ctx *fiber.Ctx) error
	Workspace(ctx *fiber.Ctx) error
	Personas(ctx *fiber.Ctx) error
}

type kernelController struct {
	kernelService service.IKernelService
	streamTimeout time.Duration
	logger        logger.ILogger
}

func NewKernelController(kernelService service.IKernelService, streamTimeout time.Duration, log logger.ILogger) IKernelController {
	if streamTimeout <= 0 {
		streamTimeout = 5 * time.Minute
	}
	return &kernelController{
		kernelService: kernelService,
		streamTimeout: streamTimeout,
		logger:        log,
	}
}

func (c *kernelController) RegisterRoutes(r fiber.Router) {
	r.Post("/ask", c.Ask)
	r.Get("/ws/ask", c.AskSocket)
	r.Post("/commit_memory", c.CommitMemory)
	r.Post("/clear_memory", c.ClearMemory)
	r.Get("/workspace", c.Workspace)
	r.Get("/personas", c.Personas)
}

// Ask streams the answer as plain text. Routing details travel in headers
// since they are known before the first token.
func (c *kernelController) Ask(ctx *fiber.Ctx) error {
	var req dto.AskRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	// The body is written after the handler returns, so the stream runs on a
	// detached context. Until the first token it still follows the request.
	reqCtx := ctx.UserContext()
	streamCtx, cancel := context.WithTimeout(context.WithoutCancel(reqCtx), c.streamTimeout)
	stopFollowing := context.AfterFunc(reqCtx, cancel)

	res, err := c.kernelService.Ask(streamCtx, &req)
	if !stopFollowing() && err == nil {
		// Request ended while the answer was starting.
		res.Stream.Close()
		err = reqCtx.Err()
	}
	if err != nil {
		cancel()
		return c.askError(ctx, err)
	}

	ctx.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")
	ctx.Set(fiber.HeaderCacheControl, "no-cache")
	ctx.Set(HeaderAgentStatus, res.Status)
	ctx.Set(HeaderAgentRoute, string(res.Decision.Route))
	ctx.Set(HeaderAgentPersona, res.Persona.String())

	stream := res.Stream
	ctx.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		defer stream.Close()

		for {
			tok, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				c.logger.Error("Kernel", "Answer stream failed", map[string]interface{}{
					"error": err.Error(),
				})
				_, _ = w.WriteString("\n\n[generation interrupted]")
				_ = w.Flush()
				return
			}
			if _, err := w.WriteString(tok); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				c.logger.Info("Kernel", "Client disconnected mid-answer", map[string]interface{}{
					"error": err.Error(),
				})
				return
			}
		}
	})
	return nil
}

func (c *kernelController) askError(ctx *fiber.Ctx, err error) error {
	var genErr *response.GenerationError
	if errors.As(err, &genErr) {
		return ctx.Status(fiber.StatusBadGateway).JSON(serverutils.ErrorResponse(fiber.StatusBadGateway, genErr.Error()))
	}
	return err
}

// AskSocket serves the same answers over a websocket, one JSON frame per
// status change or token.
func (c *kernelController) AskSocket(ctx *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(ctx) {
		return fiber.ErrUpgradeRequired
	}
	return websocket.New(func(conn *websocket.Conn) {
		c.logger.Info("WebSocket", "Ask session started", nil)
		internalWS.NewClient(conn, c.askOverSocket, c.logger).Serve()
		c.logger.Info("WebSocket", "Ask session ended", nil)
	})(ctx)
}

func (c *kernelController) askOverSocket(ctx context.Context, req dto.AskRequest, emit internalWS.Emit) {
	if err := serverutils.ValidateRequest(req); err != nil {
		emit(dto.AskFrame{Type: internalWS.FrameError, Data: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(ctx, c.streamTimeout)
	defer cancel()

	res, err := c.kernelService.Ask(ctx, &req)
	if err != nil {
		emit(dto.AskFrame{Type: internalWS.FrameError, Data: err.Error()})
		return
	}
	defer res.Stream.Close()

	if !emit(dto.AskFrame{Type: internalWS.FrameStatus, Data: res.Status}) ||
		!emit(dto.AskFrame{Type: internalWS.FrameRoute, Data: string(res.Decision.Route)}) {
		return
	}

	for {
		tok, err := res.Stream.Recv()
		if errors.Is(err, io.EOF) {
			emit(dto.AskFrame{Type: internalWS.FrameDone})
			return
		}
		if err != nil {
			emit(dto.AskFrame{Type: internalWS.FrameError, Data: err.Error()})
			return
		}
		if !emit(dto.AskFrame{Type: internalWS.FrameToken, Data: tok}) {
			return
		}
	}
}

func (c *kernelController) CommitMemory(ctx *fiber.Ctx) error {
	var req dto.CommitMemoryRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.kernelService.CommitMemory(ctx.UserContext(), &req); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Solution saved to long-term memory", nil))
}

func (c *kernelController) ClearMemory(ctx *fiber.Ctx) error {
	if err := c.kernelService.ClearMemory(ctx.UserContext()); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Short-term memory and workspace cleared", nil))
}

func (c *kernelController) Workspace(ctx *fiber.Ctx) error {
	return ctx.JSON(c.kernelService.Workspace(ctx.UserContext()))
}

func (c *kernelController) Personas(ctx *fiber.Ctx) error {
	return ctx.JSON(c.kernelService.Personas())
}
