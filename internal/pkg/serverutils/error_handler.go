package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// StatusError lets services attach an HTTP status to an error without
// importing fiber.
type StatusError interface {
	error
	StatusCode() int
}

// ErrorHandlerMiddleware renders any error returned further down the chain
// as an ErrorBody.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}
		return WriteError(ctx, err)
	}
}

// WriteError maps err to a status code and writes the JSON body.
func WriteError(ctx *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	body := ErrorResponse(code, err.Error())

	var (
		fe *fiber.Error
		ve *ValidationError
		se StatusError
	)
	switch {
	case errors.As(err, &ve):
		code = fiber.StatusBadRequest
		body = ErrorResponse(code, ve.Error())
		body.Errors = ve.Fields
	case errors.As(err, &se):
		code = se.StatusCode()
		body = ErrorResponse(code, se.Error())
	case errors.As(err, &fe):
		code = fe.Code
		body = ErrorResponse(code, fe.Message)
	}

	return ctx.Status(code).JSON(body)
}
