package serverutils

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Code     string `validate:"required"`
	Language string `validate:"required,oneof=python java"`
}

type teapotError struct{}

func (teapotError) Error() string   { return "short and stout" }
func (teapotError) StatusCode() int { return fiber.StatusTeapot }

func TestValidateRequest(t *testing.T) {
	assert.NoError(t, ValidateRequest(sampleRequest{Code: "x", Language: "java"}))

	err := ValidateRequest(sampleRequest{Language: "rust"})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Len(t, ve.Fields, 2)
	assert.Equal(t, "code", ve.Fields[0].Field)
	assert.Equal(t, "required", ve.Fields[0].Rule)
	assert.Equal(t, "oneof", ve.Fields[1].Rule)
}

func TestErrorHandlerMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware())
	app.Get("/validation", func(c *fiber.Ctx) error {
		return ValidateRequest(sampleRequest{})
	})
	app.Get("/status", func(c *fiber.Ctx) error {
		return teapotError{}
	})
	app.Get("/fiber", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "missing")
	})
	app.Get("/plain", func(c *fiber.Ctx) error {
		return errors.New("boom")
	})

	tests := []struct {
		path    string
		code    int
		message string
	}{
		{"/validation", fiber.StatusBadRequest, ""},
		{"/status", fiber.StatusTeapot, "short and stout"},
		{"/fiber", fiber.StatusNotFound, "missing"},
		{"/plain", fiber.StatusInternalServerError, "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest("GET", tt.path, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.code, resp.StatusCode)

			raw, _ := io.ReadAll(resp.Body)
			var body ErrorBody
			require.NoError(t, json.Unmarshal(raw, &body))
			assert.Equal(t, "error", body.Status)
			assert.Equal(t, tt.code, body.Code)
			if tt.message != "" {
				assert.Equal(t, tt.message, body.Message)
			}
		})
	}
}
