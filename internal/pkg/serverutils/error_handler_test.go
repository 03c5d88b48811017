package serverutils

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type createRoomRequest struct {
	DisplayName string `json:"display_name" validate:"required,max=100"`
}

func TestValidateRequest(t *testing.T) {
	assert.NoError(t, ValidateRequest(createRoomRequest{DisplayName: "Ana"}))

	err := ValidateRequest(createRoomRequest{})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "required", ve.Fields["DisplayName"])
}

func TestErrorHandlerMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware())
	app.Get("/fiber", func(ctx *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusConflict, "Session already active")
	})
	app.Get("/validation", func(ctx *fiber.Ctx) error {
		return ValidateRequest(createRoomRequest{})
	})
	app.Get("/plain", func(ctx *fiber.Ctx) error {
		return errors.New("db down")
	})

	tests := []struct {
		path    string
		code    int
		message string
	}{
		{"/fiber", fiber.StatusConflict, "Session already active"},
		{"/validation", fiber.StatusBadRequest, "invalid request: DisplayName failed on required"},
		{"/plain", fiber.StatusInternalServerError, "Internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest("GET", tt.path, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.code, resp.StatusCode)

			var body BaseResponse[any]
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.False(t, body.Success)
			assert.Equal(t, tt.message, body.Message)
		})
	}
}
