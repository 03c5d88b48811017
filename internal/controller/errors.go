package controller

import (
	"errors"

	"trawell-be/internal/service"
	"trawell-be/pkg/identity"
	"trawell-be/pkg/llm"
	"trawell-be/pkg/profiling"

	"github.com/gofiber/fiber/v2"
)

var statusByError = []struct {
	err  error
	code int
}{
	{service.ErrSessionNotFound, fiber.StatusNotFound},
	{service.ErrProfileNotFound, fiber.StatusNotFound},
	{service.ErrRoomNotFound, fiber.StatusNotFound},
	{service.ErrBrainstormNotFound, fiber.StatusNotFound},
	{service.ErrNotificationNotFound, fiber.StatusNotFound},
	{service.ErrNotParticipant, fiber.StatusForbidden},
	{service.ErrRoomCodeExhausted, fiber.StatusServiceUnavailable},
	{service.ErrRoomClosed, fiber.StatusServiceUnavailable},
	{profiling.ErrDuplicateActiveSession, fiber.StatusConflict},
	{profiling.ErrSessionTerminal, fiber.StatusConflict},
	{profiling.ErrIncompleteProfile, fiber.StatusUnprocessableEntity},
	{profiling.ErrNoOwner, fiber.StatusUnauthorized},
	{identity.ErrInvalidIdentity, fiber.StatusUnauthorized},
	{llm.ErrUnderstanding, fiber.StatusBadGateway},
	{llm.ErrEmptyResponse, fiber.StatusBadGateway},
}

// StatusOf maps a domain error to its HTTP status. Unknown errors are 500.
func StatusOf(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	for _, s := range statusByError {
		if errors.Is(err, s.err) {
			return s.code
		}
	}
	return fiber.StatusInternalServerError
}

// httpError lets ErrorHandlerMiddleware render domain errors with their
// status. Everything unknown passes through untouched.
func httpError(err error) error {
	code := StatusOf(err)
	if code == fiber.StatusInternalServerError {
		return err
	}
	return fiber.NewError(code, err.Error())
}
