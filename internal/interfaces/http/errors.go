package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/jhoicas/rma-api/internal/application/dto"
	"github.com/jhoicas/rma-api/internal/domain"
)

// statusByKind traduce el kind del error de dominio a código HTTP y código de respuesta.
var statusByKind = map[error]struct {
	status int
	code   string
}{
	domain.ErrNotFound:     {fiber.StatusNotFound, "NOT_FOUND"},
	domain.ErrForbidden:    {fiber.StatusForbidden, "FORBIDDEN"},
	domain.ErrInvalidState: {fiber.StatusConflict, "INVALID_STATE"},
	domain.ErrValidation:   {fiber.StatusBadRequest, "VALIDATION"},
	domain.ErrConflict:     {fiber.StatusConflict, "CONFLICT"},
	domain.ErrUnauthorized: {fiber.StatusUnauthorized, "UNAUTHORIZED"},
	domain.ErrInternal:     {fiber.StatusInternalServerError, "INTERNAL"},
}

// respondError escribe err como dto.ErrorResponse. Los errores internos se
// registran y nunca exponen la causa al cliente.
func respondError(c *fiber.Ctx, err error) error {
	kind := domain.KindOf(err)
	m := statusByKind[kind]
	if kind == domain.ErrInternal {
		log.Error().Err(err).Str("path", c.Path()).Str("method", c.Method()).Msg("error interno")
	}
	return c.Status(m.status).JSON(dto.ErrorResponse{Code: m.code, Message: domain.MessageOf(err)})
}

func badRequest(c *fiber.Ctx, code, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: code, Message: message})
}

// ErrorHandler manejador global de Fiber: rutas inexistentes, body demasiado
// grande y errores no atendidos por los handlers.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code := "HTTP_ERROR"
		switch fe.Code {
		case fiber.StatusNotFound:
			code = "NOT_FOUND"
		case fiber.StatusRequestEntityTooLarge:
			code = "BODY_TOO_LARGE"
		case fiber.StatusTooManyRequests:
			code = "RATE_LIMITED"
		}
		return c.Status(fe.Code).JSON(dto.ErrorResponse{Code: code, Message: fe.Message})
	}
	return respondError(c, err)
}
