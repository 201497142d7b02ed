package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/rma-api/internal/application/dto"
	"github.com/jhoicas/rma-api/internal/application/usecase"
)

// CatalogHandler maneja países.
type CatalogHandler struct {
	uc *usecase.CatalogUseCase
}

// NewCatalogHandler construye el handler de catálogo.
func NewCatalogHandler(uc *usecase.CatalogUseCase) *CatalogHandler {
	return &CatalogHandler{uc: uc}
}

// ListCountries godoc
// @Summary      Listar países
// @Description  Público: lo usa el formulario de registro.
// @Tags         countries
// @Produce      json
// @Success      200  {array}   dto.CountryResponse
// @Router       /api/countries [get]
func (h *CatalogHandler) ListCountries(c *fiber.Ctx) error {
	out, err := h.uc.ListCountries(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// CreateCountry godoc
// @Summary      Crear país
// @Tags         countries
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body  dto.CreateCountryRequest  true  "nombre"
// @Success      201  {object}  dto.CountryResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/countries [post]
func (h *CatalogHandler) CreateCountry(c *fiber.Ctx) error {
	var in dto.CreateCountryRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	out, err := h.uc.CreateCountry(c.UserContext(), GetActor(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// DeleteCountry godoc
// @Summary      Eliminar país
// @Description  Falla con 409 mientras tenga usuarios, marcas, productos o RMAs asociados.
// @Tags         countries
// @Security     BearerAuth
// @Param        id   path  string  true  "País ID"
// @Success      204
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/countries/{id} [delete]
func (h *CatalogHandler) DeleteCountry(c *fiber.Ctx) error {
	if err := h.uc.DeleteCountry(c.UserContext(), GetActor(c), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
