package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/rma-api/internal/application/dto"
	"github.com/jhoicas/rma-api/internal/application/usecase"
)

// ProductHandler maneja las peticiones HTTP de marcas y productos (protegido).
type ProductHandler struct {
	uc *usecase.ProductUseCase
}

// NewProductHandler construye el handler.
func NewProductHandler(uc *usecase.ProductUseCase) *ProductHandler {
	return &ProductHandler{uc: uc}
}

// ListBrands godoc
// @Summary      Listar marcas
// @Tags         brands
// @Produce      json
// @Security     BearerAuth
// @Param        search  query  string  false  "Nombre"
// @Success      200  {array}   dto.BrandResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/brands [get]
func (h *ProductHandler) ListBrands(c *fiber.Ctx) error {
	out, err := h.uc.ListBrands(c.UserContext(), GetActor(c), c.Query("search"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// GetBrand godoc
// @Summary      Obtener marca por ID
// @Tags         brands
// @Produce      json
// @Security     BearerAuth
// @Param        id   path  string  true  "Marca ID"
// @Success      200  {object}  dto.BrandResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/brands/{id} [get]
func (h *ProductHandler) GetBrand(c *fiber.Ctx) error {
	out, err := h.uc.GetBrand(c.UserContext(), GetActor(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// CreateBrand godoc
// @Summary      Crear marca
// @Description  ADMIN solo en sus países asignados.
// @Tags         brands
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body  dto.CreateBrandRequest  true  "nombre, countryIds"
// @Success      201  {object}  dto.BrandResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/brands [post]
func (h *ProductHandler) CreateBrand(c *fiber.Ctx) error {
	var in dto.CreateBrandRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	out, err := h.uc.CreateBrand(c.UserContext(), GetActor(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// UpdateBrand godoc
// @Summary      Actualizar marca
// @Tags         brands
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path  string                  true  "Marca ID"
// @Param        body  body  dto.UpdateBrandRequest  true  "nombre, countryIds"
// @Success      200  {object}  dto.BrandResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/brands/{id} [put]
func (h *ProductHandler) UpdateBrand(c *fiber.Ctx) error {
	var in dto.UpdateBrandRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	out, err := h.uc.UpdateBrand(c.UserContext(), GetActor(c), c.Params("id"), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// DeleteBrand godoc
// @Summary      Eliminar marca
// @Description  Falla con 409 mientras tenga productos.
// @Tags         brands
// @Security     BearerAuth
// @Param        id   path  string  true  "Marca ID"
// @Success      204
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/brands/{id} [delete]
func (h *ProductHandler) DeleteBrand(c *fiber.Ctx) error {
	if err := h.uc.DeleteBrand(c.UserContext(), GetActor(c), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListProducts godoc
// @Summary      Listar productos
// @Tags         products
// @Produce      json
// @Security     BearerAuth
// @Param        brandId    query  string  false  "Marca"
// @Param        countryId  query  string  false  "País"
// @Param        search     query  string  false  "Nombre del producto o de la marca"
// @Success      200  {array}   dto.ProductResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/products [get]
func (h *ProductHandler) ListProducts(c *fiber.Ctx) error {
	out, err := h.uc.ListProducts(c.UserContext(), GetActor(c), dto.ProductFilter{
		BrandID:   c.Query("brandId"),
		CountryID: c.Query("countryId"),
		Search:    c.Query("search"),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// GetProduct godoc
// @Summary      Obtener producto por ID
// @Tags         products
// @Produce      json
// @Security     BearerAuth
// @Param        id   path  string  true  "Producto ID"
// @Success      200  {object}  dto.ProductResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/products/{id} [get]
func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	out, err := h.uc.GetProduct(c.UserContext(), GetActor(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// CreateProduct godoc
// @Summary      Crear producto
// @Description  La marca debe ser visible; ADMIN solo en sus países asignados.
// @Tags         products
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body  dto.CreateProductRequest  true  "nombre, brandId, countryIds"
// @Success      201  {object}  dto.ProductResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/products [post]
func (h *ProductHandler) CreateProduct(c *fiber.Ctx) error {
	var in dto.CreateProductRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	out, err := h.uc.CreateProduct(c.UserContext(), GetActor(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// UpdateProduct godoc
// @Summary      Actualizar producto
// @Tags         products
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path  string                    true  "Producto ID"
// @Param        body  body  dto.UpdateProductRequest  true  "nombre, brandId, countryIds"
// @Success      200  {object}  dto.ProductResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/products/{id} [put]
func (h *ProductHandler) UpdateProduct(c *fiber.Ctx) error {
	var in dto.UpdateProductRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	out, err := h.uc.UpdateProduct(c.UserContext(), GetActor(c), c.Params("id"), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// DeleteProduct godoc
// @Summary      Eliminar producto
// @Description  Falla con 409 si algún RMA lo usa.
// @Tags         products
// @Security     BearerAuth
// @Param        id   path  string  true  "Producto ID"
// @Success      204
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/products/{id} [delete]
func (h *ProductHandler) DeleteProduct(c *fiber.Ctx) error {
	if err := h.uc.DeleteProduct(c.UserContext(), GetActor(c), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
