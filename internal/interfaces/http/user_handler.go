package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/rma-api/internal/application/dto"
	"github.com/jhoicas/rma-api/internal/application/usecase"
)

// UserHandler maneja la administración de usuarios.
type UserHandler struct {
	uc *usecase.UserUseCase
}

// NewUserHandler construye el handler de usuarios.
func NewUserHandler(uc *usecase.UserUseCase) *UserHandler {
	return &UserHandler{uc: uc}
}

// List godoc
// @Summary      Listar usuarios
// @Description  ADMIN ve usuarios USER de sus países; SUPERADMIN ve todos.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        page    query  int     false  "Página (default 1)"
// @Param        limit   query  int     false  "Tamaño de página (default 10, max 100)"
// @Param        search  query  string  false  "Nombre, email o empresa"
// @Success      200  {object}  dto.UserListResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/users [get]
func (h *UserHandler) List(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return badRequest(c, "VALIDATION", "parámetros de paginación inválidos")
	}
	out, err := h.uc.List(c.UserContext(), GetActor(c), c.Query("search"), page)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// GetByID godoc
// @Summary      Obtener usuario
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path  string  true  "Usuario ID"
// @Success      200  {object}  dto.UserResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/users/{id} [get]
func (h *UserHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.uc.GetByID(c.UserContext(), GetActor(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// AssignCountries godoc
// @Summary      Asignar países a un usuario
// @Description  Reemplaza la lista completa. Solo SUPERADMIN.
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path  string                      true  "Usuario ID"
// @Param        body  body  dto.AssignCountriesRequest  true  "countryIds"
// @Success      200  {object}  dto.UserResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/users/{id}/countries [put]
func (h *UserHandler) AssignCountries(c *fiber.Ctx) error {
	var in dto.AssignCountriesRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	out, err := h.uc.AssignCountries(c.UserContext(), GetActor(c), c.Params("id"), in.CountryIDs)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// UpdateRole godoc
// @Summary      Cambiar el rol de un usuario
// @Description  ADMIN solo asigna USER o ADMIN a usuarios de sus países. Nadie cambia su propio rol.
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path  string                 true  "Usuario ID"
// @Param        body  body  dto.UpdateRoleRequest  true  "role"
// @Success      200  {object}  dto.UserResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/users/{id}/role [put]
func (h *UserHandler) UpdateRole(c *fiber.Ctx) error {
	var in dto.UpdateRoleRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	out, err := h.uc.UpdateRole(c.UserContext(), GetActor(c), c.Params("id"), in.Role)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}
