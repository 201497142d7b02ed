package dto

import (
	"time"

	"github.com/jhoicas/rma-api/internal/domain/entity"
)

// RegisterRequest entrada para registro (auth). El rol siempre es USER.
type RegisterRequest struct {
	FirstName string `json:"nombre"`
	LastName  string `json:"apellido"`
	Address   string `json:"direccion"`
	Phone     string `json:"telefono"`
	Company   string `json:"empresa"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	CountryID string `json:"countryId"`
}

// LoginRequest entrada para login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CountryResponse país.
type CountryResponse struct {
	ID   string `json:"id"`
	Name string `json:"nombre"`
}

// UserResponse salida de un usuario (sin password).
type UserResponse struct {
	ID        string            `json:"id"`
	FirstName string            `json:"nombre"`
	LastName  string            `json:"apellido"`
	Email     string            `json:"email"`
	Company   string            `json:"empresa"`
	Phone     string            `json:"telefono"`
	Address   string            `json:"direccion"`
	Role      string            `json:"role"`
	Status    string            `json:"status"`
	Countries []CountryResponse `json:"countries"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// AuthResponse salida de registro y login: token JWT + usuario.
type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// UserListResponse lista paginada de usuarios.
type UserListResponse struct {
	Items []UserResponse `json:"items"`
	Page  PageResponse   `json:"page"`
}

// AssignCountriesRequest reemplaza los países asignados a un usuario.
type AssignCountriesRequest struct {
	CountryIDs []string `json:"countryIds"`
}

// ToUserResponse mapea la entidad sin exponer el hash.
func ToUserResponse(u *entity.User) *UserResponse {
	if u == nil {
		return nil
	}
	countries := make([]CountryResponse, 0, len(u.Countries))
	for _, c := range u.Countries {
		countries = append(countries, CountryResponse{ID: c.ID, Name: c.Name})
	}
	return &UserResponse{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Company:   u.Company,
		Phone:     u.Phone,
		Address:   u.Address,
		Role:      u.Role,
		Status:    u.Status,
		Countries: countries,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// UpdateRoleRequest entrada para cambiar el rol de un usuario.
type UpdateRoleRequest struct {
	Role string `json:"role"`
}

// UpdateProfileRequest campos opcionales del perfil propio. Nil no cambia el campo.
type UpdateProfileRequest struct {
	FirstName *string `json:"nombre"`
	LastName  *string `json:"apellido"`
	Address   *string `json:"direccion"`
	Phone     *string `json:"telefono"`
	Company   *string `json:"empresa"`
}

// ChangePasswordRequest entrada para cambiar la contraseña propia.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}
