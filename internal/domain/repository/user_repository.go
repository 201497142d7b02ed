package repository

import (
	"context"

	"github.com/jhoicas/rma-api/internal/domain/access"
	"github.com/jhoicas/rma-api/internal/domain/entity"
)

// UserQuery criterios de listado de usuarios.
type UserQuery struct {
	Filter access.Filter
	Search string
	Limit  int
	Offset int
}

// UserRepository define el puerto de persistencia para User (DIP).
// Los getters devuelven (nil, nil) cuando el registro no existe.
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	Update(ctx context.Context, user *entity.User) error
	List(ctx context.Context, q UserQuery) ([]*entity.User, error)
	Count(ctx context.Context, q UserQuery) (int, error)
	// SetCountries reemplaza los países asignados al usuario.
	SetCountries(ctx context.Context, userID string, countryIDs []string) error
}
