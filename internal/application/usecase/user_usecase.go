package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/rma-api/internal/application/dto"
	"github.com/jhoicas/rma-api/internal/domain"
	"github.com/jhoicas/rma-api/internal/domain/access"
	"github.com/jhoicas/rma-api/internal/domain/entity"
	"github.com/jhoicas/rma-api/internal/domain/repository"
)

// UserUseCase aplica reglas de negocio para usuarios.
type UserUseCase struct {
	repo      repository.UserRepository
	countries repository.CountryRepository
	log       zerolog.Logger
}

// NewUserUseCase construye el caso de uso con los puertos de persistencia.
func NewUserUseCase(repo repository.UserRepository, countries repository.CountryRepository, log zerolog.Logger) *UserUseCase {
	return &UserUseCase{repo: repo, countries: countries, log: log.With().Str("component", "users").Logger()}
}

// Actor recarga el actor con su rol y países vigentes.
// Devuelve ErrUnauthorized si el usuario no existe o está inactivo.
func (uc *UserUseCase) Actor(ctx context.Context, userID string) (entity.Actor, error) {
	user, err := uc.repo.GetByID(ctx, userID)
	if err != nil {
		return entity.Actor{}, domain.Wrap(domain.ErrInternal, "no se pudo obtener el usuario", err)
	}
	if user == nil || user.Status != entity.UserStatusActive {
		return entity.Actor{}, domain.NewError(domain.ErrUnauthorized, "Usuario no válido")
	}
	return entity.ActorFromUser(user), nil
}

// GetByID obtiene un usuario visible para el actor.
func (uc *UserUseCase) GetByID(ctx context.Context, actor entity.Actor, id string) (*dto.UserResponse, error) {
	filter, err := access.Resolve(actor, access.KindUser)
	if err != nil {
		return nil, err
	}
	user, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, domain.Wrap(domain.ErrInternal, "no se pudo obtener el usuario", err)
	}
	if user == nil || !filter.AllowsUser(user) {
		return nil, domain.ErrUserNotFound
	}
	return dto.ToUserResponse(user), nil
}

// List pagina los usuarios visibles para el actor.
func (uc *UserUseCase) List(ctx context.Context, actor entity.Actor, search string, page dto.PageRequest) (*dto.UserListResponse, error) {
	filter, err := access.Resolve(actor, access.KindUser)
	if err != nil {
		return nil, err
	}
	page.DefaultPage()
	q := repository.UserQuery{
		Filter: filter,
		Search: strings.TrimSpace(search),
		Limit:  page.Limit,
		Offset: page.Offset(),
	}
	var (
		users []*entity.User
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		users, err = uc.repo.List(gctx, q)
		return err
	})
	g.Go(func() (err error) {
		total, err = uc.repo.Count(gctx, q)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, domain.Wrap(domain.ErrInternal, "no se pudieron listar los usuarios", err)
	}
	out := &dto.UserListResponse{
		Items: make([]dto.UserResponse, 0, len(users)),
		Page:  dto.NewPageResponse(page.Page, page.Limit, total),
	}
	for _, u := range users {
		out.Items = append(out.Items, *dto.ToUserResponse(u))
	}
	return out, nil
}

// AssignCountries reemplaza los países de un usuario. Solo SUPERADMIN.
func (uc *UserUseCase) AssignCountries(ctx context.Context, actor entity.Actor, userID string, countryIDs []string) (*dto.UserResponse, error) {
	if actor.Role != entity.RoleSuperAdmin {
		return nil, domain.NewError(domain.ErrForbidden, "Solo SUPERADMIN puede asignar países")
	}
	user, err := uc.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, domain.Wrap(domain.ErrInternal, "no se pudo obtener el usuario", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	ids := make([]string, 0, len(countryIDs))
	seen := make(map[string]bool, len(countryIDs))
	for _, id := range countryIDs {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		c, err := uc.countries.GetByID(ctx, id)
		if err != nil {
			return nil, domain.Wrap(domain.ErrInternal, "no se pudo obtener el país", err)
		}
		if c == nil {
			return nil, domain.ErrCountryNotFound
		}
		ids = append(ids, id)
	}
	if err := uc.repo.SetCountries(ctx, userID, ids); err != nil {
		return nil, domain.Wrap(domain.ErrInternal, "no se pudieron asignar los países", err)
	}
	uc.log.Info().Str("user_id", userID).Strs("countries", ids).Str("actor_id", actor.ID).Msg("países asignados")
	updated, err := uc.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, domain.Wrap(domain.ErrInternal, "no se pudo obtener el usuario", err)
	}
	return dto.ToUserResponse(updated), nil
}

// UpdateRole cambia el rol de otro usuario. ADMIN solo gestiona USER y ADMIN
// que compartan al menos un país con él; nadie cambia su propio rol.
func (uc *UserUseCase) UpdateRole(ctx context.Context, actor entity.Actor, userID, role string) (*dto.UserResponse, error) {
	filter, err := access.Resolve(actor, access.KindUser)
	if err != nil {
		return nil, err
	}
	// Se carga sin filtro: un SUPERADMIN fuera del alcance responde 403, no 404.
	user, err := uc.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, domain.Wrap(domain.ErrInternal, "no se pudo obtener el usuario", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	role = strings.ToUpper(strings.TrimSpace(role))
	switch role {
	case entity.RoleUser, entity.RoleAdmin, entity.RoleSuperAdmin:
	default:
		return nil, domain.NewError(domain.ErrValidation, "Rol no válido")
	}
	if user.ID == actor.ID {
		return nil, domain.NewError(domain.ErrForbidden, "No puedes cambiar tu propio rol")
	}
	if actor.Role == entity.RoleAdmin {
		if !filter.AllowsAnyCountry(user.CountryIDs()) {
			return nil, domain.NewError(domain.ErrForbidden, "No tienes permisos para modificar usuarios de otros países")
		}
		if user.Role == entity.RoleSuperAdmin || role == entity.RoleSuperAdmin {
			return nil, domain.NewError(domain.ErrForbidden, "No tienes permisos para gestionar roles de SUPERADMIN")
		}
	}
	if user.Role == role {
		return dto.ToUserResponse(user), nil
	}
	prev := user.Role
	user.Role = role
	user.UpdatedAt = time.Now()
	if err := uc.repo.Update(ctx, user); err != nil {
		return nil, classify(err, "no se pudo actualizar el rol")
	}
	uc.log.Info().Str("user_id", user.ID).Str("from", prev).Str("to", role).Str("actor_id", actor.ID).Msg("rol actualizado")
	return dto.ToUserResponse(user), nil
}
