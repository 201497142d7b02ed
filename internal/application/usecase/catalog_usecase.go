package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/rma-api/internal/application/dto"
	"github.com/jhoicas/rma-api/internal/domain"
	"github.com/jhoicas/rma-api/internal/domain/entity"
	"github.com/jhoicas/rma-api/internal/domain/repository"
)

var errOnlySuperAdmin = domain.NewError(domain.ErrForbidden, "Solo SUPERADMIN puede administrar países")

// CatalogUseCase administración de países. Marcas y productos en ProductUseCase.
type CatalogUseCase struct {
	countries repository.CountryRepository
	log       zerolog.Logger
}

// NewCatalogUseCase construye el caso de uso.
func NewCatalogUseCase(countries repository.CountryRepository, log zerolog.Logger) *CatalogUseCase {
	return &CatalogUseCase{
		countries: countries,
		log:       log.With().Str("component", "catalog").Logger(),
	}
}

// ListCountries lista todos los países (público: lo usa el registro).
func (uc *CatalogUseCase) ListCountries(ctx context.Context) ([]dto.CountryResponse, error) {
	list, err := uc.countries.List(ctx)
	if err != nil {
		return nil, domain.Wrap(domain.ErrInternal, "no se pudieron listar los países", err)
	}
	return dto.ToCountryResponses(list), nil
}

// CreateCountry crea un país. Solo SUPERADMIN.
func (uc *CatalogUseCase) CreateCountry(ctx context.Context, actor entity.Actor, in dto.CreateCountryRequest) (*dto.CountryResponse, error) {
	if actor.Role != entity.RoleSuperAdmin {
		return nil, errOnlySuperAdmin
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.NewError(domain.ErrValidation, "El nombre del país es requerido")
	}
	c := &entity.Country{ID: uuid.New().String(), Name: name, CreatedAt: time.Now()}
	if err := uc.countries.Create(ctx, c); err != nil {
		return nil, classify(err, "no se pudo crear el país")
	}
	uc.log.Info().Str("country_id", c.ID).Str("name", name).Msg("país creado")
	return &dto.CountryResponse{ID: c.ID, Name: c.Name}, nil
}

// DeleteCountry borra un país sin referencias. Solo SUPERADMIN.
func (uc *CatalogUseCase) DeleteCountry(ctx context.Context, actor entity.Actor, id string) error {
	if actor.Role != entity.RoleSuperAdmin {
		return errOnlySuperAdmin
	}
	c, err := uc.countries.GetByID(ctx, id)
	if err != nil {
		return domain.Wrap(domain.ErrInternal, "no se pudo obtener el país", err)
	}
	if c == nil {
		return domain.ErrCountryNotFound
	}
	used, err := uc.countries.IsReferenced(ctx, id)
	if err != nil {
		return domain.Wrap(domain.ErrInternal, "no se pudo verificar el país", err)
	}
	if used {
		return domain.NewError(domain.ErrConflict, "No se puede eliminar el país porque tiene registros asociados")
	}
	// IsReferenced no bloquea: una referencia creada en medio llega como ErrConflict de la FK.
	if err := uc.countries.Delete(ctx, id); err != nil {
		return classify(err, "no se pudo eliminar el país")
	}
	uc.log.Info().Str("country_id", id).Msg("país eliminado")
	return nil
}

// classify conserva los errores de dominio y clasifica el resto como internos.
func classify(err error, msg string) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	return domain.Wrap(domain.ErrInternal, msg, err)
}
