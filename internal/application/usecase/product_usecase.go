package usecase

import (
	"context"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/rma-api/internal/application/dto"
	"github.com/jhoicas/rma-api/internal/domain"
	"github.com/jhoicas/rma-api/internal/domain/access"
	"github.com/jhoicas/rma-api/internal/domain/entity"
	"github.com/jhoicas/rma-api/internal/domain/repository"
)

var (
	errCatalogOutOfScope = domain.NewError(domain.ErrForbidden, "No tienes permisos para gestionar el catálogo de otros países")
	errCountriesRequired = domain.NewError(domain.ErrValidation, "Debe seleccionar al menos un país")
)

// ProductUseCase casos de uso CRUD para marcas y productos.
// ADMIN solo escribe dentro de sus países; SUPERADMIN sin restricción.
type ProductUseCase struct {
	brands   repository.BrandRepository
	products repository.ProductRepository
	log      zerolog.Logger
}

// NewProductUseCase construye el caso de uso.
func NewProductUseCase(brands repository.BrandRepository, products repository.ProductRepository, log zerolog.Logger) *ProductUseCase {
	return &ProductUseCase{
		brands:   brands,
		products: products,
		log:      log.With().Str("component", "catalog").Logger(),
	}
}

// ── Marcas ────────────────────────────────────────────────────────────────────

// ListBrands marcas ofrecidas en los países del actor.
func (uc *ProductUseCase) ListBrands(ctx context.Context, actor entity.Actor, search string) ([]dto.BrandResponse, error) {
	filter, err := access.Resolve(actor, access.KindBrand)
	if err != nil {
		return nil, err
	}
	search, err = searchTerm(search)
	if err != nil {
		return nil, err
	}
	list, err := uc.brands.List(ctx, repository.BrandQuery{Filter: filter, Search: search})
	if err != nil {
		return nil, domain.Wrap(domain.ErrInternal, "no se pudieron listar las marcas", err)
	}
	return dto.ToBrandResponses(list), nil
}

// GetBrand obtiene una marca visible para el actor.
func (uc *ProductUseCase) GetBrand(ctx context.Context, actor entity.Actor, id string) (*dto.BrandResponse, error) {
	filter, err := access.Resolve(actor, access.KindBrand)
	if err != nil {
		return nil, err
	}
	b, err := uc.visibleBrand(ctx, filter, id)
	if err != nil {
		return nil, err
	}
	return dto.ToBrandResponse(b), nil
}

// CreateBrand crea una marca en países del alcance del actor.
func (uc *ProductUseCase) CreateBrand(ctx context.Context, actor entity.Actor, in dto.CreateBrandRequest) (*dto.BrandResponse, error) {
	filter, err := access.Resolve(actor, access.KindBrand)
	if err != nil {
		return nil, err
	}
	name, err := catalogName(in.Name, "El nombre de la marca", 100)
	if err != nil {
		return nil, err
	}
	countries, err := writableCountries(filter, in.CountryIDs)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	b := &entity.Brand{ID: uuid.New().String(), Name: name, CountryIDs: countries, CreatedAt: now, UpdatedAt: now}
	if err := uc.brands.Create(ctx, b); err != nil {
		return nil, classify(err, "no se pudo crear la marca")
	}
	uc.log.Info().Str("brand_id", b.ID).Str("name", name).Str("actor_id", actor.ID).Msg("marca creada")
	return dto.ToBrandResponse(b), nil
}

// UpdateBrand cambia nombre y/o países. La marca debe estar completamente
// dentro del alcance del actor, antes y después del cambio.
func (uc *ProductUseCase) UpdateBrand(ctx context.Context, actor entity.Actor, id string, in dto.UpdateBrandRequest) (*dto.BrandResponse, error) {
	filter, err := access.Resolve(actor, access.KindBrand)
	if err != nil {
		return nil, err
	}
	b, err := uc.writableBrand(ctx, filter, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		if b.Name, err = catalogName(*in.Name, "El nombre de la marca", 100); err != nil {
			return nil, err
		}
	}
	if in.CountryIDs != nil {
		if b.CountryIDs, err = writableCountries(filter, in.CountryIDs); err != nil {
			return nil, err
		}
	}
	b.UpdatedAt = time.Now()
	if err := uc.brands.Update(ctx, b); err != nil {
		return nil, classify(err, "no se pudo actualizar la marca")
	}
	uc.log.Info().Str("brand_id", b.ID).Str("actor_id", actor.ID).Msg("marca actualizada")
	return dto.ToBrandResponse(b), nil
}

// DeleteBrand elimina una marca sin productos.
func (uc *ProductUseCase) DeleteBrand(ctx context.Context, actor entity.Actor, id string) error {
	filter, err := access.Resolve(actor, access.KindBrand)
	if err != nil {
		return err
	}
	if _, err := uc.writableBrand(ctx, filter, id); err != nil {
		return err
	}
	if err := uc.brands.Delete(ctx, id); err != nil {
		return classify(err, "no se pudo eliminar la marca")
	}
	uc.log.Info().Str("brand_id", id).Str("actor_id", actor.ID).Msg("marca eliminada")
	return nil
}

func (uc *ProductUseCase) visibleBrand(ctx context.Context, filter access.Filter, id string) (*entity.Brand, error) {
	b, err := uc.brands.GetByID(ctx, id)
	if err != nil {
		return nil, domain.Wrap(domain.ErrInternal, "no se pudo obtener la marca", err)
	}
	if b == nil || !filter.AllowsAnyCountry(b.CountryIDs) {
		return nil, domain.ErrBrandNotFound
	}
	return b, nil
}

func (uc *ProductUseCase) writableBrand(ctx context.Context, filter access.Filter, id string) (*entity.Brand, error) {
	b, err := uc.visibleBrand(ctx, filter, id)
	if err != nil {
		return nil, err
	}
	if !filter.AllowsAllCountries(b.CountryIDs) {
		return nil, errCatalogOutOfScope
	}
	return b, nil
}

// ── Productos ─────────────────────────────────────────────────────────────────

// ListProducts productos visibles para el actor, opcionalmente por marca, país y texto.
func (uc *ProductUseCase) ListProducts(ctx context.Context, actor entity.Actor, in dto.ProductFilter) ([]dto.ProductResponse, error) {
	filter, err := access.Resolve(actor, access.KindProduct)
	if err != nil {
		return nil, err
	}
	search, err := searchTerm(in.Search)
	if err != nil {
		return nil, err
	}
	q := repository.ProductQuery{Filter: filter.WithCountry(in.CountryID), BrandID: in.BrandID, Search: search}
	if q.Filter.MatchesNothing() {
		return []dto.ProductResponse{}, nil
	}
	list, err := uc.products.List(ctx, q)
	if err != nil {
		return nil, domain.Wrap(domain.ErrInternal, "no se pudieron listar los productos", err)
	}
	return dto.ToProductResponses(list), nil
}

// GetProduct obtiene un producto visible para el actor.
func (uc *ProductUseCase) GetProduct(ctx context.Context, actor entity.Actor, id string) (*dto.ProductResponse, error) {
	filter, err := access.Resolve(actor, access.KindProduct)
	if err != nil {
		return nil, err
	}
	p, err := uc.visibleProduct(ctx, filter, id)
	if err != nil {
		return nil, err
	}
	return dto.ToProductResponse(p), nil
}

// CreateProduct crea un producto de una marca visible, en países del alcance.
func (uc *ProductUseCase) CreateProduct(ctx context.Context, actor entity.Actor, in dto.CreateProductRequest) (*dto.ProductResponse, error) {
	filter, err := access.Resolve(actor, access.KindProduct)
	if err != nil {
		return nil, err
	}
	name, err := catalogName(in.Name, "El nombre del producto", 200)
	if err != nil {
		return nil, err
	}
	brand, err := uc.visibleBrand(ctx, filter, strings.TrimSpace(in.BrandID))
	if err != nil {
		return nil, err
	}
	countries, err := writableCountries(filter, in.CountryIDs)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	p := &entity.Product{
		ID:         uuid.New().String(),
		Name:       name,
		BrandID:    brand.ID,
		BrandName:  brand.Name,
		CountryIDs: countries,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := uc.products.Create(ctx, p); err != nil {
		return nil, classify(err, "no se pudo crear el producto")
	}
	uc.log.Info().Str("product_id", p.ID).Str("brand_id", p.BrandID).Str("actor_id", actor.ID).Msg("producto creado")
	return dto.ToProductResponse(p), nil
}

// UpdateProduct cambia nombre, marca y/o países de un producto del alcance.
func (uc *ProductUseCase) UpdateProduct(ctx context.Context, actor entity.Actor, id string, in dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	filter, err := access.Resolve(actor, access.KindProduct)
	if err != nil {
		return nil, err
	}
	p, err := uc.writableProduct(ctx, filter, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		if p.Name, err = catalogName(*in.Name, "El nombre del producto", 200); err != nil {
			return nil, err
		}
	}
	if in.BrandID != nil && strings.TrimSpace(*in.BrandID) != p.BrandID {
		brand, err := uc.visibleBrand(ctx, filter, strings.TrimSpace(*in.BrandID))
		if err != nil {
			return nil, err
		}
		p.BrandID, p.BrandName = brand.ID, brand.Name
	}
	if in.CountryIDs != nil {
		if p.CountryIDs, err = writableCountries(filter, in.CountryIDs); err != nil {
			return nil, err
		}
	}
	p.UpdatedAt = time.Now()
	if err := uc.products.Update(ctx, p); err != nil {
		return nil, classify(err, "no se pudo actualizar el producto")
	}
	uc.log.Info().Str("product_id", p.ID).Str("actor_id", actor.ID).Msg("producto actualizado")
	return dto.ToProductResponse(p), nil
}

// DeleteProduct elimina un producto que ningún RMA usa.
func (uc *ProductUseCase) DeleteProduct(ctx context.Context, actor entity.Actor, id string) error {
	filter, err := access.Resolve(actor, access.KindProduct)
	if err != nil {
		return err
	}
	if _, err := uc.writableProduct(ctx, filter, id); err != nil {
		return err
	}
	if err := uc.products.Delete(ctx, id); err != nil {
		return classify(err, "no se pudo eliminar el producto")
	}
	uc.log.Info().Str("product_id", id).Str("actor_id", actor.ID).Msg("producto eliminado")
	return nil
}

func (uc *ProductUseCase) visibleProduct(ctx context.Context, filter access.Filter, id string) (*entity.Product, error) {
	p, err := uc.products.GetByID(ctx, id)
	if err != nil {
		return nil, domain.Wrap(domain.ErrInternal, "no se pudo obtener el producto", err)
	}
	if p == nil || !filter.AllowsAnyCountry(p.CountryIDs) {
		return nil, domain.ErrProductNotFound
	}
	return p, nil
}

func (uc *ProductUseCase) writableProduct(ctx context.Context, filter access.Filter, id string) (*entity.Product, error) {
	p, err := uc.visibleProduct(ctx, filter, id)
	if err != nil {
		return nil, err
	}
	if !filter.AllowsAllCountries(p.CountryIDs) {
		return nil, errCatalogOutOfScope
	}
	return p, nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

// catalogName recorta y valida longitud (2..max caracteres).
func catalogName(raw, field string, maxLen int) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", domain.NewError(domain.ErrValidation, field+" es requerido")
	}
	if n := utf8.RuneCountInString(name); n < 2 || n > maxLen {
		return "", domain.NewError(domain.ErrValidation, field+" debe tener entre 2 y "+strconv.Itoa(maxLen)+" caracteres")
	}
	return name, nil
}

// writableCountries normaliza los IDs y exige que todos estén en el alcance.
func writableCountries(filter access.Filter, raw []string) ([]string, error) {
	ids := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, id := range raw {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, errCountriesRequired
	}
	if !filter.AllowsAllCountries(ids) {
		return nil, errCatalogOutOfScope
	}
	return ids, nil
}

func searchTerm(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if utf8.RuneCountInString(s) > 100 {
		return "", domain.NewError(domain.ErrValidation, "El término de búsqueda no puede exceder 100 caracteres")
	}
	return s, nil
}
