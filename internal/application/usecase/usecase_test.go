package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/rma-api/internal/application/dto"
	"github.com/jhoicas/rma-api/internal/application/usecase"
	"github.com/jhoicas/rma-api/internal/domain"
	"github.com/jhoicas/rma-api/internal/domain/entity"
	"github.com/jhoicas/rma-api/internal/domain/repository"
	"github.com/jhoicas/rma-api/internal/infrastructure/memory"
)

type env struct {
	store    *memory.Store
	catalog  *usecase.CatalogUseCase
	products *usecase.ProductUseCase
	users    *usecase.UserUseCase
	user    entity.Actor
	admin   entity.Actor
	super   entity.Actor
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	for _, c := range []*entity.Country{{ID: "co", Name: "Colombia"}, {ID: "mx", Name: "México"}, {ID: "cl", Name: "Chile"}} {
		require.NoError(t, store.Countries().Create(ctx, c))
	}
	require.NoError(t, store.Brands().Create(ctx, &entity.Brand{ID: "b1", Name: "Olympus", CountryIDs: []string{"co"}}))
	require.NoError(t, store.Brands().Create(ctx, &entity.Brand{ID: "b2", Name: "Waygate", CountryIDs: []string{"mx"}}))
	require.NoError(t, store.Products().Create(ctx, &entity.Product{ID: "p1", Name: "Epoch 650", BrandID: "b1", CountryIDs: []string{"co"}}))
	require.NoError(t, store.Products().Create(ctx, &entity.Product{ID: "p2", Name: "Mentor Flex", BrandID: "b2", CountryIDs: []string{"mx"}}))

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	users := []*entity.User{
		{ID: "u1", FirstName: "Ana", Email: "ana@c.co", Role: entity.RoleUser, Status: entity.UserStatusActive, Countries: []entity.Country{{ID: "co"}}, CreatedAt: base},
		{ID: "a1", FirstName: "Admin", Email: "admin@c.co", Role: entity.RoleAdmin, Status: entity.UserStatusActive, Countries: []entity.Country{{ID: "co"}}, CreatedAt: base.Add(time.Hour)},
		{ID: "s1", FirstName: "Super", Email: "super@c.co", Role: entity.RoleSuperAdmin, Status: entity.UserStatusActive, Countries: []entity.Country{{ID: "co"}}, CreatedAt: base.Add(2 * time.Hour)},
		{ID: "u2", FirstName: "Max", Email: "max@c.mx", Role: entity.RoleUser, Status: entity.UserStatusActive, Countries: []entity.Country{{ID: "mx"}}, CreatedAt: base.Add(3 * time.Hour)},
		{ID: "u3", FirstName: "Inés", Email: "ines@c.co", Role: entity.RoleUser, Status: entity.UserStatusInactive, CreatedAt: base.Add(4 * time.Hour)},
	}
	actors := map[string]entity.Actor{}
	for _, u := range users {
		require.NoError(t, store.Users().Create(ctx, u))
		actors[u.ID] = entity.ActorFromUser(u)
	}
	return &env{
		store:    store,
		catalog:  usecase.NewCatalogUseCase(store.Countries(), zerolog.Nop()),
		products: usecase.NewProductUseCase(store.Brands(), store.Products(), zerolog.Nop()),
		users:    usecase.NewUserUseCase(store.Users(), store.Countries(), zerolog.Nop()),
		user:     actors["u1"],
		admin:    actors["a1"],
		super:    actors["s1"],
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Catálogo
// ──────────────────────────────────────────────────────────────────────────────

func TestCountries_CrearYBorrar(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.catalog.CreateCountry(ctx, e.admin, dto.CreateCountryRequest{Name: "Perú"})
	assert.True(t, errors.Is(err, domain.ErrForbidden))

	_, err = e.catalog.CreateCountry(ctx, e.super, dto.CreateCountryRequest{Name: "  "})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = e.catalog.CreateCountry(ctx, e.super, dto.CreateCountryRequest{Name: "colombia"})
	assert.True(t, errors.Is(err, domain.ErrConflict))

	pe, err := e.catalog.CreateCountry(ctx, e.super, dto.CreateCountryRequest{Name: "Perú"})
	require.NoError(t, err)

	list, err := e.catalog.ListCountries(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 4)

	require.NoError(t, e.catalog.DeleteCountry(ctx, e.super, pe.ID))
	assert.True(t, errors.Is(e.catalog.DeleteCountry(ctx, e.super, pe.ID), domain.ErrNotFound))
}

func TestDeleteCountry_Referenciado_Conflict(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	err := e.catalog.DeleteCountry(ctx, e.super, "co")
	assert.True(t, errors.Is(err, domain.ErrConflict))

	// cl no tiene usuarios, marcas, productos ni RMAs
	require.NoError(t, e.catalog.DeleteCountry(ctx, e.super, "cl"))
}

// countriesRace simula una referencia creada entre IsReferenced y Delete.
type countriesRace struct {
	repository.CountryRepository
	deleteErr error
}

func (c countriesRace) IsReferenced(context.Context, string) (bool, error) { return false, nil }

func (c countriesRace) Delete(context.Context, string) error { return c.deleteErr }

func TestDeleteCountry_ConflictoDeLaFKSeConserva(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	fk := domain.NewError(domain.ErrConflict, "No se puede eliminar el país porque tiene registros asociados")

	uc := usecase.NewCatalogUseCase(countriesRace{CountryRepository: e.store.Countries(), deleteErr: fk}, zerolog.Nop())
	err := uc.DeleteCountry(ctx, e.super, "cl")
	assert.True(t, errors.Is(err, domain.ErrConflict), "obtenido %v", err)
	assert.Equal(t, fk.Message, domain.MessageOf(err))

	uc = usecase.NewCatalogUseCase(countriesRace{CountryRepository: e.store.Countries(), deleteErr: errors.New("conexión perdida")}, zerolog.Nop())
	err = uc.DeleteCountry(ctx, e.super, "cl")
	assert.True(t, errors.Is(err, domain.ErrInternal), "los errores de infraestructura siguen siendo internos")
}

func TestListBrandsYProductos_Alcance(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.products.ListBrands(ctx, e.user, "")
	assert.True(t, errors.Is(err, domain.ErrForbidden))
	_, err = e.products.ListProducts(ctx, e.user, dto.ProductFilter{})
	assert.True(t, errors.Is(err, domain.ErrForbidden))

	brands, err := e.products.ListBrands(ctx, e.admin, "")
	require.NoError(t, err)
	require.Len(t, brands, 1)
	assert.Equal(t, "Olympus", brands[0].Name)

	all, err := e.products.ListBrands(ctx, e.super, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	products, err := e.products.ListProducts(ctx, e.admin, dto.ProductFilter{})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Olympus", products[0].BrandName)

	outside, err := e.products.ListProducts(ctx, e.admin, dto.ProductFilter{CountryID: "mx"})
	require.NoError(t, err)
	assert.Empty(t, outside, "país fuera del alcance no devuelve nada")

	byCountry, err := e.products.ListProducts(ctx, e.super, dto.ProductFilter{CountryID: "mx"})
	require.NoError(t, err)
	require.Len(t, byCountry, 1)
	assert.Equal(t, "p2", byCountry[0].ID)

	byBrand, err := e.products.ListProducts(ctx, e.super, dto.ProductFilter{BrandID: "b1"})
	require.NoError(t, err)
	require.Len(t, byBrand, 1)
	assert.Equal(t, "p1", byBrand[0].ID)
}

func TestBrands_EscrituraPorAlcance(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.products.CreateBrand(ctx, e.user, dto.CreateBrandRequest{Name: "Sonatest", CountryIDs: []string{"co"}})
	assert.True(t, errors.Is(err, domain.ErrForbidden), "USER no gestiona catálogo")

	_, err = e.products.CreateBrand(ctx, e.admin, dto.CreateBrandRequest{Name: "Sonatest", CountryIDs: []string{"co", "mx"}})
	assert.True(t, errors.Is(err, domain.ErrForbidden), "mx fuera del alcance del ADMIN")

	_, err = e.products.CreateBrand(ctx, e.admin, dto.CreateBrandRequest{Name: "Sonatest"})
	assert.True(t, errors.Is(err, domain.ErrValidation), "sin países")

	_, err = e.products.CreateBrand(ctx, e.admin, dto.CreateBrandRequest{Name: " S ", CountryIDs: []string{"co"}})
	assert.True(t, errors.Is(err, domain.ErrValidation), "nombre corto")

	_, err = e.products.CreateBrand(ctx, e.admin, dto.CreateBrandRequest{Name: "OLYMPUS", CountryIDs: []string{"co"}})
	assert.True(t, errors.Is(err, domain.ErrConflict))

	created, err := e.products.CreateBrand(ctx, e.admin, dto.CreateBrandRequest{Name: " Sonatest ", CountryIDs: []string{"co", "co"}})
	require.NoError(t, err)
	assert.Equal(t, "Sonatest", created.Name)
	assert.Equal(t, []string{"co"}, created.CountryIDs)

	found, err := e.products.ListBrands(ctx, e.admin, "SONA")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, created.ID, found[0].ID)

	// b2 solo está en mx: para el ADMIN no existe
	_, err = e.products.UpdateBrand(ctx, e.admin, "b2", dto.UpdateBrandRequest{Name: ptr("Waygate NDT")})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.True(t, errors.Is(e.products.DeleteBrand(ctx, e.admin, "b2"), domain.ErrNotFound))

	// una marca compartida con un país ajeno se ve pero no se modifica
	shared, err := e.products.CreateBrand(ctx, e.super, dto.CreateBrandRequest{Name: "Zetec", CountryIDs: []string{"co", "mx"}})
	require.NoError(t, err)
	_, err = e.products.GetBrand(ctx, e.admin, shared.ID)
	require.NoError(t, err)
	_, err = e.products.UpdateBrand(ctx, e.admin, shared.ID, dto.UpdateBrandRequest{Name: ptr("Zetec NDT")})
	assert.True(t, errors.Is(err, domain.ErrForbidden))

	_, err = e.products.UpdateBrand(ctx, e.admin, created.ID, dto.UpdateBrandRequest{Name: ptr("Waygate")})
	assert.True(t, errors.Is(err, domain.ErrConflict), "el nombre es único aunque la otra marca no sea visible")
	_, err = e.products.UpdateBrand(ctx, e.admin, created.ID, dto.UpdateBrandRequest{CountryIDs: []string{"mx"}})
	assert.True(t, errors.Is(err, domain.ErrForbidden))

	renamed, err := e.products.UpdateBrand(ctx, e.admin, created.ID, dto.UpdateBrandRequest{Name: ptr("Sonatest NDT")})
	require.NoError(t, err)
	assert.Equal(t, "Sonatest NDT", renamed.Name)
	assert.Equal(t, []string{"co"}, renamed.CountryIDs, "CountryIDs nil no cambia los países")

	moved, err := e.products.UpdateBrand(ctx, e.super, "b2", dto.UpdateBrandRequest{CountryIDs: []string{"cl", "mx"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"cl", "mx"}, moved.CountryIDs)

	assert.True(t, errors.Is(e.products.DeleteBrand(ctx, e.admin, "b1"), domain.ErrConflict), "b1 tiene productos")
	require.NoError(t, e.products.DeleteBrand(ctx, e.admin, created.ID))
	_, err = e.products.GetBrand(ctx, e.admin, created.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestProducts_EscrituraPorAlcance(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.products.CreateProduct(ctx, e.user, dto.CreateProductRequest{Name: "Epoch 6LT", BrandID: "b1", CountryIDs: []string{"co"}})
	assert.True(t, errors.Is(err, domain.ErrForbidden))

	_, err = e.products.CreateProduct(ctx, e.admin, dto.CreateProductRequest{Name: "Mentor Visual iQ", BrandID: "b2", CountryIDs: []string{"co"}})
	assert.True(t, errors.Is(err, domain.ErrNotFound), "marca fuera del alcance")

	_, err = e.products.CreateProduct(ctx, e.admin, dto.CreateProductRequest{Name: "Epoch 6LT", BrandID: "b1", CountryIDs: []string{"mx"}})
	assert.True(t, errors.Is(err, domain.ErrForbidden))

	_, err = e.products.CreateProduct(ctx, e.admin, dto.CreateProductRequest{Name: "epoch 650", BrandID: "b1", CountryIDs: []string{"co"}})
	assert.True(t, errors.Is(err, domain.ErrConflict))

	p, err := e.products.CreateProduct(ctx, e.admin, dto.CreateProductRequest{Name: "Epoch 6LT", BrandID: "b1", CountryIDs: []string{"co"}})
	require.NoError(t, err)
	assert.Equal(t, "Olympus", p.BrandName)

	// super crea un homónimo en otra marca: la unicidad es por marca
	_, err = e.products.CreateProduct(ctx, e.super, dto.CreateProductRequest{Name: "Epoch 6LT", BrandID: "b2", CountryIDs: []string{"mx"}})
	require.NoError(t, err)

	byBrandName, err := e.products.ListProducts(ctx, e.admin, dto.ProductFilter{Search: "olymp"})
	require.NoError(t, err)
	assert.Len(t, byBrandName, 2)
	byName, err := e.products.ListProducts(ctx, e.super, dto.ProductFilter{Search: "6lt"})
	require.NoError(t, err)
	assert.Len(t, byName, 2)
	_, err = e.products.ListProducts(ctx, e.admin, dto.ProductFilter{Search: strings.Repeat("x", 101)})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = e.products.UpdateProduct(ctx, e.admin, p.ID, dto.UpdateProductRequest{BrandID: ptr("b2")})
	assert.True(t, errors.Is(err, domain.ErrNotFound), "no puede mover a una marca invisible")
	_, err = e.products.UpdateProduct(ctx, e.admin, p.ID, dto.UpdateProductRequest{Name: ptr("EPOCH 650")})
	assert.True(t, errors.Is(err, domain.ErrConflict))

	updated, err := e.products.UpdateProduct(ctx, e.admin, p.ID, dto.UpdateProductRequest{Name: ptr("Epoch 6LT+")})
	require.NoError(t, err)
	assert.Equal(t, "Epoch 6LT+", updated.Name)
	assert.Equal(t, "b1", updated.BrandID)

	_, err = e.products.GetProduct(ctx, e.admin, "p2")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.True(t, errors.Is(e.products.DeleteProduct(ctx, e.admin, "p2"), domain.ErrNotFound))

	require.NoError(t, e.store.RMAs().Create(ctx, &entity.RMA{
		ID: "r1", UserID: "u1", CountryID: "co", Status: entity.RMAStatusSubmitted,
		Products: []entity.RMAProduct{{ID: "l1", ProductID: "p1", Serial: "SN-1"}},
	}))
	assert.True(t, errors.Is(e.products.DeleteProduct(ctx, e.admin, "p1"), domain.ErrConflict), "p1 está en un RMA")

	require.NoError(t, e.products.DeleteProduct(ctx, e.admin, p.ID))
	_, err = e.products.GetProduct(ctx, e.admin, p.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

// ──────────────────────────────────────────────────────────────────────────────
// Usuarios
// ──────────────────────────────────────────────────────────────────────────────

func TestUsers_ListAlcance(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.users.List(ctx, e.user, "", dto.PageRequest{})
	assert.True(t, errors.Is(err, domain.ErrForbidden))

	adminView, err := e.users.List(ctx, e.admin, "", dto.PageRequest{})
	require.NoError(t, err)
	ids := []string{}
	for _, u := range adminView.Items {
		ids = append(ids, u.ID)
	}
	assert.ElementsMatch(t, []string{"u1", "a1"}, ids, "ADMIN no ve SUPERADMIN ni usuarios de otros países")

	superView, err := e.users.List(ctx, e.super, "", dto.PageRequest{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, superView.Page.Total)
	assert.Equal(t, 3, superView.Page.TotalPages)
	assert.True(t, superView.Page.HasNext)
	assert.True(t, superView.Page.HasPrev)
	assert.Len(t, superView.Items, 2)

	search, err := e.users.List(ctx, e.super, "MAX", dto.PageRequest{})
	require.NoError(t, err)
	require.Len(t, search.Items, 1)
	assert.Equal(t, "u2", search.Items[0].ID)
}

func TestUsers_GetByID_FueraDeAlcance(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.users.GetByID(ctx, e.admin, "u2")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	u, err := e.users.GetByID(ctx, e.admin, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", u.FirstName)
}

func TestAssignCountries(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.users.AssignCountries(ctx, e.admin, "u1", []string{"mx"})
	assert.True(t, errors.Is(err, domain.ErrForbidden))

	_, err = e.users.AssignCountries(ctx, e.super, "u1", []string{"zz"})
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = e.users.AssignCountries(ctx, e.super, "nadie", []string{"mx"})
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	out, err := e.users.AssignCountries(ctx, e.super, "u1", []string{"mx", "co", "mx"})
	require.NoError(t, err)
	require.Len(t, out.Countries, 2)

	actor, err := e.users.Actor(ctx, "u1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"mx", "co"}, actor.Countries, "el actor recargado ve los países nuevos")
}

func TestActor_Inactivo(t *testing.T) {
	e := newEnv(t)
	_, err := e.users.Actor(context.Background(), "u3")
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))

	_, err = e.users.Actor(context.Background(), "nadie")
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestUpdateRole_Reglas(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.users.UpdateRole(ctx, e.user, "u2", entity.RoleAdmin)
	assert.True(t, errors.Is(err, domain.ErrForbidden), "USER no gestiona usuarios")

	_, err = e.users.UpdateRole(ctx, e.admin, "nadie", entity.RoleAdmin)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = e.users.UpdateRole(ctx, e.admin, "u1", "ROOT")
	assert.True(t, errors.Is(err, domain.ErrValidation))

	cases := map[string]struct {
		target, role, msg string
	}{
		"propio rol":          {"a1", entity.RoleUser, "No puedes cambiar tu propio rol"},
		"otro país":           {"u2", entity.RoleAdmin, "No tienes permisos para modificar usuarios de otros países"},
		"objetivo SUPERADMIN": {"s1", entity.RoleAdmin, "No tienes permisos para gestionar roles de SUPERADMIN"},
		"asignar SUPERADMIN":  {"u1", entity.RoleSuperAdmin, "No tienes permisos para gestionar roles de SUPERADMIN"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := e.users.UpdateRole(ctx, e.admin, tc.target, tc.role)
			assert.True(t, errors.Is(err, domain.ErrForbidden), "obtenido %v", err)
			assert.Equal(t, tc.msg, domain.MessageOf(err))
		})
	}

	same, err := e.users.UpdateRole(ctx, e.admin, "u1", entity.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, entity.RoleUser, same.Role, "mismo rol: sin cambios")

	promoted, err := e.users.UpdateRole(ctx, e.admin, "u1", " admin ")
	require.NoError(t, err)
	assert.Equal(t, entity.RoleAdmin, promoted.Role)
	require.Len(t, promoted.Countries, 1, "los países se conservan")
	actor, err := e.users.Actor(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, entity.RoleAdmin, actor.Role, "el actor recargado ve el rol nuevo")

	super, err := e.users.UpdateRole(ctx, e.super, "u2", entity.RoleSuperAdmin)
	require.NoError(t, err)
	assert.Equal(t, entity.RoleSuperAdmin, super.Role)
}

func ptr(s string) *string { return &s }
