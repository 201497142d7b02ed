package access_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/rma-api/internal/domain"
	"github.com/jhoicas/rma-api/internal/domain/access"
	"github.com/jhoicas/rma-api/internal/domain/entity"
)

// ──────────────────────────────────────────────────────────────────────────────
// Resolve
// ──────────────────────────────────────────────────────────────────────────────

func TestResolve_UserSoloVeSusRMA(t *testing.T) {
	actor := entity.Actor{ID: "u1", Role: entity.RoleUser, Countries: []string{"co"}}

	f, err := access.Resolve(actor, access.KindRMA)
	require.NoError(t, err)
	assert.Equal(t, "u1", f.OwnerID)
	assert.False(t, f.CountryScoped, "USER no se restringe por país, solo por dueño")

	assert.True(t, f.AllowsRMA(&entity.RMA{UserID: "u1", CountryID: "ar"}))
	assert.False(t, f.AllowsRMA(&entity.RMA{UserID: "u2", CountryID: "co"}))
}

func TestResolve_UserNoPuedeListarCatalogos(t *testing.T) {
	actor := entity.Actor{ID: "u1", Role: entity.RoleUser, Countries: []string{"co"}}

	for _, kind := range []access.Kind{access.KindBrand, access.KindProduct, access.KindUser} {
		_, err := access.Resolve(actor, kind)
		require.Error(t, err, "kind %s", kind)
		assert.True(t, errors.Is(err, domain.ErrForbidden), "kind %s debe ser Forbidden", kind)
	}
}

func TestResolve_AdminPorPaises(t *testing.T) {
	actor := entity.Actor{ID: "a1", Role: entity.RoleAdmin, Countries: []string{"co", "ar"}}

	f, err := access.Resolve(actor, access.KindRMA)
	require.NoError(t, err)
	assert.True(t, f.CountryScoped)
	assert.ElementsMatch(t, []string{"co", "ar"}, f.CountryIDs)
	assert.Empty(t, f.RoleIn)

	assert.True(t, f.AllowsRMA(&entity.RMA{UserID: "x", CountryID: "co"}))
	assert.False(t, f.AllowsRMA(&entity.RMA{UserID: "x", CountryID: "us"}))
}

func TestResolve_AdminSinPaises_Forbidden(t *testing.T) {
	actor := entity.Actor{ID: "a1", Role: entity.RoleAdmin}

	_, err := access.Resolve(actor, access.KindRMA)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrForbidden))
	assert.Equal(t, "No tienes países asignados", domain.MessageOf(err))
}

func TestResolve_AdminListandoUsuarios_SoloAdminYUser(t *testing.T) {
	actor := entity.Actor{ID: "a1", Role: entity.RoleAdmin, Countries: []string{"co"}}

	f, err := access.Resolve(actor, access.KindUser)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{entity.RoleAdmin, entity.RoleUser}, f.RoleIn)

	colombia := []entity.Country{{ID: "co"}}
	assert.True(t, f.AllowsUser(&entity.User{Role: entity.RoleUser, Countries: colombia}))
	assert.False(t, f.AllowsUser(&entity.User{Role: entity.RoleSuperAdmin, Countries: colombia}))
	assert.False(t, f.AllowsUser(&entity.User{Role: entity.RoleUser, Countries: []entity.Country{{ID: "us"}}}))
}

func TestResolve_SuperAdminSinRestricciones(t *testing.T) {
	actor := entity.Actor{ID: "s1", Role: entity.RoleSuperAdmin}

	for _, kind := range []access.Kind{access.KindRMA, access.KindUser, access.KindBrand, access.KindProduct} {
		f, err := access.Resolve(actor, kind)
		require.NoError(t, err)
		assert.True(t, f.Unrestricted(), "kind %s", kind)
	}
}

func TestResolve_RolDesconocido_Forbidden(t *testing.T) {
	_, err := access.Resolve(entity.Actor{ID: "x", Role: "GUEST"}, access.KindRMA)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrForbidden))
	assert.Equal(t, "Rol no válido", domain.MessageOf(err))
}

// ──────────────────────────────────────────────────────────────────────────────
// WithCountry
// ──────────────────────────────────────────────────────────────────────────────

func TestWithCountry_Interseccion(t *testing.T) {
	admin := entity.Actor{ID: "a1", Role: entity.RoleAdmin, Countries: []string{"co", "ar"}}
	f, err := access.Resolve(admin, access.KindRMA)
	require.NoError(t, err)

	dentro := f.WithCountry("co")
	assert.Equal(t, []string{"co"}, dentro.CountryIDs)
	assert.False(t, dentro.MatchesNothing())

	fuera := f.WithCountry("us")
	assert.True(t, fuera.MatchesNothing(), "país fuera del alcance no debe coincidir con nada")
	assert.False(t, fuera.AllowsRMA(&entity.RMA{CountryID: "us"}))
	assert.False(t, fuera.AllowsRMA(&entity.RMA{CountryID: "co"}))

	assert.Equal(t, f, f.WithCountry(""), "sin país el filtro no cambia")
}

func TestWithCountry_SuperAdminYUser(t *testing.T) {
	sa, err := access.Resolve(entity.Actor{ID: "s1", Role: entity.RoleSuperAdmin}, access.KindRMA)
	require.NoError(t, err)
	f := sa.WithCountry("us")
	assert.True(t, f.AllowsRMA(&entity.RMA{CountryID: "us"}))
	assert.False(t, f.AllowsRMA(&entity.RMA{CountryID: "co"}))

	user, err := access.Resolve(entity.Actor{ID: "u1", Role: entity.RoleUser}, access.KindRMA)
	require.NoError(t, err)
	g := user.WithCountry("co")
	assert.Equal(t, "u1", g.OwnerID, "la intersección conserva el dueño")
	assert.False(t, g.AllowsRMA(&entity.RMA{UserID: "u2", CountryID: "co"}))
	assert.True(t, g.AllowsRMA(&entity.RMA{UserID: "u1", CountryID: "co"}))
}

func TestAllowsAnyCountry(t *testing.T) {
	f, err := access.Resolve(entity.Actor{ID: "a1", Role: entity.RoleAdmin, Countries: []string{"co"}}, access.KindBrand)
	require.NoError(t, err)
	assert.True(t, f.AllowsAnyCountry([]string{"us", "co"}))
	assert.False(t, f.AllowsAnyCountry([]string{"us"}))
	assert.False(t, f.AllowsAnyCountry(nil))
}

func TestAllowsAllCountries(t *testing.T) {
	f, err := access.Resolve(entity.Actor{ID: "a1", Role: entity.RoleAdmin, Countries: []string{"co", "mx"}}, access.KindProduct)
	require.NoError(t, err)
	assert.True(t, f.AllowsAllCountries([]string{"co", "mx"}))
	assert.False(t, f.AllowsAllCountries([]string{"co", "us"}), "un país fuera basta para negar")
	assert.False(t, f.AllowsAllCountries(nil))

	sa, err := access.Resolve(entity.Actor{ID: "s1", Role: entity.RoleSuperAdmin}, access.KindProduct)
	require.NoError(t, err)
	assert.True(t, sa.AllowsAllCountries([]string{"us"}))
	assert.True(t, sa.AllowsAllCountries(nil))
}
