// Package access resuelve qué registros puede ver o modificar un actor según
// su rol y sus países asignados. Es puro: no consulta ni modifica nada.
package access

import (
	"github.com/jhoicas/rma-api/internal/domain"
	"github.com/jhoicas/rma-api/internal/domain/entity"
)

// Kind entidad protegida por el resolvedor.
type Kind string

const (
	KindRMA     Kind = "rma"
	KindUser    Kind = "user"
	KindBrand   Kind = "brand"
	KindProduct Kind = "product"
)

var (
	errUserCannotListBrands   = domain.NewError(domain.ErrForbidden, "No tienes permisos para acceder a las marcas")
	errUserCannotListProducts = domain.NewError(domain.ErrForbidden, "No tienes permisos para acceder a los productos")
	errUserCannotListUsers    = domain.NewError(domain.ErrForbidden, "No tienes permisos para listar usuarios")
)

// Filter predicado declarativo. Campos vacíos no restringen; CountryScoped con
// CountryIDs vacío no coincide con ningún registro.
type Filter struct {
	OwnerID       string
	CountryScoped bool
	CountryIDs    []string
	RoleIn        []string
}

// Unrestricted indica el filtro que coincide con todo (SUPERADMIN).
func (f Filter) Unrestricted() bool {
	return f.OwnerID == "" && !f.CountryScoped && len(f.RoleIn) == 0
}

// MatchesNothing indica que la intersección quedó vacía.
func (f Filter) MatchesNothing() bool {
	return f.CountryScoped && len(f.CountryIDs) == 0
}

// Resolve produce el filtro de acceso del actor para la entidad indicada.
func Resolve(actor entity.Actor, kind Kind) (Filter, error) {
	switch actor.Role {
	case entity.RoleUser:
		switch kind {
		case KindRMA:
			return Filter{OwnerID: actor.ID}, nil
		case KindBrand:
			return Filter{}, errUserCannotListBrands
		case KindProduct:
			return Filter{}, errUserCannotListProducts
		default:
			return Filter{}, errUserCannotListUsers
		}
	case entity.RoleAdmin:
		if len(actor.Countries) == 0 {
			return Filter{}, domain.ErrNoCountries
		}
		f := Filter{
			CountryScoped: true,
			CountryIDs:    append([]string(nil), actor.Countries...),
		}
		if kind == KindUser {
			f.RoleIn = []string{entity.RoleAdmin, entity.RoleUser}
		}
		return f, nil
	case entity.RoleSuperAdmin:
		return Filter{}, nil
	default:
		return Filter{}, domain.ErrInvalidRole
	}
}

// WithCountry intersecta (AND) el filtro con un país pedido por el caller.
// Un país fuera del alcance deja un filtro que no coincide con nada.
func (f Filter) WithCountry(countryID string) Filter {
	if countryID == "" {
		return f
	}
	out := f
	if !f.CountryScoped {
		out.CountryScoped = true
		out.CountryIDs = []string{countryID}
		return out
	}
	out.CountryIDs = nil
	for _, c := range f.CountryIDs {
		if c == countryID {
			out.CountryIDs = []string{countryID}
			break
		}
	}
	if out.CountryIDs == nil {
		out.CountryIDs = []string{}
	}
	return out
}

// AllowsCountry evalúa la restricción de país sobre un único valor.
func (f Filter) AllowsCountry(countryID string) bool {
	if !f.CountryScoped {
		return true
	}
	for _, c := range f.CountryIDs {
		if c == countryID {
			return true
		}
	}
	return false
}

// AllowsRMA evalúa el filtro sobre un RMA ya cargado.
func (f Filter) AllowsRMA(r *entity.RMA) bool {
	if r == nil {
		return false
	}
	if f.OwnerID != "" && r.UserID != f.OwnerID {
		return false
	}
	return f.AllowsCountry(r.CountryID)
}

// AllowsUser evalúa el filtro sobre un usuario ya cargado (al menos un país en común).
func (f Filter) AllowsUser(u *entity.User) bool {
	if u == nil {
		return false
	}
	if len(f.RoleIn) > 0 && !contains(f.RoleIn, u.Role) {
		return false
	}
	if !f.CountryScoped {
		return true
	}
	for _, c := range u.CountryIDs() {
		if contains(f.CountryIDs, c) {
			return true
		}
	}
	return false
}

// AllowsAnyCountry evalúa la restricción de país sobre entidades multi-país (marcas, productos).
func (f Filter) AllowsAnyCountry(countryIDs []string) bool {
	if !f.CountryScoped {
		return true
	}
	for _, c := range countryIDs {
		if contains(f.CountryIDs, c) {
			return true
		}
	}
	return false
}

// AllowsAllCountries exige que todos los países estén dentro del alcance.
// Lo usan las escrituras de catálogo: una lista vacía solo pasa sin restricción.
func (f Filter) AllowsAllCountries(countryIDs []string) bool {
	if !f.CountryScoped {
		return true
	}
	if len(countryIDs) == 0 {
		return false
	}
	for _, c := range countryIDs {
		if !contains(f.CountryIDs, c) {
			return false
		}
	}
	return true
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
