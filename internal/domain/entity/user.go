package entity

import "time"

// Roles válidos para User.
const (
	RoleUser       = "USER"
	RoleAdmin      = "ADMIN"
	RoleSuperAdmin = "SUPERADMIN"
)

// Estados de cuenta (nunca se borra un usuario, solo se desactiva).
const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
)

// User representa un usuario del sistema con su rol y países asignados.
type User struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string // bcrypt hash, nunca plano en dominio después de persistir
	Company      string // empresa; se copia a cada RMA
	Phone        string
	Address      string
	Role         string // USER, ADMIN, SUPERADMIN
	Status       string
	Countries    []Country
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CountryIDs devuelve los IDs de los países asignados.
func (u *User) CountryIDs() []string {
	ids := make([]string, 0, len(u.Countries))
	for _, c := range u.Countries {
		ids = append(ids, c.ID)
	}
	return ids
}

// Actor es la vista autenticada de un User: lo mínimo para decidir permisos.
type Actor struct {
	ID        string
	Role      string
	Countries []string
	Company   string
	Email     string
}

// ActorFromUser construye el actor con el rol y países vigentes del usuario.
func ActorFromUser(u *User) Actor {
	return Actor{
		ID:        u.ID,
		Role:      u.Role,
		Countries: u.CountryIDs(),
		Company:   u.Company,
		Email:     u.Email,
	}
}

// IsPrivileged indica ADMIN o SUPERADMIN.
func (a Actor) IsPrivileged() bool {
	return a.Role == RoleAdmin || a.Role == RoleSuperAdmin
}

// HasCountry indica si el actor tiene asignado el país (SUPERADMIN siempre).
func (a Actor) HasCountry(countryID string) bool {
	if a.Role == RoleSuperAdmin {
		return true
	}
	for _, c := range a.Countries {
		if c == countryID {
			return true
		}
	}
	return false
}

// Recipient datos de contacto usados en las notificaciones.
type Recipient struct {
	FirstName string
	LastName  string
	Email     string
}
