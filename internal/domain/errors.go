package domain

import "errors"

// Errores de dominio (sin dependencias externas). Cada uno es un "kind" que
// la capa HTTP traduce a un código de estado.
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrForbidden    = errors.New("acceso denegado")
	ErrInvalidState = errors.New("estado inválido para la operación")
	ErrValidation   = errors.New("datos inválidos")
	ErrConflict     = errors.New("conflicto con el estado actual")
	ErrUnauthorized = errors.New("no autorizado")
	ErrInternal     = errors.New("error interno")

	ErrUserNotFound       = NewError(ErrNotFound, "usuario no encontrado")
	ErrRMANotFound        = NewError(ErrNotFound, "RMA no encontrado")
	ErrCountryNotFound    = NewError(ErrNotFound, "país no encontrado")
	ErrBrandNotFound      = NewError(ErrNotFound, "marca no encontrada")
	ErrProductNotFound    = NewError(ErrNotFound, "producto no encontrado")
	ErrBrandNameTaken     = NewError(ErrConflict, "Ya existe una marca con ese nombre")
	ErrProductNameTaken   = NewError(ErrConflict, "Ya existe un producto con ese nombre para esta marca")
	ErrEmailAlreadyExists = NewError(ErrConflict, "el email ya está registrado")
	ErrNoCountries        = NewError(ErrForbidden, "No tienes países asignados")
	ErrInvalidRole        = NewError(ErrForbidden, "Rol no válido")
)

// Error es un error de dominio con kind, mensaje legible y causa opcional.
// errors.Is funciona tanto contra el kind como contra la causa.
type Error struct {
	Kind    error
	Message string
	Err     error
}

// NewError construye un error de dominio sin causa.
func NewError(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap construye un error de dominio que conserva la causa original.
func Wrap(kind error, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

var kinds = []error{
	ErrNotFound, ErrForbidden, ErrInvalidState, ErrValidation,
	ErrConflict, ErrUnauthorized, ErrInternal,
}

// KindOf devuelve el kind de err; cualquier error no clasificado es ErrInternal.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return ErrInternal
}

// MessageOf devuelve el mensaje legible de err (sin exponer causas internas).
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	if k := KindOf(err); k != ErrInternal {
		return k.Error()
	}
	return ErrInternal.Error()
}
