package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/rma-api/internal/domain"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool { return pgCode(err) == "23505" }

// isForeignKeyViolation verifica si un error es una violación de llave foránea (23503).
func isForeignKeyViolation(err error) bool { return pgCode(err) == "23503" }

// conflictOr traduce 23505 a Conflict con msg; el resto se envuelve con op.
func conflictOr(err error, msg, op string) error {
	if isUniqueViolation(err) {
		return domain.Wrap(domain.ErrConflict, msg, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// where acumula condiciones AND con placeholders numerados.
type where struct {
	conds []string
	args  []any
}

// arg registra v y devuelve su placeholder ($n).
func (w *where) arg(v any) string {
	w.args = append(w.args, v)
	return fmt.Sprintf("$%d", len(w.args))
}

func (w *where) and(cond string) { w.conds = append(w.conds, cond) }

func (w *where) sql() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// page agrega LIMIT/OFFSET; limit <= 0 no pagina.
func (w *where) page(limit, offset int) string {
	if limit <= 0 {
		return ""
	}
	return fmt.Sprintf(" LIMIT %s OFFSET %s", w.arg(limit), w.arg(offset))
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern patrón ILIKE "contiene" con los comodines escapados.
func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// countryIDs nunca nil: ANY('{}') no coincide con nada.
func countryIDs(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
