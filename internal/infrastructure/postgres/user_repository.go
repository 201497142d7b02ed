package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/rma-api/internal/domain"
	"github.com/jhoicas/rma-api/internal/domain/entity"
	"github.com/jhoicas/rma-api/internal/domain/repository"
)

var _ repository.UserRepository = (*UserRepo)(nil)

// UserRepo implementación del puerto UserRepository sobre PostgreSQL.
type UserRepo struct {
	db Querier
}

// NewUserRepository construye el adaptador de persistencia para usuarios.
func NewUserRepository(db Querier) *UserRepo {
	return &UserRepo{db: db}
}

const userColumns = `u.id, u.first_name, u.last_name, u.email, u.password_hash, u.company,
	u.phone, u.address, u.role, u.status, u.created_at, u.updated_at`

func scanUser(row pgx.Row) (*entity.User, error) {
	var u entity.User
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash, &u.Company,
		&u.Phone, &u.Address, &u.Role, &u.Status, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create persiste un nuevo usuario con sus países.
func (r *UserRepo) Create(ctx context.Context, user *entity.User) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO users (id, first_name, last_name, email, password_hash, company, phone, address, role, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			user.ID, user.FirstName, user.LastName, user.Email, user.PasswordHash, user.Company,
			user.Phone, user.Address, user.Role, user.Status, user.CreatedAt, user.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrEmailAlreadyExists
			}
			return fmt.Errorf("insert user: %w", err)
		}
		return insertUserCountries(ctx, tx, user.ID, user.CountryIDs())
	})
}

// GetByID obtiene un usuario por ID.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id = $1`, id))
	return r.one(ctx, u, err, "get user by id")
}

// GetByEmail obtiene un usuario por email sin distinguir mayúsculas.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users u WHERE lower(u.email) = lower($1)`, email))
	return r.one(ctx, u, err, "get user by email")
}

func (r *UserRepo) one(ctx context.Context, u *entity.User, err error, op string) (*entity.User, error) {
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := r.loadCountries(ctx, []*entity.User{u}); err != nil {
		return nil, err
	}
	return u, nil
}

// Update actualiza datos de perfil, rol y estado. Los países van por SetCountries.
func (r *UserRepo) Update(ctx context.Context, user *entity.User) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE users SET first_name = $2, last_name = $3, email = $4, password_hash = $5, company = $6,
			phone = $7, address = $8, role = $9, status = $10, updated_at = $11
		WHERE id = $1`,
		user.ID, user.FirstName, user.LastName, user.Email, user.PasswordHash, user.Company,
		user.Phone, user.Address, user.Role, user.Status, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailAlreadyExists
		}
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func userWhere(q repository.UserQuery) *where {
	w := &where{}
	if len(q.Filter.RoleIn) > 0 {
		w.and("u.role = ANY(" + w.arg(q.Filter.RoleIn) + ")")
	}
	if q.Filter.CountryScoped {
		w.and(`EXISTS (SELECT 1 FROM user_countries uc WHERE uc.user_id = u.id AND uc.country_id = ANY(` +
			w.arg(countryIDs(q.Filter.CountryIDs)) + `))`)
	}
	if q.Search != "" {
		p := w.arg(likePattern(q.Search))
		w.and("(u.first_name ILIKE " + p + " OR u.last_name ILIKE " + p +
			" OR u.email ILIKE " + p + " OR u.company ILIKE " + p + ")")
	}
	return w
}

// List lista usuarios visibles según el filtro, más recientes primero.
func (r *UserRepo) List(ctx context.Context, q repository.UserQuery) ([]*entity.User, error) {
	w := userWhere(q)
	sql := `SELECT ` + userColumns + ` FROM users u` + w.sql() + ` ORDER BY u.created_at DESC, u.id` + w.page(q.Limit, q.Offset)
	rows, err := r.db.Query(ctx, sql, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	list := []*entity.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		list = append(list, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	if err := r.loadCountries(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

// Count cuenta usuarios visibles según el filtro.
func (r *UserRepo) Count(ctx context.Context, q repository.UserQuery) (int, error) {
	w := userWhere(q)
	var n int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM users u`+w.sql(), w.args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// SetCountries reemplaza los países asignados al usuario.
func (r *UserRepo) SetCountries(ctx context.Context, userID string, ids []string) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		var locked string
		err := tx.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&locked)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("lock user: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM user_countries WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("clear user countries: %w", err)
		}
		return insertUserCountries(ctx, tx, userID, ids)
	})
}

func insertUserCountries(ctx context.Context, tx pgx.Tx, userID string, ids []string) error {
	for _, id := range ids {
		if _, err := tx.Exec(ctx,
			`INSERT INTO user_countries (user_id, country_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			userID, id,
		); err != nil {
			if isForeignKeyViolation(err) {
				return domain.ErrCountryNotFound
			}
			return fmt.Errorf("insert user country: %w", err)
		}
	}
	return nil
}

// loadCountries completa Countries de cada usuario con una sola consulta.
func (r *UserRepo) loadCountries(ctx context.Context, users []*entity.User) error {
	if len(users) == 0 {
		return nil
	}
	ids := make([]string, 0, len(users))
	byID := make(map[string]*entity.User, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
		byID[u.ID] = u
		u.Countries = []entity.Country{}
	}
	rows, err := r.db.Query(ctx, `
		SELECT uc.user_id, c.id, c.name, c.created_at
		FROM user_countries uc JOIN countries c ON c.id = uc.country_id
		WHERE uc.user_id = ANY($1)
		ORDER BY c.name`, ids)
	if err != nil {
		return fmt.Errorf("load user countries: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var userID string
		var c entity.Country
		if err := rows.Scan(&userID, &c.ID, &c.Name, &c.CreatedAt); err != nil {
			return fmt.Errorf("scan user country: %w", err)
		}
		if u, ok := byID[userID]; ok {
			u.Countries = append(u.Countries, c)
		}
	}
	return rows.Err()
}
