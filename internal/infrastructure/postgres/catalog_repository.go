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

var (
	_ repository.CountryRepository = (*CountryRepo)(nil)
	_ repository.BrandRepository   = (*BrandRepo)(nil)
	_ repository.ProductRepository = (*ProductRepo)(nil)
)

// ── Countries ─────────────────────────────────────────────────────────────────

// CountryRepo implementación de CountryRepository sobre PostgreSQL.
type CountryRepo struct {
	db Querier
}

// NewCountryRepository construye el repositorio de países.
func NewCountryRepository(db Querier) *CountryRepo {
	return &CountryRepo{db: db}
}

// Create persiste un país; el nombre es único sin distinguir mayúsculas.
func (r *CountryRepo) Create(ctx context.Context, c *entity.Country) error {
	_, err := r.db.Exec(ctx, `INSERT INTO countries (id, name, created_at) VALUES ($1, $2, $3)`,
		c.ID, c.Name, c.CreatedAt)
	if err != nil {
		return conflictOr(err, "Ya existe un país con ese nombre", "insert country")
	}
	return nil
}

// GetByID obtiene un país por ID.
func (r *CountryRepo) GetByID(ctx context.Context, id string) (*entity.Country, error) {
	return r.one(ctx, `SELECT id, name, created_at FROM countries WHERE id = $1`, id)
}

// GetByName obtiene un país por nombre.
func (r *CountryRepo) GetByName(ctx context.Context, name string) (*entity.Country, error) {
	return r.one(ctx, `SELECT id, name, created_at FROM countries WHERE lower(name) = lower($1)`, name)
}

func (r *CountryRepo) one(ctx context.Context, sql, arg string) (*entity.Country, error) {
	var c entity.Country
	if err := r.db.QueryRow(ctx, sql, arg).Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get country: %w", err)
	}
	return &c, nil
}

// List lista los países por nombre.
func (r *CountryRepo) List(ctx context.Context) ([]*entity.Country, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, created_at FROM countries ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list countries: %w", err)
	}
	defer rows.Close()
	list := []*entity.Country{}
	for rows.Next() {
		var c entity.Country
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan country: %w", err)
		}
		list = append(list, &c)
	}
	return list, rows.Err()
}

// Delete elimina un país. Si otra fila lo referencia, la FK lo impide.
func (r *CountryRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM countries WHERE id = $1`, id); err != nil {
		if isForeignKeyViolation(err) {
			return domain.Wrap(domain.ErrConflict, "No se puede eliminar el país porque tiene registros asociados", err)
		}
		return fmt.Errorf("delete country: %w", err)
	}
	return nil
}

// IsReferenced indica si algún usuario, marca, producto o RMA usa el país.
func (r *CountryRepo) IsReferenced(ctx context.Context, id string) (bool, error) {
	var used bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM user_countries WHERE country_id = $1)
			OR EXISTS (SELECT 1 FROM brand_countries WHERE country_id = $1)
			OR EXISTS (SELECT 1 FROM product_countries WHERE country_id = $1)
			OR EXISTS (SELECT 1 FROM rmas WHERE country_id = $1)`, id).Scan(&used)
	if err != nil {
		return false, fmt.Errorf("country references: %w", err)
	}
	return used, nil
}

// ── Brands ────────────────────────────────────────────────────────────────────

const (
	msgBrandNameTaken   = "Ya existe una marca con ese nombre"
	msgProductNameTaken = "Ya existe un producto con ese nombre para esta marca"
)

// BrandRepo implementación de BrandRepository sobre PostgreSQL.
type BrandRepo struct {
	db Querier
}

// NewBrandRepository construye el repositorio de marcas.
func NewBrandRepository(db Querier) *BrandRepo {
	return &BrandRepo{db: db}
}

const brandSelect = `
	SELECT b.id, b.name, b.created_at, b.updated_at,
		COALESCE(array_agg(bc.country_id ORDER BY bc.country_id) FILTER (WHERE bc.country_id IS NOT NULL), '{}')
	FROM brands b LEFT JOIN brand_countries bc ON bc.brand_id = b.id`

func scanBrand(row pgx.Row) (*entity.Brand, error) {
	var b entity.Brand
	if err := row.Scan(&b.ID, &b.Name, &b.CreatedAt, &b.UpdatedAt, &b.CountryIDs); err != nil {
		return nil, err
	}
	return &b, nil
}

// Create persiste una marca y sus países.
func (r *BrandRepo) Create(ctx context.Context, b *entity.Brand) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO brands (id, name, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
			b.ID, b.Name, b.CreatedAt, b.UpdatedAt)
		if err != nil {
			return conflictOr(err, msgBrandNameTaken, "insert brand")
		}
		return insertCountries(ctx, tx, `INSERT INTO brand_countries (brand_id, country_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, b.ID, b.CountryIDs)
	})
}

// GetByID obtiene una marca con sus países.
func (r *BrandRepo) GetByID(ctx context.Context, id string) (*entity.Brand, error) {
	return r.one(ctx, brandSelect+` WHERE b.id = $1 GROUP BY b.id`, id)
}

// GetByName obtiene una marca por nombre.
func (r *BrandRepo) GetByName(ctx context.Context, name string) (*entity.Brand, error) {
	return r.one(ctx, brandSelect+` WHERE lower(b.name) = lower($1) GROUP BY b.id`, name)
}

func (r *BrandRepo) one(ctx context.Context, sql, arg string) (*entity.Brand, error) {
	b, err := scanBrand(r.db.QueryRow(ctx, sql, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get brand: %w", err)
	}
	return b, nil
}

// List lista marcas ofrecidas en algún país del filtro.
func (r *BrandRepo) List(ctx context.Context, q repository.BrandQuery) ([]*entity.Brand, error) {
	w := &where{}
	if q.Filter.CountryScoped {
		w.and(`EXISTS (SELECT 1 FROM brand_countries x WHERE x.brand_id = b.id AND x.country_id = ANY(` +
			w.arg(countryIDs(q.Filter.CountryIDs)) + `))`)
	}
	if q.Search != "" {
		w.and("b.name ILIKE " + w.arg(likePattern(q.Search)))
	}
	rows, err := r.db.Query(ctx, brandSelect+w.sql()+` GROUP BY b.id ORDER BY b.name`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list brands: %w", err)
	}
	defer rows.Close()
	list := []*entity.Brand{}
	for rows.Next() {
		b, err := scanBrand(rows)
		if err != nil {
			return nil, fmt.Errorf("scan brand: %w", err)
		}
		list = append(list, b)
	}
	return list, rows.Err()
}

// Update reemplaza nombre y países de la marca.
func (r *BrandRepo) Update(ctx context.Context, b *entity.Brand) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE brands SET name = $2, updated_at = $3 WHERE id = $1`, b.ID, b.Name, b.UpdatedAt)
		if err != nil {
			return conflictOr(err, msgBrandNameTaken, "update brand")
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrBrandNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM brand_countries WHERE brand_id = $1`, b.ID); err != nil {
			return fmt.Errorf("clear brand countries: %w", err)
		}
		return insertCountries(ctx, tx, `INSERT INTO brand_countries (brand_id, country_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, b.ID, b.CountryIDs)
	})
}

// Delete elimina la marca. La FK de products impide borrarla con productos.
func (r *BrandRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM brands WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.Wrap(domain.ErrConflict, "No se puede eliminar la marca porque tiene productos asociados", err)
		}
		return fmt.Errorf("delete brand: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBrandNotFound
	}
	return nil
}

// insertCountries inserta las filas (id, país) de una tabla puente.
func insertCountries(ctx context.Context, tx pgx.Tx, sql, id string, ids []string) error {
	for _, c := range ids {
		if _, err := tx.Exec(ctx, sql, id, c); err != nil {
			if isForeignKeyViolation(err) {
				return domain.ErrCountryNotFound
			}
			return fmt.Errorf("insert country link: %w", err)
		}
	}
	return nil
}

// ── Products ──────────────────────────────────────────────────────────────────

// ProductRepo implementación de ProductRepository sobre PostgreSQL.
type ProductRepo struct {
	db Querier
}

// NewProductRepository construye el repositorio de productos.
func NewProductRepository(db Querier) *ProductRepo {
	return &ProductRepo{db: db}
}

const productSelect = `
	SELECT p.id, p.name, p.brand_id, b.name, p.created_at, p.updated_at,
		COALESCE(array_agg(pc.country_id ORDER BY pc.country_id) FILTER (WHERE pc.country_id IS NOT NULL), '{}')
	FROM products p
	JOIN brands b ON b.id = p.brand_id
	LEFT JOIN product_countries pc ON pc.product_id = p.id`

const productGroup = ` GROUP BY p.id, b.name`

const insertProductCountry = `INSERT INTO product_countries (product_id, country_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`

func scanProduct(row pgx.Row) (*entity.Product, error) {
	var p entity.Product
	if err := row.Scan(&p.ID, &p.Name, &p.BrandID, &p.BrandName, &p.CreatedAt, &p.UpdatedAt, &p.CountryIDs); err != nil {
		return nil, err
	}
	return &p, nil
}

// Create persiste un producto y sus países.
func (r *ProductRepo) Create(ctx context.Context, p *entity.Product) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO products (id, name, brand_id, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
			p.ID, p.Name, p.BrandID, p.CreatedAt, p.UpdatedAt)
		if err != nil {
			if isForeignKeyViolation(err) {
				return domain.ErrBrandNotFound
			}
			return conflictOr(err, msgProductNameTaken, "insert product")
		}
		return insertCountries(ctx, tx, insertProductCountry, p.ID, p.CountryIDs)
	})
}

// GetByID obtiene un producto con el nombre de su marca.
func (r *ProductRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	p, err := scanProduct(r.db.QueryRow(ctx, productSelect+` WHERE p.id = $1`+productGroup, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// GetByIDs obtiene los productos existentes entre ids.
func (r *ProductRepo) GetByIDs(ctx context.Context, ids []string) ([]*entity.Product, error) {
	if len(ids) == 0 {
		return []*entity.Product{}, nil
	}
	return r.list(ctx, productSelect+` WHERE p.id = ANY($1)`+productGroup+` ORDER BY p.name`, ids)
}

// List lista productos según filtro, marca y búsqueda.
func (r *ProductRepo) List(ctx context.Context, q repository.ProductQuery) ([]*entity.Product, error) {
	w := &where{}
	if q.Filter.CountryScoped {
		w.and(`EXISTS (SELECT 1 FROM product_countries x WHERE x.product_id = p.id AND x.country_id = ANY(` +
			w.arg(countryIDs(q.Filter.CountryIDs)) + `))`)
	}
	if q.BrandID != "" {
		w.and("p.brand_id = " + w.arg(q.BrandID))
	}
	if q.Search != "" {
		pattern := w.arg(likePattern(q.Search))
		w.and("(p.name ILIKE " + pattern + " OR b.name ILIKE " + pattern + ")")
	}
	return r.list(ctx, productSelect+w.sql()+productGroup+` ORDER BY p.name`, w.args...)
}

func (r *ProductRepo) list(ctx context.Context, sql string, args ...any) ([]*entity.Product, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()
	list := []*entity.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// Update reemplaza nombre, marca y países del producto.
func (r *ProductRepo) Update(ctx context.Context, p *entity.Product) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE products SET name = $2, brand_id = $3, updated_at = $4 WHERE id = $1`,
			p.ID, p.Name, p.BrandID, p.UpdatedAt)
		if err != nil {
			if isForeignKeyViolation(err) {
				return domain.ErrBrandNotFound
			}
			return conflictOr(err, msgProductNameTaken, "update product")
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrProductNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM product_countries WHERE product_id = $1`, p.ID); err != nil {
			return fmt.Errorf("clear product countries: %w", err)
		}
		return insertCountries(ctx, tx, insertProductCountry, p.ID, p.CountryIDs)
	})
}

// Delete elimina el producto. La FK de rma_products impide borrarlo si un RMA lo usa.
func (r *ProductRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.Wrap(domain.ErrConflict, "No se puede eliminar el producto porque tiene RMAs asociados", err)
		}
		return fmt.Errorf("delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}
