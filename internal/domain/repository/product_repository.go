package repository

import (
	"context"

	"github.com/jhoicas/rma-api/internal/domain/access"
	"github.com/jhoicas/rma-api/internal/domain/entity"
)

// ProductQuery criterios de listado de productos.
type ProductQuery struct {
	Filter  access.Filter
	BrandID string
	Search  string // nombre del producto o de la marca
}

// BrandQuery criterios de listado de marcas.
type BrandQuery struct {
	Filter access.Filter
	Search string
}

// ProductRepository define el puerto de persistencia para Product (DIP).
// Nombre único por marca: Create y Update devuelven ErrConflict.
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	// GetByIDs devuelve solo los productos existentes; el caller compara longitudes.
	GetByIDs(ctx context.Context, ids []string) ([]*entity.Product, error)
	List(ctx context.Context, q ProductQuery) ([]*entity.Product, error)
	// Update reemplaza nombre, marca y países.
	Update(ctx context.Context, product *entity.Product) error
	// Delete devuelve ErrConflict si algún RMA usa el producto.
	Delete(ctx context.Context, id string) error
}

// BrandRepository define el puerto de persistencia para Brand (DIP).
// Nombre único: Create y Update devuelven ErrConflict.
type BrandRepository interface {
	Create(ctx context.Context, brand *entity.Brand) error
	GetByID(ctx context.Context, id string) (*entity.Brand, error)
	GetByName(ctx context.Context, name string) (*entity.Brand, error)
	List(ctx context.Context, q BrandQuery) ([]*entity.Brand, error)
	// Update reemplaza nombre y países.
	Update(ctx context.Context, brand *entity.Brand) error
	// Delete devuelve ErrConflict si la marca tiene productos.
	Delete(ctx context.Context, id string) error
}

// CountryRepository define el puerto de persistencia para Country (DIP).
type CountryRepository interface {
	Create(ctx context.Context, country *entity.Country) error
	GetByID(ctx context.Context, id string) (*entity.Country, error)
	GetByName(ctx context.Context, name string) (*entity.Country, error)
	List(ctx context.Context) ([]*entity.Country, error)
	Delete(ctx context.Context, id string) error
	// IsReferenced indica si algún usuario, marca, producto o RMA usa el país.
	IsReferenced(ctx context.Context, id string) (bool, error)
}
