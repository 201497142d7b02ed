package dto

import "github.com/jhoicas/rma-api/internal/domain/entity"

// CreateCountryRequest entrada para crear un país.
type CreateCountryRequest struct {
	Name string `json:"nombre"`
}

// CreateBrandRequest entrada para crear una marca.
type CreateBrandRequest struct {
	Name       string   `json:"nombre"`
	CountryIDs []string `json:"countryIds"`
}

// UpdateBrandRequest campos opcionales; CountryIDs nil no cambia los países.
type UpdateBrandRequest struct {
	Name       *string  `json:"nombre"`
	CountryIDs []string `json:"countryIds"`
}

// CreateProductRequest entrada para crear un producto.
type CreateProductRequest struct {
	Name       string   `json:"nombre"`
	BrandID    string   `json:"brandId"`
	CountryIDs []string `json:"countryIds"`
}

// UpdateProductRequest campos opcionales; CountryIDs nil no cambia los países.
type UpdateProductRequest struct {
	Name       *string  `json:"nombre"`
	BrandID    *string  `json:"brandId"`
	CountryIDs []string `json:"countryIds"`
}

// ProductFilter filtros del listado de productos (query string).
type ProductFilter struct {
	BrandID   string
	CountryID string
	Search    string
}

// BrandResponse marca con los países donde se ofrece.
type BrandResponse struct {
	ID         string   `json:"id"`
	Name       string   `json:"nombre"`
	CountryIDs []string `json:"countryIds"`
}

// ProductResponse producto con su marca.
type ProductResponse struct {
	ID         string   `json:"id"`
	Name       string   `json:"nombre"`
	BrandID    string   `json:"brandId"`
	BrandName  string   `json:"brand"`
	CountryIDs []string `json:"countryIds"`
}

// ToCountryResponses mapea países.
func ToCountryResponses(in []*entity.Country) []CountryResponse {
	out := make([]CountryResponse, 0, len(in))
	for _, c := range in {
		out = append(out, CountryResponse{ID: c.ID, Name: c.Name})
	}
	return out
}

// ToBrandResponses mapea marcas.
func ToBrandResponses(in []*entity.Brand) []BrandResponse {
	out := make([]BrandResponse, 0, len(in))
	for _, b := range in {
		out = append(out, *ToBrandResponse(b))
	}
	return out
}

// ToBrandResponse mapea una marca.
func ToBrandResponse(b *entity.Brand) *BrandResponse {
	return &BrandResponse{ID: b.ID, Name: b.Name, CountryIDs: nonNil(b.CountryIDs)}
}

// ToProductResponse mapea un producto.
func ToProductResponse(p *entity.Product) *ProductResponse {
	return &ProductResponse{
		ID:         p.ID,
		Name:       p.Name,
		BrandID:    p.BrandID,
		BrandName:  p.BrandName,
		CountryIDs: nonNil(p.CountryIDs),
	}
}

// ToProductResponses mapea productos.
func ToProductResponses(in []*entity.Product) []ProductResponse {
	out := make([]ProductResponse, 0, len(in))
	for _, p := range in {
		out = append(out, *ToProductResponse(p))
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
