package entity

import "time"

// Country dato de referencia. No se puede borrar mientras esté referenciado.
type Country struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Brand marca comercial ofrecida en uno o más países.
type Brand struct {
	ID         string
	Name       string
	CountryIDs []string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Product producto de una marca, ofrecido en un subconjunto de países.
type Product struct {
	ID         string
	Name       string
	BrandID    string
	BrandName  string
	CountryIDs []string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// OfferedIn indica si el producto se ofrece en el país.
func (p *Product) OfferedIn(countryID string) bool {
	for _, c := range p.CountryIDs {
		if c == countryID {
			return true
		}
	}
	return false
}
