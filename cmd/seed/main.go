// seed puebla el catálogo inicial (países, marcas, productos) y crea el
// usuario SUPERADMIN con todos los países asignados. Es idempotente: lo que
// ya existe por nombre o email se reutiliza.
//
// Uso: go run ./cmd/seed [-email superadmin@rmasystem.com] [-password ...]
// Usa la misma configuración que la API (DATABASE_URL o DB_*).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/rma-api/internal/domain/entity"
	"github.com/jhoicas/rma-api/internal/domain/repository"
	"github.com/jhoicas/rma-api/internal/infrastructure/postgres"
	"github.com/jhoicas/rma-api/pkg/config"
	"github.com/jhoicas/rma-api/pkg/logger"
)

// catalog datos iniciales: cada marca y producto se ofrece en todos los países.
var catalog = struct {
	countries []string
	brands    []string
	products  map[string][]string // marca -> productos
}{
	countries: []string{"Colombia", "Estados Unidos", "Argentina"},
	brands:    []string{"Waygate", "Baker Hughes", "Magnaflux"},
	products: map[string][]string{
		"Waygate":      {"Multímetro Digital 87V"},
		"Baker Hughes": {"Osciloscopio DSO-X 3024T"},
		"Magnaflux":    {"Generador de Señales AFG3252C"},
	},
}

type repos struct {
	users     repository.UserRepository
	countries repository.CountryRepository
	brands    repository.BrandRepository
	products  repository.ProductRepository
}

type superAdmin struct {
	email    string
	password string
}

// result conteo de registros creados (no los reutilizados).
type result struct {
	countries, brands, products, users int
}

func main() {
	email := flag.String("email", "superadmin@rmasystem.com", "email del SUPERADMIN")
	password := flag.String("password", "superadmin123", "contraseña del SUPERADMIN")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	l := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})
	log := l.Component("seed")
	if cfg.DB.Driver != "postgres" {
		log.Fatal().Str("driver", cfg.DB.Driver).Msg("el seed solo aplica a DB_DRIVER=postgres")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()
	if err := postgres.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("migraciones")
	}

	res, err := seed(ctx, repos{
		users:     postgres.NewUserRepository(pool),
		countries: postgres.NewCountryRepository(pool),
		brands:    postgres.NewBrandRepository(pool),
		products:  postgres.NewProductRepository(pool),
	}, superAdmin{email: *email, password: *password}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("seed")
	}
	log.Info().
		Int("countries", res.countries).
		Int("brands", res.brands).
		Int("products", res.products).
		Int("users", res.users).
		Msg("seed completado")
}

func seed(ctx context.Context, r repos, admin superAdmin, log zerolog.Logger) (result, error) {
	var res result
	now := time.Now()

	countries := make([]entity.Country, 0, len(catalog.countries))
	for _, name := range catalog.countries {
		c, err := r.countries.GetByName(ctx, name)
		if err != nil {
			return res, fmt.Errorf("país %s: %w", name, err)
		}
		if c == nil {
			c = &entity.Country{ID: uuid.NewString(), Name: name, CreatedAt: now}
			if err := r.countries.Create(ctx, c); err != nil {
				return res, fmt.Errorf("crear país %s: %w", name, err)
			}
			res.countries++
		}
		countries = append(countries, *c)
	}
	countryIDs := make([]string, 0, len(countries))
	for _, c := range countries {
		countryIDs = append(countryIDs, c.ID)
	}

	for _, name := range catalog.brands {
		b, err := r.brands.GetByName(ctx, name)
		if err != nil {
			return res, fmt.Errorf("marca %s: %w", name, err)
		}
		if b == nil {
			b = &entity.Brand{ID: uuid.NewString(), Name: name, CountryIDs: countryIDs, CreatedAt: now, UpdatedAt: now}
			if err := r.brands.Create(ctx, b); err != nil {
				return res, fmt.Errorf("crear marca %s: %w", name, err)
			}
			res.brands++
		}

		existing, err := r.products.List(ctx, repository.ProductQuery{BrandID: b.ID})
		if err != nil {
			return res, fmt.Errorf("productos de %s: %w", name, err)
		}
		for _, pname := range catalog.products[name] {
			if hasProduct(existing, pname) {
				continue
			}
			p := &entity.Product{ID: uuid.NewString(), Name: pname, BrandID: b.ID, CountryIDs: countryIDs, CreatedAt: now, UpdatedAt: now}
			if err := r.products.Create(ctx, p); err != nil {
				return res, fmt.Errorf("crear producto %s: %w", pname, err)
			}
			res.products++
		}
	}

	email := strings.ToLower(strings.TrimSpace(admin.email))
	u, err := r.users.GetByEmail(ctx, email)
	if err != nil {
		return res, fmt.Errorf("superadmin: %w", err)
	}
	if u != nil {
		log.Info().Str("email", email).Msg("superadmin ya existe")
		return res, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(admin.password), bcrypt.DefaultCost)
	if err != nil {
		return res, fmt.Errorf("hash de contraseña: %w", err)
	}
	u = &entity.User{
		ID:           uuid.NewString(),
		FirstName:    "Super",
		LastName:     "Admin",
		Email:        email,
		PasswordHash: string(hash),
		Company:      "RMA System",
		Phone:        "+57123456789",
		Address:      "Calle Principal 123",
		Role:         entity.RoleSuperAdmin,
		Status:       entity.UserStatusActive,
		Countries:    countries,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := r.users.Create(ctx, u); err != nil {
		return res, fmt.Errorf("crear superadmin: %w", err)
	}
	res.users++
	log.Info().Str("email", email).Msg("superadmin creado")
	return res, nil
}

func hasProduct(list []*entity.Product, name string) bool {
	for _, p := range list {
		if strings.EqualFold(p.Name, name) {
			return true
		}
	}
	return false
}
