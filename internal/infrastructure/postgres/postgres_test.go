package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jhoicas/rma-api/internal/domain"
	"github.com/jhoicas/rma-api/internal/domain/access"
	"github.com/jhoicas/rma-api/internal/domain/entity"
	"github.com/jhoicas/rma-api/internal/domain/reminder"
	"github.com/jhoicas/rma-api/internal/domain/repository"
	"github.com/jhoicas/rma-api/internal/infrastructure/postgres"
)

func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("rma"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(2*time.Minute),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := postgres.NewPoolFromDSN(ctx, dsn, 5)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, postgres.Migrate(ctx, pool))
	require.NoError(t, postgres.Migrate(ctx, pool), "las migraciones son idempotentes")
	return pool
}

var base = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func seed(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	ctx := context.Background()
	countries := postgres.NewCountryRepository(pool)
	for _, c := range []*entity.Country{{ID: "co", Name: "Colombia"}, {ID: "mx", Name: "México"}, {ID: "cl", Name: "Chile"}} {
		c.CreatedAt = base
		require.NoError(t, countries.Create(ctx, c))
	}
	brands := postgres.NewBrandRepository(pool)
	require.NoError(t, brands.Create(ctx, &entity.Brand{ID: "b1", Name: "Olympus", CountryIDs: []string{"co", "mx"}, CreatedAt: base, UpdatedAt: base}))
	require.NoError(t, brands.Create(ctx, &entity.Brand{ID: "b2", Name: "Waygate", CountryIDs: []string{"mx"}, CreatedAt: base, UpdatedAt: base}))
	products := postgres.NewProductRepository(pool)
	require.NoError(t, products.Create(ctx, &entity.Product{ID: "p1", Name: "Epoch 650", BrandID: "b1", CountryIDs: []string{"co"}, CreatedAt: base, UpdatedAt: base}))
	require.NoError(t, products.Create(ctx, &entity.Product{ID: "p2", Name: "Mentor Flex", BrandID: "b2", CountryIDs: []string{"mx"}, CreatedAt: base, UpdatedAt: base}))

	users := postgres.NewUserRepository(pool)
	for i, u := range []*entity.User{
		{ID: "u1", FirstName: "Ana", LastName: "Gómez", Email: "ana@cliente.co", Company: "Cliente SAS", Role: entity.RoleUser, Countries: []entity.Country{{ID: "co"}}},
		{ID: "a1", FirstName: "Admin", Email: "admin@rma.co", Role: entity.RoleAdmin, Countries: []entity.Country{{ID: "co"}}},
		{ID: "s1", FirstName: "Super", Email: "super@rma.co", Role: entity.RoleSuperAdmin, Countries: []entity.Country{{ID: "co"}}},
		{ID: "u2", FirstName: "Max", Email: "max@cliente.mx", Role: entity.RoleUser, Countries: []entity.Country{{ID: "mx"}}},
	} {
		u.PasswordHash = "hash"
		u.Status = entity.UserStatusActive
		u.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		u.UpdatedAt = u.CreatedAt
		require.NoError(t, users.Create(ctx, u))
	}
}

func newRMA(id, userID, countryID string, status entity.RMAStatus, updated time.Time) *entity.RMA {
	return &entity.RMA{
		ID: id, UserID: userID, CountryID: countryID, Status: status,
		CompanyName: "Cliente SAS", Address: "Cra 7 # 71-21", PostalCode: "110231", Service: "Reparación",
		Products:  []entity.RMAProduct{{ID: id + "-l1", ProductID: "p1", Serial: "SN-1", Model: "E650"}},
		CreatedAt: updated, UpdatedAt: updated,
	}
}

func TestPostgres(t *testing.T) {
	pool := startPostgres(t)
	seed(t, pool)
	ctx := context.Background()

	users := postgres.NewUserRepository(pool)
	countries := postgres.NewCountryRepository(pool)
	brands := postgres.NewBrandRepository(pool)
	products := postgres.NewProductRepository(pool)
	rmas := postgres.NewRMARepository(pool)
	tx := postgres.NewTxRunner(pool)

	t.Run("usuarios", func(t *testing.T) {
		u, err := users.GetByEmail(ctx, "ANA@cliente.co")
		require.NoError(t, err)
		require.NotNil(t, u)
		assert.Equal(t, "u1", u.ID)
		require.Len(t, u.Countries, 1)
		assert.Equal(t, "Colombia", u.Countries[0].Name)

		missing, err := users.GetByID(ctx, "nadie")
		require.NoError(t, err)
		assert.Nil(t, missing)

		err = users.Create(ctx, &entity.User{ID: "dup", Email: "Ana@Cliente.co", PasswordHash: "x", Role: entity.RoleUser, Status: entity.UserStatusActive, CreatedAt: base, UpdatedAt: base})
		assert.ErrorIs(t, err, domain.ErrEmailAlreadyExists)

		adminScope := repository.UserQuery{Filter: access.Filter{CountryScoped: true, CountryIDs: []string{"co"}, RoleIn: []string{entity.RoleAdmin, entity.RoleUser}}}
		list, err := users.List(ctx, adminScope)
		require.NoError(t, err)
		ids := []string{}
		for _, u := range list {
			ids = append(ids, u.ID)
		}
		assert.Equal(t, []string{"a1", "u1"}, ids, "más recientes primero, sin SUPERADMIN ni otros países")

		n, err := users.Count(ctx, repository.UserQuery{Search: "CLIENTE"})
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		paged, err := users.List(ctx, repository.UserQuery{Limit: 1, Offset: 1})
		require.NoError(t, err)
		require.Len(t, paged, 1)
		assert.Equal(t, "s1", paged[0].ID)

		require.NoError(t, users.SetCountries(ctx, "u2", []string{"mx", "cl"}))
		u2, err := users.GetByID(ctx, "u2")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"mx", "cl"}, u2.CountryIDs())

		assert.ErrorIs(t, users.SetCountries(ctx, "u2", []string{"zz"}), domain.ErrNotFound)
		assert.ErrorIs(t, users.SetCountries(ctx, "nadie", []string{"co"}), domain.ErrNotFound)

		u2.Status = entity.UserStatusInactive
		require.NoError(t, users.Update(ctx, u2))
		assert.ErrorIs(t, users.Update(ctx, &entity.User{ID: "nadie"}), domain.ErrNotFound)
	})

	t.Run("catalogo", func(t *testing.T) {
		err := countries.Create(ctx, &entity.Country{ID: "co2", Name: "colombia", CreatedAt: base})
		assert.ErrorIs(t, err, domain.ErrConflict)

		c, err := countries.GetByName(ctx, "MéXICO")
		require.NoError(t, err)
		require.NotNil(t, c)
		assert.Equal(t, "mx", c.ID)

		bs, err := brands.List(ctx, repository.BrandQuery{Filter: access.Filter{CountryScoped: true, CountryIDs: []string{"co"}}})
		require.NoError(t, err)
		require.Len(t, bs, 1)
		assert.Equal(t, []string{"co", "mx"}, bs[0].CountryIDs)

		none, err := brands.List(ctx, repository.BrandQuery{Filter: access.Filter{CountryScoped: true, CountryIDs: []string{}}})
		require.NoError(t, err)
		assert.Empty(t, none)

		ps, err := products.List(ctx, repository.ProductQuery{BrandID: "b2"})
		require.NoError(t, err)
		require.Len(t, ps, 1)
		assert.Equal(t, "Waygate", ps[0].BrandName)

		byIDs, err := products.GetByIDs(ctx, []string{"p1", "nope"})
		require.NoError(t, err)
		require.Len(t, byIDs, 1)
		assert.Equal(t, []string{"co"}, byIDs[0].CountryIDs)

		used, err := countries.IsReferenced(ctx, "co")
		require.NoError(t, err)
		assert.True(t, used)

		err = countries.Delete(ctx, "co")
		assert.ErrorIs(t, err, domain.ErrConflict)

		require.NoError(t, countries.Create(ctx, &entity.Country{ID: "pe", Name: "Perú", CreatedAt: base}))
		require.NoError(t, countries.Delete(ctx, "pe"))
	})

	t.Run("rmas", func(t *testing.T) {
		r := newRMA("r1", "u1", "co", entity.RMAStatusSubmitted, base)
		require.NoError(t, tx.Run(ctx, func(repo repository.RMARepository) error { return repo.Create(ctx, r) }))

		got, err := rmas.GetByID(ctx, "r1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "Colombia", got.CountryName)
		assert.Equal(t, "ana@cliente.co", got.Owner.Email)
		require.Len(t, got.Products, 1)
		assert.Equal(t, "Epoch 650", got.Products[0].ProductName)
		assert.Equal(t, "Olympus", got.Products[0].BrandName)

		amount := decimal.RequireFromString("320000.50")
		url := "http://localhost/uploads/cotizaciones/r1.pdf"
		code := "RMA-ABC-123456"
		requested := base.Add(time.Hour)
		err = tx.Run(ctx, func(repo repository.RMARepository) error {
			cur, err := repo.GetForUpdate(ctx, "r1")
			if err != nil {
				return err
			}
			cur.Status = entity.RMAStatusPayment
			cur.TrackingNumber = &code
			cur.QuotationURL = &url
			cur.QuotationAmount = &amount
			cur.PaymentRequestedAt = &requested
			cur.UpdatedAt = requested
			return repo.Update(ctx, cur)
		})
		require.NoError(t, err)

		got, err = rmas.GetByID(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, entity.RMAStatusPayment, got.Status)
		require.NotNil(t, got.QuotationAmount)
		assert.True(t, amount.Equal(*got.QuotationAmount))
		assert.Nil(t, got.LastReminderSent)

		// rollback si fn falla
		err = tx.Run(ctx, func(repo repository.RMARepository) error {
			cur, _ := repo.GetForUpdate(ctx, "r1")
			cur.Status = entity.RMAStatusRejected
			if err := repo.Update(ctx, cur); err != nil {
				return err
			}
			return errors.New("falla")
		})
		require.Error(t, err)
		got, _ = rmas.GetByID(ctx, "r1")
		assert.Equal(t, entity.RMAStatusPayment, got.Status)

		require.NoError(t, rmas.Create(ctx, newRMA("r2", "u2", "mx", entity.RMAStatusSubmitted, base.Add(2*time.Hour))))

		scoped, err := rmas.List(ctx, repository.RMAQuery{Filter: access.Filter{CountryScoped: true, CountryIDs: []string{"co"}}})
		require.NoError(t, err)
		require.Len(t, scoped, 1)
		assert.Equal(t, "r1", scoped[0].ID)

		search, err := rmas.List(ctx, repository.RMAQuery{Search: "abc-123"})
		require.NoError(t, err)
		require.Len(t, search, 1)

		sorted, err := rmas.List(ctx, repository.RMAQuery{SortBy: repository.RMASortCreatedAt, SortDesc: true})
		require.NoError(t, err)
		require.Len(t, sorted, 2)
		assert.Equal(t, "r2", sorted[0].ID)

		n, err := rmas.Count(ctx, repository.RMAQuery{Filter: access.Filter{OwnerID: "u2"}})
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("recordatorios", func(t *testing.T) {
		// r1 está en PAYMENT desde base+1h
		policy := reminder.Policy{Window: 72 * time.Hour, Location: time.UTC}
		criteria := policy.CriteriaAt(base.Add(time.Hour + 72*time.Hour))

		cands, err := rmas.FindReminderCandidates(ctx, criteria)
		require.NoError(t, err)
		require.Len(t, cands, 1)
		assert.Equal(t, "r1", cands[0].ID)

		early, err := rmas.FindReminderCandidates(ctx, policy.CriteriaAt(base))
		require.NoError(t, err)
		assert.Empty(t, early)

		// con la fila tomada por otra tx, SKIP LOCKED devuelve nil
		holder, err := pool.Begin(ctx)
		require.NoError(t, err)
		_, err = postgres.NewRMARepository(holder).GetForUpdate(ctx, "r1")
		require.NoError(t, err)
		err = tx.Run(ctx, func(repo repository.RMARepository) error {
			locked, err := repo.LockReminderCandidate(ctx, "r1")
			assert.Nil(t, locked)
			return err
		})
		require.NoError(t, err)
		require.NoError(t, holder.Rollback(ctx))

		sentAt := base.Add(80 * time.Hour)
		ok, err := rmas.MarkReminderSent(ctx, "r1", nil, sentAt)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = rmas.MarkReminderSent(ctx, "r1", nil, sentAt.Add(time.Minute))
		require.NoError(t, err)
		assert.False(t, ok, "prev ya no coincide")

		ok, err = rmas.MarkReminderSent(ctx, "r1", &sentAt, sentAt.Add(72*time.Hour))
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("catalogo escrituras", func(t *testing.T) {
		b3 := &entity.Brand{ID: "b3", Name: "Magnaflux", CountryIDs: []string{"cl"}, CreatedAt: base, UpdatedAt: base}
		require.NoError(t, brands.Create(ctx, b3))
		assert.ErrorIs(t, brands.Create(ctx, &entity.Brand{ID: "b4", Name: "MAGNAFLUX", CreatedAt: base, UpdatedAt: base}), domain.ErrConflict)

		b3.Name = "Magnaflux NDT"
		b3.CountryIDs = []string{"co", "cl"}
		require.NoError(t, brands.Update(ctx, b3))
		got, err := brands.GetByID(ctx, "b3")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "Magnaflux NDT", got.Name)
		assert.Equal(t, []string{"cl", "co"}, got.CountryIDs)

		b3.Name = "Olympus"
		assert.ErrorIs(t, brands.Update(ctx, b3), domain.ErrConflict)
		b3.Name = "Magnaflux NDT"
		b3.CountryIDs = []string{"zz"}
		assert.ErrorIs(t, brands.Update(ctx, b3), domain.ErrNotFound, "país inexistente")
		assert.ErrorIs(t, brands.Update(ctx, &entity.Brand{ID: "nadie", Name: "X"}), domain.ErrNotFound)

		found, err := brands.List(ctx, repository.BrandQuery{Search: "flux"})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "b3", found[0].ID)

		p3 := &entity.Product{ID: "p3", Name: "Yugo Y-7", BrandID: "b3", CountryIDs: []string{"cl"}, CreatedAt: base, UpdatedAt: base}
		require.NoError(t, products.Create(ctx, p3))
		dup := &entity.Product{ID: "p4", Name: "yugo y-7", BrandID: "b3", CreatedAt: base, UpdatedAt: base}
		assert.ErrorIs(t, products.Create(ctx, dup), domain.ErrConflict)
		dup.BrandID = "b1"
		require.NoError(t, products.Create(ctx, dup), "el nombre es único solo dentro de la marca")

		byBrandName, err := products.List(ctx, repository.ProductQuery{Search: "ndt"})
		require.NoError(t, err)
		require.Len(t, byBrandName, 1)
		assert.Equal(t, "p3", byBrandName[0].ID)

		p3.Name = "Yugo Y-8"
		p3.CountryIDs = []string{"co"}
		require.NoError(t, products.Update(ctx, p3))
		p, err := products.GetByID(ctx, "p3")
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, "Yugo Y-8", p.Name)
		assert.Equal(t, []string{"co"}, p.CountryIDs)
		p3.BrandID = "nadie"
		assert.ErrorIs(t, products.Update(ctx, p3), domain.ErrNotFound)

		assert.ErrorIs(t, brands.Delete(ctx, "b3"), domain.ErrConflict, "tiene productos")
		assert.ErrorIs(t, products.Delete(ctx, "p1"), domain.ErrConflict, "r1 usa p1")
		require.NoError(t, products.Delete(ctx, "p3"))
		assert.ErrorIs(t, products.Delete(ctx, "p3"), domain.ErrNotFound)
		require.NoError(t, brands.Delete(ctx, "b3"))
		assert.ErrorIs(t, brands.Delete(ctx, "b3"), domain.ErrNotFound)
	})
}
