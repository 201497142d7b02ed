package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/rma-api/internal/application/reminder"
	"github.com/jhoicas/rma-api/internal/application/rma"
	"github.com/jhoicas/rma-api/internal/domain/repository"
)

// Ensure TxRunner implements rma.TxRunner and reminder.TxRunner.
var (
	_ rma.TxRunner      = (*TxRunner)(nil)
	_ reminder.TxRunner = (*TxRunner)(nil)
)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// Run inicia una transacción, ejecuta fn con el repo de RMAs atado a la tx y
// hace Commit, o Rollback si fn falla.
func (r *TxRunner) Run(ctx context.Context, fn func(rmaRepo repository.RMARepository) error) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(NewRMARepository(tx))
	})
}
