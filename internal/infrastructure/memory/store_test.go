package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/rma-api/internal/domain/entity"
	"github.com/jhoicas/rma-api/internal/domain/repository"
	"github.com/jhoicas/rma-api/internal/infrastructure/memory"
)

func newStore(t *testing.T, ids ...string) *memory.Store {
	t.Helper()
	store := memory.NewStore()
	ctx := context.Background()
	for _, id := range ids {
		require.NoError(t, store.RMAs().Create(ctx, &entity.RMA{ID: id, Status: entity.RMAStatusPayment}))
	}
	return store
}

// holdRow abre una tx que bloquea id y la mantiene hasta cerrar release.
func holdRow(t *testing.T, store *memory.Store, id string) (release chan struct{}, done chan error) {
	t.Helper()
	locked := make(chan struct{})
	release = make(chan struct{})
	done = make(chan error, 1)
	go func() {
		done <- store.Run(context.Background(), func(repo repository.RMARepository) error {
			r, err := repo.GetForUpdate(context.Background(), id)
			if err != nil {
				return err
			}
			close(locked)
			<-release
			r.Service = "actualizado"
			return repo.Update(context.Background(), r)
		})
	}()
	select {
	case <-locked:
	case <-time.After(2 * time.Second):
		t.Fatal("la tx no tomó la fila")
	}
	return release, done
}

// ──────────────────────────────────────────────────────────────────────────────
// Bloqueo por fila
// ──────────────────────────────────────────────────────────────────────────────

func TestRun_OtraFilaNoEspera(t *testing.T) {
	store := newStore(t, "r1", "r2")
	release, done := holdRow(t, store, "r1")
	defer func() {
		close(release)
		require.NoError(t, <-done)
	}()

	finished := make(chan error, 1)
	go func() {
		finished <- store.Run(context.Background(), func(repo repository.RMARepository) error {
			r, err := repo.GetForUpdate(context.Background(), "r2")
			if err != nil {
				return err
			}
			r.Service = "otro"
			return repo.Update(context.Background(), r)
		})
	}()
	select {
	case err := <-finished:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("una tx sobre otra fila quedó bloqueada")
	}
}

func TestLockReminderCandidate_FilaTomada_Salta(t *testing.T) {
	store := newStore(t, "r1", "r2")
	release, done := holdRow(t, store, "r1")

	err := store.Run(context.Background(), func(repo repository.RMARepository) error {
		r, err := repo.LockReminderCandidate(context.Background(), "r1")
		require.NoError(t, err)
		assert.Nil(t, r)
		r, err = repo.LockReminderCandidate(context.Background(), "r2")
		require.NoError(t, err)
		require.NotNil(t, r)
		assert.Equal(t, "r2", r.ID)
		return nil
	})
	require.NoError(t, err)

	close(release)
	require.NoError(t, <-done)

	// liberada la fila, el siguiente intento la obtiene
	err = store.Run(context.Background(), func(repo repository.RMARepository) error {
		r, err := repo.LockReminderCandidate(context.Background(), "r1")
		require.NoError(t, err)
		require.NotNil(t, r)
		assert.Equal(t, "actualizado", r.Service)
		return nil
	})
	require.NoError(t, err)
}

func TestGetForUpdate_EsperaAlCommit(t *testing.T) {
	store := newStore(t, "r1")
	release, done := holdRow(t, store, "r1")

	seen := make(chan string, 1)
	go func() {
		_ = store.Run(context.Background(), func(repo repository.RMARepository) error {
			r, err := repo.GetForUpdate(context.Background(), "r1")
			if err != nil {
				return err
			}
			seen <- r.Service
			return nil
		})
	}()

	select {
	case <-seen:
		t.Fatal("GetForUpdate no esperó a la tx que tiene la fila")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)
	require.NoError(t, <-done)

	select {
	case service := <-seen:
		assert.Equal(t, "actualizado", service)
	case <-time.After(2 * time.Second):
		t.Fatal("GetForUpdate siguió bloqueado tras el commit")
	}
}

func TestGetForUpdate_ContextoCancelado(t *testing.T) {
	store := newStore(t, "r1")
	release, done := holdRow(t, store, "r1")
	defer func() {
		close(release)
		require.NoError(t, <-done)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := store.Run(context.Background(), func(repo repository.RMARepository) error {
		_, err := repo.GetForUpdate(ctx, "r1")
		return err
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRun_ErrorDescartaYLibera(t *testing.T) {
	store := newStore(t, "r1")
	err := store.Run(context.Background(), func(repo repository.RMARepository) error {
		r, err := repo.GetForUpdate(context.Background(), "r1")
		if err != nil {
			return err
		}
		r.Service = "descartado"
		require.NoError(t, repo.Update(context.Background(), r))
		return context.Canceled
	})
	require.ErrorIs(t, err, context.Canceled)

	r, err := store.RMAs().GetByID(context.Background(), "r1")
	require.NoError(t, err)
	assert.Empty(t, r.Service)

	// la fila quedó libre
	err = store.Run(context.Background(), func(repo repository.RMARepository) error {
		r, err := repo.LockReminderCandidate(context.Background(), "r1")
		require.NoError(t, err)
		assert.NotNil(t, r)
		return nil
	})
	require.NoError(t, err)
}
