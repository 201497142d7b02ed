package repository

import (
	"context"
	"time"

	"github.com/jhoicas/rma-api/internal/domain/access"
	"github.com/jhoicas/rma-api/internal/domain/entity"
	"github.com/jhoicas/rma-api/internal/domain/reminder"
)

// Campos de ordenamiento permitidos para RMAQuery.SortBy.
const (
	RMASortCreatedAt = "createdAt"
	RMASortUpdatedAt = "updatedAt"
	RMASortStatus    = "status"
	RMASortCompany   = "nombreEmpresa"
)

// RMAQuery criterios de listado de RMAs. Filter es el alcance del actor.
type RMAQuery struct {
	Filter    access.Filter
	Status    entity.RMAStatus
	Search    string
	StartDate *time.Time
	EndDate   *time.Time
	SortBy    string
	SortDesc  bool
	Limit     int
	Offset    int
}

// RMARepository define el puerto de persistencia para RMA (DIP).
// Los getters devuelven (nil, nil) cuando el registro no existe.
type RMARepository interface {
	// Create persiste el RMA y sus líneas de producto.
	Create(ctx context.Context, rma *entity.RMA) error
	GetByID(ctx context.Context, id string) (*entity.RMA, error)
	// GetForUpdate obtiene el RMA bloqueando la fila (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, id string) (*entity.RMA, error)
	// Update persiste los campos mutables del ciclo de vida.
	Update(ctx context.Context, rma *entity.RMA) error
	List(ctx context.Context, q RMAQuery) ([]*entity.RMA, error)
	Count(ctx context.Context, q RMAQuery) (int, error)

	// FindReminderCandidates RMAs en PAYMENT que cumplen el criterio de recordatorio.
	FindReminderCandidates(ctx context.Context, c reminder.Criteria) ([]*entity.RMA, error)
	// LockReminderCandidate bloquea la fila sin esperar (SKIP LOCKED); (nil, nil) si
	// no existe o ya la tiene otro runner.
	LockReminderCandidate(ctx context.Context, id string) (*entity.RMA, error)
	// MarkReminderSent fija lastReminderSent=at solo si aún vale prev. Devuelve
	// false si otro runner lo cambió primero.
	MarkReminderSent(ctx context.Context, id string, prev *time.Time, at time.Time) (bool, error)
}
