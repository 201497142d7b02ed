package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/rma-api/internal/application/dto"
	"github.com/jhoicas/rma-api/internal/application/reminder"
)

// reminderScheduler lo implementa *reminder.Scheduler.
type reminderScheduler interface {
	Status() reminder.Status
	RunManual(ctx context.Context) (reminder.BatchResult, error)
}

// SchedulerHandler expone estado y ejecución manual de los recordatorios de pago.
type SchedulerHandler struct {
	s reminderScheduler
}

// NewSchedulerHandler construye el handler de administración del scheduler.
func NewSchedulerHandler(s reminderScheduler) *SchedulerHandler {
	return &SchedulerHandler{s: s}
}

// Status godoc
// @Summary      Estado del scheduler de recordatorios
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  dto.SchedulerStatusResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/admin/scheduler/status [get]
func (h *SchedulerHandler) Status(c *fiber.Ctx) error {
	st := h.s.Status()
	out := dto.SchedulerStatusResponse{
		IsRunning:     st.Running,
		Schedule:      st.Schedule,
		Timezone:      st.Timezone,
		NextExecution: st.NextExecution,
	}
	if st.LastRun != nil {
		out.LastRun = toBatchResponse(*st.LastRun)
	}
	return c.JSON(out)
}

// RunManual godoc
// @Summary      Ejecutar recordatorios ahora
// @Description  Corre el lote completo y responde con el resumen. Solo SUPERADMIN.
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  dto.SchedulerBatchResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/admin/scheduler/run-manual [post]
func (h *SchedulerHandler) RunManual(c *fiber.Ctx) error {
	res, err := h.s.RunManual(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toBatchResponse(res))
}

func toBatchResponse(r reminder.BatchResult) *dto.SchedulerBatchResponse {
	return &dto.SchedulerBatchResponse{
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Found:      r.Found,
		Sent:       r.Sent,
		Failed:     r.Failed,
		Skipped:    r.Skipped,
	}
}
