// Package reminder ejecuta el lote diario de recordatorios de pago.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/rma-api/internal/application/notification"
	"github.com/jhoicas/rma-api/internal/domain/entity"
	policy "github.com/jhoicas/rma-api/internal/domain/reminder"
	"github.com/jhoicas/rma-api/internal/domain/repository"
)

// ErrAlreadyRunning Start sobre un scheduler ya iniciado.
var ErrAlreadyRunning = errors.New("el scheduler ya está en ejecución")

// TxRunner ejecuta fn en una transacción propia por RMA.
type TxRunner interface {
	Run(ctx context.Context, fn func(rmaRepo repository.RMARepository) error) error
}

// Config programación y parámetros del lote.
// Si Interval > 0 se ignora RunAt.
type Config struct {
	Window      time.Duration
	RunAt       string // HH:MM en Timezone
	Interval    time.Duration
	Timezone    string
	SendDelay   time.Duration
	ItemTimeout time.Duration
}

// Deps dependencias del scheduler. Now es opcional.
type Deps struct {
	Tx      TxRunner
	RMAs    repository.RMARepository
	Gateway notification.Gateway
	Log     zerolog.Logger
	Now     func() time.Time
}

// BatchResult resumen de una ejecución.
type BatchResult struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Found      int
	Sent       int
	Failed     int
	Skipped    int
}

// Status estado visible desde el endpoint de administración.
type Status struct {
	Running       bool
	Schedule      string
	Timezone      string
	NextExecution *time.Time
	LastRun       *BatchResult
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeSent
	outcomeFailed
)

// Scheduler corre RunBatch con un timer propio. Las ejecuciones manuales y
// programadas se serializan con runMu.
type Scheduler struct {
	tx     TxRunner
	rmas   repository.RMARepository
	gw     notification.Gateway
	log    zerolog.Logger
	nowFn  func() time.Time
	cfg    Config
	policy policy.Policy

	hour, minute int
	cfgErr       error

	runMu sync.Mutex

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
	next    time.Time
	last    *BatchResult
}

// NewScheduler construye el scheduler. Los errores de configuración se
// reportan en Validate y Start.
func NewScheduler(d Deps, cfg Config) *Scheduler {
	if cfg.RunAt == "" {
		cfg.RunAt = "09:00"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "UTC"
	}
	if cfg.ItemTimeout <= 0 {
		cfg.ItemTimeout = 30 * time.Second
	}
	s := &Scheduler{
		tx:    d.Tx,
		rmas:  d.RMAs,
		gw:    d.Gateway,
		log:   d.Log.With().Str("component", "reminder").Logger(),
		nowFn: d.Now,
		cfg:   cfg,
	}
	if s.nowFn == nil {
		s.nowFn = time.Now
	}

	var errs []error
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		errs = append(errs, fmt.Errorf("zona horaria inválida %q: %w", cfg.Timezone, err))
		loc = time.UTC
	}
	if _, err := fmt.Sscanf(cfg.RunAt, "%d:%d", &s.hour, &s.minute); err != nil ||
		s.hour < 0 || s.hour > 23 || s.minute < 0 || s.minute > 59 {
		errs = append(errs, fmt.Errorf("hora de ejecución inválida %q, se espera HH:MM", cfg.RunAt))
	}
	if cfg.Window < 0 {
		errs = append(errs, errors.New("la ventana de recordatorio no puede ser negativa"))
	}
	if cfg.Interval < 0 || cfg.SendDelay < 0 {
		errs = append(errs, errors.New("intervalo y pausa entre envíos no pueden ser negativos"))
	}
	if d.Gateway == nil {
		errs = append(errs, errors.New("no hay gateway de correo configurado"))
	}
	s.cfgErr = errors.Join(errs...)
	s.policy = policy.Policy{Window: cfg.Window, Location: loc}
	return s
}

// Validate devuelve los problemas de configuración detectados.
func (s *Scheduler) Validate() error {
	return s.cfgErr
}

// RunManual ejecuta el lote con la hora actual, por el mismo camino que el timer.
func (s *Scheduler) RunManual(ctx context.Context) (BatchResult, error) {
	return s.RunBatch(ctx, s.nowFn())
}

// RunBatch busca candidatos y procesa cada uno en su propia transacción.
// Cancelar ctx detiene el lote entre RMAs; el RMA en curso termina.
func (s *Scheduler) RunBatch(ctx context.Context, now time.Time) (BatchResult, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	res := BatchResult{StartedAt: s.nowFn()}
	criteria := s.policy.CriteriaAt(now)
	candidates, err := s.rmas.FindReminderCandidates(ctx, criteria)
	if err != nil {
		return res, fmt.Errorf("buscando candidatos a recordatorio: %w", err)
	}
	res.Found = len(candidates)
	s.log.Info().Int("found", res.Found).Time("threshold", criteria.Threshold).Msg("iniciando recordatorios de pago")

	for i, c := range candidates {
		if ctx.Err() != nil {
			break
		}
		if i > 0 && s.cfg.SendDelay > 0 {
			if err := sleepCtx(ctx, s.cfg.SendDelay); err != nil {
				break
			}
		}
		switch s.processOne(ctx, c.ID, criteria, now) {
		case outcomeSent:
			res.Sent++
		case outcomeFailed:
			res.Failed++
		default:
			res.Skipped++
		}
	}

	res.FinishedAt = s.nowFn()
	s.mu.Lock()
	last := res
	s.last = &last
	s.mu.Unlock()

	s.log.Info().
		Int("found", res.Found).
		Int("sent", res.Sent).
		Int("failed", res.Failed).
		Int("skipped", res.Skipped).
		Msg("recordatorios de pago procesados")
	return res, nil
}

func (s *Scheduler) processOne(ctx context.Context, id string, criteria policy.Criteria, now time.Time) outcome {
	ictx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ItemTimeout)
	defer cancel()

	result := outcomeSkipped
	err := s.tx.Run(ictx, func(repo repository.RMARepository) error {
		r, err := repo.LockReminderCandidate(ictx, id)
		if err != nil {
			return fmt.Errorf("bloqueando RMA: %w", err)
		}
		if r == nil || !criteria.Matches(r) {
			return nil
		}
		if _, err := s.gw.Send(ictx, reminderMessage(r, now)); err != nil {
			return fmt.Errorf("enviando recordatorio: %w", err)
		}
		ok, err := repo.MarkReminderSent(ictx, r.ID, r.LastReminderSent, now)
		if err != nil {
			return fmt.Errorf("marcando recordatorio: %w", err)
		}
		if !ok {
			s.log.Warn().Str("rma_id", id).Msg("recordatorio enviado pero otro proceso ya lo había marcado")
			return nil
		}
		result = outcomeSent
		return nil
	})
	if err != nil {
		s.log.Error().Err(err).Str("rma_id", id).Msg("recordatorio fallido")
		return outcomeFailed
	}
	return result
}

func reminderMessage(r *entity.RMA, now time.Time) notification.Message {
	msg := notification.ForRMA(notification.KindPaymentReminder, r)
	msg.Data.DaysSincePayment = policy.DaysSincePayment(r, now)
	msg.Data.DaysInPayment = policy.DaysInPayment(r, now)
	msg.Data.Urgency = string(policy.UrgencyFor(msg.Data.DaysInPayment))
	return msg
}

// Start arranca el loop del timer. Termina con Stop o al cancelarse ctx.
func (s *Scheduler) Start(ctx context.Context) error {
	if err := s.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrAlreadyRunning
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.loop(ctx, s.stop, s.done)
	s.log.Info().Str("schedule", s.describe()).Str("timezone", s.cfg.Timezone).Msg("scheduler de recordatorios iniciado")
	return nil
}

// Stop detiene el loop y espera a que termine el RMA en curso o venza ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stop)
	done := s.done
	s.mu.Unlock()

	select {
	case <-done:
		s.log.Info().Msg("scheduler de recordatorios detenido")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) loop(parent context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	// Al cancelarse parent el loop termina sin pasar por Stop; solo se limpia
	// el estado si sigue siendo esta ejecución.
	defer func() {
		s.mu.Lock()
		if s.done == done {
			s.running = false
			s.next = time.Time{}
		}
		s.mu.Unlock()
	}()
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	go func() {
		select {
		case <-stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		now := s.nowFn()
		next := s.nextAfter(now)
		s.mu.Lock()
		s.next = next
		s.mu.Unlock()

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			if _, err := s.RunBatch(ctx, s.nowFn()); err != nil {
				s.log.Error().Err(err).Msg("lote de recordatorios fallido")
			}
		}
	}
}

// nextAfter próxima ejecución estrictamente posterior a t.
func (s *Scheduler) nextAfter(t time.Time) time.Time {
	if s.cfg.Interval > 0 {
		return t.Add(s.cfg.Interval)
	}
	lt := t.In(s.policy.Location)
	next := time.Date(lt.Year(), lt.Month(), lt.Day(), s.hour, s.minute, 0, 0, s.policy.Location)
	if !next.After(lt) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (s *Scheduler) describe() string {
	if s.cfg.Interval > 0 {
		return "cada " + s.cfg.Interval.String()
	}
	return fmt.Sprintf("diario a las %02d:%02d", s.hour, s.minute)
}

// Status estado actual, próxima ejecución y último resultado.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		Running:  s.running,
		Schedule: s.describe(),
		Timezone: s.policy.Location.String(),
	}
	if s.running && !s.next.IsZero() {
		next := s.next
		st.NextExecution = &next
	}
	if s.last != nil {
		last := *s.last
		st.LastRun = &last
	}
	return st
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
