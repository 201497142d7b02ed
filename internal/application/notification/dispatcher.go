package notification

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrDispatcherClosed se registra cuando llega un aviso después de Close.
var ErrDispatcherClosed = errors.New("despachador de notificaciones cerrado")

var _ Notifier = (*Dispatcher)(nil)

// DispatcherConfig tamaño de la cola, workers y timeout por envío.
type DispatcherConfig struct {
	QueueSize   int
	Workers     int
	SendTimeout time.Duration
}

func (c DispatcherConfig) withDefaults() DispatcherConfig {
	if c.QueueSize <= 0 {
		c.QueueSize = 100
	}
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = 30 * time.Second
	}
	return c
}

// Dispatcher cola acotada con workers que entregan al Gateway. Si la cola está
// llena el aviso se descarta y se registra; la transición ya está confirmada.
type Dispatcher struct {
	gw     Gateway
	log    zerolog.Logger
	cfg    DispatcherConfig
	queue  chan Message
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

// NewDispatcher arranca los workers.
func NewDispatcher(gw Gateway, log zerolog.Logger, cfg DispatcherConfig) *Dispatcher {
	cfg = cfg.withDefaults()
	d := &Dispatcher{
		gw:    gw,
		log:   log.With().Str("component", "notification").Logger(),
		cfg:   cfg,
		queue: make(chan Message, cfg.QueueSize),
	}
	d.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go d.worker()
	}
	return d
}

// Notify encola el aviso sin bloquear.
func (d *Dispatcher) Notify(_ context.Context, msg Message) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.log.Warn().Err(ErrDispatcherClosed).Str("kind", string(msg.Kind)).Str("rma_id", msg.Data.RMAID).Msg("aviso descartado")
		return
	}
	select {
	case d.queue <- msg:
	default:
		d.log.Warn().Str("kind", string(msg.Kind)).Str("rma_id", msg.Data.RMAID).Msg("cola de avisos llena, aviso descartado")
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for msg := range d.queue {
		d.deliver(msg)
	}
}

func (d *Dispatcher) deliver(msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.SendTimeout)
	defer cancel()
	rec, err := d.gw.Send(ctx, msg)
	if err != nil {
		d.log.Error().Err(err).
			Str("kind", string(msg.Kind)).
			Str("rma_id", msg.Data.RMAID).
			Str("to", msg.To.Email).
			Msg("envío de aviso fallido")
		return
	}
	d.log.Info().
		Str("kind", string(msg.Kind)).
		Str("rma_id", msg.Data.RMAID).
		Str("message_id", rec.ID).
		Msg("aviso enviado")
}

// Close deja de aceptar avisos y espera a que la cola se vacíe o venza ctx.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SyncNotifier entrega en la misma goroutine. Útil en tests y en el seed.
type SyncNotifier struct {
	GW  Gateway
	Log zerolog.Logger
}

// Notify envía y registra el resultado.
func (s SyncNotifier) Notify(ctx context.Context, msg Message) {
	if _, err := s.GW.Send(ctx, msg); err != nil {
		s.Log.Error().Err(err).Str("kind", string(msg.Kind)).Msg("envío de aviso fallido")
	}
}
