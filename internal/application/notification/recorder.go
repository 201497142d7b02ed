package notification

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

var _ Gateway = (*Recorder)(nil)

// Recorder Gateway en memoria que guarda cada mensaje. FailWith, si no es nil,
// decide por mensaje si el envío falla.
type Recorder struct {
	mu       sync.Mutex
	sent     []Message
	FailWith func(Message) error
}

// Send registra el mensaje como intentado.
func (r *Recorder) Send(_ context.Context, msg Message) (Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		if err := r.FailWith(msg); err != nil {
			return Receipt{}, err
		}
	}
	r.sent = append(r.sent, msg)
	return Receipt{ID: uuid.NewString(), SentAt: time.Now()}, nil
}

// Sent copia de los mensajes enviados con éxito.
func (r *Recorder) Sent() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.sent...)
}

// ByKind mensajes enviados de un kind.
func (r *Recorder) ByKind(k Kind) []Message {
	var out []Message
	for _, m := range r.Sent() {
		if m.Kind == k {
			out = append(out, m)
		}
	}
	return out
}
