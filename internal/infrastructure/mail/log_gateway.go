package mail

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/rma-api/internal/application/notification"
)

var _ notification.Gateway = (*LogGateway)(nil)

// LogGateway renderiza el correo y solo lo registra. Se usa en desarrollo
// cuando no hay SMTP configurado.
type LogGateway struct {
	renderer *Renderer
	log      zerolog.Logger
}

// NewLogGateway construye el gateway.
func NewLogGateway(renderer *Renderer, log zerolog.Logger) *LogGateway {
	return &LogGateway{renderer: renderer, log: log.With().Str("component", "mail").Logger()}
}

// Send registra asunto, destinatario y adjuntos.
func (g *LogGateway) Send(_ context.Context, msg notification.Message) (notification.Receipt, error) {
	out, err := g.renderer.Render(msg)
	if err != nil {
		return notification.Receipt{}, err
	}
	id := uuid.New().String()
	names := make([]string, 0, len(msg.Attachments))
	for _, a := range msg.Attachments {
		names = append(names, a.Filename)
	}
	g.log.Info().
		Str("message_id", id).
		Str("kind", string(msg.Kind)).
		Str("to", msg.To.Email).
		Str("subject", out.Subject).
		Strs("attachments", names).
		Msg("correo (log)")
	return notification.Receipt{ID: id, SentAt: time.Now()}, nil
}
