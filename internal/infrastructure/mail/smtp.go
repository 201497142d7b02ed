package mail

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"

	"github.com/jhoicas/rma-api/internal/application/notification"
)

var _ notification.Gateway = (*SMTPGateway)(nil)

// Config servidor SMTP y remitente.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// Sender abstrae gomail.Dialer para los tests.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPGateway envía los avisos por SMTP.
type SMTPGateway struct {
	cfg      Config
	sender   Sender
	renderer *Renderer
	log      zerolog.Logger
}

// NewSMTPGateway construye el gateway con un gomail.Dialer.
func NewSMTPGateway(cfg Config, renderer *Renderer, log zerolog.Logger) (*SMTPGateway, error) {
	if cfg.Host == "" || cfg.From == "" {
		return nil, errors.New("mail: SMTP_HOST y MAIL_FROM son requeridos")
	}
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	return NewSMTPGatewayWithSender(cfg, d, renderer, log), nil
}

// NewSMTPGatewayWithSender permite inyectar el Sender.
func NewSMTPGatewayWithSender(cfg Config, sender Sender, renderer *Renderer, log zerolog.Logger) *SMTPGateway {
	return &SMTPGateway{
		cfg:      cfg,
		sender:   sender,
		renderer: renderer,
		log:      log.With().Str("component", "mail").Logger(),
	}
}

// Send renderiza y entrega el correo. gomail no recibe ctx: si ctx vence
// antes de terminar se devuelve su error y el envío sigue en segundo plano.
func (g *SMTPGateway) Send(ctx context.Context, msg notification.Message) (notification.Receipt, error) {
	if strings.TrimSpace(msg.To.Email) == "" {
		return notification.Receipt{}, errors.New("mail: destinatario sin email")
	}
	if err := ctx.Err(); err != nil {
		return notification.Receipt{}, err
	}
	out, err := g.renderer.Render(msg)
	if err != nil {
		return notification.Receipt{}, err
	}
	id := uuid.New().String()
	m := g.build(id, msg, out)

	done := make(chan error, 1)
	go func() { done <- g.sender.DialAndSend(m) }()
	select {
	case err := <-done:
		if err != nil {
			return notification.Receipt{}, fmt.Errorf("mail: envío a %s: %w", msg.To.Email, err)
		}
	case <-ctx.Done():
		return notification.Receipt{}, ctx.Err()
	}
	g.log.Debug().Str("kind", string(msg.Kind)).Str("to", msg.To.Email).Str("message_id", id).Msg("correo enviado")
	return notification.Receipt{ID: id, SentAt: time.Now()}, nil
}

func (g *SMTPGateway) build(id string, msg notification.Message, out Rendered) *gomail.Message {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", g.cfg.From, g.cfg.FromName)
	m.SetAddressHeader("To", msg.To.Email, msg.To.Name)
	m.SetHeader("Subject", out.Subject)
	m.SetHeader("Message-ID", fmt.Sprintf("<%s@%s>", id, senderDomain(g.cfg.From)))
	m.SetBody("text/plain", out.Text)
	m.AddAlternative("text/html", out.HTML)
	for _, a := range msg.Attachments {
		content := a.Content
		m.Attach(a.Filename,
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(content)
				return err
			}),
			gomail.SetHeader(map[string][]string{"Content-Type": {a.ContentType}}),
		)
	}
	return m
}

func senderDomain(from string) string {
	if i := strings.LastIndex(from, "@"); i >= 0 && i < len(from)-1 {
		return from[i+1:]
	}
	return "localhost"
}
