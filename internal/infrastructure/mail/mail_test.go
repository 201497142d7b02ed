package mail_test

import (
	"bytes"
	"context"
	"errors"
	"mime"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/jhoicas/rma-api/internal/application/notification"
	"github.com/jhoicas/rma-api/internal/infrastructure/mail"
)

func newRenderer(t *testing.T) *mail.Renderer {
	t.Helper()
	r, err := mail.NewRenderer(mail.Content{
		FrontendURL:  "https://rma.example.co/",
		SupportEmail: "soporte@rma.example.co",
		SupportPhone: "+57 601 555 0000",
	})
	require.NoError(t, err)
	return r
}

func msg(kind notification.Kind) notification.Message {
	return notification.Message{
		Kind: kind,
		To:   notification.Recipient{Name: "ana gómez", Email: "ana@cliente.co"},
		Data: notification.Data{RMAID: "r1", CompanyName: "Cliente SAS", Status: "AWAITING_GOODS", TrackingNumber: "RMA-ABC-123456"},
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Renderer
// ──────────────────────────────────────────────────────────────────────────────

func TestRender_TodosLosKinds(t *testing.T) {
	r := newRenderer(t)
	kinds := []notification.Kind{
		notification.KindWelcome, notification.KindRMAApproved, notification.KindRMARejected,
		notification.KindRMAEvaluating, notification.KindRMAPayment, notification.KindRMAProcessing,
		notification.KindRMAInShipping, notification.KindRMAComplete, notification.KindPaymentReminder,
	}
	for _, k := range kinds {
		t.Run(string(k), func(t *testing.T) {
			out, err := r.Render(msg(k))
			require.NoError(t, err)
			assert.NotEmpty(t, out.Subject)
			assert.Contains(t, out.HTML, "Ana Gómez")
			assert.Contains(t, out.Text, "Ana Gómez")
		})
	}
}

func TestRender_Aprobado(t *testing.T) {
	out, err := newRenderer(t).Render(msg(notification.KindRMAApproved))
	require.NoError(t, err)
	assert.Equal(t, "Tu RMA #r1 ha sido aprobado", out.Subject)
	assert.Contains(t, out.HTML, "RMA-ABC-123456")
	assert.Contains(t, out.HTML, "Esperando Equipos")
	assert.Contains(t, out.HTML, "https://rma.example.co/rmas/r1")
	assert.Contains(t, out.Text, "https://rma.example.co/rmas/r1")
}

func TestRender_Subjects(t *testing.T) {
	cases := map[notification.Kind]string{
		notification.KindWelcome:       "¡Bienvenido a nuestro sistema RMA!",
		notification.KindRMARejected:   "Tu RMA #r1 ha sido rechazado",
		notification.KindRMAEvaluating: "Tu RMA #r1 está en evaluación",
		notification.KindRMAPayment:    "Cotización lista para tu RMA #r1",
	}
	for kind, want := range cases {
		assert.Equal(t, want, mail.Subject(msg(kind)), string(kind))
	}
}

func TestRender_RecordatorioPorUrgencia(t *testing.T) {
	r := newRenderer(t)

	normal := msg(notification.KindPaymentReminder)
	normal.Data.Status = "PAYMENT"
	normal.Data.DaysSincePayment = 3
	normal.Data.DaysInPayment = 3
	normal.Data.Urgency = "normal"
	out, err := r.Render(normal)
	require.NoError(t, err)
	assert.Equal(t, "Recordatorio de pago pendiente - RMA #r1", out.Subject)
	assert.Contains(t, out.HTML, "Esperando Pago")
	assert.NotContains(t, out.HTML, "procesamiento urgente")
	assert.NotContains(t, out.HTML, "ACCIÓN INMEDIATA REQUERIDA")

	urgent := normal
	urgent.Data.DaysInPayment = 8
	urgent.Data.Urgency = "urgent"
	out, err = r.Render(urgent)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out.Subject, "URGENTE"))
	assert.Contains(t, out.HTML, "procesamiento urgente")
	assert.NotContains(t, out.HTML, "ACCIÓN INMEDIATA REQUERIDA")

	critical := normal
	critical.Data.DaysInPayment = 11
	critical.Data.Urgency = "critical"
	out, err = r.Render(critical)
	require.NoError(t, err)
	assert.Contains(t, out.HTML, "ACCIÓN INMEDIATA REQUERIDA")
	assert.Contains(t, out.HTML, "&#43;57 601 555 0000", "html/template escapa el +")
	assert.Contains(t, out.Text, "+57 601 555 0000")
	assert.Contains(t, out.Text, "ACCIÓN INMEDIATA REQUERIDA")
}

func TestRender_KindDesconocido(t *testing.T) {
	_, err := newRenderer(t).Render(notification.Message{Kind: "otro", To: notification.Recipient{Email: "a@b.co"}})
	assert.Error(t, err)
}

func TestFormatAmount(t *testing.T) {
	r := newRenderer(t)
	amount := decimal.RequireFromString("320000")
	assert.Equal(t, "320.000,00", r.FormatAmount(&amount))
	assert.Empty(t, r.FormatAmount(nil))
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "En Evaluación", mail.StatusLabel("EVALUATING"))
	assert.Equal(t, "Rechazado", mail.StatusLabel("REJECTED"))
	assert.Equal(t, "DESCONOCIDO", mail.StatusLabel("DESCONOCIDO"))
}

// ──────────────────────────────────────────────────────────────────────────────
// Gateways
// ──────────────────────────────────────────────────────────────────────────────

type fakeSender struct {
	mu   sync.Mutex
	sent []*gomail.Message
	err  error
}

func (f *fakeSender) DialAndSend(m ...*gomail.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m...)
	return nil
}

func TestSMTPGateway_Send(t *testing.T) {
	sender := &fakeSender{}
	gw := mail.NewSMTPGatewayWithSender(mail.Config{From: "rma@example.co", FromName: "Sistema RMA"}, sender, newRenderer(t), zerolog.Nop())

	m := msg(notification.KindRMAPayment)
	m.Attachments = []notification.Attachment{{Filename: "cotizacion-r1.pdf", ContentType: "application/pdf", Content: []byte("%PDF-1.4")}}
	rec, err := gw.Send(context.Background(), m)
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)

	require.Len(t, sender.sent, 1)
	sent := sender.sent[0]
	require.Len(t, sent.GetHeader("Subject"), 1)
	subject, err := new(mime.WordDecoder).DecodeHeader(sent.GetHeader("Subject")[0])
	require.NoError(t, err)
	assert.Equal(t, "Cotización lista para tu RMA #r1", subject)
	require.Len(t, sent.GetHeader("Message-ID"), 1)
	assert.Contains(t, sent.GetHeader("Message-ID")[0], "@example.co>")

	var raw bytes.Buffer
	_, err = sent.WriteTo(&raw)
	require.NoError(t, err)
	assert.Contains(t, raw.String(), "ana@cliente.co")
	assert.Contains(t, raw.String(), `filename="cotizacion-r1.pdf"`)
}

func TestSMTPGateway_Errores(t *testing.T) {
	sender := &fakeSender{err: errors.New("550 buzón no existe")}
	gw := mail.NewSMTPGatewayWithSender(mail.Config{From: "rma@example.co"}, sender, newRenderer(t), zerolog.Nop())

	_, err := gw.Send(context.Background(), msg(notification.KindRMAApproved))
	assert.Error(t, err)

	noEmail := msg(notification.KindRMAApproved)
	noEmail.To.Email = ""
	_, err = gw.Send(context.Background(), noEmail)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = gw.Send(ctx, msg(notification.KindRMAApproved))
	assert.ErrorIs(t, err, context.Canceled)

	_, err = mail.NewSMTPGateway(mail.Config{}, newRenderer(t), zerolog.Nop())
	assert.Error(t, err, "requiere host y remitente")
}

func TestLogGateway(t *testing.T) {
	gw := mail.NewLogGateway(newRenderer(t), zerolog.Nop())
	rec, err := gw.Send(context.Background(), msg(notification.KindWelcome))
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)

	_, err = gw.Send(context.Background(), notification.Message{Kind: "otro"})
	assert.Error(t, err)
}
