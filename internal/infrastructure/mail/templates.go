// Package mail implementa el Gateway de avisos por correo: plantillas html y
// texto, envío SMTP con gomail y un gateway que solo registra en el log.
package mail

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/jhoicas/rma-api/internal/application/notification"
	"github.com/jhoicas/rma-api/internal/domain/entity"
	"github.com/jhoicas/rma-api/internal/domain/reminder"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Content datos de marca del correo y enlaces.
type Content struct {
	FrontendURL  string
	SupportEmail string
	SupportPhone string
}

var statusLabels = map[string]string{
	string(entity.RMAStatusSubmitted):     "RMA Enviado",
	string(entity.RMAStatusAwaitingGoods): "Esperando Equipos",
	string(entity.RMAStatusEvaluating):    "En Evaluación",
	string(entity.RMAStatusProcessing):    "En Proceso",
	string(entity.RMAStatusPayment):       "Esperando Pago",
	string(entity.RMAStatusInShipping):    "En Envío",
	string(entity.RMAStatusComplete):      "Completado",
	string(entity.RMAStatusRejected):      "Rechazado",
}

// StatusLabel traduce el estado para el cliente.
func StatusLabel(status string) string {
	if l, ok := statusLabels[status]; ok {
		return l
	}
	return status
}

var titles = map[notification.Kind]string{
	notification.KindWelcome:         "¡Bienvenido al Sistema RMA!",
	notification.KindRMAApproved:     "¡Tu RMA ha sido aprobado!",
	notification.KindRMARejected:     "Tu RMA ha sido rechazado",
	notification.KindRMAEvaluating:   "¡Hemos recibido tu equipo!",
	notification.KindRMAPayment:      "¡Cotización lista!",
	notification.KindRMAProcessing:   "¡Pago Confirmado - Procesamiento Iniciado!",
	notification.KindRMAInShipping:   "¡Tu Equipo Ya Está en Camino!",
	notification.KindRMAComplete:     "¡RMA Completado Exitosamente!",
	notification.KindPaymentReminder: "Recordatorio de Pago Pendiente",
}

// Subject asunto del correo según el kind.
func Subject(msg notification.Message) string {
	id := msg.Data.RMAID
	switch msg.Kind {
	case notification.KindWelcome:
		return "¡Bienvenido a nuestro sistema RMA!"
	case notification.KindRMAApproved:
		return fmt.Sprintf("Tu RMA #%s ha sido aprobado", id)
	case notification.KindRMARejected:
		return fmt.Sprintf("Tu RMA #%s ha sido rechazado", id)
	case notification.KindRMAEvaluating:
		return fmt.Sprintf("Tu RMA #%s está en evaluación", id)
	case notification.KindRMAPayment:
		return fmt.Sprintf("Cotización lista para tu RMA #%s", id)
	case notification.KindRMAProcessing:
		return fmt.Sprintf("Pago confirmado para tu RMA #%s", id)
	case notification.KindRMAInShipping:
		return fmt.Sprintf("Tu equipo del RMA #%s ya está en camino", id)
	case notification.KindRMAComplete:
		return fmt.Sprintf("Tu RMA #%s ha sido completado", id)
	case notification.KindPaymentReminder:
		if msg.Data.Urgency != "" && msg.Data.Urgency != string(reminder.UrgencyNormal) {
			return fmt.Sprintf("URGENTE: Recordatorio de pago pendiente - RMA #%s", id)
		}
		return fmt.Sprintf("Recordatorio de pago pendiente - RMA #%s", id)
	default:
		return fmt.Sprintf("Actualización de RMA #%s", id)
	}
}

// view valores que consumen las plantillas.
type view struct {
	Title            string
	Name             string
	Email            string
	Company          string
	RMAID            string
	StatusLabel      string
	TrackingNumber   string
	RejectionReason  string
	ShippingTracking string
	PurchaseOrder    string
	Amount           string
	DaysSincePayment int
	DaysInPayment    int
	Urgent           bool
	Critical         bool
	Link             string
	FrontendURL      string
	SupportEmail     string
	SupportPhone     string
	Year             int
}

// Renderer compone asunto, html y texto de un aviso.
type Renderer struct {
	html    *htmltemplate.Template
	text    *texttemplate.Template
	content Content
	title   cases.Caser
	printer *message.Printer
	nowFn   func() time.Time
}

// NewRenderer parsea las plantillas embebidas.
func NewRenderer(content Content) (*Renderer, error) {
	h, err := htmltemplate.ParseFS(templateFS, "templates/email.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("mail: plantillas html: %w", err)
	}
	t, err := texttemplate.ParseFS(templateFS, "templates/email.txt.tmpl")
	if err != nil {
		return nil, fmt.Errorf("mail: plantillas texto: %w", err)
	}
	content.FrontendURL = strings.TrimRight(content.FrontendURL, "/")
	return &Renderer{
		html:    h,
		text:    t,
		content: content,
		title:   cases.Title(language.Spanish),
		printer: message.NewPrinter(language.Spanish),
		nowFn:   time.Now,
	}, nil
}

// Rendered correo listo para enviar.
type Rendered struct {
	Subject string
	HTML    string
	Text    string
}

// Render ejecuta las plantillas del kind del mensaje.
func (r *Renderer) Render(msg notification.Message) (Rendered, error) {
	name := string(msg.Kind)
	if r.html.Lookup(name) == nil || r.text.Lookup(name) == nil {
		return Rendered{}, fmt.Errorf("mail: no hay plantilla para %q", name)
	}
	v := r.view(msg)
	var hb, tb bytes.Buffer
	if err := r.html.ExecuteTemplate(&hb, name, v); err != nil {
		return Rendered{}, fmt.Errorf("mail: render html %s: %w", name, err)
	}
	if err := r.text.ExecuteTemplate(&tb, name, v); err != nil {
		return Rendered{}, fmt.Errorf("mail: render texto %s: %w", name, err)
	}
	return Rendered{Subject: Subject(msg), HTML: hb.String(), Text: tb.String()}, nil
}

func (r *Renderer) view(msg notification.Message) view {
	d := msg.Data
	urgency := reminder.Urgency(d.Urgency)
	v := view{
		Title:            titles[msg.Kind],
		Name:             r.title.String(strings.ToLower(msg.To.Name)),
		Email:            msg.To.Email,
		Company:          d.CompanyName,
		RMAID:            d.RMAID,
		StatusLabel:      StatusLabel(d.Status),
		TrackingNumber:   d.TrackingNumber,
		RejectionReason:  d.RejectionReason,
		ShippingTracking: d.ShippingTracking,
		PurchaseOrder:    d.PurchaseOrder,
		Amount:           r.FormatAmount(d.QuotationAmount),
		DaysSincePayment: d.DaysSincePayment,
		DaysInPayment:    d.DaysInPayment,
		Urgent:           urgency == reminder.UrgencyUrgent || urgency == reminder.UrgencyCritical,
		Critical:         urgency == reminder.UrgencyCritical,
		FrontendURL:      r.content.FrontendURL,
		SupportEmail:     r.content.SupportEmail,
		SupportPhone:     r.content.SupportPhone,
		Year:             r.nowFn().Year(),
	}
	if d.RMAID != "" {
		v.Link = r.content.FrontendURL + "/rmas/" + d.RMAID
	}
	if v.Name == "" {
		v.Name = msg.To.Email
	}
	return v
}

// FormatAmount formato es-ES con dos decimales ("320.000,00"). Vacío si nil.
func (r *Renderer) FormatAmount(amount *decimal.Decimal) string {
	if amount == nil {
		return ""
	}
	return r.printer.Sprint(number.Decimal(amount.InexactFloat64(), number.Scale(2)))
}
