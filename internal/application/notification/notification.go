// Package notification define el puerto hacia el canal de avisos (email) y un
// despachador asíncrono para los avisos del ciclo de vida.
package notification

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Kind tipo de aviso; el gateway elige plantilla según el kind.
type Kind string

const (
	KindWelcome         Kind = "welcome"
	KindRMAApproved     Kind = "rma_approved"
	KindRMARejected     Kind = "rma_rejected"
	KindRMAEvaluating   Kind = "rma_evaluating"
	KindRMAPayment      Kind = "rma_payment"
	KindRMAProcessing   Kind = "rma_processing"
	KindRMAInShipping   Kind = "rma_in_shipping"
	KindRMAComplete     Kind = "rma_complete"
	KindPaymentReminder Kind = "payment_reminder"
)

// Recipient destinatario del aviso.
type Recipient struct {
	Name  string
	Email string
}

// Attachment adjunto en memoria.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Data payload de plantilla. Solo se llenan los campos que el kind usa.
type Data struct {
	RMAID            string
	CompanyName      string
	Status           string
	TrackingNumber   string
	RejectionReason  string
	ShippingTracking string
	QuotationURL     string
	QuotationAmount  *decimal.Decimal
	PurchaseOrder    string
	DaysSincePayment int
	DaysInPayment    int
	Urgency          string
	CreatedAt        time.Time
}

// Message aviso a enviar.
type Message struct {
	Kind        Kind
	To          Recipient
	Data        Data
	Attachments []Attachment
}

// Receipt resultado de un envío exitoso.
type Receipt struct {
	ID     string
	SentAt time.Time
}

// Gateway envía avisos. Los fallos se devuelven como error, nunca como panic.
type Gateway interface {
	Send(ctx context.Context, msg Message) (Receipt, error)
}

// Notifier dispara avisos sin bloquear al caller en la entrega.
type Notifier interface {
	Notify(ctx context.Context, msg Message)
}
