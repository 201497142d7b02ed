package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// RMAStatus estado del ciclo de vida de un RMA.
type RMAStatus string

const (
	RMAStatusSubmitted     RMAStatus = "RMA_SUBMITTED"
	RMAStatusAwaitingGoods RMAStatus = "AWAITING_GOODS"
	RMAStatusEvaluating    RMAStatus = "EVALUATING"
	RMAStatusPayment       RMAStatus = "PAYMENT"
	RMAStatusProcessing    RMAStatus = "PROCESSING"
	RMAStatusInShipping    RMAStatus = "IN_SHIPPING"
	RMAStatusComplete      RMAStatus = "COMPLETE"
	RMAStatusRejected      RMAStatus = "REJECTED"
)

// AllRMAStatuses en orden del flujo (REJECTED al final).
var AllRMAStatuses = []RMAStatus{
	RMAStatusSubmitted, RMAStatusAwaitingGoods, RMAStatusEvaluating, RMAStatusPayment,
	RMAStatusProcessing, RMAStatusInShipping, RMAStatusComplete, RMAStatusRejected,
}

// Valid indica si s es un estado conocido.
func (s RMAStatus) Valid() bool {
	for _, st := range AllRMAStatuses {
		if st == s {
			return true
		}
	}
	return false
}

// Terminal indica COMPLETE o REJECTED.
func (s RMAStatus) Terminal() bool {
	return s == RMAStatusComplete || s == RMAStatusRejected
}

// RMA solicitud de devolución/servicio de mercancía.
type RMA struct {
	ID                 string
	UserID             string
	CountryID          string
	CountryName        string
	Status             RMAStatus
	CompanyName        string // copiado de la empresa del dueño al crear
	Address            string
	PostalCode         string
	Service            string
	TrackingNumber     *string
	RejectionReason    *string
	QuotationURL       *string
	QuotationAmount    *decimal.Decimal
	PurchaseOrder      *string
	ShippingTracking   *string
	PaymentRequestedAt *time.Time
	LastReminderSent   *time.Time
	Owner              Recipient
	Products           []RMAProduct
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// RMAProduct línea de producto de un RMA.
type RMAProduct struct {
	ID               string
	RMAID            string
	ProductID        string
	ProductName      string
	BrandName        string
	Serial           string
	Model            string
	EvaluationReport *string
}

// Clone copia profunda suficiente para que los stores en memoria no compartan punteros.
func (r *RMA) Clone() *RMA {
	if r == nil {
		return nil
	}
	c := *r
	c.TrackingNumber = cloneStr(r.TrackingNumber)
	c.RejectionReason = cloneStr(r.RejectionReason)
	c.QuotationURL = cloneStr(r.QuotationURL)
	c.PurchaseOrder = cloneStr(r.PurchaseOrder)
	c.ShippingTracking = cloneStr(r.ShippingTracking)
	c.PaymentRequestedAt = cloneTime(r.PaymentRequestedAt)
	c.LastReminderSent = cloneTime(r.LastReminderSent)
	if r.QuotationAmount != nil {
		a := *r.QuotationAmount
		c.QuotationAmount = &a
	}
	c.Products = append([]RMAProduct(nil), r.Products...)
	return &c
}

func cloneStr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
