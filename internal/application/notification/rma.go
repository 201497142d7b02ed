package notification

import (
	"strings"

	"github.com/jhoicas/rma-api/internal/domain/entity"
)

// ForRMA arma el aviso de un RMA dirigido a su dueño.
func ForRMA(kind Kind, r *entity.RMA, attachments ...Attachment) Message {
	data := Data{
		RMAID:           r.ID,
		CompanyName:     r.CompanyName,
		Status:          string(r.Status),
		QuotationAmount: r.QuotationAmount,
		CreatedAt:       r.CreatedAt,
	}
	if r.TrackingNumber != nil {
		data.TrackingNumber = *r.TrackingNumber
	}
	if r.RejectionReason != nil {
		data.RejectionReason = *r.RejectionReason
	}
	if r.ShippingTracking != nil {
		data.ShippingTracking = *r.ShippingTracking
	}
	if r.QuotationURL != nil {
		data.QuotationURL = *r.QuotationURL
	}
	if r.PurchaseOrder != nil {
		data.PurchaseOrder = *r.PurchaseOrder
	}
	return Message{
		Kind: kind,
		To: Recipient{
			Name:  strings.TrimSpace(r.Owner.FirstName + " " + r.Owner.LastName),
			Email: r.Owner.Email,
		},
		Data:        data,
		Attachments: attachments,
	}
}
