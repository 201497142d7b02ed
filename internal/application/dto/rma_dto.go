package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/rma-api/internal/domain/entity"
)

// RMAProductRequest línea de producto al crear un RMA.
type RMAProductRequest struct {
	ProductID        string `json:"productId"`
	Serial           string `json:"serial"`
	Model            string `json:"model"`
	EvaluationReport string `json:"reporteEvaluacion"`
}

// CreateRMARequest entrada para crear un RMA.
type CreateRMARequest struct {
	CountryID  string              `json:"countryId"`
	Address    string              `json:"direccion"`
	PostalCode string              `json:"codigoPostal"`
	Service    string              `json:"servicio"`
	Products   []RMAProductRequest `json:"products"`
}

// RejectRMARequest motivo de rechazo.
type RejectRMARequest struct {
	Reason string `json:"razonRechazo"`
}

// ProcessingRMARequest confirmación de pago; la orden de compra es opcional.
type ProcessingRMARequest struct {
	PurchaseOrder string `json:"ordenCompra"`
}

// ShippingRMARequest datos del envío de vuelta.
type ShippingRMARequest struct {
	TrackingInfo string `json:"trackingEnvio"`
}

// RMAOwnerResponse dueño del RMA.
type RMAOwnerResponse struct {
	FirstName string `json:"nombre"`
	LastName  string `json:"apellido"`
	Email     string `json:"email"`
}

// RMAProductResponse línea de producto.
type RMAProductResponse struct {
	ID               string  `json:"id"`
	ProductID        string  `json:"productId"`
	ProductName      string  `json:"producto"`
	BrandName        string  `json:"marca"`
	Serial           string  `json:"serial"`
	Model            string  `json:"model"`
	EvaluationReport *string `json:"reporteEvaluacion"`
}

// RMAResponse salida de un RMA.
type RMAResponse struct {
	ID                 string               `json:"id"`
	UserID             string               `json:"userId"`
	CountryID          string               `json:"countryId"`
	CountryName        string               `json:"pais"`
	Status             string               `json:"status"`
	CompanyName        string               `json:"nombreEmpresa"`
	Address            string               `json:"direccion"`
	PostalCode         string               `json:"codigoPostal"`
	Service            string               `json:"servicio"`
	TrackingNumber     *string              `json:"numeroTracking"`
	RejectionReason    *string              `json:"razonRechazo"`
	QuotationURL       *string              `json:"cotizacion"`
	QuotationAmount    *decimal.Decimal     `json:"montoCotizacion"`
	PurchaseOrder      *string              `json:"ordenCompra"`
	ShippingTracking   *string              `json:"trackingEnvio"`
	PaymentRequestedAt *time.Time           `json:"paymentRequestedAt"`
	LastReminderSent   *time.Time           `json:"lastReminderSent"`
	Owner              RMAOwnerResponse     `json:"user"`
	Products           []RMAProductResponse `json:"products"`
	CreatedAt          time.Time            `json:"createdAt"`
	UpdatedAt          time.Time            `json:"updatedAt"`
}

// RMAListResponse lista paginada de RMAs.
type RMAListResponse struct {
	Items []RMAResponse `json:"items"`
	Page  PageResponse  `json:"page"`
}

// ToRMAResponse mapea la entidad.
func ToRMAResponse(r *entity.RMA) *RMAResponse {
	if r == nil {
		return nil
	}
	products := make([]RMAProductResponse, 0, len(r.Products))
	for _, p := range r.Products {
		products = append(products, RMAProductResponse{
			ID:               p.ID,
			ProductID:        p.ProductID,
			ProductName:      p.ProductName,
			BrandName:        p.BrandName,
			Serial:           p.Serial,
			Model:            p.Model,
			EvaluationReport: p.EvaluationReport,
		})
	}
	return &RMAResponse{
		ID:                 r.ID,
		UserID:             r.UserID,
		CountryID:          r.CountryID,
		CountryName:        r.CountryName,
		Status:             string(r.Status),
		CompanyName:        r.CompanyName,
		Address:            r.Address,
		PostalCode:         r.PostalCode,
		Service:            r.Service,
		TrackingNumber:     r.TrackingNumber,
		RejectionReason:    r.RejectionReason,
		QuotationURL:       r.QuotationURL,
		QuotationAmount:    r.QuotationAmount,
		PurchaseOrder:      r.PurchaseOrder,
		ShippingTracking:   r.ShippingTracking,
		PaymentRequestedAt: r.PaymentRequestedAt,
		LastReminderSent:   r.LastReminderSent,
		Owner:              RMAOwnerResponse{FirstName: r.Owner.FirstName, LastName: r.Owner.LastName, Email: r.Owner.Email},
		Products:           products,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

// SchedulerBatchResponse resultado de un lote de recordatorios.
type SchedulerBatchResponse struct {
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Found      int       `json:"found"`
	Sent       int       `json:"sent"`
	Failed     int       `json:"failed"`
	Skipped    int       `json:"skipped"`
}

// SchedulerStatusResponse estado del scheduler de recordatorios.
type SchedulerStatusResponse struct {
	IsRunning     bool                    `json:"isRunning"`
	Schedule      string                  `json:"schedule"`
	Timezone      string                  `json:"timezone"`
	NextExecution *time.Time              `json:"nextExecution"`
	LastRun       *SchedulerBatchResponse `json:"lastRun"`
}
