// Package lifecycle implementa la máquina de estados del RMA.
//
//	RMA_SUBMITTED --approve--> AWAITING_GOODS --receive--> EVALUATING --quote--> PAYMENT
//	PAYMENT --confirmPayment--> PROCESSING --ship--> IN_SHIPPING --deliverConfirm--> COMPLETE
//	RMA_SUBMITTED --reject--> REJECTED
//
// Cada transición valida su estado de origen y los campos requeridos antes de
// mutar el RMA; si falla, el RMA queda intacto.
package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/rma-api/internal/domain"
	"github.com/jhoicas/rma-api/internal/domain/entity"
)

// Action transición disparable sobre un RMA.
type Action string

const (
	ActionApprove        Action = "approve"
	ActionReject         Action = "reject"
	ActionReceive        Action = "receive"
	ActionQuote          Action = "quote"
	ActionConfirmPayment Action = "confirmPayment"
	ActionShip           Action = "ship"
	ActionDeliverConfirm Action = "deliverConfirm"
)

type rule struct {
	from entity.RMAStatus
	to   entity.RMAStatus
}

var rules = map[Action]rule{
	ActionApprove:        {from: entity.RMAStatusSubmitted, to: entity.RMAStatusAwaitingGoods},
	ActionReject:         {from: entity.RMAStatusSubmitted, to: entity.RMAStatusRejected},
	ActionReceive:        {from: entity.RMAStatusAwaitingGoods, to: entity.RMAStatusEvaluating},
	ActionQuote:          {from: entity.RMAStatusEvaluating, to: entity.RMAStatusPayment},
	ActionConfirmPayment: {from: entity.RMAStatusPayment, to: entity.RMAStatusProcessing},
	ActionShip:           {from: entity.RMAStatusProcessing, to: entity.RMAStatusInShipping},
	ActionDeliverConfirm: {from: entity.RMAStatusInShipping, to: entity.RMAStatusComplete},
}

// Target devuelve el estado destino de la acción.
func Target(a Action) (entity.RMAStatus, bool) {
	r, ok := rules[a]
	return r.to, ok
}

// CanTransition indica si existe una arista from -> to en el grafo.
func CanTransition(from, to entity.RMAStatus) bool {
	for _, r := range rules {
		if r.from == from && r.to == to {
			return true
		}
	}
	return false
}

// AllowedRoles roles que pueden disparar cada acción. Todas las transiciones
// posteriores a la creación son administrativas.
func AllowedRoles(a Action) []string {
	if _, ok := rules[a]; !ok {
		return nil
	}
	return []string{entity.RoleAdmin, entity.RoleSuperAdmin}
}

// Authorize valida que el rol del actor pueda disparar la acción.
func Authorize(a Action, role string) error {
	for _, r := range AllowedRoles(a) {
		if r == role {
			return nil
		}
	}
	return domain.NewError(domain.ErrForbidden, "No tienes permisos para realizar esta acción")
}

func checkFrom(r *entity.RMA, a Action) (rule, error) {
	rl, ok := rules[a]
	if !ok {
		return rule{}, domain.NewError(domain.ErrValidation, "acción desconocida")
	}
	if r.Status != rl.from {
		return rule{}, domain.NewError(domain.ErrInvalidState,
			fmt.Sprintf("El RMA debe estar en uno de los siguientes estados: %s", rl.from))
	}
	return rl, nil
}

// leaving aplica el cambio de estado y los efectos comunes de salir de PAYMENT.
func leaving(r *entity.RMA, to entity.RMAStatus, now time.Time) {
	if r.Status == entity.RMAStatusPayment && to != entity.RMAStatusPayment {
		r.LastReminderSent = nil
	}
	r.Status = to
	r.UpdatedAt = now
}

// Approve pasa a AWAITING_GOODS y asigna el código de tracking.
func Approve(r *entity.RMA, trackingCode string, now time.Time) error {
	rl, err := checkFrom(r, ActionApprove)
	if err != nil {
		return err
	}
	if strings.TrimSpace(trackingCode) == "" {
		return domain.NewError(domain.ErrValidation, "código de tracking vacío")
	}
	code := trackingCode
	r.TrackingNumber = &code
	leaving(r, rl.to, now)
	return nil
}

// Reject pasa a REJECTED (terminal) guardando el motivo.
func Reject(r *entity.RMA, reason string, now time.Time) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.NewError(domain.ErrValidation, "La razón de rechazo es requerida")
	}
	rl, err := checkFrom(r, ActionReject)
	if err != nil {
		return err
	}
	r.RejectionReason = &reason
	leaving(r, rl.to, now)
	return nil
}

// Receive pasa a EVALUATING; exige tracking asignado.
func Receive(r *entity.RMA, now time.Time) error {
	rl, err := checkFrom(r, ActionReceive)
	if err != nil {
		return err
	}
	if r.TrackingNumber == nil || *r.TrackingNumber == "" {
		return domain.NewError(domain.ErrInvalidState, "El RMA no tiene número de tracking asignado")
	}
	leaving(r, rl.to, now)
	return nil
}

// CheckQuote valida la precondición de Quote sin mutar (para validar antes de subir archivos).
func CheckQuote(r *entity.RMA) error {
	_, err := checkFrom(r, ActionQuote)
	return err
}

// Quote pasa a PAYMENT con la referencia de la cotización.
func Quote(r *entity.RMA, quotationURL string, amount *decimal.Decimal, now time.Time) error {
	rl, err := checkFrom(r, ActionQuote)
	if err != nil {
		return err
	}
	if strings.TrimSpace(quotationURL) == "" {
		return domain.NewError(domain.ErrValidation, "La cotización es requerida")
	}
	if amount != nil && amount.IsNegative() {
		return domain.NewError(domain.ErrValidation, "El monto de la cotización no puede ser negativo")
	}
	url := quotationURL
	r.QuotationURL = &url
	r.QuotationAmount = amount
	at := now
	r.PaymentRequestedAt = &at
	r.LastReminderSent = nil
	leaving(r, rl.to, now)
	return nil
}

// ConfirmPayment pasa a PROCESSING; exige cotización y limpia lastReminderSent.
func ConfirmPayment(r *entity.RMA, purchaseOrder string, now time.Time) error {
	rl, err := checkFrom(r, ActionConfirmPayment)
	if err != nil {
		return err
	}
	if r.QuotationURL == nil || *r.QuotationURL == "" {
		return domain.NewError(domain.ErrInvalidState, "El RMA no tiene cotización asignada")
	}
	if po := strings.TrimSpace(purchaseOrder); po != "" {
		r.PurchaseOrder = &po
	}
	leaving(r, rl.to, now)
	return nil
}

// Ship pasa a IN_SHIPPING con la información de envío.
func Ship(r *entity.RMA, trackingInfo string, now time.Time) error {
	trackingInfo = strings.TrimSpace(trackingInfo)
	if trackingInfo == "" {
		return domain.NewError(domain.ErrValidation, "La información de envío es requerida")
	}
	rl, err := checkFrom(r, ActionShip)
	if err != nil {
		return err
	}
	r.ShippingTracking = &trackingInfo
	leaving(r, rl.to, now)
	return nil
}

// DeliverConfirm pasa a COMPLETE.
func DeliverConfirm(r *entity.RMA, now time.Time) error {
	rl, err := checkFrom(r, ActionDeliverConfirm)
	if err != nil {
		return err
	}
	leaving(r, rl.to, now)
	return nil
}
