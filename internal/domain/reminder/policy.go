// Package reminder define cuándo un RMA en PAYMENT debe recibir un recordatorio
// de pago. No conoce el almacenamiento ni el canal de envío.
package reminder

import (
	"time"

	"github.com/jhoicas/rma-api/internal/domain/entity"
)

// DefaultWindow ventana de elegibilidad por defecto (3 días).
const DefaultWindow = 72 * time.Hour

// Policy reglas de elegibilidad. Location define el "día calendario" local.
type Policy struct {
	Window   time.Duration
	Location *time.Location
}

// Criteria predicado concreto para una ejecución (derivado de now).
// Los adaptadores de persistencia lo traducen a su consulta.
type Criteria struct {
	Threshold     time.Time
	ThresholdDay  time.Time // inicio del día local del umbral
	ThresholdNext time.Time // inicio del día siguiente (exclusivo)
}

// CriteriaAt calcula el umbral y el día local del umbral para now.
func (p Policy) CriteriaAt(now time.Time) Criteria {
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}
	threshold := now.Add(-p.Window)
	lt := threshold.In(loc)
	start := time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
	return Criteria{
		Threshold:     threshold,
		ThresholdDay:  start,
		ThresholdNext: start.AddDate(0, 0, 1),
	}
}

// Matches evalúa el predicado sobre un RMA ya cargado:
//
//	(a) lastReminderSent nulo y updatedAt dentro del día local del umbral
//	(b) lastReminderSent <= umbral
//	(c) lastReminderSent nulo y updatedAt <= umbral
//
// (a) solo aplica a RMAs nunca recordados; así dos corridas con el mismo now
// no reenvían.
func (c Criteria) Matches(r *entity.RMA) bool {
	if r == nil || r.Status != entity.RMAStatusPayment {
		return false
	}
	if r.LastReminderSent != nil {
		return !r.LastReminderSent.After(c.Threshold)
	}
	if !r.UpdatedAt.After(c.Threshold) {
		return true
	}
	return !r.UpdatedAt.Before(c.ThresholdDay) && r.UpdatedAt.Before(c.ThresholdNext)
}

// Eligible atajo de CriteriaAt(now).Matches(r).
func (p Policy) Eligible(r *entity.RMA, now time.Time) bool {
	return p.CriteriaAt(now).Matches(r)
}

// Reference instante desde el que se cuentan los días del recordatorio.
func Reference(r *entity.RMA) time.Time {
	if r.LastReminderSent != nil {
		return *r.LastReminderSent
	}
	return r.UpdatedAt
}

// DaysSincePayment días completos entre now y lastReminderSent (o updatedAt).
func DaysSincePayment(r *entity.RMA, now time.Time) int {
	return wholeDays(now.Sub(Reference(r)))
}

// DaysInPayment días completos desde que el RMA entró en PAYMENT. Si no se
// registró la fecha se usa updatedAt.
func DaysInPayment(r *entity.RMA, now time.Time) int {
	from := r.UpdatedAt
	if r.PaymentRequestedAt != nil {
		from = *r.PaymentRequestedAt
	}
	return wholeDays(now.Sub(from))
}

func wholeDays(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}

// Urgency nivel de urgencia del recordatorio según los días en pago.
type Urgency string

const (
	UrgencyNormal   Urgency = "normal"
	UrgencyUrgent   Urgency = "urgent"
	UrgencyCritical Urgency = "critical"
)

// UrgencyFor > 10 días crítico, > 7 urgente.
func UrgencyFor(days int) Urgency {
	switch {
	case days > 10:
		return UrgencyCritical
	case days > 7:
		return UrgencyUrgent
	default:
		return UrgencyNormal
	}
}
