package reminder_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/rma-api/internal/domain/entity"
	"github.com/jhoicas/rma-api/internal/domain/reminder"
)

var bogota = func() *time.Location {
	loc, err := time.LoadLocation("America/Bogota")
	if err != nil {
		return time.FixedZone("COT", -5*3600)
	}
	return loc
}()

func paymentRMA(updatedAt time.Time, last *time.Time) *entity.RMA {
	return &entity.RMA{ID: "r1", Status: entity.RMAStatusPayment, UpdatedAt: updatedAt, LastReminderSent: last}
}

func TestCriteriaAt_DiaLocalDelUmbral(t *testing.T) {
	p := reminder.Policy{Window: reminder.DefaultWindow, Location: bogota}
	now := time.Date(2025, 5, 20, 9, 0, 0, 0, bogota)

	c := p.CriteriaAt(now)
	assert.True(t, c.Threshold.Equal(time.Date(2025, 5, 17, 9, 0, 0, 0, bogota)))
	assert.True(t, c.ThresholdDay.Equal(time.Date(2025, 5, 17, 0, 0, 0, 0, bogota)))
	assert.True(t, c.ThresholdNext.Equal(time.Date(2025, 5, 18, 0, 0, 0, 0, bogota)))
}

func TestMatches_Clausulas(t *testing.T) {
	p := reminder.Policy{Window: 72 * time.Hour, Location: bogota}
	now := time.Date(2025, 5, 20, 9, 0, 0, 0, bogota)

	cases := []struct {
		name string
		rma  *entity.RMA
		want bool
	}{
		{"nunca recordado, actualizado hace 4 días", paymentRMA(now.Add(-96*time.Hour), nil), true},
		{"nunca recordado, mismo día del umbral pero más tarde", paymentRMA(time.Date(2025, 5, 17, 18, 0, 0, 0, bogota), nil), true},
		{"nunca recordado, actualizado ayer", paymentRMA(now.Add(-24*time.Hour), nil), false},
		{"recordado justo en el umbral", paymentRMA(now.Add(-200*time.Hour), ptr(now.Add(-72*time.Hour))), true},
		{"recordado hace 5 días", paymentRMA(now.Add(-200*time.Hour), ptr(now.Add(-120*time.Hour))), true},
		{"recordado hace 1 día", paymentRMA(now.Add(-200*time.Hour), ptr(now.Add(-24*time.Hour))), false},
		{"recordado más tarde el día del umbral", paymentRMA(now.Add(-200*time.Hour), ptr(time.Date(2025, 5, 17, 18, 0, 0, 0, bogota))), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, p.Eligible(tc.rma, now))
		})
	}
}

func TestMatches_SoloPayment(t *testing.T) {
	p := reminder.Policy{Window: 72 * time.Hour}
	now := time.Date(2025, 5, 20, 9, 0, 0, 0, time.UTC)
	r := paymentRMA(now.Add(-96*time.Hour), nil)
	r.Status = entity.RMAStatusProcessing
	assert.False(t, p.Eligible(r, now))
	assert.False(t, p.Eligible(nil, now))
}

func TestMatches_IdempotenteConMismoNow(t *testing.T) {
	p := reminder.Policy{Window: 72 * time.Hour, Location: bogota}
	now := time.Date(2025, 5, 20, 9, 0, 0, 0, bogota)
	r := paymentRMA(now.Add(-96*time.Hour), nil)

	require.True(t, p.Eligible(r, now))
	r.LastReminderSent = ptr(now)
	assert.False(t, p.Eligible(r, now), "tras marcar, la misma corrida no lo vuelve a elegir")
}

func TestMatches_VentanaCero(t *testing.T) {
	p := reminder.Policy{Window: 0}
	now := time.Date(2025, 5, 20, 9, 0, 0, 0, time.UTC)
	r := paymentRMA(now.Add(-time.Second), ptr(now.Add(-time.Second)))
	assert.True(t, p.Eligible(r, now))
}

func TestDaysSincePayment(t *testing.T) {
	now := time.Date(2025, 5, 20, 9, 0, 0, 0, time.UTC)

	r := paymentRMA(now.Add(-4*24*time.Hour-time.Hour), nil)
	assert.Equal(t, 4, reminder.DaysSincePayment(r, now))

	r.LastReminderSent = ptr(now.Add(-3*24*time.Hour + time.Minute))
	assert.Equal(t, 2, reminder.DaysSincePayment(r, now), "floor, no redondeo")

	assert.Equal(t, 0, reminder.DaysSincePayment(paymentRMA(now.Add(time.Hour), nil), now))
}

func TestDaysSincePayment_CreceConElTiempo(t *testing.T) {
	start := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	r := paymentRMA(start, nil)
	prev := -1
	for i := 3; i <= 12; i += 3 {
		d := reminder.DaysSincePayment(r, start.Add(time.Duration(i)*24*time.Hour))
		assert.Greater(t, d, prev)
		prev = d
	}
}

func TestDaysInPayment(t *testing.T) {
	now := time.Date(2025, 5, 20, 9, 0, 0, 0, time.UTC)
	r := paymentRMA(now.Add(-24*time.Hour), ptr(now.Add(-24*time.Hour)))
	r.PaymentRequestedAt = ptr(now.Add(-9 * 24 * time.Hour))
	assert.Equal(t, 9, reminder.DaysInPayment(r, now))

	r.PaymentRequestedAt = nil
	assert.Equal(t, 1, reminder.DaysInPayment(r, now))
}

func TestUrgencyFor(t *testing.T) {
	assert.Equal(t, reminder.UrgencyNormal, reminder.UrgencyFor(3))
	assert.Equal(t, reminder.UrgencyNormal, reminder.UrgencyFor(7))
	assert.Equal(t, reminder.UrgencyUrgent, reminder.UrgencyFor(8))
	assert.Equal(t, reminder.UrgencyUrgent, reminder.UrgencyFor(10))
	assert.Equal(t, reminder.UrgencyCritical, reminder.UrgencyFor(11))
}

func ptr(t time.Time) *time.Time { return &t }
