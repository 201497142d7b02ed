package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/rma-api/internal/domain"
	"github.com/jhoicas/rma-api/internal/domain/entity"
	"github.com/jhoicas/rma-api/internal/domain/reminder"
	"github.com/jhoicas/rma-api/internal/domain/repository"
)

var _ repository.RMARepository = (*RMARepo)(nil)

// RMARepo implementación de RMARepository sobre PostgreSQL. Con una pgx.Tx como
// Querier los SELECT ... FOR UPDATE bloquean hasta el commit.
type RMARepo struct {
	db Querier
}

// NewRMARepository construye el repositorio de RMAs.
func NewRMARepository(db Querier) *RMARepo {
	return &RMARepo{db: db}
}

const rmaSelect = `
	SELECT r.id, r.user_id, r.country_id, c.name, r.status, r.company_name, r.address, r.postal_code,
		r.service, r.tracking_number, r.rejection_reason, r.quotation_url, r.quotation_amount,
		r.purchase_order, r.shipping_tracking, r.payment_requested_at, r.last_reminder_sent,
		r.created_at, r.updated_at, u.first_name, u.last_name, u.email
	FROM rmas r
	JOIN users u ON u.id = r.user_id
	JOIN countries c ON c.id = r.country_id`

func scanRMA(row pgx.Row) (*entity.RMA, error) {
	var r entity.RMA
	err := row.Scan(&r.ID, &r.UserID, &r.CountryID, &r.CountryName, &r.Status, &r.CompanyName,
		&r.Address, &r.PostalCode, &r.Service, &r.TrackingNumber, &r.RejectionReason,
		&r.QuotationURL, &r.QuotationAmount, &r.PurchaseOrder, &r.ShippingTracking,
		&r.PaymentRequestedAt, &r.LastReminderSent, &r.CreatedAt, &r.UpdatedAt,
		&r.Owner.FirstName, &r.Owner.LastName, &r.Owner.Email)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Create persiste el RMA y sus líneas de producto.
func (r *RMARepo) Create(ctx context.Context, rm *entity.RMA) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO rmas (id, user_id, country_id, status, company_name, address, postal_code, service,
				tracking_number, rejection_reason, quotation_url, quotation_amount, purchase_order,
				shipping_tracking, payment_requested_at, last_reminder_sent, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
			rm.ID, rm.UserID, rm.CountryID, rm.Status, rm.CompanyName, rm.Address, rm.PostalCode, rm.Service,
			rm.TrackingNumber, rm.RejectionReason, rm.QuotationURL, rm.QuotationAmount, rm.PurchaseOrder,
			rm.ShippingTracking, rm.PaymentRequestedAt, rm.LastReminderSent, rm.CreatedAt, rm.UpdatedAt,
		)
		if err != nil {
			return conflictOr(err, "Ya existe un RMA con ese identificador", "insert rma")
		}
		for i, p := range rm.Products {
			_, err := tx.Exec(ctx, `
				INSERT INTO rma_products (id, rma_id, product_id, position, serial, model, evaluation_report)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				p.ID, rm.ID, p.ProductID, i, p.Serial, p.Model, p.EvaluationReport,
			)
			if err != nil {
				if isForeignKeyViolation(err) {
					return domain.NewError(domain.ErrValidation, "Algunos productos no existen")
				}
				return fmt.Errorf("insert rma product: %w", err)
			}
		}
		return nil
	})
}

// GetByID obtiene el RMA con dueño, país y productos.
func (r *RMARepo) GetByID(ctx context.Context, id string) (*entity.RMA, error) {
	return r.one(ctx, rmaSelect+` WHERE r.id = $1`, id)
}

// GetForUpdate obtiene el RMA bloqueando su fila.
func (r *RMARepo) GetForUpdate(ctx context.Context, id string) (*entity.RMA, error) {
	return r.one(ctx, rmaSelect+` WHERE r.id = $1 FOR UPDATE OF r`, id)
}

// LockReminderCandidate bloquea la fila sin esperar; si otro runner la tiene
// devuelve (nil, nil).
func (r *RMARepo) LockReminderCandidate(ctx context.Context, id string) (*entity.RMA, error) {
	return r.one(ctx, rmaSelect+` WHERE r.id = $1 FOR UPDATE OF r SKIP LOCKED`, id)
}

func (r *RMARepo) one(ctx context.Context, sql, id string) (*entity.RMA, error) {
	rm, err := scanRMA(r.db.QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get rma: %w", err)
	}
	if err := r.loadProducts(ctx, []*entity.RMA{rm}); err != nil {
		return nil, err
	}
	return rm, nil
}

// Update persiste los campos mutables del ciclo de vida.
func (r *RMARepo) Update(ctx context.Context, rm *entity.RMA) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE rmas SET status = $2, tracking_number = $3, rejection_reason = $4, quotation_url = $5,
			quotation_amount = $6, purchase_order = $7, shipping_tracking = $8,
			payment_requested_at = $9, last_reminder_sent = $10, updated_at = $11
		WHERE id = $1`,
		rm.ID, rm.Status, rm.TrackingNumber, rm.RejectionReason, rm.QuotationURL,
		rm.QuotationAmount, rm.PurchaseOrder, rm.ShippingTracking,
		rm.PaymentRequestedAt, rm.LastReminderSent, rm.UpdatedAt,
	)
	if err != nil {
		return conflictOr(err, "El número de tracking ya está en uso", "update rma")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRMANotFound
	}
	return nil
}

var rmaSortColumns = map[string]string{
	repository.RMASortCreatedAt: "r.created_at",
	repository.RMASortUpdatedAt: "r.updated_at",
	repository.RMASortStatus:    "r.status",
	repository.RMASortCompany:   "r.company_name",
}

func rmaWhere(q repository.RMAQuery) *where {
	w := &where{}
	if q.Filter.OwnerID != "" {
		w.and("r.user_id = " + w.arg(q.Filter.OwnerID))
	}
	if q.Filter.CountryScoped {
		w.and("r.country_id = ANY(" + w.arg(countryIDs(q.Filter.CountryIDs)) + ")")
	}
	if q.Status != "" {
		w.and("r.status = " + w.arg(string(q.Status)))
	}
	if q.StartDate != nil {
		w.and("r.created_at >= " + w.arg(*q.StartDate))
	}
	if q.EndDate != nil {
		w.and("r.created_at <= " + w.arg(*q.EndDate))
	}
	if q.Search != "" {
		p := w.arg(likePattern(q.Search))
		w.and("(r.company_name ILIKE " + p + " OR r.address ILIKE " + p +
			" OR r.tracking_number ILIKE " + p + " OR u.first_name ILIKE " + p +
			" OR u.last_name ILIKE " + p + " OR u.email ILIKE " + p + ")")
	}
	return w
}

// List lista RMAs según la consulta.
func (r *RMARepo) List(ctx context.Context, q repository.RMAQuery) ([]*entity.RMA, error) {
	w := rmaWhere(q)
	col, ok := rmaSortColumns[q.SortBy]
	if !ok {
		col = "r.created_at"
	}
	dir := " ASC"
	if q.SortDesc {
		dir = " DESC"
	}
	sql := rmaSelect + w.sql() + ` ORDER BY ` + col + dir + `, r.id` + w.page(q.Limit, q.Offset)
	return r.list(ctx, sql, w.args...)
}

// Count cuenta RMAs según la consulta.
func (r *RMARepo) Count(ctx context.Context, q repository.RMAQuery) (int, error) {
	w := rmaWhere(q)
	var n int
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM rmas r JOIN users u ON u.id = r.user_id`+w.sql(), w.args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count rmas: %w", err)
	}
	return n, nil
}

// FindReminderCandidates traduce reminder.Criteria a SQL:
// (a) nunca recordado y modificado dentro del día local del umbral,
// (b) último recordatorio <= umbral, (c) nunca recordado y modificado <= umbral.
func (r *RMARepo) FindReminderCandidates(ctx context.Context, c reminder.Criteria) ([]*entity.RMA, error) {
	sql := rmaSelect + `
		WHERE r.status = $1 AND (
			(r.last_reminder_sent IS NOT NULL AND r.last_reminder_sent <= $2)
			OR (r.last_reminder_sent IS NULL AND r.updated_at <= $2)
			OR (r.last_reminder_sent IS NULL AND r.updated_at >= $3 AND r.updated_at < $4)
		)
		ORDER BY r.updated_at, r.id`
	return r.list(ctx, sql, string(entity.RMAStatusPayment), c.Threshold, c.ThresholdDay, c.ThresholdNext)
}

// MarkReminderSent fija last_reminder_sent solo si aún vale prev.
func (r *RMARepo) MarkReminderSent(ctx context.Context, id string, prev *time.Time, at time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE rmas SET last_reminder_sent = $3
		WHERE id = $1 AND status = $4 AND last_reminder_sent IS NOT DISTINCT FROM $2::timestamptz`,
		id, prev, at, string(entity.RMAStatusPayment))
	if err != nil {
		return false, fmt.Errorf("mark reminder sent: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *RMARepo) list(ctx context.Context, sql string, args ...any) ([]*entity.RMA, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list rmas: %w", err)
	}
	defer rows.Close()
	list := []*entity.RMA{}
	for rows.Next() {
		rm, err := scanRMA(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rma: %w", err)
		}
		list = append(list, rm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list rmas: %w", err)
	}
	if err := r.loadProducts(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

// loadProducts completa las líneas de producto con una sola consulta.
func (r *RMARepo) loadProducts(ctx context.Context, rmas []*entity.RMA) error {
	if len(rmas) == 0 {
		return nil
	}
	ids := make([]string, 0, len(rmas))
	byID := make(map[string]*entity.RMA, len(rmas))
	for _, rm := range rmas {
		ids = append(ids, rm.ID)
		byID[rm.ID] = rm
		rm.Products = []entity.RMAProduct{}
	}
	rows, err := r.db.Query(ctx, `
		SELECT rp.id, rp.rma_id, rp.product_id, p.name, b.name, rp.serial, rp.model, rp.evaluation_report
		FROM rma_products rp
		JOIN products p ON p.id = rp.product_id
		JOIN brands b ON b.id = p.brand_id
		WHERE rp.rma_id = ANY($1)
		ORDER BY rp.rma_id, rp.position`, ids)
	if err != nil {
		return fmt.Errorf("load rma products: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p entity.RMAProduct
		if err := rows.Scan(&p.ID, &p.RMAID, &p.ProductID, &p.ProductName, &p.BrandName,
			&p.Serial, &p.Model, &p.EvaluationReport); err != nil {
			return fmt.Errorf("scan rma product: %w", err)
		}
		if rm, ok := byID[p.RMAID]; ok {
			rm.Products = append(rm.Products, p)
		}
	}
	return rows.Err()
}
