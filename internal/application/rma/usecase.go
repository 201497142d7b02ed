// Package rma orquesta el ciclo de vida del RMA: permisos, transacción,
// almacenamiento de cotizaciones y avisos.
package rma

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/rma-api/internal/application/notification"
	"github.com/jhoicas/rma-api/internal/domain"
	"github.com/jhoicas/rma-api/internal/domain/access"
	"github.com/jhoicas/rma-api/internal/domain/entity"
	"github.com/jhoicas/rma-api/internal/domain/lifecycle"
	"github.com/jhoicas/rma-api/internal/domain/repository"
)

// Límites de la cotización.
const (
	DefaultMaxQuotationBytes = 5 << 20
	DefaultQuotationFolder   = "quotations"
	pdfContentType           = "application/pdf"
)

// Deps dependencias del caso de uso. Guide y Now son opcionales.
type Deps struct {
	Tx        TxRunner
	RMAs      repository.RMARepository
	Users     repository.UserRepository
	Countries repository.CountryRepository
	Products  repository.ProductRepository
	Storage   BlobStorage
	Notifier  notification.Notifier
	Guide     GuideRenderer
	Log       zerolog.Logger
	Now       func() time.Time

	MaxQuotationBytes int64
	QuotationFolder   string
}

// LifecycleUseCase casos de uso del RMA.
type LifecycleUseCase struct {
	tx        TxRunner
	rmas      repository.RMARepository
	users     repository.UserRepository
	countries repository.CountryRepository
	products  repository.ProductRepository
	storage   BlobStorage
	notifier  notification.Notifier
	guide     GuideRenderer
	log       zerolog.Logger
	nowFn     func() time.Time

	maxQuotationBytes int64
	quotationFolder   string
	trackingFn        func(time.Time) string
}

// NewLifecycleUseCase construye el caso de uso.
func NewLifecycleUseCase(d Deps) *LifecycleUseCase {
	uc := &LifecycleUseCase{
		tx:                d.Tx,
		rmas:              d.RMAs,
		users:             d.Users,
		countries:         d.Countries,
		products:          d.Products,
		storage:           d.Storage,
		notifier:          d.Notifier,
		guide:             d.Guide,
		log:               d.Log.With().Str("component", "rma").Logger(),
		nowFn:             d.Now,
		maxQuotationBytes: d.MaxQuotationBytes,
		quotationFolder:   d.QuotationFolder,
		trackingFn:        lifecycle.NewTrackingCode,
	}
	if uc.nowFn == nil {
		uc.nowFn = time.Now
	}
	if uc.maxQuotationBytes <= 0 {
		uc.maxQuotationBytes = DefaultMaxQuotationBytes
	}
	if uc.quotationFolder == "" {
		uc.quotationFolder = DefaultQuotationFolder
	}
	return uc
}

// ProductLine línea de producto al crear un RMA.
type ProductLine struct {
	ProductID        string
	Serial           string
	Model            string
	EvaluationReport string
}

// SubmitInput datos para crear un RMA.
type SubmitInput struct {
	CountryID  string
	Address    string
	PostalCode string
	Service    string
	Products   []ProductLine
}

// QuotationFile documento de cotización subido por el admin.
type QuotationFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Submit crea un RMA en RMA_SUBMITTED a nombre del actor.
func (uc *LifecycleUseCase) Submit(ctx context.Context, actor entity.Actor, in SubmitInput) (*entity.RMA, error) {
	if _, err := access.Resolve(actor, access.KindRMA); err != nil {
		return nil, err
	}
	if len(in.Products) == 0 {
		return nil, domain.NewError(domain.ErrValidation, "Debe incluir al menos un producto")
	}
	country, err := uc.countries.GetByID(ctx, in.CountryID)
	if err != nil {
		return nil, domain.Wrap(domain.ErrInternal, "no se pudo obtener el país", err)
	}
	if country == nil {
		return nil, domain.ErrCountryNotFound
	}
	if !actor.HasCountry(country.ID) {
		return nil, domain.NewError(domain.ErrForbidden, "No tienes permisos para crear RMAs en este país")
	}
	owner, err := uc.users.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, domain.Wrap(domain.ErrInternal, "no se pudo obtener el usuario", err)
	}
	if owner == nil {
		return nil, domain.ErrUserNotFound
	}

	lines, err := uc.resolveLines(ctx, country.ID, in.Products)
	if err != nil {
		return nil, err
	}

	now := uc.nowFn()
	r := &entity.RMA{
		ID:          uuid.NewString(),
		UserID:      owner.ID,
		CountryID:   country.ID,
		CountryName: country.Name,
		Status:      entity.RMAStatusSubmitted,
		CompanyName: owner.Company,
		Address:     strings.TrimSpace(in.Address),
		PostalCode:  strings.TrimSpace(in.PostalCode),
		Service:     strings.TrimSpace(in.Service),
		Owner:       entity.Recipient{FirstName: owner.FirstName, LastName: owner.LastName, Email: owner.Email},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for i := range lines {
		lines[i].RMAID = r.ID
	}
	r.Products = lines

	if err := uc.tx.Run(ctx, func(rmaRepo repository.RMARepository) error {
		return rmaRepo.Create(ctx, r)
	}); err != nil {
		return nil, classify(err, "no se pudo crear el RMA")
	}
	uc.log.Info().Str("rma_id", r.ID).Str("user_id", owner.ID).Str("country_id", country.ID).Msg("RMA creado")
	return r, nil
}

func (uc *LifecycleUseCase) resolveLines(ctx context.Context, countryID string, in []ProductLine) ([]entity.RMAProduct, error) {
	ids := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, p := range in {
		if strings.TrimSpace(p.ProductID) == "" {
			return nil, domain.NewError(domain.ErrValidation, "Cada producto debe indicar productId")
		}
		if !seen[p.ProductID] {
			seen[p.ProductID] = true
			ids = append(ids, p.ProductID)
		}
	}
	found, err := uc.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, domain.Wrap(domain.ErrInternal, "no se pudieron obtener los productos", err)
	}
	byID := make(map[string]*entity.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	lines := make([]entity.RMAProduct, 0, len(in))
	for _, l := range in {
		p, ok := byID[l.ProductID]
		if !ok || !p.OfferedIn(countryID) {
			return nil, domain.NewError(domain.ErrValidation, "Algunos productos no están disponibles en el país seleccionado")
		}
		line := entity.RMAProduct{
			ID:          uuid.NewString(),
			ProductID:   p.ID,
			ProductName: p.Name,
			BrandName:   p.BrandName,
			Serial:      strings.TrimSpace(l.Serial),
			Model:       strings.TrimSpace(l.Model),
		}
		if rep := strings.TrimSpace(l.EvaluationReport); rep != "" {
			line.EvaluationReport = &rep
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// Approve aprueba el RMA, asigna tracking y avisa al dueño con la guía adjunta.
func (uc *LifecycleUseCase) Approve(ctx context.Context, actor entity.Actor, id string) (*entity.RMA, error) {
	code := uc.trackingFn(uc.nowFn())
	r, err := uc.transition(ctx, actor, id, lifecycle.ActionApprove, func(r *entity.RMA, now time.Time) error {
		return lifecycle.Approve(r, code, now)
	})
	if err != nil {
		return nil, err
	}
	var attachments []notification.Attachment
	if uc.guide != nil {
		pdf, gerr := uc.guide.RenderGuide(r)
		if gerr != nil {
			uc.log.Warn().Err(gerr).Str("rma_id", r.ID).Msg("no se pudo generar la guía")
		} else {
			attachments = append(attachments, notification.Attachment{
				Filename:    "guia-" + r.ID + ".pdf",
				ContentType: pdfContentType,
				Content:     pdf,
			})
		}
	}
	uc.notify(ctx, notification.KindRMAApproved, r, attachments...)
	return r, nil
}

// Reject rechaza el RMA con un motivo.
func (uc *LifecycleUseCase) Reject(ctx context.Context, actor entity.Actor, id, reason string) (*entity.RMA, error) {
	r, err := uc.transition(ctx, actor, id, lifecycle.ActionReject, func(r *entity.RMA, now time.Time) error {
		return lifecycle.Reject(r, reason, now)
	})
	if err != nil {
		return nil, err
	}
	uc.notify(ctx, notification.KindRMARejected, r)
	return r, nil
}

// MarkEvaluating registra la recepción del equipo.
func (uc *LifecycleUseCase) MarkEvaluating(ctx context.Context, actor entity.Actor, id string) (*entity.RMA, error) {
	r, err := uc.transition(ctx, actor, id, lifecycle.ActionReceive, lifecycle.Receive)
	if err != nil {
		return nil, err
	}
	uc.notify(ctx, notification.KindRMAEvaluating, r)
	return r, nil
}

// MarkPayment sube la cotización y deja el RMA esperando pago. Si la
// transacción falla después de subir, se borra el documento.
func (uc *LifecycleUseCase) MarkPayment(ctx context.Context, actor entity.Actor, id string, file QuotationFile, amount *decimal.Decimal) (*entity.RMA, error) {
	if err := lifecycle.Authorize(lifecycle.ActionQuote, actor.Role); err != nil {
		return nil, err
	}
	filter, err := access.Resolve(actor, access.KindRMA)
	if err != nil {
		return nil, err
	}
	if err := uc.validateQuotation(file); err != nil {
		return nil, err
	}

	current, err := uc.rmas.GetByID(ctx, id)
	if err != nil {
		return nil, domain.Wrap(domain.ErrInternal, "no se pudo obtener el RMA", err)
	}
	if current == nil || !filter.AllowsRMA(current) {
		return nil, domain.ErrRMANotFound
	}
	if err := lifecycle.CheckQuote(current); err != nil {
		return nil, err
	}

	key := path.Join(uc.quotationFolder, fmt.Sprintf("%s-%d.pdf", id, uc.nowFn().UnixMilli()))
	url, err := uc.storage.Upload(ctx, key, file.Content, pdfContentType)
	if err != nil {
		return nil, domain.Wrap(domain.ErrInternal, "no se pudo subir la cotización", err)
	}

	var out *entity.RMA
	err = uc.tx.Run(ctx, func(rmaRepo repository.RMARepository) error {
		r, err := uc.lockScoped(ctx, rmaRepo, filter, id)
		if err != nil {
			return err
		}
		if err := lifecycle.Quote(r, url, amount, uc.nowFn()); err != nil {
			return err
		}
		if err := rmaRepo.Update(ctx, r); err != nil {
			return err
		}
		out = r
		return nil
	})
	if err != nil {
		uc.discardUpload(ctx, url, id)
		return nil, classify(err, "no se pudo actualizar el RMA")
	}

	uc.log.Info().Str("rma_id", id).Str("status", string(out.Status)).Msg("transición aplicada")
	uc.notify(ctx, notification.KindRMAPayment, out, notification.Attachment{
		Filename:    "cotizacion-" + id + ".pdf",
		ContentType: pdfContentType,
		Content:     file.Content,
	})
	return out, nil
}

func (uc *LifecycleUseCase) validateQuotation(file QuotationFile) error {
	if len(file.Content) == 0 {
		return domain.NewError(domain.ErrValidation, "La cotización es requerida")
	}
	if int64(len(file.Content)) > uc.maxQuotationBytes {
		return domain.NewError(domain.ErrValidation,
			fmt.Sprintf("El archivo excede el tamaño máximo de %d MB", uc.maxQuotationBytes>>20))
	}
	isPDF := strings.EqualFold(file.ContentType, pdfContentType) ||
		strings.HasSuffix(strings.ToLower(file.Filename), ".pdf")
	if !isPDF {
		return domain.NewError(domain.ErrValidation, "Solo se permiten archivos PDF")
	}
	return nil
}

// discardUpload compensa una subida huérfana; su error solo se registra.
func (uc *LifecycleUseCase) discardUpload(ctx context.Context, url, rmaID string) {
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := uc.storage.Delete(dctx, url); err != nil {
		uc.log.Error().Err(err).Str("rma_id", rmaID).Str("url", url).Msg("no se pudo borrar la cotización huérfana")
		return
	}
	uc.log.Warn().Str("rma_id", rmaID).Str("url", url).Msg("cotización huérfana borrada")
}

// MarkProcessing confirma el pago. ordenCompra es opcional.
func (uc *LifecycleUseCase) MarkProcessing(ctx context.Context, actor entity.Actor, id, purchaseOrder string) (*entity.RMA, error) {
	r, err := uc.transition(ctx, actor, id, lifecycle.ActionConfirmPayment, func(r *entity.RMA, now time.Time) error {
		return lifecycle.ConfirmPayment(r, purchaseOrder, now)
	})
	if err != nil {
		return nil, err
	}
	uc.notify(ctx, notification.KindRMAProcessing, r)
	return r, nil
}

// MarkInShipping registra el envío de vuelta al cliente.
func (uc *LifecycleUseCase) MarkInShipping(ctx context.Context, actor entity.Actor, id, trackingInfo string) (*entity.RMA, error) {
	r, err := uc.transition(ctx, actor, id, lifecycle.ActionShip, func(r *entity.RMA, now time.Time) error {
		return lifecycle.Ship(r, trackingInfo, now)
	})
	if err != nil {
		return nil, err
	}
	uc.notify(ctx, notification.KindRMAInShipping, r)
	return r, nil
}

// MarkComplete cierra el RMA.
func (uc *LifecycleUseCase) MarkComplete(ctx context.Context, actor entity.Actor, id string) (*entity.RMA, error) {
	r, err := uc.transition(ctx, actor, id, lifecycle.ActionDeliverConfirm, lifecycle.DeliverConfirm)
	if err != nil {
		return nil, err
	}
	uc.notify(ctx, notification.KindRMAComplete, r)
	return r, nil
}

// Get devuelve un RMA visible para el actor.
func (uc *LifecycleUseCase) Get(ctx context.Context, actor entity.Actor, id string) (*entity.RMA, error) {
	filter, err := access.Resolve(actor, access.KindRMA)
	if err != nil {
		return nil, err
	}
	r, err := uc.rmas.GetByID(ctx, id)
	if err != nil {
		return nil, domain.Wrap(domain.ErrInternal, "no se pudo obtener el RMA", err)
	}
	if r == nil || !filter.AllowsRMA(r) {
		return nil, domain.ErrRMANotFound
	}
	return r, nil
}

// Guide genera la guía PDF de un RMA con tracking asignado.
func (uc *LifecycleUseCase) Guide(ctx context.Context, actor entity.Actor, id string) ([]byte, error) {
	r, err := uc.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if r.TrackingNumber == nil || *r.TrackingNumber == "" {
		return nil, domain.NewError(domain.ErrInvalidState, "El RMA no tiene número de tracking asignado")
	}
	if uc.guide == nil {
		return nil, domain.NewError(domain.ErrInternal, "generador de guías no configurado")
	}
	pdf, err := uc.guide.RenderGuide(r)
	if err != nil {
		return nil, domain.Wrap(domain.ErrInternal, "no se pudo generar la guía", err)
	}
	return pdf, nil
}

// ListInput filtros y paginación del listado.
type ListInput struct {
	Status    string
	Search    string
	CountryID string
	StartDate *time.Time
	EndDate   *time.Time
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
}

// ListResult página de RMAs.
type ListResult struct {
	Items      []*entity.RMA
	Page       int
	Limit      int
	Total      int
	TotalPages int
	HasNext    bool
	HasPrev    bool
}

var sortable = map[string]bool{
	repository.RMASortCreatedAt: true,
	repository.RMASortUpdatedAt: true,
	repository.RMASortStatus:    true,
	repository.RMASortCompany:   true,
}

// List pagina los RMAs visibles para el actor. Lista y total se consultan en paralelo.
func (uc *LifecycleUseCase) List(ctx context.Context, actor entity.Actor, in ListInput) (*ListResult, error) {
	filter, err := access.Resolve(actor, access.KindRMA)
	if err != nil {
		return nil, err
	}
	status := entity.RMAStatus(strings.ToUpper(strings.TrimSpace(in.Status)))
	if status != "" && !status.Valid() {
		return nil, domain.NewError(domain.ErrValidation, "Estado de RMA no válido")
	}
	if in.StartDate != nil && in.EndDate != nil && in.StartDate.After(*in.EndDate) {
		return nil, domain.NewError(domain.ErrValidation, "startDate debe ser anterior a endDate")
	}
	page, limit := in.Page, in.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	sortBy := in.SortBy
	if !sortable[sortBy] {
		sortBy = repository.RMASortCreatedAt
	}

	q := repository.RMAQuery{
		Filter:    filter.WithCountry(in.CountryID),
		Status:    status,
		Search:    strings.TrimSpace(in.Search),
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
		SortBy:    sortBy,
		SortDesc:  !strings.EqualFold(in.SortOrder, "asc"),
		Limit:     limit,
		Offset:    (page - 1) * limit,
	}

	out := &ListResult{Page: page, Limit: limit, Items: []*entity.RMA{}}
	if q.Filter.MatchesNothing() {
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := uc.rmas.List(gctx, q)
		if err != nil {
			return err
		}
		if items != nil {
			out.Items = items
		}
		return nil
	})
	g.Go(func() error {
		total, err := uc.rmas.Count(gctx, q)
		if err != nil {
			return err
		}
		out.Total = total
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, domain.Wrap(domain.ErrInternal, "no se pudieron listar los RMAs", err)
	}

	out.TotalPages = (out.Total + limit - 1) / limit
	out.HasNext = page < out.TotalPages
	out.HasPrev = page > 1
	return out, nil
}

// transition aplica una transición administrativa dentro de una transacción
// con la fila bloqueada.
func (uc *LifecycleUseCase) transition(
	ctx context.Context,
	actor entity.Actor,
	id string,
	action lifecycle.Action,
	apply func(r *entity.RMA, now time.Time) error,
) (*entity.RMA, error) {
	if err := lifecycle.Authorize(action, actor.Role); err != nil {
		return nil, err
	}
	filter, err := access.Resolve(actor, access.KindRMA)
	if err != nil {
		return nil, err
	}
	var out *entity.RMA
	err = uc.tx.Run(ctx, func(rmaRepo repository.RMARepository) error {
		r, err := uc.lockScoped(ctx, rmaRepo, filter, id)
		if err != nil {
			return err
		}
		if err := apply(r, uc.nowFn()); err != nil {
			return err
		}
		if err := rmaRepo.Update(ctx, r); err != nil {
			return err
		}
		out = r
		return nil
	})
	if err != nil {
		return nil, classify(err, "no se pudo actualizar el RMA")
	}
	uc.log.Info().
		Str("rma_id", id).
		Str("action", string(action)).
		Str("status", string(out.Status)).
		Str("actor_id", actor.ID).
		Msg("transición aplicada")
	return out, nil
}

func (uc *LifecycleUseCase) lockScoped(ctx context.Context, rmaRepo repository.RMARepository, filter access.Filter, id string) (*entity.RMA, error) {
	r, err := rmaRepo.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil || !filter.AllowsRMA(r) {
		return nil, domain.ErrRMANotFound
	}
	return r, nil
}

func (uc *LifecycleUseCase) notify(ctx context.Context, kind notification.Kind, r *entity.RMA, attachments ...notification.Attachment) {
	if uc.notifier == nil {
		return
	}
	uc.notifier.Notify(ctx, notification.ForRMA(kind, r, attachments...))
}

// classify conserva los errores de dominio y clasifica el resto como internos.
func classify(err error, msg string) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	return domain.Wrap(domain.ErrInternal, msg, err)
}
