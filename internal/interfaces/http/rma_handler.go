package http

import (
	"io"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/rma-api/internal/application/dto"
	"github.com/jhoicas/rma-api/internal/application/rma"
	"github.com/jhoicas/rma-api/internal/domain/entity"
)

// quotationField campo multipart con el PDF de la cotización.
const quotationField = "cotizacion"

// RMAHandler maneja creación, consulta y transiciones de RMAs.
type RMAHandler struct {
	uc *rma.LifecycleUseCase
}

// NewRMAHandler construye el handler de RMAs.
func NewRMAHandler(uc *rma.LifecycleUseCase) *RMAHandler {
	return &RMAHandler{uc: uc}
}

// List godoc
// @Summary      Listar RMAs
// @Description  USER ve solo los suyos; ADMIN los de sus países; SUPERADMIN todos.
// @Tags         rma
// @Produce      json
// @Security     BearerAuth
// @Param        page       query  int     false  "Página (default 1)"
// @Param        limit      query  int     false  "Tamaño de página (default 10, max 100)"
// @Param        status     query  string  false  "Estado"
// @Param        search     query  string  false  "Búsqueda en empresa, tracking y dueño"
// @Param        countryId  query  string  false  "País"
// @Param        startDate  query  string  false  "Desde (ISO 8601)"
// @Param        endDate    query  string  false  "Hasta (ISO 8601)"
// @Param        sortBy     query  string  false  "createdAt, updatedAt, status, nombreEmpresa"
// @Param        sortOrder  query  string  false  "asc o desc"
// @Success      200  {object}  dto.RMAListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/rma [get]
func (h *RMAHandler) List(c *fiber.Ctx) error {
	in := rma.ListInput{
		Status:    c.Query("status"),
		Search:    c.Query("search"),
		CountryID: c.Query("countryId"),
		Page:      c.QueryInt("page", 1),
		Limit:     c.QueryInt("limit", 10),
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
	}
	var err error
	if in.StartDate, err = parseDate(c.Query("startDate"), false); err != nil {
		return badRequest(c, "VALIDATION", "startDate debe ser una fecha ISO 8601")
	}
	if in.EndDate, err = parseDate(c.Query("endDate"), true); err != nil {
		return badRequest(c, "VALIDATION", "endDate debe ser una fecha ISO 8601")
	}
	res, err := h.uc.List(c.UserContext(), GetActor(c), in)
	if err != nil {
		return respondError(c, err)
	}
	items := make([]dto.RMAResponse, 0, len(res.Items))
	for _, r := range res.Items {
		items = append(items, *dto.ToRMAResponse(r))
	}
	return c.JSON(dto.RMAListResponse{
		Items: items,
		Page: dto.PageResponse{
			Page:       res.Page,
			Limit:      res.Limit,
			Total:      res.Total,
			TotalPages: res.TotalPages,
			HasNext:    res.HasNext,
			HasPrev:    res.HasPrev,
		},
	})
}

// reply responde el RMA resultante de una transición o el error mapeado.
func (h *RMAHandler) reply(c *fiber.Ctx) func(*entity.RMA, error) error {
	return func(r *entity.RMA, err error) error {
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(dto.ToRMAResponse(r))
	}
}

// parseDate acepta RFC 3339 o solo fecha. Una fecha final sin hora cubre el día completo.
func parseDate(s string, endOfDay bool) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

// Create godoc
// @Summary      Crear RMA
// @Tags         rma
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body  dto.CreateRMARequest  true  "país, dirección, servicio y productos"
// @Success      201  {object}  dto.RMAResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/rma [post]
func (h *RMAHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateRMARequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	lines := make([]rma.ProductLine, 0, len(in.Products))
	for _, p := range in.Products {
		lines = append(lines, rma.ProductLine{
			ProductID:        p.ProductID,
			Serial:           p.Serial,
			Model:            p.Model,
			EvaluationReport: p.EvaluationReport,
		})
	}
	out, err := h.uc.Submit(c.UserContext(), GetActor(c), rma.SubmitInput{
		CountryID:  in.CountryID,
		Address:    in.Address,
		PostalCode: in.PostalCode,
		Service:    in.Service,
		Products:   lines,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToRMAResponse(out))
}

// Get godoc
// @Summary      Obtener RMA
// @Tags         rma
// @Produce      json
// @Security     BearerAuth
// @Param        id   path  string  true  "RMA ID"
// @Success      200  {object}  dto.RMAResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/rma/{id} [get]
func (h *RMAHandler) Get(c *fiber.Ctx) error {
	out, err := h.uc.Get(c.UserContext(), GetActor(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ToRMAResponse(out))
}

// Guide godoc
// @Summary      Guía de envío en PDF
// @Description  Disponible desde que el RMA tiene número de tracking.
// @Tags         rma
// @Produce      application/pdf
// @Security     BearerAuth
// @Param        id   path  string  true  "RMA ID"
// @Success      200  {file}    binary
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/rma/{id}/guide [get]
func (h *RMAHandler) Guide(c *fiber.Ctx) error {
	id := c.Params("id")
	pdf, err := h.uc.Guide(c.UserContext(), GetActor(c), id)
	if err != nil {
		return respondError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="guia-`+id+`.pdf"`)
	return c.Send(pdf)
}

// Approve godoc
// @Summary      Aprobar RMA
// @Description  RMA_SUBMITTED → AWAITING_GOODS; asigna número de tracking.
// @Tags         rma
// @Produce      json
// @Security     BearerAuth
// @Param        id   path  string  true  "RMA ID"
// @Success      200  {object}  dto.RMAResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/rma/{id}/approve [patch]
func (h *RMAHandler) Approve(c *fiber.Ctx) error {
	return h.reply(c)(h.uc.Approve(c.UserContext(), GetActor(c), c.Params("id")))
}

// Reject godoc
// @Summary      Rechazar RMA
// @Tags         rma
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path  string                true  "RMA ID"
// @Param        body  body  dto.RejectRMARequest  true  "razonRechazo"
// @Success      200  {object}  dto.RMAResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/rma/{id}/reject [patch]
func (h *RMAHandler) Reject(c *fiber.Ctx) error {
	var in dto.RejectRMARequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	return h.reply(c)(h.uc.Reject(c.UserContext(), GetActor(c), c.Params("id"), in.Reason))
}

// Evaluating godoc
// @Summary      Marcar RMA en evaluación
// @Description  AWAITING_GOODS → EVALUATING.
// @Tags         rma
// @Produce      json
// @Security     BearerAuth
// @Param        id   path  string  true  "RMA ID"
// @Success      200  {object}  dto.RMAResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/rma/{id}/evaluating [patch]
func (h *RMAHandler) Evaluating(c *fiber.Ctx) error {
	return h.reply(c)(h.uc.MarkEvaluating(c.UserContext(), GetActor(c), c.Params("id")))
}

// Payment godoc
// @Summary      Solicitar pago con cotización
// @Description  EVALUATING → PAYMENT. Requiere el PDF de la cotización (máx. 5 MB).
// @Tags         rma
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        id          path      string  true   "RMA ID"
// @Param        cotizacion  formData  file    true   "Cotización en PDF"
// @Param        monto       formData  string  false  "Monto de la cotización"
// @Success      200  {object}  dto.RMAResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/rma/{id}/payment [patch]
func (h *RMAHandler) Payment(c *fiber.Ctx) error {
	fh, err := c.FormFile(quotationField)
	if err != nil {
		return badRequest(c, "VALIDATION", "La cotización es requerida")
	}
	f, err := fh.Open()
	if err != nil {
		return badRequest(c, "INVALID_FILE", "no se pudo leer el archivo")
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return badRequest(c, "INVALID_FILE", "no se pudo leer el archivo")
	}

	var amount *decimal.Decimal
	if raw := strings.TrimSpace(c.FormValue("monto")); raw != "" {
		d, err := decimal.NewFromString(raw)
		if err != nil || d.IsNegative() {
			return badRequest(c, "VALIDATION", "El monto debe ser un número positivo")
		}
		amount = &d
	}

	file := rma.QuotationFile{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Content:     content,
	}
	return h.reply(c)(h.uc.MarkPayment(c.UserContext(), GetActor(c), c.Params("id"), file, amount))
}

// Processing godoc
// @Summary      Confirmar pago
// @Description  PAYMENT → PROCESSING; la orden de compra es opcional.
// @Tags         rma
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path  string                    true   "RMA ID"
// @Param        body  body  dto.ProcessingRMARequest  false  "ordenCompra"
// @Success      200  {object}  dto.RMAResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/rma/{id}/processing [patch]
func (h *RMAHandler) Processing(c *fiber.Ctx) error {
	var in dto.ProcessingRMARequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "INVALID_BODY", "cuerpo inválido")
		}
	}
	return h.reply(c)(h.uc.MarkProcessing(c.UserContext(), GetActor(c), c.Params("id"), in.PurchaseOrder))
}

// Shipping godoc
// @Summary      Marcar RMA en envío
// @Description  PROCESSING → IN_SHIPPING.
// @Tags         rma
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path  string                  true  "RMA ID"
// @Param        body  body  dto.ShippingRMARequest  true  "trackingEnvio"
// @Success      200  {object}  dto.RMAResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/rma/{id}/shipping [patch]
func (h *RMAHandler) Shipping(c *fiber.Ctx) error {
	var in dto.ShippingRMARequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	return h.reply(c)(h.uc.MarkInShipping(c.UserContext(), GetActor(c), c.Params("id"), in.TrackingInfo))
}

// Complete godoc
// @Summary      Completar RMA
// @Description  IN_SHIPPING → COMPLETE.
// @Tags         rma
// @Produce      json
// @Security     BearerAuth
// @Param        id   path  string  true  "RMA ID"
// @Success      200  {object}  dto.RMAResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/rma/{id}/complete [patch]
func (h *RMAHandler) Complete(c *fiber.Ctx) error {
	return h.reply(c)(h.uc.MarkComplete(c.UserContext(), GetActor(c), c.Params("id")))
}
