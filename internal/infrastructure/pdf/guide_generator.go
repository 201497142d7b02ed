// Package pdf genera la guía de devolución de un RMA aprobado.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Sistema RMA           │  N° RMA + Fecha            │
//	│  ─────────────────────────────────────────────────────────  │
//	│  CLIENTE: Empresa / Contacto / Dirección                    │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Producto | Marca | Modelo | Serial                   │
//	│  ─────────────────────────────────────────────────────────  │
//	│  FOOTER: Tracking + QR + Instrucciones de envío              │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"errors"
	"fmt"
	"strings"
	"time"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/jhoicas/rma-api/internal/application/rma"
	"github.com/jhoicas/rma-api/internal/domain/entity"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// ── Generator ─────────────────────────────────────────────────────────────────

var _ rma.GuideRenderer = (*GuideGenerator)(nil)

// ErrNoTracking el RMA aún no tiene número de tracking.
var ErrNoTracking = errors.New("pdf: el RMA no tiene número de tracking")

// GuideGenerator implementa rma.GuideRenderer usando Maroto v2.
type GuideGenerator struct {
	company string
	address string
}

// NewGuideGenerator construye el generador. company y address son los datos
// de la bodega que recibe los equipos.
func NewGuideGenerator(company, address string) *GuideGenerator {
	return &GuideGenerator{company: nonEmpty(company, "Sistema RMA"), address: address}
}

// RenderGuide genera el PDF y devuelve sus bytes.
func (g *GuideGenerator) RenderGuide(r *entity.RMA) ([]byte, error) {
	if r == nil || r.TrackingNumber == nil || *r.TrackingNumber == "" {
		return nil, ErrNoTracking
	}
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Guía RMA "+r.ID, true).
		WithAuthor(g.company, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(g.headerRow(r))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(clientRow(r))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(tableProductRows(r.Products)...)

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(g.trackingRows(*r.TrackingNumber)...)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar guía: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func (g *GuideGenerator) headerRow(r *entity.RMA) core.Row {
	return row.New(18).Add(
		col.New(7).Add(
			text.New(g.company, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("Guía de devolución de equipos", props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New("RMA", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right,
				Color: colorPrimary, Top: 1,
			}),
			text.New("#"+r.ID, props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 7,
			}),
			text.New("Fecha: "+r.CreatedAt.Format("02/01/2006"), props.Text{
				Size: 8, Align: align.Right, Top: 14, Color: colorGray,
			}),
		),
	)
}

func clientRow(r *entity.RMA) core.Row {
	contact := strings.TrimSpace(r.Owner.FirstName + " " + r.Owner.LastName)
	return row.New(20).Add(
		col.New(12).Add(
			text.New("CLIENTE", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(nonEmpty(r.CompanyName, contact), props.Text{
				Style: fontstyle.Bold, Size: 10, Top: 6,
			}),
			text.New(fmt.Sprintf("Contacto: %s   |   Email: %s   |   País: %s",
				nonEmpty(contact, "-"),
				nonEmpty(r.Owner.Email, "-"),
				nonEmpty(r.CountryName, r.CountryID),
			), props.Text{Size: 8, Top: 12, Color: colorGray}),
			text.New(fmt.Sprintf("Dirección: %s   |   CP: %s   |   Servicio: %s",
				nonEmpty(r.Address, "-"),
				nonEmpty(r.PostalCode, "-"),
				nonEmpty(r.Service, "-"),
			), props.Text{Size: 8, Top: 16, Color: colorGray}),
		),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 2, Left: 1,
		}))
	}
	return row.New(8).Add(
		h("Producto", 4),
		h("Marca", 3),
		h("Modelo", 2),
		h("Serial", 3),
	)
}

func tableProductRows(products []entity.RMAProduct) []core.Row {
	result := make([]core.Row, 0, len(products))
	cell := func(s string, size int) core.Col {
		return col.New(size).Add(text.New(nonEmpty(s, "-"), props.Text{Size: 8, Top: 1, Left: 1}))
	}
	for _, p := range products {
		result = append(result, row.New(7).Add(
			cell(nonEmpty(p.ProductName, p.ProductID), 4),
			cell(p.BrandName, 3),
			cell(p.Model, 2),
			cell(p.Serial, 3),
		))
	}
	return result
}

// trackingRows: número de tracking + QR + instrucciones.
func (g *GuideGenerator) trackingRows(tracking string) []core.Row {
	instructions := "Imprime esta guía e inclúyela dentro del paquete.\n" +
		"Marca la caja exterior con el número de tracking."
	if g.address != "" {
		instructions += "\nEnvía los equipos a: " + g.address
	}
	return []core.Row{
		row.New(6).Add(col.New(12).Add(
			text.New("INFORMACIÓN DE ENVÍO", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
		)),
		row.New(50).Add(
			col.New(4).Add(code.NewQr(tracking, props.Rect{
				Percent: 95,
				Center:  true,
			})),
			col.New(8).Add(
				text.New(tracking, props.Text{
					Style: fontstyle.Bold, Size: 14, Top: 4, Left: 3, Color: colorPrimary,
				}),
				text.New(instructions, props.Text{
					Size: 8, Top: 16, Left: 3, Color: colorGray,
				}),
			),
		),
		row.New(8).Add(col.New(12).Add(
			text.New("Generado el "+time.Now().Format("02/01/2006 15:04"), props.Text{
				Size: 6.5, Color: colorGray, Top: 2,
			}),
		)),
	}
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
