// Package pdf implementa la representación gráfica de una factura validada por la
// autoridad fiscal.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  Razón social + NIT          │  N° fiscal + fecha validación │
//	│  EMISOR (sede o empresa)                                     │
//	│  ADQUIRIENTE                                                 │
//	│  Cant | Descripción | P.Unit | Desc% | IVA% | Subtotal       │
//	│  Subtotal / Descuentos / IVA / TOTAL                         │
//	│  CUFE + QR                                                   │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strings"

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
	"github.com/shopspring/decimal"

	appbilling "github.com/jhoicas/facturador-api/internal/application/billing"
	"github.com/jhoicas/facturador-api/internal/domain/entity"
	pkgdian "github.com/jhoicas/facturador-api/pkg/dian"
)

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// MarotoPDFGenerator implementa billing.InvoicePDFGenerator usando Maroto v2.
type MarotoPDFGenerator struct{}

// NewMarotoPDFGenerator construye el generador.
func NewMarotoPDFGenerator() *MarotoPDFGenerator { return &MarotoPDFGenerator{} }

var _ appbilling.InvoicePDFGenerator = (*MarotoPDFGenerator)(nil)

// GenerateInvoicePDF genera el PDF y devuelve sus bytes.
func (g *MarotoPDFGenerator) GenerateInvoicePDF(_ context.Context, data appbilling.InvoicePDFData) ([]byte, error) {
	if data.Invoice == nil || data.Company == nil {
		return nil, fmt.Errorf("pdf: factura y empresa son requeridas")
	}
	issuer := issuerFrom(data.Company, data.Branch)
	lines := computeLines(data.Items)

	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Factura Electrónica de Venta", true).
		WithAuthor(data.Company.Name, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(data.Invoice, data.Company))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(issuerRow(issuer))
	m.AddRows(customerRow(data.Customer))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(tableRows(lines.rows)...)

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(lines))

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(fiscalFooterRows(data.Invoice)...)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

type issuerInfo struct {
	address, phone, email string
}

// issuerFrom datos de contacto: sede → empresa.
func issuerFrom(company *entity.Company, branch *entity.Branch) issuerInfo {
	info := issuerInfo{address: company.Address, phone: company.Phone, email: company.Email}
	if branch != nil {
		info.address = nonEmpty(branch.Address, info.address)
		info.phone = nonEmpty(branch.Phone, info.phone)
		info.email = nonEmpty(branch.Email, info.email)
	}
	return info
}

// ── Montos ────────────────────────────────────────────────────────────────────

type lineAmounts struct {
	quantity     decimal.Decimal
	description  string
	unitPrice    decimal.Decimal
	discountRate decimal.Decimal
	taxRate      decimal.Decimal
	net          decimal.Decimal // cantidad * precio - descuento
}

type invoiceAmounts struct {
	rows     []lineAmounts
	gross    decimal.Decimal
	discount decimal.Decimal
	tax      decimal.Decimal
	total    decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// computeLines calcula subtotales con las mismas reglas por defecto del documento fiscal:
// montos ausentes = 0, IVA ausente = 19%, líneas excluidas sin IVA.
func computeLines(items []*entity.InvoiceItem) invoiceAmounts {
	var out invoiceAmounts
	for _, it := range items {
		if it == nil {
			continue
		}
		l := lineAmounts{
			quantity:     orZero(it.Quantity),
			description:  nonEmpty(it.Description, it.ProductCode),
			unitPrice:    orZero(it.UnitPrice),
			discountRate: orZero(it.DiscountRate),
			taxRate:      decimal.NewFromInt(pkgdian.DefaultTaxRatePercent),
		}
		if it.TaxRate.Valid {
			l.taxRate = it.TaxRate.Decimal
		}
		if it.IsExcluded {
			l.taxRate = decimal.Zero
		}
		gross := l.quantity.Mul(l.unitPrice)
		disc := gross.Mul(l.discountRate).Div(hundred)
		l.net = gross.Sub(disc)

		out.gross = out.gross.Add(gross)
		out.discount = out.discount.Add(disc)
		out.tax = out.tax.Add(l.net.Mul(l.taxRate).Div(hundred))
		out.rows = append(out.rows, l)
	}
	out.total = out.gross.Sub(out.discount).Add(out.tax)
	return out
}

func orZero(d decimal.NullDecimal) decimal.Decimal {
	if d.Valid {
		return d.Decimal
	}
	return decimal.Zero
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func headerRow(inv *entity.Invoice, company *entity.Company) core.Row {
	fecha := inv.IssuedAt
	if inv.ValidatedAt != nil {
		fecha = *inv.ValidatedAt
	}
	return row.New(18).Add(
		col.New(7).Add(
			text.New(company.Name, props.Text{Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1}),
			text.New("NIT: "+company.NIT, props.Text{Size: 9, Top: 9, Color: colorGray}),
		),
		col.New(5).Add(
			text.New("FACTURA ELECTRÓNICA DE VENTA", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right, Color: colorPrimary, Top: 1,
			}),
			text.New(nonEmpty(inv.FiscalNumber, inv.ReferenceCode), props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 7,
			}),
			text.New("Fecha: "+fecha.Format("02/01/2006 15:04"), props.Text{
				Size: 8, Align: align.Right, Top: 14, Color: colorGray,
			}),
		),
	)
}

func issuerRow(info issuerInfo) core.Row {
	return row.New(12).Add(
		col.New(12).Add(
			text.New("DATOS DEL EMISOR", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
			text.New(fmt.Sprintf("Dirección: %s   |   Tel: %s   |   Email: %s",
				nonEmpty(info.address, "—"), nonEmpty(info.phone, "—"), nonEmpty(info.email, "—"),
			), props.Text{Size: 8, Top: 7, Color: colorGray}),
		),
	)
}

func customerRow(c *entity.Customer) core.Row {
	name, ident, email, phone := pkgdian.DefaultCustomerName, "—", "—", "—"
	if c != nil {
		name = customerDisplayName(c)
		ident = nonEmpty(strings.TrimSpace(c.IdentificationType+" "+c.IdentificationNumber), "—")
		email = nonEmpty(c.Email, "—")
		phone = nonEmpty(c.Phone, "—")
	}
	return row.New(14).Add(
		col.New(12).Add(
			text.New("ADQUIRIENTE", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
			text.New(name, props.Text{Style: fontstyle.Bold, Size: 10, Top: 6}),
			text.New(fmt.Sprintf("Identificación: %s   |   Email: %s   |   Tel: %s", ident, email, phone),
				props.Text{Size: 8, Top: 12, Color: colorGray}),
		),
	)
}

func customerDisplayName(c *entity.Customer) string {
	if name := strings.TrimSpace(c.CompanyName); name != "" {
		return name
	}
	return nonEmpty(strings.TrimSpace(c.FirstName+" "+c.LastName), pkgdian.DefaultCustomerName)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a, Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Cant.", 1, align.Center),
		h("Descripción", 5, align.Left),
		h("Precio Unit.", 2, align.Right),
		h("Desc%", 1, align.Center),
		h("IVA%", 1, align.Center),
		h("Subtotal", 2, align.Right),
	)
}

func tableRows(lines []lineAmounts) []core.Row {
	result := make([]core.Row, 0, len(lines))
	for _, l := range lines {
		result = append(result, row.New(7).Add(
			col.New(1).Add(text.New(l.quantity.String(), props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(5).Add(text.New(l.description, props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1})),
			col.New(2).Add(text.New(money(l.unitPrice), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
			col.New(1).Add(text.New(l.discountRate.String()+"%", props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(1).Add(text.New(l.taxRate.String()+"%", props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(2).Add(text.New(money(l.net), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
		))
	}
	return result
}

func totalsRow(a invoiceAmounts) core.Row {
	label := func(s string) core.Component {
		return text.New(s, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2})
	}
	value := func(s string, top float64) core.Component {
		return text.New(s, props.Text{Size: 9, Align: align.Right, Right: 1, Top: top})
	}
	return row.New(26).Add(
		col.New(6),
		col.New(3).Add(
			label("Subtotal:"),
			text.New("Descuentos:", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2, Top: 5}),
			text.New("IVA:", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2, Top: 10}),
			text.New("TOTAL A PAGAR:", props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Right: 2, Top: 16}),
		),
		col.New(3).Add(
			value(money(a.gross), 0),
			value(money(a.discount), 5),
			value(money(a.tax), 10),
			text.New(money(a.total), props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Right: 1, Top: 16}),
		),
	)
}

// fiscalFooterRows: CUFE partido + QR devuelto por la autoridad.
func fiscalFooterRows(inv *entity.Invoice) []core.Row {
	rows := []core.Row{
		row.New(6).Add(col.New(12).Add(
			text.New("INFORMACIÓN ELECTRÓNICA", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
		)),
		row.New(5).Add(col.New(12).Add(
			text.New("CUFE:", props.Text{Style: fontstyle.Bold, Size: 7, Top: 1}),
		)),
	}
	for _, chunk := range splitEvery(inv.CUFE, 80) {
		rows = append(rows, row.New(4).Add(col.New(12).Add(
			text.New(chunk, props.Text{Size: 6.5, Color: colorGray, Top: 0.5, Left: 2}),
		)))
	}
	if inv.QRPayload != "" {
		rows = append(rows, row.New(3), row.New(50).Add(
			col.New(4).Add(code.NewQr(inv.QRPayload, props.Rect{Percent: 95, Center: true})),
			col.New(8).Add(
				text.New("Escanee el código QR para consultar\nel documento en el portal de la DIAN.", props.Text{
					Size: 8, Top: 4, Left: 3, Color: colorGray,
				}),
			),
		))
	}
	return rows
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// money formatea un monto redondeado a pesos con puntos de miles: 1234567.6 → "$1.234.568".
func money(d decimal.Decimal) string {
	s := d.Round(0).StringFixed(0)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	return sign + "$" + formatThousands(s)
}

// formatThousands inserta puntos de miles en un entero sin signo: "1000000" → "1.000.000".
func formatThousands(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}
	buf := make([]byte, 0, n+n/3)
	for i, c := range []byte(s) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, c)
	}
	return string(buf)
}

func splitEvery(s string, n int) []string {
	var parts []string
	for len(s) > n {
		parts = append(parts, s[:n])
		s = s[n:]
	}
	if s != "" {
		parts = append(parts, s)
	}
	return parts
}
