package dian

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/facturador-api/internal/domain/entity"
	pkgdian "github.com/jhoicas/facturador-api/pkg/dian"
)

// InvoiceSource factura con las partes que el documento fiscal necesita.
// Branch es opcional.
type InvoiceSource struct {
	Invoice  *entity.Invoice
	Customer *entity.Customer
	Company  *entity.Company
	Branch   *entity.Branch
}

// MapInvoiceToFiscalDocument transforma la factura interna al esquema del proveedor fiscal.
//
// Es una función pura: sin I/O y determinística para las mismas entradas. No falla por
// datos opcionales faltantes (aplica defaults); las precondiciones duras (factura existente,
// rango de numeración) las valida el caller. municipalityID <= 0 significa "no resuelto".
func MapInvoiceToFiscalDocument(
	src InvoiceSource,
	items []*entity.InvoiceItem,
	numberingRange *entity.NumberingRange,
	municipalityID int,
) FiscalDocumentV1 {
	inv := src.Invoice
	if inv == nil {
		inv = &entity.Invoice{}
	}

	doc := FiscalDocumentV1{
		Document:          firstNonEmpty(inv.DocumentType, entity.DocumentTypeInvoice),
		ReferenceCode:     referenceCode(inv),
		Observation:       strings.TrimSpace(inv.Notes),
		PaymentForm:       firstNonEmpty(inv.PaymentForm, entity.PaymentFormCash),
		PaymentMethodCode: paymentMethodCode(inv),
		Establishment:     establishment(src.Company, src.Branch),
		Customer:          customer(src.Customer, municipalityID),
		Items:             make([]ItemV1, 0, len(items)),
	}
	if numberingRange != nil {
		doc.NumberingRangeID = numberingRange.ExternalID
	}
	if doc.PaymentForm == entity.PaymentFormCredit && inv.DueDate != nil {
		doc.PaymentDueDate = inv.DueDate.Format("2006-01-02")
	}
	for _, it := range items {
		if it == nil {
			continue
		}
		doc.Items = append(doc.Items, item(it))
	}
	return doc
}

// referenceCode: el de la factura o "INV-" + primeros 8 caracteres del id.
func referenceCode(inv *entity.Invoice) string {
	if ref := strings.TrimSpace(inv.ReferenceCode); ref != "" {
		return ref
	}
	id := []rune(inv.ID)
	if len(id) > 8 {
		id = id[:8]
	}
	return pkgdian.ReferenceCodePrefix + string(id)
}

// paymentMethodCode: código explícito, si no la etiqueta humana por tabla, si no efectivo.
func paymentMethodCode(inv *entity.Invoice) string {
	if code := strings.TrimSpace(inv.PaymentMethodCode); code != "" {
		return code
	}
	if code, ok := pkgdian.PaymentMethodCodeFromLabel(inv.PaymentMethod); ok {
		return code
	}
	return pkgdian.DefaultPaymentMethodCode
}

// establishment: cada campo cae de sede a empresa y luego a "".
func establishment(company *entity.Company, branch *entity.Branch) EstablishmentV1 {
	var c entity.Company
	var b entity.Branch
	if company != nil {
		c = *company
	}
	if branch != nil {
		b = *branch
	}
	return EstablishmentV1{
		Name:        firstNonEmpty(b.Name, c.Name),
		Address:     firstNonEmpty(b.Address, c.Address),
		PhoneNumber: firstNonEmpty(b.Phone, c.Phone),
		Email:       firstNonEmpty(b.Email, c.Email),
	}
}

func customer(cust *entity.Customer, municipalityID int) CustomerV1 {
	var c entity.Customer
	if cust != nil {
		c = *cust
	}
	if municipalityID <= 0 {
		municipalityID = pkgdian.DefaultMunicipalityID
	}

	out := CustomerV1{
		Identification:           strings.TrimSpace(c.IdentificationNumber),
		Company:                  strings.TrimSpace(c.CompanyName),
		TradeName:                strings.TrimSpace(c.TradeName),
		Names:                    displayName(c.FirstName, c.LastName),
		Address:                  strings.TrimSpace(c.Address),
		Email:                    strings.TrimSpace(c.Email),
		Phone:                    strings.TrimSpace(c.Phone),
		LegalOrganizationID:      pkgdian.LegalOrganizationNatural,
		TributeID:                pkgdian.CustomerTributeNoAplica,
		IdentificationDocumentID: pkgdian.IdentificationDocumentID(c.IdentificationType),
		MunicipalityID:           strconv.Itoa(municipalityID),
	}
	if pkgdian.IsNIT(c.IdentificationType) {
		out.LegalOrganizationID = pkgdian.LegalOrganizationJuridica
		out.TributeID = pkgdian.CustomerTributeIVA
		if number, dv, err := pkgdian.SplitNIT(c.IdentificationNumber); err == nil {
			out.Identification = number
			out.DV = dv
		}
	}
	return out
}

func displayName(first, last string) string {
	name := strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
	if name == "" {
		return pkgdian.DefaultCustomerName
	}
	return name
}

func item(it *entity.InvoiceItem) ItemV1 {
	taxRate := decimal.NewFromInt(pkgdian.DefaultTaxRatePercent)
	if it.TaxRate.Valid {
		taxRate = it.TaxRate.Decimal
	}
	unit := it.UnitMeasureID
	if unit <= 0 {
		unit = pkgdian.DefaultUnitMeasureID
	}
	excluded := 0
	if it.IsExcluded {
		excluded = 1
	}
	return ItemV1{
		CodeReference:  firstNonEmpty(it.ProductCode, it.ID),
		Name:           strings.TrimSpace(it.Description),
		Quantity:       Number{orZero(it.Quantity)},
		DiscountRate:   Number{orZero(it.DiscountRate)},
		Price:          Number{orZero(it.UnitPrice)},
		TaxRate:        taxRate.StringFixed(2),
		UnitMeasureID:  unit,
		StandardCodeID: pkgdian.DefaultStandardCodeID,
		IsExcluded:     excluded,
		TributeID:      pkgdian.ItemTributeIVA,
	}
}

func orZero(v decimal.NullDecimal) decimal.Decimal {
	if v.Valid {
		return v.Decimal
	}
	return decimal.Zero
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
