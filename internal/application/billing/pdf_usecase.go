package billing

import (
	"context"
	"fmt"

	"github.com/jhoicas/facturador-api/internal/domain"
	"github.com/jhoicas/facturador-api/internal/domain/repository"
)

// PDFUseCase genera la representación gráfica (PDF) de una factura validada.
type PDFUseCase struct {
	invoiceRepo  repository.InvoiceRepository
	companyRepo  repository.CompanyRepository
	customerRepo repository.CustomerRepository
	generator    InvoicePDFGenerator
}

// NewPDFUseCase construye el caso de uso inyectando todas sus dependencias.
func NewPDFUseCase(
	invoiceRepo repository.InvoiceRepository,
	companyRepo repository.CompanyRepository,
	customerRepo repository.CustomerRepository,
	generator InvoicePDFGenerator,
) *PDFUseCase {
	return &PDFUseCase{
		invoiceRepo:  invoiceRepo,
		companyRepo:  companyRepo,
		customerRepo: customerRepo,
		generator:    generator,
	}
}

// DownloadInvoicePDF genera el PDF de la factura.
//
// Retorna:
//   - (pdfBytes, filename, nil)  si todo sale bien.
//   - domain.ErrNotFound         si la factura no existe.
//   - domain.ErrForbidden        si la factura no pertenece a la empresa del token.
//   - domain.ErrConflict         si la factura aún no fue validada (sin CUFE).
func (uc *PDFUseCase) DownloadInvoicePDF(ctx context.Context, companyID, invoiceID string) (pdfBytes []byte, filename string, err error) {
	inv, err := uc.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: obtener factura: %w", err)
	}
	if inv == nil {
		return nil, "", domain.ErrNotFound
	}
	if inv.CompanyID != companyID {
		return nil, "", domain.ErrForbidden
	}
	if !inv.IsValidated() || inv.CUFE == "" {
		return nil, "", fmt.Errorf("%w: la factura está en estado %s, debe ser validada antes de descargar el PDF",
			domain.ErrConflict, inv.Status)
	}

	data := InvoicePDFData{Invoice: inv}
	if data.Company, err = uc.companyRepo.GetByID(ctx, companyID); err != nil || data.Company == nil {
		return nil, "", fmt.Errorf("pdf: obtener empresa: %w", errOrNotFound(err))
	}
	if inv.BranchID != "" {
		if data.Branch, err = uc.companyRepo.GetBranchByID(ctx, inv.BranchID); err != nil {
			return nil, "", fmt.Errorf("pdf: obtener sede: %w", err)
		}
	}
	if inv.CustomerID != "" {
		if data.Customer, err = uc.customerRepo.GetByID(ctx, inv.CustomerID); err != nil {
			return nil, "", fmt.Errorf("pdf: obtener cliente: %w", err)
		}
	}
	if data.Items, err = uc.invoiceRepo.GetItemsByInvoiceID(ctx, invoiceID); err != nil {
		return nil, "", fmt.Errorf("pdf: obtener líneas: %w", err)
	}

	pdfBytes, err = uc.generator.GenerateInvoicePDF(ctx, data)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: generación fallida: %w", err)
	}
	return pdfBytes, fmt.Sprintf("factura_%s.pdf", firstNonEmpty(inv.FiscalNumber, inv.ID)), nil
}

func errOrNotFound(err error) error {
	if err != nil {
		return err
	}
	return domain.ErrNotFound
}
