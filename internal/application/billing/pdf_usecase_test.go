package billing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturador-api/internal/domain"
	"github.com/jhoicas/facturador-api/internal/domain/entity"
)

type fakePDFGenerator struct {
	got InvoicePDFData
}

func (g *fakePDFGenerator) GenerateInvoicePDF(_ context.Context, data InvoicePDFData) ([]byte, error) {
	g.got = data
	return []byte("%PDF-fake"), nil
}

func TestDownloadInvoicePDF(t *testing.T) {
	h := newHarness(t, testCredentials())
	gen := &fakePDFGenerator{}
	uc := NewPDFUseCase(h.invoices, h.manager.repos.Companies, h.manager.repos.Customers, gen)

	// sin validar todavía
	_, _, err := uc.DownloadInvoicePDF(context.Background(), companyID, invoiceID)
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = h.manager.SubmitInvoice(context.Background(), companyID, invoiceID)
	require.NoError(t, err)

	out, filename, err := uc.DownloadInvoicePDF(context.Background(), companyID, invoiceID)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-fake", string(out))
	assert.Equal(t, "factura_SETP990000001.pdf", filename)
	assert.Equal(t, "cufe-123", gen.got.Invoice.CUFE)
	require.NotNil(t, gen.got.Customer)
	assert.Equal(t, "Ana", gen.got.Customer.FirstName)
	assert.Len(t, gen.got.Items, 1)
}

func TestDownloadInvoicePDF_Acceso(t *testing.T) {
	h := newHarness(t, testCredentials())
	h.invoices.invoices[invoiceID].Status = entity.InvoiceStatusValidated
	h.invoices.invoices[invoiceID].CUFE = "x"
	uc := NewPDFUseCase(h.invoices, h.manager.repos.Companies, h.manager.repos.Customers, &fakePDFGenerator{})

	_, _, err := uc.DownloadInvoicePDF(context.Background(), "company-2", invoiceID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, _, err = uc.DownloadInvoicePDF(context.Background(), companyID, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
