package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/facturador-api/internal/domain"
	"github.com/jhoicas/facturador-api/internal/domain/entity"
	"github.com/jhoicas/facturador-api/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// InvoiceRepo implementa InvoiceRepository sobre PostgreSQL.
type InvoiceRepo struct {
	db Querier
}

// NewInvoiceRepository construye el repositorio (pool o tx).
func NewInvoiceRepository(db Querier) *InvoiceRepo {
	return &InvoiceRepo{db: db}
}

// GetByID obtiene la cabecera de la factura. nil, nil si no existe.
func (r *InvoiceRepo) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	const q = `
		SELECT id, company_id, COALESCE(branch_id::text, ''), COALESCE(customer_id::text, ''),
		       document_type, COALESCE(reference_code, ''), COALESCE(payment_method_code, ''),
		       COALESCE(payment_method, ''), payment_form, due_date, COALESCE(notes, ''), status,
		       issued_at, COALESCE(cufe, ''), COALESCE(qr_payload, ''), COALESCE(fiscal_number, ''),
		       validated_at, created_at, updated_at
		FROM invoices WHERE id = $1`
	var inv entity.Invoice
	err := r.db.QueryRow(ctx, q, id).Scan(
		&inv.ID, &inv.CompanyID, &inv.BranchID, &inv.CustomerID,
		&inv.DocumentType, &inv.ReferenceCode, &inv.PaymentMethodCode,
		&inv.PaymentMethod, &inv.PaymentForm, &inv.DueDate, &inv.Notes, &inv.Status,
		&inv.IssuedAt, &inv.CUFE, &inv.QRPayload, &inv.FiscalNumber,
		&inv.ValidatedAt, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	return &inv, nil
}

// GetItemsByInvoiceID devuelve las líneas en orden de posición. Los montos NULL quedan
// como NullDecimal inválido.
func (r *InvoiceRepo) GetItemsByInvoiceID(ctx context.Context, invoiceID string) ([]*entity.InvoiceItem, error) {
	const q = `
		SELECT id, invoice_id, COALESCE(product_code, ''), COALESCE(description, ''),
		       quantity, discount_rate, unit_price, tax_rate, unit_measure_id, is_excluded, position
		FROM invoice_items WHERE invoice_id = $1
		ORDER BY position, id`
	rows, err := r.db.Query(ctx, q, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list invoice_items: %w", err)
	}
	defer rows.Close()

	var items []*entity.InvoiceItem
	for rows.Next() {
		var it entity.InvoiceItem
		if err := rows.Scan(
			&it.ID, &it.InvoiceID, &it.ProductCode, &it.Description,
			&it.Quantity, &it.DiscountRate, &it.UnitPrice, &it.TaxRate,
			&it.UnitMeasureID, &it.IsExcluded, &it.Position,
		); err != nil {
			return nil, fmt.Errorf("scan invoice_item: %w", err)
		}
		items = append(items, &it)
	}
	return items, rows.Err()
}

// MarkValidated registra la respuesta fiscal. Una factura ya validada no se modifica.
func (r *InvoiceRepo) MarkValidated(ctx context.Context, invoiceID string, res repository.FiscalResult) error {
	const q = `
		UPDATE invoices
		SET cufe = $2, qr_payload = $3, fiscal_number = $4, validated_at = $5,
		    status = 'validated', updated_at = $5
		WHERE id = $1 AND status <> 'validated'`
	tag, err := r.db.Exec(ctx, q, invoiceID, res.CUFE, res.QRPayload, res.FiscalNumber, res.ValidatedAt)
	if err != nil {
		return fmt.Errorf("mark invoice validated: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mark invoice validated %s: %w", invoiceID, domain.ErrConflict)
	}
	return nil
}
