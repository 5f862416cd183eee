package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/domain"
)

// ─── Save / Load ────────────────────────────────────────────────────────────

// Save inserts a new invoice (ID == 0) or updates an existing one. Updates
// compare-and-swap against the version the store last saw; a stale version
// means another writer won the race and the caller gets
// domain.ErrConcurrencyConflict.
func (db *DB) Save(ctx context.Context, inv *domain.Invoice) error {
	if inv.ID == 0 {
		return db.insert(ctx, db.db, inv)
	}
	return db.update(ctx, inv)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (db *DB) insert(ctx context.Context, ex execer, inv *domain.Invoice) error {
	cols, err := encodeInvoice(inv)
	if err != nil {
		return err
	}
	res, err := ex.ExecContext(ctx, `
		INSERT INTO invoices (
			version, client_id, project_id, created_by,
			number, number_prefix, number_value, number_suffix,
			invoice_type, status, invoice_date, due_date, sent_date, viewed_at,
			currency, line_items, tax_items,
			discount_percentage, discount_amount, subtotal, tax_total, total,
			payment_status, payment_records, amount_paid,
			notes, time_entry_ids, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		inv.Version, inv.ClientID, inv.ProjectID, inv.CreatedBy,
		inv.Number.String(), inv.Number.Prefix, inv.Number.Number, inv.Number.Suffix,
		string(inv.Type), string(inv.Status),
		cols.invoiceDate, cols.dueDate, cols.sentDate, cols.viewedAt,
		string(inv.Currency), cols.lineItems, cols.taxItems,
		inv.DiscountPercentage, inv.DiscountAmount.String(),
		inv.Subtotal.String(), inv.TaxTotal.String(), inv.Total.String(),
		string(inv.PaymentStatus), cols.payments, inv.AmountPaid.String(),
		inv.Notes, cols.timeEntryIDs, cols.createdAt, cols.updatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateNumber
		}
		return fmt.Errorf("insert invoice: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert invoice id: %w", err)
	}
	inv.ID = id
	inv.MarkStored()
	return nil
}

func (db *DB) update(ctx context.Context, inv *domain.Invoice) error {
	cols, err := encodeInvoice(inv)
	if err != nil {
		return err
	}
	res, err := db.db.ExecContext(ctx, `
		UPDATE invoices SET
			version = ?, status = ?, due_date = ?, sent_date = ?, viewed_at = ?,
			line_items = ?, tax_items = ?,
			discount_percentage = ?, discount_amount = ?,
			subtotal = ?, tax_total = ?, total = ?,
			payment_status = ?, payment_records = ?, amount_paid = ?,
			notes = ?, time_entry_ids = ?, updated_at = ?
		WHERE id = ? AND version = ?
	`,
		inv.Version, string(inv.Status), cols.dueDate, cols.sentDate, cols.viewedAt,
		cols.lineItems, cols.taxItems,
		inv.DiscountPercentage, inv.DiscountAmount.String(),
		inv.Subtotal.String(), inv.TaxTotal.String(), inv.Total.String(),
		string(inv.PaymentStatus), cols.payments, inv.AmountPaid.String(),
		inv.Notes, cols.timeEntryIDs, cols.updatedAt,
		inv.ID, inv.StoredVersion(),
	)
	if err != nil {
		return fmt.Errorf("update invoice: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update invoice: %w", err)
	}
	if affected == 0 {
		// Either the row is gone or another writer advanced the version.
		var exists int
		if err := db.db.QueryRowContext(ctx, `SELECT 1 FROM invoices WHERE id = ?`, inv.ID).Scan(&exists); err == sql.ErrNoRows {
			return domain.ErrInvoiceNotFound
		}
		return domain.ErrConcurrencyConflict
	}
	inv.MarkStored()
	return nil
}

// FindByID loads one invoice.
func (db *DB) FindByID(ctx context.Context, id int64) (*domain.Invoice, error) {
	return db.queryOne(ctx, `WHERE id = ?`, id)
}

// FindByNumber looks an invoice up by owner and formatted number.
func (db *DB) FindByNumber(ctx context.Context, ownerID, number string) (*domain.Invoice, error) {
	return db.queryOne(ctx, `WHERE created_by = ? AND number = ?`, ownerID, number)
}

// ListByClient returns a client's invoices, newest first.
func (db *DB) ListByClient(ctx context.Context, clientID int64) ([]*domain.Invoice, error) {
	return db.queryMany(ctx, `WHERE client_id = ? ORDER BY id DESC`, clientID)
}

// ListByStatus returns an owner's invoices in the given status.
func (db *DB) ListByStatus(ctx context.Context, ownerID string, status domain.InvoiceStatus) ([]*domain.Invoice, error) {
	return db.queryMany(ctx, `WHERE created_by = ? AND status = ? ORDER BY id DESC`, ownerID, string(status))
}

// ListOverdue returns unpaid, non-terminal invoices due before asOf. The
// overdue sweep feeds these back through Invoice.RecordOverdue.
func (db *DB) ListOverdue(ctx context.Context, asOf time.Time) ([]*domain.Invoice, error) {
	return db.queryMany(ctx, `
		WHERE due_date < ?
		  AND payment_status IN ('unpaid', 'partially_paid', 'overdue')
		  AND status NOT IN ('draft', 'cancelled', 'paid', 'refunded')
		ORDER BY due_date ASC`,
		asOf.UTC().Format(dateLayout))
}

// AllocatedNumbers returns every number the owner has used in the series.
func (db *DB) AllocatedNumbers(ctx context.Context, ownerID, prefix, suffix string) ([]domain.InvoiceNumber, error) {
	rows, err := db.db.QueryContext(ctx, `
		SELECT number_prefix, number_value, number_suffix
		FROM invoices
		WHERE created_by = ? AND number_prefix = ? AND number_suffix = ?
		ORDER BY number_value ASC
	`, ownerID, prefix, suffix)
	if err != nil {
		return nil, fmt.Errorf("allocated numbers: %w", err)
	}
	defer rows.Close()

	var numbers []domain.InvoiceNumber
	for rows.Next() {
		var n domain.InvoiceNumber
		if err := rows.Scan(&n.Prefix, &n.Number, &n.Suffix); err != nil {
			return nil, err
		}
		numbers = append(numbers, n)
	}
	return numbers, rows.Err()
}

// Delete removes an invoice row. Callers gate this on Invoice.CanBeDeleted.
func (db *DB) Delete(ctx context.Context, id int64) error {
	res, err := db.db.ExecContext(ctx, `DELETE FROM invoices WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrInvoiceNotFound
	}
	return nil
}

// ─── Number Allocation ──────────────────────────────────────────────────────

// CreateWithGeneratedNumber allocates the next number in the owner's series
// and inserts the invoice built for it, all in one immediate transaction.
// The max-scan that computes the next number is a race when run outside a
// write lock; holding the transaction across scan and insert closes it. The
// build callback constructs the aggregate once the number is known, so its
// creation event carries the real number.
func (db *DB) CreateWithGeneratedNumber(ctx context.Context, ownerID string, settings domain.InvoiceSettings, build func(domain.InvoiceNumber) (*domain.Invoice, error)) (*domain.Invoice, error) {
	conn, err := db.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("allocate number: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, `BEGIN IMMEDIATE`); err != nil {
		return nil, fmt.Errorf("allocate number: %w", err)
	}
	rollback := func() { conn.ExecContext(ctx, `ROLLBACK`) }

	var maxValue sql.NullInt64
	err = conn.QueryRowContext(ctx, `
		SELECT MAX(number_value) FROM invoices
		WHERE created_by = ? AND number_prefix = ? AND number_suffix = ?
	`, ownerID, settings.NumberPrefix, settings.NumberSuffix).Scan(&maxValue)
	if err != nil {
		rollback()
		return nil, fmt.Errorf("allocate number: %w", err)
	}

	next := settings.NextNumber
	if next < 1 {
		next = 1
	}
	if maxValue.Valid && int(maxValue.Int64) >= next {
		next = int(maxValue.Int64) + 1
	}
	number := domain.InvoiceNumber{
		Prefix: settings.NumberPrefix,
		Number: next,
		Suffix: settings.NumberSuffix,
	}
	if err := number.Validate(); err != nil {
		rollback()
		return nil, err
	}

	inv, err := build(number)
	if err != nil {
		rollback()
		return nil, err
	}
	if err := db.insert(ctx, conn, inv); err != nil {
		rollback()
		return nil, err
	}
	if _, err := conn.ExecContext(ctx, `COMMIT`); err != nil {
		return nil, fmt.Errorf("allocate number: %w", err)
	}
	return inv, nil
}

// ─── Settings ───────────────────────────────────────────────────────────────

// Settings returns the owner's invoice settings, or the defaults when the
// owner has none saved yet.
func (db *DB) Settings(ctx context.Context, ownerID string) (domain.InvoiceSettings, error) {
	s := domain.DefaultInvoiceSettings()
	var currency string
	err := db.db.QueryRowContext(ctx, `
		SELECT number_prefix, number_suffix, next_number, payment_terms_days, currency
		FROM invoice_settings WHERE owner_id = ?
	`, ownerID).Scan(&s.NumberPrefix, &s.NumberSuffix, &s.NextNumber, &s.PaymentTermsDays, &currency)
	if err == sql.ErrNoRows {
		return domain.DefaultInvoiceSettings(), nil
	}
	if err != nil {
		return s, fmt.Errorf("load settings: %w", err)
	}
	s.Currency = domain.Currency(currency)
	return s, nil
}

// SaveSettings upserts the owner's invoice settings.
func (db *DB) SaveSettings(ctx context.Context, ownerID string, s domain.InvoiceSettings) error {
	_, err := db.db.ExecContext(ctx, `
		INSERT INTO invoice_settings (owner_id, number_prefix, number_suffix, next_number, payment_terms_days, currency, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT(owner_id) DO UPDATE SET
			number_prefix      = excluded.number_prefix,
			number_suffix      = excluded.number_suffix,
			next_number        = excluded.next_number,
			payment_terms_days = excluded.payment_terms_days,
			currency           = excluded.currency,
			updated_at         = datetime('now')
	`, ownerID, s.NumberPrefix, s.NumberSuffix, s.NextNumber, s.PaymentTermsDays, string(s.Currency))
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// ─── Row Mapping ────────────────────────────────────────────────────────────

const dateLayout = time.RFC3339

type invoiceColumns struct {
	invoiceDate  string
	dueDate      string
	sentDate     sql.NullString
	viewedAt     sql.NullString
	createdAt    string
	updatedAt    string
	lineItems    string
	taxItems     string
	payments     string
	timeEntryIDs string
}

func encodeInvoice(inv *domain.Invoice) (invoiceColumns, error) {
	var cols invoiceColumns
	var err error
	if cols.lineItems, err = toJSON(inv.LineItems); err != nil {
		return cols, err
	}
	if cols.taxItems, err = toJSON(inv.TaxItems); err != nil {
		return cols, err
	}
	if cols.payments, err = toJSON(inv.PaymentRecords); err != nil {
		return cols, err
	}
	if cols.timeEntryIDs, err = toJSON(inv.TimeEntryIDs); err != nil {
		return cols, err
	}
	cols.invoiceDate = inv.InvoiceDate.UTC().Format(dateLayout)
	cols.dueDate = inv.DueDate.UTC().Format(dateLayout)
	cols.createdAt = inv.CreatedAt.UTC().Format(dateLayout)
	cols.updatedAt = inv.UpdatedAt.UTC().Format(dateLayout)
	if !inv.SentDate.IsZero() {
		cols.sentDate = sql.NullString{String: inv.SentDate.UTC().Format(dateLayout), Valid: true}
	}
	if !inv.ClientViewedAt.IsZero() {
		cols.viewedAt = sql.NullString{String: inv.ClientViewedAt.UTC().Format(dateLayout), Valid: true}
	}
	return cols, nil
}

func toJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode invoice: %w", err)
	}
	return string(b), nil
}

const selectColumns = `
	id, version, client_id, project_id, created_by,
	number_prefix, number_value, number_suffix,
	invoice_type, status, invoice_date, due_date, sent_date, viewed_at,
	currency, line_items, tax_items,
	discount_percentage, discount_amount, subtotal, tax_total, total,
	payment_status, payment_records, amount_paid,
	notes, time_entry_ids, created_at, updated_at`

func (db *DB) queryOne(ctx context.Context, where string, args ...any) (*domain.Invoice, error) {
	row := db.db.QueryRowContext(ctx, `SELECT`+selectColumns+` FROM invoices `+where, args...)
	inv, err := scanInvoice(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrInvoiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load invoice: %w", err)
	}
	return inv, nil
}

func (db *DB) queryMany(ctx context.Context, where string, args ...any) ([]*domain.Invoice, error) {
	rows, err := db.db.QueryContext(ctx, `SELECT`+selectColumns+` FROM invoices `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	var out []*domain.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("list invoices: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvoice(row rowScanner) (*domain.Invoice, error) {
	var (
		inv                                      domain.Invoice
		typ, status, paymentStatus, currency     string
		invoiceDate, dueDate, createdAt, updated string
		sentDate, viewedAt                       sql.NullString
		lineItems, taxItems, payments, entryIDs  string
		discountAmount, subtotal, taxTotal       string
		total, amountPaid                        string
	)
	err := row.Scan(
		&inv.ID, &inv.Version, &inv.ClientID, &inv.ProjectID, &inv.CreatedBy,
		&inv.Number.Prefix, &inv.Number.Number, &inv.Number.Suffix,
		&typ, &status, &invoiceDate, &dueDate, &sentDate, &viewedAt,
		&currency, &lineItems, &taxItems,
		&inv.DiscountPercentage, &discountAmount, &subtotal, &taxTotal, &total,
		&paymentStatus, &payments, &amountPaid,
		&inv.Notes, &entryIDs, &createdAt, &updated,
	)
	if err != nil {
		return nil, err
	}

	inv.Type = domain.InvoiceType(typ)
	inv.Status = domain.InvoiceStatus(status)
	inv.PaymentStatus = domain.PaymentStatus(paymentStatus)
	inv.Currency = domain.Currency(currency)

	if inv.InvoiceDate, err = time.Parse(dateLayout, invoiceDate); err != nil {
		return nil, fmt.Errorf("invoice_date: %w", err)
	}
	if inv.DueDate, err = time.Parse(dateLayout, dueDate); err != nil {
		return nil, fmt.Errorf("due_date: %w", err)
	}
	if inv.CreatedAt, err = time.Parse(dateLayout, createdAt); err != nil {
		return nil, fmt.Errorf("created_at: %w", err)
	}
	if inv.UpdatedAt, err = time.Parse(dateLayout, updated); err != nil {
		return nil, fmt.Errorf("updated_at: %w", err)
	}
	if sentDate.Valid {
		if inv.SentDate, err = time.Parse(dateLayout, sentDate.String); err != nil {
			return nil, fmt.Errorf("sent_date: %w", err)
		}
	}
	if viewedAt.Valid {
		if inv.ClientViewedAt, err = time.Parse(dateLayout, viewedAt.String); err != nil {
			return nil, fmt.Errorf("viewed_at: %w", err)
		}
	}

	if err := json.Unmarshal([]byte(lineItems), &inv.LineItems); err != nil {
		return nil, fmt.Errorf("line_items: %w", err)
	}
	if err := json.Unmarshal([]byte(taxItems), &inv.TaxItems); err != nil {
		return nil, fmt.Errorf("tax_items: %w", err)
	}
	if err := json.Unmarshal([]byte(payments), &inv.PaymentRecords); err != nil {
		return nil, fmt.Errorf("payment_records: %w", err)
	}
	if err := json.Unmarshal([]byte(entryIDs), &inv.TimeEntryIDs); err != nil {
		return nil, fmt.Errorf("time_entry_ids: %w", err)
	}

	if inv.DiscountAmount, err = decimal.NewFromString(discountAmount); err != nil {
		return nil, fmt.Errorf("discount_amount: %w", err)
	}
	if inv.Subtotal, err = decimal.NewFromString(subtotal); err != nil {
		return nil, fmt.Errorf("subtotal: %w", err)
	}
	if inv.TaxTotal, err = decimal.NewFromString(taxTotal); err != nil {
		return nil, fmt.Errorf("tax_total: %w", err)
	}
	if inv.Total, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("total: %w", err)
	}
	if inv.AmountPaid, err = decimal.NewFromString(amountPaid); err != nil {
		return nil, fmt.Errorf("amount_paid: %w", err)
	}

	inv.MarkStored()
	return &inv, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

var _ domain.InvoiceStore = (*DB)(nil)
