package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/domain"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newStoredInvoice(t *testing.T, db *DB, number int) *domain.Invoice {
	t.Helper()
	inv, err := domain.NewInvoice(1, 1, "user-1", domain.InvoiceNumber{Prefix: "INV", Number: number}, domain.TypeTimeBased, domain.USD, time.Time{})
	if err != nil {
		t.Fatalf("NewInvoice: %v", err)
	}
	if err := inv.AddLineItem("Development", decimal.NewFromInt(10), decimal.NewFromInt(50), "hours", 0, 0); err != nil {
		t.Fatalf("AddLineItem: %v", err)
	}
	if err := db.Save(context.Background(), inv); err != nil {
		t.Fatalf("Save: %v", err)
	}
	return inv
}

func TestSaveAndFindByID(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	inv := newStoredInvoice(t, db, 1)

	if inv.ID == 0 {
		t.Fatal("insert did not assign an id")
	}

	loaded, err := db.FindByID(ctx, inv.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if loaded.Number != inv.Number {
		t.Errorf("Number = %+v, want %+v", loaded.Number, inv.Number)
	}
	if !loaded.Subtotal.Equal(inv.Subtotal) || !loaded.Total.Equal(inv.Total) {
		t.Errorf("totals = %s/%s, want %s/%s", loaded.Subtotal, loaded.Total, inv.Subtotal, inv.Total)
	}
	if len(loaded.LineItems) != 1 {
		t.Fatalf("line items = %d, want 1", len(loaded.LineItems))
	}
	if loaded.LineItems[0].Description != "Development" {
		t.Errorf("description = %q", loaded.LineItems[0].Description)
	}
	if loaded.Version != inv.Version {
		t.Errorf("Version = %d, want %d", loaded.Version, inv.Version)
	}
}

func TestFindByID_NotFound(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.FindByID(context.Background(), 9999); !errors.Is(err, domain.ErrInvoiceNotFound) {
		t.Fatalf("error = %v, want ErrInvoiceNotFound", err)
	}
}

func TestFindByNumber(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	inv := newStoredInvoice(t, db, 42)

	loaded, err := db.FindByNumber(ctx, "user-1", "INV-000042")
	if err != nil {
		t.Fatalf("FindByNumber: %v", err)
	}
	if loaded.ID != inv.ID {
		t.Errorf("ID = %d, want %d", loaded.ID, inv.ID)
	}
	if _, err := db.FindByNumber(ctx, "someone-else", "INV-000042"); !errors.Is(err, domain.ErrInvoiceNotFound) {
		t.Errorf("cross-owner lookup error = %v, want ErrInvoiceNotFound", err)
	}
}

func TestSave_ConcurrencyConflict(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	inv := newStoredInvoice(t, db, 1)

	// Two independent loads of the same logical invoice.
	first, err := db.FindByID(ctx, inv.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	second, err := db.FindByID(ctx, inv.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}

	if err := first.AddPayment(decimal.NewFromInt(100), domain.MethodCash, time.Time{}, "", "", ""); err != nil {
		t.Fatalf("AddPayment: %v", err)
	}
	if err := db.Save(ctx, first); err != nil {
		t.Fatalf("Save(first): %v", err)
	}

	// The second copy is now stale; its save must lose.
	if err := second.AddPayment(decimal.NewFromInt(100), domain.MethodCash, time.Time{}, "", "", ""); err != nil {
		t.Fatalf("AddPayment: %v", err)
	}
	if err := db.Save(ctx, second); !errors.Is(err, domain.ErrConcurrencyConflict) {
		t.Fatalf("Save(second) error = %v, want ErrConcurrencyConflict", err)
	}

	// Retry after reload succeeds.
	reloaded, err := db.FindByID(ctx, inv.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if err := reloaded.AddPayment(decimal.NewFromInt(100), domain.MethodCash, time.Time{}, "", "", ""); err != nil {
		t.Fatalf("AddPayment after reload: %v", err)
	}
	if err := db.Save(ctx, reloaded); err != nil {
		t.Fatalf("Save after reload: %v", err)
	}
}

func TestSave_DuplicateNumber(t *testing.T) {
	db := openTestDB(t)
	newStoredInvoice(t, db, 7)

	dup, err := domain.NewInvoice(2, 2, "user-1", domain.InvoiceNumber{Prefix: "INV", Number: 7}, domain.TypeTimeBased, domain.USD, time.Time{})
	if err != nil {
		t.Fatalf("NewInvoice: %v", err)
	}
	if err := db.Save(context.Background(), dup); !errors.Is(err, domain.ErrDuplicateNumber) {
		t.Fatalf("error = %v, want ErrDuplicateNumber", err)
	}
}

func TestCreateWithGeneratedNumber(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	settings := domain.DefaultInvoiceSettings()

	build := func(number domain.InvoiceNumber) (*domain.Invoice, error) {
		return domain.NewInvoice(1, 1, "user-1", number, domain.TypeTimeBased, domain.USD, time.Time{})
	}

	for want := 1; want <= 3; want++ {
		inv, err := db.CreateWithGeneratedNumber(ctx, "user-1", settings, build)
		if err != nil {
			t.Fatalf("CreateWithGeneratedNumber: %v", err)
		}
		if inv.Number.Number != want {
			t.Errorf("allocated number = %d, want %d", inv.Number.Number, want)
		}
		if inv.ID == 0 {
			t.Error("allocated invoice has no id")
		}
	}

	// A different series allocates independently.
	withSuffix := settings
	withSuffix.NumberSuffix = "CL"
	inv, err := db.CreateWithGeneratedNumber(ctx, "user-1", withSuffix, build)
	if err != nil {
		t.Fatalf("CreateWithGeneratedNumber: %v", err)
	}
	if inv.Number.Number != 1 || inv.Number.Suffix != "CL" {
		t.Errorf("suffixed allocation = %+v, want number 1 suffix CL", inv.Number)
	}
}

func TestAllocatedNumbers(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	newStoredInvoice(t, db, 1)
	newStoredInvoice(t, db, 5)

	numbers, err := db.AllocatedNumbers(ctx, "user-1", "INV", "")
	if err != nil {
		t.Fatalf("AllocatedNumbers: %v", err)
	}
	if len(numbers) != 2 || numbers[0].Number != 1 || numbers[1].Number != 5 {
		t.Errorf("numbers = %+v", numbers)
	}
}

func TestListByStatusAndClient(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	inv := newStoredInvoice(t, db, 1)
	newStoredInvoice(t, db, 2)

	if err := inv.SendToClient("user-1", "client@example.com"); err != nil {
		t.Fatalf("SendToClient: %v", err)
	}
	if err := db.Save(ctx, inv); err != nil {
		t.Fatalf("Save: %v", err)
	}

	sent, err := db.ListByStatus(ctx, "user-1", domain.StatusSent)
	if err != nil {
		t.Fatalf("ListByStatus: %v", err)
	}
	if len(sent) != 1 || sent[0].ID != inv.ID {
		t.Errorf("sent = %+v", sent)
	}

	byClient, err := db.ListByClient(ctx, 1)
	if err != nil {
		t.Fatalf("ListByClient: %v", err)
	}
	if len(byClient) != 2 {
		t.Errorf("invoices for client = %d, want 2", len(byClient))
	}
}

func TestListOverdue(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	inv := newStoredInvoice(t, db, 1)

	if err := inv.SendToClient("user-1", "client@example.com"); err != nil {
		t.Fatalf("SendToClient: %v", err)
	}
	if err := db.Save(ctx, inv); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Not yet due.
	overdue, err := db.ListOverdue(ctx, inv.DueDate.AddDate(0, 0, -1))
	if err != nil {
		t.Fatalf("ListOverdue: %v", err)
	}
	if len(overdue) != 0 {
		t.Errorf("overdue before due date = %d, want 0", len(overdue))
	}

	overdue, err = db.ListOverdue(ctx, inv.DueDate.AddDate(0, 0, 5))
	if err != nil {
		t.Fatalf("ListOverdue: %v", err)
	}
	if len(overdue) != 1 || overdue[0].ID != inv.ID {
		t.Errorf("overdue = %+v, want the sent invoice", overdue)
	}

	// Drafts never show up in the sweep.
	newStoredInvoice(t, db, 2)
	overdue, err = db.ListOverdue(ctx, inv.DueDate.AddDate(0, 0, 5))
	if err != nil {
		t.Fatalf("ListOverdue: %v", err)
	}
	if len(overdue) != 1 {
		t.Errorf("overdue with draft present = %d, want 1", len(overdue))
	}
}

func TestDelete(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	inv := newStoredInvoice(t, db, 1)

	if err := db.Delete(ctx, inv.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := db.FindByID(ctx, inv.ID); !errors.Is(err, domain.ErrInvoiceNotFound) {
		t.Errorf("after delete error = %v, want ErrInvoiceNotFound", err)
	}
	if err := db.Delete(ctx, inv.ID); !errors.Is(err, domain.ErrInvoiceNotFound) {
		t.Errorf("double delete error = %v, want ErrInvoiceNotFound", err)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	// No row yet: defaults.
	s, err := db.Settings(ctx, "user-1")
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}
	if s.NumberPrefix != "INV" || s.PaymentTermsDays != 30 {
		t.Errorf("defaults = %+v", s)
	}

	s.NumberPrefix = "FACT"
	s.NumberSuffix = "CL"
	s.PaymentTermsDays = 14
	s.Currency = domain.CLP
	if err := db.SaveSettings(ctx, "user-1", s); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}

	loaded, err := db.Settings(ctx, "user-1")
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}
	if loaded != s {
		t.Errorf("loaded = %+v, want %+v", loaded, s)
	}
}
