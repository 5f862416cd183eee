package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/domain"
	"github.com/ledgerline/ledgerline/internal/infra/observability"
)

// ─── Creation ───────────────────────────────────────────────────────────────

type createInvoiceRequest struct {
	OwnerID   string `json:"owner_id"`
	ClientID  int64  `json:"client_id"`
	ProjectID int64  `json:"project_id"`
	Type      string `json:"invoice_type"`
	Currency  string `json:"currency,omitempty"`
	DueDate   string `json:"due_date,omitempty"` // RFC 3339 date
}

func (s *Server) handleCreateInvoice(w http.ResponseWriter, r *http.Request) {
	var req createInvoiceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	ctx := r.Context()

	settings, err := s.store.Settings(ctx, req.OwnerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := s.numbering.ValidateSettings(settings); err != nil {
		writeDomainError(w, err)
		return
	}

	currency := settings.Currency
	if req.Currency != "" {
		if currency, err = domain.ParseCurrency(req.Currency); err != nil {
			writeDomainError(w, err)
			return
		}
	}
	dueDate := settings.DueDateFrom(time.Now().UTC())
	if req.DueDate != "" {
		if dueDate, err = time.Parse(time.RFC3339, req.DueDate); err != nil {
			writeError(w, http.StatusBadRequest, "due_date must be RFC 3339")
			return
		}
	}

	typ := domain.InvoiceType(req.Type)
	if typ == "" {
		typ = domain.TypeTimeBased
	}

	inv, err := s.store.CreateWithGeneratedNumber(ctx, req.OwnerID, settings, func(number domain.InvoiceNumber) (*domain.Invoice, error) {
		return domain.NewInvoice(req.ClientID, req.ProjectID, req.OwnerID, number, typ, currency, dueDate)
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.finishMutation(r, inv)
	observability.InvoicesCreated.WithLabelValues(string(inv.Type)).Inc()
	observability.NumbersAllocated.WithLabelValues(inv.Number.Prefix).Inc()
	writeJSON(w, http.StatusCreated, inv)
}

type fromTimeEntriesRequest struct {
	OwnerID     string             `json:"owner_id"`
	ClientID    int64              `json:"client_id"`
	ProjectID   int64              `json:"project_id"`
	TimeEntries []domain.TimeEntry `json:"time_entries"`
	DefaultRate decimal.Decimal    `json:"default_rate"`
	TaxRegion   string             `json:"tax_region,omitempty"`
}

func (s *Server) handleInvoiceFromTimeEntries(w http.ResponseWriter, r *http.Request) {
	var req fromTimeEntriesRequest
	if !decodeBody(w, r, &req) {
		return
	}
	ctx := r.Context()

	settings, err := s.store.Settings(ctx, req.OwnerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := s.numbering.ValidateSettings(settings); err != nil {
		writeDomainError(w, err)
		return
	}
	region := req.TaxRegion
	if region == "" {
		region = s.taxRegion
	}

	inv, err := s.store.CreateWithGeneratedNumber(ctx, req.OwnerID, settings, func(number domain.InvoiceNumber) (*domain.Invoice, error) {
		return s.billing.InvoiceFromTimeEntries(settings, number, req.ClientID, req.ProjectID, req.OwnerID, req.TimeEntries, req.DefaultRate, region)
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.finishMutation(r, inv)
	observability.InvoicesCreated.WithLabelValues(string(inv.Type)).Inc()
	observability.NumbersAllocated.WithLabelValues(inv.Number.Prefix).Inc()
	currency := string(inv.Currency)
	total, _ := inv.Total.Float64()
	observability.InvoiceTotals.WithLabelValues(currency).Observe(total)
	writeJSON(w, http.StatusCreated, inv)
}

// ─── Reads ──────────────────────────────────────────────────────────────────

func (s *Server) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	inv, ok := s.loadInvoice(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (s *Server) handleGetInvoiceByNumber(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	owner := q.Get("owner_id")
	number := q.Get("number")
	if owner == "" || number == "" {
		writeError(w, http.StatusBadRequest, "owner_id and number are required")
		return
	}
	inv, err := s.store.FindByNumber(r.Context(), owner, number)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (s *Server) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	if clientID := q.Get("client_id"); clientID != "" {
		id, err := strconv.ParseInt(clientID, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "client_id must be an integer")
			return
		}
		invoices, err := s.store.ListByClient(ctx, id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, invoices)
		return
	}

	owner := q.Get("owner_id")
	status := q.Get("status")
	if owner == "" || status == "" {
		writeError(w, http.StatusBadRequest, "client_id, or owner_id and status, are required")
		return
	}
	invoices, err := s.store.ListByStatus(ctx, owner, domain.InvoiceStatus(status))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, invoices)
}

func (s *Server) handleDeleteInvoice(w http.ResponseWriter, r *http.Request) {
	inv, ok := s.loadInvoice(w, r)
	if !ok {
		return
	}
	if !inv.CanBeDeleted() {
		writeError(w, http.StatusUnprocessableEntity, "only draft or cancelled invoices without payments can be deleted")
		return
	}
	if err := s.store.Delete(r.Context(), inv.ID); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ─── Mutations ──────────────────────────────────────────────────────────────

type addLineItemRequest struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Rate        decimal.Decimal `json:"rate"`
	Unit        string          `json:"unit,omitempty"`
	TimeEntryID int64           `json:"time_entry_id,omitempty"`
	TaskID      int64           `json:"task_id,omitempty"`
}

func (s *Server) handleAddLineItem(w http.ResponseWriter, r *http.Request) {
	var req addLineItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s.mutateInvoice(w, r, func(inv *domain.Invoice) error {
		return inv.AddLineItem(req.Description, req.Quantity, req.Rate, req.Unit, req.TimeEntryID, req.TaskID)
	})
}

func (s *Server) handleRemoveLineItem(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "index must be an integer")
		return
	}
	s.mutateInvoice(w, r, func(inv *domain.Invoice) error {
		return inv.RemoveLineItem(index)
	})
}

type addTaxRequest struct {
	Name  string  `json:"name"`
	Rate  float64 `json:"rate"`
	TaxID string  `json:"tax_id,omitempty"`
}

func (s *Server) handleAddTax(w http.ResponseWriter, r *http.Request) {
	var req addTaxRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s.mutateInvoice(w, r, func(inv *domain.Invoice) error {
		return inv.AddTax(req.Name, req.Rate, req.TaxID)
	})
}

func (s *Server) handleRemoveTax(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "index must be an integer")
		return
	}
	s.mutateInvoice(w, r, func(inv *domain.Invoice) error {
		return inv.RemoveTax(index)
	})
}

type setDiscountRequest struct {
	Percentage float64         `json:"percentage,omitempty"`
	Amount     decimal.Decimal `json:"amount,omitempty"`
}

func (s *Server) handleSetDiscount(w http.ResponseWriter, r *http.Request) {
	var req setDiscountRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s.mutateInvoice(w, r, func(inv *domain.Invoice) error {
		return inv.SetDiscount(req.Percentage, req.Amount)
	})
}

type sendInvoiceRequest struct {
	SentBy      string `json:"sent_by"`
	ClientEmail string `json:"client_email"`
}

func (s *Server) handleSendInvoice(w http.ResponseWriter, r *http.Request) {
	var req sendInvoiceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s.mutateInvoice(w, r, func(inv *domain.Invoice) error {
		return inv.SendToClient(req.SentBy, req.ClientEmail)
	})
}

func (s *Server) handleMarkViewed(w http.ResponseWriter, r *http.Request) {
	s.mutateInvoice(w, r, func(inv *domain.Invoice) error {
		inv.MarkViewed()
		return nil
	})
}

type addPaymentRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Method      string          `json:"payment_method"`
	PaymentDate string          `json:"payment_date,omitempty"` // RFC 3339
	Reference   string          `json:"reference,omitempty"`
	Notes       string          `json:"notes,omitempty"`
	ProcessedBy string          `json:"processed_by,omitempty"`
}

func (s *Server) handleAddPayment(w http.ResponseWriter, r *http.Request) {
	var req addPaymentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	var paymentDate time.Time
	if req.PaymentDate != "" {
		var err error
		if paymentDate, err = time.Parse(time.RFC3339, req.PaymentDate); err != nil {
			writeError(w, http.StatusBadRequest, "payment_date must be RFC 3339")
			return
		}
	}
	method := domain.PaymentMethod(req.Method)
	if method == "" {
		method = domain.MethodOther
	}
	s.mutateInvoice(w, r, func(inv *domain.Invoice) error {
		if err := inv.AddPayment(req.Amount, method, paymentDate, req.Reference, req.Notes, req.ProcessedBy); err != nil {
			return err
		}
		observability.PaymentsRecorded.WithLabelValues(string(method)).Inc()
		return nil
	})
}

type cancelInvoiceRequest struct {
	Reason string `json:"reason,omitempty"`
}

func (s *Server) handleCancelInvoice(w http.ResponseWriter, r *http.Request) {
	var req cancelInvoiceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s.mutateInvoice(w, r, func(inv *domain.Invoice) error {
		if err := inv.Cancel(req.Reason); err != nil {
			return err
		}
		observability.InvoicesCancelled.Inc()
		return nil
	})
}

// ─── Load / Mutate / Save ───────────────────────────────────────────────────

func (s *Server) loadInvoice(w http.ResponseWriter, r *http.Request) (*domain.Invoice, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invoice id must be an integer")
		return nil, false
	}
	inv, err := s.store.FindByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return nil, false
	}
	return inv, true
}

// mutateInvoice runs one load-mutate-save cycle. A concurrency conflict maps
// to 409 and the client retries the whole request; handlers never retry
// blindly on the server side.
func (s *Server) mutateInvoice(w http.ResponseWriter, r *http.Request, mutate func(*domain.Invoice) error) {
	inv, ok := s.loadInvoice(w, r)
	if !ok {
		return
	}
	if err := mutate(inv); err != nil {
		writeDomainError(w, err)
		return
	}
	if err := s.store.Save(r.Context(), inv); err != nil {
		if errors.Is(err, domain.ErrConcurrencyConflict) {
			observability.NumberConflicts.Inc()
		}
		writeDomainError(w, err)
		return
	}
	s.finishMutation(r, inv)
	writeJSON(w, http.StatusOK, inv)
}

// finishMutation publishes the events drained from a successfully saved
// aggregate. Events are only published after persistence succeeds.
func (s *Server) finishMutation(r *http.Request, inv *domain.Invoice) {
	events := inv.PullEvents()
	if len(events) > 0 && s.publisher != nil {
		s.publisher.Publish(r.Context(), events...)
	}
}
