// Package api provides the HTTP server for the billing core: invoice CRUD
// and lifecycle operations, billing previews, numbering audits, and owner
// settings.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ledgerline/ledgerline/internal/app/billing"
	"github.com/ledgerline/ledgerline/internal/app/numbering"
	"github.com/ledgerline/ledgerline/internal/domain"
	"github.com/ledgerline/ledgerline/internal/infra/sqlite"
)

// Server is the HTTP API server.
type Server struct {
	store          *sqlite.DB
	billing        *billing.Service
	numbering      *numbering.Service
	publisher      domain.EventPublisher
	log            zerolog.Logger
	taxRegion      string
	metricsEnabled bool
}

// NewServer creates the API server.
func NewServer(store *sqlite.DB, billingSvc *billing.Service, numberingSvc *numbering.Service, publisher domain.EventPublisher, log zerolog.Logger, taxRegion string) *Server {
	return &Server{
		store:     store,
		billing:   billingSvc,
		numbering: numberingSvc,
		publisher: publisher,
		log:       log.With().Str("component", "api").Logger(),
		taxRegion: taxRegion,
	}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(s.requestLogger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/invoices", func(r chi.Router) {
			r.Post("/", s.handleCreateInvoice)
			r.Post("/from-time-entries", s.handleInvoiceFromTimeEntries)
			r.Get("/", s.handleListInvoices)
			r.Get("/by-number", s.handleGetInvoiceByNumber)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetInvoice)
				r.Delete("/", s.handleDeleteInvoice)
				r.Post("/line-items", s.handleAddLineItem)
				r.Delete("/line-items/{index}", s.handleRemoveLineItem)
				r.Post("/taxes", s.handleAddTax)
				r.Delete("/taxes/{index}", s.handleRemoveTax)
				r.Post("/discount", s.handleSetDiscount)
				r.Post("/send", s.handleSendInvoice)
				r.Post("/viewed", s.handleMarkViewed)
				r.Post("/payments", s.handleAddPayment)
				r.Post("/cancel", s.handleCancelInvoice)
			})
		})

		r.Route("/billing", func(r chi.Router) {
			r.Post("/hourly", s.handleBillingHourly)
			r.Post("/fixed", s.handleBillingFixed)
			r.Post("/milestone", s.handleBillingMilestone)
			r.Post("/retainer", s.handleBillingRetainer)
			r.Post("/taxes", s.handleBillingTaxes)
			r.Post("/discount", s.handleBillingDiscount)
			r.Post("/convert", s.handleBillingConvert)
			r.Post("/profitability", s.handleBillingProfitability)
			r.Post("/estimate", s.handleBillingEstimate)
			r.Post("/validate-config", s.handleBillingValidateConfig)
		})

		r.Route("/numbering", func(r chi.Router) {
			r.Get("/gaps", s.handleNumberingGaps)
			r.Post("/format", s.handleNumberingFormat)
		})

		r.Route("/settings/{owner}", func(r chi.Router) {
			r.Get("/", s.handleGetSettings)
			r.Put("/", s.handlePutSettings)
		})
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// requestLogger logs each request with method, path, status, and duration.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// ─── Response Helpers ───────────────────────────────────────────────────────

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

// writeDomainError maps domain errors onto HTTP statuses: malformed input
// is 400, state-machine refusals are 422, lost concurrency races and
// duplicate numbers are 409.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case domain.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case domain.IsRuleViolation(err):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrInvoiceNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConcurrencyConflict), errors.Is(err, domain.ErrDuplicateNumber):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// decodeBody decodes a JSON request body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}
