package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ledgerline/ledgerline/internal/domain"
)

// ─── Numbering ──────────────────────────────────────────────────────────────

// handleNumberingGaps audits the allocated numbers of one series and reports
// missing integers. Gaps are legal (numbers can be reserved and abandoned)
// but accountants want to see them.
func (s *Server) handleNumberingGaps(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	owner := q.Get("owner_id")
	if owner == "" {
		writeError(w, http.StatusBadRequest, "owner_id is required")
		return
	}
	prefix := q.Get("prefix")
	if prefix == "" {
		prefix = "INV"
	}
	suffix := q.Get("suffix")

	start, end := 1, 0
	if v := q.Get("start"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "start must be an integer")
			return
		}
		start = n
	}
	if v := q.Get("end"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "end must be an integer")
			return
		}
		end = n
	}

	numbers, err := s.store.AllocatedNumbers(r.Context(), owner, prefix, suffix)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	allocated := make([]int, len(numbers))
	for i, n := range numbers {
		allocated[i] = n.Number
	}
	gaps := s.numbering.FindGaps(allocated, start, end)
	writeJSON(w, http.StatusOK, map[string]any{
		"prefix":    prefix,
		"suffix":    suffix,
		"allocated": len(allocated),
		"gaps":      gaps,
	})
}

type formatNumberRequest struct {
	Number  int    `json:"number"`
	Pattern string `json:"pattern"`
}

func (s *Server) handleNumberingFormat(w http.ResponseWriter, r *http.Request) {
	var req formatNumberRequest
	if !decodeBody(w, r, &req) {
		return
	}
	formatted, err := s.numbering.FormatNumber(req.Number, req.Pattern, time.Now().UTC())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"formatted": formatted})
}

// ─── Owner Settings ─────────────────────────────────────────────────────────

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.store.Settings(r.Context(), chi.URLParam(r, "owner"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var settings domain.InvoiceSettings
	if !decodeBody(w, r, &settings) {
		return
	}
	currency, err := domain.ParseCurrency(string(settings.Currency))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	settings.Currency = currency
	if err := s.numbering.ValidateSettings(settings); err != nil {
		writeDomainError(w, err)
		return
	}
	owner := chi.URLParam(r, "owner")
	if err := s.store.SaveSettings(r.Context(), owner, settings); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}
