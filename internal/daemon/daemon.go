package daemon

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/ledgerline/ledgerline/internal/api"
	"github.com/ledgerline/ledgerline/internal/app/billing"
	"github.com/ledgerline/ledgerline/internal/app/numbering"
	"github.com/ledgerline/ledgerline/internal/domain"
	"github.com/ledgerline/ledgerline/internal/infra/events"
	"github.com/ledgerline/ledgerline/internal/infra/observability"
	"github.com/ledgerline/ledgerline/internal/infra/sqlite"
)

// Run starts the billing daemon: the HTTP API plus the periodic overdue
// sweep. It blocks until ctx is cancelled, then shuts the server down
// gracefully.
func Run(ctx context.Context, cfg Config) error {
	log := cfg.NewLogger()

	store, err := sqlite.Open(cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	publisher := events.NewLogPublisher(log)
	srv := api.NewServer(
		store,
		billing.New(cfg.TaxTable(), cfg.CurrencyTable()),
		numbering.New(),
		publisher,
		log,
		cfg.Billing.DefaultTaxRegion,
	)
	srv.EnableMetrics()

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.ListenAddr()).Msg("api listening")
		errCh <- httpSrv.ListenAndServe()
	}()

	sweepCtx, cancelSweep := context.WithCancel(ctx)
	defer cancelSweep()
	go runOverdueSweep(sweepCtx, store, publisher, log)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info().Msg("shutting down")
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// runOverdueSweep periodically marks sent invoices past their due date as
// overdue. One sweep runs immediately at startup so a long-stopped daemon
// catches up without waiting an interval.
func runOverdueSweep(ctx context.Context, store *sqlite.DB, publisher domain.EventPublisher, log zerolog.Logger) {
	log = log.With().Str("component", "overdue-sweep").Logger()
	sweepOverdue(ctx, store, publisher, log)

	ticker := time.NewTicker(OverdueSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepOverdue(ctx, store, publisher, log)
		}
	}
}

func sweepOverdue(ctx context.Context, store *sqlite.DB, publisher domain.EventPublisher, log zerolog.Logger) {
	now := time.Now().UTC()
	invoices, err := store.ListOverdue(ctx, now)
	if err != nil {
		log.Error().Err(err).Msg("overdue scan failed")
		return
	}

	marked := 0
	for _, inv := range invoices {
		if !inv.RecordOverdue(now) {
			continue
		}
		if err := store.Save(ctx, inv); err != nil {
			// A concurrent mutation won the race; the next sweep retries.
			log.Warn().Err(err).Int64("invoice_id", inv.ID).Msg("overdue save skipped")
			continue
		}
		publisher.Publish(ctx, inv.PullEvents()...)
		marked++
	}
	observability.OverdueInvoices.Set(float64(len(invoices)))
	if marked > 0 {
		log.Info().Int("marked", marked).Msg("invoices marked overdue")
	}
}
