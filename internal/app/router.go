package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/ledgerline/ledgerline/internal/ap"
	"github.com/ledgerline/ledgerline/internal/ar"
	"github.com/ledgerline/ledgerline/internal/inventory"
	"github.com/ledgerline/ledgerline/internal/ledger"
	"github.com/ledgerline/ledgerline/internal/procurement"
	"github.com/ledgerline/ledgerline/internal/reports"
	"github.com/ledgerline/ledgerline/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	LedgerHandler      *ledger.Handler
	ReportsHandler     *reports.Handler
	ARHandler          *ar.Handler
	APHandler          *ap.Handler
	InventoryHandler   *inventory.Handler
	ProcurementHandler *procurement.Handler
	JobHandler         *jobs.Handler
}

// NewRouter constructs the chi.Router with Ledgerline defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(api chi.Router) {
		if params.LedgerHandler != nil {
			api.Route("/ledger", func(sub chi.Router) {
				params.LedgerHandler.MountRoutes(sub)
			})
		}
		if params.ReportsHandler != nil {
			params.ReportsHandler.MountRoutes(api)
		}
		if params.ARHandler != nil {
			api.Route("/ar", func(sub chi.Router) {
				params.ARHandler.MountRoutes(sub)
			})
		}
		if params.APHandler != nil {
			api.Route("/ap", func(sub chi.Router) {
				params.APHandler.MountRoutes(sub)
			})
		}
		if params.InventoryHandler != nil {
			api.Route("/inventory", func(sub chi.Router) {
				params.InventoryHandler.MountRoutes(sub)
			})
		}
		if params.ProcurementHandler != nil {
			params.ProcurementHandler.MountRoutes(api)
		}
		if params.JobHandler != nil {
			api.Route("/jobs", func(sub chi.Router) {
				params.JobHandler.MountRoutes(sub)
			})
		}
	})

	return r
}
