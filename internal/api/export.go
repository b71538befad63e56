package api

import (
	"log/slog"
	"net/http"

	"github.com/quorum-review/quorum/internal/export"
)

// RegisterExportRoutes registers JSONL dataset export endpoints.
func (a *API) RegisterExportRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/export/ledger", a.handleExportLedger)
	mux.HandleFunc("GET /api/export/papers", a.handleExportPapers)
	mux.HandleFunc("GET /api/export/papers/{id}", a.handleExportPaper)
}

func (a *API) handleExportLedger(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/jsonl")
	w.Header().Set("Content-Disposition", `attachment; filename="ledger.jsonl"`)

	exporter := export.NewExporter(a.db)
	if err := exporter.ExportLedger(w); err != nil {
		slog.Error("exporting ledger", "error", err)
	}
}

func (a *API) handleExportPapers(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/jsonl")
	w.Header().Set("Content-Disposition", `attachment; filename="papers.jsonl"`)

	exporter := export.NewExporter(a.db)
	if err := exporter.ExportRecentPapers(w, 1000); err != nil {
		slog.Error("exporting papers", "error", err)
	}
}

func (a *API) handleExportPaper(w http.ResponseWriter, r *http.Request) {
	paperID := r.PathValue("id")
	if _, err := a.db.GetPaper(paperID); err != nil {
		jsonError(w, "paper not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/jsonl")

	exporter := export.NewExporter(a.db)
	if err := exporter.ExportPaper(w, paperID); err != nil {
		slog.Error("exporting paper", "error", err)
	}
}
