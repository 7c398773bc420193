package httpapi

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"dealradar-engine/internal/config"
	"dealradar-engine/internal/events"
	"dealradar-engine/internal/importer"
)

type ImportHandler struct {
	Engine    *importer.Engine
	CfgVal    *atomic.Value // config.Config
	RunStatus *atomic.Value // httpapi.RunStatus
	Hub       *events.Hub
}

func (h ImportHandler) Status(w http.ResponseWriter, r *http.Request) {
	st := h.RunStatus.Load().(RunStatus)
	writeJSON(w, st)
}

// Run triggers an import synchronously and returns the run stats: the caller
// (HTTP trigger or scheduled job) gets the full summary within its own
// request budget. merchant="" runs every enabled merchant.
func (h ImportHandler) Run(w http.ResponseWriter, r *http.Request) {
	st := h.RunStatus.Load().(RunStatus)
	if st.Running {
		WriteError(w, r, http.StatusConflict, "run_in_progress", "an import is already running")
		return
	}

	cfg := h.CfgVal.Load().(config.Config)

	merchant := r.URL.Query().Get("merchant")
	clean := r.URL.Query().Get("clean") == "true"
	maxProducts, _ := strconv.Atoi(r.URL.Query().Get("max_products"))

	opts := importer.Options{
		Clean:       clean,
		MaxProducts: maxProducts,
		OnNewDeal: func() {
			h.Hub.Publish(events.MakeEvent(RequestIDFrom(r.Context()), events.TypeDealCreated, 1, nil))
		},
	}

	h.RunStatus.Store(RunStatus{
		LastRunAt: time.Now().Format(time.RFC3339),
		Running:   true,
		LastOkAt:  st.LastOkAt,
	})

	var all []importer.RunStats
	var runErr error
	if merchant != "" {
		stats, err := h.Engine.Run(r.Context(), cfg, merchant, opts)
		all = append(all, stats)
		runErr = err
	} else {
		all = h.Engine.RunAll(r.Context(), cfg, opts)
	}

	now := time.Now().Format(time.RFC3339)
	next := RunStatus{LastRunAt: now, LastStats: all}
	for _, s := range all {
		next.LastCreated += s.Created
		next.LastUpdated += s.Updated
	}
	if runErr != nil {
		next.LastError = runErr.Error()
		next.LastOkAt = st.LastOkAt
	} else {
		next.LastOkAt = now
	}
	h.RunStatus.Store(next)

	h.Hub.Publish(events.MakeEvent(RequestIDFrom(r.Context()), events.TypeRunFinished, 1, next))

	if runErr != nil {
		WriteError(w, r, http.StatusConflict, "run_failed", runErr.Error())
		return
	}
	writeJSON(w, all)
}

// Sweep deletes deals unseen beyond the retention threshold. Idempotent.
func (h ImportHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	cfg := h.CfgVal.Load().(config.Config)

	days := cfg.Import.RetentionDays
	if v, err := strconv.Atoi(r.URL.Query().Get("days")); err == nil && v > 0 {
		days = v
	}

	deleted, err := h.Engine.SweepExpired(r.Context(), days)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "sweep_failed", err.Error())
		return
	}
	writeJSON(w, map[string]any{"deletedCount": deleted})
}
