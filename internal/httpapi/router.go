package httpapi

import "net/http"

// NewMux wires the API surface. main() owns middleware and the server.
func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	// Deals (read-only listing for UIs)
	dh := DealsHandler{Store: d.Store}
	mux.HandleFunc("/deals", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: dh.List,
	}))

	// Sources (seeding-script surface)
	srh := SourcesHandler{Store: d.Store, Merchants: d.Merchants}
	mux.HandleFunc("/sources", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: srh.List,
		http.MethodPut: srh.Upsert,
	}))
	mux.HandleFunc("/sources/seed", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: srh.Seed,
	}))

	// Import trigger + status + sweep
	ih := ImportHandler{
		Engine:    d.Engine,
		CfgVal:    d.CfgVal,
		RunStatus: d.RunStatus,
		Hub:       d.Hub,
	}
	mux.HandleFunc("/import/run", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: ih.Run,
	}))
	mux.HandleFunc("/import/status", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ih.Status,
	}))
	mux.HandleFunc("/sweep/run", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: ih.Sweep,
	}))

	// Config
	ch := ConfigHandler{
		CfgVal:      d.CfgVal,
		UserCfgPath: d.UserCfgPath,
		LoadCfg:     d.LoadCfg,
	}
	mux.HandleFunc("/config", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Get,
		http.MethodPut: ch.Put,
	}))
	mux.HandleFunc("/config/path", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Path,
	}))
	mux.HandleFunc("/config/validate", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Validate,
	}))

	// SSE events
	eh := EventsHandler{Hub: d.Hub}
	mux.HandleFunc("/events", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: eh.ServeSSE,
	}))

	// Maintenance
	dbh := DBHandler{DB: d.Store.Pool}
	mux.HandleFunc("/db/checkpoint", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: dbh.Checkpoint,
	}))

	hh := HealthHandler{}
	mux.HandleFunc("/health", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: hh.Health,
	}))

	return mux
}
