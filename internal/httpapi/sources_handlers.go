package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"dealradar-engine/internal/domain"
	"dealradar-engine/internal/store"
)

type SourcesHandler struct {
	Store     *store.DB
	Merchants []string // registered adapter ids, for Seed
}

func (h SourcesHandler) List(w http.ResponseWriter, r *http.Request) {
	sources, err := h.Store.ListSources(r.Context())
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}
	writeJSON(w, sources)
}

// Upsert accepts a batch of source rows keyed by URL; this is the surface the
// seeding script talks to.
func (h SourcesHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var incoming []struct {
		URL         string `json:"url"`
		Merchant    string `json:"merchant"`
		Category    string `json:"category"`
		Priority    int    `json:"priority"`
		IsActive    bool   `json:"isActive"`
		MaxProducts int    `json:"maxProducts"`
	}
	if err := dec.Decode(&incoming); err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_json", err.Error())
		return
	}

	upserted := 0
	for _, s := range incoming {
		url := strings.TrimSpace(s.URL)
		merchant := strings.ToLower(strings.TrimSpace(s.Merchant))
		if url == "" || merchant == "" {
			WriteError(w, r, http.StatusBadRequest, "bad_source", "url and merchant are required")
			return
		}
		if _, err := h.Store.UpsertSource(r.Context(), domain.ScrapingSource{
			URL:         url,
			Merchant:    merchant,
			Category:    strings.TrimSpace(s.Category),
			Priority:    s.Priority,
			IsActive:    s.IsActive,
			MaxProducts: s.MaxProducts,
		}); err != nil {
			WriteError(w, r, http.StatusInternalServerError, "upsert_failed", err.Error())
			return
		}
		upserted++
	}
	writeJSON(w, map[string]any{"upserted": upserted})
}

// Seed inserts one inactive placeholder source per registered merchant so a
// fresh install has rows to edit instead of an empty table.
func (h SourcesHandler) Seed(w http.ResponseWriter, r *http.Request) {
	seeded := 0
	for _, m := range h.Merchants {
		if _, err := h.Store.UpsertSource(r.Context(), domain.ScrapingSource{
			URL:      fmt.Sprintf("https://www.%s.fr/promotions", m),
			Merchant: m,
			Priority: 1,
		}); err != nil {
			WriteError(w, r, http.StatusInternalServerError, "seed_failed", err.Error())
			return
		}
		seeded++
	}
	writeJSON(w, map[string]any{"seeded": seeded})
}
