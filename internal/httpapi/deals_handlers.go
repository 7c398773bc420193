package httpapi

import (
	"net/http"
	"strconv"

	"dealradar-engine/internal/store"
)

type DealsHandler struct {
	Store *store.DB
}

func (h DealsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))

	deals, err := h.Store.ListDeals(r.Context(), store.ListDealsOpts{
		Merchant: q.Get("merchant"),
		HotOnly:  q.Get("hot") == "true",
		Sort:     q.Get("sort"),
		Limit:    limit,
	})
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}
	writeJSON(w, deals)
}
