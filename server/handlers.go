package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rustyeddy/metals/market"
	"github.com/rustyeddy/metals/pkg/id"
	"github.com/rustyeddy/metals/store"
)

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, ok(map[string]string{"status": "ok"}))
}

// priceParams maps GET /prices query parameters to conditions.
var priceParams = []struct {
	param string
	field string
	op    string
}{
	{"id", store.FieldID, "="},
	{"metal", store.FieldMetal, "="},
	{"date", store.FieldDate, "="},
	{"from", store.FieldDate, ">="},
	{"to", store.FieldDate, "<="},
	{"min_price", store.FieldPrice, ">="},
	{"max_price", store.FieldPrice, "<="},
	{"min_macd", store.FieldMACD, ">="},
	{"max_macd", store.FieldMACD, "<="},
	{"min_rsi", store.FieldRSI, ">="},
	{"max_rsi", store.FieldRSI, "<="},
}

// specFromQuery builds one spec from URL parameters. Values stay strings;
// the store converts and validates them per field.
func specFromQuery(r *http.Request) store.Spec {
	q := r.URL.Query()
	spec := store.Spec{Name: "prices"}
	for _, p := range priceParams {
		if v := q.Get(p.param); v != "" {
			spec.Conditions = append(spec.Conditions, store.Condition{Field: p.field, Op: p.op, Value: v})
		}
	}
	return spec
}

func (h *handler) getPrices(w http.ResponseWriter, r *http.Request) {
	spec := specFromQuery(r)
	if err := spec.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	recs, err := h.svc.QueryOne(r.Context(), spec)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ok(recs))
}

type outcomeJSON struct {
	Records []market.Record `json:"records"`
	Error   string          `json:"error,omitempty"`
}

// postQuery runs a JSON array of specs. With ?isolated=true every spec
// reports its own result; otherwise the first failure fails the request.
func (h *handler) postQuery(w http.ResponseWriter, r *http.Request) {
	var specs []store.Spec
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&specs); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode specs: %w", err))
		return
	}

	isolated, _ := strconv.ParseBool(r.URL.Query().Get("isolated"))
	if isolated {
		outcomes := h.svc.QueryIsolated(r.Context(), specs)
		out := make([]outcomeJSON, len(outcomes))
		for i, o := range outcomes {
			out[i].Records = o.Records
			if o.Err != nil {
				out[i].Error = o.Err.Error()
			}
		}
		writeJSON(w, http.StatusOK, ok(out))
		return
	}

	results, err := h.svc.Query(r.Context(), specs)
	if err != nil {
		h.logger.Warn("query failed", "specs", len(specs), "error", err)
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ok(results))
}

func (h *handler) getRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("bad limit %q", v))
			return
		}
		limit = n
	}

	runs, err := h.svc.Runs(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if runs == nil {
		runs = []store.Run{}
	}
	writeJSON(w, http.StatusOK, ok(runs))
}

func (h *handler) getRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	if _, err := id.Time(runID); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	run, err := h.svc.Run(r.Context(), runID)
	switch {
	case errors.Is(err, store.ErrRunNotFound):
		writeError(w, http.StatusNotFound, err)
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, ok(run))
}
