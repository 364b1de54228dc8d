package routes

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"kaiadefi/gateway/api"
	"kaiadefi/integrations/exports"
	"kaiadefi/integrations/indexer"
)

// eventFilter reads ?type, ?account, ?after and ?limit.
func eventFilter(r *http.Request) (indexer.Filter, error) {
	q := r.URL.Query()
	filter := indexer.Filter{Type: strings.TrimSpace(q.Get("type"))}
	if raw := strings.TrimSpace(q.Get("account")); raw != "" {
		addr, err := parseAddress("account", raw)
		if err != nil {
			return indexer.Filter{}, err
		}
		filter.Account = &addr
	}
	if raw := strings.TrimSpace(q.Get("after")); raw != "" {
		after, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return indexer.Filter{}, fmt.Errorf("invalid after %q", raw)
		}
		filter.After = after
	}
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return indexer.Filter{}, fmt.Errorf("invalid limit %q", raw)
		}
		filter.Limit = limit
	}
	return filter, nil
}

func (h *handlers) queryEvents(w http.ResponseWriter, r *http.Request) ([]indexer.EventRecord, indexer.Filter, bool) {
	if h.store == nil {
		writeError(w, http.StatusServiceUnavailable, "IndexerDisabled", "", "event archive is not configured")
		return nil, indexer.Filter{}, false
	}
	filter, err := eventFilter(r)
	if err != nil {
		writeBadRequest(w, err)
		return nil, indexer.Filter{}, false
	}
	ctx, cancel := h.context(r)
	defer cancel()
	records, err := h.store.Query(ctx, filter)
	if err != nil {
		h.logger.Error("query events", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal", "", "internal error")
		return nil, indexer.Filter{}, false
	}
	return records, filter, true
}

// listEvents pages through the archive. Next is the cursor for the following
// page and equals the request cursor when nothing newer exists.
func (h *handlers) listEvents(w http.ResponseWriter, r *http.Request) {
	records, filter, ok := h.queryEvents(w, r)
	if !ok {
		return
	}
	page := api.EventsPage{Events: make([]api.EventView, 0, len(records)), Next: filter.After}
	for _, rec := range records {
		page.Events = append(page.Events, api.EventView{
			Sequence:   rec.Sequence,
			Type:       rec.Type,
			Attributes: rec.Attributes,
		})
		page.Next = rec.Sequence
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *handlers) exportEvents(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "jsonl" && format != "parquet" {
		writeBadRequest(w, fmt.Errorf("unsupported format %q", format))
		return
	}
	records, _, ok := h.queryEvents(w, r)
	if !ok {
		return
	}
	var (
		data        []byte
		checksum    string
		err         error
		contentType string
	)
	switch format {
	case "jsonl":
		data, checksum, err = exports.EventsJSONL(records)
		contentType = "application/x-ndjson"
	case "parquet":
		data, checksum, err = exports.EventsParquet(records)
		contentType = "application/vnd.apache.parquet"
	default:
		data, checksum, err = exports.EventsCSV(records)
		contentType = "text/csv"
	}
	if err != nil {
		h.logger.Error("export events", "format", format, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal", "", "internal error")
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=events.%s", format))
	w.Header().Set("X-Checksum-Sha256", checksum)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
