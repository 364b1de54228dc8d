package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"nhooyr.io/websocket"

	"kaiadefi/core/events"
	"kaiadefi/gateway/api"
	"kaiadefi/integrations/indexer"
)

const (
	wsWriteTimeout      = 10 * time.Second
	defaultPingInterval = 30 * time.Second
	backlogLimit        = indexer.MaxLimit
)

// streamFilter selects events by type and by any attribute naming account.
type streamFilter struct {
	types   map[string]struct{}
	account string
}

func newStreamFilter(r *http.Request) (streamFilter, error) {
	q := r.URL.Query()
	f := streamFilter{}
	if raw := strings.TrimSpace(q.Get("types")); raw != "" {
		f.types = make(map[string]struct{})
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				f.types[t] = struct{}{}
			}
		}
	}
	if raw := strings.TrimSpace(q.Get("account")); raw != "" {
		addr, err := parseAddress("account", raw)
		if err != nil {
			return streamFilter{}, err
		}
		f.account = addr.Hex()
	}
	return f, nil
}

func (f streamFilter) match(eventType string, attrs map[string]string) bool {
	if len(f.types) > 0 {
		if _, ok := f.types[eventType]; !ok {
			return false
		}
	}
	if f.account == "" {
		return true
	}
	for _, v := range attrs {
		if strings.EqualFold(v, f.account) {
			return true
		}
	}
	return false
}

// streamEvents replays archived events after ?cursor, then forwards live
// ledger events until the client goes away. Events committed while the
// backlog is replayed may be delivered twice.
func (h *handlers) streamEvents(w http.ResponseWriter, r *http.Request) {
	if h.bus == nil {
		writeError(w, http.StatusServiceUnavailable, "StreamDisabled", "", "event stream is not configured")
		return
	}
	filter, err := newStreamFilter(r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	var cursor uint64
	replay := false
	if raw := strings.TrimSpace(r.URL.Query().Get("cursor")); raw != "" {
		cursor, err = strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeBadRequest(w, err)
			return
		}
		replay = true
	}
	if replay && h.store == nil {
		writeError(w, http.StatusServiceUnavailable, "IndexerDisabled", "", "event archive is not configured")
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")

	ctx := conn.CloseRead(r.Context())
	live, cancel := h.bus.Subscribe(h.stream.Buffer)
	defer cancel()

	if err := h.streamLoop(ctx, conn, live, filter, replay, cursor); err != nil {
		if status := websocket.CloseStatus(err); status == -1 && ctx.Err() == nil {
			h.logger.Debug("event stream ended", "error", err)
			_ = conn.Close(websocket.StatusInternalError, "stream error")
		}
	}
}

func (h *handlers) streamLoop(ctx context.Context, conn *websocket.Conn, live <-chan events.Event, filter streamFilter, replay bool, cursor uint64) error {
	if replay {
		for {
			records, err := h.store.Query(ctx, indexer.Filter{After: cursor, Limit: backlogLimit})
			if err != nil {
				return err
			}
			for _, rec := range records {
				cursor = rec.Sequence
				if !filter.match(rec.Type, rec.Attributes) {
					continue
				}
				view := api.EventView{Sequence: rec.Sequence, Type: rec.Type, Attributes: rec.Attributes}
				if err := writeEvent(ctx, conn, view); err != nil {
					return err
				}
			}
			if len(records) < backlogLimit {
				break
			}
		}
	}

	interval := h.stream.PingInterval
	if interval <= 0 {
		interval = defaultPingInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return err
			}
		case ev, ok := <-live:
			if !ok {
				return nil
			}
			payload := ev.Event()
			if payload == nil || !filter.match(payload.Type, payload.Attributes) {
				continue
			}
			if err := writeEvent(ctx, conn, api.EventView{Type: payload.Type, Attributes: payload.Attributes}); err != nil {
				return err
			}
		}
	}
}

func writeEvent(ctx context.Context, conn *websocket.Conn, view api.EventView) error {
	data, err := json.Marshal(view)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
