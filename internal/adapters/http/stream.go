package http

import (
	"context"
	"net/http"
	"time"

	"github.com/atvirokodosprendimai/accessdesk/internal/domain"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

type streamFrame struct {
	Type  string               `json:"type"`
	Event *domain.RequestEvent `json:"event,omitempty"`
}

// handleAPIStream pushes request lifecycle events over a websocket. Callers
// without read-all access only receive events for their own requests.
func (h *Handler) handleAPIStream(w http.ResponseWriter, r *http.Request) {
	if h.opts.Hub == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "stream unavailable"})
		return
	}
	caller := callerFromContext(r.Context())
	seeAll := h.service.Policy().Allow(caller, domain.CapRequestReadAll) == nil

	opts := &websocket.AcceptOptions{}
	if origins := wsOriginPatterns(h.opts.CORSOrigins); len(origins) > 0 {
		opts.OriginPatterns = origins
	}
	conn, err := websocket.Accept(w, r, opts)
	if err != nil {
		return
	}
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	sub := h.opts.Hub.Subscribe(64)
	defer h.opts.Hub.Unsubscribe(sub)

	_ = wsjson.Write(ctx, conn, streamFrame{Type: "ready"})
	readErr := make(chan error, 1)
	go func() {
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				readErr <- err
				return
			}
		}
	}()
	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "closed")
			return
		case <-readErr:
			_ = conn.Close(websocket.StatusNormalClosure, "closed")
			return
		case evt, ok := <-sub:
			if !ok {
				_ = conn.Close(websocket.StatusNormalClosure, "closed")
				return
			}
			if !seeAll && (caller == nil || evt.UserID != caller.ID) {
				continue
			}
			writeCtx, cancelWrite := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(writeCtx, conn, streamFrame{Type: evt.Type, Event: &evt})
			cancelWrite()
			if err != nil {
				_ = conn.Close(websocket.StatusNormalClosure, "write_failed")
				return
			}
		}
	}
}

// wsOriginPatterns turns the CORS allowlist into websocket origin patterns.
// Full URLs are reduced to their host.
func wsOriginPatterns(origins []string) []string {
	var out []string
	for _, origin := range origins {
		origin = trimScheme(origin)
		if origin != "" {
			out = append(out, origin)
		}
	}
	return out
}
