package v1

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/vmunix/spotarr/internal/download"
	"github.com/vmunix/spotarr/internal/events"
)

// streamKeepAlive is the interval between SSE comment frames on an idle stream.
var streamKeepAlive = 15 * time.Second

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)

	if limit < 0 {
		writeError(w, http.StatusBadRequest, "INVALID_PAGINATION", "limit must be non-negative")
		return
	}
	const maxLimit = 1000
	if limit > maxLimit {
		limit = maxLimit
	}

	var (
		raw []events.RawEvent
		err error
	)
	switch q := r.URL.Query(); {
	case q.Get("url") != "":
		raw, err = s.deps.EventLog.RecentForEntity(events.EntityDownload, q.Get("url"), limit)
	case q.Get("since") != "":
		since, perr := time.Parse(time.RFC3339, q.Get("since"))
		if perr != nil {
			writeError(w, http.StatusBadRequest, "INVALID_SINCE", "since must be an RFC 3339 timestamp")
			return
		}
		// Since is oldest first.
		raw, err = s.deps.EventLog.Since(since)
		if len(raw) > limit {
			raw = raw[:limit]
		}
	default:
		raw, err = s.deps.EventLog.Recent(limit)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "EVENT_ERROR", err.Error())
		return
	}

	resp := listEventsResponse{
		Items: make([]EventResponse, len(raw)),
		Total: len(raw),
		Limit: limit,
	}
	for i, e := range raw {
		resp.Items[i] = EventResponse{
			ID:         e.ID,
			EventType:  e.EventType,
			EntityType: e.EntityType,
			EntityKey:  e.EntityKey,
			Payload:    e.Payload,
			OccurredAt: e.OccurredAt.Format(time.RFC3339),
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// streamStatus pushes the full ordered history as a Server-Sent Event on
// connect and after every history write. With ?url= it streams only that
// item's record instead.
func (s *Server) streamStatus(w http.ResponseWriter, r *http.Request) {
	if url := r.URL.Query().Get("url"); url != "" {
		s.streamItem(w, r, url)
		return
	}

	ch := s.deps.Bus.Subscribe(events.EventHistoryChanged, 16)
	defer s.deps.Bus.Unsubscribe(ch)

	initial := historyResponse{History: s.deps.Downloads.History()}
	s.stream(w, r, ch, "status", initial, func(e events.Event) (any, bool) {
		hc, ok := e.(*events.HistoryChanged)
		if !ok {
			return nil, false
		}
		return historyResponse{History: hc.History}, true
	})
}

// streamItem pushes one item's record on connect and after each of its status changes.
func (s *Server) streamItem(w http.ResponseWriter, r *http.Request, url string) {
	ch := s.deps.Bus.SubscribeEntity(events.EntityDownload, url, 16)
	defer s.deps.Bus.Unsubscribe(ch)

	item, ok := findItem(s.deps.Downloads.History(), url)
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "no download for url "+url)
		return
	}

	s.stream(w, r, ch, "item", item, func(e events.Event) (any, bool) {
		sc, ok := e.(*events.DownloadStatusChanged)
		if !ok {
			return nil, false
		}
		return download.Item{
			URL:    sc.URL,
			Type:   sc.ItemType,
			Name:   sc.Name,
			Artist: sc.Artist,
			Status: sc.To,
		}, true
	})
}

func findItem(history []download.Item, url string) (download.Item, bool) {
	for _, item := range history {
		if item.URL == url {
			return item, true
		}
	}
	return download.Item{}, false
}

// stream writes initial as the first frame, then one frame per event that
// frame accepts, until the client goes away or the bus closes ch.
func (s *Server) stream(w http.ResponseWriter, r *http.Request, ch <-chan events.Event,
	name string, initial any, frame func(events.Event) (any, bool)) {
	rc := http.NewResponseController(w)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache, no-transform")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := writeFrame(w, rc, name, initial); err != nil {
		return
	}

	ticker := time.NewTicker(streamKeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			v, ok := frame(e)
			if !ok {
				continue
			}
			if err := writeFrame(w, rc, name, v); err != nil {
				s.log.Debug("event stream closed", "error", err)
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

func writeFrame(w http.ResponseWriter, rc *http.ResponseController, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return err
	}
	return rc.Flush()
}
