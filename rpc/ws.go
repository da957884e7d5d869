package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"nhooyr.io/websocket"

	"perkledger/core/events"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsSubBuffer    = 256
)

// handleEventsWS streams ledger events as JSON frames. A numeric "cursor"
// query parameter resumes the stream after the given sequence number; events
// older than the bus backlog are gone and the client should re-read state.
func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	if s == nil || s.ledger == nil {
		http.Error(w, "ledger unavailable", http.StatusServiceUnavailable)
		return
	}
	if !s.allow(s.clientIP(r)) {
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
		return
	}
	var cursor uint64
	if raw := strings.TrimSpace(r.URL.Query().Get("cursor")); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			http.Error(w, "invalid cursor", http.StatusBadRequest)
			return
		}
		cursor = parsed
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")
	if err := s.streamEvents(r.Context(), conn, cursor); err != nil {
		if status := websocket.CloseStatus(err); status == -1 {
			_ = conn.Close(websocket.StatusInternalError, "stream error")
		}
	}
}

func (s *Server) streamEvents(ctx context.Context, conn *websocket.Conn, cursor uint64) error {
	bus := s.ledger.Bus()
	updates, cancel := bus.Subscribe(wsSubBuffer)
	defer cancel()

	lastSent := cursor
	for _, entry := range bus.Backlog(cursor) {
		if err := writeEvent(ctx, conn, entry); err != nil {
			return err
		}
		lastSent = entry.Seq
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case entry, ok := <-updates:
			if !ok {
				return nil
			}
			if entry.Seq <= lastSent {
				continue
			}
			if err := writeEvent(ctx, conn, entry); err != nil {
				return err
			}
			lastSent = entry.Seq
		}
	}
}

func writeEvent(ctx context.Context, conn *websocket.Conn, entry events.Sequenced) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
