package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/kurahq/kura/internal/brain"
	"github.com/kurahq/kura/internal/engine"
	"github.com/kurahq/kura/internal/protocol"
)

// handleChatWS runs the GUI turn loop over one websocket connection. Turns
// are strictly sequential: the loop submits, waits for the worker's
// completion message and writes the reply before reading the next input.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("httpapi: websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Printf("httpapi: websocket read failed: %v", err)
			}
			return
		}

		msg, err := protocol.ParseClientMessage(raw)
		if err != nil {
			s.writeJSON(conn, protocol.ErrorEvent{
				Type:   protocol.TypeErrorEvent,
				Code:   "bad_message",
				Detail: err.Error(),
			})
			continue
		}

		cm, ok := msg.(protocol.ClientMessage)
		if !ok {
			continue
		}
		text := strings.TrimSpace(cm.Text)
		if text == "" {
			continue
		}

		ch, err := s.engine.Submit(r.Context(), text)
		if errors.Is(err, engine.ErrTurnInFlight) {
			s.writeJSON(conn, protocol.TurnBusy{
				Type:   protocol.TypeTurnBusy,
				Detail: "previous turn still running",
			})
			continue
		}
		if err != nil {
			s.writeJSON(conn, protocol.ErrorEvent{
				Type:   protocol.TypeErrorEvent,
				Code:   "submit_failed",
				Detail: err.Error(),
			})
			continue
		}

		res := <-ch
		if res.Err != nil {
			s.writeJSON(conn, errorEventFor(res))
			continue
		}

		out := protocol.AssistantReply{
			Type:      protocol.TypeAssistantReply,
			TurnID:    res.TurnID,
			Text:      res.DisplayText,
			Malformed: res.Malformed,
		}
		for _, cmd := range res.Applied {
			out.Applied = append(out.Applied, protocol.AppliedOperation{
				Action:  string(cmd.Action),
				ID:      cmd.ID,
				Content: cmd.Content,
			})
		}
		s.writeJSON(conn, out)

		if len(res.Applied) > 0 {
			s.writeJSON(conn, s.memoryUpdate())
		}
	}
}

func errorEventFor(res engine.TurnResult) protocol.ErrorEvent {
	ev := protocol.ErrorEvent{
		Type:   protocol.TypeErrorEvent,
		Code:   "service_failure",
		Detail: res.Err.Error(),
	}
	var se *brain.ServiceError
	if errors.As(res.Err, &se) {
		ev.Retryable = se.Retryable
	}
	return ev
}

func (s *Server) memoryUpdate() protocol.MemoryUpdate {
	records := s.engine.Memory().Records()
	update := protocol.MemoryUpdate{
		Type:    protocol.TypeMemoryUpdate,
		Records: make([]protocol.MemoryRecord, len(records)),
	}
	for i, rec := range records {
		update.Records[i] = protocol.MemoryRecord{
			ID:       rec.ID,
			Content:  rec.Content,
			Created:  rec.CreatedAt.Format(recordTimeLayout),
			Modified: rec.ModifiedAt.Format(recordTimeLayout),
		}
	}
	return update
}

func (s *Server) writeJSON(conn *websocket.Conn, v any) {
	if err := conn.WriteJSON(v); err != nil {
		s.logger.Printf("httpapi: websocket write failed: %v", err)
	}
}
