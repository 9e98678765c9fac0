package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/scrypster/keystone/internal/engine"
	"github.com/scrypster/keystone/pkg/types"
)

const wsWriteTimeout = 10 * time.Second

// ChatMessage is a client message on /ws/chat.
type ChatMessage struct {
	Query string `json:"query"`
}

// ChatReply is the server message for each ChatMessage.
type ChatReply struct {
	SessionID string          `json:"session_id"`
	Response  *types.Response `json:"response,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// chatHandler serves a conversation per websocket connection. The server
// keeps the history so clients only send the next query. The user is fixed
// for the life of the connection by the user_id query parameter of the
// upgrade request.
type chatHandler struct {
	assistant      Answerer
	originPatterns []string
	logger         zerolog.Logger
}

func (h *chatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		h.logger.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "")

	sessionID := uuid.NewString()
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	log := h.logger.With().Str("session_id", sessionID).Logger()
	log.Debug().Msg("chat session opened")

	ctx := r.Context()
	var history []types.Turn

	for {
		var msg ChatMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
				websocket.CloseStatus(err) == websocket.StatusGoingAway ||
				errors.Is(err, context.Canceled) {
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			log.Debug().Err(err).Msg("chat read failed")
			return
		}

		reply := ChatReply{SessionID: sessionID}
		query := strings.TrimSpace(msg.Query)
		switch {
		case query == "":
			reply.Error = "query is required"
		case len([]rune(query)) > MaxQueryLength:
			reply.Error = "query is too long"
		default:
			resp, err := h.assistant.Answer(ctx, engine.Request{
				Query:     query,
				SessionID: sessionID,
				UserID:    userID,
				History:   history,
			})
			if err != nil {
				reply.Error = "failed to answer query"
				log.Warn().Err(err).Msg("chat answer failed")
				break
			}
			reply.Response = resp
			now := time.Now().UTC()
			history = append(history,
				types.Turn{Role: types.RoleUser, Content: query, Timestamp: now},
				types.Turn{Role: types.RoleAssistant, Content: resp.Text, Timestamp: now},
			)
			if len(history) > MaxHistoryTurns {
				history = history[len(history)-MaxHistoryTurns:]
			}
		}

		writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
		err := wsjson.Write(writeCtx, conn, reply)
		cancel()
		if err != nil {
			log.Debug().Err(err).Msg("chat write failed")
			return
		}
	}
}
