package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/webitel/push-bridge-service/internal/domain/event"
	"github.com/webitel/push-bridge-service/internal/domain/model"
	wsmarshaller "github.com/webitel/push-bridge-service/internal/handler/marshaller/ws"
	"github.com/webitel/push-bridge-service/internal/service"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// WSHandler is the WebSocket host runtime: every open socket is one session.
type WSHandler struct {
	logger    *slog.Logger
	deliverer service.Deliverer
	displayer service.Displayer
	upgrader  websocket.Upgrader
}

func NewWSHandler(logger *slog.Logger, deliverer service.Deliverer, displayer service.Displayer) *WSHandler {
	return &WSHandler{
		logger:    logger,
		deliverer: deliverer,
		displayer: displayer,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // Security: adjust for production
		},
	}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// 1. UPGRADE TO WEBSOCKET
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("WS_UPGRADE_FAILED", "err", err)
		return
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// 2. SUBSCRIBE VIA THE SHARED SERVICE
	q := r.URL.Query()
	conn, err := h.deliverer.Subscribe(ctx, model.SessionMetadata{
		Transport: "ws",
		Platform:  q.Get("platform"),
		Version:   q.Get("version"),
		RemoteIP:  r.RemoteAddr,
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		h.writeFrame(ws, wsmarshaller.EventDisconnected, "", &model.DisconnectedPayload{Reason: err.Error(), Code: "REJECTED"})
		return
	}
	defer h.deliverer.Unsubscribe(conn.GetID())

	l := h.logger.With("conn_id", conn.GetID())

	// Listeners requested up front: ?listen=notification-clicked,permission-changed
	if raw := q.Get("listen"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			if _, err := h.addListener(conn.GetID(), strings.TrimSpace(s)); err != nil {
				l.Warn("WS_LISTEN_REJECTED", "event", s, "err", err)
			}
		}
	}

	// 3. HANDSHAKE
	if !h.writeFrame(ws, wsmarshaller.EventConnected, conn.GetID().String(), &model.ConnectedPayload{
		Ok:            true,
		ConnectionID:  conn.GetID().String(),
		ServerVersion: model.ServerVersion,
		Vocabulary:    vocabulary(),
	}) {
		return
	}

	// 4. READ PUMP: commands in, replies queued for the single writer below
	replies := make(chan []byte, 16)
	go h.readPump(ctx, cancel, ws, conn.GetID(), replies, l)

	// 5. MAIN WRITE PUMP
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-conn.Done():
			h.writeFrame(ws, wsmarshaller.EventDisconnected, "", &model.DisconnectedPayload{
				Reason: "session_closed_by_server",
				Code:   "SHUTDOWN",
			})
			return

		case ev := <-conn.Recv():
			data, err := wsmarshaller.MarshallDeliveryEvent(ev)
			if err != nil {
				l.Error("WS_MARSHAL_FAILED", "event", ev.GetName(), "err", err)
				continue
			}
			if !h.write(ws, websocket.TextMessage, data) {
				l.Warn("WS_SEND_FAILED", "event_id", ev.GetID())
				return
			}

		case data := <-replies:
			if !h.write(ws, websocket.TextMessage, data) {
				return
			}

		case <-ticker.C:
			if !h.write(ws, websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (h *WSHandler) readPump(ctx context.Context, cancel context.CancelFunc, ws *websocket.Conn, connID uuid.UUID, replies chan<- []byte, l *slog.Logger) {
	defer cancel()

	ws.SetReadLimit(64 << 10)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				l.Warn("WS_READ_FAILED", "err", err)
			}
			return
		}

		reply := h.handleCommand(connID, data)
		frame, err := wsmarshaller.MarshallSystemEvent(wsmarshaller.EventReply, reply.ID, time.Now().UnixMilli(), reply)
		if err != nil {
			continue
		}

		select {
		case replies <- frame:
		case <-ctx.Done():
			return
		}
	}
}

func (h *WSHandler) handleCommand(connID uuid.UUID, data []byte) wsmarshaller.Reply {
	var cmd wsmarshaller.Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return wsmarshaller.Reply{Error: "malformed command"}
	}
	reply := wsmarshaller.Reply{ID: cmd.ID}

	switch cmd.Action {
	case wsmarshaller.ActionAddListener:
		id, err := h.addListener(connID, cmd.Event)
		if err != nil {
			reply.Error = err.Error()
			break
		}
		reply.Ok, reply.ListenerID = true, id.String()

	case wsmarshaller.ActionRemoveListener:
		id, err := uuid.Parse(cmd.ListenerID)
		if err != nil {
			reply.Error = "invalid listener id"
			break
		}
		reply.Ok = h.deliverer.RemoveListener(connID, id)

	case wsmarshaller.ActionDisplay:
		reply.Ok = h.displayer.Display(cmd.NotificationID)

	case wsmarshaller.ActionPreventDefault:
		reply.Ok = h.displayer.PreventDefault(cmd.NotificationID)

	default:
		reply.Error = "unknown action"
	}
	return reply
}

func (h *WSHandler) addListener(connID uuid.UUID, raw string) (uuid.UUID, error) {
	name, err := event.ParseName(raw)
	if err != nil {
		return uuid.Nil, err
	}
	return h.deliverer.AddListener(connID, name)
}

func (h *WSHandler) writeFrame(ws *websocket.Conn, name, id string, payload any) bool {
	data, err := wsmarshaller.MarshallSystemEvent(name, id, time.Now().UnixMilli(), payload)
	if err != nil {
		return false
	}
	return h.write(ws, websocket.TextMessage, data)
}

func (h *WSHandler) write(ws *websocket.Conn, kind int, data []byte) bool {
	_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
	return ws.WriteMessage(kind, data) == nil
}

func vocabulary() []string {
	names := event.Names()
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = n.String()
	}
	return out
}
