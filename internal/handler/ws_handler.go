package handler

import (
	"encoding/json"
	"net/http"

	"unlock-relay/internal/logging"
	"unlock-relay/internal/middleware"
	"unlock-relay/internal/repository"
	"unlock-relay/internal/service"
	"unlock-relay/internal/websocket"
	"unlock-relay/pkg/response"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
)

type WebSocketHandler struct {
	manager  *websocket.Manager
	auth     *service.AuthService
	events   *service.EventService
	logger   *logging.Logger
	upgrader ws.Upgrader
}

func NewWebSocketHandler(manager *websocket.Manager, auth *service.AuthService, events *service.EventService, logger *logging.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		manager: manager,
		auth:    auth,
		events:  events,
		logger:  logger.With("component", "event_stream"),
		upgrader: ws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// HandleConnection upgrades an admin connection and streams audit events,
// starting with a snapshot of the recent history. Events appended between the
// snapshot and registration are not replayed.
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = middleware.BearerToken(r)
	}

	if err := h.auth.AuthorizeAdmin(r.Header.Get(middleware.AdminKeyHeader), token); err != nil {
		writeServiceError(w, err)
		return
	}
	middleware.SetRole(w, "admin")

	snapshot, err := websocket.NewMessage(websocket.TypeSnapshot, &websocket.SnapshotPayload{
		Events: h.events.List(repository.MaxTail).Events,
	})
	if err != nil {
		response.InternalError(w, "Failed to build event snapshot")
		return
	}
	snapshotBytes, err := json.Marshal(snapshot)
	if err != nil {
		response.InternalError(w, "Failed to build event snapshot")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("failed to upgrade connection", "error", err)
		return
	}

	client := websocket.NewClient(uuid.New().String(), r.RemoteAddr, conn, h.manager)
	client.Send <- snapshotBytes

	if !h.manager.Add(client) {
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}
