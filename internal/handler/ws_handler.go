package handler

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"

	"notevault-server/internal/middleware"
	"notevault-server/internal/service"
	"notevault-server/internal/websocket"
	"notevault-server/pkg/response"
)

// WebSocketHandler upgrades authenticated connections into the nudge hub.
// The session cookie authenticates the upgrade request like any other route;
// the origin check is strict because cookies ride along automatically.
type WebSocketHandler struct {
	manager  *websocket.Manager
	sessions *service.SessionService
	upgrader ws.Upgrader
}

func NewWebSocketHandler(manager *websocket.Manager, sessions *service.SessionService, allowedOrigin string) *WebSocketHandler {
	return &WebSocketHandler{
		manager:  manager,
		sessions: sessions,
		upgrader: ws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return middleware.OriginPermitted(r.Header.Get("Origin"), allowedOrigin)
			},
		},
	}
}

func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err != nil || cookie.Value == "" {
		response.Unauthorized(w, "missing session")
		return
	}

	claims, _, err := h.sessions.Authenticate(r.Context(), cookie.Value)
	if err != nil {
		response.FromError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := websocket.NewClient(uuid.NewString(), claims.OwnerID, claims.CredentialID, conn, h.manager)
	h.manager.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
