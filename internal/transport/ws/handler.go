package ws

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"caixamisteriosa/internal/app"
	"caixamisteriosa/internal/domain"
	"caixamisteriosa/internal/store"
)

// Handler handles WebSocket connections
type Handler struct {
	hub         *app.GameHub
	profiles    *store.ProfileStore
	operatorKey string
	upgrader    websocket.Upgrader
	logger      *slog.Logger
}

// NewHandler creates a new WebSocket handler.
// An empty operatorKey lets any client join as operator.
func NewHandler(hub *app.GameHub, profiles *store.ProfileStore, operatorKey string, logger *slog.Logger) *Handler {
	return &Handler{
		hub:         hub,
		profiles:    profiles,
		operatorKey: operatorKey,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Participants join from their phones through the QR link
				return true
			},
		},
		logger: logger,
	}
}

// ServeHTTP handles WebSocket upgrade requests
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	// Get room code from query params
	roomCode := app.NormalizeRoomCode(query.Get("roomCode"))
	if roomCode == "" {
		http.Error(w, "roomCode is required", http.StatusBadRequest)
		return
	}

	role, err := domain.ParseRole(query.Get("role"))
	if err != nil {
		http.Error(w, "invalid role", http.StatusBadRequest)
		return
	}
	if role.IsOperator() && !h.OperatorKeyValid(query.Get("operatorKey")) {
		http.Error(w, "invalid operator key", http.StatusForbidden)
		return
	}

	// A tab keeps its client ID across reconnects
	clientID := query.Get("clientId")
	isReconnect := clientID != ""
	if _, err := uuid.Parse(clientID); err != nil {
		clientID = uuid.NewString()
		isReconnect = false
	}

	// Get the game session, opening it here if another server created it
	session, err := h.hub.JoinSession(r.Context(), roomCode)
	if err != nil {
		if errors.Is(err, domain.ErrGameNotFound) {
			http.Error(w, "Game not found", http.StatusNotFound)
		} else {
			h.logger.Error("failed to open game", "roomCode", roomCode, "error", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	// Upgrade connection to WebSocket
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	// Create client
	client := NewClient(conn, session, h.profiles, clientID, role, h.logger.With("roomCode", roomCode))
	client.sendConnected(r.Context())

	// Register client with session, which sends the current state
	session.RegisterClient(client)

	h.logger.Info("websocket connected",
		"roomCode", roomCode,
		"clientID", clientID,
		"role", role,
		"isReconnect", isReconnect,
	)

	// Start the client
	client.Run()
}

// OperatorKeyValid checks a key presented by a would-be operator
func (h *Handler) OperatorKeyValid(key string) bool {
	if h.operatorKey == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(h.operatorKey)) == 1
}
