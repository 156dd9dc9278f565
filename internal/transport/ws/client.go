package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"caixamisteriosa/internal/app"
	"caixamisteriosa/internal/domain"
	"caixamisteriosa/internal/store"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	// Size of the send channel buffer
	sendBufferSize = 256

	// Time allowed for a game action to reach the store
	actionTimeout = 10 * time.Second
)

// Client represents a WebSocket client connection
type Client struct {
	conn     *websocket.Conn
	session  *app.GameSession
	profiles *store.ProfileStore
	clientID string
	role     domain.Role
	send     chan []byte
	done     chan struct{}
	logger   *slog.Logger
	mu       sync.Mutex
	closed   bool
}

// NewClient creates a new WebSocket client
func NewClient(conn *websocket.Conn, session *app.GameSession, profiles *store.ProfileStore, clientID string, role domain.Role, logger *slog.Logger) *Client {
	return &Client{
		conn:     conn,
		session:  session,
		profiles: profiles,
		clientID: clientID,
		role:     role,
		send:     make(chan []byte, sendBufferSize),
		done:     make(chan struct{}),
		logger:   logger.With("clientID", clientID, "role", role),
	}
}

// GetClientID returns the client ID for this connection
func (c *Client) GetClientID() string {
	return c.clientID
}

// GetRole returns the role the client connected with
func (c *Client) GetRole() domain.Role {
	return c.role
}

// Send implements app.ClientConnection interface
func (c *Client) Send(message interface{}) error {
	if event, ok := message.(*domain.GameEvent); ok {
		message = fromEvent(event)
	}

	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	select {
	case c.send <- data:
		return nil
	default:
		// Buffer full, message dropped
		c.logger.Warn("send buffer full, message dropped")
		return nil
	}
}

// Close implements app.ClientConnection interface
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	close(c.done)
	return c.conn.Close()
}

// Run starts the client's read and write pumps
func (c *Client) Run() {
	go c.writePump()
	c.readPump()
}

// readPump pumps messages from the WebSocket connection
func (c *Client) readPump() {
	defer func() {
		c.session.UnregisterClient(c)
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug("websocket read error", "error", err)
			}
			break
		}

		c.handleMessage(message)
	}
}

// writePump pumps messages from the send channel to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			// One JSON document per frame so browsers can JSON.parse each message
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes an incoming message from the client
func (c *Client) handleMessage(data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError(ErrCodeInvalidMessage, "Invalid message format")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	var err error
	switch msg.Type {
	case MsgStartRound:
		err = c.handleStartRound(ctx, msg.Payload)
	case MsgRevealClue:
		err = c.session.RevealClue(ctx, c.role)
	case MsgEndSubmissions:
		err = c.session.EndSubmissions(ctx, c.role)
	case MsgDrawWinner:
		_, err = c.session.DrawWinner(ctx, c.role)
	case MsgResetRound:
		err = c.session.ResetRound(ctx, c.role)
	case MsgSubmitGuess:
		err = c.handleSubmitGuess(ctx, msg.Payload)
	case MsgSaveProfile:
		err = c.handleSaveProfile(ctx, msg.Payload)
	case MsgPing:
		c.sendPong()
	default:
		c.sendError(ErrCodeInvalidMessage, "Unknown message type")
	}

	if err != nil {
		code, message := ErrorCode(err)
		if code == ErrCodeInternalError {
			c.logger.Error("action failed", "type", msg.Type, "error", err)
		} else {
			c.logger.Debug("action rejected", "type", msg.Type, "error", err)
		}
		c.sendError(code, message)
	}
}

// handleStartRound handles a start_round message
func (c *Client) handleStartRound(ctx context.Context, raw json.RawMessage) error {
	var payload StartRoundPayload
	if err := decodePayload(raw, &payload); err != nil || payload.ProductID == "" {
		c.sendError(ErrCodeInvalidMessage, "Product is required")
		return nil
	}
	return c.session.StartRound(ctx, c.role, payload.ProductID)
}

// handleSubmitGuess handles a submit_guess message
func (c *Client) handleSubmitGuess(ctx context.Context, raw json.RawMessage) error {
	var payload SubmitGuessPayload
	if err := decodePayload(raw, &payload); err != nil {
		c.sendError(ErrCodeInvalidMessage, "Invalid payload")
		return nil
	}

	submission, err := c.session.SubmitGuess(ctx, c.clientID, payload.Participant(), payload.Guess)
	if err != nil {
		return err
	}

	c.Send(NewServerMessage(MsgGuessAccepted, &GuessAcceptedPayload{SubmissionID: submission.ID}))
	return nil
}

// handleSaveProfile stores the form prefill of this client for its role
func (c *Client) handleSaveProfile(ctx context.Context, raw json.RawMessage) error {
	var profile domain.Participant
	if err := decodePayload(raw, &profile); err != nil {
		c.sendError(ErrCodeInvalidMessage, "Invalid payload")
		return nil
	}

	if err := c.profiles.Save(ctx, c.role, c.clientID, profile); err != nil {
		return err
	}

	c.Send(NewServerMessage(MsgProfileSaved, profile.Normalize()))
	return nil
}

// sendConnected sends the connected message to the client
func (c *Client) sendConnected(ctx context.Context) {
	payload := &ConnectedPayload{
		ClientID: c.clientID,
		GameID:   c.session.GetRoomCode(),
		Role:     c.role,
	}
	if profile, ok := c.profiles.Load(ctx, c.role, c.clientID); ok {
		payload.Profile = &profile
	}

	c.Send(NewServerMessage(MsgConnected, payload))
}

// sendError sends an error message to the client
func (c *Client) sendError(code, message string) {
	payload := &ErrorPayload{
		Code:    code,
		Message: message,
	}

	msg := NewServerMessage(MsgError, payload)
	c.Send(msg)
}

// sendPong sends a pong message in response to ping
func (c *Client) sendPong() {
	msg := NewServerMessage(MsgPong, nil)
	c.Send(msg)
}

func decodePayload(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	return json.Unmarshal(raw, v)
}
