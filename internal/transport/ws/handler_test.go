package ws

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"caixamisteriosa/internal/app"
	"caixamisteriosa/internal/domain"
	"caixamisteriosa/internal/presentation"
	"caixamisteriosa/internal/store"
)

type stubCatalog struct{}

func (stubCatalog) Giveaway(_ context.Context, productID string) (domain.Giveaway, error) {
	if productID != "bike" {
		return domain.Giveaway{}, domain.ErrProductNotFound
	}
	return domain.Giveaway{
		SponsorName: "Loja do Zé",
		ProductName: "Bicicleta",
		Clues:       domain.Clues{"Tem rodas", "Tem pedais", "Tem corrente", "Tem guidão", "É uma bicicleta"},
	}, nil
}

func (stubCatalog) RecordFinishedGame(context.Context, string, *domain.Round) error { return nil }

type wireMessage struct {
	Type    MessageType     `json:"type"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

type testEnv struct {
	server   *httptest.Server
	hub      *app.GameHub
	roomCode string
}

func newTestEnv(t *testing.T, operatorKey string) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	backend := store.NewMemoryBackend()
	profiles := store.NewProfileStore(backend, logger)

	hub := app.NewGameHub(app.Options{
		Backend:  backend,
		Catalog:  stubCatalog{},
		Profiles: profiles,
	}, logger)
	t.Cleanup(hub.Close)

	session, err := hub.CreateGame(context.Background())
	require.NoError(t, err)

	server := httptest.NewServer(NewHandler(hub, profiles, operatorKey, logger))
	t.Cleanup(server.Close)

	return &testEnv{server: server, hub: hub, roomCode: session.GetRoomCode()}
}

func (e *testEnv) dial(t *testing.T, params url.Values) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	u := "ws" + strings.TrimPrefix(e.server.URL, "http") + "/?" + params.Encode()
	conn, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if conn != nil {
		t.Cleanup(func() { conn.Close() })
	}
	return conn, resp, err
}

func (e *testEnv) connect(t *testing.T, role domain.Role, extra url.Values) *websocket.Conn {
	t.Helper()
	params := url.Values{"roomCode": {e.roomCode}, "role": {role.String()}}
	for k, v := range extra {
		params[k] = v
	}
	conn, _, err := e.dial(t, params)
	require.NoError(t, err)

	readUntil(t, conn, func(m wireMessage) bool { return m.Type == MsgConnected })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msgType MessageType, payload interface{}) {
	t.Helper()
	msg := map[string]interface{}{"type": msgType}
	if payload != nil {
		msg["payload"] = payload
	}
	require.NoError(t, conn.WriteJSON(msg))
}

func readUntil(t *testing.T, conn *websocket.Conn, match func(wireMessage) bool) wireMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var msg wireMessage
		require.NoError(t, conn.ReadJSON(&msg))
		if match(msg) {
			return msg
		}
	}
}

func readState(t *testing.T, conn *websocket.Conn, screen presentation.Screen) presentation.View {
	t.Helper()
	var view presentation.View
	readUntil(t, conn, func(m wireMessage) bool {
		if m.Type != MsgState {
			return false
		}
		require.NoError(t, json.Unmarshal(m.Payload, &view))
		return view.Screen == screen
	})
	return view
}

func readError(t *testing.T, conn *websocket.Conn) ErrorPayload {
	t.Helper()
	var payload ErrorPayload
	msg := readUntil(t, conn, func(m wireMessage) bool { return m.Type == MsgError })
	require.NoError(t, json.Unmarshal(msg.Payload, &payload))
	return payload
}

func TestWebSocketRound(t *testing.T) {
	env := newTestEnv(t, "")

	operator := env.connect(t, domain.RoleOperator, nil)
	participant := env.connect(t, domain.RoleParticipant, nil)

	readState(t, operator, presentation.ScreenOperatorSetup)
	readState(t, participant, presentation.ScreenParticipantWaiting)

	send(t, operator, MsgStartRound, StartRoundPayload{ProductID: "bike"})

	opView := readState(t, operator, presentation.ScreenOperatorLive)
	require.Equal(t, "Bicicleta", opView.Round.ProductName)
	require.Len(t, opView.Round.Clues, 5)

	view := readState(t, participant, presentation.ScreenParticipantForm)
	require.Empty(t, view.Round.ProductName)
	require.Equal(t, []string{"Tem rodas"}, view.Round.Clues)

	send(t, participant, MsgRevealClue, nil)
	require.Equal(t, ErrCodeNotOperator, readError(t, participant).Code)

	send(t, participant, MsgSubmitGuess, SubmitGuessPayload{Name: "Ana", Guess: "bicicleta"})
	readUntil(t, participant, func(m wireMessage) bool { return m.Type == MsgGuessAccepted })
	readState(t, participant, presentation.ScreenParticipantSubmitted)

	send(t, participant, MsgSubmitGuess, SubmitGuessPayload{Name: "Ana", Guess: "bicicleta"})
	require.Equal(t, ErrCodeAlreadySubmitted, readError(t, participant).Code)

	send(t, participant, MsgSubmitGuess, SubmitGuessPayload{Name: " ", Guess: "x"})
	require.Equal(t, ErrCodeInvalidMessage, readError(t, participant).Code)

	send(t, operator, MsgEndSubmissions, nil)
	readState(t, participant, presentation.ScreenParticipantClosed)

	send(t, operator, MsgDrawWinner, nil)
	readUntil(t, participant, func(m wireMessage) bool { return m.Type == MsgDrawStarted })

	send(t, operator, MsgDrawWinner, nil)
	require.Equal(t, ErrCodeDrawInProgress, readError(t, operator).Code)

	send(t, operator, MsgResetRound, nil)
	readUntil(t, participant, func(m wireMessage) bool { return m.Type == MsgRoundDestroyed })
	readState(t, participant, presentation.ScreenParticipantWaiting)
}

func TestWebSocketProfilePrefill(t *testing.T) {
	env := newTestEnv(t, "")
	clientID := "4b2a6f0e-8a43-4a53-9d3e-2f2f0c1f6a11"

	conn := env.connect(t, domain.RoleParticipant, url.Values{"clientId": {clientID}})
	send(t, conn, MsgSaveProfile, domain.Participant{Name: " Ana ", City: "Recife"})
	readUntil(t, conn, func(m wireMessage) bool { return m.Type == MsgProfileSaved })
	conn.Close()

	params := url.Values{"roomCode": {env.roomCode}, "clientId": {clientID}}
	again, _, err := env.dial(t, params)
	require.NoError(t, err)

	msg := readUntil(t, again, func(m wireMessage) bool { return m.Type == MsgConnected })
	var payload ConnectedPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &payload))
	require.Equal(t, clientID, payload.ClientID)
	require.NotNil(t, payload.Profile)
	require.Equal(t, "Ana", payload.Profile.Name)
	require.Equal(t, "Recife", payload.Profile.City)
}

func TestWebSocketRejectsConnections(t *testing.T) {
	env := newTestEnv(t, "s3cret")

	tests := []struct {
		name   string
		params url.Values
		status int
	}{
		{name: "missing room", params: url.Values{}, status: http.StatusBadRequest},
		{name: "unknown room", params: url.Values{"roomCode": {"ZZZZZZ"}}, status: http.StatusNotFound},
		{name: "unknown role", params: url.Values{"roomCode": {env.roomCode}, "role": {"admin"}}, status: http.StatusBadRequest},
		{name: "wrong operator key", params: url.Values{"roomCode": {env.roomCode}, "role": {"operator"}, "operatorKey": {"nope"}}, status: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, resp, err := env.dial(t, tt.params)
			require.Error(t, err)
			require.NotNil(t, resp)
			require.Equal(t, tt.status, resp.StatusCode)
		})
	}

	conn := env.connect(t, domain.RoleOperator, url.Values{"operatorKey": {"s3cret"}})
	readState(t, conn, presentation.ScreenOperatorSetup)
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		code string
	}{
		{domain.ErrAlreadySubmitted, ErrCodeAlreadySubmitted},
		{domain.ErrNoQualifyingWinners, ErrCodeNoQualifyingWinners},
		{domain.ErrAllCluesRevealed, ErrCodeInvalidAction},
		{domain.ErrNotOperator, ErrCodeNotOperator},
		{errors.Join(errors.New("wrapped"), domain.ErrDrawInProgress), ErrCodeDrawInProgress},
		{errors.New("boom"), ErrCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			code, message := ErrorCode(tt.err)
			require.Equal(t, tt.code, code)
			require.NotEmpty(t, message)
		})
	}
}
