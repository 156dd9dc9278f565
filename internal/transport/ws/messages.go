package ws

import (
	"encoding/json"
	"errors"
	"time"

	"caixamisteriosa/internal/domain"
)

// MessageType represents the type of WebSocket message
type MessageType string

// Client → Server message types
const (
	MsgStartRound     MessageType = "start_round"
	MsgRevealClue     MessageType = "reveal_clue"
	MsgEndSubmissions MessageType = "end_submissions"
	MsgDrawWinner     MessageType = "draw_winner"
	MsgResetRound     MessageType = "reset_round"
	MsgSubmitGuess    MessageType = "submit_guess"
	MsgSaveProfile    MessageType = "save_profile"
	MsgPing           MessageType = "ping"
)

// Server → Client message types
const (
	MsgConnected      MessageType = "connected"
	MsgError          MessageType = "error"
	MsgState          MessageType = "state"
	MsgGuessAccepted  MessageType = "guess_accepted"
	MsgDrawStarted    MessageType = "draw_started"
	MsgDrawCancelled  MessageType = "draw_cancelled"
	MsgRoundDestroyed MessageType = "round_destroyed"
	MsgProfileSaved   MessageType = "profile_saved"
	MsgPong           MessageType = "pong"
)

// ClientMessage represents a message from client to server
type ClientMessage struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ServerMessage represents a message from server to client
type ServerMessage struct {
	Type      MessageType `json:"type"`
	Event     string      `json:"event,omitempty"` // Game event behind a state message
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// NewServerMessage creates a new server message with current timestamp
func NewServerMessage(msgType MessageType, payload interface{}) *ServerMessage {
	return &ServerMessage{
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// fromEvent translates a session event into the message sent on the wire
func fromEvent(event *domain.GameEvent) *ServerMessage {
	msg := &ServerMessage{
		Payload:   event.Payload,
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
	}

	switch {
	case event.CarriesState():
		msg.Type = MsgState
		msg.Event = string(event.Type)
	case event.Type == domain.EventDrawStarted:
		msg.Type = MsgDrawStarted
	case event.Type == domain.EventDrawCancelled:
		msg.Type = MsgDrawCancelled
	case event.Type == domain.EventRoundDestroyed:
		msg.Type = MsgRoundDestroyed
	default:
		msg.Type = MsgError
		msg.Event = string(event.Type)
	}

	return msg
}

// Client message payloads

// StartRoundPayload is the payload for start_round message
type StartRoundPayload struct {
	ProductID string `json:"productId"`
}

// SubmitGuessPayload is the payload for submit_guess message
type SubmitGuessPayload struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	Guess        string `json:"guess"`
}

// Participant returns the identity part of the guess
func (p *SubmitGuessPayload) Participant() domain.Participant {
	return domain.Participant{
		Name:         p.Name,
		Phone:        p.Phone,
		Neighborhood: p.Neighborhood,
		City:         p.City,
	}
}

// Server message payloads

// ConnectedPayload is the payload for connected message
type ConnectedPayload struct {
	ClientID string              `json:"clientId"`
	GameID   string              `json:"gameId"`
	Role     domain.Role         `json:"role"`
	Profile  *domain.Participant `json:"profile,omitempty"`
}

// GuessAcceptedPayload is the payload for guess_accepted message
type GuessAcceptedPayload struct {
	SubmissionID string `json:"submissionId"`
}

// ErrorPayload is the payload for error message
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	ErrCodeInvalidMessage      = "INVALID_MESSAGE"
	ErrCodeGameNotFound        = "GAME_NOT_FOUND"
	ErrCodeProductNotFound     = "PRODUCT_NOT_FOUND"
	ErrCodeSponsorNotFound     = "SPONSOR_NOT_FOUND"
	ErrCodeIncompleteClues     = "INCOMPLETE_CLUES"
	ErrCodeInvalidAction       = "INVALID_ACTION"
	ErrCodeNotOperator         = "NOT_OPERATOR"
	ErrCodeRoundNotAccepting   = "ROUND_NOT_ACCEPTING"
	ErrCodeAlreadySubmitted    = "ALREADY_SUBMITTED"
	ErrCodeNoQualifyingWinners = "NO_QUALIFYING_WINNERS"
	ErrCodeDrawInProgress      = "DRAW_IN_PROGRESS"
	ErrCodeInternalError       = "INTERNAL_ERROR"
)

var errorCodes = []struct {
	err     error
	code    string
	message string
}{
	{domain.ErrGameNotFound, ErrCodeGameNotFound, "Game not found"},
	{domain.ErrProductNotFound, ErrCodeProductNotFound, "Product not found"},
	{domain.ErrSponsorNotFound, ErrCodeSponsorNotFound, "Sponsor not found"},
	{domain.ErrIncompleteClues, ErrCodeIncompleteClues, "The product needs all 5 clues before it can be raffled"},
	{domain.ErrNotOperator, ErrCodeNotOperator, "Only the operator can do that"},
	{domain.ErrRoundNotAccepting, ErrCodeRoundNotAccepting, "Guesses are closed"},
	{domain.ErrAlreadySubmitted, ErrCodeAlreadySubmitted, "You already sent a guess for this round"},
	{domain.ErrNoQualifyingWinners, ErrCodeNoQualifyingWinners, "Nobody guessed correctly"},
	{domain.ErrDrawInProgress, ErrCodeDrawInProgress, "The draw is already spinning"},
	{domain.ErrAllCluesRevealed, ErrCodeInvalidAction, "All clues are already revealed"},
	{domain.ErrInvalidTransition, ErrCodeInvalidAction, "That action is not available right now"},
	{domain.ErrWinnerNotQualifying, ErrCodeInvalidAction, "That action is not available right now"},
	{domain.ErrEmptyName, ErrCodeInvalidMessage, "Name is required"},
	{domain.ErrEmptyGuess, ErrCodeInvalidMessage, "Guess is required"},
	{domain.ErrUnknownAction, ErrCodeInvalidMessage, "Unknown action"},
}

// ErrorCode maps a game error to the code and toast message shown to the client
func ErrorCode(err error) (string, string) {
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return e.code, e.message
		}
	}
	return ErrCodeInternalError, "Something went wrong, try again"
}
