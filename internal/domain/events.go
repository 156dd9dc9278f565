package domain

import "time"

// EventType represents the type of game event
type EventType string

const (
	EventRoundStarted     EventType = "ROUND_STARTED"
	EventClueRevealed     EventType = "CLUE_REVEALED"
	EventSubmissionMade   EventType = "SUBMISSION_MADE"
	EventSubmissionsEnded EventType = "SUBMISSIONS_ENDED"
	EventDrawStarted      EventType = "DRAW_STARTED"
	EventDrawCancelled    EventType = "DRAW_CANCELLED"
	EventWinnerDrawn      EventType = "WINNER_DRAWN"
	EventRoundDestroyed   EventType = "ROUND_DESTROYED"
	EventStateSynced      EventType = "STATE_SYNCED"
	EventError            EventType = "ERROR"
)

// GameEvent represents an event that occurred in the game
type GameEvent struct {
	Type      EventType   `json:"type"`
	GameID    string      `json:"gameId"`
	ClientID  string      `json:"clientId,omitempty"` // If event is client-specific
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewEvent creates a new game event
func NewEvent(eventType EventType, gameID string, payload interface{}) *GameEvent {
	return &GameEvent{
		Type:      eventType,
		GameID:    gameID,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// NewClientEvent creates a new client-specific game event
func NewClientEvent(eventType EventType, gameID, clientID string, payload interface{}) *GameEvent {
	return &GameEvent{
		Type:      eventType,
		GameID:    gameID,
		ClientID:  clientID,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// CarriesState reports whether the event payload is a round snapshot
func (e *GameEvent) CarriesState() bool {
	switch e.Type {
	case EventRoundStarted, EventClueRevealed, EventSubmissionMade,
		EventSubmissionsEnded, EventWinnerDrawn, EventStateSynced:
		return true
	}
	return false
}

// Payload types for different events

// RoundView is what a client sees of the round.
// The product name and the full clue list stay hidden until the round is finished.
type RoundView struct {
	ID                 string       `json:"id,omitempty"`
	Status             Status       `json:"status"`
	SponsorName        string       `json:"sponsorName,omitempty"`
	ProductName        string       `json:"productName,omitempty"`
	Clues              []string     `json:"clues"`
	RevealedCluesCount int          `json:"revealedCluesCount"`
	SubmissionCount    int          `json:"submissionCount"`
	Submissions        []Submission `json:"submissions,omitempty"`
	Winner             *Submission  `json:"winner,omitempty"`
}

// ViewFor builds the round view for a role
func ViewFor(r *Round, role Role) RoundView {
	if r == nil {
		return RoundView{Status: StatusPending, Clues: []string{}}
	}

	view := RoundView{
		ID:                 r.ID,
		Status:             r.Status,
		SponsorName:        r.Giveaway.SponsorName,
		Clues:              r.RevealedClues(),
		RevealedCluesCount: r.RevealedCluesCount,
		SubmissionCount:    len(r.Submissions),
	}

	if role.IsOperator() {
		view.ProductName = r.Giveaway.ProductName
		view.Clues = append([]string(nil), r.Giveaway.Clues[:]...)
		view.Submissions = r.Submissions
		view.Winner = r.Winner
		return view
	}

	if r.Status == StatusFinished {
		view.ProductName = r.Giveaway.ProductName
	}
	if r.Winner != nil {
		// Participants see who won, not how to reach them
		winner := *r.Winner
		winner.Participant.Phone = ""
		view.Winner = &winner
	}

	return view
}

// DrawStartedPayload is sent when the roulette starts spinning
type DrawStartedPayload struct {
	RoundID     string   `json:"roundId"`
	Wheel       []string `json:"wheel"` // Participant names in wheel order
	WinnerIndex int      `json:"winnerIndex"`
	Offset      float64  `json:"offset"`
	DurationMs  int64    `json:"durationMs"`
}

// NewDrawStartedPayload strips the wheel down to display names
func NewDrawStartedPayload(d *Draw) *DrawStartedPayload {
	names := make([]string, len(d.Wheel))
	for i, s := range d.Wheel {
		names[i] = s.Participant.Name
	}
	return &DrawStartedPayload{
		RoundID:     d.RoundID,
		Wheel:       names,
		WinnerIndex: d.WinnerIndex,
		Offset:      d.Offset,
		DurationMs:  d.DurationMs,
	}
}

// RoundDestroyedPayload is sent when a round is reset
type RoundDestroyedPayload struct {
	RoundID string `json:"roundId,omitempty"`
}

// DrawCancelledPayload is sent when a spinning roulette is abandoned
type DrawCancelledPayload struct {
	RoundID string `json:"roundId"`
}

// ErrorPayload is sent when an error occurs
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
