package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ActionType names an action for logging and the wire
type ActionType string

const (
	ActionStartRound       ActionType = "START_ROUND"
	ActionRevealClue       ActionType = "REVEAL_CLUE"
	ActionAppendSubmission ActionType = "APPEND_SUBMISSION"
	ActionCloseSubmissions ActionType = "CLOSE_SUBMISSIONS"
	ActionFinishDraw       ActionType = "FINISH_DRAW"
	ActionResetRound       ActionType = "RESET_ROUND"
)

// Action is a typed transition of the round state machine.
// Apply receives a private copy of the round and may modify it.
type Action interface {
	Type() ActionType
	Apply(round *Round) (*Round, error)
}

// Reduce applies an action to a round without mutating the input.
// A nil round means no round is active. On error the returned round is the input.
func Reduce(round *Round, action Action) (*Round, error) {
	if action == nil {
		return round, ErrUnknownAction
	}

	next, err := action.Apply(round.Clone())
	if err != nil {
		return round, err
	}
	if !StatusOf(round).CanTransitionTo(StatusOf(next)) {
		return round, fmt.Errorf("%s from %s to %s: %w", action.Type(), StatusOf(round), StatusOf(next), ErrInvalidTransition)
	}
	return next, nil
}

// StartRoundAction opens a new round for the given giveaway
type StartRoundAction struct {
	RoundID  string
	Giveaway Giveaway
	Now      time.Time
}

// NewStartRoundAction creates a start action with a fresh round ID
func NewStartRoundAction(giveaway Giveaway) *StartRoundAction {
	return &StartRoundAction{
		RoundID:  uuid.NewString(),
		Giveaway: giveaway,
		Now:      time.Now().UTC(),
	}
}

func (a *StartRoundAction) Type() ActionType { return ActionStartRound }

func (a *StartRoundAction) Apply(_ *Round) (*Round, error) {
	if err := a.Giveaway.Validate(); err != nil {
		return nil, err
	}

	roundID := a.RoundID
	if roundID == "" {
		roundID = uuid.NewString()
	}

	return &Round{
		ID:                 roundID,
		Status:             StatusAccepting,
		Giveaway:           a.Giveaway,
		RevealedCluesCount: 1,
		Submissions:        make([]Submission, 0),
		Winner:             nil,
		StartedAt:          a.Now,
	}, nil
}

// RevealClueAction shows the next clue
type RevealClueAction struct{}

func (a *RevealClueAction) Type() ActionType { return ActionRevealClue }

func (a *RevealClueAction) Apply(round *Round) (*Round, error) {
	if !StatusOf(round).AcceptsSubmissions() {
		return nil, ErrInvalidTransition
	}
	if round.RevealedCluesCount >= ClueCount {
		return nil, ErrAllCluesRevealed
	}

	round.RevealedCluesCount++
	return round, nil
}

// AppendSubmissionAction records a guess in the round ledger
type AppendSubmissionAction struct {
	Submission Submission
}

func (a *AppendSubmissionAction) Type() ActionType { return ActionAppendSubmission }

func (a *AppendSubmissionAction) Apply(round *Round) (*Round, error) {
	if !StatusOf(round).AcceptsSubmissions() {
		return nil, ErrRoundNotAccepting
	}

	round.Submissions = append(round.Submissions, a.Submission)
	return round, nil
}

// CloseSubmissionsAction freezes the ledger
type CloseSubmissionsAction struct{}

func (a *CloseSubmissionsAction) Type() ActionType { return ActionCloseSubmissions }

func (a *CloseSubmissionsAction) Apply(round *Round) (*Round, error) {
	if StatusOf(round) != StatusAccepting {
		return nil, ErrInvalidTransition
	}

	round.Status = StatusClosed
	return round, nil
}

// FinishDrawAction stores the drawn winner and ends the round
type FinishDrawAction struct {
	Winner Submission
	Now    time.Time
}

func (a *FinishDrawAction) Type() ActionType { return ActionFinishDraw }

func (a *FinishDrawAction) Apply(round *Round) (*Round, error) {
	if StatusOf(round) != StatusClosed {
		return nil, ErrInvalidTransition
	}

	qualifying := round.Qualifying()
	if len(qualifying) == 0 {
		return nil, ErrNoQualifyingWinners
	}

	found := false
	for _, s := range qualifying {
		if s.ID == a.Winner.ID {
			found = true
			break
		}
	}
	if !found {
		return nil, ErrWinnerNotQualifying
	}

	now := a.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	winner := a.Winner
	round.Winner = &winner
	round.Status = StatusFinished
	round.FinishedAt = &now
	return round, nil
}

// ResetRoundAction destroys the round
type ResetRoundAction struct{}

func (a *ResetRoundAction) Type() ActionType { return ActionResetRound }

func (a *ResetRoundAction) Apply(_ *Round) (*Round, error) {
	return nil, nil
}
