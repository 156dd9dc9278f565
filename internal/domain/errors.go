package domain

import "errors"

// Domain errors
var (
	ErrGameNotFound        = errors.New("game not found")
	ErrProductNotFound     = errors.New("product not found")
	ErrSponsorNotFound     = errors.New("sponsor not found")
	ErrIncompleteClues     = errors.New("product needs all 5 clues filled")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrRoundNotAccepting   = errors.New("round is not accepting submissions")
	ErrAllCluesRevealed    = errors.New("all clues already revealed")
	ErrAlreadySubmitted    = errors.New("already submitted this round")
	ErrNoQualifyingWinners = errors.New("nobody guessed correctly")
	ErrWinnerNotQualifying = errors.New("winner is not a qualifying submission")
	ErrDrawInProgress      = errors.New("a draw is already in progress")
	ErrNotOperator         = errors.New("only the operator can perform this action")
	ErrEmptyGuess          = errors.New("guess cannot be empty")
	ErrEmptyName           = errors.New("participant name cannot be empty")
	ErrUnknownAction       = errors.New("unknown action")
)
