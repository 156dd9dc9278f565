package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Submission represents a participant's guess about the mystery prize
type Submission struct {
	ID          string      `json:"id"`
	Participant Participant `json:"participant"`
	Guess       string      `json:"guess"`
	Timestamp   time.Time   `json:"timestamp"`
}

// NewSubmission creates a new submission with fresh participant and submission IDs
func NewSubmission(participant Participant, guess string) (Submission, error) {
	participant = participant.Normalize()
	if err := participant.Validate(); err != nil {
		return Submission{}, err
	}
	if strings.TrimSpace(guess) == "" {
		return Submission{}, ErrEmptyGuess
	}

	participant.ID = uuid.NewString()

	return Submission{
		ID:          uuid.NewString(),
		Participant: participant,
		Guess:       guess,
		Timestamp:   time.Now().UTC(),
	}, nil
}

// Qualifies reports whether a guess names the product, ignoring case and surrounding whitespace
func Qualifies(guess, productName string) bool {
	return strings.EqualFold(strings.TrimSpace(guess), strings.TrimSpace(productName))
}

// QualifyingSubmissions filters submissions down to the correct guesses, preserving order
func QualifyingSubmissions(submissions []Submission, productName string) []Submission {
	qualifying := make([]Submission, 0, len(submissions))
	for _, s := range submissions {
		if Qualifies(s.Guess, productName) {
			qualifying = append(qualifying, s)
		}
	}
	return qualifying
}
