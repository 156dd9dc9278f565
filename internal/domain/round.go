package domain

import "time"

// Round represents a single round of the mystery box game
type Round struct {
	ID                 string       `json:"id"`
	Status             Status       `json:"status"`
	Giveaway           Giveaway     `json:"giveaway"`
	RevealedCluesCount int          `json:"revealedCluesCount"`
	Submissions        []Submission `json:"submissions"`
	Winner             *Submission  `json:"winner"`
	StartedAt          time.Time    `json:"startedAt"`
	FinishedAt         *time.Time   `json:"finishedAt,omitempty"`
}

// StatusOf returns the status of a possibly absent round
func StatusOf(r *Round) Status {
	if r == nil {
		return StatusPending
	}
	return r.Status
}

// Clone returns a deep copy so reducers never share slices with their input
func (r *Round) Clone() *Round {
	if r == nil {
		return nil
	}

	clone := *r
	clone.Submissions = make([]Submission, len(r.Submissions))
	copy(clone.Submissions, r.Submissions)

	if r.Winner != nil {
		winner := *r.Winner
		clone.Winner = &winner
	}
	if r.FinishedAt != nil {
		finishedAt := *r.FinishedAt
		clone.FinishedAt = &finishedAt
	}

	return &clone
}

// RevealedClues returns the clues visible to participants
func (r *Round) RevealedClues() []string {
	if r == nil {
		return []string{}
	}
	n := r.RevealedCluesCount
	if n > ClueCount {
		n = ClueCount
	}
	clues := make([]string, n)
	copy(clues, r.Giveaway.Clues[:n])
	return clues
}

// Qualifying returns the submissions whose guess matches the product name
func (r *Round) Qualifying() []Submission {
	if r == nil {
		return []Submission{}
	}
	return QualifyingSubmissions(r.Submissions, r.Giveaway.ProductName)
}
