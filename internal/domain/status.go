package domain

import (
	"encoding/json"
	"fmt"
)

// Status represents the lifecycle status of a game round
type Status uint8

const (
	StatusPending   Status = iota // No active round
	StatusAccepting               // Submissions open, clues being revealed
	StatusClosed                  // Submissions locked, awaiting draw
	StatusFinished                // Winner selected
)

var statusNames = [...]string{
	StatusPending:   "pending",
	StatusAccepting: "accepting",
	StatusClosed:    "closed",
	StatusFinished:  "finished",
}

// String returns the string representation of the status
func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}

// ParseStatus converts a wire name back into a Status
func ParseStatus(name string) (Status, error) {
	for i, n := range statusNames {
		if n == name {
			return Status(i), nil
		}
	}
	return StatusPending, fmt.Errorf("unknown status %q", name)
}

// MarshalJSON encodes the status as its wire name
func (s Status) MarshalJSON() ([]byte, error) {
	if int(s) >= len(statusNames) {
		return nil, fmt.Errorf("invalid status %d", uint8(s))
	}
	return json.Marshal(statusNames[s])
}

// UnmarshalJSON rejects anything but a known status name
func (s *Status) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseStatus(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// CanTransitionTo checks if a transition from current status to target status is valid
func (s Status) CanTransitionTo(target Status) bool {
	validTransitions := map[Status][]Status{
		StatusPending:   {StatusPending, StatusAccepting},
		StatusAccepting: {StatusAccepting, StatusClosed, StatusPending},
		StatusClosed:    {StatusFinished, StatusAccepting, StatusPending},
		StatusFinished:  {StatusAccepting, StatusPending},
	}

	allowed, ok := validTransitions[s]
	if !ok {
		return false
	}

	for _, status := range allowed {
		if status == target {
			return true
		}
	}
	return false
}

// AcceptsSubmissions reports whether guesses and clue reveals are allowed
func (s Status) AcceptsSubmissions() bool {
	return s == StatusAccepting
}
