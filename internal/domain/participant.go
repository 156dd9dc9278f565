package domain

import "strings"

// Participant is the identity snapshot embedded in a submission
type Participant struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
}

// Normalize trims surrounding whitespace from every field
func (p Participant) Normalize() Participant {
	return Participant{
		ID:           p.ID,
		Name:         strings.TrimSpace(p.Name),
		Phone:        strings.TrimSpace(p.Phone),
		Neighborhood: strings.TrimSpace(p.Neighborhood),
		City:         strings.TrimSpace(p.City),
	}
}

// Validate checks the fields a submission cannot do without
func (p Participant) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	return nil
}
