package domain

import "strings"

// ClueCount is the number of clues every product carries
const ClueCount = 5

// Clues is the ordered clue list of a product, hardest first
type Clues [ClueCount]string

// Complete reports whether every clue slot is filled
func (c Clues) Complete() bool {
	for _, clue := range c {
		if strings.TrimSpace(clue) == "" {
			return false
		}
	}
	return true
}

// CluesFrom copies a slice into a fixed clue list, returning false if the length is wrong
func CluesFrom(list []string) (Clues, bool) {
	var clues Clues
	if len(list) != ClueCount {
		return clues, false
	}
	for i, clue := range list {
		clues[i] = strings.TrimSpace(clue)
	}
	return clues, true
}

// Giveaway is the prize snapshot copied into a round when it starts
type Giveaway struct {
	SponsorName string `json:"sponsorName"`
	ProductName string `json:"productName"`
	Clues       Clues  `json:"clues"`
}

// Validate checks that a round can be started with this giveaway
func (g Giveaway) Validate() error {
	if strings.TrimSpace(g.ProductName) == "" || !g.Clues.Complete() {
		return ErrIncompleteClues
	}
	return nil
}
