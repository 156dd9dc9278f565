package catalog

import (
	"time"

	"caixamisteriosa/internal/domain"
)

// Sponsor owns the products that can be given away
type Sponsor struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Products  []Product `gorm:"foreignKey:SponsorID;constraint:OnDelete:CASCADE" json:"products"`
	CreatedAt time.Time `json:"createdAt"`
}

// Product is a prize with its five clues, hardest first
type Product struct {
	ID        string       `gorm:"primaryKey" json:"id"`
	SponsorID string       `gorm:"index;not null" json:"sponsorId"`
	Name      string       `gorm:"not null" json:"name"`
	Clues     domain.Clues `gorm:"serializer:json" json:"clues"`
	Position  int          `json:"position"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// Ready reports whether the product can start a round
func (p *Product) Ready() bool {
	return p.Clues.Complete()
}

// FinishedGame is the archived result of a finished round
type FinishedGame struct {
	ID                 string    `gorm:"primaryKey" json:"id"`
	Room               string    `gorm:"index" json:"room"`
	SponsorName        string    `json:"sponsorName"`
	ProductName        string    `json:"productName"`
	WinnerName         string    `json:"winnerName"`
	WinnerPhone        string    `json:"-"`
	WinnerNeighborhood string    `json:"winnerNeighborhood"`
	WinnerCity         string    `json:"winnerCity"`
	SubmissionCount    int       `json:"submissionCount"`
	FinishedAt         time.Time `gorm:"index" json:"finishedAt"`
}
