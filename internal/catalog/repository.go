// Package catalog stores sponsors, their products and the history of finished rounds.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"caixamisteriosa/internal/domain"
)

var (
	ErrEmptyName       = errors.New("name cannot be empty")
	ErrRoundNotEnded   = errors.New("round has no winner")
	ErrNoFinishedGames = errors.New("no finished game")
)

// Repository is the gorm-backed catalog
type Repository struct {
	db *gorm.DB
}

// Open opens (or creates) the SQLite catalog and migrates its tables
func Open(dsn string) (*Repository, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite serializes writers; a single connection also keeps :memory: databases alive
	sqlDB.SetMaxOpenConns(1)

	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		sqlDB.Close()
		return nil, err
	}

	repo := NewRepository(db)
	if err := repo.Migrate(); err != nil {
		sqlDB.Close()
		return nil, err
	}

	return repo, nil
}

// NewRepository wraps an existing gorm connection
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates or updates the catalog tables
func (r *Repository) Migrate() error {
	return r.db.AutoMigrate(&Sponsor{}, &Product{}, &FinishedGame{})
}

// Close releases the database connection
func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CreateSponsor adds a sponsor
func (r *Repository) CreateSponsor(ctx context.Context, name string) (*Sponsor, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}

	sponsor := &Sponsor{
		ID:       uuid.NewString(),
		Name:     name,
		Products: []Product{},
	}
	if err := r.db.WithContext(ctx).Create(sponsor).Error; err != nil {
		return nil, err
	}
	return sponsor, nil
}

// ListSponsors returns every sponsor with its products in display order
func (r *Repository) ListSponsors(ctx context.Context) ([]Sponsor, error) {
	var sponsors []Sponsor
	err := r.db.WithContext(ctx).
		Preload("Products", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Order("created_at ASC").
		Find(&sponsors).Error
	if err != nil {
		return nil, err
	}
	return sponsors, nil
}

// GetSponsor returns a sponsor with its products
func (r *Repository) GetSponsor(ctx context.Context, id string) (*Sponsor, error) {
	var sponsor Sponsor
	err := r.db.WithContext(ctx).
		Preload("Products", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&sponsor, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrSponsorNotFound
		}
		return nil, err
	}
	return &sponsor, nil
}

// AddProduct appends a product to a sponsor; clues may be partially filled
func (r *Repository) AddProduct(ctx context.Context, sponsorID, name string, clues []string) (*Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}

	var product *Product
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&Sponsor{}).Where("id = ?", sponsorID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return domain.ErrSponsorNotFound
		}

		var position int64
		if err := tx.Model(&Product{}).Where("sponsor_id = ?", sponsorID).Count(&position).Error; err != nil {
			return err
		}

		product = &Product{
			ID:        uuid.NewString(),
			SponsorID: sponsorID,
			Name:      name,
			Clues:     fillClues(clues),
			Position:  int(position),
		}
		return tx.Create(product).Error
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

// UpdateClues replaces the clues of a product
func (r *Repository) UpdateClues(ctx context.Context, productID string, clues []string) (*Product, error) {
	product, err := r.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	product.Clues = fillClues(clues)
	if err := r.db.WithContext(ctx).Save(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// GetProduct returns a product by ID
func (r *Repository) GetProduct(ctx context.Context, id string) (*Product, error) {
	var product Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}

// Giveaway snapshots a product and its sponsor for a new round
func (r *Repository) Giveaway(ctx context.Context, productID string) (domain.Giveaway, error) {
	product, err := r.GetProduct(ctx, productID)
	if err != nil {
		return domain.Giveaway{}, err
	}

	var sponsor Sponsor
	if err := r.db.WithContext(ctx).First(&sponsor, "id = ?", product.SponsorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Giveaway{}, domain.ErrSponsorNotFound
		}
		return domain.Giveaway{}, err
	}

	giveaway := domain.Giveaway{
		SponsorName: sponsor.Name,
		ProductName: product.Name,
		Clues:       product.Clues,
	}
	if err := giveaway.Validate(); err != nil {
		return domain.Giveaway{}, err
	}
	return giveaway, nil
}

// RecordFinishedGame archives the result of a finished round; recording twice is a no-op
func (r *Repository) RecordFinishedGame(ctx context.Context, room string, round *domain.Round) error {
	if round == nil || round.Winner == nil {
		return ErrRoundNotEnded
	}

	finishedAt := time.Now().UTC()
	if round.FinishedAt != nil {
		finishedAt = *round.FinishedAt
	}

	game := &FinishedGame{
		ID:                 round.ID,
		Room:               room,
		SponsorName:        round.Giveaway.SponsorName,
		ProductName:        round.Giveaway.ProductName,
		WinnerName:         round.Winner.Participant.Name,
		WinnerPhone:        round.Winner.Participant.Phone,
		WinnerNeighborhood: round.Winner.Participant.Neighborhood,
		WinnerCity:         round.Winner.Participant.City,
		SubmissionCount:    len(round.Submissions),
		FinishedAt:         finishedAt,
	}

	return r.db.WithContext(ctx).
		Where("id = ?", game.ID).
		FirstOrCreate(game).Error
}

// LastFinishedGame returns the most recent finished round, optionally limited to a room
func (r *Repository) LastFinishedGame(ctx context.Context, room string) (*FinishedGame, error) {
	query := r.db.WithContext(ctx).Order("finished_at DESC")
	if room != "" {
		query = query.Where("room = ?", room)
	}

	var game FinishedGame
	if err := query.First(&game).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoFinishedGames
		}
		return nil, err
	}
	return &game, nil
}

func fillClues(list []string) domain.Clues {
	var clues domain.Clues
	for i := 0; i < len(list) && i < domain.ClueCount; i++ {
		clues[i] = strings.TrimSpace(list[i])
	}
	return clues
}
