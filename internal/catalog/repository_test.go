package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"caixamisteriosa/internal/domain"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	repo, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

var fullClues = []string{"Tem rodas", "Tem pedais", "Tem corrente", "Tem guidão", "É uma bicicleta"}

func TestSponsorsAndProducts(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	_, err := repo.CreateSponsor(ctx, "   ")
	require.ErrorIs(t, err, ErrEmptyName)

	sponsor, err := repo.CreateSponsor(ctx, "  Loja do Zé ")
	require.NoError(t, err)
	require.Equal(t, "Loja do Zé", sponsor.Name)

	first, err := repo.AddProduct(ctx, sponsor.ID, "Bicicleta", fullClues)
	require.NoError(t, err)
	require.Equal(t, 0, first.Position)
	require.True(t, first.Ready())

	second, err := repo.AddProduct(ctx, sponsor.ID, "Moto", []string{"Tem motor"})
	require.NoError(t, err)
	require.Equal(t, 1, second.Position)
	require.False(t, second.Ready())

	_, err = repo.AddProduct(ctx, "missing", "Carro", nil)
	require.ErrorIs(t, err, domain.ErrSponsorNotFound)

	sponsors, err := repo.ListSponsors(ctx)
	require.NoError(t, err)
	require.Len(t, sponsors, 1)
	require.Len(t, sponsors[0].Products, 2)
	require.Equal(t, "Bicicleta", sponsors[0].Products[0].Name)
	require.Equal(t, "Moto", sponsors[0].Products[1].Name)
	require.Equal(t, domain.Clues{"Tem rodas", "Tem pedais", "Tem corrente", "Tem guidão", "É uma bicicleta"}, sponsors[0].Products[0].Clues)
}

func TestUpdateCluesAndGiveaway(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	sponsor, err := repo.CreateSponsor(ctx, "Loja")
	require.NoError(t, err)
	product, err := repo.AddProduct(ctx, sponsor.ID, "Moto", []string{"a", "b"})
	require.NoError(t, err)

	_, err = repo.Giveaway(ctx, product.ID)
	require.ErrorIs(t, err, domain.ErrIncompleteClues)

	updated, err := repo.UpdateClues(ctx, product.ID, []string{"1", "2", "3", "4", "5", "6"})
	require.NoError(t, err)
	require.Equal(t, domain.Clues{"1", "2", "3", "4", "5"}, updated.Clues)

	giveaway, err := repo.Giveaway(ctx, product.ID)
	require.NoError(t, err)
	require.Equal(t, "Loja", giveaway.SponsorName)
	require.Equal(t, "Moto", giveaway.ProductName)

	_, err = repo.GetProduct(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrProductNotFound)
	_, err = repo.UpdateClues(ctx, "missing", fullClues)
	require.ErrorIs(t, err, domain.ErrProductNotFound)
}

func finishedRound(t *testing.T, product string, finishedAt time.Time) *domain.Round {
	t.Helper()
	winner, err := domain.NewSubmission(domain.Participant{Name: "Ana", Phone: "1199"}, product)
	require.NoError(t, err)
	return &domain.Round{
		ID:          winner.ID + "-round",
		Status:      domain.StatusFinished,
		Giveaway:    domain.Giveaway{SponsorName: "Loja", ProductName: product},
		Submissions: []domain.Submission{winner},
		Winner:      &winner,
		FinishedAt:  &finishedAt,
	}
}

func TestFinishedGameHistory(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	_, err := repo.LastFinishedGame(ctx, "")
	require.ErrorIs(t, err, ErrNoFinishedGames)

	require.ErrorIs(t, repo.RecordFinishedGame(ctx, "ABC123", &domain.Round{ID: "x"}), ErrRoundNotEnded)

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	older := finishedRound(t, "Bicicleta", base)
	newer := finishedRound(t, "Moto", base.Add(time.Hour))

	require.NoError(t, repo.RecordFinishedGame(ctx, "ABC123", older))
	require.NoError(t, repo.RecordFinishedGame(ctx, "XYZ789", newer))
	require.NoError(t, repo.RecordFinishedGame(ctx, "XYZ789", newer))

	tests := []struct {
		name    string
		room    string
		product string
	}{
		{name: "any room", room: "", product: "Moto"},
		{name: "filtered by room", room: "ABC123", product: "Bicicleta"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			game, err := repo.LastFinishedGame(ctx, tt.room)
			require.NoError(t, err)
			require.Equal(t, tt.product, game.ProductName)
			require.Equal(t, "Ana", game.WinnerName)
			require.Equal(t, 1, game.SubmissionCount)
		})
	}

	_, err = repo.LastFinishedGame(ctx, "NOPE00")
	require.ErrorIs(t, err, ErrNoFinishedGames)
}
