package ledger

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"caixamisteriosa/internal/domain"
	"caixamisteriosa/internal/store"
)

func openRound(t *testing.T) *domain.Round {
	t.Helper()
	round, err := domain.Reduce(nil, domain.NewStartRoundAction(domain.Giveaway{
		SponsorName: "Loja",
		ProductName: "Bicicleta",
		Clues:       domain.Clues{"a", "b", "c", "d", "e"},
	}))
	require.NoError(t, err)
	return round
}

func guess(t *testing.T, name, text string) domain.Submission {
	t.Helper()
	s, err := domain.NewSubmission(domain.Participant{Name: name}, text)
	require.NoError(t, err)
	return s
}

func TestLedgerAppend(t *testing.T) {
	ctx := context.Background()
	l := New(store.NewMemoryBackend(), "ROOM01")
	round := openRound(t)

	t.Run("accepts the first guess of a client", func(t *testing.T) {
		next, err := l.Append(ctx, round, "client-1", guess(t, "Ana", "bicicleta"))
		require.NoError(t, err)
		require.Len(t, next.Submissions, 1)
		round = next

		ok, err := l.HasSubmitted(ctx, round.ID, "client-1")
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = l.HasSubmittedProduct(ctx, " bicicleta ", "client-1")
		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("rejects a second guess from the same client", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			next, err := l.Append(ctx, round, "client-1", guess(t, "Ana", "moto"))
			require.ErrorIs(t, err, domain.ErrAlreadySubmitted)
			require.Len(t, next.Submissions, 1)
		}
	})

	t.Run("accepts another client", func(t *testing.T) {
		next, err := l.Append(ctx, round, "client-2", guess(t, "Bruno", "moto"))
		require.NoError(t, err)
		require.Len(t, next.Submissions, 2)
		round = next
	})

	t.Run("rejects guesses once closed", func(t *testing.T) {
		closed, err := domain.Reduce(round, &domain.CloseSubmissionsAction{})
		require.NoError(t, err)

		next, err := l.Append(ctx, closed, "client-3", guess(t, "Carla", "bicicleta"))
		require.ErrorIs(t, err, domain.ErrRoundNotAccepting)
		require.Len(t, next.Submissions, 2)

		ok, err := l.HasSubmitted(ctx, closed.ID, "client-3")
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("rejects guesses without a round", func(t *testing.T) {
		next, err := l.Append(ctx, nil, "client-3", guess(t, "Carla", "bicicleta"))
		require.ErrorIs(t, err, domain.ErrRoundNotAccepting)
		require.Nil(t, next)
	})

	t.Run("a new round with the same product gets fresh flags", func(t *testing.T) {
		fresh := openRound(t)
		next, err := l.Append(ctx, fresh, "client-1", guess(t, "Ana", "bicicleta"))
		require.NoError(t, err)
		require.Len(t, next.Submissions, 1)
	})
}

func TestLedgerConcurrentClaims(t *testing.T) {
	ctx := context.Background()
	l := New(store.NewMemoryBackend(), "ROOM02")
	round := openRound(t)

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := domain.NewSubmission(domain.Participant{Name: "Ana"}, "bicicleta")
			if err != nil {
				return
			}
			if _, err := l.Append(ctx, round, "same-client", s); err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, accepted)
}

func TestLedgerRelease(t *testing.T) {
	ctx := context.Background()
	l := New(store.NewMemoryBackend(), "ROOM01")
	round := openRound(t)

	_, err := l.Append(ctx, round, "client-1", guess(t, "Ana", "bicicleta"))
	require.NoError(t, err)

	require.NoError(t, l.Release(ctx, round.ID, round.Giveaway.ProductName, "client-1"))

	ok, err := l.HasSubmitted(ctx, round.ID, "client-1")
	require.NoError(t, err)
	require.False(t, ok)
	ok, err = l.HasSubmittedProduct(ctx, "Bicicleta", "client-1")
	require.NoError(t, err)
	require.False(t, ok)

	next, err := l.Append(ctx, round, "client-1", guess(t, "Ana", "bicicleta"))
	require.NoError(t, err)
	require.Len(t, next.Submissions, 1)
}
