package domain

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

type fixedRandom struct {
	values []float64
	i      int
}

func (r *fixedRandom) Float64() float64 {
	v := r.values[r.i%len(r.values)]
	r.i++
	return v
}

func closedRound(t *testing.T, guesses ...string) *Round {
	t.Helper()
	round := startedRound(t)
	var err error
	for i, guess := range guesses {
		sub := mustSubmission(t, string(rune('A'+i))+"-participant", guess)
		round, err = Reduce(round, &AppendSubmissionAction{Submission: sub})
		require.NoError(t, err)
	}
	round, err = Reduce(round, &CloseSubmissionsAction{})
	require.NoError(t, err)
	return round
}

func TestBuildWheel(t *testing.T) {
	a := Submission{ID: "a"}
	b := Submission{ID: "b"}
	c := Submission{ID: "c"}

	t.Run("repeats candidates in order until the minimum size", func(t *testing.T) {
		wheel := BuildWheel([]Submission{a, b, c}, 50)
		require.Len(t, wheel, 51)
		for i, s := range wheel {
			require.Equal(t, []string{"a", "b", "c"}[i%3], s.ID)
		}
	})

	t.Run("keeps a large list as is", func(t *testing.T) {
		candidates := make([]Submission, 60)
		wheel := BuildWheel(candidates, 50)
		require.Len(t, wheel, 60)
	})

	t.Run("empty input", func(t *testing.T) {
		require.Empty(t, BuildWheel(nil, 50))
	})
}

func TestWheelOffset(t *testing.T) {
	require.Equal(t, 10*80.0-(400.0-80.0)/2, WheelOffset(10, 80, 400))
	require.Equal(t, -160.0, WheelOffset(0, 80, 400))
}

func TestSelectWinner(t *testing.T) {
	settings := DefaultDrawSettings()

	t.Run("refuses a round without qualifying submissions", func(t *testing.T) {
		round := closedRound(t, "moto", "carro")
		draw, err := SelectWinner(round, settings, rand.New(rand.NewSource(1)))
		require.ErrorIs(t, err, ErrNoQualifyingWinners)
		require.Nil(t, draw)
	})

	t.Run("refuses a round that is still accepting", func(t *testing.T) {
		_, err := SelectWinner(startedRound(t), settings, rand.New(rand.NewSource(1)))
		require.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("winner always comes from the qualifying set", func(t *testing.T) {
		round := closedRound(t, "bicicleta", "Bicicleta ", "moto")
		qualifying := round.Qualifying()
		require.Len(t, qualifying, 2)

		for seed := int64(0); seed < 200; seed++ {
			draw, err := SelectWinner(round, settings, rand.New(rand.NewSource(seed)))
			require.NoError(t, err)
			require.GreaterOrEqual(t, len(draw.Wheel), settings.MinWheelSize)
			require.GreaterOrEqual(t, draw.WinnerIndex, len(draw.Wheel)-len(qualifying))
			require.Less(t, draw.WinnerIndex, len(draw.Wheel))
			require.Equal(t, draw.Wheel[draw.WinnerIndex], draw.Winner)
			require.Contains(t, qualifying, draw.Winner)
			require.Equal(t, WheelOffset(draw.WinnerIndex, settings.ItemHeight, settings.WindowHeight), draw.Offset)
			require.Equal(t, round.ID, draw.RoundID)

			finished, err := Reduce(round, &FinishDrawAction{Winner: draw.Winner})
			require.NoError(t, err)
			require.Equal(t, draw.Winner, *finished.Winner)
		}
	})

	t.Run("winner index follows the last segment formula", func(t *testing.T) {
		round := closedRound(t, "bicicleta", "bicicleta", "bicicleta", "bicicleta")
		// 52 shuffle keys then the winner pick
		values := make([]float64, 53)
		for i := range values {
			values[i] = float64(i) / 100
		}
		values[52] = 0.5
		draw, err := SelectWinner(round, settings, &fixedRandom{values: values})
		require.NoError(t, err)
		require.Len(t, draw.Wheel, 52)
		require.Equal(t, 52-4+2, draw.WinnerIndex)
	})

	t.Run("does not modify the round", func(t *testing.T) {
		round := closedRound(t, "bicicleta", "x")
		before := round.Clone()
		_, err := SelectWinner(round, settings, rand.New(rand.NewSource(7)))
		require.NoError(t, err)
		require.Equal(t, before, round)
	})
}

func TestShuffleWheelIsPermutation(t *testing.T) {
	wheel := BuildWheel([]Submission{{ID: "a"}, {ID: "b"}}, 50)
	counts := map[string]int{}
	for _, s := range wheel {
		counts[s.ID]++
	}

	ShuffleWheel(wheel, rand.New(rand.NewSource(3)))

	after := map[string]int{}
	for _, s := range wheel {
		after[s.ID]++
	}
	require.Equal(t, counts, after)
}
