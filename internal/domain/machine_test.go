package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func testGiveaway() Giveaway {
	return Giveaway{
		SponsorName: "Loja Central",
		ProductName: "Bicicleta",
		Clues:       Clues{"Tem duas rodas", "Tem pedais", "Tem guidão", "Não usa gasolina", "Começa com B"},
	}
}

func mustSubmission(t *testing.T, name, guess string) Submission {
	t.Helper()
	s, err := NewSubmission(Participant{Name: name, City: "Recife"}, guess)
	require.NoError(t, err)
	return s
}

func startedRound(t *testing.T) *Round {
	t.Helper()
	round, err := Reduce(nil, NewStartRoundAction(testGiveaway()))
	require.NoError(t, err)
	return round
}

func TestReduceStartRound(t *testing.T) {
	t.Run("opens an accepting round with the first clue revealed", func(t *testing.T) {
		round := startedRound(t)
		require.Equal(t, StatusAccepting, round.Status)
		require.Equal(t, 1, round.RevealedCluesCount)
		require.Empty(t, round.Submissions)
		require.NotNil(t, round.Submissions)
		require.Nil(t, round.Winner)
		require.NotEmpty(t, round.ID)
	})

	t.Run("rejects a product with a missing clue", func(t *testing.T) {
		g := testGiveaway()
		g.Clues[3] = "  "
		round, err := Reduce(nil, NewStartRoundAction(g))
		require.ErrorIs(t, err, ErrIncompleteClues)
		require.Nil(t, round)
	})

	t.Run("supersedes a finished round", func(t *testing.T) {
		first := startedRound(t)
		second, err := Reduce(first, NewStartRoundAction(testGiveaway()))
		require.NoError(t, err)
		require.NotEqual(t, first.ID, second.ID)
		require.Equal(t, 1, second.RevealedCluesCount)
	})
}

func TestReduceRevealClue(t *testing.T) {
	round := startedRound(t)

	last := round.RevealedCluesCount
	for i := 0; i < 10; i++ {
		next, err := Reduce(round, &RevealClueAction{})
		if round.RevealedCluesCount == ClueCount {
			require.ErrorIs(t, err, ErrAllCluesRevealed)
		} else {
			require.NoError(t, err)
		}
		require.GreaterOrEqual(t, next.RevealedCluesCount, last)
		require.LessOrEqual(t, next.RevealedCluesCount, ClueCount)
		last = next.RevealedCluesCount
		round = next
	}
	require.Equal(t, ClueCount, round.RevealedCluesCount)

	closed, err := Reduce(round, &CloseSubmissionsAction{})
	require.NoError(t, err)

	_, err = Reduce(closed, &RevealClueAction{})
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = Reduce(nil, &RevealClueAction{})
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	round := startedRound(t)
	sub := mustSubmission(t, "Ana", "bicicleta")

	next, err := Reduce(round, &AppendSubmissionAction{Submission: sub})
	require.NoError(t, err)
	require.Len(t, next.Submissions, 1)
	require.Empty(t, round.Submissions)

	revealed, err := Reduce(next, &RevealClueAction{})
	require.NoError(t, err)
	require.Equal(t, 2, revealed.RevealedCluesCount)
	require.Equal(t, 1, next.RevealedCluesCount)
}

func TestReduceScenario(t *testing.T) {
	round := startedRound(t)

	s1 := mustSubmission(t, "Ana", "bicicleta")
	s2 := mustSubmission(t, "Bruno", "Bicicleta ")
	s3 := mustSubmission(t, "Carla", "moto")

	var err error
	for _, s := range []Submission{s1, s2, s3} {
		round, err = Reduce(round, &AppendSubmissionAction{Submission: s})
		require.NoError(t, err)
	}

	qualifying := round.Qualifying()
	require.Equal(t, []Submission{s1, s2}, qualifying)

	round, err = Reduce(round, &CloseSubmissionsAction{})
	require.NoError(t, err)
	require.Equal(t, StatusClosed, round.Status)

	late := mustSubmission(t, "Davi", "bicicleta")
	after, err := Reduce(round, &AppendSubmissionAction{Submission: late})
	require.ErrorIs(t, err, ErrRoundNotAccepting)
	require.Len(t, after.Submissions, 3)

	_, err = Reduce(round, &FinishDrawAction{Winner: s3})
	require.ErrorIs(t, err, ErrWinnerNotQualifying)

	finished, err := Reduce(round, &FinishDrawAction{Winner: s2})
	require.NoError(t, err)
	require.Equal(t, StatusFinished, finished.Status)
	require.Equal(t, s2, *finished.Winner)
	require.NotNil(t, finished.FinishedAt)

	_, err = Reduce(finished, &AppendSubmissionAction{Submission: late})
	require.ErrorIs(t, err, ErrRoundNotAccepting)
	_, err = Reduce(finished, &RevealClueAction{})
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestReduceFinishWithoutQualifying(t *testing.T) {
	round := startedRound(t)
	round, err := Reduce(round, &AppendSubmissionAction{Submission: mustSubmission(t, "Carla", "moto")})
	require.NoError(t, err)
	round, err = Reduce(round, &CloseSubmissionsAction{})
	require.NoError(t, err)

	after, err := Reduce(round, &FinishDrawAction{Winner: round.Submissions[0]})
	require.ErrorIs(t, err, ErrNoQualifyingWinners)
	require.Equal(t, StatusClosed, after.Status)
	require.Nil(t, after.Winner)
}

func TestReduceResetIsIdempotent(t *testing.T) {
	round := startedRound(t)

	first, err := Reduce(round, &ResetRoundAction{})
	require.NoError(t, err)
	require.Nil(t, first)
	require.Equal(t, StatusPending, StatusOf(first))

	second, err := Reduce(first, &ResetRoundAction{})
	require.NoError(t, err)
	require.Nil(t, second)
	require.Equal(t, StatusPending, StatusOf(second))
}

func TestStatusJSON(t *testing.T) {
	for _, status := range []Status{StatusPending, StatusAccepting, StatusClosed, StatusFinished} {
		b, err := json.Marshal(status)
		require.NoError(t, err)

		var decoded Status
		require.NoError(t, json.Unmarshal(b, &decoded))
		require.Equal(t, status, decoded)
	}

	var s Status
	require.Error(t, json.Unmarshal([]byte(`"drawing"`), &s))
	_, err := json.Marshal(Status(9))
	require.Error(t, err)
}

func TestRoundJSONRoundTrip(t *testing.T) {
	round := startedRound(t)
	round, err := Reduce(round, &AppendSubmissionAction{Submission: mustSubmission(t, "Ana", "Bicicleta")})
	require.NoError(t, err)
	round, err = Reduce(round, &CloseSubmissionsAction{})
	require.NoError(t, err)
	round, err = Reduce(round, &FinishDrawAction{Winner: round.Submissions[0]})
	require.NoError(t, err)

	b, err := json.Marshal(round)
	require.NoError(t, err)

	var decoded Round
	require.NoError(t, json.Unmarshal(b, &decoded))
	require.Equal(t, round, &decoded)
}

func TestStatusCanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusPending, true},
		{StatusPending, StatusAccepting, true},
		{StatusPending, StatusClosed, false},
		{StatusAccepting, StatusAccepting, true},
		{StatusAccepting, StatusClosed, true},
		{StatusAccepting, StatusFinished, false},
		{StatusClosed, StatusFinished, true},
		{StatusClosed, StatusAccepting, true},
		{StatusClosed, StatusClosed, false},
		{StatusFinished, StatusAccepting, true},
		{StatusFinished, StatusPending, true},
		{StatusFinished, StatusClosed, false},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			require.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

// skipToFinished jumps straight to finished regardless of the current status
type skipToFinished struct{}

func (a *skipToFinished) Type() ActionType { return "SKIP_TO_FINISHED" }

func (a *skipToFinished) Apply(round *Round) (*Round, error) {
	round.Status = StatusFinished
	return round, nil
}

func TestReduceGuardsStatusTransitions(t *testing.T) {
	round := startedRound(t)

	next, err := Reduce(round, &skipToFinished{})
	require.ErrorIs(t, err, ErrInvalidTransition)
	require.Same(t, round, next)
	require.Equal(t, StatusAccepting, round.Status)

	// Every built-in action stays inside the table, including starting over a finished round
	closed, err := Reduce(round, &CloseSubmissionsAction{})
	require.NoError(t, err)
	restarted, err := Reduce(closed, NewStartRoundAction(testGiveaway()))
	require.NoError(t, err)
	require.Equal(t, StatusAccepting, restarted.Status)

	cleared, err := Reduce(nil, &ResetRoundAction{})
	require.NoError(t, err)
	require.Nil(t, cleared)
}

func TestViewForHidesWinnerPhoneFromParticipants(t *testing.T) {
	round := startedRound(t)
	sub, err := NewSubmission(Participant{Name: "Ana", Phone: "11999990000", City: "Recife"}, "bicicleta")
	require.NoError(t, err)
	round, err = Reduce(round, &AppendSubmissionAction{Submission: sub})
	require.NoError(t, err)
	round, err = Reduce(round, &CloseSubmissionsAction{})
	require.NoError(t, err)
	round, err = Reduce(round, &FinishDrawAction{Winner: sub})
	require.NoError(t, err)

	participant := ViewFor(round, RoleParticipant)
	require.NotNil(t, participant.Winner)
	require.Equal(t, "Ana", participant.Winner.Participant.Name)
	require.Empty(t, participant.Winner.Participant.Phone)
	require.Equal(t, "11999990000", round.Winner.Participant.Phone)

	operator := ViewFor(round, RoleOperator)
	require.Equal(t, "11999990000", operator.Winner.Participant.Phone)
}
