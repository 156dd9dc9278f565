package domain

import (
	"math"
	"sort"
	"time"
)

// Wheel defaults used by the roulette reveal
const (
	DefaultMinWheelSize = 50
	DefaultItemHeight   = 80
	DefaultWindowHeight = 400
	DefaultDrawDuration = 6 * time.Second
)

// Random is the source of uniform values in [0, 1) used by the draw
type Random interface {
	Float64() float64
}

// DrawSettings controls the shape and timing of the roulette
type DrawSettings struct {
	MinWheelSize int           `json:"minWheelSize"`
	ItemHeight   float64       `json:"itemHeight"`
	WindowHeight float64       `json:"windowHeight"`
	Duration     time.Duration `json:"duration"`
}

// DefaultDrawSettings returns the default draw settings
func DefaultDrawSettings() DrawSettings {
	return DrawSettings{
		MinWheelSize: DefaultMinWheelSize,
		ItemHeight:   DefaultItemHeight,
		WindowHeight: DefaultWindowHeight,
		Duration:     DefaultDrawDuration,
	}
}

// Draw is the outcome of a winner selection together with its animation data
type Draw struct {
	RoundID     string       `json:"roundId"`
	Wheel       []Submission `json:"wheel"`
	WinnerIndex int          `json:"winnerIndex"`
	Winner      Submission   `json:"winner"`
	Offset      float64      `json:"offset"`
	DurationMs  int64        `json:"durationMs"`
}

// SelectWinner draws a winner among the qualifying submissions of a closed round.
// The wheel is padded by repetition, shuffled by random sort keys, and the winner is
// picked from its last len(qualifying) entries.
func SelectWinner(round *Round, settings DrawSettings, rnd Random) (*Draw, error) {
	if StatusOf(round) != StatusClosed {
		return nil, ErrInvalidTransition
	}

	qualifying := round.Qualifying()
	n := len(qualifying)
	if n == 0 {
		return nil, ErrNoQualifyingWinners
	}

	wheel := BuildWheel(qualifying, settings.MinWheelSize)
	ShuffleWheel(wheel, rnd)

	index := len(wheel) - n + int(math.Floor(rnd.Float64()*float64(n)))
	if index >= len(wheel) {
		index = len(wheel) - 1
	}

	return &Draw{
		RoundID:     round.ID,
		Wheel:       wheel,
		WinnerIndex: index,
		Winner:      wheel[index],
		Offset:      WheelOffset(index, settings.ItemHeight, settings.WindowHeight),
		DurationMs:  settings.Duration.Milliseconds(),
	}, nil
}

// BuildWheel repeats the candidates, in order, until the wheel has at least minSize entries
func BuildWheel(candidates []Submission, minSize int) []Submission {
	if len(candidates) == 0 {
		return []Submission{}
	}

	wheel := make([]Submission, 0, max(minSize, len(candidates))+len(candidates))
	for len(wheel) < minSize || len(wheel) == 0 {
		wheel = append(wheel, candidates...)
	}
	return wheel
}

// ShuffleWheel permutes the wheel by assigning each entry an independent random key
func ShuffleWheel(wheel []Submission, rnd Random) {
	keys := make([]float64, len(wheel))
	for i := range keys {
		keys[i] = rnd.Float64()
	}

	sort.Sort(&keyedWheel{wheel: wheel, keys: keys})
}

// WheelOffset centers the entry at index inside the visible window
func WheelOffset(index int, itemHeight, windowHeight float64) float64 {
	return float64(index)*itemHeight - (windowHeight-itemHeight)/2
}

type keyedWheel struct {
	wheel []Submission
	keys  []float64
}

func (k *keyedWheel) Len() int           { return len(k.wheel) }
func (k *keyedWheel) Less(i, j int) bool { return k.keys[i] < k.keys[j] }
func (k *keyedWheel) Swap(i, j int) {
	k.wheel[i], k.wheel[j] = k.wheel[j], k.wheel[i]
	k.keys[i], k.keys[j] = k.keys[j], k.keys[i]
}
