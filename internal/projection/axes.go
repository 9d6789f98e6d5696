package projection

import (
	"github.com/cockroachdb/errors"
)

var (
	ErrTooFewDimensions = errors.New("projection needs at least two machines")
	ErrAxisOutOfRange   = errors.New("axis index out of range")
)

// AxisSelection picks which machine's ratio goes on each horizontal axis.
type AxisSelection struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// DefaultAxes is the initial selection: first machine on X, second on Y.
var DefaultAxes = AxisSelection{X: 0, Y: 1}

// NextDistinctIndex returns the first index in [0, count) that differs from excluded,
// scanning forward from startingGuess and wrapping past the last index to 0.
// It returns -1 when no such index exists (count < 2 with excluded in range).
func NextDistinctIndex(excluded, count, startingGuess int) int {
	if count <= 0 {
		return -1
	}
	start := ((startingGuess % count) + count) % count
	for i := 0; i < count; i++ {
		candidate := (start + i) % count
		if candidate != excluded {
			return candidate
		}
	}
	return -1
}

// ResolveAxes applies the axis policy for a run with count machines.
//
// With exactly two machines the axes are fixed to (0, 1). With more, both selectors are
// free, but when they collide the Y selector advances to the next machine.
func ResolveAxes(sel AxisSelection, count int) (AxisSelection, error) {
	if count < 2 {
		return AxisSelection{}, errors.Wrapf(ErrTooFewDimensions, "got %d", count)
	}
	if count == 2 {
		return DefaultAxes, nil
	}
	if sel.X < 0 || sel.X >= count {
		return AxisSelection{}, errors.Wrapf(ErrAxisOutOfRange, "x=%d with %d machines", sel.X, count)
	}
	if sel.Y < 0 || sel.Y >= count {
		return AxisSelection{}, errors.Wrapf(ErrAxisOutOfRange, "y=%d with %d machines", sel.Y, count)
	}
	if sel.X == sel.Y {
		sel.Y = NextDistinctIndex(sel.X, count, sel.Y+1)
	}
	return sel, nil
}
