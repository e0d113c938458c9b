package rng

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument is returned for arguments outside a method's domain.
var ErrInvalidArgument = errors.New("rng: invalid argument")

// Shuffle returns the integers [start, start+count) in a uniformly random
// order using the Fisher-Yates algorithm.
func (r *Random) Shuffle(start, count int) ([]int, error) {
	if count < 0 {
		return nil, fmt.Errorf("%w: count %d < 0", ErrInvalidArgument, count)
	}

	shuffled := make([]int, count)
	for i := range shuffled {
		shuffled[i] = start + i
	}

	for i := 0; i < count; i++ {
		n := r.IntN(i + 1)
		shuffled[i], shuffled[n] = shuffled[n], shuffled[i]
	}

	return shuffled, nil
}
