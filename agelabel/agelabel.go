package agelabel

import (
	"errors"
	"fmt"
)

var (
	ErrNoCodes       = errors.New("at least one age code is required")
	ErrNotIncreasing = errors.New("age codes must be strictly increasing")
)

// Labels maps each age bracket code of a snapshot to a human readable
// label. Codes must be strictly increasing; the first code always stands
// for the aggregate of every age. Labels is recomputed per render so an
// upstream schema change simply yields fresh labels.
func Labels(codes []int) (map[int]string, error) {
	if len(codes) == 0 {
		return nil, ErrNoCodes
	}
	for i := 1; i < len(codes); i++ {
		if codes[i] <= codes[i-1] {
			return nil, ErrNotIncreasing
		}
	}

	labels := make(map[int]string, len(codes))
	last := len(codes) - 1
	for i, code := range codes {
		switch {
		case i == 0:
			labels[code] = "Tous âges"
		case i == 1:
			labels[code] = fmt.Sprintf("%d à %d ans", codes[0], code)
		case i == last:
			labels[code] = fmt.Sprintf("%d ans et +", code)
		default:
			labels[code] = fmt.Sprintf("%d à %d ans", codes[i-1]+1, code)
		}
	}
	return labels, nil
}
