package service

import (
	"errors"
	"math"

	"gorm.io/gorm"
)

// mapNotFound swaps gorm's not-found for the domain error callers map to 404.
func mapNotFound(err, target error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return target
	}
	return err
}

// mapDuplicate swaps a unique-key violation for target.
func mapDuplicate(err, target error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return target
	}
	return err
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// clampPercentage maps NaN to 0 and bounds v to [0, 100].
func clampPercentage(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
