package service

import (
	"math"
	"strconv"
	"strings"
)

// Weights are kilograms with gram precision, matching decimal(12,3) columns.
const (
	gramsPerKg = 1000
	maxKg      = 999999999.999
)

const weightRule = "must be greater than 0 with at most 3 decimals"

// gramsOf converts kg to whole grams. It fails for values with more than three
// decimal places, which the store would otherwise round silently.
func gramsOf(kg float64) (int64, bool) {
	if math.IsNaN(kg) || math.IsInf(kg, 0) || math.Abs(kg) > maxKg {
		return 0, false
	}
	// shortest decimal form that round-trips, so 0.1 stays "0.1"
	s := strconv.FormatFloat(kg, 'f', -1, 64)
	if i := strings.IndexByte(s, '.'); i >= 0 && len(s)-i-1 > 3 {
		return 0, false
	}
	return int64(math.Round(kg * gramsPerKg)), true
}

// storedGrams reads a kg value that came back from the store, where sums may carry float noise.
func storedGrams(kg float64) int64 {
	return int64(math.Round(kg * gramsPerKg))
}

func kgOf(grams int64) float64 {
	return float64(grams) / gramsPerKg
}

func validWeight(kg float64) bool {
	g, ok := gramsOf(kg)
	return ok && g > 0
}

// ParseWeight accepts a finite decimal kilogram value greater than zero with at most
// three decimal places and returns it in grams.
func ParseWeight(raw string) (int64, error) {
	kg, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, validationError("invalid weight")
	}
	g, ok := gramsOf(kg)
	if !ok || g <= 0 {
		return 0, validationError("invalid weight")
	}
	return g, nil
}

func roundKg(kg float64) float64 {
	return kgOf(storedGrams(kg))
}
