package export

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

type unitDimension int

const (
	dimLength unitDimension = iota
	dimWeight
	dimVolume
)

// factor converts one unit to the dimension's base unit
// (meters, grams, liters).
type unitInfo struct {
	dim    unitDimension
	factor float64
}

var unitTable = map[string]unitInfo{
	// length, base meters
	"mm": {dimLength, 0.001},
	"cm": {dimLength, 0.01},
	"m":  {dimLength, 1},
	"in": {dimLength, 0.0254},
	"ft": {dimLength, 0.3048},
	"yd": {dimLength, 0.9144},

	// weight, base grams
	"mg": {dimWeight, 0.001},
	"g":  {dimWeight, 1},
	"kg": {dimWeight, 1000},
	"oz": {dimWeight, 28.349523125},
	"lb": {dimWeight, 453.59237},
	"t":  {dimWeight, 1000000},

	// volume, base liters
	"ml":   {dimVolume, 0.001},
	"cl":   {dimVolume, 0.01},
	"l":    {dimVolume, 1},
	"floz": {dimVolume, 0.0295735295625},
	"gal":  {dimVolume, 3.785411784},
}

var nonNumericPattern = regexp.MustCompile(`[^0-9.\-]`)

// ConvertMeasurement strips non-numeric characters from a raw value,
// parses the remainder and converts it between two units of the same
// dimension, rounded to 3 decimals. Any failure returns nil, never an
// error: a bad measurement becomes an empty cell.
func ConvertMeasurement(raw, source, target string) *float64 {
	source = strings.ToLower(strings.TrimSpace(source))
	target = strings.ToLower(strings.TrimSpace(target))

	from, ok := unitTable[source]
	if !ok {
		return nil
	}
	to, ok := unitTable[target]
	if !ok || from.dim != to.dim {
		return nil
	}

	numeric := nonNumericPattern.ReplaceAllString(raw, "")
	if numeric == "" {
		return nil
	}
	value, err := strconv.ParseFloat(numeric, 64)
	if err != nil {
		return nil
	}

	converted := value * from.factor / to.factor
	rounded := math.Round(converted*1000) / 1000
	return &rounded
}
