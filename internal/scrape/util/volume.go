package util

import (
	"regexp"
	"strconv"
	"strings"
)

var volumeRe = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(ml|cl|l|g|kg)\b`)

// Volume is a recognized pack size, normalized to ml or g.
type Volume struct {
	Value float64
	Unit  string // "ml" or "g"
}

// ExtractVolume pulls a pack size out of a product name ("Sérum Vitamine C
// 30ml"). Liquid units collapse to ml, weight units to g. Returns ok=false
// when nothing matches.
func ExtractVolume(name string) (Volume, bool) {
	m := volumeRe.FindStringSubmatch(name)
	if m == nil {
		return Volume{}, false
	}
	v, err := strconv.ParseFloat(strings.Replace(m[1], ",", ".", 1), 64)
	if err != nil || v <= 0 {
		return Volume{}, false
	}
	switch strings.ToLower(m[2]) {
	case "ml":
		return Volume{Value: v, Unit: "ml"}, true
	case "cl":
		return Volume{Value: v * 10, Unit: "ml"}, true
	case "l":
		return Volume{Value: v * 1000, Unit: "ml"}, true
	case "g":
		return Volume{Value: v, Unit: "g"}, true
	case "kg":
		return Volume{Value: v * 1000, Unit: "g"}, true
	}
	return Volume{}, false
}

// UnitPrice scales a deal price to the reference unit (per 100ml or 100g).
// Zero when no volume was recognized.
func UnitPrice(price float64, vol Volume) float64 {
	if vol.Value <= 0 || price <= 0 {
		return 0
	}
	return price / vol.Value * 100
}
