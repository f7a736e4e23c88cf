package geo

import (
	"context"
	"math"
	"strings"
)

// Location describes where a hospital is. Coordinates are optional; Text is
// the free-form hospital/city string coordinators type in.
type Location struct {
	Text string   `json:"text"`
	Lat  *float64 `json:"lat,omitempty"`
	Lng  *float64 `json:"lng,omitempty"`
}

// HasCoords reports whether both coordinates are present.
func (l Location) HasCoords() bool { return l.Lat != nil && l.Lng != nil }

// Estimator converts two locations into a transport distance in kilometers.
// Estimates are ordinal signals for ranking, not navigational guarantees.
// Implementations never fail: any input yields a finite non-negative value.
type Estimator interface {
	DistanceKm(ctx context.Context, from, to Location) float64
}

// Fallback distances for the text heuristics, in kilometers.
const (
	SameCityKm        = 25
	SameRegionKm      = 150
	UnknownDistanceKm = 800
)

const earthRadiusKm = 6371.0

// HeuristicEstimator estimates distance from coordinates when available
// and degrades through text heuristics and a small known-city-pair table
// otherwise. It is the placeholder default; deployments wanting real
// routing inject their own Estimator.
type HeuristicEstimator struct {
	cityPairs map[string]float64
}

// NewHeuristicEstimator returns an estimator seeded with the built-in
// city-pair table.
func NewHeuristicEstimator() *HeuristicEstimator {
	return &HeuristicEstimator{cityPairs: defaultCityPairs()}
}

// DistanceKm implements Estimator.
func (e *HeuristicEstimator) DistanceKm(_ context.Context, from, to Location) float64 {
	if from.HasCoords() && to.HasCoords() {
		return Haversine(*from.Lat, *from.Lng, *to.Lat, *to.Lng)
	}

	a := normalize(from.Text)
	b := normalize(to.Text)
	if a == "" || b == "" {
		return UnknownDistanceKm
	}
	if a == b {
		return 0
	}

	shared := sharedTokens(tokenize(a), tokenize(b))
	switch {
	case shared >= 2:
		return SameCityKm
	case shared == 1:
		return SameRegionKm
	}

	if km, ok := e.lookupCityPair(a, b); ok {
		return km
	}
	return UnknownDistanceKm
}

func (e *HeuristicEstimator) lookupCityPair(a, b string) (float64, bool) {
	ca, cb := cityOf(a), cityOf(b)
	if ca == "" || cb == "" {
		return 0, false
	}
	if km, ok := e.cityPairs[pairKey(ca, cb)]; ok {
		return km, true
	}
	return 0, false
}

// Haversine returns the great-circle distance between two points in km.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := rad(lat2 - lat1)
	dLng := rad(lng2 - lng1)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(s))), " ")
}

// fillerWords are generic facility terms that would otherwise make every
// pair of hospitals look like neighbors.
var fillerWords = map[string]bool{
	"hospital": true, "clinic": true, "medical": true, "centre": true,
	"center": true, "institute": true, "general": true, "memorial": true,
	"the": true, "of": true, "and": true,
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	var out []string
	for _, f := range fields {
		if len(f) < 3 || fillerWords[f] {
			continue
		}
		out = append(out, f)
	}
	return out
}

func sharedTokens(a, b []string) int {
	set := make(map[string]bool, len(a))
	for _, t := range a {
		set[t] = true
	}
	n := 0
	for _, t := range b {
		if set[t] {
			n++
			set[t] = false
		}
	}
	return n
}

// cityOf extracts the known city named in a normalized location string, if
// any. The table only knows a handful of cities, so a linear scan is fine.
func cityOf(s string) string {
	for _, city := range knownCities {
		if strings.Contains(s, city) {
			return city
		}
	}
	return ""
}

func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

var knownCities = []string{
	"mumbai", "delhi", "bangalore", "chennai", "hyderabad",
	"pune", "kolkata", "jaipur", "ahmedabad", "chandigarh",
}

// defaultCityPairs is a deliberately small hand-built table used only when
// the text heuristics fail; see NewHeuristicEstimator.
func defaultCityPairs() map[string]float64 {
	pairs := map[string]float64{}
	add := func(a, b string, km float64) { pairs[pairKey(a, b)] = km }
	add("mumbai", "pune", 150)
	add("mumbai", "delhi", 1400)
	add("mumbai", "bangalore", 980)
	add("mumbai", "ahmedabad", 530)
	add("delhi", "jaipur", 280)
	add("delhi", "chandigarh", 250)
	add("delhi", "kolkata", 1500)
	add("bangalore", "chennai", 350)
	add("bangalore", "hyderabad", 570)
	add("chennai", "hyderabad", 630)
	return pairs
}
