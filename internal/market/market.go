// Package market maps free-text place names onto the fixed set of market
// regions articles are grouped by.
package market

import (
	"math"

	"localnews/internal/model"
)

// AtLarge is the catch-all market for places outside every market radius.
// It always sorts after the real markets.
const AtLarge = "At Large"

// EarthRadiusMiles is the mean Earth radius used by Distance.
const EarthRadiusMiles = 3959.0

// DefaultRadius is the largest distance in miles from an anchor at which a
// place still belongs to that market.
const DefaultRadius = 30.0

// Market is a named region centred on an anchor coordinate.
type Market struct {
	Name        string
	Anchor      model.Point
	WeatherCity string
}

// kansas lists the markets in display order. Anchors are approximate city
// centres.
var kansas = []Market{
	{Name: "Ark Valley", Anchor: model.Point{Lat: 37.0619, Lon: -97.0386}, WeatherCity: "Arkansas City"},
	{Name: "Pittsburg", Anchor: model.Point{Lat: 37.4109, Lon: -94.7049}, WeatherCity: "Pittsburg"},
	{Name: "Liberal", Anchor: model.Point{Lat: 37.0431, Lon: -100.9212}, WeatherCity: "Liberal"},
	{Name: "Garden City", Anchor: model.Point{Lat: 37.9717, Lon: -100.8727}, WeatherCity: "Garden City"},
	{Name: "Dodge City", Anchor: model.Point{Lat: 37.7528, Lon: -100.0171}, WeatherCity: "Dodge City"},
	{Name: "Great Bend", Anchor: model.Point{Lat: 38.3645, Lon: -98.7648}, WeatherCity: "Great Bend"},
	{Name: "McPherson", Anchor: model.Point{Lat: 38.3706, Lon: -97.6642}, WeatherCity: "McPherson"},
	{Name: "Salina", Anchor: model.Point{Lat: 38.8403, Lon: -97.6114}, WeatherCity: "Salina"},
	{Name: "Hutchinson", Anchor: model.Point{Lat: 38.0608, Lon: -97.9298}, WeatherCity: "Hutchinson"},
	{Name: "Abilene", Anchor: model.Point{Lat: 38.9172, Lon: -97.2137}, WeatherCity: "Abilene"},
	{Name: "Junction City", Anchor: model.Point{Lat: 39.0286, Lon: -96.8314}, WeatherCity: "Junction City"},
	{Name: "Manhattan", Anchor: model.Point{Lat: 39.1836, Lon: -96.5717}, WeatherCity: "Manhattan"},
	{Name: "Topeka", Anchor: model.Point{Lat: 39.0473, Lon: -95.6752}, WeatherCity: "Topeka"},
	{Name: "Lawrence", Anchor: model.Point{Lat: 38.9717, Lon: -95.2353}, WeatherCity: "Lawrence"},
	{Name: "Hays", Anchor: model.Point{Lat: 38.8794, Lon: -99.3268}, WeatherCity: "Hays"},
	{Name: "Emporia", Anchor: model.Point{Lat: 38.4039, Lon: -96.1817}, WeatherCity: "Emporia"},
}

// kansasAliases force-routes known name variants. Metros that must never
// receive local coverage go to AtLarge even if they geocode near an anchor.
var kansasAliases = map[string]string{
	"ark city":      "Ark Valley",
	"arkansas city": "Ark Valley",
	"winfield":      "Ark Valley",
	"wellington":    "Ark Valley",
	"kansas city":   AtLarge,
	"wichita":       AtLarge,
	"overland park": AtLarge,
	"olathe":        AtLarge,
}

// Default returns a copy of the built-in market list.
func Default() []Market {
	out := make([]Market, len(kansas))
	copy(out, kansas)
	return out
}

// DefaultAliases returns a copy of the built-in alias table.
func DefaultAliases() map[string]string {
	out := make(map[string]string, len(kansasAliases))
	for k, v := range kansasAliases {
		out[k] = v
	}
	return out
}

// Names returns the market names in display order followed by AtLarge.
func Names(markets []Market) []string {
	names := make([]string, 0, len(markets)+1)
	for _, m := range markets {
		names = append(names, m.Name)
	}
	return append(names, AtLarge)
}

// WeatherCity returns the weather lookup city for a market name.
func WeatherCity(markets []Market, name string) (string, bool) {
	for _, m := range markets {
		if m.Name == name {
			return m.WeatherCity, true
		}
	}
	return "", false
}

// Distance returns the great-circle distance in miles between a and b.
func Distance(a, b model.Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return EarthRadiusMiles * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Nearest returns the market whose anchor is closest to p and the distance
// to it. Ties go to the earlier market. ok is false when markets is empty.
func Nearest(markets []Market, p model.Point) (m Market, miles float64, ok bool) {
	miles = math.Inf(1)
	for _, candidate := range markets {
		d := Distance(p, candidate.Anchor)
		if d < miles {
			m, miles, ok = candidate, d, true
		}
	}
	return m, miles, ok
}
