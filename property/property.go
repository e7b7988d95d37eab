// Package property holds the listing records the assistant talks about and
// the static demo catalog the search tools read from.
package property

import "strings"

// Property is a flat listing record. It has no identity beyond its address.
type Property struct {
	Address     string  `json:"address" jsonschema:"required"`
	Price       int     `json:"price" jsonschema:"required"`
	Beds        int     `json:"beds" jsonschema:"required"`
	Baths       float64 `json:"baths" jsonschema:"required"`
	Sqft        int     `json:"sqft" jsonschema:"required"`
	Description string  `json:"description" jsonschema:"required"`
	ImageURL    string  `json:"imageUrl" jsonschema:"required"`
}

// Commute is what the maps service knows about an address.
type Commute struct {
	CommuteTimeMins int `json:"commute_time_mins"`
	NearbyParks     int `json:"nearby_parks"`
}

// LocalScene is what the reviews service knows about an address.
type LocalScene struct {
	NearbyCafes int     `json:"nearby_cafes"`
	Rating      float64 `json:"rating"`
}

// NormalizeLocation turns "Aspen,  CO" into the catalog key "aspen, co".
func NormalizeLocation(location string) string {
	parts := strings.Split(location, ",")
	for i, p := range parts {
		parts[i] = strings.ToLower(strings.Join(strings.Fields(p), " "))
	}
	return strings.Join(parts, ", ")
}
