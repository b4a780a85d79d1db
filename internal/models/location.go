package models

import (
	"encoding/json"
	"errors"
)

// ErrUnusableAddress is returned when a normalized address has no postal code.
var ErrUnusableAddress = errors.New("address has no postal code")

// NormalizedAddress is the fixed address schema produced from a geocode result.
// Absent fields are empty strings.
type NormalizedAddress struct {
	City             string `json:"city"`
	State            string `json:"state"`
	PostalCode       string `json:"zipCode"`
	Country          string `json:"country"`
	FormattedAddress string `json:"formatted_address"`
}

// IsUsable reports whether the address can be handed to the host. An address
// without a postal code is discarded.
func (na NormalizedAddress) IsUsable() bool {
	return na.PostalCode != ""
}

// LocationRecord is the terminal output of a submit: the picked point and its address.
type LocationRecord struct {
	Coordinate Coordinate
	Address    NormalizedAddress
}

type locationJSON struct {
	Coordinates [2]float64 `json:"coordinates"` // [lng, lat]
}

type recordJSON struct {
	Location locationJSON `json:"location"`
	NormalizedAddress
}

// MarshalJSON flattens the address next to a GeoJSON-ordered location.
func (lr LocationRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordJSON{
		Location:          locationJSON{Coordinates: [2]float64{lr.Coordinate.Longitude, lr.Coordinate.Latitude}},
		NormalizedAddress: lr.Address,
	})
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (lr *LocationRecord) UnmarshalJSON(data []byte) error {
	var raw recordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	lr.Coordinate = Coordinate{Latitude: raw.Location.Coordinates[1], Longitude: raw.Location.Coordinates[0]}
	lr.Address = raw.NormalizedAddress

	return nil
}
