package models

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidCoordinate is returned when a latitude or longitude is out of range.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Coordinate represents a geographical point defined by its latitude and longitude.
type Coordinate struct {
	Latitude  float64 `json:"lat" validate:"gte=-90,lte=90"`   // Latitude of the geographical point.
	Longitude float64 `json:"lng" validate:"gte=-180,lte=180"` // Longitude of the geographical point.
}

// Validate reports whether the coordinate lies within [-90,90] x [-180,180].
func (c Coordinate) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidCoordinate, err.Error())
	}

	return nil
}
