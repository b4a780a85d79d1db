package address

import (
	"errors"

	"github.com/UnknownOlympus/waypoint/internal/models"
)

// ErrNoUsableResult signals that Normalize had nothing to work with.
var ErrNoUsableResult = errors.New("no usable geocode result")

// Component type tags recognized by Normalize.
const (
	TypeLocality     = "locality"
	TypeAdminLevel1  = "administrative_area_level_1"
	TypePostalCode   = "postal_code"
	TypeCountry      = "country"
	TypeRoute        = "route"
	TypeStreetNumber = "street_number"
)

// Normalize converts the first geocode result into a NormalizedAddress.
// Only the primary (first) type tag of every component is inspected; components
// with unrecognized tags are dropped. It returns false when there is no first
// result or that result carries no address components.
//
// An address with an empty PostalCode is still returned; callers must check
// IsUsable before surfacing it.
func Normalize(results []models.GeocodeResult) (models.NormalizedAddress, bool) {
	if len(results) == 0 || len(results[0].AddressComponents) == 0 {
		return models.NormalizedAddress{}, false
	}

	first := results[0]
	addr := models.NormalizedAddress{FormattedAddress: first.FormattedAddress}

	for _, component := range first.AddressComponents {
		switch component.PrimaryType() {
		case TypeLocality:
			addr.City = component.LongName
		case TypeAdminLevel1:
			addr.State = component.LongName
		case TypePostalCode:
			addr.PostalCode = component.LongName
		case TypeCountry:
			addr.Country = component.LongName
		}
	}

	return addr, true
}
