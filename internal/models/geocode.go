package models

// AddressComponent is a fragment of a geocode result tagged with one or more
// semantic labels such as "locality" or "postal_code".
type AddressComponent struct {
	LongName  string
	ShortName string
	Types     []string
}

// PrimaryType returns the first tag of the component, or "" when it has none.
func (ac AddressComponent) PrimaryType() string {
	if len(ac.Types) == 0 {
		return ""
	}

	return ac.Types[0]
}

// GeocodeResult is a single provider answer for a forward or reverse lookup.
type GeocodeResult struct {
	PlaceID           string
	FormattedAddress  string
	Location          Coordinate
	AddressComponents []AddressComponent
}

// SuggestionOption is a single autocomplete entry shown to the user.
type SuggestionOption struct {
	Label string `json:"label"`
}
