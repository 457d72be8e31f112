package domain

// RegionCode identifies the geographic scope of one publication. The
// publisher uses two-letter codes; one of them is the whole-country
// aggregate and the rest are sub-national regions.
type RegionCode string

// RegionNational is the whole-country aggregate code.
const RegionNational RegionCode = "ES"

// String returns the raw region code.
func (r RegionCode) String() string {
	return string(r)
}

// IsNational reports whether r is the whole-country aggregate.
func (r RegionCode) IsNational() bool {
	return r == RegionNational
}

// ValidRegion reports whether code is part of the configured region set.
func ValidRegion(code RegionCode, configured []RegionCode) bool {
	for _, c := range configured {
		if c == code {
			return true
		}
	}
	return false
}
