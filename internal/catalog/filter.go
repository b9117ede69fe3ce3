package catalog

import "strings"

// DefaultVehicleKeywords are the phrases that mark a title as a model car.
func DefaultVehicleKeywords() []string {
	return []string{"hot wheels", "matchbox"}
}

// DefaultIgnoreWords are phrases of accessory listings sold next to cars.
func DefaultIgnoreWords() []string {
	return []string{"track set", "трек", "display case", "кейс"}
}

// Filter decides whether a title describes a collectible vehicle.
type Filter struct {
	vehicle []string
	ignore  []string
}

// NewFilter creates a Filter. An empty vehicle list accepts every title.
func NewFilter(vehicleKeywords, ignoreWords []string) *Filter {
	return &Filter{
		vehicle: foldAll(vehicleKeywords),
		ignore:  foldAll(ignoreWords),
	}
}

// IsVehicle reports whether title contains a vehicle keyword.
func (f *Filter) IsVehicle(title string) bool {
	if len(f.vehicle) == 0 {
		return true
	}
	return containsAny(fold(title), f.vehicle)
}

// IgnoredBy returns the first ignore word found in title, or "".
func (f *Filter) IgnoredBy(title string) string {
	t := fold(title)
	for _, w := range f.ignore {
		if strings.Contains(t, w) {
			return w
		}
	}
	return ""
}
