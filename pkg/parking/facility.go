// Package parking holds the facility records produced by the feed decoder and
// the per-facility availability view derived from them.
package parking

import "strconv"

// Facility is one parking lot as reported by the feed.
//
// Capacity >= CurrentOccupancy is not guaranteed by upstream data.
type Facility struct {
	Code             string  `json:"code"`
	Name             string  `json:"name"`
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	Capacity         int     `json:"capacity"`
	CurrentOccupancy int     `json:"current_occupancy"`
}

// FacilityView is a Facility with its derived availability, ready for display.
type FacilityView struct {
	Facility
	// AvailableSpaces is Capacity - CurrentOccupancy and may be negative.
	AvailableSpaces int `json:"available_spaces"`
}

// Title renders the marker caption used by map clients, "<available> / <capacity>".
func (v FacilityView) Title() string {
	return strconv.Itoa(v.AvailableSpaces) + " / " + strconv.Itoa(v.Capacity)
}
