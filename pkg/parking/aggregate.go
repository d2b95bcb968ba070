package parking

// Aggregate keeps the first record seen for every facility code and derives
// its available spaces. Later records sharing a code are dropped even when
// their fields differ; the feed repeats codes across pagination windows.
// Output order is first-occurrence order.
func Aggregate(records []Facility) []FacilityView {
	views := make([]FacilityView, 0, len(records))
	seen := make(map[string]struct{}, len(records))

	for _, r := range records {
		if _, dup := seen[r.Code]; dup {
			continue
		}
		seen[r.Code] = struct{}{}

		views = append(views, FacilityView{
			Facility:        r,
			AvailableSpaces: r.Capacity - r.CurrentOccupancy,
		})
	}

	return views
}
