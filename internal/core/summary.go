package core

// CategoryMinutes represents minutes aggregated by category name.
type CategoryMinutes struct {
	Name    string
	Color   string
	Icon    string
	Minutes int
	Share   float64 // fraction of the logged total, 0 when nothing is logged
}

// DaySummary is a compact overview of one day partition.
type DaySummary struct {
	Date             Day
	TotalMinutes     int
	RemainingMinutes int
	ActivityCount    int
	AverageMinutes   int
	TopCategory      string
	ByCategory       []CategoryMinutes
}

// Summarize derives the dashboard figures for one day partition. Categories
// follow registry order; entries with nothing logged are omitted, and
// activities with unregistered category names are pooled under the fallback.
func Summarize(date Day, activities []Activity) DaySummary {
	s := DaySummary{
		Date:             date,
		TotalMinutes:     TotalMinutes(activities),
		RemainingMinutes: RemainingMinutes(activities),
		ActivityCount:    len(activities),
	}
	if len(activities) > 0 {
		s.AverageMinutes = (s.TotalMinutes + len(activities)/2) / len(activities)
	}

	perCategory := make(map[string]int, len(Categories))
	for _, a := range activities {
		perCategory[CategoryByName(a.Category).Name] += a.DurationMinutes
	}

	top := 0
	for _, c := range Categories {
		minutes := perCategory[c.Name]
		if minutes == 0 {
			continue
		}
		cm := CategoryMinutes{Name: c.Name, Color: c.Color, Icon: c.Icon, Minutes: minutes}
		if s.TotalMinutes > 0 {
			cm.Share = float64(minutes) / float64(s.TotalMinutes)
		}
		s.ByCategory = append(s.ByCategory, cm)
		if minutes > top {
			top = minutes
			s.TopCategory = c.Name
		}
	}
	return s
}
