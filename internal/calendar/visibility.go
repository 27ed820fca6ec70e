package calendar

import "github.com/palace-events/events-api/internal/models"

// Visible applies the single visibility policy: imported ticketed events are for signed-in
// viewers only, every other genre is public.
func Visible(event models.Event, viewer models.Viewer) bool {
	if event.GenreOrDefault() == models.GenreTicketmaster {
		return viewer.Authenticated()
	}
	return true
}

// FilterVisible returns the events the viewer may see, preserving order.
func FilterVisible(events []models.Event, viewer models.Viewer) []models.Event {
	out := make([]models.Event, 0, len(events))
	for _, e := range events {
		if Visible(e, viewer) {
			out = append(out, e)
		}
	}
	return out
}
