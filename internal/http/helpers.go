package http

import (
	"encoding/json"
	"net/http"

	"daylog/internal/core"
)

func writeError(w http.ResponseWriter, status int, code, detail string) {
	writeJSON(w, status, map[string]string{
		"type":   code,
		"detail": detail,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// parseDate reads the date query parameter, defaulting to today.
func parseDate(r *http.Request) (core.Day, error) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		return core.Today(), nil
	}
	return core.ParseDay(raw)
}

// activityView is the wire shape of one activity.
type activityView struct {
	ID              string `json:"id"`
	Date            string `json:"date"`
	Title           string `json:"title"`
	Category        string `json:"category"`
	Color           string `json:"color"`
	Icon            string `json:"icon"`
	DurationMinutes int    `json:"duration_minutes"`
	DurationLabel   string `json:"duration_label"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

func toActivityView(a core.Activity) activityView {
	return activityView{
		ID:              a.ID,
		Date:            a.Date.String(),
		Title:           a.Title,
		Category:        a.Category,
		Color:           core.ColorOf(a.Category),
		Icon:            core.IconOf(a.Category),
		DurationMinutes: a.DurationMinutes,
		DurationLabel:   core.FormatMinutes(a.DurationMinutes),
		CreatedAt:       a.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:       a.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

func toActivityViews(activities []core.Activity) []activityView {
	views := make([]activityView, 0, len(activities))
	for _, a := range activities {
		views = append(views, toActivityView(a))
	}
	return views
}
