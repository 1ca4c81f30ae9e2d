package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"daylog/internal/auth"
	"daylog/internal/core"
	applog "daylog/internal/log"
	"daylog/internal/observability"
	"daylog/internal/services"
	"daylog/internal/store"
)

type activityRequest struct {
	Date     string `json:"date"`
	Title    string `json:"title"`
	Category string `json:"category"`

	// Duration arrives either pre-combined or as the two form fields.
	DurationMinutes *int   `json:"duration_minutes"`
	Hours           string `json:"hours"`
	Minutes         string `json:"minutes"`
}

func (req *activityRequest) duration() int {
	if req.DurationMinutes != nil {
		return *req.DurationMinutes
	}
	return core.CombineHoursMinutes(req.Hours, req.Minutes)
}

func (req *activityRequest) category() string {
	if req.Category == "" {
		return core.DefaultCategory().Name
	}
	return req.Category
}

type dayResponse struct {
	Date             string         `json:"date"`
	Activities       []activityView `json:"activities"`
	TotalMinutes     int            `json:"total_minutes"`
	RemainingMinutes int            `json:"remaining_minutes"`
}

func (s *Server) handleListActivities(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	day, err := parseDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "date must be YYYY-MM-DD")
		return
	}

	activities, err := s.activities.List(r.Context(), claims.UserID, day)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "list activities failed", applog.FieldError, err)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not list activities")
		return
	}

	writeJSON(w, http.StatusOK, dayResponse{
		Date:             day.String(),
		Activities:       toActivityViews(activities),
		TotalMinutes:     core.TotalMinutes(activities),
		RemainingMinutes: core.RemainingMinutes(activities),
	})
}

func (s *Server) handleCreateActivity(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}

	var req activityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	day, err := core.ParseDay(req.Date)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_failed", "date must be YYYY-MM-DD")
		return
	}

	created, err := s.activities.Create(r.Context(), claims.UserID, day, req.Title, req.category(), req.duration())
	if err != nil {
		s.writeActivityError(w, r, claims.UserID, day, "", err)
		return
	}
	writeJSON(w, http.StatusCreated, toActivityView(created))
}

func (s *Server) handleUpdateActivity(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing activity id")
		return
	}

	var req activityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	day, err := core.ParseDay(req.Date)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_failed", "date must be YYYY-MM-DD")
		return
	}

	updated, err := s.activities.Update(r.Context(), claims.UserID, id, day, req.Title, req.category(), req.duration())
	if err != nil {
		s.writeActivityError(w, r, claims.UserID, day, id, err)
		return
	}
	writeJSON(w, http.StatusOK, toActivityView(updated))
}

func (s *Server) handleDeleteActivity(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing activity id")
		return
	}
	day, err := parseDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "date must be YYYY-MM-DD")
		return
	}

	if err := s.activities.Delete(r.Context(), claims.UserID, id, day); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "activity not found")
			return
		}
		s.logger.ErrorContext(r.Context(), "delete activity failed", applog.FieldError, err)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not delete activity")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeActivityError maps service errors from create/update to HTTP
// responses. Budget rejections carry a hint with the minutes still free.
func (s *Server) writeActivityError(w http.ResponseWriter, r *http.Request, userID string, day core.Day, editedID string, err error) {
	switch {
	case errors.Is(err, core.ErrBudgetExceeded):
		writeError(w, http.StatusUnprocessableEntity, "budget_exceeded", s.budgetHint(r, userID, day, editedID))
	case errors.Is(err, core.ErrInvalidDuration):
		writeError(w, http.StatusUnprocessableEntity, "validation_failed", "duration must be at least one minute")
	case errors.Is(err, core.ErrEmptyTitle):
		writeError(w, http.StatusUnprocessableEntity, "validation_failed", "title must not be empty")
	case errors.Is(err, core.ErrTitleTooLong):
		writeError(w, http.StatusUnprocessableEntity, "validation_failed", fmt.Sprintf("title must be at most %d characters", core.MaxTitleLength))
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "activity not found")
	default:
		s.logger.ErrorContext(r.Context(), "activity write failed", applog.FieldError, err)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not save activity")
	}
}

func (s *Server) budgetHint(r *http.Request, userID string, day core.Day, editedID string) string {
	activities, err := s.activities.List(r.Context(), userID, day)
	if err != nil {
		return "this would exceed the 24 hour day"
	}
	free := core.RemainingMinutes(activities)
	if editedID != "" {
		free = core.EditCeiling(activities, editedID)
	}
	if free < 0 {
		free = 0
	}
	return fmt.Sprintf("You only have %s left for this day", core.FormatMinutes(free))
}

type summaryResponse struct {
	Date             string               `json:"date"`
	TotalMinutes     int                  `json:"total_minutes"`
	TotalLabel       string               `json:"total_label"`
	RemainingMinutes int                  `json:"remaining_minutes"`
	RemainingLabel   string               `json:"remaining_label"`
	ActivityCount    int                  `json:"activity_count"`
	AverageMinutes   int                  `json:"average_minutes"`
	TopCategory      string               `json:"top_category"`
	ByCategory       []categoryBucketView `json:"by_category"`
}

type categoryBucketView struct {
	Name    string  `json:"name"`
	Color   string  `json:"color"`
	Icon    string  `json:"icon"`
	Minutes int     `json:"minutes"`
	Label   string  `json:"label"`
	Share   float64 `json:"share"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	day, err := parseDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "date must be YYYY-MM-DD")
		return
	}

	summary, err := s.activities.Summary(r.Context(), claims.UserID, day)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "summary failed", applog.FieldError, err)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not build summary")
		return
	}

	buckets := make([]categoryBucketView, 0, len(summary.ByCategory))
	for _, b := range summary.ByCategory {
		buckets = append(buckets, categoryBucketView{
			Name:    b.Name,
			Color:   b.Color,
			Icon:    b.Icon,
			Minutes: b.Minutes,
			Label:   core.FormatMinutes(b.Minutes),
			Share:   b.Share,
		})
	}

	writeJSON(w, http.StatusOK, summaryResponse{
		Date:             summary.Date.String(),
		TotalMinutes:     summary.TotalMinutes,
		TotalLabel:       core.FormatMinutes(summary.TotalMinutes),
		RemainingMinutes: summary.RemainingMinutes,
		RemainingLabel:   core.FormatMinutes(summary.RemainingMinutes),
		ActivityCount:    summary.ActivityCount,
		AverageMinutes:   summary.AverageMinutes,
		TopCategory:      summary.TopCategory,
		ByCategory:       buckets,
	})
}

type categoryView struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

func (s *Server) handleCategories(w http.ResponseWriter, _ *http.Request) {
	views := make([]categoryView, 0, len(core.Categories))
	for _, c := range core.Categories {
		views = append(views, categoryView{Name: c.Name, Color: c.Color, Icon: c.Icon})
	}
	writeJSON(w, http.StatusOK, views)
}

// handleWatchActivities streams day snapshots as server-sent events. Backends
// without push support get 404 and clients fall back to refetching.
func (s *Server) handleWatchActivities(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	day, err := parseDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "date must be YYYY-MM-DD")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal_error", "streaming unsupported")
		return
	}

	snapshots, stop, err := s.activities.Watch(r.Context(), claims.UserID, day)
	if errors.Is(err, services.ErrWatchUnsupported) {
		writeError(w, http.StatusNotFound, "watch_unsupported", "this backend does not push changes")
		return
	}
	if err != nil {
		s.logger.ErrorContext(r.Context(), "watch failed", applog.FieldError, err)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not open watch stream")
		return
	}
	defer stop()

	observability.WatchOpened()
	defer observability.WatchClosed()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// Initial snapshot so the client renders without waiting for a write.
	if current, err := s.activities.List(r.Context(), claims.UserID, day); err == nil {
		s.writeSnapshot(w, flusher, day, current)
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case snapshot, ok := <-snapshots:
			if !ok {
				return
			}
			s.writeSnapshot(w, flusher, day, snapshot)
		}
	}
}

func (s *Server) writeSnapshot(w http.ResponseWriter, flusher http.Flusher, day core.Day, activities []core.Activity) {
	payload, err := json.Marshal(dayResponse{
		Date:             day.String(),
		Activities:       toActivityViews(activities),
		TotalMinutes:     core.TotalMinutes(activities),
		RemainingMinutes: core.RemainingMinutes(activities),
	})
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", payload)
	flusher.Flush()
}
