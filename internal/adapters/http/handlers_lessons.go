package web

import (
	"net/http"
	"net/url"
	"time"

	lessonStore "surfshop/internal/adapters/storage/lesson"
	"surfshop/internal/application/listutil"
	"surfshop/internal/application/orchestrators"
	"surfshop/internal/application/projections"
	"surfshop/internal/domain/apperr"
	"surfshop/internal/domain/lesson"
)

// dispatcher returns the immediate outbox dispatcher, or nil when none is wired.
func (s *server) dispatcher() orchestrators.OutboxDispatcher {
	if s.outbox == nil {
		return nil
	}
	return s.outbox
}

// handleCreateLesson handles POST /api/lessons.
func (s *server) handleCreateLesson(w http.ResponseWriter, r *http.Request) {
	var input orchestrators.CreateLessonInput
	if err := strictDecode(w, r, &input); err != nil {
		writeError(w, r, err)
		return
	}
	l, err := orchestrators.ExecuteCreateLesson(r.Context(), input, orchestrators.CreateLessonDeps{
		LessonStore: s.stores.LessonStore,
		Instructors: s.stores.InstructorStore,
		Now:         timeNow,
		GenerateID:  generateID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

// handleListLessons handles GET /api/lessons.
// Query: status, from, to, instructor_id, rescheduled, page, per_page.
func (s *server) handleListLessons(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	fp := listutil.ParseFilterParams(q, []string{"status", "instructor_id"})
	page := listutil.ParsePageParams(q)

	status := lesson.Status(fp.Filters["status"])
	if status != "" && !status.Valid() {
		writeError(w, r, apperr.Validation("unknown status %q", status))
		return
	}
	rescheduled, err := listutil.ParseBool(q, "rescheduled")
	if err != nil {
		writeError(w, r, err)
		return
	}
	dates, err := parseDateRange(q)
	if err != nil {
		writeError(w, r, err)
		return
	}

	lessons, err := s.stores.LessonStore.List(r.Context(), lessonStore.ListFilter{
		Status:          status,
		DateFrom:        dates.From,
		DateTo:          dates.To,
		InstructorID:    fp.Filters["instructor_id"],
		RescheduledOnly: rescheduled,
		Limit:           page.Limit(),
		Offset:          page.Offset(),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if lessons == nil {
		lessons = []lesson.Lesson{}
	}
	writeJSON(w, http.StatusOK, lessons)
}

// parseDateRange reads the optional from/to query bounds.
// POST: Both bounds are empty or YYYY-MM-DD, from <= to
func parseDateRange(q url.Values) (projections.DateRange, error) {
	dr := projections.DateRange{From: q.Get("from"), To: q.Get("to")}
	for name, v := range map[string]string{"from": dr.From, "to": dr.To} {
		if v == "" {
			continue
		}
		if _, err := time.Parse(lesson.DateLayout, v); err != nil {
			return projections.DateRange{}, apperr.Validation("%s must be YYYY-MM-DD", name)
		}
	}
	if dr.From != "" && dr.To != "" && dr.From > dr.To {
		return projections.DateRange{}, apperr.Validation("from is after to")
	}
	return dr, nil
}

// handleGetLesson handles GET /api/lessons/{id}.
func (s *server) handleGetLesson(w http.ResponseWriter, r *http.Request) {
	l, err := s.stores.LessonStore.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// handleDeleteLesson handles DELETE /api/lessons/{id}.
func (s *server) handleDeleteLesson(w http.ResponseWriter, r *http.Request) {
	err := orchestrators.ExecuteDeleteLesson(r.Context(), r.PathValue("id"), orchestrators.DeleteLessonDeps{
		LessonStore: s.stores.LessonStore,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAddParticipant handles POST /api/lessons/{id}/participants.
func (s *server) handleAddParticipant(w http.ResponseWriter, r *http.Request) {
	var input orchestrators.AddParticipantInput
	if err := strictDecode(w, r, &input); err != nil {
		writeError(w, r, err)
		return
	}
	input.LessonID = r.PathValue("id")
	l, err := orchestrators.ExecuteAddParticipant(r.Context(), input, orchestrators.AddParticipantDeps{
		LessonStore: s.stores.LessonStore,
		Customers:   s.stores.CustomerStore,
		Now:         timeNow,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

// handleRemoveParticipant handles DELETE /api/lessons/{id}/participants/{customerID}.
func (s *server) handleRemoveParticipant(w http.ResponseWriter, r *http.Request) {
	l, err := orchestrators.ExecuteRemoveParticipant(r.Context(), orchestrators.RemoveParticipantInput{
		LessonID:   r.PathValue("id"),
		CustomerID: r.PathValue("customerID"),
	}, orchestrators.RemoveParticipantDeps{LessonStore: s.stores.LessonStore})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// handleLessonRoster handles GET /api/lessons/{id}/roster.
func (s *server) handleLessonRoster(w http.ResponseWriter, r *http.Request) {
	roster, err := projections.QueryGetLessonRoster(r.Context(), r.PathValue("id"), projections.GetLessonRosterDeps{
		LessonStore:   s.stores.LessonStore,
		CustomerStore: s.stores.CustomerStore,
		Now:           timeNow,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, roster)
}

// handleCancelLesson handles POST /api/lessons/{id}/cancel.
func (s *server) handleCancelLesson(w http.ResponseWriter, r *http.Request) {
	var input lesson.CancelInput
	if err := strictDecode(w, r, &input); err != nil {
		writeError(w, r, err)
		return
	}
	result, err := orchestrators.ExecuteCancelLesson(r.Context(), orchestrators.CancelLessonInput{
		LessonID: r.PathValue("id"),
		Cancel:   input,
	}, orchestrators.CancelLessonDeps{
		LessonStore: s.stores.LessonStore,
		Dispatcher:  s.dispatcher(),
		Location:    s.location,
		Now:         timeNow,
		GenerateID:  generateID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleRescheduleLesson handles POST /api/lessons/{id}/reschedule.
func (s *server) handleRescheduleLesson(w http.ResponseWriter, r *http.Request) {
	var input lesson.RescheduleInput
	if err := strictDecode(w, r, &input); err != nil {
		writeError(w, r, err)
		return
	}
	l, err := orchestrators.ExecuteRescheduleLesson(r.Context(), orchestrators.RescheduleLessonInput{
		LessonID:   r.PathValue("id"),
		Reschedule: input,
	}, orchestrators.RescheduleLessonDeps{
		LessonStore: s.stores.LessonStore,
		Instructors: s.stores.InstructorStore,
		Location:    s.location,
		Now:         timeNow,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// handleUpdateLessonStatus handles POST /api/lessons/{id}/status.
func (s *server) handleUpdateLessonStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status lesson.Status `json:"status"`
	}
	if err := strictDecode(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	l, err := orchestrators.ExecuteUpdateLessonStatus(r.Context(), orchestrators.UpdateLessonStatusInput{
		LessonID: r.PathValue("id"),
		Status:   body.Status,
	}, orchestrators.UpdateLessonStatusDeps{LessonStore: s.stores.LessonStore, Now: timeNow})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// handleLessonStats handles GET /api/lessons/stats?from=&to=.
func (s *server) handleLessonStats(w http.ResponseWriter, r *http.Request) {
	dates, err := parseDateRange(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	stats, err := projections.QueryGetLessonStats(r.Context(), dates, projections.GetLessonStatsDeps{
		LessonStore: s.stores.LessonStore,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleCancellationAnalytics handles GET /api/lessons/analytics/cancellations?from=&to=.
func (s *server) handleCancellationAnalytics(w http.ResponseWriter, r *http.Request) {
	dates, err := parseDateRange(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	a, err := projections.QueryGetCancellationAnalytics(r.Context(), dates, projections.GetLessonAnalyticsDeps{
		LessonStore: s.stores.LessonStore,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// handleRescheduleAnalytics handles GET /api/lessons/analytics/reschedules?from=&to=.
func (s *server) handleRescheduleAnalytics(w http.ResponseWriter, r *http.Request) {
	dates, err := parseDateRange(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	a, err := projections.QueryGetRescheduleAnalytics(r.Context(), dates, projections.GetLessonAnalyticsDeps{
		LessonStore: s.stores.LessonStore,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}
