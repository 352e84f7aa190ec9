package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"coursecal/internal/config"
	appLog "coursecal/internal/log"
	"coursecal/internal/model"
	"coursecal/internal/schedule"
	"coursecal/internal/session"
)

// projectionResponse adds the grid bounds of the page to the projection.
type projectionResponse struct {
	session.Projection
	Timezone string `json:"timezone"`
	SlotMin  string `json:"slot_min"`
	SlotMax  string `json:"slot_max"`
}

type coursesResponse struct {
	Courses       []model.Course `json:"courses"`
	DaltonismMode bool           `json:"daltonism_mode"`
}

type settingsResponse struct {
	ID            string         `json:"id"`
	State         string         `json:"state"`
	Courses       []model.Course `json:"courses"`
	DaltonismMode bool           `json:"daltonism_mode"`
}

type colorRequest struct {
	Color string `json:"color" validate:"required,len=7,hexcolor"`
}

type settingsColorRequest struct {
	Course string `json:"course" validate:"required"`
	Color  string `json:"color" validate:"required,len=7,hexcolor"`
}

type daltonismRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

type rangeRequest struct {
	Start time.Time `json:"start" validate:"required"`
	End   time.Time `json:"end" validate:"required,gtfield=Start"`
}

type dateRequest struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
}

// decode reads and validates a JSON body. It writes the 400 itself and
// reports whether the handler should go on.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func (s *Server) location() *time.Location {
	loc, err := s.cfg.Location()
	if err != nil {
		return time.Local
	}
	return loc
}

// The helpers below expect s.mu to be held.

func (s *Server) projection() projectionResponse {
	return projectionResponse{
		Projection: s.ctrl.Projection(),
		Timezone:   s.cfg.Timezone,
		SlotMin:    s.cfg.SlotMin,
		SlotMax:    s.cfg.SlotMax,
	}
}

func (s *Server) courses() coursesResponse {
	return coursesResponse{
		Courses:       s.ctrl.Courses(),
		DaltonismMode: s.ctrl.State().DaltonismMode,
	}
}

func settingsView(d *session.SettingsDialog) settingsResponse {
	return settingsResponse{
		ID:            d.ID,
		State:         d.State().String(),
		Courses:       d.Courses(),
		DaltonismMode: d.DaltonismMode(),
	}
}

func (s *Server) handleProjection(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.projection())
}

func (s *Server) handleCourses(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.courses())
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctrl.SelectCourse(r.PathValue("name"))
	writeJSON(w, http.StatusOK, s.courses())
}

func (s *Server) handleDeselect(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctrl.DeselectCourse(r.PathValue("name"))
	writeJSON(w, http.StatusOK, s.courses())
}

func (s *Server) handleCourseColor(w http.ResponseWriter, r *http.Request) {
	var req colorRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctrl.SetColor(r.PathValue("name"), req.Color)
	writeJSON(w, http.StatusOK, s.courses())
}

func (s *Server) handleDaltonism(w http.ResponseWriter, r *http.Request) {
	var req daltonismRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctrl.SetDaltonism(*req.Enabled)
	writeJSON(w, http.StatusOK, s.courses())
}

func (s *Server) handleReset(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctrl.ResetColors()
	writeJSON(w, http.StatusOK, s.courses())
}

func (s *Server) handleRange(w http.ResponseWriter, r *http.Request) {
	var req rangeRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctrl.NavigateRange(req.Start, req.End)
	writeJSON(w, http.StatusOK, s.projection())
}

func (s *Server) handleRangeToday(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctrl.GoToday()
	writeJSON(w, http.StatusOK, s.projection())
}

func (s *Server) handleRangeDate(w http.ResponseWriter, r *http.Request) {
	var req dateRequest
	if !s.decode(w, r, &req) {
		return
	}
	day, err := time.ParseInLocation("2006-01-02", req.Date, s.location())
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctrl.GoToDate(day)
	writeJSON(w, http.StatusOK, s.projection())
}

func (s *Server) handleEventDetail(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.ctrl.Detail(r.PathValue("key"))
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleTeacherEvents(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.ctrl.TeacherSchedule(r.PathValue("name")))
}

func (s *Server) handleExport(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	p := s.ctrl.Projection()
	s.mu.Unlock()

	body := schedule.ExportICS("coursecal", p.Events, time.Now())
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="coursecal.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

func (s *Server) handleOpenSettings(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.ctrl.OpenSettings()
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, settingsView(d))
}

// withDialog runs fn on the open dialog named by the {id} path value while
// holding s.mu.
func (s *Server) withDialog(w http.ResponseWriter, r *http.Request, fn func(*session.SettingsDialog) error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.ctrl.Settings(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "settings dialog not open")
		return
	}
	if err := fn(d); err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settingsView(d))
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	s.withDialog(w, r, func(*session.SettingsDialog) error { return nil })
}

func (s *Server) handleSettingsColor(w http.ResponseWriter, r *http.Request) {
	var req settingsColorRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.withDialog(w, r, func(d *session.SettingsDialog) error {
		return d.SetColor(req.Course, req.Color)
	})
}

func (s *Server) handleSettingsDaltonism(w http.ResponseWriter, r *http.Request) {
	var req daltonismRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.withDialog(w, r, func(d *session.SettingsDialog) error {
		return d.SetDaltonism(*req.Enabled)
	})
}

func (s *Server) handleSettingsReset(w http.ResponseWriter, r *http.Request) {
	s.withDialog(w, r, (*session.SettingsDialog).Reset)
}

func (s *Server) handleSettingsSave(w http.ResponseWriter, r *http.Request) {
	s.withDialog(w, r, (*session.SettingsDialog).Save)
}

func (s *Server) handleSettingsCancel(w http.ResponseWriter, r *http.Request) {
	s.withDialog(w, r, (*session.SettingsDialog).Cancel)
}

func (s *Server) writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrUnknownEvent):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrSettingsOpen), errors.Is(err, session.ErrSettingsClosed):
		writeError(w, http.StatusConflict, err.Error())
	default:
		appLog.Error("api: session call failed", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// SessionConfig derives the session display options from cfg.
func SessionConfig(cfg *config.Config) (session.Config, error) {
	loc, err := cfg.Location()
	if err != nil {
		return session.Config{}, err
	}
	initial, err := cfg.InitialTime(loc)
	if err != nil {
		return session.Config{}, err
	}
	return session.Config{
		Location:     loc,
		WeekStart:    cfg.WeekStartDay(),
		ShowWeekends: cfg.ShowWeekends,
		Organism:     cfg.Organism,
		InitialDate:  initial,
	}, nil
}
