// Package session holds the course visibility and color state of one
// calendar session and derives everything the calendar surface, the course
// sidebar and the settings dialog display from it.
package session

import (
	"errors"
	"slices"
	"strings"
	"time"

	"coursecal/internal/courses"
	appLog "coursecal/internal/log"
	"coursecal/internal/model"
	"coursecal/internal/palette"
	"coursecal/internal/schedule"
)

var (
	// ErrSettingsOpen is returned when a settings dialog is already open.
	ErrSettingsOpen = errors.New("session: settings dialog already open")
	// ErrSettingsClosed is returned when editing a saved or cancelled dialog.
	ErrSettingsClosed = errors.New("session: settings dialog is closed")
	// ErrUnknownEvent is returned for detail lookups of events not on the calendar.
	ErrUnknownEvent = errors.New("session: event not displayed")
)

// Config carries the display options of a session.
type Config struct {
	Location     *time.Location
	WeekStart    time.Weekday
	ShowWeekends bool
	// Organism is shown in the event detail popup.
	Organism string
	// InitialDate selects the first visible week; zero means Now().
	InitialDate time.Time
	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// displayed is one event currently on the calendar surface.
type displayed struct {
	ev     model.Event
	colors palette.Triple
}

// Controller owns the session State and the calendar surface contents. It
// is single-actor: callers serialize access.
type Controller struct {
	store *schedule.Store
	cfg   Config
	state State

	surface    []displayed
	rangeStart time.Time
	rangeEnd   time.Time

	dialog *SettingsDialog
}

// NewController builds the courses from the whole store, puts every stored
// event on the calendar and opens the initial week.
func NewController(store *schedule.Store, cfg Config) *Controller {
	if cfg.Location == nil {
		cfg.Location = store.Location()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	list, keys := courses.Build(store.Events())
	c := &Controller{
		store: store,
		cfg:   cfg,
		state: State{
			CustomCourseColors: make(map[string]string),
			CourseColorKeys:    keys,
			Courses:            list,
		},
	}
	for _, ev := range store.Events() {
		c.surface = append(c.surface, displayed{ev: ev, colors: c.state.resolve(ev.BaseName())})
	}
	c.state.recolorCourses()

	initial := cfg.InitialDate
	if initial.IsZero() {
		initial = cfg.Now()
	}
	c.GoToDate(initial)
	return c
}

// State returns a detached copy of the session state.
func (c *Controller) State() State {
	return c.state.clone()
}

// Courses returns a copy of the sidebar course list.
func (c *Controller) Courses() []model.Course {
	return slices.Clone(c.state.Courses)
}

// Range returns the visible [start, end) window.
func (c *Controller) Range() (time.Time, time.Time) {
	return c.rangeStart, c.rangeEnd
}

// knownCourse reports whether name is the base name of any stored event.
func (c *Controller) knownCourse(name string) bool {
	_, ok := c.state.CourseColorKeys[name]
	return ok
}

// recolor re-resolves every displayed event of course name, or of every
// course when name is empty.
func (c *Controller) recolor(name string) {
	for i := range c.surface {
		base := c.surface[i].ev.BaseName()
		if name == "" || base == name {
			c.surface[i].colors = c.state.resolve(base)
		}
	}
}

// SetColor records a custom color for a course and recolors its events.
// Unknown courses are ignored.
func (c *Controller) SetColor(name, hex string) {
	if !c.knownCourse(name) {
		appLog.Warn("session: color change for unknown course ignored", "course", name)
		return
	}
	c.state.CustomCourseColors[name] = hex
	if course := c.state.course(name); course != nil {
		t := c.state.resolve(name)
		course.ColorFill, course.ColorBorder, course.TextColor = t.Bg, t.Border, t.Text
		course.IsCustomColor = true
	}
	c.recolor(name)
	appLog.Debug("session: course color set", "course", name, "color", hex, "daltonism", c.state.DaltonismMode)
}

// SetDaltonism switches between the normal and colorblind-safe palettes.
func (c *Controller) SetDaltonism(enabled bool) {
	c.state.DaltonismMode = enabled
	c.recolor("")
	c.state.recolorCourses()
	appLog.Debug("session: daltonism mode set", "enabled", enabled)
}

// ResetColors drops every custom color, turns daltonism off and rebuilds the
// course list from the whole store. Rebuilt courses are all visible, so
// hidden events come back.
func (c *Controller) ResetColors() {
	clear(c.state.CustomCourseColors)
	c.state.DaltonismMode = false

	list, keys := courses.Build(c.store.Events())
	c.state.Courses = list
	c.state.CourseColorKeys = keys
	c.state.recolorCourses()

	c.restoreChecked()
	c.recolor("")
	appLog.Debug("session: colors reset", "courses", len(list))
}

// ToggleCourseVisibility applies course.Checked: unchecking removes every
// displayed event of the course, checking adds back the stored events that
// are not displayed yet.
func (c *Controller) ToggleCourseVisibility(course model.Course) {
	if !c.knownCourse(course.Name) {
		appLog.Warn("session: visibility toggle for unknown course ignored", "course", course.Name)
		return
	}
	if listed := c.state.course(course.Name); listed != nil {
		listed.Checked = course.Checked
	}

	if !course.Checked {
		c.surface = slices.DeleteFunc(c.surface, func(d displayed) bool {
			return d.ev.BaseName() == course.Name
		})
		appLog.Debug("session: course hidden", "course", course.Name)
		return
	}
	added := c.show(course.Name)
	appLog.Debug("session: course shown", "course", course.Name, "added", added)
}

// SelectCourse makes a course visible.
func (c *Controller) SelectCourse(name string) {
	c.ToggleCourseVisibility(model.Course{Name: name, Checked: true})
}

// DeselectCourse hides a course.
func (c *Controller) DeselectCourse(name string) {
	c.ToggleCourseVisibility(model.Course{Name: name, Checked: false})
}

// show adds the missing stored events of a course to the surface and
// returns how many were added.
func (c *Controller) show(name string) int {
	colors := c.state.resolve(name)
	added := 0
	for _, ev := range c.store.ByBaseName(name) {
		present := slices.ContainsFunc(c.surface, func(d displayed) bool {
			return d.ev.SameSlot(ev)
		})
		if !present {
			c.surface = append(c.surface, displayed{ev: ev, colors: colors})
			added++
		}
	}
	return added
}

// restoreChecked makes sure every checked course has all its events on the
// surface, keeping the sidebar and the calendar in agreement.
func (c *Controller) restoreChecked() {
	for _, course := range c.state.Courses {
		if course.Checked {
			c.show(course.Name)
		}
	}
}

// NavigateRange changes the visible window and rebuilds the sidebar from
// the courses present in it.
func (c *Controller) NavigateRange(start, end time.Time) {
	if !end.After(start) {
		appLog.Warn("session: empty range ignored", "start", start, "end", end)
		return
	}
	c.rangeStart, c.rangeEnd = start.In(c.cfg.Location), end.In(c.cfg.Location)

	c.state.Courses = courses.RebuildForRange(c.store.InRange(start, end), c.state.Courses)
	c.state.recolorCourses()
	c.restoreChecked()

	appLog.Debug("session: range changed",
		"start", c.rangeStart.Format(time.RFC3339),
		"end", c.rangeEnd.Format(time.RFC3339),
		"courses", len(c.state.Courses),
	)
}

// GoToDate shows the week containing t.
func (c *Controller) GoToDate(t time.Time) {
	start := WeekStart(t.In(c.cfg.Location), c.cfg.WeekStart)
	c.NavigateRange(start, start.AddDate(0, 0, 7))
}

// GoToday shows the current week.
func (c *Controller) GoToday() {
	c.GoToDate(c.cfg.Now())
}

// WeekStart returns midnight of the first day of the week containing t.
func WeekStart(t time.Time, first time.Weekday) time.Time {
	offset := (int(t.Weekday()) - int(first) + 7) % 7
	day := t.AddDate(0, 0, -offset)
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, t.Location())
}

// WeekNumber numbers the week containing t, weeks starting on first. Week 1
// is the week containing January 1st, so the last days of December can
// already belong to week 1 of the next year.
func WeekNumber(t time.Time, first time.Weekday) int {
	start := WeekStart(t, first)
	next := WeekStart(time.Date(t.Year()+1, time.January, 1, 0, 0, 0, 0, t.Location()), first)
	if !start.Before(next) {
		return 1
	}
	week1 := WeekStart(time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location()), first)
	return daysBetween(week1, start)/7 + 1
}

// daysBetween counts calendar days from a to b, ignoring DST shifts.
func daysBetween(a, b time.Time) int {
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}

// TeacherSchedule lists every stored event of a teacher with the colors its
// course currently renders with, whether or not the course is visible.
func (c *Controller) TeacherSchedule(teacher string) []model.RenderedEvent {
	evs := c.store.ByTeacher(teacher)
	out := make([]model.RenderedEvent, 0, len(evs))
	for _, ev := range evs {
		out = append(out, c.render(ev, c.state.resolve(ev.BaseName())))
	}
	return out
}

// Detail builds the popup payload for a displayed event.
func (c *Controller) Detail(key string) (model.Detail, error) {
	ev, ok := c.store.Find(key)
	if !ok {
		return model.Detail{}, ErrUnknownEvent
	}
	for _, d := range c.surface {
		if !d.ev.SameSlot(ev) {
			continue
		}
		color := d.colors.Bg
		if color == "" {
			color = palette.Normal[palette.DefaultKey].Bg
		}
		return model.Detail{
			Title:         d.ev.Title,
			DateFormatted: FormatDateRange(d.ev.Start.In(c.cfg.Location), d.ev.End.In(c.cfg.Location)),
			Teacher:       d.ev.Teacher,
			Room:          d.ev.Room,
			Organism:      c.cfg.Organism,
			Note:          d.ev.Note,
			Color:         color,
		}, nil
	}
	return model.Detail{}, ErrUnknownEvent
}

// FormatDateRange renders "DD/MM/YY, HH:MM-HH:MM".
func FormatDateRange(start, end time.Time) string {
	return start.Format("02/01/06, 15:04") + "-" + end.Format("15:04")
}

func (c *Controller) render(ev model.Event, colors palette.Triple) model.RenderedEvent {
	start, end := ev.Start.In(c.cfg.Location), ev.End.In(c.cfg.Location)
	re := model.RenderedEvent{
		Key:      ev.Key(),
		Title:    ev.Title,
		BaseName: ev.BaseName(),
		Start:    start,
		End:      end,
		Room:     ev.Room,
		Teacher:  ev.Teacher,
		Note:     ev.Note,
		Colors:   colors,
		TimeText: start.Format("15:04") + " - " + end.Format("15:04"),
		Compact:  end.Sub(start) <= time.Hour,
	}
	if re.Compact {
		if ev.Room != "" && ev.Teacher != "" {
			re.Details = ev.Room + " - " + ev.Teacher
		} else {
			re.Details = ev.Room + ev.Teacher
		}
	}
	return re
}

// Projection is the render-ready content of the visible window.
type Projection struct {
	RangeStart    time.Time             `json:"range_start"`
	RangeEnd      time.Time             `json:"range_end"`
	Week          int                   `json:"week"`
	Year          int                   `json:"year"`
	DaltonismMode bool                  `json:"daltonism_mode"`
	Events        []model.RenderedEvent `json:"events"`
}

// Projection returns the displayed events starting inside the visible
// window, ordered by start then title.
func (c *Controller) Projection() Projection {
	week := WeekNumber(c.rangeStart, c.cfg.WeekStart)
	p := Projection{
		RangeStart:    c.rangeStart,
		RangeEnd:      c.rangeEnd,
		Week:          week,
		Year:          c.rangeStart.Year(),
		DaltonismMode: c.state.DaltonismMode,
		Events:        make([]model.RenderedEvent, 0),
	}

	for _, d := range c.surface {
		start := d.ev.Start.In(c.cfg.Location)
		if start.Before(c.rangeStart) || !start.Before(c.rangeEnd) {
			continue
		}
		if !c.cfg.ShowWeekends && (start.Weekday() == time.Saturday || start.Weekday() == time.Sunday) {
			continue
		}
		p.Events = append(p.Events, c.render(d.ev, d.colors))
	}

	slices.SortStableFunc(p.Events, func(a, b model.RenderedEvent) int {
		if cmp := a.Start.Compare(b.Start); cmp != 0 {
			return cmp
		}
		return strings.Compare(a.Title, b.Title)
	})
	return p
}
