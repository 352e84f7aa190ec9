package session

import (
	"maps"
	"slices"

	"github.com/google/uuid"

	"coursecal/internal/courses"
	appLog "coursecal/internal/log"
	"coursecal/internal/model"
	"coursecal/internal/palette"
)

// DialogState is the lifecycle state of a SettingsDialog.
type DialogState int

const (
	DialogOpen DialogState = iota
	DialogSaved
	DialogCancelled
)

func (s DialogState) String() string {
	switch s {
	case DialogOpen:
		return "open"
	case DialogSaved:
		return "saved"
	case DialogCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// SettingsDialog is a staged edit of the course colors and the daltonism
// flag. Edits only touch the dialog's own copies; Save replays them onto
// the controller, Cancel drops them.
type SettingsDialog struct {
	ID string

	ctrl  *Controller
	state DialogState

	courses   []model.Course
	daltonism bool
	// live daltonism flag at open time; Save only commits a changed flag
	baseDaltonism bool
	keys          courses.Keys
	// live custom colors at open time, dropped by Reset
	base   map[string]string
	staged map[string]string
	reset  bool
}

// OpenSettings starts a settings dialog on a snapshot of the current course
// list. Only one dialog may be open at a time.
func (c *Controller) OpenSettings() (*SettingsDialog, error) {
	if c.dialog != nil && c.dialog.state == DialogOpen {
		return nil, ErrSettingsOpen
	}
	if len(c.state.Courses) == 0 {
		list, keys := courses.Build(c.store.Events())
		c.state.Courses, c.state.CourseColorKeys = list, keys
		c.state.recolorCourses()
	}

	d := &SettingsDialog{
		ID:            uuid.NewString(),
		ctrl:          c,
		state:         DialogOpen,
		courses:       slices.Clone(c.state.Courses),
		daltonism:     c.state.DaltonismMode,
		baseDaltonism: c.state.DaltonismMode,
		keys:          maps.Clone(c.state.CourseColorKeys),
		base:          maps.Clone(c.state.CustomCourseColors),
		staged:        make(map[string]string),
	}
	c.dialog = d
	appLog.Debug("session: settings opened", "id", d.ID, "courses", len(d.courses))
	return d, nil
}

// Settings returns the open dialog with the given id.
func (c *Controller) Settings(id string) (*SettingsDialog, bool) {
	if c.dialog == nil || c.dialog.ID != id || c.dialog.state != DialogOpen {
		return nil, false
	}
	return c.dialog, true
}

func (d *SettingsDialog) State() DialogState {
	return d.state
}

// Courses returns the dialog's working copy of the course list.
func (d *SettingsDialog) Courses() []model.Course {
	return slices.Clone(d.courses)
}

func (d *SettingsDialog) DaltonismMode() bool {
	return d.daltonism
}

// preview resolves a course the way the controller will after Save.
func (d *SettingsDialog) preview(name string) (palette.Triple, bool) {
	view := State{
		DaltonismMode:      d.daltonism,
		CustomCourseColors: make(map[string]string, len(d.base)+len(d.staged)),
		CourseColorKeys:    d.keys,
	}
	maps.Copy(view.CustomCourseColors, d.base)
	maps.Copy(view.CustomCourseColors, d.staged)
	_, custom := view.CustomCourseColors[name]
	return view.resolve(name), custom
}

func (d *SettingsDialog) refresh() {
	for i := range d.courses {
		c := &d.courses[i]
		var t palette.Triple
		t, c.IsCustomColor = d.preview(c.Name)
		c.ColorFill, c.ColorBorder, c.TextColor = t.Bg, t.Border, t.Text
	}
}

// SetColor stages a custom color for a listed course.
func (d *SettingsDialog) SetColor(name, hex string) error {
	if d.state != DialogOpen {
		return ErrSettingsClosed
	}
	if !slices.ContainsFunc(d.courses, func(c model.Course) bool { return c.Name == name }) {
		return nil
	}
	d.staged[name] = hex
	d.refresh()
	return nil
}

// SetDaltonism stages the daltonism flag.
func (d *SettingsDialog) SetDaltonism(enabled bool) error {
	if d.state != DialogOpen {
		return ErrSettingsClosed
	}
	d.daltonism = enabled
	d.refresh()
	return nil
}

// Reset stages a full color reset: no custom colors and daltonism off.
func (d *SettingsDialog) Reset() error {
	if d.state != DialogOpen {
		return ErrSettingsClosed
	}
	d.reset = true
	d.daltonism = false
	clear(d.base)
	clear(d.staged)
	d.refresh()
	return nil
}

// Save commits the staged edits to the controller and closes the dialog.
func (d *SettingsDialog) Save() error {
	if d.state != DialogOpen {
		return ErrSettingsClosed
	}
	d.state = DialogSaved
	c := d.ctrl
	c.dialog = nil

	if d.reset {
		c.ResetColors()
	}
	staged := d.reset || d.daltonism != d.baseDaltonism
	if staged && d.daltonism != c.state.DaltonismMode {
		c.SetDaltonism(d.daltonism)
	}
	for _, course := range d.courses {
		if hex, ok := d.staged[course.Name]; ok {
			c.SetColor(course.Name, hex)
		}
	}
	appLog.Debug("session: settings saved", "id", d.ID, "reset", d.reset, "colors", len(d.staged))
	return nil
}

// Cancel discards the staged edits and closes the dialog.
func (d *SettingsDialog) Cancel() error {
	if d.state != DialogOpen {
		return ErrSettingsClosed
	}
	d.state = DialogCancelled
	d.ctrl.dialog = nil
	appLog.Debug("session: settings cancelled", "id", d.ID)
	return nil
}
