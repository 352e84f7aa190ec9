package session

import (
	"maps"
	"slices"

	"coursecal/internal/courses"
	"coursecal/internal/model"
	"coursecal/internal/palette"
)

// State is the mutable per-session view state. It is owned by one
// Controller; the copies handed out by Controller.State are detached.
type State struct {
	DaltonismMode      bool              `json:"daltonism_mode"`
	CustomCourseColors map[string]string `json:"custom_course_colors"`
	CourseColorKeys    courses.Keys      `json:"course_color_keys"`
	Courses            []model.Course    `json:"courses"`
}

// ResolvePalette returns the colors a course renders with:
//   - daltonism on: ColorblindSafe[key], custom colors ignored
//   - custom color set: that color for fill and border, contrast text
//   - otherwise: Normal[key]
//
// Unknown keys fall back to blue.
func (s *State) ResolvePalette(course string, key palette.Key) palette.Triple {
	if s.DaltonismMode {
		return palette.ColorblindSafe.Get(key)
	}
	if hex, ok := s.CustomCourseColors[course]; ok {
		return palette.Custom(hex)
	}
	return palette.Normal.Get(key)
}

// resolve looks the course key up before resolving.
func (s *State) resolve(course string) palette.Triple {
	return s.ResolvePalette(course, s.CourseColorKeys.Key(course))
}

// recolorCourses re-resolves every listed course in place.
func (s *State) recolorCourses() {
	for i := range s.Courses {
		c := &s.Courses[i]
		t := s.resolve(c.Name)
		c.ColorFill, c.ColorBorder, c.TextColor = t.Bg, t.Border, t.Text
		_, c.IsCustomColor = s.CustomCourseColors[c.Name]
	}
}

func (s *State) course(name string) *model.Course {
	for i := range s.Courses {
		if s.Courses[i].Name == name {
			return &s.Courses[i]
		}
	}
	return nil
}

func (s *State) clone() State {
	return State{
		DaltonismMode:      s.DaltonismMode,
		CustomCourseColors: maps.Clone(s.CustomCourseColors),
		CourseColorKeys:    maps.Clone(s.CourseColorKeys),
		Courses:            slices.Clone(s.Courses),
	}
}
