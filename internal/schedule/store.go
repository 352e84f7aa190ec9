package schedule

import (
	_ "embed"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	appLog "coursecal/internal/log"
	"coursecal/internal/model"
	"coursecal/internal/palette"
)

//go:embed fixture/timetable.ics
var timetableICS []byte

// Options controls how a Store is built from iCalendar data.
type Options struct {
	// Location is the display timezone; nil means time.Local.
	Location *time.Location
	// TermStart / TermEnd bound recurrence expansion. Zero values default
	// to a window wide enough for the academic year of the fixture.
	TermStart time.Time
	TermEnd   time.Time
}

func (o Options) normalized() Options {
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.TermStart.IsZero() {
		o.TermStart = time.Date(2025, time.September, 1, 0, 0, 0, 0, o.Location)
	}
	if o.TermEnd.IsZero() {
		o.TermEnd = time.Date(2026, time.August, 31, 23, 59, 59, 0, o.Location)
	}
	return o
}

// Store is the immutable, chronologically ordered list of scheduled events.
type Store struct {
	events []model.Event
	loc    *time.Location
}

// New builds a Store from already materialized events. The slice is copied
// and sorted by (start, title).
func New(events []model.Event, loc *time.Location) *Store {
	if loc == nil {
		loc = time.Local
	}
	sorted := slices.Clone(events)
	slices.SortStableFunc(sorted, func(a, b model.Event) int {
		if c := a.Start.Compare(b.Start); c != 0 {
			return c
		}
		return strings.Compare(a.Title, b.Title)
	})
	return &Store{events: sorted, loc: loc}
}

// Load builds the Store from the compiled-in timetable.
func Load(opts Options) (*Store, error) {
	return LoadICS("timetable.ics", timetableICS, opts)
}

// LoadICS parses and expands an iCalendar payload into a Store.
func LoadICS(name string, body []byte, opts Options) (*Store, error) {
	opts = opts.normalized()

	parsed, err := ParseICS(name, body)
	if err != nil {
		return nil, err
	}
	occs, err := Expand(parsed, ExpandConfig{
		DisplayLocation: opts.Location,
		RangeStart:      opts.TermStart,
		RangeEnd:        opts.TermEnd,
	})
	if err != nil {
		return nil, fmt.Errorf("schedule: %s: %w", name, err)
	}

	events := make([]model.Event, 0, len(occs))
	for _, o := range occs {
		events = append(events, toEvent(o))
	}

	s := New(events, opts.Location)
	appLog.Info("schedule loaded", "source", name, "vevents", len(parsed), "events", s.Len())
	return s, nil
}

// toEvent materializes the literal colors of an occurrence: an explicit
// COLOR wins for the fill, otherwise the declared key's Normal entry.
func toEvent(o Occurrence) model.Event {
	ev := model.Event{
		UID:      o.Event.UID,
		Title:    o.Event.Summary,
		Start:    o.Start,
		End:      o.End,
		Room:     o.Event.Room,
		Teacher:  o.Event.Teacher,
		Note:     o.Event.Note,
		ColorKey: o.Event.ColorKey,
		Extended: maps.Clone(o.Event.Extended),
	}
	if palette.Normal.Has(ev.ColorKey) {
		t := palette.Normal[ev.ColorKey]
		ev.Fill, ev.Border, ev.Text = t.Bg, t.Border, t.Text
	}
	if o.Event.Color != "" {
		ev.Fill = o.Event.Color
	}
	return ev
}

// Location is the display timezone of the stored events.
func (s *Store) Location() *time.Location {
	return s.loc
}

func (s *Store) Len() int {
	return len(s.events)
}

// Events returns a copy of every stored event in order.
func (s *Store) Events() []model.Event {
	return slices.Clone(s.events)
}

// InRange returns the events whose start lies in [start, end).
func (s *Store) InRange(start, end time.Time) []model.Event {
	out := make([]model.Event, 0)
	for _, ev := range s.events {
		if !ev.Start.Before(start) && ev.Start.Before(end) {
			out = append(out, ev)
		}
	}
	return out
}

// ByBaseName returns every event of one course.
func (s *Store) ByBaseName(name string) []model.Event {
	out := make([]model.Event, 0)
	for _, ev := range s.events {
		if ev.BaseName() == name {
			out = append(out, ev)
		}
	}
	return out
}

// ByTeacher returns the events taught (possibly jointly) by teacher,
// compared case-insensitively.
func (s *Store) ByTeacher(teacher string) []model.Event {
	teacher = strings.TrimSpace(teacher)
	out := make([]model.Event, 0)
	if teacher == "" {
		return out
	}
	for _, ev := range s.events {
		for _, t := range ev.Teachers() {
			if strings.EqualFold(t, teacher) {
				out = append(out, ev)
				break
			}
		}
	}
	return out
}

// Find looks an event up by its Key.
func (s *Store) Find(key string) (model.Event, bool) {
	for _, ev := range s.events {
		if ev.Key() == key {
			return ev, true
		}
	}
	return model.Event{}, false
}
