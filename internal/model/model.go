package model

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"time"

	"coursecal/internal/palette"
)

// Event is a single scheduled class as loaded into the event store, after
// recurrence expansion. It is never mutated once the store is built.
type Event struct {
	// UID is the iCalendar UID of the VEVENT the occurrence came from.
	UID string

	Title string
	Start time.Time
	End   time.Time

	Room    string
	Teacher string
	Note    string

	// ColorKey is the palette key declared by the source event. It may be
	// empty, in which case the key is inferred from Fill.
	ColorKey palette.Key

	// Literal colors as declared on the source event. Any of them may be
	// empty; consumers walk their own fallback chain.
	Fill   string
	Border string
	Text   string

	// Extended holds auxiliary string properties (e.g. a literal
	// "backgroundColor" or "borderColor" carried outside the main fields).
	Extended map[string]string
}

// parenthesized matches the first '(' through the last ')' together with any
// whitespace in front of it.
var parenthesized = regexp.MustCompile(`\s*\(.*\)`)

// BaseName strips a parenthesized suffix from a title and trims whitespace.
// "Anglais (S5)" -> "Anglais".
func BaseName(title string) string {
	return strings.TrimSpace(parenthesized.ReplaceAllString(title, ""))
}

// BaseName is the course grouping key of the event.
func (e Event) BaseName() string {
	return BaseName(e.Title)
}

// Key is a stable identifier derived from title and start instant.
func (e Event) Key() string {
	sum := sha256.Sum256([]byte(e.Title + "\x00" + e.Start.UTC().Format(time.RFC3339Nano)))
	return hex.EncodeToString(sum[:8])
}

// SameSlot reports whether two events share start instant and title, which
// is how the calendar decides that an event is already displayed.
func (e Event) SameSlot(o Event) bool {
	return e.Title == o.Title && e.Start.Equal(o.Start)
}

// Teachers splits a "A / B / C" teacher field into individual names.
func (e Event) Teachers() []string {
	if strings.TrimSpace(e.Teacher) == "" {
		return nil
	}
	parts := strings.Split(e.Teacher, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Course groups every event sharing a base name. It is the unit of
// visibility and color customization.
type Course struct {
	Name          string `json:"name"`
	ColorFill     string `json:"color_fill"`
	ColorBorder   string `json:"color_border"`
	TextColor     string `json:"text_color"`
	Checked       bool   `json:"checked"`
	IsCustomColor bool   `json:"is_custom_color"`
}

// RenderedEvent is an event as painted on the calendar surface, with its
// resolved colors and display helpers.
type RenderedEvent struct {
	Key      string    `json:"key"`
	Title    string    `json:"title"`
	BaseName string    `json:"base_name"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Room     string    `json:"room,omitempty"`
	Teacher  string    `json:"teacher,omitempty"`
	Note     string    `json:"note,omitempty"`

	Colors palette.Triple `json:"colors"`

	// TimeText is "HH:MM - HH:MM" in the display timezone.
	TimeText string `json:"time_text"`
	// Compact is set for events of an hour or less; Details then holds a
	// single line combining room and teacher.
	Compact bool   `json:"compact"`
	Details string `json:"details"`
}

// Detail is the payload of the event popup.
type Detail struct {
	Title         string `json:"title"`
	DateFormatted string `json:"date_formatted"`
	Teacher       string `json:"teacher,omitempty"`
	Room          string `json:"room,omitempty"`
	Organism      string `json:"organism,omitempty"`
	Note          string `json:"note,omitempty"`
	Color         string `json:"color"`
}
