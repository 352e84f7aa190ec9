package schedule

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // fixture TZIDs must resolve on hosts without zoneinfo

	ical "github.com/arran4/golang-ical"

	appLog "coursecal/internal/log"
	"coursecal/internal/palette"
)

// Non-standard VEVENT properties used by the timetable.
const (
	propTeacher    = "X-TEACHER"
	propColorKey   = "X-COLOR-KEY"
	propColor      = "COLOR"
	propRecurrence = "RECURRENCE-ID"
)

// extendedProps maps optional color X-properties onto Event.Extended keys.
var extendedProps = map[ical.ComponentProperty]string{
	"X-BACKGROUND-COLOR": "backgroundColor",
	"X-BORDER-COLOR":     "borderColor",
}

// ParsedEvent is a VEVENT before recurrence expansion.
type ParsedEvent struct {
	UID string

	Summary string
	Room    string
	Teacher string
	Note    string

	ColorKey palette.Key
	Color    string // literal fill (COLOR), optional

	Extended map[string]string

	Start time.Time
	End   time.Time

	RawRRule   string
	ExDates    []time.Time
	Recurrence *time.Time // RECURRENCE-ID, when this VEVENT overrides one instance
	IsOverride bool
}

// ParseICS parses an iCalendar payload into ParsedEvents. Malformed VEVENTs
// are logged and skipped.
func ParseICS(name string, body []byte) ([]ParsedEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("schedule: empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("schedule: parse %s: %w", name, err)
	}

	events := make([]ParsedEvent, 0)
	for _, comp := range cal.Events() {
		ev, perr := parseVEvent(comp)
		if perr != nil {
			appLog.Warn("schedule: skipping vevent", "source", name, "err", perr)
			continue
		}
		events = append(events, ev)
	}

	appLog.Debug("schedule: ics parsed", "source", name, "event_count", len(events))
	return events, nil
}

func parseVEvent(ve *ical.VEvent) (ParsedEvent, error) {
	var out ParsedEvent

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uidProp.Value

	out.Summary = propValue(ve, ical.ComponentPropertySummary)
	if out.Summary == "" {
		return out, fmt.Errorf("uid %s: missing SUMMARY", out.UID)
	}
	out.Room = propValue(ve, ical.ComponentPropertyLocation)
	out.Note = propValue(ve, ical.ComponentPropertyDescription)
	out.Teacher = propValue(ve, propTeacher)
	out.ColorKey = palette.Key(strings.ToLower(propValue(ve, propColorKey)))
	out.Color = propValue(ve, propColor)
	for prop, key := range extendedProps {
		if v := propValue(ve, prop); v != "" {
			if out.Extended == nil {
				out.Extended = make(map[string]string)
			}
			out.Extended[key] = v
		}
	}

	start, err := timeProp(ve, ical.ComponentPropertyDtStart, time.UTC)
	if err != nil {
		return out, fmt.Errorf("uid %s: DTSTART: %w", out.UID, err)
	}
	end, err := timeProp(ve, ical.ComponentPropertyDtEnd, start.Location())
	if err != nil {
		return out, fmt.Errorf("uid %s: DTEND: %w", out.UID, err)
	}
	if end.Before(start) {
		return out, fmt.Errorf("uid %s: DTEND before DTSTART", out.UID)
	}
	out.Start = start
	out.End = end

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.RawRRule = p.Value
	}

	// EXDATE may repeat and may hold a comma-separated list.
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		loc := tzidLocation(p, start.Location())
		for _, part := range strings.Split(p.Value, ",") {
			if t, err := parseICSTime(part, loc); err == nil {
				out.ExDates = append(out.ExDates, t)
			}
		}
	}

	if p := ve.GetProperty(propRecurrence); p != nil {
		t, err := parseICSTime(p.Value, tzidLocation(p, start.Location()))
		if err != nil {
			return out, fmt.Errorf("uid %s: RECURRENCE-ID: %w", out.UID, err)
		}
		out.Recurrence = &t
		out.IsOverride = true
	}

	return out, nil
}

func propValue(ve *ical.VEvent, name ical.ComponentProperty) string {
	if p := ve.GetProperty(name); p != nil {
		return strings.TrimSpace(p.Value)
	}
	return ""
}

// timeProp parses a date-time property, honoring its TZID parameter.
func timeProp(ve *ical.VEvent, name ical.ComponentProperty, def *time.Location) (time.Time, error) {
	p := ve.GetProperty(name)
	if p == nil {
		return time.Time{}, errors.New("missing")
	}
	return parseICSTime(p.Value, tzidLocation(p, def))
}

// tzidLocation resolves the TZID parameter of p, falling back to def.
func tzidLocation(p *ical.IANAProperty, def *time.Location) *time.Location {
	if tzs, ok := p.ICalParameters["TZID"]; ok && len(tzs) > 0 {
		if loc, err := time.LoadLocation(tzs[0]); err == nil {
			return loc
		}
	}
	return def
}

// parseICSTime parses DATE-TIME (UTC or local to loc) and DATE values.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}
	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}
	if strings.Contains(v, "T") {
		return time.ParseInLocation("20060102T150405", v, loc)
	}
	return time.ParseInLocation("20060102", v, loc)
}
