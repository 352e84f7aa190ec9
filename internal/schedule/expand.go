package schedule

import (
	"errors"
	"time"

	"github.com/teambition/rrule-go"

	appLog "coursecal/internal/log"
)

const defaultMaxOccurrencesPerEvent = 500

// ExpandConfig bounds recurrence expansion.
type ExpandConfig struct {
	// DisplayLocation is the zone every occurrence is converted to.
	// Nil means time.Local.
	DisplayLocation *time.Location

	// RangeStart / RangeEnd is the inclusive expansion window.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent caps runaway rules. Zero uses the default.
	MaxOccurrencesPerEvent int
}

// Occurrence is one concrete instance of a ParsedEvent.
type Occurrence struct {
	Event ParsedEvent
	Start time.Time
	End   time.Time
}

// Expand turns ParsedEvents into concrete occurrences inside the window,
// honoring RRULE, EXDATE and RECURRENCE-ID overrides. The result order is
// unspecified; callers sort.
func Expand(events []ParsedEvent, cfg ExpandConfig) ([]Occurrence, error) {
	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return nil, errors.New("schedule: expand range end is before start")
	}
	if cfg.DisplayLocation == nil {
		cfg.DisplayLocation = time.Local
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	baseByUID := make(map[string][]ParsedEvent)
	overridesByUID := make(map[string][]ParsedEvent)
	for _, ev := range events {
		if ev.IsOverride && ev.Recurrence != nil {
			overridesByUID[ev.UID] = append(overridesByUID[ev.UID], ev)
		} else {
			baseByUID[ev.UID] = append(baseByUID[ev.UID], ev)
		}
	}

	out := make([]Occurrence, 0, len(events))
	for uid, bases := range baseByUID {
		for _, ev := range bases {
			occ, hitCap := expandEvent(ev, overridesByUID[uid], cfg)
			if hitCap {
				appLog.Warn("schedule: occurrences truncated", "uid", uid, "cap", cfg.MaxOccurrencesPerEvent)
			}
			out = append(out, occ...)
		}
	}
	return out, nil
}

func expandEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]Occurrence, bool) {
	if ev.RawRRule == "" {
		if !inWindow(ev.Start, cfg) {
			return nil, false
		}
		return []Occurrence{makeOccurrence(ev, overrides, ev.Start, ev.End, cfg.DisplayLocation)}, false
	}

	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("schedule: bad RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	loc := ev.Start.Location()
	times := set.Between(cfg.RangeStart.In(loc), cfg.RangeEnd.In(loc), true)

	hitCap := false
	if len(times) > cfg.MaxOccurrencesPerEvent {
		times = times[:cfg.MaxOccurrencesPerEvent]
		hitCap = true
	}

	dur := ev.End.Sub(ev.Start)
	out := make([]Occurrence, 0, len(times))
	for _, start := range times {
		out = append(out, makeOccurrence(ev, overrides, start, start.Add(dur), cfg.DisplayLocation))
	}
	return out, hitCap
}

// makeOccurrence applies the override whose RECURRENCE-ID equals start, if
// any, and converts the instance into loc.
func makeOccurrence(ev ParsedEvent, overrides []ParsedEvent, start, end time.Time, loc *time.Location) Occurrence {
	for _, ov := range overrides {
		if ov.Recurrence != nil && ov.Recurrence.Equal(start) {
			ev, start, end = ov, ov.Start, ov.End
			break
		}
	}
	return Occurrence{Event: ev, Start: start.In(loc), End: end.In(loc)}
}

func inWindow(t time.Time, cfg ExpandConfig) bool {
	return !t.Before(cfg.RangeStart) && !t.After(cfg.RangeEnd)
}
