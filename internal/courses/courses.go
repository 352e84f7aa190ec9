// Package courses derives the course list from scheduled events.
package courses

import (
	"coursecal/internal/model"
	"coursecal/internal/palette"
)

// Keys maps a course name to its palette key.
type Keys map[string]palette.Key

// Key returns the stored key for name, or palette.DefaultKey.
func (k Keys) Key(name string) palette.Key {
	if key, ok := k[name]; ok {
		return key
	}
	return palette.DefaultKey
}

// Build groups events by base name in first-seen order. Every course starts
// visible and uncustomized, with the literal colors of its first event.
func Build(events []model.Event) ([]model.Course, Keys) {
	keys := make(Keys)
	list := group(events, func(ev model.Event, c *model.Course) {
		keys[c.Name] = keyFor(ev, c.ColorFill)
	})
	return list, keys
}

// RebuildForRange groups the events of the visible range, which the caller
// has already selected. A course already present in previous keeps its
// checked flag; new courses start checked. Colors are the literal event
// colors; overrides are applied by the caller when rendering.
func RebuildForRange(inRange []model.Event, previous []model.Course) []model.Course {
	checked := make(map[string]bool, len(previous))
	for _, c := range previous {
		checked[c.Name] = c.Checked
	}

	return group(inRange, func(_ model.Event, c *model.Course) {
		if prev, ok := checked[c.Name]; ok {
			c.Checked = prev
		}
	})
}

func group(events []model.Event, onNew func(model.Event, *model.Course)) []model.Course {
	seen := make(map[string]bool)
	out := make([]model.Course, 0)
	for _, ev := range events {
		name := ev.BaseName()
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		border, fill := literalColors(ev)
		c := model.Course{
			Name:        name,
			ColorFill:   fill,
			ColorBorder: border,
			TextColor:   palette.ContrastText(fill),
			Checked:     true,
		}
		onNew(ev, &c)
		out = append(out, c)
	}
	return out
}

// literalColors walks the fallback chains
// border: Border -> Extended[borderColor] -> default blue border
// fill:   Fill -> Extended[background] -> Extended[backgroundColor] -> border -> default blue fill.
func literalColors(ev model.Event) (border, fill string) {
	def := palette.Normal[palette.DefaultKey]

	border = firstNonEmpty(ev.Border, ev.Extended["borderColor"], def.Border)
	fill = firstNonEmpty(ev.Fill, ev.Extended["background"], ev.Extended["backgroundColor"], border, def.Bg)
	return border, fill
}

// keyFor prefers the key declared on the event and otherwise reverse-looks
// the fill up in the Normal palette, defaulting to blue.
func keyFor(ev model.Event, fill string) palette.Key {
	if palette.Normal.Has(ev.ColorKey) {
		return ev.ColorKey
	}
	key, _ := palette.Normal.KeyForFill(fill)
	return key
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
