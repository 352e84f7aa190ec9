package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursecal/internal/model"
	"coursecal/internal/palette"
)

func paris(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)
	return loc
}

func loadFixture(t *testing.T) *Store {
	t.Helper()
	s, err := Load(Options{Location: paris(t)})
	require.NoError(t, err)
	return s
}

func TestLoadFixtureExpandsTimetable(t *testing.T) {
	s := loadFixture(t)
	loc := paris(t)

	assert.Equal(t, 62, s.Len())

	week := func(day int) (time.Time, time.Time) {
		start := time.Date(2026, time.January, day, 0, 0, 0, 0, loc)
		return start, start.AddDate(0, 0, 7)
	}
	w1s, w1e := week(5)
	w2s, w2e := week(12)
	w3s, w3e := week(19)
	assert.Len(t, s.InRange(w1s, w1e), 19)
	assert.Len(t, s.InRange(w2s, w2e), 23)
	assert.Len(t, s.InRange(w3s, w3e), 20)

	first := s.Events()[0]
	assert.Equal(t, "APSA", first.Title)
	assert.True(t, first.Start.Equal(time.Date(2026, time.January, 5, 8, 0, 0, 0, loc)))
	assert.Equal(t, palette.Cyan, first.ColorKey)
	assert.Equal(t, palette.Normal[palette.Cyan].Bg, first.Fill)
}

func TestLoadFixtureIsSorted(t *testing.T) {
	evs := loadFixture(t).Events()
	for i := 1; i < len(evs); i++ {
		assert.False(t, evs[i].Start.Before(evs[i-1].Start), "event %d out of order", i)
	}
}

func TestExdateRemovesThursdayOfWeekThree(t *testing.T) {
	s := loadFixture(t)
	loc := paris(t)

	thursday := time.Date(2026, time.January, 22, 0, 0, 0, 0, loc)
	assert.Empty(t, s.InRange(thursday, thursday.AddDate(0, 0, 1)))
	assert.Len(t, s.ByBaseName("Mathématiques discrètes - Cours1"), 6)
}

func TestRecurrenceOverrideChangesRoom(t *testing.T) {
	s := loadFixture(t)
	loc := paris(t)

	tuesday := time.Date(2026, time.January, 20, 0, 0, 0, 0, loc)
	var td2 []model.Event
	for _, ev := range s.InRange(tuesday, tuesday.AddDate(0, 0, 1)) {
		if ev.BaseName() == "Mathématiques de base: méthodes et outil - TD2" {
			td2 = append(td2, ev)
		}
	}
	require.Len(t, td2, 2)
	for _, ev := range td2 {
		assert.Equal(t, "NA-G. Charpak (A120) - (VC-200)", ev.Room)
		assert.Equal(t, "Salle Charpak", ev.Note)
	}

	// Earlier weeks keep the regular room.
	earlier := time.Date(2026, time.January, 6, 0, 0, 0, 0, loc)
	for _, ev := range s.InRange(earlier, earlier.AddDate(0, 0, 1)) {
		assert.Equal(t, "NA-J147 (V-40)", ev.Room)
	}
}

func TestByTeacherMatchesJointSessions(t *testing.T) {
	s := loadFixture(t)

	evs := s.ByTeacher("tisi massimo")
	require.Len(t, evs, 2)
	assert.Equal(t, "Débriefing - Cours1", evs[0].Title)
	assert.Equal(t, "Conseil de promotion - Cours1", evs[1].Title)

	assert.Empty(t, s.ByTeacher(""))
	assert.Len(t, s.ByTeacher("PALUD Sébastien"), 9)
}

func TestFind(t *testing.T) {
	s := loadFixture(t)
	ev := s.Events()[10]

	got, ok := s.Find(ev.Key())
	require.True(t, ok)
	assert.True(t, got.SameSlot(ev))

	_, ok = s.Find("missing")
	assert.False(t, ok)
}

func TestTermWindowLimitsExpansion(t *testing.T) {
	loc := paris(t)
	s, err := Load(Options{
		Location:  loc,
		TermStart: time.Date(2026, time.January, 12, 0, 0, 0, 0, loc),
		TermEnd:   time.Date(2026, time.January, 18, 23, 59, 0, 0, loc),
	})
	require.NoError(t, err)
	assert.Equal(t, 23, s.Len())
}

func TestParseICSColorsAndExtended(t *testing.T) {
	body := []byte("BEGIN:VCALENDAR\r\n" +
		"VERSION:2.0\r\n" +
		"PRODID:-//test//EN\r\n" +
		"BEGIN:VEVENT\r\n" +
		"UID:custom@test\r\n" +
		"DTSTART:20260105T070000Z\r\n" +
		"DTEND:20260105T080000Z\r\n" +
		"SUMMARY:Atelier (groupe A)\r\n" +
		"COLOR:#dcfce7\r\n" +
		"X-BORDER-COLOR:#22c55e\r\n" +
		"END:VEVENT\r\n" +
		"BEGIN:VEVENT\r\n" +
		"DTSTART:20260105T070000Z\r\n" +
		"SUMMARY:no uid\r\n" +
		"END:VEVENT\r\n" +
		"END:VCALENDAR\r\n")

	s, err := LoadICS("inline", body, Options{Location: time.UTC})
	require.NoError(t, err)
	require.Equal(t, 1, s.Len())

	ev := s.Events()[0]
	assert.Equal(t, "Atelier", ev.BaseName())
	assert.Equal(t, palette.Key(""), ev.ColorKey)
	assert.Equal(t, "#dcfce7", ev.Fill)
	assert.Empty(t, ev.Border)
	assert.Equal(t, "#22c55e", ev.Extended["borderColor"])
}

func TestParseICSEmpty(t *testing.T) {
	_, err := ParseICS("empty", nil)
	assert.Error(t, err)
}

func TestExpandRejectsInvertedRange(t *testing.T) {
	now := time.Now()
	_, err := Expand(nil, ExpandConfig{RangeStart: now, RangeEnd: now.Add(-time.Hour)})
	assert.Error(t, err)
}

func TestInRangeIsHalfOpen(t *testing.T) {
	s := loadFixture(t)
	apsa := time.Date(2026, time.January, 5, 8, 0, 0, 0, paris(t))

	assert.Empty(t, s.InRange(apsa.Add(-time.Hour), apsa))
	got := s.InRange(apsa, apsa.Add(time.Minute))
	require.Len(t, got, 1)
	assert.Equal(t, "APSA", got[0].Title)
}
