package schedule

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursecal/internal/model"
	"coursecal/internal/palette"
)

func TestExportICSReadsBack(t *testing.T) {
	start := time.Date(2026, time.January, 7, 7, 0, 0, 0, time.UTC)
	rendered := []model.RenderedEvent{{
		Key:     "abc123",
		Title:   "IHM - Cours1",
		Start:   start,
		End:     start.Add(75 * time.Minute),
		Room:    "NA-J147 (V-40)",
		Teacher: "DELFORGES ALEXIS",
		Colors:  palette.ColorblindSafe[palette.Blue],
	}}

	out := ExportICS("FIL", rendered, start)
	assert.True(t, strings.HasPrefix(out, "BEGIN:VCALENDAR"))
	assert.Contains(t, out, "UID:abc123@coursecal")

	parsed, err := ParseICS("export", []byte(out))
	require.NoError(t, err)
	require.Len(t, parsed, 1)
	assert.Equal(t, "IHM - Cours1", parsed[0].Summary)
	assert.Equal(t, "DELFORGES ALEXIS", parsed[0].Teacher)
	assert.Equal(t, "#0173B2", parsed[0].Color)
	assert.True(t, parsed[0].Start.Equal(start))
}
