package capture

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptureRequiresURLAndOutput(t *testing.T) {
	err := CaptureCalendarPNG(context.Background(), CaptureOptions{OutputPath: "x.png"})
	assert.ErrorContains(t, err, "URL is required")

	err = CaptureCalendarPNG(context.Background(), CaptureOptions{URL: "http://127.0.0.1/calendar"})
	assert.ErrorContains(t, err, "OutputPath is required")
}

func TestNormalizeDefaults(t *testing.T) {
	o := CaptureOptions{URL: "http://x", OutputPath: "p.png"}
	require.NoError(t, o.normalize())
	assert.Equal(t, DefaultWidth, o.Width)
	assert.Equal(t, DefaultHeight, o.Height)
	assert.True(t, o.Timeout > 0)
}

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "preview.png")
	require.NoError(t, writeFileAtomic(path, []byte("one")))
	require.NoError(t, writeFileAtomic(path, []byte("two")))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(got))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestJobRun(t *testing.T) {
	var got CaptureOptions
	job := Job{
		Options: CaptureOptions{URL: "http://127.0.0.1:8080/calendar", OutputPath: "out.png"},
		Capture: func(_ context.Context, o CaptureOptions) error {
			got = o
			return nil
		},
	}
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, job.Options, got)

	boom := errors.New("boom")
	job.Capture = func(context.Context, CaptureOptions) error { return boom }
	assert.ErrorIs(t, job.Run(context.Background()), boom)
}

func TestScheduleRejectsBadSpec(t *testing.T) {
	_, err := Schedule(context.Background(), "every tuesday", Job{})
	assert.Error(t, err)
}

func TestScheduleStarts(t *testing.T) {
	c, err := Schedule(context.Background(), "*/30 * * * *", Job{Capture: func(context.Context, CaptureOptions) error { return nil }})
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 1)
	<-c.Stop().Done()
}
