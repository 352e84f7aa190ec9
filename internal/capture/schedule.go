package capture

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	appLog "coursecal/internal/log"
)

// CaptureFunc takes one screenshot. CaptureCalendarPNG is the production
// implementation.
type CaptureFunc func(context.Context, CaptureOptions) error

// Job runs captures for the scheduler and for --once.
type Job struct {
	Options CaptureOptions
	Capture CaptureFunc
}

// Run performs a single capture and logs the outcome.
func (j Job) Run(ctx context.Context) error {
	capture := j.Capture
	if capture == nil {
		capture = CaptureCalendarPNG
	}

	started := time.Now()
	if err := capture(ctx, j.Options); err != nil {
		appLog.Error("capture failed", err, "url", j.Options.URL)
		return err
	}
	appLog.Info("capture written",
		"url", j.Options.URL,
		"output", j.Options.OutputPath,
		"took", time.Since(started).Round(time.Millisecond).String(),
	)
	return nil
}

// Schedule registers job on a new cron runner with the given 5-field spec.
// The runner is started and must be stopped by the caller. Overlapping runs
// are skipped.
func Schedule(ctx context.Context, spec string, job Job) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(spec, func() { _ = job.Run(ctx) }); err != nil {
		return nil, fmt.Errorf("capture: invalid cron %q: %w", spec, err)
	}
	c.Start()
	appLog.Info("capture scheduled", "cron", spec, "url", job.Options.URL)
	return c, nil
}
