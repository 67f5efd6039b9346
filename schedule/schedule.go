// Package schedule runs jobs on cron expressions.
package schedule

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/robfig/cron/v3"

	"github.com/jonwraymond/promptrelay/observe"
	"github.com/jonwraymond/promptrelay/refresh"
)

// DefaultWeatherSpec refreshes the weather daily at 04:00.
const DefaultWeatherSpec = "0 4 * * *"

// Job is one scheduled run.
type Job func(ctx context.Context)

// Daily runs a job on a five-field cron expression. Overlapping runs are
// skipped.
type Daily struct {
	name   string
	cron   *cron.Cron
	entry  cron.EntryID
	logger observe.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDaily parses spec and registers job. Times are evaluated in loc; nil
// means time.Local.
func NewDaily(name, spec string, loc *time.Location, job Job, logger observe.Logger) (*Daily, error) {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = observe.NopLogger()
	}
	logger = logger.With(observe.Op{Component: "schedule", Name: name})

	ctx, cancel := context.WithCancel(context.Background())
	d := &Daily{
		name:   name,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
	d.cron = cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(cronLogger{logger}), cron.SkipIfStillRunning(cronLogger{logger})),
	)

	id, err := d.cron.AddFunc(spec, func() { job(d.ctx) })
	if err != nil {
		cancel()
		return nil, errors.Wrapf(err, "schedule %s: parse %q", name, spec)
	}
	d.entry = id
	return d, nil
}

// Start begins firing the job.
func (d *Daily) Start() {
	d.cron.Start()
	d.logger.Info(d.ctx, "schedule started", observe.F("next", d.Next().Format(time.RFC3339)))
}

// RunNow runs job once in the background, outside the schedule. Stop waits
// for it.
func (d *Daily) RunNow(job Job) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		job(d.ctx)
	}()
}

// Next returns the next scheduled run, or the zero time before Start.
func (d *Daily) Next() time.Time {
	return d.cron.Entry(d.entry).Next
}

// Stop cancels running jobs and waits for them until ctx is done.
func (d *Daily) Stop(ctx context.Context) error {
	d.cancel()
	cronDone := d.cron.Stop().Done()

	done := make(chan struct{})
	go func() {
		<-cronDone
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info(ctx, "schedule stopped")
		return nil
	case <-ctx.Done():
		return errors.Wrapf(ctx.Err(), "schedule %s: stop", d.name)
	}
}

// WeatherRefresher is the part of refresh.Weather the schedule needs.
type WeatherRefresher interface {
	Load(ctx context.Context) (bool, error)
	Refresh(ctx context.Context) refresh.Outcome
}

// StartWeather loads the persisted weather, schedules daily refreshes on
// spec and, when nothing was persisted, refreshes once right away.
func StartWeather(ctx context.Context, spec string, loc *time.Location, w WeatherRefresher, logger observe.Logger) (*Daily, error) {
	if spec == "" {
		spec = DefaultWeatherSpec
	}
	run := func(ctx context.Context) { w.Refresh(ctx) }

	d, err := NewDaily("weather", spec, loc, run, logger)
	if err != nil {
		return nil, err
	}

	found, err := w.Load(ctx)
	if err != nil {
		d.logger.Warn(ctx, "persisted weather unreadable", observe.F("error", err))
	}
	d.Start()
	if !found {
		d.logger.Info(ctx, "no persisted weather, refreshing now")
		d.RunNow(run)
	}
	return d, nil
}

// cronLogger adapts observe.Logger to cron.Logger.
type cronLogger struct {
	l observe.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug(context.Background(), msg, fields(keysAndValues)...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error(context.Background(), msg, append(fields(keysAndValues), observe.F("error", err))...)
}

func fields(kv []any) []observe.Field {
	out := make([]observe.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		out = append(out, observe.F(key, kv[i+1]))
	}
	return out
}
