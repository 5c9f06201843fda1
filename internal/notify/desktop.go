// Package notify alerts the user when a timer phase changes, through system
// sounds and desktop notifications. Every call returns immediately; the work
// runs on its own goroutine and failures are only logged.
package notify

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"clockko/focus/internal/metrics"
)

// ErrPermissionDenied means system notifications cannot be shown. Sounds are
// not affected.
var ErrPermissionDenied = errors.New("system notifications are not permitted")

const (
	eventFocusComplete = "focus-complete"
	eventBreakComplete = "break-complete"
	eventPaused        = "paused"
	eventResumed       = "resumed"
)

type command struct {
	name string
	args []string
}

type Options struct {
	Sound  bool
	System bool
}

// Desktop plays sounds and shows notifications on the machine running the
// timer.
type Desktop struct {
	opts   Options
	logger zerolog.Logger

	run      func(name string, args ...string) error
	lookPath func(file string) (string, error)
	bell     io.Writer

	permissionOnce sync.Once
	permissionErr  error
	permitted      atomic.Bool

	inflight sync.WaitGroup
}

func NewDesktop(opts Options, logger zerolog.Logger) *Desktop {
	return &Desktop{
		opts:     opts,
		logger:   logger.With().Str("component", "notify").Logger(),
		run:      runCommand,
		lookPath: exec.LookPath,
		bell:     os.Stdout,
	}
}

// RequestPermission checks once whether desktop notifications can be shown
// and returns the same answer on every later call.
func (d *Desktop) RequestPermission() error {
	d.permissionOnce.Do(func() {
		if !d.opts.System {
			d.permissionErr = fmt.Errorf("%w: disabled by configuration", ErrPermissionDenied)
		} else if cmd, ok := notifierCommand("", ""); !ok {
			d.permissionErr = fmt.Errorf("%w: unsupported platform", ErrPermissionDenied)
		} else if _, err := d.lookPath(cmd.name); err != nil {
			d.permissionErr = fmt.Errorf("%w: %s not found", ErrPermissionDenied, cmd.name)
		}

		if d.permissionErr != nil {
			d.logger.Warn().Err(d.permissionErr).Msg("System notifications disabled")
			return
		}
		d.permitted.Store(true)
	})
	return d.permissionErr
}

func (d *Desktop) PlayFocusComplete() { d.play(eventFocusComplete) }
func (d *Desktop) PlayBreakComplete() { d.play(eventBreakComplete) }
func (d *Desktop) PlayPaused()        { d.play(eventPaused) }
func (d *Desktop) PlayResumed()       { d.play(eventResumed) }

// Notify shows a desktop notification. Without permission it does nothing.
func (d *Desktop) Notify(title, body string) {
	if !d.permitted.Load() {
		d.logger.Debug().Str("title", title).Msg("Notification suppressed")
		return
	}
	cmd, ok := notifierCommand(title, body)
	if !ok {
		return
	}
	metrics.NotificationsSent.WithLabelValues("system").Inc()
	d.async(func() error {
		return d.run(cmd.name, cmd.args...)
	})
}

// Wait blocks until every sound and notification already requested has
// finished.
func (d *Desktop) Wait() {
	d.inflight.Wait()
}

func (d *Desktop) play(event string) {
	if !d.opts.Sound {
		return
	}
	metrics.NotificationsSent.WithLabelValues(event).Inc()
	d.async(func() error {
		return d.playForEvent(event)
	})
}

// playForEvent tries each player for the platform in turn and rings the
// terminal bell when none works.
func (d *Desktop) playForEvent(event string) error {
	for _, cmd := range soundCommands(event) {
		if err := d.run(cmd.name, cmd.args...); err == nil {
			return nil
		}
	}
	_, err := fmt.Fprint(d.bell, "\a")
	return err
}

func (d *Desktop) async(fn func() error) {
	d.inflight.Add(1)
	go func() {
		defer d.inflight.Done()
		if err := fn(); err != nil {
			d.logger.Debug().Err(err).Msg("Notification failed")
		}
	}()
}

func runCommand(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}
