// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

// Package schedule starts monitoring runs at fixed times of the day, so the
// recipient does not have to tap Scan every morning.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/xmidt-org/eventor"
	"go.uber.org/zap"
)

var (
	ErrInvalidInput = errors.New("invalid input")
)

// Starter starts a monitoring run that lasts until end.
type Starter interface {
	Start(end time.Time) bool
}

// Config describes a schedule.
type Config struct {
	// Spec is a cron expression such as "30 7 * * 1-5" or "@every 1h".  An
	// empty Spec disables the schedule.
	Spec string

	// RunFor is how long each scheduled run lasts.
	RunFor time.Duration

	// Location is the time zone the Spec is read in.  The default is local.
	Location *time.Location

	Starter Starter
	Logger  *zap.Logger
	NowFunc func() time.Time
}

// Fire describes one scheduled start.
type Fire struct {
	// At is when the schedule fired.
	At time.Time

	// End is the requested end of the run.
	End time.Time

	// Started is false when a run was already going.
	Started bool
}

// FireListener is told about each scheduled start.
type FireListener interface {
	OnFire(Fire)
}

// FireListenerFunc is a function that implements FireListener.
type FireListenerFunc func(Fire)

func (f FireListenerFunc) OnFire(e Fire) {
	f(e)
}

// CancelFunc removes a listener.
type CancelFunc func()

// Trigger starts runs on a cron schedule.
type Trigger struct {
	cfg       Config
	cron      *cron.Cron
	listeners eventor.Eventor[FireListener]
}

// New creates a Trigger.  A Trigger with an empty Spec is valid and never
// fires.
func New(cfg Config) (*Trigger, error) {
	if cfg.Starter == nil {
		return nil, fmt.Errorf("%w: starter is missing", ErrInvalidInput)
	}
	if cfg.RunFor <= 0 {
		return nil, fmt.Errorf("%w: run duration must be positive", ErrInvalidInput)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.NowFunc == nil {
		cfg.NowFunc = time.Now
	}

	t := Trigger{
		cfg: cfg,
		cron: cron.New(
			cron.WithLocation(cfg.Location),
			cron.WithLogger(logger{l: cfg.Logger.Sugar()}),
		),
	}

	if cfg.Spec == "" {
		return &t, nil
	}

	if _, err := t.cron.AddFunc(cfg.Spec, t.fire); err != nil {
		return nil, errors.Join(err, ErrInvalidInput)
	}

	return &t, nil
}

// AddFireListener adds a listener for scheduled starts.
func (t *Trigger) AddFireListener(l FireListener) CancelFunc {
	return CancelFunc(t.listeners.Add(l))
}

// Enabled reports whether the Trigger has a schedule.
func (t *Trigger) Enabled() bool {
	return t.cfg.Spec != ""
}

// Next returns the next time the Trigger fires, or the zero time if it is
// disabled or not started.
func (t *Trigger) Next() time.Time {
	entries := t.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// Start begins watching the clock.
func (t *Trigger) Start() {
	t.cron.Start()
}

// Stop stops the clock and waits for a firing in progress to finish or for
// ctx to end.
func (t *Trigger) Stop(ctx context.Context) error {
	select {
	case <-t.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Trigger) fire() {
	now := t.cfg.NowFunc()
	f := Fire{
		At:  now,
		End: now.Add(t.cfg.RunFor),
	}
	f.Started = t.cfg.Starter.Start(f.End)

	t.listeners.Visit(func(l FireListener) {
		l.OnFire(f)
	})
}

// logger feeds the cron library's messages into zap.
type logger struct {
	l *zap.SugaredLogger
}

var _ cron.Logger = logger{}

func (l logger) Info(msg string, keysAndValues ...any) {
	l.l.Debugw(msg, keysAndValues...)
}

func (l logger) Error(err error, msg string, keysAndValues ...any) {
	l.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
