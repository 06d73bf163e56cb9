// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"time"

	"github.com/darwinstop/stib-notify/internal/poll"
	"github.com/darwinstop/stib-notify/internal/schedule"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type scheduleIn struct {
	fx.In
	Schedule Schedule
	Poll     Poll
	Loop     *poll.Loop
	Logger   *zap.Logger
}

func provideSchedule(in scheduleIn) (*schedule.Trigger, error) {
	logger := in.Logger.Named("schedule")

	runFor := in.Schedule.RunFor
	if runFor <= 0 {
		runFor = in.Poll.RunFor
	}
	if runFor <= 0 {
		runFor = time.Hour
	}

	var loc *time.Location
	if in.Schedule.Location != "" {
		var err error
		loc, err = time.LoadLocation(in.Schedule.Location)
		if err != nil {
			return nil, err
		}
	}

	t, err := schedule.New(schedule.Config{
		Spec:     in.Schedule.Cron,
		RunFor:   runFor,
		Location: loc,
		Starter:  in.Loop,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}

	if !t.Enabled() {
		logger.Debug("no schedule configured")
		return t, nil
	}

	t.AddFireListener(schedule.FireListenerFunc(
		func(f schedule.Fire) {
			logger.Info("scheduled run",
				zap.Time("at", f.At),
				zap.Time("end", f.End),
				zap.Bool("started", f.Started),
			)
		}))

	return t, nil
}
