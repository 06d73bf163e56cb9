// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/darwinstop/stib-notify/internal/credentials"
	"github.com/darwinstop/stib-notify/internal/notify"
	"github.com/darwinstop/stib-notify/internal/poll"
	"github.com/darwinstop/stib-notify/internal/poll/event"
	"github.com/darwinstop/stib-notify/internal/transit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type loopIn struct {
	fx.In
	Poll      Poll
	Tokens    *credentials.Cache
	Passages  *transit.Client
	Messenger *notify.Messenger
	Logger    *zap.Logger
}

func (in loopIn) Options() []poll.Option {
	return loopOptions(in.Poll, in.Logger,
		poll.Tokens(in.Tokens),
		poll.Passages(in.Passages),
		poll.WithNotifier(in.Messenger),
	)
}

func loopOptions(cfg Poll, logger *zap.Logger, sources ...poll.Option) []poll.Option {
	logger = logger.Named("poll")

	opts := append(sources,
		poll.StopID(cfg.StopID),
		poll.Recipient(cfg.RecipientID),
		poll.Threshold(cfg.Threshold),
		poll.Delay(cfg.Delay),
		poll.CallTimeout(cfg.CallTimeout),
		poll.Announce(cfg.Announce),
		poll.AddCycleListener(event.CycleListenerFunc(
			func(c event.Cycle) {
				if c.Err != nil {
					logger.Warn("cycle failed",
						zap.String("session", c.Session.String()),
						zap.Duration("duration", c.Duration),
						zap.Error(c.Err),
					)
					return
				}
				logger.Debug("cycle",
					zap.String("session", c.Session.String()),
					zap.Duration("duration", c.Duration),
					zap.Int("passages", c.Passages),
					zap.String("line", c.Line),
					zap.String("destination", c.Destination),
					zap.Int("minutes", c.Minutes),
					zap.Int("upcoming_minutes", c.UpcomingMinutes),
					zap.Bool("urgent", c.Urgent),
					zap.Bool("notified", c.Notified),
				)
			})),
		poll.AddSessionListener(event.SessionListenerFunc(
			func(s event.Session) {
				logger.Info("run finished",
					zap.String("session", s.ID.String()),
					zap.Time("started", s.Started),
					zap.Time("finished", s.Finished),
					zap.Time("end", s.End),
					zap.Int("cycles", s.Cycles),
					zap.String("reason", string(s.Reason)),
					zap.Error(s.Err),
				)
			})),
	)

	return opts
}

func provideLoop(in loopIn) (*poll.Loop, error) {
	return poll.New(in.Options()...)
}
