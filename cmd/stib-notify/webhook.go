// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/darwinstop/stib-notify/internal/credentials"
	"github.com/darwinstop/stib-notify/internal/loglevel"
	"github.com/darwinstop/stib-notify/internal/notify"
	"github.com/darwinstop/stib-notify/internal/poll"
	"github.com/darwinstop/stib-notify/internal/transit"
	"github.com/darwinstop/stib-notify/internal/webhook"
	"github.com/gorilla/mux"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type webhookIn struct {
	fx.In
	Messenger Messenger
	Poll      Poll
	Loop      *poll.Loop
	Replier   *notify.Messenger
	Logger    *zap.Logger
}

func provideWebhook(in webhookIn) (*webhook.Handler, error) {
	logger := in.Logger.Named("webhook")

	h, err := webhook.New(webhook.Config{
		VerifyToken:  in.Messenger.VerifyToken,
		Recipient:    in.Poll.RecipientID,
		RunFor:       in.Poll.RunFor,
		ReplyTimeout: in.Messenger.ReplyTimeout,
		Loop:         in.Loop,
		Replier:      in.Replier,
	})
	if err != nil {
		return nil, err
	}

	h.AddInboundListener(webhook.InboundListenerFunc(
		func(i webhook.Inbound) {
			fields := []zap.Field{
				zap.String("sender", i.Event.SenderID),
				zap.String("action", string(i.Action)),
				zap.String("payload", i.Event.Payload),
			}
			switch {
			case i.Err != nil:
				logger.Warn("reply failed", append(fields, zap.Error(i.Err))...)
			case i.Action == webhook.Rejected:
				logger.Warn("message from unknown sender", fields...)
			case i.Action == webhook.StartLoop:
				logger.Info("inbound", append(fields, zap.Bool("started", i.Started))...)
			default:
				logger.Debug("inbound", fields...)
			}
		}))

	return h, nil
}

type statusIn struct {
	fx.In
	Status Status
	Poll   Poll
	Tokens *credentials.Cache
	Client *transit.Client
}

// provideStatus shows the watched stop when no stops are listed.
func provideStatus(in statusIn) (*webhook.Status, error) {
	stops := in.Status.Stops
	if len(stops) == 0 {
		stops = []string{in.Poll.StopID}
	}
	return webhook.NewStatus(in.Tokens, in.Client, stops)
}

type logLevelIn struct {
	fx.In
	Messenger Messenger
	Level     zap.AtomicLevel
}

func provideLogLevel(in logLevelIn) (*webhook.LogLevel, error) {
	svc, err := loglevel.New(in.Level)
	if err != nil {
		return nil, err
	}
	return webhook.NewLogLevel(svc, in.Messenger.VerifyToken)
}

type routerIn struct {
	fx.In
	Webhook  *webhook.Handler
	Status   *webhook.Status
	LogLevel *webhook.LogLevel
}

func provideRouter(in routerIn) *mux.Router {
	r := mux.NewRouter()
	in.Webhook.RegisterRoutes(r)
	in.Status.RegisterRoutes(r)
	in.LogLevel.RegisterRoutes(r)
	return r
}
