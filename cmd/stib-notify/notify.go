// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/darwinstop/stib-notify/internal/notify"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type messengerIn struct {
	fx.In
	Messenger Messenger
	Logger    *zap.Logger
}

func (in messengerIn) Options() ([]notify.Option, error) {
	logger := in.Logger.Named("messenger")

	client, err := in.Messenger.HTTPClient.NewClient()
	if err != nil {
		return nil, err
	}

	return []notify.Option{
		notify.URL(in.Messenger.URL),
		notify.ProfileToken(in.Messenger.ProfileToken),
		notify.HTTPClient(client),
		notify.AddDeliveryListener(notify.DeliveryListenerFunc(
			func(d notify.Delivery) {
				fields := []zap.Field{
					zap.String("recipient", d.Recipient),
					zap.String("text", d.Text),
					zap.Time("at", d.At),
					zap.Duration("duration", d.Duration),
					zap.Int("status_code", d.StatusCode),
				}
				if d.Err != nil {
					logger.Warn("delivery failed", append(fields, zap.Error(d.Err))...)
					return
				}
				logger.Info("delivered", fields...)
			})),
	}, nil
}

func provideMessenger(in messengerIn) (*notify.Messenger, error) {
	opts, err := in.Options()
	if err != nil {
		return nil, err
	}

	return notify.New(opts...)
}
