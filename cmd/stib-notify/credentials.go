// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"time"

	"github.com/darwinstop/stib-notify/internal/credentials"
	"github.com/darwinstop/stib-notify/internal/credentials/event"
	"github.com/darwinstop/stib-notify/internal/transit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// exchanger obtains a new access token.
type exchanger interface {
	ExchangeToken(context.Context) (transit.Grant, error)
}

type credsIn struct {
	fx.In
	Creds    Credentials
	Exchange *transit.Client
	Logger   *zap.Logger
}

func (in credsIn) Options() []credentials.Option {
	return credsOptions(in.Creds, in.Exchange, in.Logger)
}

func credsOptions(creds Credentials, ex exchanger, logger *zap.Logger) []credentials.Option {
	logger = logger.Named("credentials")

	return []credentials.Option{
		credentials.Exchange(
			func(ctx context.Context) (string, time.Duration, error) {
				g, err := ex.ExchangeToken(ctx)
				return g.AccessToken, g.ExpiresIn, err
			}),
		credentials.AssumedLifetime(creds.AssumedLifetime),
		credentials.AddFetchListener(event.FetchListenerFunc(
			func(e event.Fetch) {
				if e.Err != nil {
					logger.Warn("fetch",
						zap.Time("at", e.At),
						zap.Duration("duration", e.Duration),
						zap.String("uuid", e.UUID.String()),
						zap.Error(e.Err),
					)
					return
				}
				logger.Debug("fetch",
					zap.Time("at", e.At),
					zap.Duration("duration", e.Duration),
					zap.String("uuid", e.UUID.String()),
					zap.Time("expiration", e.Expiration),
				)
			})),
	}
}

func provideCredentials(in credsIn) (*credentials.Cache, error) {
	return credentials.New(in.Options()...)
}
