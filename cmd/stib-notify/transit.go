// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/darwinstop/stib-notify/internal/transit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type transitIn struct {
	fx.In
	Transit Transit
	Logger  *zap.Logger
}

func (in transitIn) Options() ([]transit.Option, error) {
	client, err := in.Transit.HTTPClient.NewClient()
	if err != nil {
		return nil, err
	}

	return []transit.Option{
		transit.URL(in.Transit.URL),
		transit.ConsumerKey(in.Transit.ConsumerKey),
		transit.ConsumerSecret(in.Transit.ConsumerSecret),
		transit.Language(in.Transit.Language),
		transit.HTTPClient(client),
	}, nil
}

func provideTransit(in transitIn) (*transit.Client, error) {
	opts, err := in.Options()
	if err != nil {
		return nil, err
	}

	in.Logger.Named("transit").Debug("transit api configured",
		zap.String("url", in.Transit.URL),
		zap.String("language", in.Transit.Language),
	)

	return transit.New(opts...)
}
