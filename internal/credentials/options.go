// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package credentials

import (
	"time"

	"github.com/darwinstop/stib-notify/internal/credentials/event"
)

type optionFunc func(*Cache) error

var _ Option = optionFunc(nil)

func (f optionFunc) apply(c *Cache) error {
	return f(c)
}

type nilOptionFunc func(*Cache)

var _ Option = nilOptionFunc(nil)

func (f nilOptionFunc) apply(c *Cache) error {
	f(c)
	return nil
}

// Exchange is the function used to obtain a new access token.
func Exchange(fn ExchangeFunc) Option {
	return nilOptionFunc(
		func(c *Cache) {
			c.exchange = fn
		})
}

// AssumedLifetime is the lifetime of a token that is assumed if the token
// endpoint does not return a positive lifetime.  A value of zero means the
// token is only used once.  The default is zero.
func AssumedLifetime(lifetime time.Duration) Option {
	return optionFunc(
		func(c *Cache) error {
			if lifetime < 0 {
				return ErrInvalidInput
			}
			c.assumedLifetime = lifetime
			return nil
		})
}

// NowFunc is the function used to obtain the current time.
func NowFunc(nowFunc func() time.Time) Option {
	return nilOptionFunc(
		func(c *Cache) {
			if nowFunc == nil {
				nowFunc = time.Now
			}
			c.nowFunc = nowFunc
		})
}

// AddFetchListener adds a listener for fetch events.  If the optional cancel
// parameter is provided, it is set to a function that can be used to cancel
// the listener.
func AddFetchListener(listener event.FetchListener, cancel ...*event.CancelListenerFunc) Option {
	return nilOptionFunc(
		func(c *Cache) {
			cncl := c.fetchListeners.Add(listener)
			if len(cancel) > 0 && cancel[0] != nil {
				*cancel[0] = event.CancelListenerFunc(cncl)
			}
		})
}
