// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package credentials

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/darwinstop/stib-notify/internal/credentials/event"
	"github.com/google/uuid"
	"github.com/xmidt-org/eventor"
)

var (
	ErrInvalidInput      = fmt.Errorf("invalid input")
	ErrFetchNotAttempted = fmt.Errorf("fetch not attempted")
	ErrFetchFailed       = fmt.Errorf("fetch failed")
)

// ExchangeFunc trades the configured client credentials for a fresh access
// token.  The returned lifetime is relative to the moment the call returns.
type ExchangeFunc func(context.Context) (accessToken string, expiresIn time.Duration, err error)

// Token is an access token and the instant it stops being valid.
type Token struct {
	AccessToken string
	ExpiresAt   time.Time
}

// ValidAt reports whether the token can still be used at the given instant.
func (t Token) ValidAt(now time.Time) bool {
	return t.AccessToken != "" && now.Before(t.ExpiresAt)
}

/*
Notes:
  - The cache never refreshes in the background.  A refresh only happens when
    Token() is called and the held token is missing or expired.
  - Refreshes are serialized under the cache lock, so concurrent callers never
    trigger two exchanges at once.
  - The exchange timeout is set via the http.Client used by the exchanger.
*/
type Cache struct {
	m               sync.Mutex
	exchange        ExchangeFunc
	nowFunc         func() time.Time
	assumedLifetime time.Duration
	fetchListeners  eventor.Eventor[event.FetchListener]

	token *Token
}

// Option is the interface implemented by types that can be used to
// configure the credentials cache.
type Option interface {
	apply(*Cache) error
}

// New creates a new credentials cache.
func New(opts ...Option) (*Cache, error) {
	required := []Option{
		exchangeVador(),
	}

	c := Cache{
		nowFunc: time.Now,
	}

	opts = append(opts, required...)

	for _, opt := range opts {
		if opt == nil {
			continue
		}

		err := opt.apply(&c)
		if err != nil {
			return nil, err
		}
	}

	return &c, nil
}

// Token returns a valid token, exchanging the credentials for a new one only
// when no token is held or the held one has expired.
func (c *Cache) Token(ctx context.Context) (Token, error) {
	c.m.Lock()
	defer c.m.Unlock()

	if c.token != nil && c.token.ValidAt(c.nowFunc()) {
		return *c.token, nil
	}

	token, err := c.fetch(ctx)
	if err != nil {
		return Token{}, err
	}

	c.token = token
	return *token, nil
}

// Invalidate drops the held token so the next call to Token() refreshes it.
func (c *Cache) Invalidate() {
	c.m.Lock()
	c.token = nil
	c.m.Unlock()
}

// fetch performs the exchange.  The caller must hold the lock.
func (c *Cache) fetch(ctx context.Context) (*Token, error) {
	var fe event.Fetch

	tid, err := uuid.NewRandom()
	if err != nil {
		fe.Err = errors.Join(err, ErrFetchNotAttempted)
		return nil, c.dispatch(fe)
	}
	fe.UUID = tid

	fe.At = c.nowFunc()
	access, expiresIn, err := c.exchange(ctx)
	fe.Duration = c.nowFunc().Sub(fe.At)
	if err != nil {
		fe.Err = errors.Join(err, ErrFetchFailed)
		return nil, c.dispatch(fe)
	}

	if expiresIn <= 0 {
		expiresIn = c.assumedLifetime
	}

	token := Token{
		AccessToken: access,
		ExpiresAt:   c.nowFunc().Add(expiresIn),
	}
	fe.Expiration = token.ExpiresAt

	return &token, c.dispatch(fe)
}

// dispatch dispatches the event to the listeners and returns the error that
// should be returned by the caller.
func (c *Cache) dispatch(evnt any) error {
	switch evnt := evnt.(type) {
	case event.Fetch:
		c.fetchListeners.Visit(func(listener event.FetchListener) {
			listener.OnFetch(evnt)
		})
		return evnt.Err
	}

	panic("unknown event type")
}
