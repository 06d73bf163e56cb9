// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"time"

	"github.com/google/uuid"
)

// CancelListenerFunc is the interface that provides a method to cancel
// a listener.
type CancelListenerFunc func()

// Fetch is the event that is sent when a token exchange is attempted.
type Fetch struct {
	// At holds the time when the exchange request was made.
	At time.Time

	// Duration is the time waited for the token.
	Duration time.Duration

	// UUID identifies the exchange attempt in the logs.
	UUID uuid.UUID

	// Expiration is the time the new token expires.
	Expiration time.Time

	// Err is the error returned from the token endpoint, if any.
	Err error
}

// FetchListener is the interface that must be implemented by types that
// want to receive Fetch notifications.
type FetchListener interface {
	OnFetch(Fetch)
}

// FetchListenerFunc is a function type that implements FetchListener.
// It can be used as an adapter for functions that need to implement the
// FetchListener interface.
type FetchListenerFunc func(Fetch)

func (f FetchListenerFunc) OnFetch(e Fetch) {
	f(e)
}
