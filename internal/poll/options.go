// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package poll

import (
	"fmt"
	"time"

	"github.com/darwinstop/stib-notify/internal/poll/event"
)

type optionFunc func(*Loop) error

func (f optionFunc) apply(l *Loop) error {
	return f(l)
}

// Tokens is the source of access tokens.
func Tokens(tokens TokenSource) Option {
	return optionFunc(
		func(l *Loop) error {
			l.tokens = tokens
			return nil
		})
}

// Passages is the source of passing times.
func Passages(passages PassageSource) Option {
	return optionFunc(
		func(l *Loop) error {
			l.passages = passages
			return nil
		})
}

// WithNotifier sets the notifier used to reach the recipient.
func WithNotifier(n Notifier) Option {
	return optionFunc(
		func(l *Loop) error {
			l.notifier = n
			return nil
		})
}

// StopID is the transit stop that is watched.
func StopID(id string) Option {
	return optionFunc(
		func(l *Loop) error {
			l.stopID = id
			return nil
		})
}

// Recipient is the id of the single recipient of the notifications.
func Recipient(id string) Option {
	return optionFunc(
		func(l *Loop) error {
			l.recipient = id
			return nil
		})
}

// Threshold is the number of minutes at or below which an arrival is urgent.
func Threshold(minutes int) Option {
	return optionFunc(
		func(l *Loop) error {
			if minutes < 0 {
				return fmt.Errorf("%w: negative threshold", ErrInvalidInput)
			}
			l.threshold = minutes
			return nil
		})
}

// Delay is the pause between two iterations.  Zero keeps the default.
func Delay(d time.Duration) Option {
	return optionFunc(
		func(l *Loop) error {
			if d < 0 {
				return fmt.Errorf("%w: negative delay", ErrInvalidInput)
			}
			if d > 0 {
				l.delay = d
			}
			return nil
		})
}

// CallTimeout bounds each network call made by the loop.  Zero keeps the
// default.
func CallTimeout(d time.Duration) Option {
	return optionFunc(
		func(l *Loop) error {
			if d < 0 {
				return fmt.Errorf("%w: negative call timeout", ErrInvalidInput)
			}
			if d > 0 {
				l.callTimeout = d
			}
			return nil
		})
}

// Announce sends a message on every iteration, not only when the arrival is
// imminent.
func Announce(announce bool) Option {
	return optionFunc(
		func(l *Loop) error {
			l.announce = announce
			return nil
		})
}

// NowFunc is the function used to obtain the current time.
func NowFunc(f func() time.Time) Option {
	return optionFunc(
		func(l *Loop) error {
			if f == nil {
				f = time.Now
			}
			l.nowFunc = f
			return nil
		})
}

// AddCycleListener adds a listener for cycle events.  If the optional cancel
// parameter is provided, it is set to a function that can be used to cancel
// the listener.
func AddCycleListener(listener event.CycleListener, cancel ...*event.CancelFunc) Option {
	return optionFunc(
		func(l *Loop) error {
			cncl := l.cycleListeners.Add(listener)
			if len(cancel) > 0 && cancel[0] != nil {
				*cancel[0] = event.CancelFunc(cncl)
			}
			return nil
		})
}

// AddSessionListener adds a listener for session events.  If the optional
// cancel parameter is provided, it is set to a function that can be used to
// cancel the listener.
func AddSessionListener(listener event.SessionListener, cancel ...*event.CancelFunc) Option {
	return optionFunc(
		func(l *Loop) error {
			cncl := l.sessionListeners.Add(listener)
			if len(cancel) > 0 && cancel[0] != nil {
				*cancel[0] = event.CancelFunc(cncl)
			}
			return nil
		})
}

func validateTokens() Option {
	return optionFunc(
		func(l *Loop) error {
			if l.tokens == nil {
				return fmt.Errorf("%w: nil token source", ErrInvalidInput)
			}
			return nil
		})
}

func validatePassages() Option {
	return optionFunc(
		func(l *Loop) error {
			if l.passages == nil {
				return fmt.Errorf("%w: nil passage source", ErrInvalidInput)
			}
			return nil
		})
}

func validateNotifier() Option {
	return optionFunc(
		func(l *Loop) error {
			if l.notifier == nil {
				return fmt.Errorf("%w: nil notifier", ErrInvalidInput)
			}
			return nil
		})
}

func validateStopID() Option {
	return optionFunc(
		func(l *Loop) error {
			if l.stopID == "" {
				return fmt.Errorf("%w: stop id is missing", ErrInvalidInput)
			}
			return nil
		})
}

func validateRecipient() Option {
	return optionFunc(
		func(l *Loop) error {
			if l.recipient == "" {
				return fmt.Errorf("%w: recipient is missing", ErrInvalidInput)
			}
			return nil
		})
}
