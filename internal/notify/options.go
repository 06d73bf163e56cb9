// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package notify

import (
	"fmt"
	"net/http"
	"net/url"
)

type optionFunc func(*Messenger) error

func (f optionFunc) apply(m *Messenger) error {
	return f(m)
}

// URL is the send API endpoint.
func URL(endpoint string) Option {
	return optionFunc(
		func(m *Messenger) error {
			m.url = endpoint
			return nil
		})
}

// ProfileToken is the page access token passed as the access_token query
// parameter.
func ProfileToken(token string) Option {
	return optionFunc(
		func(m *Messenger) error {
			m.profileToken = token
			return nil
		})
}

// HTTPClient is the HTTP client used to deliver messages.
func HTTPClient(client *http.Client) Option {
	return optionFunc(
		func(m *Messenger) error {
			if client == nil {
				client = http.DefaultClient
			}
			m.client = client
			return nil
		})
}

// AddDeliveryListener adds a listener for delivery events.  If the optional
// cancel parameter is provided, it is set to a function that can be used to
// cancel the listener.
func AddDeliveryListener(listener DeliveryListener, cancel ...*CancelListenerFunc) Option {
	return optionFunc(
		func(m *Messenger) error {
			cncl := m.deliveryListeners.Add(listener)
			if len(cancel) > 0 && cancel[0] != nil {
				*cancel[0] = CancelListenerFunc(cncl)
			}
			return nil
		})
}

func validateURL() Option {
	return optionFunc(
		func(m *Messenger) error {
			if m.url == "" {
				return fmt.Errorf("%w: url is missing", ErrInvalidInput)
			}
			if _, err := url.Parse(m.url); err != nil {
				return fmt.Errorf("%w: %w", ErrInvalidInput, err)
			}
			return nil
		})
}

func validateProfileToken() Option {
	return optionFunc(
		func(m *Messenger) error {
			if m.profileToken == "" {
				return fmt.Errorf("%w: profile token is missing", ErrInvalidInput)
			}
			return nil
		})
}
