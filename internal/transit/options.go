// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package transit

import (
	"fmt"
	"net/http"
)

type optionFunc func(*Client) error

var _ Option = optionFunc(nil)

func (f optionFunc) apply(c *Client) error {
	return f(c)
}

type nilOptionFunc func(*Client)

var _ Option = nilOptionFunc(nil)

func (f nilOptionFunc) apply(c *Client) error {
	f(c)
	return nil
}

// URL is the base URL of the transit API.  An empty value keeps the default.
func URL(url string) Option {
	return nilOptionFunc(
		func(c *Client) {
			if url != "" {
				c.url = url
			}
		})
}

// ConsumerKey is the key half of the client credentials.
func ConsumerKey(key string) Option {
	return nilOptionFunc(
		func(c *Client) {
			c.key = key
		})
}

// ConsumerSecret is the secret half of the client credentials.
func ConsumerSecret(secret string) Option {
	return nilOptionFunc(
		func(c *Client) {
			c.secret = secret
		})
}

// Language selects which translation of destination names is used.  An
// empty value keeps the default.
func Language(lang string) Option {
	return nilOptionFunc(
		func(c *Client) {
			if lang != "" {
				c.language = lang
			}
		})
}

// HTTPClient is the HTTP client used for every request.  The client's timeout
// bounds each individual call.
func HTTPClient(client *http.Client) Option {
	return nilOptionFunc(
		func(c *Client) {
			if client == nil {
				client = http.DefaultClient
			}
			c.client = client
		})
}

func urlVador() Option {
	return optionFunc(
		func(c *Client) error {
			if c.url == "" {
				return fmt.Errorf("%w URL is missing", ErrInvalidInput)
			}
			return nil
		})
}

func consumerVador() Option {
	return optionFunc(
		func(c *Client) error {
			if c.key == "" || c.secret == "" {
				return fmt.Errorf("%w consumer key and secret are required", ErrInvalidInput)
			}
			return nil
		})
}
