// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package transit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	ErrInvalidInput = fmt.Errorf("invalid input")

	// ErrAuth is returned when the token exchange fails.
	ErrAuth = fmt.Errorf("token exchange failed")

	// ErrMissingToken is returned when the token endpoint answers 200 without
	// an access token.
	ErrMissingToken = fmt.Errorf("no access token in response")

	// ErrTransport is returned when the passing time query fails.
	ErrTransport = fmt.Errorf("passing time request failed")

	// ErrUnauthorized is joined with ErrTransport when the passing time
	// endpoint rejects the token.
	ErrUnauthorized = fmt.Errorf("unauthorized")
)

const (
	DefaultURL      = "https://opendata-api.stib-mivb.be"
	DefaultLanguage = "fr"

	tokenPath       = "token"
	passingTimePath = "OperationMonitoring/3.0/PassingTimeByPoint"
)

// Grant is the result of a client credentials exchange.
type Grant struct {
	AccessToken string
	ExpiresIn   time.Duration
}

// Passage is one predicted vehicle arrival at a stop.
type Passage struct {
	Destination     string
	LineID          string
	ExpectedArrival time.Time
	Message         string
}

// Client talks to the transit operator's open data API.
type Client struct {
	url      string
	key      string
	secret   string
	language string
	client   *http.Client
}

// Option is the interface implemented by types that can be used to
// configure the client.
type Option interface {
	apply(*Client) error
}

// New creates a new transit API client.
func New(opts ...Option) (*Client, error) {
	required := []Option{
		urlVador(),
		consumerVador(),
	}

	c := Client{
		url:      DefaultURL,
		language: DefaultLanguage,
		client:   http.DefaultClient,
	}

	opts = append(opts, required...)

	for _, opt := range opts {
		if opt == nil {
			continue
		}

		if err := opt.apply(&c); err != nil {
			return nil, err
		}
	}

	return &c, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// ExchangeToken performs the OAuth2 client credentials grant.  The
// expires_in field is interpreted as seconds.
func (c *Client) ExchangeToken(ctx context.Context) (Grant, error) {
	endpoint, err := url.JoinPath(c.url, tokenPath)
	if err != nil {
		return Grant{}, errors.Join(err, ErrAuth)
	}

	form := url.Values{"grant_type": {"client_credentials"}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form))
	if err != nil {
		return Grant{}, errors.Join(err, ErrAuth)
	}

	// SetBasicAuth encodes base64(key:secret).
	req.SetBasicAuth(c.key, c.secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Grant{}, errors.Join(err, ErrAuth)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Grant{}, fmt.Errorf("%w: unexpected status %d", ErrAuth, resp.StatusCode)
	}

	var body tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		return Grant{}, errors.Join(err, ErrAuth)
	}

	if body.AccessToken == "" {
		return Grant{}, ErrMissingToken
	}

	return Grant{
		AccessToken: body.AccessToken,
		ExpiresIn:   time.Duration(body.ExpiresIn) * time.Second,
	}, nil
}

type passingTimeResponse struct {
	Points []struct {
		PointID      string `json:"pointId"`
		PassingTimes []struct {
			Destination         map[string]string `json:"destination"`
			LineID              string            `json:"lineId"`
			ExpectedArrivalTime time.Time         `json:"expectedArrivalTime"`
			Message             map[string]string `json:"message"`
		} `json:"passingTimes"`
	} `json:"points"`
}

// PassingTimes returns the upcoming passages at the stop in the order given
// by the API, which is earliest first.  An empty slice is a valid answer.
func (c *Client) PassingTimes(ctx context.Context, token, stopID string) ([]Passage, error) {
	if stopID == "" {
		return nil, fmt.Errorf("%w: %w stop id is missing", ErrTransport, ErrInvalidInput)
	}

	endpoint, err := url.JoinPath(c.url, passingTimePath, stopID)
	if err != nil {
		return nil, errors.Join(err, ErrTransport)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Join(err, ErrTransport)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Join(err, ErrTransport)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return nil, errors.Join(ErrUnauthorized, ErrTransport)
	default:
		return nil, fmt.Errorf("%w: unexpected status %d", ErrTransport, resp.StatusCode)
	}

	var body passingTimeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, errors.Join(err, ErrTransport)
	}

	if len(body.Points) == 0 {
		return []Passage{}, nil
	}

	times := body.Points[0].PassingTimes
	passages := make([]Passage, 0, len(times))
	for _, pt := range times {
		passages = append(passages, Passage{
			Destination:     c.localized(pt.Destination),
			LineID:          pt.LineID,
			ExpectedArrival: pt.ExpectedArrivalTime,
			Message:         c.localized(pt.Message),
		})
	}

	return passages, nil
}

// localized picks the configured language, then any language in a stable
// order.
func (c *Client) localized(names map[string]string) string {
	if name, ok := names[c.language]; ok && name != "" {
		return name
	}
	for _, lang := range []string{"fr", "nl", "en"} {
		if name := names[lang]; name != "" {
			return name
		}
	}
	return ""
}
