// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/xmidt-org/eventor"
)

var (
	ErrInvalidInput = fmt.Errorf("invalid input")

	// ErrDelivery is returned when a message could not be handed to the
	// messaging platform.
	ErrDelivery = fmt.Errorf("delivery failed")
)

// Payloads carried by the quick replies.  The webhook reacts to them.
const (
	PayloadStop = "STOP"
	PayloadScan = "SCAN"
)

// QuickReply is a button offered to the recipient below a message.
type QuickReply struct {
	ContentType string `json:"content_type"`
	Title       string `json:"title"`
	Payload     string `json:"payload"`
}

var (
	StopReply = QuickReply{ContentType: "text", Title: "Stop", Payload: PayloadStop}
	ScanReply = QuickReply{ContentType: "text", Title: "Scan", Payload: PayloadScan}
)

// Message is the content sent to the recipient.
type Message struct {
	Text         string       `json:"text"`
	QuickReplies []QuickReply `json:"quick_replies,omitempty"`
}

type recipient struct {
	ID string `json:"id"`
}

type sendRequest struct {
	Recipient recipient `json:"recipient"`
	Message   Message   `json:"message"`
}

// Messenger sends messages through the messaging platform's send API.
type Messenger struct {
	url               string
	profileToken      string
	client            *http.Client
	deliveryListeners eventor.Eventor[DeliveryListener]
}

// Option is the interface implemented by types that can be used to
// configure the messenger.
type Option interface {
	apply(*Messenger) error
}

// New creates a new messenger.
func New(opts ...Option) (*Messenger, error) {
	m := Messenger{
		client: http.DefaultClient,
	}

	opts = append(opts, validateURL(), validateProfileToken())

	for _, opt := range opts {
		if opt != nil {
			if err := opt.apply(&m); err != nil {
				return nil, err
			}
		}
	}

	return &m, nil
}

// Send delivers the message to the recipient.  Only the delivery outcome is
// reported; callers decide whether a failure matters.
func (m *Messenger) Send(ctx context.Context, recipientID string, msg Message) error {
	d := Delivery{
		Recipient: recipientID,
		Text:      msg.Text,
		At:        time.Now(),
	}

	d.Err = m.send(ctx, recipientID, msg, &d)
	d.Duration = time.Since(d.At)

	m.deliveryListeners.Visit(func(l DeliveryListener) {
		l.OnDelivery(d)
	})

	return d.Err
}

func (m *Messenger) send(ctx context.Context, recipientID string, msg Message, d *Delivery) error {
	if recipientID == "" {
		return fmt.Errorf("%w: %w recipient is missing", ErrDelivery, ErrInvalidInput)
	}

	body, err := json.Marshal(sendRequest{
		Recipient: recipient{ID: recipientID},
		Message:   msg,
	})
	if err != nil {
		return errors.Join(err, ErrDelivery)
	}

	u, err := url.Parse(m.url)
	if err != nil {
		return errors.Join(err, ErrDelivery)
	}
	q := u.Query()
	q.Set("access_token", m.profileToken)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return errors.Join(err, ErrDelivery)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return errors.Join(err, ErrDelivery)
	}
	defer resp.Body.Close()

	d.StatusCode = resp.StatusCode
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		return fmt.Errorf("%w: status %d: %s", ErrDelivery, resp.StatusCode, strings.TrimSpace(string(b)))
	}

	return nil
}
