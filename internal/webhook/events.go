// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package webhook

import (
	"strings"

	"github.com/darwinstop/stib-notify/internal/notify"
)

// Event is one inbound message or postback.
type Event struct {
	SenderID string
	IsEcho   bool
	Text     string

	// Payload is the quick reply or postback payload, if any.
	Payload string
}

// Action is what the handler does with an event.
type Action string

const (
	Ignore    Action = "ignore"
	Rejected  Action = "rejected"
	StartLoop Action = "start"
	StopLoop  Action = "stop"
	Greet     Action = "greet"
)

// Action classifies the event.  Echoes of our own messages are ignored.
func (e Event) Action() Action {
	if e.IsEcho {
		return Ignore
	}

	switch strings.ToUpper(strings.TrimSpace(e.Payload)) {
	case notify.PayloadScan:
		return StartLoop
	case notify.PayloadStop:
		return StopLoop
	}

	if strings.TrimSpace(e.Text) != "" {
		return Greet
	}

	return Ignore
}

// CancelFunc removes the associated listener.
type CancelFunc func()

// Inbound is the event sent to listeners once an inbound event is handled.
type Inbound struct {
	Event  Event
	Action Action

	// Started is set when a StartLoop action actually started a run.
	Started bool

	// Err is the reply delivery error, if any.
	Err error
}

// InboundListener is the interface that must be implemented by types that
// want to receive Inbound notifications.
type InboundListener interface {
	OnInbound(Inbound)
}

// InboundListenerFunc is a function type that implements InboundListener.
type InboundListenerFunc func(Inbound)

func (f InboundListenerFunc) OnInbound(i Inbound) {
	f(i)
}
