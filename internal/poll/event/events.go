// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CancelFunc is the interface that provides a method to cancel a listener.
type CancelFunc func()

// Reason describes why a session ended.
type Reason string

const (
	Expired  Reason = "expired"
	Stopped  Reason = "stopped"
	Failed   Reason = "failed"
	Shutdown Reason = "shutdown"
)

// Cycle is the event sent after each fetch-evaluate-notify iteration.
type Cycle struct {
	// Session identifies the run the cycle belongs to.
	Session uuid.UUID

	// At holds the time when the cycle started.
	At time.Time

	// Duration is the time spent on the network calls and evaluation.
	Duration time.Duration

	// Passages is the number of passages returned by the API.
	Passages int

	// Line, Destination and Minutes describe the next passage.
	Line        string
	Destination string
	Minutes     int

	// UpcomingMinutes is -1 when there was no upcoming passage.
	UpcomingMinutes int

	// Urgent is set when the next passage was at or below the threshold.
	Urgent bool

	// Notified is set when a message was handed to the notifier.
	Notified bool

	// Err is the error that ended the cycle.
	Err error
}

func (c Cycle) String() string {
	var buf strings.Builder
	buf.WriteString("Cycle{\n")
	fmt.Fprintf(&buf, "  Session:  %s\n", c.Session)
	fmt.Fprintf(&buf, "  At:       %s (%s)\n", c.At.Format(time.RFC3339), c.Duration)
	fmt.Fprintf(&buf, "  Passages: %d\n", c.Passages)
	if c.Passages > 0 {
		fmt.Fprintf(&buf, "  Next:     line %s to %s in %d min\n", c.Line, c.Destination, c.Minutes)
	}
	if c.Err != nil {
		fmt.Fprintf(&buf, "  Err:      %s\n", c.Err)
	}
	buf.WriteString("}\n")
	return buf.String()
}

// CycleListener is the interface that must be implemented by types that
// want to receive Cycle notifications.
type CycleListener interface {
	OnCycle(Cycle)
}

// CycleListenerFunc is a function type that implements CycleListener.
type CycleListenerFunc func(Cycle)

func (f CycleListenerFunc) OnCycle(c Cycle) {
	f(c)
}

// Session is the event sent when a run ends.
type Session struct {
	// ID identifies the run.
	ID uuid.UUID

	// Started and Finished bound the run.
	Started  time.Time
	Finished time.Time

	// End is the deadline the run was started with.
	End time.Time

	// Cycles is the number of iterations performed.
	Cycles int

	// Reason is why the run ended.
	Reason Reason

	// Err is set when Reason is Failed.
	Err error
}

// SessionListener is the interface that must be implemented by types that
// want to receive Session notifications.
type SessionListener interface {
	OnSession(Session)
}

// SessionListenerFunc is a function type that implements SessionListener.
type SessionListenerFunc func(Session)

func (f SessionListenerFunc) OnSession(s Session) {
	f(s)
}
