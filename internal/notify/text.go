// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package notify

import (
	"fmt"
	"time"

	"github.com/darwinstop/stib-notify/internal/arrival"
	"github.com/darwinstop/stib-notify/internal/transit"
)

// Urgent builds the message sent when the next vehicle is close.
func Urgent(a arrival.Assessment) Message {
	text := fmt.Sprintf("%s is arriving in %s.", describe(a.Next), minutes(a.NextMinutes))
	if a.NextMinutes <= 0 {
		text = fmt.Sprintf("%s is approaching now!", describe(a.Next))
	}
	return Message{
		Text:         text,
		QuickReplies: []QuickReply{StopReply},
	}
}

// Info builds the periodic message sent when nothing is imminent.
func Info(a arrival.Assessment) Message {
	text := fmt.Sprintf("Next: %s in %s.", describe(a.Next), minutes(a.NextMinutes))
	if a.Upcoming != nil {
		text += fmt.Sprintf(" Then: %s in %s.", describe(*a.Upcoming), minutes(a.UpcomingMinutes))
	}
	return Message{Text: text}
}

// Started confirms a new monitoring session.
func Started(stopID string, end time.Time) Message {
	return Message{
		Text:         fmt.Sprintf("Watching stop %s until %s.", stopID, end.Format("15:04")),
		QuickReplies: []QuickReply{StopReply},
	}
}

// AlreadyRunning answers a start request while a session is active.
func AlreadyRunning() Message {
	return Message{
		Text:         "Already running.",
		QuickReplies: []QuickReply{StopReply},
	}
}

// Finished closes a session and offers to start a new one.
func Finished() Message {
	return Message{
		Text:         "Monitoring stopped.",
		QuickReplies: []QuickReply{ScanReply},
	}
}

// Greeting is the generic reply to free text.
func Greeting() Message {
	return Message{
		Text:         "Hello! Tap Scan to watch your stop.",
		QuickReplies: []QuickReply{ScanReply, StopReply},
	}
}

func describe(p transit.Passage) string {
	if p.Destination == "" {
		return fmt.Sprintf("Line %s", p.LineID)
	}
	return fmt.Sprintf("Line %s to %s", p.LineID, p.Destination)
}

func minutes(n int) string {
	if n == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", n)
}
