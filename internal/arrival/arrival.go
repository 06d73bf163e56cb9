// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package arrival

import (
	"fmt"
	"math"
	"time"

	"github.com/darwinstop/stib-notify/internal/transit"
)

var (
	ErrInsufficientData = fmt.Errorf("insufficient passage data")
)

const (
	DefaultThreshold = 4
)

// Assessment is the evaluation of one list of passages.
type Assessment struct {
	// Next is the soonest passage.
	Next transit.Passage

	// Upcoming is the passage after Next, nil if the API only returned one.
	Upcoming *transit.Passage

	// NextMinutes is the number of whole minutes until Next arrives.  It is
	// zero or negative once the vehicle is at or past the stop.
	NextMinutes int

	// UpcomingMinutes is only meaningful when Upcoming is not nil.
	UpcomingMinutes int

	// Urgent is set when NextMinutes is at or below the threshold.
	Urgent bool
}

// MinutesUntil rounds the duration from now until t to the nearest whole
// minute.  Halves round away from zero.
func MinutesUntil(now, t time.Time) int {
	return int(math.Round(t.Sub(now).Minutes()))
}

// Evaluate picks the next and upcoming passages from a list ordered earliest
// first.  At least one passage is required.
func Evaluate(passages []transit.Passage, now time.Time, threshold int) (Assessment, error) {
	if len(passages) == 0 {
		return Assessment{}, fmt.Errorf("%w: no passages", ErrInsufficientData)
	}

	a := Assessment{
		Next:        passages[0],
		NextMinutes: MinutesUntil(now, passages[0].ExpectedArrival),
	}
	a.Urgent = a.NextMinutes <= threshold

	if len(passages) > 1 {
		upcoming := passages[1]
		a.Upcoming = &upcoming
		a.UpcomingMinutes = MinutesUntil(now, upcoming.ExpectedArrival)
	}

	return a, nil
}
