// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package notify

import "time"

// CancelListenerFunc removes the associated listener.
type CancelListenerFunc func()

// Delivery is the event that is sent after each attempt to send a message.
type Delivery struct {
	Recipient  string
	Text       string
	At         time.Time
	Duration   time.Duration
	StatusCode int
	Err        error
}

// DeliveryListener is the interface that must be implemented by types that
// want to receive Delivery notifications.
type DeliveryListener interface {
	OnDelivery(Delivery)
}

// DeliveryListenerFunc is a function type that implements DeliveryListener.
type DeliveryListenerFunc func(Delivery)

func (f DeliveryListenerFunc) OnDelivery(d Delivery) {
	f(d)
}
