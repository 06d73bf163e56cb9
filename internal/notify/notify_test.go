// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/darwinstop/stib-notify/internal/arrival"
	"github.com/darwinstop/stib-notify/internal/transit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		description string
		opts        []Option
		expectedErr error
	}{
		{
			description: "missing everything",
			expectedErr: ErrInvalidInput,
		}, {
			description: "missing profile token",
			opts:        []Option{URL("http://example.com")},
			expectedErr: ErrInvalidInput,
		}, {
			description: "invalid url",
			opts:        []Option{URL("://bad"), ProfileToken("tok")},
			expectedErr: ErrInvalidInput,
		}, {
			description: "valid",
			opts:        []Option{URL("http://example.com"), ProfileToken("tok"), HTTPClient(nil), nil},
		},
	}
	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			assert := assert.New(t)

			got, err := New(tc.opts...)
			if tc.expectedErr != nil {
				assert.ErrorIs(err, tc.expectedErr)
				assert.Nil(got)
				return
			}

			assert.NoError(err)
			assert.NotNil(got)
		})
	}
}

func TestSend(t *testing.T) {
	tests := []struct {
		description string
		recipient   string
		msg         Message
		status      int
		expectedErr error
		want        string
	}{
		{
			description: "plain text",
			recipient:   "1234",
			msg:         Message{Text: "hello"},
			status:      http.StatusOK,
			want:        `{"recipient":{"id":"1234"},"message":{"text":"hello"}}`,
		}, {
			description: "with quick replies",
			recipient:   "1234",
			msg:         Message{Text: "hello", QuickReplies: []QuickReply{StopReply, ScanReply}},
			status:      http.StatusOK,
			want: `{"recipient":{"id":"1234"},"message":{"text":"hello","quick_replies":[` +
				`{"content_type":"text","title":"Stop","payload":"STOP"},` +
				`{"content_type":"text","title":"Scan","payload":"SCAN"}]}}`,
		}, {
			description: "rejected",
			recipient:   "1234",
			msg:         Message{Text: "hello"},
			status:      http.StatusBadRequest,
			expectedErr: ErrDelivery,
		}, {
			description: "missing recipient",
			msg:         Message{Text: "hello"},
			expectedErr: ErrDelivery,
		},
	}
	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			var calls int
			server := httptest.NewServer(
				http.HandlerFunc(
					func(w http.ResponseWriter, r *http.Request) {
						defer r.Body.Close()
						calls++

						assert.Equal(http.MethodPost, r.Method)
						assert.Equal("/me/messages", r.URL.Path)
						assert.Equal("profile", r.URL.Query().Get("access_token"))
						assert.Equal("v", r.URL.Query().Get("keep"))
						assert.Equal("application/json", r.Header.Get("Content-Type"))

						var got json.RawMessage
						assert.NoError(json.NewDecoder(r.Body).Decode(&got))
						if tc.want != "" {
							assert.JSONEq(tc.want, string(got))
						}

						w.WriteHeader(tc.status)
					},
				),
			)
			defer server.Close()

			var deliveries []Delivery
			m, err := New(
				URL(server.URL+"/me/messages?keep=v"),
				ProfileToken("profile"),
				AddDeliveryListener(DeliveryListenerFunc(
					func(d Delivery) {
						deliveries = append(deliveries, d)
					})),
			)
			require.NoError(err)

			err = m.Send(context.Background(), tc.recipient, tc.msg)

			require.Len(deliveries, 1)
			assert.Equal(tc.recipient, deliveries[0].Recipient)
			assert.Equal(tc.msg.Text, deliveries[0].Text)

			if tc.expectedErr != nil {
				assert.ErrorIs(err, tc.expectedErr)
				assert.ErrorIs(deliveries[0].Err, tc.expectedErr)
				return
			}

			assert.NoError(err)
			assert.Equal(1, calls)
			assert.Equal(tc.status, deliveries[0].StatusCode)
		})
	}
}

func TestSendNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	m, err := New(URL(url), ProfileToken("profile"))
	require.NoError(t, err)

	err = m.Send(context.Background(), "1234", Message{Text: "hello"})
	assert.ErrorIs(t, err, ErrDelivery)
}

func TestText(t *testing.T) {
	next := transit.Passage{Destination: "GARE DU NORD", LineID: "7"}
	upcoming := transit.Passage{Destination: "VANDERKINDERE", LineID: "7"}

	tests := []struct {
		description string
		msg         Message
		want        string
		replies     []QuickReply
	}{
		{
			description: "urgent, several minutes",
			msg:         Urgent(arrival.Assessment{Next: next, NextMinutes: 3}),
			want:        "Line 7 to GARE DU NORD is arriving in 3 minutes.",
			replies:     []QuickReply{StopReply},
		}, {
			description: "urgent, one minute",
			msg:         Urgent(arrival.Assessment{Next: next, NextMinutes: 1}),
			want:        "Line 7 to GARE DU NORD is arriving in 1 minute.",
			replies:     []QuickReply{StopReply},
		}, {
			description: "urgent, now",
			msg:         Urgent(arrival.Assessment{Next: next}),
			want:        "Line 7 to GARE DU NORD is approaching now!",
			replies:     []QuickReply{StopReply},
		}, {
			description: "urgent, already passed",
			msg:         Urgent(arrival.Assessment{Next: next, NextMinutes: -1}),
			want:        "Line 7 to GARE DU NORD is approaching now!",
			replies:     []QuickReply{StopReply},
		}, {
			description: "info, next only",
			msg:         Info(arrival.Assessment{Next: transit.Passage{LineID: "7"}, NextMinutes: 12}),
			want:        "Next: Line 7 in 12 minutes.",
		}, {
			description: "info, next and upcoming",
			msg: Info(arrival.Assessment{
				Next:            next,
				NextMinutes:     12,
				Upcoming:        &upcoming,
				UpcomingMinutes: 20,
			}),
			want: "Next: Line 7 to GARE DU NORD in 12 minutes. Then: Line 7 to VANDERKINDERE in 20 minutes.",
		}, {
			description: "started",
			msg:         Started("5021", time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)),
			want:        "Watching stop 5021 until 09:30.",
			replies:     []QuickReply{StopReply},
		}, {
			description: "already running",
			msg:         AlreadyRunning(),
			want:        "Already running.",
			replies:     []QuickReply{StopReply},
		}, {
			description: "finished",
			msg:         Finished(),
			want:        "Monitoring stopped.",
			replies:     []QuickReply{ScanReply},
		}, {
			description: "greeting",
			msg:         Greeting(),
			want:        "Hello! Tap Scan to watch your stop.",
			replies:     []QuickReply{ScanReply, StopReply},
		},
	}
	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			assert := assert.New(t)

			assert.Equal(tc.want, tc.msg.Text)
			assert.Equal(tc.replies, tc.msg.QuickReplies)
		})
	}
}
