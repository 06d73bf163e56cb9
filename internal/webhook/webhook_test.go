// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package webhook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/darwinstop/stib-notify/internal/notify"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockController struct {
	mock.Mock
}

func (m *MockController) Start(end time.Time) bool {
	args := m.Called(end)
	return args.Bool(0)
}

func (m *MockController) Stop() bool {
	args := m.Called()
	return args.Bool(0)
}

type sent struct {
	to  string
	msg notify.Message
}

type fakeReplier struct {
	m    sync.Mutex
	sent []sent
	err  error
}

func (f *fakeReplier) Send(_ context.Context, to string, msg notify.Message) error {
	f.m.Lock()
	defer f.m.Unlock()
	f.sent = append(f.sent, sent{to: to, msg: msg})
	return f.err
}

func TestNew(t *testing.T) {
	loop := &MockController{}
	replier := &fakeReplier{}

	tests := []struct {
		description string
		cfg         Config
		expectedErr error
	}{
		{
			description: "empty",
			expectedErr: ErrInvalidInput,
		}, {
			description: "missing recipient",
			cfg:         Config{VerifyToken: "v", Loop: loop, Replier: replier},
			expectedErr: ErrInvalidInput,
		}, {
			description: "missing loop",
			cfg:         Config{VerifyToken: "v", Recipient: "1234", Replier: replier},
			expectedErr: ErrInvalidInput,
		}, {
			description: "missing replier",
			cfg:         Config{VerifyToken: "v", Recipient: "1234", Loop: loop},
			expectedErr: ErrInvalidInput,
		}, {
			description: "defaults applied",
			cfg:         Config{VerifyToken: "v", Recipient: "1234", Loop: loop, Replier: replier},
		},
	}
	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			assert := assert.New(t)

			h, err := New(tc.cfg)
			if tc.expectedErr != nil {
				assert.ErrorIs(err, tc.expectedErr)
				assert.Nil(h)
				return
			}

			assert.NoError(err)
			require.NotNil(t, h)
			assert.Equal(DefaultRunFor, h.cfg.RunFor)
			assert.Equal(DefaultReplyTimeout, h.cfg.ReplyTimeout)
			assert.NotNil(h.cfg.NowFunc)
		})
	}
}

func newRouter(t *testing.T, loop Controller, replier Replier, now time.Time) (*mux.Router, *[]Inbound) {
	h, err := New(Config{
		VerifyToken: "secret",
		Recipient:   "1234",
		RunFor:      30 * time.Minute,
		Loop:        loop,
		Replier:     replier,
		NowFunc:     func() time.Time { return now },
	})
	require.NoError(t, err)

	var inbound []Inbound
	h.AddInboundListener(InboundListenerFunc(
		func(i Inbound) {
			inbound = append(inbound, i)
		}))

	r := mux.NewRouter()
	h.RegisterRoutes(r)
	return r, &inbound
}

func TestVerify(t *testing.T) {
	tests := []struct {
		description string
		path        string
		query       string
		wantStatus  int
		wantBody    string
	}{
		{
			description: "matching token",
			path:        "/webhook",
			query:       "hub.mode=subscribe&hub.verify_token=secret&hub.challenge=CHALLENGE_ACCEPTED",
			wantStatus:  http.StatusOK,
			wantBody:    "CHALLENGE_ACCEPTED",
		}, {
			description: "matching token, trailing slash",
			path:        "/webhook/",
			query:       "hub.verify_token=secret&hub.challenge=1158201444",
			wantStatus:  http.StatusOK,
			wantBody:    "1158201444",
		}, {
			description: "wrong token",
			path:        "/webhook",
			query:       "hub.verify_token=guess&hub.challenge=CHALLENGE_ACCEPTED",
			wantStatus:  http.StatusForbidden,
			wantBody:    MismatchText,
		}, {
			description: "no token",
			path:        "/webhook",
			query:       "hub.challenge=CHALLENGE_ACCEPTED",
			wantStatus:  http.StatusForbidden,
			wantBody:    MismatchText,
		},
	}
	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			assert := assert.New(t)

			r, _ := newRouter(t, &MockController{}, &fakeReplier{}, time.Now())

			req := httptest.NewRequest(http.MethodGet, tc.path+"?"+tc.query, nil)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(tc.wantStatus, rec.Code)
			assert.Equal(tc.wantBody, rec.Body.String())
			if tc.wantStatus != http.StatusOK {
				assert.NotContains(rec.Body.String(), "CHALLENGE_ACCEPTED")
			}
		})
	}
}

func messaging(items ...string) string {
	return `{"object":"page","entry":[{"id":"p1","messaging":[` + strings.Join(items, ",") + `]}]}`
}

func TestReceive(t *testing.T) {
	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		description string
		body        string
		setup       func(*MockController)
		wantStatus  int
		wantActions []Action
		wantReplies []notify.Message
	}{
		{
			description: "scan quick reply starts the loop",
			body:        messaging(`{"sender":{"id":"1234"},"message":{"text":"Scan","quick_reply":{"payload":"SCAN"}}}`),
			setup: func(m *MockController) {
				m.On("Start", now.Add(30*time.Minute)).Return(true).Once()
			},
			wantStatus:  http.StatusOK,
			wantActions: []Action{StartLoop},
		}, {
			description: "scan postback starts the loop",
			body:        messaging(`{"sender":{"id":"1234"},"postback":{"title":"Scan","payload":"SCAN"}}`),
			setup: func(m *MockController) {
				m.On("Start", now.Add(30*time.Minute)).Return(false).Once()
			},
			wantStatus:  http.StatusOK,
			wantActions: []Action{StartLoop},
		}, {
			description: "stop quick reply stops the loop",
			body:        messaging(`{"sender":{"id":"1234"},"message":{"text":"Stop","quick_reply":{"payload":"STOP"}}}`),
			setup: func(m *MockController) {
				m.On("Stop").Return(true).Once()
			},
			wantStatus:  http.StatusOK,
			wantActions: []Action{StopLoop},
			wantReplies: []notify.Message{notify.Finished()},
		}, {
			description: "text gets a greeting",
			body:        messaging(`{"sender":{"id":"1234"},"message":{"text":"hello"}}`),
			wantStatus:  http.StatusOK,
			wantActions: []Action{Greet},
			wantReplies: []notify.Message{notify.Greeting()},
		}, {
			description: "echo is ignored",
			body:        messaging(`{"sender":{"id":"1234"},"message":{"is_echo":true,"text":"hello"}}`),
			wantStatus:  http.StatusOK,
			wantActions: []Action{Ignore},
		}, {
			description: "other senders are rejected",
			body:        messaging(`{"sender":{"id":"9999"},"message":{"text":"Scan","quick_reply":{"payload":"SCAN"}}}`),
			wantStatus:  http.StatusOK,
			wantActions: []Action{Rejected},
		}, {
			description: "several events",
			body: messaging(
				`{"sender":{"id":"1234"},"message":{"text":"hi"}}`,
				`{"sender":{"id":"1234"},"message":{"is_echo":true,"text":"Hello!"}}`,
				`{"sender":{"id":"1234"},"message":{"text":"Stop","quick_reply":{"payload":"stop"}}}`,
			),
			setup: func(m *MockController) {
				m.On("Stop").Return(false).Once()
			},
			wantStatus:  http.StatusOK,
			wantActions: []Action{Greet, Ignore, StopLoop},
			wantReplies: []notify.Message{notify.Greeting(), notify.Finished()},
		}, {
			description: "no entries",
			body:        `{"object":"page"}`,
			wantStatus:  http.StatusOK,
		}, {
			description: "invalid body",
			body:        `{"entry":`,
			wantStatus:  http.StatusBadRequest,
		},
	}
	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			assert := assert.New(t)

			loop := &MockController{}
			if tc.setup != nil {
				tc.setup(loop)
			}
			replier := &fakeReplier{}

			r, inbound := newRouter(t, loop, replier, now)

			req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(tc.wantStatus, rec.Code)
			if tc.wantStatus == http.StatusOK {
				assert.Equal(ReceivedText, rec.Body.String())
			}

			loop.AssertExpectations(t)

			var actions []Action
			for _, i := range *inbound {
				actions = append(actions, i.Action)
			}
			assert.Equal(tc.wantActions, actions)

			require.Len(t, replier.sent, len(tc.wantReplies))
			for i, want := range tc.wantReplies {
				assert.Equal("1234", replier.sent[i].to)
				assert.Equal(want, replier.sent[i].msg)
			}
		})
	}
}

func TestReceiveReplyFailure(t *testing.T) {
	assert := assert.New(t)

	replier := &fakeReplier{err: notify.ErrDelivery}
	r, inbound := newRouter(t, &MockController{}, replier, time.Now())

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(
		messaging(`{"sender":{"id":"1234"},"message":{"text":"hello"}}`)))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(http.StatusOK, rec.Code)
	require.Len(t, *inbound, 1)
	assert.ErrorIs((*inbound)[0].Err, notify.ErrDelivery)
}

func TestEventAction(t *testing.T) {
	tests := []struct {
		description string
		event       Event
		want        Action
	}{
		{description: "empty", want: Ignore},
		{description: "echo with payload", event: Event{IsEcho: true, Payload: "SCAN"}, want: Ignore},
		{description: "scan", event: Event{Payload: "SCAN"}, want: StartLoop},
		{description: "scan, lower case", event: Event{Payload: " scan "}, want: StartLoop},
		{description: "stop", event: Event{Payload: "STOP", Text: "Stop"}, want: StopLoop},
		{description: "unknown payload with text", event: Event{Payload: "OTHER", Text: "x"}, want: Greet},
		{description: "blank text", event: Event{Text: "   "}, want: Ignore},
	}
	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.event.Action())
		})
	}
}
