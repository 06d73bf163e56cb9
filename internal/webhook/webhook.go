// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/darwinstop/stib-notify/internal/notify"
	"github.com/gorilla/mux"
	"github.com/xmidt-org/eventor"
)

var (
	ErrInvalidInput = errors.New("invalid input")
)

const (
	// MismatchText is returned when the verification handshake fails.
	MismatchText = "Validation failed, Verify token mismatch"

	// ReceivedText acknowledges a batch of inbound events.
	ReceivedText = "EVENT_RECEIVED"

	DefaultRunFor       = time.Hour
	DefaultReplyTimeout = 10 * time.Second
	maxBodyBytes        = 1 << 20
)

// Controller starts and stops the monitoring loop.
type Controller interface {
	Start(end time.Time) bool
	Stop() bool
}

// Replier sends a message back to the user.
type Replier interface {
	Send(ctx context.Context, recipientID string, msg notify.Message) error
}

// Config holds what the handler needs to answer the messaging platform.
type Config struct {
	// VerifyToken is the secret shared with the platform for the
	// verification handshake.
	VerifyToken string

	// Recipient is the only sender allowed to control the loop.
	Recipient string

	// RunFor is how long a run started from a chat command lasts.
	RunFor time.Duration

	// ReplyTimeout bounds the replies sent while handling a request.
	ReplyTimeout time.Duration

	Loop    Controller
	Replier Replier
	NowFunc func() time.Time
}

// Handler serves the webhook endpoints.
type Handler struct {
	cfg       Config
	listeners eventor.Eventor[InboundListener]
}

// New creates a webhook handler.
func New(cfg Config) (*Handler, error) {
	switch {
	case cfg.VerifyToken == "":
		return nil, fmt.Errorf("%w: verify token is missing", ErrInvalidInput)
	case cfg.Recipient == "":
		return nil, fmt.Errorf("%w: recipient is missing", ErrInvalidInput)
	case cfg.Loop == nil:
		return nil, fmt.Errorf("%w: loop is missing", ErrInvalidInput)
	case cfg.Replier == nil:
		return nil, fmt.Errorf("%w: replier is missing", ErrInvalidInput)
	}

	if cfg.RunFor <= 0 {
		cfg.RunFor = DefaultRunFor
	}
	if cfg.ReplyTimeout <= 0 {
		cfg.ReplyTimeout = DefaultReplyTimeout
	}
	if cfg.NowFunc == nil {
		cfg.NowFunc = time.Now
	}

	return &Handler{cfg: cfg}, nil
}

// AddInboundListener adds a listener that is told about every inbound event
// and what was done with it.
func (h *Handler) AddInboundListener(l InboundListener) CancelFunc {
	return CancelFunc(h.listeners.Add(l))
}

// RegisterRoutes registers the webhook routes.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/webhook", h.handleVerify).Methods(http.MethodGet)
	r.HandleFunc("/webhook/", h.handleVerify).Methods(http.MethodGet)
	r.HandleFunc("/webhook", h.handleReceive).Methods(http.MethodPost)
	r.HandleFunc("/webhook/", h.handleReceive).Methods(http.MethodPost)
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if q.Get("hub.verify_token") != h.cfg.VerifyToken {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, MismatchText)
		return
	}

	_, _ = io.WriteString(w, q.Get("hub.challenge"))
}

type inbound struct {
	Object string `json:"object"`
	Entry  []struct {
		ID        string `json:"id"`
		Messaging []struct {
			Sender struct {
				ID string `json:"id"`
			} `json:"sender"`
			Message *struct {
				IsEcho     bool   `json:"is_echo"`
				Text       string `json:"text"`
				QuickReply *struct {
					Payload string `json:"payload"`
				} `json:"quick_reply"`
			} `json:"message"`
			Postback *struct {
				Title   string `json:"title"`
				Payload string `json:"payload"`
			} `json:"postback"`
		} `json:"messaging"`
	} `json:"entry"`
}

// events flattens the payload into one Event per messaging item.
func (in inbound) events() []Event {
	var events []Event
	for _, entry := range in.Entry {
		for _, m := range entry.Messaging {
			e := Event{SenderID: m.Sender.ID}
			if m.Message != nil {
				e.IsEcho = m.Message.IsEcho
				e.Text = m.Message.Text
				if m.Message.QuickReply != nil {
					e.Payload = m.Message.QuickReply.Payload
				}
			}
			if m.Postback != nil {
				e.Payload = m.Postback.Payload
			}
			events = append(events, e)
		}
	}
	return events
}

func (h *Handler) handleReceive(w http.ResponseWriter, r *http.Request) {
	var in inbound
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&in); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	for _, e := range in.events() {
		h.handle(r.Context(), e)
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, ReceivedText)
}

// handle acts on a single event.  Replies go out before the request is
// acknowledged.
func (h *Handler) handle(ctx context.Context, e Event) {
	in := Inbound{
		Event:  e,
		Action: e.Action(),
	}

	if in.Action != Ignore && e.SenderID != h.cfg.Recipient {
		in.Action = Rejected
	}

	switch in.Action {
	case StartLoop:
		in.Started = h.cfg.Loop.Start(h.cfg.NowFunc().Add(h.cfg.RunFor))
	case StopLoop:
		h.cfg.Loop.Stop()
		in.Err = h.reply(ctx, e.SenderID, notify.Finished())
	case Greet:
		in.Err = h.reply(ctx, e.SenderID, notify.Greeting())
	}

	h.listeners.Visit(func(l InboundListener) {
		l.OnInbound(in)
	})
}

func (h *Handler) reply(ctx context.Context, to string, msg notify.Message) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.cfg.ReplyTimeout)
	defer cancel()

	return h.cfg.Replier.Send(ctx, to, msg)
}
