// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package poll

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/darwinstop/stib-notify/internal/arrival"
	"github.com/darwinstop/stib-notify/internal/credentials"
	"github.com/darwinstop/stib-notify/internal/notify"
	"github.com/darwinstop/stib-notify/internal/poll/event"
	"github.com/darwinstop/stib-notify/internal/transit"
	"github.com/google/uuid"
	"github.com/xmidt-org/eventor"
)

var (
	ErrInvalidInput = errors.New("invalid input")
)

const (
	DefaultDelay       = 40 * time.Second
	DefaultCallTimeout = 15 * time.Second
)

// State is the state of the loop.
type State int

const (
	Idle State = iota
	Running
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// TokenSource provides a valid access token.
type TokenSource interface {
	Token(context.Context) (credentials.Token, error)
}

// PassageSource provides the passages at a stop.
type PassageSource interface {
	PassingTimes(ctx context.Context, token, stopID string) ([]transit.Passage, error)
}

// Notifier delivers a message to a recipient.
type Notifier interface {
	Send(ctx context.Context, recipientID string, msg notify.Message) error
}

type invalidator interface {
	Invalidate()
}

// Loop watches a single stop on behalf of a single recipient.  At most one
// run is active at a time.
type Loop struct {
	tokens      TokenSource
	passages    PassageSource
	notifier    Notifier
	stopID      string
	recipient   string
	threshold   int
	delay       time.Duration
	callTimeout time.Duration
	announce    bool
	nowFunc     func() time.Time

	cycleListeners   eventor.Eventor[event.CycleListener]
	sessionListeners eventor.Eventor[event.SessionListener]

	m        sync.Mutex
	wg       sync.WaitGroup
	ctx      context.Context
	shutdown context.CancelFunc
	state    State
	active   bool
	end      time.Time
	stop     chan struct{}
}

// Option is a functional option type for Loop.
type Option interface {
	apply(*Loop) error
}

// New creates a new idle loop.
func New(opts ...Option) (*Loop, error) {
	l := Loop{
		threshold:   arrival.DefaultThreshold,
		delay:       DefaultDelay,
		callTimeout: DefaultCallTimeout,
		nowFunc:     time.Now,
	}

	opts = append(opts,
		validateTokens(),
		validatePassages(),
		validateNotifier(),
		validateStopID(),
		validateRecipient(),
	)

	for _, opt := range opts {
		if opt != nil {
			if err := opt.apply(&l); err != nil {
				return nil, err
			}
		}
	}

	l.ctx, l.shutdown = context.WithCancel(context.Background())

	return &l, nil
}

// Start begins a run that lasts until end.  If a run is already active the
// recipient is told so and false is returned; the active run is untouched.
func (l *Loop) Start(end time.Time) bool {
	l.m.Lock()
	if l.active {
		l.m.Unlock()
		l.send(notify.AlreadyRunning())
		return false
	}

	if l.ctx.Err() != nil {
		l.m.Unlock()
		return false
	}

	stop := make(chan struct{})
	l.state = Running
	l.active = true
	l.end = end
	l.stop = stop
	l.wg.Add(1)
	l.m.Unlock()

	go l.run(end, stop)

	return true
}

// Stop asks the active run to end.  It takes effect before the next
// iteration starts; a network call in flight is allowed to finish.  It
// returns true if a run was asked to stop by this call.
func (l *Loop) Stop() bool {
	l.m.Lock()
	defer l.m.Unlock()

	if !l.active || l.state != Running {
		return false
	}

	l.state = Stopped
	close(l.stop)
	return true
}

// State returns the current state of the loop.
func (l *Loop) State() State {
	l.m.Lock()
	defer l.m.Unlock()

	return l.state
}

// End returns the deadline of the current or last run.
func (l *Loop) End() time.Time {
	l.m.Lock()
	defer l.m.Unlock()

	return l.end
}

// Shutdown ends any active run, cancelling in flight calls, and waits for it
// to finish.  The loop cannot be started again afterwards.
func (l *Loop) Shutdown() {
	l.shutdown()
	l.wg.Wait()
}

func (l *Loop) run(end time.Time, stop <-chan struct{}) {
	defer l.wg.Done()

	s := event.Session{
		ID:      uuid.New(),
		Started: l.nowFunc(),
		End:     end,
	}

	l.send(notify.Started(l.stopID, end))

	s.Reason, s.Err = l.iterate(&s, end, stop)

	l.m.Lock()
	l.active = false
	if l.state == Running {
		l.state = Idle
	}
	l.m.Unlock()

	if s.Reason == event.Expired {
		l.send(notify.Finished())
	}

	s.Finished = l.nowFunc()
	l.sessionListeners.Visit(func(listener event.SessionListener) {
		listener.OnSession(s)
	})
}

// iterate runs cycles until the deadline passes, a stop is requested, or a
// cycle fails.  Stop and the deadline are only checked between cycles.
func (l *Loop) iterate(s *event.Session, end time.Time, stop <-chan struct{}) (event.Reason, error) {
	for {
		select {
		case <-stop:
			return event.Stopped, nil
		case <-l.ctx.Done():
			return event.Shutdown, nil
		default:
		}

		if !l.nowFunc().Before(end) {
			return event.Expired, nil
		}

		c := l.cycle(s.ID)
		s.Cycles++
		l.cycleListeners.Visit(func(listener event.CycleListener) {
			listener.OnCycle(c)
		})

		if c.Err != nil {
			return event.Failed, c.Err
		}

		timer := time.NewTimer(l.delay)
		select {
		case <-stop:
			timer.Stop()
			return event.Stopped, nil
		case <-l.ctx.Done():
			timer.Stop()
			return event.Shutdown, nil
		case <-timer.C:
		}
	}
}

// cycle performs one fetch-evaluate-notify pass.
func (l *Loop) cycle(session uuid.UUID) (c event.Cycle) {
	c = event.Cycle{
		Session:         session,
		At:              l.nowFunc(),
		UpcomingMinutes: -1,
	}
	defer func() {
		c.Duration = l.nowFunc().Sub(c.At)
	}()

	ctx, cancel := context.WithTimeout(l.ctx, l.callTimeout)
	token, err := l.tokens.Token(ctx)
	cancel()
	if err != nil {
		c.Err = err
		return c
	}

	ctx, cancel = context.WithTimeout(l.ctx, l.callTimeout)
	passages, err := l.passages.PassingTimes(ctx, token.AccessToken, l.stopID)
	cancel()
	if err != nil {
		if inv, ok := l.tokens.(invalidator); ok && errors.Is(err, transit.ErrUnauthorized) {
			inv.Invalidate()
		}
		c.Err = err
		return c
	}
	c.Passages = len(passages)

	a, err := arrival.Evaluate(passages, l.nowFunc(), l.threshold)
	if err != nil {
		c.Err = err
		return c
	}

	c.Line = a.Next.LineID
	c.Destination = a.Next.Destination
	c.Minutes = a.NextMinutes
	c.Urgent = a.Urgent
	if a.Upcoming != nil {
		c.UpcomingMinutes = a.UpcomingMinutes
	}

	switch {
	case a.Urgent:
		l.send(notify.Urgent(a))
		c.Notified = true
	case l.announce:
		l.send(notify.Info(a))
		c.Notified = true
	}

	return c
}

// send delivers a message to the recipient.  Delivery failures are reported
// by the notifier's own listeners and never interrupt the loop.
func (l *Loop) send(msg notify.Message) {
	ctx, cancel := context.WithTimeout(l.ctx, l.callTimeout)
	defer cancel()

	_ = l.notifier.Send(ctx, l.recipient, msg)
}
