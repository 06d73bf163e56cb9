// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package webhook

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/darwinstop/stib-notify/internal/arrival"
	"github.com/darwinstop/stib-notify/internal/credentials"
	"github.com/darwinstop/stib-notify/internal/transit"
	"github.com/gorilla/mux"
)

// TokenSource provides a valid access token.
type TokenSource interface {
	Token(context.Context) (credentials.Token, error)
}

// PassageSource provides the passages at a stop.
type PassageSource interface {
	PassingTimes(ctx context.Context, token, stopID string) ([]transit.Passage, error)
}

var statusTemplate = template.Must(template.New("status").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Next passages</title></head>
<body>
<h1>Next passages</h1>
{{range .}}<h2>Stop {{.StopID}}</h2>
{{if .Err}}<p>Unavailable</p>
{{else}}{{range .Rows}}<p><b>Line {{.Line}} {{.Destination}}:</b> <span>{{.At}}</span> ===> <b>{{.Minutes}} min</b></p>
{{else}}<p>No passage announced</p>
{{end}}{{end}}{{end}}</body>
</html>
`))

type statusRow struct {
	Line        string
	Destination string
	At          string
	Minutes     int
}

type statusStop struct {
	StopID string
	Rows   []statusRow
	Err    error
}

// Status renders the next and upcoming passages of a few stops.
type Status struct {
	tokens   TokenSource
	passages PassageSource
	stops    []string
	timeout  time.Duration
	nowFunc  func() time.Time
}

// NewStatus creates the status page handler.
func NewStatus(tokens TokenSource, passages PassageSource, stops []string) (*Status, error) {
	if tokens == nil || passages == nil || len(stops) == 0 {
		return nil, fmt.Errorf("%w: status page needs tokens, passages and stops", ErrInvalidInput)
	}

	return &Status{
		tokens:   tokens,
		passages: passages,
		stops:    stops,
		timeout:  DefaultReplyTimeout,
		nowFunc:  time.Now,
	}, nil
}

// RegisterRoutes registers the status page.
func (s *Status) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
}

func (s *Status) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	stops := make([]statusStop, 0, len(s.stops))
	for _, id := range s.stops {
		stops = append(stops, s.lookup(ctx, id))
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := statusTemplate.Execute(w, stops); err != nil {
		http.Error(w, "rendering failed", http.StatusInternalServerError)
	}
}

func (s *Status) lookup(ctx context.Context, stopID string) statusStop {
	st := statusStop{StopID: stopID}

	token, err := s.tokens.Token(ctx)
	if err != nil {
		st.Err = err
		return st
	}

	passages, err := s.passages.PassingTimes(ctx, token.AccessToken, stopID)
	if err != nil {
		st.Err = err
		return st
	}

	a, err := arrival.Evaluate(passages, s.nowFunc(), 0)
	if err != nil {
		return st
	}

	st.Rows = append(st.Rows, row(a.Next, a.NextMinutes))
	if a.Upcoming != nil {
		st.Rows = append(st.Rows, row(*a.Upcoming, a.UpcomingMinutes))
	}
	return st
}

func row(p transit.Passage, minutes int) statusRow {
	return statusRow{
		Line:        p.LineID,
		Destination: p.Destination,
		At:          p.ExpectedArrival.Format("15:04"),
		Minutes:     minutes,
	}
}
