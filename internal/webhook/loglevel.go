// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package webhook

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/darwinstop/stib-notify/internal/loglevel"
	"github.com/gorilla/mux"
)

// TokenHeader carries the verify token on operator requests.
const TokenHeader = "X-Verify-Token"

// LogLevel lets an operator raise the log level for a while.
type LogLevel struct {
	svc   loglevel.LogLevel
	token string
}

// NewLogLevel creates the log level handler.  Requests must present the
// token in the TokenHeader header.
func NewLogLevel(svc loglevel.LogLevel, token string) (*LogLevel, error) {
	if svc == nil || token == "" {
		return nil, fmt.Errorf("%w: log level handler needs a service and a token", ErrInvalidInput)
	}
	return &LogLevel{svc: svc, token: token}, nil
}

// RegisterRoutes registers the log level route.
func (l *LogLevel) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/loglevel", l.handleSet).Methods(http.MethodPut)
	r.HandleFunc("/loglevel", l.handleGet).Methods(http.MethodGet)
}

func (l *LogLevel) authorized(r *http.Request) bool {
	return subtle.ConstantTimeCompare([]byte(r.Header.Get(TokenHeader)), []byte(l.token)) == 1
}

func (l *LogLevel) handleGet(w http.ResponseWriter, r *http.Request) {
	if !l.authorized(r) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	l.writeLevel(w)
}

func (l *LogLevel) handleSet(w http.ResponseWriter, r *http.Request) {
	if !l.authorized(r) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	q := r.URL.Query()
	d, err := time.ParseDuration(q.Get("duration"))
	if err != nil {
		http.Error(w, "invalid duration", http.StatusBadRequest)
		return
	}

	if err := l.svc.SetLevel(q.Get("level"), d); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	l.writeLevel(w)
}

func (l *LogLevel) writeLevel(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"level": l.svc.Level()})
}
