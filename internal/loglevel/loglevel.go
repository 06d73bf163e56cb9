// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package loglevel

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	ErrInvalidInput = errors.New("invalid input")
)

// LogLevel temporarily overrides the level of a running logger.
type LogLevel interface {
	SetLevel(string, time.Duration) error
	Level() string
}

// Service changes an atomic level and restores the original one once the
// override expires.  A new override replaces the pending one.
type Service struct {
	m         sync.Mutex
	level     zap.AtomicLevel
	origLevel zapcore.Level
	revert    *time.Timer
}

var _ LogLevel = (*Service)(nil)

// New wraps the atomic level the loggers were built with.
func New(level zap.AtomicLevel) (*Service, error) {
	if level == (zap.AtomicLevel{}) {
		return nil, fmt.Errorf("%w: level is not initialized", ErrInvalidInput)
	}

	return &Service{
		level:     level,
		origLevel: level.Level(),
	}, nil
}

// SetLevel applies the level for the given duration.  Note that zap treats an
// empty level as "info".
func (s *Service) SetLevel(level string, duration time.Duration) error {
	if duration <= 0 {
		return fmt.Errorf("%w: duration must be positive", ErrInvalidInput)
	}

	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return errors.Join(err, ErrInvalidInput)
	}

	s.m.Lock()
	defer s.m.Unlock()

	if s.revert != nil {
		s.revert.Stop()
	}

	s.level.SetLevel(lvl)
	s.revert = time.AfterFunc(duration, func() {
		s.level.SetLevel(s.origLevel)
	})

	return nil
}

// Level returns the level currently in effect.
func (s *Service) Level() string {
	return s.level.Level().CapitalString()
}
