// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/xmidt-org/arrange/arrangehttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// server runs the inbound HTTP server.
type server struct {
	srv    *http.Server
	logger *zap.Logger
	done   chan struct{}
}

type serverIn struct {
	fx.In
	Server arrangehttp.ServerConfig
	Router *mux.Router
	Logger *zap.Logger
}

func provideServer(in serverIn) (*server, error) {
	srv, err := in.Server.NewServer()
	if err != nil {
		return nil, err
	}
	srv.Handler = in.Router

	logger := in.Logger.Named("server")
	srv.ErrorLog = zap.NewStdLog(logger)

	return &server{
		srv:    srv,
		logger: logger,
		done:   make(chan struct{}),
	}, nil
}

// Start binds the listener so address errors surface at startup, then
// serves in the background.
func (s *server) Start(ctx context.Context) error {
	var lc net.ListenConfig
	l, err := lc.Listen(ctx, "tcp", s.srv.Addr)
	if err != nil {
		return err
	}

	s.logger.Info("listening", zap.String("address", l.Addr().String()))

	go func() {
		defer close(s.done)
		err := s.srv.Serve(l)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server stopped", zap.Error(err))
		}
	}()

	return nil
}

// Stop drains the open requests.
func (s *server) Stop(ctx context.Context) error {
	err := s.srv.Shutdown(ctx)
	select {
	case <-s.done:
	case <-ctx.Done():
	}
	return err
}
