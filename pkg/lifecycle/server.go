/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package lifecycle wires a Service into a signal-driven process: start on
// launch, stop on SIGINT/SIGTERM with a bounded shutdown window, and return
// on a fatal service error.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carverauto/pvm/pkg/logger"
)

const (
	// ShutdownTimeout bounds how long Stop is given to drain before the
	// process gives up and reports a timeout.
	ShutdownTimeout = 10 * time.Second

	defaultShutdownWait = 100 * time.Millisecond
	defaultErrChanSize  = 2
)

var (
	errShutdownTimeout = errors.New("lifecycle: timeout shutting down")
	errServiceStop     = errors.New("lifecycle: service stop failed")
)

// Service is anything RunServer can drive: the ingest pipeline, a view
// coordinator, or a thin wrapper composing both.
type Service interface {
	Start(context.Context) error
	Stop(context.Context) error
}

// ServerOptions configures RunServer.
type ServerOptions struct {
	ServiceName  string
	Service      Service
	LoggerConfig *logger.Config
	Logger       logger.Logger // optional: reuse an existing logger instead of creating one
}

// RunServer starts opts.Service and blocks until a shutdown signal, a fatal
// service error, or context cancellation. On a signal it calls Stop and
// waits up to ShutdownTimeout for it to return; on a service error or
// context cancellation it returns without calling Stop.
func RunServer(ctx context.Context, opts *ServerOptions) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log := opts.Logger
	if log == nil {
		createdLogger, err := CreateComponentLogger(opts.ServiceName, opts.LoggerConfig)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		log = createdLogger
	}

	errChan := make(chan error, 1)

	go func() {
		if err := opts.Service.Start(ctx); err != nil {
			errChan <- fmt.Errorf("service start failed: %w", err)
		}
	}()

	log.Info().Str("service", opts.ServiceName).Msg("service started")

	return handleShutdown(ctx, cancel, opts.Service, errChan, log)
}

func handleShutdown(
	ctx context.Context,
	cancel context.CancelFunc,
	svc Service,
	errChan chan error,
	log logger.Logger,
) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("received signal, initiating shutdown")
	case err := <-errChan:
		log.Error().Err(err).Msg("received error, initiating shutdown")
		return err
	case <-ctx.Done():
		log.Info().Msg("context canceled, initiating shutdown")
		return ctx.Err()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer shutdownCancel()

	cancel()

	stopErr := make(chan error, defaultErrChanSize)

	go func() {
		if err := svc.Stop(shutdownCtx); err != nil {
			stopErr <- fmt.Errorf("%w: %w", errServiceStop, err)
			return
		}

		stopErr <- nil
	}()

	select {
	case <-shutdownCtx.Done():
		log.Error().Msg("shutdown timed out")
		return fmt.Errorf("%w: %w", errShutdownTimeout, shutdownCtx.Err())
	case err := <-stopErr:
		return err
	}
}
