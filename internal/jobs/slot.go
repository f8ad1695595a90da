// Soundmap - Similarity-Driven Smart Shuffle
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/soundmap

package jobs

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/soundmap/internal/metrics"
)

var (
	// ErrSlotBusy is returned by Start while a previous run is in flight.
	ErrSlotBusy = errors.New("job already running")

	// ErrRunnerClosed is returned by Start after the runner was closed.
	ErrRunnerClosed = errors.New("job runner closed")
)

// Func is the body of one job run.
type Func func(ctx context.Context) error

// PanicError is returned by Wait when the run panicked.
type PanicError struct {
	Job   string
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("job %s panicked: %v", e.Job, e.Value)
}

// Slot is a reusable execution slot that runs at most one Func at a time.
type Slot struct {
	name   string
	ctx    context.Context
	logger zerolog.Logger

	mu      sync.Mutex
	running bool
	done    chan struct{}
	err     error
}

//nolint:gocritic // zerolog.Logger is designed to be passed by value
func newSlot(ctx context.Context, name string, logger zerolog.Logger) *Slot {
	return &Slot{
		name:   name,
		ctx:    ctx,
		logger: logger.With().Str("job", name).Logger(),
	}
}

// Name returns the slot name.
func (s *Slot) Name() string {
	return s.name
}

// Running reports whether a run is in flight.
func (s *Slot) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Start launches fn in a new goroutine. It returns ErrSlotBusy if the
// previous run has not finished.
func (s *Slot) Start(fn Func) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("%s: %w", s.name, ErrSlotBusy)
	}
	s.running = true
	s.err = nil
	s.done = make(chan struct{})
	metrics.SetJobRunning(s.name, true)

	go s.run(fn, s.done)
	return nil
}

// Wait blocks until the current run completes and returns its error. With no
// run in flight it returns the error of the last run, or nil.
func (s *Slot) Wait() error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	if done != nil {
		<-done
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Slot) run(fn Func, done chan struct{}) {
	start := time.Now()
	var (
		err      error
		panicked bool
	)

	defer func() {
		duration := time.Since(start)
		metrics.RecordJobRun(s.name, duration, err, panicked)
		metrics.SetJobRunning(s.name, false)

		if err != nil {
			s.logger.Warn().Err(err).Dur("duration", duration).Msg("Job failed")
		} else {
			s.logger.Debug().Dur("duration", duration).Msg("Job finished")
		}

		s.mu.Lock()
		s.err = err
		s.running = false
		s.mu.Unlock()
		close(done)
	}()

	panicked, err = s.call(fn)
}

func (s *Slot) call(fn Func) (panicked bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			panicked = true
			err = &PanicError{Job: s.name, Value: r, Stack: debug.Stack()}
		}
	}()
	return false, fn(s.ctx)
}
