// Soundmap - Similarity-Driven Smart Shuffle
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/soundmap

package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/soundmap/internal/shuffle"
)

// EventLoop is the part of the engine the service drives.
type EventLoop interface {
	Run(ctx context.Context, events <-chan shuffle.Event) error
}

// EngineService runs the shuffle event loop.
type EngineService struct {
	loop   EventLoop
	events <-chan shuffle.Event
	logger zerolog.Logger
}

// NewEngineService creates the service.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewEngineService(loop EventLoop, events <-chan shuffle.Event, logger zerolog.Logger) *EngineService {
	return &EngineService{
		loop:   loop,
		events: events,
		logger: logger.With().Str("component", "engine-service").Logger(),
	}
}

// Serve implements suture.Service.
func (s *EngineService) Serve(ctx context.Context) error {
	s.logger.Debug().Msg("Event loop started")
	err := s.loop.Run(ctx, s.events)
	switch {
	case ctx.Err() != nil:
		return ctx.Err()
	case err == nil:
		s.logger.Info().Msg("Event channel closed, event loop finished")
		return suture.ErrDoNotRestart
	default:
		return fmt.Errorf("event loop: %w", err)
	}
}

func (s *EngineService) String() string {
	return "shuffle-engine"
}
