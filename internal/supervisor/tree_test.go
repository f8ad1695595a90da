// Soundmap - Similarity-Driven Smart Shuffle
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/soundmap

package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/soundmap/internal/logging"
)

func testLogger() *slog.Logger {
	return logging.NewSlogLogger(zerolog.Nop())
}

func TestSupervisorTreeConstruction(t *testing.T) {
	t.Run("creates the tree", func(t *testing.T) {
		tree, err := NewSupervisorTree(testLogger(), TreeConfig{
			FailureThreshold: 5,
			FailureBackoff:   time.Second,
			ShutdownTimeout:  10 * time.Second,
		})
		if err != nil {
			t.Fatalf("failed to create tree: %v", err)
		}
		if tree.Root() == nil {
			t.Error("root supervisor should not be nil")
		}
	})

	t.Run("applies default values for zero config", func(t *testing.T) {
		tree, err := NewSupervisorTree(testLogger(), TreeConfig{})
		if err != nil {
			t.Fatalf("failed to create tree: %v", err)
		}
		if tree.config != DefaultTreeConfig() {
			t.Errorf("expected defaults, got %+v", tree.config)
		}
	})
}

func TestSupervisorTreeLifecycle(t *testing.T) {
	t.Run("starts services in both layers and stops on cancel", func(t *testing.T) {
		tree, _ := NewSupervisorTree(testLogger(), TreeConfig{
			FailureBackoff:  100 * time.Millisecond,
			ShutdownTimeout: time.Second,
		})

		engineSvc := newMockService("mock-engine")
		hostSvc := newMockService("mock-host")
		tree.AddEngineService(engineSvc)
		tree.AddHostService(hostSvc)

		ctx, cancel := context.WithCancel(context.Background())
		errCh := tree.ServeBackground(ctx)

		time.Sleep(100 * time.Millisecond)
		cancel()

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, context.Canceled) {
				t.Errorf("unexpected error: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("tree did not shut down in time")
		}

		if engineSvc.starts() < 1 {
			t.Error("engine service was not started")
		}
		if hostSvc.starts() < 1 {
			t.Error("host service was not started")
		}
	})
}

func TestSupervisorTreeFailureHandling(t *testing.T) {
	t.Run("failing host service is restarted without touching the engine", func(t *testing.T) {
		tree, _ := NewSupervisorTree(testLogger(), TreeConfig{
			FailureThreshold: 10,
			FailureBackoff:   10 * time.Millisecond,
			ShutdownTimeout:  time.Second,
		})

		watcher := newMockService("watcher")
		watcher.setFailCount(2)
		engine := newMockService("engine")

		tree.AddHostService(watcher)
		tree.AddEngineService(engine)

		ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
		defer cancel()

		go tree.Serve(ctx)
		time.Sleep(200 * time.Millisecond)

		if watcher.starts() < 3 {
			t.Errorf("expected at least 3 starts for the failing service, got %d", watcher.starts())
		}
		if engine.starts() != 1 {
			t.Errorf("engine should have started exactly once, got %d", engine.starts())
		}
	})

	t.Run("ErrDoNotRestart stops a service for good", func(t *testing.T) {
		tree, _ := NewSupervisorTree(testLogger(), TreeConfig{
			FailureBackoff:  10 * time.Millisecond,
			ShutdownTimeout: time.Second,
		})

		oneShot := newMockService("one-shot")
		oneShot.setError(suture.ErrDoNotRestart)
		tree.AddHostService(oneShot)

		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()

		go tree.Serve(ctx)
		time.Sleep(150 * time.Millisecond)

		if oneShot.starts() != 1 {
			t.Errorf("expected exactly one start, got %d", oneShot.starts())
		}
	})
}
